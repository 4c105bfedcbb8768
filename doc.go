// Package homie gates a client behind an email/password identity check.
//
// Session observation:
//   - Observer holds exactly one subscription to a Provider between Start and
//     Stop. The provider replays its current session right after subscribing
//     and then reports every change, in order. Anything delivered after Stop
//     is dropped.
//
// Navigation gate:
//   - Gate owns a GateState, a tagged variant of Initializing,
//     Unauthenticated and Authenticated(Session). It leaves Initializing on the
//     first notification and afterwards follows the provider on every one.
//     GateState.View maps each variant to exactly one mounted view, with
//     Initializing rendering nothing.
//
// Views:
//   - AuthForm and SignOutAction hold the state of the two views. They call
//     the provider directly and never drive the gate; provider failures become
//     user visible messages via Message and leave the gate untouched.
//
// The interactive control lives in the control package, providers under
// provider/, and the terminal client in tui.
package homie
