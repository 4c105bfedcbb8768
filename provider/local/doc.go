// Package local is an identity provider that runs in process.
//
// Accounts are stored in SQLite through bun with bcrypt password hashes, and
// every sign in issues an HS256 JWT. Accounts is stateless and can back an
// HTTP server; Provider adds the single current session and its subscribers,
// optionally persisting that session across restarts.
package local
