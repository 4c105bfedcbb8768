package tui

import "github.com/goliatone/go-homie"

type sessionChangedMsg struct {
	session *homie.Session
}

// authDoneMsg carries the result of a sign in or sign up started by the
// auth view mounted as mount.
type authDoneMsg struct {
	mount uint64
	err   error
}

type signOutDoneMsg struct {
	mount uint64
	err   error
}

type pressReleasedMsg struct {
	mount uint64
}
