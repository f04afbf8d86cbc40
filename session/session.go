// Package session owns the in-process authenticated identity. Exactly one
// Session exists per process; the Manager is its only writer. Everything
// else reads snapshots or subscribes to changes.
package session

import "github.com/jamsesh/go-jamsesh-client/users"

// Status is the lifecycle position of the process session.
//
// The machine is Uninitialized -> Restoring -> {Authenticated, Anonymous},
// with Authenticated <-> Anonymous flips afterwards; there is no way back to
// Restoring or Uninitialized once the first resolution happens.
type Status int

const (
	StatusUninitialized Status = iota
	StatusRestoring
	StatusAuthenticated
	StatusAnonymous
)

func (s Status) String() string {
	switch s {
	case StatusUninitialized:
		return "uninitialized"
	case StatusRestoring:
		return "restoring"
	case StatusAuthenticated:
		return "authenticated"
	case StatusAnonymous:
		return "anonymous"
	}
	return "unknown"
}

// Session is a snapshot of the current identity. User is non-nil exactly
// when Status is StatusAuthenticated.
type Session struct {
	User   *users.User
	Status Status
}

// Authenticated reports whether the snapshot carries a signed-in identity.
func (s Session) Authenticated() bool {
	return s.Status == StatusAuthenticated && s.User != nil
}
