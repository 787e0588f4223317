package session

import "errors"

var (
	// ErrNoAccessToken indicates an auth flow completed without an access
	// token in the redirect fragment.
	ErrNoAccessToken = errors.New("no access token received")
	// ErrAuthCanceled indicates the interactive auth flow was canceled
	// before a redirect arrived.
	ErrAuthCanceled = errors.New("authentication canceled")
	// ErrNotAuthenticated indicates an operation that requires a session
	// was called without one.
	ErrNotAuthenticated = errors.New("not authenticated")
)
