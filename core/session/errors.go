package session

import "errors"

var (
	// ErrNoRole means the identity has no profile document and is not a fallback admin.
	ErrNoRole = errors.New("no role assigned to this account")
	// ErrLookupUnavailable means the profile lookup failed or timed out.
	ErrLookupUnavailable = errors.New("role lookup unavailable")

	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountDisabled    = errors.New("account disabled")
	ErrInvalidIDToken     = errors.New("invalid identity token")
	ErrAccountNotFound    = errors.New("account not found")
	ErrAccountExists      = errors.New("an account with this email already exists")

	ErrMalformedSession = errors.New("malformed session cookie")
	ErrNoSession        = errors.New("no session in context")
)
