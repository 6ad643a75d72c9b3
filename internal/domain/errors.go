package domain

import "errors"

// Sentinel errors for domain operations
var (
	// ErrDuplicateEmail indicates a sign-up with an email already in the roster
	ErrDuplicateEmail = errors.New("email already registered")

	// ErrNotFound indicates the requested principal does not exist
	ErrNotFound = errors.New("principal not found")

	// ErrAccountBanned indicates the principal is banned and cannot log in
	ErrAccountBanned = errors.New("account is banned")

	// ErrInvalidCredentials indicates a password mismatch
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrNoActiveSession indicates an operation that needs a logged-in principal
	ErrNoActiveSession = errors.New("no active session")

	// ErrForbidden indicates a privileged operation attempted by a non-admin
	ErrForbidden = errors.New("admin privileges required")

	// ErrInvalidSignup indicates sign-up or profile input failed validation
	ErrInvalidSignup = errors.New("invalid account data")

	// ErrRemoteFetchFailed indicates the catalog API could not serve a request
	ErrRemoteFetchFailed = errors.New("catalog request failed")

	// ErrAuthFailed indicates the catalog API rejected the bearer token
	ErrAuthFailed = errors.New("catalog token is invalid")

	// ErrMovieNotFound indicates the catalog has no movie with the given id
	ErrMovieNotFound = errors.New("movie not found")
)
