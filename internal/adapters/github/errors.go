package github

import "errors"

// Sentinel kinds for fetch errors. Callers classify with errors.Is.
var (
	// ErrNotFound means the user has no public GitHub profile. Terminal;
	// never retried.
	ErrNotFound = errors.New("github user not found")

	// ErrRateLimited means the shared cycle budget is spent or upstream
	// refused the request with a rate-limit response.
	ErrRateLimited = errors.New("github rate limit exhausted")

	// ErrTransient covers network failures and 5xx responses that
	// survived the bounded retry loop.
	ErrTransient = errors.New("transient network error")

	// ErrUpstream covers malformed or unexpected upstream responses.
	ErrUpstream = errors.New("unexpected github response")
)
