package githubapi

import (
	"errors"
	"fmt"
)

// Fetch error kinds. Match them with errors.Is on any error returned by Caller.
var (
	// ErrRateLimited means the API refused the request for quota reasons. Not retried.
	ErrRateLimited = errors.New("githubapi: rate limit exceeded")

	// ErrAccessBlocked means this one repository cannot be read.
	ErrAccessBlocked = errors.New("githubapi: repository access blocked")

	// ErrTransient means the transport kept failing after every retry.
	ErrTransient = errors.New("githubapi: transient fetch error")

	// ErrPermanent means an unexpected status or an undecodable body.
	ErrPermanent = errors.New("githubapi: permanent fetch error")
)

// FetchError describes a failed request.
type FetchError struct {
	Kind       error
	URL        string
	StatusCode int
	Message    string
	Err        error
}

func (e *FetchError) Error() string {
	msg := fmt.Sprintf("%v: GET %s", e.Kind, e.URL)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FetchError) Is(target error) bool {
	return target == e.Kind
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// IsRateLimited checks if the error indicates rate limiting.
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

// IsAccessBlocked checks if the error indicates a blocked repository.
func IsAccessBlocked(err error) bool {
	return errors.Is(err, ErrAccessBlocked)
}
