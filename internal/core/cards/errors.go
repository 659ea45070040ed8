package cards

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidURL is returned when a URL fails validation. Every *ValidationError unwraps to it.
	ErrInvalidURL = errors.New("invalid URL")

	// ErrNotFound is returned when a stored card does not exist.
	ErrNotFound = errors.New("card not found")

	// ErrInvalidHash is returned when a card key is not a 32-character lowercase hex digest.
	ErrInvalidHash = errors.New("invalid card hash")

	// ErrNilDependency is returned when a required dependency is nil.
	ErrNilDependency = errors.New("required dependency is nil")

	// ErrFetchFailed is returned when the remote page cannot be retrieved.
	ErrFetchFailed = errors.New("failed to fetch URL")

	// ErrFetchTimeout is returned when the remote request exceeds its time budget.
	ErrFetchTimeout = errors.New("fetch timed out")

	// ErrFetchStatus is returned when the remote server answers with a non-2xx status.
	ErrFetchStatus = errors.New("unexpected HTTP status")

	// ErrEmptyBody is returned when the remote server answers with no content.
	ErrEmptyBody = errors.New("empty response body")

	// ErrSSRFBlocked is returned when a request or redirect targets a disallowed address.
	ErrSSRFBlocked = errors.New("destination address is not allowed")
)

// ValidationError describes why a URL was rejected.
type ValidationError struct {
	URL    string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid URL %q: %s", e.URL, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidURL }

// FetchReason classifies a FetchError.
type FetchReason string

const (
	ReasonNetwork   FetchReason = "network"
	ReasonTimeout   FetchReason = "timeout"
	ReasonStatus    FetchReason = "status"
	ReasonEmptyBody FetchReason = "empty_body"
	ReasonBlocked   FetchReason = "blocked"
)

// FetchError is a failed remote fetch.
type FetchError struct {
	Err        error
	URL        string
	Reason     FetchReason
	StatusCode int
}

func (e *FetchError) Error() string {
	switch e.Reason {
	case ReasonStatus:
		return fmt.Sprintf("fetch %s: status %d", e.URL, e.StatusCode)
	case ReasonEmptyBody:
		return fmt.Sprintf("fetch %s: empty body", e.URL)
	default:
		if e.Err != nil {
			return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Reason, e.Err)
		}
		return fmt.Sprintf("fetch %s: %s", e.URL, e.Reason)
	}
}

// Unwrap exposes both the sentinel for the reason and the underlying cause.
func (e *FetchError) Unwrap() []error {
	var sentinel error
	switch e.Reason {
	case ReasonTimeout:
		sentinel = ErrFetchTimeout
	case ReasonStatus:
		sentinel = ErrFetchStatus
	case ReasonEmptyBody:
		sentinel = ErrEmptyBody
	case ReasonBlocked:
		sentinel = ErrSSRFBlocked
	default:
		sentinel = ErrFetchFailed
	}
	if e.Err == nil {
		return []error{sentinel}
	}
	return []error{sentinel, e.Err}
}

// hostFailure reports whether err says something about the health of the
// remote host, as opposed to the particular page.
func hostFailure(err error) bool {
	var fe *FetchError
	if !errors.As(err, &fe) {
		return true
	}
	switch fe.Reason {
	case ReasonNetwork, ReasonTimeout:
		return true
	case ReasonStatus:
		return fe.StatusCode >= 500
	default:
		return false
	}
}

// hostAnswered reports whether err came from a response the host actually
// sent, such as a 404 or an empty page.
func hostAnswered(err error) bool {
	var fe *FetchError
	if !errors.As(err, &fe) {
		return false
	}
	return fe.StatusCode > 0 && !hostFailure(err)
}
