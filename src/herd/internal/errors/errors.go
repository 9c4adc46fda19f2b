package errors

import stderr "errors"

// New returns an error that formats as the given text.
// Each call to New returns a distinct error value even if the text is identical.
func New(msg string) error {
	return stderr.New(msg)
}

// Is reports whether any error in err's tree matches target.
func Is(err, target error) bool {
	return stderr.Is(err, target)
}

// As finds the first error in err's tree that matches target.
func As(err error, target interface{}) bool {
	return stderr.As(err, target)
}

var (
	// ErrNegotiationTimeout reports that a server did not answer the initialize
	// request within the configured window.
	ErrNegotiationTimeout = New("negotiation timed out")
	// ErrStaleResponse reports that a negotiation response arrived for a session
	// that no longer exists. Always discarded, never surfaced to the user.
	ErrStaleResponse = New("stale negotiation response")
)
