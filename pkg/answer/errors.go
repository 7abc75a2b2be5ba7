package answer

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrNoBaseURL is returned by NewClient when no service address is configured.
	ErrNoBaseURL = errors.New("answer: base URL is empty")
	// ErrDecode marks a success response whose body could not be parsed.
	ErrDecode = errors.New("answer: malformed response body")
)

// StatusError is returned for any non-2xx response.
type StatusError struct {
	StatusCode int
	// Body holds at most the first few hundred bytes of the response, for logs only.
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("answer: unexpected status %d", e.StatusCode)
}

// IsStatusError reports whether err (or its cause) is a *StatusError and returns it.
func IsStatusError(err error) (*StatusError, bool) {
	var se *StatusError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// IsDecodeError reports whether err was caused by a malformed body.
func IsDecodeError(err error) bool {
	return errors.Is(err, ErrDecode)
}

type decodeError struct {
	cause error
}

func (e *decodeError) Error() string { return ErrDecode.Error() + ": " + e.cause.Error() }
func (e *decodeError) Unwrap() []error { return []error{ErrDecode, e.cause} }
