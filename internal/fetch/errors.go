package fetch

import "fmt"

// TransportError represents a network or timeout failure while fetching.
// Status codes, including non-2xx ones, are never transport errors.
type TransportError struct {
	URL   string
	Cause error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("fetch error for %s: %v", e.URL, e.Cause)
}

func (e *TransportError) Unwrap() error {
	return e.Cause
}

// MalformedPageError represents a body that could not be decoded as text.
// It comes with a page whose body is empty.
type MalformedPageError struct {
	URL   string
	Cause error
}

func (e *MalformedPageError) Error() string {
	return fmt.Sprintf("malformed page %s: %v", e.URL, e.Cause)
}

func (e *MalformedPageError) Unwrap() error {
	return e.Cause
}
