package prismic

import (
	"errors"
	"fmt"
)

// ErrNotFound is matched by every *NotFoundError.
var ErrNotFound = errors.New("prismic: document not found")

// TransportError reports a network failure or an HTTP error status from the API.
type TransportError struct {
	URL        string
	StatusCode int // zero when no response was received
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("prismic: GET %s: status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("prismic: GET %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// SchemaError reports a response body that does not have the expected shape.
type SchemaError struct {
	What string
	Err  error
}

func (e *SchemaError) Error() string {
	if e.Err == nil {
		return "prismic: unexpected " + e.What
	}
	return fmt.Sprintf("prismic: unexpected %s: %v", e.What, e.Err)
}

func (e *SchemaError) Unwrap() error { return e.Err }

// NotFoundError reports that no document matched a lookup.
type NotFoundError struct {
	Type string
	Key  string
}

func (e *NotFoundError) Error() string {
	if e.Type == "" {
		return fmt.Sprintf("prismic: document %q not found", e.Key)
	}
	return fmt.Sprintf("prismic: %s %q not found", e.Type, e.Key)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }
