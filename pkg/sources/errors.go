package sources

import (
	"errors"
	"fmt"
)

type FetchErrorKind int

const (
	// Transport covers network failures and non-2xx responses.
	Transport FetchErrorKind = iota + 1
	// Shape covers payloads that arrived but are malformed or incomplete.
	Shape
	// Empty covers well-formed responses that carried no usable records.
	Empty
)

func (k FetchErrorKind) String() string {
	switch k {
	case Transport:
		return "transport"
	case Shape:
		return "shape"
	case Empty:
		return "empty"
	default:
		return "unknown"
	}
}

type FetchError struct {
	Kind FetchErrorKind
	Op   string
	URL  string
	Err  error
}

func (e *FetchError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s %s: %s", e.Op, e.URL, e.Kind)
	}
	return fmt.Sprintf("%s %s: %s: %v", e.Op, e.URL, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// KindOf returns the FetchError kind carried by err, or 0 when err is not a FetchError.
func KindOf(err error) FetchErrorKind {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return 0
}
