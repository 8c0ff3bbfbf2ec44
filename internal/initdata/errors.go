package initdata

import (
	"errors"
	"fmt"
)

// Error kinds returned by Parse and Verify
var (
	ErrMalformedPayload = errors.New("malformed payload")
	ErrEncoding         = errors.New("invalid percent-encoding")
)

// Errors returned by the field accessors and freshness check
var (
	ErrNoUser     = errors.New("user field not present")
	ErrNoAuthDate = errors.New("auth_date field not present")
	ErrExpired    = errors.New("init data expired")
)

// PayloadError describes why a raw payload could not be processed. Kind is
// either ErrMalformedPayload or ErrEncoding, so callers can use errors.Is.
type PayloadError struct {
	Kind    error
	Segment string
	Err     error
}

func (e *PayloadError) Error() string {
	switch {
	case e.Segment != "" && e.Err != nil:
		return fmt.Sprintf("%v: segment %q: %v", e.Kind, e.Segment, e.Err)
	case e.Segment != "":
		return fmt.Sprintf("%v: segment %q", e.Kind, e.Segment)
	case e.Err != nil:
		return fmt.Sprintf("%v: %v", e.Kind, e.Err)
	default:
		return e.Kind.Error()
	}
}

func (e *PayloadError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func malformed(segment string, err error) error {
	return &PayloadError{Kind: ErrMalformedPayload, Segment: segment, Err: err}
}

func encoding(segment string, err error) error {
	return &PayloadError{Kind: ErrEncoding, Segment: segment, Err: err}
}
