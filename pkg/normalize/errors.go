package normalize

import (
	"errors"
	"fmt"

	"stocketl/pkg/provider"
)

// ErrMalformedResponse matches every *MalformedError.
var ErrMalformedResponse = errors.New("normalize: malformed response")

// MalformedError reports a raw record that lacks the body expected for its kind.
type MalformedError struct {
	Kind provider.Kind
	// Key is the missing top-level key or the invalid series entry.
	Key string
	// Detail carries the provider diagnostic (Note, Information, Error Message) when present.
	Detail string
}

func (e *MalformedError) Error() string {
	msg := fmt.Sprintf("normalize: malformed %s response: empty body", e.Kind)
	if e.Key != "" {
		msg = fmt.Sprintf("normalize: malformed %s response: key %q", e.Kind, e.Key)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *MalformedError) Unwrap() error { return ErrMalformedResponse }

// CoercionSkip records a value left as text because it did not parse as its declared type.
type CoercionSkip struct {
	Field  string
	Value  string
	Target FieldType
}

func (s CoercionSkip) String() string {
	return fmt.Sprintf("%s=%q (want %s)", s.Field, s.Value, s.Target)
}

var diagnosticKeys = []string{"Error Message", "Note", "Information"}

func diagnostic(raw provider.RawRecord) string {
	for _, k := range diagnosticKeys {
		if v, ok := raw[k]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}
