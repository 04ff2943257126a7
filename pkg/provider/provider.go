package provider

import (
	"context"
	"fmt"
)

// RawRecord is one decoded provider response: nested maps, slices, strings and numbers.
type RawRecord map[string]any

// Client fetches raw records for a single symbol and endpoint kind.
type Client interface {
	Fetch(ctx context.Context, kind Kind, symbol string) (RawRecord, error)
}

// ClientFunc adapts a function to the Client interface.
type ClientFunc func(ctx context.Context, kind Kind, symbol string) (RawRecord, error)

// Fetch calls f.
func (f ClientFunc) Fetch(ctx context.Context, kind Kind, symbol string) (RawRecord, error) {
	return f(ctx, kind, symbol)
}

// TransportError reports a failed provider call: network failure, non-2xx
// status or an undecodable body.
type TransportError struct {
	Kind       Kind
	Symbol     string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("provider: fetch %s %s: http status %d: %v", e.Kind, e.Symbol, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("provider: fetch %s %s: %v", e.Kind, e.Symbol, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
