package pipeline

import (
	"context"
	"errors"
	"fmt"

	"stocketl/pkg/normalize"
	"stocketl/pkg/provider"
)

// Category classifies why a kind failed.
type Category string

const (
	CategoryTransport Category = "transport"
	CategoryMalformed Category = "malformed"
	CategoryCanceled  Category = "canceled"
	CategorySink      Category = "sink"
	CategoryOther     Category = "other"
)

// KindError reports the failure that aborted one kind.
type KindError struct {
	Kind     provider.Kind
	Symbol   string
	Category Category
	Err      error
}

func (e *KindError) Error() string {
	if e.Symbol == "" {
		return fmt.Sprintf("pipeline: kind %s failed (%s): %v", e.Kind, e.Category, e.Err)
	}
	return fmt.Sprintf("pipeline: kind %s failed at %s (%s): %v", e.Kind, e.Symbol, e.Category, e.Err)
}

func (e *KindError) Unwrap() error { return e.Err }

// classify reports a failure as canceled only when the run context itself is
// done; a provider's own request deadline is a transport failure.
func classify(ctx context.Context, err error) Category {
	var te *provider.TransportError
	switch {
	case ctx.Err() != nil:
		return CategoryCanceled
	case errors.As(err, &te):
		return CategoryTransport
	case errors.Is(err, normalize.ErrMalformedResponse):
		return CategoryMalformed
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return CategoryCanceled
	default:
		return CategoryOther
	}
}
