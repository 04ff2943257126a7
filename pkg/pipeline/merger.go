// Package pipeline runs the per-kind extraction across the security universe.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/zeromicro/go-zero/core/logx"

	"stocketl/pkg/normalize"
	"stocketl/pkg/provider"
	"stocketl/pkg/table"
)

// Security pairs a provider symbol with its internal identifier.
type Security struct {
	Symbol string `json:"symbol"`
	ID     int64  `json:"id"`
}

// FailurePolicy decides what a per-security failure does to its kind.
type FailurePolicy string

const (
	// PolicyAbort fails the whole kind on the first security error.
	PolicyAbort FailurePolicy = "abort"
	// PolicySkip logs the failing security and continues with the rest.
	PolicySkip FailurePolicy = "skip"
)

// ParseFailurePolicy resolves a configured policy name; empty means abort.
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch FailurePolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PolicyAbort:
		return PolicyAbort, nil
	case PolicySkip:
		return PolicySkip, nil
	default:
		return "", fmt.Errorf("pipeline: unknown failure policy %q", s)
	}
}

// Result is the outcome of one kind: a combined table or a categorised error.
type Result struct {
	Kind     provider.Kind
	Table    *table.Table
	Skips    int
	Skipped  []string
	Duration time.Duration
	Err      *KindError
}

// OK reports whether the kind produced a table.
func (r Result) OK() bool { return r.Err == nil }

// Merger fetches, normalises and concatenates one kind at a time.
type Merger struct {
	client       provider.Client
	universe     []Security
	normalizer   *normalize.Normalizer
	kinds        []provider.Kind
	kindPacer    Pacer
	requestPacer Pacer
	policy       FailurePolicy
}

// Option configures a Merger.
type Option func(*Merger)

// WithNormalizer replaces the default normalizer.
func WithNormalizer(n *normalize.Normalizer) Option {
	return func(m *Merger) {
		if n != nil {
			m.normalizer = n
		}
	}
}

// WithKinds sets the kinds ExtractAll runs, in order.
func WithKinds(kinds ...provider.Kind) Option {
	return func(m *Merger) {
		if len(kinds) > 0 {
			m.kinds = kinds
		}
	}
}

// WithKindPacer sets the wait applied between consecutive kinds.
func WithKindPacer(p Pacer) Option {
	return func(m *Merger) {
		if p != nil {
			m.kindPacer = p
		}
	}
}

// WithRequestPacer gates every provider call.
func WithRequestPacer(p Pacer) Option {
	return func(m *Merger) {
		m.requestPacer = p
	}
}

// WithFailurePolicy sets how per-security failures are handled.
func WithFailurePolicy(p FailurePolicy) Option {
	return func(m *Merger) {
		if p != "" {
			m.policy = p
		}
	}
}

// NewMerger constructs a Merger over a fixed universe.
func NewMerger(client provider.Client, universe []Security, opts ...Option) *Merger {
	m := &Merger{
		client:     client,
		universe:   append([]Security(nil), universe...),
		normalizer: normalize.New(),
		kinds:      provider.AllKinds(),
		kindPacer:  FixedDelay(DefaultKindDelay),
		policy:     PolicyAbort,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Kinds returns the configured extraction order.
func (m *Merger) Kinds() []provider.Kind {
	return append([]provider.Kind(nil), m.kinds...)
}

// MergeAll builds the combined table of one kind across the universe. Under
// PolicyAbort the first failing security ends the kind with no table.
func (m *Merger) MergeAll(ctx context.Context, kind provider.Kind) Result {
	start := time.Now()
	res := Result{Kind: kind}
	combined := table.New()

	for _, sec := range m.universe {
		part, skips, err := m.one(ctx, kind, sec)
		if err != nil {
			kerr := &KindError{Kind: kind, Symbol: sec.Symbol, Category: classify(ctx, err), Err: err}
			if m.policy == PolicySkip && kerr.Category != CategoryCanceled {
				logx.WithContext(ctx).Errorf("pipeline: kind=%s symbol=%s skipped: %v", kind, sec.Symbol, err)
				res.Skipped = append(res.Skipped, sec.Symbol)
				continue
			}
			logx.WithContext(ctx).Errorf("pipeline: kind=%s symbol=%s aborted: %v", kind, sec.Symbol, err)
			res.Err = kerr
			res.Duration = time.Since(start)
			return res
		}
		for _, s := range skips {
			logx.WithContext(ctx).Debugf("pipeline: kind=%s symbol=%s coercion skip %s", kind, sec.Symbol, s)
		}
		res.Skips += len(skips)
		combined.Merge(part)
	}

	res.Table = combined
	res.Duration = time.Since(start)
	logx.WithContext(ctx).Infof("pipeline: kind=%s securities=%d rows=%d columns=%d skips=%d took=%s",
		kind, len(m.universe)-len(res.Skipped), combined.Len(), len(combined.Columns), res.Skips, res.Duration)
	return res
}

func (m *Merger) one(ctx context.Context, kind provider.Kind, sec Security) (*table.Table, []normalize.CoercionSkip, error) {
	if m.requestPacer != nil {
		if err := m.requestPacer.Wait(ctx); err != nil {
			return nil, nil, err
		}
	}
	raw, err := m.client.Fetch(ctx, kind, sec.Symbol)
	if err != nil {
		return nil, nil, err
	}
	return m.normalizer.Normalize(kind, raw, sec.ID)
}

// Each runs every configured kind in order, pacing between kinds, and hands
// each result to fn before starting the next kind. It stops at the first
// failed kind or at the first error returned by fn.
func (m *Merger) Each(ctx context.Context, fn func(Result) error) error {
	for i, kind := range m.kinds {
		if i > 0 {
			logx.WithContext(ctx).Infof("pipeline: pacing before kind=%s", kind)
			if err := m.kindPacer.Wait(ctx); err != nil {
				return &KindError{Kind: kind, Category: CategoryCanceled, Err: err}
			}
		}
		res := m.MergeAll(ctx, kind)
		if err := fn(res); err != nil {
			return err
		}
		if res.Err != nil {
			return res.Err
		}
	}
	return nil
}

// ExtractAll runs every configured kind and returns the results gathered up
// to and including the first failed kind.
func (m *Merger) ExtractAll(ctx context.Context) ([]Result, error) {
	var results []Result
	err := m.Each(ctx, func(r Result) error {
		results = append(results, r)
		return nil
	})
	return results, err
}
