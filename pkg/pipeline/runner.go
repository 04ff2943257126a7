package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/zeromicro/go-zero/core/logx"

	"stocketl/pkg/journal"
	"stocketl/pkg/provider"
	"stocketl/pkg/table"
)

// Sink receives each completed kind table.
type Sink interface {
	Name() string
	Write(ctx context.Context, kind provider.Kind, t *table.Table) error
}

// Journal stores the summary of a run.
type Journal interface {
	WriteRun(rec *journal.RunRecord) (string, error)
}

// Runner is the single entry point a trigger invokes: it extracts every kind
// and writes each table to all sinks before moving on. Kinds already written
// stay written when a later kind fails.
type Runner struct {
	merger  *Merger
	sinks   []Sink
	journal Journal
	symbols []string
	nowFn   func() time.Time
}

// NewRunner wires a merger to its sinks. j may be nil.
func NewRunner(m *Merger, sinks []Sink, j Journal) *Runner {
	symbols := make([]string, 0, len(m.universe))
	for _, s := range m.universe {
		symbols = append(symbols, s.Symbol)
	}
	return &Runner{merger: m, sinks: sinks, journal: j, symbols: symbols, nowFn: time.Now}
}

// Run performs one full extraction and returns its journal record.
func (r *Runner) Run(ctx context.Context) (*journal.RunRecord, error) {
	rec := &journal.RunRecord{
		RunID:     journal.NewRunID(),
		StartedAt: r.nowFn(),
		Universe:  r.symbols,
	}
	ctx = logx.ContextWithFields(ctx, logx.Field("run_id", rec.RunID))
	logx.WithContext(ctx).Infof("run: start kinds=%v securities=%d sinks=%d", r.merger.Kinds(), len(r.symbols), len(r.sinks))

	err := r.merger.Each(ctx, func(res Result) error {
		kr := journal.KindRecord{
			Kind:           res.Kind.String(),
			CoercionSkips:  res.Skips,
			SkippedSymbols: res.Skipped,
			DurationMs:     res.Duration.Milliseconds(),
		}
		defer func() { rec.Kinds = append(rec.Kinds, kr) }()

		if res.Err != nil {
			kr.FailedSymbol = res.Err.Symbol
			kr.Category = string(res.Err.Category)
			kr.Error = res.Err.Err.Error()
			return nil
		}
		kr.Rows = res.Table.Len()
		kr.Columns = len(res.Table.Columns)
		return r.write(ctx, res, &kr)
	})

	rec.FinishedAt = r.nowFn()
	rec.Success = err == nil
	if err != nil {
		rec.ErrorMessage = err.Error()
		logx.WithContext(ctx).Errorf("run: failed after %s: %v", rec.FinishedAt.Sub(rec.StartedAt), err)
	} else {
		logx.WithContext(ctx).Infof("run: done in %s", rec.FinishedAt.Sub(rec.StartedAt))
	}

	if r.journal != nil {
		path, jerr := r.journal.WriteRun(rec)
		if jerr != nil {
			logx.WithContext(ctx).Errorf("run: write journal: %v", jerr)
		} else {
			logx.WithContext(ctx).Infof("run: journal %s", path)
		}
	}
	return rec, err
}

func (r *Runner) write(ctx context.Context, res Result, kr *journal.KindRecord) error {
	var errs []error
	for _, s := range r.sinks {
		sr := journal.SinkRecord{Name: s.Name(), OK: true}
		if err := s.Write(ctx, res.Kind, res.Table); err != nil {
			sr.OK, sr.Error = false, err.Error()
			errs = append(errs, err)
			logx.WithContext(ctx).Errorf("run: sink=%s kind=%s: %v", s.Name(), res.Kind, err)
		} else {
			logx.WithContext(ctx).Infof("run: sink=%s kind=%s rows=%d written", s.Name(), res.Kind, res.Table.Len())
		}
		kr.Sinks = append(kr.Sinks, sr)
	}
	if len(errs) > 0 {
		kr.Category = string(CategorySink)
		kr.Error = errors.Join(errs...).Error()
		return &KindError{Kind: res.Kind, Category: CategorySink, Err: errors.Join(errs...)}
	}
	return nil
}
