package journal

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// RunRecord captures one end-to-end extraction run for audit.
type RunRecord struct {
	RunID        string       `json:"run_id"`
	StartedAt    time.Time    `json:"started_at"`
	FinishedAt   time.Time    `json:"finished_at"`
	Universe     []string     `json:"universe,omitempty"`
	Kinds        []KindRecord `json:"kinds"`
	Success      bool         `json:"success"`
	ErrorMessage string       `json:"error_message,omitempty"`
}

// KindRecord summarises one kind within a run.
type KindRecord struct {
	Kind           string       `json:"kind"`
	Rows           int          `json:"rows"`
	Columns        int          `json:"columns"`
	CoercionSkips  int          `json:"coercion_skips,omitempty"`
	SkippedSymbols []string     `json:"skipped_symbols,omitempty"`
	DurationMs     int64        `json:"duration_ms"`
	Sinks          []SinkRecord `json:"sinks,omitempty"`
	FailedSymbol   string       `json:"failed_symbol,omitempty"`
	Category       string       `json:"category,omitempty"`
	Error          string       `json:"error,omitempty"`
}

// SinkRecord is the outcome of handing one table to one sink.
type SinkRecord struct {
	Name  string `json:"name"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// Writer persists run records to a directory as JSON files.
type Writer struct {
	dir   string
	seq   int
	nowFn func() time.Time
}

// NewWriter constructs a journal writer.
func NewWriter(dir string) *Writer {
	if dir == "" {
		dir = "journal"
	}
	_ = os.MkdirAll(dir, 0o755)
	return &Writer{dir: dir, nowFn: time.Now}
}

// Dir returns the output directory.
func (w *Writer) Dir() string { return w.dir }

// WriteRun writes a run record to a timestamped JSON file and returns its path.
func (w *Writer) WriteRun(rec *RunRecord) (string, error) {
	if rec == nil {
		return "", fmt.Errorf("journal: nil record")
	}
	if rec.StartedAt.IsZero() {
		rec.StartedAt = w.nowFn()
	}
	if rec.RunID == "" {
		rec.RunID = NewRunID()
	}
	w.seq++
	name := fmt.Sprintf("run_%s_%05d.json", rec.StartedAt.UTC().Format("20060102_150405"), w.seq)
	path := filepath.Join(w.dir, name)
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}
