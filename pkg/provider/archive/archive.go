// Package archive stores raw provider responses as msgpack files and replays them.
package archive

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
	"github.com/zeromicro/go-zero/core/logx"

	"stocketl/pkg/provider"
)

const ext = ".msgpack"

// ErrNotArchived is returned by Replay when no stored response exists.
var ErrNotArchived = errors.New("archive: response not archived")

// Path returns the file holding one (kind, symbol) response.
func Path(dir string, kind provider.Kind, symbol string) string {
	return filepath.Join(dir, kind.String(), fileName(symbol)+ext)
}

func fileName(symbol string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	return strings.NewReplacer("/", "_", "\\", "_", "..", "_").Replace(s)
}

// Save writes raw atomically under dir.
func Save(dir string, kind provider.Kind, symbol string, raw provider.RawRecord) error {
	data, err := msgpack.Marshal(raw)
	if err != nil {
		return fmt.Errorf("archive: encode %s %s: %w", kind, symbol, err)
	}
	path := Path(dir, kind, symbol)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("archive: mkdir: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("archive: write %s: %w", tmp, err)
	}
	return os.Rename(tmp, path)
}

// Load reads a stored response.
func Load(dir string, kind provider.Kind, symbol string) (provider.RawRecord, error) {
	data, err := os.ReadFile(Path(dir, kind, symbol))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotArchived
		}
		return nil, fmt.Errorf("archive: read %s %s: %w", kind, symbol, err)
	}
	var raw provider.RawRecord
	if err := msgpack.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("archive: decode %s %s: %w", kind, symbol, err)
	}
	return raw, nil
}

// Recorder passes calls through to another client and keeps every successful response.
type Recorder struct {
	next provider.Client
	dir  string
}

// NewRecorder wraps next; responses are stored under dir.
func NewRecorder(next provider.Client, dir string) *Recorder {
	return &Recorder{next: next, dir: dir}
}

// Fetch delegates and archives the response. Archive failures are logged, not returned.
func (r *Recorder) Fetch(ctx context.Context, kind provider.Kind, symbol string) (provider.RawRecord, error) {
	raw, err := r.next.Fetch(ctx, kind, symbol)
	if err != nil {
		return nil, err
	}
	if serr := Save(r.dir, kind, symbol, raw); serr != nil {
		logx.WithContext(ctx).Errorf("archive: kind=%s symbol=%s: %v", kind, symbol, serr)
	}
	return raw, nil
}

// Replay serves previously archived responses.
type Replay struct {
	dir string
}

// NewReplay reads responses from dir.
func NewReplay(dir string) *Replay {
	return &Replay{dir: dir}
}

// Fetch loads the archived response; a missing file is a transport error.
func (r *Replay) Fetch(ctx context.Context, kind provider.Kind, symbol string) (provider.RawRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := Load(r.dir, kind, symbol)
	if err != nil {
		return nil, &provider.TransportError{Kind: kind, Symbol: symbol, Err: err}
	}
	return raw, nil
}

func init() {
	provider.RegisterProvider("archive", func(name string, cfg *provider.ProviderConfig) (provider.Client, error) {
		if cfg.Dir == "" {
			return nil, fmt.Errorf("archive provider %s: dir is required", name)
		}
		return NewReplay(cfg.Dir), nil
	})
}
