package etl

import (
	"context"
	"sort"
	"sync"

	"github.com/cockroachdb/errors"
)

// ── Source ──────────────────────────────────────────────────
// A Source opens a tabular export and yields its rows one at a time.
// Implementations live in etl/sources/, one file per source type.

// SourceConfig is an opaque configuration map parsed per source type.
type SourceConfig map[string]any

// ConfigField describes a single configuration input for a source.
type ConfigField struct {
	Key      string `json:"key"`
	Label    string `json:"label"`
	Required bool   `json:"required"`
	Default  string `json:"default,omitempty"`
	Help     string `json:"help,omitempty"`
}

// SourceSpec describes a source type and the configuration it accepts.
type SourceSpec struct {
	Type         string        `json:"type"`
	Label        string        `json:"label"`
	ConfigFields []ConfigField `json:"configFields"`
}

// RowReader yields rows in file order. Next returns io.EOF after the last row.
type RowReader interface {
	Headers() []string
	Next() (Row, error)
	Close() error
}

// Source is the interface every tabular source must implement.
type Source interface {
	// Spec returns metadata about this source type.
	Spec() SourceSpec

	// Open prepares a reader positioned before the first data row.
	Open(ctx context.Context, cfg SourceConfig) (RowReader, error)
}

// ── Source Registry ────────────────────────────────────────
// Source files register themselves from init(); a type registered twice
// is a programming error.

var (
	registryMu sync.RWMutex
	registry   = map[string]Source{}
)

// RegisterSource adds s under its spec type. It panics on a duplicate type.
func RegisterSource(s Source) {
	typ := s.Spec().Type
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, dup := registry[typ]; dup {
		panic("etl: source type registered twice: " + typ)
	}
	registry[typ] = s
}

// GetSource looks a source up by type.
func GetSource(typ string) (Source, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	if s, ok := registry[typ]; ok {
		return s, nil
	}
	return nil, errors.Newf("unknown source type: %q", typ)
}

// ListSources returns every registered spec, ordered by type.
func ListSources() []SourceSpec {
	registryMu.RLock()
	specs := make([]SourceSpec, 0, len(registry))
	for _, s := range registry {
		specs = append(specs, s.Spec())
	}
	registryMu.RUnlock()

	sort.Slice(specs, func(i, j int) bool { return specs[i].Type < specs[j].Type })
	return specs
}

// OpenSource resolves typ, fills unset keys from the spec defaults, checks
// required keys and opens the source. cfg itself is not modified.
func OpenSource(ctx context.Context, typ string, cfg SourceConfig) (RowReader, error) {
	src, err := GetSource(typ)
	if err != nil {
		return nil, err
	}
	resolved, err := src.Spec().Resolve(cfg)
	if err != nil {
		return nil, err
	}
	return src.Open(ctx, resolved)
}

// Resolve returns a copy of cfg with defaults applied. A required key that
// is missing or empty is an error.
func (s SourceSpec) Resolve(cfg SourceConfig) (SourceConfig, error) {
	out := make(SourceConfig, len(cfg)+len(s.ConfigFields))
	for k, v := range cfg {
		out[k] = v
	}
	for _, f := range s.ConfigFields {
		if v, ok := out[f.Key]; ok && v != "" && v != nil {
			continue
		}
		if f.Required {
			return nil, errors.Newf("%s: %s is required", s.Type, f.Key)
		}
		if f.Default != "" {
			out[f.Key] = f.Default
		}
	}
	return out, nil
}
