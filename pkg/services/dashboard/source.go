package dashboard

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/de-tools/lakespend/pkg/models/domain"
	"github.com/de-tools/lakespend/pkg/models/store"
	"github.com/de-tools/lakespend/pkg/store/cache"
	sqldashboard "github.com/de-tools/lakespend/pkg/store/databrickssql/dashboard"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

const (
	SourceExample = "example"
	SourceLive    = "live"
)

//go:embed fixtures/example.yaml
var exampleFixtures []byte

// Source loads a named dataset.
type Source interface {
	Load(ctx context.Context, name string) (*store.Dataset, error)
}

type fixture struct {
	Columns []string `yaml:"columns"`
	Rows    [][]any  `yaml:"rows"`
}

type exampleSource struct {
	datasets map[string]*store.Dataset
}

// NewExampleSource serves the bundled sample data.
func NewExampleSource() (Source, error) {
	return newExampleSource(exampleFixtures)
}

func newExampleSource(data []byte) (Source, error) {
	var fixtures map[string]fixture
	if err := yaml.Unmarshal(data, &fixtures); err != nil {
		return nil, fmt.Errorf("failed to parse example datasets: %w", err)
	}

	datasets := make(map[string]*store.Dataset, len(fixtures))
	for name, f := range fixtures {
		ds := &store.Dataset{Name: name, Columns: f.Columns, Rows: make([][]any, 0, len(f.Rows))}
		for i, row := range f.Rows {
			if len(row) != len(f.Columns) {
				return nil, fmt.Errorf("example dataset %s: row %d has %d values for %d columns",
					name, i, len(row), len(f.Columns))
			}
			out := make([]any, len(row))
			for j, v := range row {
				out[j] = normalize(v)
			}
			ds.Rows = append(ds.Rows, out)
		}
		datasets[name] = ds
	}
	return &exampleSource{datasets: datasets}, nil
}

func (s *exampleSource) Load(_ context.Context, name string) (*store.Dataset, error) {
	ds, ok := s.datasets[name]
	if !ok {
		return nil, fmt.Errorf("%w: dataset %q", domain.ErrNotFound, name)
	}
	return ds, nil
}

func normalize(v any) any {
	switch n := v.(type) {
	case int:
		return int64(n)
	case float32:
		return float64(n)
	default:
		return v
	}
}

type LiveSettings struct {
	Catalog  string
	Schema   string
	MaxRows  int
	CacheTTL time.Duration
}

type liveSource struct {
	store    sqldashboard.Store
	cache    cache.DatasetCache
	settings LiveSettings
}

// NewLiveSource reads datasets from warehouse tables, caching results for
// settings.CacheTTL. A nil cache disables caching.
func NewLiveSource(s sqldashboard.Store, c cache.DatasetCache, settings LiveSettings) Source {
	return &liveSource{store: s, cache: c, settings: settings}
}

func (s *liveSource) Load(ctx context.Context, name string) (*store.Dataset, error) {
	logger := zerolog.Ctx(ctx).With().Str("dataset", name).Logger()

	if !isDataset(name) {
		return nil, fmt.Errorf("%w: dataset %q", domain.ErrNotFound, name)
	}
	key := fmt.Sprintf("%s.%s.%s:%d", s.settings.Catalog, s.settings.Schema, name, s.settings.MaxRows)

	if s.cache != nil {
		ds, ok, err := s.cache.Get(ctx, key)
		if err != nil {
			logger.Warn().Err(err).Msg("dataset cache read failed")
		} else if ok {
			return ds, nil
		}
	}

	ds, err := s.store.GetDataset(ctx, s.settings.Catalog, s.settings.Schema, name, s.settings.MaxRows)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to load %s: %w", domain.ErrUpstream, name, err)
	}

	if s.cache != nil && s.settings.CacheTTL > 0 {
		if err := s.cache.Set(ctx, key, ds, s.settings.CacheTTL); err != nil {
			logger.Warn().Err(err).Msg("dataset cache write failed")
		}
	}
	return ds, nil
}
