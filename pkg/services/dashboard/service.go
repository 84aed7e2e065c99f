package dashboard

import (
	"context"
	"sync"

	"github.com/de-tools/lakespend/pkg/models/store"
	"github.com/rs/zerolog"
)

// Table is the outcome of loading one dataset of a page. Exactly one of Data and
// Err is set.
type Table struct {
	Dataset Dataset
	Data    *store.Dataset
	Err     error
}

type Service interface {
	LoadPage(ctx context.Context, slug string) (Page, []Table, error)
}

type service struct {
	source Source
}

func NewService(source Source) Service {
	return &service{source: source}
}

// LoadPage loads every dataset of the page concurrently. A dataset that fails to
// load is reported in its Table and does not affect the others.
func (s *service) LoadPage(ctx context.Context, slug string) (Page, []Table, error) {
	logger := zerolog.Ctx(ctx)

	page, err := LookupPage(slug)
	if err != nil {
		return Page{}, nil, err
	}

	tables := make([]Table, len(page.Datasets))
	var wg sync.WaitGroup
	for i, d := range page.Datasets {
		wg.Add(1)
		go func(i int, d Dataset) {
			defer wg.Done()
			data, err := s.source.Load(ctx, d.Name)
			if err != nil {
				logger.Error().Err(err).Str("dataset", d.Name).Msg("failed to load dataset")
			}
			tables[i] = Table{Dataset: d, Data: data, Err: err}
		}(i, d)
	}
	wg.Wait()
	return page, tables, nil
}
