package dashboard

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/de-tools/lakespend/pkg/models/store"
	"github.com/de-tools/lakespend/pkg/store/databrickssql"
	"github.com/rs/zerolog"
)

type Store interface {
	// GetDataset reads at most limit rows of catalog.schema.table.
	GetDataset(ctx context.Context, catalog, schema, table string, limit int) (*store.Dataset, error)
}

type datasetStore struct {
	db *sql.DB
}

func NewStore(db *sql.DB) Store {
	return &datasetStore{db: db}
}

func (d *datasetStore) GetDataset(
	ctx context.Context,
	catalog, schema, table string,
	limit int,
) (*store.Dataset, error) {
	logger := zerolog.Ctx(ctx)

	if limit <= 0 {
		return nil, fmt.Errorf("row limit must be positive, got %d", limit)
	}
	name := databrickssql.QuoteIdentifier(fmt.Sprintf("%s.%s.%s", catalog, schema, table))
	query := fmt.Sprintf("SELECT * FROM %s LIMIT %d", name, limit)

	rows, err := d.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", table, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns of %s: %w", table, err)
	}

	ds := &store.Dataset{Name: table, Columns: columns}
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", table, err)
		}
		for i, v := range values {
			values[i] = normalize(v)
		}
		ds.Rows = append(ds.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s: %w", table, err)
	}

	logger.Debug().
		Str("table", table).
		Int("rows", len(ds.Rows)).
		Msg("loaded dataset")

	return ds, nil
}

func normalize(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case []byte:
		return string(x)
	case time.Time:
		return x.UTC().Format(time.RFC3339)
	case int:
		return int64(x)
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case float32:
		return float64(x)
	case string, int64, float64, bool:
		return x
	default:
		return fmt.Sprint(x)
	}
}
