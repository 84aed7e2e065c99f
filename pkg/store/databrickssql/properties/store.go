package properties

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/de-tools/lakespend/pkg/store/databrickssql"
	"github.com/rs/zerolog"
)

type Store interface {
	SetProperties(ctx context.Context, fullName string, set map[string]string, unset []string) error
}

type propertiesStore struct {
	db *sql.DB
}

func NewStore(db *sql.DB) Store {
	return &propertiesStore{db: db}
}

// SetProperties applies set before unset. Each statement is independent, so a
// failing unset leaves the set applied.
func (p *propertiesStore) SetProperties(
	ctx context.Context,
	fullName string,
	set map[string]string,
	unset []string,
) error {
	logger := zerolog.Ctx(ctx)
	table := databrickssql.QuoteIdentifier(fullName)

	if len(set) > 0 {
		keys := make([]string, 0, len(set))
		for k := range set {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		pairs := make([]string, 0, len(keys))
		for _, k := range keys {
			pairs = append(pairs, fmt.Sprintf("%s = %s", databrickssql.QuoteString(k), databrickssql.QuoteString(set[k])))
		}
		query := fmt.Sprintf("ALTER TABLE %s SET TBLPROPERTIES (%s)", table, strings.Join(pairs, ", "))
		if _, err := p.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to set table properties: %w", err)
		}
	}

	if len(unset) > 0 {
		keys := make([]string, 0, len(unset))
		for _, k := range unset {
			keys = append(keys, databrickssql.QuoteString(k))
		}
		query := fmt.Sprintf("ALTER TABLE %s UNSET TBLPROPERTIES IF EXISTS (%s)", table, strings.Join(keys, ", "))
		if _, err := p.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to unset table properties: %w", err)
		}
	}

	logger.Debug().
		Str("table", fullName).
		Int("set", len(set)).
		Int("unset", len(unset)).
		Msg("updated table properties")
	return nil
}
