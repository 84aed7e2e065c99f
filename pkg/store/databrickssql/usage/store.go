package usage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/de-tools/lakespend/pkg/models/store"
	"github.com/rs/zerolog"
)

const defaultCurrency = "USD"

type Store interface {
	GetTagSpend(ctx context.Context, key, value string, startTime, endTime time.Time) (*store.TagSpend, error)
}

type usageStore struct {
	db *sql.DB
}

func NewStore(db *sql.DB) Store {
	return &usageStore{db: db}
}

// GetTagSpend prices usage tagged key=value at the list price that was in effect
// when the usage started.
func (u *usageStore) GetTagSpend(
	ctx context.Context,
	key, value string,
	startTime, endTime time.Time,
) (*store.TagSpend, error) {
	logger := zerolog.Ctx(ctx)

	query := `
		SELECT
			COALESCE(SUM(u.usage_quantity * lp.pricing.default), 0) AS amount,
			COALESCE(MAX(lp.currency_code), '` + defaultCurrency + `') AS currency
		FROM system.billing.usage u
		JOIN system.billing.list_prices lp
			ON u.sku_name = lp.sku_name
			AND u.cloud = lp.cloud
			AND u.usage_unit = lp.usage_unit
			AND u.usage_start_time >= lp.price_start_time
			AND (lp.price_end_time IS NULL OR u.usage_start_time < lp.price_end_time)
		WHERE u.custom_tags[?] = ?
			AND u.usage_start_time >= ?
			AND u.usage_start_time < ?
	`

	startTimeFormatted := startTime.Format("2006-01-02 15:04:05")
	endTimeFormatted := endTime.Format("2006-01-02 15:04:05")

	var (
		amount   float64
		currency sql.NullString
	)
	err := u.db.QueryRowContext(ctx, query, key, value, startTimeFormatted, endTimeFormatted).
		Scan(&amount, &currency)
	if err != nil {
		return nil, fmt.Errorf("tag spend query failed: %w", err)
	}

	spend := &store.TagSpend{
		TagKey:    key,
		TagValue:  value,
		Amount:    amount,
		Currency:  defaultCurrency,
		StartTime: startTime,
		EndTime:   endTime,
	}
	if currency.Valid && currency.String != "" {
		spend.Currency = currency.String
	}

	logger.Debug().
		Str("tag_key", key).
		Str("tag_value", value).
		Float64("amount", amount).
		Msg("retrieved tag spend")

	return spend, nil
}
