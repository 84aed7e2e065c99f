package usage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUsageStore_GetTagSpend(t *testing.T) {
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name         string
		rows         *sqlmock.Rows
		queryErr     error
		wantAmount   float64
		wantCurrency string
		wantErr      bool
	}{
		{
			name:         "priced usage",
			rows:         sqlmock.NewRows([]string{"amount", "currency"}).AddRow(412.5, "EUR"),
			wantAmount:   412.5,
			wantCurrency: "EUR",
		},
		{
			name:         "null currency falls back to usd",
			rows:         sqlmock.NewRows([]string{"amount", "currency"}).AddRow(0.0, nil),
			wantAmount:   0,
			wantCurrency: "USD",
		},
		{
			name:     "query failure",
			queryErr: errors.New("warehouse stopped"),
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Given
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			expect := mock.ExpectQuery(`FROM system\.billing\.usage u\s+JOIN system\.billing\.list_prices lp`).
				WithArgs("budget_policy_id", "pol-1", "2025-06-01 00:00:00", "2025-06-15 12:00:00")
			if tt.queryErr != nil {
				expect.WillReturnError(tt.queryErr)
			} else {
				expect.WillReturnRows(tt.rows)
			}

			s := NewStore(db)

			// When
			spend, err := s.GetTagSpend(context.Background(), "budget_policy_id", "pol-1", start, end)

			// Then
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "tag spend query failed")
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantAmount, spend.Amount)
				assert.Equal(t, tt.wantCurrency, spend.Currency)
				assert.Equal(t, "pol-1", spend.TagValue)
				assert.Equal(t, start, spend.StartTime)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
