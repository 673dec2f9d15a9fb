package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/Veraticus/smsflow/internal/common"
	"github.com/Veraticus/smsflow/internal/model"
	"github.com/Veraticus/smsflow/internal/service"
	"github.com/shopspring/decimal"
)

// GetSpendSummary totals debit spend per category. Net-zero transfers and ignored
// records do not count as spend.
func (s *SQLiteStorage) GetSpendSummary(ctx context.Context, start, end time.Time) (*service.SpendSummary, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if end.Before(start) {
		return nil, fmt.Errorf("%w: end date %v is before start date %v", ErrInvalidDateRange, end, start)
	}

	summary := &service.SpendSummary{
		DateRange: service.DateRange{Start: start, End: end},
	}

	err := s.withRetry(ctx, func() error {
		summary.ByCategory = make(map[string]service.CategorySummary)
		summary.Total = decimal.Zero
		summary.Count = 0

		rows, err := s.db.QueryContext(ctx, `
			SELECT category, amount
			FROM transactions
			WHERE type = ? AND is_net_zero = 0 AND is_ignored = 0
			  AND timestamp_ms BETWEEN ? AND ?
		`, string(model.TypeDebit), start.UnixMilli(), end.UnixMilli())
		if err != nil {
			return fmt.Errorf("failed to query spend summary: %w", err)
		}
		defer func() { _ = rows.Close() }()

		for rows.Next() {
			var category, raw string
			if err := rows.Scan(&category, &raw); err != nil {
				return fmt.Errorf("failed to scan spend summary: %w", err)
			}
			amount, err := decimal.NewFromString(raw)
			if err != nil {
				return fmt.Errorf("%w: bad amount %q", common.ErrDatabaseCorrupted, raw)
			}
			if category == "" {
				category = model.CategoryOther
			}

			cs := summary.ByCategory[category]
			cs.Amount = cs.Amount.Add(amount)
			cs.Count++
			summary.ByCategory[category] = cs

			summary.Total = summary.Total.Add(amount)
			summary.Count++
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return summary, nil
}
