package storage

import (
	"context"
	"fmt"

	"github.com/Veraticus/smsflow/internal/model"
)

// SaveLinkedPattern records a learned pattern key. Saving a known key is a no-op.
func (s *SQLiteStorage) SaveLinkedPattern(ctx context.Context, key string, side model.TxType) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(key, "key"); err != nil {
		return err
	}
	if err := validateSide(side); err != nil {
		return err
	}

	return s.withRetry(ctx, func() error {
		if _, err := s.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO linked_patterns (key, side) VALUES (?, ?)`,
			key, string(side),
		); err != nil {
			return fmt.Errorf("failed to save linked pattern %s: %w", key, err)
		}
		return nil
	})
}

// LinkedPatterns returns the keys learned from transactions of one side.
func (s *SQLiteStorage) LinkedPatterns(ctx context.Context, side model.TxType) (map[string]bool, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateSide(side); err != nil {
		return nil, err
	}
	return s.patternSet(ctx, `SELECT key FROM linked_patterns WHERE side = ?`, string(side))
}

// AllLinkedPatterns returns every learned key regardless of side.
func (s *SQLiteStorage) AllLinkedPatterns(ctx context.Context) (map[string]bool, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.patternSet(ctx, `SELECT DISTINCT key FROM linked_patterns`)
}

// DeleteAllPatterns forgets everything the detector learned.
func (s *SQLiteStorage) DeleteAllPatterns(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	return s.withRetry(ctx, func() error {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM linked_patterns`); err != nil {
			return fmt.Errorf("failed to delete linked patterns: %w", err)
		}
		return nil
	})
}

func (s *SQLiteStorage) patternSet(ctx context.Context, query string, args ...any) (map[string]bool, error) {
	set := make(map[string]bool)
	err := s.withRetry(ctx, func() error {
		clear(set)
		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("failed to query linked patterns: %w", err)
		}
		defer func() { _ = rows.Close() }()

		for rows.Next() {
			var key string
			if err := rows.Scan(&key); err != nil {
				return fmt.Errorf("failed to scan linked pattern: %w", err)
			}
			set[key] = true
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return set, nil
}
