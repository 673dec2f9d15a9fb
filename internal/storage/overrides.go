package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Get returns the override stored under key.
func (s *SQLiteStorage) Get(ctx context.Context, key string) (string, bool, error) {
	if err := validateContext(ctx); err != nil {
		return "", false, err
	}
	if err := validateString(key, "key"); err != nil {
		return "", false, err
	}

	var value string
	err := s.withRetry(ctx, func() error {
		return s.db.QueryRowContext(ctx, `SELECT value FROM overrides WHERE key = ?`, key).Scan(&value)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get override %s: %w", key, err)
	}
	return value, true, nil
}

// Put stores an override, replacing any previous value.
func (s *SQLiteStorage) Put(ctx context.Context, key, value string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(key, "key"); err != nil {
		return err
	}

	return s.withRetry(ctx, func() error {
		if _, err := s.db.ExecContext(ctx, `
			INSERT INTO overrides (key, value) VALUES (?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
		`, key, value); err != nil {
			return fmt.Errorf("failed to put override %s: %w", key, err)
		}
		return nil
	})
}

// Delete removes an override. Deleting a missing key is not an error.
func (s *SQLiteStorage) Delete(ctx context.Context, key string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(key, "key"); err != nil {
		return err
	}

	return s.withRetry(ctx, func() error {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM overrides WHERE key = ?`, key); err != nil {
			return fmt.Errorf("failed to delete override %s: %w", key, err)
		}
		return nil
	})
}

// List returns every override whose key starts with prefix.
func (s *SQLiteStorage) List(ctx context.Context, prefix string) (map[string]string, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	out := make(map[string]string)
	err := s.withRetry(ctx, func() error {
		clear(out)
		rows, err := s.db.QueryContext(ctx,
			`SELECT key, value FROM overrides WHERE substr(key, 1, length(?)) = ? ORDER BY key`,
			prefix, prefix)
		if err != nil {
			return fmt.Errorf("failed to list overrides: %w", err)
		}
		defer func() { _ = rows.Close() }()

		for rows.Next() {
			var k, v string
			if err := rows.Scan(&k, &v); err != nil {
				return fmt.Errorf("failed to scan override: %w", err)
			}
			out[k] = v
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
