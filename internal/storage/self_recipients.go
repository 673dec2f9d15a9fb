package storage

import (
	"context"
	"fmt"

	"github.com/Veraticus/smsflow/internal/model"
)

// AddSelfRecipient declares a payee name as one of the user's own accounts.
// Names are stored in merchant key form.
func (s *SQLiteStorage) AddSelfRecipient(ctx context.Context, name string) error {
	key, err := selfRecipientKey(ctx, name)
	if err != nil {
		return err
	}
	return s.withRetry(ctx, func() error {
		if _, err := s.db.ExecContext(ctx, `INSERT OR IGNORE INTO self_recipients (name) VALUES (?)`, key); err != nil {
			return fmt.Errorf("failed to add self recipient %s: %w", key, err)
		}
		return nil
	})
}

// RemoveSelfRecipient forgets a self recipient.
func (s *SQLiteStorage) RemoveSelfRecipient(ctx context.Context, name string) error {
	key, err := selfRecipientKey(ctx, name)
	if err != nil {
		return err
	}
	return s.withRetry(ctx, func() error {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM self_recipients WHERE name = ?`, key); err != nil {
			return fmt.Errorf("failed to remove self recipient %s: %w", key, err)
		}
		return nil
	})
}

// ListSelfRecipients returns the declared names in sorted order.
func (s *SQLiteStorage) ListSelfRecipients(ctx context.Context) ([]string, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	var names []string
	err := s.withRetry(ctx, func() error {
		names = names[:0]
		rows, err := s.db.QueryContext(ctx, `SELECT name FROM self_recipients ORDER BY name`)
		if err != nil {
			return fmt.Errorf("failed to list self recipients: %w", err)
		}
		defer func() { _ = rows.Close() }()

		for rows.Next() {
			var name string
			if err := rows.Scan(&name); err != nil {
				return fmt.Errorf("failed to scan self recipient: %w", err)
			}
			names = append(names, name)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return names, nil
}

// IsSelfRecipient reports whether a merchant name was declared as the user.
func (s *SQLiteStorage) IsSelfRecipient(ctx context.Context, name string) (bool, error) {
	if err := validateContext(ctx); err != nil {
		return false, err
	}
	key := model.MerchantKey(name)
	if key == "" {
		return false, nil
	}

	var count int
	err := s.withRetry(ctx, func() error {
		return s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM self_recipients WHERE name = ?`, key).Scan(&count)
	})
	if err != nil {
		return false, fmt.Errorf("failed to check self recipient %s: %w", key, err)
	}
	return count > 0, nil
}

func selfRecipientKey(ctx context.Context, name string) (string, error) {
	if err := validateContext(ctx); err != nil {
		return "", err
	}
	key := model.MerchantKey(name)
	if err := validateString(key, "name"); err != nil {
		return "", err
	}
	return key, nil
}
