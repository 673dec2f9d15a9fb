package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/smsflow/internal/common"
	"github.com/Veraticus/smsflow/internal/model"
	"github.com/Veraticus/smsflow/internal/service"
	"github.com/shopspring/decimal"
)

const transactionColumns = `id, hash, sender, body, timestamp_ms, amount, merchant, type, category,
	is_ignored, link_id, link_type, link_confidence, is_net_zero`

const insertTransaction = `
	INSERT OR IGNORE INTO transactions (` + transactionColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

// Insert stores a transaction unless the same message was stored before.
func (s *SQLiteStorage) Insert(ctx context.Context, txn *model.Transaction) (bool, error) {
	if err := validateContext(ctx); err != nil {
		return false, err
	}
	if err := validateTransaction(txn); err != nil {
		return false, err
	}
	if txn.Hash == "" {
		txn.Hash = txn.GenerateHash()
	}

	var inserted bool
	err := s.withRetry(ctx, func() error {
		res, err := s.db.ExecContext(ctx, insertTransaction, insertArgs(txn)...)
		if err != nil {
			return fmt.Errorf("failed to insert transaction %s: %w", txn.ID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to read rows affected: %w", err)
		}
		inserted = n == 1
		return nil
	})
	return inserted, err
}

// InsertAll stores transactions in one database transaction and returns those that
// were not already present.
func (s *SQLiteStorage) InsertAll(ctx context.Context, txns []model.Transaction) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	for i := range txns {
		if err := validateTransaction(&txns[i]); err != nil {
			return nil, fmt.Errorf("transaction at index %d: %w", i, err)
		}
		if txns[i].Hash == "" {
			txns[i].Hash = txns[i].GenerateHash()
		}
	}
	if len(txns) == 0 {
		return nil, nil
	}

	var stored []model.Transaction
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		stored = stored[:0]

		stmt, err := tx.PrepareContext(ctx, insertTransaction)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		for i := range txns {
			res, err := stmt.ExecContext(ctx, insertArgs(&txns[i])...)
			if err != nil {
				return fmt.Errorf("failed to insert transaction %s: %w", txns[i].ID, err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("failed to read rows affected: %w", err)
			}
			if n == 1 {
				stored = append(stored, txns[i])
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stored, nil
}

func insertArgs(txn *model.Transaction) []any {
	return []any{
		txn.ID,
		txn.Hash,
		txn.Sender,
		txn.Body,
		txn.Timestamp.UnixMilli(),
		txn.Amount.String(),
		txn.Merchant,
		string(txn.Type),
		txn.Category,
		txn.IsIgnored,
		txn.LinkID,
		string(txn.LinkType),
		txn.LinkConfidence,
		txn.IsNetZero,
	}
}

// FindCandidates returns same-amount records inside a time window, oldest first.
func (s *SQLiteStorage) FindCandidates(ctx context.Context, amount decimal.Decimal, from, to time.Time, excludeID string) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if to.Before(from) {
		return nil, fmt.Errorf("%w: %v is before %v", ErrInvalidDateRange, to, from)
	}

	return s.query(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE amount = ? AND timestamp_ms BETWEEN ? AND ? AND id != ?
		ORDER BY timestamp_ms ASC, id ASC
	`, amount.String(), from.UnixMilli(), to.UnixMilli(), excludeID)
}

// GetAll returns every record in chronological order.
func (s *SQLiteStorage) GetAll(ctx context.Context) ([]model.Transaction, error) {
	return s.GetTransactions(ctx, service.TransactionFilter{})
}

// GetTransactions returns records matching a filter in chronological order.
func (s *SQLiteStorage) GetTransactions(ctx context.Context, filter service.TransactionFilter) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	var where []string
	var args []any
	if filter.StartDate != nil {
		where = append(where, "timestamp_ms >= ?")
		args = append(args, filter.StartDate.UnixMilli())
	}
	if filter.EndDate != nil {
		where = append(where, "timestamp_ms <= ?")
		args = append(args, filter.EndDate.UnixMilli())
	}
	if filter.Sender != "" {
		where = append(where, "sender = ?")
		args = append(args, filter.Sender)
	}
	if filter.Merchant != "" {
		where = append(where, "merchant = ?")
		args = append(args, filter.Merchant)
	}
	if filter.LinkedOnly {
		where = append(where, "(link_id != '' OR is_net_zero = 1)")
	}

	query := "SELECT " + transactionColumns + " FROM transactions"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY timestamp_ms ASC, id ASC"

	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	return s.query(ctx, query, args...)
}

// GetByLinkID returns every record sharing a link id.
func (s *SQLiteStorage) GetByLinkID(ctx context.Context, linkID string) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(linkID, "linkID"); err != nil {
		return nil, err
	}
	return s.query(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE link_id = ?
		ORDER BY timestamp_ms ASC, id ASC
	`, linkID)
}

// GetByID retrieves a single transaction by ID.
func (s *SQLiteStorage) GetByID(ctx context.Context, id string) (*model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	var txn model.Transaction
	err := s.withRetry(ctx, func() error {
		row := s.db.QueryRowContext(ctx, "SELECT "+transactionColumns+" FROM transactions WHERE id = ?", id)
		var scanErr error
		txn, scanErr = scanTransaction(row)
		return scanErr
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("transaction %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return &txn, nil
}

// UpdateLink overwrites the link fields of one record.
func (s *SQLiteStorage) UpdateLink(ctx context.Context, id string, link model.Link) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}
	if err := validateLink(link); err != nil {
		return err
	}

	return s.exec(ctx, id, `
		UPDATE transactions
		SET link_id = ?, link_type = ?, link_confidence = ?, is_net_zero = ?
		WHERE id = ?
	`, link.ID, string(link.Type), link.Confidence, link.NetZero, id)
}

// UpdateClassification stores a reclassified merchant, category and direction.
func (s *SQLiteStorage) UpdateClassification(ctx context.Context, id, merchant, category string, txType model.TxType) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}
	if txType != "" && !txType.Valid() {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidTransaction, txType)
	}

	return s.exec(ctx, id, `
		UPDATE transactions SET merchant = ?, category = ?, type = ? WHERE id = ?
	`, merchant, category, string(txType), id)
}

// SetIgnored toggles whether a record counts towards spend.
func (s *SQLiteStorage) SetIgnored(ctx context.Context, id string, ignored bool) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}
	return s.exec(ctx, id, `UPDATE transactions SET is_ignored = ? WHERE id = ?`, ignored, id)
}

// ClearLinks resets the link fields of every record.
func (s *SQLiteStorage) ClearLinks(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	return s.withRetry(ctx, func() error {
		if _, err := s.db.ExecContext(ctx, `
			UPDATE transactions
			SET link_id = '', link_type = '', link_confidence = 0, is_net_zero = 0
		`); err != nil {
			return fmt.Errorf("failed to clear links: %w", err)
		}
		return nil
	})
}

// DeleteAll removes every transaction record.
func (s *SQLiteStorage) DeleteAll(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	return s.withRetry(ctx, func() error {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM transactions`); err != nil {
			return fmt.Errorf("failed to delete transactions: %w", err)
		}
		return nil
	})
}

// CountTransactions returns the number of stored records.
func (s *SQLiteStorage) CountTransactions(ctx context.Context) (int, error) {
	var count int
	err := s.withRetry(ctx, func() error {
		return s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM transactions").Scan(&count)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return count, nil
}

// exec runs an update against one record and reports ErrNotFound when it is missing.
func (s *SQLiteStorage) exec(ctx context.Context, id, query string, args ...any) error {
	return s.withRetry(ctx, func() error {
		res, err := s.db.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("failed to update transaction %s: %w", id, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to read rows affected: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("transaction %s: %w", id, common.ErrNotFound)
		}
		return nil
	})
}

func (s *SQLiteStorage) query(ctx context.Context, query string, args ...any) ([]model.Transaction, error) {
	var txns []model.Transaction
	err := s.withRetry(ctx, func() error {
		var err error
		txns, err = queryTransactions(ctx, s.db, query, args...)
		return err
	})
	return txns, err
}

func queryTransactions(ctx context.Context, q queryable, query string, args ...any) ([]model.Transaction, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var txns []model.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txns = append(txns, txn)
	}
	return txns, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(r rowScanner) (model.Transaction, error) {
	var (
		txn      model.Transaction
		ts       int64
		amount   string
		txType   string
		linkType string
	)
	if err := r.Scan(
		&txn.ID,
		&txn.Hash,
		&txn.Sender,
		&txn.Body,
		&ts,
		&amount,
		&txn.Merchant,
		&txType,
		&txn.Category,
		&txn.IsIgnored,
		&txn.LinkID,
		&linkType,
		&txn.LinkConfidence,
		&txn.IsNetZero,
	); err != nil {
		return model.Transaction{}, err
	}

	d, err := decimal.NewFromString(amount)
	if err != nil {
		return model.Transaction{}, fmt.Errorf("%w: bad amount %q on %s", common.ErrDatabaseCorrupted, amount, txn.ID)
	}
	txn.Amount = d
	txn.Timestamp = time.UnixMilli(ts).UTC()
	txn.Type = model.TxType(txType)
	txn.LinkType = model.LinkType(linkType)
	return txn, nil
}
