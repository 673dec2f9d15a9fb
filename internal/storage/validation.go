package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/smsflow/internal/model"
)

// Validation errors.
var (
	ErrNilContext         = errors.New("context cannot be nil")
	ErrEmptyString        = errors.New("string parameter cannot be empty")
	ErrNilParameter       = errors.New("parameter cannot be nil")
	ErrInvalidDateRange   = errors.New("start date must be before end date")
	ErrInvalidTransaction = errors.New("invalid transaction")
	ErrInvalidLink        = errors.New("invalid link")
	ErrInvalidSide        = errors.New("side must be DEBIT or CREDIT")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateTransaction validates a single transaction before insert.
func validateTransaction(txn *model.Transaction) error {
	if txn == nil {
		return fmt.Errorf("%w: transaction", ErrNilParameter)
	}
	if txn.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidTransaction)
	}
	if txn.Timestamp.IsZero() {
		return fmt.Errorf("%w: missing timestamp", ErrInvalidTransaction)
	}
	if txn.Body == "" {
		return fmt.Errorf("%w: missing body", ErrInvalidTransaction)
	}
	if !txn.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive, got %s", ErrInvalidTransaction, txn.Amount)
	}
	if txn.Type != "" && !txn.Type.Valid() {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidTransaction, txn.Type)
	}
	return validateLink(txn.Link())
}

// validateLink enforces the link field invariants.
func validateLink(l model.Link) error {
	if l.Confidence < 0 || l.Confidence > 100 {
		return fmt.Errorf("%w: confidence %d outside 0..100", ErrInvalidLink, l.Confidence)
	}
	switch l.Type {
	case "", model.LinkInternalTransfer, model.LinkPossibleTransfer:
	default:
		return fmt.Errorf("%w: unknown link type %q", ErrInvalidLink, l.Type)
	}
	if l.NetZero && l.Type == "" {
		return fmt.Errorf("%w: net-zero records need a link type", ErrInvalidLink)
	}
	if l.ID != "" && l.Type == "" {
		return fmt.Errorf("%w: link id without link type", ErrInvalidLink)
	}
	return nil
}

func validateSide(side model.TxType) error {
	if !side.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidSide, side)
	}
	return nil
}
