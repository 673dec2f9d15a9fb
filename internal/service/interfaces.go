// Package service defines the collaborator contracts consumed by the classification core.
package service

import (
	"context"
	"time"

	"github.com/Veraticus/smsflow/internal/model"
	"github.com/shopspring/decimal"
)

// TransactionFilter defines filtering options for transaction queries.
type TransactionFilter struct {
	StartDate  *time.Time
	EndDate    *time.Time
	Sender     string
	Merchant   string
	Limit      int
	Offset     int
	LinkedOnly bool
}

// TransactionStore persists transaction records.
type TransactionStore interface {
	// FindCandidates returns records with the given amount whose timestamp lies in
	// [from, to], excluding excludeID, in ascending timestamp order.
	FindCandidates(ctx context.Context, amount decimal.Decimal, from, to time.Time, excludeID string) ([]model.Transaction, error)
	UpdateLink(ctx context.Context, id string, link model.Link) error
	GetAll(ctx context.Context) ([]model.Transaction, error)
	GetByID(ctx context.Context, id string) (*model.Transaction, error)
	GetTransactions(ctx context.Context, filter TransactionFilter) ([]model.Transaction, error)
	GetByLinkID(ctx context.Context, linkID string) ([]model.Transaction, error)

	// Insert stores a record unless one with the same (sender, timestamp, body)
	// exists. It reports whether a row was written.
	Insert(ctx context.Context, txn *model.Transaction) (bool, error)
	// InsertAll stores records with duplicate-ignore semantics and returns the ones
	// actually written.
	InsertAll(ctx context.Context, txns []model.Transaction) ([]model.Transaction, error)

	UpdateClassification(ctx context.Context, id, merchant, category string, txType model.TxType) error
	SetIgnored(ctx context.Context, id string, ignored bool) error
	ClearLinks(ctx context.Context) error
	DeleteAll(ctx context.Context) error
}

// PatternStore persists learned link patterns. Keys are "{merchant}|{phrase}".
type PatternStore interface {
	// SaveLinkedPattern records a key learned from a transaction of the given side.
	SaveLinkedPattern(ctx context.Context, key string, side model.TxType) error
	// LinkedPatterns returns the keys learned from transactions of one side.
	LinkedPatterns(ctx context.Context, side model.TxType) (map[string]bool, error)
	AllLinkedPatterns(ctx context.Context) (map[string]bool, error)
	DeleteAllPatterns(ctx context.Context) error
}

// OverrideStore persists user corrections. Last write wins.
type OverrideStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Put(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) (map[string]string, error)
}

// SelfRecipientStore persists names the user declared as their own accounts.
type SelfRecipientStore interface {
	AddSelfRecipient(ctx context.Context, name string) error
	RemoveSelfRecipient(ctx context.Context, name string) error
	ListSelfRecipients(ctx context.Context) ([]string, error)
	IsSelfRecipient(ctx context.Context, name string) (bool, error)
}

// Storage is the full persistence layer.
type Storage interface {
	TransactionStore
	PatternStore
	OverrideStore
	SelfRecipientStore

	GetSpendSummary(ctx context.Context, start, end time.Time) (*SpendSummary, error)
	Migrate(ctx context.Context) error
	Close() error
}

// SpendSummary aggregates debit spend per category for a period.
type SpendSummary struct {
	DateRange  DateRange
	ByCategory map[string]CategorySummary
	Total      decimal.Decimal
	Count      int
}

// DateRange represents a time period with start and end dates.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// CategorySummary contains aggregated statistics for a category.
type CategorySummary struct {
	Amount decimal.Decimal
	Count  int
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
