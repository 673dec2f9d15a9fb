package testutil

import (
	"time"

	"github.com/Veraticus/smsflow/internal/model"
	"github.com/shopspring/decimal"
)

// BaseTime is the default timestamp of built transactions.
var BaseTime = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

// TxnBuilder builds transaction records with sensible defaults: a 100 rupee
// debit from VM-HDFCBK at BaseTime, category OTHER.
type TxnBuilder struct {
	txn model.Transaction
}

// NewTxn starts a transaction with the given id.
func NewTxn(id string) *TxnBuilder {
	return &TxnBuilder{txn: model.Transaction{
		ID:        id,
		Sender:    "VM-HDFCBK",
		Body:      "Rs 100 debited from A/c XX1234 ref " + id,
		Amount:    decimal.NewFromInt(100),
		Timestamp: BaseTime,
		Type:      model.TypeDebit,
		Category:  model.CategoryOther,
	}}
}

// From sets the sender address.
func (b *TxnBuilder) From(sender string) *TxnBuilder {
	b.txn.Sender = sender
	return b
}

// Body sets the message text.
func (b *TxnBuilder) Body(body string) *TxnBuilder {
	b.txn.Body = body
	return b
}

// Merchant sets the extracted merchant.
func (b *TxnBuilder) Merchant(name string) *TxnBuilder {
	b.txn.Merchant = name
	return b
}

// Category sets the category.
func (b *TxnBuilder) Category(category string) *TxnBuilder {
	b.txn.Category = category
	return b
}

// Amount sets the amount from its decimal text. It panics on malformed input.
func (b *TxnBuilder) Amount(amount string) *TxnBuilder {
	b.txn.Amount = decimal.RequireFromString(amount)
	return b
}

// At sets the timestamp.
func (b *TxnBuilder) At(ts time.Time) *TxnBuilder {
	b.txn.Timestamp = ts
	return b
}

// Type sets the direction. An empty type builds an untyped record.
func (b *TxnBuilder) Type(t model.TxType) *TxnBuilder {
	b.txn.Type = t
	return b
}

// Debit marks the transaction as money out.
func (b *TxnBuilder) Debit() *TxnBuilder {
	return b.Type(model.TypeDebit)
}

// Credit marks the transaction as money in.
func (b *TxnBuilder) Credit() *TxnBuilder {
	return b.Type(model.TypeCredit)
}

// Ignored marks the transaction as excluded from spend.
func (b *TxnBuilder) Ignored() *TxnBuilder {
	b.txn.IsIgnored = true
	return b
}

// Build returns the transaction with its duplicate-detection hash filled in.
func (b *TxnBuilder) Build() model.Transaction {
	txn := b.txn
	txn.Hash = txn.GenerateHash()
	return txn
}
