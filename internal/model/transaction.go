package model

import (
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// TxType is the direction of a stored transaction.
type TxType string

// Transaction direction constants.
const (
	TypeDebit  TxType = "DEBIT"
	TypeCredit TxType = "CREDIT"
)

// Opposite returns the other direction. An unset type has no opposite.
func (t TxType) Opposite() TxType {
	switch t {
	case TypeDebit:
		return TypeCredit
	case TypeCredit:
		return TypeDebit
	default:
		return ""
	}
}

// Valid reports whether t is DEBIT or CREDIT.
func (t TxType) Valid() bool {
	return t == TypeDebit || t == TypeCredit
}

// LinkType describes why a transaction is considered money moving between own accounts.
type LinkType string

// Link type constants.
const (
	LinkInternalTransfer LinkType = "INTERNAL_TRANSFER"
	LinkPossibleTransfer LinkType = "POSSIBLE_TRANSFER"
)

// Transaction is a classified financial message as persisted by the store.
type Transaction struct {
	Timestamp      time.Time
	Amount         decimal.Decimal
	ID             string
	Hash           string
	Sender         string
	Body           string
	Merchant       string // Empty when no merchant could be extracted
	Category       string
	Type           TxType
	LinkID         string
	LinkType       LinkType
	LinkConfidence int
	IsIgnored      bool
	IsNetZero      bool
}

// Link holds the fields the linked-transaction detector owns.
type Link struct {
	ID         string
	Type       LinkType
	Confidence int
	NetZero    bool
}

// Link returns the current link fields of the transaction.
func (t *Transaction) Link() Link {
	return Link{
		ID:         t.LinkID,
		Type:       t.LinkType,
		Confidence: t.LinkConfidence,
		NetZero:    t.IsNetZero,
	}
}

// ApplyLink overwrites the link fields of the transaction.
func (t *Transaction) ApplyLink(l Link) {
	t.LinkID = l.ID
	t.LinkType = l.Type
	t.LinkConfidence = l.Confidence
	t.IsNetZero = l.NetZero
}

// IsLinked reports whether the transaction carries a link id.
func (t *Transaction) IsLinked() bool {
	return t.LinkID != ""
}

// Message rebuilds the raw message the transaction was classified from.
func (t *Transaction) Message() RawMessage {
	return RawMessage{
		Sender:    t.Sender,
		Body:      t.Body,
		Timestamp: t.Timestamp,
	}
}

// GenerateHash creates the identity hash used for duplicate detection.
func (t *Transaction) GenerateHash() string {
	return MessageHash(t.Sender, t.Timestamp, t.Body)
}

// MessageHash identifies one logical message by sender, timestamp and body.
func MessageHash(sender string, ts time.Time, body string) string {
	data := fmt.Sprintf("%s:%d:%s", sender, ts.UnixMilli(), body)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}
