package model

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// SenderType is the kind of party that sent a message.
type SenderType string

// Sender type constants.
const (
	SenderBank        SenderType = "BANK"
	SenderWallet      SenderType = "WALLET"
	SenderMerchant    SenderType = "MERCHANT"
	SenderPromotional SenderType = "PROMOTIONAL"
	SenderPersonal    SenderType = "PERSONAL"
	SenderUnknown     SenderType = "UNKNOWN"
)

// IntentType is what a message is trying to tell the user.
type IntentType string

// Intent constants.
const (
	IntentDebit    IntentType = "DEBIT"
	IntentCredit   IntentType = "CREDIT"
	IntentRefund   IntentType = "REFUND"
	IntentPending  IntentType = "PENDING"
	IntentBalance  IntentType = "BALANCE"
	IntentReminder IntentType = "REMINDER"
	IntentPromo    IntentType = "PROMO"
	IntentIgnore   IntentType = "IGNORE"
	IntentUnknown  IntentType = "UNKNOWN"
)

// IsFinancial reports whether the intent represents money that actually moved.
func (i IntentType) IsFinancial() bool {
	return i == IntentDebit || i == IntentCredit || i == IntentRefund
}

// IsCredit reports whether the intent brings money in.
func (i IntentType) IsCredit() bool {
	return i == IntentCredit || i == IntentRefund
}

// Built-in category names. User overrides may introduce any other name.
const (
	CategoryPerson        = "PERSON"
	CategoryIncome        = "INCOME"
	CategoryFood          = "FOOD"
	CategoryTravel        = "TRAVEL"
	CategoryShopping      = "SHOPPING"
	CategoryFuel          = "FUEL"
	CategoryUtilities     = "UTILITIES"
	CategoryBills         = "BILLS"
	CategoryEntertainment = "ENTERTAINMENT"
	CategoryHealth        = "HEALTH"
	CategoryEducation     = "EDUCATION"
	CategoryATMCash       = "ATM_CASH"
	CategoryTransfer      = "TRANSFER"
	CategoryOther         = "OTHER"
)

// Explanation bundles the reasoning of every pipeline stage. It is diagnostic only.
type Explanation struct {
	Amount   string
	Sender   string
	Intent   string
	Merchant string
	Category string
}

// Lines returns the non-empty reasons in pipeline order.
func (e Explanation) Lines() []string {
	stages := []struct{ name, reason string }{
		{"amount", e.Amount},
		{"sender", e.Sender},
		{"intent", e.Intent},
		{"merchant", e.Merchant},
		{"category", e.Category},
	}
	lines := make([]string, 0, len(stages))
	for _, s := range stages {
		if s.reason == "" {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s: %s", s.name, s.reason))
	}
	return lines
}

// ClassifiedTxn is the transient output of the classification pipeline.
type ClassifiedTxn struct {
	Message     RawMessage
	Amount      decimal.Decimal
	SenderType  SenderType
	Intent      IntentType
	Merchant    string
	Category    string
	Explanation Explanation
	IsCredit    bool
}

// Type maps the credit flag to a stored transaction direction.
func (c *ClassifiedTxn) Type() TxType {
	if c.IsCredit {
		return TypeCredit
	}
	return TypeDebit
}
