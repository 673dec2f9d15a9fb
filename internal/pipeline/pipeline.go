// Package pipeline orchestrates the extractor and the attribute classifiers into one
// classified transaction per message.
package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/Veraticus/smsflow/internal/classify"
	"github.com/Veraticus/smsflow/internal/common"
	"github.com/Veraticus/smsflow/internal/extract"
	"github.com/Veraticus/smsflow/internal/model"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Pipeline classifies messages, consulting user overrides for merchant and category.
type Pipeline struct {
	overrides classify.Overrides
}

// New creates a pipeline. A nil overrides store disables corrections.
func New(overrides classify.Overrides) *Pipeline {
	return &Pipeline{overrides: overrides}
}

// Result is the outcome of running one message through extraction and classification.
// Txn is nil when the message must be dropped.
type Result struct {
	Txn         *model.ClassifiedTxn
	Explanation model.Explanation
	Rejected    bool
}

// Process extracts the amount from a raw message and classifies it.
func (p *Pipeline) Process(ctx context.Context, raw model.RawMessage) (Result, error) {
	ex := extract.Extract(raw.Body)
	if ex.Rejected {
		common.LogDebug("Rejected message", common.Fields{"sender": raw.Sender, "reason": ex.Reason})
		return Result{Rejected: true, Explanation: model.Explanation{Amount: ex.Reason}}, nil
	}
	return p.run(ctx, raw, decimal.NewNullDecimal(ex.Amount), ex.Reason)
}

// Classify classifies a message whose amount was already parsed. It returns nil, nil
// when the message is not a transaction. Errors come only from the override store.
func (p *Pipeline) Classify(ctx context.Context, raw model.RawMessage, amount decimal.NullDecimal) (*model.ClassifiedTxn, error) {
	res, err := p.run(ctx, raw, amount, "")
	if err != nil {
		return nil, err
	}
	return res.Txn, nil
}

func (p *Pipeline) run(ctx context.Context, raw model.RawMessage, amount decimal.NullDecimal, amountReason string) (Result, error) {
	exp := model.Explanation{Amount: amountReason}
	if !amount.Valid {
		exp.Amount = "no amount"
		return Result{Explanation: exp}, nil
	}
	if !amount.Decimal.IsPositive() {
		exp.Amount = "non-positive amount " + amount.Decimal.String()
		return Result{Explanation: exp}, nil
	}
	if exp.Amount == "" {
		exp.Amount = "parsed amount " + amount.Decimal.String()
	}

	sender := classify.ClassifySender(raw.Sender, raw.Body)
	exp.Sender = sender.Reason

	intent := classify.ClassifyIntent(sender.Type, raw.Body)
	exp.Intent = intent.Reason
	if !intent.Type.IsFinancial() {
		common.LogDebug("Dropped non-financial message", common.Fields{
			"sender": raw.Sender,
			"intent": intent.Type,
			"reason": intent.Reason,
		})
		return Result{Explanation: exp}, nil
	}

	merchant, err := classify.ExtractMerchant(ctx, p.overrides, raw.Sender, sender.Type, raw.Body)
	if err != nil {
		return Result{}, fmt.Errorf("failed to extract merchant: %w", err)
	}
	exp.Merchant = merchant.Reason

	isCredit := intent.Type.IsCredit()
	category, err := classify.ClassifyCategory(ctx, p.overrides, merchant.Name, raw.Body, isCredit)
	if err != nil {
		return Result{}, fmt.Errorf("failed to classify category: %w", err)
	}
	exp.Category = category.Reason

	return Result{
		Txn: &model.ClassifiedTxn{
			Message:     raw,
			Amount:      amount.Decimal,
			SenderType:  sender.Type,
			Intent:      intent.Type,
			Merchant:    merchant.Name,
			Category:    category.Category,
			Explanation: exp,
			IsCredit:    isCredit,
		},
		Explanation: exp,
	}, nil
}

// ToTransaction maps a classified message into a new transaction record with a fresh id.
// Records whose merchant carries an ignore pattern are marked ignored.
func (p *Pipeline) ToTransaction(ctx context.Context, c *model.ClassifiedTxn) (model.Transaction, error) {
	txn := model.Transaction{
		ID:        uuid.NewString(),
		Sender:    c.Message.Sender,
		Body:      c.Message.Body,
		Timestamp: c.Message.Timestamp,
		Amount:    c.Amount,
		Merchant:  c.Merchant,
		Category:  c.Category,
		Type:      c.Type(),
	}
	txn.Hash = txn.GenerateHash()

	ignored, err := p.IsIgnoredMerchant(ctx, c.Merchant)
	if err != nil {
		return model.Transaction{}, err
	}
	txn.IsIgnored = ignored
	return txn, nil
}

// IsIgnoredMerchant reports whether the user asked to always ignore a merchant.
func (p *Pipeline) IsIgnoredMerchant(ctx context.Context, merchant string) (bool, error) {
	if p.overrides == nil || strings.TrimSpace(merchant) == "" {
		return false, nil
	}
	v, ok, err := p.overrides.Get(ctx, model.IgnorePatternKey(merchant))
	if err != nil {
		return false, fmt.Errorf("failed to look up ignore pattern: %w", err)
	}
	return ok && v != "" && v != "false", nil
}
