package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Veraticus/smsflow/internal/common"
	"github.com/Veraticus/smsflow/internal/model"
	"github.com/shopspring/decimal"
)

// CorrectMerchant names the merchant of every message from the sender of record id
// and reclassifies those records. It returns how many records were reclassified.
func (e *Engine) CorrectMerchant(ctx context.Context, id, name string) (int, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, common.NewUserError("merchant name cannot be empty", common.ErrInvalidConfig)
	}

	tx, err := e.store.GetByID(ctx, id)
	if err != nil {
		return 0, err
	}

	key := model.SenderMerchantOverrideKey(tx.Sender)
	if err := e.store.Put(ctx, key, name); err != nil {
		return 0, fmt.Errorf("failed to save merchant override: %w", err)
	}
	slog.Info("Saved merchant override", "key", key, "merchant", name)

	senderKey := model.SenderKey(tx.Sender)
	return e.reclassifyWhere(ctx, func(t *model.Transaction) bool {
		return model.SenderKey(t.Sender) == senderKey
	})
}

// CorrectCategory assigns a category to the merchant of record id and reclassifies
// every record with that merchant.
func (e *Engine) CorrectCategory(ctx context.Context, id, category string) (int, error) {
	category = strings.ToUpper(strings.TrimSpace(category))
	if category == "" {
		return 0, common.NewUserError("category cannot be empty", common.ErrInvalidConfig)
	}

	tx, err := e.store.GetByID(ctx, id)
	if err != nil {
		return 0, err
	}
	if tx.Merchant == "" {
		return 0, common.NewUserError(
			fmt.Sprintf("transaction %s has no merchant; correct the merchant first", id),
			common.ErrNotFound)
	}

	key := model.CategoryOverrideKey(tx.Merchant)
	if err := e.store.Put(ctx, key, category); err != nil {
		return 0, fmt.Errorf("failed to save category override: %w", err)
	}
	slog.Info("Saved category override", "key", key, "category", category)

	merchantKey := model.MerchantKey(tx.Merchant)
	return e.reclassifyWhere(ctx, func(t *model.Transaction) bool {
		return model.MerchantKey(t.Merchant) == merchantKey
	})
}

// SetIgnored marks a record as ignored or counted. With always, the choice is saved
// as an ignore pattern for the record's merchant and applied to all its records.
// It returns how many records changed.
func (e *Engine) SetIgnored(ctx context.Context, id string, ignored, always bool) (int, error) {
	tx, err := e.store.GetByID(ctx, id)
	if err != nil {
		return 0, err
	}

	if !always {
		if err := e.store.SetIgnored(ctx, id, ignored); err != nil {
			return 0, err
		}
		return 1, nil
	}

	if tx.Merchant == "" {
		return 0, common.NewUserError(
			fmt.Sprintf("transaction %s has no merchant to build an ignore pattern from", id),
			common.ErrNotFound)
	}

	key := model.IgnorePatternKey(tx.Merchant)
	if ignored {
		err = e.store.Put(ctx, key, "true")
	} else {
		err = e.store.Delete(ctx, key)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to update ignore pattern: %w", err)
	}

	all, err := e.store.GetAll(ctx)
	if err != nil {
		return 0, err
	}
	merchantKey := model.MerchantKey(tx.Merchant)
	changed := 0
	for _, t := range all {
		if model.MerchantKey(t.Merchant) != merchantKey || t.IsIgnored == ignored {
			continue
		}
		if err := e.store.SetIgnored(ctx, t.ID, ignored); err != nil {
			return changed, err
		}
		changed++
	}
	slog.Info("Updated ignore pattern", "key", key, "ignored", ignored, "records", changed)
	return changed, nil
}

// reclassifyWhere reruns the pipeline over matching records, stores the new
// attributes and runs the detector on each changed record.
func (e *Engine) reclassifyWhere(ctx context.Context, match func(*model.Transaction) bool) (int, error) {
	all, err := e.store.GetAll(ctx)
	if err != nil {
		return 0, err
	}

	var changed []model.Transaction
	for i := range all {
		t := &all[i]
		if !match(t) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return len(changed), err
		}

		c, err := e.pipeline.Classify(ctx, t.Message(), decimal.NewNullDecimal(t.Amount))
		if err != nil {
			return len(changed), err
		}
		if c == nil {
			continue
		}
		if c.Merchant == t.Merchant && c.Category == t.Category && c.Type() == t.Type {
			continue
		}

		if err := e.store.UpdateClassification(ctx, t.ID, c.Merchant, c.Category, c.Type()); err != nil {
			return len(changed), err
		}
		t.Merchant, t.Category, t.Type = c.Merchant, c.Category, c.Type()

		ignored, err := e.pipeline.IsIgnoredMerchant(ctx, t.Merchant)
		if err != nil {
			return len(changed), err
		}
		if ignored && !t.IsIgnored {
			if err := e.store.SetIgnored(ctx, t.ID, true); err != nil {
				return len(changed), err
			}
		}
		changed = append(changed, *t)
	}

	if _, err := e.linkAll(ctx, changed); err != nil {
		return len(changed), err
	}
	slog.Info("Reclassified transactions", "count", len(changed))
	return len(changed), nil
}
