package linking

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Veraticus/smsflow/internal/common"
	"github.com/Veraticus/smsflow/internal/model"
)

// LinkPair links two transactions by hand. A possible link is recorded as
// POSSIBLE_TRANSFER and still counts as spend.
func (d *Detector) LinkPair(ctx context.Context, aID, bID string, possible bool) (Decision, error) {
	if aID == bID {
		return Decision{}, fmt.Errorf("%w: a transaction cannot be linked to itself", common.ErrNotLinkable)
	}

	unlock, err := d.lockRecords(ctx, aID, bID)
	if err != nil {
		return Decision{}, err
	}
	defer unlock()

	a, err := d.txns.GetByID(ctx, aID)
	if err != nil {
		return Decision{}, fmt.Errorf("failed to load transaction %s: %w", aID, err)
	}
	b, err := d.txns.GetByID(ctx, bID)
	if err != nil {
		return Decision{}, fmt.Errorf("failed to load transaction %s: %w", bID, err)
	}

	if !a.Type.Valid() || a.Type.Opposite() != b.Type {
		return Decision{}, fmt.Errorf("%w: %s and %s are not a debit and a credit", common.ErrNotLinkable, aID, bID)
	}
	if a.IsLinked() || b.IsLinked() {
		return Decision{}, fmt.Errorf("%w: unlink the existing link first", common.ErrNotLinkable)
	}

	link := model.Link{
		ID:         PairID(a.Amount, a.Timestamp, b.Timestamp),
		Type:       model.LinkInternalTransfer,
		Confidence: ConfidenceManual,
		NetZero:    true,
	}
	if possible {
		link.Type = model.LinkPossibleTransfer
		link.Confidence = Score(a, b)
		link.NetZero = false
	}

	for _, t := range []*model.Transaction{a, b} {
		if err := d.txns.UpdateLink(ctx, t.ID, link); err != nil {
			return Decision{}, fmt.Errorf("failed to link %s: %w", t.ID, err)
		}
	}
	d.applied(RuleManual)
	slog.Info("Linked transactions by hand", "link_id", link.ID, "a", aID, "b", bID, "type", link.Type)

	if !possible {
		if err := d.learn(ctx, a, b); err != nil {
			return Decision{}, err
		}
	}
	return Decision{Rule: RuleManual, PartnerID: bID, Link: link}, nil
}

// Unlink clears the link of a transaction and of every record sharing its link id.
// It returns the ids that were cleared.
func (d *Detector) Unlink(ctx context.Context, id string) ([]string, error) {
	unlock, err := d.lockRecords(ctx, id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	tx, err := d.txns.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load transaction %s: %w", id, err)
	}

	targets := []model.Transaction{*tx}
	if tx.IsLinked() {
		targets, err = d.txns.GetByLinkID(ctx, tx.LinkID)
		if err != nil {
			return nil, fmt.Errorf("failed to load link %s: %w", tx.LinkID, err)
		}
	}

	cleared := make([]string, 0, len(targets))
	for _, t := range targets {
		if err := d.txns.UpdateLink(ctx, t.ID, model.Link{}); err != nil {
			return cleared, fmt.Errorf("failed to unlink %s: %w", t.ID, err)
		}
		cleared = append(cleared, t.ID)
	}
	slog.Info("Unlinked transactions", "ids", cleared)
	return cleared, nil
}

// lockRecords takes the amount locks of the given records. Amounts never change
// after import, so the rows are read again once the locks are held.
func (d *Detector) lockRecords(ctx context.Context, ids ...string) (func(), error) {
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		t, err := d.txns.GetByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to load transaction %s: %w", id, err)
		}
		keys = append(keys, t.Amount.String())
	}
	return d.locks.lock(keys...), nil
}
