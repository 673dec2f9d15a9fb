// Package linking detects pairs of debits and credits that are the two legs of money
// moving between a user's own accounts, and marks them net-zero so they do not count
// as spend.
package linking

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/Veraticus/smsflow/internal/model"
	"github.com/shopspring/decimal"
)

// Transactions is the part of the transaction store the detector reads and writes.
type Transactions interface {
	FindCandidates(ctx context.Context, amount decimal.Decimal, from, to time.Time, excludeID string) ([]model.Transaction, error)
	UpdateLink(ctx context.Context, id string, link model.Link) error
	GetByID(ctx context.Context, id string) (*model.Transaction, error)
	GetByLinkID(ctx context.Context, linkID string) ([]model.Transaction, error)
}

// Patterns is the learned pattern store.
type Patterns interface {
	SaveLinkedPattern(ctx context.Context, key string, side model.TxType) error
	LinkedPatterns(ctx context.Context, side model.TxType) (map[string]bool, error)
}

// SelfRecipients answers whether a payee is the user.
type SelfRecipients interface {
	IsSelfRecipient(ctx context.Context, name string) (bool, error)
}

// Recorder observes applied link rules.
type Recorder interface {
	LinkApplied(rule string)
}

// Rule names the check that produced a link.
type Rule string

// Link rules.
const (
	RuleCardBill         Rule = "card_bill"
	RuleWalletDeduction  Rule = "wallet_deduction"
	RuleAssetDestination Rule = "asset_destination"
	RuleWalletPhrase     Rule = "wallet_phrase"
	RuleInternalMarker   Rule = "internal_marker"
	RuleSameDay          Rule = "same_day"
	RuleInferred         Rule = "inferred"
	RuleSelfRecipient    Rule = "self_recipient"
	RuleManual           Rule = "manual"
)

// Rule confidences for single-sided marks.
const (
	ConfidenceCardBill         = 95
	ConfidenceWalletDeduction  = 80
	ConfidenceAssetDestination = 90
	ConfidenceWalletPhrase     = 85
	ConfidenceInternalMarker   = 100
	ConfidenceSelfRecipient    = 90
	ConfidenceManual           = 100
)

// Config tunes candidate windows and thresholds.
type Config struct {
	SameDayWindow     time.Duration
	WideWindow        time.Duration
	PossibleThreshold int
	AutoLinkThreshold int
}

// DefaultConfig returns the standard windows and thresholds.
func DefaultConfig() Config {
	return Config{
		SameDayWindow:     24 * time.Hour,
		WideWindow:        120 * 24 * time.Hour,
		PossibleThreshold: 60,
		AutoLinkThreshold: 80,
	}
}

// Decision reports what the detector did to a transaction.
type Decision struct {
	Rule      Rule
	PartnerID string
	Link      model.Link
}

// Applied reports whether any link was written.
func (d Decision) Applied() bool {
	return d.Rule != ""
}

// Detector links transactions. It is safe for concurrent use; decisions are
// serialized per amount.
type Detector struct {
	txns     Transactions
	patterns Patterns
	selves   SelfRecipients
	recorder Recorder
	locks    *keyedMutex
	cfg      Config
}

// Option configures a Detector.
type Option func(*Detector)

// WithRecorder reports applied rules to r.
func WithRecorder(r Recorder) Option {
	return func(d *Detector) { d.recorder = r }
}

// WithSelfRecipients enables the self recipient fallback.
func WithSelfRecipients(s SelfRecipients) Option {
	return func(d *Detector) { d.selves = s }
}

// NewDetector creates a detector over the given stores.
func NewDetector(txns Transactions, patterns Patterns, cfg Config, opts ...Option) *Detector {
	d := &Detector{
		txns:     txns,
		patterns: patterns,
		cfg:      cfg,
		locks:    newKeyedMutex(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Process runs the link rules for one persisted transaction and updates tx with the
// stored result. Running it again on an unchanged store changes nothing.
func (d *Detector) Process(ctx context.Context, tx *model.Transaction) (Decision, error) {
	unlock := d.locks.lock(tx.Amount.String())
	defer unlock()

	cur, err := d.txns.GetByID(ctx, tx.ID)
	if err != nil {
		return Decision{}, fmt.Errorf("failed to load transaction %s: %w", tx.ID, err)
	}
	dec, err := d.process(ctx, cur)
	*tx = *cur
	return dec, err
}

func (d *Detector) process(ctx context.Context, tx *model.Transaction) (Decision, error) {
	if tx.IsNetZero || tx.IsLinked() {
		return Decision{}, nil
	}

	if IsCardBillPayment(tx.Body) {
		return d.mark(ctx, tx, RuleCardBill, model.Link{
			Type: model.LinkInternalTransfer, Confidence: ConfidenceCardBill, NetZero: true,
		})
	}
	if isWalletDeduction(tx.Body) {
		return d.mark(ctx, tx, RuleWalletDeduction, model.Link{
			Type: model.LinkInternalTransfer, Confidence: ConfidenceWalletDeduction, NetZero: true,
		})
	}
	if !tx.Type.Valid() {
		return Decision{}, nil
	}
	if isAssetDestination(tx.Body) {
		return d.mark(ctx, tx, RuleAssetDestination, model.Link{
			Type: model.LinkInternalTransfer, Confidence: ConfidenceAssetDestination, NetZero: true,
		})
	}

	var dec Decision
	if isWalletPhrase(tx.Body) {
		// Wallet phrasing marks the record but still lets a partner be found.
		var err error
		dec, err = d.mark(ctx, tx, RuleWalletPhrase, model.Link{
			Type: model.LinkInternalTransfer, Confidence: ConfidenceWalletPhrase, NetZero: true,
		})
		if err != nil {
			return dec, err
		}
	}

	if tx.Type == model.TypeDebit && hasInternalMarker(tx.Body) && !tx.IsLinked() {
		return d.markSingleSided(ctx, tx, RuleInternalMarker, ConfidenceInternalMarker)
	}

	steps := []func(context.Context, *model.Transaction) (Decision, error){
		d.linkSameDay,
		d.inferMissingCredit,
		d.linkSelfRecipient,
	}
	for _, step := range steps {
		linked, err := step(ctx, tx)
		if err != nil || linked.Applied() {
			return linked, err
		}
	}
	return dec, nil
}

// linkSameDay accepts the first candidate within the same-day window that reaches the
// possible threshold.
func (d *Detector) linkSameDay(ctx context.Context, tx *model.Transaction) (Decision, error) {
	candidates, err := d.txns.FindCandidates(ctx, tx.Amount,
		tx.Timestamp.Add(-d.cfg.SameDayWindow), tx.Timestamp.Add(d.cfg.SameDayWindow), tx.ID)
	if err != nil {
		return Decision{}, fmt.Errorf("failed to find same-day candidates: %w", err)
	}

	for i := range candidates {
		cand := &candidates[i]
		if cand.IsLinked() {
			continue
		}
		if score := Score(tx, cand); score >= d.cfg.PossibleThreshold {
			return d.linkPair(ctx, tx, cand, score, RuleSameDay)
		}
	}
	return Decision{}, nil
}

// InferMissingCredit searches the wide window for the other leg of a transaction whose
// merchant and phrasing were already seen on the opposite side of an earlier link.
func (d *Detector) InferMissingCredit(ctx context.Context, tx *model.Transaction) (Decision, error) {
	unlock := d.locks.lock(tx.Amount.String())
	defer unlock()

	cur, err := d.txns.GetByID(ctx, tx.ID)
	if err != nil {
		return Decision{}, fmt.Errorf("failed to load transaction %s: %w", tx.ID, err)
	}
	dec, err := d.inferMissingCredit(ctx, cur)
	*tx = *cur
	return dec, err
}

func (d *Detector) inferMissingCredit(ctx context.Context, tx *model.Transaction) (Decision, error) {
	if tx.LinkType == model.LinkInternalTransfer || tx.IsLinked() || !tx.Type.Valid() || tx.Merchant == "" {
		return Decision{}, nil
	}

	key := model.PatternKey(tx.Merchant, PhraseTagOf(tx.Body))
	learned, err := d.patterns.LinkedPatterns(ctx, tx.Type.Opposite())
	if err != nil {
		return Decision{}, fmt.Errorf("failed to load linked patterns: %w", err)
	}
	if !learned[key] {
		return Decision{}, nil
	}

	candidates, err := d.txns.FindCandidates(ctx, tx.Amount,
		tx.Timestamp.Add(-d.cfg.WideWindow), tx.Timestamp.Add(d.cfg.WideWindow), tx.ID)
	if err != nil {
		return Decision{}, fmt.Errorf("failed to find wide-window candidates: %w", err)
	}

	type scored struct {
		txn   *model.Transaction
		score int
	}
	var survivors []scored
	for i := range candidates {
		cand := &candidates[i]
		if cand.Type != tx.Type.Opposite() || cand.IsLinked() {
			continue
		}
		if Similarity(tx.Merchant, cand.Merchant) < MinInferenceSimilarity {
			continue
		}
		if score := Score(tx, cand); score >= d.cfg.AutoLinkThreshold {
			survivors = append(survivors, scored{txn: cand, score: score})
		}
	}
	if len(survivors) == 0 {
		slog.Debug("No wide-window partner", "id", tx.ID, "pattern", key)
		return Decision{}, nil
	}

	sort.SliceStable(survivors, func(i, j int) bool {
		a, b := survivors[i], survivors[j]
		if a.score != b.score {
			return a.score > b.score
		}
		da, db := absDelta(tx.Timestamp, a.txn.Timestamp), absDelta(tx.Timestamp, b.txn.Timestamp)
		if da != db {
			return da < db
		}
		return a.txn.ID < b.txn.ID
	})

	best := survivors[0]
	return d.linkPair(ctx, tx, best.txn, best.score, RuleInferred)
}

// linkSelfRecipient treats a payment to or from a declared self recipient as net-zero
// even when the other leg was never observed.
func (d *Detector) linkSelfRecipient(ctx context.Context, tx *model.Transaction) (Decision, error) {
	if d.selves == nil || tx.IsNetZero || tx.Merchant == "" {
		return Decision{}, nil
	}
	ok, err := d.selves.IsSelfRecipient(ctx, tx.Merchant)
	if err != nil {
		return Decision{}, fmt.Errorf("failed to check self recipient: %w", err)
	}
	if !ok {
		return Decision{}, nil
	}
	return d.markSingleSided(ctx, tx, RuleSelfRecipient, ConfidenceSelfRecipient)
}

// mark writes a rule-based link without a partner.
func (d *Detector) mark(ctx context.Context, tx *model.Transaction, rule Rule, link model.Link) (Decision, error) {
	if err := d.txns.UpdateLink(ctx, tx.ID, link); err != nil {
		return Decision{}, fmt.Errorf("failed to mark %s as %s: %w", tx.ID, rule, err)
	}
	tx.ApplyLink(link)
	d.applied(rule)

	slog.Info("Marked internal transfer", "id", tx.ID, "rule", rule, "confidence", link.Confidence)
	return Decision{Rule: rule, Link: link}, nil
}

// markSingleSided links a transaction with a synthetic id and learns its pattern.
func (d *Detector) markSingleSided(ctx context.Context, tx *model.Transaction, rule Rule, confidence int) (Decision, error) {
	link := model.Link{
		ID:         PairID(tx.Amount, tx.Timestamp, tx.Timestamp),
		Type:       model.LinkInternalTransfer,
		Confidence: confidence,
		NetZero:    true,
	}
	dec, err := d.mark(ctx, tx, rule, link)
	if err != nil {
		return dec, err
	}
	return dec, d.learn(ctx, tx)
}

// linkPair links two legs with one deterministic id and learns both patterns.
func (d *Detector) linkPair(ctx context.Context, tx, partner *model.Transaction, score int, rule Rule) (Decision, error) {
	link := model.Link{
		ID:         PairID(tx.Amount, tx.Timestamp, partner.Timestamp),
		Type:       model.LinkInternalTransfer,
		Confidence: score,
		NetZero:    true,
	}
	for _, t := range []*model.Transaction{tx, partner} {
		if err := d.txns.UpdateLink(ctx, t.ID, link); err != nil {
			return Decision{}, fmt.Errorf("failed to link %s: %w", t.ID, err)
		}
		t.ApplyLink(link)
	}
	d.applied(rule)

	slog.Info("Linked transactions",
		"rule", rule,
		"link_id", link.ID,
		"id", tx.ID,
		"partner", partner.ID,
		"score", score)

	if err := d.learn(ctx, tx, partner); err != nil {
		return Decision{}, err
	}
	return Decision{Rule: rule, PartnerID: partner.ID, Link: link}, nil
}

// learn stores the pattern key of every linked side that has a merchant.
func (d *Detector) learn(ctx context.Context, txs ...*model.Transaction) error {
	for _, t := range txs {
		if t.Merchant == "" || !t.Type.Valid() {
			continue
		}
		key := model.PatternKey(t.Merchant, PhraseTagOf(t.Body))
		if err := d.patterns.SaveLinkedPattern(ctx, key, t.Type); err != nil {
			return fmt.Errorf("failed to save linked pattern %s: %w", key, err)
		}
	}
	return nil
}

func (d *Detector) applied(rule Rule) {
	if d.recorder != nil {
		d.recorder.LinkApplied(string(rule))
	}
}

// PairID derives the link id of a pair from its amount and the two timestamps. The
// order of the timestamps does not matter.
func PairID(amount decimal.Decimal, a, b time.Time) string {
	lo, hi := a.UnixMilli(), b.UnixMilli()
	if lo > hi {
		lo, hi = hi, lo
	}
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%d|%d", amount.String(), lo, hi)))
	return hex.EncodeToString(sum[:16])
}
