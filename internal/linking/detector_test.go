package linking

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Veraticus/smsflow/internal/common"
	"github.com/Veraticus/smsflow/internal/model"
	"github.com/Veraticus/smsflow/internal/storage"
	"github.com/Veraticus/smsflow/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

type countingRecorder struct {
	counts map[string]int
	mu     sync.Mutex
}

func (r *countingRecorder) LinkApplied(rule string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.counts == nil {
		r.counts = make(map[string]int)
	}
	r.counts[rule]++
}

func newStore(t *testing.T) *storage.SQLiteStorage {
	t.Helper()
	return testutil.SetupTestDB(t).Store
}

func newTestDetector(store *storage.SQLiteStorage, opts ...Option) *Detector {
	return NewDetector(store, store, DefaultConfig(), opts...)
}

func txn(id, sender, body, merchant, amount string, ts time.Time, txType model.TxType) model.Transaction {
	return testutil.NewTxn(id).
		From(sender).
		Body(body).
		Merchant(merchant).
		Amount(amount).
		At(ts).
		Type(txType).
		Build()
}

func insert(t *testing.T, store *storage.SQLiteStorage, txs ...model.Transaction) {
	t.Helper()
	testutil.InsertTransactions(t, store, txs...)
}

func load(t *testing.T, store *storage.SQLiteStorage, id string) *model.Transaction {
	t.Helper()
	return testutil.MustGet(t, store, id)
}

func TestProcess_SameDayPair(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	rec := &countingRecorder{}
	d := newTestDetector(store, WithRecorder(rec))

	debit := txn("d1", "VM-HDFCBK", "Rs 500 UPI/sent to Ravi", "Ravi", "500", t0, model.TypeDebit)
	credit := txn("c1", "AD-ICICIB", "Rs 500 UPI received from account XX1234", "",
		"500", t0.Add(3*time.Hour), model.TypeCredit)
	insert(t, store, debit, credit)

	dec, err := d.Process(ctx, &debit)
	require.NoError(t, err)
	assert.Equal(t, RuleSameDay, dec.Rule)
	assert.Equal(t, "c1", dec.PartnerID)
	assert.Equal(t, 70, dec.Link.Confidence)

	wantID := PairID(debit.Amount, t0, t0.Add(3*time.Hour))
	for _, id := range []string{"d1", "c1"} {
		got := load(t, store, id)
		assert.Equal(t, wantID, got.LinkID)
		assert.Equal(t, model.LinkInternalTransfer, got.LinkType)
		assert.True(t, got.IsNetZero)
	}
	assert.True(t, debit.IsNetZero, "caller copy must reflect the stored link")

	patterns, err := store.LinkedPatterns(ctx, model.TypeDebit)
	require.NoError(t, err)
	assert.True(t, patterns["ravi|person_transfer"])
	assert.Equal(t, 1, rec.counts[string(RuleSameDay)])
}

func TestProcess_Idempotent(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	d := newTestDetector(store)

	debit := txn("d1", "VM-HDFCBK", "Rs 500 UPI/sent to Ravi", "Ravi", "500", t0, model.TypeDebit)
	credit := txn("c1", "AD-ICICIB", "Rs 500 UPI received from account XX1234", "",
		"500", t0.Add(3*time.Hour), model.TypeCredit)
	insert(t, store, debit, credit)

	_, err := d.Process(ctx, &debit)
	require.NoError(t, err)
	first := load(t, store, "d1").Link()

	for _, tx := range []model.Transaction{debit, credit} {
		dec, err := d.Process(ctx, &tx)
		require.NoError(t, err)
		assert.False(t, dec.Applied())
	}
	assert.Equal(t, first, load(t, store, "d1").Link())
	assert.Equal(t, first, load(t, store, "c1").Link())
}

func TestProcess_NoNameOverlap(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	d := newTestDetector(store)

	debit := txn("d1", "VM-HDFCBK", "Rs 2000 paid to Swiggy via UPI", "Swiggy", "2000", t0, model.TypeDebit)
	credit := txn("c1", "VM-HDFCBK", "Rs 2000 credited to your a/c XX9876 from Amit", "Amit",
		"2000", t0.Add(5*time.Hour), model.TypeCredit)
	insert(t, store, debit, credit)

	dec, err := d.Process(ctx, &debit)
	require.NoError(t, err)
	assert.False(t, dec.Applied())
	assert.False(t, load(t, store, "d1").IsLinked())
	assert.False(t, load(t, store, "c1").IsLinked())
}

// UPI counts as transfer phrasing on both sides, so a UPI merchant payment pairs
// with any same-day UPI credit of the same amount.
func TestProcess_UPIMerchantPaymentLinks(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	d := newTestDetector(store)

	debit := txn("d1", "VM-HDFCBK", "Rs 2000 paid to Swiggy via UPI", "Swiggy", "2000", t0, model.TypeDebit)
	credit := txn("c1", "AD-ICICIB", "Rs 2000 credited to your a/c XX9876 via UPI from Mohan", "Mohan",
		"2000", t0.Add(2*time.Hour), model.TypeCredit)
	insert(t, store, debit, credit)

	dec, err := d.Process(ctx, &debit)
	require.NoError(t, err)
	assert.Equal(t, RuleSameDay, dec.Rule)
	assert.Equal(t, "c1", dec.PartnerID)
	assert.Equal(t, 70, dec.Link.Confidence)
	assert.Equal(t, dec.Link.ID, load(t, store, "c1").LinkID)
}

func TestProcess_RuleMarks(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		txType     model.TxType
		rule       Rule
		confidence int
		hasLinkID  bool
	}{
		{
			name:       "card bill payment",
			body:       "Payment of Rs 5000 received towards your credit card XX1234",
			txType:     model.TypeCredit,
			rule:       RuleCardBill,
			confidence: 95,
		},
		{
			name:       "wallet deduction",
			body:       "Rs 5000 deducted from your Paytm wallet",
			txType:     model.TypeDebit,
			rule:       RuleWalletDeduction,
			confidence: 80,
		},
		{
			name:       "asset destination",
			body:       "Rs 5000 debited for SIP in HDFC Mutual Fund",
			txType:     model.TypeDebit,
			rule:       RuleAssetDestination,
			confidence: 90,
		},
		{
			name:       "wallet phrase",
			body:       "Rs 5000 added to your Amazon Pay balance via wallet top-up",
			txType:     model.TypeDebit,
			rule:       RuleWalletPhrase,
			confidence: 85,
		},
		{
			name:       "internal marker",
			body:       "Rs 5000 debited from a/c XX1234 INF/INFT/98765/Savings",
			txType:     model.TypeDebit,
			rule:       RuleInternalMarker,
			confidence: 100,
			hasLinkID:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			store := newStore(t)
			d := newTestDetector(store)

			tx := txn("t1", "VM-HDFCBK", tt.body, "Hdfc Savings", "5000", t0, tt.txType)
			insert(t, store, tx)

			dec, err := d.Process(ctx, &tx)
			require.NoError(t, err)
			assert.Equal(t, tt.rule, dec.Rule)
			assert.Empty(t, dec.PartnerID)

			got := load(t, store, "t1")
			assert.True(t, got.IsNetZero)
			assert.Equal(t, model.LinkInternalTransfer, got.LinkType)
			assert.Equal(t, tt.confidence, got.LinkConfidence)
			assert.Equal(t, tt.hasLinkID, got.IsLinked())
		})
	}
}

func TestProcess_InternalMarkerLearnsPattern(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	d := newTestDetector(store)

	tx := txn("t1", "VM-HDFCBK", "Rs 5000 debited from a/c XX1234 INF/INFT/98765/Savings", "Hdfc Savings",
		"5000", t0, model.TypeDebit)
	insert(t, store, tx)

	dec, err := d.Process(ctx, &tx)
	require.NoError(t, err)
	assert.Equal(t, PairID(tx.Amount, t0, t0), dec.Link.ID)

	patterns, err := store.LinkedPatterns(ctx, model.TypeDebit)
	require.NoError(t, err)
	assert.True(t, patterns["hdfc savings|debited_from"])
}

func TestProcess_WalletPhraseStillLinks(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	d := newTestDetector(store)

	debit := txn("d1", "VM-HDFCBK", "Rs 300 transferred to your Paytm wallet via UPI", "Paytm", "300", t0, model.TypeDebit)
	credit := txn("c1", "VM-PAYTM", "Rs 300 added to your Paytm wallet via UPI", "Paytm",
		"300", t0.Add(time.Minute), model.TypeCredit)
	insert(t, store, debit, credit)

	dec, err := d.Process(ctx, &debit)
	require.NoError(t, err)
	assert.Equal(t, RuleSameDay, dec.Rule)
	assert.Equal(t, "c1", dec.PartnerID)
	assert.True(t, load(t, store, "c1").IsNetZero)
}

func TestProcess_WideWindowInference(t *testing.T) {
	tests := []struct {
		name         string
		debitSender  string
		wantLinked   bool
		wantPartner  string
		wantConfiden int
	}{
		{name: "same bank reaches auto-link", debitSender: "VM-HDFCBK", wantLinked: true, wantPartner: "d1", wantConfiden: 80},
		{name: "different bank stays unlinked", debitSender: "AD-ICICIB", wantLinked: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			store := newStore(t)
			d := newTestDetector(store)

			require.NoError(t, store.SaveLinkedPattern(ctx, "ravi|person_transfer", model.TypeDebit))

			debit := txn("d1", tt.debitSender, "Rs 5000 sent to Ravi via UPI", "Ravi", "5000", t0, model.TypeDebit)
			credit := txn("c1", "VM-HDFCBK", "Rs 5000 received from Ravi via UPI", "Ravi",
				"5000", t0.Add(40*24*time.Hour), model.TypeCredit)
			insert(t, store, debit, credit)

			dec, err := d.Process(ctx, &credit)
			require.NoError(t, err)
			assert.Equal(t, tt.wantLinked, dec.Applied())
			assert.Equal(t, tt.wantLinked, load(t, store, "d1").IsNetZero)
			assert.Equal(t, tt.wantLinked, credit.IsNetZero)
			if tt.wantLinked {
				assert.Equal(t, RuleInferred, dec.Rule)
				assert.Equal(t, tt.wantPartner, dec.PartnerID)
				assert.Equal(t, tt.wantConfiden, dec.Link.Confidence)
			}
		})
	}
}

func TestProcess_InferenceNeedsLearnedPattern(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	d := newTestDetector(store)

	debit := txn("d1", "VM-HDFCBK", "Rs 5000 sent to Ravi via UPI", "Ravi", "5000", t0, model.TypeDebit)
	credit := txn("c1", "VM-HDFCBK", "Rs 5000 received from Ravi via UPI", "Ravi",
		"5000", t0.Add(40*24*time.Hour), model.TypeCredit)
	insert(t, store, debit, credit)

	dec, err := d.Process(ctx, &credit)
	require.NoError(t, err)
	assert.False(t, dec.Applied())
}

func TestInferMissingCredit_TieBreak(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	d := newTestDetector(store)

	require.NoError(t, store.SaveLinkedPattern(ctx, "ravi|person_transfer", model.TypeDebit))

	credit := txn("c1", "VM-HDFCBK", "Rs 5000 received from Ravi via UPI", "Ravi", "5000", t0, model.TypeCredit)
	far := txn("d-far", "VM-HDFCBK", "Rs 5000 sent to Ravi via UPI", "Ravi", "5000", t0.Add(-50*24*time.Hour), model.TypeDebit)
	nearB := txn("d-near-b", "VM-HDFCBK", "Rs 5000 sent to Ravi by UPI", "Ravi", "5000", t0.Add(45*24*time.Hour), model.TypeDebit)
	nearA := txn("d-near-a", "VM-HDFCBK", "Rs 5000 sent to Ravi via UPI", "Ravi", "5000", t0.Add(-45*24*time.Hour), model.TypeDebit)
	insert(t, store, credit, far, nearB, nearA)

	dec, err := d.InferMissingCredit(ctx, &credit)
	require.NoError(t, err)
	assert.Equal(t, RuleInferred, dec.Rule)
	assert.Equal(t, "d-near-a", dec.PartnerID, "equal score and distance falls back to smallest id")
	assert.False(t, load(t, store, "d-far").IsLinked())
	assert.False(t, load(t, store, "d-near-b").IsLinked())
}

func TestProcess_SelfRecipient(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	d := newTestDetector(store, WithSelfRecipients(store))

	require.NoError(t, store.AddSelfRecipient(ctx, "Priya Sharma"))

	tx := txn("d1", "VM-HDFCBK", "Rs 3000 paid to PRIYA SHARMA", "Priya Sharma", "3000", t0, model.TypeDebit)
	other := txn("d2", "VM-HDFCBK", "Rs 3000 paid to Ravi Kumar", "Ravi Kumar", "3000", t0.Add(time.Hour), model.TypeDebit)
	insert(t, store, tx, other)

	dec, err := d.Process(ctx, &tx)
	require.NoError(t, err)
	assert.Equal(t, RuleSelfRecipient, dec.Rule)
	assert.Equal(t, 90, load(t, store, "d1").LinkConfidence)

	dec, err = d.Process(ctx, &other)
	require.NoError(t, err)
	assert.False(t, dec.Applied())
}

func TestProcess_SkipsUntypedAndMissing(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	d := newTestDetector(store)

	tx := txn("u1", "VM-HDFCBK", "Rs 500 sent to Ravi via UPI", "Ravi", "500", t0, "")
	insert(t, store, tx)

	dec, err := d.Process(ctx, &tx)
	require.NoError(t, err)
	assert.False(t, dec.Applied())

	missing := txn("nope", "VM-HDFCBK", "Rs 500", "", "500", t0, model.TypeDebit)
	_, err = d.Process(ctx, &missing)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestProcess_ConcurrentSameAmount(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	d := newTestDetector(store)

	debit := txn("d1", "VM-HDFCBK", "Rs 500 sent to Ravi via UPI", "Ravi", "500", t0, model.TypeDebit)
	creditA := txn("c1", "VM-HDFCBK", "Rs 500 received from Ravi via UPI", "Ravi", "500", t0.Add(time.Hour), model.TypeCredit)
	creditB := txn("c2", "VM-HDFCBK", "Rs 500 received from Ravi by UPI", "Ravi", "500", t0.Add(2*time.Hour), model.TypeCredit)
	insert(t, store, debit, creditA, creditB)

	var wg sync.WaitGroup
	for _, tx := range []model.Transaction{debit, creditA, creditB} {
		wg.Add(1)
		go func(tx model.Transaction) {
			defer wg.Done()
			_, err := d.Process(ctx, &tx)
			assert.NoError(t, err)
		}(tx)
	}
	wg.Wait()

	all, err := store.GetAll(ctx)
	require.NoError(t, err)
	links := make(map[string]int)
	for _, tx := range all {
		if tx.IsLinked() {
			links[tx.LinkID]++
		}
	}
	require.Len(t, links, 1, "exactly one pair must be linked")
	for _, n := range links {
		assert.Equal(t, 2, n)
	}
}
