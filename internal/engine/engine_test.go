package engine

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Veraticus/smsflow/internal/common"
	"github.com/Veraticus/smsflow/internal/linking"
	"github.com/Veraticus/smsflow/internal/metrics"
	"github.com/Veraticus/smsflow/internal/model"
	"github.com/Veraticus/smsflow/internal/source"
	"github.com/Veraticus/smsflow/internal/storage"
	"github.com/Veraticus/smsflow/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 3, 12, 10, 0, 0, 0, time.UTC)

type fakeRecorder struct {
	messages map[string]int
	links    map[string]int
	mu       sync.Mutex
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{messages: map[string]int{}, links: map[string]int{}}
}

func (r *fakeRecorder) MessageN(outcome string, n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages[outcome] += n
}

func (r *fakeRecorder) LinkApplied(rule string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.links[rule]++
}

type fakeProgress struct {
	stages []string
	added  int
	mu     sync.Mutex
}

func (p *fakeProgress) Start(stage string, _ int) { p.stages = append(p.stages, stage) }
func (p *fakeProgress) Finish()                   {}
func (p *fakeProgress) Add(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.added += n
}

type fakeCheckpointer struct {
	operations []string
}

func (c *fakeCheckpointer) AutoCheckpoint(_ context.Context, operation string) (*storage.CheckpointInfo, error) {
	c.operations = append(c.operations, operation)
	return &storage.CheckpointInfo{ID: "auto-" + operation, IsAuto: true}, nil
}

func newTestEngine(t *testing.T, opts ...Option) (*Engine, *storage.SQLiteStorage) {
	t.Helper()
	store := testutil.SetupTestDB(t).Store
	return New(store, DefaultConfig(), opts...), store
}

func raw(sender, body string, offset time.Duration) model.RawMessage {
	return model.RawMessage{Sender: sender, Body: body, Timestamp: t0.Add(offset)}
}

// transferPair is a debit and its matching credit between the user's own accounts.
func transferPair() []model.RawMessage {
	return []model.RawMessage{
		raw("VM-HDFCBK", "Rs 5000 credited to your a/c XX9876 via UPI from Ravi Kumar", 2*time.Hour),
		raw("VM-HDFCBK", "Rs 5000 debited from A/c XX1234 via UPI to Ravi Kumar", 0),
	}
}

func findByBody(t *testing.T, store *storage.SQLiteStorage, body string) model.Transaction {
	t.Helper()
	all, err := store.GetAll(context.Background())
	require.NoError(t, err)
	for _, tx := range all {
		if tx.Body == body {
			return tx
		}
	}
	t.Fatalf("no transaction with body %q", body)
	return model.Transaction{}
}

func TestImportMessages(t *testing.T) {
	ctx := context.Background()
	rec := newFakeRecorder()
	progress := &fakeProgress{}
	e, store := newTestEngine(t, WithRecorder(rec), WithProgress(progress))

	msgs := []model.RawMessage{
		raw("VM-HDFCBK", "Rs 500 debited from A/c XX1234 to Swiggy", 0),
		raw("VM-HDFCBK", "Rs 2000 credited to your a/c from Ravi Kumar", time.Hour),
		raw("VM-HDFCBK", "Transaction of Rs 500 failed", 2*time.Hour),
		raw("VM-HDFCBK", "123456 is your OTP for txn of Rs 500", 3*time.Hour),
		raw("VM-HDFCBK", "Rs 500 debited from A/c XX1234 to Swiggy", 0),
	}

	stats, err := e.ImportMessages(ctx, msgs)
	require.NoError(t, err)
	assert.Equal(t, 5, stats.Read)
	assert.Equal(t, 1, stats.Rejected)
	assert.Equal(t, 1, stats.Dropped)
	assert.Equal(t, 1, stats.Duplicates)
	assert.Equal(t, 2, stats.Stored)
	assert.Equal(t, 0, stats.Linked)

	all, err := store.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Swiggy", all[0].Merchant)
	assert.Equal(t, model.CategoryFood, all[0].Category)
	assert.Equal(t, model.TypeDebit, all[0].Type)
	assert.Equal(t, model.TypeCredit, all[1].Type)

	assert.Equal(t, map[string]int{
		metrics.OutcomeRejected:  1,
		metrics.OutcomeDropped:   1,
		metrics.OutcomeDuplicate: 1,
		metrics.OutcomeStored:    2,
	}, rec.messages)
	assert.Equal(t, []string{StageClassify, StageLink}, progress.stages)
	assert.Equal(t, 7, progress.added)

	again, err := e.ImportMessages(ctx, msgs[:2])
	require.NoError(t, err)
	assert.Equal(t, 0, again.Stored)
	assert.Equal(t, 2, again.Duplicates)
}

func TestImportMessages_LinksTransferPair(t *testing.T) {
	ctx := context.Background()
	rec := newFakeRecorder()
	e, store := newTestEngine(t, WithRecorder(rec))

	stats, err := e.ImportMessages(ctx, transferPair())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Stored)
	assert.Equal(t, 1, stats.Linked)

	all, err := store.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.NotEmpty(t, all[0].LinkID)
	assert.Equal(t, all[0].LinkID, all[1].LinkID)
	assert.True(t, all[0].IsNetZero)
	assert.True(t, all[1].IsNetZero)
	assert.Equal(t, 1, rec.links[string(linking.RuleSameDay)])

	summary, err := store.GetSpendSummary(ctx, t0.Add(-time.Hour), t0.Add(time.Hour*24))
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Count)
}

func TestImportMessages_ZeroAmountIsRejected(t *testing.T) {
	e, store := newTestEngine(t)

	stats, err := e.ImportMessages(context.Background(), []model.RawMessage{
		raw("VM-HDFCBK", "Rs 500 debited from A/c XX1234 via UPI to Ravi Kumar", 0),
		raw("VM-HDFCBK", "Rs 0.00 debited from A/c XX1234 for mandate verification", time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Stored)
	assert.Equal(t, 1, stats.Rejected)

	all, err := store.GetAll(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "500", all[0].Amount.String())
}

func TestImportMessages_LogsSummary(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })
	var buf bytes.Buffer
	common.SetupLogger(slog.LevelInfo, "json", &buf)

	e, _ := newTestEngine(t)
	_, err := e.ImportMessages(context.Background(), transferPair())
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `"msg":"Import complete"`)
	assert.Contains(t, out, `"stored":2`)
	assert.Contains(t, out, `"linked":1`)
}

func TestImport_FromSource(t *testing.T) {
	input := `{"sender":"VM-HDFCBK","body":"Rs 500 debited from A/c XX1234 to Swiggy","timestamp_ms":1710237600000}
{broken
`
	src, err := source.NewReader(strings.NewReader(input), source.FormatJSONL)
	require.NoError(t, err)

	e, _ := newTestEngine(t)
	stats, err := e.Import(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Read)
	assert.Equal(t, 1, stats.Malformed)
	assert.Equal(t, 1, stats.Stored)
}

func TestImportMessages_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e, store := newTestEngine(t)
	_, err := e.ImportMessages(ctx, transferPair())
	assert.ErrorIs(t, err, context.Canceled)

	count, err := store.CountTransactions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestExplain(t *testing.T) {
	e, store := newTestEngine(t)

	res, err := e.Explain(context.Background(), raw("VM-HDFCBK", "Rs 500 debited from A/c XX1234 to Swiggy", 0))
	require.NoError(t, err)
	require.NotNil(t, res.Txn)
	assert.Equal(t, "Swiggy", res.Txn.Merchant)
	assert.Len(t, res.Explanation.Lines(), 5)

	count, err := store.CountTransactions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}
