package storage

import (
	"context"
	"testing"
	"time"

	"github.com/Veraticus/smsflow/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2024, 3, 12, 10, 0, 0, 0, time.UTC)

// newTestStorage creates a migrated in-memory store.
func newTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()
	store, err := NewSQLiteStorage(MemoryPath)
	require.NoError(t, err)
	require.NoError(t, store.Migrate(context.Background()))
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testTxn(id, body string, ts time.Time, amount string, txType model.TxType) model.Transaction {
	txn := model.Transaction{
		ID:        id,
		Sender:    "VM-HDFCBK",
		Body:      body,
		Timestamp: ts,
		Amount:    decimal.RequireFromString(amount),
		Type:      txType,
		Category:  model.CategoryOther,
	}
	txn.Hash = txn.GenerateHash()
	return txn
}

func mustInsert(t *testing.T, s *SQLiteStorage, txns ...model.Transaction) {
	t.Helper()
	for i := range txns {
		ok, err := s.Insert(context.Background(), &txns[i])
		require.NoError(t, err)
		require.True(t, ok, "transaction %s was not inserted", txns[i].ID)
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, store.Migrate(ctx))

	version, err := store.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, ExpectedSchemaVersion, version)
}

func TestNewSQLiteStorage_EmptyPath(t *testing.T) {
	_, err := NewSQLiteStorage("  ")
	assert.ErrorIs(t, err, ErrEmptyString)
}

func TestNewCheckpointManager_MemoryDatabase(t *testing.T) {
	store := newTestStorage(t)
	_, err := store.NewCheckpointManager()
	assert.Error(t, err)
}

func TestClassifyError(t *testing.T) {
	assert.NoError(t, classifyError(nil))

	plain := assert.AnError
	assert.Equal(t, plain, classifyError(plain))
}
