// Package testutil provides test helpers shared by the smsflow packages: an
// in-memory database with cleanup, and a builder for transaction records.
package testutil

import (
	"context"
	"testing"

	"github.com/Veraticus/smsflow/internal/model"
	"github.com/Veraticus/smsflow/internal/storage"
)

// TestDB is an in-memory database bound to one test.
type TestDB struct {
	Store *storage.SQLiteStorage
	t     *testing.T
}

// SetupTestDB creates a new migrated in-memory database that is closed when the
// test ends.
//
// Example:
//
//	db := testutil.SetupTestDB(t)
//	db.Insert(testutil.NewTxn("d1").Amount("500").Build())
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()
	return SetupTestDBWithOptions(t, TestDBOptions{})
}

// TestDBOptions seeds a test database.
type TestDBOptions struct {
	CustomSetup    func(context.Context, *storage.SQLiteStorage) error
	Overrides      map[string]string
	SelfRecipients []string
	Transactions   []model.Transaction
}

// SetupTestDBWithOptions creates a test database and seeds it from opts.
func SetupTestDBWithOptions(t *testing.T, opts TestDBOptions) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(storage.MemoryPath)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	for key, value := range opts.Overrides {
		if err := store.Put(ctx, key, value); err != nil {
			t.Fatalf("failed to seed override %q: %v", key, err)
		}
	}
	for _, name := range opts.SelfRecipients {
		if err := store.AddSelfRecipient(ctx, name); err != nil {
			t.Fatalf("failed to seed self recipient %q: %v", name, err)
		}
	}
	InsertTransactions(t, store, opts.Transactions...)

	if opts.CustomSetup != nil {
		if err := opts.CustomSetup(ctx, store); err != nil {
			t.Fatalf("custom setup failed: %v", err)
		}
	}

	return &TestDB{Store: store, t: t}
}

// Insert stores txns, failing the test if any is rejected or already present.
func (db *TestDB) Insert(txns ...model.Transaction) {
	db.t.Helper()
	InsertTransactions(db.t, db.Store, txns...)
}

// MustGet loads a transaction or fails the test.
func (db *TestDB) MustGet(id string) *model.Transaction {
	db.t.Helper()
	return MustGet(db.t, db.Store, id)
}

// InsertTransactions stores txns, failing the test if any is rejected or already
// present.
func InsertTransactions(t *testing.T, store *storage.SQLiteStorage, txns ...model.Transaction) {
	t.Helper()
	for i := range txns {
		ok, err := store.Insert(context.Background(), &txns[i])
		if err != nil {
			t.Fatalf("failed to insert transaction %s: %v", txns[i].ID, err)
		}
		if !ok {
			t.Fatalf("transaction %s was already stored", txns[i].ID)
		}
	}
}

// MustGet loads a transaction or fails the test.
func MustGet(t *testing.T, store *storage.SQLiteStorage, id string) *model.Transaction {
	t.Helper()
	txn, err := store.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("failed to load transaction %s: %v", id, err)
	}
	return txn
}
