package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const exportJSONL = `{"sender":"VM-HDFCBK","body":"Rs 5000 debited from A/c XX1234 via UPI to Ravi Kumar","timestamp_ms":1710237600000}
{"sender":"VM-HDFCBK","body":"Rs 5000 credited to your a/c XX9876 via UPI from Ravi Kumar","timestamp_ms":1710244800000}
{"sender":"VM-HDFCBK","body":"Rs 500 debited from A/c XX1234 to Swiggy","timestamp_ms":1710324000000}
{"sender":"VM-HDFCBK","body":"Rs 500 debited from A/c XX1234 to Swiggy","timestamp_ms":1710324000000}
`

// setupCLI writes a config file pointing at a fresh database and an export file.
func setupCLI(t *testing.T) (cfgPath, exportPath string) {
	t.Helper()
	dir := t.TempDir()

	cfgPath = filepath.Join(dir, "config.yaml")
	dbPath := filepath.Join(dir, "smsflow.db")
	require.NoError(t, os.WriteFile(cfgPath, []byte("database:\n  path: "+dbPath+"\n"), 0600))

	exportPath = filepath.Join(dir, "messages.jsonl")
	require.NoError(t, os.WriteFile(exportPath, []byte(exportJSONL), 0600))
	return cfgPath, exportPath
}

func execute(t *testing.T, cfgPath string, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetIn(strings.NewReader(""))
	rootCmd.SetArgs(append([]string{"--config", cfgPath}, args...))
	require.NoError(t, rootCmd.ExecuteContext(context.Background()))
	return out.String()
}

func TestCLI_ImportLinkSummaryReset(t *testing.T) {
	cfgPath, exportPath := setupCLI(t)

	out := execute(t, cfgPath, "import", "--no-progress", exportPath)
	assert.Contains(t, out, "Messages read:    4")
	assert.Contains(t, out, "Stored:           3")
	assert.Contains(t, out, "Already imported: 1")
	assert.Contains(t, out, "Linked transfers: 1")

	out = execute(t, cfgPath, "links")
	assert.Contains(t, out, "1 links, 2 transactions")
	assert.Contains(t, out, "INTERNAL_TRANSFER")

	out = execute(t, cfgPath, "transactions", "list", "--sender", "VM-HDFCBK")
	assert.Contains(t, out, "3 transactions")

	out = execute(t, cfgPath, "summary", "--from", "2024-03-01", "--to", "2024-03-31")
	assert.Contains(t, out, "TOTAL")
	assert.Contains(t, out, "-₹500.00")
	assert.NotContains(t, out, "5000.00")

	// Importing the same export again stores nothing.
	out = execute(t, cfgPath, "import", "--no-progress", exportPath)
	assert.Contains(t, out, "Stored:           0")
	assert.Contains(t, out, "Already imported: 4")

	out = execute(t, cfgPath, "reset", "--force")
	assert.Contains(t, out, "Deleted 3 transactions")

	out = execute(t, cfgPath, "links")
	assert.Contains(t, out, "No linked transactions.")
}

func TestCLI_SelfRecipients(t *testing.T) {
	cfgPath, _ := setupCLI(t)

	out := execute(t, cfgPath, "self", "add", "Priya", "Sharma")
	assert.Contains(t, out, `Added self recipient "Priya Sharma"`)

	// Names are listed in the normalized form they are matched in.
	out = execute(t, cfgPath, "self", "list")
	assert.Contains(t, out, "priya sharma")

	execute(t, cfgPath, "self", "remove", "Priya Sharma")
	out = execute(t, cfgPath, "self", "list")
	assert.Contains(t, out, "No self recipients declared.")
}

func TestCLI_Classify(t *testing.T) {
	cfgPath, _ := setupCLI(t)

	out := execute(t, cfgPath, "classify", "--sender", "VM-HDFCBK", "Rs 500 debited from A/c XX1234 to Swiggy")
	assert.Contains(t, out, "Transaction")
	assert.Contains(t, out, "-₹500.00")
	assert.Contains(t, out, "amount:")

	out = execute(t, cfgPath, "classify", "--sender", "AD-PROMO", "Flat 50% off on your next order!")
	assert.NotContains(t, out, "Merchant:")
}

func TestCLI_Checkpoints(t *testing.T) {
	cfgPath, exportPath := setupCLI(t)
	execute(t, cfgPath, "import", "--no-progress", exportPath)

	out := execute(t, cfgPath, "checkpoint", "create", "--tag", "before-reset")
	assert.Contains(t, out, "Created checkpoint before-reset")

	execute(t, cfgPath, "reset", "--force")

	out = execute(t, cfgPath, "checkpoint", "list")
	assert.Contains(t, out, "before-reset")
	assert.Contains(t, out, "auto")

	out = execute(t, cfgPath, "checkpoint", "restore", "--force", "before-reset")
	assert.Contains(t, out, "Restored from checkpoint before-reset")

	out = execute(t, cfgPath, "transactions", "list")
	assert.Contains(t, out, "3 transactions")

	out = execute(t, cfgPath, "checkpoint", "delete", "before-reset")
	assert.Contains(t, out, "Deleted checkpoint before-reset")
}
