package cli

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/Veraticus/smsflow/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestProgress(t *testing.T) {
	var out bytes.Buffer
	p := NewProgress(&out)

	p.Add(1)
	p.Start("Classifying messages", 3)
	p.Add(1)
	p.Add(2)
	p.Start("Linking transfers", 0)
	p.Add(1)
	p.Finish()
	p.Finish()

	assert.Contains(t, out.String(), "Classifying messages")
	assert.Contains(t, out.String(), "3/3")
	assert.Nil(t, p.bar)
}

func TestFormatAmount(t *testing.T) {
	amount := decimal.RequireFromString("1250.5")
	assert.Contains(t, FormatAmount(amount, model.TypeDebit), "-₹1250.50")
	assert.Contains(t, FormatAmount(amount, model.TypeCredit), "+₹1250.50")
	assert.Equal(t, "₹1250.50", FormatAmount(amount, ""))
}

func TestFormatTransaction(t *testing.T) {
	tx := &model.Transaction{
		ID:             "0f8fad5b-d9cb-469f-a165-70867728950e",
		Timestamp:      time.Date(2024, 3, 12, 10, 0, 0, 0, time.UTC),
		Sender:         "VM-HDFCBK",
		Body:           "Rs 500 sent to Ravi via UPI",
		Amount:         decimal.NewFromInt(500),
		Merchant:       "Ravi",
		Category:       model.CategoryPerson,
		Type:           model.TypeDebit,
		LinkID:         "abc",
		LinkType:       model.LinkInternalTransfer,
		LinkConfidence: 70,
		IsNetZero:      true,
	}

	out := FormatTransaction(tx)
	assert.Contains(t, out, "Sender:   VM-HDFCBK")
	assert.Contains(t, out, "INTERNAL_TRANSFER (70)")
	assert.Contains(t, out, "net-zero")

	row := TransactionRow(tx)
	assert.Len(t, row, len(TransactionHeaders))
	assert.Equal(t, "0f8fad5b", row[0])
}

func TestRenderTable(t *testing.T) {
	out := RenderTable([]string{"A", "Long header"}, [][]string{{"wide cell", "x"}, {"y"}})
	lines := strings.Split(out, "\n")
	assert.GreaterOrEqual(t, len(lines), 3)
	assert.Contains(t, out, "wide cell")
	assert.Contains(t, out, "Long header")
}

func TestFormatLink_Unlinked(t *testing.T) {
	assert.Empty(t, FormatLink(&model.Transaction{}))
}
