package cli

import (
	"fmt"
	"strings"

	"github.com/Veraticus/smsflow/internal/model"
	"github.com/shopspring/decimal"
)

// FormatAmount renders an amount with a sign for its direction.
func FormatAmount(amount decimal.Decimal, txType model.TxType) string {
	text := "₹" + amount.StringFixed(2)
	switch txType {
	case model.TypeDebit:
		return DebitStyle.Render("-" + text)
	case model.TypeCredit:
		return CreditStyle.Render("+" + text)
	default:
		return text
	}
}

// FormatLink describes the link state of a transaction in a few words.
func FormatLink(t *model.Transaction) string {
	var parts []string
	if t.LinkType != "" {
		parts = append(parts, fmt.Sprintf("%s %s (%d)", LinkIcon, t.LinkType, t.LinkConfidence))
	}
	if t.IsNetZero {
		parts = append(parts, "net-zero")
	}
	if t.IsIgnored {
		parts = append(parts, "ignored")
	}
	if len(parts) == 0 {
		return ""
	}
	return LinkedStyle.Render(strings.Join(parts, ", "))
}

// TransactionRow renders the list columns of one transaction.
func TransactionRow(t *model.Transaction) []string {
	merchant := t.Merchant
	if merchant == "" {
		merchant = SubtleStyle.Render("-")
	}
	return []string{
		shortID(t.ID),
		t.Timestamp.Local().Format("2006-01-02 15:04"),
		FormatAmount(t.Amount, t.Type),
		merchant,
		t.Category,
		FormatLink(t),
	}
}

// TransactionHeaders are the column names matching TransactionRow.
var TransactionHeaders = []string{"ID", "Date", "Amount", "Merchant", "Category", "Link"}

// FormatTransaction renders every field of a transaction for the show command.
func FormatTransaction(t *model.Transaction) string {
	fields := [][2]string{
		{"ID", t.ID},
		{"Date", t.Timestamp.Local().Format("2006-01-02 15:04:05")},
		{"Sender", t.Sender},
		{"Amount", FormatAmount(t.Amount, t.Type)},
		{"Merchant", t.Merchant},
		{"Category", t.Category},
		{"Type", string(t.Type)},
		{"Link ID", t.LinkID},
		{"Link", FormatLink(t)},
		{"Message", t.Body},
	}

	var b strings.Builder
	for _, f := range fields {
		if f[1] == "" {
			continue
		}
		fmt.Fprintf(&b, "%-9s %s\n", f[0]+":", f[1])
	}
	return strings.TrimRight(b.String(), "\n")
}

// shortID trims uuids for tables. Prefixes are accepted by commands that take ids.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
