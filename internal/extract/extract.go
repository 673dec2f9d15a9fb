// Package extract decides whether a message body carries a transaction amount.
package extract

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// rejectPhrases mark failed, reversed, future-dated or promotional messages. A match
// rejects the message even when a well-formed amount is present.
var rejectPhrases = []string{
	"failed",
	"failure",
	"declined",
	"unsuccessful",
	"reversed",
	"reversal",
	"could not be processed",
	"will be debited",
	"will be deducted",
	"will be charged",
	"is due",
	"due on",
	"due by",
	"payment due",
	"get cashback",
	"win cashback",
	"earn cashback",
	"cashback offer",
	"cashback up to",
	"cashback upto",
}

var (
	currencyAmount = regexp.MustCompile(`(?i)(?:\b(?:rs\.?|inr)|₹)\s*([0-9][0-9,]*(?:\.[0-9]+)?)`)
	bareNumeral    = regexp.MustCompile(`^[0-9][0-9,]*(?:\.[0-9]+)?$`)

	minPlausible = decimal.NewFromInt(1)
	maxPlausible = decimal.NewFromInt(10_000_000)
)

// Result is the outcome of amount extraction.
type Result struct {
	Amount   decimal.Decimal
	Reason   string
	Rejected bool
}

// Extract filters the body and pulls out the first plausible amount.
func Extract(body string) Result {
	lower := strings.ToLower(body)
	for _, phrase := range rejectPhrases {
		if strings.Contains(lower, phrase) {
			return Result{Rejected: true, Reason: fmt.Sprintf("reject phrase %q", phrase)}
		}
	}

	for _, m := range currencyAmount.FindAllStringSubmatch(body, -1) {
		// A zero amount (mandate checks, "Rs 0.00 debited") is not money moving.
		if amount, ok := parseNumeral(m[1]); ok && amount.IsPositive() {
			return Result{Amount: amount, Reason: fmt.Sprintf("currency amount %q", strings.TrimSpace(m[0]))}
		}
	}

	for _, field := range strings.Fields(body) {
		token := strings.Trim(field, ".,;:!?()[]\"'")
		if !bareNumeral.MatchString(token) {
			continue
		}
		amount, ok := parseNumeral(token)
		if !ok || amount.LessThan(minPlausible) || amount.GreaterThan(maxPlausible) {
			continue
		}
		return Result{Amount: amount, Reason: fmt.Sprintf("bare numeral %q", token)}
	}

	return Result{Rejected: true, Reason: "no amount found"}
}

// ExtractAmount returns the amount of a transactional body, or false when rejected.
func ExtractAmount(body string) (decimal.Decimal, bool) {
	r := Extract(body)
	if r.Rejected {
		return decimal.Zero, false
	}
	return r.Amount, true
}

func parseNumeral(s string) (decimal.Decimal, bool) {
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSuffix(s, ".")
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}
