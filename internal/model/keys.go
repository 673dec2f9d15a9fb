package model

import (
	"regexp"
	"strings"
	"unicode"
)

// PhraseTag is a coarse description of how a message words a money movement.
type PhraseTag string

// Phrase tags used in learned link pattern keys.
const (
	PhrasePersonTransfer  PhraseTag = "person_transfer"
	PhraseDepositFrom     PhraseTag = "deposit_from"
	PhraseCreditedTo      PhraseTag = "credited_to"
	PhraseDebitedFrom     PhraseTag = "debited_from"
	PhraseWalletDeduction PhraseTag = "wallet_deduction"
	PhraseOther           PhraseTag = "other"
)

// Override key prefixes.
const (
	MerchantOverridePrefix = "merchant:"
	CategoryOverridePrefix = "category:"
	IgnorePatternPrefix    = "ignore_pattern:"
)

// routePrefix matches operator headers such as "VM-" and DLT suffixes such as "-S".
var (
	routePrefix = regexp.MustCompile(`^[A-Za-z]{2}-`)
	routeSuffix = regexp.MustCompile(`-[A-Za-z]$`)
)

// NormalizeMerchant strips non-alphanumeric characters from every word and capitalizes
// the first letter of each word. It is idempotent.
func NormalizeMerchant(name string) string {
	words := strings.Fields(name)
	out := make([]string, 0, len(words))
	for _, w := range words {
		runes := make([]rune, 0, len(w))
		for _, r := range w {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				runes = append(runes, r)
			}
		}
		if len(runes) == 0 {
			continue
		}
		runes[0] = unicode.ToUpper(runes[0])
		out = append(out, string(runes))
	}
	return strings.Join(out, " ")
}

// MerchantKey is the lowercase normalized form used in override and pattern keys.
func MerchantKey(name string) string {
	return strings.ToLower(NormalizeMerchant(name))
}

// CleanSender removes operator route decorations from an SMS sender id.
func CleanSender(sender string) string {
	s := strings.TrimSpace(sender)
	s = routePrefix.ReplaceAllString(s, "")
	s = routeSuffix.ReplaceAllString(s, "")
	return s
}

// SenderKey is the normalized sender used in merchant override keys.
func SenderKey(sender string) string {
	return MerchantKey(CleanSender(sender))
}

// MerchantOverrideKey builds the override key holding a pretty merchant name for a sender.
func MerchantOverrideKey(name string) string {
	return MerchantOverridePrefix + MerchantKey(name)
}

// SenderMerchantOverrideKey builds the override key naming the merchant of every
// message from a sender, whatever its route decorations.
func SenderMerchantOverrideKey(sender string) string {
	return MerchantOverridePrefix + SenderKey(sender)
}

// CategoryOverrideKey builds the override key holding a category for a merchant.
func CategoryOverrideKey(merchant string) string {
	return CategoryOverridePrefix + MerchantKey(merchant)
}

// IgnorePatternKey builds the override key marking a merchant as always ignored.
func IgnorePatternKey(merchant string) string {
	return IgnorePatternPrefix + MerchantKey(merchant)
}

// PatternKey builds a learned link pattern key "{merchant}|{phrase}".
func PatternKey(merchant string, tag PhraseTag) string {
	return MerchantKey(merchant) + "|" + string(tag)
}
