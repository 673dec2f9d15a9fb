package classify

import (
	"context"
	"regexp"
	"strings"
	"unicode"

	"github.com/Veraticus/smsflow/internal/model"
)

// MerchantResult is the outcome of merchant extraction. Name is empty when unknown.
type MerchantResult struct {
	Name   string
	Reason string
}

type merchantInput struct {
	sender     string
	body       string
	senderType model.SenderType
}

var (
	gatewayPhrase = regexp.MustCompile(`(?i)\b(?:via|by)\s+(?:razorpay|payu|billdesk|ccavenue|cashfree|juspay|instamojo|stripe|paytm|phonepe)\b[\s*:/-]*(?:(?:for|to|at)\s+)?`)
	toPhrase      = regexp.MustCompile(`(?i)\b(?:paid to|sent to|payment to|transferred to|to)\s+`)
	atPhrase      = regexp.MustCompile(`(?i)\bat\s+`)
	fromPhrase    = regexp.MustCompile(`(?i)\bfrom\s+`)
	maskedAccount = regexp.MustCompile(`(?i)^(?:[x*]+[0-9]*|[0-9]+)$`)
)

// nameStopWords end a multi-word name.
var nameStopWords = map[string]bool{
	"on": true, "via": true, "for": true, "at": true, "ref": true, "from": true, "to": true,
	"using": true, "with": true, "upi": true, "txn": true, "dated": true, "avl": true,
	"bal": true, "and": true, "is": true, "has": true, "was": true, "by": true, "of": true,
	"in": true, "info": true,
}

// nonNameWords can never start a merchant name.
var nonNameWords = map[string]bool{
	"your": true, "you": true, "the": true, "a/c": true, "ac": true, "acct": true,
	"account": true, "card": true, "wallet": true, "bank": true, "mobile": true, "vpa": true,
	"beneficiary": true, "self": true, "my": true, "a": true, "an": true, "rs": true,
	"inr": true, "be": true, "avoid": true, "pay": true, "check": true, "know": true,
	"view": true, "get": true, "call": true, "sms": true, "report": true, "block": true,
	"dispute": true, "this": true, "it": true, "us": true,
}

var merchantRules = []rule[merchantInput, string]{
	{
		name: "merchant sender",
		match: func(in merchantInput) (string, bool) {
			if in.senderType != model.SenderMerchant {
				return "", false
			}
			k, ok := merchantInSender(strings.ToUpper(model.CleanSender(in.sender)))
			return k.name, ok
		},
	},
	{
		name: "merchant keyword in body",
		match: func(in merchantInput) (string, bool) {
			token, ok := merchantBodyList.find(in.body)
			if !ok {
				return "", false
			}
			return merchantByToken[token], true
		},
	},
	{name: "payment gateway phrase", match: phraseName(gatewayPhrase)},
	{name: "payee phrase", match: phraseName(toPhrase)},
	{name: "point of sale phrase", match: phraseName(atPhrase)},
	{name: "payer phrase", match: phraseName(fromPhrase)},
	{
		name: "bank sender",
		match: func(in merchantInput) (string, bool) {
			if in.senderType != model.SenderBank {
				return "", false
			}
			name := model.CleanSender(in.sender)
			return name, name != ""
		},
	},
}

// ExtractMerchant finds the counterparty of a message, applying user overrides first
// by sender and then on the derived name.
func ExtractMerchant(ctx context.Context, o Overrides, sender string, senderType model.SenderType, body string) (MerchantResult, error) {
	if v, ok, err := lookup(ctx, o, model.SenderMerchantOverrideKey(sender)); err != nil {
		return MerchantResult{}, err
	} else if ok {
		return MerchantResult{Name: v, Reason: "override for sender"}, nil
	}

	r, detail, ok := firstMatch(merchantRules, merchantInput{sender: sender, senderType: senderType, body: body})
	if !ok {
		return MerchantResult{Reason: "no merchant found"}, nil
	}

	name := model.NormalizeMerchant(detail)
	if name == "" {
		return MerchantResult{Reason: "no merchant found"}, nil
	}

	v, found, err := lookup(ctx, o, model.MerchantOverrideKey(name))
	if err != nil {
		return MerchantResult{}, err
	}
	if found {
		return MerchantResult{Name: v, Reason: reason("override for derived name", name)}, nil
	}
	return MerchantResult{Name: name, Reason: reason(r.name, name)}, nil
}

// phraseName builds a predicate that reads a name after each occurrence of a phrase and
// returns the first acceptable one.
func phraseName(phrase *regexp.Regexp) func(merchantInput) (string, bool) {
	return func(in merchantInput) (string, bool) {
		for _, loc := range phrase.FindAllStringIndex(in.body, -1) {
			if name, ok := readName(in.body[loc[1]:]); ok {
				return name, true
			}
		}
		return "", false
	}
}

// readName collects up to three words of a name from the start of text.
func readName(text string) (string, bool) {
	fields := strings.Fields(text)
	words := make([]string, 0, 3)
	for i, f := range fields {
		if len(words) == 3 {
			break
		}
		if at := strings.IndexByte(f, '@'); at >= 0 {
			// A VPA is a complete payee on its own.
			if i == 0 && at > 0 {
				words = append(words, f[:at])
			}
			break
		}
		trimmed := strings.TrimRight(f, ".,;:!?)")
		lower := strings.ToLower(trimmed)
		if trimmed == "" || nameStopWords[lower] {
			break
		}
		if i == 0 {
			if nonNameWords[lower] || maskedAccount.MatchString(trimmed) || !startsWithLetter(trimmed) {
				return "", false
			}
		} else if !startsWithUpper(trimmed) || maskedAccount.MatchString(trimmed) {
			break
		}
		words = append(words, trimmed)
		if trimmed != f {
			// Trailing punctuation ends the name.
			break
		}
	}
	if len(words) == 0 {
		return "", false
	}
	return strings.Join(words, " "), true
}

func startsWithLetter(s string) bool {
	r := firstRune(s)
	return unicode.IsLetter(r)
}

func startsWithUpper(s string) bool {
	r := firstRune(s)
	return unicode.IsUpper(r)
}
