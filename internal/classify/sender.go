package classify

import (
	"strings"
	"unicode"

	"github.com/Veraticus/smsflow/internal/model"
)

// SenderResult is the outcome of sender classification.
type SenderResult struct {
	Type   model.SenderType
	Reason string
}

type senderInput struct {
	id      string // cleaned, uppercase sender id
	body    string
	numeric bool
}

var senderRules = []rule[senderInput, model.SenderType]{
	{
		name:   "numeric sender with OTP body",
		result: model.SenderPromotional,
		match: func(in senderInput) (string, bool) {
			if !in.numeric {
				return "", false
			}
			return otpList.find(in.body)
		},
	},
	{
		name:   "numeric sender",
		result: model.SenderPersonal,
		match: func(in senderInput) (string, bool) {
			return in.id, in.numeric
		},
	},
	{
		name:   "bank sender token",
		result: model.SenderBank,
		match: func(in senderInput) (string, bool) {
			return containsToken(in.id, bankSenderTokens)
		},
	},
	{
		name:   "wallet sender token",
		result: model.SenderWallet,
		match: func(in senderInput) (string, bool) {
			return containsToken(in.id, walletSenderTokens)
		},
	},
	{
		name:   "merchant sender token",
		result: model.SenderMerchant,
		match: func(in senderInput) (string, bool) {
			k, ok := merchantInSender(in.id)
			return k.token, ok
		},
	},
	{
		name:   "promotional keyword",
		result: model.SenderPromotional,
		match: func(in senderInput) (string, bool) {
			if t, ok := containsToken(in.id, promoSenderTokens); ok {
				return strings.ToLower(t), true
			}
			return promoBodyList.find(in.body)
		},
	},
}

// ClassifySender decides what kind of party sent the message.
func ClassifySender(sender, body string) SenderResult {
	in := senderInput{
		id:      strings.ToUpper(model.CleanSender(sender)),
		body:    body,
		numeric: isNumericSender(sender),
	}

	r, detail, ok := firstMatch(senderRules, in)
	if !ok {
		return SenderResult{Type: model.SenderUnknown, Reason: "no sender rule matched"}
	}
	return SenderResult{Type: r.result, Reason: reason(r.name, detail)}
}

func isNumericSender(sender string) bool {
	s := strings.TrimPrefix(strings.TrimSpace(sender), "+")
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
