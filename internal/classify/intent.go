package classify

import (
	"regexp"

	"github.com/Veraticus/smsflow/internal/model"
)

// IntentResult is the outcome of intent classification.
type IntentResult struct {
	Type   model.IntentType
	Reason string
}

type intentInput struct {
	senderType model.SenderType
	body       string
}

var (
	futureDebitList = newPhraseList(
		"will be debited", "will be deducted", "to be debited", "will be charged",
		"will be auto-debited", "is scheduled", "scheduled for",
	)
	reminderList = newPhraseList(
		"reminder", "is due", "due on", "due date", "overdue", "pay by", "last date",
		"minimum amount due",
	)
	balanceList = newPhraseList(
		"balance enquiry", "balance inquiry", "balance as on", "balance as of",
		"account balance is", "a/c balance is", "available balance is", "current balance is",
	)
	pendingList = newPhraseList(
		"pending", "initiated", "is being processed", "in process", "awaiting",
	)
	debitList = newPhraseList(
		"debited", "spent", "paid to", "sent to", "withdrawn", "withdrawal", "purchase of",
		"purchased", "deducted", "debit of", "transferred to", "you paid", "paid for",
		"paid rs", "paid inr", "paid ₹", "payment made", "charged",
	)
	creditList = newPhraseList(
		"credited", "received", "deposited", "added to", "credit of", "has been added",
	)
	refundList = newPhraseList("refund", "refunded")

	upiMention    = regexp.MustCompile(`(?i)\bupi\b`)
	upiDebitShape = regexp.MustCompile(`(?i)(?:/dr/|\bdr\b|to vpa|upi/p2[pm])`)
)

var intentRules = []rule[intentInput, model.IntentType]{
	{name: "future-tense debit", result: model.IntentIgnore, match: matcher(futureDebitList, intentBody)},
	{name: "reminder wording", result: model.IntentReminder, match: matcher(reminderList, intentBody)},
	{name: "OTP wording", result: model.IntentPromo, match: matcher(otpList, intentBody)},
	{name: "balance wording", result: model.IntentBalance, match: matcher(balanceList, intentBody)},
	{name: "pending wording", result: model.IntentPending, match: matcher(pendingList, intentBody)},
	{name: "debit keyword", result: model.IntentDebit, match: matcher(debitList, intentBody)},
	{name: "UPI debit shape", result: model.IntentDebit, match: upiDebit},
	{name: "credit keyword", result: model.IntentCredit, match: matcher(creditList, intentBody)},
	{name: "refund wording", result: model.IntentRefund, match: matcher(refundList, intentBody)},
	{
		name:   "promotional sender",
		result: model.IntentPromo,
		match: func(in intentInput) (string, bool) {
			return string(in.senderType), in.senderType == model.SenderPromotional
		},
	},
}

func intentBody(in intentInput) string { return in.body }

// upiDebit recognises terse UPI debit notices that carry no debit verb.
func upiDebit(in intentInput) (string, bool) {
	if in.senderType == model.SenderPromotional || !upiMention.MatchString(in.body) {
		return "", false
	}
	if creditList.matches(in.body) {
		return "", false
	}
	m := upiDebitShape.FindString(in.body)
	return m, m != ""
}

// ClassifyIntent decides what the message is telling the user about their money.
func ClassifyIntent(senderType model.SenderType, body string) IntentResult {
	r, detail, ok := firstMatch(intentRules, intentInput{senderType: senderType, body: body})
	if !ok {
		return IntentResult{Type: model.IntentUnknown, Reason: "no intent rule matched"}
	}
	return IntentResult{Type: r.result, Reason: reason(r.name, detail)}
}
