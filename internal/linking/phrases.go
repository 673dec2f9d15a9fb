package linking

import (
	"regexp"
	"strings"

	"github.com/Veraticus/smsflow/internal/model"
)

// words compiles a case-insensitive alternation matched on word boundaries.
func words(list ...string) *regexp.Regexp {
	alts := make([]string, len(list))
	for i, w := range list {
		p := regexp.QuoteMeta(w)
		if isWordByte(w[0]) {
			p = `\b` + p
		}
		if isWordByte(w[len(w)-1]) {
			p += `\b`
		}
		alts[i] = p
	}
	return regexp.MustCompile(`(?i)(?:` + strings.Join(alts, "|") + `)`)
}

func isWordByte(b byte) bool {
	return b == '_' || ('0' <= b && b <= '9') || ('a' <= b && b <= 'z') || ('A' <= b && b <= 'Z')
}

var (
	cardBillPhrase = regexp.MustCompile(`(?i)\b(?:credit\s*card|cc|card)\s+(?:bill|dues)\b` +
		`|\bcredit\s*card\s+(?:payment|repayment)\b` +
		`|\bpayment\b[^.]*\btowards\b[^.]*\bcard\b` +
		`|\bpayment received\b[^.]*\bcard\b`)

	walletWord    = words("wallet", "paytm", "phonepe", "mobikwik", "freecharge", "amazon pay", "ola money", "jio money")
	deductionWord = words("deducted", "deduction")

	assetDestination = words("mutual fund", "mutual funds", "sip", "epf", "nps", "ppf", "recurring deposit",
		"fixed deposit", "rd", "fd")
	interestWord = words("interest")

	walletPhrase = regexp.MustCompile(`(?i)\b(?:added|loaded|transferred)\s+to\s+(?:your\s+)?(?:\w+\s+)?wallet\b` +
		`|\bwallet\s+(?:top-?up|recharge|load(?:ed)?)\b`)

	internalMarker = words("INF/", "INFT", "IFT", "self transfer", "own account", "own a/c")

	transferWord = words("transfer", "transferred", "sent to", "upi", "deposit", "deposited", "credited by")

	cardWord  = words("credit card", "debit card", "card")
	spendWord = words("spent", "purchase", "used", "txn at", "transaction at")
	billWord  = words("bill", "payment", "dues", "towards", "repay", "repayment")
)

// Phrase tag patterns in the order they are tried.
var phraseTags = []struct {
	re  *regexp.Regexp
	tag model.PhraseTag
}{
	{tag: model.PhrasePersonTransfer, re: words("sent to", "received from", "transfer to", "transfer from",
		"transferred to", "transferred from", "upi/p2p", "p2p")},
	{tag: model.PhraseDepositFrom, re: regexp.MustCompile(`(?i)\bdeposit(?:ed)?\b.*\bfrom\b`)},
	{tag: model.PhraseCreditedTo, re: words("credited to")},
	{tag: model.PhraseDebitedFrom, re: words("debited from")},
}

// IsCardBillPayment reports whether a body reads as paying off a credit card.
func IsCardBillPayment(body string) bool {
	return cardBillPhrase.MatchString(body)
}

func isWalletDeduction(body string) bool {
	return walletWord.MatchString(body) && deductionWord.MatchString(body)
}

func isAssetDestination(body string) bool {
	return assetDestination.MatchString(body) && !interestWord.MatchString(body)
}

func isWalletPhrase(body string) bool {
	return walletPhrase.MatchString(body)
}

func hasInternalMarker(body string) bool {
	return internalMarker.MatchString(body)
}

// isTransferLike reports phrasing typical of money moved between accounts.
func isTransferLike(body string) bool {
	return transferWord.MatchString(body) || hasInternalMarker(body)
}

// isCardSpend reports a card purchase, which is never an internal transfer.
func isCardSpend(body string) bool {
	return cardWord.MatchString(body) && spendWord.MatchString(body) && !billWord.MatchString(body)
}

// PhraseTagOf gives the coarse phrase category of a message body.
func PhraseTagOf(body string) model.PhraseTag {
	if isWalletDeduction(body) {
		return model.PhraseWalletDeduction
	}
	for _, p := range phraseTags {
		if p.re.MatchString(body) {
			return p.tag
		}
	}
	return model.PhraseOther
}
