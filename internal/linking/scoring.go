package linking

import (
	"strings"
	"time"

	"github.com/Veraticus/smsflow/internal/model"
	"github.com/shopspring/decimal"
)

// Pair score weights. The maximum reachable score is 100.
const (
	WeightAmount    = 30
	WeightDirection = 20
	WeightName      = 20
	WeightBank      = 10
	WeightSameDay   = 20
	WeightOneDay    = 10
)

// Gates on merchant similarity, 0..100.
const (
	MinNameSimilarity       = 10
	MinInferenceSimilarity  = 20
	MinDelayedSimilarity    = 60
	delayedTransferMinDays  = 2
	delayedTransferMaxDays  = 35
	delayedTransferMinValue = 1000
)

var delayedTransferMinAmount = decimal.NewFromInt(delayedTransferMinValue)

// Score rates how likely two transactions are the two legs of one internal transfer.
// It is symmetric and returns 0 unless the amounts match and the directions are opposite.
func Score(a, b *model.Transaction) int {
	if !a.Type.Valid() || a.Type.Opposite() != b.Type || !a.Amount.Equal(b.Amount) {
		return 0
	}

	sim := Similarity(a.Merchant, b.Merchant)
	transferLike := isTransferLike(a.Body) && isTransferLike(b.Body)
	skipNameGate := transferLike || IsCardBillPayment(a.Body) || IsCardBillPayment(b.Body)

	if sim < MinNameSimilarity && !skipNameGate {
		return 0
	}
	if isCardSpend(a.Body) || isCardSpend(b.Body) {
		return 0
	}

	score := WeightAmount + WeightDirection + sim*WeightName/100
	if sameBank(a.Sender, b.Sender) {
		score += WeightBank
	}

	switch days := dayGap(a.Timestamp, b.Timestamp); {
	case days == 0:
		score += WeightSameDay
	case days == 1:
		score += WeightOneDay
	case days >= delayedTransferMinDays && days <= delayedTransferMaxDays &&
		a.Amount.GreaterThanOrEqual(delayedTransferMinAmount) && transferLike && sim >= MinDelayedSimilarity:
		score += WeightSameDay
	}

	return min(max(score, 0), 100)
}

// Similarity is the token Jaccard overlap of two merchant names scaled to 0..100.
func Similarity(a, b string) int {
	ta, tb := tokens(a), tokens(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	inter := 0
	for t := range ta {
		if tb[t] {
			inter++
		}
	}
	union := len(ta) + len(tb) - inter
	return inter * 100 / union
}

func tokens(name string) map[string]bool {
	set := make(map[string]bool)
	for _, f := range strings.Fields(model.MerchantKey(name)) {
		set[f] = true
	}
	return set
}

func sameBank(a, b string) bool {
	a = strings.TrimSpace(a)
	return a != "" && a == strings.TrimSpace(b)
}

// dayGap is the number of whole days between two instants.
func dayGap(a, b time.Time) int {
	d := a.Sub(b)
	if d < 0 {
		d = -d
	}
	return int(d / (24 * time.Hour))
}

func absDelta(a, b time.Time) time.Duration {
	d := a.Sub(b)
	if d < 0 {
		return -d
	}
	return d
}
