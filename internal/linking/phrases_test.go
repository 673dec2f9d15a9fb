package linking

import (
	"testing"

	"github.com/Veraticus/smsflow/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestPhraseTagOf(t *testing.T) {
	tests := []struct {
		body string
		want model.PhraseTag
	}{
		{"Rs 500 sent to Ravi via UPI", model.PhrasePersonTransfer},
		{"Rs 500 received from Ravi", model.PhrasePersonTransfer},
		{"UPI/P2P/412345/RAVI", model.PhrasePersonTransfer},
		{"Rs 1000 deposited in your a/c from NEFT", model.PhraseDepositFrom},
		{"Rs 1000 credited to your a/c XX1234", model.PhraseCreditedTo},
		{"Rs 1000 debited from your a/c XX1234", model.PhraseDebitedFrom},
		{"Rs 99 deducted from your Paytm wallet", model.PhraseWalletDeduction},
		{"Your bill of Rs 450 is due", model.PhraseOther},
	}
	for _, tt := range tests {
		t.Run(tt.body, func(t *testing.T) {
			assert.Equal(t, tt.want, PhraseTagOf(tt.body))
		})
	}
}

func TestPhraseMatchers(t *testing.T) {
	assert.True(t, IsCardBillPayment("Payment of Rs 5000 received towards your credit card XX1234"))
	assert.True(t, IsCardBillPayment("Your credit card bill of Rs 1200 is paid"))
	assert.False(t, IsCardBillPayment("Rs 500 spent on card XX1234 at Amazon"))

	assert.True(t, isWalletDeduction("Rs 99 deducted from your Paytm wallet"))
	assert.False(t, isWalletDeduction("Rs 99 added to your Paytm wallet"))

	assert.True(t, isAssetDestination("Rs 5000 SIP installment for HDFC Mutual Fund debited"))
	assert.False(t, isAssetDestination("Interest of Rs 120 credited on your FD"))
	assert.False(t, isAssetDestination("Rs 500 paid to Ford Motors"))

	assert.True(t, isWalletPhrase("Rs 200 added to your Paytm wallet"))
	assert.True(t, isWalletPhrase("Wallet top-up of Rs 200 successful"))

	assert.True(t, hasInternalMarker("Rs 1000 debited INF/INFT/12345/Savings"))
	assert.True(t, hasInternalMarker("Self transfer of Rs 1000"))
	assert.False(t, hasInternalMarker("Rs 1000 paid at Infinity Mall"))

	assert.True(t, isCardSpend("Rs 500 spent on card XX1234 at Amazon"))
	assert.False(t, isCardSpend("Payment of Rs 500 towards card XX1234 used"))
}
