package engine

import (
	"context"
	"testing"
	"time"

	"github.com/Veraticus/smsflow/internal/common"
	"github.com/Veraticus/smsflow/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	hdfcBody    = "Rs 500 debited from A/c XX1234"
	hdfcBody2   = "Rs 750 debited from A/c XX1234"
	swiggyBody  = "Rs 500 debited from A/c XX1234 to Swiggy"
	swiggyBody2 = "Rs 320 debited from A/c XX1234 to Swiggy"
)

func TestCorrectMerchantAndCategory(t *testing.T) {
	ctx := context.Background()
	e, store := newTestEngine(t)

	_, err := e.ImportMessages(ctx, []model.RawMessage{
		raw("VM-HDFCBK", hdfcBody, 0),
		raw("JD-HDFCBK-S", hdfcBody2, time.Hour),
		raw("AD-ICICIB", swiggyBody, 2*time.Hour),
	})
	require.NoError(t, err)

	plain := findByBody(t, store, hdfcBody)
	n, err := e.CorrectMerchant(ctx, plain.ID, "HDFC Savings")
	require.NoError(t, err)
	assert.Equal(t, 2, n, "every route of the sender is reclassified")

	assert.Equal(t, "HDFC Savings", findByBody(t, store, hdfcBody).Merchant)
	assert.Equal(t, "HDFC Savings", findByBody(t, store, hdfcBody2).Merchant)
	assert.Equal(t, "Swiggy", findByBody(t, store, swiggyBody).Merchant)

	n, err = e.CorrectCategory(ctx, plain.ID, "banking")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, "BANKING", findByBody(t, store, hdfcBody2).Category)

	value, ok, err := store.Get(ctx, "category:hdfc savings")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "BANKING", value)

	n, err = e.CorrectCategory(ctx, plain.ID, "BANKING")
	require.NoError(t, err)
	assert.Equal(t, 0, n, "unchanged records are not rewritten")
}

func TestCorrect_Errors(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t)

	_, err := e.CorrectMerchant(ctx, "missing", "X")
	assert.ErrorIs(t, err, common.ErrNotFound)

	_, err = e.CorrectMerchant(ctx, "missing", "  ")
	var userErr *common.UserError
	assert.ErrorAs(t, err, &userErr)

	_, err = e.CorrectCategory(ctx, "missing", "FOOD")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestSetIgnored(t *testing.T) {
	ctx := context.Background()
	e, store := newTestEngine(t)

	_, err := e.ImportMessages(ctx, []model.RawMessage{raw("AD-ICICIB", swiggyBody, 0)})
	require.NoError(t, err)
	first := findByBody(t, store, swiggyBody)

	n, err := e.SetIgnored(ctx, first.ID, true, false)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.True(t, findByBody(t, store, swiggyBody).IsIgnored)

	n, err = e.SetIgnored(ctx, first.ID, false, false)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = e.SetIgnored(ctx, first.ID, true, true)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	stats, err := e.ImportMessages(ctx, []model.RawMessage{raw("AD-ICICIB", swiggyBody2, time.Hour)})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Ignored, "new records of an ignored merchant are stored ignored")
	assert.True(t, findByBody(t, store, swiggyBody2).IsIgnored)

	n, err = e.SetIgnored(ctx, first.ID, false, true)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, ok, err := store.Get(ctx, model.IgnorePatternKey("Swiggy"))
	require.NoError(t, err)
	assert.False(t, ok)
}
