package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Veraticus/smsflow/internal/common"
	"github.com/Veraticus/smsflow/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveID(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	store := db.Store
	db.Insert(
		testutil.NewTxn("abc123").Build(),
		testutil.NewTxn("abd456").At(testutil.BaseTime.Add(time.Minute)).Build(),
	)

	tests := []struct {
		name    string
		ref     string
		want    string
		wantErr bool
	}{
		{name: "exact id", ref: "abc123", want: "abc123"},
		{name: "unique prefix", ref: "abd", want: "abd456"},
		{name: "surrounding space", ref: " abc1 ", want: "abc123"},
		{name: "ambiguous prefix", ref: "ab", wantErr: true},
		{name: "no match", ref: "zz", wantErr: true},
		{name: "empty", ref: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveID(ctx, store, tt.ref)
			if tt.wantErr {
				require.Error(t, err)
				var userErr *common.UserError
				assert.True(t, errors.As(err, &userErr))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := resolveID(ctx, store, "zz")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestParseDateRange(t *testing.T) {
	now := time.Date(2024, 5, 17, 15, 30, 0, 0, time.Local)

	tests := []struct {
		name      string
		from, to  string
		wantStart time.Time
		wantEnd   time.Time
		wantErr   bool
	}{
		{
			name:      "defaults to current month",
			wantStart: time.Date(2024, 5, 1, 0, 0, 0, 0, time.Local),
			wantEnd:   time.Date(2024, 6, 1, 0, 0, 0, 0, time.Local).Add(-time.Millisecond),
		},
		{
			name:      "inclusive end day",
			from:      "2024-04-01",
			to:        "2024-04-30",
			wantStart: time.Date(2024, 4, 1, 0, 0, 0, 0, time.Local),
			wantEnd:   time.Date(2024, 5, 1, 0, 0, 0, 0, time.Local).Add(-time.Millisecond),
		},
		{
			name:      "single day",
			from:      "2024-03-12",
			to:        "2024-03-12",
			wantStart: time.Date(2024, 3, 12, 0, 0, 0, 0, time.Local),
			wantEnd:   time.Date(2024, 3, 13, 0, 0, 0, 0, time.Local).Add(-time.Millisecond),
		},
		{name: "bad from", from: "12/03/2024", wantErr: true},
		{name: "bad to", to: "yesterday", wantErr: true},
		{name: "reversed", from: "2024-04-02", to: "2024-04-01", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end, err := parseDateRange(tt.from, tt.to, now)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.wantStart.Equal(start), "start %v", start)
			assert.True(t, tt.wantEnd.Equal(end), "end %v", end)
		})
	}
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{" y \n", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
		{"yep\n", false},
	}

	for _, tt := range tests {
		t.Run(strings.TrimSpace(tt.input), func(t *testing.T) {
			var out bytes.Buffer
			got, err := confirm(strings.NewReader(tt.input), &out, "Continue?")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, "Continue? [y/N]: ", out.String())
		})
	}
}

func TestFormatFileSize(t *testing.T) {
	assert.Equal(t, "512 B", formatFileSize(512))
	assert.Equal(t, "1.5 KB", formatFileSize(1536))
	assert.Equal(t, "2.0 MB", formatFileSize(2*1024*1024))
}
