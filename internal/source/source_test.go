package source

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Veraticus/smsflow/internal/common"
	"github.com/Veraticus/smsflow/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ts = int64(1710237600000) // 2024-03-12 10:00 UTC

var tsTime = time.Date(2024, 3, 12, 10, 0, 0, 0, time.UTC)

func readAll(t *testing.T, src Source) ([]model.RawMessage, []error) {
	t.Helper()
	var skipped []error
	msgs, err := ReadAll(context.Background(), src, func(err error) { skipped = append(skipped, err) })
	require.NoError(t, err)
	return msgs, skipped
}

func TestJSONL(t *testing.T) {
	input := `{"sender":"VM-HDFCBK","body":"Rs 500 debited","timestamp_ms":1710237600000}

{"sender":"AD-ICICIB","body":"Rs 20 credited","timestamp_ms":1710237660000}
not json
{"sender":"AD-ICICIB","body":"","timestamp_ms":1710237660000}
`
	src, err := NewReader(strings.NewReader(input), FormatJSONL)
	require.NoError(t, err)

	msgs, skipped := readAll(t, src)
	require.Len(t, msgs, 2)
	assert.Equal(t, model.RawMessage{Sender: "VM-HDFCBK", Body: "Rs 500 debited", Timestamp: tsTime}, msgs[0])
	assert.Equal(t, tsTime.Add(time.Minute), msgs[1].Timestamp)

	require.Len(t, skipped, 2)
	for _, err := range skipped {
		assert.ErrorIs(t, err, common.ErrMalformedRow)
	}
	assert.Contains(t, skipped[0].Error(), "row 4")
}

func TestJSONL_OverlongLineIsSkipped(t *testing.T) {
	long := `{"sender":"VM-HDFCBK","body":"` + strings.Repeat("x", maxLineBytes) + `","timestamp_ms":1710237600000}`
	input := long + "\n" +
		`{"sender":"AD-ICICIB","body":"Rs 20 credited","timestamp_ms":1710237600000}` + "\n" +
		long

	src, err := NewReader(strings.NewReader(input), FormatJSONL)
	require.NoError(t, err)

	msgs, skipped := readAll(t, src)
	require.Len(t, msgs, 1)
	assert.Equal(t, "Rs 20 credited", msgs[0].Body)

	require.Len(t, skipped, 2)
	assert.ErrorIs(t, skipped[0], common.ErrMalformedRow)
	assert.Contains(t, skipped[0].Error(), "row 1")
	assert.Contains(t, skipped[1].Error(), "row 3")
}

func TestCSV(t *testing.T) {
	input := "body,sender,timestamp_ms\n" +
		"\"Rs 500 debited, ref 123\",VM-HDFCBK,1710237600000\n" +
		"Rs 20 credited,AD-ICICIB,yesterday\n" +
		"short\n"

	src, err := NewReader(strings.NewReader(input), FormatCSV)
	require.NoError(t, err)

	msgs, skipped := readAll(t, src)
	require.Len(t, msgs, 1)
	assert.Equal(t, "Rs 500 debited, ref 123", msgs[0].Body)
	assert.Equal(t, "VM-HDFCBK", msgs[0].Sender)
	assert.Equal(t, tsTime, msgs[0].Timestamp)
	assert.Len(t, skipped, 2)
}

func TestCSV_MissingColumn(t *testing.T) {
	_, err := NewReader(strings.NewReader("sender,body\nA,B\n"), FormatCSV)
	assert.ErrorIs(t, err, common.ErrUnknownFormat)
}

func TestXML(t *testing.T) {
	input := `<?xml version='1.0' encoding='UTF-8' standalone='yes' ?>
<smses count="3">
  <sms protocol="0" address="VM-HDFCBK" date="1710237600000" type="1" body="Rs 500 debited from a/c XX1234" read="1" />
  <sms protocol="0" address="+919800000000" date="1710237600500" type="2" body="sent by me" read="1" />
  <sms protocol="0" address="AD-ICICIB" date="1710237660000" type="1" body="Rs 20 credited &amp; more" read="1" />
</smses>`

	src, err := NewReader(strings.NewReader(input), FormatXML)
	require.NoError(t, err)

	msgs, skipped := readAll(t, src)
	assert.Empty(t, skipped)
	require.Len(t, msgs, 2)
	assert.Equal(t, "VM-HDFCBK", msgs[0].Sender)
	assert.Equal(t, tsTime, msgs[0].Timestamp)
	assert.Equal(t, "Rs 20 credited & more", msgs[1].Body)
}

func TestNext_EOF(t *testing.T) {
	src, err := NewReader(strings.NewReader(""), FormatJSONL)
	require.NoError(t, err)

	_, err = src.Next(context.Background())
	assert.ErrorIs(t, err, io.EOF)
	assert.NoError(t, src.Close())
}

func TestNext_Cancelled(t *testing.T) {
	src, err := NewReader(strings.NewReader(`{"sender":"A","body":"B","timestamp_ms":1}`+"\n"), FormatJSONL)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = src.Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReadAll_AbortsWithoutSkip(t *testing.T) {
	src, err := NewReader(strings.NewReader("garbage\n"), FormatJSONL)
	require.NoError(t, err)

	_, err = ReadAll(context.Background(), src, nil)
	assert.ErrorIs(t, err, common.ErrMalformedRow)
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatAuto, false},
		{"AUTO", FormatAuto, false},
		{"csv", FormatCSV, false},
		{"ndjson", FormatJSONL, false},
		{"xml", FormatXML, false},
		{"ofx", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, common.ErrUnknownFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOpen_DetectsFormat(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "messages.csv")
	require.NoError(t, os.WriteFile(path, []byte("sender,timestamp_ms,body\nVM-HDFCBK,1710237600000,Rs 5 debited\n"), 0o600))

	src, err := Open(path, FormatAuto)
	require.NoError(t, err)
	defer func() { _ = src.Close() }()

	msgs, err := ReadAll(context.Background(), src, nil)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "Rs 5 debited", msgs[0].Body)

	_, err = Open(filepath.Join(dir, "messages.txt"), FormatAuto)
	assert.ErrorIs(t, err, common.ErrUnknownFormat)

	_, err = Open(filepath.Join(dir, "missing.csv"), FormatAuto)
	assert.Error(t, err)
}

func TestTimestampConstant(t *testing.T) {
	assert.Equal(t, ts, tsTime.UnixMilli())
}
