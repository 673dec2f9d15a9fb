package metrics

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := New()

	m.MessageN(OutcomeStored, 1)
	m.MessageN(OutcomeStored, 2)
	m.MessageN(OutcomeDropped, 0)
	m.MessageN(OutcomeRejected, 1)
	m.LinkApplied("same_day")
	m.LinkApplied("same_day")

	assert.InDelta(t, 3, testutil.ToFloat64(m.messages.WithLabelValues(OutcomeStored)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.messages.WithLabelValues(OutcomeRejected)), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.links.WithLabelValues("same_day")), 0)
	assert.Equal(t, 2, testutil.CollectAndCount(m.messages))
}

func TestWriteTextfile(t *testing.T) {
	m := New()
	m.MessageN(OutcomeDuplicate, 1)
	m.LinkApplied("card_bill")

	path := filepath.Join(t.TempDir(), "smsflow.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `smsflow_messages_total{outcome="duplicate"} 1`)
	assert.Contains(t, string(data), `smsflow_links_total{rule="card_bill"} 1`)
}

func TestWriteTextfile_BadPath(t *testing.T) {
	m := New()
	err := m.WriteTextfile(filepath.Join(t.TempDir(), "missing", "smsflow.prom"))
	assert.Error(t, err)
}
