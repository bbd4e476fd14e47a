package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordUpstream_defaultsAction(t *testing.T) {
	before := testutil.ToFloat64(upstreamRequests.WithLabelValues("authenticate", "ok"))
	RecordUpstream("", "ok", 20*time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(upstreamRequests.WithLabelValues("authenticate", "ok")))
}

func TestRecordConnect(t *testing.T) {
	before := testutil.ToFloat64(connects.WithLabelValues("success"))
	RecordConnect("success")
	assert.Equal(t, before+1, testutil.ToFloat64(connects.WithLabelValues("success")))
}

func TestRecordSwept_ignoresZero(t *testing.T) {
	before := testutil.ToFloat64(sessionsSwept)
	RecordSwept(0)
	RecordSwept(3)
	assert.Equal(t, before+3, testutil.ToFloat64(sessionsSwept))
}
