package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveRefresh(t *testing.T) {
	m := New("nereus")
	m.ObserveRefresh(time.Second, 4, nil)
	m.ObserveRefresh(time.Second, 9, errors.New("boom"))

	assert.Equal(t, float64(4), testutil.ToFloat64(m.markets))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.refreshFailures))
}

func TestCounters(t *testing.T) {
	m := New("nereus")
	m.ChatMessage()
	m.ChatMessage()
	m.TxBuilt("buy")
	m.HTTPRequest(http.MethodGet, 200)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.chatMessages))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.txBuilt.WithLabelValues("buy")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "200")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveRefresh(time.Second, 1, nil)
	m.ChatMessage()
	m.TxBuilt("buy")
	m.HTTPRequest("GET", 200)
	assert.Nil(t, m.Registry())
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New("nereus")
	m.ChatMessage()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "nereus_chat_messages_total 1")
}
