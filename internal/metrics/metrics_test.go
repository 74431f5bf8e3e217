package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"discord-dashboard/internal/model"
)

func TestHandlerExposesRecordedSeries(t *testing.T) {
	m := New()
	m.ObserveUpstream("guild", model.OriginFallback)
	m.ObserveRefresh("applied", 20*time.Millisecond)
	m.ObserveMessageSent(model.OriginLive)
	m.SetStreamClients(2)

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	body, err := io.ReadAll(rr.Body)
	require.NoError(t, err)
	text := string(body)
	assert.Contains(t, text, `discord_dashboard_upstream_requests_total{endpoint="guild",origin="fallback"} 1`)
	assert.Contains(t, text, `discord_dashboard_refreshes_total{outcome="applied"} 1`)
	assert.Contains(t, text, `discord_dashboard_messages_sent_total{origin="live"} 1`)
	assert.Contains(t, text, `discord_dashboard_stream_clients 2`)
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveUpstream("guild", model.OriginLive)
	m.ObserveRefresh("failed", time.Second)
	m.ObserveMessageSent(model.OriginFallback)
	m.SetStreamClients(1)

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
