package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"portfolio-dashboard/src/config"
	"portfolio-dashboard/src/interfaces"
	"portfolio-dashboard/src/logger"
	"portfolio-dashboard/src/models"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ interfaces.IDashboardSink = (*DashboardServer)(nil)

type fixedMarket bool

func (m fixedMarket) IsOpen(time.Time) bool { return bool(m) }

type fixedStatus []models.MRefreshStatus

func (f fixedStatus) Status() []models.MRefreshStatus { return f }

type recordingArchive struct {
	operation string
	limit     int
}

func (r *recordingArchive) RecentPayloads(_ context.Context, operation string, limit int) ([]models.MArchivedPayload, error) {
	r.operation, r.limit = operation, limit
	return []models.MArchivedPayload{{TickID: "t1", Operation: operation, Payload: json.RawMessage(`{}`)}}, nil
}

func newTestServer(t *testing.T) *DashboardServer {
	t.Helper()
	cfg := config.Defaults()
	s := NewDashboardServer(&cfg, logger.NewLoggerWithWriter(io.Discard, "INFO", "Server"))
	s.now = func() time.Time { return time.Unix(1700000000, 0) }
	return s
}

func getJSON(t *testing.T, s *DashboardServer, path string, out interface{}) {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
}

// -----------------------------------------------------------------------------

func TestSinkWritesUpdateSnapshot(t *testing.T) {
	s := newTestServer(t)

	require.NoError(t, s.SetText(models.ElementPortfolioValue, "$12,345.6"))
	require.NoError(t, s.UpdatePortfolioChart([]string{"2024-01-02"}, []float64{12345.6}))
	require.NoError(t, s.UpdateStockPerformanceChart(models.MStockPerformance(`{"AAPL":{"dates":[],"changes":[]}}`)))

	snap := s.Snapshot()
	assert.Equal(t, "$12,345.6", snap.Texts[models.ElementPortfolioValue])
	assert.Equal(t, []string{"2024-01-02"}, snap.Portfolio.Dates)
	assert.Equal(t, []float64{12345.6}, snap.Portfolio.Values)
	assert.JSONEq(t, `{"AAPL":{"dates":[],"changes":[]}}`, string(snap.Performance))
	assert.Equal(t, int64(1700000000), snap.Timestamp)
}

func TestSnapshotIsACopy(t *testing.T) {
	s := newTestServer(t)
	dates := []string{"2024-01-02"}
	require.NoError(t, s.UpdatePortfolioChart(dates, []float64{1}))
	dates[0] = "mutated"

	snap := s.Snapshot()
	snap.Texts["x"] = "y"

	assert.Equal(t, "2024-01-02", s.Snapshot().Portfolio.Dates[0])
	assert.NotContains(t, s.Snapshot().Texts, "x")
}

func TestDashboardEndpoint(t *testing.T) {
	s := newTestServer(t)
	require.NoError(t, s.SetText(models.ElementDailyChange, "1.23%"))

	var state models.MDashboardState
	getJSON(t, s, "/api/dashboard", &state)

	assert.Equal(t, "1.23%", state.Texts[models.ElementDailyChange])
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t)
	s.Market = fixedMarket(true)
	s.Refresh = fixedStatus{{Operation: models.OpPortfolioStats, Runs: 3, Failures: 1}}

	var health struct {
		Status      string                  `json:"status"`
		Connections int64                   `json:"connections"`
		MarketOpen  bool                    `json:"market_open"`
		Refresh     []models.MRefreshStatus `json:"refresh"`
	}
	getJSON(t, s, "/api/health", &health)

	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, int64(0), health.Connections)
	assert.True(t, health.MarketOpen)
	require.Len(t, health.Refresh, 1)
	assert.Equal(t, int64(3), health.Refresh[0].Runs)
}

func TestConfigEndpoint(t *testing.T) {
	s := newTestServer(t)

	var out map[string]interface{}
	getJSON(t, s, "/api/config", &out)

	assert.Equal(t, float64(300), out["refresh_interval_seconds"])
	assert.Equal(t, "USD", out["currency"])
}

func TestArchiveEndpoint(t *testing.T) {
	s := newTestServer(t)
	archive := &recordingArchive{}
	s.Archive = archive

	var rows []models.MArchivedPayload
	getJSON(t, s, "/api/archive/portfolio_stats?limit=500", &rows)

	require.Len(t, rows, 1)
	assert.Equal(t, "t1", rows[0].TickID)
	assert.Equal(t, models.OpPortfolioStats, archive.operation)
	assert.Equal(t, 100, archive.limit)
}

func TestArchiveEndpointErrors(t *testing.T) {
	s := newTestServer(t)

	cases := []struct {
		name    string
		archive ArchiveReader
		path    string
		code    int
	}{
		{"disabled", nil, "/api/archive/portfolio_stats", http.StatusNotFound},
		{"unknown operation", &recordingArchive{}, "/api/archive/orders", http.StatusNotFound},
		{"bad limit", &recordingArchive{}, "/api/archive/portfolio_stats?limit=-1", http.StatusBadRequest},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			s.Archive = tt.archive
			rec := httptest.NewRecorder()
			s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.code, rec.Code)
		})
	}
}

func TestStopBeforeStartPreventsServing(t *testing.T) {
	s := newTestServer(t)
	require.NoError(t, s.Stop(context.Background()))

	done := make(chan error, 1)
	go func() { done <- s.Start() }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Start kept serving after Stop")
	}
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/dashboard", nil)
	req.Header.Set("Origin", "http://127.0.0.1:3000")
	rec := httptest.NewRecorder()

	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://127.0.0.1:3000", rec.Header().Get("Access-Control-Allow-Origin"))
}

// -----------------------------------------------------------------------------
// WebSocket
// -----------------------------------------------------------------------------

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) models.MDashboardMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg models.MDashboardMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestWebSocketInitialThenUpdates(t *testing.T) {
	s := newTestServer(t)
	require.NoError(t, s.SetText(models.ElementTotalGain, "$-250"))
	go s.handleWebsockets()
	defer s.Stop(context.Background())

	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	// drain the write made before anyone was connected
	require.Eventually(t, func() bool { return len(s.broadcast) == 0 }, time.Second, time.Millisecond)

	conn := dial(t, srv)

	initial := readMessage(t, conn)
	assert.Equal(t, models.MessageInitial, initial.Type)
	require.NotNil(t, initial.State)
	assert.Equal(t, "$-250", initial.State.Texts[models.ElementTotalGain])

	require.Eventually(t, func() bool { return s.connections.Load() == 1 }, time.Second, time.Millisecond)

	require.NoError(t, s.SetText(models.ElementPortfolioValue, "$12,345.6"))
	msg := readMessage(t, conn)
	assert.Equal(t, models.MessageText, msg.Type)
	assert.Equal(t, models.ElementPortfolioValue, msg.ElementID)
	assert.Equal(t, "$12,345.6", msg.Text)

	require.NoError(t, s.UpdatePortfolioChart([]string{"2024-01-02"}, []float64{1}))
	msg = readMessage(t, conn)
	assert.Equal(t, models.MessagePortfolioChart, msg.Type)
	assert.Equal(t, []float64{1}, msg.Portfolio.Values)
}

func TestWebSocketSnapshotCommand(t *testing.T) {
	s := newTestServer(t)
	go s.handleWebsockets()
	defer s.Stop(context.Background())

	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	conn := dial(t, srv)
	assert.Equal(t, models.MessageInitial, readMessage(t, conn).Type)

	require.NoError(t, conn.WriteJSON(models.MClientCommand{Command: "snapshot"}))
	assert.Equal(t, models.MessageInitial, readMessage(t, conn).Type)
}

func TestWebSocketClientLeaveUnregisters(t *testing.T) {
	s := newTestServer(t)
	go s.handleWebsockets()
	defer s.Stop(context.Background())

	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	conn := dial(t, srv)
	assert.Equal(t, models.MessageInitial, readMessage(t, conn).Type)
	require.Eventually(t, func() bool { return s.connections.Load() == 1 }, time.Second, time.Millisecond)

	require.NoError(t, conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	conn.Close()

	require.Eventually(t, func() bool { return s.connections.Load() == 0 }, 2*time.Second, 5*time.Millisecond)
}

func TestBroadcastQueueFullDoesNotBlock(t *testing.T) {
	s := newTestServer(t)

	done := make(chan struct{})
	go func() {
		for i := 0; i < cap(s.broadcast)+10; i++ {
			s.SetText(models.ElementDailyChange, "0.00%")
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("sink write blocked on a full broadcast queue")
	}
}
