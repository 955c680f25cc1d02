package refresher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"portfolio-dashboard/src/config"
	"portfolio-dashboard/src/format"
	"portfolio-dashboard/src/helpers"
	"portfolio-dashboard/src/logger"
	"portfolio-dashboard/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// -----------------------------------------------------------------------------
// Test doubles
// -----------------------------------------------------------------------------

type fakeResponse struct {
	body []byte
	err  error
}

type fakeFetcher struct {
	mu        sync.Mutex
	responses map[string]fakeResponse
	params    map[string]map[string]string
	block     map[string]chan struct{}
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		responses: make(map[string]fakeResponse),
		params:    make(map[string]map[string]string),
		block:     make(map[string]chan struct{}),
	}
}

func (f *fakeFetcher) respond(path string, body string) {
	f.responses[path] = fakeResponse{body: []byte(body)}
}

func (f *fakeFetcher) fail(path string, err error) {
	f.responses[path] = fakeResponse{err: helpers.NewFetchError("GET "+path, err)}
}

func (f *fakeFetcher) Get(ctx context.Context, path string, params map[string]string) ([]byte, error) {
	f.mu.Lock()
	f.params[path] = params
	gate := f.block[path]
	resp, ok := f.responses[path]
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if !ok {
		return nil, helpers.NewFetchError("GET "+path, errors.New("no route"))
	}
	return resp.body, resp.err
}

type mockSink struct {
	mock.Mock
}

func (m *mockSink) UpdatePortfolioChart(dates []string, values []float64) error {
	return m.Called(dates, values).Error(0)
}

func (m *mockSink) UpdateStockPerformanceChart(data models.MStockPerformance) error {
	return m.Called(string(data)).Error(0)
}

func (m *mockSink) SetText(elementID string, text string) error {
	return m.Called(elementID, text).Error(0)
}

type recordingDiagnostics struct {
	mu      sync.Mutex
	entries []string
}

func (d *recordingDiagnostics) Error(format string, args ...interface{}) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.entries = append(d.entries, fmt.Sprintf(format, args...))
}

func (d *recordingDiagnostics) Entries() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.entries...)
}

type mockArchive struct {
	mock.Mock
}

func (m *mockArchive) Archive(ctx context.Context, payload models.MArchivedPayload) error {
	return m.Called(payload.Operation, string(payload.Payload)).Error(0)
}

// -----------------------------------------------------------------------------

const (
	seriesBody = `{"dates":["2024-01-02","2024-01-03"],"values":[1000.5,1010.25]}`
	perfBody   = `{"AAPL":{"dates":["2024-01-02"],"changes":[0]}}`
	statsBody  = `{"total_value":12345.6,"total_gain":-250,"daily_change":1.2345}`
)

func newTestRefresher(fetcher *fakeFetcher, sink *mockSink, diag *recordingDiagnostics) *Refresher {
	cfg := config.Defaults()
	r := NewRefresher(
		fetcher,
		sink,
		diag,
		format.NewFormatter("USD", "en-US"),
		EndpointsFromConfig(&cfg),
		logger.NewLoggerWithWriter(io.Discard, "DEBUG", "Refresher"),
	)
	r.now = func() time.Time { return time.Unix(1700000000, 0) }
	return r
}

func healthyFetcher() *fakeFetcher {
	f := newFakeFetcher()
	f.respond("/api/portfolio/value", seriesBody)
	f.respond("/api/stocks/performance", perfBody)
	f.respond("/api/portfolio/stats", statsBody)
	return f
}

// -----------------------------------------------------------------------------
// Portfolio series
// -----------------------------------------------------------------------------

func TestRefreshPortfolioSeriesSuccess(t *testing.T) {
	sink := new(mockSink)
	sink.On("UpdatePortfolioChart", []string{"2024-01-02", "2024-01-03"}, []float64{1000.5, 1010.25}).Return(nil).Once()
	diag := &recordingDiagnostics{}
	fetcher := healthyFetcher()

	r := newTestRefresher(fetcher, sink, diag)
	r.RefreshPortfolioSeries(context.Background())

	sink.AssertExpectations(t)
	sink.AssertNumberOfCalls(t, "UpdatePortfolioChart", 1)
	assert.Empty(t, diag.Entries())
	assert.Equal(t, map[string]string{"days": "30"}, fetcher.params["/api/portfolio/value"])
}

func TestRefreshPortfolioSeriesNetworkFailure(t *testing.T) {
	sink := new(mockSink)
	diag := &recordingDiagnostics{}
	fetcher := newFakeFetcher()
	fetcher.fail("/api/portfolio/value", errors.New("connection refused"))

	r := newTestRefresher(fetcher, sink, diag)
	assert.NotPanics(t, func() { r.RefreshPortfolioSeries(context.Background()) })

	sink.AssertNotCalled(t, "UpdatePortfolioChart", mock.Anything, mock.Anything)
	require.Len(t, diag.Entries(), 1)
	assert.Contains(t, diag.Entries()[0], "portfolio_series (fetch)")
	assert.Contains(t, diag.Entries()[0], "connection refused")
}

func TestRefreshPortfolioSeriesNonJSON(t *testing.T) {
	sink := new(mockSink)
	diag := &recordingDiagnostics{}
	fetcher := newFakeFetcher()
	fetcher.respond("/api/portfolio/value", "<html>login</html>")

	r := newTestRefresher(fetcher, sink, diag)
	r.RefreshPortfolioSeries(context.Background())

	sink.AssertNotCalled(t, "UpdatePortfolioChart", mock.Anything, mock.Anything)
	require.Len(t, diag.Entries(), 1)
	assert.Contains(t, diag.Entries()[0], "(decode)")
}

func TestRefreshPortfolioSeriesSinkPanicIsContained(t *testing.T) {
	sink := new(mockSink)
	sink.On("UpdatePortfolioChart", mock.Anything, mock.Anything).Panic("canvas missing")
	diag := &recordingDiagnostics{}

	r := newTestRefresher(healthyFetcher(), sink, diag)
	assert.NotPanics(t, func() { r.RefreshPortfolioSeries(context.Background()) })

	require.Len(t, diag.Entries(), 1)
	assert.Contains(t, diag.Entries()[0], "(render)")
	assert.Contains(t, diag.Entries()[0], "canvas missing")
}

// -----------------------------------------------------------------------------
// Stock performance
// -----------------------------------------------------------------------------

func TestRefreshStockPerformancePassesBodyWholesale(t *testing.T) {
	sink := new(mockSink)
	sink.On("UpdateStockPerformanceChart", perfBody).Return(nil).Once()
	diag := &recordingDiagnostics{}

	r := newTestRefresher(healthyFetcher(), sink, diag)
	r.RefreshStockPerformance(context.Background())

	sink.AssertExpectations(t)
	assert.Empty(t, diag.Entries())
}

func TestRefreshStockPerformanceFailures(t *testing.T) {
	tests := []struct {
		name  string
		setup func(f *fakeFetcher, s *mockSink)
		stage string
	}{
		{
			name: "network",
			setup: func(f *fakeFetcher, s *mockSink) {
				f.fail("/api/stocks/performance", errors.New("timeout"))
			},
			stage: "(fetch)",
		},
		{
			name: "malformed",
			setup: func(f *fakeFetcher, s *mockSink) {
				f.respond("/api/stocks/performance", `{"AAPL":`)
			},
			stage: "(decode)",
		},
		{
			name: "sink error",
			setup: func(f *fakeFetcher, s *mockSink) {
				f.respond("/api/stocks/performance", perfBody)
				s.On("UpdateStockPerformanceChart", perfBody).Return(errors.New("chart destroyed"))
			},
			stage: "(render)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := new(mockSink)
			fetcher := newFakeFetcher()
			tt.setup(fetcher, sink)
			diag := &recordingDiagnostics{}

			r := newTestRefresher(fetcher, sink, diag)
			r.RefreshStockPerformance(context.Background())

			require.Len(t, diag.Entries(), 1)
			assert.Contains(t, diag.Entries()[0], tt.stage)
			assert.Equal(t, int64(1), r.Status()[1].Failures)
		})
	}
}

// -----------------------------------------------------------------------------
// Stats
// -----------------------------------------------------------------------------

func TestRefreshPortfolioStatsWritesFormattedText(t *testing.T) {
	sink := new(mockSink)
	sink.On("SetText", models.ElementPortfolioValue, "$12,345.6").Return(nil).Once()
	sink.On("SetText", models.ElementTotalGain, "$-250").Return(nil).Once()
	sink.On("SetText", models.ElementDailyChange, "1.23%").Return(nil).Once()
	diag := &recordingDiagnostics{}
	fetcher := healthyFetcher()

	r := newTestRefresher(fetcher, sink, diag)
	r.RefreshPortfolioStats(context.Background())

	sink.AssertExpectations(t)
	assert.Empty(t, diag.Entries())
	assert.Nil(t, fetcher.params["/api/portfolio/stats"])
}

func TestRefreshPortfolioStatsMissingField(t *testing.T) {
	sink := new(mockSink)
	diag := &recordingDiagnostics{}
	fetcher := newFakeFetcher()
	fetcher.respond("/api/portfolio/stats", `{"error":"not logged in"}`)

	r := newTestRefresher(fetcher, sink, diag)
	r.RefreshPortfolioStats(context.Background())

	sink.AssertNotCalled(t, "SetText", mock.Anything, mock.Anything)
	require.Len(t, diag.Entries(), 1)
	assert.Contains(t, diag.Entries()[0], "missing total_value")
}

func TestRefreshPortfolioStatsNetworkFailure(t *testing.T) {
	sink := new(mockSink)
	diag := &recordingDiagnostics{}
	fetcher := newFakeFetcher()
	fetcher.fail("/api/portfolio/stats", errors.New("no route to host"))

	r := newTestRefresher(fetcher, sink, diag)
	r.RefreshPortfolioStats(context.Background())

	sink.AssertNotCalled(t, "SetText", mock.Anything, mock.Anything)
	assert.Len(t, diag.Entries(), 1)
}

// -----------------------------------------------------------------------------
// RefreshAll
// -----------------------------------------------------------------------------

func TestRefreshAllFailureIsolated(t *testing.T) {
	sink := new(mockSink)
	sink.On("UpdateStockPerformanceChart", perfBody).Return(nil).Once()
	sink.On("SetText", mock.Anything, mock.Anything).Return(nil).Times(3)
	diag := &recordingDiagnostics{}
	fetcher := healthyFetcher()
	fetcher.fail("/api/portfolio/value", errors.New("reset by peer"))

	r := newTestRefresher(fetcher, sink, diag)
	r.RefreshAll(context.Background())

	sink.AssertExpectations(t)
	sink.AssertNotCalled(t, "UpdatePortfolioChart", mock.Anything, mock.Anything)
	require.Len(t, diag.Entries(), 1)
	assert.Contains(t, diag.Entries()[0], "portfolio_series")
}

func TestRefreshAllSlowOperationDoesNotDelayOthers(t *testing.T) {
	sink := new(mockSink)
	sink.On("UpdateStockPerformanceChart", perfBody).Return(nil)
	sink.On("SetText", mock.Anything, mock.Anything).Return(nil)
	sink.On("UpdatePortfolioChart", mock.Anything, mock.Anything).Return(nil)
	diag := &recordingDiagnostics{}
	fetcher := healthyFetcher()
	gate := make(chan struct{})
	fetcher.block["/api/portfolio/value"] = gate

	r := newTestRefresher(fetcher, sink, diag)
	done := make(chan struct{})
	go func() {
		r.RefreshAll(context.Background())
		close(done)
	}()

	require.Eventually(t, func() bool {
		st := r.Status()
		return st[1].Runs == 1 && st[2].Runs == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, int64(0), r.Status()[0].Runs)

	close(gate)
	<-done
	assert.Equal(t, int64(1), r.Status()[0].Runs)
	assert.Empty(t, diag.Entries())
}

func TestRefreshAllIdempotent(t *testing.T) {
	sink := new(mockSink)
	sink.On("UpdatePortfolioChart", []string{"2024-01-02", "2024-01-03"}, []float64{1000.5, 1010.25}).Return(nil).Twice()
	sink.On("UpdateStockPerformanceChart", perfBody).Return(nil).Twice()
	sink.On("SetText", models.ElementPortfolioValue, "$12,345.6").Return(nil).Twice()
	sink.On("SetText", models.ElementTotalGain, "$-250").Return(nil).Twice()
	sink.On("SetText", models.ElementDailyChange, "1.23%").Return(nil).Twice()
	diag := &recordingDiagnostics{}

	r := newTestRefresher(healthyFetcher(), sink, diag)
	r.RefreshAll(context.Background())
	r.RefreshAll(context.Background())

	sink.AssertExpectations(t)
	assert.Empty(t, diag.Entries())
	for _, st := range r.Status() {
		assert.Equal(t, int64(2), st.Runs, st.Operation)
		assert.Equal(t, int64(0), st.Failures, st.Operation)
		assert.Equal(t, int64(1700000000), st.LastSuccess, st.Operation)
	}
}

// -----------------------------------------------------------------------------
// Archives
// -----------------------------------------------------------------------------

func TestArchiveReceivesSuccessfulPayloads(t *testing.T) {
	sink := new(mockSink)
	sink.On("UpdatePortfolioChart", mock.Anything, mock.Anything).Return(nil)
	archive := new(mockArchive)
	archive.On("Archive", models.OpPortfolioSeries, seriesBody).Return(nil).Once()
	diag := &recordingDiagnostics{}

	r := newTestRefresher(healthyFetcher(), sink, diag)
	r.AddArchive(archive)
	r.RefreshPortfolioSeries(context.Background())

	archive.AssertExpectations(t)
	assert.Empty(t, diag.Entries())
}

func TestArchiveFailureIsOneDiagnosticAfterRender(t *testing.T) {
	sink := new(mockSink)
	sink.On("UpdateStockPerformanceChart", perfBody).Return(nil).Once()
	archive := new(mockArchive)
	archive.On("Archive", models.OpStockPerformance, perfBody).Return(errors.New("disk full"))
	diag := &recordingDiagnostics{}

	r := newTestRefresher(healthyFetcher(), sink, diag)
	r.AddArchive(archive)
	r.RefreshStockPerformance(context.Background())

	sink.AssertExpectations(t)
	require.Len(t, diag.Entries(), 1)
	assert.Contains(t, diag.Entries()[0], "(archive)")
	assert.Contains(t, diag.Entries()[0], "disk full")
}

func TestArchiveNotCalledOnFailure(t *testing.T) {
	sink := new(mockSink)
	archive := new(mockArchive)
	diag := &recordingDiagnostics{}
	fetcher := newFakeFetcher()
	fetcher.fail("/api/portfolio/stats", errors.New("refused"))

	r := newTestRefresher(fetcher, sink, diag)
	r.AddArchive(archive)
	r.RefreshPortfolioStats(context.Background())

	archive.AssertNotCalled(t, "Archive", mock.Anything, mock.Anything)
}

func TestTickIDPropagates(t *testing.T) {
	ctx := withTickID(context.Background(), "abc")
	assert.Equal(t, "abc", tickIDFrom(ctx))
	assert.Equal(t, "", tickIDFrom(context.Background()))
}
