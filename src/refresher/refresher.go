package refresher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"portfolio-dashboard/src/format"
	"portfolio-dashboard/src/helpers"
	"portfolio-dashboard/src/interfaces"
	"portfolio-dashboard/src/logger"
	"portfolio-dashboard/src/models"

	"github.com/google/uuid"
)

// -----------------------------------------------------------------------------

// Endpoints are the backend paths of the three refresh operations.
type Endpoints struct {
	PortfolioValue   string
	StockPerformance string
	PortfolioStats   string
	HistoryDays      int
}

// EndpointsFromConfig reads the API section of the configuration.
func EndpointsFromConfig(cfg *models.MConfig) Endpoints {
	return Endpoints{
		PortfolioValue:   cfg.API.PortfolioValuePath,
		StockPerformance: cfg.API.StockPerformancePath,
		PortfolioStats:   cfg.API.PortfolioStatsPath,
		HistoryDays:      cfg.API.HistoryDays,
	}
}

// -----------------------------------------------------------------------------

// Refresher runs the fetch-parse-render cycle of each dashboard endpoint.
// Every operation swallows its own failure: one diagnostic entry, no retry,
// prior sink state untouched.
type Refresher struct {
	Fetcher     interfaces.IFetcher
	Portfolio   interfaces.IPortfolioChartSink
	Performance interfaces.IStockPerformanceSink
	Texts       interfaces.ITextSink
	Archives    []interfaces.IArchive
	Diagnostics interfaces.IDiagnostics
	Formatter   *format.Formatter
	Endpoints   Endpoints
	Logger      *logger.Logger

	now      func() time.Time
	statusMu sync.Mutex
	status   map[string]*models.MRefreshStatus
}

// -----------------------------------------------------------------------------

func NewRefresher(
	fetcher interfaces.IFetcher,
	sink interfaces.IDashboardSink,
	diagnostics interfaces.IDiagnostics,
	formatter *format.Formatter,
	endpoints Endpoints,
	log *logger.Logger,
) *Refresher {
	return &Refresher{
		Fetcher:     fetcher,
		Portfolio:   sink,
		Performance: sink,
		Texts:       sink,
		Diagnostics: diagnostics,
		Formatter:   formatter,
		Endpoints:   endpoints,
		Logger:      log,
		now:         time.Now,
		status: map[string]*models.MRefreshStatus{
			models.OpPortfolioSeries:  {Operation: models.OpPortfolioSeries},
			models.OpStockPerformance: {Operation: models.OpStockPerformance},
			models.OpPortfolioStats:   {Operation: models.OpPortfolioStats},
		},
	}
}

// -----------------------------------------------------------------------------

// AddArchive registers a recorder for successful payloads.
func (r *Refresher) AddArchive(a interfaces.IArchive) {
	r.Archives = append(r.Archives, a)
}

// -----------------------------------------------------------------------------
// Refresh operations
// -----------------------------------------------------------------------------

// RefreshPortfolioSeries fetches the portfolio value series and hands dates and
// values to the portfolio chart.
func (r *Refresher) RefreshPortfolioSeries(ctx context.Context) {
	r.run(ctx, models.OpPortfolioSeries, func(ctx context.Context) ([]byte, error) {
		body, err := r.Fetcher.Get(ctx, r.Endpoints.PortfolioValue, r.historyParams())
		if err != nil {
			return nil, err
		}

		var series models.MPortfolioSeries
		if err := json.Unmarshal(body, &series); err != nil {
			return nil, helpers.NewDecodeError("portfolio value body", err)
		}

		err = helpers.Guard(models.OpPortfolioSeries, func() error {
			return r.Portfolio.UpdatePortfolioChart(series.Dates, series.Values)
		})
		if err != nil {
			return nil, wrapRender(models.OpPortfolioSeries, err)
		}
		return body, nil
	})
}

// -----------------------------------------------------------------------------

// RefreshStockPerformance fetches the stock performance payload and hands it to
// the stock chart unchanged.
func (r *Refresher) RefreshStockPerformance(ctx context.Context) {
	r.run(ctx, models.OpStockPerformance, func(ctx context.Context) ([]byte, error) {
		body, err := r.Fetcher.Get(ctx, r.Endpoints.StockPerformance, r.historyParams())
		if err != nil {
			return nil, err
		}

		if !json.Valid(body) {
			return nil, helpers.NewDecodeError("stock performance body", fmt.Errorf("invalid JSON (%d bytes)", len(body)))
		}
		data := models.MStockPerformance(body)

		err = helpers.Guard(models.OpStockPerformance, func() error {
			return r.Performance.UpdateStockPerformanceChart(data)
		})
		if err != nil {
			return nil, wrapRender(models.OpStockPerformance, err)
		}
		return body, nil
	})
}

// -----------------------------------------------------------------------------

// RefreshPortfolioStats fetches the stats snapshot and writes the formatted
// portfolio value, total gain and daily change into their text elements.
func (r *Refresher) RefreshPortfolioStats(ctx context.Context) {
	r.run(ctx, models.OpPortfolioStats, func(ctx context.Context) ([]byte, error) {
		body, err := r.Fetcher.Get(ctx, r.Endpoints.PortfolioStats, nil)
		if err != nil {
			return nil, err
		}

		stats, err := decodeStats(body)
		if err != nil {
			return nil, err
		}

		err = helpers.Guard(models.OpPortfolioStats, func() error {
			if err := r.Texts.SetText(models.ElementPortfolioValue, r.Formatter.Currency(stats.TotalValue)); err != nil {
				return err
			}
			if err := r.Texts.SetText(models.ElementTotalGain, r.Formatter.Currency(stats.TotalGain)); err != nil {
				return err
			}
			return r.Texts.SetText(models.ElementDailyChange, format.Percent(stats.DailyChange))
		})
		if err != nil {
			return nil, wrapRender(models.OpPortfolioStats, err)
		}
		return body, nil
	})
}

// -----------------------------------------------------------------------------

// RefreshAll starts the three operations together and waits for all of them.
// None of them waits on, or is affected by, another.
func (r *Refresher) RefreshAll(ctx context.Context) {
	tickID := uuid.NewString()
	ctx = withTickID(ctx, tickID)
	r.Logger.Debug("Tick %s: refreshing dashboard", tickID)

	var wg sync.WaitGroup
	for _, op := range []func(context.Context){
		r.RefreshPortfolioSeries,
		r.RefreshStockPerformance,
		r.RefreshPortfolioStats,
	} {
		wg.Add(1)
		go func(op func(context.Context)) {
			defer wg.Done()
			op(ctx)
		}(op)
	}
	wg.Wait()
}

// -----------------------------------------------------------------------------
// Status
// -----------------------------------------------------------------------------

// Status returns a copy of the per-operation counters, in a fixed order.
func (r *Refresher) Status() []models.MRefreshStatus {
	r.statusMu.Lock()
	defer r.statusMu.Unlock()

	out := make([]models.MRefreshStatus, 0, len(r.status))
	for _, op := range []string{models.OpPortfolioSeries, models.OpStockPerformance, models.OpPortfolioStats} {
		out = append(out, *r.status[op])
	}
	return out
}

// -----------------------------------------------------------------------------

func (r *Refresher) record(op string, err error) {
	r.statusMu.Lock()
	defer r.statusMu.Unlock()

	st := r.status[op]
	st.Runs++
	if err != nil {
		st.Failures++
		st.LastError = err.Error()
		return
	}
	st.LastSuccess = r.now().Unix()
}

// -----------------------------------------------------------------------------
// Internals
// -----------------------------------------------------------------------------

// run is the single error boundary of an operation.
func (r *Refresher) run(ctx context.Context, op string, fn func(context.Context) ([]byte, error)) {
	body, err := fn(ctx)
	if err == nil {
		err = r.archive(ctx, op, body)
	}
	r.record(op, err)
	if err != nil {
		r.Diagnostics.Error("Error refreshing %s (%s): %v", op, helpers.Stage(err), err)
	}
}

// -----------------------------------------------------------------------------

func (r *Refresher) archive(ctx context.Context, op string, body []byte) error {
	if len(r.Archives) == 0 {
		return nil
	}

	payload := models.MArchivedPayload{
		TickID:    tickIDFrom(ctx),
		Operation: op,
		Payload:   json.RawMessage(body),
		FetchedAt: r.now().UTC(),
	}

	var failed []error
	for _, a := range r.Archives {
		if err := a.Archive(ctx, payload); err != nil {
			failed = append(failed, err)
		}
	}
	if len(failed) > 0 {
		return helpers.NewArchiveError(fmt.Sprintf("archive %s", op), errors.Join(failed...))
	}
	return nil
}

// -----------------------------------------------------------------------------

func (r *Refresher) historyParams() map[string]string {
	if r.Endpoints.HistoryDays <= 0 {
		return nil
	}
	return map[string]string{"days": strconv.Itoa(r.Endpoints.HistoryDays)}
}

// -----------------------------------------------------------------------------

// decodeStats requires the three numeric fields to be present.
func decodeStats(body []byte) (models.MPortfolioStats, error) {
	var raw struct {
		TotalValue  *float64 `json:"total_value"`
		TotalGain   *float64 `json:"total_gain"`
		DailyChange *float64 `json:"daily_change"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return models.MPortfolioStats{}, helpers.NewDecodeError("portfolio stats body", err)
	}
	if raw.TotalValue == nil || raw.TotalGain == nil || raw.DailyChange == nil {
		return models.MPortfolioStats{}, helpers.NewDecodeError("portfolio stats body", fmt.Errorf("missing total_value, total_gain or daily_change"))
	}
	return models.MPortfolioStats{
		TotalValue:  *raw.TotalValue,
		TotalGain:   *raw.TotalGain,
		DailyChange: *raw.DailyChange,
	}, nil
}

// -----------------------------------------------------------------------------

func wrapRender(op string, err error) error {
	if helpers.Stage(err) == "render" {
		return err
	}
	return helpers.NewRenderError(fmt.Sprintf("%s sink", op), err)
}
