package models

// Refresh operation names, used in logs, archives and status reports.
const (
	OpPortfolioSeries  = "portfolio_series"
	OpStockPerformance = "stock_performance"
	OpPortfolioStats   = "portfolio_stats"
)

// MRefreshStatus counts the outcomes of one refresh operation.
type MRefreshStatus struct {
	Operation   string `json:"operation"`
	Runs        int64  `json:"runs"`
	Failures    int64  `json:"failures"`
	LastError   string `json:"last_error,omitempty"`
	LastSuccess int64  `json:"last_success"`
}
