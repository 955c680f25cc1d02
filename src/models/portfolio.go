package models

import "encoding/json"

// MPortfolioSeries is the body of the portfolio value endpoint.
// Dates and Values are expected to have equal lengths; this is not checked.
type MPortfolioSeries struct {
	Dates  []string  `json:"dates"`
	Values []float64 `json:"values"`
}

// MStockPerformance is passed to the stock chart as received.
// The backend sends {SYMBOL: {dates, changes}} but the chart owns the shape.
type MStockPerformance = json.RawMessage

// MPortfolioStats is the body of the portfolio stats endpoint.
type MPortfolioStats struct {
	TotalValue  float64 `json:"total_value"`
	TotalGain   float64 `json:"total_gain"`
	DailyChange float64 `json:"daily_change"`
}
