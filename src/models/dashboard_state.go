package models

// -----------------------------------------------------------------------------
// Dashboard element ids written by the stats refresh
// -----------------------------------------------------------------------------

const (
	ElementPortfolioValue = "portfolio-value"
	ElementTotalGain      = "total-gain"
	ElementDailyChange    = "daily-change"
)

// -----------------------------------------------------------------------------
// Websocket message types
// -----------------------------------------------------------------------------

const (
	MessageInitial        = "INITIAL"
	MessageText           = "TEXT"
	MessagePortfolioChart = "PORTFOLIO_CHART"
	MessageStockChart     = "STOCK_CHART"
)

// -----------------------------------------------------------------------------
// Server State Structure
// -----------------------------------------------------------------------------

type MDashboardState struct {
	Texts       map[string]string `json:"texts"`
	Portfolio   *MPortfolioSeries `json:"portfolio,omitempty"`
	Performance MStockPerformance `json:"performance,omitempty"`
	Timestamp   int64             `json:"timestamp"`
}

// -----------------------------------------------------------------------------
// MDashboardMessage is one websocket frame pushed to browsers
// -----------------------------------------------------------------------------

type MDashboardMessage struct {
	Type        string            `json:"type"`
	ElementID   string            `json:"element_id,omitempty"`
	Text        string            `json:"text,omitempty"`
	State       *MDashboardState  `json:"state,omitempty"`
	Portfolio   *MPortfolioSeries `json:"portfolio,omitempty"`
	Performance MStockPerformance `json:"performance,omitempty"`
	Timestamp   int64             `json:"timestamp"`
}

// -----------------------------------------------------------------------------
// MClientCommand is sent by browsers over the websocket
// -----------------------------------------------------------------------------

type MClientCommand struct {
	Command string `json:"command"`
}
