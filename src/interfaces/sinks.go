package interfaces

import "portfolio-dashboard/src/models"

// -----------------------------------------------------------------------------
// IPortfolioChartSink accepts a portfolio value series.
// -----------------------------------------------------------------------------

type IPortfolioChartSink interface {
	UpdatePortfolioChart(dates []string, values []float64) error
}

// -----------------------------------------------------------------------------
// IStockPerformanceSink accepts the stock performance payload as received.
// -----------------------------------------------------------------------------

type IStockPerformanceSink interface {
	UpdateStockPerformanceChart(data models.MStockPerformance) error
}

// -----------------------------------------------------------------------------
// ITextSink writes text content into an identified dashboard element.
// -----------------------------------------------------------------------------

type ITextSink interface {
	SetText(elementID string, text string) error
}

// -----------------------------------------------------------------------------
// IDashboardSink is implemented by anything that can render every refresh.
// -----------------------------------------------------------------------------

type IDashboardSink interface {
	IPortfolioChartSink
	IStockPerformanceSink
	ITextSink
}
