package main

import (
	"fmt"
	"io"
	"sync"

	"portfolio-dashboard/src/interfaces"
	"portfolio-dashboard/src/models"
)

var _ interfaces.IDashboardSink = (*consoleSink)(nil)

var textOrder = []string{models.ElementPortfolioValue, models.ElementTotalGain, models.ElementDailyChange}

// consoleSink collects one refresh for printing by the refresh subcommand.
type consoleSink struct {
	mu          sync.Mutex
	texts       map[string]string
	points      int
	performance int
}

func newConsoleSink() *consoleSink {
	return &consoleSink{texts: make(map[string]string), points: -1, performance: -1}
}

func (c *consoleSink) SetText(elementID string, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.texts[elementID] = text
	return nil
}

func (c *consoleSink) UpdatePortfolioChart(dates []string, values []float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.points = len(dates)
	return nil
}

func (c *consoleSink) UpdateStockPerformanceChart(data models.MStockPerformance) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.performance = len(data)
	return nil
}

// Print writes the text elements in dashboard order; missing ones show "-".
func (c *consoleSink) Print(w io.Writer) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, id := range textOrder {
		text, ok := c.texts[id]
		if !ok {
			text = "-"
		}
		fmt.Fprintf(w, "%-16s %s\n", id+":", text)
	}
	if c.points >= 0 {
		fmt.Fprintf(w, "%-16s %d points\n", "portfolio-chart:", c.points)
	}
	if c.performance >= 0 {
		fmt.Fprintf(w, "%-16s %d bytes\n", "stock-chart:", c.performance)
	}
}
