package server

import "portfolio-dashboard/src/models"

// -----------------------------------------------------------------------------

func cloneRaw(data models.MStockPerformance) models.MStockPerformance {
	if data == nil {
		return nil
	}
	return append(models.MStockPerformance(nil), data...)
}

// -----------------------------------------------------------------------------

func cloneState(s *models.MDashboardState) *models.MDashboardState {
	out := &models.MDashboardState{
		Texts:       make(map[string]string, len(s.Texts)),
		Performance: cloneRaw(s.Performance),
		Timestamp:   s.Timestamp,
	}
	for k, v := range s.Texts {
		out.Texts[k] = v
	}
	if s.Portfolio != nil {
		out.Portfolio = &models.MPortfolioSeries{
			Dates:  append([]string(nil), s.Portfolio.Dates...),
			Values: append([]float64(nil), s.Portfolio.Values...),
		}
	}
	return out
}
