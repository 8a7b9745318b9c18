package scenario

import "github.com/thc1006/O-RAN-UAV-Path-Aware-Policy/pkg/models"

const (
	// CellA is strongest near the start of the synthetic corridor
	CellA = "cell-A"
	// CellB is strongest near the end of the synthetic corridor
	CellB = "cell-B"

	crossoverX = 75.0
	corridorX  = 150.0
)

// SyntheticCellMetrics returns the two-cell corridor pattern at position x:
// cell-A is better for small x, cell-B once the UAV passes the crossover.
func SyntheticCellMetrics(x float64) map[string]models.CellMetric {
	if x <= crossoverX {
		return map[string]models.CellMetric{
			CellA: {SinrDB: 0.02 * x, Load: 0.4},
			CellB: {SinrDB: -2.0 + 0.01*x, Load: 0.2},
		}
	}
	return map[string]models.CellMetric{
		CellA: {SinrDB: -2.0 + 0.01*(corridorX-x), Load: 0.6},
		CellB: {SinrDB: 0.02 * (x - crossoverX), Load: 0.3},
	}
}

// SyntheticRadioMap builds a radio map for a path from SyntheticCellMetrics
func SyntheticRadioMap(waypoints []models.Waypoint) models.RadioMap {
	rm := make(models.RadioMap, len(waypoints))
	for _, wp := range waypoints {
		rm[wp.Index] = SyntheticCellMetrics(wp.X)
	}
	return rm
}
