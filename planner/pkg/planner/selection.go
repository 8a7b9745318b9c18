package planner

import (
	"sort"

	apperrors "github.com/thc1006/O-RAN-UAV-Path-Aware-Policy/pkg/errors"
	"github.com/thc1006/O-RAN-UAV-Path-Aware-Policy/pkg/models"
)

// dpEntry is the best cumulative score reaching a cell at one step
type dpEntry struct {
	score float64
	prev  string
}

// sortWaypoints returns a copy of waypoints ordered by index
func sortWaypoints(waypoints []models.Waypoint) []models.Waypoint {
	path := make([]models.Waypoint, len(waypoints))
	copy(path, waypoints)
	sort.Slice(path, func(i, j int) bool { return path[i].Index < path[j].Index })
	return path
}

// better reports whether (score, id) beats (bestScore, bestID): higher score
// wins and exact ties go to the lexicographically lowest cell id.
func better(score float64, id string, bestScore float64, bestID string) bool {
	if bestID == "" {
		return true
	}
	if score != bestScore {
		return score > bestScore
	}
	return id < bestID
}

// candidates returns the cells at or above the SINR floor in id order, or the
// single best-SINR cell when none qualifies.
func candidates(cells map[string]models.CellMetric, sinrMin float64) []string {
	ids := make([]string, 0, len(cells))
	for id := range cells {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var above []string
	bestID := ""
	bestSinr := 0.0
	for _, id := range ids {
		m := cells[id]
		if m.SinrDB >= sinrMin {
			above = append(above, id)
		}
		if better(m.SinrDB, id, bestSinr, bestID) {
			bestID, bestSinr = id, m.SinrDB
		}
	}
	if len(above) > 0 {
		return above
	}
	return []string{bestID}
}

// ChooseCells picks one serving cell per waypoint, in waypoint-index order,
// maximizing cumulative utility minus handover penalties. A waypoint without
// radio metrics fails the whole run with a MissingRadioDataError.
func ChooseCells(waypoints []models.Waypoint, radioMap models.RadioMap, cfg Config) ([]string, error) {
	if len(waypoints) == 0 {
		return []string{}, nil
	}
	if err := models.ValidateWaypoints(waypoints); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	path := sortWaypoints(waypoints)
	layers := make([]map[string]dpEntry, len(path))
	order := make([][]string, len(path))

	for step, wp := range path {
		cells := radioMap.CellsForStep(wp.Index)
		if len(cells) == 0 {
			return nil, apperrors.NewMissingRadioDataError(wp.Index, step == 0)
		}

		cands := candidates(cells, cfg.SinrMinDB)
		layer := make(map[string]dpEntry, len(cands))
		for _, cell := range cands {
			m := cells[cell]
			u := cfg.Utility(m.SinrDB, m.Load)
			if step == 0 {
				layer[cell] = dpEntry{score: u}
				continue
			}

			best := dpEntry{}
			for _, prevCell := range order[step-1] {
				score := layers[step-1][prevCell].score + u
				if prevCell != cell {
					score -= cfg.HOPenalty
				}
				if better(score, prevCell, best.score, best.prev) {
					best = dpEntry{score: score, prev: prevCell}
				}
			}
			layer[cell] = best
		}
		layers[step] = layer
		order[step] = cands
	}

	last := len(path) - 1
	endCell := ""
	endScore := 0.0
	for _, cell := range order[last] {
		if e := layers[last][cell]; better(e.score, cell, endScore, endCell) {
			endCell, endScore = cell, e.score
		}
	}

	result := make([]string, len(path))
	cell := endCell
	for step := last; step >= 0; step-- {
		result[step] = cell
		cell = layers[step][cell].prev
	}
	return result, nil
}
