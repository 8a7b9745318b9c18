package planner

import (
	"math"

	"github.com/thc1006/O-RAN-UAV-Path-Aware-Policy/pkg/models"
)

const (
	// endEpsilon nudges the final end_pos so a half-open lookup reaches the last waypoint
	endEpsilon = 1e-9
	// minBasePRBQuota is the floor of a segment's base PRB quota
	minBasePRBQuota = 5
)

// segmentFold is the state threaded through the cell sequence while compiling
type segmentFold struct {
	cell     string
	startPos float64
	segments []models.PathSegmentPlan
}

// CompileSegments merges consecutive waypoints served by the same cell into
// contiguous path segments. Positions are normalized by waypoint ordinal over
// the index-sorted path, so segments always start at 0 and the last one ends
// at 1 once there are two or more waypoints.
func CompileSegments(uavID string, waypoints []models.Waypoint, cells []string, service models.ServiceProfile) models.FlightPlanPolicy {
	policy := models.FlightPlanPolicy{UavID: uavID, Segments: []models.PathSegmentPlan{}}

	n := len(waypoints)
	if len(cells) < n {
		n = len(cells)
	}
	if n == 0 {
		return policy
	}

	denom := float64(n - 1)
	if denom < 1 {
		denom = 1
	}
	pos := func(i int) float64 { return float64(i) / denom }

	quota := int(math.Floor(service.TargetBitrateMbps))
	if quota < minBasePRBQuota {
		quota = minBasePRBQuota
	}
	segment := func(cell string, start, end float64) models.PathSegmentPlan {
		return models.PathSegmentPlan{
			StartPos:      start,
			EndPos:        end,
			PlannedCellID: cell,
			SliceID:       service.Name,
			BasePRBQuota:  quota,
		}
	}

	step := func(acc segmentFold, i int) segmentFold {
		if cells[i] == acc.cell {
			return acc
		}
		return segmentFold{
			cell:     cells[i],
			startPos: pos(i),
			segments: append(acc.segments, segment(acc.cell, acc.startPos, pos(i))),
		}
	}

	acc := segmentFold{cell: cells[0], startPos: 0, segments: []models.PathSegmentPlan{}}
	for i := 1; i < n; i++ {
		acc = step(acc, i)
	}

	end := math.Min(1.0, pos(n-1)+endEpsilon)
	policy.Segments = append(acc.segments, segment(acc.cell, acc.startPos, end))
	return policy
}
