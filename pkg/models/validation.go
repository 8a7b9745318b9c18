package models

import (
	"fmt"
	"math"

	apperrors "github.com/thc1006/O-RAN-UAV-Path-Aware-Policy/pkg/errors"
)

// ValidateWaypoints checks that waypoint indices are non-negative and unique.
func ValidateWaypoints(waypoints []Waypoint) error {
	seen := make(map[int]struct{}, len(waypoints))
	for i, wp := range waypoints {
		if wp.Index < 0 {
			return apperrors.NewInvalidInputError(fmt.Sprintf("waypoints[%d].index", i),
				"waypoint index must be non-negative").WithValue(wp.Index)
		}
		if _, dup := seen[wp.Index]; dup {
			return apperrors.NewInvalidInputError(fmt.Sprintf("waypoints[%d].index", i),
				fmt.Sprintf("duplicate waypoint index %d", wp.Index)).WithValue(wp.Index)
		}
		seen[wp.Index] = struct{}{}
	}
	return nil
}

// Validate checks the structural invariants of a single segment.
func (s PathSegmentPlan) Validate() error {
	if math.IsNaN(s.StartPos) || math.IsNaN(s.EndPos) {
		return apperrors.NewInvalidInputError("start_pos", "segment positions must be numbers")
	}
	if s.StartPos < 0 || s.EndPos > 1 {
		return apperrors.NewInvalidInputError("start_pos",
			fmt.Sprintf("segment [%g, %g] outside normalized range [0, 1]", s.StartPos, s.EndPos))
	}
	if s.StartPos > s.EndPos {
		return apperrors.NewInvalidInputError("start_pos",
			fmt.Sprintf("start_pos %g exceeds end_pos %g", s.StartPos, s.EndPos)).WithValue(s.StartPos)
	}
	if s.PlannedCellID == "" {
		return apperrors.NewInvalidInputError("planned_cell_id", "planned_cell_id is required")
	}
	if s.BasePRBQuota < 1 {
		return apperrors.NewInvalidInputError("base_prb_quota", "base_prb_quota must be at least 1").WithValue(s.BasePRBQuota)
	}
	return nil
}

// Validate checks every segment and that segments are ordered and do not overlap.
func (p FlightPlanPolicy) Validate() error {
	if p.UavID == "" {
		return apperrors.NewInvalidInputError("uav_id", "uav_id is required")
	}
	for i, seg := range p.Segments {
		if err := seg.Validate(); err != nil {
			return apperrors.Wrap(err, fmt.Sprintf("segments[%d]", i))
		}
		if i > 0 && seg.StartPos < p.Segments[i-1].EndPos {
			return apperrors.NewInvalidInputError(fmt.Sprintf("segments[%d].start_pos", i),
				"segments must be ordered and non-overlapping").WithValue(seg.StartPos)
		}
	}
	return nil
}

// Validate checks the service profile constraints.
func (s ServiceProfile) Validate() error {
	if s.Name == "" {
		return apperrors.NewInvalidInputError("name", "service name is required")
	}
	if !(s.TargetBitrateMbps > 0) {
		return apperrors.NewInvalidInputError("target_bitrate_mbps",
			"target bitrate must be positive").WithValue(s.TargetBitrateMbps)
	}
	return nil
}
