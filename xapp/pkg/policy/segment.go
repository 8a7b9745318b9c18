package policy

import "github.com/thc1006/O-RAN-UAV-Path-Aware-Policy/pkg/models"

// FindActiveSegment returns the segment covering position with a half-open
// [start, end) lookup. A position past every segment maps to the last one;
// a nil plan or a plan without segments reports false.
func FindActiveSegment(plan *models.FlightPlanPolicy, position float64) (models.PathSegmentPlan, bool) {
	if plan == nil || len(plan.Segments) == 0 {
		return models.PathSegmentPlan{}, false
	}
	for _, seg := range plan.Segments {
		if seg.StartPos <= position && position < seg.EndPos {
			return seg, true
		}
	}
	return plan.Segments[len(plan.Segments)-1], true
}
