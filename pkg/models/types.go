// Package models defines the data types shared by the Non-RT planner and the
// UAV policy xApp
package models

// Waypoint is one discretized point along a UAV path
type Waypoint struct {
	Index int     `json:"index" yaml:"index"`
	X     float64 `json:"x" yaml:"x"`
	Y     float64 `json:"y" yaml:"y"`
	Z     float64 `json:"z" yaml:"z"`
}

// CellMetric is the radio quality and utilization of a cell at one waypoint
type CellMetric struct {
	SinrDB float64 `json:"sinr_db" yaml:"sinr_db"`
	// Expected PRB utilization [0, 1]
	Load float64 `json:"load" yaml:"load"`
}

// RadioMap holds per-cell metrics indexed by waypoint index and cell id.
// Lookups are exact; there is no interpolation between waypoints.
type RadioMap map[int]map[string]CellMetric

// CellsForStep returns the metrics known for a waypoint index, or nil.
func (m RadioMap) CellsForStep(index int) map[string]CellMetric {
	return m[index]
}

// PathSegmentPlan is the planned serving cell and resource profile for a
// contiguous range of normalized path positions
type PathSegmentPlan struct {
	StartPos      float64 `json:"start_pos"`
	EndPos        float64 `json:"end_pos"`
	PlannedCellID string  `json:"planned_cell_id"`
	SliceID       string  `json:"slice_id"`
	BasePRBQuota  int     `json:"base_prb_quota"`
}

// FlightPlanPolicy is the offline-derived flight-plan policy for one UAV.
// It is treated as immutable once compiled.
type FlightPlanPolicy struct {
	UavID    string            `json:"uav_id"`
	Segments []PathSegmentPlan `json:"segments"`
}

// Equal reports segment-by-segment field equality.
func (p FlightPlanPolicy) Equal(other FlightPlanPolicy) bool {
	if p.UavID != other.UavID || len(p.Segments) != len(other.Segments) {
		return false
	}
	for i := range p.Segments {
		if p.Segments[i] != other.Segments[i] {
			return false
		}
	}
	return true
}

// ServiceProfile is the QoS intent of one UAV service (e.g. HD video uplink)
type ServiceProfile struct {
	Name              string  `json:"name" yaml:"name"`
	TargetBitrateMbps float64 `json:"target_bitrate_mbps" yaml:"target_bitrate_mbps"`
	MinSinrDB         float64 `json:"min_sinr_db" yaml:"min_sinr_db"`
}

// UavState is the minimal UAV state consumed by the decision policy
type UavState struct {
	UavID        string
	X, Y, Z      float64
	SliceID      *string
	PathPosition *float64
}

// RadioSnapshot is a per-UAV view of the radio environment at one control tick
type RadioSnapshot struct {
	ServingCellID         string   `json:"serving_cell_id"`
	NeighborCellIDs       []string `json:"neighbor_cell_ids"`
	RSRPServing           float64  `json:"rsrp_serving"`
	RSRPBestNeighbor      float64  `json:"rsrp_best_neighbor"`
	PRBUtilizationServing float64  `json:"prb_utilization_serving"`
	PRBUtilizationSlice   *float64 `json:"prb_utilization_slice,omitempty"`
}

// ResourceDecision is the output of the online policy for one UAV
type ResourceDecision struct {
	UavID        string  `json:"uav_id"`
	TargetCellID string  `json:"target_cell_id"`
	SliceID      *string `json:"slice_id"`
	PRBQuota     *int    `json:"prb_quota"`
	// Reason is a deterministic trace of the rule branches taken
	Reason string `json:"reason"`
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string { return &s }

// Float64Ptr returns a pointer to f.
func Float64Ptr(f float64) *float64 { return &f }

// IntPtr returns a pointer to i.
func IntPtr(i int) *int { return &i }
