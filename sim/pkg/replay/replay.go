// Package replay drives the decision policy along a UAV path using
// snapshots synthesized from a radio map, standing in for live KPM reports
package replay

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	apperrors "github.com/thc1006/O-RAN-UAV-Path-Aware-Policy/pkg/errors"
	"github.com/thc1006/O-RAN-UAV-Path-Aware-Policy/pkg/models"
	"github.com/thc1006/O-RAN-UAV-Path-Aware-Policy/xapp/pkg/policy"
)

// NoNeighborRSRP is reported as best-neighbor RSRP when only one cell is known
const NoNeighborRSRP = -140.0

// Step is the decision taken at one waypoint
type Step struct {
	StepIndex int                     `json:"step_index"`
	UavID     string                  `json:"uav_id"`
	Decision  models.ResourceDecision `json:"decision"`
}

// Input is one UAV path to replay
type Input struct {
	UavID     string
	Waypoints []models.Waypoint
	RadioMap  models.RadioMap
	// Plan and Service are optional
	Plan    *models.FlightPlanPolicy
	Service *models.ServiceProfile
}

// SyntheticSnapshot builds a radio snapshot from the cell metrics of one
// waypoint. The cell with the highest SINR serves (ties to the lowest id),
// the others are neighbors strongest first. SINR stands in for RSRP and the
// serving load for PRB utilization.
func SyntheticSnapshot(cells map[string]models.CellMetric) (models.RadioSnapshot, error) {
	if len(cells) == 0 {
		return models.RadioSnapshot{}, apperrors.NewInvalidInputError("cells", "no cell metrics")
	}

	ids := make([]string, 0, len(cells))
	for id := range cells {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := cells[ids[i]].SinrDB, cells[ids[j]].SinrDB
		if a != b {
			return a > b
		}
		return ids[i] < ids[j]
	})

	serving := cells[ids[0]]
	snap := models.RadioSnapshot{
		ServingCellID:         ids[0],
		NeighborCellIDs:       ids[1:],
		RSRPServing:           serving.SinrDB,
		RSRPBestNeighbor:      NoNeighborRSRP,
		PRBUtilizationServing: serving.Load,
	}
	if len(ids) > 1 {
		snap.RSRPBestNeighbor = cells[ids[1]].SinrDB
	}
	return snap, nil
}

// Run replays the path in waypoint index order and returns one step per
// waypoint. Path position is the ordinal position along the sorted path,
// matching the planner's normalization.
func Run(in Input, opts policy.Options) ([]Step, error) {
	if err := models.ValidateWaypoints(in.Waypoints); err != nil {
		return nil, err
	}

	waypoints := make([]models.Waypoint, len(in.Waypoints))
	copy(waypoints, in.Waypoints)
	sort.Slice(waypoints, func(i, j int) bool { return waypoints[i].Index < waypoints[j].Index })

	denom := float64(len(waypoints) - 1)
	if denom < 1 {
		denom = 1
	}

	steps := make([]Step, 0, len(waypoints))
	for i, wp := range waypoints {
		cells := in.RadioMap.CellsForStep(wp.Index)
		if len(cells) == 0 {
			return nil, apperrors.NewMissingRadioDataError(wp.Index, i == 0)
		}
		radio, err := SyntheticSnapshot(cells)
		if err != nil {
			return nil, err
		}

		uav := models.UavState{
			UavID:        in.UavID,
			X:            wp.X,
			Y:            wp.Y,
			Z:            wp.Z,
			PathPosition: models.Float64Ptr(float64(i) / denom),
		}
		steps = append(steps, Step{
			StepIndex: wp.Index,
			UavID:     in.UavID,
			Decision:  policy.Decide(uav, radio, in.Plan, in.Service, opts),
		})
	}
	return steps, nil
}

// WriteJSONL writes one JSON record per line
func WriteJSONL(w io.Writer, steps []Step) error {
	enc := json.NewEncoder(w)
	for _, s := range steps {
		if err := enc.Encode(s); err != nil {
			return fmt.Errorf("failed to write step %d: %w", s.StepIndex, err)
		}
	}
	return nil
}
