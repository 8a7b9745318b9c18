// Package api exposes the UAV policy xApp over HTTP
package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	apperrors "github.com/thc1006/O-RAN-UAV-Path-Aware-Policy/pkg/errors"
	"github.com/thc1006/O-RAN-UAV-Path-Aware-Policy/pkg/models"
)

const (
	defaultUavID = "unknown"

	// Simulation indication defaults
	simDefaultUeID        = "UAV-001"
	simDefaultCellID      = "1"
	simDefaultRSRP        = -100.0
	simDefaultUtilization = 0.5
	simDefaultAltitude    = 100.0
	simNoNeighborRSRP     = -140.0
)

type positionRecord struct {
	X *float64 `json:"x"`
	Y *float64 `json:"y"`
	Z *float64 `json:"z"`
}

type radioSnapshotRecord struct {
	ServingCellID         *string  `json:"serving_cell_id"`
	NeighborCellIDs       []string `json:"neighbor_cell_ids"`
	RSRPServing           *float64 `json:"rsrp_serving"`
	RSRPBestNeighbor      *float64 `json:"rsrp_best_neighbor"`
	PRBUtilizationServing *float64 `json:"prb_utilization_serving"`
	PRBUtilizationSlice   *float64 `json:"prb_utilization_slice"`
}

// IndicationRequest is the decision request body of POST /e2/indication.
// Optional sections are kept raw so that a malformed one can be skipped.
type IndicationRequest struct {
	UavID          string               `json:"uav_id"`
	Position       *positionRecord      `json:"position"`
	PathPosition   json.RawMessage      `json:"path_position,omitempty"`
	SliceID        *string              `json:"slice_id,omitempty"`
	RadioSnapshot  *radioSnapshotRecord `json:"radio_snapshot"`
	FlightPlan     json.RawMessage      `json:"flight_plan,omitempty"`
	ServiceProfile json.RawMessage      `json:"service_profile,omitempty"`
}

// Indication is a parsed decision request ready for the policy
type Indication struct {
	Uav        models.UavState
	Radio      models.RadioSnapshot
	FlightPlan *models.FlightPlanPolicy
	Service    *models.ServiceProfile
	// Warnings lists the optional sections that were ignored
	Warnings []string
}

// DecisionResponse is the decision returned to the caller
type DecisionResponse struct {
	models.ResourceDecision
	Timestamp string `json:"timestamp"`
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// ParseIndication decodes and checks a decision request. Missing required
// sections are InvalidInput errors; optional sections that fail to parse are
// dropped and reported in Warnings.
func ParseIndication(data []byte) (*Indication, error) {
	if isNull(data) {
		return nil, apperrors.NewInvalidInputError("body", "request body is empty")
	}
	var req IndicationRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, apperrors.NewInvalidInputError("body", err.Error())
	}
	return req.toIndication()
}

func (r *IndicationRequest) toIndication() (*Indication, error) {
	if r.Position == nil || r.Position.X == nil || r.Position.Y == nil || r.Position.Z == nil {
		return nil, apperrors.NewInvalidInputError("position", "position with x, y and z is required")
	}
	rs := r.RadioSnapshot
	if rs == nil {
		return nil, apperrors.NewInvalidInputError("radio_snapshot", "radio_snapshot is required")
	}
	switch {
	case rs.ServingCellID == nil || *rs.ServingCellID == "":
		return nil, apperrors.NewInvalidInputError("radio_snapshot.serving_cell_id", "serving_cell_id is required")
	case rs.RSRPServing == nil:
		return nil, apperrors.NewInvalidInputError("radio_snapshot.rsrp_serving", "rsrp_serving is required")
	case rs.RSRPBestNeighbor == nil:
		return nil, apperrors.NewInvalidInputError("radio_snapshot.rsrp_best_neighbor", "rsrp_best_neighbor is required")
	case rs.PRBUtilizationServing == nil:
		return nil, apperrors.NewInvalidInputError("radio_snapshot.prb_utilization_serving",
			"prb_utilization_serving is required")
	}

	uavID := r.UavID
	if uavID == "" {
		uavID = defaultUavID
	}

	ind := &Indication{
		Uav: models.UavState{
			UavID:   uavID,
			X:       *r.Position.X,
			Y:       *r.Position.Y,
			Z:       *r.Position.Z,
			SliceID: r.SliceID,
		},
		Radio: models.RadioSnapshot{
			ServingCellID:         *rs.ServingCellID,
			NeighborCellIDs:       rs.NeighborCellIDs,
			RSRPServing:           *rs.RSRPServing,
			RSRPBestNeighbor:      *rs.RSRPBestNeighbor,
			PRBUtilizationServing: *rs.PRBUtilizationServing,
			PRBUtilizationSlice:   rs.PRBUtilizationSlice,
		},
	}
	if ind.Radio.NeighborCellIDs == nil {
		ind.Radio.NeighborCellIDs = []string{}
	}

	if !isNull(r.PathPosition) {
		pos, err := parseNumber(r.PathPosition)
		if err != nil {
			ind.Warnings = append(ind.Warnings, fmt.Sprintf("path_position ignored: %v", err))
		} else {
			ind.Uav.PathPosition = models.Float64Ptr(pos)
		}
	}

	if !isNull(r.FlightPlan) {
		plan, err := parseFlightPlan(r.FlightPlan, uavID)
		if err != nil {
			ind.Warnings = append(ind.Warnings, fmt.Sprintf("flight_plan ignored: %v", err))
		} else {
			ind.FlightPlan = &plan
		}
	}

	if !isNull(r.ServiceProfile) {
		var svc models.ServiceProfile
		err := json.Unmarshal(r.ServiceProfile, &svc)
		if err == nil {
			err = svc.Validate()
		}
		if err != nil {
			ind.Warnings = append(ind.Warnings, fmt.Sprintf("service_profile ignored: %v", err))
		} else {
			ind.Service = &svc
		}
	}

	return ind, nil
}

// parseFlightPlan decodes an inline plan; a plan without uav_id belongs to
// the requesting UAV
func parseFlightPlan(raw json.RawMessage, uavID string) (models.FlightPlanPolicy, error) {
	var plan models.FlightPlanPolicy
	if err := json.Unmarshal(raw, &plan); err != nil {
		return models.FlightPlanPolicy{}, err
	}
	if plan.UavID == "" {
		plan.UavID = uavID
	}
	if plan.Segments == nil {
		plan.Segments = []models.PathSegmentPlan{}
	}
	if err := plan.Validate(); err != nil {
		return models.FlightPlanPolicy{}, err
	}
	return plan, nil
}

// parseNumber accepts a JSON number or a numeric string
func parseNumber(raw json.RawMessage) (float64, error) {
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, fmt.Errorf("not a number: %s", string(raw))
	}
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}

// cellIDString renders a JSON cell id (number or string) as a string
func cellIDString(raw json.RawMessage, fallback string) string {
	if isNull(raw) {
		return fallback
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return fallback
}

// SimulationIndication is the E2 indication emitted by the network simulator
type SimulationIndication struct {
	IndicationType string          `json:"indication_type"`
	UeID           string          `json:"ue_id"`
	GnbID          json.RawMessage `json:"gnb_id,omitempty"`
	CellID         json.RawMessage `json:"cell_id,omitempty"`
	Timestamp      json.RawMessage `json:"timestamp,omitempty"`
	Measurements   struct {
		RSRPServingDBm *float64 `json:"rsrp_serving_dbm"`
		RSRQServingDB  *float64 `json:"rsrq_serving_db"`
		SinrDB         *float64 `json:"sinr_db"`
		PRBUtilization *float64 `json:"prb_utilization"`
	} `json:"measurements"`
	NeighborCells []struct {
		CellID json.RawMessage `json:"cell_id"`
		RSRP   *float64        `json:"rsrp"`
	} `json:"neighbor_cells"`
	UeContext struct {
		Position positionRecord `json:"position"`
	} `json:"ue_context"`
}

// ParseSimulationIndication decodes a simulator indication and maps it to
// the decision inputs, filling simulator defaults for absent fields
func ParseSimulationIndication(data []byte) (*Indication, error) {
	if isNull(data) {
		return nil, apperrors.NewInvalidInputError("body", "request body is empty")
	}
	var sim SimulationIndication
	if err := json.Unmarshal(data, &sim); err != nil {
		return nil, apperrors.NewInvalidInputError("body", err.Error())
	}
	return sim.toIndication(), nil
}

func valueOr(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}

func (s *SimulationIndication) toIndication() *Indication {
	ueID := s.UeID
	if ueID == "" {
		ueID = simDefaultUeID
	}

	neighbors := make([]string, 0, len(s.NeighborCells))
	best := simNoNeighborRSRP
	for _, n := range s.NeighborCells {
		neighbors = append(neighbors, cellIDString(n.CellID, "0"))
		if rsrp := valueOr(n.RSRP, simNoNeighborRSRP); rsrp > best {
			best = rsrp
		}
	}

	pos := s.UeContext.Position
	return &Indication{
		Uav: models.UavState{
			UavID: ueID,
			X:     valueOr(pos.X, 0),
			Y:     valueOr(pos.Y, 0),
			Z:     valueOr(pos.Z, simDefaultAltitude),
		},
		Radio: models.RadioSnapshot{
			ServingCellID:         cellIDString(s.CellID, simDefaultCellID),
			NeighborCellIDs:       neighbors,
			RSRPServing:           valueOr(s.Measurements.RSRPServingDBm, simDefaultRSRP),
			RSRPBestNeighbor:      best,
			PRBUtilizationServing: valueOr(s.Measurements.PRBUtilization, simDefaultUtilization),
		},
	}
}

// SimulationResponse is the simulator-facing form of a decision
type SimulationResponse struct {
	Action        string      `json:"action"`
	TargetCellID  interface{} `json:"target_cell_id"`
	AllocatedPRBs int         `json:"allocated_prbs"`
	Reason        string      `json:"reason"`
	Timestamp     string      `json:"timestamp"`
}

const (
	ActionHandover      = "handover"
	ActionPRBAllocation = "prb_allocation"
	ActionNoAction      = "no_action"
)

// NewSimulationResponse converts a decision for the simulator. Numeric cell
// ids are returned as numbers.
func NewSimulationResponse(d models.ResourceDecision, servingCellID, timestamp string) SimulationResponse {
	resp := SimulationResponse{
		Action:       ActionNoAction,
		TargetCellID: d.TargetCellID,
		Reason:       d.Reason,
		Timestamp:    timestamp,
	}
	if d.PRBQuota != nil {
		resp.AllocatedPRBs = *d.PRBQuota
	}
	switch {
	case d.TargetCellID != servingCellID:
		resp.Action = ActionHandover
	case resp.AllocatedPRBs > 0:
		resp.Action = ActionPRBAllocation
	}
	if n, err := strconv.Atoi(d.TargetCellID); err == nil && isDigits(d.TargetCellID) {
		resp.TargetCellID = n
	}
	return resp
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
