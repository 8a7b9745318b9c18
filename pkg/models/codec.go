package models

import (
	"encoding/json"
	"fmt"

	apperrors "github.com/thc1006/O-RAN-UAV-Path-Aware-Policy/pkg/errors"
)

// EncodePolicy serializes a flight-plan policy to its JSON record.
func EncodePolicy(p FlightPlanPolicy) ([]byte, error) {
	if p.Segments == nil {
		p.Segments = []PathSegmentPlan{}
	}
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode flight plan for %s: %w", p.UavID, err)
	}
	return data, nil
}

// DecodePolicy reconstructs a flight-plan policy from its JSON record and
// validates it. DecodePolicy(EncodePolicy(p)) equals p for every valid p.
func DecodePolicy(data []byte) (FlightPlanPolicy, error) {
	var p FlightPlanPolicy
	if err := json.Unmarshal(data, &p); err != nil {
		return FlightPlanPolicy{}, apperrors.Wrap(
			apperrors.NewInvalidInputError("flight_plan", err.Error()), "invalid flight plan record")
	}
	if p.Segments == nil {
		p.Segments = []PathSegmentPlan{}
	}
	if err := p.Validate(); err != nil {
		return FlightPlanPolicy{}, err
	}
	return p, nil
}
