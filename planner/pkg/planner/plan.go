package planner

import (
	"github.com/thc1006/O-RAN-UAV-Path-Aware-Policy/pkg/models"
)

// PlanFlightPath plans the serving cells for one UAV path and compiles them
// into a flight-plan policy. A nil cfg selects the defaults with the SINR
// floor taken from the service profile.
func PlanFlightPath(uavID string, waypoints []models.Waypoint, radioMap models.RadioMap,
	service models.ServiceProfile, cfg *Config) (models.FlightPlanPolicy, error) {
	c := DefaultConfig()
	if cfg != nil {
		c = *cfg
	} else {
		c.SinrMinDB = service.MinSinrDB
	}

	cells, err := ChooseCells(waypoints, radioMap, c)
	if err != nil {
		return models.FlightPlanPolicy{}, err
	}
	return CompileSegments(uavID, sortWaypoints(waypoints), cells, service), nil
}
