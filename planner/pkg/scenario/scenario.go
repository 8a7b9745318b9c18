// Package scenario loads UAV path scenarios for the planner and the Near-RT mock
package scenario

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v2"

	apperrors "github.com/thc1006/O-RAN-UAV-Path-Aware-Policy/pkg/errors"
	"github.com/thc1006/O-RAN-UAV-Path-Aware-Policy/pkg/models"
	"github.com/thc1006/O-RAN-UAV-Path-Aware-Policy/pkg/security"
	"github.com/thc1006/O-RAN-UAV-Path-Aware-Policy/planner/pkg/planner"
)

// Scenario describes one experiment: the UAVs, their paths and optionally
// the radio maps, service profile and planner tuning to use
type Scenario struct {
	ScenarioID  string                 `yaml:"scenario_id"`
	Description string                 `yaml:"description"`
	Service     *models.ServiceProfile `yaml:"service,omitempty"`
	Planner     *planner.Config        `yaml:"planner,omitempty"`
	UAVs        []UAV                  `yaml:"uavs"`
}

// UAV is a single UAV path within a scenario
type UAV struct {
	UavID     string            `yaml:"uav_id"`
	Waypoints []models.Waypoint `yaml:"waypoints"`
	// RadioMap is optional; the synthetic map is used when absent
	RadioMap models.RadioMap `yaml:"radio_map,omitempty"`
}

// DefaultService returns the demo HD video uplink profile
func DefaultService() models.ServiceProfile {
	return models.ServiceProfile{
		Name:              "uav-hd-video",
		TargetBitrateMbps: 10.0,
		MinSinrDB:         -3.0,
	}
}

// Load reads and validates a scenario YAML file
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario %s: %w", path, err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", path, err)
	}
	return s, nil
}

// Parse decodes and validates a scenario document
func Parse(data []byte) (*Scenario, error) {
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, apperrors.NewInvalidInputError("scenario", err.Error())
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks that every UAV has a usable id and a well-formed path
func (s *Scenario) Validate() error {
	if len(s.UAVs) == 0 {
		return apperrors.NewInvalidInputError("uavs", "scenario must define at least one UAV")
	}
	seen := make(map[string]struct{}, len(s.UAVs))
	for i, u := range s.UAVs {
		if err := security.ValidateIdentifier(u.UavID); err != nil {
			return apperrors.NewInvalidInputError(fmt.Sprintf("uavs[%d].uav_id", i), err.Error())
		}
		if _, dup := seen[u.UavID]; dup {
			return apperrors.NewInvalidInputError(fmt.Sprintf("uavs[%d].uav_id", i),
				fmt.Sprintf("duplicate uav_id %s", u.UavID))
		}
		seen[u.UavID] = struct{}{}
		if err := models.ValidateWaypoints(u.Waypoints); err != nil {
			return apperrors.Wrap(err, fmt.Sprintf("uavs[%d]", i))
		}
	}
	if s.Service != nil {
		if err := s.Service.Validate(); err != nil {
			return apperrors.Wrap(err, "service")
		}
	}
	if s.Planner != nil {
		if err := s.Planner.Validate(); err != nil {
			return apperrors.Wrap(err, "planner")
		}
	}
	return nil
}

// ServiceProfile returns the scenario service or the demo default
func (s *Scenario) ServiceProfile() models.ServiceProfile {
	if s.Service != nil {
		return *s.Service
	}
	return DefaultService()
}

// RadioMapFor returns the UAV's own radio map or a synthetic one built from its path
func (u UAV) RadioMapFor() models.RadioMap {
	if len(u.RadioMap) > 0 {
		return u.RadioMap
	}
	return SyntheticRadioMap(u.Waypoints)
}
