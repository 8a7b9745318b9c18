// Package planner implements the Non-RT flight-path planner: a dynamic program
// that selects one serving cell per waypoint and compiles the result into a
// piecewise flight-plan policy.
package planner

import (
	"math"

	apperrors "github.com/thc1006/O-RAN-UAV-Path-Aware-Policy/pkg/errors"
)

// Config holds the planner tuning parameters
type Config struct {
	SinrMinDB float64 `json:"sinr_min_db" yaml:"sinr_min_db"` // SINR floor for candidate cells
	WSinr     float64 `json:"w_sinr" yaml:"w_sinr"`           // Weight for margin above the floor
	WLoad     float64 `json:"w_load" yaml:"w_load"`           // Weight for cell load
	HOPenalty float64 `json:"ho_penalty" yaml:"ho_penalty"`   // Cost of a cell change between steps
}

// DefaultConfig returns default planner parameters
func DefaultConfig() Config {
	return Config{
		SinrMinDB: -5.0,
		WSinr:     1.0,
		WLoad:     0.5,
		HOPenalty: 0.5,
	}
}

// Validate rejects negative or non-finite weights
func (c Config) Validate() error {
	checks := []struct {
		field string
		value float64
	}{
		{"w_sinr", c.WSinr},
		{"w_load", c.WLoad},
		{"ho_penalty", c.HOPenalty},
	}
	for _, chk := range checks {
		if math.IsNaN(chk.value) || math.IsInf(chk.value, 0) || chk.value < 0 {
			return apperrors.NewInvalidInputError(chk.field, "must be a finite non-negative number").WithValue(chk.value)
		}
	}
	if math.IsNaN(c.SinrMinDB) {
		return apperrors.NewInvalidInputError("sinr_min_db", "must be a number")
	}
	return nil
}

// Utility scores a cell at one step. Higher is better: it rewards margin
// above the SINR floor and penalizes load linearly.
func (c Config) Utility(sinrDB, load float64) float64 {
	return c.WSinr*(sinrDB-c.SinrMinDB) - c.WLoad*load
}
