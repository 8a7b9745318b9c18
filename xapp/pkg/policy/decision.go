package policy

import (
	"fmt"
	"strings"

	apperrors "github.com/thc1006/O-RAN-UAV-Path-Aware-Policy/pkg/errors"
	"github.com/thc1006/O-RAN-UAV-Path-Aware-Policy/pkg/models"
)

// Options holds the thresholds of the decision policy
type Options struct {
	OverloadedThreshold float64 `mapstructure:"overloaded_threshold"` // Serving PRB utilization above which a handover is allowed
	HysteresisDB        float64 `mapstructure:"hysteresis_db"`        // Margin the neighbor must exceed the serving cell by
	MinPRBQuota         int     `mapstructure:"min_prb_quota"`
	MaxPRBQuota         int     `mapstructure:"max_prb_quota"`
	PRBBandwidthHz      float64 `mapstructure:"prb_bandwidth_hz"`
}

// DefaultOptions returns the default policy thresholds
func DefaultOptions() Options {
	return Options{
		OverloadedThreshold: 0.8,
		HysteresisDB:        3.0,
		MinPRBQuota:         5,
		MaxPRBQuota:         100,
		PRBBandwidthHz:      DefaultPRBBandwidthHz,
	}
}

// Validate checks that the quota bounds are usable
func (o Options) Validate() error {
	if o.MinPRBQuota < 1 {
		return apperrors.NewInvalidInputError("min_prb_quota", "must be at least 1").WithValue(o.MinPRBQuota)
	}
	if o.MaxPRBQuota < o.MinPRBQuota {
		return apperrors.NewInvalidInputError("max_prb_quota",
			fmt.Sprintf("must not be below min_prb_quota %d", o.MinPRBQuota)).WithValue(o.MaxPRBQuota)
	}
	if o.HysteresisDB < 0 {
		return apperrors.NewInvalidInputError("hysteresis_db", "must not be negative").WithValue(o.HysteresisDB)
	}
	return nil
}

// handoverWarranted reports whether the serving cell is overloaded and the
// best neighbor is stronger by more than the hysteresis margin
func (o Options) handoverWarranted(radio models.RadioSnapshot) bool {
	return radio.PRBUtilizationServing > o.OverloadedThreshold &&
		radio.RSRPBestNeighbor > radio.RSRPServing+o.HysteresisDB
}

// reasons accumulates the clauses of a decision trace
type reasons []string

func (r *reasons) add(format string, args ...interface{}) {
	*r = append(*r, fmt.Sprintf(format, args...))
}

func (r reasons) String() string {
	return strings.Join(r, " ")
}

// Decide reconciles the flight plan with the live radio snapshot and returns
// the serving cell, slice and PRB quota for one UAV. plan and service are
// optional. Decide has no side effects and never fails: missing inputs fall
// back to the reactive rule, the UAV slice and the minimum quota.
func Decide(uav models.UavState, radio models.RadioSnapshot, plan *models.FlightPlanPolicy,
	service *models.ServiceProfile, opts Options) models.ResourceDecision {
	var why reasons

	var seg models.PathSegmentPlan
	active := false
	if plan != nil && uav.PathPosition != nil {
		seg, active = FindActiveSegment(plan, *uav.PathPosition)
	}

	target := radio.ServingCellID
	switch {
	case !active:
		why.add("No active flight-plan segment; reactive rule applies.")
		if opts.handoverWarranted(radio) && len(radio.NeighborCellIDs) > 0 {
			target = radio.NeighborCellIDs[0]
			why.add("Reactive handover to %s: serving utilization %.1f%%, neighbor stronger by %.1f dB.",
				target, radio.PRBUtilizationServing*100, radio.RSRPBestNeighbor-radio.RSRPServing)
		} else {
			why.add("Stay on serving %s: not overloaded or no clearly stronger neighbor.", radio.ServingCellID)
		}
	case seg.PlannedCellID == radio.ServingCellID:
		why.add("Serving %s matches planned segment [%.3f, %.3f).", radio.ServingCellID, seg.StartPos, seg.EndPos)
	case radio.PRBUtilizationServing <= opts.OverloadedThreshold:
		why.add("Plan suggests %s but serving utilization %.1f%% is within threshold %.1f%%; stay for stability.",
			seg.PlannedCellID, radio.PRBUtilizationServing*100, opts.OverloadedThreshold*100)
	case !opts.handoverWarranted(radio):
		why.add("Plan suggests %s but neighbor is not stronger by more than %.1f dB; stay on serving.",
			seg.PlannedCellID, opts.HysteresisDB)
	default:
		target = seg.PlannedCellID
		why.add("Follow plan to %s: serving overloaded and neighbor stronger by %.1f dB.",
			target, radio.RSRPBestNeighbor-radio.RSRPServing)
	}

	var slice *string
	switch {
	case uav.SliceID != nil:
		slice = models.StringPtr(*uav.SliceID)
		why.add("Slice %s from UAV state.", *uav.SliceID)
	case active:
		slice = models.StringPtr(seg.SliceID)
		why.add("Slice %s from flight-plan segment.", seg.SliceID)
	default:
		why.add("No slice information; slice left unset.")
	}

	base := opts.MinPRBQuota
	if active {
		base = seg.BasePRBQuota
	}
	quota := base

	if service != nil {
		proxy := radio.RSRPServing
		source := "serving"
		if target != radio.ServingCellID {
			proxy = radio.RSRPBestNeighbor
			source = "best-neighbor"
		}
		why.add("PRB estimate uses %s RSRP %.1f dB as SINR proxy.", source, proxy)
		if proxy < service.MinSinrDB {
			why.add("Effective SINR %.1f dB is below the %s minimum %.1f dB.", proxy, service.Name, service.MinSinrDB)
		}

		estimate := EstimateRequiredPRB(service.TargetBitrateMbps, proxy, opts.PRBBandwidthHz)
		why.add("Service %s needs %.2f Mbps, about %d PRBs.", service.Name, service.TargetBitrateMbps, estimate)
		if estimate > quota {
			quota = estimate
		}
	} else {
		why.add("No service profile; base quota %d.", base)
	}

	if quota > opts.MaxPRBQuota {
		quota = opts.MaxPRBQuota
	}
	if quota < opts.MinPRBQuota {
		quota = opts.MinPRBQuota
	}

	return models.ResourceDecision{
		UavID:        uav.UavID,
		TargetCellID: target,
		SliceID:      slice,
		PRBQuota:     models.IntPtr(quota),
		Reason:       why.String(),
	}
}
