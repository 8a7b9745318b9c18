package policy

import "github.com/thc1006/O-RAN-UAV-Path-Aware-Policy/pkg/models"

// ReactivePRBQuota is the fixed quota granted by the reactive baseline
const ReactivePRBQuota = 20

// ReactivePolicy is the baseline without flight-plan awareness: hand over to
// the first neighbor when the serving cell is overloaded and the neighbor is
// clearly stronger, with a fixed PRB quota.
func ReactivePolicy(uav models.UavState, radio models.RadioSnapshot, opts Options) models.ResourceDecision {
	target := radio.ServingCellID
	reason := "Stay on serving cell; load acceptable or no clearly stronger neighbor."
	if opts.handoverWarranted(radio) && len(radio.NeighborCellIDs) > 0 {
		target = radio.NeighborCellIDs[0]
		reason = "Serving cell overloaded and neighbor clearly stronger; hand over."
	}

	var slice *string
	if uav.SliceID != nil {
		slice = models.StringPtr(*uav.SliceID)
	}

	return models.ResourceDecision{
		UavID:        uav.UavID,
		TargetCellID: target,
		SliceID:      slice,
		PRBQuota:     models.IntPtr(ReactivePRBQuota),
		Reason:       reason,
	}
}
