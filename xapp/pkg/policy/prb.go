// Package policy implements the online path-aware decision policy of the UAV
// xApp and its PRB estimator.
package policy

import "math"

const (
	// DefaultPRBBandwidthHz is the bandwidth of one PRB at 15 kHz subcarrier spacing
	DefaultPRBBandwidthHz = 180e3

	// minEstimatorSinrDB is the lower validity bound of the Shannon model
	minEstimatorSinrDB = -10.0
)

// EstimateRequiredPRB sizes the PRB allocation needed to carry
// targetBitrateMbps at sinrDB using the Shannon bound. A non-positive
// prbBandwidthHz selects DefaultPRBBandwidthHz. The result is at least 1.
func EstimateRequiredPRB(targetBitrateMbps, sinrDB, prbBandwidthHz float64) int {
	if prbBandwidthHz <= 0 {
		prbBandwidthHz = DefaultPRBBandwidthHz
	}
	if sinrDB < minEstimatorSinrDB {
		sinrDB = minEstimatorSinrDB
	}

	snr := math.Pow(10, sinrDB/10)
	efficiency := math.Log2(1 + snr)
	if efficiency <= 0 {
		return 1
	}

	perPRBMbps := efficiency * prbBandwidthHz / 1e6
	if perPRBMbps <= 0 {
		return 1
	}

	prbs := math.Ceil(targetBitrateMbps / perPRBMbps)
	if prbs < 1 || math.IsNaN(prbs) {
		return 1
	}
	if prbs > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(prbs)
}
