package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thc1006/O-RAN-UAV-Path-Aware-Policy/pkg/models"
)

func TestNewRegistersCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.HistorySize.Set(3)
	m.RCForwardTotal.WithLabelValues("ok").Inc()

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["uav_xapp_decision_history_size"])
	assert.True(t, names["uav_xapp_rc_forward_total"])

	assert.Panics(t, func() { New(reg) }, "double registration must fail")
}

func TestObserveDecision(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveDecision(models.ResourceDecision{TargetCellID: "cell-B", PRBQuota: models.IntPtr(17)}, "cell-A", true)
	m.ObserveDecision(models.ResourceDecision{TargetCellID: "cell-A", PRBQuota: models.IntPtr(5)}, "cell-A", false)
	m.ObserveDecision(models.ResourceDecision{TargetCellID: "cell-A"}, "cell-A", false)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.DecisionsTotal.WithLabelValues("handover", "present")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.DecisionsTotal.WithLabelValues("stay", "absent")))

	families, err := reg.Gather()
	require.NoError(t, err)
	var samples uint64
	for _, f := range families {
		if f.GetName() == "uav_xapp_prb_quota" {
			samples = f.GetMetric()[0].GetHistogram().GetSampleCount()
		}
	}
	assert.Equal(t, uint64(2), samples)
}

func TestObserveRequest(t *testing.T) {
	m := New(nil)
	m.ObserveRequest("POST", "/e2/indication", "200", 12*time.Millisecond)
	m.ObserveRequest("POST", "/e2/indication", "200", 3*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("POST", "/e2/indication", "200")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.RequestDuration))
}
