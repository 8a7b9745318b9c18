package rc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/thc1006/O-RAN-UAV-Path-Aware-Policy/pkg/errors"
	"github.com/thc1006/O-RAN-UAV-Path-Aware-Policy/pkg/models"
)

func sampleDecision() models.ResourceDecision {
	return models.ResourceDecision{
		UavID:        "UAV-001",
		TargetCellID: "cell-B",
		SliceID:      models.StringPtr("uav-hd-video"),
		PRBQuota:     models.IntPtr(17),
		Reason:       "Follow plan to cell-B.",
	}
}

func TestNewClient(t *testing.T) {
	t.Run("default configuration", func(t *testing.T) {
		client := NewClient("http://rc.example.com/")
		assert.Equal(t, "http://rc.example.com", client.baseURL)
		assert.Equal(t, 5*time.Second, client.timeout)
		assert.Equal(t, 5*time.Second, client.httpClient.Timeout)
		assert.Empty(t, client.authToken)
		assert.Nil(t, client.limiter)
	})

	t.Run("with custom options", func(t *testing.T) {
		client := NewClient("http://rc.example.com",
			WithTimeout(2*time.Second),
			WithAuthToken("rc-token"),
			WithRateLimit(10, 0),
		)
		assert.Equal(t, 2*time.Second, client.timeout)
		assert.Equal(t, "rc-token", client.authToken)
		require.NotNil(t, client.limiter)
		assert.Equal(t, 1, client.limiter.Burst())
	})
}

func TestApplyDecision(t *testing.T) {
	var got ControlRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, ControlPath, r.URL.Path)
		assert.Equal(t, "Bearer rc-token", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(ControlAck{RequestID: got.RequestID, Status: "accepted"})
	}))
	defer server.Close()

	client := NewClient(server.URL, WithAuthToken("rc-token"))
	ack, err := client.Apply(context.Background(), sampleDecision())
	require.NoError(t, err)

	assert.Equal(t, "accepted", ack.Status)
	assert.Equal(t, got.RequestID, ack.RequestID)
	assert.NotEmpty(t, got.RequestID)
	assert.Equal(t, "UAV-001", got.UavID)
	assert.Equal(t, "cell-B", got.TargetCellID)
	require.NotNil(t, got.PRBQuota)
	assert.Equal(t, 17, *got.PRBQuota)
	assert.False(t, got.IssuedAt.IsZero())
}

func TestApplyDecisionErrors(t *testing.T) {
	t.Run("server error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"error":"rc busy"}`))
		}))
		defer server.Close()

		err := NewClient(server.URL).ApplyDecision(context.Background(), sampleDecision())
		require.Error(t, err)
		assert.True(t, apperrors.IsService(err))
		assert.Contains(t, err.Error(), "rc busy")
	})

	t.Run("rejected", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(ControlAck{Status: "rejected", Message: "unknown cell"})
		}))
		defer server.Close()

		ack, err := NewClient(server.URL).Apply(context.Background(), sampleDecision())
		require.Error(t, err)
		assert.Equal(t, "rejected", ack.Status)
		assert.Contains(t, err.Error(), "unknown cell")
	})

	t.Run("unreachable", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		url := server.URL
		server.Close()

		err := NewClient(url, WithTimeout(time.Second)).ApplyDecision(context.Background(), sampleDecision())
		assert.True(t, apperrors.IsService(err))
	})

	t.Run("cancelled while rate limited", func(t *testing.T) {
		var calls int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			w.WriteHeader(http.StatusNoContent)
		}))
		defer server.Close()

		client := NewClient(server.URL, WithRateLimit(0.001, 1))
		require.NoError(t, client.ApplyDecision(context.Background(), sampleDecision()))

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		err := client.ApplyDecision(ctx, sampleDecision())
		assert.Error(t, err)
		assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	})
}

func TestLogSink(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	sink := LogSink{Logger: logger}

	d := sampleDecision()
	d.UavID = "UAV-001\nforged"
	require.NoError(t, sink.ApplyDecision(context.Background(), d))

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.InfoLevel, entry.Level)
	assert.Equal(t, "UAV-001\\nforged", entry.Data["uav_id"])
	assert.Equal(t, 17, entry.Data["prb_quota"])
}
