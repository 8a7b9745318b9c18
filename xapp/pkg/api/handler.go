package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	apperrors "github.com/thc1006/O-RAN-UAV-Path-Aware-Policy/pkg/errors"
	"github.com/thc1006/O-RAN-UAV-Path-Aware-Policy/pkg/models"
	"github.com/thc1006/O-RAN-UAV-Path-Aware-Policy/pkg/security"
	"github.com/thc1006/O-RAN-UAV-Path-Aware-Policy/xapp/pkg/history"
	"github.com/thc1006/O-RAN-UAV-Path-Aware-Policy/xapp/pkg/metrics"
	"github.com/thc1006/O-RAN-UAV-Path-Aware-Policy/xapp/pkg/policy"
	"github.com/thc1006/O-RAN-UAV-Path-Aware-Policy/xapp/pkg/rc"
	"github.com/thc1006/O-RAN-UAV-Path-Aware-Policy/xapp/pkg/store"
)

// ServiceName identifies the xApp in health responses
const ServiceName = "uav-policy-xapp"

const (
	defaultDecisionsLimit = 100
	maxDecisionsLimit     = 1000
	maxBodyBytes          = 1 << 20
	rcApplyTimeout        = 5 * time.Second
	readyTimeout          = 2 * time.Second
)

// Config wires the handler dependencies. Zero values select in-memory
// defaults.
type Config struct {
	Store   store.Store
	History *history.Log
	Hub     *Hub
	Applier rc.Applier
	Metrics *metrics.Metrics
	Policy  policy.Options
	Logger  logrus.FieldLogger
	Version string
	Build   string
}

// Handler serves the xApp endpoints
type Handler struct {
	plans   store.Store
	history *history.Log
	hub     *Hub
	applier rc.Applier
	metrics *metrics.Metrics
	opts    policy.Options
	logger  logrus.FieldLogger
	version string
	build   string
	now     func() time.Time
}

// NewHandler creates a Handler from cfg
func NewHandler(cfg Config) *Handler {
	h := &Handler{
		plans:   cfg.Store,
		history: cfg.History,
		hub:     cfg.Hub,
		applier: cfg.Applier,
		metrics: cfg.Metrics,
		opts:    cfg.Policy,
		logger:  cfg.Logger,
		version: cfg.Version,
		build:   cfg.Build,
		now:     time.Now,
	}
	if h.logger == nil {
		h.logger = logrus.StandardLogger()
	}
	if h.plans == nil {
		h.plans = store.NewMemoryStore()
	}
	if h.history == nil {
		h.history = history.New(history.DefaultMaxSize)
	}
	if h.metrics == nil {
		h.metrics = metrics.New(nil)
	}
	if h.hub == nil {
		h.hub = NewHub(h.logger, func(n int) { h.metrics.StreamSubscribers.Set(float64(n)) })
	}
	if h.opts == (policy.Options{}) {
		h.opts = policy.DefaultOptions()
	}
	if h.version == "" {
		h.version = "dev"
	}
	return h
}

// Hub returns the decision stream hub
func (h *Handler) Hub() *Hub {
	return h.hub
}

func (h *Handler) timestamp() string {
	return h.now().UTC().Format(time.RFC3339Nano)
}

type errorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// statusFor maps an application error to its HTTP status
func statusFor(err error) int {
	switch {
	case apperrors.IsInvalidInput(err):
		return http.StatusBadRequest
	case apperrors.IsNotFound(err):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) respondError(c *gin.Context, message string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.WithError(err).WithField("path", c.FullPath()).Error(message)
	}
	c.JSON(status, errorResponse{
		Error:   message,
		Code:    string(apperrors.GetCode(err)),
		Details: err.Error(),
	})
}

// readJSONBody enforces a JSON content type and returns the raw body
func readJSONBody(c *gin.Context) ([]byte, bool) {
	if c.ContentType() != gin.MIMEJSON {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "Content-Type must be application/json"})
		return nil, false
	}
	data, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "Failed to read request body", Details: err.Error()})
		return nil, false
	}
	if !json.Valid(data) {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "Invalid JSON format"})
		return nil, false
	}
	return data, true
}

// Health reports liveness
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": h.timestamp(),
		"service":   ServiceName,
	})
}

// Ready reports whether the flight-plan store is reachable
func (h *Handler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readyTimeout)
	defer cancel()
	if _, err := h.plans.List(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"error":  err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":    "ready",
		"timestamp": h.timestamp(),
	})
}

// Version reports the build information
func (h *Handler) Version(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": ServiceName,
		"version": h.version,
		"build":   h.build,
	})
}

// resolvePlan returns the inline plan or the stored plan of the UAV
func (h *Handler) resolvePlan(ctx context.Context, ind *Indication) *models.FlightPlanPolicy {
	if ind.FlightPlan != nil {
		h.metrics.FlightPlansLoaded.WithLabelValues("inline").Inc()
		return ind.FlightPlan
	}
	if security.ValidateIdentifier(ind.Uav.UavID) != nil {
		h.metrics.FlightPlansLoaded.WithLabelValues("none").Inc()
		return nil
	}
	plan, err := h.plans.Get(ctx, ind.Uav.UavID)
	switch {
	case err == nil:
		h.metrics.FlightPlansLoaded.WithLabelValues("store").Inc()
		return &plan
	case apperrors.IsNotFound(err):
		h.metrics.FlightPlansLoaded.WithLabelValues("none").Inc()
	default:
		h.metrics.FlightPlansLoaded.WithLabelValues("error").Inc()
		h.logger.WithError(err).WithField("uav_id", security.SanitizeForLog(ind.Uav.UavID)).
			Warn("Flight plan lookup failed, deciding without plan")
	}
	return nil
}

// decide runs the policy for one indication and records the outcome
func (h *Handler) decide(ctx context.Context, ind *Indication) history.Record {
	for _, w := range ind.Warnings {
		h.logger.WithField("uav_id", security.SanitizeForLog(ind.Uav.UavID)).
			Warn(security.SanitizeForLog(w))
	}

	plan := h.resolvePlan(ctx, ind)
	decision := policy.Decide(ind.Uav, ind.Radio, plan, ind.Service, h.opts)

	rec := h.history.Append(decision)
	h.metrics.HistorySize.Set(float64(h.history.Len()))
	h.metrics.ObserveDecision(decision, ind.Radio.ServingCellID, plan != nil)
	h.hub.Broadcast(rec)
	h.apply(ctx, decision)

	h.logger.WithFields(logrus.Fields{
		"uav_id":         security.SanitizeForLog(decision.UavID),
		"serving_cell":   security.SanitizeForLog(ind.Radio.ServingCellID),
		"target_cell_id": security.SanitizeForLog(decision.TargetCellID),
		"decision_id":    rec.ID,
	}).Debug("Decision taken")
	return rec
}

// apply forwards a decision to the RC endpoint; failures never fail the request
func (h *Handler) apply(ctx context.Context, d models.ResourceDecision) {
	if h.applier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), rcApplyTimeout)
	defer cancel()
	if err := h.applier.ApplyDecision(ctx, d); err != nil {
		h.metrics.RCForwardTotal.WithLabelValues("error").Inc()
		h.logger.WithError(err).WithField("uav_id", security.SanitizeForLog(d.UavID)).
			Error("Failed to forward decision to RC endpoint")
		return
	}
	h.metrics.RCForwardTotal.WithLabelValues("ok").Inc()
}

// HandleIndication serves POST /e2/indication
func (h *Handler) HandleIndication(c *gin.Context) {
	data, ok := readJSONBody(c)
	if !ok {
		return
	}
	ind, err := ParseIndication(data)
	if err != nil {
		h.respondError(c, "Invalid indication data: "+err.Error(), err)
		return
	}

	rec := h.decide(c.Request.Context(), ind)
	c.JSON(http.StatusOK, DecisionResponse{
		ResourceDecision: rec.ResourceDecision,
		Timestamp:        rec.Timestamp.Format(time.RFC3339Nano),
	})
}

// HandleSimulationIndication serves POST /api/v1/e2/indication
func (h *Handler) HandleSimulationIndication(c *gin.Context) {
	data, ok := readJSONBody(c)
	if !ok {
		return
	}
	ind, err := ParseSimulationIndication(data)
	if err != nil {
		h.respondError(c, "Invalid indication data: "+err.Error(), err)
		return
	}

	rec := h.decide(c.Request.Context(), ind)
	c.JSON(http.StatusOK, NewSimulationResponse(rec.ResourceDecision, ind.Radio.ServingCellID,
		rec.Timestamp.Format(time.RFC3339Nano)))
}

// GetDecisions serves GET /decisions?limit=N, newest first
func (h *Handler) GetDecisions(c *gin.Context) {
	limit := defaultDecisionsLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse{Error: "limit must be an integer"})
			return
		}
		limit = n
	}
	if limit < 1 {
		limit = 1
	}
	if limit > maxDecisionsLimit {
		limit = maxDecisionsLimit
	}

	decisions := h.history.Recent(limit)
	c.JSON(http.StatusOK, gin.H{
		"decisions": decisions,
		"count":     len(decisions),
		"timestamp": h.timestamp(),
	})
}

// GetStats serves GET /stats
func (h *Handler) GetStats(c *gin.Context) {
	stats := h.history.Stats()
	c.JSON(http.StatusOK, gin.H{
		"total_decisions": stats.TotalDecisions,
		"unique_uavs":     stats.UniqueUAVs,
		"uav_list":        stats.UAVList,
		"timestamp":       h.timestamp(),
	})
}

// PutFlightPlan serves PUT /api/v1/flightplans/:uav_id
func (h *Handler) PutFlightPlan(c *gin.Context) {
	uavID := c.Param("uav_id")
	if err := security.ValidateIdentifier(uavID); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "Invalid uav_id", Details: err.Error()})
		return
	}
	data, ok := readJSONBody(c)
	if !ok {
		return
	}

	var plan models.FlightPlanPolicy
	if err := json.Unmarshal(data, &plan); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "Invalid flight plan", Details: err.Error()})
		return
	}
	if plan.UavID == "" {
		plan.UavID = uavID
	}
	if plan.UavID != uavID {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "uav_id in body does not match path"})
		return
	}
	if plan.Segments == nil {
		plan.Segments = []models.PathSegmentPlan{}
	}

	if err := h.plans.Put(c.Request.Context(), plan); err != nil {
		h.respondError(c, "Failed to store flight plan", err)
		return
	}
	h.logger.WithFields(logrus.Fields{
		"uav_id":   uavID,
		"segments": len(plan.Segments),
	}).Info("Flight plan stored")
	c.JSON(http.StatusOK, plan)
}

// GetFlightPlan serves GET /api/v1/flightplans/:uav_id
func (h *Handler) GetFlightPlan(c *gin.Context) {
	plan, err := h.plans.Get(c.Request.Context(), c.Param("uav_id"))
	if err != nil {
		h.respondError(c, "Failed to get flight plan", err)
		return
	}
	c.JSON(http.StatusOK, plan)
}

// DeleteFlightPlan serves DELETE /api/v1/flightplans/:uav_id
func (h *Handler) DeleteFlightPlan(c *gin.Context) {
	if err := h.plans.Delete(c.Request.Context(), c.Param("uav_id")); err != nil {
		h.respondError(c, "Failed to delete flight plan", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListFlightPlans serves GET /api/v1/flightplans
func (h *Handler) ListFlightPlans(c *gin.Context) {
	ids, err := h.plans.List(c.Request.Context())
	if err != nil {
		h.respondError(c, "Failed to list flight plans", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"uav_ids": ids,
		"count":   len(ids),
	})
}
