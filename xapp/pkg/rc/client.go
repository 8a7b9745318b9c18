// Package rc forwards resource decisions to a RAN control (RC) endpoint
package rc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	apperrors "github.com/thc1006/O-RAN-UAV-Path-Aware-Policy/pkg/errors"
	"github.com/thc1006/O-RAN-UAV-Path-Aware-Policy/pkg/models"
	"github.com/thc1006/O-RAN-UAV-Path-Aware-Policy/pkg/security"
)

// ControlPath is the RC endpoint accepting control requests
const ControlPath = "/rc/v1/control"

// Applier applies a resource decision to the RAN
type Applier interface {
	ApplyDecision(ctx context.Context, decision models.ResourceDecision) error
}

// ControlRequest is the body POSTed to the RC endpoint
type ControlRequest struct {
	RequestID    string    `json:"request_id"`
	UavID        string    `json:"uav_id"`
	TargetCellID string    `json:"target_cell_id"`
	SliceID      *string   `json:"slice_id"`
	PRBQuota     *int      `json:"prb_quota"`
	Reason       string    `json:"reason"`
	IssuedAt     time.Time `json:"issued_at"`
}

// ControlAck is the RC response to a control request
type ControlAck struct {
	RequestID string `json:"request_id"`
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
}

// Client posts control requests to an RC endpoint
type Client struct {
	baseURL    string
	httpClient *http.Client
	authToken  string
	timeout    time.Duration
	limiter    *rate.Limiter
}

// ClientOption configures the RC client
type ClientOption func(*Client)

// WithTimeout sets the client timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = timeout
		c.httpClient.Timeout = timeout
	}
}

// WithAuthToken sets the bearer token
func WithAuthToken(token string) ClientOption {
	return func(c *Client) {
		c.authToken = token
	}
}

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithRateLimit paces outgoing requests; rps <= 0 disables pacing
func WithRateLimit(rps float64, burst int) ClientOption {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// NewClient creates a new RC client
func NewClient(baseURL string, options ...ClientOption) *Client {
	client := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
		timeout: 5 * time.Second,
	}

	for _, option := range options {
		option(client)
	}

	return client
}

// ApplyDecision implements Applier
func (c *Client) ApplyDecision(ctx context.Context, decision models.ResourceDecision) error {
	_, err := c.Apply(ctx, decision)
	return err
}

// Apply sends the decision and returns the RC acknowledgement
func (c *Client) Apply(ctx context.Context, decision models.ResourceDecision) (*ControlAck, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, apperrors.NewServiceError("rc", "apply decision", err)
		}
	}

	req := ControlRequest{
		RequestID:    uuid.New().String(),
		UavID:        decision.UavID,
		TargetCellID: decision.TargetCellID,
		SliceID:      decision.SliceID,
		PRBQuota:     decision.PRBQuota,
		Reason:       decision.Reason,
		IssuedAt:     time.Now().UTC(),
	}

	var ack ControlAck
	if err := c.doRequest(ctx, http.MethodPost, ControlPath, req, &ack); err != nil {
		return nil, apperrors.NewServiceError("rc", "apply decision", err)
	}
	if strings.EqualFold(ack.Status, "rejected") {
		return &ack, apperrors.NewServiceError("rc", "apply decision",
			fmt.Errorf("request %s rejected: %s", req.RequestID, ack.Message))
	}
	return &ack, nil
}

func (c *Client) doRequest(ctx context.Context, method, endpoint string, body interface{}, result interface{}) error {
	var reqBody []byte
	var err error

	if body != nil {
		reqBody, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, bytes.NewBuffer(reqBody))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiError struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&apiError); err != nil || apiError.Error == "" {
			return fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
		}
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, apiError.Error)
	}

	if result != nil && resp.ContentLength != 0 {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// LogSink is an Applier that only logs decisions. It is used when no RC
// endpoint is configured.
type LogSink struct {
	Logger logrus.FieldLogger
}

// ApplyDecision implements Applier
func (s LogSink) ApplyDecision(_ context.Context, d models.ResourceDecision) error {
	fields := logrus.Fields{
		"uav_id":         security.SanitizeForLog(d.UavID),
		"target_cell_id": security.SanitizeForLog(d.TargetCellID),
	}
	if d.SliceID != nil {
		fields["slice_id"] = security.SanitizeForLog(*d.SliceID)
	}
	if d.PRBQuota != nil {
		fields["prb_quota"] = *d.PRBQuota
	}
	s.Logger.WithFields(fields).Info("Apply RC decision")
	return nil
}
