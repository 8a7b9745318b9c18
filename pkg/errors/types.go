// Package errors provides the error kinds shared by the planner and the UAV policy xApp
package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorCode represents specific error classifications
type ErrorCode string

const (
	// Input errors
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	ErrCodeValidation   ErrorCode = "VALIDATION_ERROR"

	// Planning errors
	ErrCodeMissingRadioData ErrorCode = "MISSING_RADIO_DATA"

	// Resource errors
	ErrCodeNotFound ErrorCode = "RESOURCE_NOT_FOUND"

	// Service errors
	ErrCodeService     ErrorCode = "SERVICE_ERROR"
	ErrCodeUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
)

// ErrorSeverity indicates the severity level of an error
type ErrorSeverity string

const (
	SeverityLow      ErrorSeverity = "low"
	SeverityMedium   ErrorSeverity = "medium"
	SeverityHigh     ErrorSeverity = "high"
	SeverityCritical ErrorSeverity = "critical"
)

// BaseError provides the foundation for all application errors
type BaseError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Cause     error                  `json:"-"`
	Severity  ErrorSeverity          `json:"severity"`
	Timestamp time.Time              `json:"timestamp"`
}

// Error implements the error interface
func (e *BaseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause
func (e *BaseError) Unwrap() error {
	return e.Cause
}

// ErrorCode reports the classification of the error.
func (e *BaseError) ErrorCode() ErrorCode {
	return e.Code
}

// MarshalJSON customizes JSON serialization
func (e *BaseError) MarshalJSON() ([]byte, error) {
	type Alias BaseError
	return json.Marshal(&struct {
		*Alias
		Cause string `json:"cause,omitempty"`
	}{
		Alias: (*Alias)(e),
		Cause: e.getCauseString(),
	})
}

func (e *BaseError) getCauseString() string {
	if e.Cause != nil {
		return e.Cause.Error()
	}
	return ""
}

func newBase(code ErrorCode, severity ErrorSeverity, message string) *BaseError {
	return &BaseError{
		Code:      code,
		Message:   message,
		Severity:  severity,
		Timestamp: time.Now(),
		Details:   make(map[string]interface{}),
	}
}

// MissingRadioDataError is returned by the planner when the radio map has no
// entry for a waypoint it has to plan. It is fatal for the planning run.
type MissingRadioDataError struct {
	*BaseError
	WaypointIndex int `json:"waypoint_index"`
}

// NewMissingRadioDataError creates a new missing radio data error
func NewMissingRadioDataError(waypointIndex int, first bool) *MissingRadioDataError {
	msg := fmt.Sprintf("radio map has no metrics for waypoint index=%d", waypointIndex)
	if first {
		msg = fmt.Sprintf("radio map has no metrics for first waypoint (index=%d)", waypointIndex)
	}
	err := &MissingRadioDataError{
		BaseError:     newBase(ErrCodeMissingRadioData, SeverityHigh, msg),
		WaypointIndex: waypointIndex,
	}
	err.Details["waypoint_index"] = waypointIndex
	return err
}

// InvalidInputError represents a structurally invalid record reaching the core
type InvalidInputError struct {
	*BaseError
	Field string      `json:"field"`
	Value interface{} `json:"value,omitempty"`
}

// NewInvalidInputError creates a new invalid input error
func NewInvalidInputError(field, message string) *InvalidInputError {
	return &InvalidInputError{
		BaseError: newBase(ErrCodeInvalidInput, SeverityMedium, message),
		Field:     field,
	}
}

// WithValue attaches the offending value to the error.
func (e *InvalidInputError) WithValue(v interface{}) *InvalidInputError {
	e.Value = v
	e.Details["value"] = v
	return e
}

// NotFoundError represents resource not found errors
type NotFoundError struct {
	*BaseError
	Resource string `json:"resource"`
	ID       string `json:"id"`
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{
		BaseError: newBase(ErrCodeNotFound, SeverityLow, fmt.Sprintf("%s with ID %s not found", resource, id)),
		Resource:  resource,
		ID:        id,
	}
}

// ServiceError represents failures of a remote collaborator
type ServiceError struct {
	*BaseError
	Service   string `json:"service"`
	Operation string `json:"operation"`
}

// NewServiceError creates a new service error
func NewServiceError(service, operation string, cause error) *ServiceError {
	base := newBase(ErrCodeService, SeverityHigh, fmt.Sprintf("%s %s failed", service, operation))
	base.Cause = cause
	return &ServiceError{
		BaseError: base,
		Service:   service,
		Operation: operation,
	}
}

// Wrap wraps an error with additional context, keeping its code
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return &BaseError{
		Code:      GetCode(err),
		Message:   message,
		Cause:     err,
		Severity:  GetSeverity(err),
		Timestamp: time.Now(),
		Details:   make(map[string]interface{}),
	}
}

type coded interface {
	ErrorCode() ErrorCode
}

type severe interface {
	error
	severity() ErrorSeverity
}

func (e *BaseError) severity() ErrorSeverity { return e.Severity }

// hasCode checks whether any error in the chain carries code
func hasCode(err error, code ErrorCode) bool {
	for err != nil {
		if c, ok := err.(coded); ok && c.ErrorCode() == code {
			return true
		}
		err = stderrors.Unwrap(err)
	}
	return false
}

// IsMissingRadioData checks if error is a missing radio data error
func IsMissingRadioData(err error) bool {
	return hasCode(err, ErrCodeMissingRadioData)
}

// IsInvalidInput checks if error is an invalid input or validation error
func IsInvalidInput(err error) bool {
	return hasCode(err, ErrCodeInvalidInput) || hasCode(err, ErrCodeValidation)
}

// IsNotFound checks if error is a not found error
func IsNotFound(err error) bool {
	return hasCode(err, ErrCodeNotFound)
}

// IsService checks if error is a service error
func IsService(err error) bool {
	return hasCode(err, ErrCodeService)
}

// GetCode extracts the outermost error code from an error chain
func GetCode(err error) ErrorCode {
	var c coded
	if stderrors.As(err, &c) {
		return c.ErrorCode()
	}
	return ErrCodeService
}

// GetSeverity extracts the severity from an error chain
func GetSeverity(err error) ErrorSeverity {
	var s severe
	if stderrors.As(err, &s) {
		return s.severity()
	}
	return SeverityMedium
}
