// Package health aggregates dependency checks into liveness and readiness probes.
package health

import (
	"context"
	"time"
)

// Checker verifies one dependency. Check must honour ctx's deadline.
type Checker interface {
	Name() string
	Check(ctx context.Context) *Result
}

// Status is a check outcome.
type Status string

const (
	StatusHealthy Status = "healthy"
	// StatusDegraded still serves traffic, with reduced functionality.
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

func (s Status) String() string { return string(s) }

// Result is the outcome of one check.
type Result struct {
	Status  Status         `json:"status"`
	Message string         `json:"message,omitempty"`
	Details map[string]any `json:"details,omitempty"`
	Latency time.Duration  `json:"latency_ns"`
}

// NewResult creates a result with an empty detail map.
func NewResult(status Status, message string) *Result {
	return &Result{Status: status, Message: message, Details: map[string]any{}}
}

// WithDetail sets a detail and returns r.
func (r *Result) WithDetail(key string, value any) *Result {
	r.Details[key] = value
	return r
}

func Healthy(message string) *Result   { return NewResult(StatusHealthy, message) }
func Degraded(message string) *Result  { return NewResult(StatusDegraded, message) }
func Unhealthy(message string) *Result { return NewResult(StatusUnhealthy, message) }
