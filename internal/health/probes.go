package health

import (
	"context"
	"sync/atomic"
	"time"
)

// ProbeManager adds process state to a Manager for liveness and readiness probes.
type ProbeManager struct {
	*Manager

	startTime  time.Time
	inShutdown atomic.Bool
	version    string
}

// NewProbeManager creates a ProbeManager reporting version.
func NewProbeManager(version string) *ProbeManager {
	return &ProbeManager{Manager: NewManager(), startTime: time.Now(), version: version}
}

// MarkShutdown makes readiness fail from now on.
func (pm *ProbeManager) MarkShutdown() { pm.inShutdown.Store(true) }

// IsShuttingDown reports whether MarkShutdown was called.
func (pm *ProbeManager) IsShuttingDown() bool { return pm.inShutdown.Load() }

// ProbeResult is the JSON body of a probe endpoint.
type ProbeResult struct {
	Status    Status             `json:"status"`
	Version   string             `json:"version,omitempty"`
	Uptime    string             `json:"uptime,omitempty"`
	Checks    map[string]*Result `json:"checks,omitempty"`
	Timestamp time.Time          `json:"timestamp"`
}

func (pm *ProbeManager) result(status Status, checks map[string]*Result) *ProbeResult {
	return &ProbeResult{
		Status:    status,
		Version:   pm.version,
		Uptime:    time.Since(pm.startTime).Round(time.Second).String(),
		Checks:    checks,
		Timestamp: time.Now(),
	}
}

// CheckLiveness never runs dependency checks. A draining process is degraded but alive.
func (pm *ProbeManager) CheckLiveness(context.Context) *ProbeResult {
	if pm.IsShuttingDown() {
		return pm.result(StatusDegraded, nil)
	}
	return pm.result(StatusHealthy, nil)
}

// CheckReadiness runs every checker, and is unhealthy while shutting down.
func (pm *ProbeManager) CheckReadiness(ctx context.Context) *ProbeResult {
	if pm.IsShuttingDown() {
		return pm.result(StatusUnhealthy, nil)
	}
	checks := pm.Check(ctx)
	return pm.result(OverallStatus(checks), checks)
}
