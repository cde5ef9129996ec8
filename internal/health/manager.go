package health

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultCheckTimeout bounds each check run by Manager.Check.
const DefaultCheckTimeout = 5 * time.Second

// Manager runs registered checkers concurrently.
type Manager struct {
	mu       sync.RWMutex
	checkers []Checker
	timeout  time.Duration
}

// NewManager creates a Manager with DefaultCheckTimeout.
func NewManager() *Manager {
	return &Manager{timeout: DefaultCheckTimeout}
}

// WithTimeout sets the per-check timeout and returns m.
func (m *Manager) WithTimeout(timeout time.Duration) *Manager {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.timeout = timeout
	return m
}

// AddChecker registers c.
func (m *Manager) AddChecker(c Checker) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkers = append(m.checkers, c)
}

// Check runs every checker and returns results keyed by checker name.
func (m *Manager) Check(ctx context.Context) map[string]*Result {
	m.mu.RLock()
	checkers := append([]Checker(nil), m.checkers...)
	timeout := m.timeout
	m.mu.RUnlock()

	var mu sync.Mutex
	results := make(map[string]*Result, len(checkers))

	var g errgroup.Group
	for _, c := range checkers {
		g.Go(func() error {
			checkCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			start := time.Now()
			res := c.Check(checkCtx)
			if res == nil {
				res = Unhealthy("check returned no result")
			}
			if res.Latency == 0 {
				res.Latency = time.Since(start)
			}

			mu.Lock()
			results[c.Name()] = res
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// OverallStatus is the worst status among results; no results is healthy.
func OverallStatus(results map[string]*Result) Status {
	overall := StatusHealthy
	for _, r := range results {
		switch r.Status {
		case StatusUnhealthy:
			return StatusUnhealthy
		case StatusDegraded:
			overall = StatusDegraded
		}
	}
	return overall
}

// Count returns the number of registered checkers.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.checkers)
}
