// Package health tracks liveness and readiness of the ingest pipeline
// and exposes them over HTTP alongside the Prometheus metrics endpoint.
package health

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Status is the outcome of a single health check.
type Status string

const (
	StatusOK       Status = "ok"
	StatusDegraded Status = "degraded"
	StatusDown     Status = "down"
)

// Check is one health checker's most recent result.
type Check struct {
	Name        string        `json:"name"`
	Status      Status        `json:"status"`
	Message     string        `json:"message,omitempty"`
	LastChecked time.Time     `json:"last_checked"`
	DurationMS  float64       `json:"duration_ms"`
}

// Checker is implemented by anything the manager can poll: the ingest
// task's liveness, the packet source's connectivity.
type Checker interface {
	Name() string
	Check(ctx context.Context) error
}

// Manager runs a set of Checkers on demand and tracks their latest
// results.
type Manager struct {
	checkers []Checker
	results  map[string]*Check
	mu       sync.RWMutex
	logger   *logrus.Logger
}

// NewManager creates a Manager that logs checker failures to log.
func NewManager(log *logrus.Logger) *Manager {
	return &Manager{
		checkers: make([]Checker, 0),
		results:  make(map[string]*Check),
		logger:   log,
	}
}

// Register adds a checker to the set the manager runs.
func (m *Manager) Register(c Checker) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkers = append(m.checkers, c)
}

// RunChecks executes every registered checker concurrently and returns
// their results, also caching them for GetResults/GetOverallStatus.
func (m *Manager) RunChecks(ctx context.Context) map[string]*Check {
	var wg sync.WaitGroup
	resultsCh := make(chan *Check, len(m.checkers))

	for _, c := range m.checkers {
		wg.Add(1)
		go func(c Checker) {
			defer wg.Done()
			checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()

			start := time.Now()
			err := c.Check(checkCtx)
			duration := time.Since(start)

			check := &Check{
				Name:        c.Name(),
				LastChecked: time.Now(),
				DurationMS:  float64(duration.Microseconds()) / 1000,
			}
			if err != nil {
				check.Status = StatusDown
				check.Message = err.Error()
				m.logger.WithFields(logrus.Fields{"checker": c.Name(), "error": err}).Warn("health check failed")
			} else {
				check.Status = StatusOK
			}
			resultsCh <- check
		}(c)
	}

	go func() {
		wg.Wait()
		close(resultsCh)
	}()

	results := make(map[string]*Check, len(m.checkers))
	m.mu.Lock()
	for check := range resultsCh {
		results[check.Name] = check
		m.results[check.Name] = check
	}
	m.mu.Unlock()
	return results
}

// GetOverallStatus summarizes the most recent results: down if any
// checker is down, otherwise ok. A manager with no registered checkers
// reports down, matching "no evidence of liveness" rather than assuming
// health.
func (m *Manager) GetOverallStatus() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.results) == 0 {
		return StatusDown
	}
	for _, c := range m.results {
		if c.Status == StatusDown {
			return StatusDown
		}
	}
	return StatusOK
}
