// Package status tracks the health of the scheduled digest run.
package status

import (
	"sync"
	"time"
)

// DefaultFailureThreshold is how many consecutive failures mark the service
// as failing.
const DefaultFailureThreshold = 3

// Status records run outcomes. The zero value is not usable; call New.
type Status struct {
	mu          sync.RWMutex
	threshold   int
	lastSuccess time.Time
	failures    int
	lastError   string
	started     time.Time
	now         func() time.Time
}

// Snapshot is a point-in-time copy of Status.
type Snapshot struct {
	State       string     `json:"status"`
	Healthy     bool       `json:"healthy"`
	LastSuccess *time.Time `json:"last_success"`
	Failures    int        `json:"failures"`
	LastError   string     `json:"last_error,omitempty"`
	Uptime      string     `json:"uptime"`
}

// New returns a Status that reports failing after threshold consecutive
// failures. A non-positive threshold selects DefaultFailureThreshold.
func New(threshold int) *Status {
	if threshold <= 0 {
		threshold = DefaultFailureThreshold
	}
	s := &Status{threshold: threshold, now: time.Now}
	s.started = s.now()
	return s
}

// SetClock replaces the time source; used by tests.
func (s *Status) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
	s.started = now()
}

// RecordSuccess stamps a successful run and clears the failure streak.
func (s *Status) RecordSuccess() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSuccess = s.now()
	s.failures = 0
	s.lastError = ""
}

// RecordFailure counts a failed run.
func (s *Status) RecordFailure(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures++
	if err != nil {
		s.lastError = err.Error()
	}
}

// Reset forgets all recorded outcomes.
func (s *Status) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSuccess = time.Time{}
	s.failures = 0
	s.lastError = ""
}

// Healthy reports whether the failure streak is below the threshold.
func (s *Status) Healthy() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.failures < s.threshold
}

// Snapshot returns a copy of the current state.
func (s *Status) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		Healthy:   s.failures < s.threshold,
		Failures:  s.failures,
		LastError: s.lastError,
		Uptime:    s.now().Sub(s.started).Truncate(time.Second).String(),
	}
	snap.State = "healthy"
	if !snap.Healthy {
		snap.State = "failing"
	}
	if !s.lastSuccess.IsZero() {
		t := s.lastSuccess
		snap.LastSuccess = &t
	}
	return snap
}
