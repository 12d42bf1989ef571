// Package warmup tracks whether the service has finished its startup work
// (loading the dialogue model) and can accept traffic.
package warmup

import (
	"sync"
	"sync/atomic"
	"time"
)

// ReadinessState records the outcome of model load attempts.
// Reads are lock-free on the hot path; details are guarded by mu.
type ReadinessState struct {
	ready     atomic.Bool
	startTime time.Time

	mu       sync.RWMutex
	attempts int
	lastErr  string
	version  string
	readyAt  time.Time
}

// ReadinessStatus is the JSON shape served by /readyz.
type ReadinessStatus struct {
	Ready          bool   `json:"ready"`
	Reason         string `json:"reason,omitempty"`
	ElapsedSeconds int    `json:"elapsed_seconds"`
	Attempts       int    `json:"attempts"`
	ModelVersion   string `json:"model_version,omitempty"`
	ReadySince     string `json:"ready_since,omitempty"`
}

func NewReadinessState() *ReadinessState {
	return &ReadinessState{startTime: time.Now()}
}

// IsReady reports whether a model has been loaded at least once.
func (s *ReadinessState) IsReady() bool {
	return s.ready.Load()
}

// MarkReady records a successful load of the given model version. Later
// reloads update the version but keep the original ready time.
func (s *ReadinessState) MarkReady(version string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts++
	s.lastErr = ""
	s.version = version
	if s.readyAt.IsZero() {
		s.readyAt = time.Now()
	}
	s.ready.Store(true)
}

// MarkFailed records a failed attempt. A service that was ready stays ready
// because the previous model keeps serving.
func (s *ReadinessState) MarkFailed(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts++
	if err != nil {
		s.lastErr = err.Error()
	}
}

// Status returns the current readiness status for API responses.
func (s *ReadinessState) Status() ReadinessStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status := ReadinessStatus{
		Ready:          s.ready.Load(),
		ElapsedSeconds: int(time.Since(s.startTime).Seconds()),
		Attempts:       s.attempts,
		ModelVersion:   s.version,
	}
	switch {
	case !status.Ready && s.lastErr != "":
		status.Reason = "model load failed: " + s.lastErr
	case !status.Ready:
		status.Reason = "model loading"
	default:
		status.ReadySince = s.readyAt.UTC().Format(time.RFC3339)
		if s.lastErr != "" {
			status.Reason = "last reload failed: " + s.lastErr
		}
	}
	return status
}
