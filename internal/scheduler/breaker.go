package scheduler

import (
	"log"
	"sync"
	"time"
)

// CircuitBreaker stops a scheduled job after repeated failures
type CircuitBreaker struct {
	name             string
	failureThreshold int
	resetTimeout     time.Duration
	now              func() time.Time

	consecutiveFailures int
	totalRuns           int
	totalFailures       int
	isOpen              bool
	openedAt            time.Time

	mutex sync.Mutex
}

// NewCircuitBreaker creates a new circuit breaker
func NewCircuitBreaker(name string, failureThreshold int, resetTimeout time.Duration) *CircuitBreaker {
	if failureThreshold < 1 {
		failureThreshold = 1
	}
	return &CircuitBreaker{
		name:             name,
		failureThreshold: failureThreshold,
		resetTimeout:     resetTimeout,
		now:              time.Now,
	}
}

// RecordSuccess closes the breaker and clears the failure streak
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	cb.totalRuns++
	cb.consecutiveFailures = 0
	cb.isOpen = false
}

// RecordFailure opens the breaker once the streak reaches the threshold
func (cb *CircuitBreaker) RecordFailure() {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	cb.totalRuns++
	cb.totalFailures++
	cb.consecutiveFailures++

	if !cb.isOpen && cb.consecutiveFailures >= cb.failureThreshold {
		cb.isOpen = true
		cb.openedAt = cb.now()
		log.Printf("[Breaker] open job=%s consecutive_failures=%d retry_after=%v",
			cb.name, cb.consecutiveFailures, cb.resetTimeout)
	}
}

// CanProceed checks if the job may run. An open breaker lets one attempt
// through after the reset timeout.
func (cb *CircuitBreaker) CanProceed() bool {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	if !cb.isOpen {
		return true
	}

	if cb.now().Sub(cb.openedAt) >= cb.resetTimeout {
		log.Printf("[Breaker] half-open job=%s after=%v", cb.name, cb.resetTimeout)
		cb.isOpen = false
		// one more failure reopens it
		cb.consecutiveFailures = cb.failureThreshold - 1
		return true
	}

	return false
}

// BreakerStatus is a snapshot of a breaker
type BreakerStatus struct {
	Job                 string `json:"job"`
	Open                bool   `json:"open"`
	ConsecutiveFailures int    `json:"consecutive_failures"`
	TotalFailures       int    `json:"total_failures"`
	TotalRuns           int    `json:"total_runs"`
}

// GetStatus returns current circuit breaker status
func (cb *CircuitBreaker) GetStatus() BreakerStatus {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	return BreakerStatus{
		Job:                 cb.name,
		Open:                cb.isOpen,
		ConsecutiveFailures: cb.consecutiveFailures,
		TotalFailures:       cb.totalFailures,
		TotalRuns:           cb.totalRuns,
	}
}
