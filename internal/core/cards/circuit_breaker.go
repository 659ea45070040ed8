package cards

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// circuitState represents the state of a circuit breaker
type circuitState int

const (
	stateClosed   circuitState = iota // Normal operation
	stateOpen                         // Host is failing, skip fetches
	stateHalfOpen                     // Testing if host recovered
)

func (s circuitState) String() string {
	switch s {
	case stateOpen:
		return "open"
	case stateHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

// BreakerStats is a snapshot of one host's breaker.
type BreakerStats struct {
	LastFailure time.Time `json:"last_failure"`
	State       string    `json:"state"`
	Failures    int       `json:"failures"`
}

// circuitBreaker tracks consecutive fetch failures per host and stops
// fetching from hosts that keep failing. Only hosts with recorded failures
// have entries; a success forgets the host.
type circuitBreaker struct {
	now              func() time.Time
	lastPrune        time.Time
	failures         map[string]int
	lastFailure      map[string]time.Time
	state            map[string]circuitState
	probeStarted     map[string]time.Time
	lastStateLog     map[string]time.Time
	failureThreshold int
	openDuration     time.Duration
	staleAfter       time.Duration
	mu               sync.Mutex
}

// newCircuitBreaker creates a circuit breaker with default settings
func newCircuitBreaker() *circuitBreaker {
	return &circuitBreaker{
		now:              time.Now,
		failureThreshold: 3,               // Open after 3 consecutive failures
		openDuration:     5 * time.Minute, // Keep open for 5 minutes
		staleAfter:       time.Hour,       // Forget hosts with no failure for an hour
		failures:         make(map[string]int),
		lastFailure:      make(map[string]time.Time),
		state:            make(map[string]circuitState),
		probeStarted:     make(map[string]time.Time),
		lastStateLog:     make(map[string]time.Time),
	}
}

// canAttempt reports whether a fetch against host should be tried.
// Returns true if the circuit is closed, or for the one caller allowed to
// probe once it has been open long enough (half-open). A probe that never
// reports back is replaced after openDuration.
func (cb *circuitBreaker) canAttempt(host string) (bool, error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	now := cb.now()
	switch cb.getState(host) {
	case stateOpen:
		lastFail := cb.lastFailure[host]
		if now.Sub(lastFail) > cb.openDuration {
			cb.state[host] = stateHalfOpen
			cb.probeStarted[host] = now
			cb.logStateChange(host, stateHalfOpen)
			return true, nil
		}
		return false, fmt.Errorf(
			"circuit breaker open for host '%s' (failures: %d, next retry: %s)",
			host,
			cb.failures[host],
			lastFail.Add(cb.openDuration).Format("15:04:05"),
		)
	case stateHalfOpen:
		if now.Sub(cb.probeStarted[host]) > cb.openDuration {
			cb.probeStarted[host] = now
			return true, nil
		}
		return false, fmt.Errorf("circuit breaker half-open for host '%s', probe in flight", host)
	default:
		return true, nil
	}
}

// recordSuccess closes the circuit for host and forgets it
func (cb *circuitBreaker) recordSuccess(host string) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.getState(host) != stateClosed {
		cb.logStateChange(host, stateClosed)
	}
	cb.forget(host)
}

// recordFailure records a failed fetch against host
func (cb *circuitBreaker) recordFailure(host string, err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.pruneStale()

	cb.failures[host]++
	cb.lastFailure[host] = cb.now()
	failCount := cb.failures[host]

	// A failed half-open probe reopens immediately.
	if failCount >= cb.failureThreshold || cb.getState(host) == stateHalfOpen {
		oldState := cb.getState(host)
		cb.state[host] = stateOpen
		delete(cb.probeStarted, host)
		if oldState != stateOpen {
			slog.Warn("[CARDS-CIRCUIT] opening circuit",
				"host", host,
				"failures", failCount,
				"error", err,
			)
			cb.lastStateLog[host] = cb.now()
		}
		return
	}

	slog.Info("[CARDS-CIRCUIT] fetch failure recorded",
		"host", host,
		"failures", failCount,
		"threshold", cb.failureThreshold,
		"error", err,
	)
}

// getState returns the current state (must be called with lock held)
func (cb *circuitBreaker) getState(host string) circuitState {
	if state, exists := cb.state[host]; exists {
		return state
	}
	return stateClosed
}

// logStateChange logs state transitions (must be called with lock held).
// Debounced to at most once per minute per host.
func (cb *circuitBreaker) logStateChange(host string, newState circuitState) {
	lastLog, exists := cb.lastStateLog[host]
	if exists && cb.now().Sub(lastLog) < time.Minute {
		return
	}
	slog.Info("[CARDS-CIRCUIT] circuit state changed", "host", host, "state", newState.String())
	cb.lastStateLog[host] = cb.now()
}

// forget drops every entry for host (must be called with lock held)
func (cb *circuitBreaker) forget(host string) {
	delete(cb.failures, host)
	delete(cb.lastFailure, host)
	delete(cb.state, host)
	delete(cb.probeStarted, host)
	delete(cb.lastStateLog, host)
}

// pruneStale forgets hosts whose last failure and last probe are older than
// staleAfter.
// Runs at most once per openDuration (must be called with lock held).
func (cb *circuitBreaker) pruneStale() {
	now := cb.now()
	if now.Sub(cb.lastPrune) < cb.openDuration {
		return
	}
	cb.lastPrune = now

	for host, last := range cb.lastFailure {
		if now.Sub(last) > cb.staleAfter && now.Sub(cb.probeStarted[host]) > cb.staleAfter {
			cb.forget(host)
		}
	}
}

// stats returns a snapshot for every host with breaker activity
func (cb *circuitBreaker) stats() map[string]BreakerStats {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	hosts := make(map[string]struct{}, len(cb.state))
	for host := range cb.state {
		hosts[host] = struct{}{}
	}
	for host := range cb.failures {
		hosts[host] = struct{}{}
	}

	out := make(map[string]BreakerStats, len(hosts))
	for host := range hosts {
		out[host] = BreakerStats{
			State:       cb.getState(host).String(),
			Failures:    cb.failures[host],
			LastFailure: cb.lastFailure[host],
		}
	}
	return out
}
