package model

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// ErrCircuitOpen is returned when a provider's circuit breaker is rejecting
// calls after repeated failures.
var ErrCircuitOpen = errors.New("completion service circuit breaker is open")

type RetryConfig struct {
	MaxAttempts       uint
	InitialDelay      time.Duration
	MaxDelay          time.Duration
	BackoffMultiplier float64
}

// invokeWithRetry runs fn with exponential backoff and routes the outcome
// through the circuit breaker. A nil retryConfig means a single attempt.
func invokeWithRetry(ctx context.Context, retryConfig *RetryConfig, breaker *CircuitBreaker, fn func() (string, error)) (string, error) {
	if breaker != nil && !breaker.Allow() {
		return "", ErrCircuitOpen
	}

	var result string
	var err error

	if retryConfig == nil {
		result, err = fn()
	} else {
		expo := backoff.NewExponentialBackOff()
		expo.InitialInterval = retryConfig.InitialDelay
		expo.MaxInterval = retryConfig.MaxDelay
		expo.Multiplier = retryConfig.BackoffMultiplier

		result, err = backoff.Retry(ctx, fn,
			backoff.WithBackOff(expo),
			backoff.WithMaxTries(retryConfig.MaxAttempts),
		)
	}

	if breaker != nil {
		breaker.RecordResult(err)
	}

	return result, err
}

// CircuitBreaker trips after a run of consecutive failures and rejects calls
// until the reset timeout passes, then allows a probe call through.
type CircuitBreaker struct {
	mu               sync.Mutex
	log              *slog.Logger
	provider         string
	failureThreshold int
	resetTimeout     time.Duration

	consecutiveFailures int
	state               CircuitState
	reopenAt            time.Time
}

type CircuitState int

const (
	CircuitClosed CircuitState = iota
	CircuitOpen
	CircuitHalfOpen
)

func NewCircuitBreaker(provider string, threshold int, resetTimeout time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		log:              slog.Default(),
		provider:         provider,
		failureThreshold: threshold,
		resetTimeout:     resetTimeout,
		state:            CircuitClosed,
	}
}

func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == CircuitOpen {
		if time.Now().After(cb.reopenAt) {
			cb.state = CircuitHalfOpen
			cb.log.Info("circuit breaker half-open", "provider", cb.provider)
			return true
		}
		return false
	}

	return true
}

func (cb *CircuitBreaker) RecordResult(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err == nil {
		cb.consecutiveFailures = 0
		if cb.state == CircuitHalfOpen {
			cb.state = CircuitClosed
			cb.log.Info("circuit breaker closed", "provider", cb.provider)
		}
		return
	}

	cb.consecutiveFailures++

	if cb.consecutiveFailures >= cb.failureThreshold {
		cb.state = CircuitOpen
		cb.reopenAt = time.Now().Add(cb.resetTimeout)
		cb.log.Warn("circuit breaker open",
			"provider", cb.provider,
			"consecutive_failures", cb.consecutiveFailures,
			"retry_after", cb.resetTimeout,
		)
	}
}

func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}
