// Package model wraps the external vision/text completion services behind a
// single interface. The detector treats a provider as a black box: images plus
// a prompt in, free-form text out. All resilience concerns (retry, circuit
// breaking, timeouts) live here so callers can treat any failure as a simple
// "no answer".
package model

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Image is a single screenshot image attached to a completion request.
type Image struct {
	MediaType string // e.g. "image/png"
	Data      []byte
}

// VisionProvider is the completion service consumed by the detector. Complete
// returns the raw model text; callers parse whatever structure they expect out
// of it themselves.
type VisionProvider interface {
	Complete(ctx context.Context, images []Image, prompt string, opts ...CompleteOption) (string, error)
}

type CompleteOptions struct {
	SystemPrompt string
	MaxTokens    int64
	Temperature  float64
}

type CompleteOption func(*CompleteOptions)

func WithSystemPrompt(prompt string) CompleteOption {
	return func(o *CompleteOptions) {
		o.SystemPrompt = prompt
	}
}

func WithMaxTokens(maxTokens int64) CompleteOption {
	return func(o *CompleteOptions) {
		o.MaxTokens = maxTokens
	}
}

func WithTemperature(temperature float64) CompleteOption {
	return func(o *CompleteOptions) {
		o.Temperature = temperature
	}
}

func DefaultCompleteOptions() *CompleteOptions {
	return &CompleteOptions{
		MaxTokens:   1024,
		Temperature: 0.2,
	}
}

type ProviderOptions struct {
	URL            string
	Timeout        time.Duration
	RetryConfig    *RetryConfig
	CircuitBreaker *CircuitBreaker
	Metrics        *prometheus.Registry
}

type ProviderOption func(*ProviderOptions)

func WithURL(url string) ProviderOption {
	return func(o *ProviderOptions) {
		o.URL = url
	}
}

func WithTimeout(timeout time.Duration) ProviderOption {
	return func(o *ProviderOptions) {
		o.Timeout = timeout
	}
}

func WithRetryConfig(retryConfig *RetryConfig) ProviderOption {
	return func(o *ProviderOptions) {
		o.RetryConfig = retryConfig
	}
}

func WithCircuitBreaker(circuitBreaker *CircuitBreaker) ProviderOption {
	return func(o *ProviderOptions) {
		o.CircuitBreaker = circuitBreaker
	}
}

func WithMetrics(metrics *prometheus.Registry) ProviderOption {
	return func(o *ProviderOptions) {
		o.Metrics = metrics
	}
}

func DefaultProviderOptions(name string) *ProviderOptions {
	return &ProviderOptions{
		Timeout: 30 * time.Second,
		RetryConfig: &RetryConfig{
			MaxAttempts:       3,
			InitialDelay:      1 * time.Second,
			MaxDelay:          10 * time.Second,
			BackoffMultiplier: 2,
		},
		CircuitBreaker: NewCircuitBreaker(name, 5, 10*time.Second),
		Metrics:        prometheus.NewRegistry(),
	}
}
