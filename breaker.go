package zipdemographics

import (
	"context"
	"errors"
	"log/slog"
	"time"

	jperrors "github.com/JohnPlummer/jp-go-errors"
	"github.com/sony/gobreaker/v2"
)

// BreakerConfig configures the optional circuit breaker around the request
// executor. When the breaker is open, calls fail immediately without
// touching the network.
type BreakerConfig struct {
	// ReadyToTrip is consulted after each failure in the closed state.
	// Default: trips after 3 requests with a 60% failure rate
	ReadyToTrip func(counts BreakerCounts) bool

	// OnStateChange is called whenever the breaker changes state.
	OnStateChange func(from, to string)

	// Interval is the cyclic period of the closed state for clearing
	// counts. If 0, counts are never cleared.
	// Default: 10 seconds
	Interval time.Duration

	// Timeout is the period of the open state, after which the breaker
	// moves to half-open.
	// Default: 30 seconds
	Timeout time.Duration

	// MaxRequests is the number of probe requests allowed through in the
	// half-open state.
	// Default: 3
	MaxRequests uint32
}

// BreakerCounts holds the breaker's internal counters.
type BreakerCounts struct {
	Requests             uint32
	TotalSuccesses       uint32
	TotalFailures        uint32
	ConsecutiveSuccesses uint32
	ConsecutiveFailures  uint32
}

// HealthStatus is a snapshot of the circuit breaker's health.
type HealthStatus struct {
	// Healthy is true in the closed and half-open states.
	Healthy bool `json:"healthy"`

	// State is the breaker state ("closed", "half-open", "open").
	State string `json:"state"`

	Requests             uint32 `json:"requests"`
	TotalSuccesses       uint32 `json:"total_successes"`
	TotalFailures        uint32 `json:"total_failures"`
	ConsecutiveFailures  uint32 `json:"consecutive_failures"`
	ConsecutiveSuccesses uint32 `json:"consecutive_successes"`
}

// WithCircuitBreaker wraps the executor in a circuit breaker. A nil config
// selects the defaults.
//
// Example:
//
//	zipdemographics.WithCircuitBreaker(&zipdemographics.BreakerConfig{
//	    Timeout: time.Minute,
//	})
func WithCircuitBreaker(breakerCfg *BreakerConfig) Option {
	return func(c *RequestConfig) {
		if breakerCfg == nil {
			breakerCfg = &BreakerConfig{}
		}
		c.Breaker = breakerCfg
	}
}

type breakerExecutor struct {
	cb     *gobreaker.CircuitBreaker[*Response]
	logger *slog.Logger
}

func newBreakerExecutor(cfg *BreakerConfig, logger *slog.Logger) *breakerExecutor {
	maxRequests := cfg.MaxRequests
	if maxRequests == 0 {
		maxRequests = 3
	}
	interval := cfg.Interval
	if interval == 0 {
		interval = 10 * time.Second
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	readyToTrip := cfg.ReadyToTrip
	if readyToTrip == nil {
		readyToTrip = func(counts BreakerCounts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		}
	}

	settings := gobreaker.Settings{
		Name:        "zipdemographics",
		MaxRequests: maxRequests,
		Interval:    interval,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return readyToTrip(convertCounts(counts))
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				"name", name,
				"from", from.String(),
				"to", to.String())
			if cfg.OnStateChange != nil {
				cfg.OnStateChange(from.String(), to.String())
			}
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			// Caller-side cancellation says nothing about service health.
			return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
		},
	}

	return &breakerExecutor{
		cb:     gobreaker.NewCircuitBreaker[*Response](settings),
		logger: logger,
	}
}

// execute runs fn through the breaker, mapping breaker rejections onto
// circuit-breaker errors carrying the current counts.
func (b *breakerExecutor) execute(fn func() (*Response, error)) (*Response, error) {
	resp, err := b.cb.Execute(fn)
	if err != nil {
		switch {
		case errors.Is(err, gobreaker.ErrOpenState):
			counts := b.cb.Counts()
			b.logger.Warn("circuit breaker is open, request rejected",
				"counts", counts)
			return nil, jperrors.NewCircuitBreakerError(
				"request rejected",
				"execute",
				"open",
				jperrors.WithCause(err),
				jperrors.WithCounts(convertJPCounts(counts)),
			)
		case errors.Is(err, gobreaker.ErrTooManyRequests):
			b.logger.Debug("circuit breaker in half-open state, too many requests",
				"error", err)
			return nil, jperrors.NewCircuitBreakerError(
				"too many requests in half-open state",
				"execute",
				"half-open",
				jperrors.WithCause(err),
				jperrors.WithCounts(convertJPCounts(b.cb.Counts())),
			)
		}
		return nil, err
	}
	return resp, nil
}

// Health reports the circuit breaker's health. The second return is false
// when no breaker is configured.
func (c *Client) Health() (HealthStatus, bool) {
	if c.breaker == nil {
		return HealthStatus{}, false
	}

	state := c.breaker.cb.State()
	counts := convertCounts(c.breaker.cb.Counts())

	return HealthStatus{
		Healthy:              state != gobreaker.StateOpen,
		State:                state.String(),
		Requests:             counts.Requests,
		TotalSuccesses:       counts.TotalSuccesses,
		TotalFailures:        counts.TotalFailures,
		ConsecutiveFailures:  counts.ConsecutiveFailures,
		ConsecutiveSuccesses: counts.ConsecutiveSuccesses,
	}, true
}

func convertCounts(counts gobreaker.Counts) BreakerCounts {
	return BreakerCounts{
		Requests:             counts.Requests,
		TotalSuccesses:       counts.TotalSuccesses,
		TotalFailures:        counts.TotalFailures,
		ConsecutiveSuccesses: counts.ConsecutiveSuccesses,
		ConsecutiveFailures:  counts.ConsecutiveFailures,
	}
}

func convertJPCounts(counts gobreaker.Counts) jperrors.CircuitCounts {
	return jperrors.CircuitCounts{
		Requests:             counts.Requests,
		TotalSuccesses:       counts.TotalSuccesses,
		TotalFailures:        counts.TotalFailures,
		ConsecutiveSuccesses: counts.ConsecutiveSuccesses,
		ConsecutiveFailures:  counts.ConsecutiveFailures,
	}
}
