package zipdemographics

import (
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultBaseURL = "https://api.apiverve.com/v1/zipdemographics"

	// channelTag identifies this binding to the API in the auth-mode header.
	channelTag = "go-package"

	// maxRetryCap is the hard upper bound on retries; SetMaxRetries and
	// WithMaxRetries clamp into [0, maxRetryCap].
	maxRetryCap = 3

	defaultRetryDelay  = time.Second
	defaultHTTPTimeout = 30 * time.Second
)

// RequestConfig holds the per-client request configuration. It is created at
// construction, mutated only through the client's setters, and lives for the
// client's lifetime.
type RequestConfig struct {
	// BaseURL is the fixed endpoint for the operation.
	// Default: the hosted zipdemographics endpoint
	BaseURL string

	// Method is the HTTP method, "GET" or "POST".
	// Default: "GET"
	Method string

	// APIKey authenticates the client. Validated before use.
	APIKey string

	// SecureTransport selects https. Retained for compatibility; the hosted
	// API only speaks https.
	// Default: true
	SecureTransport bool

	// MaxRetries bounds retry attempts after the first, clamped to [0, 3].
	// Default: 0
	MaxRetries int

	// RetryDelay is the fixed sleep between attempts, clamped to >= 0.
	// Default: 1 second
	RetryDelay time.Duration

	// Headers are caller-supplied headers sent with every request. They are
	// applied after the fixed headers, so a custom header may overwrite a
	// fixed one.
	Headers map[string]string

	// Debug installs a debug-level text logger when no Logger is set.
	Debug bool

	// Logger receives trace lines around each dispatch.
	// Default: slog.Default(), or a debug handler when Debug is set
	Logger *slog.Logger

	// HTTPClient performs the actual exchange.
	// Default: an http.Client with a 30 second timeout
	HTTPClient *http.Client

	// Classifier decides which transport failures are retried.
	// Default: TransientClassifier
	Classifier ErrorClassifier

	// Limiter, when set, is waited on before each dispatch.
	Limiter *rate.Limiter

	// Breaker, when set, wraps the executor in a circuit breaker.
	Breaker *BreakerConfig
}

// Option is a functional option for configuring a client at construction.
type Option func(*RequestConfig)

// WithBaseURL overrides the endpoint URL. Intended for tests and proxies.
func WithBaseURL(baseURL string) Option {
	return func(c *RequestConfig) {
		c.BaseURL = baseURL
	}
}

// WithMethod sets the HTTP method. Anything other than "POST" means "GET".
func WithMethod(method string) Option {
	return func(c *RequestConfig) {
		if method == http.MethodPost {
			c.Method = http.MethodPost
		} else {
			c.Method = http.MethodGet
		}
	}
}

// WithSecureTransport sets the secure-transport flag. Retained for
// compatibility with the other bindings; defaults to true.
func WithSecureTransport(secure bool) Option {
	return func(c *RequestConfig) {
		c.SecureTransport = secure
	}
}

// WithMaxRetries sets the number of retries after the first attempt,
// clamped to [0, 3].
//
// Example:
//
//	zipdemographics.WithMaxRetries(2) // up to 3 attempts total
func WithMaxRetries(retries int) Option {
	return func(c *RequestConfig) {
		c.MaxRetries = clampRetries(retries)
	}
}

// WithRetryDelay sets the fixed delay between attempts, clamped to >= 0.
func WithRetryDelay(delay time.Duration) Option {
	return func(c *RequestConfig) {
		c.RetryDelay = clampDelay(delay)
	}
}

// WithHeader adds a custom header sent with every request. Custom headers
// are applied last and may overwrite the fixed ones.
func WithHeader(key, value string) Option {
	return func(c *RequestConfig) {
		if c.Headers == nil {
			c.Headers = make(map[string]string)
		}
		c.Headers[key] = value
	}
}

// WithDebug enables debug tracing. When no logger is configured a text
// handler at debug level is installed.
func WithDebug(debug bool) Option {
	return func(c *RequestConfig) {
		c.Debug = debug
	}
}

// WithLogger sets the logger used for request tracing.
//
// Example:
//
//	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
//	zipdemographics.WithLogger(logger)
func WithLogger(logger *slog.Logger) Option {
	return func(c *RequestConfig) {
		c.Logger = logger
	}
}

// WithHTTPClient sets the underlying HTTP client. Useful for custom
// transports, proxies, and tests.
func WithHTTPClient(client *http.Client) Option {
	return func(c *RequestConfig) {
		c.HTTPClient = client
	}
}

// WithErrorClassifier sets a custom classifier for retry decisions.
func WithErrorClassifier(classifier ErrorClassifier) Option {
	return func(c *RequestConfig) {
		c.Classifier = classifier
	}
}

// WithRateLimiter sets a client-side rate limiter. Execute waits on it
// after validation and before dispatch, so invalid calls never consume
// budget.
//
// Example:
//
//	zipdemographics.WithRateLimiter(rate.NewLimiter(rate.Every(100*time.Millisecond), 5))
func WithRateLimiter(limiter *rate.Limiter) Option {
	return func(c *RequestConfig) {
		c.Limiter = limiter
	}
}

// DefaultRequestConfig returns the configuration used before options are
// applied.
func DefaultRequestConfig() *RequestConfig {
	return &RequestConfig{
		BaseURL:         defaultBaseURL,
		Method:          http.MethodGet,
		SecureTransport: true,
		MaxRetries:      0,
		RetryDelay:      defaultRetryDelay,
		Headers:         make(map[string]string),
		Classifier:      DefaultErrorClassifier(),
	}
}

func clampRetries(retries int) int {
	if retries < 0 {
		return 0
	}
	if retries > maxRetryCap {
		return maxRetryCap
	}
	return retries
}

func clampDelay(delay time.Duration) time.Duration {
	if delay < 0 {
		return 0
	}
	return delay
}
