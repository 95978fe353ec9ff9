// Package zipdemographics is a Go client for the APIVerve ZIP Demographics
// API. It validates parameters against a declarative rule set before any
// network call, dispatches the request with fixed authentication headers,
// retries transient transport failures up to a configurable bound, and
// returns the decoded response envelope without interpreting its payload.
//
// Example:
//
//	client, err := zipdemographics.NewClient(apiKey)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	resp, err := client.Execute(ctx, zipdemographics.ParameterBag{"zip": "90210"})
package zipdemographics

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"
)

var apiKeyPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Client calls the ZIP Demographics endpoint. Construct it with NewClient;
// the zero value is not usable.
//
// A Client is safe for concurrent use. Configuration setters take effect on
// subsequent calls; a call already in flight may observe either the old or
// the new value.
type Client struct {
	mu        sync.RWMutex
	cfg       *RequestConfig
	rules     RuleSet
	breaker   *breakerExecutor
	closeOnce sync.Once
}

// NewClient creates a client for the given API key. The key must be
// alphanumeric (hyphens and underscores allowed) and at least 32 characters
// long once separators are stripped; otherwise a ConfigError is returned
// before any network capability is granted.
func NewClient(apiKey string, opts ...Option) (*Client, error) {
	if err := validateAPIKey(apiKey); err != nil {
		return nil, err
	}

	cfg := DefaultRequestConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	cfg.APIKey = apiKey
	cfg.MaxRetries = clampRetries(cfg.MaxRetries)
	cfg.RetryDelay = clampDelay(cfg.RetryDelay)

	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	if cfg.Classifier == nil {
		cfg.Classifier = DefaultErrorClassifier()
	}

	c := &Client{
		cfg:   cfg,
		rules: defaultRules(),
	}
	if cfg.Breaker != nil {
		c.breaker = newBreakerExecutor(cfg.Breaker, c.logger())
	}
	return c, nil
}

// defaultRules is the rule set for the zipdemographics operation: a single
// required 5-character zip parameter.
func defaultRules() RuleSet {
	five := 5
	return RuleSet{
		"zip": {Type: "string", Required: true, MinLength: &five, MaxLength: &five},
	}
}

// Rules returns a copy of the client's rule set. The rule set itself never
// changes after construction.
func (c *Client) Rules() RuleSet {
	rules := make(RuleSet, len(c.rules))
	for name, rule := range c.rules {
		rules[name] = rule
	}
	return rules
}

// Execute validates params, dispatches the request and returns the decoded
// envelope. Validation failures surface as a ValidationError before any
// network attempt; transport failures are retried per the configured policy
// and surface as a TransportError once exhausted. The envelope's status and
// error fields are returned uninterpreted.
//
// A nil params bag is allowed and fails validation only if a required
// parameter exists.
func (c *Client) Execute(ctx context.Context, params ParameterBag) (*Response, error) {
	if violations := Validate(params, c.rules); len(violations) > 0 {
		return nil, &ValidationError{Violations: violations}
	}

	snap := c.snapshot()
	if snap.limiter != nil {
		if err := snap.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	if c.breaker != nil {
		return c.breaker.execute(func() (*Response, error) {
			return c.do(ctx, params, snap)
		})
	}
	return c.do(ctx, params, snap)
}

// SetAPIKey replaces the API key. The new key is validated with the same
// rules applied at construction.
func (c *Client) SetAPIKey(apiKey string) error {
	if err := validateAPIKey(apiKey); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg.APIKey = apiKey
	return nil
}

// SetSecureTransport sets the secure-transport flag.
func (c *Client) SetSecureTransport(secure bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg.SecureTransport = secure
}

// SetDebug toggles debug tracing.
func (c *Client) SetDebug(debug bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg.Debug = debug
}

// SetLogger sets the logger used for request tracing.
func (c *Client) SetLogger(logger *slog.Logger) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg.Logger = logger
}

// SetMaxRetries sets the retry bound, clamped to [0, 3].
func (c *Client) SetMaxRetries(retries int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg.MaxRetries = clampRetries(retries)
}

// MaxRetries returns the effective retry bound.
func (c *Client) MaxRetries() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cfg.MaxRetries
}

// SetRetryDelay sets the fixed delay between attempts, clamped to >= 0.
func (c *Client) SetRetryDelay(delay time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg.RetryDelay = clampDelay(delay)
}

// RetryDelay returns the effective delay between attempts.
func (c *Client) RetryDelay() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cfg.RetryDelay
}

// AddCustomHeader adds a header sent with every request. Custom headers are
// applied after the fixed ones; setting a fixed header name overwrites it.
func (c *Client) AddCustomHeader(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg.Headers[key] = value
}

// RemoveCustomHeader removes a previously added header.
func (c *Client) RemoveCustomHeader(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.cfg.Headers, key)
}

// ClearCustomHeaders removes all custom headers.
func (c *Client) ClearCustomHeaders() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg.Headers = make(map[string]string)
}

// Close releases the transport's idle connections. It is safe to call more
// than once; subsequent calls are no-ops.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.mu.RLock()
		httpClient := c.cfg.HTTPClient
		c.mu.RUnlock()
		if httpClient != nil {
			httpClient.CloseIdleConnections()
		}
	})
}

// logger resolves the logger to trace with: the configured one, a debug
// handler when debug mode is on with no logger, or the process default.
func (c *Client) logger() *slog.Logger {
	if c.cfg.Logger != nil {
		return c.cfg.Logger
	}
	if c.cfg.Debug {
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
	}
	return slog.Default()
}

func validateAPIKey(apiKey string) error {
	if strings.TrimSpace(apiKey) == "" {
		return &ConfigError{Reason: "API key must be provided"}
	}
	if !apiKeyPattern.MatchString(apiKey) {
		return &ConfigError{Reason: "API key must be alphanumeric and may contain hyphens and underscores"}
	}
	stripped := strings.NewReplacer("-", "", "_", "").Replace(apiKey)
	if len(stripped) < 32 {
		return &ConfigError{Reason: "API key appears to be too short"}
	}
	return nil
}
