package zipdemographics

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"golang.org/x/time/rate"
)

// requestSnapshot is a point-in-time copy of the client configuration taken
// at the start of Execute. A concurrent configuration change does not affect
// a call already in flight.
type requestSnapshot struct {
	baseURL    string
	method     string
	apiKey     string
	secure     bool
	maxRetries int
	retryDelay time.Duration
	headers    map[string]string
	logger     *slog.Logger
	httpClient *http.Client
	classifier ErrorClassifier
	limiter    *rate.Limiter
}

func (c *Client) snapshot() requestSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	headers := make(map[string]string, len(c.cfg.Headers))
	for k, v := range c.cfg.Headers {
		headers[k] = v
	}

	return requestSnapshot{
		baseURL:    c.cfg.BaseURL,
		method:     c.cfg.Method,
		apiKey:     c.cfg.APIKey,
		secure:     c.cfg.SecureTransport,
		maxRetries: clampRetries(c.cfg.MaxRetries),
		retryDelay: clampDelay(c.cfg.RetryDelay),
		headers:    headers,
		logger:     c.logger(),
		httpClient: c.cfg.HTTPClient,
		classifier: c.cfg.Classifier,
		limiter:    c.cfg.Limiter,
	}
}

// do dispatches the request with retries. Transient failures (no response
// obtained) are retried after a fixed delay up to the snapshot's bound; any
// completed response is final and decoded into the envelope. There is no
// delay before the first attempt.
func (c *Client) do(ctx context.Context, params ParameterBag, snap requestSnapshot) (*Response, error) {
	target, body, err := buildRequest(params, snap)
	if err != nil {
		return nil, err
	}

	snap.logger.Debug("dispatching request",
		"method", snap.method,
		"url", target)

	var (
		response      *Response
		attempts      int
		lastTransient bool
	)

	delay := snap.retryDelay
	backoff := retry.WithMaxRetries(uint64(snap.maxRetries), retry.BackoffFunc(func() (time.Duration, bool) {
		return delay, false
	}))

	retryErr := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempts++
		lastTransient = false

		env, completed, attemptErr := c.attempt(ctx, target, body, snap)
		if attemptErr == nil {
			if attempts > 1 {
				snap.logger.Info("request succeeded after retry",
					"attempts", attempts)
			}
			response = env
			return nil
		}

		// A completed response is a final outcome; HTTP-level errors and
		// undecodable bodies are never retried.
		if completed {
			snap.logger.Debug("request completed with fatal response error",
				"error", attemptErr,
				"attempts", attempts)
			return attemptErr
		}

		if !snap.classifier.IsRetryable(attemptErr) {
			snap.logger.Debug("non-retryable error, giving up",
				"error", attemptErr,
				"attempts", attempts)
			return attemptErr
		}

		snap.logger.Debug("retrying request after delay",
			"attempt", attempts,
			"delay", delay,
			"error", attemptErr)

		lastTransient = true
		return retry.RetryableError(attemptErr)
	})
	if retryErr != nil {
		snap.logger.Warn("request failed",
			"attempts", attempts,
			"error", retryErr)
		// Cancellation during the delay aborts the loop; report it as such
		// rather than as retry exhaustion.
		if lastTransient && !errors.Is(retryErr, context.Canceled) && !errors.Is(retryErr, context.DeadlineExceeded) {
			return nil, &TransportError{Err: retryErr, Attempts: attempts}
		}
		return nil, retryErr
	}

	return response, nil
}

// attempt performs a single HTTP exchange. The completed flag reports
// whether a response was obtained at all: decode failures after a completed
// exchange are final, while errors before completion are candidates for
// retry.
func (c *Client) attempt(ctx context.Context, target string, body []byte, snap requestSnapshot) (env *Response, completed bool, err error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, snap.method, target, reader)
	if err != nil {
		return nil, true, fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("x-api-key", snap.apiKey)
	req.Header.Set("auth-mode", channelTag)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	// Custom headers go last so they may overwrite the fixed ones.
	for key, value := range snap.headers {
		req.Header.Set(key, value)
	}

	resp, err := snap.httpClient.Do(req)
	if err != nil {
		return nil, false, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, fmt.Errorf("read response body: %w", err)
	}

	snap.logger.Debug("response received",
		"status_code", resp.StatusCode,
		"body", string(raw))

	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, true, fmt.Errorf("%w (HTTP %d)", ErrEmptyResponse, resp.StatusCode)
	}

	var envelope Response
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, true, fmt.Errorf("decode response: %w", err)
	}

	// Non-2xx responses with a decodable envelope are returned as-is; the
	// caller judges the embedded status and error fields.
	return &envelope, true, nil
}

// buildRequest constructs the target URL and, for POST, the JSON body. GET
// parameters are percent-encoded into the query string; absent values are
// skipped.
func buildRequest(params ParameterBag, snap requestSnapshot) (string, []byte, error) {
	base, err := url.Parse(snap.baseURL)
	if err != nil {
		return "", nil, &ConfigError{Reason: fmt.Sprintf("invalid base URL: %v", err)}
	}
	if !snap.secure && base.Scheme == "https" {
		base.Scheme = "http"
	}

	if snap.method == http.MethodPost {
		if len(params) == 0 {
			return base.String(), []byte("{}"), nil
		}
		body, err := json.Marshal(params)
		if err != nil {
			return "", nil, fmt.Errorf("encode request body: %w", err)
		}
		return base.String(), body, nil
	}

	query := base.Query()
	for name, value := range params {
		if absent(value) {
			continue
		}
		query.Set(name, paramString(value))
	}
	base.RawQuery = query.Encode()
	return base.String(), nil, nil
}

// paramString renders a parameter value for the query string. Sequences are
// joined with commas, everything else uses its natural string form.
func paramString(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case []string:
		return strings.Join(v, ",")
	default:
		if isSequence(value) {
			parts := fmt.Sprint(value)
			return strings.Join(strings.Fields(strings.Trim(parts, "[]")), ",")
		}
		return fmt.Sprint(value)
	}
}
