// Package client calls the backend functions (Supabase Edge Functions) that
// serve keyword, SERP, question and Search Console data, with retries,
// optional Redis response caching and error classification.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/seo-insights/pkg/cache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for function calls.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "seo_function_requests_total",
		Help: "Total backend function calls by function and status",
	}, []string{"function", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "seo_function_request_duration_seconds",
		Help:    "Backend function call duration in seconds",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	}, []string{"function"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "seo_function_errors_total",
		Help: "Total backend function errors by class",
	}, []string{"class"})
)

// functionsPath is where Supabase serves Edge Functions.
const functionsPath = "/functions/v1/"

// Client invokes backend functions.
type Client struct {
	httpClient *http.Client
	cache      *cache.Manager
	config     Config
	retry      RetryConfig
	logger     zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// BaseURL is the project URL, e.g. "https://xyz.supabase.co".
	BaseURL string

	// APIKey is sent as both "apikey" and bearer token.
	APIKey string

	// UserAgent identifies the gateway to the backend.
	UserAgent string

	// Redis enables response caching for calls made with Cached(). Optional.
	Redis *redis.Client

	// Timeout bounds a single HTTP attempt.
	Timeout time.Duration

	// Retry
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(baseURL, apiKey string) Config {
	return Config{
		BaseURL:        baseURL,
		APIKey:         apiKey,
		UserAgent:      "seo-insights/0.1.0",
		Timeout:        30 * time.Second,
		MaxRetries:     3,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     10 * time.Second,
	}
}

// New creates a new function client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}
	if !strings.HasPrefix(cfg.BaseURL, "http://") && !strings.HasPrefix(cfg.BaseURL, "https://") {
		return nil, fmt.Errorf("base url must be http or https (got %q)", cfg.BaseURL)
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("api key is required")
	}
	if cfg.MaxRetries < 1 {
		return nil, fmt.Errorf("max_retries must be >= 1 (got %d)", cfg.MaxRetries)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	retry := DefaultRetryConfig()
	retry.MaxAttempts = cfg.MaxRetries
	if cfg.InitialBackoff > 0 {
		retry.InitialBackoff = cfg.InitialBackoff
	}
	if cfg.MaxBackoff > 0 {
		retry.MaxBackoff = cfg.MaxBackoff
	}

	c := &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		config:     cfg,
		retry:      retry,
		logger:     log.With().Str("component", "function-client").Logger(),
	}
	if cfg.Redis != nil {
		c.cache = cache.NewManager(cfg.Redis)
	}
	return c, nil
}

type userIDKey struct{}

// WithUserID attaches the caller's user id; it is forwarded as x-user-id.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey{}, userID)
}

// UserIDFromContext returns the id set by WithUserID, or "".
func UserIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey{}).(string)
	return id
}

type invokeOptions struct {
	cached  bool
	private bool
	headers map[string]string
}

// InvokeOption tunes a single Invoke call.
type InvokeOption func(*invokeOptions)

// Cached serves the call from the response cache when possible.
func Cached() InvokeOption {
	return func(o *invokeOptions) { o.cached = true }
}

// Private scopes a cached response to the calling user.
func Private() InvokeOption {
	return func(o *invokeOptions) { o.private = true }
}

// Header adds a request header. Headers are not part of the cache key.
func Header(name, value string) InvokeOption {
	return func(o *invokeOptions) {
		if o.headers == nil {
			o.headers = make(map[string]string)
		}
		o.headers[name] = value
	}
}

// Invoke POSTs body as JSON to the named function and decodes the answer into out.
// out may be nil when the response is not needed.
func (c *Client) Invoke(ctx context.Context, function string, body, out any, opts ...InvokeOption) error {
	var o invokeOptions
	for _, opt := range opts {
		opt(&o)
	}

	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("encode %s request: %w", function, err)
		}
	}

	userID := UserIDFromContext(ctx)
	key := cache.Key{Function: function, Params: map[string]string{"body": string(payload)}}
	if o.private {
		key.UserID = userID
	}
	useCache := o.cached && c.cache != nil && (!o.private || userID != "")

	if useCache {
		entry, err := c.cache.Get(ctx, key)
		switch {
		case err == nil:
			c.logger.Debug().Str("function", function).Msg("Cache hit")
			requestsTotal.WithLabelValues(function, "cached").Inc()
			return decode(function, entry.Data, out)
		case !errors.Is(err, cache.ErrCacheMiss):
			c.logger.Warn().Err(err).Str("function", function).Msg("Cache get error")
		}
	}

	start := time.Now()
	defer func() {
		requestDuration.WithLabelValues(function).Observe(time.Since(start).Seconds())
	}()

	var data []byte
	err := retryWithBackoff(ctx, c.retry, func() (ErrorClass, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.functionURL(function), bytes.NewReader(payload))
		if err != nil {
			return "", fmt.Errorf("create request: %w", err)
		}
		c.setHeaders(req, userID)
		for name, value := range o.headers {
			req.Header.Set(name, value)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			c.logger.Warn().Err(err).Str("function", function).Msg("Function call failed")
			errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
			requestsTotal.WithLabelValues(function, "network_error").Inc()
			return ErrorClassNetwork, err
		}
		defer resp.Body.Close()

		requestsTotal.WithLabelValues(function, strconv.Itoa(resp.StatusCode)).Inc()

		if resp.StatusCode >= 400 {
			fe := newFunctionError(function, resp)
			errorsTotal.WithLabelValues(string(fe.ErrorClass)).Inc()
			c.logger.Warn().
				Str("function", function).
				Int("status", resp.StatusCode).
				Str("error_class", string(fe.ErrorClass)).
				Str("message", fe.Message).
				Msg("Function returned error")
			return fe.ErrorClass, fe
		}

		if useCache {
			entry, err := cache.ResponseToEntry(resp)
			if err != nil {
				return ErrorClassNetwork, err
			}
			data = entry.Data
			if err := c.cache.Set(ctx, key, entry); err != nil {
				c.logger.Warn().Err(err).Str("function", function).Msg("Failed to cache response")
			}
			return "", nil
		}

		data, err = io.ReadAll(resp.Body)
		if err != nil {
			return ErrorClassNetwork, fmt.Errorf("read response body: %w", err)
		}
		return "", nil
	})
	if err != nil {
		return err
	}

	return decode(function, data, out)
}

func (c *Client) functionURL(function string) string {
	return strings.TrimRight(c.config.BaseURL, "/") + functionsPath + strings.TrimLeft(function, "/")
}

func (c *Client) setHeaders(req *http.Request, userID string) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("apikey", c.config.APIKey)
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}
	if userID != "" {
		req.Header.Set("x-user-id", userID)
	}
}

// newFunctionError builds a FunctionError from a failed response.
// Functions report failures as {"error": "..."} or {"message": "..."}.
func newFunctionError(function string, resp *http.Response) *FunctionError {
	fe := &FunctionError{
		Function:   function,
		StatusCode: resp.StatusCode,
		ErrorClass: classifyStatus(resp.StatusCode),
		Message:    resp.Status,
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &payload) == nil {
		if payload.Error != "" {
			fe.Message = payload.Error
		} else if payload.Message != "" {
			fe.Message = payload.Message
		}
	}

	if ra := resp.Header.Get("Retry-After"); ra != "" {
		if secs, err := strconv.Atoi(ra); err == nil && secs > 0 {
			fe.RetryAfter = time.Duration(secs) * time.Second
		}
	}
	return fe
}

func decode(function string, data []byte, out any) error {
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s response: %w", function, err)
	}
	return nil
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}
