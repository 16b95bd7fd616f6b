package client

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/Sternrassler/seo-insights/internal/testutil"
	"github.com/redis/go-redis/v9"
)

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()

	cfg := DefaultConfig(baseURL, "test-anon-key")
	cfg.InitialBackoff = time.Millisecond
	cfg.MaxBackoff = 5 * time.Millisecond

	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name        string
		config      Config
		expectError bool
		errorMsg    string
	}{
		{
			name:   "valid config",
			config: DefaultConfig("https://project.supabase.co", "key"),
		},
		{
			name:        "missing base url",
			config:      DefaultConfig("", "key"),
			expectError: true,
			errorMsg:    "base url is required",
		},
		{
			name:        "bad scheme",
			config:      DefaultConfig("ftp://project", "key"),
			expectError: true,
			errorMsg:    "must be http or https",
		},
		{
			name:        "missing api key",
			config:      DefaultConfig("https://project.supabase.co", ""),
			expectError: true,
			errorMsg:    "api key is required",
		},
		{
			name: "zero retries",
			config: Config{
				BaseURL: "https://project.supabase.co",
				APIKey:  "key",
			},
			expectError: true,
			errorMsg:    "max_retries must be >= 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.config)
			if tt.expectError {
				if err == nil || !strings.Contains(err.Error(), tt.errorMsg) {
					t.Errorf("New() error = %v, want containing %q", err, tt.errorMsg)
				}
				return
			}
			if err != nil {
				t.Errorf("New() unexpected error = %v", err)
			}
		})
	}
}

func TestInvoke_Success(t *testing.T) {
	mock := testutil.NewMockBackend()
	defer mock.Close()
	mock.SetJSON("keyword-overview", map[string]any{"keyword": "seo tools", "searchVolume": 12100})

	c := newTestClient(t, mock.URL())
	ctx := WithUserID(context.Background(), "user-42")

	var out struct {
		Keyword      string `json:"keyword"`
		SearchVolume int    `json:"searchVolume"`
	}
	err := c.Invoke(ctx, "keyword-overview", map[string]string{"keyword": "seo tools"}, &out)
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if out.Keyword != "seo tools" || out.SearchVolume != 12100 {
		t.Errorf("decoded = %+v", out)
	}

	h := mock.LastHeader()
	if h.Get("x-user-id") != "user-42" {
		t.Errorf("x-user-id = %q", h.Get("x-user-id"))
	}
	if h.Get("Authorization") != "Bearer test-anon-key" || h.Get("apikey") != "test-anon-key" {
		t.Errorf("auth headers = %v", h)
	}
	if got := string(mock.LastBody("keyword-overview")); got != `{"keyword":"seo tools"}` {
		t.Errorf("request body = %s", got)
	}
}

func TestInvoke_HeaderOption(t *testing.T) {
	mock := testutil.NewMockBackend()
	defer mock.Close()
	mock.SetJSON("keyword-clustering", map[string]any{"clusters": []any{}})

	c := newTestClient(t, mock.URL())
	body := map[string]any{"keywords": []string{"a", "b"}}
	if err := c.Invoke(context.Background(), "keyword-clustering", body, nil, Header("x-openai-key", "sk-abc123")); err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}

	if got := mock.LastHeader().Get("x-openai-key"); got != "sk-abc123" {
		t.Errorf("x-openai-key = %q", got)
	}
	if got := string(mock.LastBody("keyword-clustering")); got != `{"keywords":["a","b"]}` {
		t.Errorf("request body = %s", got)
	}
}

func TestInvoke_ClientErrorNotRetried(t *testing.T) {
	mock := testutil.NewMockBackend()
	defer mock.Close()
	mock.SetResponse("google-search-console-sites",
		testutil.NewErrorResponse(http.StatusUnauthorized, "Google access token has expired"))

	c := newTestClient(t, mock.URL())
	err := c.Invoke(context.Background(), "google-search-console-sites", nil, nil)

	var fe *FunctionError
	if !errors.As(err, &fe) {
		t.Fatalf("Invoke() error = %v, want FunctionError", err)
	}
	if fe.ErrorClass != ErrorClassClient || fe.StatusCode != http.StatusUnauthorized {
		t.Errorf("FunctionError = %+v", fe)
	}
	if Message(err) != "Google access token has expired" {
		t.Errorf("Message() = %q", Message(err))
	}
	if n := mock.Count("google-search-console-sites"); n != 1 {
		t.Errorf("calls = %d, want 1 (no retry on 4xx)", n)
	}
}

func TestInvoke_ServerErrorRetriedThenSucceeds(t *testing.T) {
	mock := testutil.NewMockBackend()
	defer mock.Close()
	mock.SetSequence("keyword-serps",
		testutil.NewErrorResponse(http.StatusBadGateway, "upstream unavailable"),
		testutil.MockResponse{StatusCode: http.StatusOK, Body: `[{"date":"2026-10-01"}]`},
	)

	c := newTestClient(t, mock.URL())
	var out []map[string]string
	if err := c.Invoke(context.Background(), "keyword-serps", nil, &out); err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if len(out) != 1 || out[0]["date"] != "2026-10-01" {
		t.Errorf("decoded = %v", out)
	}
	if n := mock.Count("keyword-serps"); n != 2 {
		t.Errorf("calls = %d, want 2", n)
	}
}

func TestInvoke_RetryExhausted(t *testing.T) {
	mock := testutil.NewMockBackend()
	defer mock.Close()
	mock.SetResponse("ppa", testutil.NewRateLimitResponse("0"))

	c := newTestClient(t, mock.URL())
	err := c.Invoke(context.Background(), "ppa", nil, nil)

	if !errors.Is(err, ErrRetryExhausted) {
		t.Fatalf("Invoke() error = %v, want ErrRetryExhausted", err)
	}
	if Message(err) != "rate limit exceeded" {
		t.Errorf("Message() = %q", Message(err))
	}
	if n := mock.Count("ppa"); n != 3 {
		t.Errorf("calls = %d, want 3", n)
	}
}

func TestInvoke_UnknownFunction(t *testing.T) {
	mock := testutil.NewMockBackend()
	defer mock.Close()

	c := newTestClient(t, mock.URL())
	err := c.Invoke(context.Background(), "does-not-exist", nil, nil)
	if Message(err) != "function not found" {
		t.Errorf("Message() = %q", Message(err))
	}
}

func TestInvoke_DecodeError(t *testing.T) {
	mock := testutil.NewMockBackend()
	defer mock.Close()
	mock.SetResponse("keyword-overview", testutil.MockResponse{StatusCode: http.StatusOK, Body: "not json"})

	c := newTestClient(t, mock.URL())
	var out map[string]any
	err := c.Invoke(context.Background(), "keyword-overview", nil, &out)
	if err == nil || !strings.Contains(err.Error(), "decode keyword-overview response") {
		t.Errorf("Invoke() error = %v", err)
	}
}

func TestInvoke_ContextCancelled(t *testing.T) {
	mock := testutil.NewMockBackend()
	defer mock.Close()
	mock.SetResponse("keyword-overview", testutil.MockResponse{StatusCode: http.StatusOK, Body: "{}", Delay: 200 * time.Millisecond})

	c := newTestClient(t, mock.URL())
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := c.Invoke(ctx, "keyword-overview", nil, nil)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Invoke() error = %v, want deadline exceeded", err)
	}
	if n := mock.Count("keyword-overview"); n != 1 {
		t.Errorf("calls = %d, want 1", n)
	}
}

func TestInvoke_CachedServesSecondCallFromRedis(t *testing.T) {
	redisClient := redis.NewClient(&redis.Options{Addr: "localhost:6379", DB: 15})
	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available for testing: %v", err)
	}
	redisClient.FlushDB(ctx)
	t.Cleanup(func() {
		redisClient.FlushDB(context.Background())
		redisClient.Close()
	})

	mock := testutil.NewMockBackend()
	defer mock.Close()
	mock.SetJSON("keyword-overview", map[string]int{"searchVolume": 880})

	cfg := DefaultConfig(mock.URL(), "key")
	cfg.Redis = redisClient
	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	for i := 0; i < 2; i++ {
		var out map[string]int
		if err := c.Invoke(ctx, "keyword-overview", map[string]string{"keyword": "a"}, &out, Cached()); err != nil {
			t.Fatalf("Invoke() #%d error = %v", i, err)
		}
		if out["searchVolume"] != 880 {
			t.Errorf("decoded = %v", out)
		}
	}
	if n := mock.Count("keyword-overview"); n != 1 {
		t.Errorf("backend calls = %d, want 1", n)
	}
}

func TestUserIDFromContext(t *testing.T) {
	if got := UserIDFromContext(context.Background()); got != "" {
		t.Errorf("UserIDFromContext() = %q, want empty", got)
	}
	if got := UserIDFromContext(WithUserID(context.Background(), "u")); got != "u" {
		t.Errorf("UserIDFromContext() = %q", got)
	}
}
