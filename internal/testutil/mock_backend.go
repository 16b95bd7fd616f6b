// Package testutil provides a fake backend for function client tests.
package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"
)

// MockResponse defines how the mock answers one function.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockBackend is a configurable stand-in for the Edge Functions endpoint.
type MockBackend struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]http.HandlerFunc
	counts   map[string]int

	lastHeader http.Header
	lastBody   map[string][]byte
}

// NewMockBackend starts a mock backend. Unknown functions answer 404.
func NewMockBackend() *MockBackend {
	m := &MockBackend{
		handlers: make(map[string]http.HandlerFunc),
		counts:   make(map[string]int),
		lastBody: make(map[string][]byte),
	}

	m.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		function := strings.TrimPrefix(r.URL.Path, "/functions/v1/")
		body, _ := io.ReadAll(r.Body)

		m.mu.Lock()
		m.counts[function]++
		m.lastHeader = r.Header.Clone()
		m.lastBody[function] = body
		handler, ok := m.handlers[function]
		m.mu.Unlock()

		if ok {
			handler(w, r)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"function not found"}`))
	}))

	return m
}

// URL returns the mock base URL (without /functions/v1).
func (m *MockBackend) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockBackend) Close() {
	m.server.Close()
}

// SetHandler installs a custom handler for a function.
func (m *MockBackend) SetHandler(function string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[function] = handler
}

// SetResponse configures a fixed response for a function.
func (m *MockBackend) SetResponse(function string, resp MockResponse) {
	m.SetHandler(function, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}
		w.Header().Set("Content-Type", "application/json")
		for k, v := range resp.Headers {
			w.Header().Set(k, v)
		}
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// SetJSON answers a function with 200 and v encoded as JSON.
func (m *MockBackend) SetJSON(function string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	m.SetResponse(function, MockResponse{StatusCode: http.StatusOK, Body: string(data)})
}

// SetSequence answers successive calls with the given responses; the last one repeats.
func (m *MockBackend) SetSequence(function string, responses ...MockResponse) {
	var (
		mu   sync.Mutex
		next int
	)
	m.SetHandler(function, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		resp := responses[next]
		if next < len(responses)-1 {
			next++
		}
		mu.Unlock()

		for k, v := range resp.Headers {
			w.Header().Set(k, v)
		}
		w.WriteHeader(resp.StatusCode)
		w.Write([]byte(resp.Body))
	})
}

// Count returns how many times a function was called.
func (m *MockBackend) Count(function string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.counts[function]
}

// LastHeader returns the headers of the most recent request.
func (m *MockBackend) LastHeader() http.Header {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastHeader
}

// LastBody returns the last request body sent to a function.
func (m *MockBackend) LastBody(function string) []byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastBody[function]
}

// NewErrorResponse builds a function error response in the backend's format.
func NewErrorResponse(status int, message string) MockResponse {
	body, _ := json.Marshal(map[string]string{"error": message})
	return MockResponse{StatusCode: status, Body: string(body)}
}

// NewRateLimitResponse builds a 429 with Retry-After.
func NewRateLimitResponse(retryAfter string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"error":"rate limit exceeded"}`,
		Headers:    map[string]string{"Retry-After": retryAfter},
	}
}
