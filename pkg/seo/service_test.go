package seo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Sternrassler/seo-insights/internal/testutil"
	"github.com/Sternrassler/seo-insights/pkg/batch"
	"github.com/Sternrassler/seo-insights/pkg/client"
)

// fakeInvoker answers functions from canned JSON or a handler.
type fakeInvoker struct {
	mu       sync.Mutex
	bodies   map[string]string
	errs     map[string]error
	handlers map[string]func(body []byte) (string, error)
	calls    map[string][]string
}

func newFakeInvoker() *fakeInvoker {
	return &fakeInvoker{
		bodies:   make(map[string]string),
		errs:     make(map[string]error),
		handlers: make(map[string]func([]byte) (string, error)),
		calls:    make(map[string][]string),
	}
}

func (f *fakeInvoker) Invoke(ctx context.Context, function string, body, out any, opts ...client.InvokeOption) error {
	req, _ := json.Marshal(body)

	f.mu.Lock()
	f.calls[function] = append(f.calls[function], string(req))
	resp, err := f.bodies[function], f.errs[function]
	handler := f.handlers[function]
	f.mu.Unlock()

	if handler != nil {
		resp, err = handler(req)
	}
	if err != nil {
		return err
	}
	if out == nil || resp == "" {
		return nil
	}
	return json.Unmarshal([]byte(resp), out)
}

func (f *fakeInvoker) callCount(function string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls[function])
}

const overviewJSON = `{
	"mainKeyword": {
		"keyword": "seo tools",
		"searchVolume": 12100,
		"monthlySearches": [{"year": 2026, "month": 9, "search_volume": 14800}],
		"intent": "commercial",
		"keywordDifficulty": 78
	},
	"relatedKeywords": [{"keyword": "free seo tools", "searchVolume": 2900, "cpc": 4.2, "intent": "commercial"}]
}`

func TestService_FetchKeywordOverview(t *testing.T) {
	inv := newFakeInvoker()
	inv.bodies[FunctionKeywordOverview] = overviewJSON
	svc := NewService(inv, batch.DefaultConfig())

	got, err := svc.FetchKeywordOverview(context.Background(), " seo tools ", "2840", "en")
	if err != nil {
		t.Fatalf("FetchKeywordOverview() error = %v", err)
	}
	if got.MainKeyword.SearchVolume != 12100 || got.MainKeyword.Intent != "commercial" {
		t.Errorf("MainKeyword = %+v", got.MainKeyword)
	}
	if len(got.RelatedKeywords) != 1 {
		t.Errorf("RelatedKeywords = %v", got.RelatedKeywords)
	}

	want := `{"keyword":"seo tools","location_code":2840,"language_code":"en"}`
	if req := inv.calls[FunctionKeywordOverview][0]; req != want {
		t.Errorf("request = %s, want %s", req, want)
	}
}

func TestService_FetchKeywordOverview_Empty(t *testing.T) {
	inv := newFakeInvoker()
	inv.bodies[FunctionKeywordOverview] = `{}`
	svc := NewService(inv, batch.DefaultConfig())

	if _, err := svc.FetchKeywordOverview(context.Background(), "zzqx", "2840", "en"); !errors.Is(err, ErrNoData) {
		t.Errorf("error = %v, want ErrNoData", err)
	}
}

func TestService_InvalidLocation(t *testing.T) {
	inv := newFakeInvoker()
	svc := NewService(inv, batch.DefaultConfig())

	_, err := svc.FetchPeopleAlsoAsk(context.Background(), "coffee", "United States", "en")
	if !errors.Is(err, ErrInvalidLocation) {
		t.Errorf("error = %v, want ErrInvalidLocation", err)
	}
	if inv.callCount(FunctionPeopleAlsoAsk) != 0 {
		t.Error("backend called despite invalid location")
	}
}

func TestService_FetchPeopleAlsoAsk_DefaultsKeyword(t *testing.T) {
	inv := newFakeInvoker()
	inv.bodies[FunctionPeopleAlsoAsk] = `{"questions":[{"question":"Is coffee healthy?","related":[{"question":"How much coffee per day?"}]}]}`
	svc := NewService(inv, batch.DefaultConfig())

	got, err := svc.FetchPeopleAlsoAsk(context.Background(), "coffee", "2840", "en")
	if err != nil {
		t.Fatalf("FetchPeopleAlsoAsk() error = %v", err)
	}
	if got.Keyword != "coffee" || len(got.Questions) != 1 || len(got.Questions[0].Related) != 1 {
		t.Errorf("FetchPeopleAlsoAsk() = %+v", got)
	}
}

func TestService_FetchKeywordSerps_PropagatesError(t *testing.T) {
	inv := newFakeInvoker()
	inv.errs[FunctionKeywordSerps] = &client.FunctionError{Function: FunctionKeywordSerps, StatusCode: 500, Message: "SERP provider unavailable"}
	svc := NewService(inv, batch.DefaultConfig())

	_, err := svc.FetchKeywordSerps(context.Background(), "seo", "2840", "en")
	if client.Message(err) != "SERP provider unavailable" {
		t.Errorf("Message() = %q", client.Message(err))
	}
}

func TestService_FetchClusters(t *testing.T) {
	inv := newFakeInvoker()
	inv.bodies[FunctionKeywordClustering] = `{"clusters":[{"name":"tools","keywords":["seo tools","free seo tools"]}]}`
	svc := NewService(inv, batch.DefaultConfig())

	ctx := WithOpenAIKey(context.Background(), "sk-test1234")
	got, err := svc.FetchClusters(ctx, []string{"seo tools", "free seo tools"}, "semantic")
	if err != nil {
		t.Fatalf("FetchClusters() error = %v", err)
	}
	if got.Type != "semantic" || len(got.Clusters) != 1 {
		t.Errorf("FetchClusters() = %+v", got)
	}
	if req := inv.calls[FunctionKeywordClustering][0]; req != `{"keywords":["seo tools","free seo tools"],"type":"semantic"}` {
		t.Errorf("request = %s", req)
	}

	if _, err := svc.FetchClusters(ctx, nil, "semantic"); !errors.Is(err, ErrNoData) {
		t.Errorf("FetchClusters(nil) error = %v, want ErrNoData", err)
	}
	if _, err := svc.FetchClusters(context.Background(), []string{"a", "b"}, "semantic"); !errors.Is(err, ErrNoOpenAIKey) {
		t.Errorf("FetchClusters() without key error = %v, want ErrNoOpenAIKey", err)
	}
	if n := inv.callCount(FunctionKeywordClustering); n != 1 {
		t.Errorf("clustering calls = %d, want 1", n)
	}
}

func TestService_FetchClusters_SendsOpenAIKey(t *testing.T) {
	mock := testutil.NewMockBackend()
	defer mock.Close()
	mock.SetJSON(FunctionKeywordClustering, ClusterResult{Clusters: []Cluster{{Name: "tools", Keywords: []string{"a", "b"}}}})

	c, err := client.New(client.DefaultConfig(mock.URL(), "anon"))
	if err != nil {
		t.Fatalf("client.New() error = %v", err)
	}
	svc := NewService(c, batch.DefaultConfig())

	ctx := WithOpenAIKey(client.WithUserID(context.Background(), "user-1"), "sk-test1234")
	if _, err := svc.FetchClusters(ctx, []string{"a", "b"}, "semantic"); err != nil {
		t.Fatalf("FetchClusters() error = %v", err)
	}

	if got := mock.LastHeader().Get(HeaderOpenAIKey); got != "sk-test1234" {
		t.Errorf("%s = %q, want the user's key", HeaderOpenAIKey, got)
	}
	if body := string(mock.LastBody(FunctionKeywordClustering)); strings.Contains(body, "sk-") {
		t.Errorf("request body %s contains the key", body)
	}
}

func TestService_ListSearchConsoleSites(t *testing.T) {
	mock := testutil.NewMockBackend()
	defer mock.Close()
	mock.SetJSON(FunctionSearchConsoleSites, []Site{
		{SiteURL: "sc-domain:example.com", PermissionLevel: "siteOwner"},
	})

	c, err := client.New(client.DefaultConfig(mock.URL(), "anon"))
	if err != nil {
		t.Fatalf("client.New() error = %v", err)
	}
	svc := NewService(c, batch.DefaultConfig())

	sites, err := svc.ListSearchConsoleSites(client.WithUserID(context.Background(), "user-1"))
	if err != nil {
		t.Fatalf("ListSearchConsoleSites() error = %v", err)
	}
	if len(sites) != 1 || sites[0].PermissionLevel != "siteOwner" {
		t.Errorf("sites = %+v", sites)
	}
	if got := mock.LastHeader().Get("x-user-id"); got != "user-1" {
		t.Errorf("x-user-id = %q", got)
	}
}

func TestService_ListSearchConsoleSites_TokenExpired(t *testing.T) {
	mock := testutil.NewMockBackend()
	defer mock.Close()
	mock.SetResponse(FunctionSearchConsoleSites, testutil.NewErrorResponse(http.StatusUnauthorized, "Google access token has expired"))

	c, _ := client.New(client.DefaultConfig(mock.URL(), "anon"))
	svc := NewService(c, batch.DefaultConfig())

	_, err := svc.ListSearchConsoleSites(client.WithUserID(context.Background(), "user-1"))
	if !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("error = %v, want ErrTokenExpired", err)
	}
	if client.Message(err) != "Google access token has expired" {
		t.Errorf("Message() = %q", client.Message(err))
	}
}

func TestIsTokenExpired(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"sentinel", ErrTokenExpired, true},
		{"wrapped sentinel", fmt.Errorf("load sites: %w", ErrTokenExpired), true},
		{"function message", &client.FunctionError{Message: "Google access token has expired"}, true},
		{"other", errors.New("Failed to load domains"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTokenExpired(tt.err); got != tt.want {
				t.Errorf("IsTokenExpired() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestService_TrafficShare(t *testing.T) {
	inv := newFakeInvoker()
	inv.handlers[FunctionSerp] = func(body []byte) (string, error) {
		var req searchRequest
		_ = json.Unmarshal(body, &req)
		switch req.Keyword {
		case "seo tools":
			return `{"searchVolume":1000,"items":[
				{"position":1,"url":"https://www.ahrefs.com/seo-tools"},
				{"position":2,"url":"https://blog.example.com/tools"}]}`, nil
		case "rank tracker":
			return `{"searchVolume":1000,"items":[
				{"position":1,"url":"https://shop.example.com/tracker"},
				{"position":3,"domain":"ahrefs.com"}]}`, nil
		}
		return "", fmt.Errorf("unexpected keyword %q", req.Keyword)
	}
	svc := NewService(inv, batch.Config{MaxConcurrency: 2, Timeout: time.Second})

	report, err := svc.TrafficShare(context.Background(), []string{"seo tools", "rank tracker"}, "2840", "en", false)
	if err != nil {
		t.Fatalf("TrafficShare() error = %v", err)
	}
	if inv.callCount(FunctionSerp) != 2 {
		t.Errorf("serp calls = %d, want 2", inv.callCount(FunctionSerp))
	}
	if len(report.Domains) != 2 {
		t.Fatalf("Domains = %+v, want 2 domains", report.Domains)
	}

	// ahrefs: 316 + 100 = 416; example.com folded: 158 + 316 = 474.
	if report.Domains[0].Domain != "example.com" || report.Domains[0].Keywords != 2 {
		t.Errorf("Domains[0] = %+v", report.Domains[0])
	}
	if report.Domains[1].Domain != "ahrefs.com" {
		t.Errorf("Domains[1] = %+v", report.Domains[1])
	}
	if report.Location != "2840" || report.Language != "en" || report.IncludeSubdomains {
		t.Errorf("report meta = %+v", report)
	}
}

func TestService_TrafficShare_FailsOnKeywordError(t *testing.T) {
	inv := newFakeInvoker()
	inv.errs[FunctionSerp] = errors.New("serp provider down")
	svc := NewService(inv, batch.Config{MaxConcurrency: 1, Timeout: time.Second})

	_, err := svc.TrafficShare(context.Background(), []string{"a"}, "2840", "en", true)
	if err == nil || !strings.Contains(err.Error(), "serp provider down") {
		t.Errorf("TrafficShare() error = %v", err)
	}
}
