package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"sync"

	"github.com/Sternrassler/seo-insights/pkg/client"
	"github.com/Sternrassler/seo-insights/pkg/credits"
	"github.com/Sternrassler/seo-insights/pkg/gated"
	"github.com/Sternrassler/seo-insights/pkg/gsc"
	"github.com/Sternrassler/seo-insights/pkg/logging"
	"github.com/Sternrassler/seo-insights/pkg/metrics"
	"github.com/Sternrassler/seo-insights/pkg/pages"
	"github.com/Sternrassler/seo-insights/pkg/query"
	"github.com/Sternrassler/seo-insights/pkg/seo"
	"github.com/Sternrassler/seo-insights/pkg/settings"
	"github.com/rs/zerolog"
)

// headerUserID carries the authenticated caller, set by the auth proxy in front of the gateway.
const headerUserID = "X-User-Id"

// maxControllersPerPage bounds the per-user controller registry.
const maxControllersPerPage = 10000

type balanceReader interface {
	GetBalance(ctx context.Context, userID string) (*credits.Balance, error)
	History(ctx context.Context, userID string, limit int) ([]credits.Deduction, error)
}

type settingsStore interface {
	SaveOpenAIKey(ctx context.Context, userID, key string) error
	OpenAIKey(ctx context.Context, userID string) (string, error)
	DeleteOpenAIKey(ctx context.Context, userID string) error
}

// deps are the collaborators of the HTTP server.
type deps struct {
	Service  pages.Service
	Invoker  gsc.Invoker
	Credits  func(userID string) gated.Credits
	Balances balanceReader
	Settings settingsStore

	// Connector is nil when Search Console connect is not configured.
	Connector *gsc.Connector

	Pages *pages.Config
	Ready func(ctx context.Context) error
}

type server struct {
	deps
	logger zerolog.Logger

	overview   *registry[pages.KeywordOverviewData]
	ppa        *registry[seo.PPAResult]
	traffic    *registry[seo.TrafficShareReport]
	clustering *registry[seo.ClusterResult]
	sites      *registry[pages.Sites]
}

func newServer(d deps) *server {
	s := &server{deps: d, logger: logging.NewLogger("gateway")}
	if s.Pages == nil {
		s.Pages = pages.DefaultConfig()
	}

	s.overview = newRegistry(s, pages.KeywordOverview(d.Service), describeFetchError)
	s.ppa = newRegistry(s, pages.PeopleAlsoAsk(d.Service), describeFetchError)
	s.traffic = newRegistry(s, pages.TrafficShare(d.Service), describeFetchError)
	s.clustering = newRegistry(s, pages.KeywordClustering(d.Service), describeFetchError)
	s.sites = newRegistry(s, pages.SearchConsoleSites(d.Service), describeSearchConsoleError)
	return s
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", healthHandler)
	mux.HandleFunc("GET /ready", readyHandler(s.Ready))
	mux.Handle("GET /metrics", metrics.Handler())

	mux.HandleFunc("GET /api/keyword-overview", s.requireUser(pageHandler(s.overview, query.ParamKeyword, query.ParamLocation, query.ParamLanguage)))
	mux.HandleFunc("GET /api/ppa", s.requireUser(pageHandler(s.ppa, query.ParamKeyword, query.ParamLocation, query.ParamLanguage)))
	mux.HandleFunc("GET /api/traffic-share", s.requireUser(pageHandler(s.traffic, query.ParamKeywords, query.ParamLocation, query.ParamLanguage, query.ParamIncludeSubdomains)))
	mux.HandleFunc("GET /api/keyword-clustering", s.requireUser(s.requireOpenAIKey(pageHandler(s.clustering, query.ParamKeywords, query.ParamType))))
	mux.HandleFunc("GET /api/gsc/sites", s.requireUser(pageHandler(s.sites, query.ParamUser)))

	mux.HandleFunc("GET /api/gsc/connect", s.requireUser(s.handleConnect))
	mux.HandleFunc("POST /api/gsc/callback", s.handleCallback)

	mux.HandleFunc("GET /api/credits", s.requireUser(s.handleCredits))
	mux.HandleFunc("GET /api/settings/openai-key", s.requireUser(s.handleGetOpenAIKey))
	mux.HandleFunc("PUT /api/settings/openai-key", s.requireUser(s.handlePutOpenAIKey))
	mux.HandleFunc("DELETE /api/settings/openai-key", s.requireUser(s.handleDeleteOpenAIKey))

	return mux
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

func readyHandler(ping func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ping != nil {
			if err := ping(r.Context()); err != nil {
				http.Error(w, "Redis unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "OK")
	}
}

type userIDKey struct{}

// requireUser rejects requests without X-User-Id and stores the id in the
// request context for both the handlers and the function client.
func (s *server) requireUser(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := strings.TrimSpace(r.Header.Get(headerUserID))
		if userID == "" {
			writeError(w, http.StatusUnauthorized, "missing "+headerUserID+" header")
			return
		}
		ctx := context.WithValue(r.Context(), userIDKey{}, userID)
		next(w, r.WithContext(client.WithUserID(ctx, userID)))
	}
}

func userFrom(r *http.Request) string {
	id, _ := r.Context().Value(userIDKey{}).(string)
	return id
}

// requireOpenAIKey answers 412 when the user has not stored an OpenAI key.
// Otherwise the key travels in the request context to the clustering function.
func (s *server) requireOpenAIKey(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key, err := s.Settings.OpenAIKey(r.Context(), userFrom(r))
		if errors.Is(err, settings.ErrNotFound) {
			writeError(w, http.StatusPreconditionFailed, "an OpenAI API key is required for keyword clustering")
			return
		}
		if err != nil {
			s.logger.Error().Err(err).Str("user_id", userFrom(r)).Msg("Failed to read settings")
			writeError(w, http.StatusInternalServerError, "failed to read settings")
			return
		}
		next(w, r.WithContext(seo.WithOpenAIKey(r.Context(), key)))
	}
}

// pageResponse is what every results endpoint returns.
type pageResponse[T any] struct {
	Outcome gated.Outcome  `json:"outcome"`
	Cost    int            `json:"cost"`
	State   gated.State[T] `json:"state"`
}

// pageHandler runs the page lifecycle for the calling user with the named
// query parameters. Repeating the current search returns the committed state;
// ?retry=true runs it again.
func pageHandler[T any](reg *registry[T], names ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := userFrom(r)
		params := query.FromValues(r.URL.Query()).Only(names...)
		if slices.Contains(names, query.ParamUser) {
			params = params.With(query.ParamUser, userID)
		}

		// The run outlives a disconnecting client so the committed state is
		// there when the page is polled again.
		ctx := context.WithoutCancel(r.Context())

		ctrl := reg.get(userID)
		var outcome gated.Outcome
		if r.URL.Query().Get("retry") == "true" {
			outcome = ctrl.Run(ctx, params)
		} else {
			outcome = ctrl.Navigate(ctx, params)
		}

		writeJSON(w, http.StatusOK, pageResponse[T]{
			Outcome: outcome,
			Cost:    ctrl.Page().Cost,
			State:   ctrl.Snapshot(),
		})
	}
}

// registry holds one controller per user for a page.
type registry[T any] struct {
	page    gated.Page[T]
	credits func(userID string) gated.Credits
	config  gated.Config
	logger  zerolog.Logger
	limit   int

	mu          sync.Mutex
	controllers map[string]*gated.Controller[T]
}

func newRegistry[T any](s *server, page gated.Page[T], describe func(error) string) *registry[T] {
	page = pages.Apply(s.Pages, page)
	cfg := s.Pages.Controller()
	cfg.Describe = describe

	return &registry[T]{
		page:        page,
		credits:     s.Credits,
		config:      cfg,
		logger:      s.logger,
		limit:       maxControllersPerPage,
		controllers: make(map[string]*gated.Controller[T]),
	}
}

func (r *registry[T]) get(userID string) *gated.Controller[T] {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.controllers[userID]; ok {
		return c
	}
	if len(r.controllers) >= r.limit {
		r.evictIdle()
	}

	var account gated.Credits
	if r.page.Cost > 0 && r.credits != nil {
		account = r.credits(userID)
	}
	cfg := r.config
	logger := logging.ForPage(r.logger, r.page.Name, userID)
	cfg.Logger = &logger

	c := gated.New(r.page, account, cfg)
	r.controllers[userID] = c
	return c
}

// evictIdle drops one controller that is not running. With none idle the
// registry grows past the bound until runs finish.
func (r *registry[T]) evictIdle() {
	for id, c := range r.controllers {
		if !c.Snapshot().IsLoading {
			delete(r.controllers, id)
			return
		}
	}
}

// forget drops the user's controller so the next request starts fresh.
func (r *registry[T]) forget(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.controllers, userID)
}

// describeFetchError shows the backend's own message when there is one.
func describeFetchError(err error) string {
	return client.Message(err)
}

func describeSearchConsoleError(err error) string {
	if seo.IsTokenExpired(err) {
		return "Your Google access token has expired. Please reconnect to Google Search Console."
	}
	return client.Message(err)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger := logging.NewLogger("gateway")
		logger.Warn().Err(err).Msg("Failed to write response")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
