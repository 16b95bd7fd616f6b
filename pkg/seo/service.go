package seo

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Sternrassler/seo-insights/pkg/batch"
	"github.com/Sternrassler/seo-insights/pkg/client"
	"github.com/Sternrassler/seo-insights/pkg/logging"
	"github.com/rs/zerolog"
)

// Backend function names.
const (
	FunctionKeywordOverview    = "keyword-overview"
	FunctionKeywordSerps       = "keyword-serps"
	FunctionPeopleAlsoAsk      = "people-also-ask"
	FunctionSerp               = "serp-checker"
	FunctionKeywordClustering  = "keyword-clustering"
	FunctionSearchConsoleSites = "google-search-console-sites"
)

var (
	// ErrInvalidLocation is returned when a location code is not numeric.
	ErrInvalidLocation = errors.New("invalid location code")

	// ErrNoData is returned when a function answers without usable data.
	ErrNoData = errors.New("no data returned")

	// ErrNoOpenAIKey is returned by FetchClusters when ctx carries no OpenAI key.
	ErrNoOpenAIKey = errors.New("OpenAI API key is required for keyword clustering")
)

// Invoker calls a backend function. *client.Client implements it.
type Invoker interface {
	Invoke(ctx context.Context, function string, body, out any, opts ...client.InvokeOption) error
}

// Service fetches page data from the backend functions.
type Service struct {
	invoker Invoker
	batch   batch.Config
	logger  zerolog.Logger
}

// NewService creates a Service. batchCfg bounds the traffic share fan-out.
func NewService(invoker Invoker, batchCfg batch.Config) *Service {
	return &Service{
		invoker: invoker,
		batch:   batchCfg,
		logger:  logging.NewLogger("seo"),
	}
}

type searchRequest struct {
	Keyword      string `json:"keyword"`
	LocationCode int    `json:"location_code"`
	LanguageCode string `json:"language_code"`
}

func newSearchRequest(keyword, location, language string) (searchRequest, error) {
	code, err := strconv.Atoi(strings.TrimSpace(location))
	if err != nil {
		return searchRequest{}, fmt.Errorf("%w %q", ErrInvalidLocation, location)
	}
	return searchRequest{
		Keyword:      strings.TrimSpace(keyword),
		LocationCode: code,
		LanguageCode: strings.TrimSpace(language),
	}, nil
}

// FetchKeywordOverview returns the main keyword metrics and related keywords.
func (s *Service) FetchKeywordOverview(ctx context.Context, keyword, location, language string) (*KeywordOverview, error) {
	req, err := newSearchRequest(keyword, location, language)
	if err != nil {
		return nil, err
	}

	var out KeywordOverview
	if err := s.invoker.Invoke(ctx, FunctionKeywordOverview, req, &out, client.Cached()); err != nil {
		return nil, err
	}
	if out.MainKeyword.Keyword == "" && out.MainKeyword.SearchVolume == 0 && len(out.RelatedKeywords) == 0 {
		return nil, fmt.Errorf("keyword overview for %q: %w", req.Keyword, ErrNoData)
	}
	return &out, nil
}

// FetchKeywordSerps returns the keyword's historical SERP snapshots.
func (s *Service) FetchKeywordSerps(ctx context.Context, keyword, location, language string) ([]SerpSnapshot, error) {
	req, err := newSearchRequest(keyword, location, language)
	if err != nil {
		return nil, err
	}

	var out []SerpSnapshot
	if err := s.invoker.Invoke(ctx, FunctionKeywordSerps, req, &out, client.Cached()); err != nil {
		return nil, err
	}
	return out, nil
}

// FetchPeopleAlsoAsk returns the "People Also Ask" questions for a keyword.
func (s *Service) FetchPeopleAlsoAsk(ctx context.Context, keyword, location, language string) (*PPAResult, error) {
	req, err := newSearchRequest(keyword, location, language)
	if err != nil {
		return nil, err
	}

	var out PPAResult
	if err := s.invoker.Invoke(ctx, FunctionPeopleAlsoAsk, req, &out, client.Cached()); err != nil {
		return nil, err
	}
	if out.Keyword == "" {
		out.Keyword = req.Keyword
	}
	return &out, nil
}

// FetchSerp returns the live organic results for a single keyword.
func (s *Service) FetchSerp(ctx context.Context, keyword, location, language string) (*SerpResult, error) {
	req, err := newSearchRequest(keyword, location, language)
	if err != nil {
		return nil, err
	}

	var out SerpResult
	if err := s.invoker.Invoke(ctx, FunctionSerp, req, &out, client.Cached()); err != nil {
		return nil, err
	}
	if out.Keyword == "" {
		out.Keyword = req.Keyword
	}
	return &out, nil
}

// HeaderOpenAIKey carries the user's OpenAI key to the clustering function.
const HeaderOpenAIKey = "x-openai-key"

type openAIKeyKey struct{}

// WithOpenAIKey attaches the user's OpenAI key for FetchClusters.
func WithOpenAIKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, openAIKeyKey{}, key)
}

// OpenAIKeyFromContext returns the key set by WithOpenAIKey, or "".
func OpenAIKeyFromContext(ctx context.Context) string {
	key, _ := ctx.Value(openAIKeyKey{}).(string)
	return key
}

// FetchClusters groups keywords with the user's clustering backend, sending
// the OpenAI key from ctx (see WithOpenAIKey).
func (s *Service) FetchClusters(ctx context.Context, keywords []string, clusteringType string) (*ClusterResult, error) {
	if len(keywords) == 0 {
		return nil, fmt.Errorf("cluster keywords: %w", ErrNoData)
	}

	apiKey := OpenAIKeyFromContext(ctx)
	if apiKey == "" {
		return nil, ErrNoOpenAIKey
	}

	body := struct {
		Keywords []string `json:"keywords"`
		Type     string   `json:"type"`
	}{keywords, clusteringType}

	var out ClusterResult
	err := s.invoker.Invoke(ctx, FunctionKeywordClustering, body, &out,
		client.Cached(), client.Private(), client.Header(HeaderOpenAIKey, apiKey))
	if err != nil {
		return nil, err
	}
	if out.Type == "" {
		out.Type = clusteringType
	}
	return &out, nil
}

// ListSearchConsoleSites lists the Search Console properties of the user in ctx
// (see client.WithUserID). An expired Google token yields an error matching ErrTokenExpired.
func (s *Service) ListSearchConsoleSites(ctx context.Context) ([]Site, error) {
	var out []Site
	if err := s.invoker.Invoke(ctx, FunctionSearchConsoleSites, nil, &out); err != nil {
		if IsTokenExpired(err) {
			s.logger.Warn().
				Str("user_id", client.UserIDFromContext(ctx)).
				Msg("Google access token expired")
			return nil, fmt.Errorf("%w: %w", ErrTokenExpired, err)
		}
		return nil, err
	}
	return out, nil
}
