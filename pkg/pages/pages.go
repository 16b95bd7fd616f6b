// Package pages defines the gated results pages: what each one requires,
// costs and fetches.
package pages

import (
	"context"

	"github.com/Sternrassler/seo-insights/pkg/gated"
	"github.com/Sternrassler/seo-insights/pkg/query"
	"github.com/Sternrassler/seo-insights/pkg/seo"
)

// Page names, used in logs, metrics and the YAML config.
const (
	NameKeywordOverview    = "keyword_overview"
	NamePeopleAlsoAsk      = "ppa"
	NameTrafficShare       = "traffic_share"
	NameKeywordClustering  = "keyword_clustering"
	NameSearchConsoleSites = "gsc_sites"
)

// Service is the data source of the pages. *seo.Service implements it.
type Service interface {
	FetchKeywordOverview(ctx context.Context, keyword, location, language string) (*seo.KeywordOverview, error)
	FetchKeywordSerps(ctx context.Context, keyword, location, language string) ([]seo.SerpSnapshot, error)
	FetchPeopleAlsoAsk(ctx context.Context, keyword, location, language string) (*seo.PPAResult, error)
	TrafficShare(ctx context.Context, keywords []string, location, language string, includeSubdomains bool) (*seo.TrafficShareReport, error)
	FetchClusters(ctx context.Context, keywords []string, clusteringType string) (*seo.ClusterResult, error)
	ListSearchConsoleSites(ctx context.Context) ([]seo.Site, error)
}

var searchParams = []string{query.ParamKeyword, query.ParamLocation, query.ParamLanguage}

// KeywordOverviewData is the keyword overview payload with its chart data.
type KeywordOverviewData struct {
	Overview        *seo.KeywordOverview         `json:"overview"`
	Volume          []seo.VolumePoint            `json:"volume"`
	Intent          seo.Badge                    `json:"intent"`
	DifficultyColor string                       `json:"difficultyColor"`
	Related         seo.Page[seo.RelatedKeyword] `json:"related"`
	Serps           []seo.SerpSnapshot           `json:"serps"`
}

// KeywordOverview fetches the keyword metrics and its SERP history in parallel.
func KeywordOverview(svc Service) gated.Page[KeywordOverviewData] {
	return gated.Page[KeywordOverviewData]{
		Name:     NameKeywordOverview,
		Label:    "Keyword Overview",
		Cost:     30,
		Required: searchParams,
		Suggestions: []string{
			"The keyword has no search volume",
			"The keyword is too specific or niche",
			"The keyword was mistyped or does not exist",
		},
		Plan: func(p query.Params) (*KeywordOverviewData, []gated.Task, error) {
			keyword, location, language := p.Get(query.ParamKeyword), p.Get(query.ParamLocation), p.Get(query.ParamLanguage)
			out := &KeywordOverviewData{}

			return out, []gated.Task{
				func(ctx context.Context) error {
					overview, err := svc.FetchKeywordOverview(ctx, keyword, location, language)
					if err != nil {
						return err
					}
					out.Overview = overview
					out.Volume = seo.VolumeSeries(overview.MainKeyword.MonthlySearches)
					out.Intent = seo.IntentBadge(overview.MainKeyword.Intent)
					out.DifficultyColor = seo.DifficultyColor(overview.MainKeyword.KeywordDifficulty)
					out.Related = seo.Paginate(overview.RelatedKeywords, 1, seo.RelatedKeywordsPerPage)
					return nil
				},
				func(ctx context.Context) error {
					serps, err := svc.FetchKeywordSerps(ctx, keyword, location, language)
					if err != nil {
						return err
					}
					out.Serps = serps
					return nil
				},
			}, nil
		},
	}
}

// PeopleAlsoAsk fetches the questions asked around a keyword.
func PeopleAlsoAsk(svc Service) gated.Page[seo.PPAResult] {
	return gated.Page[seo.PPAResult]{
		Name:     NamePeopleAlsoAsk,
		Label:    "People Also Ask",
		Cost:     10,
		Required: searchParams,
		Suggestions: []string{
			"The keyword has too little search volume to show questions",
			"Try a broader or question-style keyword",
		},
		Plan: func(p query.Params) (*seo.PPAResult, []gated.Task, error) {
			out := &seo.PPAResult{}
			return out, []gated.Task{
				func(ctx context.Context) error {
					res, err := svc.FetchPeopleAlsoAsk(ctx, p.Get(query.ParamKeyword), p.Get(query.ParamLocation), p.Get(query.ParamLanguage))
					if err != nil {
						return err
					}
					*out = *res
					return nil
				},
			}, nil
		},
	}
}

// TrafficShare splits the estimated traffic of a keyword set between domains.
func TrafficShare(svc Service) gated.Page[seo.TrafficShareReport] {
	return gated.Page[seo.TrafficShareReport]{
		Name:     NameTrafficShare,
		Label:    "Traffic Share",
		Cost:     50,
		Required: []string{query.ParamKeywords, query.ParamLocation, query.ParamLanguage},
		Suggestions: []string{
			"One of the keywords returned no results",
			"Try fewer or more common keywords",
		},
		Plan: func(p query.Params) (*seo.TrafficShareReport, []gated.Task, error) {
			keywords, err := keywordList(p)
			if err != nil {
				return nil, nil, err
			}

			out := &seo.TrafficShareReport{}
			includeSubdomains := p.Bool(query.ParamIncludeSubdomains)
			return out, []gated.Task{
				func(ctx context.Context) error {
					report, err := svc.TrafficShare(ctx, keywords, p.Get(query.ParamLocation), p.Get(query.ParamLanguage), includeSubdomains)
					if err != nil {
						return err
					}
					*out = *report
					return nil
				},
			}, nil
		},
	}
}

// KeywordClustering groups a keyword list with the user's clustering backend.
func KeywordClustering(svc Service) gated.Page[seo.ClusterResult] {
	return gated.Page[seo.ClusterResult]{
		Name:     NameKeywordClustering,
		Label:    "Keyword Clustering",
		Cost:     20,
		Required: []string{query.ParamKeywords, query.ParamType},
		Suggestions: []string{
			"Check that your OpenAI API key is valid",
			"Try again with fewer keywords",
		},
		Plan: func(p query.Params) (*seo.ClusterResult, []gated.Task, error) {
			keywords, err := keywordList(p)
			if err != nil {
				return nil, nil, err
			}

			out := &seo.ClusterResult{}
			return out, []gated.Task{
				func(ctx context.Context) error {
					res, err := svc.FetchClusters(ctx, keywords, p.Get(query.ParamType))
					if err != nil {
						return err
					}
					*out = *res
					return nil
				},
			}, nil
		},
	}
}

// Sites is the Search Console page payload.
type Sites struct {
	Sites []seo.Site `json:"sites"`
	// ConnectLabel is "Reconnect" once any site is connected.
	ConnectLabel string `json:"connectLabel"`
}

// SearchConsoleSites lists the user's Search Console properties. It is free;
// the user id travels in the request context (client.WithUserID).
func SearchConsoleSites(svc Service) gated.Page[Sites] {
	return gated.Page[Sites]{
		Name:     NameSearchConsoleSites,
		Label:    "Search Console",
		Required: []string{query.ParamUser},
		Suggestions: []string{
			"Failed to load domains. Please try again.",
		},
		Plan: func(p query.Params) (*Sites, []gated.Task, error) {
			out := &Sites{}
			return out, []gated.Task{
				func(ctx context.Context) error {
					sites, err := svc.ListSearchConsoleSites(ctx)
					if err != nil {
						return err
					}
					out.Sites = sites
					out.ConnectLabel = "Connect to Google Search Console"
					if len(sites) > 0 {
						out.ConnectLabel = "Reconnect to Google Search Console"
					}
					return nil
				},
			}, nil
		},
	}
}

func keywordList(p query.Params) ([]string, error) {
	keywords, err := p.Keywords(query.ParamKeywords)
	if err != nil {
		return nil, err
	}
	if len(keywords) == 0 {
		return nil, query.ErrNoKeywords
	}
	return keywords, nil
}
