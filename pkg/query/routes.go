package query

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Results routes the search forms redirect to.
const (
	RouteKeywordOverview   = "/keyword-overview/results"
	RoutePeopleAlsoAsk     = "/ppa/results"
	RouteTrafficShare      = "/traffic-share/results"
	RouteKeywordClustering = "/keyword-clustering/results"
)

// Form defaults (United States, English).
const (
	DefaultLocation = "2840"
	DefaultLanguage = "en"
)

var (
	// ErrEmptyKeyword is returned when a form is submitted without a keyword.
	ErrEmptyKeyword = errors.New("keyword is required")

	// ErrNoKeywords is returned when a list form holds no usable keywords.
	ErrNoKeywords = errors.New("at least one keyword is required")
)

// Search is the input collected by the single-keyword forms.
type Search struct {
	Keyword  string
	Location string
	Language string
}

// Params normalizes the search and returns its query parameters.
func (s Search) Params() (Params, error) {
	keyword := strings.TrimSpace(s.Keyword)
	if keyword == "" {
		return Params{}, ErrEmptyKeyword
	}
	return New(
		ParamKeyword, keyword,
		ParamLocation, orDefault(s.Location, DefaultLocation),
		ParamLanguage, orDefault(s.Language, DefaultLanguage),
	), nil
}

// KeywordOverviewURL builds the keyword overview results URL.
func KeywordOverviewURL(s Search) (string, error) {
	p, err := s.Params()
	if err != nil {
		return "", err
	}
	return RouteKeywordOverview + "?" + p.Encode(), nil
}

// PPAURL builds the "People Also Ask" results URL.
func PPAURL(s Search) (string, error) {
	p, err := s.Params()
	if err != nil {
		return "", err
	}
	return RoutePeopleAlsoAsk + "?" + p.Encode(), nil
}

// TrafficShareURL builds the traffic share results URL. Keywords are trimmed
// and blank entries dropped before being JSON-encoded.
func TrafficShareURL(keywords []string, location, language string, includeSubdomains bool) (string, error) {
	list := cleanKeywords(keywords)
	if len(list) == 0 {
		return "", ErrNoKeywords
	}
	encoded, err := json.Marshal(list)
	if err != nil {
		return "", fmt.Errorf("encode keywords: %w", err)
	}

	p := New(
		ParamKeywords, string(encoded),
		ParamLocation, orDefault(location, DefaultLocation),
		ParamLanguage, orDefault(language, DefaultLanguage),
		ParamIncludeSubdomains, strconv.FormatBool(includeSubdomains),
	)
	return RouteTrafficShare + "?" + p.Encode(), nil
}

// KeywordClusteringURL builds the clustering results URL.
func KeywordClusteringURL(keywords []string, clusteringType string) (string, error) {
	list := cleanKeywords(keywords)
	if len(list) == 0 {
		return "", ErrNoKeywords
	}
	encoded, err := json.Marshal(list)
	if err != nil {
		return "", fmt.Errorf("encode keywords: %w", err)
	}

	p := New(
		ParamKeywords, string(encoded),
		ParamType, orDefault(clusteringType, "semantic"),
	)
	return RouteKeywordClustering + "?" + p.Encode(), nil
}

// SplitKeywordLines turns newline-separated text (textarea or CSV import)
// into a trimmed list without blank lines.
func SplitKeywordLines(text string) []string {
	return cleanKeywords(strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n"))
}

func cleanKeywords(keywords []string) []string {
	out := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if k = strings.TrimSpace(k); k != "" {
			out = append(out, k)
		}
	}
	return out
}

func orDefault(value, fallback string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return fallback
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
