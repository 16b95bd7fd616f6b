// Package seo fetches the data behind the results pages from the backend
// functions and prepares it for rendering: chart series, intent badges,
// pagination slices and formatted numbers.
package seo

// MonthlySearch is one point of a keyword's search volume history.
type MonthlySearch struct {
	Year         int   `json:"year"`
	Month        int   `json:"month"`
	SearchVolume int64 `json:"search_volume"`
}

// MainKeyword holds the metrics of the searched keyword.
type MainKeyword struct {
	Keyword           string          `json:"keyword"`
	SearchVolume      int64           `json:"searchVolume"`
	MonthlySearches   []MonthlySearch `json:"monthlySearches"`
	Intent            string          `json:"intent"`
	CPC               float64         `json:"cpc"`
	KeywordDifficulty float64         `json:"keywordDifficulty"`
	ReferringDomains  int64           `json:"referringDomains"`
	Backlinks         int64           `json:"backlinks"`
	MainDomainRanking float64         `json:"mainDomainRanking"`
}

// RelatedKeyword is a keyword suggested alongside the main keyword.
type RelatedKeyword struct {
	Keyword           string  `json:"keyword"`
	SearchVolume      int64   `json:"searchVolume"`
	CPC               float64 `json:"cpc"`
	KeywordDifficulty float64 `json:"keywordDifficulty"`
	Intent            string  `json:"intent"`
}

// KeywordOverview is the keyword-overview function response.
type KeywordOverview struct {
	MainKeyword     MainKeyword      `json:"mainKeyword"`
	RelatedKeywords []RelatedKeyword `json:"relatedKeywords"`
}

// SerpItem is one organic result on a search results page.
type SerpItem struct {
	Position    int    `json:"position"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	Domain      string `json:"domain"`
	Description string `json:"description,omitempty"`
}

// SerpSnapshot is the top results for a keyword as seen on one date.
type SerpSnapshot struct {
	Date  string     `json:"date"`
	Items []SerpItem `json:"items"`
}

// SerpResult is the live results page for a single keyword.
type SerpResult struct {
	Keyword      string     `json:"keyword"`
	SearchVolume int64      `json:"searchVolume"`
	Items        []SerpItem `json:"items"`
}

// Question is a "People Also Ask" entry.
type Question struct {
	Question string     `json:"question"`
	Answer   string     `json:"answer,omitempty"`
	URL      string     `json:"url,omitempty"`
	Domain   string     `json:"domain,omitempty"`
	Related  []Question `json:"related,omitempty"`
}

// PPAResult holds the questions asked around a keyword.
type PPAResult struct {
	Keyword   string     `json:"keyword"`
	Questions []Question `json:"questions"`
}

// DomainShare is one domain's slice of the estimated organic traffic.
// Traffic is in estimated monthly visits, Share in percent of the report total.
type DomainShare struct {
	Domain      string  `json:"domain"`
	Traffic     float64 `json:"traffic"`
	Share       float64 `json:"share"`
	Keywords    int     `json:"keywords"`
	AvgPosition float64 `json:"avgPosition"`
}

// TrafficShareReport aggregates estimated traffic per domain over a keyword set.
type TrafficShareReport struct {
	Keywords          []string      `json:"keywords"`
	Location          string        `json:"location"`
	Language          string        `json:"language"`
	IncludeSubdomains bool          `json:"includeSubdomains"`
	TotalTraffic      float64       `json:"totalTraffic"`
	Domains           []DomainShare `json:"domains"`
}

// Cluster is a named group of keywords.
type Cluster struct {
	Name     string   `json:"name"`
	Keywords []string `json:"keywords"`
}

// ClusterResult is the keyword-clustering function response.
type ClusterResult struct {
	Type     string    `json:"type"`
	Clusters []Cluster `json:"clusters"`
}

// Site is a Search Console property the user can access.
type Site struct {
	SiteURL         string `json:"siteUrl"`
	PermissionLevel string `json:"permissionLevel"`
}
