package seo

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/Sternrassler/seo-insights/pkg/batch"
	"golang.org/x/net/publicsuffix"
)

// positionCTR is the expected click-through rate for organic positions 1-10.
// Results below the first page get no traffic.
var positionCTR = [...]float64{0.316, 0.158, 0.100, 0.072, 0.051, 0.044, 0.030, 0.021, 0.019, 0.016}

// ExpectedCTR returns the click-through rate used for an organic position.
func ExpectedCTR(position int) float64 {
	if position < 1 || position > len(positionCTR) {
		return 0
	}
	return positionCTR[position-1]
}

// TrafficShare fetches the SERP of every keyword and splits the estimated
// organic traffic between the ranking domains. With includeSubdomains false,
// hosts are folded into their registrable domain (blog.example.co.uk and
// shop.example.co.uk both count as example.co.uk).
func (s *Service) TrafficShare(ctx context.Context, keywords []string, location, language string, includeSubdomains bool) (*TrafficShareReport, error) {
	if len(keywords) == 0 {
		return nil, fmt.Errorf("traffic share: %w", ErrNoData)
	}
	start := time.Now()

	fetcher := batch.NewFetcher[*SerpResult](batch.FetcherFunc[*SerpResult](
		func(ctx context.Context, keyword string) (*SerpResult, error) {
			return s.FetchSerp(ctx, keyword, location, language)
		}), s.batch)

	results, err := fetcher.FetchAll(ctx, keywords)
	if err != nil {
		return nil, err
	}

	serps := make([]*SerpResult, 0, len(results))
	for _, r := range results {
		serps = append(serps, r.Value)
	}
	report := AggregateTrafficShare(serps, includeSubdomains)
	report.Keywords = keywords
	report.Location = location
	report.Language = language

	s.logger.Info().
		Int("keywords", len(keywords)).
		Int("domains", len(report.Domains)).
		Bool("include_subdomains", includeSubdomains).
		Dur("duration", time.Since(start)).
		Msg("Traffic share computed")

	return report, nil
}

// AggregateTrafficShare turns per-keyword SERPs into a per-domain report,
// sorted by estimated traffic (highest first, ties by domain name).
func AggregateTrafficShare(serps []*SerpResult, includeSubdomains bool) *TrafficShareReport {
	type acc struct {
		traffic   float64
		keywords  int
		positions int
	}
	byDomain := make(map[string]*acc)

	var total float64
	for _, serp := range serps {
		if serp == nil {
			continue
		}
		seen := make(map[string]bool)
		for _, item := range serp.Items {
			domain := DomainOf(item, includeSubdomains)
			if domain == "" || seen[domain] {
				// Only a domain's best position counts per keyword.
				continue
			}
			seen[domain] = true

			traffic := float64(serp.SearchVolume) * ExpectedCTR(item.Position)
			a := byDomain[domain]
			if a == nil {
				a = &acc{}
				byDomain[domain] = a
			}
			a.traffic += traffic
			a.keywords++
			a.positions += item.Position
			total += traffic
		}
	}

	report := &TrafficShareReport{
		IncludeSubdomains: includeSubdomains,
		TotalTraffic:      total,
		Domains:           make([]DomainShare, 0, len(byDomain)),
	}
	for domain, a := range byDomain {
		share := 0.0
		if total > 0 {
			share = a.traffic / total * 100
		}
		report.Domains = append(report.Domains, DomainShare{
			Domain:      domain,
			Traffic:     a.traffic,
			Share:       share,
			Keywords:    a.keywords,
			AvgPosition: float64(a.positions) / float64(a.keywords),
		})
	}

	sort.Slice(report.Domains, func(i, j int) bool {
		if report.Domains[i].Traffic != report.Domains[j].Traffic {
			return report.Domains[i].Traffic > report.Domains[j].Traffic
		}
		return report.Domains[i].Domain < report.Domains[j].Domain
	})
	return report
}

// DomainOf returns the domain a SERP item is credited to. "www." is never
// treated as a subdomain.
func DomainOf(item SerpItem, includeSubdomains bool) string {
	host := strings.ToLower(strings.TrimSpace(item.Domain))
	if host == "" && item.URL != "" {
		if u, err := url.Parse(item.URL); err == nil {
			host = strings.ToLower(u.Hostname())
		}
	}
	host = strings.TrimPrefix(host, "www.")
	if host == "" || includeSubdomains {
		return host
	}
	return RootDomain(host)
}

// RootDomain extracts the registrable domain (eTLD+1) from a host.
// Hosts without one (IPs, bare suffixes) are returned unchanged.
func RootDomain(host string) string {
	root, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return root
}
