package seo

import (
	"math"
	"testing"
)

func TestDomainOf(t *testing.T) {
	tests := []struct {
		name              string
		item              SerpItem
		includeSubdomains bool
		want              string
	}{
		{"domain field", SerpItem{Domain: "Blog.Example.com"}, true, "blog.example.com"},
		{"folded", SerpItem{Domain: "blog.example.com"}, false, "example.com"},
		{"www stripped", SerpItem{URL: "https://www.example.com/a"}, true, "example.com"},
		{"multi-part suffix", SerpItem{URL: "https://shop.example.co.uk/"}, false, "example.co.uk"},
		{"url only with port", SerpItem{URL: "http://news.example.org:8080/x"}, false, "example.org"},
		{"nothing", SerpItem{}, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DomainOf(tt.item, tt.includeSubdomains); got != tt.want {
				t.Errorf("DomainOf() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExpectedCTR(t *testing.T) {
	if ExpectedCTR(1) != 0.316 {
		t.Errorf("ExpectedCTR(1) = %v", ExpectedCTR(1))
	}
	if ExpectedCTR(0) != 0 || ExpectedCTR(11) != 0 {
		t.Error("positions outside 1-10 should have no CTR")
	}
}

func TestAggregateTrafficShare(t *testing.T) {
	serps := []*SerpResult{
		{SearchVolume: 1000, Items: []SerpItem{
			{Position: 1, Domain: "a.com"},
			{Position: 2, Domain: "b.com"},
			{Position: 4, Domain: "a.com"}, // second listing of a.com ignored
		}},
		nil,
		{SearchVolume: 500, Items: []SerpItem{{Position: 2, Domain: "b.com"}}},
	}

	report := AggregateTrafficShare(serps, true)

	if len(report.Domains) != 2 {
		t.Fatalf("Domains = %+v", report.Domains)
	}
	a, b := report.Domains[0], report.Domains[1]
	if a.Domain != "a.com" || b.Domain != "b.com" {
		t.Fatalf("order = %s, %s", a.Domain, b.Domain)
	}
	if math.Abs(a.Traffic-316) > 1e-9 || a.Keywords != 1 || a.AvgPosition != 1 {
		t.Errorf("a.com = %+v", a)
	}
	if math.Abs(b.Traffic-237) > 1e-9 || b.Keywords != 2 || b.AvgPosition != 2 {
		t.Errorf("b.com = %+v", b)
	}
	if math.Abs(a.Share+b.Share-100) > 1e-9 {
		t.Errorf("shares sum to %v, want 100", a.Share+b.Share)
	}
}

func TestAggregateTrafficShare_Empty(t *testing.T) {
	report := AggregateTrafficShare(nil, false)
	if report.TotalTraffic != 0 || len(report.Domains) != 0 {
		t.Errorf("report = %+v", report)
	}
}
