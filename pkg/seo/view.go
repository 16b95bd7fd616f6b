package seo

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// RelatedKeywordsPerPage is the page size of the related keywords table.
const RelatedKeywordsPerPage = 6

// VolumePoint is one point of the search volume chart.
type VolumePoint struct {
	Date         time.Time `json:"date"`
	SearchVolume int64     `json:"search_volume"`
}

// VolumeSeries sorts the monthly history chronologically for charting.
// The input slice is left untouched.
func VolumeSeries(monthly []MonthlySearch) []VolumePoint {
	points := make([]VolumePoint, 0, len(monthly))
	for _, m := range monthly {
		points = append(points, VolumePoint{
			Date:         time.Date(m.Year, time.Month(m.Month), 1, 0, 0, 0, 0, time.UTC),
			SearchVolume: m.SearchVolume,
		})
	}
	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Date.Before(points[j].Date)
	})
	return points
}

// Badge is how a search intent is displayed.
type Badge struct {
	Label      string `json:"label"`
	Initial    string `json:"initial"`
	Background string `json:"background"`
	Foreground string `json:"foreground"`
}

var intentColors = map[string][2]string{
	"informational": {"#EBF5FF", "#1E40AF"},
	"commercial":    {"#F3E8FF", "#6B21A8"},
	"navigational":  {"#DCFCE7", "#166534"},
	"transactional": {"#FEF3C7", "#92400E"},
}

// IntentBadge returns the badge for a search intent. Unknown intents are grey.
func IntentBadge(intent string) Badge {
	colors, ok := intentColors[intent]
	if !ok {
		colors = [2]string{"#F3F4F6", "#374151"}
	}

	b := Badge{Label: intent, Background: colors[0], Foreground: colors[1]}
	if intent != "" {
		b.Initial = strings.ToUpper(intent[:1])
	}
	return b
}

// DifficultyColor maps a 0-100 keyword difficulty to a bar colour.
func DifficultyColor(difficulty float64) string {
	switch {
	case difficulty < 30:
		return "#22C55E"
	case difficulty < 50:
		return "#EAB308"
	case difficulty < 70:
		return "#F97316"
	default:
		return "#EF4444"
	}
}

// Page is one slice of a paginated list.
type Page[T any] struct {
	Items      []T  `json:"items"`
	Page       int  `json:"page"`
	TotalPages int  `json:"totalPages"`
	HasPrev    bool `json:"hasPrev"`
	HasNext    bool `json:"hasNext"`
}

// Paginate returns the 1-based page of items. page is clamped to the
// available range; an empty list yields page 1 of 0.
func Paginate[T any](items []T, page, perPage int) Page[T] {
	if perPage <= 0 {
		perPage = RelatedKeywordsPerPage
	}
	total := int(math.Ceil(float64(len(items)) / float64(perPage)))
	if page > total {
		page = total
	}
	if page < 1 {
		page = 1
	}

	p := Page[T]{Page: page, TotalPages: total}
	if total == 0 {
		p.Items = []T{}
		return p
	}

	from := (page - 1) * perPage
	to := from + perPage
	if to > len(items) {
		to = len(items)
	}
	p.Items = items[from:to]
	p.HasPrev = page > 1
	p.HasNext = page < total
	return p
}

// FormatNumber renders a count with thousands separators, e.g. 12,100.
func FormatNumber(n int64) string {
	return humanize.Comma(n)
}

// FormatCurrency renders a USD amount with two decimals, e.g. $1,234.50.
func FormatCurrency(v float64) string {
	if v < 0 {
		return "-$" + humanize.FormatFloat("#,###.##", -v)
	}
	return "$" + humanize.FormatFloat("#,###.##", v)
}

// FormatCompact renders large counts in short form, e.g. 1.2M.
func FormatCompact(n int64) string {
	if n < 1000 && n > -1000 {
		return humanize.Comma(n)
	}
	value, prefix := humanize.ComputeSI(float64(n))
	return humanize.FtoaWithDigits(value, 1) + strings.ToUpper(prefix)
}
