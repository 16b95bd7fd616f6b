package gated

import (
	"context"

	"github.com/Sternrassler/seo-insights/pkg/query"
)

// Credits is the balance a controller charges.
// credits.Account implements it for a Redis-backed ledger.
type Credits interface {
	CheckSufficient(ctx context.Context, cost int) (bool, error)
	Deduct(ctx context.Context, cost int, label string) (bool, error)

	// Refund returns a deduction whose result was never shown.
	Refund(ctx context.Context, cost int, label string) error
}

// Task fills part of a page payload.
type Task func(ctx context.Context) error

// Page describes one gated results page.
type Page[T any] struct {
	// Name identifies the page in logs and metrics.
	Name string

	// Label is recorded with each deduction, e.g. "Keyword Overview".
	Label string

	// Cost in credits. Zero skips both check and deduction.
	Cost int

	// Required parameters; a run with any of them empty is skipped.
	Required []string

	// Suggestions are shown next to a fetch failure.
	Suggestions []string

	// Plan returns an empty payload and the tasks that fill it.
	// Tasks run concurrently and must write disjoint fields.
	Plan func(params query.Params) (*T, []Task, error)
}
