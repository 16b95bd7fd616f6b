package gated

import "github.com/Sternrassler/seo-insights/pkg/query"

// State is the view state of one page. Data is nil while loading or on error.
type State[T any] struct {
	IsLoading       bool         `json:"isLoading"`
	Error           string       `json:"error,omitempty"`
	Suggestions     []string     `json:"suggestions,omitempty"`
	Data            *T           `json:"data"`
	InitialLoadDone bool         `json:"initialLoadDone"`
	Params          query.Params `json:"params"`
	Generation      uint64       `json:"generation"`
}

// Outcome is how a run ended.
type Outcome string

const (
	// OutcomeSkipped: a required parameter was missing; nothing was fetched.
	OutcomeSkipped Outcome = "skipped"
	// OutcomeUnchanged: Navigate saw the same parameters as the current run.
	OutcomeUnchanged Outcome = "unchanged"
	// OutcomeInvalid: the parameters could not be turned into fetches.
	OutcomeInvalid Outcome = "invalid"
	// OutcomeCheckFailed: the credit check itself errored.
	OutcomeCheckFailed Outcome = "check_failed"
	// OutcomeInsufficient: the balance does not cover the page cost.
	OutcomeInsufficient Outcome = "insufficient"
	// OutcomeFetchFailed: at least one fetch failed; nothing was charged.
	OutcomeFetchFailed Outcome = "fetch_failed"
	// OutcomeChargeFailed: fetches succeeded but the deduction did not.
	OutcomeChargeFailed Outcome = "charge_failed"
	// OutcomeSucceeded: data committed and credits deducted.
	OutcomeSucceeded Outcome = "succeeded"
	// OutcomeSuperseded: a newer run started before this one finished.
	// Nothing was shown and any charge was refunded.
	OutcomeSuperseded Outcome = "superseded"
)

// InsufficientPolicy controls what the user sees when credits run short.
type InsufficientPolicy int

const (
	// InsufficientSilent stops loading without an error message.
	InsufficientSilent InsufficientPolicy = iota
	// InsufficientError shows ErrInsufficientCredits.
	InsufficientError
)

// String implements fmt.Stringer.
func (p InsufficientPolicy) String() string {
	switch p {
	case InsufficientSilent:
		return "silent"
	case InsufficientError:
		return "error"
	default:
		return "unknown"
	}
}

// ParseInsufficientPolicy maps "silent" or "error" to a policy.
func ParseInsufficientPolicy(s string) (InsufficientPolicy, bool) {
	switch s {
	case "", "silent":
		return InsufficientSilent, true
	case "error":
		return InsufficientError, true
	default:
		return InsufficientSilent, false
	}
}
