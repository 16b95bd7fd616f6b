package gated

import "errors"

var (
	// ErrInsufficientCredits is reported when InsufficientError is in effect.
	ErrInsufficientCredits = errors.New("insufficient credits")

	// ErrChargeFailed means the deduction after a successful fetch did not go through.
	ErrChargeFailed = errors.New("failed to process credits")

	// ErrFetchTimeout is returned when the fetches outlive Config.FetchTimeout.
	ErrFetchTimeout = errors.New("request timed out")
)

// userMessages are the view texts for the controller's own errors.
var userMessages = map[error]string{
	ErrInsufficientCredits: "Insufficient credits",
	ErrChargeFailed:        "Failed to process credits",
	ErrFetchTimeout:        "The request timed out. Please try again.",
}

// DefaultDescribe turns an error into the short text shown to the user.
func DefaultDescribe(err error) string {
	if err == nil {
		return ""
	}
	for target, msg := range userMessages {
		if errors.Is(err, target) {
			return msg
		}
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return "Failed to fetch data"
}
