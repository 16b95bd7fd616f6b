package gated

import (
	"errors"
	"fmt"
	"testing"
)

func TestDefaultDescribe(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"charge", ErrChargeFailed, "Failed to process credits"},
		{"wrapped timeout", fmt.Errorf("%w after 1s", ErrFetchTimeout), "The request timed out. Please try again."},
		{"insufficient", ErrInsufficientCredits, "Insufficient credits"},
		{"plain", errors.New("No data for keyword"), "No data for keyword"},
		{"empty text", errors.New(""), "Failed to fetch data"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DefaultDescribe(tt.err); got != tt.want {
				t.Errorf("DefaultDescribe() = %q, want %q", got, tt.want)
			}
		})
	}
}
