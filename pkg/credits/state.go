// Package credits implements the per-user credit balance that gates
// expensive lookups. Balances live in Redis so that every gateway replica
// sees the same counter, and deductions are applied with an atomic
// check-and-decrement script.
package credits

import (
	"fmt"
	"time"
)

// Redis key layout. %s is the user id.
const (
	keyBalanceFmt       = "seo:credits:%s:balance"
	keyLogFmt           = "seo:credits:%s:log"
	keyLastDeductionFmt = "seo:credits:%s:last_deduction"
)

const (
	// LowBalanceThreshold marks a balance as low; callers may nudge the user to top up.
	LowBalanceThreshold = 100

	// HistoryLimit is how many deduction entries are kept per user.
	HistoryLimit = 200
)

// Balance is a snapshot of one user's credits.
type Balance struct {
	UserID string `json:"user_id"`

	// Remaining is the number of credits left. Never negative.
	Remaining int64 `json:"remaining"`

	// LastDeduction is zero when the user has never been charged.
	LastDeduction time.Time `json:"last_deduction"`

	// IsLow is true when Remaining < LowBalanceThreshold.
	IsLow bool `json:"is_low"`
}

// Sufficient reports whether the balance covers cost.
func (b *Balance) Sufficient(cost int) bool {
	return b.Remaining >= int64(cost)
}

// UpdateLow recomputes IsLow from Remaining.
func (b *Balance) UpdateLow() {
	b.IsLow = b.Remaining < LowBalanceThreshold
}

// Deduction is one entry of a user's credit history.
type Deduction struct {
	ID    string    `json:"id"`
	Label string    `json:"label"`
	Cost  int       `json:"cost"`
	At    time.Time `json:"at"`
}

func balanceKey(userID string) string       { return fmt.Sprintf(keyBalanceFmt, userID) }
func logKey(userID string) string           { return fmt.Sprintf(keyLogFmt, userID) }
func lastDeductionKey(userID string) string { return fmt.Sprintf(keyLastDeductionFmt, userID) }
