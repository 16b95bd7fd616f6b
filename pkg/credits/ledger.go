package credits

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

var (
	// ErrNoUser is returned when a ledger operation has no user id.
	ErrNoUser = errors.New("user id is required")

	// ErrInvalidCost is returned for non-positive costs and grants.
	ErrInvalidCost = errors.New("cost must be positive")
)

// Prometheus metrics for credit accounting.
var (
	creditsDeductedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "seo_credits_deducted_total",
		Help: "Total credits deducted by label",
	}, []string{"label"})

	creditsRefundedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "seo_credits_refunded_total",
		Help: "Total credits refunded by label",
	}, []string{"label"})

	creditsInsufficientTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "seo_credits_insufficient_total",
		Help: "Total credit checks or deductions rejected for insufficient balance",
	}, []string{"operation"})

	creditsErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "seo_credits_errors_total",
		Help: "Total credit ledger errors by operation",
	}, []string{"operation"})
)

// deductScript decrements the balance only if it covers the cost and records
// the deduction in the same step. Returns -1 when the balance is too low.
//
// KEYS[1] balance, KEYS[2] log, KEYS[3] last deduction
// ARGV[1] cost, ARGV[2] log entry, ARGV[3] history limit, ARGV[4] unix time
var deductScript = redis.NewScript(`
local balance = tonumber(redis.call('GET', KEYS[1]) or '0')
local cost = tonumber(ARGV[1])
if balance < cost then
	return -1
end
local remaining = redis.call('DECRBY', KEYS[1], cost)
redis.call('LPUSH', KEYS[2], ARGV[2])
redis.call('LTRIM', KEYS[2], 0, tonumber(ARGV[3]) - 1)
redis.call('SET', KEYS[3], ARGV[4])
return remaining
`)

// Ledger stores credit balances in Redis.
type Ledger struct {
	redis  *redis.Client
	logger zerolog.Logger
}

// NewLedger creates a Redis-backed credit ledger.
func NewLedger(redisClient *redis.Client, logger zerolog.Logger) *Ledger {
	return &Ledger{
		redis:  redisClient,
		logger: logger,
	}
}

// GetBalance returns the user's current balance. Unknown users have zero credits.
func (l *Ledger) GetBalance(ctx context.Context, userID string) (*Balance, error) {
	if userID == "" {
		return nil, ErrNoUser
	}

	remaining, err := l.redis.Get(ctx, balanceKey(userID)).Int64()
	if err != nil && err != redis.Nil {
		creditsErrorsTotal.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("get balance: %w", err)
	}

	lastUnix, err := l.redis.Get(ctx, lastDeductionKey(userID)).Int64()
	if err != nil && err != redis.Nil {
		creditsErrorsTotal.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("get last deduction: %w", err)
	}

	b := &Balance{UserID: userID, Remaining: remaining}
	if lastUnix > 0 {
		b.LastDeduction = time.Unix(lastUnix, 0)
	}
	b.UpdateLow()
	return b, nil
}

// Grant adds credits to a user's balance and returns the new balance.
func (l *Ledger) Grant(ctx context.Context, userID string, amount int) (int64, error) {
	if userID == "" {
		return 0, ErrNoUser
	}
	if amount <= 0 {
		return 0, ErrInvalidCost
	}

	remaining, err := l.redis.IncrBy(ctx, balanceKey(userID), int64(amount)).Result()
	if err != nil {
		creditsErrorsTotal.WithLabelValues("grant").Inc()
		return 0, fmt.Errorf("grant credits: %w", err)
	}

	l.logger.Info().
		Str("user_id", userID).
		Int("amount", amount).
		Int64("remaining", remaining).
		Msg("Credits granted")

	return remaining, nil
}

// CheckSufficient reports whether the user can currently afford cost.
// This is advisory: the authoritative check happens again inside Deduct.
func (l *Ledger) CheckSufficient(ctx context.Context, userID string, cost int) (bool, error) {
	if cost <= 0 {
		return false, ErrInvalidCost
	}

	balance, err := l.GetBalance(ctx, userID)
	if err != nil {
		return false, err
	}

	if !balance.Sufficient(cost) {
		creditsInsufficientTotal.WithLabelValues("check").Inc()
		l.logger.Warn().
			Str("user_id", userID).
			Int("cost", cost).
			Int64("remaining", balance.Remaining).
			Msg("Insufficient credits")
		return false, nil
	}
	return true, nil
}

// Deduct atomically charges cost if the balance covers it.
// Returns false without error when the balance is too low.
func (l *Ledger) Deduct(ctx context.Context, userID string, cost int, label string) (bool, error) {
	if userID == "" {
		return false, ErrNoUser
	}
	if cost <= 0 {
		return false, ErrInvalidCost
	}

	now := time.Now()
	entry, err := json.Marshal(Deduction{
		ID:    uuid.NewString(),
		Label: label,
		Cost:  cost,
		At:    now,
	})
	if err != nil {
		return false, fmt.Errorf("marshal deduction: %w", err)
	}

	keys := []string{balanceKey(userID), logKey(userID), lastDeductionKey(userID)}
	remaining, err := deductScript.Run(ctx, l.redis, keys, cost, entry, HistoryLimit, now.Unix()).Int64()
	if err != nil {
		creditsErrorsTotal.WithLabelValues("deduct").Inc()
		l.logger.Error().Err(err).Str("user_id", userID).Str("label", label).Msg("Credit deduction failed")
		return false, fmt.Errorf("deduct credits: %w", err)
	}

	if remaining < 0 {
		creditsInsufficientTotal.WithLabelValues("deduct").Inc()
		l.logger.Warn().
			Str("user_id", userID).
			Str("label", label).
			Int("cost", cost).
			Msg("Deduction rejected: balance changed since check")
		return false, nil
	}

	creditsDeductedTotal.WithLabelValues(label).Add(float64(cost))

	logEvent := l.logger.Info()
	if remaining < LowBalanceThreshold {
		logEvent = l.logger.Warn().Bool("is_low", true)
	}
	logEvent.
		Str("user_id", userID).
		Str("label", label).
		Int("cost", cost).
		Int64("remaining", remaining).
		Msg("Credits deducted")

	return true, nil
}

// Refund returns cost to the user after a deduction whose result was discarded.
// The deduction stays in the history.
func (l *Ledger) Refund(ctx context.Context, userID string, cost int, label string) error {
	if userID == "" {
		return ErrNoUser
	}
	if cost <= 0 {
		return ErrInvalidCost
	}

	remaining, err := l.redis.IncrBy(ctx, balanceKey(userID), int64(cost)).Result()
	if err != nil {
		creditsErrorsTotal.WithLabelValues("refund").Inc()
		return fmt.Errorf("refund credits: %w", err)
	}

	creditsRefundedTotal.WithLabelValues(label).Add(float64(cost))
	l.logger.Info().
		Str("user_id", userID).
		Str("label", label).
		Int("cost", cost).
		Int64("remaining", remaining).
		Msg("Credits refunded")
	return nil
}

// History returns up to limit most recent deductions, newest first.
func (l *Ledger) History(ctx context.Context, userID string, limit int) ([]Deduction, error) {
	if userID == "" {
		return nil, ErrNoUser
	}
	if limit <= 0 || limit > HistoryLimit {
		limit = HistoryLimit
	}

	raw, err := l.redis.LRange(ctx, logKey(userID), 0, int64(limit-1)).Result()
	if err != nil {
		creditsErrorsTotal.WithLabelValues("history").Inc()
		return nil, fmt.Errorf("read history: %w", err)
	}

	out := make([]Deduction, 0, len(raw))
	for _, item := range raw {
		var d Deduction
		if err := json.Unmarshal([]byte(item), &d); err != nil {
			l.logger.Warn().Err(err).Str("user_id", userID).Msg("Skipping malformed deduction entry")
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

// Account binds the ledger to one user.
func (l *Ledger) Account(userID string) *Account {
	return &Account{ledger: l, userID: userID}
}

// Account is a single user's view of the ledger. It satisfies gated.Credits.
type Account struct {
	ledger *Ledger
	userID string
}

// UserID returns the bound user id.
func (a *Account) UserID() string {
	return a.userID
}

// CheckSufficient reports whether the user can afford cost.
func (a *Account) CheckSufficient(ctx context.Context, cost int) (bool, error) {
	return a.ledger.CheckSufficient(ctx, a.userID, cost)
}

// Deduct charges cost under label.
func (a *Account) Deduct(ctx context.Context, cost int, label string) (bool, error) {
	return a.ledger.Deduct(ctx, a.userID, cost, label)
}

// Refund returns cost charged under label.
func (a *Account) Refund(ctx context.Context, cost int, label string) error {
	return a.ledger.Refund(ctx, a.userID, cost, label)
}
