package gated

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Sternrassler/seo-insights/pkg/logging"
	"github.com/Sternrassler/seo-insights/pkg/query"
	"github.com/rs/zerolog"
)

// Config holds controller configuration.
type Config struct {
	// FetchTimeout bounds the concurrent fetch phase. Zero means no bound.
	FetchTimeout time.Duration

	// InsufficientPolicy decides whether running out of credits is shown.
	InsufficientPolicy InsufficientPolicy

	// Describe renders fetch errors for the view. Defaults to err.Error().
	// The controller's own sentinel errors always use fixed texts.
	Describe func(error) string

	// Logger defaults to the "gated" component logger.
	Logger *zerolog.Logger
}

// DefaultConfig returns the default controller configuration.
func DefaultConfig() Config {
	return Config{
		FetchTimeout:       60 * time.Second,
		InsufficientPolicy: InsufficientSilent,
	}
}

// Controller runs the gated fetch lifecycle for one page and owns its view state.
// It is safe for concurrent use.
type Controller[T any] struct {
	page    Page[T]
	credits Credits
	config  Config
	logger  zerolog.Logger

	mu         sync.Mutex
	state      State[T]
	generation uint64
	observers  []func(State[T])
}

// New creates a controller. credits may be nil only for pages with zero cost.
func New[T any](page Page[T], credits Credits, cfg Config) *Controller[T] {
	if page.Plan == nil {
		panic("gated: page " + page.Name + " has no Plan")
	}
	if page.Cost > 0 && credits == nil {
		panic("gated: page " + page.Name + " has a cost but no credits")
	}

	logger := logging.NewLogger("gated")
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	return &Controller[T]{
		page:    page,
		credits: credits,
		config:  cfg,
		logger:  logger.With().Str("page", page.Name).Logger(),
	}
}

// OnChange registers fn to receive every state change.
// fn is called outside the controller lock.
func (c *Controller[T]) OnChange(fn func(State[T])) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, fn)
}

// Snapshot returns a copy of the current view state.
func (c *Controller[T]) Snapshot() State[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Page returns the page definition.
func (c *Controller[T]) Page() Page[T] {
	return c.page
}

// Navigate runs the lifecycle when params differ from the current ones.
// The first call always runs.
func (c *Controller[T]) Navigate(ctx context.Context, params query.Params) Outcome {
	c.mu.Lock()
	same := c.generation > 0 && c.state.Params.Equal(params)
	c.mu.Unlock()

	if same {
		return OutcomeUnchanged
	}
	return c.Run(ctx, params)
}

// Retry runs the lifecycle again with the current parameters.
func (c *Controller[T]) Retry(ctx context.Context) Outcome {
	return c.Run(ctx, c.Snapshot().Params)
}

// Run executes one full lifecycle for params and returns how it ended.
// It blocks until the run is committed or discarded.
func (c *Controller[T]) Run(ctx context.Context, params query.Params) (outcome Outcome) {
	start := time.Now()
	defer func() {
		runsTotal.WithLabelValues(c.page.Name, string(outcome)).Inc()
		runDuration.WithLabelValues(c.page.Name).Observe(time.Since(start).Seconds())
	}()

	if missing := params.Missing(c.page.Required...); len(missing) > 0 {
		gen := c.update(func(s *State[T], gen uint64) {
			*s = State[T]{Params: params, Generation: gen}
		})
		c.logger.Debug().
			Strs("missing", missing).
			Uint64("generation", gen).
			Msg("Required parameters missing, skipping fetch")
		return OutcomeSkipped
	}

	gen := c.update(func(s *State[T], gen uint64) {
		*s = State[T]{IsLoading: true, Params: params, Generation: gen}
	})
	logger := c.logger.With().Uint64("generation", gen).Logger()

	data, tasks, err := c.page.Plan(params)
	if err != nil {
		logger.Warn().Err(err).Msg("Invalid parameters")
		return c.fail(gen, OutcomeInvalid, err, nil)
	}

	if c.page.Cost > 0 {
		ok, err := c.credits.CheckSufficient(ctx, c.page.Cost)
		if err != nil {
			logger.Error().Err(err).Int("cost", c.page.Cost).Msg("Credit check failed")
			return c.fail(gen, OutcomeCheckFailed, err, nil)
		}
		if !ok {
			logger.Warn().Int("cost", c.page.Cost).Msg("Insufficient credits")
			if c.config.InsufficientPolicy == InsufficientError {
				return c.fail(gen, OutcomeInsufficient, ErrInsufficientCredits, nil)
			}
			return c.commit(gen, OutcomeInsufficient, func(s *State[T]) {
				s.IsLoading = false
			})
		}
	}

	if err := c.fetch(ctx, tasks); err != nil {
		logger.Warn().Err(err).Int("tasks", len(tasks)).Msg("Fetch failed")
		return c.fail(gen, OutcomeFetchFailed, err, c.page.Suggestions)
	}

	// A superseded run is never shown and keeps no charge. One superseded
	// while Deduct is in flight is refunded after the failed commit.
	if !c.current(gen) {
		logger.Debug().Msg("Run superseded before deduction")
		return OutcomeSuperseded
	}

	if c.page.Cost > 0 {
		ok, err := c.credits.Deduct(ctx, c.page.Cost, c.page.Label)
		if err != nil || !ok {
			logger.Error().
				Err(err).
				Int("cost", c.page.Cost).
				Str("label", c.page.Label).
				Msg("Credit deduction failed, discarding data")
			return c.fail(gen, OutcomeChargeFailed, ErrChargeFailed, nil)
		}
	}

	outcome = c.commit(gen, OutcomeSucceeded, func(s *State[T]) {
		s.IsLoading = false
		s.Data = data
		s.InitialLoadDone = true
	})
	if outcome == OutcomeSuperseded {
		c.refund(ctx, logger)
		return outcome
	}
	logger.Info().
		Int("cost", c.page.Cost).
		Str("label", c.page.Label).
		Dur("duration", time.Since(start)).
		Msg("Run completed")
	return outcome
}

// refund gives back the charge of a run superseded between deduction and commit.
func (c *Controller[T]) refund(ctx context.Context, logger zerolog.Logger) {
	if c.page.Cost <= 0 {
		return
	}
	if err := c.credits.Refund(context.WithoutCancel(ctx), c.page.Cost, c.page.Label); err != nil {
		refundsTotal.WithLabelValues(c.page.Name, "error").Inc()
		logger.Error().
			Err(err).
			Int("cost", c.page.Cost).
			Str("label", c.page.Label).
			Msg("Refund of superseded run failed")
		return
	}
	refundsTotal.WithLabelValues(c.page.Name, "ok").Inc()
	logger.Warn().
		Int("cost", c.page.Cost).
		Str("label", c.page.Label).
		Msg("Run superseded after deduction, credits refunded")
}

// fetch runs the tasks, bounded by FetchTimeout.
func (c *Controller[T]) fetch(ctx context.Context, tasks []Task) error {
	if c.config.FetchTimeout <= 0 {
		return Join(ctx, tasks...)
	}

	fetchCtx, cancel := context.WithTimeout(ctx, c.config.FetchTimeout)
	defer cancel()

	err := Join(fetchCtx, tasks...)
	if err != nil && ctx.Err() == nil && errors.Is(fetchCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w after %s: %w", ErrFetchTimeout, c.config.FetchTimeout, err)
	}
	return err
}

// fail commits a visible error and finishes the run.
func (c *Controller[T]) fail(gen uint64, outcome Outcome, err error, suggestions []string) Outcome {
	msg := c.describe(err)
	return c.commit(gen, outcome, func(s *State[T]) {
		s.IsLoading = false
		s.Data = nil
		s.Error = msg
		s.Suggestions = suggestions
		s.InitialLoadDone = true
	})
}

func (c *Controller[T]) describe(err error) string {
	for target, msg := range userMessages {
		if errors.Is(err, target) {
			return msg
		}
	}
	if c.config.Describe != nil {
		if msg := c.config.Describe(err); msg != "" {
			return msg
		}
	}
	return DefaultDescribe(err)
}

// update starts a new generation, applies fn and notifies observers.
func (c *Controller[T]) update(fn func(s *State[T], gen uint64)) uint64 {
	c.mu.Lock()
	c.generation++
	gen := c.generation
	fn(&c.state, gen)
	snapshot, observers := c.state, c.observers
	c.mu.Unlock()

	notify(observers, snapshot)
	return gen
}

// commit applies fn if gen is still current. Otherwise the run is superseded.
func (c *Controller[T]) commit(gen uint64, outcome Outcome, fn func(s *State[T])) Outcome {
	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		c.logger.Debug().
			Uint64("generation", gen).
			Str("outcome", string(outcome)).
			Msg("Discarding superseded result")
		return OutcomeSuperseded
	}
	fn(&c.state)
	snapshot, observers := c.state, c.observers
	c.mu.Unlock()

	notify(observers, snapshot)
	return outcome
}

func (c *Controller[T]) current(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return gen == c.generation
}

func notify[T any](observers []func(State[T]), s State[T]) {
	for _, fn := range observers {
		fn(s)
	}
}
