package batch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Config holds batch fetcher configuration.
type Config struct {
	// MaxConcurrency is the maximum number of parallel backend calls.
	MaxConcurrency int
	// Timeout per keyword fetch.
	Timeout time.Duration
	// ProgressEvery controls how often progress is logged (0 disables).
	ProgressEvery int
}

// DefaultConfig returns safe defaults for the edge function backend.
func DefaultConfig() Config {
	return Config{
		MaxConcurrency: 5,
		Timeout:        30 * time.Second,
		ProgressEvery:  25,
	}
}

// KeywordFetcher fetches the data for a single keyword.
type KeywordFetcher[T any] interface {
	FetchKeyword(ctx context.Context, keyword string) (T, error)
}

// FetcherFunc adapts a function to KeywordFetcher.
type FetcherFunc[T any] func(ctx context.Context, keyword string) (T, error)

// FetchKeyword calls f.
func (f FetcherFunc[T]) FetchKeyword(ctx context.Context, keyword string) (T, error) {
	return f(ctx, keyword)
}

// Result is the outcome for one keyword.
type Result[T any] struct {
	Index   int
	Keyword string
	Value   T
	Err     error
}

// Fetcher runs a KeywordFetcher over many keywords with a worker pool.
type Fetcher[T any] struct {
	fetcher KeywordFetcher[T]
	config  Config
}

// NewFetcher creates a new batch fetcher.
func NewFetcher[T any](fetcher KeywordFetcher[T], config Config) *Fetcher[T] {
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = 5
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}

	return &Fetcher[T]{
		fetcher: fetcher,
		config:  config,
	}
}

// FetchAll fetches every keyword and returns the results in input order.
// When any keyword fails the partial results are returned along with an
// error wrapping the first failure in input order.
func (f *Fetcher[T]) FetchAll(ctx context.Context, keywords []string) ([]Result[T], error) {
	start := time.Now()
	results := make([]Result[T], len(keywords))
	if len(keywords) == 0 {
		return results, nil
	}

	workers := f.config.MaxConcurrency
	if workers > len(keywords) {
		workers = len(keywords)
	}

	log.Debug().
		Int("keywords", len(keywords)).
		Int("workers", workers).
		Msg("Starting parallel keyword fetch")

	queue := make(chan int, len(keywords))
	for i := range keywords {
		queue <- i
	}
	close(queue)

	done := make(chan Result[T], len(keywords))

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go f.worker(ctx, keywords, queue, done, &wg, w)
	}

	go func() {
		wg.Wait()
		close(done)
	}()

	fetched := 0
	seen := make([]bool, len(keywords))
	for r := range done {
		results[r.Index] = r
		seen[r.Index] = true
		fetched++

		if f.config.ProgressEvery > 0 && fetched%f.config.ProgressEvery == 0 {
			log.Info().
				Int("fetched", fetched).
				Int("total", len(keywords)).
				Float64("progress_pct", float64(fetched)/float64(len(keywords))*100).
				Msg("Keyword fetch progress")
		}
	}

	// Keywords never picked up because the context ended.
	if fetched < len(keywords) {
		for i := range results {
			if !seen[i] {
				results[i] = Result[T]{Index: i, Keyword: keywords[i], Err: ctx.Err()}
			}
		}
	}

	failed := 0
	var firstErr error
	for _, r := range results {
		if r.Err != nil {
			failed++
			if firstErr == nil {
				firstErr = fmt.Errorf("keyword %q: %w", r.Keyword, r.Err)
			}
		}
	}

	log.Info().
		Int("keywords", len(keywords)).
		Int("failed", failed).
		Dur("duration", time.Since(start)).
		Msg("Keyword fetch complete")

	if firstErr != nil {
		return results, fmt.Errorf("batch fetch (%d/%d keywords failed): %w", failed, len(keywords), firstErr)
	}
	return results, nil
}

// worker processes keyword indexes from the queue.
func (f *Fetcher[T]) worker(ctx context.Context, keywords []string, queue <-chan int, done chan<- Result[T], wg *sync.WaitGroup, workerID int) {
	defer wg.Done()
	processed := 0

	for i := range queue {
		if ctx.Err() != nil {
			log.Debug().
				Int("worker_id", workerID).
				Int("processed", processed).
				Msg("Worker stopping (context cancelled)")
			return
		}

		keywordCtx, cancel := context.WithTimeout(ctx, f.config.Timeout)
		value, err := f.fetcher.FetchKeyword(keywordCtx, keywords[i])
		cancel()

		if err != nil {
			log.Warn().
				Err(err).
				Int("worker_id", workerID).
				Str("keyword", keywords[i]).
				Msg("Keyword fetch failed")
		}

		// done is buffered for every keyword, so this never blocks.
		done <- Result[T]{Index: i, Keyword: keywords[i], Value: value, Err: err}
		processed++
	}

	if processed > 0 {
		log.Debug().
			Int("worker_id", workerID).
			Int("processed", processed).
			Msg("Worker completed")
	}
}
