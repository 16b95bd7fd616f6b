// Package batch fetches per-keyword data in parallel for multi-keyword pages.
//
// Traffic share reports need one SERP lookup per keyword. Fetcher spreads the
// keywords over a bounded worker pool so a long keyword list does not open an
// unbounded number of backend calls at once.
//
// Example usage:
//
//	f := batch.NewFetcher[seo.SerpItems](serpFetcher, batch.DefaultConfig())
//	results, err := f.FetchAll(ctx, []string{"seo tools", "rank tracker"})
//
// The fetcher:
//   - Deduplicates nothing; results line up with the input slice
//   - Spawns MaxConcurrency workers (default 5)
//   - Applies a per-keyword timeout
//   - Logs progress every ProgressEvery keywords
//   - Returns partial results together with the first error
package batch
