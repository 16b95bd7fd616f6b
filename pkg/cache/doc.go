// Package cache stores backend function responses in Redis so that repeated
// lookups for the same keyword, location and language do not hit the
// upstream data provider again while the provider's answer is still fresh.
//
// # Basic Usage
//
//	manager := cache.NewManager(redisClient)
//
//	key := cache.Key{
//		Function: "keyword-overview",
//		Params:   map[string]string{"keyword": "seo tools", "location": "2840"},
//	}
//
//	entry, err := manager.Get(ctx, key)
//	if errors.Is(err, cache.ErrCacheMiss) {
//		// call the function, then:
//		entry, _ = cache.ResponseToEntry(resp)
//		_ = manager.Set(ctx, key, entry)
//	}
//
// # Freshness
//
// Entry lifetime comes from Cache-Control max-age, then Expires, then DefaultTTL.
// Responses marked no-store are never cached.
//
// # Metrics
//
//   - seo_cache_hits_total{layer="redis"}
//   - seo_cache_misses_total
//   - seo_cache_size_bytes{layer="redis"}
//   - seo_cache_errors_total{operation}
package cache
