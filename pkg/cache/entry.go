package cache

import "time"

// Entry is a cached function response.
type Entry struct {
	// Data is the raw JSON body.
	Data []byte `json:"data"`

	StatusCode int       `json:"status_code"`
	Expires    time.Time `json:"expires"`
	CachedAt   time.Time `json:"cached_at"`
}

// IsExpired returns true if the entry has expired.
func (e *Entry) IsExpired() bool {
	return time.Now().After(e.Expires)
}

// TTL returns the time until expiration, or 0 if already expired.
func (e *Entry) TTL() time.Duration {
	ttl := time.Until(e.Expires)
	if ttl < 0 {
		return 0
	}
	return ttl
}
