package cache

import (
	"fmt"
	"sort"
	"strings"
)

// Key identifies one cached function response.
type Key struct {
	// Function is the backend function name (e.g. "keyword-overview").
	Function string

	// Params are the request fields that determine the answer.
	Params map[string]string

	// UserID scopes private responses (e.g. Search Console sites). Empty for shared data.
	UserID string
}

// String generates a deterministic cache key.
// Format: seo:cache:function:param1=val1:param2=val2:user=abc
func (k Key) String() string {
	parts := []string{"seo", "cache"}

	if fn := strings.Trim(k.Function, "/"); fn != "" {
		parts = append(parts, fn)
	}

	names := make([]string, 0, len(k.Params))
	for name := range k.Params {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s=%s", name, normalize(k.Params[name])))
	}

	if k.UserID != "" {
		parts = append(parts, "user="+k.UserID)
	}

	return strings.Join(parts, ":")
}

// normalize folds case and surrounding space so "SEO Tools " and "seo tools" share an entry.
func normalize(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}
