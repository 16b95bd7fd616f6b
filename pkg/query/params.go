// Package query parses and builds the query strings that drive the results
// pages (keyword overview, people also ask, traffic share, clustering).
//
// Parameter order is preserved so that a parsed query re-encodes to the same
// string, and list-valued parameters such as "keywords" travel as a single
// JSON-encoded array.
package query

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Parameter names shared by the search forms and the results pages.
const (
	ParamKeyword           = "keyword"
	ParamKeywords          = "keywords"
	ParamLocation          = "location"
	ParamLanguage          = "language"
	ParamIncludeSubdomains = "includeSubdomains"
	ParamType              = "type"
	ParamUser              = "user"
)

var (
	// ErrInvalidList is returned when a list-valued parameter is not a JSON array of strings.
	ErrInvalidList = errors.New("invalid list parameter")
)

// Params is an ordered mapping from parameter name to string value.
// The zero value is an empty, usable parameter set.
type Params struct {
	names  []string
	values map[string]string
}

// New builds Params from alternating name/value pairs.
// A trailing name without a value is ignored.
func New(pairs ...string) Params {
	var p Params
	for i := 0; i+1 < len(pairs); i += 2 {
		p = p.With(pairs[i], pairs[i+1])
	}
	return p
}

// Parse decodes a URL search string ("a=1&b=2", with or without a leading "?").
// When a name repeats, the first value wins, matching URLSearchParams.get.
func Parse(rawQuery string) (Params, error) {
	rawQuery = strings.TrimPrefix(rawQuery, "?")

	var p Params
	for _, part := range strings.Split(rawQuery, "&") {
		if part == "" {
			continue
		}
		name, value, _ := strings.Cut(part, "=")

		name, err := url.QueryUnescape(name)
		if err != nil {
			return Params{}, fmt.Errorf("decode parameter name %q: %w", name, err)
		}
		value, err = url.QueryUnescape(value)
		if err != nil {
			return Params{}, fmt.Errorf("decode parameter %q: %w", name, err)
		}

		if p.Has(name) {
			continue
		}
		p = p.With(name, value)
	}
	return p, nil
}

// FromValues converts url.Values into Params, ordering names alphabetically
// since url.Values carries no order of its own.
func FromValues(values url.Values) Params {
	var p Params
	for _, name := range sortedKeys(values) {
		p = p.With(name, values.Get(name))
	}
	return p
}

// With returns a copy of p with name set to value. Existing names keep their position.
func (p Params) With(name, value string) Params {
	out := Params{
		names:  make([]string, len(p.names), len(p.names)+1),
		values: make(map[string]string, len(p.values)+1),
	}
	copy(out.names, p.names)
	for k, v := range p.values {
		out.values[k] = v
	}
	if _, ok := out.values[name]; !ok {
		out.names = append(out.names, name)
	}
	out.values[name] = value
	return out
}

// Get returns the value of name, or "" when absent.
func (p Params) Get(name string) string {
	return p.values[name]
}

// Has reports whether name is present, even with an empty value.
func (p Params) Has(name string) bool {
	_, ok := p.values[name]
	return ok
}

// Names returns parameter names in their original order.
func (p Params) Names() []string {
	out := make([]string, len(p.names))
	copy(out, p.names)
	return out
}

// Len returns the number of parameters.
func (p Params) Len() int {
	return len(p.names)
}

// Missing returns the required names whose value is empty after trimming.
func (p Params) Missing(required ...string) []string {
	var missing []string
	for _, name := range required {
		if strings.TrimSpace(p.Get(name)) == "" {
			missing = append(missing, name)
		}
	}
	return missing
}

// Keywords decodes a JSON-encoded list of strings stored under name.
// An absent parameter yields an empty list.
func (p Params) Keywords(name string) ([]string, error) {
	raw := p.Get(name)
	if raw == "" {
		return nil, nil
	}

	var list []string
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidList, name, err)
	}
	return list, nil
}

// Bool reads a "true"/"false" parameter. Anything other than "true" is false.
func (p Params) Bool(name string) bool {
	return strings.EqualFold(p.Get(name), "true")
}

// Equal reports whether both parameter sets hold the same name/value pairs.
// Order is ignored: two navigations to the same search are the same identity.
func (p Params) Equal(other Params) bool {
	if len(p.values) != len(other.values) {
		return false
	}
	for k, v := range p.values {
		if ov, ok := other.values[k]; !ok || ov != v {
			return false
		}
	}
	return true
}

// Only returns a copy holding just the given names, in the given order.
// Absent names are skipped.
func (p Params) Only(names ...string) Params {
	var out Params
	for _, name := range names {
		if p.Has(name) {
			out = out.With(name, p.Get(name))
		}
	}
	return out
}

// Encode renders the parameters as a URL search string in insertion order.
func (p Params) Encode() string {
	var b strings.Builder
	for i, name := range p.names {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(name))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.values[name]))
	}
	return b.String()
}

// String implements fmt.Stringer.
func (p Params) String() string {
	return p.Encode()
}

// MarshalJSON renders the parameters as a JSON object.
func (p Params) MarshalJSON() ([]byte, error) {
	if p.values == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(p.values)
}
