package model

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Pagination defaults
const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// MatchKind is how a filter value is compared with a column.
type MatchKind int

const (
	// MatchContains is a case-insensitive substring match.
	MatchContains MatchKind = iota
	// MatchEquals is an exact match.
	MatchEquals
)

// FilterableFields maps the query keys accepted by the list endpoint to their match kind.
// Keys equal the column names.
var FilterableFields = map[string]MatchKind{
	"first_name":       MatchContains,
	"father_last_name": MatchContains,
	"mother_last_name": MatchContains,
	"gender":           MatchEquals,
}

// Condition is one field filter.
type Condition struct {
	Field string
	Value string
	Kind  MatchKind
}

// ListFilter is a validated list request.
type ListFilter struct {
	Page       int
	Limit      int
	Conditions []Condition // sorted by field
}

func (f ListFilter) Offset() int {
	return (f.Page - 1) * f.Limit
}

// CacheKey is stable for equal filters.
func (f ListFilter) CacheKey() string {
	var b strings.Builder
	fmt.Fprintf(&b, "p=%d&l=%d", f.Page, f.Limit)
	for _, c := range f.Conditions {
		fmt.Fprintf(&b, "&%s=%q", c.Field, c.Value)
	}
	sum := sha1.Sum([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// ParseListQuery builds a ListFilter from the raw page, limit and query parameters.
// page and limit fall back to defaults when missing or not numbers; limit is clamped to 1..MaxLimit.
func ParseListQuery(page, limit, query string) (ListFilter, error) {
	f := ListFilter{
		Page:  parsePositive(page, DefaultPage),
		Limit: parsePositive(limit, DefaultLimit),
	}
	if f.Limit > MaxLimit {
		f.Limit = MaxLimit
	}

	conds, err := ParseFilterQuery(query)
	if err != nil {
		return ListFilter{}, err
	}
	f.Conditions = conds
	return f, nil
}

func parsePositive(s string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return def
	}
	return n
}

// ParseFilterQuery decodes the JSON field → value map of the query parameter.
// Unknown fields, non-string values and invalid genders are rejected; empty values are ignored.
func ParseFilterQuery(raw string) ([]Condition, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "{}" || raw == "null" {
		return nil, nil
	}

	var m map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, fmt.Errorf("%w: query must be a JSON object", ErrInvalidFilter)
	}

	conds := make([]Condition, 0, len(m))
	for field, v := range m {
		kind, ok := FilterableFields[field]
		if !ok {
			return nil, fmt.Errorf("%w: unknown field %q", ErrInvalidFilter, field)
		}
		if v == nil {
			continue
		}
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("%w: value of %q must be a string", ErrInvalidFilter, field)
		}
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if field == "gender" {
			s = strings.ToLower(s)
			if s != GenderMale && s != GenderWoman && s != GenderOther {
				return nil, fmt.Errorf("%w: gender must be one of m, w, o", ErrInvalidFilter)
			}
		}
		conds = append(conds, Condition{Field: field, Value: s, Kind: kind})
	}

	sort.Slice(conds, func(i, j int) bool { return conds[i].Field < conds[j].Field })
	return conds, nil
}
