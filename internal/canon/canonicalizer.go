package canon

import (
	"fmt"
	"slices"
	"strings"
)

// Field names that carry alias tables.
const (
	FieldScheduledType = "scheduled_type"
	FieldDetentionType = "detention_type"
	FieldJobType       = "job_type"
	FieldSystem        = "system"
	FieldSubsystem     = "subsystem"
	FieldPiece         = "piece"
)

// Cable is the label every cable-like piece collapses to.
const Cable = "Cable"

// AliasTables maps a field name to its alias table (value -> canonical value).
// Keys and values may be written in any case or accentuation; they are
// normalized when a Canonicalizer is built.
type AliasTables map[string]map[string]string

// Canonicalizer applies Normalize followed by alias resolution. It is
// immutable after construction and safe for concurrent use.
type Canonicalizer struct {
	tables map[string]map[string]string
}

// New validates and compiles the alias tables. Chains (a -> b, b -> c) are
// collapsed so every lookup lands on a terminal value in one step, which
// makes Field idempotent. Tables with cycles, or with two keys that
// normalize to the same string but point at different targets, are
// rejected.
func New(tables AliasTables) (*Canonicalizer, error) {
	c := &Canonicalizer{tables: make(map[string]map[string]string, len(tables))}
	for field, raw := range tables {
		table := make(map[string]string, len(raw))
		origin := make(map[string]string, len(raw))
		keys := make([]string, 0, len(raw))
		for k := range raw {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			nk, nv := Normalize(k), Normalize(raw[k])
			if prev, ok := table[nk]; ok && prev != nv {
				return nil, fmt.Errorf("alias table %s: %q and %q both normalize to %q but map to %q and %q",
					field, origin[nk], k, nk, prev, nv)
			}
			table[nk] = nv
			origin[nk] = k
		}

		resolved := make(map[string]string, len(table))
		for k := range table {
			v, err := resolve(table, k)
			if err != nil {
				return nil, fmt.Errorf("alias table %s: %w", field, err)
			}
			if v != k {
				resolved[k] = v
			}
		}
		c.tables[field] = resolved
	}

	if v, ok := c.tables[FieldPiece][Cable]; ok {
		return nil, fmt.Errorf("alias table %s: %q must stay canonical, found mapping to %q", FieldPiece, Cable, v)
	}
	return c, nil
}

func resolve(table map[string]string, k string) (string, error) {
	seen := map[string]bool{k: true}
	cur := k
	for {
		next, ok := table[cur]
		if !ok || next == cur {
			return cur, nil
		}
		if seen[next] {
			return "", fmt.Errorf("alias cycle through %q", k)
		}
		seen[next] = true
		cur = next
	}
}

// MustNew is New for tables known to be valid at compile time.
func MustNew(tables AliasTables) *Canonicalizer {
	c, err := New(tables)
	if err != nil {
		panic(err)
	}
	return c
}

// Text canonicalizes a value with no alias table.
func (c *Canonicalizer) Text(s string) string {
	return Normalize(s)
}

// Field canonicalizes value as the named field: Normalize, then one lookup
// in the field's alias table. Any field whose name contains "piece" also
// folds cable-like values onto Cable.
func (c *Canonicalizer) Field(field, value string) string {
	v := Normalize(value)
	if mapped, ok := c.tables[field][v]; ok {
		v = mapped
	}
	if strings.Contains(field, FieldPiece) && strings.Contains(strings.ToLower(v), "cable") {
		v = Cable
	}
	return v
}

// FieldPtr canonicalizes an optional value, preserving nil.
func (c *Canonicalizer) FieldPtr(field string, value *string) *string {
	if value == nil {
		return nil
	}
	v := c.Field(field, *value)
	return &v
}

// TextPtr canonicalizes an optional free-text value, preserving nil.
func (c *Canonicalizer) TextPtr(value *string) *string {
	if value == nil {
		return nil
	}
	v := c.Text(*value)
	return &v
}

// Fields returns the names of the fields with an alias table.
func (c *Canonicalizer) Fields() []string {
	names := make([]string, 0, len(c.tables))
	for k := range c.tables {
		names = append(names, k)
	}
	slices.Sort(names)
	return names
}

// Canonicalizable is implemented by every structured record. Canonicalize
// rewrites all string fields in place, recursing into nested values.
type Canonicalizable interface {
	Canonicalize(c *Canonicalizer)
}

// Apply runs the canonicalization pass over each value.
func Apply(c *Canonicalizer, values ...Canonicalizable) {
	for _, v := range values {
		v.Canonicalize(c)
	}
}
