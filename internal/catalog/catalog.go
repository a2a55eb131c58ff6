// Package catalog holds the curated reference data of the labeler: the
// closed system/subsystem taxonomy, the known-piece table, the per-field
// alias tables and the piece and component denylists. A default catalog is
// embedded in the binary; operators can layer a YAML file over it.
package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/kalambet/labeler/internal/canon"
	"github.com/kalambet/labeler/internal/record"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// System is one root of the taxonomy with its allowed subsystems.
type System struct {
	Name       string   `yaml:"system" json:"system"`
	Subsystems []string `yaml:"subsystems" json:"subsystems"`
}

type hierarchy struct {
	System     string  `yaml:"system"`
	Subsystem  string  `yaml:"subsystem"`
	Component  string  `yaml:"component"`
	IsCritical bool    `yaml:"is_critical"`
	Detail     *string `yaml:"detail"`
}

type file struct {
	Taxonomy        []System                     `yaml:"taxonomy"`
	ForbiddenPieces []string                     `yaml:"forbidden_pieces"`
	MinorComponents []string                     `yaml:"minor_components"`
	NeverCritical   []string                     `yaml:"never_critical"`
	Aliases         map[string]map[string]string `yaml:"aliases"`
	KnownPieces     map[string]hierarchy         `yaml:"known_pieces"`
}

// Catalog is immutable once built and shared read-only by every worker.
type Catalog struct {
	taxonomy        []System
	forbiddenPieces []string
	minorComponents []string
	neverCritical   []string
	aliases         canon.AliasTables
	canon           *canon.Canonicalizer
	known           map[string]record.ComponentHierarchy
}

var defaultCatalog = sync.OnceValues(func() (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(defaultsYAML, &f); err != nil {
		return nil, fmt.Errorf("parsing embedded catalog: %w", err)
	}
	return build(f)
})

// Default returns the embedded catalog.
func Default() (*Catalog, error) {
	return defaultCatalog()
}

// Load returns the embedded catalog with the YAML file at path layered on
// top. Alias and known-piece entries from the file are merged over the
// defaults; lists and the taxonomy replace the defaults when present. An
// empty path returns Default().
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog %s: %w", path, err)
	}
	return Parse(data)
}

// Parse layers a YAML document over the embedded defaults.
func Parse(data []byte) (*Catalog, error) {
	var base file
	if err := yaml.Unmarshal(defaultsYAML, &base); err != nil {
		return nil, fmt.Errorf("parsing embedded catalog: %w", err)
	}
	var over file
	if err := yaml.Unmarshal(data, &over); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}

	if len(over.Taxonomy) > 0 {
		base.Taxonomy = over.Taxonomy
	}
	if len(over.ForbiddenPieces) > 0 {
		base.ForbiddenPieces = over.ForbiddenPieces
	}
	if len(over.MinorComponents) > 0 {
		base.MinorComponents = over.MinorComponents
	}
	if len(over.NeverCritical) > 0 {
		base.NeverCritical = over.NeverCritical
	}
	for field, table := range over.Aliases {
		if base.Aliases == nil {
			base.Aliases = make(map[string]map[string]string)
		}
		if base.Aliases[field] == nil {
			base.Aliases[field] = make(map[string]string)
		}
		for k, v := range table {
			base.Aliases[field][k] = v
		}
	}
	for k, v := range over.KnownPieces {
		if base.KnownPieces == nil {
			base.KnownPieces = make(map[string]hierarchy)
		}
		base.KnownPieces[k] = v
	}
	return build(base)
}

func build(f file) (*Catalog, error) {
	c, err := canon.New(canon.AliasTables(f.Aliases))
	if err != nil {
		return nil, err
	}

	cat := &Catalog{
		forbiddenPieces: foldAll(f.ForbiddenPieces),
		minorComponents: foldAll(f.MinorComponents),
		neverCritical:   foldAll(f.NeverCritical),
		aliases:         canon.AliasTables(f.Aliases),
		canon:           c,
		known:           make(map[string]record.ComponentHierarchy, len(f.KnownPieces)),
	}
	for _, s := range f.Taxonomy {
		sys := System{Name: canon.Normalize(s.Name)}
		for _, sub := range s.Subsystems {
			sys.Subsystems = append(sys.Subsystems, canon.Normalize(sub))
		}
		cat.taxonomy = append(cat.taxonomy, sys)
	}

	for piece, h := range f.KnownPieces {
		key := c.Field(canon.FieldPiece, piece)
		ch := record.ComponentHierarchy{
			System:     h.System,
			Subsystem:  h.Subsystem,
			Component:  h.Component,
			IsCritical: h.IsCritical,
			Detail:     h.Detail,
		}
		ch.Canonicalize(c)
		if prev, ok := cat.known[key]; ok && !sameHierarchy(prev, ch) {
			return nil, fmt.Errorf("known piece %q collides with another entry after canonicalization", piece)
		}
		cat.known[key] = ch
	}
	return cat, nil
}

func sameHierarchy(a, b record.ComponentHierarchy) bool {
	if a.System != b.System || a.Subsystem != b.Subsystem || a.Component != b.Component || a.IsCritical != b.IsCritical {
		return false
	}
	if (a.Detail == nil) != (b.Detail == nil) {
		return false
	}
	return a.Detail == nil || *a.Detail == *b.Detail
}

// fold reduces s to the form denylist fragments are matched in: diacritics
// stripped and lowercased, so "Cañería" and "caneria" compare equal.
func fold(s string) string {
	return strings.ToLower(canon.Normalize(s))
}

func foldAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = fold(s)
	}
	return out
}

// Canonicalizer returns the canonicalizer compiled from the alias tables.
func (c *Catalog) Canonicalizer() *canon.Canonicalizer { return c.canon }

// Aliases returns the raw alias tables as loaded.
func (c *Catalog) Aliases() canon.AliasTables { return c.aliases }

// Taxonomy returns the closed system/subsystem taxonomy in display order.
func (c *Catalog) Taxonomy() []System { return c.taxonomy }

// Known looks up a canonical piece name in the known-piece table.
func (c *Catalog) Known(piece string) (record.ComponentHierarchy, bool) {
	h, ok := c.known[piece]
	if ok && h.Detail != nil {
		d := *h.Detail
		h.Detail = &d
	}
	return h, ok
}

// KnownCount reports the number of curated pieces.
func (c *Catalog) KnownCount() int { return len(c.known) }

// IsForbiddenPiece reports whether piece names a generic or trivial part
// that must not produce a job. Empty pieces are forbidden.
func (c *Catalog) IsForbiddenPiece(piece string) bool {
	if strings.TrimSpace(piece) == "" {
		return true
	}
	return containsAny(piece, c.forbiddenPieces)
}

// IsMinorComponent reports whether a component is inherently non-critical
// for the hierarchy mapper.
func (c *Catalog) IsMinorComponent(component string) bool {
	return containsAny(component, c.minorComponents)
}

// IsNeverCritical reports whether a mapped component is downgraded at the
// record level.
func (c *Catalog) IsNeverCritical(component string) bool {
	return containsAny(component, c.neverCritical)
}

func containsAny(s string, fragments []string) bool {
	s = fold(s)
	for _, f := range fragments {
		if f != "" && strings.Contains(s, f) {
			return true
		}
	}
	return false
}

// TaxonomyPrompt renders the taxonomy as a bulleted list for prompts.
func (c *Catalog) TaxonomyPrompt() string {
	var b strings.Builder
	for _, s := range c.taxonomy {
		fmt.Fprintf(&b, "- %s: %s\n", s.Name, strings.Join(s.Subsystems, ", "))
	}
	return b.String()
}
