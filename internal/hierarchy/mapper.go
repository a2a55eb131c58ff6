// Package hierarchy resolves piece names to their system, subsystem and
// component, consulting the curated known-piece table before asking the
// text-generation service.
package hierarchy

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kalambet/labeler/internal/canon"
	"github.com/kalambet/labeler/internal/catalog"
	"github.com/kalambet/labeler/internal/engine"
	"github.com/kalambet/labeler/internal/record"
	"github.com/kalambet/labeler/internal/textgen"
)

// Schema is the structured-output schema of a ComponentHierarchy.
func Schema() *engine.Schema {
	return engine.Object(map[string]*engine.Schema{
		"system":      engine.String("Sistema al que pertenece la pieza"),
		"subsystem":   engine.String("Subsistema al que pertenece la pieza"),
		"component":   engine.String("Nombre breve del componente"),
		"is_critical": engine.Boolean("Si el componente es critico"),
		"detail":      engine.String("Posicion o detalle adicional").OrNull(),
	})
}

// Mapper resolves pieces to hierarchies. It is safe for concurrent use.
type Mapper struct {
	gen     textgen.Generator
	catalog *catalog.Catalog
	system  string
}

// NewMapper creates a Mapper backed by gen and the given catalog.
func NewMapper(gen textgen.Generator, cat *catalog.Catalog) *Mapper {
	return &Mapper{
		gen:     gen,
		catalog: cat,
		system:  fmt.Sprintf(systemPrompt, cat.TaxonomyPrompt()),
	}
}

// Known returns the curated hierarchy for piece, if any.
func (m *Mapper) Known(piece string) (record.ComponentHierarchy, bool) {
	return m.catalog.Known(m.catalog.Canonicalizer().Field(canon.FieldPiece, piece))
}

// Resolve returns the hierarchy for piece. Known pieces never reach the
// generation service. Generated hierarchies are canonicalized and lose
// their criticality when the component is a minor part. Values outside the
// taxonomy are kept as produced.
func (m *Mapper) Resolve(ctx context.Context, piece, contextSummary string) (record.ComponentHierarchy, error) {
	c := m.catalog.Canonicalizer()
	piece = c.Field(canon.FieldPiece, piece)

	if h, ok := m.catalog.Known(piece); ok {
		slog.Debug("hierarchy from known pieces", "piece", piece)
		return h, nil
	}

	slog.Debug("hierarchy from generation service", "piece", piece)
	h, err := textgen.Structured[record.ComponentHierarchy](ctx, m.gen, m.system,
		[]string{userExamples, fmt.Sprintf(userTarget, piece, contextSummary)}, Schema())
	if err != nil {
		return record.ComponentHierarchy{}, fmt.Errorf("mapping piece %q: %w", piece, err)
	}
	h.Canonicalize(c)
	if m.catalog.IsMinorComponent(h.Component) {
		h.IsCritical = false
	}
	return h, nil
}
