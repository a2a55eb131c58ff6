// Package pipeline turns one free-text maintenance observation into a
// SimpleMaintenanceRecord through an ordered chain of generation stages.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/kalambet/labeler/internal/canon"
	"github.com/kalambet/labeler/internal/catalog"
	"github.com/kalambet/labeler/internal/hierarchy"
	"github.com/kalambet/labeler/internal/record"
	"github.com/kalambet/labeler/internal/textgen"
)

// MinObservationLength is the shortest observation, in runes, that is sent
// to the generation service.
const MinObservationLength = 40

type rowKey struct{}

// WithRow tags ctx with the row index used in stage logs.
func WithRow(ctx context.Context, row int) context.Context {
	return context.WithValue(ctx, rowKey{}, row)
}

func logger(ctx context.Context) *slog.Logger {
	if row, ok := ctx.Value(rowKey{}).(int); ok {
		return slog.Default().With("row", row)
	}
	return slog.Default()
}

// Labeler runs the stage pipeline. It holds no per-call state and is safe
// for concurrent use.
type Labeler struct {
	gen     textgen.Generator
	catalog *catalog.Catalog
	mapper  *hierarchy.Mapper

	componentSummaryPrompt string
	componentMappingPrompt string
}

// NewLabeler creates a Labeler. Pieces missing from the generated mapping
// are resolved through mapper.
func NewLabeler(gen textgen.Generator, cat *catalog.Catalog, mapper *hierarchy.Mapper) *Labeler {
	taxonomy := cat.TaxonomyPrompt()
	return &Labeler{
		gen:                    gen,
		catalog:                cat,
		mapper:                 mapper,
		componentSummaryPrompt: fmt.Sprintf(userComponentSummary, taxonomy),
		componentMappingPrompt: fmt.Sprintf(systemComponentMapping, taxonomy),
	}
}

// Label extracts a SimpleMaintenanceRecord from observation. Observations
// that are too short, carry no relevant activity or yield no valid job
// produce the empty record. Any generation or schema failure aborts the
// observation.
func (l *Labeler) Label(ctx context.Context, observation string) (record.SimpleMaintenanceRecord, error) {
	log := logger(ctx)

	if n := utf8.RuneCountInString(observation); n < MinObservationLength {
		log.Debug("observation too short", "runes", n)
		return record.EmptySimpleRecord(), nil
	}

	summary, err := l.gen.GenerateText(ctx, systemSummarize,
		userSummarize, exampleObservation1, exampleSummary1, exampleObservation2, exampleSummary2, observation)
	if err != nil {
		return record.SimpleMaintenanceRecord{}, fmt.Errorf("summarizing observation: %w", err)
	}
	log.Debug("observation summarized")

	rel, err := textgen.Structured[relevance](ctx, l.gen, systemRelevance, []string{userRelevance, summary}, relevanceSchema())
	if err != nil {
		return record.SimpleMaintenanceRecord{}, fmt.Errorf("checking relevance: %w", err)
	}
	if !rel.Flag {
		log.Debug("no relevant activities")
		return record.EmptySimpleRecord(), nil
	}

	mt, err := textgen.Structured[maintenanceType](ctx, l.gen, systemMaintenanceType,
		[]string{userMaintenanceType, observation}, maintenanceTypeSchema())
	if err != nil {
		return record.SimpleMaintenanceRecord{}, fmt.Errorf("classifying scheduling: %w", err)
	}

	cleaned, err := l.gen.GenerateText(ctx, systemSummarize, userClean, exampleSummary2, exampleCleanOutput, summary)
	if err != nil {
		return record.SimpleMaintenanceRecord{}, fmt.Errorf("cleaning summary: %w", err)
	}

	short, err := textgen.Structured[shortSummary](ctx, l.gen, systemShorten, []string{userShorten, cleaned}, shortSummarySchema())
	if err != nil {
		return record.SimpleMaintenanceRecord{}, fmt.Errorf("shortening summary: %w", err)
	}

	jl, err := textgen.Structured[jobList](ctx, l.gen, systemJobs, []string{userJobs, cleaned}, jobListSchema())
	if err != nil {
		return record.SimpleMaintenanceRecord{}, fmt.Errorf("extracting jobs: %w", err)
	}
	c := l.catalog.Canonicalizer()
	for i := range jl.Jobs {
		jl.Jobs[i].Canonicalize(c)
	}
	jobs := l.FilterJobs(jl.Jobs)
	if len(jobs) == 0 {
		log.Debug("no valid jobs", "extracted", len(jl.Jobs))
		return record.EmptySimpleRecord(), nil
	}
	log.Debug("jobs extracted", "jobs", len(jobs), "dropped", len(jl.Jobs)-len(jobs))

	componentSummary, err := l.gen.GenerateText(ctx, systemComponentSummary, l.componentSummaryPrompt, cleaned)
	if err != nil {
		return record.SimpleMaintenanceRecord{}, fmt.Errorf("summarizing components: %w", err)
	}

	rec := record.SimpleMaintenanceRecord{
		IsScheduled:   mt.IsScheduled,
		ScheduledType: mt.ScheduledType,
		Summary:       short.Summary,
		Jobs:          jobs,
	}

	focus := fmt.Sprintf(focusPieces, strings.Join(rec.Pieces(), ", "))
	ml, err := textgen.Structured[mappingList](ctx, l.gen, l.componentMappingPrompt,
		[]string{userComponentMapping, componentSummary, focus}, mappingListSchema())
	if err != nil {
		return record.SimpleMaintenanceRecord{}, fmt.Errorf("mapping components: %w", err)
	}
	rec.ComponentMapping = ml.ComponentMapping
	if rec.ComponentMapping == nil {
		rec.ComponentMapping = []record.PieceComponentMapping{}
	}
	for i := range rec.ComponentMapping {
		rec.ComponentMapping[i].Canonicalize(c)
	}

	if err := l.Reconcile(ctx, &rec, componentSummary); err != nil {
		return record.SimpleMaintenanceRecord{}, err
	}

	rec.Canonicalize(c)
	log.Debug("observation labeled", "jobs", len(rec.Jobs), "mappings", len(rec.ComponentMapping))
	return rec, nil
}

// FilterJobs trims the textual fields of every job and drops jobs whose
// piece is empty or names a forbidden part. The result is never nil.
func (l *Labeler) FilterJobs(jobs []record.SimpleJob) []record.SimpleJob {
	out := make([]record.SimpleJob, 0, len(jobs))
	for _, j := range jobs {
		j.Piece = strings.TrimSpace(j.Piece)
		if l.catalog.IsForbiddenPiece(j.Piece) {
			slog.Debug("dropping job on forbidden piece", "piece", j.Piece)
			continue
		}
		j.JobType = strings.TrimSpace(j.JobType)
		j.Comment = strings.TrimSpace(j.Comment)
		if j.OTNumber != nil {
			ot := strings.TrimSpace(*j.OTNumber)
			if ot == "" {
				j.OTNumber = nil
			} else {
				j.OTNumber = &ot
			}
		}
		out = append(out, j)
	}
	return out
}

// Reconcile guarantees that every job piece has a mapping, resolving the
// missing ones with componentSummary as context, then clears the critical
// flag of mappings whose component is never critical. Pieces are compared
// after canonicalization.
func (l *Labeler) Reconcile(ctx context.Context, rec *record.SimpleMaintenanceRecord, componentSummary string) error {
	c := l.catalog.Canonicalizer()

	mapped := make(map[string]bool, len(rec.ComponentMapping))
	for _, m := range rec.ComponentMapping {
		mapped[c.Field(canon.FieldPiece, m.Piece)] = true
	}

	for _, piece := range rec.Pieces() {
		key := c.Field(canon.FieldPiece, piece)
		if mapped[key] {
			continue
		}
		logger(ctx).Debug("piece missing from mapping", "piece", piece)
		h, err := l.mapper.Resolve(ctx, piece, componentSummary)
		if err != nil {
			return fmt.Errorf("reconciling mapping: %w", err)
		}
		rec.ComponentMapping = append(rec.ComponentMapping, record.PieceComponentMapping{Piece: piece, Hierarchy: h})
		mapped[key] = true
	}

	for i := range rec.ComponentMapping {
		if l.catalog.IsNeverCritical(rec.ComponentMapping[i].Hierarchy.Component) {
			rec.ComponentMapping[i].Hierarchy.IsCritical = false
		}
	}
	return nil
}
