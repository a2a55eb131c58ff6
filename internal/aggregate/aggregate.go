// Package aggregate turns a SimpleMaintenanceRecord into a MaintenanceRecord:
// per-job criticity, record-level activity flags and the detention type.
package aggregate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kalambet/labeler/internal/canon"
	"github.com/kalambet/labeler/internal/criticity"
	"github.com/kalambet/labeler/internal/fanout"
	"github.com/kalambet/labeler/internal/record"
)

// ErrMissingMapping is returned when a job's piece has no component mapping.
var ErrMissingMapping = errors.New("no mapping for piece")

// ActivityFlags summarizes the jobs of one record.
type ActivityFlags struct {
	HasInspection     bool
	HasRefill         bool
	HasRepair         bool
	HasReplacement    bool
	HasOther          bool
	HasCriticalChange bool
	MaxCriticity      string
}

// Flags computes the activity flags of jobs. HasOther is set when more than
// four distinct job types appear. MaxCriticity is Baja for an empty list.
func Flags(jobs []record.Job) ActivityFlags {
	types := make(map[string]bool, len(jobs))
	var f ActivityFlags
	maxCrit := record.CriticityLow
	for _, j := range jobs {
		types[strings.ToLower(j.JobType)] = true
		if j.CriticalChange {
			f.HasCriticalChange = true
		}
		if record.CriticityRank(j.Criticity) > record.CriticityRank(maxCrit) {
			maxCrit = j.Criticity
		}
	}
	f.HasInspection = types[strings.ToLower(record.JobInspection)]
	f.HasRefill = types[strings.ToLower(record.JobRefill)]
	f.HasRepair = types[strings.ToLower(record.JobRepair)]
	f.HasReplacement = types[strings.ToLower(record.JobReplacement)]
	f.HasOther = len(types) > 4
	f.MaxCriticity = maxCrit
	return f
}

// DetentionType applies the detention precedence to the flags and the
// record's scheduling.
func DetentionType(f ActivityFlags, isScheduled bool, scheduledType *string) string {
	switch {
	case f.HasCriticalChange:
		return record.DetentionFunctionalFailure
	case isScheduled && scheduledType != nil && strings.Contains(strings.ToLower(*scheduledType), "preventivo"):
		return record.DetentionPreventive
	case isScheduled:
		return record.DetentionScheduled
	case (f.HasInspection || f.HasRefill) && !(f.HasRepair || f.HasReplacement || f.HasOther):
		return record.DetentionOperational
	case f.MaxCriticity == record.CriticityLow:
		return record.DetentionOperational
	default:
		return record.DetentionMinorFailure
	}
}

// Aggregator builds MaintenanceRecords.
type Aggregator struct {
	eval  *criticity.Evaluator
	canon *canon.Canonicalizer
	limit int
}

// New creates an Aggregator. Jobs of one record are evaluated with at most
// limit evaluations in flight; limit <= 0 means runtime.NumCPU().
func New(eval *criticity.Evaluator, c *canon.Canonicalizer, limit int) *Aggregator {
	return &Aggregator{eval: eval, canon: c, limit: limit}
}

// pieceKey is the form pieces are matched in between jobs and mappings.
func (a *Aggregator) pieceKey(piece string) string {
	if a.canon == nil {
		return piece
	}
	return a.canon.Field(canon.FieldPiece, piece)
}

// Aggregate evaluates every job of rec and derives the record-level fields.
// A record without jobs yields an empty detention type with every flag
// unset; its scheduling is carried through.
func (a *Aggregator) Aggregate(ctx context.Context, rec record.SimpleMaintenanceRecord) (record.MaintenanceRecord, error) {
	if len(rec.Jobs) == 0 {
		return record.MaintenanceRecord{
			IsScheduled:   rec.IsScheduled,
			ScheduledType: rec.ScheduledType,
			Jobs:          []record.Job{},
		}, nil
	}

	index := make(map[string]record.ComponentHierarchy, len(rec.ComponentMapping))
	for _, m := range rec.ComponentMapping {
		index[a.pieceKey(m.Piece)] = m.Hierarchy
	}
	hierarchies := make([]record.ComponentHierarchy, len(rec.Jobs))
	for i, j := range rec.Jobs {
		h, ok := index[a.pieceKey(j.Piece)]
		if !ok {
			return record.MaintenanceRecord{}, fmt.Errorf("%w %q", ErrMissingMapping, j.Piece)
		}
		hierarchies[i] = h
	}

	jobs, err := fanout.Map(ctx, rec.Jobs, a.limit, func(ctx context.Context, i int, j record.SimpleJob) (record.Job, error) {
		h := hierarchies[i]
		ev, err := a.eval.Evaluate(ctx, j.JobType, h.IsCritical, j.Comment)
		if err != nil {
			return record.Job{}, err
		}
		return record.Job{
			Piece:          j.Piece,
			System:         h.System,
			Subsystem:      h.Subsystem,
			Component:      h.Component,
			Detail:         h.Detail,
			JobType:        ev.JobType,
			JobComment:     ev.Summary,
			Criticity:      ev.Criticity,
			CriticalChange: ev.Criticity == record.CriticityHigh,
			OTNumber:       j.OTNumber,
			Liters:         j.Liters,
		}, nil
	})
	if err != nil {
		return record.MaintenanceRecord{}, fmt.Errorf("evaluating jobs: %w", err)
	}

	f := Flags(jobs)
	out := record.MaintenanceRecord{
		DetentionType:     DetentionType(f, rec.IsScheduled, rec.ScheduledType),
		IsScheduled:       rec.IsScheduled,
		ScheduledType:     rec.ScheduledType,
		HasInspection:     f.HasInspection,
		HasRefill:         f.HasRefill,
		HasRepair:         f.HasRepair,
		HasReplacement:    f.HasReplacement,
		HasOther:          f.HasOther,
		HasCriticalChange: f.HasCriticalChange,
		Summary:           rec.Summary,
		Jobs:              jobs,
	}
	if a.canon != nil {
		out.Canonicalize(a.canon)
	}
	return out, nil
}
