// Package record defines the structured artifacts produced by the labeling
// pipeline. Every type implements canon.Canonicalizable so a single pass
// rewrites all of its string fields.
package record

import (
	"strings"

	"github.com/kalambet/labeler/internal/canon"
)

// Criticity levels, lowest first.
const (
	CriticityLow    = "Baja"
	CriticityMedium = "Media"
	CriticityHigh   = "Alta"
)

// Detention types.
const (
	DetentionFunctionalFailure = "Falla funcional"
	DetentionPreventive        = "Preventivo"
	DetentionScheduled         = "Programado"
	DetentionOperational       = "Operativo"
	DetentionMinorFailure      = "Falla menor"
)

// Job types.
const (
	JobInspection  = "Inspeccion"
	JobRefill      = "Relleno"
	JobRepair      = "Reparacion"
	JobReplacement = "Reemplazo"
	JobLogistics   = "Logistica"
)

// CriticityRank orders criticity labels; unknown labels rank below Baja.
func CriticityRank(c string) int {
	switch c {
	case CriticityLow:
		return 1
	case CriticityMedium:
		return 2
	case CriticityHigh:
		return 3
	default:
		return 0
	}
}

// SimpleJob is one unit of work inferred from an observation.
type SimpleJob struct {
	Piece    string  `json:"piece"`
	JobType  string  `json:"job_type"`
	Comment  string  `json:"comment"`
	OTNumber *string `json:"ot_number"`
	Liters   *int    `json:"liters"`
}

func (j *SimpleJob) Canonicalize(c *canon.Canonicalizer) {
	j.Piece = c.Field(canon.FieldPiece, j.Piece)
	j.JobType = c.Field(canon.FieldJobType, j.JobType)
	j.Comment = c.Text(j.Comment)
	j.OTNumber = c.TextPtr(j.OTNumber)
}

// ComponentHierarchy classifies a physical part.
type ComponentHierarchy struct {
	System     string  `json:"system"`
	Subsystem  string  `json:"subsystem"`
	Component  string  `json:"component"`
	IsCritical bool    `json:"is_critical"`
	Detail     *string `json:"detail"`
}

func (h *ComponentHierarchy) Canonicalize(c *canon.Canonicalizer) {
	h.System = c.Field(canon.FieldSystem, h.System)
	h.Subsystem = c.Field(canon.FieldSubsystem, h.Subsystem)
	h.Component = c.Text(h.Component)
	h.Detail = c.TextPtr(h.Detail)
}

// PieceComponentMapping pairs a piece name with its hierarchy.
type PieceComponentMapping struct {
	Piece     string             `json:"piece"`
	Hierarchy ComponentHierarchy `json:"hierarchy"`
}

func (m *PieceComponentMapping) Canonicalize(c *canon.Canonicalizer) {
	m.Piece = c.Field(canon.FieldPiece, m.Piece)
	m.Hierarchy.Canonicalize(c)
}

// SimpleMaintenanceRecord is the first structured artifact for one observation.
type SimpleMaintenanceRecord struct {
	IsScheduled      bool                    `json:"is_scheduled"`
	ScheduledType    *string                 `json:"scheduled_type"`
	Summary          string                  `json:"summary"`
	Jobs             []SimpleJob             `json:"jobs"`
	ComponentMapping []PieceComponentMapping `json:"component_mapping"`
}

// EmptySimpleRecord is the terminal record for observations that carry no
// actionable content.
func EmptySimpleRecord() SimpleMaintenanceRecord {
	return SimpleMaintenanceRecord{
		Jobs:             []SimpleJob{},
		ComponentMapping: []PieceComponentMapping{},
	}
}

func (r *SimpleMaintenanceRecord) Canonicalize(c *canon.Canonicalizer) {
	r.ScheduledType = c.FieldPtr(canon.FieldScheduledType, r.ScheduledType)
	r.Summary = c.Text(r.Summary)
	for i := range r.Jobs {
		r.Jobs[i].Canonicalize(c)
	}
	for i := range r.ComponentMapping {
		r.ComponentMapping[i].Canonicalize(c)
	}
}

// Pieces returns the distinct job pieces in first-seen order.
func (r *SimpleMaintenanceRecord) Pieces() []string {
	seen := make(map[string]bool, len(r.Jobs))
	var pieces []string
	for _, j := range r.Jobs {
		if seen[j.Piece] {
			continue
		}
		seen[j.Piece] = true
		pieces = append(pieces, j.Piece)
	}
	return pieces
}

// CriticityEvaluation is the transient result of evaluating one job.
type CriticityEvaluation struct {
	JobType   string `json:"job_type"`
	Summary   string `json:"summary"`
	Criticity string `json:"criticity"`
}

func (e *CriticityEvaluation) Canonicalize(c *canon.Canonicalizer) {
	e.JobType = c.Field(canon.FieldJobType, e.JobType)
	e.Summary = c.Text(e.Summary)
	e.Criticity = c.Text(e.Criticity)
}

// Job is a SimpleJob enriched with its hierarchy and criticity.
type Job struct {
	Piece          string  `json:"piece"`
	System         string  `json:"system"`
	Subsystem      string  `json:"subsystem"`
	Component      string  `json:"component"`
	Detail         *string `json:"detail"`
	JobType        string  `json:"job_type"`
	JobComment     string  `json:"job_comment"`
	Criticity      string  `json:"criticity"`
	CriticalChange bool    `json:"critical_change"`
	OTNumber       *string `json:"ot_number"`
	Liters         *int    `json:"liters"`
}

func (j *Job) Canonicalize(c *canon.Canonicalizer) {
	j.Piece = c.Field(canon.FieldPiece, j.Piece)
	j.System = c.Field(canon.FieldSystem, j.System)
	j.Subsystem = c.Field(canon.FieldSubsystem, j.Subsystem)
	j.Component = c.Text(j.Component)
	j.Detail = c.TextPtr(j.Detail)
	j.JobType = c.Field(canon.FieldJobType, j.JobType)
	j.JobComment = c.Text(j.JobComment)
	j.Criticity = c.Text(j.Criticity)
	j.OTNumber = c.TextPtr(j.OTNumber)
}

// MaintenanceRecord is the record-level aggregate of one observation.
type MaintenanceRecord struct {
	DetentionType     string  `json:"detention_type"`
	IsScheduled       bool    `json:"is_scheduled"`
	ScheduledType     *string `json:"scheduled_type"`
	HasInspection     bool    `json:"has_inspection"`
	HasRefill         bool    `json:"has_refill"`
	HasRepair         bool    `json:"has_repair"`
	HasReplacement    bool    `json:"has_replacement"`
	HasOther          bool    `json:"has_other"`
	HasCriticalChange bool    `json:"has_critical_change"`
	Summary           string  `json:"summary"`
	Jobs              []Job   `json:"jobs"`
}

func (r *MaintenanceRecord) Canonicalize(c *canon.Canonicalizer) {
	r.DetentionType = c.Field(canon.FieldDetentionType, r.DetentionType)
	r.ScheduledType = c.FieldPtr(canon.FieldScheduledType, r.ScheduledType)
	r.Summary = c.Text(r.Summary)
	for i := range r.Jobs {
		r.Jobs[i].Canonicalize(c)
	}
}

// FinalMaintenanceRecord is a MaintenanceRecord joined back to the unit and
// time window of its originating row.
type FinalMaintenanceRecord struct {
	UnitID    string `json:"unit_id"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	MaintenanceRecord
}

// Canonicalize rewrites the embedded record. Unit ids and timestamps are
// join keys and are only trimmed: case folding would corrupt ISO 8601
// separators and unit codes.
func (r *FinalMaintenanceRecord) Canonicalize(c *canon.Canonicalizer) {
	r.UnitID = strings.TrimSpace(r.UnitID)
	r.StartTime = strings.TrimSpace(r.StartTime)
	r.EndTime = strings.TrimSpace(r.EndTime)
	r.MaintenanceRecord.Canonicalize(c)
}

// Row is one input observation with the metadata needed for the final join.
type Row struct {
	RowID       string `json:"row_id"`
	Observation string `json:"observation"`
	UnitID      string `json:"unit_id"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
}
