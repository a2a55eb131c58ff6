package pipeline

import (
	"github.com/kalambet/labeler/internal/engine"
	"github.com/kalambet/labeler/internal/hierarchy"
	"github.com/kalambet/labeler/internal/record"
)

type relevance struct {
	Flag bool `json:"flag"`
}

type maintenanceType struct {
	IsScheduled   bool    `json:"is_scheduled"`
	ScheduledType *string `json:"scheduled_type"`
}

type shortSummary struct {
	Summary string `json:"summary"`
}

type jobList struct {
	Jobs []record.SimpleJob `json:"jobs"`
}

type mappingList struct {
	ComponentMapping []record.PieceComponentMapping `json:"component_mapping"`
}

func relevanceSchema() *engine.Schema {
	return engine.Object(map[string]*engine.Schema{
		"flag": engine.Boolean("Si el registro contiene actividades relevantes"),
	})
}

func maintenanceTypeSchema() *engine.Schema {
	return engine.Object(map[string]*engine.Schema{
		"is_scheduled":   engine.Boolean("Si la detencion fue programada"),
		"scheduled_type": engine.String("Tipo de mantenimiento programado").OrNull(),
	})
}

func shortSummarySchema() *engine.Schema {
	return engine.Object(map[string]*engine.Schema{
		"summary": engine.String("Sintesis de las actividades"),
	})
}

func jobSchema() *engine.Schema {
	return engine.Object(map[string]*engine.Schema{
		"piece":     engine.String("Nombre de la pieza"),
		"job_type":  engine.String("Inspeccion, Relleno, Reparacion, Reemplazo o Logistica"),
		"comment":   engine.String("Extracto en el que se menciona la actividad"),
		"ot_number": engine.String("Numero de orden de trabajo").OrNull(),
		"liters":    engine.Integer("Litros de relleno").OrNull(),
	})
}

func jobListSchema() *engine.Schema {
	return engine.Object(map[string]*engine.Schema{
		"jobs": engine.ArrayOf(jobSchema()),
	})
}

func mappingListSchema() *engine.Schema {
	return engine.Object(map[string]*engine.Schema{
		"component_mapping": engine.ArrayOf(engine.Object(map[string]*engine.Schema{
			"piece":     engine.String("Nombre de la pieza"),
			"hierarchy": hierarchy.Schema(),
		})),
	})
}
