// Package criticity rates the severity of a single job.
package criticity

import (
	"context"
	"fmt"
	"strings"

	"github.com/kalambet/labeler/internal/engine"
	"github.com/kalambet/labeler/internal/record"
	"github.com/kalambet/labeler/internal/textgen"
)

type judgment struct {
	IsCritic bool `json:"isCritic"`
}

func judgmentSchema() *engine.Schema {
	return engine.Object(map[string]*engine.Schema{
		"isCritic": engine.Boolean("Si el trabajo fue un cambio critico"),
	})
}

// Rule applies the deterministic part of the decision tree. When
// needsJudgment is true the job is a replacement-class change on a critical
// component and the criticity must come from the generation service.
//
// Inspection and refill short-circuit before component criticality is
// consulted.
func Rule(jobType string, componentCritical bool) (criticity string, needsJudgment bool) {
	jt := strings.ToLower(jobType)
	switch {
	case strings.Contains(jt, "inspec"):
		return record.CriticityLow, false
	case strings.Contains(jt, "rell"):
		return record.CriticityMedium, false
	case !componentCritical:
		return record.CriticityLow, false
	case strings.Contains(jt, "repar"):
		return record.CriticityMedium, false
	default:
		return "", true
	}
}

// Evaluator rates jobs, falling back to the generation service for
// replacement work on critical components.
type Evaluator struct {
	gen textgen.Generator
}

// NewEvaluator creates an Evaluator.
func NewEvaluator(gen textgen.Generator) *Evaluator {
	return &Evaluator{gen: gen}
}

// Evaluate rates one job. summary is the job's comment.
func (e *Evaluator) Evaluate(ctx context.Context, jobType string, componentCritical bool, summary string) (record.CriticityEvaluation, error) {
	out := record.CriticityEvaluation{JobType: jobType, Summary: summary}

	crit, needsJudgment := Rule(jobType, componentCritical)
	if !needsJudgment {
		out.Criticity = crit
		return out, nil
	}

	report, err := e.gen.GenerateText(ctx, evalSystem, evalUser, fmt.Sprintf(narrative, jobType, summary))
	if err != nil {
		return out, fmt.Errorf("evaluating criticity: %w", err)
	}
	j, err := textgen.Structured[judgment](ctx, e.gen, structuredSystem, []string{structuredUser, report}, judgmentSchema())
	if err != nil {
		return out, fmt.Errorf("judging criticity: %w", err)
	}

	if j.IsCritic {
		out.Criticity = record.CriticityHigh
	} else {
		out.Criticity = record.CriticityMedium
	}
	return out, nil
}
