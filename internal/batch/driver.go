// Package batch labels a whole batch of observation rows and joins the
// results back to their unit and time window. A batch either fully
// succeeds or produces nothing.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kalambet/labeler/internal/aggregate"
	"github.com/kalambet/labeler/internal/canon"
	"github.com/kalambet/labeler/internal/catalog"
	"github.com/kalambet/labeler/internal/criticity"
	"github.com/kalambet/labeler/internal/fanout"
	"github.com/kalambet/labeler/internal/hierarchy"
	"github.com/kalambet/labeler/internal/pipeline"
	"github.com/kalambet/labeler/internal/record"
	"github.com/kalambet/labeler/internal/textgen"
)

// ErrBatchFailed is returned when every attempt of a batch failed.
var ErrBatchFailed = errors.New("batch failed")

// DefaultMaxAttempts is the number of whole-batch attempts when Options
// leaves it unset.
const DefaultMaxAttempts = 3

// Labeler produces the simple record of one observation.
type Labeler interface {
	Label(ctx context.Context, observation string) (record.SimpleMaintenanceRecord, error)
}

// Aggregator produces the maintenance record of one simple record.
type Aggregator interface {
	Aggregate(ctx context.Context, rec record.SimpleMaintenanceRecord) (record.MaintenanceRecord, error)
}

// Sink persists the three collections of a successful batch atomically.
type Sink interface {
	SaveResults(ctx context.Context, batchID string, res Result) error
}

// Options configures a Driver.
type Options struct {
	// MaxParallelism bounds concurrent observations per stage. <= 0 means
	// runtime.NumCPU().
	MaxParallelism int
	// MaxAttempts bounds whole-batch retries. <= 0 means DefaultMaxAttempts.
	MaxAttempts int
	// Catalog supplies the known pieces and alias tables. nil means the
	// embedded defaults.
	Catalog *catalog.Catalog
}

// Result holds the outputs of one successful attempt, index-aligned with
// the input rows.
type Result struct {
	SimpleRecords []record.SimpleMaintenanceRecord `json:"simple_records"`
	Records       []record.MaintenanceRecord       `json:"records"`
	FinalRecords  []record.FinalMaintenanceRecord  `json:"final_records"`
	Attempts      int                              `json:"attempts"`
}

// Driver runs batches.
type Driver struct {
	labeler     Labeler
	aggregator  Aggregator
	canon       *canon.Canonicalizer
	parallelism int
	maxAttempts int
}

// New wires the stage pipeline, hierarchy mapper, criticity evaluator and
// aggregator around gen.
func New(gen textgen.Generator, opts Options) (*Driver, error) {
	cat := opts.Catalog
	if cat == nil {
		var err error
		if cat, err = catalog.Default(); err != nil {
			return nil, err
		}
	}
	labeler := pipeline.NewLabeler(gen, cat, hierarchy.NewMapper(gen, cat))
	agg := aggregate.New(criticity.NewEvaluator(gen), cat.Canonicalizer(), opts.MaxParallelism)
	return NewDriver(labeler, agg, cat.Canonicalizer(), opts), nil
}

// NewDriver creates a Driver from explicit stages.
func NewDriver(l Labeler, a Aggregator, c *canon.Canonicalizer, opts Options) *Driver {
	attempts := opts.MaxAttempts
	if attempts <= 0 {
		attempts = DefaultMaxAttempts
	}
	return &Driver{
		labeler:     l,
		aggregator:  a,
		canon:       c,
		parallelism: opts.MaxParallelism,
		maxAttempts: attempts,
	}
}

// Labeler returns the single-observation labeler used by the driver.
func (d *Driver) Labeler() Labeler { return d.labeler }

// Aggregator returns the aggregator used by the driver.
func (d *Driver) Aggregator() Aggregator { return d.aggregator }

// Run labels rows. Any failure restarts the whole batch; after the last
// failed attempt Run returns an error wrapping ErrBatchFailed and the last
// cause.
func (d *Driver) Run(ctx context.Context, rows []record.Row) (Result, error) {
	var lastErr error
	for attempt := 1; attempt <= d.maxAttempts; attempt++ {
		start := time.Now()
		res, err := d.attempt(ctx, rows)
		if err == nil {
			res.Attempts = attempt
			slog.Info("batch labeled", "rows", len(rows), "attempt", attempt, "duration", time.Since(start))
			return res, nil
		}
		lastErr = err
		slog.Warn("batch attempt failed", "attempt", attempt, "max_attempts", d.maxAttempts, "error", err)
		if ctx.Err() != nil {
			break
		}
	}
	return Result{}, fmt.Errorf("%w: %w", ErrBatchFailed, lastErr)
}

func (d *Driver) attempt(ctx context.Context, rows []record.Row) (Result, error) {
	simple, err := fanout.Map(ctx, rows, d.parallelism, func(ctx context.Context, i int, row record.Row) (record.SimpleMaintenanceRecord, error) {
		return d.labeler.Label(pipeline.WithRow(ctx, i), row.Observation)
	})
	if err != nil {
		return Result{}, fmt.Errorf("generating simple records: %w", err)
	}

	records, err := fanout.Map(ctx, simple, d.parallelism, func(ctx context.Context, _ int, rec record.SimpleMaintenanceRecord) (record.MaintenanceRecord, error) {
		return d.aggregator.Aggregate(ctx, rec)
	})
	if err != nil {
		return Result{}, fmt.Errorf("generating records: %w", err)
	}

	final, err := Join(records, rows)
	if err != nil {
		return Result{}, err
	}
	if d.canon != nil {
		for i := range final {
			final[i].Canonicalize(d.canon)
		}
	}
	return Result{SimpleRecords: simple, Records: records, FinalRecords: final}, nil
}

// Join pairs each record with the row at the same position.
func Join(records []record.MaintenanceRecord, rows []record.Row) ([]record.FinalMaintenanceRecord, error) {
	if len(records) != len(rows) {
		return nil, fmt.Errorf("joining records: %d records for %d rows", len(records), len(rows))
	}
	out := make([]record.FinalMaintenanceRecord, len(records))
	for i, rec := range records {
		out[i] = record.FinalMaintenanceRecord{
			UnitID:            rows[i].UnitID,
			StartTime:         rows[i].StartTime,
			EndTime:           rows[i].EndTime,
			MaintenanceRecord: rec,
		}
	}
	return out, nil
}
