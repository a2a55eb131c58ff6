package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/kalambet/labeler/internal/batch"
	"github.com/kalambet/labeler/internal/config"
	"github.com/kalambet/labeler/internal/ingest"
	"github.com/kalambet/labeler/internal/record"
	"github.com/kalambet/labeler/internal/storage"
)

const maxRowSize = 1 << 20 // 1MB

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Label a weekly batch of observations from a JSONL file",
	Long: `Label a weekly batch of observations.

Each input line is a JSON object with row_id, observation, unit_id,
start_time and end_time. Results are written to
<output>/<year>/week_<week>/{simple_records,records,final_records}.json
and stored as a batch.

Examples:
  labeler run --input week.jsonl
  labeler run --input week.jsonl --year 2025 --week 10 --output ./out
  cat week.jsonl | labeler run --input -`,
	RunE: func(cmd *cobra.Command, args []string) error {
		input, _ := cmd.Flags().GetString("input")
		output, _ := cmd.Flags().GetString("output")
		year, _ := cmd.Flags().GetInt("year")
		week, _ := cmd.Flags().GetInt("week")
		noStore, _ := cmd.Flags().GetBool("no-store")

		if input == "" {
			return fmt.Errorf("--input is required")
		}
		if year == 0 || week == 0 {
			y, w := time.Now().ISOWeek()
			if year == 0 {
				year = y
			}
			if week == 0 {
				week = w
			}
		}
		if week < 1 || week > 53 {
			return fmt.Errorf("invalid --week %d", week)
		}

		rows, err := readRowsFile(input)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return fmt.Errorf("no rows in %s", input)
		}

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		initLogging(cfg)

		ctx := cmd.Context()
		stack, err := buildStack(ctx, cfg, os.Stderr)
		if err != nil {
			return err
		}

		var store *storage.Store
		if !noStore {
			if store, err = storage.Open(cfg.Storage.DataDir); err != nil {
				return fmt.Errorf("opening storage: %w", err)
			}
			defer store.Close()
		}

		printStep("Labeling %d observations for %d week %d", len(rows), year, week)
		res, batchID, err := labelBatch(ctx, stack.driver, store, fmt.Sprintf("%d-W%02d", year, week), rows)
		if err != nil {
			return err
		}

		dir, err := writeWeekly(output, year, week, res)
		if err != nil {
			return err
		}
		if batchID != "" {
			printSuccess("Batch %s labeled in %d attempt(s)", batchID, res.Attempts)
		}
		printSuccess("Records written to %s", dir)
		return nil
	},
}

func init() {
	runCmd.Flags().String("input", "", "JSONL file of observation rows (- for stdin)")
	runCmd.Flags().String("output", "output", "output directory")
	runCmd.Flags().Int("year", 0, "ISO year of the batch (default: current)")
	runCmd.Flags().Int("week", 0, "ISO week of the batch (default: current)")
	runCmd.Flags().Bool("no-store", false, "do not record the batch in the local database")
}

// labelBatch runs rows through the driver. When store is non-nil the batch
// and its results are recorded there; a failed batch is marked failed and
// stores no records.
func labelBatch(ctx context.Context, runner ingest.BatchRunner, store *storage.Store, label string, rows []record.Row) (batch.Result, string, error) {
	if store == nil {
		res, err := runner.Run(ctx, rows)
		return res, "", err
	}

	id := uuid.New().String()
	if err := store.CreateBatch(storage.Batch{ID: id, Label: label, Status: storage.BatchRunning}, rows); err != nil {
		return batch.Result{}, "", fmt.Errorf("saving batch: %w", err)
	}

	res, err := runner.Run(ctx, rows)
	if err != nil {
		if setErr := store.SetBatchStatus(id, storage.BatchFailed, err.Error()); setErr != nil {
			printWarning("could not mark batch %s as failed: %v", id, setErr)
		}
		return batch.Result{}, id, err
	}
	if err := store.SaveResults(ctx, id, res); err != nil {
		return batch.Result{}, id, fmt.Errorf("saving results: %w", err)
	}
	return res, id, nil
}

func readRowsFile(path string) ([]record.Row, error) {
	if path == "-" {
		return readRows(os.Stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening input: %w", err)
	}
	defer f.Close()
	return readRows(f)
}

// readRows parses one JSON row per line. Blank lines are skipped.
func readRows(r io.Reader) ([]record.Row, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxRowSize)

	var rows []record.Row
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		var row record.Row
		if err := json.Unmarshal([]byte(text), &row); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		rows = append(rows, row)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}
	return rows, nil
}

// writeWeekly writes the three result collections under
// <output>/<year>/week_<week>/ and returns that directory.
func writeWeekly(output string, year, week int, res batch.Result) (string, error) {
	dir := filepath.Join(output, fmt.Sprintf("%d", year), fmt.Sprintf("week_%d", week))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}

	files := []struct {
		name string
		docs any
	}{
		{"simple_records.json", res.SimpleRecords},
		{"records.json", res.Records},
		{"final_records.json", res.FinalRecords},
	}
	for _, f := range files {
		data, err := json.MarshalIndent(f.docs, "", "  ")
		if err != nil {
			return "", fmt.Errorf("encoding %s: %w", f.name, err)
		}
		if err := os.WriteFile(filepath.Join(dir, f.name), append(data, '\n'), 0o644); err != nil {
			return "", fmt.Errorf("writing %s: %w", f.name, err)
		}
	}
	return dir, nil
}
