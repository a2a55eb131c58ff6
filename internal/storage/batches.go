package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kalambet/labeler/internal/batch"
	"github.com/kalambet/labeler/internal/record"
)

var _ batch.Sink = (*Store)(nil)

// --- Batches ---

// CreateBatch stores b with status queued together with its rows.
func (s *Store) CreateBatch(b Batch, rows []record.Row) error {
	now := time.Now().UTC().Format(time.RFC3339)
	status := b.Status
	if status == "" {
		status = BatchQueued
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning batch transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`
		INSERT INTO batches (id, label, status, row_count, attempts, created_at, updated_at)
		VALUES (?, ?, ?, ?, 0, ?, ?)`,
		b.ID, b.Label, status, len(rows), now, now,
	); err != nil {
		return fmt.Errorf("inserting batch: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO observations (batch_id, row_idx, row_id, text, unit_id, start_time, end_time)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing observation insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range rows {
		if _, err := stmt.Exec(b.ID, i, r.RowID, r.Observation, r.UnitID, r.StartTime, r.EndTime); err != nil {
			return fmt.Errorf("inserting observation %d: %w", i, err)
		}
	}
	return tx.Commit()
}

func scanBatch(sc interface{ Scan(...any) error }) (Batch, error) {
	var b Batch
	var lastError sql.NullString
	var createdAt, updatedAt string
	if err := sc.Scan(&b.ID, &b.Label, &b.Status, &b.RowCount, &b.Attempts, &lastError, &createdAt, &updatedAt); err != nil {
		return Batch{}, err
	}
	b.LastError = lastError.String
	var err error
	if b.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return Batch{}, fmt.Errorf("parsing created_at: %w", err)
	}
	if b.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return Batch{}, fmt.Errorf("parsing updated_at: %w", err)
	}
	return b, nil
}

const batchColumns = `id, label, status, row_count, attempts, last_error, created_at, updated_at`

func (s *Store) GetBatch(id string) (Batch, error) {
	b, err := scanBatch(s.db.QueryRow(`SELECT `+batchColumns+` FROM batches WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return Batch{}, ErrNotFound
	}
	return b, err
}

// ListBatches returns the most recent batches first.
func (s *Store) ListBatches(limit int) ([]Batch, error) {
	rows, err := s.db.Query(`SELECT `+batchColumns+` FROM batches ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Batch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, b)
	}
	return results, rows.Err()
}

// GetObservations returns the rows of a batch in input order.
func (s *Store) GetObservations(batchID string) ([]record.Row, error) {
	if _, err := s.GetBatch(batchID); err != nil {
		return nil, err
	}
	rows, err := s.db.Query(`
		SELECT row_id, text, unit_id, start_time, end_time
		FROM observations WHERE batch_id = ? ORDER BY row_idx ASC`, batchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := []record.Row{}
	for rows.Next() {
		var r record.Row
		if err := rows.Scan(&r.RowID, &r.Observation, &r.UnitID, &r.StartTime, &r.EndTime); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// SetBatchStatus updates the status of a batch. An empty lastError clears
// the previous one.
func (s *Store) SetBatchStatus(id, status, lastError string) error {
	var errVal any
	if lastError != "" {
		errVal = lastError
	}
	res, err := s.db.Exec(`UPDATE batches SET status = ?, last_error = ?, updated_at = ? WHERE id = ?`,
		status, errVal, time.Now().UTC().Format(time.RFC3339), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Records ---

var recordTables = [...]string{"simple_records", "maintenance_records", "final_records"}

// SaveResults stores the three collections of a successful run and marks
// the batch completed, all in one transaction. Previous results of the
// batch are replaced.
func (s *Store) SaveResults(ctx context.Context, batchID string, res batch.Result) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning results transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339)
	upd, err := tx.ExecContext(ctx, `
		UPDATE batches SET status = ?, attempts = ?, last_error = NULL, updated_at = ? WHERE id = ?`,
		BatchCompleted, res.Attempts, now, batchID)
	if err != nil {
		return fmt.Errorf("updating batch: %w", err)
	}
	if n, err := upd.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return ErrNotFound
	}

	for _, table := range recordTables {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE batch_id = ?`, batchID); err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
	}
	if err := insertDocs(ctx, tx, "simple_records", batchID, res.SimpleRecords); err != nil {
		return err
	}
	if err := insertDocs(ctx, tx, "maintenance_records", batchID, res.Records); err != nil {
		return err
	}
	if err := insertDocs(ctx, tx, "final_records", batchID, res.FinalRecords); err != nil {
		return err
	}

	return tx.Commit()
}

func insertDocs[T any](ctx context.Context, tx *sql.Tx, table, batchID string, docs []T) error {
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO `+table+` (batch_id, row_idx, doc_json) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing %s insert: %w", table, err)
	}
	defer stmt.Close()

	for i, d := range docs {
		data, err := json.Marshal(d)
		if err != nil {
			return fmt.Errorf("encoding %s row %d: %w", table, i, err)
		}
		if _, err := stmt.ExecContext(ctx, batchID, i, string(data)); err != nil {
			return fmt.Errorf("inserting %s row %d: %w", table, i, err)
		}
	}
	return nil
}

func listDocs[T any](s *Store, table, batchID string) ([]T, error) {
	if _, err := s.GetBatch(batchID); err != nil {
		return nil, err
	}
	rows, err := s.db.Query(`SELECT doc_json FROM `+table+` WHERE batch_id = ? ORDER BY row_idx ASC`, batchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := []T{}
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var d T
		if err := json.Unmarshal([]byte(raw), &d); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", table, err)
		}
		results = append(results, d)
	}
	return results, rows.Err()
}

func (s *Store) ListSimpleRecords(batchID string) ([]record.SimpleMaintenanceRecord, error) {
	return listDocs[record.SimpleMaintenanceRecord](s, "simple_records", batchID)
}

func (s *Store) ListRecords(batchID string) ([]record.MaintenanceRecord, error) {
	return listDocs[record.MaintenanceRecord](s, "maintenance_records", batchID)
}

func (s *Store) ListFinalRecords(batchID string) ([]record.FinalMaintenanceRecord, error) {
	return listDocs[record.FinalMaintenanceRecord](s, "final_records", batchID)
}
