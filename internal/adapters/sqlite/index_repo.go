// Package sqlite contains SQLite implementations of repository interfaces.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/example/bidsfix/internal/ports/secondary"
)

// IndexRepository implements secondary.IndexStore with SQLite.
type IndexRepository struct {
	db *sql.DB
}

// NewIndexRepository creates a new SQLite dataset index repository.
func NewIndexRepository(db *sql.DB) *IndexRepository {
	return &IndexRepository{db: db}
}

const acquisitionColumns = "rel_path, path, subject, session, datatype, task, acquisition, run, direction, suffix, extension"

// Replace discards the stored index and stores the given records in one transaction.
func (r *IndexRepository) Replace(ctx context.Context, root string, records []*secondary.AcquisitionRecord) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin index transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM acquisitions"); err != nil {
		return fmt.Errorf("failed to clear acquisitions: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO acquisitions ("+acquisitionColumns+", run_number) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
	)
	if err != nil {
		return fmt.Errorf("failed to prepare acquisition insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		var runNumber sql.NullInt64
		if n, err := strconv.Atoi(rec.Run); err == nil {
			runNumber = sql.NullInt64{Int64: int64(n), Valid: true}
		}
		_, err := stmt.ExecContext(ctx,
			rec.RelPath, rec.Path, rec.Subject, rec.Session, rec.Datatype, rec.Task,
			rec.Acquisition, rec.Run, rec.Direction, rec.Suffix, rec.Extension, runNumber,
		)
		if err != nil {
			return fmt.Errorf("failed to insert acquisition %s: %w", rec.RelPath, err)
		}
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO index_meta (id, root, built_at) VALUES (1, ?, ?) ON CONFLICT(id) DO UPDATE SET root = excluded.root, built_at = excluded.built_at",
		root, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to record index metadata: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit index: %w", err)
	}
	return nil
}

// Query returns the acquisitions matching the filter, ordered by relative path.
// Task patterns are applied after the SQL query.
func (r *IndexRepository) Query(ctx context.Context, filter secondary.AcquisitionFilter) ([]*secondary.AcquisitionRecord, error) {
	var (
		where []string
		args  []any
	)
	add := func(clause string, arg any) {
		where = append(where, clause)
		args = append(args, arg)
	}

	if filter.Subject != "" {
		add("subject = ?", filter.Subject)
	}
	if filter.Session != "" {
		add("session = ?", filter.Session)
	}
	if filter.Datatype != "" {
		add("datatype = ?", filter.Datatype)
	}
	if filter.Task != "" {
		add("task = ?", filter.Task)
	}
	if filter.Run != 0 {
		add("run_number = ?", filter.Run)
	}
	if filter.Extension != "" {
		add("extension = ?", secondary.NormalizeExtension(filter.Extension))
	}

	query := "SELECT " + acquisitionColumns + " FROM acquisitions"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY rel_path ASC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query acquisitions: %w", err)
	}
	defer rows.Close()

	var records []*secondary.AcquisitionRecord
	for rows.Next() {
		rec := &secondary.AcquisitionRecord{}
		err := rows.Scan(&rec.RelPath, &rec.Path, &rec.Subject, &rec.Session, &rec.Datatype, &rec.Task,
			&rec.Acquisition, &rec.Run, &rec.Direction, &rec.Suffix, &rec.Extension)
		if err != nil {
			return nil, fmt.Errorf("failed to scan acquisition: %w", err)
		}
		if filter.TaskPattern != nil && !filter.TaskPattern.MatchString(rec.Task) {
			continue
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read acquisitions: %w", err)
	}

	return records, nil
}

// Meta returns information about the stored index.
func (r *IndexRepository) Meta(ctx context.Context) (*secondary.IndexMeta, error) {
	var (
		meta    secondary.IndexMeta
		builtAt time.Time
	)
	err := r.db.QueryRowContext(ctx, "SELECT root, built_at FROM index_meta WHERE id = 1").Scan(&meta.Root, &builtAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("index has not been built")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read index metadata: %w", err)
	}
	meta.BuiltAt = builtAt.Format(time.RFC3339)

	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM acquisitions").Scan(&meta.RecordCount); err != nil {
		return nil, fmt.Errorf("failed to count acquisitions: %w", err)
	}
	return &meta, nil
}

// Ensure IndexRepository implements the interface.
var _ secondary.IndexStore = (*IndexRepository)(nil)
