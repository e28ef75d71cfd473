package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/stackup-cli/internal/core/domain"
	"github.com/custodia-labs/stackup-cli/internal/core/ports/driven"
)

// runHistoryStore implements driven.RunHistoryStore.
type runHistoryStore struct {
	store *Store
}

var _ driven.RunHistoryStore = (*runHistoryStore)(nil)

// Save stores a run report with its steps and non-secret outputs. Saving
// the same run ID again replaces the earlier record.
func (s *runHistoryStore) Save(ctx context.Context, report *domain.RunReport) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// Cascades to run_steps and run_outputs
	if _, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, report.ID); err != nil {
		return fmt.Errorf("replacing run: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, workflow, project, state, failed_step, error, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, report.ID, report.Workflow, report.Project, report.State.String(),
		report.FailedStep, report.Error, report.StartedAt.UTC(), nullTime(report.FinishedAt))
	if err != nil {
		return fmt.Errorf("saving run: %w", err)
	}

	for _, step := range report.Steps {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO run_steps (run_id, number, name, service, tool, phase, status, error, started_at, finished_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, report.ID, step.Number, step.Name, step.Service, step.Tool,
			step.Phase.String(), string(step.Status), step.Error,
			nullTime(step.StartedAt), nullTime(step.FinishedAt))
		if err != nil {
			return fmt.Errorf("saving step %d: %w", step.Number, err)
		}
	}

	for _, out := range report.PublicOutputs() {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO run_outputs (run_id, service, key, value) VALUES (?, ?, ?, ?)
		`, report.ID, out.Service, out.Key, out.Value)
		if err != nil {
			return fmt.Errorf("saving output %s.%s: %w", out.Service, out.Key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing run: %w", err)
	}
	return nil
}

// Get retrieves a run report by ID.
func (s *runHistoryStore) Get(ctx context.Context, id string) (*domain.RunReport, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, workflow, project, state, failed_step, error, started_at, finished_at
		FROM runs WHERE id = ?
	`, id)

	report, err := scanRun(row)
	if err != nil {
		return nil, err
	}
	if err := s.loadDetails(ctx, report); err != nil {
		return nil, err
	}
	return report, nil
}

// List returns the most recent reports, newest first.
func (s *runHistoryStore) List(ctx context.Context, limit int) ([]*domain.RunReport, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, workflow, project, state, failed_step, error, started_at, finished_at
		FROM runs ORDER BY started_at DESC, id LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var reports []*domain.RunReport //nolint:prealloc // size unknown from query
	for rows.Next() {
		report, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating runs: %w", err)
	}

	for _, report := range reports {
		if err := s.loadDetails(ctx, report); err != nil {
			return nil, err
		}
	}
	return reports, nil
}

// loadDetails fills the steps and outputs of report.
func (s *runHistoryStore) loadDetails(ctx context.Context, report *domain.RunReport) error {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT number, name, service, tool, phase, status, error, started_at, finished_at
		FROM run_steps WHERE run_id = ? ORDER BY number
	`, report.ID)
	if err != nil {
		return fmt.Errorf("querying steps: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var step domain.StepReport
		var phase, status string
		var startedAt, finishedAt sql.NullTime
		if err := rows.Scan(&step.Number, &step.Name, &step.Service, &step.Tool,
			&phase, &status, &step.Error, &startedAt, &finishedAt); err != nil {
			return fmt.Errorf("scanning step: %w", err)
		}
		step.Phase = domain.ParseStepPhase(phase)
		step.Status = domain.StepStatus(status)
		step.StartedAt = startedAt.Time
		step.FinishedAt = finishedAt.Time
		report.Steps = append(report.Steps, step)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating steps: %w", err)
	}

	outRows, err := s.store.db.QueryContext(ctx, `
		SELECT service, key, value FROM run_outputs WHERE run_id = ? ORDER BY service, key
	`, report.ID)
	if err != nil {
		return fmt.Errorf("querying outputs: %w", err)
	}
	defer outRows.Close()

	for outRows.Next() {
		var out domain.Output
		if err := outRows.Scan(&out.Service, &out.Key, &out.Value); err != nil {
			return fmt.Errorf("scanning output: %w", err)
		}
		report.Outputs = append(report.Outputs, out)
	}
	if err := outRows.Err(); err != nil {
		return fmt.Errorf("iterating outputs: %w", err)
	}
	return nil
}

// rowScanner is implemented by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*domain.RunReport, error) {
	var report domain.RunReport
	var state string
	var startedAt, finishedAt sql.NullTime
	if err := row.Scan(&report.ID, &report.Workflow, &report.Project, &state,
		&report.FailedStep, &report.Error, &startedAt, &finishedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning run: %w", err)
	}
	report.State = domain.ParseRunState(state)
	report.StartedAt = startedAt.Time
	report.FinishedAt = finishedAt.Time
	return &report, nil
}

// nullTime stores zero times as NULL.
func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
