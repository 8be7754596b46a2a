package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jonathan/job-agent/internal/state"
	"github.com/jonathan/job-agent/internal/types"
)

// Postgres is the pgx-backed Repository. The compare-and-set contract is a
// conditional UPDATE on status; losing the race is detected via RowsAffected.
type Postgres struct {
	pool *pgxpool.Pool
}

// ConnectPostgres establishes a connection pool and ensures the jobs table
// exists.
func ConnectPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	p := &Postgres{pool: pool}
	if err := p.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return p, nil
}

// Close closes the connection pool.
func (p *Postgres) Close() {
	if p.pool != nil {
		p.pool.Close()
	}
}

func (p *Postgres) ensureSchema(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS jobs (
			id            UUID PRIMARY KEY,
			source        TEXT NOT NULL,
			mode          TEXT NOT NULL,
			status        TEXT NOT NULL,
			raw_input     JSONB,
			job_posting   JSONB,
			composed_cv   JSONB,
			document_path TEXT NOT NULL DEFAULT '',
			feedback      TEXT NOT NULL DEFAULT '',
			retry_count   INT NOT NULL DEFAULT 0,
			error_message TEXT NOT NULL DEFAULT '',
			receipt       JSONB,
			created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			applied_at    TIMESTAMPTZ
		);
		CREATE INDEX IF NOT EXISTS jobs_status_idx ON jobs (status);
	`)
	if err != nil {
		return fmt.Errorf("failed to ensure jobs schema: %w", err)
	}
	return nil
}

// Create inserts a new record.
func (p *Postgres) Create(ctx context.Context, rec *types.JobRecord) error {
	rawInput, err := marshalNullable(rec.RawInput)
	if err != nil {
		return fmt.Errorf("failed to marshal raw input: %w", err)
	}
	posting, err := marshalNullable(rec.JobPosting)
	if err != nil {
		return fmt.Errorf("failed to marshal job posting: %w", err)
	}
	cv, err := marshalNullable(rec.ComposedCV)
	if err != nil {
		return fmt.Errorf("failed to marshal composed cv: %w", err)
	}

	_, err = p.pool.Exec(ctx,
		`INSERT INTO jobs (id, source, mode, status, raw_input, job_posting, composed_cv,
		                   document_path, feedback, retry_count, error_message, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		rec.ID, rec.Source, rec.Mode, rec.Status, rawInput, posting, cv,
		rec.DocumentPath, rec.Feedback, rec.RetryCount, rec.ErrorMessage,
		rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create job record: %w", err)
	}
	return nil
}

// Get retrieves a record by id.
func (p *Postgres) Get(ctx context.Context, id uuid.UUID) (*types.JobRecord, error) {
	row := p.pool.QueryRow(ctx, selectColumns+` FROM jobs WHERE id = $1`, id)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{ID: id}
		}
		return nil, fmt.Errorf("failed to get job record: %w", err)
	}
	return rec, nil
}

// Update applies the patch. When ExpectedStatus is set the UPDATE is
// conditional on the current status; no row coming back means either the
// record is gone or another invocation claimed it first. RETURNING makes the
// returned record exactly the row this update produced, not a later read.
func (p *Postgres) Update(ctx context.Context, id uuid.UUID, patch Patch) (*types.JobRecord, error) {
	query, args, err := buildUpdateQuery(id, patch)
	if err != nil {
		return nil, err
	}

	row := p.pool.QueryRow(ctx, query, args...)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Distinguish a lost claim race from a missing record.
			current, getErr := p.Get(ctx, id)
			if getErr != nil {
				return nil, getErr
			}
			expected := state.Status("")
			if patch.ExpectedStatus != nil {
				expected = *patch.ExpectedStatus
			}
			return nil, &ConcurrentModificationError{ID: id, Expected: expected, Actual: current.Status}
		}
		return nil, fmt.Errorf("failed to update job record: %w", err)
	}
	return rec, nil
}

// buildUpdateQuery assembles the dynamic UPDATE for a patch: one SET entry
// per non-nil field, the id always as $1, and the CAS status guard as the
// final placeholder when ExpectedStatus is set.
func buildUpdateQuery(id uuid.UUID, patch Patch) (string, []any, error) {
	sets := []string{"updated_at = NOW()"}
	args := []any{id}
	argNum := 2

	addSet := func(column string, value any) {
		sets = append(sets, fmt.Sprintf("%s = $%d", column, argNum))
		args = append(args, value)
		argNum++
	}

	if patch.Status != nil {
		addSet("status", *patch.Status)
	}
	if patch.JobPosting != nil {
		raw, err := json.Marshal(patch.JobPosting)
		if err != nil {
			return "", nil, fmt.Errorf("failed to marshal job posting: %w", err)
		}
		addSet("job_posting", raw)
	}
	if patch.ComposedCV != nil {
		raw, err := json.Marshal(patch.ComposedCV)
		if err != nil {
			return "", nil, fmt.Errorf("failed to marshal composed cv: %w", err)
		}
		addSet("composed_cv", raw)
	}
	if patch.DocumentPath != nil {
		addSet("document_path", *patch.DocumentPath)
	}
	if patch.Feedback != nil {
		addSet("feedback", *patch.Feedback)
	}
	if patch.RetryCount != nil {
		addSet("retry_count", *patch.RetryCount)
	}
	if patch.ErrorMessage != nil {
		addSet("error_message", *patch.ErrorMessage)
	}
	if patch.Receipt != nil {
		raw, err := json.Marshal(patch.Receipt)
		if err != nil {
			return "", nil, fmt.Errorf("failed to marshal receipt: %w", err)
		}
		addSet("receipt", raw)
	}
	if patch.AppliedAt != nil {
		addSet("applied_at", *patch.AppliedAt)
	}

	query := "UPDATE jobs SET " + strings.Join(sets, ", ") + " WHERE id = $1"
	if patch.ExpectedStatus != nil {
		query += fmt.Sprintf(" AND status = $%d", argNum)
		args = append(args, *patch.ExpectedStatus)
	}
	query += " RETURNING " + jobColumns

	return query, args, nil
}

// ListByStatus retrieves records in the given status, newest first.
func (p *Postgres) ListByStatus(ctx context.Context, status state.Status) ([]*types.JobRecord, error) {
	rows, err := p.pool.Query(ctx,
		selectColumns+` FROM jobs WHERE status = $1 ORDER BY created_at DESC`, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list job records: %w", err)
	}
	defer rows.Close()

	var out []*types.JobRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job record: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

const jobColumns = `id, source, mode, status, raw_input, job_posting, composed_cv,
	document_path, feedback, retry_count, error_message, receipt,
	created_at, updated_at, applied_at`

const selectColumns = `SELECT ` + jobColumns

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*types.JobRecord, error) {
	var rec types.JobRecord
	var rawInput, posting, cv, receipt []byte

	err := row.Scan(
		&rec.ID, &rec.Source, &rec.Mode, &rec.Status,
		&rawInput, &posting, &cv,
		&rec.DocumentPath, &rec.Feedback, &rec.RetryCount, &rec.ErrorMessage, &receipt,
		&rec.CreatedAt, &rec.UpdatedAt, &rec.AppliedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := unmarshalNullable(rawInput, &rec.RawInput); err != nil {
		return nil, fmt.Errorf("failed to decode raw input: %w", err)
	}
	if err := unmarshalNullable(posting, &rec.JobPosting); err != nil {
		return nil, fmt.Errorf("failed to decode job posting: %w", err)
	}
	if err := unmarshalNullable(cv, &rec.ComposedCV); err != nil {
		return nil, fmt.Errorf("failed to decode composed cv: %w", err)
	}
	if err := unmarshalNullable(receipt, &rec.Receipt); err != nil {
		return nil, fmt.Errorf("failed to decode receipt: %w", err)
	}
	return &rec, nil
}

func marshalNullable(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	switch t := v.(type) {
	case *types.RawInput:
		if t == nil {
			return nil, nil
		}
	case *types.JobPosting:
		if t == nil {
			return nil, nil
		}
	case *types.StructuredCV:
		if t == nil {
			return nil, nil
		}
	}
	return json.Marshal(v)
}

func unmarshalNullable[T any](raw []byte, dst **T) error {
	if len(raw) == 0 {
		return nil
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return err
	}
	*dst = &v
	return nil
}
