package recorder

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const createSubmissionsTable = `
CREATE TABLE IF NOT EXISTS submissions (
	id           UUID PRIMARY KEY,
	eval_uuid    TEXT NOT NULL,
	problem_id   TEXT,
	problem_name TEXT,
	language     TEXT NOT NULL,
	source_code  TEXT NOT NULL,
	status       TEXT NOT NULL,
	verdict      TEXT,
	passed       INTEGER NOT NULL,
	total        INTEGER NOT NULL,
	results      JSONB NOT NULL,
	submitted_at TIMESTAMPTZ NOT NULL
)`

const insertSubmission = `
INSERT INTO submissions (
	id, eval_uuid, problem_id, problem_name, language, source_code,
	status, verdict, passed, total, results, submitted_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

// PgSink stores records in the submissions table of a Postgres database.
type PgSink struct {
	pool *pgxpool.Pool
}

// NewPgSink connects and creates the submissions table when missing.
func NewPgSink(ctx context.Context, dsn string) (*PgSink, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to reach postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, createSubmissionsTable); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create submissions table: %w", err)
	}
	return &PgSink{pool: pool}, nil
}

func (s *PgSink) Save(ctx context.Context, rec Record) error {
	results, err := json.Marshal(rec.Results)
	if err != nil {
		return fmt.Errorf("failed to encode results: %w", err)
	}
	var verdict *string
	if rec.Verdict != "" {
		v := string(rec.Verdict)
		verdict = &v
	}
	_, err = s.pool.Exec(ctx, insertSubmission,
		rec.ID, rec.EvalUuid, rec.ProblemID, rec.ProblemName, rec.Language, rec.SourceCode,
		string(rec.Status), verdict, rec.Passed, rec.Total, results, rec.SubmittedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert submission %s: %w", rec.ID, err)
	}
	return nil
}

func (s *PgSink) Close() {
	s.pool.Close()
}
