package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// JobStatus is the final state of a compositing job.
type JobStatus string

const (
	JobSucceeded JobStatus = "success"
	JobFailed    JobStatus = "error"
)

// TokenOutcome records what happened to one gloss token.
type TokenOutcome string

const (
	TokenResolved TokenOutcome = "resolved"
	TokenMissing  TokenOutcome = "missing"
	TokenFailed   TokenOutcome = "failed"
)

// JobToken is one token of a job in sentence order.
type JobToken struct {
	Position int          `json:"position"`
	Token    string       `json:"token"`
	Outcome  TokenOutcome `json:"outcome"`
	Clip     string       `json:"clip,omitempty"`
}

// Job is a finished gloss compositing job.
type Job struct {
	ID         string     `json:"id"`
	Sentence   string     `json:"sentence"`
	Status     JobStatus  `json:"status"`
	Output     string     `json:"output,omitempty"`
	FPS        float64    `json:"fps,omitempty"`
	Error      string     `json:"error,omitempty"`
	DurationMs int64      `json:"duration_ms"`
	CreatedAt  time.Time  `json:"created_at"`
	Tokens     []JobToken `json:"tokens,omitempty"`
}

// JobRepository stores job history.
type JobRepository struct {
	db *sql.DB
}

// Jobs returns the job repository for this store.
func (s *Store) Jobs() *JobRepository {
	return &JobRepository{db: s.db}
}

// Create inserts a job and its tokens in one transaction.
func (r *JobRepository) Create(j *Job) error {
	if j.CreatedAt.IsZero() {
		j.CreatedAt = time.Now()
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO jobs (id, sentence, status, output, fps, error, duration_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		j.ID, j.Sentence, string(j.Status), j.Output, j.FPS, j.Error, j.DurationMs, j.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert job: %w", err)
	}

	for _, t := range j.Tokens {
		_, err := tx.Exec(
			`INSERT INTO job_tokens (job_id, position, token, outcome, clip) VALUES (?, ?, ?, ?, ?)`,
			j.ID, t.Position, t.Token, string(t.Outcome), t.Clip,
		)
		if err != nil {
			return fmt.Errorf("failed to insert token: %w", err)
		}
	}

	return tx.Commit()
}

// GetByID retrieves a job and its tokens.
func (r *JobRepository) GetByID(id string) (*Job, error) {
	j := &Job{}
	var status string

	err := r.db.QueryRow(
		`SELECT id, sentence, status, output, fps, error, duration_ms, created_at
		 FROM jobs WHERE id = ?`,
		id,
	).Scan(&j.ID, &j.Sentence, &status, &j.Output, &j.FPS, &j.Error, &j.DurationMs, &j.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	j.Status = JobStatus(status)

	rows, err := r.db.Query(
		`SELECT position, token, outcome, clip FROM job_tokens
		 WHERE job_id = ? ORDER BY position`,
		id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var t JobToken
		var outcome string
		if err := rows.Scan(&t.Position, &t.Token, &outcome, &t.Clip); err != nil {
			return nil, err
		}
		t.Outcome = TokenOutcome(outcome)
		j.Tokens = append(j.Tokens, t)
	}

	return j, rows.Err()
}

// List returns the most recent jobs first, without tokens.
// A limit <= 0 returns every job.
func (r *JobRepository) List(limit int) ([]*Job, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := r.db.Query(
		`SELECT id, sentence, status, output, fps, error, duration_ms, created_at
		 FROM jobs ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		j := &Job{}
		var status string

		err := rows.Scan(&j.ID, &j.Sentence, &status, &j.Output, &j.FPS, &j.Error, &j.DurationMs, &j.CreatedAt)
		if err != nil {
			return nil, err
		}

		j.Status = JobStatus(status)
		jobs = append(jobs, j)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return jobs, nil
}

// Delete removes a job and its tokens.
func (r *JobRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM jobs WHERE id = ?`, id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}
