package store

import (
	"database/sql"
	"errors"
	"fmt"

	"queuectl/internal/lifecycle"
	"queuectl/internal/model"
)

const jobColumns = "id, command, state, attempts, max_retries, created_at, updated_at, locked_by, locked_at, retry_at"

// eligibleWhere matches jobs a worker may claim: pending, or failed with
// the retry time already elapsed.
const eligibleWhere = "(state = 'pending' OR (state = 'failed' AND retry_at <= ?))"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*model.Job, error) {
	var (
		j                    model.Job
		state                string
		createdAt, updatedAt string
		lockedBy             sql.NullString
		lockedAt, retryAt    sql.NullString
	)
	err := row.Scan(&j.ID, &j.Command, &state, &j.Attempts, &j.MaxRetries,
		&createdAt, &updatedAt, &lockedBy, &lockedAt, &retryAt)
	if err != nil {
		return nil, err
	}

	j.State = model.JobState(state)
	if j.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if j.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	if lockedBy.Valid {
		j.LockedBy = lockedBy.String
	}
	if lockedAt.Valid {
		t, err := parseTime(lockedAt.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse locked_at: %w", err)
		}
		j.LockedAt = &t
	}
	if retryAt.Valid {
		t, err := parseTime(retryAt.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse retry_at: %w", err)
		}
		j.RetryAt = &t
	}
	return &j, nil
}

// CreateJob inserts a new pending job. When maxRetries is nil the config
// default applies. Returns ErrDuplicateID if the id is already taken.
func (s *Store) CreateJob(id, command string, maxRetries *int) (*model.Job, error) {
	retries := lifecycle.DefaultMaxRetries
	if maxRetries != nil {
		retries = *maxRetries
	} else if v, err := s.ConfigInt("max_retries", lifecycle.DefaultMaxRetries); err == nil {
		retries = v
	}

	now := s.now()
	nowStr := formatTime(now)
	_, err := s.db.Exec(`
		INSERT INTO jobs (id, command, state, attempts, max_retries, created_at, updated_at)
		VALUES (?, ?, ?, 0, ?, ?, ?)`,
		id, command, string(model.StatePending), retries, nowStr, nowStr)
	if err != nil {
		return nil, mapErr("failed to create job", err)
	}

	return &model.Job{
		ID:         id,
		Command:    command,
		State:      model.StatePending,
		MaxRetries: retries,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// ClaimNext atomically claims the oldest eligible job for workerID and
// returns it, or nil when nothing is claimable. The eligibility predicate
// is re-checked by the UPDATE itself, so at most one concurrent caller can
// win a given job regardless of interleaving.
func (s *Store) ClaimNext(workerID string) (*model.Job, error) {
	now := formatTime(s.now())
	row := s.db.QueryRow(`
		UPDATE jobs
		SET state = 'processing',
			locked_by = ?,
			locked_at = ?,
			updated_at = ?,
			attempts = attempts + 1,
			retry_at = NULL
		WHERE id = (
			SELECT id FROM jobs
			WHERE `+eligibleWhere+`
			ORDER BY created_at ASC, id ASC
			LIMIT 1
		)
		AND `+eligibleWhere+`
		RETURNING `+jobColumns,
		workerID, now, now, now, now)

	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, mapErr("failed to claim job", err)
	}
	return job, nil
}

// MarkCompleted finalizes a successful attempt. The job must currently be
// processing.
func (s *Store) MarkCompleted(id string) error {
	res, err := s.db.Exec(`
		UPDATE jobs
		SET state = 'completed', locked_by = NULL, locked_at = NULL, retry_at = NULL, updated_at = ?
		WHERE id = ? AND state = 'processing'`,
		formatTime(s.now()), id)
	if err != nil {
		return mapErr("failed to mark job completed", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to mark job completed: %w", err)
	}
	if rows == 0 {
		return s.transitionConflict(id)
	}
	return nil
}

// MarkFailed finalizes a failed attempt: the job moves to dead once its
// retry budget is exhausted, otherwise to failed with retry_at pushed out
// by the backoff strategy. Returns the updated job.
func (s *Store) MarkFailed(id string, backoff lifecycle.Strategy) (*model.Job, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, mapErr("failed to mark job failed", err)
	}
	defer tx.Rollback()

	var attempts, maxRetries int
	err = tx.QueryRow(`SELECT attempts, max_retries FROM jobs WHERE id = ? AND state = 'processing'`, id).
		Scan(&attempts, &maxRetries)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, s.transitionConflict(id)
	}
	if err != nil {
		return nil, mapErr("failed to mark job failed", err)
	}

	now := s.now()
	next, retryAt := lifecycle.NextOnFailure(attempts, maxRetries, now, backoff)

	var retryAtVal any
	if retryAt != nil {
		retryAtVal = formatTime(*retryAt)
	}
	row := tx.QueryRow(`
		UPDATE jobs
		SET state = ?, locked_by = NULL, locked_at = NULL, retry_at = ?, updated_at = ?
		WHERE id = ? AND state = 'processing'
		RETURNING `+jobColumns,
		string(next), retryAtVal, formatTime(now), id)

	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrInvalidTransition
	}
	if err != nil {
		return nil, mapErr("failed to mark job failed", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, mapErr("failed to mark job failed", err)
	}
	return job, nil
}

// RequeueFromDLQ resets a dead job back to pending with a fresh attempt
// budget so workers can pick it up again.
func (s *Store) RequeueFromDLQ(id string) (*model.Job, error) {
	row := s.db.QueryRow(`
		UPDATE jobs
		SET state = 'pending', attempts = 0, locked_by = NULL, locked_at = NULL, retry_at = NULL, updated_at = ?
		WHERE id = ? AND state = 'dead'
		RETURNING `+jobColumns,
		formatTime(s.now()), id)

	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		if _, getErr := s.GetJob(id); getErr != nil {
			return nil, getErr
		}
		return nil, fmt.Errorf("%w: job %s is not dead", model.ErrInvalidState, id)
	}
	if err != nil {
		return nil, mapErr("failed to requeue job", err)
	}
	return job, nil
}

// GetJob returns a job by id, or ErrNotFound.
func (s *Store) GetJob(id string) (*model.Job, error) {
	row := s.db.QueryRow(`SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", model.ErrNotFound, id)
	}
	if err != nil {
		return nil, mapErr("failed to get job", err)
	}
	return job, nil
}

// ListJobs returns jobs newest first, optionally filtered by state
// (empty string means all).
func (s *Store) ListJobs(state model.JobState) ([]*model.Job, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if state != "" {
		rows, err = s.db.Query(`SELECT `+jobColumns+` FROM jobs WHERE state = ? ORDER BY created_at DESC, id ASC`, string(state))
	} else {
		rows, err = s.db.Query(`SELECT ` + jobColumns + ` FROM jobs ORDER BY created_at DESC, id ASC`)
	}
	if err != nil {
		return nil, mapErr("failed to list jobs", err)
	}
	defer rows.Close()

	var jobs []*model.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr("failed to list jobs", err)
	}
	return jobs, nil
}

// CountsByState returns a count per state with every state present.
func (s *Store) CountsByState() (map[model.JobState]int, error) {
	rows, err := s.db.Query(`SELECT state, COUNT(*) FROM jobs GROUP BY state`)
	if err != nil {
		return nil, mapErr("failed to count jobs", err)
	}
	defer rows.Close()

	counts := make(map[model.JobState]int, len(model.States))
	for _, st := range model.States {
		counts[st] = 0
	}
	for rows.Next() {
		var state string
		var count int
		if err := rows.Scan(&state, &count); err != nil {
			return nil, fmt.Errorf("failed to scan job counts: %w", err)
		}
		counts[model.JobState(state)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr("failed to count jobs", err)
	}
	return counts, nil
}

// transitionConflict distinguishes a missing job from one in the wrong
// state after a conditional update matched no rows.
func (s *Store) transitionConflict(id string) error {
	job, err := s.GetJob(id)
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: job %s is %s, not processing", model.ErrInvalidTransition, id, job.State)
}
