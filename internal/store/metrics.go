package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Metric counter keys maintained by the worker loop.
const (
	MetricProcessed = "jobs_processed"
	MetricSucceeded = "jobs_succeeded"
	MetricFailed    = "jobs_failed"
	MetricTimeout   = "jobs_timeout"
)

// Execution records one attempt at running a job's command.
type Execution struct {
	JobID       string    `json:"job_id"`
	Command     string    `json:"command,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
	DurationMs  int64     `json:"duration_ms"`
	Success     bool      `json:"success"`
	Timeout     bool      `json:"timeout"`
	Error       string    `json:"error,omitempty"`
	Output      string    `json:"output,omitempty"`
}

// ExecutionStats aggregates the counters and recent execution history for
// the status API.
type ExecutionStats struct {
	TotalProcessed int64   `json:"total_processed"`
	TotalSucceeded int64   `json:"total_succeeded"`
	TotalFailed    int64   `json:"total_failed"`
	TotalTimeout   int64   `json:"total_timeout"`
	SuccessRate    float64 `json:"success_rate"`
	AvgDurationMs  float64 `json:"avg_duration_ms"`
	Recent24hCount int64   `json:"recent_24h_count"`
}

// IncrementMetric bumps a named counter by one.
func (s *Store) IncrementMetric(key string) error {
	now := formatTime(s.now())
	_, err := s.db.Exec(`
		INSERT INTO metrics (key, value, updated_at) VALUES (?, 1, ?)
		ON CONFLICT(key) DO UPDATE SET value = value + 1, updated_at = ?`,
		key, now, now)
	if err != nil {
		return mapErr("failed to increment metric", err)
	}
	return nil
}

// GetMetric returns a counter value, zero when never incremented.
func (s *Store) GetMetric(key string) (int64, error) {
	var value int64
	err := s.db.QueryRow(`SELECT value FROM metrics WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, mapErr("failed to get metric", err)
	}
	return value, nil
}

// RecordExecution appends one execution to the history table.
func (s *Store) RecordExecution(e Execution) error {
	success, timeout := 0, 0
	if e.Success {
		success = 1
	}
	if e.Timeout {
		timeout = 1
	}
	_, err := s.db.Exec(`
		INSERT INTO job_executions (job_id, started_at, completed_at, duration_ms, success, timeout, error, output)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.JobID, formatTime(e.StartedAt), formatTime(e.CompletedAt),
		e.DurationMs, success, timeout, e.Error, e.Output)
	if err != nil {
		return mapErr("failed to record execution", err)
	}
	return nil
}

// LatestExecution returns the most recent execution for a job, or nil when
// the job has never run.
func (s *Store) LatestExecution(jobID string) (*Execution, error) {
	row := s.db.QueryRow(`
		SELECT job_id, started_at, completed_at, duration_ms, success, timeout, error, output
		FROM job_executions
		WHERE job_id = ?
		ORDER BY id DESC
		LIMIT 1`, jobID)

	e, err := scanExecution(row, false)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, mapErr("failed to get latest execution", err)
	}
	return e, nil
}

// RecentExecutions returns up to limit executions, newest first, joined
// with each job's command for display.
func (s *Store) RecentExecutions(limit int) ([]Execution, error) {
	rows, err := s.db.Query(`
		SELECT e.job_id, e.started_at, e.completed_at, e.duration_ms, e.success, e.timeout, e.error, e.output, j.command
		FROM job_executions e
		JOIN jobs j ON e.job_id = j.id
		ORDER BY e.id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, mapErr("failed to list executions", err)
	}
	defer rows.Close()

	var executions []Execution
	for rows.Next() {
		e, err := scanExecution(rows, true)
		if err != nil {
			return nil, fmt.Errorf("failed to scan execution: %w", err)
		}
		executions = append(executions, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr("failed to list executions", err)
	}
	return executions, nil
}

// Stats computes the aggregate counters plus 24-hour rolling figures.
func (s *Store) Stats() (*ExecutionStats, error) {
	stats := &ExecutionStats{}
	var err error
	if stats.TotalProcessed, err = s.GetMetric(MetricProcessed); err != nil {
		return nil, err
	}
	if stats.TotalSucceeded, err = s.GetMetric(MetricSucceeded); err != nil {
		return nil, err
	}
	if stats.TotalFailed, err = s.GetMetric(MetricFailed); err != nil {
		return nil, err
	}
	if stats.TotalTimeout, err = s.GetMetric(MetricTimeout); err != nil {
		return nil, err
	}
	if stats.TotalProcessed > 0 {
		stats.SuccessRate = float64(stats.TotalSucceeded) / float64(stats.TotalProcessed) * 100
	}

	cutoff := formatTime(s.now().Add(-24 * time.Hour))

	var avg sql.NullFloat64
	err = s.db.QueryRow(`SELECT AVG(duration_ms) FROM job_executions WHERE started_at > ?`, cutoff).Scan(&avg)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, mapErr("failed to compute average duration", err)
	}
	if avg.Valid {
		stats.AvgDurationMs = avg.Float64
	}

	err = s.db.QueryRow(`SELECT COUNT(*) FROM job_executions WHERE started_at > ?`, cutoff).Scan(&stats.Recent24hCount)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, mapErr("failed to count recent executions", err)
	}

	return stats, nil
}

func scanExecution(row rowScanner, withCommand bool) (*Execution, error) {
	var (
		e                    Execution
		startedAt, completed string
		success, timeout     int
		errMsg, output       sql.NullString
		command              sql.NullString
	)
	dest := []any{&e.JobID, &startedAt, &completed, &e.DurationMs, &success, &timeout, &errMsg, &output}
	if withCommand {
		dest = append(dest, &command)
	}
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	var err error
	if e.StartedAt, err = parseTime(startedAt); err != nil {
		return nil, fmt.Errorf("failed to parse started_at: %w", err)
	}
	if e.CompletedAt, err = parseTime(completed); err != nil {
		return nil, fmt.Errorf("failed to parse completed_at: %w", err)
	}
	e.Success = success == 1
	e.Timeout = timeout == 1
	e.Error = errMsg.String
	e.Output = output.String
	e.Command = command.String
	return &e, nil
}
