package model

import (
	"encoding/json"
	"fmt"
	"time"
)

type JobState string

const (
	StatePending    JobState = "pending"
	StateProcessing JobState = "processing"
	StateCompleted  JobState = "completed"
	StateFailed     JobState = "failed"
	StateDead       JobState = "dead"
)

// States lists every job state in display order.
var States = []JobState{StatePending, StateProcessing, StateCompleted, StateFailed, StateDead}

func (s JobState) Valid() bool {
	switch s {
	case StatePending, StateProcessing, StateCompleted, StateFailed, StateDead:
		return true
	}
	return false
}

// Job is a single unit of work. LockedBy is set iff the job is processing;
// RetryAt is set iff the job is failed and waiting out its backoff.
type Job struct {
	ID         string     `json:"id"`
	Command    string     `json:"command"`
	State      JobState   `json:"state"`
	Attempts   int        `json:"attempts"`
	MaxRetries int        `json:"max_retries"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	LockedBy   string     `json:"locked_by,omitempty"`
	LockedAt   *time.Time `json:"locked_at,omitempty"`
	RetryAt    *time.Time `json:"retry_at,omitempty"`
}

// EnqueueRequest is the JSON body accepted by the enqueue command.
type EnqueueRequest struct {
	ID         string `json:"id"`
	Command    string `json:"command"`
	MaxRetries *int   `json:"max_retries,omitempty"`
}

// ParseEnqueueRequest validates the raw JSON for a new job.
func ParseEnqueueRequest(raw string) (*EnqueueRequest, error) {
	var req EnqueueRequest
	if err := json.Unmarshal([]byte(raw), &req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	if req.ID == "" {
		return nil, ErrMissingID
	}
	if req.Command == "" {
		return nil, ErrMissingCommand
	}
	if req.MaxRetries != nil && *req.MaxRetries < 0 {
		return nil, fmt.Errorf("%w: max_retries must be non-negative", ErrInvalidJSON)
	}
	return &req, nil
}
