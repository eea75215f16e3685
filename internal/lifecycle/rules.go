package lifecycle

import (
	"time"

	"queuectl/internal/model"
)

// Eligible reports whether a job may be claimed at the given instant:
// pending, or failed with its retry time already elapsed.
func Eligible(j *model.Job, now time.Time) bool {
	switch j.State {
	case model.StatePending:
		return true
	case model.StateFailed:
		return j.RetryAt == nil || !j.RetryAt.After(now)
	}
	return false
}

// NextOnFailure decides where a processing job goes after a failed attempt.
// attempts is the post-claim count, so the job dies on exactly the attempt
// that exceeds its retry budget. For a retry it returns StateFailed and the
// time the job becomes eligible again.
func NextOnFailure(attempts, maxRetries int, now time.Time, s Strategy) (model.JobState, *time.Time) {
	if attempts >= maxRetries+1 {
		return model.StateDead, nil
	}
	retryAt := now.Add(s.Delay(attempts))
	return model.StateFailed, &retryAt
}
