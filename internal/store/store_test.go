package store_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"queuectl/internal/lifecycle"
	"queuectl/internal/model"
	"queuectl/internal/store"
)

// clock is a mutable time source shared with the store under test.
type clock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *clock {
	return &clock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestStore(t *testing.T) (*store.Store, *clock) {
	t.Helper()
	c := newClock()
	st, err := store.Open(t.TempDir(), store.WithClock(c.now))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st, c
}

func intPtr(n int) *int { return &n }

func TestCreateJob(t *testing.T) {
	st, _ := newTestStore(t)

	job, err := st.CreateJob("j1", "echo hello", nil)
	if err != nil {
		t.Fatalf("unexpected create error: %v", err)
	}
	if job.State != model.StatePending {
		t.Errorf("state = %s, want pending", job.State)
	}
	if job.Attempts != 0 {
		t.Errorf("attempts = %d, want 0", job.Attempts)
	}
	if job.MaxRetries != 3 {
		t.Errorf("max_retries = %d, want seeded default 3", job.MaxRetries)
	}

	got, err := st.GetJob("j1")
	if err != nil {
		t.Fatalf("unexpected get error: %v", err)
	}
	if got.LockedBy != "" || got.LockedAt != nil {
		t.Errorf("new job must not be locked: locked_by=%q locked_at=%v", got.LockedBy, got.LockedAt)
	}
	if got.RetryAt != nil {
		t.Errorf("new job must not have retry_at set")
	}
}

func TestCreateJob_DuplicateID(t *testing.T) {
	st, _ := newTestStore(t)

	if _, err := st.CreateJob("j1", "true", nil); err != nil {
		t.Fatalf("unexpected create error: %v", err)
	}
	_, err := st.CreateJob("j1", "false", nil)
	if !errors.Is(err, model.ErrDuplicateID) {
		t.Fatalf("error = %v, want ErrDuplicateID", err)
	}

	// The rejected create must leave the original untouched.
	got, err := st.GetJob("j1")
	if err != nil {
		t.Fatalf("unexpected get error: %v", err)
	}
	if got.Command != "true" {
		t.Errorf("command = %q, want original %q", got.Command, "true")
	}
}

func TestCreateJob_MaxRetriesFromConfig(t *testing.T) {
	st, _ := newTestStore(t)

	if err := st.SetConfig("max_retries", "7"); err != nil {
		t.Fatalf("unexpected set config error: %v", err)
	}
	job, err := st.CreateJob("j1", "true", nil)
	if err != nil {
		t.Fatalf("unexpected create error: %v", err)
	}
	if job.MaxRetries != 7 {
		t.Errorf("max_retries = %d, want config value 7", job.MaxRetries)
	}

	explicit, err := st.CreateJob("j2", "true", intPtr(1))
	if err != nil {
		t.Fatalf("unexpected create error: %v", err)
	}
	if explicit.MaxRetries != 1 {
		t.Errorf("max_retries = %d, want explicit 1", explicit.MaxRetries)
	}
}

func TestClaimNext_FIFO(t *testing.T) {
	st, c := newTestStore(t)

	if _, err := st.CreateJob("older", "true", nil); err != nil {
		t.Fatal(err)
	}
	c.advance(time.Second)
	if _, err := st.CreateJob("newer", "true", nil); err != nil {
		t.Fatal(err)
	}

	first, err := st.ClaimNext("w1")
	if err != nil {
		t.Fatalf("unexpected claim error: %v", err)
	}
	if first == nil || first.ID != "older" {
		t.Fatalf("first claim = %v, want older", first)
	}
	second, err := st.ClaimNext("w1")
	if err != nil {
		t.Fatalf("unexpected claim error: %v", err)
	}
	if second == nil || second.ID != "newer" {
		t.Fatalf("second claim = %v, want newer", second)
	}
	third, err := st.ClaimNext("w1")
	if err != nil {
		t.Fatalf("unexpected claim error: %v", err)
	}
	if third != nil {
		t.Fatalf("third claim = %v, want nil", third)
	}
}

func TestClaimNext_TieBreakByID(t *testing.T) {
	st, _ := newTestStore(t)

	// Same created_at for both, so id order decides.
	for _, id := range []string{"b", "a"} {
		if _, err := st.CreateJob(id, "true", nil); err != nil {
			t.Fatal(err)
		}
	}
	job, err := st.ClaimNext("w1")
	if err != nil {
		t.Fatalf("unexpected claim error: %v", err)
	}
	if job.ID != "a" {
		t.Errorf("claimed %s, want a", job.ID)
	}
}

func TestClaimNext_SetsLockAndAttempts(t *testing.T) {
	st, _ := newTestStore(t)

	if _, err := st.CreateJob("j1", "true", nil); err != nil {
		t.Fatal(err)
	}
	job, err := st.ClaimNext("w1")
	if err != nil {
		t.Fatalf("unexpected claim error: %v", err)
	}
	if job.State != model.StateProcessing {
		t.Errorf("state = %s, want processing", job.State)
	}
	if job.LockedBy != "w1" || job.LockedAt == nil {
		t.Errorf("lock fields not set: locked_by=%q locked_at=%v", job.LockedBy, job.LockedAt)
	}
	if job.Attempts != 1 {
		t.Errorf("attempts = %d, want 1", job.Attempts)
	}

	// Completing clears the lock.
	if err := st.MarkCompleted("j1"); err != nil {
		t.Fatalf("unexpected complete error: %v", err)
	}
	got, _ := st.GetJob("j1")
	if got.LockedBy != "" || got.LockedAt != nil {
		t.Errorf("lock fields not cleared after completion")
	}
}

func TestClaimNext_AtMostOneWinner(t *testing.T) {
	st, _ := newTestStore(t)

	if _, err := st.CreateJob("contested", "true", nil); err != nil {
		t.Fatal(err)
	}

	const callers = 16
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners []string
	)
	start := make(chan struct{})
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			<-start
			job, err := st.ClaimNext("w" + string(rune('a'+n)))
			if err != nil {
				t.Errorf("claim error: %v", err)
				return
			}
			if job != nil {
				mu.Lock()
				winners = append(winners, job.LockedBy)
				mu.Unlock()
			}
		}(i)
	}
	close(start)
	wg.Wait()

	if len(winners) != 1 {
		t.Fatalf("winners = %d, want exactly 1", len(winners))
	}
	got, _ := st.GetJob("contested")
	if got.Attempts != 1 {
		t.Errorf("attempts = %d, want exactly 1 after a single claim", got.Attempts)
	}
	if got.LockedBy != winners[0] {
		t.Errorf("locked_by = %q, want winner %q", got.LockedBy, winners[0])
	}
}

func TestMarkCompleted_Transitions(t *testing.T) {
	st, _ := newTestStore(t)

	if _, err := st.CreateJob("j1", "true", nil); err != nil {
		t.Fatal(err)
	}

	// Not processing yet.
	err := st.MarkCompleted("j1")
	if !errors.Is(err, model.ErrInvalidTransition) {
		t.Fatalf("error = %v, want ErrInvalidTransition", err)
	}

	// Unknown id.
	err = st.MarkCompleted("missing")
	if !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}

	if _, err := st.ClaimNext("w1"); err != nil {
		t.Fatal(err)
	}
	if err := st.MarkCompleted("j1"); err != nil {
		t.Fatalf("unexpected complete error: %v", err)
	}
	got, _ := st.GetJob("j1")
	if got.State != model.StateCompleted {
		t.Errorf("state = %s, want completed", got.State)
	}
}

func TestMarkFailed_BackoffDeterminism(t *testing.T) {
	st, c := newTestStore(t)
	backoff := lifecycle.NewExponential(2.0)

	if _, err := st.CreateJob("j1", "false", intPtr(5)); err != nil {
		t.Fatal(err)
	}

	// Failure after attempt n schedules retry_at = now + 2^n seconds.
	wantDelays := []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second}
	for i, want := range wantDelays {
		if _, err := st.ClaimNext("w1"); err != nil {
			t.Fatal(err)
		}
		job, err := st.MarkFailed("j1", backoff)
		if err != nil {
			t.Fatalf("unexpected fail error: %v", err)
		}
		if job.State != model.StateFailed {
			t.Fatalf("attempt %d: state = %s, want failed", i+1, job.State)
		}
		if job.RetryAt == nil {
			t.Fatalf("attempt %d: retry_at not set", i+1)
		}
		if got := job.RetryAt.Sub(c.now()); got != want {
			t.Errorf("attempt %d: retry delay = %v, want %v", i+1, got, want)
		}
		if job.LockedBy != "" || job.LockedAt != nil {
			t.Errorf("attempt %d: lock fields not cleared on failure", i+1)
		}
		c.advance(want)
	}
}

func TestMarkFailed_DeathBoundary(t *testing.T) {
	st, c := newTestStore(t)
	backoff := lifecycle.NewExponential(2.0)

	// max_retries=2: dies on exactly the third failed attempt.
	if _, err := st.CreateJob("j2", "exit 1", intPtr(2)); err != nil {
		t.Fatal(err)
	}

	for attempt := 1; attempt <= 3; attempt++ {
		job, err := st.ClaimNext("w1")
		if err != nil {
			t.Fatal(err)
		}
		if job == nil {
			t.Fatalf("attempt %d: no job claimable", attempt)
		}
		if job.Attempts != attempt {
			t.Fatalf("attempt %d: attempts = %d", attempt, job.Attempts)
		}
		failed, err := st.MarkFailed("j2", backoff)
		if err != nil {
			t.Fatal(err)
		}
		if attempt < 3 {
			if failed.State != model.StateFailed {
				t.Fatalf("attempt %d: state = %s, want failed", attempt, failed.State)
			}
			c.advance(time.Hour)
		} else {
			if failed.State != model.StateDead {
				t.Fatalf("attempt %d: state = %s, want dead", attempt, failed.State)
			}
			if failed.Attempts != 3 {
				t.Errorf("attempts = %d, want 3", failed.Attempts)
			}
			if failed.RetryAt != nil {
				t.Errorf("dead job must not have retry_at set")
			}
		}
	}

	// Dead jobs are not claimable.
	job, err := st.ClaimNext("w1")
	if err != nil {
		t.Fatal(err)
	}
	if job != nil {
		t.Fatalf("claimed dead job %s", job.ID)
	}
}

func TestNoPrematureEligibility(t *testing.T) {
	st, c := newTestStore(t)
	backoff := lifecycle.NewExponential(2.0)

	if _, err := st.CreateJob("j1", "false", intPtr(3)); err != nil {
		t.Fatal(err)
	}
	if _, err := st.ClaimNext("w1"); err != nil {
		t.Fatal(err)
	}
	if _, err := st.MarkFailed("j1", backoff); err != nil {
		t.Fatal(err)
	}

	// retry_at is 2s out; just before it the job is invisible.
	c.advance(2*time.Second - time.Nanosecond)
	job, err := st.ClaimNext("w1")
	if err != nil {
		t.Fatal(err)
	}
	if job != nil {
		t.Fatalf("claimed job before retry_at elapsed")
	}

	c.advance(time.Nanosecond)
	job, err = st.ClaimNext("w1")
	if err != nil {
		t.Fatal(err)
	}
	if job == nil {
		t.Fatal("job not claimable at retry_at")
	}
	if job.Attempts != 2 {
		t.Errorf("attempts = %d, want 2", job.Attempts)
	}
	if job.RetryAt != nil {
		t.Errorf("retry_at must be cleared on claim")
	}
}

func TestRequeueFromDLQ(t *testing.T) {
	st, c := newTestStore(t)
	backoff := lifecycle.NewExponential(2.0)

	if _, err := st.CreateJob("j2", "exit 1", intPtr(0)); err != nil {
		t.Fatal(err)
	}
	if _, err := st.ClaimNext("w1"); err != nil {
		t.Fatal(err)
	}
	dead, err := st.MarkFailed("j2", backoff)
	if err != nil {
		t.Fatal(err)
	}
	if dead.State != model.StateDead {
		t.Fatalf("state = %s, want dead", dead.State)
	}

	job, err := st.RequeueFromDLQ("j2")
	if err != nil {
		t.Fatalf("unexpected requeue error: %v", err)
	}
	if job.State != model.StatePending {
		t.Errorf("state = %s, want pending", job.State)
	}
	if job.Attempts != 0 {
		t.Errorf("attempts = %d, want 0", job.Attempts)
	}
	if job.LockedBy != "" || job.LockedAt != nil || job.RetryAt != nil {
		t.Errorf("requeue must clear lock and retry fields")
	}

	c.advance(time.Second)
	claimed, err := st.ClaimNext("w1")
	if err != nil {
		t.Fatal(err)
	}
	if claimed == nil || claimed.ID != "j2" {
		t.Fatalf("requeued job not claimable: %v", claimed)
	}
}

func TestRequeueFromDLQ_Rejections(t *testing.T) {
	st, _ := newTestStore(t)

	_, err := st.RequeueFromDLQ("missing")
	if !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}

	if _, err := st.CreateJob("j1", "true", nil); err != nil {
		t.Fatal(err)
	}
	_, err = st.RequeueFromDLQ("j1")
	if !errors.Is(err, model.ErrInvalidState) {
		t.Fatalf("error = %v, want ErrInvalidState", err)
	}
}

func TestCompletionScenario(t *testing.T) {
	st, _ := newTestStore(t)

	if _, err := st.CreateJob("j1", "exit 0", intPtr(3)); err != nil {
		t.Fatal(err)
	}
	job, err := st.ClaimNext("w1")
	if err != nil || job == nil {
		t.Fatalf("claim failed: job=%v err=%v", job, err)
	}
	if err := st.MarkCompleted("j1"); err != nil {
		t.Fatal(err)
	}
	got, err := st.GetJob("j1")
	if err != nil {
		t.Fatal(err)
	}
	if got.State != model.StateCompleted {
		t.Errorf("state = %s, want completed", got.State)
	}

	// Completed jobs never become claimable again.
	job, err = st.ClaimNext("w1")
	if err != nil {
		t.Fatal(err)
	}
	if job != nil {
		t.Errorf("claimed completed job %s", job.ID)
	}
}

func TestListAndCounts(t *testing.T) {
	st, c := newTestStore(t)

	for _, id := range []string{"a", "b", "c"} {
		if _, err := st.CreateJob(id, "true", nil); err != nil {
			t.Fatal(err)
		}
		c.advance(time.Second)
	}
	if _, err := st.ClaimNext("w1"); err != nil {
		t.Fatal(err)
	}

	pending, err := st.ListJobs(model.StatePending)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 2 {
		t.Errorf("pending jobs = %d, want 2", len(pending))
	}
	all, err := st.ListJobs("")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Errorf("all jobs = %d, want 3", len(all))
	}

	counts, err := st.CountsByState()
	if err != nil {
		t.Fatal(err)
	}
	if counts[model.StatePending] != 2 || counts[model.StateProcessing] != 1 {
		t.Errorf("counts = %v", counts)
	}
	// Every state is present even when zero.
	for _, state := range model.States {
		if _, ok := counts[state]; !ok {
			t.Errorf("counts missing state %s", state)
		}
	}
}

func TestConfig(t *testing.T) {
	st, _ := newTestStore(t)

	// Seeded defaults.
	got, err := st.GetConfig("max_retries", "")
	if err != nil {
		t.Fatal(err)
	}
	if got != "3" {
		t.Errorf("max_retries = %q, want seeded 3", got)
	}

	// Missing key returns the caller default.
	got, err = st.GetConfig("nope", "fallback")
	if err != nil {
		t.Fatal(err)
	}
	if got != "fallback" {
		t.Errorf("missing key = %q, want fallback", got)
	}

	// Writes are visible immediately.
	if err := st.SetConfig("backoff_base", "3.5"); err != nil {
		t.Fatal(err)
	}
	base, err := st.ConfigFloat("backoff_base", 2.0)
	if err != nil {
		t.Fatal(err)
	}
	if base != 3.5 {
		t.Errorf("backoff_base = %v, want 3.5", base)
	}
}
