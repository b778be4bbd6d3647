// Package unfollow executes unfollow runs: one target at a time, a random
// pause between actions, and a hard stop the moment Instagram pushes back.
package unfollow

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"igunfollow/pkg/account"
	errs "igunfollow/pkg/errors"
	"igunfollow/pkg/logger"
)

// TaskStatus is the outcome of one target in a run
type TaskStatus string

const (
	StatusPending    TaskStatus = "pending"
	StatusInProgress TaskStatus = "in_progress"
	StatusSucceeded  TaskStatus = "succeeded"
	StatusFailed     TaskStatus = "failed"
	StatusSkipped    TaskStatus = "skipped"
)

// RunState is the overall state of a run
type RunState string

const (
	StateIdle      RunState = "idle"
	StateRunning   RunState = "running"
	StateCompleted RunState = "completed"
	StateCancelled RunState = "cancelled"
	// StateAborted means Instagram pushed back (rate limit or challenge)
	// and the run stopped without attempting the remaining targets.
	StateAborted RunState = "aborted"
)

// Result reports one target's outcome. Results arrive in submission order.
type Result struct {
	Index  int
	Target account.Identity
	Status TaskStatus
	Err    error
}

// Summary is the final accounting of a run
type Summary struct {
	RunID       string
	State       RunState
	Total       int
	Succeeded   int
	Failed      int
	Skipped     int
	Unattempted int
	Started     time.Time
	Finished    time.Time
	// AbortErr is set when State is StateAborted
	AbortErr error
}

// DelayRange bounds the random pause taken before each unfollow. The
// pause is never zero: acting at machine speed is what gets accounts
// flagged.
type DelayRange struct {
	Min time.Duration
	Max time.Duration
}

// DefaultDelayRange mirrors human-ish pacing
func DefaultDelayRange() DelayRange {
	return DelayRange{Min: 2 * time.Second, Max: 5 * time.Second}
}

func (d DelayRange) normalized() DelayRange {
	def := DefaultDelayRange()
	if d.Min <= 0 {
		d.Min = def.Min
	}
	if d.Max < d.Min {
		d.Max = d.Min
	}
	return d
}

// pick returns a uniform random duration in [Min, Max]
func (d DelayRange) pick(rng *rand.Rand) time.Duration {
	if d.Max == d.Min {
		return d.Min
	}
	return d.Min + time.Duration(rng.Int63n(int64(d.Max-d.Min)+1))
}

// Controller runs unfollow batches against an account client
type Controller struct {
	client account.Client
	delay  DelayRange
	logger logger.Logger
	rng    *rand.Rand

	// sleep is replaceable in tests
	sleep func(ctx context.Context, d time.Duration) error
}

// NewController creates a controller with the given pacing
func NewController(client account.Client, delay DelayRange, log logger.Logger) *Controller {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Controller{
		client: client,
		delay:  delay.normalized(),
		logger: log,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		sleep:  sleepCtx,
	}
}

// Run is a handle to an in-flight or finished unfollow run
type Run struct {
	ID      string
	results chan Result

	mu      sync.Mutex
	summary Summary
	done    chan struct{}
}

// Results streams one Result per attempted or skipped target, in submission
// order. The channel closes when the run ends.
func (r *Run) Results() <-chan Result {
	return r.results
}

// Wait blocks until the run ends and returns the summary
func (r *Run) Wait() Summary {
	<-r.done
	return r.Summary()
}

// Summary returns the current accounting. It is final once Results is
// closed.
func (r *Run) Summary() Summary {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.summary
}

// Start begins unfollowing targets one at a time, pausing a random interval
// between consecutive actions. The run stops early when ctx is cancelled
// (remaining targets are reported skipped) or when Instagram rate-limits or
// challenges (remaining targets are left unattempted and the run aborts).
func (c *Controller) Start(ctx context.Context, sess *account.Session, targets []account.Identity) *Run {
	id := uuid.New().String()
	run := &Run{
		ID: id,
		// Buffered to the full batch so a run can always wind down and
		// record its summary even if the consumer walks away.
		results: make(chan Result, len(targets)),
		done:    make(chan struct{}),
		summary: Summary{
			RunID:   id,
			State:   StateRunning,
			Total:   len(targets),
			Started: time.Now(),
		},
	}

	go c.execute(ctx, sess, targets, run)
	return run
}

func (c *Controller) execute(ctx context.Context, sess *account.Session, targets []account.Identity, run *Run) {
	defer close(run.done)
	defer close(run.results)

	summary := run.Summary()
	finish := func(state RunState, abortErr error) {
		summary.State = state
		summary.AbortErr = abortErr
		summary.Finished = time.Now()
		run.mu.Lock()
		run.summary = summary
		run.mu.Unlock()

		c.logger.InfoWithFields("unfollow run finished", map[string]interface{}{
			"run_id":      run.ID,
			"state":       string(state),
			"succeeded":   summary.Succeeded,
			"failed":      summary.Failed,
			"skipped":     summary.Skipped,
			"unattempted": summary.Unattempted,
		})
	}

	c.logger.InfoWithFields("unfollow run started", map[string]interface{}{
		"run_id":    run.ID,
		"targets":   len(targets),
		"delay_min": c.delay.Min,
		"delay_max": c.delay.Max,
	})

	for i, target := range targets {
		// Cancellation wins over everything, including the pause.
		if ctx.Err() != nil {
			c.reportRemaining(run, targets, i, &summary)
			finish(StateCancelled, nil)
			return
		}

		pause := c.delay.pick(c.rng)
		c.logger.DebugWithFields("pausing before unfollow", map[string]interface{}{
			"run_id": run.ID,
			"pause":  pause,
		})
		if err := c.sleep(ctx, pause); err != nil {
			c.reportRemaining(run, targets, i, &summary)
			finish(StateCancelled, nil)
			return
		}

		err := c.client.Unfollow(ctx, sess, target)
		switch {
		case err == nil:
			summary.Succeeded++
			run.results <- Result{Index: i, Target: target, Status: StatusSucceeded}

		case ctx.Err() != nil:
			// The call failed because the run was cancelled mid-flight.
			c.reportRemaining(run, targets, i, &summary)
			finish(StateCancelled, nil)
			return

		case errs.IsNotFound(err):
			// The account no longer exists; nothing to undo.
			summary.Skipped++
			run.results <- Result{Index: i, Target: target, Status: StatusSkipped, Err: err}

		case errs.IsRateLimit(err) || errs.IsChallenge(err):
			// Keeping going would make it worse. Stop here and leave the
			// rest untouched so a later run can pick them up.
			summary.Failed++
			run.results <- Result{Index: i, Target: target, Status: StatusFailed, Err: err}
			summary.Unattempted = len(targets) - i - 1
			c.logger.WarnWithFields("aborting unfollow run", map[string]interface{}{
				"run_id":      run.ID,
				"target":      target.Username,
				"error":       err.Error(),
				"unattempted": summary.Unattempted,
			})
			finish(StateAborted, err)
			return

		default:
			summary.Failed++
			run.results <- Result{Index: i, Target: target, Status: StatusFailed, Err: err}
		}
	}

	finish(StateCompleted, nil)
}

// reportRemaining emits skipped results for targets never attempted because
// of cancellation
func (c *Controller) reportRemaining(run *Run, targets []account.Identity, from int, summary *Summary) {
	for i := from; i < len(targets); i++ {
		summary.Skipped++
		run.results <- Result{Index: i, Target: targets[i], Status: StatusSkipped, Err: context.Canceled}
	}
}

// sleepCtx pauses for d or until ctx is cancelled
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
