package importer

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/thisisjonathan/flits-editor/internal/history"
)

// Job is a long-running operation (import, compile, encode) that produces
// a finished command off the main loop. The job must not touch the
// document; only its returned command does, and only when the caller
// executes it.
type Job func(ctx context.Context) (history.Command, error)

// Result is a completed job: the command ready for the history stack, or
// the error that stopped it.
type Result struct {
	Command history.Command
	Err     error
}

// Runner executes jobs on background goroutines and delivers results over
// a channel the main loop drains. Cancelling the runner discards the
// results of jobs still in flight; nothing is ever partially merged.
type Runner struct {
	ctx     context.Context
	cancel  context.CancelFunc
	group   *errgroup.Group
	results chan Result
}

// NewRunner creates a runner with the given concurrency limit.
func NewRunner(ctx context.Context, limit int) *Runner {
	ctx, cancel := context.WithCancel(ctx)
	group, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		group.SetLimit(limit)
	}
	return &Runner{
		ctx:     ctx,
		cancel:  cancel,
		group:   group,
		results: make(chan Result, 16),
	}
}

// Submit schedules a job. Its result arrives on Results unless the runner
// is cancelled first.
func (r *Runner) Submit(job Job) {
	r.group.Go(func() error {
		cmd, err := job(r.ctx)
		if r.ctx.Err() != nil {
			return nil
		}
		select {
		case r.results <- Result{Command: cmd, Err: err}:
		case <-r.ctx.Done():
		}
		return nil
	})
}

// Results is the channel completed jobs arrive on.
func (r *Runner) Results() <-chan Result {
	return r.results
}

// Cancel abandons all in-flight jobs and their results.
func (r *Runner) Cancel() {
	r.cancel()
}

// Close cancels nothing, waits for in-flight jobs, and closes the results
// channel. Call from the goroutine that owns the runner, after the main
// loop stops submitting.
func (r *Runner) Close() {
	r.group.Wait()
	close(r.results)
	r.cancel()
}
