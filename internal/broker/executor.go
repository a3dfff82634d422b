package broker

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"ariusmonitor.flagee.cloud/internal/driver"
	"ariusmonitor.flagee.cloud/internal/logger"
)

type Result struct {
	Answer driver.Answer
	Err    error
	// TimedOut is set when the deadline fired before the call returned,
	// whether or not an answer was obtained afterwards.
	TimedOut  bool
	Abandoned bool
	Elapsed   time.Duration
}

// Executor runs one driver call at a time under a deadline. The deadline
// only raises a flag that is read once the call returns; the native call is
// never interrupted. With a Grace above zero the caller stops waiting at
// timeout+grace and the driver is abandoned. An abandoned call still holds
// the executor: the next Invoke waits for it to return first.
type Executor struct {
	Grace   time.Duration
	Metrics *Metrics

	mu      sync.Mutex
	pending <-chan Result
}

func (e *Executor) Invoke(ctx context.Context, d *driver.Driver, name string, call func() (driver.Answer, error), timeout time.Duration) Result {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.settle(ctx); err != nil {
		return Result{Answer: driver.Null(), Err: err}
	}

	var expired atomic.Bool
	deadline := time.AfterFunc(timeout, func() { expired.Store(true) })
	start := time.Now()

	res := e.wait(ctx, d, call, timeout)
	deadline.Stop()
	res.Elapsed = time.Since(start)
	res.TimedOut = res.TimedOut || expired.Load()

	e.Metrics.call(name, res.Elapsed, res.Abandoned)
	logger.Debug("Driver call returned",
		slog.String("entry_point", name),
		slog.Duration("elapsed", res.Elapsed),
		slog.Bool("timed_out", res.TimedOut),
		slog.Bool("abandoned", res.Abandoned),
	)
	return res
}

// settle blocks until an abandoned call has returned.
func (e *Executor) settle(ctx context.Context) error {
	if e.pending == nil {
		return nil
	}
	logger.Warn("Waiting for abandoned driver call to return")
	select {
	case <-e.pending:
		e.pending = nil
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Executor) wait(ctx context.Context, d *driver.Driver, call func() (driver.Answer, error), timeout time.Duration) Result {
	if e.Grace <= 0 {
		answer, err := call()
		return Result{Answer: answer, Err: err}
	}

	done := make(chan Result, 1)
	go func() {
		answer, err := call()
		done <- Result{Answer: answer, Err: err}
	}()

	limit := time.NewTimer(timeout + e.Grace)
	defer limit.Stop()

	select {
	case res := <-done:
		return res
	case <-limit.C:
		d.Abandon()
		e.pending = done
		return Result{Answer: driver.Null(), TimedOut: true, Abandoned: true}
	case <-ctx.Done():
		d.Abandon()
		e.pending = done
		return Result{Answer: driver.Null(), Err: ctx.Err(), TimedOut: true, Abandoned: true}
	}
}
