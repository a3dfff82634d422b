package broker

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"time"

	"ariusmonitor.flagee.cloud/internal/driver"
	"ariusmonitor.flagee.cloud/internal/logger"
)

const (
	sessionBase  = 500000
	sessionRange = 1000
)

// NewSessionID returns a random session identifier in [500000, 500999].
func NewSessionID() int32 {
	return sessionBase + rand.Int32N(sessionRange)
}

type Retrier struct {
	Executor    *Executor
	MaxAttempts int
	Timeout     time.Duration
	// Sessions overrides NewSessionID, mostly for tests.
	Sessions func() int32
	Metrics  *Metrics
}

func (r *Retrier) session() int32 {
	if r.Sessions != nil {
		return r.Sessions()
	}
	return NewSessionID()
}

func (r *Retrier) attempt(ctx context.Context, d *driver.Driver, ep driver.EntryPoint, args []string) (int32, Result) {
	session := r.session()
	res := r.Executor.Invoke(ctx, d, ep.Name, func() (driver.Answer, error) {
		return d.Call(ep, session, args...)
	}, r.Timeout)
	return session, res
}

// Run calls ep until it answers with success or a connection error, times
// out, or MaxAttempts unrecognized answers were seen. The driver is always
// unloaded before Run returns.
func (r *Retrier) Run(ctx context.Context, d *driver.Driver, ep driver.EntryPoint, args ...string) (out Outcome, err error) {
	defer release(d)
	out.Library = d.Path()
	defer func() {
		if err == nil {
			r.Metrics.outcome(ep.Name, out.Kind)
		}
	}()

	for attempt := 1; attempt <= max(r.MaxAttempts, 1); attempt++ {
		session, res := r.attempt(ctx, d, ep, args)
		out.Attempts = attempt
		out.SessionID = session
		out.Elapsed += res.Elapsed

		if res.Abandoned {
			out.Kind = Timeout
			out.Abandoned = true
			return out, nil
		}
		if res.Err != nil {
			return out, res.Err
		}
		kind, err := Classify(res.Answer)
		if err != nil {
			return out, err
		}
		if res.TimedOut {
			out.Kind = Timeout
			return out, nil
		}

		out.Kind = kind
		out.Payload = Normalize(res.Answer.Text)
		if kind != Unrecognized {
			return out, nil
		}
		logger.Debug("Unrecognized driver answer",
			slog.String("entry_point", ep.Name),
			slog.Int("attempt", attempt),
			slog.String("answer", out.Payload),
		)
	}
	return out, nil
}

// Once makes a single timed call and passes the answer through: anything
// that is neither a connection error nor a timeout is reported as Success.
func (r *Retrier) Once(ctx context.Context, d *driver.Driver, ep driver.EntryPoint, args ...string) (out Outcome, err error) {
	defer release(d)
	out.Library = d.Path()

	session, res := r.attempt(ctx, d, ep, args)
	out.Attempts = 1
	out.SessionID = session
	out.Elapsed = res.Elapsed

	switch {
	case res.Abandoned:
		out.Kind = Timeout
		out.Abandoned = true
	case res.Err != nil:
		return out, res.Err
	case !res.Answer.Valid:
		return out, ErrNoResponse
	case res.TimedOut:
		out.Kind = Timeout
	default:
		kind, _ := Classify(res.Answer)
		if kind == ConnectionError {
			out.Kind = ConnectionError
		} else {
			out.Kind = Success
		}
		out.Payload = Normalize(res.Answer.Text)
	}
	r.Metrics.outcome(ep.Name, out.Kind)
	return out, nil
}

func release(d *driver.Driver) {
	if err := d.Unload(); err != nil {
		logger.Warn("Failed to unload driver", slog.String("lib", d.Path()), slog.Any("error", err))
	}
}
