package broker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"ariusmonitor.flagee.cloud/internal/driver"
	"ariusmonitor.flagee.cloud/internal/fabricante"
	"ariusmonitor.flagee.cloud/internal/logger"
)

// PathStore persists the last driver path that answered.
type PathStore interface {
	Load() (string, error)
	Save(path string) error
}

type Options struct {
	Open           driver.Opener
	Resolver       *fabricante.Resolver
	Paths          PathStore
	Candidates     []string
	ActivationCode string
	MaxAttempts    int
	Timeout        time.Duration
	Grace          time.Duration
	Metrics        *Metrics
}

type Broker struct {
	open       driver.Opener
	resolver   *fabricante.Resolver
	paths      PathStore
	candidates []string
	code       string
	retrier    *Retrier
	metrics    *Metrics
}

func New(opts Options) *Broker {
	return &Broker{
		open:       opts.Open,
		resolver:   opts.Resolver,
		paths:      opts.Paths,
		candidates: opts.Candidates,
		code:       opts.ActivationCode,
		metrics:    opts.Metrics,
		retrier: &Retrier{
			Executor:    &Executor{Grace: opts.Grace, Metrics: opts.Metrics},
			MaxAttempts: opts.MaxAttempts,
			Timeout:     opts.Timeout,
			Metrics:     opts.Metrics,
		},
	}
}

// Selection is what the caller asked for. An explicit Library wins over a
// Manufacturer.
type Selection struct {
	Library      string
	Manufacturer *fabricante.ID
}

// Locate picks the driver path for sel. Without an explicit choice the
// persisted path is used, and ErrNoDriverConfigured is returned when there
// is none.
func (b *Broker) Locate(sel Selection) (string, error) {
	if sel.Library != "" {
		return sel.Library, nil
	}
	if sel.Manufacturer != nil {
		if b.resolver == nil {
			return "", fmt.Errorf("%w: no manufacturer registry", fabricante.ErrUnresolved)
		}
		return b.resolver.Resolve(*sel.Manufacturer)
	}
	if b.paths != nil {
		path, err := b.paths.Load()
		if err != nil {
			logger.Debug("No persisted driver path", slog.Any("error", err))
		} else if path != "" {
			return path, nil
		}
	}
	return "", ErrNoDriverConfigured
}

// Status queries the operational status with retries. Without a configured
// driver the library candidates are tried in turn.
func (b *Broker) Status(ctx context.Context, sel Selection) (Outcome, error) {
	path, err := b.Locate(sel)
	if errors.Is(err, ErrNoDriverConfigured) {
		return b.Discover(ctx)
	}
	if err != nil {
		return Outcome{}, err
	}

	d, err := driver.Load(b.open, path, driver.ConsultarStatusOperacional)
	if err != nil {
		return Outcome{}, err
	}
	return b.retrier.Run(ctx, d, driver.ConsultarStatusOperacional, b.code)
}

// Operate makes one pass-through call of ep. Without a configured driver
// the library found by Discover is used.
func (b *Broker) Operate(ctx context.Context, sel Selection, ep driver.EntryPoint, args ...string) (Outcome, error) {
	path, err := b.Locate(sel)
	if errors.Is(err, ErrNoDriverConfigured) {
		found, derr := b.Discover(ctx)
		if derr != nil {
			return found, derr
		}
		if !found.OK() {
			return found, nil
		}
		path, err = found.Library, nil
	}
	if err != nil {
		return Outcome{}, err
	}

	d, err := driver.Load(b.open, path, ep)
	if err != nil {
		return Outcome{}, err
	}
	return b.retrier.Once(ctx, d, ep, args...)
}

// Discover tries every library candidate with a status query. Candidates
// that are missing, fail to load or do not answer with success are
// skipped. The first success is persisted.
func (b *Broker) Discover(ctx context.Context) (Outcome, error) {
	for _, candidate := range b.candidates {
		if err := ctx.Err(); err != nil {
			return Outcome{}, err
		}
		if _, err := os.Stat(candidate); err != nil {
			continue
		}

		d, err := driver.Load(b.open, candidate, driver.ConsultarStatusOperacional)
		if err != nil {
			logger.Info("Skipping library candidate", slog.String("lib", candidate), slog.Any("error", err))
			continue
		}
		out, err := b.retrier.Run(ctx, d, driver.ConsultarStatusOperacional, b.code)
		if err != nil {
			logger.Info("Library candidate failed", slog.String("lib", candidate), slog.Any("error", err))
			continue
		}
		if !out.OK() {
			logger.Info("Library candidate did not answer", slog.String("lib", candidate), slog.String("outcome", out.Kind.String()))
			continue
		}

		if b.paths != nil {
			if err := b.paths.Save(candidate); err != nil {
				logger.Warn("Failed to persist driver path", slog.String("lib", candidate), slog.Any("error", err))
			}
		}
		return out, nil
	}
	b.metrics.outcome(driver.ConsultarStatusOperacional.Name, DriverMissing)
	return Outcome{Kind: DriverMissing}, nil
}

// ProbePrinter loads a printer library and probes its ports.
func (b *Broker) ProbePrinter(lib string, ports []string, explicit string) (ProbeResult, error) {
	d, err := driver.Load(b.open, lib, driver.Create, driver.Destroy)
	if err != nil {
		return ProbeResult{}, err
	}
	defer release(d)
	return Probe(d, ports, explicit, b.metrics)
}
