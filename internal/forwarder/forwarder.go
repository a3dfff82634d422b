package forwarder

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"ariusmonitor.flagee.cloud/internal/logger"
	"github.com/nxadm/tail"
	"github.com/nxadm/tail/watch"
)

type Options struct {
	Sender  *Sender
	Message string
	Trigger string
	Offsets *Offsets
	Metrics *Metrics
}

// Forwarder watches a point-of-sale log and relays Message to the server
// every time a line containing Trigger shows up.
type Forwarder struct {
	Options
}

func New(opts Options) *Forwarder {
	if opts.Metrics == nil {
		opts.Metrics = NewMetrics(nil)
	}
	return &Forwarder{Options: opts}
}

// SetPollInterval changes how often followed files are polled for changes.
func SetPollInterval(d time.Duration) {
	if d > 0 {
		watch.POLL_DURATION = d
	}
}

// Follow tails filename until ctx is done. The read offset is stored on
// the way out when offsets are configured.
func (f *Forwarder) Follow(ctx context.Context, filename string) error {
	t, err := tail.TailFile(filename, tail.Config{
		Follow:        true,
		ReOpen:        true,
		MustExist:     true,
		Poll:          true,
		CompleteLines: true,
		Location:      f.Offsets.Location(filename),
		Logger:        logger.Default(),
	})
	if err != nil {
		return err
	}
	logger.Info("Monitoring log file", slog.String("file", filename), slog.String("trigger", f.Trigger))

	defer f.stop(t)
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-t.Lines:
			if !ok {
				return t.Err()
			}
			if line.Err != nil {
				logger.Warn("Failed to read line", slog.String("file", filename), slog.Any("error", line.Err))
				continue
			}
			f.Metrics.lines.Inc()
			if !strings.Contains(line.Text, f.Trigger) {
				continue
			}
			f.Metrics.triggers.Inc()
			if err := f.Sender.Send(ctx, f.Message); err != nil {
				f.Metrics.sendErrors.Inc()
				logger.Error("Failed to forward trigger", slog.Int("line_number", line.Num), slog.Any("error", err))
			}
		}
	}
}

func (f *Forwarder) stop(t *tail.Tail) {
	offset, err := t.Tell()
	if err != nil {
		logger.Error("cannot get file offset", slog.String("file", t.Filename), slog.Any("error", err))
	}
	t.Stop()
	t.Cleanup()
	if err == nil {
		if err := f.Offsets.Save(t.Filename, offset); err != nil {
			logger.Error("error when saving file offset", slog.String("file", t.Filename), slog.Any("error", err))
		}
	}
}
