package logger

import (
	"io"
	"log"
	"log/slog"

	"github.com/hashicorp/go-hclog"
)

// HCLogAdapter routes go-plugin client and driver host logs into the
// monitor logger.
type HCLogAdapter struct {
	logger *MonitorLogger
	name   string
	args   []interface{}
}

func NewHCLogAdapter(name string) hclog.Logger {
	return &HCLogAdapter{
		logger: Default(),
		name:   name,
	}
}

func (h *HCLogAdapter) attrs(args []interface{}) []any {
	out := make([]any, 0, len(h.args)+len(args)+2)
	out = append(out, slog.String("component", h.name))
	out = append(out, h.args...)
	out = append(out, args...)
	return out
}

func (h *HCLogAdapter) Log(level hclog.Level, msg string, args ...interface{}) {
	switch level {
	case hclog.Trace, hclog.Debug:
		h.Debug(msg, args...)
	case hclog.Info, hclog.NoLevel:
		h.Info(msg, args...)
	case hclog.Warn:
		h.Warn(msg, args...)
	case hclog.Error:
		h.Error(msg, args...)
	}
}

func (h *HCLogAdapter) Trace(msg string, args ...interface{}) {
	h.logger.Debug(msg, h.attrs(args)...)
}

func (h *HCLogAdapter) Debug(msg string, args ...interface{}) {
	h.logger.Debug(msg, h.attrs(args)...)
}

func (h *HCLogAdapter) Info(msg string, args ...interface{}) {
	h.logger.Info(msg, h.attrs(args)...)
}

func (h *HCLogAdapter) Warn(msg string, args ...interface{}) {
	h.logger.Warn(msg, h.attrs(args)...)
}

func (h *HCLogAdapter) Error(msg string, args ...interface{}) {
	h.logger.Error(msg, h.attrs(args)...)
}

func (h *HCLogAdapter) IsTrace() bool {
	return false
}

func (h *HCLogAdapter) IsDebug() bool {
	return h.logger.Enabled(slog.LevelDebug)
}

func (h *HCLogAdapter) IsInfo() bool {
	return h.logger.Enabled(slog.LevelInfo)
}

func (h *HCLogAdapter) IsWarn() bool {
	return h.logger.Enabled(slog.LevelWarn)
}

func (h *HCLogAdapter) IsError() bool {
	return h.logger.Enabled(slog.LevelError)
}

func (h *HCLogAdapter) ImpliedArgs() []interface{} {
	return h.args
}

func (h *HCLogAdapter) With(args ...interface{}) hclog.Logger {
	merged := make([]interface{}, 0, len(h.args)+len(args))
	merged = append(merged, h.args...)
	merged = append(merged, args...)
	return &HCLogAdapter{
		logger: h.logger,
		name:   h.name,
		args:   merged,
	}
}

func (h *HCLogAdapter) Name() string {
	return h.name
}

func (h *HCLogAdapter) Named(name string) hclog.Logger {
	return &HCLogAdapter{
		logger: h.logger,
		name:   h.name + "." + name,
		args:   h.args,
	}
}

func (h *HCLogAdapter) ResetNamed(name string) hclog.Logger {
	return &HCLogAdapter{
		logger: h.logger,
		name:   name,
		args:   h.args,
	}
}

// SetLevel is a no-op, the level is owned by the monitor logger.
func (h *HCLogAdapter) SetLevel(level hclog.Level) {}

func (h *HCLogAdapter) GetLevel() hclog.Level {
	switch {
	case h.IsDebug():
		return hclog.Debug
	case h.IsInfo():
		return hclog.Info
	case h.IsWarn():
		return hclog.Warn
	default:
		return hclog.Error
	}
}

func (h *HCLogAdapter) StandardLogger(opts *hclog.StandardLoggerOptions) *log.Logger {
	return log.New(h.StandardWriter(opts), "", 0)
}

func (h *HCLogAdapter) StandardWriter(opts *hclog.StandardLoggerOptions) io.Writer {
	return io.Discard
}
