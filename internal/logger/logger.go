package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync/atomic"
)

var monitorLogger atomic.Pointer[MonitorLogger]

func init() {
	monitorLogger.Store(NewMonitorLogger(os.Stderr, slog.LevelInfo))
}

// MonitorLogger is the process-wide logger. Stdout is kept free for
// results, so the default sink is stderr.
type MonitorLogger struct {
	slogger *slog.Logger
	level   *slog.LevelVar
}

func NewMonitorLogger(w io.Writer, level slog.Level) *MonitorLogger {
	lv := &slog.LevelVar{}
	lv.Set(level)
	return &MonitorLogger{
		slogger: slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lv})),
		level:   lv,
	}
}

func Default() *MonitorLogger {
	return monitorLogger.Load()
}

// SetDefault replaces the process-wide logger.
func SetDefault(l *MonitorLogger) {
	monitorLogger.Store(l)
}

func SetLogLevel(level slog.Level) {
	monitorLogger.Load().level.Set(level)
}

// SetOutput redirects logging to w, keeping the current level.
func SetOutput(w io.Writer) {
	SetDefault(NewMonitorLogger(w, monitorLogger.Load().level.Level()))
}

func (l *MonitorLogger) Enabled(level slog.Level) bool {
	return l.level.Level() <= level
}

func (l *MonitorLogger) With(args ...any) *MonitorLogger {
	return &MonitorLogger{slogger: l.slogger.With(args...), level: l.level}
}

// slog wrapper

func Debug(msg string, args ...any) {
	monitorLogger.Load().Debug(msg, args...)
}

func Info(msg string, args ...any) {
	monitorLogger.Load().Info(msg, args...)
}

func Warn(msg string, args ...any) {
	monitorLogger.Load().Warn(msg, args...)
}

func Error(msg string, args ...any) {
	monitorLogger.Load().Error(msg, args...)
}

func (l *MonitorLogger) Debug(msg string, args ...any) {
	l.slogger.Debug(msg, args...)
}

func (l *MonitorLogger) Info(msg string, args ...any) {
	l.slogger.Info(msg, args...)
}

func (l *MonitorLogger) Warn(msg string, args ...any) {
	l.slogger.Warn(msg, args...)
}

func (l *MonitorLogger) Error(msg string, args ...any) {
	l.slogger.Error(msg, args...)
}

// badger.logger

func (l *MonitorLogger) Errorf(format string, args ...interface{}) {
	l.slogger.Error(fmt.Sprintf(format, args...))
}

func (l *MonitorLogger) Warningf(format string, args ...interface{}) {
	l.slogger.Warn(fmt.Sprintf(format, args...))
}

func (l *MonitorLogger) Infof(format string, args ...interface{}) {
	l.slogger.Info(fmt.Sprintf(format, args...))
}

func (l *MonitorLogger) Debugf(format string, args ...interface{}) {
	l.slogger.Debug(fmt.Sprintf(format, args...))
}

// tail.logger

func (l *MonitorLogger) Fatal(v ...interface{}) {
	l.slogger.Error("tail failure", genericPairs(v...)...)
}

func (l *MonitorLogger) Fatalf(format string, v ...interface{}) {
	l.slogger.Error(fmt.Sprintf(format, v...))
}

func (l *MonitorLogger) Fatalln(v ...interface{}) {
	l.slogger.Error(fmt.Sprint(v...))
}

func (l *MonitorLogger) Panic(v ...interface{}) {
	l.slogger.Error("tail panic", genericPairs(v...)...)
}

func (l *MonitorLogger) Panicf(format string, v ...interface{}) {
	l.slogger.Error(fmt.Sprintf(format, v...))
}

func (l *MonitorLogger) Panicln(v ...interface{}) {
	l.slogger.Error(fmt.Sprint(v...))
}

func (l *MonitorLogger) Print(v ...interface{}) {
	l.slogger.Debug(fmt.Sprint(v...))
}

func (l *MonitorLogger) Printf(format string, v ...interface{}) {
	l.slogger.Debug(fmt.Sprintf(format, v...))
}

func (l *MonitorLogger) Println(v ...interface{}) {
	l.slogger.Debug(fmt.Sprint(v...))
}

func genericPairs(v ...interface{}) []any {
	pairs := make([]any, 0, len(v)/2)
	for i := 0; i < len(v)-1; i += 2 {
		key, ok := v[i].(string)
		if !ok {
			key = fmt.Sprintf("non_string_key_%d", i)
		}
		pairs = append(pairs, slog.Any(key, v[i+1]))
	}
	return pairs
}
