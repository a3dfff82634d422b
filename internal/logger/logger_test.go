package logger

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/require"
)

func TestSetLogLevel(t *testing.T) {
	var buf bytes.Buffer
	previous := Default()
	SetDefault(NewMonitorLogger(&buf, slog.LevelInfo))
	t.Cleanup(func() { SetDefault(previous) })

	Debug("hidden")
	require.Empty(t, buf.String())

	SetLogLevel(slog.LevelDebug)
	Debug("visible", slog.String("lib", "/posnet/libmfe.so"))
	require.Contains(t, buf.String(), "visible")
	require.Contains(t, buf.String(), "lib=/posnet/libmfe.so")
}

func TestHCLogAdapter(t *testing.T) {
	var buf bytes.Buffer
	previous := Default()
	SetDefault(NewMonitorLogger(&buf, slog.LevelWarn))
	t.Cleanup(func() { SetDefault(previous) })

	l := NewHCLogAdapter("driver-host").With("pid", 42).Named("rpc")
	require.Equal(t, "driver-host.rpc", l.Name())
	require.False(t, l.IsDebug())
	require.Equal(t, hclog.Warn, l.GetLevel())

	l.Info("dropped")
	l.Warn("plugin exited", "code", 1)
	out := buf.String()
	require.NotContains(t, out, "dropped")
	require.Contains(t, out, "plugin exited")
	require.Contains(t, out, "component=driver-host.rpc")
	require.Contains(t, out, "pid=42")
}
