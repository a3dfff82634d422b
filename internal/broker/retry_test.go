package broker

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"ariusmonitor.flagee.cloud/internal/driver"
	"ariusmonitor.flagee.cloud/internal/driver/drivertest"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

const statusLib = "/posnet/libsatelgin.so"

func loadStatus(t *testing.T, lib driver.Library) *driver.Driver {
	t.Helper()
	d, err := driver.Load(drivertest.Opener(map[string]driver.Library{statusLib: lib}), statusLib, driver.ConsultarStatusOperacional)
	require.NoError(t, err)
	return d
}

func newRetrier(timeout, grace time.Duration) *Retrier {
	return &Retrier{Executor: &Executor{Grace: grace}, MaxAttempts: 3, Timeout: timeout}
}

func TestRetrierRun(t *testing.T) {
	unknown := driver.Text("500001|10001|SAT bloqueado|||")
	tests := []struct {
		name         string
		answers      []driver.Answer
		wantKind     Kind
		wantAttempts int
		wantPayload  string
		wantErr      error
	}{
		{"Success after two unrecognized", []driver.Answer{unknown, unknown, driver.Text("Resposta com Sucesso")}, Success, 3, "Resposta com Sucesso", nil},
		{"Three unrecognized", []driver.Answer{unknown, unknown, driver.Text("last answer")}, Unrecognized, 3, "last answer", nil},
		{"Success first", []driver.Answer{driver.Text("Resposta com Sucesso")}, Success, 1, "Resposta com Sucesso", nil},
		{"Connection error stops", []driver.Answer{unknown, driver.Text("Erro de conexão")}, ConnectionError, 2, "Erro de conexão", nil},
		{"Null stops", []driver.Answer{unknown, driver.Null()}, Unrecognized, 2, "", ErrNoResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lib := drivertest.New().Answers(driver.ConsultarStatusOperacional.Name, tt.answers...)
			out, err := newRetrier(time.Second, 0).Run(context.Background(), loadStatus(t, lib), driver.ConsultarStatusOperacional, "123456789")
			require.Equal(t, tt.wantAttempts, out.Attempts)
			require.Len(t, lib.SessionIDs(), tt.wantAttempts)
			require.Equal(t, 1, lib.CloseCount())
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.wantKind, out.Kind)
			require.Equal(t, tt.wantPayload, out.Payload)
			require.Equal(t, statusLib, out.Library)
		})
	}
}

func TestRetrierTimeout(t *testing.T) {
	lib := drivertest.New().Func(driver.ConsultarStatusOperacional.Name, func(int32, ...string) driver.Answer {
		time.Sleep(60 * time.Millisecond)
		return driver.Text("Resposta com Sucesso")
	})

	out, err := newRetrier(20*time.Millisecond, 0).Run(context.Background(), loadStatus(t, lib), driver.ConsultarStatusOperacional, "123456789")
	require.NoError(t, err)
	require.Equal(t, Timeout, out.Kind)
	require.Equal(t, 1, out.Attempts)
	require.False(t, out.Abandoned)
	require.Empty(t, out.Payload)
	require.Equal(t, 1, lib.CloseCount())
}

func TestRetrierAbandon(t *testing.T) {
	release := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	lib := drivertest.New().Func(driver.ConsultarStatusOperacional.Name, func(int32, ...string) driver.Answer {
		defer wg.Done()
		<-release
		return driver.Text("Resposta com Sucesso")
	})
	t.Cleanup(func() {
		close(release)
		wg.Wait()
	})

	start := time.Now()
	out, err := newRetrier(10*time.Millisecond, 10*time.Millisecond).Run(context.Background(), loadStatus(t, lib), driver.ConsultarStatusOperacional, "123456789")
	require.NoError(t, err)
	require.Less(t, time.Since(start), time.Second)
	require.Equal(t, Timeout, out.Kind)
	require.True(t, out.Abandoned)
	require.Equal(t, 1, out.Attempts)
	require.Equal(t, 0, lib.CloseCount(), "a library with a running call must stay loaded")
}

// calls counts native calls in flight and remembers the highest count.
type calls struct {
	running atomic.Int32
	peak    atomic.Int32
}

func (c *calls) answer(delay time.Duration) driver.TextFunc {
	return func(int32, ...string) driver.Answer {
		n := c.running.Add(1)
		defer c.running.Add(-1)
		for {
			p := c.peak.Load()
			if n <= p || c.peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(delay)
		return driver.Text("Resposta com Sucesso")
	}
}

func TestExecutorWaitsForAbandonedCall(t *testing.T) {
	var c calls
	slow := drivertest.New().Func(driver.ConsultarStatusOperacional.Name, c.answer(200*time.Millisecond))
	fast := drivertest.New().Func(driver.ConsultarStatusOperacional.Name, c.answer(10*time.Millisecond))
	open := drivertest.Opener(map[string]driver.Library{"liba.so": slow, "libb.so": fast})

	r := newRetrier(20*time.Millisecond, 20*time.Millisecond)
	first, err := driver.Load(open, "liba.so", driver.ConsultarStatusOperacional)
	require.NoError(t, err)
	out, err := r.Run(context.Background(), first, driver.ConsultarStatusOperacional, "123456789")
	require.NoError(t, err)
	require.True(t, out.Abandoned)

	start := time.Now()
	second, err := driver.Load(open, "libb.so", driver.ConsultarStatusOperacional)
	require.NoError(t, err)
	out, err = r.Run(context.Background(), second, driver.ConsultarStatusOperacional, "123456789")
	require.NoError(t, err)
	require.Equal(t, Success, out.Kind)
	require.Equal(t, int32(1), c.peak.Load())
	require.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
}

func TestExecutorAbandonedCallCancel(t *testing.T) {
	release := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	lib := drivertest.New().Func(driver.ConsultarStatusOperacional.Name, func(int32, ...string) driver.Answer {
		defer wg.Done()
		<-release
		return driver.Text("Resposta com Sucesso")
	})
	t.Cleanup(func() {
		close(release)
		wg.Wait()
	})

	r := newRetrier(10*time.Millisecond, 10*time.Millisecond)
	out, err := r.Run(context.Background(), loadStatus(t, lib), driver.ConsultarStatusOperacional, "123456789")
	require.NoError(t, err)
	require.True(t, out.Abandoned)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err = r.Run(ctx, loadStatus(t, lib), driver.ConsultarStatusOperacional, "123456789")
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRetrierSessionIDs(t *testing.T) {
	lib := drivertest.New().Answers(driver.ConsultarStatusOperacional.Name, driver.Text("?"))
	_, err := newRetrier(time.Second, 0).Run(context.Background(), loadStatus(t, lib), driver.ConsultarStatusOperacional, "123456789")
	require.NoError(t, err)
	for _, id := range lib.SessionIDs() {
		require.GreaterOrEqual(t, id, int32(500000))
		require.LessOrEqual(t, id, int32(500999))
	}
	for range 1000 {
		id := NewSessionID()
		require.True(t, id >= 500000 && id <= 500999, "session %d out of range", id)
	}
}

func TestRetrierIdempotent(t *testing.T) {
	answers := []driver.Answer{driver.Text("?"), driver.Text("Resposta com Sucesso")}
	var outcomes []Outcome
	for range 2 {
		lib := drivertest.New().Answers(driver.ConsultarStatusOperacional.Name, answers...)
		out, err := newRetrier(time.Second, 0).Run(context.Background(), loadStatus(t, lib), driver.ConsultarStatusOperacional, "123456789")
		require.NoError(t, err)
		out.SessionID, out.Elapsed = 0, 0
		outcomes = append(outcomes, out)
	}
	require.Equal(t, outcomes[0], outcomes[1])
}

func TestRetrierOnce(t *testing.T) {
	tests := []struct {
		name     string
		answer   driver.Answer
		wantKind Kind
		wantErr  error
	}{
		{"Pass through", driver.Text("500001|15000|Logs extraídos|dGVzdGU="), Success, nil},
		{"Connection error", driver.Text("Erro de conexão"), ConnectionError, nil},
		{"Null", driver.Null(), Unrecognized, ErrNoResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lib := drivertest.New().Answers(driver.ExtrairLogs.Name, tt.answer)
			d, err := driver.Load(drivertest.Opener(map[string]driver.Library{"lib.so": lib}), "lib.so", driver.ExtrairLogs)
			require.NoError(t, err)

			out, err := newRetrier(time.Second, 0).Once(context.Background(), d, driver.ExtrairLogs, "123456789")
			require.Equal(t, 1, lib.CloseCount())
			require.Equal(t, 1, out.Attempts)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.wantKind, out.Kind)
			require.Equal(t, tt.answer.Text, out.Payload)
		})
	}
}

func TestRetrierMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	lib := drivertest.New().Answers(driver.ConsultarStatusOperacional.Name, driver.Text("?"), driver.Text("Resposta com Sucesso"))
	r := newRetrier(time.Second, 0)
	r.Metrics = metrics
	r.Executor.Metrics = metrics

	_, err := r.Run(context.Background(), loadStatus(t, lib), driver.ConsultarStatusOperacional, "123456789")
	require.NoError(t, err)
	require.Equal(t, 2.0, testutil.ToFloat64(metrics.attempts.WithLabelValues("ConsultarStatusOperacional")))
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.outcomes.WithLabelValues("ConsultarStatusOperacional", "success")))
}
