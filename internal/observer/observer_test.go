package observer

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"ariusmonitor.flagee.cloud/internal/broker"
	"ariusmonitor.flagee.cloud/internal/config"
	"ariusmonitor.flagee.cloud/internal/filter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func sampleReport(op string) Report {
	r := NewReport("monitorasat", "1.2.3", op)
	r.Library = "/posnet/libsatelgin.so"
	r.SetOutcome(broker.Outcome{Kind: broker.Success, Attempts: 2, SessionID: 500321, Payload: "Resposta com Sucesso"})
	return r
}

func TestReportOutcome(t *testing.T) {
	r := sampleReport("ConsultarStatusOperacional")
	require.NotEmpty(t, r.RunID)
	require.True(t, r.OK)
	require.Equal(t, "success", r.Outcome)
	require.Equal(t, 2, r.Attempts)
	require.Equal(t, "/posnet/libsatelgin.so", r.Library)
	require.GreaterOrEqual(t, r.Duration(), time.Duration(0))

	failed := NewReport("monitorasat", "1.2.3", "ExtrairLogs")
	failed.SetError(broker.ErrNoResponse)
	require.False(t, failed.OK)
	require.Equal(t, "no_response", failed.Outcome)
	require.Equal(t, broker.ErrNoResponse.Error(), failed.Error)
}

func TestReportRecovered(t *testing.T) {
	r := NewReport("monitorasat", "1.2.3", "ConsultarStatusOperacional")
	r.SetOutcome(broker.Outcome{Kind: broker.DriverMissing})
	require.False(t, r.OK)
	require.NotContains(t, r.Labels(), filter.Label{Key: "recovered", Value: "192.168.0.10"})

	r.SetRecovered("192.168.0.10")
	require.True(t, r.OK)
	require.Equal(t, "driver_missing", r.Outcome)
	require.Equal(t, "192.168.0.10", r.Recovered)
	require.Contains(t, r.Labels(), filter.Label{Key: "recovered", Value: "192.168.0.10"})
}

func TestPrint(t *testing.T) {
	var out bytes.Buffer
	p := NewPrint("local", STDOUT, map[string]string{"format": "json"})
	p.out = &out

	r := sampleReport("ConsultarStatusOperacional")
	require.True(t, p.SaveReports([]Report{r}))

	var decoded Report
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	require.Equal(t, r.RunID, decoded.RunID)

	out.Reset()
	p.json = false
	require.True(t, p.SaveReports([]Report{r}))
	require.Contains(t, out.String(), "Outcome: success; Attempts: 2")
}

func TestBuffer(t *testing.T) {
	b, err := OpenBuffer(t.TempDir(), time.Hour)
	require.NoError(t, err)
	defer b.Close()

	reports := []Report{sampleReport("a"), sampleReport("b"), sampleReport("c")}
	require.NoError(t, b.Save(reports))

	fetched, err := b.Fetch(2)
	require.NoError(t, err)
	require.Len(t, fetched, 2)

	require.NoError(t, b.Delete(fetched))
	rest, err := b.Fetch(10)
	require.NoError(t, err)
	require.Len(t, rest, 1)

	var nilBuffer *Buffer
	require.Error(t, nilBuffer.Save(reports))
	require.NoError(t, nilBuffer.Close())
}

type flakyObserver struct {
	baseObserver
	mock.Mock
}

func (f *flakyObserver) SaveReports(r []Report) bool {
	return f.save(r, func(reports []Report) ([]Report, error) {
		args := f.MethodCalled("deliver", len(reports))
		if err := args.Error(0); err != nil {
			return reports, err
		}
		return nil, nil
	})
}

func TestOfflineBuffering(t *testing.T) {
	f := &flakyObserver{baseObserver: baseObserver{name: "flaky", observerType: "test"}}
	reg := prometheus.NewRegistry()
	f.PrepareMetrics(reg)
	require.NoError(t, f.InitBuffer(filepath.Join(t.TempDir(), "flaky"), 1))
	defer f.Cleanup()

	f.On("deliver", 1).Return(errors.New("target down")).Once()
	f.On("deliver", 1).Return(nil).Twice()
	require.False(t, f.SaveReports([]Report{sampleReport("first")}))

	// a later successful delivery resends the buffered report
	require.True(t, f.SaveReports([]Report{sampleReport("second")}))
	f.AssertExpectations(t)

	left, err := f.buffer.Fetch(10)
	require.NoError(t, err)
	require.Empty(t, left)
	require.Equal(t, 1.0, testutil.ToFloat64(f.monitor.failed))
	require.Equal(t, 1.0, testutil.ToFloat64(f.monitor.resent))
}

func TestSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history", "outcomes.db")
	s, err := NewSQLite("local-db", path, nil)
	require.NoError(t, err)
	defer s.Cleanup()

	r := sampleReport("ConsultarStatusOperacional")
	require.True(t, s.SaveReports([]Report{r, sampleReport("ExtrairLogs")}))

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM sat_outcomes").Scan(&count))
	require.Equal(t, 2, count)

	var outcome string
	var attempts int
	require.NoError(t, db.QueryRow("SELECT outcome, attempts FROM sat_outcomes WHERE run_id = ?", r.RunID).Scan(&outcome, &attempts))
	require.Equal(t, "success", outcome)
	require.Equal(t, 2, attempts)
}

func TestPushGateway(t *testing.T) {
	var calls atomic.Int32
	var body atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		require.Equal(t, http.MethodPost, r.Method)
		body.Store(r.URL.Path)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	pg, err := NewPushGateway("gateway", server.URL, nil)
	require.NoError(t, err)

	r := sampleReport("ConsultarStatusOperacional")
	r.Hostname = "pdv-01"
	require.True(t, pg.SaveReports([]Report{r}))
	require.Equal(t, int32(1), calls.Load())
	require.Contains(t, body.Load().(string), "/metrics/job/ariusmonitor")
	require.Contains(t, body.Load().(string), "instance/pdv-01")
}

func TestReportCollector(t *testing.T) {
	r := sampleReport("ConsultarStatusOperacional")
	expected := `
# HELP monitora_outcome_attempts Driver calls made by the last run
# TYPE monitora_outcome_attempts gauge
monitora_outcome_attempts{operation="ConsultarStatusOperacional"} 2
`
	require.NoError(t, testutil.CollectAndCompare(ReportCollector{reports: []Report{r}}, strings.NewReader(expected), "monitora_outcome_attempts"))
}

func TestReportsToWriteRequest(t *testing.T) {
	first := sampleReport("ConsultarStatusOperacional")
	second := sampleReport("ConsultarStatusOperacional")
	second.Finished = first.Finished.Add(-time.Minute)

	wr := reportsToWriteRequest([]Report{first, second})
	require.Len(t, wr.Timeseries, 3)
	for _, ts := range wr.Timeseries {
		require.Len(t, ts.Samples, 2)
		require.Less(t, ts.Samples[0].Timestamp, ts.Samples[1].Timestamp)
		require.Equal(t, "__name__", ts.Labels[0].Name)
	}
}

func TestToEntity(t *testing.T) {
	r := sampleReport("DesbloquearSAT")
	e := toEntity(r)
	require.Equal(t, r.Hostname, e.PartitionKey)
	require.Equal(t, r.RunID, e.RowKey)
	require.True(t, e.OK)
}

func TestToObserver(t *testing.T) {
	_, err := ToObserver(config.Target{Name: "x", Type: "fnord"})
	require.Error(t, err)

	_, err = ToObserver(config.Target{Name: "bus", Type: "nats", Connection: "nats://127.0.0.1:1"})
	require.Error(t, err)

	obs, err := ToObserver(config.Target{Name: "local", Type: "print"})
	require.NoError(t, err)
	require.IsType(t, &Print{}, obs)
}

func TestFromTargets(t *testing.T) {
	dir := t.TempDir()
	d := FromTargets([]config.Target{
		{Name: "db", Type: "sqlite", Connection: filepath.Join(dir, "outcomes.db"), OfflineBufferTime: 1},
		{Name: "broken", Type: "fnord"},
	}, dir, prometheus.NewRegistry())
	defer d.Cleanup()
	require.Equal(t, 1, d.Len())

	d.NotifyAll(sampleReport("ConsultarStatusOperacional"))
}

type mockObserver struct {
	mock.Mock
	name string
}

func (m *mockObserver) Cleanup() { m.Called() }
func (m *mockObserver) GetName() string { return m.name }
func (m *mockObserver) SetName(name string) { m.name = name }
func (m *mockObserver) InitBuffer(path string, ttl int64) error { return nil }
func (m *mockObserver) PrepareMetrics(prometheus.Registerer) {}
func (m *mockObserver) SaveReports(r []Report) bool {
	return m.Called(r).Bool(0)
}

func TestDispatcherFilters(t *testing.T) {
	ok := sampleReport("ConsultarStatusOperacional")
	failed := NewReport("monitorasat", "1.2.3", "ConsultarStatusOperacional")
	failed.SetOutcome(broker.Outcome{Kind: broker.Timeout, Attempts: 1})

	everything := &mockObserver{name: "everything"}
	everything.On("SaveReports", []Report{ok, failed}).Return(true).Once()
	everything.On("Cleanup").Once()

	failures := &mockObserver{name: "failures"}
	failures.On("SaveReports", []Report{failed}).Return(false).Once()
	failures.On("Cleanup").Once()

	silent := &mockObserver{name: "silent"}
	silent.On("Cleanup").Once()

	d := NewDispatcher()
	d.Register(everything, filter.Filter{})
	d.Register(failures, filter.Filter{Rejected: []filter.Label{{Key: "outcome", Value: "success"}}})
	d.Register(silent, filter.Filter{Accepted: []filter.Label{{Key: "operation", Value: "ExtrairLogs"}}})
	require.Equal(t, 3, d.Len())

	d.NotifyAll(ok, failed)
	d.Cleanup()

	everything.AssertExpectations(t)
	failures.AssertExpectations(t)
	silent.AssertExpectations(t)
	silent.AssertNotCalled(t, "SaveReports", mock.Anything)

	d.Deregister(silent)
	require.Equal(t, 2, d.Len())
}
