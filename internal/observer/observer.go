package observer

import (
	"log/slog"
	"time"

	"ariusmonitor.flagee.cloud/internal/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const resendBatch = 50

type Observer interface {
	Cleanup()
	GetName() string
	SetName(name string)
	InitBuffer(path string, ttl int64) error
	PrepareMetrics(reg prometheus.Registerer)
	SaveReports(r []Report) bool
}

type baseObserver struct {
	name             string
	observerType     string
	monitor          observerMetrics
	offlineBufferTTL time.Duration
	buffer           *Buffer
}

func (bo *baseObserver) GetName() string {
	return bo.name
}

func (bo *baseObserver) SetName(name string) {
	bo.name = name
}

// InitBuffer opens the offline buffer. A ttl of zero hours disables it.
func (bo *baseObserver) InitBuffer(bufferPath string, ttl int64) (err error) {
	bo.offlineBufferTTL = time.Duration(ttl) * time.Hour
	if bo.offlineBufferTTL <= 0 {
		return nil
	}
	bo.buffer, err = OpenBuffer(bufferPath, bo.offlineBufferTTL)
	if err != nil {
		logger.Error("Failed to open BadgerDB for offline buffering", slog.String("name", bo.name), slog.Any("error", err))
	}
	return err
}

func (bo *baseObserver) Cleanup() {
	if err := bo.buffer.Close(); err != nil {
		logger.Error("Failed to close offline buffer", slog.String("name", bo.name), slog.Any("error", err))
	}
}

// save delivers reports with saveFunc. Undelivered reports go to the
// offline buffer, and a successful delivery resends what was buffered.
func (bo *baseObserver) save(reports []Report, saveFunc func([]Report) ([]Report, error)) bool {
	if bo.monitor.sent == nil {
		bo.PrepareMetrics(nil)
	}
	failed, err := saveFunc(reports)
	bo.monitor.sent.Add(float64(len(reports) - len(failed)))
	bo.monitor.failed.Add(float64(len(failed)))
	if err != nil {
		logger.Error("Failed to deliver reports", slog.String("name", bo.name), slog.String("type", bo.observerType), slog.Any("error", err))
	}

	if bo.buffer == nil {
		return err == nil
	}
	if err != nil {
		if berr := bo.buffer.Save(failed); berr != nil {
			logger.Error("Failed to save reports to offline buffer", slog.String("name", bo.name), slog.Any("error", berr))
		}
		return false
	}

	buffered, _ := bo.buffer.Fetch(resendBatch)
	if len(buffered) == 0 {
		return true
	}
	stillFailed, err := saveFunc(buffered)
	if err != nil {
		logger.Error("Failed to re-send buffered reports", slog.String("name", bo.name), slog.Any("error", err))
	}
	delivered := buffered
	if len(stillFailed) > 0 {
		delivered = without(buffered, stillFailed)
	}
	if err := bo.buffer.Delete(delivered); err != nil {
		logger.Error("Failed to delete from buffer", slog.String("name", bo.name), slog.Any("error", err))
	}
	bo.monitor.resent.Add(float64(len(delivered)))
	return true
}

func without(all, drop []Report) []Report {
	skip := make(map[string]struct{}, len(drop))
	for _, r := range drop {
		skip[r.RunID] = struct{}{}
	}
	kept := make([]Report, 0, len(all))
	for _, r := range all {
		if _, ok := skip[r.RunID]; !ok {
			kept = append(kept, r)
		}
	}
	return kept
}

type observerMetrics struct {
	sent   prometheus.Counter
	failed prometheus.Counter
	resent prometheus.Counter
}

func (bo *baseObserver) PrepareMetrics(reg prometheus.Registerer) {
	factory := promauto.With(reg)
	labels := prometheus.Labels{"target_name": bo.name, "target_type": bo.observerType}
	bo.monitor.sent = factory.NewCounter(prometheus.CounterOpts{
		Name:        "monitora_report_operations_total",
		Help:        "Total number of delivered reports",
		ConstLabels: labels,
	})
	bo.monitor.failed = factory.NewCounter(prometheus.CounterOpts{
		Name:        "monitora_report_errors_total",
		Help:        "Total number of reports that failed delivery",
		ConstLabels: labels,
	})
	bo.monitor.resent = factory.NewCounter(prometheus.CounterOpts{
		Name:        "monitora_report_resent_total",
		Help:        "Total number of buffered reports delivered later",
		ConstLabels: labels,
	})
}
