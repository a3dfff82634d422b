package observer

import (
	"log/slog"
	url_parser "net/url"
	"os"

	"ariusmonitor.flagee.cloud/internal/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

type PushGateway struct {
	baseObserver
	url string
	job string
}

func NewPushGateway(name, url string, opts map[string]string) (pg *PushGateway, err error) {
	if _, err = url_parser.Parse(url); err != nil {
		logger.Error("Failed to parse URL", slog.String("name", name), slog.Any("error", err))
		return nil, err
	}
	job := opts["job"]
	if job == "" {
		job = "ariusmonitor"
	}
	return &PushGateway{
		baseObserver: baseObserver{name: name, observerType: "pushgateway"},
		url:          url,
		job:          job,
	}, nil
}

func (pg *PushGateway) SaveReports(r []Report) bool {
	return pg.save(r, pg.push)
}

// push sends the latest report per host and program, the gateway only keeps
// the last value of a group anyway.
func (pg *PushGateway) push(reports []Report) ([]Report, error) {
	latest := make(map[string]Report)
	for _, r := range reports {
		key := r.Hostname + "/" + r.Program
		if prev, ok := latest[key]; !ok || r.Started.After(prev.Started) {
			latest[key] = r
		}
	}

	var failed []Report
	var lastErr error
	for _, r := range latest {
		host := r.Hostname
		if host == "" {
			host, _ = os.Hostname()
		}
		err := push.New(pg.url, pg.job).
			Collector(ReportCollector{reports: []Report{r}}).
			Grouping("instance", host).
			Grouping("program", r.Program).
			Add()
		if err != nil {
			failed = append(failed, r)
			lastErr = err
		}
	}
	return failed, lastErr
}

// ReportCollector exposes reports as gauges.
type ReportCollector struct {
	reports []Report
}

var (
	outcomeDesc = prometheus.NewDesc("monitora_outcome_ok",
		"1 when the last run succeeded", []string{"operation", "outcome", "library"}, nil)
	attemptsDesc = prometheus.NewDesc("monitora_outcome_attempts",
		"Driver calls made by the last run", []string{"operation"}, nil)
	durationDesc = prometheus.NewDesc("monitora_outcome_duration_seconds",
		"Duration of the last run", []string{"operation"}, nil)
	finishedDesc = prometheus.NewDesc("monitora_outcome_timestamp_seconds",
		"Unix time the last run finished", []string{"operation"}, nil)
)

func (rc ReportCollector) Describe(ch chan<- *prometheus.Desc) {
	prometheus.DescribeByCollect(rc, ch)
}

func (rc ReportCollector) Collect(ch chan<- prometheus.Metric) {
	// one series per operation, later reports replace earlier ones
	byOperation := make(map[string]Report)
	for _, r := range rc.reports {
		byOperation[r.Operation] = r
	}
	for op, r := range byOperation {
		ok := 0.0
		if r.OK {
			ok = 1
		}
		ch <- prometheus.MustNewConstMetric(outcomeDesc, prometheus.GaugeValue, ok, op, r.Outcome, r.Library)
		ch <- prometheus.MustNewConstMetric(attemptsDesc, prometheus.GaugeValue, float64(r.Attempts), op)
		ch <- prometheus.MustNewConstMetric(durationDesc, prometheus.GaugeValue, r.Duration().Seconds(), op)
		ch <- prometheus.MustNewConstMetric(finishedDesc, prometheus.GaugeValue, float64(r.Finished.Unix()), op)
	}
}
