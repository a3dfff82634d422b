package observer

import (
	"context"
	"fmt"
	"slices"

	"ariusmonitor.flagee.cloud/internal/config"
	"github.com/m3db/prometheus_remote_client_golang/promremote"
	"github.com/prometheus/prometheus/prompb"
)

type RemoteWrite struct {
	baseObserver
	client promremote.Client
}

func NewRemoteWrite(name, url string) (rw *RemoteWrite, err error) {
	cfg := promremote.NewConfig(
		promremote.WriteURLOption(url),
		promremote.UserAgent(fmt.Sprintf("ariusmonitor %s", config.Version)),
	)
	client, err := promremote.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("unable to construct remote write client: %w", err)
	}
	return &RemoteWrite{
		baseObserver: baseObserver{name: name, observerType: "remote_write"},
		client:       client,
	}, nil
}

func (rw *RemoteWrite) SaveReports(r []Report) bool {
	return rw.save(r, rw.write)
}

func (rw *RemoteWrite) write(reports []Report) ([]Report, error) {
	if len(reports) == 0 {
		return nil, nil
	}
	_, werr := rw.client.WriteProto(context.TODO(), reportsToWriteRequest(reports), promremote.WriteOptions{})
	if werr != nil {
		return reports, werr
	}
	return nil, nil
}

func reportsToWriteRequest(reports []Report) *prompb.WriteRequest {
	series := make(map[string]prompb.TimeSeries)
	add := func(metric string, r Report, value float64) {
		key := metric + "/" + r.Hostname + "/" + r.Program + "/" + r.Operation
		sample := prompb.Sample{Value: value, Timestamp: r.Finished.UnixMilli()}
		if ts, ok := series[key]; ok {
			ts.Samples = append(ts.Samples, sample)
			series[key] = ts
			return
		}
		series[key] = prompb.TimeSeries{
			Labels: []prompb.Label{
				{Name: "__name__", Value: metric},
				{Name: "instance", Value: r.Hostname},
				{Name: "operation", Value: r.Operation},
				{Name: "program", Value: r.Program},
			},
			Samples: []prompb.Sample{sample},
		}
	}

	for _, r := range reports {
		ok := 0.0
		if r.OK {
			ok = 1
		}
		add("monitora_outcome_ok", r, ok)
		add("monitora_outcome_attempts", r, float64(r.Attempts))
		add("monitora_outcome_duration_seconds", r, r.Duration().Seconds())
	}

	keys := make([]string, 0, len(series))
	for k := range series {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	out := make([]prompb.TimeSeries, 0, len(series))
	for _, k := range keys {
		ts := series[k]
		// samples of a series must be sent in timestamp order
		slices.SortFunc(ts.Samples, func(a, b prompb.Sample) int {
			return int(a.Timestamp - b.Timestamp)
		})
		out = append(out, ts)
	}
	return &prompb.WriteRequest{Timeseries: out}
}
