package observer

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"ariusmonitor.flagee.cloud/internal/config"
	"ariusmonitor.flagee.cloud/internal/filter"
	"ariusmonitor.flagee.cloud/internal/logger"
	"github.com/prometheus/client_golang/prometheus"
)

func ToObserver(t config.Target) (obs Observer, err error) {
	switch t.Type {
	case "print":
		obs = NewPrint(t.Name, t.Connection, t.Options)
	case "psql":
		obs, err = NewPSQL(t.Name, t.Connection, t.Options)
	case "sqlite":
		obs, err = NewSQLite(t.Name, t.Connection, t.Options)
	case "pushgateway":
		obs, err = NewPushGateway(t.Name, t.Connection, t.Options)
	case "remote_write":
		obs, err = NewRemoteWrite(t.Name, t.Connection)
	case "azure_table":
		obs, err = NewAzureTable(t.Name, t.Connection, t.Options)
	case "nats":
		obs, err = NewNATS(t.Name, t.Connection, t.Options)
	default:
		return nil, fmt.Errorf("target not supported: %s", t.Type)
	}
	return obs, err
}

type registration struct {
	observer Observer
	filter   filter.Filter
}

// Dispatcher hands every report to the registered observers whose filter
// accepts it.
type Dispatcher struct {
	observers map[string]registration
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{observers: make(map[string]registration)}
}

// FromTargets builds a dispatcher from the configured targets. Targets that
// cannot be set up are logged and left out.
func FromTargets(targets []config.Target, workDir string, reg prometheus.Registerer) *Dispatcher {
	d := NewDispatcher()
	for _, t := range targets {
		obs, err := ToObserver(t)
		if err != nil {
			logger.Error("Failed to set up target", slog.String("name", t.Name), slog.String("type", t.Type), slog.Any("error", err))
			continue
		}
		obs.SetName(t.Name)
		obs.PrepareMetrics(reg)
		if err := obs.InitBuffer(filepath.Join(workDir, "buffer", t.Name), t.OfflineBufferTime); err != nil {
			logger.Warn("Target runs without offline buffer", slog.String("name", t.Name))
		}
		d.Register(obs, t.Filter)
	}
	return d
}

func (d *Dispatcher) Register(obs Observer, f filter.Filter) {
	if obs == nil {
		return
	}
	f.Activate()
	d.observers[obs.GetName()] = registration{observer: obs, filter: f}
}

func (d *Dispatcher) Deregister(obs Observer) {
	delete(d.observers, obs.GetName())
}

func (d *Dispatcher) Len() int {
	return len(d.observers)
}

// NotifyAll delivers reports to every observer and waits for all of them.
func (d *Dispatcher) NotifyAll(reports ...Report) {
	var wg sync.WaitGroup
	for _, reg := range d.observers {
		accepted := make([]Report, 0, len(reports))
		for _, r := range reports {
			if reg.filter.Evaluate(r.Labels()) {
				accepted = append(accepted, r)
			}
		}
		if len(accepted) == 0 {
			continue
		}
		wg.Add(1)
		go func(o Observer) {
			defer wg.Done()
			if !o.SaveReports(accepted) {
				logger.Warn("Target did not accept reports", slog.String("name", o.GetName()))
			}
		}(reg.observer)
	}
	wg.Wait()
}

func (d *Dispatcher) Cleanup() {
	for _, reg := range d.observers {
		reg.observer.Cleanup()
	}
}
