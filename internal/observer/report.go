package observer

import (
	"errors"
	"os"
	"time"

	"ariusmonitor.flagee.cloud/internal/broker"
	"ariusmonitor.flagee.cloud/internal/filter"
	"github.com/google/uuid"
)

// Report is what one monitor run leaves behind for the reporting targets.
type Report struct {
	RunID        string    `json:"run_id"`
	Program      string    `json:"program"`
	Version      string    `json:"version"`
	Hostname     string    `json:"hostname"`
	Started      time.Time `json:"started"`
	Finished     time.Time `json:"finished"`
	Operation    string    `json:"operation"`
	Library      string    `json:"library,omitempty"`
	Manufacturer string    `json:"manufacturer,omitempty"`
	Device       string    `json:"device,omitempty"`
	Outcome      string    `json:"outcome"`
	OK           bool      `json:"ok"`
	Attempts     int       `json:"attempts"`
	SessionID    int32     `json:"session_id,omitempty"`
	Payload      string    `json:"payload,omitempty"`
	Recovered    string    `json:"recovered,omitempty"`
	Error        string    `json:"error,omitempty"`
}

func NewReport(program, version, operation string) Report {
	host, _ := os.Hostname()
	return Report{
		RunID:     uuid.NewString(),
		Program:   program,
		Version:   version,
		Hostname:  host,
		Started:   time.Now(),
		Operation: operation,
	}
}

func (r *Report) SetOutcome(o broker.Outcome) {
	r.Outcome = o.Kind.String()
	r.OK = o.OK()
	r.Attempts = o.Attempts
	r.SessionID = o.SessionID
	r.Payload = o.Payload
	if o.Library != "" {
		r.Library = o.Library
	}
	r.Finished = time.Now()
}

// SetRecovered marks a run without a driver that still located a network
// SAT. The run counts as OK.
func (r *Report) SetRecovered(address string) {
	r.Recovered = address
	r.OK = true
	r.Finished = time.Now()
}

// SetError records a run that ended without an outcome.
func (r *Report) SetError(err error) {
	r.Error = err.Error()
	r.OK = false
	if r.Outcome == "" {
		r.Outcome = errorOutcome(err)
	}
	r.Finished = time.Now()
}

func errorOutcome(err error) string {
	switch {
	case errors.Is(err, broker.ErrNoResponse):
		return "no_response"
	case errors.Is(err, broker.ErrNoneFound):
		return "none_found"
	}
	return "error"
}

func (r Report) Duration() time.Duration {
	if r.Finished.IsZero() {
		return 0
	}
	return r.Finished.Sub(r.Started)
}

// Labels describe the report to target filters.
func (r Report) Labels() []filter.Label {
	labels := []filter.Label{
		{Key: "program", Value: r.Program},
		{Key: "operation", Value: r.Operation},
		{Key: "outcome", Value: r.Outcome},
	}
	if r.Library != "" {
		labels = append(labels, filter.Label{Key: "library", Value: r.Library})
	}
	if r.Manufacturer != "" {
		labels = append(labels, filter.Label{Key: "manufacturer", Value: r.Manufacturer})
	}
	if r.Recovered != "" {
		labels = append(labels, filter.Label{Key: "recovered", Value: r.Recovered})
	}
	return labels
}

func (r Report) key() []byte {
	return []byte(r.RunID)
}
