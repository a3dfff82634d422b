package broker

import (
	"fmt"
	"log/slog"

	"ariusmonitor.flagee.cloud/internal/driver"
	"ariusmonitor.flagee.cloud/internal/logger"
)

type ProbeResult struct {
	Candidate string
	Handle    int32
}

// Probe calls create on each candidate in order and stops at the first
// positive handle, which is destroyed before returning. When explicit is set
// only that candidate is tried. Handles of zero or below all mean "absent".
func Probe(d *driver.Driver, candidates []string, explicit string, metrics *Metrics) (ProbeResult, error) {
	if explicit != "" {
		candidates = []string{explicit}
	}
	for _, candidate := range candidates {
		handle, err := d.Create(candidate, 0)
		if err != nil {
			return ProbeResult{}, err
		}
		if handle <= 0 {
			metrics.probe("absent")
			logger.Debug("No device on candidate", slog.String("candidate", candidate), slog.Int("handle", int(handle)))
			continue
		}

		metrics.probe("present")
		if _, err := d.Destroy(handle); err != nil {
			return ProbeResult{}, err
		}
		logger.Info("Device found", slog.String("candidate", candidate))
		return ProbeResult{Candidate: candidate, Handle: handle}, nil
	}
	return ProbeResult{}, fmt.Errorf("%w among %d candidates", ErrNoneFound, len(candidates))
}
