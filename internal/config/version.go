package config

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	Version, Commit, BuildDate string
)

// RegisterBuildInfo publishes the build information gauge for program.
func RegisterBuildInfo(reg prometheus.Registerer, program string) {
	info := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "monitora_build_info",
		Help: "Monitor build information",
		ConstLabels: prometheus.Labels{
			"program":    program,
			"version":    Version,
			"commit":     Commit,
			"build_date": BuildDate,
		},
	})
	info.Set(1)
	reg.MustRegister(info)
}
