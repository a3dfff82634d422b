package config

import "ariusmonitor.flagee.cloud/internal/filter"

// Target is one reporting destination for broker outcomes.
type Target struct {
	Name              string
	Type              string `yaml:"type"`
	Connection        string
	OfflineBufferTime int64         `yaml:"offline_buffer_time"` // Time in hours to keep undelivered reports
	Filter            filter.Filter `yaml:"filters"`
	Options           map[string]string
}
