// Package filter decides which reports a target receives.
package filter

import (
	"slices"
)

// Label is one key/value pair describing a report, such as
// operation=ConsultarStatusOperacional or outcome=timeout.
type Label struct {
	Key   string `yaml:"key"`
	Value string `yaml:"value"`
}

type Filter struct {
	Accepted []Label `yaml:"accepted"`
	Rejected []Label `yaml:"rejected"`
	active   bool
}

func (f *Filter) Activate() {
	if len(f.Accepted) != 0 || len(f.Rejected) != 0 {
		f.active = true
	}
}

// Check if a report with labels should be delivered
// No labels configured -> everything is accepted
// only Accepted provided -> only matching labels are allowed
// only Rejected provided -> everything is allowed except matching labels
// both provided -> only accepted labels that were not rejected later are accepted
func (f *Filter) Evaluate(labels []Label) (accepted bool) {
	if !f.active {
		return true
	}
	for _, label := range labels {
		if len(f.Accepted) == 0 {
			accepted = true
			break
		}
		if slices.Contains(f.Accepted, label) {
			accepted = true
		}
	}

	for _, label := range labels {
		if slices.Contains(f.Rejected, label) {
			accepted = false
		}
	}
	return
}
