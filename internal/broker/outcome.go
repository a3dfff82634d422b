package broker

import (
	"errors"
	"time"
)

var (
	ErrNoResponse         = errors.New("driver returned no response")
	ErrNoneFound          = errors.New("no candidate answered")
	ErrNoDriverConfigured = errors.New("no driver library configured")
)

type Kind int

const (
	Unrecognized Kind = iota
	Success
	ConnectionError
	Timeout
	DriverMissing
)

func (k Kind) String() string {
	switch k {
	case Success:
		return "success"
	case ConnectionError:
		return "connection_error"
	case Timeout:
		return "timeout"
	case DriverMissing:
		return "driver_missing"
	default:
		return "unrecognized"
	}
}

// Outcome is the final result of one broker invocation.
type Outcome struct {
	Kind Kind
	// Payload is the driver answer for Success, or the last raw answer for
	// Unrecognized.
	Payload   string
	Library   string
	Attempts  int
	SessionID int32
	Elapsed   time.Duration
	// Abandoned is set when the last call was still running when given up.
	Abandoned bool
}

func (o Outcome) OK() bool {
	return o.Kind == Success
}
