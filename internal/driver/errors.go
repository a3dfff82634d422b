package driver

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrCannotOpen      = errors.New("cannot open driver library")
	ErrMissingSymbol   = errors.New("missing driver entry point")
	ErrNotResolved     = errors.New("entry point was not requested at load time")
	ErrAlreadyUnloaded = errors.New("driver already unloaded")
)

type LoadKind int

const (
	CannotOpen LoadKind = iota
	MissingSymbol
)

type LoadError struct {
	Kind   LoadKind
	Path   string
	Symbol string
	// MissingDeps lists shared objects ldd could not find, if any.
	MissingDeps []string
	Err         error
}

func (e *LoadError) Error() string {
	var sb strings.Builder
	switch e.Kind {
	case MissingSymbol:
		fmt.Fprintf(&sb, "%s: %s in %s", ErrMissingSymbol, e.Symbol, e.Path)
	default:
		fmt.Fprintf(&sb, "%s %s", ErrCannotOpen, e.Path)
	}
	if e.Err != nil {
		fmt.Fprintf(&sb, ": %v", e.Err)
	}
	if len(e.MissingDeps) > 0 {
		fmt.Fprintf(&sb, " (missing: %s)", strings.Join(e.MissingDeps, ", "))
	}
	return sb.String()
}

func (e *LoadError) Unwrap() []error {
	kind := ErrCannotOpen
	if e.Kind == MissingSymbol {
		kind = ErrMissingSymbol
	}
	if e.Err == nil {
		return []error{kind}
	}
	return []error{kind, e.Err}
}
