package driver

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"ariusmonitor.flagee.cloud/internal/logger"
)

// Driver is a loaded vendor library with its requested entry points resolved.
// The caller that loaded it owns it and must call Unload exactly once.
type Driver struct {
	path    string
	lib     Library
	text    map[string]TextFunc
	create  CreateFunc
	destroy DestroyFunc

	mu        sync.Mutex
	unloaded  bool
	abandoned bool
}

// Load opens path and resolves every required entry point. On a missing
// symbol the library is closed before returning.
func Load(open Opener, path string, required ...EntryPoint) (*Driver, error) {
	lib, err := open(path)
	if err != nil {
		le := &LoadError{Kind: CannotOpen, Path: path, Err: err}
		if _, statErr := os.Stat(path); statErr == nil {
			le.MissingDeps = MissingDeps(path)
		}
		return nil, le
	}

	d := &Driver{path: path, lib: lib, text: make(map[string]TextFunc)}
	for _, ep := range required {
		if err := d.resolve(ep); err != nil {
			if cerr := lib.Close(); cerr != nil {
				logger.Warn("Failed to close library after resolve error", slog.String("lib", path), slog.Any("error", cerr))
			}
			return nil, &LoadError{Kind: MissingSymbol, Path: path, Symbol: ep.Name, Err: err}
		}
	}
	logger.Debug("Driver loaded", slog.String("lib", path))
	return d, nil
}

func (d *Driver) resolve(ep EntryPoint) (err error) {
	switch ep.Kind {
	case KindText:
		var fn TextFunc
		if fn, err = d.lib.Text(ep.Name, ep.Arity); err == nil {
			d.text[ep.Name] = fn
		}
	case KindCreate:
		d.create, err = d.lib.Create(ep.Name)
	case KindDestroy:
		d.destroy, err = d.lib.Destroy(ep.Name)
	default:
		err = fmt.Errorf("unknown entry point kind %d", ep.Kind)
	}
	return err
}

func (d *Driver) Path() string {
	return d.path
}

// Call invokes a text entry point. The number of args must match its arity.
func (d *Driver) Call(ep EntryPoint, sessionID int32, args ...string) (Answer, error) {
	fn, ok := d.text[ep.Name]
	if !ok {
		return Null(), fmt.Errorf("%w: %s", ErrNotResolved, ep.Name)
	}
	if len(args) != ep.Arity {
		return Null(), fmt.Errorf("%s takes %d arguments, got %d", ep.Name, ep.Arity, len(args))
	}
	return fn(sessionID, args...), nil
}

func (d *Driver) Create(port string, flags int32) (int32, error) {
	if d.create == nil {
		return 0, fmt.Errorf("%w: %s", ErrNotResolved, Create.Name)
	}
	return d.create(port, flags), nil
}

func (d *Driver) Destroy(handle int32) (int32, error) {
	if d.destroy == nil {
		return 0, fmt.Errorf("%w: %s", ErrNotResolved, Destroy.Name)
	}
	return d.destroy(handle), nil
}

// Abandon marks a call on this driver as still running past its deadline.
// Out-of-process libraries are killed right away, in-process ones are left
// mapped since unloading code that is executing is undefined.
func (d *Driver) Abandon() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.abandoned {
		return
	}
	d.abandoned = true
	if k, ok := d.lib.(Killer); ok {
		logger.Warn("Killing driver host with a call still running", slog.String("lib", d.path))
		k.Kill()
	}
}

func (d *Driver) Abandoned() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.abandoned
}

func (d *Driver) Unload() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.unloaded {
		return ErrAlreadyUnloaded
	}
	d.unloaded = true
	if d.abandoned {
		if _, ok := d.lib.(Killer); !ok {
			logger.Warn("Leaving abandoned driver loaded", slog.String("lib", d.path))
			return nil
		}
	}
	if err := d.lib.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
		return fmt.Errorf("unload %s: %w", d.path, err)
	}
	logger.Debug("Driver unloaded", slog.String("lib", d.path))
	return nil
}
