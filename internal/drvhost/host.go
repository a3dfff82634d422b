package drvhost

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"ariusmonitor.flagee.cloud/internal/driver"
	"ariusmonitor.flagee.cloud/internal/logger"
)

var ErrNotOpen = errors.New("no library opened in driver host")

// Host owns the single library loaded inside satdriverhost.
type Host struct {
	open driver.Opener

	mu      sync.Mutex
	lib     driver.Library
	text    map[string]driver.TextFunc
	create  driver.CreateFunc
	destroy driver.DestroyFunc
}

func NewHost(open driver.Opener) *Host {
	return &Host{open: open}
}

func (h *Host) Open(path string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.lib != nil {
		return errors.New("driver host already holds a library")
	}
	lib, err := h.open(path)
	if err != nil {
		return err
	}
	h.lib = lib
	h.text = make(map[string]driver.TextFunc)
	logger.Info("Driver host opened library", slog.String("lib", path))
	return nil
}

func (h *Host) Resolve(ep driver.EntryPoint) (err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.lib == nil {
		return ErrNotOpen
	}
	switch ep.Kind {
	case driver.KindText:
		var fn driver.TextFunc
		if fn, err = h.lib.Text(ep.Name, ep.Arity); err == nil {
			h.text[ep.Name] = fn
		}
	case driver.KindCreate:
		h.create, err = h.lib.Create(ep.Name)
	case driver.KindDestroy:
		h.destroy, err = h.lib.Destroy(ep.Name)
	}
	return err
}

func (h *Host) Call(name string, sessionID int32, args []string) (driver.Answer, error) {
	h.mu.Lock()
	fn, ok := h.text[name]
	h.mu.Unlock()
	if !ok {
		return driver.Null(), fmt.Errorf("%w: %s", driver.ErrNotResolved, name)
	}
	return fn(sessionID, args...), nil
}

func (h *Host) Create(port string, flags int32) (int32, error) {
	h.mu.Lock()
	fn := h.create
	h.mu.Unlock()
	if fn == nil {
		return 0, fmt.Errorf("%w: %s", driver.ErrNotResolved, driver.Create.Name)
	}
	return fn(port, flags), nil
}

func (h *Host) Destroy(handle int32) (int32, error) {
	h.mu.Lock()
	fn := h.destroy
	h.mu.Unlock()
	if fn == nil {
		return 0, fmt.Errorf("%w: %s", driver.ErrNotResolved, driver.Destroy.Name)
	}
	return fn(handle), nil
}

func (h *Host) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.lib == nil {
		return nil
	}
	err := h.lib.Close()
	h.lib, h.text, h.create, h.destroy = nil, nil, nil, nil
	return err
}
