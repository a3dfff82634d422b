// Package drivertest provides an in-memory driver.Library for tests.
package drivertest

import (
	"errors"
	"fmt"
	"sync"

	"ariusmonitor.flagee.cloud/internal/driver"
)

var ErrNoSymbol = errors.New("undefined symbol")

// Library serves the entry points registered on it and records how it was
// used.
type Library struct {
	mu      sync.Mutex
	text    map[string]driver.TextFunc
	create  driver.CreateFunc
	destroy driver.DestroyFunc

	Closes    int
	Kills     int
	Destroyed []int32
	Sessions  []int32
}

func New() *Library {
	return &Library{text: make(map[string]driver.TextFunc)}
}

// Answers makes name return the given answers in order, repeating the last.
func (l *Library) Answers(name string, answers ...driver.Answer) *Library {
	var calls int
	return l.Func(name, func(sessionID int32, args ...string) driver.Answer {
		a := answers[min(calls, len(answers)-1)]
		calls++
		return a
	})
}

func (l *Library) Func(name string, fn driver.TextFunc) *Library {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.text[name] = func(sessionID int32, args ...string) driver.Answer {
		l.mu.Lock()
		l.Sessions = append(l.Sessions, sessionID)
		l.mu.Unlock()
		return fn(sessionID, args...)
	}
	return l
}

// Ports makes create return handles[port], zero for unknown ports.
func (l *Library) Ports(handles map[string]int32) *Library {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.create = func(port string, flags int32) int32 {
		return handles[port]
	}
	l.destroy = func(handle int32) int32 {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.Destroyed = append(l.Destroyed, handle)
		return 0
	}
	return l
}

func (l *Library) Text(name string, arity int) (driver.TextFunc, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fn, ok := l.text[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoSymbol, name)
	}
	return fn, nil
}

func (l *Library) Create(name string) (driver.CreateFunc, error) {
	if l.create == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoSymbol, name)
	}
	return l.create, nil
}

func (l *Library) Destroy(name string) (driver.DestroyFunc, error) {
	if l.destroy == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoSymbol, name)
	}
	return l.destroy, nil
}

func (l *Library) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Closes++
	return nil
}

func (l *Library) CloseCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.Closes
}

func (l *Library) SessionIDs() []int32 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]int32(nil), l.Sessions...)
}

// Opener serves libraries by path. Unknown paths fail to open.
func Opener(libs map[string]driver.Library) driver.Opener {
	return func(path string) (driver.Library, error) {
		lib, ok := libs[path]
		if !ok {
			return nil, fmt.Errorf("%s: cannot open shared object file: No such file or directory", path)
		}
		return lib, nil
	}
}

// Killable is a Library that also implements driver.Killer.
type Killable struct {
	*Library
}

func (k Killable) Kill() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.Kills++
}
