//go:build linux || darwin || freebsd

package driver

import (
	"fmt"
	"unsafe"

	"github.com/ebitengine/purego"
)

type nativeLibrary struct {
	path   string
	handle uintptr
}

// Open loads a vendor library into this process with dlopen.
func Open(path string) (Library, error) {
	handle, err := purego.Dlopen(path, purego.RTLD_LAZY|purego.RTLD_LOCAL)
	if err != nil {
		return nil, err
	}
	return &nativeLibrary{path: path, handle: handle}, nil
}

func (l *nativeLibrary) Text(name string, arity int) (TextFunc, error) {
	sym, err := purego.Dlsym(l.handle, name)
	if err != nil {
		return nil, err
	}
	switch arity {
	case 1:
		var fn func(int32, string) unsafe.Pointer
		purego.RegisterFunc(&fn, sym)
		return func(sessionID int32, args ...string) Answer {
			return answerAt(fn(sessionID, args[0]))
		}, nil
	case 3:
		var fn func(int32, string, string, string) unsafe.Pointer
		purego.RegisterFunc(&fn, sym)
		return func(sessionID int32, args ...string) Answer {
			return answerAt(fn(sessionID, args[0], args[1], args[2]))
		}, nil
	}
	return nil, fmt.Errorf("unsupported arity %d for %s", arity, name)
}

func (l *nativeLibrary) Create(name string) (CreateFunc, error) {
	sym, err := purego.Dlsym(l.handle, name)
	if err != nil {
		return nil, err
	}
	var fn func(string, int32) int32
	purego.RegisterFunc(&fn, sym)
	return fn, nil
}

func (l *nativeLibrary) Destroy(name string) (DestroyFunc, error) {
	sym, err := purego.Dlsym(l.handle, name)
	if err != nil {
		return nil, err
	}
	var fn func(int32) int32
	purego.RegisterFunc(&fn, sym)
	return fn, nil
}

func (l *nativeLibrary) Close() error {
	return purego.Dlclose(l.handle)
}

// answerAt copies the NUL terminated string owned by the driver.
func answerAt(p unsafe.Pointer) Answer {
	if p == nil {
		return Null()
	}
	n := 0
	for *(*byte)(unsafe.Add(p, n)) != 0 {
		n++
	}
	return Text(string(unsafe.Slice((*byte)(p), n)))
}
