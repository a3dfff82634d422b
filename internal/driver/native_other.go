//go:build !(linux || darwin || freebsd)

package driver

import (
	"fmt"
	"runtime"
)

func Open(path string) (Library, error) {
	return nil, fmt.Errorf("native drivers are not supported on %s", runtime.GOOS)
}
