package driver

import (
	"bufio"
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"
)

var lddCommand = "ldd"

// MissingDeps lists the shared objects the dynamic linker cannot find for
// path. Any failure to run ldd yields nil.
func MissingDeps(path string) []string {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	out, _ := exec.CommandContext(ctx, lddCommand, path).Output()
	return parseLdd(out)
}

func parseLdd(out []byte) []string {
	var missing []string
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.Contains(line, "not found") {
			continue
		}
		name, _, _ := strings.Cut(line, " ")
		missing = append(missing, name)
	}
	return missing
}
