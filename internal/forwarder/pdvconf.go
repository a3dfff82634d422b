package forwarder

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const pdvNumberKey = "PDV_NROCPU"

var ErrNoPDVNumber = errors.New(pdvNumberKey + " not set")

// ReadPDVNumber returns the value of the first line mentioning PDV_NROCPU
// that carries an assignment.
func ReadPDVNumber(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("cannot open pdv config: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.Contains(line, pdvNumberKey) {
			continue
		}
		_, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		value = strings.Trim(value, " \t\r")
		if value == "" {
			return "", ErrNoPDVNumber
		}
		return value, nil
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", ErrNoPDVNumber
}

// LogFile is the point-of-sale log of the given day, <dir>/<prefix>ddMM.txt.
func LogFile(dir, prefix string, day time.Time) string {
	return filepath.Join(dir, prefix+day.Format("0201")+".txt")
}
