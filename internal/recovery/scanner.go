package recovery

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"ariusmonitor.flagee.cloud/internal/logger"
)

var ErrNotFound = errors.New("no SAT endpoint found")

type Endpoint struct {
	Address string
}

// Scan returns the first IP shaped token directly followed by a token
// holding the activation code.
func Scan(r io.Reader, code string) (Endpoint, error) {
	var previous, current string
	for tok, err := range Tokens(r) {
		if err != nil {
			return Endpoint{}, err
		}
		previous, current = current, tok.Text
		if !tok.Terminated {
			continue
		}
		if ContainsCode(current, code) && LooksLikeIPv4(previous) {
			return Endpoint{Address: previous}, nil
		}
	}
	return Endpoint{}, ErrNotFound
}

func ScanForEndpoint(path, code string) (Endpoint, error) {
	f, err := os.Open(path)
	if err != nil {
		return Endpoint{}, fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	defer f.Close()

	ep, err := Scan(f, code)
	if err == nil {
		logger.Debug("Recovered SAT endpoint", slog.String("file", path), slog.String("address", ep.Address))
	}
	return ep, err
}
