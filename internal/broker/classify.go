package broker

import (
	"strings"
	"unicode/utf8"

	"ariusmonitor.flagee.cloud/internal/driver"
	"golang.org/x/text/encoding/charmap"
)

const (
	phraseConnection = "erro de conexão"
	phraseSuccess    = "resposta com sucesso"
)

// Normalize returns the driver answer as UTF-8. Several vendors answer in
// ISO-8859-1.
func Normalize(raw string) string {
	if utf8.ValidString(raw) {
		return raw
	}
	decoded, err := charmap.ISO8859_1.NewDecoder().String(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// Classify matches the answer against the known phrases, connection errors
// first.
func Classify(answer driver.Answer) (Kind, error) {
	if !answer.Valid {
		return Unrecognized, ErrNoResponse
	}
	text := strings.ToLower(Normalize(answer.Text))
	switch {
	case strings.Contains(text, phraseConnection):
		return ConnectionError, nil
	case strings.Contains(text, phraseSuccess):
		return Success, nil
	}
	return Unrecognized, nil
}
