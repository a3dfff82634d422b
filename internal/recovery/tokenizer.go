// Package recovery digs the last known SAT network address out of the
// binary PDV configuration file when no driver is available.
package recovery

import (
	"bufio"
	"errors"
	"io"
	"iter"
	"strings"
)

const (
	bufferSize = 256
	// MinTokenLength is the shortest run kept when a non-printable byte ends it.
	MinTokenLength = 4
)

// Token is a run of printable bytes. Terminated is false when the run was
// cut because the buffer filled up.
type Token struct {
	Text       string
	Terminated bool
}

func printable(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	}
	return b >= 0x21 && b <= 0x7e
}

// Tokens lazily splits r into printable runs. Runs shorter than
// MinTokenLength are dropped. A pending run is emitted at end of input.
func Tokens(r io.Reader) iter.Seq2[Token, error] {
	return func(yield func(Token, error) bool) {
		br := bufio.NewReader(r)
		buf := make([]byte, 0, bufferSize)
		for {
			b, err := br.ReadByte()
			if errors.Is(err, io.EOF) {
				if len(buf) >= MinTokenLength {
					yield(Token{Text: string(buf), Terminated: true}, nil)
				}
				return
			}
			if err != nil {
				yield(Token{}, err)
				return
			}

			switch {
			case printable(b):
				buf = append(buf, b)
				if len(buf) >= bufferSize-1 {
					if !yield(Token{Text: string(buf)}, nil) {
						return
					}
					buf = buf[:0]
				}
			case len(buf) >= MinTokenLength:
				if !yield(Token{Text: string(buf), Terminated: true}, nil) {
					return
				}
				buf = buf[:0]
			default:
				buf = buf[:0]
			}
		}
	}
}

// LooksLikeIPv4 only counts dots, octets are not validated.
func LooksLikeIPv4(s string) bool {
	return strings.Count(s, ".") == 3
}

func ContainsCode(token, code string) bool {
	return code != "" && strings.Contains(token, code)
}
