// Package state holds the little durable state the monitors keep between
// runs.
package state

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ariusmonitor.flagee.cloud/internal/logger"
	"github.com/klauspost/compress/zstd"
)

var ErrEmpty = errors.New("no driver path recorded")

// PathFile is the single line file recording the last driver library that
// answered. Writers do not lock it, the last one wins.
type PathFile struct {
	Path string
}

func (p PathFile) Load() (string, error) {
	f, err := os.Open(p.Path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	line, err := bufio.NewReader(f).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return "", fmt.Errorf("%w in %s", ErrEmpty, p.Path)
	}
	return line, nil
}

func (p PathFile) Save(lib string) error {
	if err := os.MkdirAll(filepath.Dir(p.Path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(p.Path, []byte(lib+"\n"), 0o644)
}

// ExtractedLog is the file the ExtrairLogs payload is written to.
type ExtractedLog struct {
	Path string
	now  func() time.Time
}

func NewExtractedLog(path string) *ExtractedLog {
	return &ExtractedLog{Path: path, now: time.Now}
}

// Write archives the previous log, if any, and replaces it with payload.
func (e *ExtractedLog) Write(payload string) error {
	if err := os.MkdirAll(filepath.Dir(e.Path), 0o755); err != nil {
		return err
	}
	if err := e.archive(); err != nil {
		logger.Warn("Failed to archive previous SAT log", slog.String("file", e.Path), slog.Any("error", err))
	}

	f, err := os.OpenFile(e.Path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.WriteString(f, payload); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (e *ExtractedLog) archive() error {
	src, err := os.Open(e.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil || info.Size() == 0 {
		return err
	}

	name := fmt.Sprintf("%s.%d.zst", e.Path, e.now().Unix())
	dst, err := os.Create(name)
	if err != nil {
		return err
	}
	defer dst.Close()

	enc, err := zstd.NewWriter(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(enc, src); err != nil {
		enc.Close()
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	logger.Debug("Archived previous SAT log", slog.String("archive", name))
	return nil
}
