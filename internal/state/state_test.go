package state

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/require"
)

func TestPathFile(t *testing.T) {
	p := PathFile{Path: filepath.Join(t.TempDir(), "conf", "sat.conf")}

	_, err := p.Load()
	require.Error(t, err)

	require.NoError(t, p.Save("/posnet/libsatelgin.so"))
	got, err := p.Load()
	require.NoError(t, err)
	require.Equal(t, "/posnet/libsatelgin.so", got)

	require.NoError(t, os.WriteFile(p.Path, []byte("  /posnet/libmfe.so \r\nignored\n"), 0o644))
	got, err = p.Load()
	require.NoError(t, err)
	require.Equal(t, "/posnet/libmfe.so", got)

	require.NoError(t, os.WriteFile(p.Path, []byte("\n"), 0o644))
	_, err = p.Load()
	require.ErrorIs(t, err, ErrEmpty)
}

func TestExtractedLog(t *testing.T) {
	dir := t.TempDir()
	log := NewExtractedLog(filepath.Join(dir, "log_sat", "log_file.log"))
	log.now = func() time.Time { return time.Unix(1700000000, 0) }

	require.NoError(t, log.Write("first extraction"))
	content, err := os.ReadFile(log.Path)
	require.NoError(t, err)
	require.Equal(t, "first extraction", string(content))

	require.NoError(t, log.Write("second"))
	content, err = os.ReadFile(log.Path)
	require.NoError(t, err)
	require.Equal(t, "second", string(content))

	archive, err := os.Open(log.Path + ".1700000000.zst")
	require.NoError(t, err)
	defer archive.Close()
	dec, err := zstd.NewReader(archive)
	require.NoError(t, err)
	defer dec.Close()
	old, err := io.ReadAll(dec)
	require.NoError(t, err)
	require.Equal(t, "first extraction", string(old))
}
