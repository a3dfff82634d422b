package forwarder

import (
	"bufio"
	"context"
	"io"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestReadPDVNumber(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
		wantErr error
	}{
		{name: "plain", content: "LOJA=3\nPDV_NROCPU=12\n", want: "12"},
		{name: "spaced", content: "PDV_NROCPU = \t 7 \t\n", want: "7"},
		{name: "crlf", content: "PDV_NROCPU=4\r\n", want: "4"},
		{name: "no assignment first", content: "# PDV_NROCPU\nPDV_NROCPU=9\n", want: "9"},
		{name: "missing", content: "LOJA=3\n", wantErr: ErrNoPDVNumber},
		{name: "empty", content: "PDV_NROCPU=\n", wantErr: ErrNoPDVNumber},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "pdv.conf")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))
			got, err := ReadPDVNumber(path)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}

	_, err := ReadPDVNumber(filepath.Join(t.TempDir(), "absent"))
	require.Error(t, err)
}

func TestLogFile(t *testing.T) {
	day := time.Date(2026, time.March, 5, 10, 0, 0, 0, time.Local)
	require.Equal(t, "/posnet/logpdv0503.txt", LogFile("/posnet", "logpdv", day))
}

func TestOffsets(t *testing.T) {
	dir := t.TempDir()
	o, err := OpenOffsets(filepath.Join(dir, "offsets"))
	require.NoError(t, err)
	defer o.Close()

	logfile := filepath.Join(dir, "logpdv0101.txt")
	require.NoError(t, os.WriteFile(logfile, make([]byte, 200), 0o644))

	loc := o.Location(logfile)
	require.Equal(t, io.SeekEnd, loc.Whence)

	require.NoError(t, o.Save(logfile, 100))
	loc = o.Location(logfile)
	require.Equal(t, io.SeekStart, loc.Whence)
	require.Equal(t, int64(100), loc.Offset)

	// file truncated below the stored offset
	require.NoError(t, os.WriteFile(logfile, make([]byte, 50), 0o644))
	loc = o.Location(logfile)
	require.Equal(t, io.SeekEnd, loc.Whence)

	var none *Offsets
	require.Equal(t, io.SeekEnd, none.Location(logfile).Whence)
	require.NoError(t, none.Save(logfile, 1))
}

type server struct {
	ln       net.Listener
	mu       sync.Mutex
	messages []string
}

func listen(t *testing.T) *server {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	s := &server{ln: ln}
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			msg, _ := io.ReadAll(bufio.NewReader(conn))
			conn.Close()
			if len(msg) == 0 {
				continue
			}
			s.mu.Lock()
			s.messages = append(s.messages, string(msg))
			s.mu.Unlock()
		}
	}()
	t.Cleanup(func() { ln.Close() })
	return s
}

func (s *server) received() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.messages...)
}

func (s *server) sender() *Sender {
	addr := s.ln.Addr().(*net.TCPAddr)
	return NewSender("127.0.0.1", addr.Port, time.Second)
}

func TestSender(t *testing.T) {
	s := listen(t)
	sender := s.sender()
	require.NoError(t, sender.Test(context.Background()))
	require.NoError(t, sender.Send(context.Background(), "PDV-3"))
	require.Eventually(t, func() bool {
		got := s.received()
		return len(got) == 1 && got[0] == "PDV-3"
	}, 2*time.Second, 20*time.Millisecond)

	closed := NewSender("127.0.0.1", 1, 200*time.Millisecond)
	require.Error(t, closed.Test(context.Background()))
}

func TestFollow(t *testing.T) {
	SetPollInterval(20 * time.Millisecond)
	s := listen(t)
	dir := t.TempDir()
	logfile := filepath.Join(dir, "logpdv0101.txt")
	require.NoError(t, os.WriteFile(logfile, []byte("CAIXA LIVRE antes de iniciar\n"), 0o644))

	offsets, err := OpenOffsets(filepath.Join(dir, "offsets"))
	require.NoError(t, err)
	defer offsets.Close()

	f := New(Options{Sender: s.sender(), Message: "12", Trigger: "CAIXA LIVRE", Offsets: offsets})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.Follow(ctx, logfile) }()

	// let the tail settle at the end of the file before appending
	time.Sleep(200 * time.Millisecond)
	out, err := os.OpenFile(logfile, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = out.WriteString("VENDA 1\n12:00 CAIXA LIVRE\nVENDA 2\n")
	require.NoError(t, err)
	require.NoError(t, out.Close())

	require.Eventually(t, func() bool {
		return len(s.received()) == 1
	}, 3*time.Second, 20*time.Millisecond)
	require.Equal(t, "12", s.received()[0])

	cancel()
	require.NoError(t, <-done)
	require.Equal(t, 1.0, testutil.ToFloat64(f.Metrics.triggers))

	info, err := os.Stat(logfile)
	require.NoError(t, err)
	loc := offsets.Location(logfile)
	require.Equal(t, io.SeekStart, loc.Whence)
	require.Greater(t, loc.Offset, int64(0))
	require.LessOrEqual(t, loc.Offset, info.Size())
}
