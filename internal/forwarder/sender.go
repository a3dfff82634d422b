package forwarder

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	"ariusmonitor.flagee.cloud/internal/logger"
)

// Sender delivers each message over a fresh TCP connection.
type Sender struct {
	addr   string
	dialer net.Dialer
}

func NewSender(host string, port int, timeout time.Duration) *Sender {
	return &Sender{
		addr:   net.JoinHostPort(host, strconv.Itoa(port)),
		dialer: net.Dialer{Timeout: timeout},
	}
}

func (s *Sender) Addr() string {
	return s.addr
}

// Test opens and closes one connection to the server.
func (s *Sender) Test(ctx context.Context) error {
	conn, err := s.dialer.DialContext(ctx, "tcp", s.addr)
	if err != nil {
		return fmt.Errorf("cannot reach %s: %w", s.addr, err)
	}
	logger.Info("Connection to server established", slog.String("server", s.addr))
	return conn.Close()
}

func (s *Sender) Send(ctx context.Context, msg string) error {
	conn, err := s.dialer.DialContext(ctx, "tcp", s.addr)
	if err != nil {
		return fmt.Errorf("cannot reach %s: %w", s.addr, err)
	}
	defer conn.Close()
	if _, err := conn.Write([]byte(msg)); err != nil {
		return fmt.Errorf("cannot send to %s: %w", s.addr, err)
	}
	logger.Info("Message sent", slog.String("server", s.addr), slog.String("message", msg))
	return nil
}
