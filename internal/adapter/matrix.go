package adapter

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/barvision/barvision-core/internal/infrastructure/config"
)

// defaultMatrixTimeout is used when the config omits command_timeout.
const defaultMatrixTimeout = 2 * time.Second

// Matrix is the venue's video matrix switcher session.
//
// One TCP connection is shared by all routing and CEC traffic; the
// switcher rejects interleaved commands, so the session admits one
// command at a time. The connection is dialled lazily on first use and
// redialled after any I/O failure.
type Matrix struct {
	addr    string
	timeout time.Duration
	logger  Logger

	mu     sync.Mutex
	conn   net.Conn
	reader *bufio.Reader
	closed bool
}

// NewMatrix creates a matrix session from configuration.
// No connection is made until the first command.
func NewMatrix(cfg config.MatrixConfig, logger Logger) *Matrix {
	if logger == nil {
		logger = noopLogger{}
	}
	timeout := time.Duration(cfg.CommandTimeout) * time.Millisecond
	if timeout <= 0 {
		timeout = defaultMatrixTimeout
	}
	return &Matrix{
		addr:    net.JoinHostPort(cfg.Host, fmt.Sprintf("%d", cfg.Port)),
		timeout: timeout,
		logger:  logger,
	}
}

// Route switches the given output to the given input.
func (m *Matrix) Route(ctx context.Context, output, input int) Result {
	reply, err := m.command(ctx, fmt.Sprintf("SW O%02d I%02d", output, input))
	if err != nil {
		return Failed(commandFailure("route", err))
	}
	if !strings.HasPrefix(reply, "OK") {
		return Failed("route rejected: " + reply)
	}
	return Succeeded()
}

// DisplayPower sends a CEC power command to the display on the given output.
// CEC rides the matrix connection; the switcher relays it over HDMI.
func (m *Matrix) DisplayPower(ctx context.Context, output int, on bool) Result {
	state := "OFF"
	if on {
		state = "ON"
	}
	reply, err := m.command(ctx, fmt.Sprintf("CEC O%02d PWR %s", output, state))
	if err != nil {
		return Failed(commandFailure("cec power", err))
	}
	if !strings.HasPrefix(reply, "OK") {
		return Failed("cec power rejected: " + reply)
	}
	return Succeeded()
}

// HealthCheck verifies the switcher answers on its control port.
func (m *Matrix) HealthCheck(ctx context.Context) error {
	if _, err := m.command(ctx, "PING"); err != nil {
		return fmt.Errorf("matrix health check: %w", err)
	}
	return nil
}

// Close shuts the session down. Subsequent commands fail with ErrSessionClosed.
func (m *Matrix) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	if m.conn != nil {
		err := m.conn.Close()
		m.conn = nil
		m.reader = nil
		return err
	}
	return nil
}

// command sends one line to the switcher and reads one reply line.
// Holds the session lock for the full exchange.
func (m *Matrix) command(ctx context.Context, cmd string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return "", ErrSessionClosed
	}

	if m.conn == nil {
		if err := m.dial(ctx); err != nil {
			return "", err
		}
	}

	deadline := time.Now().Add(m.timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}

	if err := m.conn.SetDeadline(deadline); err != nil {
		m.dropLocked()
		return "", fmt.Errorf("setting deadline: %w", err)
	}

	if _, err := fmt.Fprintf(m.conn, "%s\r", cmd); err != nil {
		m.dropLocked()
		return "", fmt.Errorf("writing command: %w", err)
	}

	reply, err := m.reader.ReadString('\r')
	if err != nil {
		m.dropLocked()
		return "", fmt.Errorf("reading reply: %w", err)
	}

	return strings.TrimSpace(reply), nil
}

// dial connects to the switcher. Caller holds the lock.
func (m *Matrix) dial(ctx context.Context) error {
	dialCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	var dialer net.Dialer
	conn, err := dialer.DialContext(dialCtx, "tcp", m.addr)
	if err != nil {
		return fmt.Errorf("connecting to matrix: %w", err)
	}

	m.conn = conn
	m.reader = bufio.NewReader(conn)
	m.logger.Debug("matrix connected", "addr", m.addr)
	return nil
}

// dropLocked discards a broken connection so the next command redials.
// Caller holds the lock.
func (m *Matrix) dropLocked() {
	if m.conn != nil {
		m.conn.Close()
		m.conn = nil
		m.reader = nil
	}
}

// commandFailure formats a short diagnostic for a transport error,
// collapsing timeouts to a stable string the sequencer can classify.
func commandFailure(verb string, err error) string {
	if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
		return verb + ": timeout"
	}
	return verb + ": " + err.Error()
}
