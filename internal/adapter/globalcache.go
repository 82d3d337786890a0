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

// IR path defaults. IR is fire-and-forget over a lossy medium, so the
// timeout stays short and tuning pauses between digit bursts.
const (
	defaultIRTimeout       = 1 * time.Second
	defaultInterDigitDelay = 300 * time.Millisecond
	defaultGlobalCachePort = 4998
)

// GlobalCacheUnit is one IR-over-network unit. A single TCP session is
// shared by every emitter on the unit; the unit processes one command
// at a time, so the session is serialised here.
type GlobalCacheUnit struct {
	id      string
	addr    string
	timeout time.Duration
	logger  Logger

	mu     sync.Mutex
	conn   net.Conn
	reader *bufio.Reader
	closed bool
}

// NewGlobalCacheUnit creates a unit session from configuration.
// No connection is made until the first command.
func NewGlobalCacheUnit(cfg config.GlobalCacheUnitConfig, logger Logger) *GlobalCacheUnit {
	if logger == nil {
		logger = noopLogger{}
	}
	port := cfg.Port
	if port == 0 {
		port = defaultGlobalCachePort
	}
	timeout := time.Duration(cfg.CommandTimeout) * time.Millisecond
	if timeout <= 0 {
		timeout = defaultIRTimeout
	}
	return &GlobalCacheUnit{
		id:      cfg.ID,
		addr:    net.JoinHostPort(cfg.Host, fmt.Sprintf("%d", port)),
		timeout: timeout,
		logger:  logger,
	}
}

// ID returns the unit identifier from configuration.
func (u *GlobalCacheUnit) ID() string { return u.id }

// Close shuts the session down. Subsequent commands fail with ErrSessionClosed.
func (u *GlobalCacheUnit) Close() error {
	u.mu.Lock()
	defer u.mu.Unlock()

	u.closed = true
	if u.conn != nil {
		err := u.conn.Close()
		u.conn = nil
		u.reader = nil
		return err
	}
	return nil
}

// sendKey transmits one IR burst on the given emitter port and waits
// for the unit's completion acknowledgement.
func (u *GlobalCacheUnit) sendKey(ctx context.Context, port, deviceType, key string) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.closed {
		return ErrSessionClosed
	}

	if u.conn == nil {
		if err := u.dial(ctx); err != nil {
			return err
		}
	}

	deadline := time.Now().Add(u.timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}

	if err := u.conn.SetDeadline(deadline); err != nil {
		u.dropLocked()
		return fmt.Errorf("setting deadline: %w", err)
	}

	if _, err := fmt.Fprintf(u.conn, "%s\r", irCommand(port, deviceType, key)); err != nil {
		u.dropLocked()
		return fmt.Errorf("writing ir command: %w", err)
	}

	reply, err := u.reader.ReadString('\r')
	if err != nil {
		u.dropLocked()
		return fmt.Errorf("reading ir reply: %w", err)
	}

	if !strings.HasPrefix(reply, "completeir") {
		return fmt.Errorf("unit rejected command: %s", strings.TrimSpace(reply))
	}
	return nil
}

// dial connects to the unit. Caller holds the lock.
func (u *GlobalCacheUnit) dial(ctx context.Context) error {
	dialCtx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	var dialer net.Dialer
	conn, err := dialer.DialContext(dialCtx, "tcp", u.addr)
	if err != nil {
		return fmt.Errorf("connecting to unit %s: %w", u.id, err)
	}

	u.conn = conn
	u.reader = bufio.NewReader(conn)
	u.logger.Debug("globalcache unit connected", "unit", u.id, "addr", u.addr)
	return nil
}

// dropLocked discards a broken connection so the next command redials.
// Caller holds the lock.
func (u *GlobalCacheUnit) dropLocked() {
	if u.conn != nil {
		u.conn.Close()
		u.conn = nil
		u.reader = nil
	}
}

// irCommand builds the wire command for one keypress.
//
// The code set is selected by device type; the unit stores the learned
// codes and plays them back by name.
//
// Example: sendir,1:1,cable,digit_4
func irCommand(port, deviceType, key string) string {
	return fmt.Sprintf("sendir,%s,%s,%s", port, deviceType, key)
}

// IRSender is the tuning capability for one set-top box behind an IR
// emitter. Channel changes expand to one burst per digit, an inter-digit
// pause, and a final ENTER to commit the entry.
type IRSender struct {
	name       string
	input      int
	unit       *GlobalCacheUnit
	port       string
	deviceType string
	interDigit time.Duration
}

// NewIRSender binds an emitter port on a unit to a matrix input.
func NewIRSender(cfg config.GlobalCacheSenderConfig, unit *GlobalCacheUnit) *IRSender {
	interDigit := time.Duration(cfg.InterDigitDelayMS) * time.Millisecond
	if interDigit <= 0 {
		interDigit = defaultInterDigitDelay
	}
	deviceType := cfg.DeviceType
	if deviceType == "" {
		deviceType = "cable"
	}
	return &IRSender{
		name:       cfg.Name,
		input:      cfg.Input,
		unit:       unit,
		port:       cfg.Port,
		deviceType: deviceType,
		interDigit: interDigit,
	}
}

// Name returns the configured device name.
func (s *IRSender) Name() string { return s.name }

// Kind returns the protocol family.
func (s *IRSender) Kind() Kind { return KindIR }

// Input returns the matrix input this box feeds.
func (s *IRSender) Input() int { return s.input }

// DeviceType returns the box class ("cable", "satellite").
func (s *IRSender) DeviceType() string { return s.deviceType }

// PowerOn sends the power-on burst. IR power is usually a toggle; the
// code set must carry a discrete ON code for this to be reliable.
func (s *IRSender) PowerOn(ctx context.Context) Result {
	if err := s.unit.sendKey(ctx, s.port, s.deviceType, "power_on"); err != nil {
		return Failed(commandFailure("power on", err))
	}
	return Succeeded()
}

// PowerOff sends the discrete power-off burst.
func (s *IRSender) PowerOff(ctx context.Context) Result {
	if err := s.unit.sendKey(ctx, s.port, s.deviceType, "power_off"); err != nil {
		return Failed(commandFailure("power off", err))
	}
	return Succeeded()
}

// Route is not supported; set-top boxes are inputs, not displays.
func (s *IRSender) Route(ctx context.Context, input int) Result {
	return NotSupported("route")
}

// SendDigits tunes the box: one burst per digit with an inter-digit
// pause, then ENTER to commit. A failed digit aborts the entry; a
// half-entered channel committed blind would tune somewhere random.
func (s *IRSender) SendDigits(ctx context.Context, channel string) Result {
	if !allDigits(channel) {
		return Failed("invalid channel: " + channel)
	}

	for i, digit := range channel {
		if i > 0 {
			select {
			case <-time.After(s.interDigit):
			case <-ctx.Done():
				return Failed("tune: " + ctx.Err().Error())
			}
		}
		key := fmt.Sprintf("digit_%c", digit)
		if err := s.unit.sendKey(ctx, s.port, s.deviceType, key); err != nil {
			return Failed(commandFailure("tune", err))
		}
	}

	if err := s.unit.sendKey(ctx, s.port, s.deviceType, "enter"); err != nil {
		return Failed(commandFailure("tune commit", err))
	}
	return Succeeded()
}

// LaunchApp is not supported on set-top boxes.
func (s *IRSender) LaunchApp(ctx context.Context, appID string) Result {
	return NotSupported("launch app")
}
