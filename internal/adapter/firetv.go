package adapter

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/barvision/barvision-core/internal/infrastructure/config"
)

// defaultFireTVTimeout is used when the config omits command_timeout.
const defaultFireTVTimeout = 3 * time.Second

// FireTV controls a streaming box over its network control port.
//
// Streaming boxes carry no channel line-up, so tuning is unsupported;
// their verbs are power and app launch. Each command opens a short-lived
// connection, which keeps the box's single control slot free between
// schedule runs.
type FireTV struct {
	name    string
	input   int
	addr    string
	timeout time.Duration
}

// NewFireTV creates a streaming box handle from configuration.
func NewFireTV(cfg config.FireTVDeviceConfig) *FireTV {
	timeout := time.Duration(cfg.CommandTimeout) * time.Millisecond
	if timeout <= 0 {
		timeout = defaultFireTVTimeout
	}
	return &FireTV{
		name:    cfg.Name,
		input:   cfg.Input,
		addr:    net.JoinHostPort(cfg.Host, fmt.Sprintf("%d", cfg.Port)),
		timeout: timeout,
	}
}

// Name returns the configured device name.
func (f *FireTV) Name() string { return f.name }

// Kind returns the protocol family.
func (f *FireTV) Kind() Kind { return KindFireTV }

// Input returns the matrix input this box feeds.
func (f *FireTV) Input() int { return f.input }

// PowerOn wakes the box.
func (f *FireTV) PowerOn(ctx context.Context) Result {
	return f.send(ctx, "power on", "WAKE")
}

// PowerOff puts the box to sleep.
func (f *FireTV) PowerOff(ctx context.Context) Result {
	return f.send(ctx, "power off", "SLEEP")
}

// Route is not supported; streaming boxes are inputs, not displays.
func (f *FireTV) Route(ctx context.Context, input int) Result {
	return NotSupported("route")
}

// SendDigits is not supported; streaming boxes have no channel line-up.
func (f *FireTV) SendDigits(ctx context.Context, channel string) Result {
	return NotSupported("tune")
}

// LaunchApp starts the given app on the box.
func (f *FireTV) LaunchApp(ctx context.Context, appID string) Result {
	if appID == "" {
		return Failed("launch app: empty app id")
	}
	return f.send(ctx, "launch app", "LAUNCH "+appID)
}

// send opens a connection, issues one command line, and reads the reply.
func (f *FireTV) send(ctx context.Context, verb, cmd string) Result {
	dialCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	var dialer net.Dialer
	conn, err := dialer.DialContext(dialCtx, "tcp", f.addr)
	if err != nil {
		return Failed(commandFailure(verb, err))
	}
	defer conn.Close()

	deadline := time.Now().Add(f.timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return Failed(verb + ": " + err.Error())
	}

	if _, err := fmt.Fprintf(conn, "%s\r", cmd); err != nil {
		return Failed(commandFailure(verb, err))
	}

	reply, err := bufio.NewReader(conn).ReadString('\r')
	if err != nil {
		return Failed(commandFailure(verb, err))
	}
	if !strings.HasPrefix(reply, "OK") {
		return Failed(verb + " rejected: " + strings.TrimSpace(reply))
	}
	return Succeeded()
}
