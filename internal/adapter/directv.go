package adapter

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/barvision/barvision-core/internal/infrastructure/config"
)

// defaultDirecTVTimeout is used when the config omits command_timeout.
// The receiver's HTTP stack is slow to answer; allow more than the IR path.
const defaultDirecTVTimeout = 5 * time.Second

// DirecTV controls a receiver through its vendor IP control interface.
//
// Commands are short HTTP GETs against the receiver's control port.
// Channel tuning is a single request; the receiver commits the digits
// itself, so no ENTER keypress is needed.
type DirecTV struct {
	name    string
	input   int
	baseURL string
	client  *http.Client
}

// NewDirecTV creates a receiver handle from configuration.
func NewDirecTV(cfg config.DirecTVDeviceConfig) *DirecTV {
	timeout := time.Duration(cfg.CommandTimeout) * time.Millisecond
	if timeout <= 0 {
		timeout = defaultDirecTVTimeout
	}
	return &DirecTV{
		name:    cfg.Name,
		input:   cfg.Input,
		baseURL: fmt.Sprintf("http://%s:%d", cfg.Host, cfg.Port),
		client:  &http.Client{Timeout: timeout},
	}
}

// Name returns the configured device name.
func (d *DirecTV) Name() string { return d.name }

// Kind returns the protocol family.
func (d *DirecTV) Kind() Kind { return KindDirecTV }

// Input returns the matrix input this receiver feeds.
func (d *DirecTV) Input() int { return d.input }

// PowerOn wakes the receiver.
func (d *DirecTV) PowerOn(ctx context.Context) Result {
	return d.get(ctx, "power on", keyURL(d.baseURL, "poweron"))
}

// PowerOff puts the receiver in standby.
func (d *DirecTV) PowerOff(ctx context.Context) Result {
	return d.get(ctx, "power off", keyURL(d.baseURL, "poweroff"))
}

// Route is not supported; receivers are inputs, not displays.
func (d *DirecTV) Route(ctx context.Context, input int) Result {
	return NotSupported("route")
}

// SendDigits tunes the receiver to the given channel.
// The receiver auto-commits the entry; one request covers all digits.
func (d *DirecTV) SendDigits(ctx context.Context, channel string) Result {
	if !allDigits(channel) {
		return Failed("invalid channel: " + channel)
	}
	return d.get(ctx, "tune", tuneURL(d.baseURL, channel))
}

// LaunchApp is not supported on receivers.
func (d *DirecTV) LaunchApp(ctx context.Context, appID string) Result {
	return NotSupported("launch app")
}

// get issues one command request and maps the response to a Result.
func (d *DirecTV) get(ctx context.Context, verb, url string) Result {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Failed(verb + ": " + err.Error())
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return Failed(httpFailure(verb, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Failed(fmt.Sprintf("%s: receiver returned %d", verb, resp.StatusCode))
	}
	return Succeeded()
}

// keyURL builds a remote keypress URL.
//
// Example: http://10.0.1.21:8080/remote/processKey?key=poweron&hold=keyPress
func keyURL(base, key string) string {
	return fmt.Sprintf("%s/remote/processKey?key=%s&hold=keyPress", base, key)
}

// tuneURL builds a channel tune URL.
//
// Example: http://10.0.1.21:8080/tv/tune?major=206
func tuneURL(base, channel string) string {
	return fmt.Sprintf("%s/tv/tune?major=%s", base, channel)
}

// httpFailure collapses transport errors into a short stable diagnostic.
func httpFailure(verb string, err error) string {
	if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
		return verb + ": timeout"
	}
	return verb + ": " + err.Error()
}

// allDigits reports whether s is non-empty and purely numeric.
func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
