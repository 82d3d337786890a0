package adapter

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/barvision/barvision-core/internal/infrastructure/config"
)

// newTestReceiver starts a fake receiver and returns a DirecTV handle
// pointed at it, plus a function returning the request paths seen.
func newTestReceiver(t *testing.T, status int) (*DirecTV, func() []string) {
	t.Helper()

	var mu sync.Mutex
	var paths []string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.URL.String())
		mu.Unlock()
		w.WriteHeader(status)
	}))
	t.Cleanup(server.Close)

	host, portStr, err := net.SplitHostPort(server.Listener.Addr().String())
	if err != nil {
		t.Fatalf("parsing test server address: %v", err)
	}
	port, _ := strconv.Atoi(portStr)

	dev := NewDirecTV(config.DirecTVDeviceConfig{
		Input:          3,
		Name:           "DirecTV Test",
		Host:           host,
		Port:           port,
		CommandTimeout: 2000,
	})

	return dev, func() []string {
		mu.Lock()
		defer mu.Unlock()
		out := make([]string, len(paths))
		copy(out, paths)
		return out
	}
}

func TestDirecTV_PowerOn(t *testing.T) {
	dev, requests := newTestReceiver(t, http.StatusOK)

	res := dev.PowerOn(context.Background())
	if !res.OK {
		t.Fatalf("PowerOn() = %+v, want success", res)
	}

	got := requests()
	if len(got) != 1 || got[0] != "/remote/processKey?key=poweron&hold=keyPress" {
		t.Errorf("requests = %v, want single poweron keypress", got)
	}
}

func TestDirecTV_SendDigitsSingleRequest(t *testing.T) {
	dev, requests := newTestReceiver(t, http.StatusOK)

	res := dev.SendDigits(context.Background(), "206")
	if !res.OK {
		t.Fatalf("SendDigits() = %+v, want success", res)
	}

	// Vendor IP control auto-commits; the whole channel is one request.
	got := requests()
	if len(got) != 1 || got[0] != "/tv/tune?major=206" {
		t.Errorf("requests = %v, want single tune request", got)
	}
}

func TestDirecTV_SendDigitsInvalidChannel(t *testing.T) {
	dev, requests := newTestReceiver(t, http.StatusOK)

	res := dev.SendDigits(context.Background(), "")
	if res.OK {
		t.Error("SendDigits(\"\") succeeded, want failure")
	}
	if len(requests()) != 0 {
		t.Errorf("invalid channel reached the receiver: %v", requests())
	}
}

func TestDirecTV_ReceiverError(t *testing.T) {
	dev, _ := newTestReceiver(t, http.StatusForbidden)

	res := dev.PowerOff(context.Background())
	if res.OK {
		t.Error("PowerOff() succeeded against a 403 receiver, want failure")
	}
}

func TestDirecTV_Unreachable(t *testing.T) {
	dev := NewDirecTV(config.DirecTVDeviceConfig{
		Input:          3,
		Name:           "Unreachable",
		Host:           "127.0.0.1",
		Port:           1, // nothing listens here
		CommandTimeout: 500,
	})

	res := dev.PowerOn(context.Background())
	if res.OK {
		t.Error("PowerOn() on unreachable receiver succeeded, want failure")
	}
	if res.Detail == "" {
		t.Error("failure result missing diagnostic detail")
	}
}

func TestDirecTV_UnsupportedVerbs(t *testing.T) {
	dev, _ := newTestReceiver(t, http.StatusOK)
	ctx := context.Background()

	if res := dev.Route(ctx, 1); res.OK {
		t.Error("Route() on receiver succeeded, want not supported")
	}
	if res := dev.LaunchApp(ctx, "netflix"); res.OK {
		t.Error("LaunchApp() on receiver succeeded, want not supported")
	}
}
