package adapter

import (
	"bufio"
	"context"
	"net"
	"strings"
	"sync"
	"testing"

	"github.com/barvision/barvision-core/internal/infrastructure/config"
)

// fakeUnitServer accepts connections and answers every IR command with
// "completeir". Received commands are recorded for assertions.
type fakeUnitServer struct {
	listener net.Listener
	mu       sync.Mutex
	commands []string
}

func newFakeUnitServer(t *testing.T) *fakeUnitServer {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("starting fake unit: %v", err)
	}

	s := &fakeUnitServer{listener: listener}
	go s.serve()
	t.Cleanup(func() { listener.Close() })
	return s
}

func (s *fakeUnitServer) serve() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		go s.handle(conn)
	}
}

func (s *fakeUnitServer) handle(conn net.Conn) {
	defer conn.Close()
	reader := bufio.NewReader(conn)
	for {
		line, err := reader.ReadString('\r')
		if err != nil {
			return
		}
		s.mu.Lock()
		s.commands = append(s.commands, strings.TrimSpace(line))
		s.mu.Unlock()
		if _, err := conn.Write([]byte("completeir\r")); err != nil {
			return
		}
	}
}

func (s *fakeUnitServer) received() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.commands))
	copy(out, s.commands)
	return out
}

func (s *fakeUnitServer) addr() (host string, port int) {
	tcpAddr := s.listener.Addr().(*net.TCPAddr)
	return tcpAddr.IP.String(), tcpAddr.Port
}

func testSender(t *testing.T, server *fakeUnitServer) *IRSender {
	t.Helper()

	host, port := server.addr()
	unit := NewGlobalCacheUnit(config.GlobalCacheUnitConfig{
		ID:             "gc-test",
		Host:           host,
		Port:           port,
		CommandTimeout: 2000,
	}, nil)
	t.Cleanup(func() { unit.Close() })

	return NewIRSender(config.GlobalCacheSenderConfig{
		Input:             4,
		Name:              "Cable Box Test",
		Unit:              "gc-test",
		Port:              "1:2",
		DeviceType:        "cable",
		InterDigitDelayMS: 1, // keep tests fast
	}, unit)
}

func TestIRSender_SendDigitsExpandsPerDigit(t *testing.T) {
	server := newFakeUnitServer(t)
	sender := testSender(t, server)

	res := sender.SendDigits(context.Background(), "206")
	if !res.OK {
		t.Fatalf("SendDigits() = %+v, want success", res)
	}

	want := []string{
		"sendir,1:2,cable,digit_2",
		"sendir,1:2,cable,digit_0",
		"sendir,1:2,cable,digit_6",
		"sendir,1:2,cable,enter",
	}
	got := server.received()
	if len(got) != len(want) {
		t.Fatalf("received %d commands %v, want %d", len(got), got, len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("command[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestIRSender_SendDigitsInvalidChannel(t *testing.T) {
	server := newFakeUnitServer(t)
	sender := testSender(t, server)

	res := sender.SendDigits(context.Background(), "20a")
	if res.OK {
		t.Error("SendDigits(\"20a\") succeeded, want failure")
	}
	if len(server.received()) != 0 {
		t.Errorf("invalid channel sent %v to the unit, want nothing", server.received())
	}
}

func TestIRSender_PowerKeys(t *testing.T) {
	server := newFakeUnitServer(t)
	sender := testSender(t, server)

	if res := sender.PowerOn(context.Background()); !res.OK {
		t.Errorf("PowerOn() = %+v, want success", res)
	}
	if res := sender.PowerOff(context.Background()); !res.OK {
		t.Errorf("PowerOff() = %+v, want success", res)
	}

	got := server.received()
	if len(got) != 2 || got[0] != "sendir,1:2,cable,power_on" || got[1] != "sendir,1:2,cable,power_off" {
		t.Errorf("received = %v, want power_on then power_off", got)
	}
}

func TestGlobalCacheUnit_ClosedSession(t *testing.T) {
	server := newFakeUnitServer(t)
	sender := testSender(t, server)

	// Close the shared unit session out from under the sender.
	sender.unit.Close()

	res := sender.SendDigits(context.Background(), "206")
	if res.OK {
		t.Error("SendDigits on closed session succeeded, want failure")
	}
}

func TestGlobalCacheUnit_SerialisesCommands(t *testing.T) {
	server := newFakeUnitServer(t)
	sender := testSender(t, server)

	// Hammer the shared session from several goroutines. The fake unit
	// reads line-by-line, so interleaved writes would corrupt commands.
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if res := sender.PowerOn(context.Background()); !res.OK {
				t.Errorf("concurrent PowerOn() = %+v, want success", res)
			}
		}()
	}
	wg.Wait()

	got := server.received()
	if len(got) != 8 {
		t.Fatalf("received %d commands, want 8", len(got))
	}
	for i, cmd := range got {
		if cmd != "sendir,1:2,cable,power_on" {
			t.Errorf("command[%d] = %q, corrupted by interleaving", i, cmd)
		}
	}
}

func TestIRCommand(t *testing.T) {
	got := irCommand("1:3", "satellite", "digit_7")
	want := "sendir,1:3,satellite,digit_7"
	if got != want {
		t.Errorf("irCommand() = %q, want %q", got, want)
	}
}
