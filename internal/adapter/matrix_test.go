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

// fakeMatrixServer answers every command with "OK" (or a canned reply)
// and records what it received.
type fakeMatrixServer struct {
	listener net.Listener
	reply    string
	mu       sync.Mutex
	commands []string
}

func newFakeMatrixServer(t *testing.T, reply string) *fakeMatrixServer {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("starting fake matrix: %v", err)
	}

	s := &fakeMatrixServer{listener: listener, reply: reply}
	go s.serve()
	t.Cleanup(func() { listener.Close() })
	return s
}

func (s *fakeMatrixServer) serve() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		go s.handle(conn)
	}
}

func (s *fakeMatrixServer) handle(conn net.Conn) {
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
		if _, err := conn.Write([]byte(s.reply + "\r")); err != nil {
			return
		}
	}
}

func (s *fakeMatrixServer) received() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.commands))
	copy(out, s.commands)
	return out
}

func testMatrix(t *testing.T, server *fakeMatrixServer) *Matrix {
	t.Helper()

	tcpAddr := server.listener.Addr().(*net.TCPAddr)
	m := NewMatrix(config.MatrixConfig{
		Host:           tcpAddr.IP.String(),
		Port:           tcpAddr.Port,
		CommandTimeout: 2000,
	}, nil)
	t.Cleanup(func() { m.Close() })
	return m
}

func TestMatrix_Route(t *testing.T) {
	server := newFakeMatrixServer(t, "OK")
	m := testMatrix(t, server)

	res := m.Route(context.Background(), 7, 3)
	if !res.OK {
		t.Fatalf("Route() = %+v, want success", res)
	}

	got := server.received()
	if len(got) != 1 || got[0] != "SW O07 I03" {
		t.Errorf("received = %v, want [SW O07 I03]", got)
	}
}

func TestMatrix_DisplayPower(t *testing.T) {
	server := newFakeMatrixServer(t, "OK")
	m := testMatrix(t, server)

	if res := m.DisplayPower(context.Background(), 7, true); !res.OK {
		t.Fatalf("DisplayPower(on) = %+v, want success", res)
	}
	if res := m.DisplayPower(context.Background(), 7, false); !res.OK {
		t.Fatalf("DisplayPower(off) = %+v, want success", res)
	}

	got := server.received()
	if len(got) != 2 || got[0] != "CEC O07 PWR ON" || got[1] != "CEC O07 PWR OFF" {
		t.Errorf("received = %v, want CEC ON then OFF", got)
	}
}

func TestMatrix_Rejection(t *testing.T) {
	server := newFakeMatrixServer(t, "ERR 02")
	m := testMatrix(t, server)

	res := m.Route(context.Background(), 7, 3)
	if res.OK {
		t.Error("Route() succeeded against rejecting switcher, want failure")
	}
	if !strings.Contains(res.Detail, "ERR 02") {
		t.Errorf("Route() detail = %q, want switcher reply included", res.Detail)
	}
}

func TestMatrix_Closed(t *testing.T) {
	server := newFakeMatrixServer(t, "OK")
	m := testMatrix(t, server)

	m.Close()

	res := m.Route(context.Background(), 1, 1)
	if res.OK {
		t.Error("Route() on closed session succeeded, want failure")
	}
}

func TestMatrix_Unreachable(t *testing.T) {
	m := NewMatrix(config.MatrixConfig{
		Host:           "127.0.0.1",
		Port:           1, // nothing listens here
		CommandTimeout: 500,
	}, nil)
	defer m.Close()

	res := m.Route(context.Background(), 1, 1)
	if res.OK {
		t.Error("Route() to unreachable switcher succeeded, want failure")
	}
}
