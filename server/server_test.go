package server

import (
	"bufio"
	"net"
	"testing"
	"time"

	"github.com/fortytw2/leaktest"
	"github.com/google/go-cmp/cmp"

	"lanchat/config"
	"lanchat/wire"
)

func testConfig(t *testing.T) config.Config {
	cfg := config.Default()
	cfg.Port = freePort(t)
	return cfg
}

// freePort asks the kernel for an ephemeral TCP port and assumes the
// matching UDP port is also free, which is true often enough for tests run
// one at a time on loopback.
func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("freePort: %v", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func dialTCP(t *testing.T, addr string) net.Conn {
	t.Helper()
	conn, err := net.DialTimeout("tcp", addr, 2*time.Second)
	if err != nil {
		t.Fatalf("dial %s: %v", addr, err)
	}
	return conn
}

func readDispatch(t *testing.T, r *bufio.Reader) (string, string) {
	t.Helper()
	op, err := wire.ReadOpcode(r)
	if err != nil {
		t.Fatalf("ReadOpcode: %v", err)
	}
	if op != wire.OpSayDispatch {
		t.Fatalf("opcode = %v, want SAY_DISPATCH", op)
	}
	name, msg, err := wire.ReadSayDispatch(r)
	if err != nil {
		t.Fatalf("ReadSayDispatch: %v", err)
	}
	return name, msg
}

// readUntilMessage skips connect/disconnect notices (whose text and timing
// relative to other clients' joins is not deterministic) and returns the
// first dispatch whose message text matches want.
func readUntilMessage(t *testing.T, conn net.Conn, r *bufio.Reader, want string) string {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for i := 0; i < 10; i++ {
		name, msg := readDispatch(t, r)
		if msg == want {
			return name
		}
	}
	t.Fatalf("never saw a dispatch with message %q", want)
	return ""
}

func TestServerFanOut(t *testing.T) {
	defer leaktest.Check(t)()

	cfg := testConfig(t)
	s, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.Start("127.0.0.1"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Dispose()

	a := dialTCP(t, s.Addr())
	defer a.Close()
	b := dialTCP(t, s.Addr())
	defer b.Close()

	// Connecting enqueues a "connected." notice whose exact fan-out set is a
	// race against the other dial, so tests skip past notices and look for
	// the message they actually sent.
	ra := bufio.NewReader(a)
	rb := bufio.NewReader(b)

	frame, err := wire.EncodeSay("hello from a")
	if err != nil {
		t.Fatalf("EncodeSay: %v", err)
	}
	if _, err := a.Write(frame); err != nil {
		t.Fatalf("write SAY: %v", err)
	}

	gotNameA := readUntilMessage(t, a, ra, "hello from a")
	gotNameB := readUntilMessage(t, b, rb, "hello from a")

	if diff := cmp.Diff(gotNameA, gotNameB); diff != "" {
		t.Errorf("both clients should see the same sender name (-want +got):\n%s", diff)
	}
}

func TestServerSetName(t *testing.T) {
	defer leaktest.Check(t)()

	cfg := testConfig(t)
	s, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.Start("127.0.0.1"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Dispose()

	a := dialTCP(t, s.Addr())
	defer a.Close()
	b := dialTCP(t, s.Addr())
	defer b.Close()

	rb := bufio.NewReader(b)

	frame, err := wire.EncodeSetName("alice")
	if err != nil {
		t.Fatalf("EncodeSetName: %v", err)
	}
	if _, err := a.Write(frame); err != nil {
		t.Fatalf("write SET_NAME: %v", err)
	}

	name, msg := readUntilSubstring(t, b, rb, "changed their name to alice")
	if name != noticeSender {
		t.Errorf("rename notice sender = %q, want %q", name, noticeSender)
	}
	if !containsAll(msg, "changed their name to alice") {
		t.Errorf("rename notice = %q, missing expected text", msg)
	}
}

// readUntilSubstring skips dispatches until it finds one whose message
// contains want, and returns that dispatch's (name, message).
func readUntilSubstring(t *testing.T, conn net.Conn, r *bufio.Reader, want string) (string, string) {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for i := 0; i < 10; i++ {
		name, msg := readDispatch(t, r)
		if containsAll(msg, want) {
			return name, msg
		}
	}
	t.Fatalf("never saw a dispatch containing %q", want)
	return "", ""
}

func containsAll(haystack, needle string) bool {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return true
		}
	}
	return false
}

func TestServerDisposeIdempotent(t *testing.T) {
	defer leaktest.Check(t)()

	cfg := testConfig(t)
	s, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.Start("127.0.0.1"); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if err := s.Dispose(); err != nil {
		t.Fatalf("first Dispose: %v", err)
	}
	if err := s.Dispose(); err != nil {
		t.Fatalf("second Dispose: %v", err)
	}

	select {
	case <-s.Done():
	case <-time.After(time.Second):
		t.Fatal("Done channel never closed")
	}
}

func TestServerDisconnectRemovesClient(t *testing.T) {
	defer leaktest.Check(t)()

	cfg := testConfig(t)
	s, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.Start("127.0.0.1"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Dispose()

	a := dialTCP(t, s.Addr())
	a.Close()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		s.clientsMu.RLock()
		n := len(s.clients)
		s.clientsMu.RUnlock()
		if n == 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("disconnected client was never removed from the table")
}
