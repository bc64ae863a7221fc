package transport

import (
	"bufio"
	"net"
	"strings"
	"testing"

	"github.com/zboralski/heretek/internal/applog"
)

type recordingHandler struct {
	lines []string
}

func (h *recordingHandler) HandleLine(line string) error {
	h.lines = append(h.lines, line)
	return nil
}

func TestPumpDeliversLinesInOrder(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()

	conn := &Conn{
		r:      bufio.NewScanner(client),
		w:      client,
		closer: client,
		log:    applog.NewNop(),
	}

	go func() {
		_, _ = server.Write([]byte("^done\n*stopped,reason=\"breakpoint-hit\"\n"))
		server.Close()
	}()

	h := &recordingHandler{}
	if err := Pump(conn, h); err != nil {
		t.Fatalf("Pump returned %v, want nil on clean close", err)
	}

	want := []string{"^done", `*stopped,reason="breakpoint-hit"`}
	if len(h.lines) != len(want) {
		t.Fatalf("got %d lines, want %d: %v", len(h.lines), len(want), h.lines)
	}
	for i := range want {
		if h.lines[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, h.lines[i], want[i])
		}
	}
}

func TestWriteLineAppendsNewline(t *testing.T) {
	var sb strings.Builder
	conn := &Conn{w: &sb, log: applog.NewNop()}
	if err := conn.WriteLine("-data-list-register-names"); err != nil {
		t.Fatalf("WriteLine: %v", err)
	}
	if sb.String() != "-data-list-register-names\n" {
		t.Fatalf("wrote %q", sb.String())
	}
}
