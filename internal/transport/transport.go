// Package transport supplies the two ways the engine reaches a GDB/MI
// session: a spawned local "gdb --interpreter=mi2" child process, or a TCP
// connection to a gdbserver-style remote already speaking MI. Both expose
// the same minimal io.ReadWriteCloser-shaped surface the engine's reader
// loop and Writer interface need.
package transport

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"os/exec"
	"sync"

	"go.uber.org/zap"

	"github.com/zboralski/heretek/internal/applog"
)

// Conn is one live connection to a debugger session: a line reader paired
// with a thread-safe line writer.
type Conn struct {
	r      *bufio.Scanner
	w      io.Writer
	wmu    sync.Mutex
	closer io.Closer
	log    *applog.Logger
}

// WriteLine writes cmd followed by a newline. Safe for concurrent use —
// the engine may be driven from a UI goroutine issuing commands while the
// reader goroutine is blocked in ReadLine.
func (c *Conn) WriteLine(cmd string) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	c.log.Debug("write", applog.Line(cmd))
	_, err := fmt.Fprintf(c.w, "%s\n", cmd)
	return err
}

// ReadLine blocks for the next line of debugger output. It returns
// io.EOF when the underlying stream has closed.
func (c *Conn) ReadLine() (string, error) {
	if c.r.Scan() {
		return c.r.Text(), nil
	}
	if err := c.r.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

// Close releases the underlying process or socket.
func (c *Conn) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer.Close()
}

// SpawnLocal starts "gdb --interpreter=mi2 --quiet -nx" as a child process
// and wires its stdin/stdout as the MI stream.
func SpawnLocal(log *applog.Logger) (*Conn, error) {
	if log == nil {
		log = applog.NewNop()
	}
	cmd := exec.Command("gdb", "--interpreter=mi2", "--quiet", "-nx")
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("gdb stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("gdb stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("spawn gdb: %w", err)
	}
	log.Info("spawned gdb", zap.Int("pid", cmd.Process.Pid))

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &Conn{
		r:      scanner,
		w:      stdin,
		closer: processCloser{cmd: cmd, stdin: stdin},
		log:    log,
	}, nil
}

// processCloser closes the child's stdin then waits for it to exit, so a
// shutdown doesn't leak a zombie gdb process.
type processCloser struct {
	cmd   *exec.Cmd
	stdin io.Closer
}

func (p processCloser) Close() error {
	_ = p.stdin.Close()
	return p.cmd.Wait()
}

// DialRemote connects to a gdbserver-style MI endpoint already speaking
// the protocol over a plain TCP socket.
func DialRemote(addr string, log *applog.Logger) (*Conn, error) {
	if log == nil {
		log = applog.NewNop()
	}
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	log.Info("connected to remote gdb", zap.String("addr", addr))

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &Conn{
		r:      scanner,
		w:      conn,
		closer: conn,
		log:    log,
	}, nil
}
