// Package engine implements the MI engine (C8): an implicit state machine
// driven by the written-request queue. There is no explicit state enum;
// the queue's head descriptor and the current response's shape together
// determine what happens next, and "recursion" (pointer chasing) is
// nothing but one more descriptor appended to the queue — never a call
// stack.
//
// Lock ordering, when more than one lock must be held: written queue ->
// next-write buffer -> any single snapshot field. Never the reverse; this
// is what lets the reader goroutine and a UI goroutine share the Engine
// without deadlocking.
package engine

import (
	"github.com/google/uuid"

	"github.com/zboralski/heretek/internal/applog"
	"github.com/zboralski/heretek/internal/memmap"
	"github.com/zboralski/heretek/internal/mi"
	"github.com/zboralski/heretek/internal/request"
	"github.com/zboralski/heretek/internal/snapshot"
)

// Writer is the minimal write-side of the transport the engine needs: one
// line out, single-writer per the concurrency model.
type Writer interface {
	WriteLine(cmd string) error
}

// mapCapture tracks the in-progress "info proc mappings" stream capture:
// which header dialect matched, and the lines accumulated since.
type mapCapture struct {
	active  bool
	dialect memmap.Dialect
	lines   []string
}

// Engine is the MI response engine. One Engine serves one debugger
// session; it is safe for the reader goroutine to call HandleLine while a
// UI goroutine reads the Snapshot concurrently.
type Engine struct {
	snap    *snapshot.Snapshot
	written request.Queue
	next    request.NextWrite
	w       Writer
	log     *applog.Logger

	sessionID string

	width int // pointer width in bytes (4 or 8)

	capture     mapCapture
	symbolLines []string
}

// New builds an Engine writing commands to w and mutating snap. widthBits
// is 32 or 64.
func New(snap *snapshot.Snapshot, w Writer, widthBits int, log *applog.Logger) *Engine {
	if log == nil {
		log = applog.NewNop()
	}
	width := widthBits / 8
	snap.SetPointerWidth(widthBits)
	return &Engine{
		snap:      snap,
		w:         w,
		log:       log.WithSession(uuid.NewString()),
		width:     width,
	}
}

// Snapshot exposes the engine's target-state store to callers (typically
// a UI goroutine).
func (e *Engine) Snapshot() *snapshot.Snapshot { return e.snap }

// send writes a command line without tracking it in the written-request
// queue; sendTracked pushes a descriptor first.
func (e *Engine) send(cmd string) error {
	e.log.Debug("send", applog.Line(cmd))
	return e.w.WriteLine(cmd)
}

func (e *Engine) sendTracked(cmd string, w request.Written) error {
	e.written.Push(w)
	return e.send(cmd)
}

// HandleLine is the engine's single entry point: one raw debugger output
// line in, zero or more follow-up commands out (written directly to the
// transport). Every error is contained here — the only thing that can make
// this return an error is the transport write side failing, which the
// caller should treat as TransportClosed.
func (e *Engine) HandleLine(line string) error {
	resp := mi.Parse(line)
	return e.dispatch(resp)
}

func (e *Engine) dispatch(resp mi.Response) error {
	switch resp.Kind {
	case mi.KindAsyncRecord:
		return e.handleAsyncRecord(resp)
	case mi.KindExecResult:
		return e.handleExecResult(resp)
	case mi.KindNotify:
		// Notify records (thread-group-added, etc.) carry no state this
		// core tracks; they still show up in the output ring so nothing
		// is silently discarded.
		e.snap.AppendOutput(resp.Class)
		return nil
	case mi.KindStreamConsole, mi.KindStreamTarget, mi.KindStreamLog:
		return e.handleStreamOutput(resp)
	default:
		e.snap.AppendOutput(resp.Text)
		return nil
	}
}
