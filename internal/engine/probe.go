package engine

import (
	"go.uber.org/multierr"

	"github.com/zboralski/heretek/internal/mi"
)

// handleAsyncRecord reacts to `*` records. `stopped` kicks off the fixed
// probe sequence that repopulates the whole snapshot; `running` is the
// universal cancellation signal.
func (e *Engine) handleAsyncRecord(resp mi.Response) error {
	switch resp.Class {
	case "stopped":
		return e.probeAfterStop()
	case "running":
		e.handleRunning()
		return nil
	}
	return nil
}

// probeAfterStop issues the fixed sequence of commands the engine always
// sends after a stop: none of these need written-request tags because
// their replies are self-describing by key (endian/register-names/
// register-values/changed-registers) or by stream content (mappings).
func (e *Engine) probeAfterStop() error {
	var errs error
	for _, cmd := range []string{
		mi.ShowEndian(),
		mi.RegisterNames(),
		mi.RegisterValues("x"),
		mi.ChangedRegisters(),
		mi.ProcMappings(),
	} {
		errs = multierr.Append(errs, e.send(cmd))
	}
	return errs
}

// handleRunning clears everything a stale reply could contaminate and
// drains both queues — the engine's cancellation signal.
func (e *Engine) handleRunning() {
	e.snap.ClearOnRunning()
	e.written.Drain()
	e.next.Drain()
	e.capture = mapCapture{}
	e.symbolLines = nil
}
