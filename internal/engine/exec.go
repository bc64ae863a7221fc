package engine

import (
	"go.uber.org/zap"

	"github.com/zboralski/heretek/internal/memmap"
	"github.com/zboralski/heretek/internal/mi"
	"github.com/zboralski/heretek/internal/ptmalloc"
	"github.com/zboralski/heretek/internal/request"
)

// handleExecResult reacts to `^` records: running/error are handled here
// directly; done dispatches either to the three status-shaped branches
// (stack/matches/map-capture) or, failing those, to the key-value branches
// keyed by which field actually came back.
func (e *Engine) handleExecResult(resp mi.Response) error {
	switch resp.Class {
	case "running":
		e.handleRunning()
		return nil
	case "error":
		e.written.Pop()
		if msg, ok := resp.KV["msg"]; ok {
			e.log.Warn("mi error", zap.String("msg", msg.Scalar))
		}
		return nil
	case "done":
		return e.handleDone(resp)
	default:
		return nil
	}
}

func (e *Engine) handleDone(resp mi.Response) error {
	if e.capture.active {
		return e.finalizeMapCapture()
	}

	if w, ok := e.written.Front(); ok && w.Kind == request.SymbolList {
		e.finalizeSymbolList()
		return nil
	}

	if stack, ok := resp.KV["stack"]; ok {
		e.snap.SetBacktrace(mi.ParseBacktrace(stack))
		return nil
	}

	if matches, ok := resp.KV["matches"]; ok {
		e.snap.SetCompletions(mi.ParseCompletions(matches))
		return nil
	}

	return e.handleDoneKV(resp)
}

// finalizeMapCapture parses the accumulated stream lines with the
// matched dialect and installs the result; if no filepath has been
// resolved yet, the first mapping's path is adopted as the program text.
// Finding a [heap] mapping also kicks off a heap read, so the chunk
// walker (ptmalloc) gets a fresh dump on every stop.
func (e *Engine) finalizeMapCapture() error {
	mappings := parseCapturedMappings(e.capture)
	e.snap.SetMemoryMap(mappings)
	if e.snap.Filepath() == "" && len(mappings) > 0 {
		e.snap.SetFilepath(mappings[0].Path)
	}
	e.capture = mapCapture{}
	return e.requestHeapRead(mappings)
}

// requestHeapRead issues a byte read over the [heap] mapping, capped at
// ptmalloc's HeapMaxSize — the walker never trusts a dump to be larger
// than one arena's worth of memory.
func (e *Engine) requestHeapRead(mappings []memmap.Mapping) error {
	for _, m := range mappings {
		if !m.IsHeap() {
			continue
		}
		size := m.Size
		if max := uint64(ptmalloc.New(e.width).HeapMaxSize); size > max {
			size = max
		}
		if size == 0 {
			return nil
		}
		return e.sendTracked(mi.ReadMemoryBytes(m.StartAddress, int(size)),
			request.Written{Kind: request.Heap, Addr: m.StartAddress})
	}
	return nil
}

// finalizeSymbolList pops the SymbolList-tagged write this `^done` answers,
// parses the accumulated "info functions" capture, and installs it.
func (e *Engine) finalizeSymbolList() {
	e.written.Pop()
	e.snap.SetSymbols(mi.ParseSymbolList(e.symbolLines))
	e.symbolLines = nil
}
