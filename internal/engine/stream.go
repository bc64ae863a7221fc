package engine

import (
	"strings"

	"github.com/zboralski/heretek/internal/memmap"
	"github.com/zboralski/heretek/internal/mi"
	"github.com/zboralski/heretek/internal/request"
)

const readingSymbolsPrefix = "Reading symbols from "

// handleStreamOutput implements the stream-output rules from the engine
// design: endianness/filepath detection, memory-map and symbol-list
// capture, and the plain output ring — checked in that priority order.
// Endianness, the process/Mapped headers, the /proc warning and the two
// captures short-circuit the rest; filepath detection falls through, and a
// console line without a newline goes to the output ring and the prompt.
func (e *Engine) handleStreamOutput(resp mi.Response) error {
	s := resp.Text

	if strings.HasPrefix(s, "The target endianness") {
		if endian, ok := mi.DetectEndianness(s); ok {
			e.snap.SetEndian(endian)
		}
		return nil
	}

	if e.snap.Filepath() == "" && strings.HasPrefix(s, readingSymbolsPrefix) {
		filepath := strings.TrimSpace(s[len(readingSymbolsPrefix):])
		if fp, ok := strings.CutSuffix(filepath, "..."); ok {
			e.snap.SetFilepath(fp)
		}
	}

	if strings.HasPrefix(s, "process") || strings.HasPrefix(s, "Mapped address spaces:") {
		return nil
	}

	if strings.Contains(s, "warning: unable to open /proc file '/proc/1/maps'") {
		e.capture = mapCapture{}
		return nil
	}

	if dialect, ok := memmap.DetectHeader(s); ok {
		e.capture.active = true
		e.capture.dialect = dialect
	}
	if e.capture.active {
		e.capture.lines = append(e.capture.lines, s)
		return nil
	}

	if w, ok := e.written.Front(); ok && w.Kind == request.SymbolList {
		e.symbolLines = append(e.symbolLines, s)
		return nil
	}

	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimRight(line, " \t\r")
		if line != "" {
			e.snap.AppendOutput(line)
		}
	}

	if resp.Kind == mi.KindStreamConsole && !strings.Contains(s, "\n") {
		e.snap.SetPrompt(s)
	}

	return nil
}

// RequestSymbolList sends the `info functions` console command and
// arranges for its captured stream output to be parsed into the symbol
// table once the matching `^done` arrives.
func (e *Engine) RequestSymbolList() error {
	e.symbolLines = nil
	return e.sendTracked(mi.SymbolList(), request.Written{Kind: request.SymbolList})
}
