package engine

import (
	"encoding/hex"
	"strconv"

	"go.uber.org/multierr"

	"github.com/zboralski/heretek/internal/mi"
	"github.com/zboralski/heretek/internal/ptmalloc"
	"github.com/zboralski/heretek/internal/request"
	"github.com/zboralski/heretek/internal/snapshot"
)

// stackReadStartK/stackReadEndK realize the 13-word stack probe window
// read after every stop, starting at the stack pointer itself: uniform
// step equal to pointer width, per the design note calling out the
// source's irregular 32-bit offset progression as a typo.
const (
	stackReadStartK = 0
	stackReadEndK   = 12
)

// asmWindowBytes is how far past $pc the engine disassembles after a stop.
const asmWindowBytes = 128

// handleDoneKV dispatches a `done` reply (that wasn't a stack/matches/
// map-capture shape) by which field actually came back — these branches
// are mutually exclusive per reply.
func (e *Engine) handleDoneKV(resp mi.Response) error {
	switch {
	case resp.Registers != nil:
		return e.handleRegisterValues(resp)
	case hasKey(resp, "register-names"):
		return e.handleRegisterNames(resp)
	case hasKey(resp, "changed-registers"):
		return e.handleChangedRegisters(resp)
	case hasKey(resp, "memory"):
		return e.handleMemory(resp)
	case hasKey(resp, "asm_insns"):
		return e.handleAsmInsns(resp)
	case hasKey(resp, "value"):
		e.snap.SetPC(mi.ReadPCValue(resp.KV["value"].Scalar))
		return nil
	}
	return nil
}

func hasKey(resp mi.Response, key string) bool {
	_, ok := resp.KV[key]
	return ok
}

func (e *Engine) handleRegisterNames(resp mi.Response) error {
	names := resp.KV["register-names"]
	out := make([]string, 0, len(names.List))
	for _, v := range names.List {
		out = append(out, v.Scalar)
	}
	e.snap.SetRegisterNames(out)
	return nil
}

func (e *Engine) handleChangedRegisters(resp mi.Response) error {
	idxVals := resp.KV["changed-registers"]
	out := make([]int, 0, len(idxVals.List))
	for _, v := range idxVals.List {
		n, _ := strconv.Atoi(v.Scalar)
		out = append(out, n)
	}
	e.snap.SetChangedRegisters(out)
	return nil
}

// handleRegisterValues is the largest branch in the engine: for each
// register with a value, it either starts a disassembly (the value points
// into executable memory) or a pointer-chase (a plain memory read, tagged
// so the reply routes back here). Once every register has been issued a
// follow-up, it requests the PC, a window of stack words, and the
// disassembly around PC.
func (e *Engine) handleRegisterValues(resp mi.Response) error {
	e.snap.SetRegisters(resp.Registers)

	var errs error
	for _, reg := range resp.Registers {
		if reg.Value == nil {
			continue
		}
		addr := mi.ParseHexUint64(*reg.Value)
		if addr == 0 {
			continue
		}
		if e.isExecutableAddr(addr) {
			errs = multierr.Append(errs, e.sendTracked(mi.DisassembleRange(addr, addr+asmWindowBytes),
				request.Written{Kind: request.SymbolAtAddrRegister, RegNum: reg.Number, Addr: addr}))
			continue
		}
		errs = multierr.Append(errs, e.sendTracked(mi.ReadMemoryBytes(addr, e.width),
			request.Written{Kind: request.RegisterValue, RegNum: reg.Number, Addr: addr}))
	}

	errs = multierr.Append(errs, e.send(mi.ReadPC()))
	for k := stackReadStartK; k <= stackReadEndK; k++ {
		offset := k * e.width
		errs = multierr.Append(errs, e.sendTracked(mi.ReadStackOffset(offset, e.width), request.Written{Kind: request.Stack}))
	}
	errs = multierr.Append(errs, e.sendTracked(mi.DisassembleAtPC(asmWindowBytes), request.Written{Kind: request.AsmAtPc}))
	return errs
}

// handleMemory pops the written-request head to learn what question this
// reply answers, decodes the returned word, and either continues the
// pointer chase, starts a disassembly, files the bytes into the hexdump
// buffer, or (Heap) hands the whole dump to the chunk walker.
func (e *Engine) handleMemory(resp mi.Response) error {
	head, ok := e.written.Pop()
	if !ok {
		e.log.Warn("unexpected memory reply with no pending request")
		return nil
	}

	begin, contents, ok := firstMemoryTuple(resp.KV["memory"])
	if !ok {
		return nil
	}

	endian, _ := e.snap.Endian()
	val, err := mi.DecodeHex(contents, endian)
	if err != nil {
		return nil // ParseError: skip this update, leave prior state alone
	}

	switch head.Kind {
	case request.RegisterValue:
		return e.continueRegisterChase(head, val, endian)
	case request.Stack:
		return e.continueStackChase(head, begin, val, endian)
	case request.Memory:
		raw, _ := hex.DecodeString(contents)
		e.snap.AppendHexdump(snapshot.HexdumpEntry{Address: mi.ParseHexUint64(begin), Bytes: raw})
		return nil
	case request.Heap:
		raw, _ := hex.DecodeString(contents)
		e.snap.SetHeap(ptmalloc.New(e.width).AnalyzeHeap(raw, head.Addr))
		return nil
	default:
		e.log.Warn("unexpected written kind for memory reply")
		return nil
	}
}

func (e *Engine) continueRegisterChase(head request.Written, val uint64, endian mi.Endianness) error {
	chain := e.snap.RegisterDeref(head.RegNum)
	if !chain.TryPush(val) {
		return nil
	}
	switch {
	case e.isExecutableAddr(val):
		return e.sendTracked(mi.DisassembleRange(val, val+asmWindowBytes),
			request.Written{Kind: request.SymbolAtAddrRegister, RegNum: head.RegNum, Addr: val})
	case val > 0xff && looksLikeASCIIWord(val, endian, e.width):
		next := head.Addr + uint64(e.width)
		return e.sendTracked(mi.ReadMemoryBytes(next, e.width),
			request.Written{Kind: request.RegisterValue, RegNum: head.RegNum, Addr: next})
	case val != 0:
		return e.sendTracked(mi.ReadMemoryBytes(val, e.width),
			request.Written{Kind: request.RegisterValue, RegNum: head.RegNum, Addr: val})
	}
	return nil
}

func (e *Engine) continueStackChase(head request.Written, begin string, val uint64, endian mi.Endianness) error {
	key := head.Addr
	if head.StackKey == nil {
		key = mi.ParseHexUint64(begin)
	} else {
		key = *head.StackKey
	}

	chain := e.snap.StackDeref(key)
	if !chain.TryPush(val) {
		return nil
	}

	switch {
	case e.isExecutableAddr(val):
		return e.sendTracked(mi.DisassembleRange(val, val+asmWindowBytes),
			request.Written{Kind: request.SymbolAtAddrStack, Addr: val, StackKey: &key})
	case val > 0xff && looksLikeASCIIWord(val, endian, e.width):
		next := mi.ParseHexUint64(begin) + uint64(e.width) // string walk reads the next word
		return e.sendTracked(mi.ReadMemoryBytes(next, e.width),
			request.Written{Kind: request.Stack, Addr: next, StackKey: &key})
	case val != 0:
		return e.sendTracked(mi.ReadMemoryBytes(val, e.width),
			request.Written{Kind: request.Stack, Addr: val, StackKey: &key})
	}
	return nil
}

// handleAsmInsns pops the written-request head: AsmAtPc replaces the
// whole disassembly list; the SymbolAtAddr* variants instead set the
// final_assembly of the one dereference chain that triggered the lookup.
func (e *Engine) handleAsmInsns(resp mi.Response) error {
	head, ok := e.written.Pop()
	if !ok {
		return nil
	}

	insns := parseAsmList(resp.KV["asm_insns"])

	switch head.Kind {
	case request.AsmAtPc:
		e.snap.SetAsm(insns)
	case request.SymbolAtAddrRegister:
		chain := e.snap.RegisterDeref(head.RegNum)
		chain.FinalAssembly = formatFinalAssembly(insns)
	case request.SymbolAtAddrStack:
		if head.StackKey != nil {
			chain := e.snap.StackDeref(*head.StackKey)
			chain.FinalAssembly = formatFinalAssembly(insns)
		}
	}
	return nil
}

func formatFinalAssembly(insns []snapshot.Asm) string {
	if len(insns) == 0 {
		return ""
	}
	first := insns[0]
	if first.FuncName != nil {
		return *first.FuncName + "+" + itoa(first.Offset) + " (" + first.Inst + ")"
	}
	return first.Inst
}

func itoa(v uint64) string {
	if v == 0 {
		return "0"
	}
	const digits = "0123456789"
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = digits[v%10]
		v /= 10
	}
	return string(buf[i:])
}

func parseAsmList(v mi.Value) []snapshot.Asm {
	out := make([]snapshot.Asm, 0, len(v.List))
	for _, tuple := range v.List {
		if !tuple.IsMap() {
			continue
		}
		a := snapshot.Asm{
			Address: mi.ParseHexUint64(tuple.Map["address"].Scalar),
			Inst:    tuple.Map["inst"].Scalar,
			Offset:  mi.ParseHexUint64(tuple.Map["offset"].Scalar),
		}
		if fn, ok := tuple.Map["func-name"]; ok {
			s := fn.Scalar
			a.FuncName = &s
		}
		out = append(out, a)
	}
	return out
}

func firstMemoryTuple(v mi.Value) (begin, contents string, ok bool) {
	if !v.IsList() || len(v.List) == 0 {
		return "", "", false
	}
	tuple := v.List[0]
	if !tuple.IsMap() {
		return "", "", false
	}
	return tuple.Map["begin"].Scalar, tuple.Map["contents"].Scalar, true
}

// isExecutableAddr reports whether addr falls in the resolved program
// text path or a mapping with exec permission.
func (e *Engine) isExecutableAddr(addr uint64) bool {
	for _, m := range e.snap.MemoryMap() {
		if !m.Contains(addr) {
			continue
		}
		if m.IsExec() || (e.snap.Filepath() != "" && m.IsPath(e.snap.Filepath())) {
			return true
		}
	}
	return false
}

// looksLikeASCIIWord reports whether every byte of v (as width bytes in
// target endian) is ASCII alphabetic, otherwise graphic, or whitespace —
// the "this is probably a short string, not a pointer" heuristic.
func looksLikeASCIIWord(v uint64, endian mi.Endianness, width int) bool {
	raw, err := hexDecode(mi.EncodeHex(v, endian, width))
	if err != nil {
		return false
	}
	for _, b := range raw {
		if !isASCIIPrintOrSpace(b) {
			return false
		}
	}
	return true
}

func hexDecode(s string) ([]byte, error) { return hex.DecodeString(s) }

func isASCIIPrintOrSpace(b byte) bool {
	if b >= 0x20 && b < 0x7f {
		return true
	}
	switch b {
	case '\t', '\n', '\r':
		return true
	}
	return false
}
