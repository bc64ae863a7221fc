// Package snapshot holds the target-process state the MI engine builds up
// as it processes debugger replies. Every field is independently locked so
// the reader goroutine can update one piece of state (say, registers)
// without blocking a UI read of another (say, the memory map) — see the
// engine package doc for the lock-ordering rule this depends on.
package snapshot

import (
	"sync"

	"github.com/zboralski/heretek/internal/deref"
	"github.com/zboralski/heretek/internal/memmap"
	"github.com/zboralski/heretek/internal/mi"
	"github.com/zboralski/heretek/internal/ptmalloc"
)

// Asm is one disassembled instruction, optionally annotated with the
// function it falls inside.
type Asm struct {
	Address  uint64
	Inst     string
	Offset   uint64
	FuncName *string
}

// Snapshot is the target's state as last observed by the engine. Build one
// with New: the zero value has nil dereference maps, so RegisterDeref and
// StackDeref panic on it.
type Snapshot struct {
	endianMu sync.RWMutex
	endian   mi.Endianness
	hasEndian bool

	widthMu sync.RWMutex
	width   int // 32 or 64; defaults to 64 until configured otherwise

	pcMu sync.RWMutex
	pc   uint64

	filepathMu sync.RWMutex
	filepath   string

	registersMu sync.RWMutex
	registers   []mi.Register

	registerNamesMu sync.RWMutex
	registerNames   []string

	changedRegistersMu sync.RWMutex
	changedRegisters   []int

	registerDerefsMu sync.RWMutex
	registerDerefs   map[string]*deref.Chain // keyed by register number

	stackMu sync.RWMutex
	stack   map[uint64]*deref.Chain

	asmMu sync.RWMutex
	asm   []Asm

	memoryMapMu sync.RWMutex
	memoryMap   []memmap.Mapping

	backtraceMu sync.RWMutex
	backtrace   []mi.Bt

	hexdumpMu sync.RWMutex
	hexdump   []HexdumpEntry

	heapMu sync.RWMutex
	heap   []ptmalloc.ChunkInfo

	symbolsMu sync.RWMutex
	symbols   []mi.Symbol

	completionsMu sync.RWMutex
	completions   []string

	statusMu sync.RWMutex
	status   string

	outputMu sync.RWMutex
	output   []string

	promptMu sync.RWMutex
	prompt   string
}

// HexdumpEntry is one captured `-data-read-memory-bytes` result destined
// for the hexdump buffer rather than pointer-chasing.
type HexdumpEntry struct {
	Address uint64
	Bytes   []byte
}

// New returns a Snapshot defaulted to 64-bit pointers, ready to use.
func New() *Snapshot {
	return &Snapshot{width: 64, registerDerefs: map[string]*deref.Chain{}, stack: map[uint64]*deref.Chain{}}
}

func (s *Snapshot) SetEndian(e mi.Endianness) {
	s.endianMu.Lock()
	defer s.endianMu.Unlock()
	s.endian = e
	s.hasEndian = true
}

func (s *Snapshot) Endian() (mi.Endianness, bool) {
	s.endianMu.RLock()
	defer s.endianMu.RUnlock()
	return s.endian, s.hasEndian
}

func (s *Snapshot) SetPointerWidth(bits int) {
	s.widthMu.Lock()
	defer s.widthMu.Unlock()
	s.width = bits
}

func (s *Snapshot) PointerWidth() int {
	s.widthMu.RLock()
	defer s.widthMu.RUnlock()
	return s.width
}

func (s *Snapshot) SetPC(pc uint64) {
	s.pcMu.Lock()
	defer s.pcMu.Unlock()
	s.pc = pc
}

func (s *Snapshot) PC() uint64 {
	s.pcMu.RLock()
	defer s.pcMu.RUnlock()
	return s.pc
}

// SetFilepath sets the resolved program text path. The setter is
// unconditional: the engine enforces the "set once" rule itself (it checks
// Filepath() first), so engine code stays the single source of truth for
// that decision.
func (s *Snapshot) SetFilepath(path string) {
	s.filepathMu.Lock()
	defer s.filepathMu.Unlock()
	s.filepath = path
}

func (s *Snapshot) Filepath() string {
	s.filepathMu.RLock()
	defer s.filepathMu.RUnlock()
	return s.filepath
}

func (s *Snapshot) SetRegisters(regs []mi.Register) {
	s.registersMu.Lock()
	defer s.registersMu.Unlock()
	s.registers = regs
}

func (s *Snapshot) Registers() []mi.Register {
	s.registersMu.RLock()
	defer s.registersMu.RUnlock()
	return s.registers
}

func (s *Snapshot) SetRegisterNames(names []string) {
	s.registerNamesMu.Lock()
	defer s.registerNamesMu.Unlock()
	s.registerNames = names
}

func (s *Snapshot) RegisterNames() []string {
	s.registerNamesMu.RLock()
	defer s.registerNamesMu.RUnlock()
	return s.registerNames
}

func (s *Snapshot) SetChangedRegisters(idx []int) {
	s.changedRegistersMu.Lock()
	defer s.changedRegistersMu.Unlock()
	s.changedRegisters = idx
}

func (s *Snapshot) ChangedRegisters() []int {
	s.changedRegistersMu.RLock()
	defer s.changedRegistersMu.RUnlock()
	return s.changedRegisters
}

// RegisterDeref returns the dereference chain for a register number,
// creating it if necessary.
func (s *Snapshot) RegisterDeref(regNum string) *deref.Chain {
	s.registerDerefsMu.Lock()
	defer s.registerDerefsMu.Unlock()
	c, ok := s.registerDerefs[regNum]
	if !ok {
		c = &deref.Chain{}
		s.registerDerefs[regNum] = c
	}
	return c
}

func (s *Snapshot) ClearRegisterDerefs() {
	s.registerDerefsMu.Lock()
	defer s.registerDerefsMu.Unlock()
	s.registerDerefs = map[string]*deref.Chain{}
}

// StackDeref returns the dereference chain rooted at a stack address,
// creating it if necessary.
func (s *Snapshot) StackDeref(addr uint64) *deref.Chain {
	s.stackMu.Lock()
	defer s.stackMu.Unlock()
	c, ok := s.stack[addr]
	if !ok {
		c = &deref.Chain{}
		s.stack[addr] = c
	}
	return c
}

func (s *Snapshot) StackAddrs() []uint64 {
	s.stackMu.RLock()
	defer s.stackMu.RUnlock()
	addrs := make([]uint64, 0, len(s.stack))
	for a := range s.stack {
		addrs = append(addrs, a)
	}
	return addrs
}

func (s *Snapshot) ClearStack() {
	s.stackMu.Lock()
	defer s.stackMu.Unlock()
	s.stack = map[uint64]*deref.Chain{}
}

func (s *Snapshot) SetAsm(list []Asm) {
	s.asmMu.Lock()
	defer s.asmMu.Unlock()
	s.asm = list
}

func (s *Snapshot) Asm() []Asm {
	s.asmMu.RLock()
	defer s.asmMu.RUnlock()
	return s.asm
}

func (s *Snapshot) SetMemoryMap(m []memmap.Mapping) {
	s.memoryMapMu.Lock()
	defer s.memoryMapMu.Unlock()
	s.memoryMap = m
}

func (s *Snapshot) MemoryMap() []memmap.Mapping {
	s.memoryMapMu.RLock()
	defer s.memoryMapMu.RUnlock()
	return s.memoryMap
}

func (s *Snapshot) SetBacktrace(bt []mi.Bt) {
	s.backtraceMu.Lock()
	defer s.backtraceMu.Unlock()
	s.backtrace = bt
}

func (s *Snapshot) Backtrace() []mi.Bt {
	s.backtraceMu.RLock()
	defer s.backtraceMu.RUnlock()
	return s.backtrace
}

func (s *Snapshot) AppendHexdump(e HexdumpEntry) {
	s.hexdumpMu.Lock()
	defer s.hexdumpMu.Unlock()
	s.hexdump = append(s.hexdump, e)
}

func (s *Snapshot) Hexdump() []HexdumpEntry {
	s.hexdumpMu.RLock()
	defer s.hexdumpMu.RUnlock()
	return s.hexdump
}

func (s *Snapshot) ClearHexdump() {
	s.hexdumpMu.Lock()
	defer s.hexdumpMu.Unlock()
	s.hexdump = nil
}

func (s *Snapshot) SetHeap(chunks []ptmalloc.ChunkInfo) {
	s.heapMu.Lock()
	defer s.heapMu.Unlock()
	s.heap = chunks
}

func (s *Snapshot) Heap() []ptmalloc.ChunkInfo {
	s.heapMu.RLock()
	defer s.heapMu.RUnlock()
	return s.heap
}

func (s *Snapshot) SetSymbols(syms []mi.Symbol) {
	s.symbolsMu.Lock()
	defer s.symbolsMu.Unlock()
	s.symbols = syms
}

func (s *Snapshot) Symbols() []mi.Symbol {
	s.symbolsMu.RLock()
	defer s.symbolsMu.RUnlock()
	return s.symbols
}

func (s *Snapshot) SetCompletions(c []string) {
	s.completionsMu.Lock()
	defer s.completionsMu.Unlock()
	s.completions = c
}

func (s *Snapshot) Completions() []string {
	s.completionsMu.RLock()
	defer s.completionsMu.RUnlock()
	return s.completions
}

func (s *Snapshot) SetStatus(status string) {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	s.status = status
}

func (s *Snapshot) Status() string {
	s.statusMu.RLock()
	defer s.statusMu.RUnlock()
	return s.status
}

func (s *Snapshot) AppendOutput(line string) {
	s.outputMu.Lock()
	defer s.outputMu.Unlock()
	s.output = append(s.output, line)
}

func (s *Snapshot) Output() []string {
	s.outputMu.RLock()
	defer s.outputMu.RUnlock()
	return s.output
}

func (s *Snapshot) SetPrompt(p string) {
	s.promptMu.Lock()
	defer s.promptMu.Unlock()
	s.prompt = p
}

func (s *Snapshot) Prompt() string {
	s.promptMu.RLock()
	defer s.promptMu.RUnlock()
	return s.prompt
}

// ClearOnRunning resets every field the engine must drop when a `*running`
// async record arrives, per the running-reset invariant.
func (s *Snapshot) ClearOnRunning() {
	s.SetRegisters(nil)
	s.ClearRegisterDerefs()
	s.ClearStack()
	s.SetAsm(nil)
	s.ClearHexdump()
	s.SetStatus("running")
}
