package engine

import (
	"testing"

	"github.com/zboralski/heretek/internal/applog"
	"github.com/zboralski/heretek/internal/mi"
	"github.com/zboralski/heretek/internal/request"
	"github.com/zboralski/heretek/internal/snapshot"
)

type fakeWriter struct {
	cmds []string
}

func (f *fakeWriter) WriteLine(cmd string) error {
	f.cmds = append(f.cmds, cmd)
	return nil
}

func newTestEngine() (*Engine, *fakeWriter) {
	w := &fakeWriter{}
	e := New(snapshot.New(), w, 64, applog.NewNop())
	return e, w
}

func feed(t *testing.T, e *Engine, lines ...string) {
	t.Helper()
	for _, line := range lines {
		if err := e.HandleLine(line); err != nil {
			t.Fatalf("HandleLine(%q): %v", line, err)
		}
	}
}

func TestStoppedTriggersFixedProbeSequence(t *testing.T) {
	e, w := newTestEngine()
	feed(t, e, `*stopped,reason="breakpoint-hit",frame={addr="0x0000555555555149",func="main"}`)

	want := []string{
		`-interpreter-exec console "show endian"`,
		`-data-list-register-names`,
		`-data-list-register-values x`,
		`-data-list-changed-registers`,
		`-interpreter-exec console "info proc mappings"`,
	}
	if len(w.cmds) != len(want) {
		t.Fatalf("got %d commands, want %d: %v", len(w.cmds), len(want), w.cmds)
	}
	for i, c := range want {
		if w.cmds[i] != c {
			t.Errorf("cmd %d = %q, want %q", i, w.cmds[i], c)
		}
	}
}

func TestFilepathSetOnce(t *testing.T) {
	e, _ := newTestEngine()
	feed(t, e, `~"Reading symbols from /bin/ls...\n"`)
	if got := e.Snapshot().Filepath(); got != "/bin/ls" {
		t.Fatalf("Filepath() = %q, want /bin/ls", got)
	}

	feed(t, e, `~"Reading symbols from /bin/other...\n"`)
	if got := e.Snapshot().Filepath(); got != "/bin/ls" {
		t.Fatalf("Filepath() changed to %q, want it to stay /bin/ls", got)
	}
}

func TestRunningResetsRegistersStackAsmHexdump(t *testing.T) {
	e, _ := newTestEngine()
	snap := e.Snapshot()
	snap.RegisterDeref("0").TryPush(1)
	snap.StackDeref(0x7fffffffe000).TryPush(2)
	snap.SetAsm([]snapshot.Asm{{Address: 0x400000, Inst: "nop"}})
	snap.AppendHexdump(snapshot.HexdumpEntry{Address: 0x400000, Bytes: []byte{1, 2, 3}})
	val := "0x1"
	snap.SetRegisters([]mi.Register{{Number: "0", Value: &val}})

	feed(t, e, `*running,thread-id="all"`)

	if len(snap.Registers()) != 0 {
		t.Errorf("Registers() not cleared: %v", snap.Registers())
	}
	if len(snap.Asm()) != 0 {
		t.Errorf("Asm() not cleared: %v", snap.Asm())
	}
	if len(snap.Hexdump()) != 0 {
		t.Errorf("Hexdump() not cleared: %v", snap.Hexdump())
	}
	if len(snap.StackAddrs()) != 0 {
		t.Errorf("stack not cleared: %v", snap.StackAddrs())
	}
	if snap.Status() != "running" {
		t.Errorf("Status() = %q, want running", snap.Status())
	}
}

func TestRunningDrainsWrittenQueue(t *testing.T) {
	e, _ := newTestEngine()
	feed(t, e, `*stopped,reason="breakpoint-hit"`)
	// The stop probe is untracked; queue one outstanding request so the
	// drain has something to remove.
	e.written.Push(request.Written{Kind: request.AsmAtPc})
	feed(t, e, `*running,thread-id="all"`)
	if n := e.written.Len(); n != 0 {
		t.Fatalf("written queue has %d entries after running, want 0", n)
	}
}

func TestRegisterValuesStartsPointerChase(t *testing.T) {
	e, w := newTestEngine()
	feed(t, e, `^done,register-values=[{number="0",value="0x00007fffffffe350"}]`)

	found := false
	for _, c := range w.cmds {
		if c == "-data-read-memory-bytes 0x7fffffffe350 8" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a memory read for the register pointer, got %v", w.cmds)
	}
}

func TestMemoryReplyContinuesRegisterChase(t *testing.T) {
	e, w := newTestEngine()
	feed(t, e, `^done,register-values=[{number="0",value="0x00007fffffffe350"}]`)
	w.cmds = nil

	feed(t, e, `^done,memory=[{begin="0x7fffffffe350",end="0x7fffffffe358",offset="0x0",contents="0000000000000000"}]`)

	chain := e.Snapshot().RegisterDeref("0")
	if chain.Len() != 1 {
		t.Fatalf("chain length = %d, want 1 (the dereferenced zero; the register's own value is not chained)", chain.Len())
	}
}

func TestAsmInsnsReplacesSnapshotAsm(t *testing.T) {
	e, _ := newTestEngine()
	e.written.Push(request.Written{Kind: request.AsmAtPc})
	feed(t, e, `^done,asm_insns=[{address="0x0000555555555149",func-name="main",offset="0",inst="push rbp"}]`)

	asm := e.Snapshot().Asm()
	if len(asm) != 1 || asm[0].Inst != "push rbp" {
		t.Fatalf("Asm() = %+v, want one push rbp entry", asm)
	}
}

func TestSymbolListFinalizesOnDone(t *testing.T) {
	e, w := newTestEngine()
	if err := e.RequestSymbolList(); err != nil {
		t.Fatalf("RequestSymbolList: %v", err)
	}
	if len(w.cmds) != 1 || w.cmds[0] != `-interpreter-exec console "info functions"` {
		t.Fatalf("unexpected command list: %v", w.cmds)
	}

	feed(t, e, `~"0x0000000000401000 main\n"`)
	feed(t, e, `~"0x0000000000402000 helper\n"`)
	feed(t, e, `^done`)

	syms := e.Snapshot().Symbols()
	if len(syms) != 2 {
		t.Fatalf("Symbols() = %+v, want 2 entries", syms)
	}
	if syms[0].Name != "main" || syms[0].Address != 0x401000 {
		t.Fatalf("symbol 0 = %+v, want main@0x401000", syms[0])
	}
	if e.written.Len() != 0 {
		t.Fatalf("written queue not drained after symbol-list done, len=%d", e.written.Len())
	}
}

func TestHeapReadRequestedAfterMapCapture(t *testing.T) {
	e, w := newTestEngine()
	feed(t, e,
		`~"Start Addr   End Addr   Size     Offset   objfile\n"`,
		`~"0x400000 0x401000 0x1000 0x0 /bin/target\n"`,
		`~"0x600000 0x620000 0x20000 0x0 [heap]\n"`,
		`^done`,
	)

	found := false
	for _, c := range w.cmds {
		if c == "-data-read-memory-bytes 0x600000 131072" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a heap read over the [heap] mapping, got %v", w.cmds)
	}
}

func TestHeapMemoryReplyPopulatesSnapshot(t *testing.T) {
	e, _ := newTestEngine()
	e.written.Push(request.Written{Kind: request.Heap, Addr: 0x600000})

	// One small free-standing top chunk: prev_size=0, size=0x411 (PREV_INUSE set).
	feed(t, e, `^done,memory=[{begin="0x600000",end="0x600010",offset="0x0",contents="00000000000000001104000000000000"}]`)

	heap := e.Snapshot().Heap()
	if len(heap) != 1 {
		t.Fatalf("Heap() = %+v, want 1 chunk", heap)
	}
}
