package mi

import "testing"

// TestAsyncRecordNestedFrame reproduces a stopped event carrying a nested
// frame tuple and checks that re-parsing it yields the expected fields.
func TestAsyncRecordNestedFrame(t *testing.T) {
	line := `*stopped,reason="breakpoint-hit",disp="keep",bkptno="1",frame={addr="0x00007ffff7e04c48",func="printf",args=[],from="/usr/lib/libc.so.6",arch="i386:x86-64"},thread-id="1",stopped-threads="all",core="1"`

	resp := Parse(line)
	if resp.Kind != KindAsyncRecord {
		t.Fatalf("Kind = %v, want AsyncRecord", resp.Kind)
	}
	if resp.Class != "stopped" {
		t.Fatalf("Class = %q, want stopped", resp.Class)
	}
	if resp.KV["reason"].Scalar != "breakpoint-hit" {
		t.Fatalf("reason = %q", resp.KV["reason"].Scalar)
	}

	frame, ok := resp.KV["frame"]
	if !ok || !frame.IsMap() {
		t.Fatalf("frame missing or not a tuple: %+v", resp.KV["frame"])
	}
	if got := frame.Map["addr"].Scalar; got != "0x00007ffff7e04c48" {
		t.Fatalf("frame.addr = %q", got)
	}
	if got := frame.Map["func"].Scalar; got != "printf" {
		t.Fatalf("frame.func = %q", got)
	}
	if got := frame.Map["from"].Scalar; got != "/usr/lib/libc.so.6" {
		t.Fatalf("frame.from = %q", got)
	}
	if got := frame.Map["arch"].Scalar; got != "i386:x86-64" {
		t.Fatalf("frame.arch = %q", got)
	}
	if args, ok := resp.KV["frame"].Map["args"]; !ok || !args.IsList() || len(args.List) != 0 {
		t.Fatalf("frame.args = %+v, want empty list", args)
	}
}

func TestExecResultError(t *testing.T) {
	resp := Parse(`^error,msg="No symbol \"x\" in current context."`)
	if resp.Kind != KindExecResult || resp.Class != "error" {
		t.Fatalf("got %+v", resp)
	}
	want := `No symbol "x" in current context.`
	if resp.KV["msg"].Scalar != want {
		t.Fatalf("msg = %q, want %q", resp.KV["msg"].Scalar, want)
	}
}

func TestStreamOutputUnescape(t *testing.T) {
	resp := Parse(`~"line one\nline two\t(tabbed)\n"`)
	if resp.Kind != KindStreamConsole {
		t.Fatalf("Kind = %v", resp.Kind)
	}
	want := "line one\nline two\t(tabbed)\n"
	if resp.Text != want {
		t.Fatalf("Text = %q, want %q", resp.Text, want)
	}
}

func TestUnknownPrefixPreservesRawLine(t *testing.T) {
	resp := Parse(`(gdb)`)
	if resp.Kind != KindUnknown || resp.Text != "(gdb)" {
		t.Fatalf("got %+v", resp)
	}
}

func TestRegisterValuesList(t *testing.T) {
	resp := Parse(`^done,register-values=[{number="0",value="0x1"},{number="1",value="0x2"}]`)
	if len(resp.Registers) != 2 {
		t.Fatalf("Registers len = %d, want 2", len(resp.Registers))
	}
	if resp.Registers[0].Number != "0" || *resp.Registers[0].Value != "0x1" {
		t.Fatalf("register[0] = %+v", resp.Registers[0])
	}
	if resp.Registers[1].Number != "1" || *resp.Registers[1].Value != "0x2" {
		t.Fatalf("register[1] = %+v", resp.Registers[1])
	}
}

// TestEndiannessRoundTrip is property test 6: decode(encode(v)) == v for
// both 32- and 64-bit widths, in both byte orders.
func TestEndiannessRoundTrip(t *testing.T) {
	for _, endian := range []Endianness{LittleEndian, BigEndian} {
		for _, width := range []int{4, 8} {
			var v uint64 = 0x01020304
			if width == 8 {
				v = 0x0102030405060708
			}
			encoded := EncodeHex(v, endian, width)
			decoded, err := DecodeHex(encoded, endian)
			if err != nil {
				t.Fatalf("DecodeHex: %v", err)
			}
			if decoded != v {
				t.Fatalf("width=%d endian=%v: round-trip %#x != %#x", width, endian, decoded, v)
			}
		}
	}
}

func TestDecodeHexEndiannessDistinguishesByteOrder(t *testing.T) {
	little, err := DecodeHex("cdab", LittleEndian)
	if err != nil || little != 0xabcd {
		t.Fatalf("little = %#x, err=%v, want 0xabcd", little, err)
	}
	big, err := DecodeHex("cdab", BigEndian)
	if err != nil || big != 0xcdab {
		t.Fatalf("big = %#x, err=%v, want 0xcdab", big, err)
	}
}

func TestDetectEndianness(t *testing.T) {
	if e, ok := DetectEndianness("The target endianness is set automatically (currently little endian)"); !ok || e != LittleEndian {
		t.Fatalf("got %v, %v", e, ok)
	}
	if e, ok := DetectEndianness("The target endianness is set to big endian."); !ok || e != BigEndian {
		t.Fatalf("got %v, %v", e, ok)
	}
}

func TestCommandFormatters(t *testing.T) {
	if got := ReadMemoryBytes(0x1000, 8); got != "-data-read-memory-bytes 0x1000 8" {
		t.Fatalf("got %q", got)
	}
	if got := DisassembleAtPC(80); got != "-data-disassemble -s $pc -e $pc+80 -- 0" {
		t.Fatalf("got %q", got)
	}
	if got := ReadPC(); got != "-data-evaluate-expression $pc" {
		t.Fatalf("got %q", got)
	}
}
