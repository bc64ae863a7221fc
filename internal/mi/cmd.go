package mi

import "fmt"

// The command formatters below produce exact MI command strings; the shape
// of every one is part of the wire contract with GDB and is not meant to
// vary with style preference.

// ReadMemoryBytes formats a `-data-read-memory-bytes` request for count
// bytes starting at addr.
func ReadMemoryBytes(addr uint64, count int) string {
	return fmt.Sprintf("-data-read-memory-bytes 0x%x %d", addr, count)
}

// ReadStackOffset formats a `-data-read-memory-bytes` request relative to
// the stack pointer, reading width bytes starting at $sp+offset.
func ReadStackOffset(offset, width int) string {
	return fmt.Sprintf("-data-read-memory-bytes $sp+%d %d", offset, width)
}

// DisassembleRange formats a `-data-disassemble` request over [start, end).
func DisassembleRange(start, end uint64) string {
	return fmt.Sprintf("-data-disassemble -s 0x%x -e 0x%x -- 0", start, end)
}

// DisassembleAtPC formats a `-data-disassemble` request spanning the n
// bytes from the current program counter forward ($pc to $pc+n).
func DisassembleAtPC(n int) string {
	return fmt.Sprintf("-data-disassemble -s $pc -e $pc+%d -- 0", n)
}

// ReadPC formats the PC-value request.
func ReadPC() string {
	return "-data-evaluate-expression $pc"
}

// RegisterNames formats the register-name-list request.
func RegisterNames() string {
	return "-data-list-register-names"
}

// RegisterValues formats the register-value-list request in the given
// output format (e.g. "x" for hex).
func RegisterValues(format string) string {
	return "-data-list-register-values " + format
}

// ChangedRegisters formats the changed-register-list request.
func ChangedRegisters() string {
	return "-data-list-changed-registers"
}

// ListFrames formats the backtrace request.
func ListFrames() string {
	return "-stack-list-frames"
}

// Complete formats a completion query for the given prefix.
func Complete(prefix string) string {
	return fmt.Sprintf("-complete %q", prefix)
}

// ProcMappings formats the console command used to request the memory map.
func ProcMappings() string {
	return `-interpreter-exec console "info proc mappings"`
}

// SymbolList formats the console command used to request the symbol table.
func SymbolList() string {
	return `-interpreter-exec console "info functions"`
}

// ShowEndian formats the console command used to probe target endianness.
func ShowEndian() string {
	return `-interpreter-exec console "show endian"`
}
