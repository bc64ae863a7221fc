package memmap

import "testing"

func TestDetectHeaderDialects(t *testing.T) {
	cases := []struct {
		line string
		want Dialect
		ok   bool
	}{
		{"Start Addr         End Addr           Size               Offset             Perms objfile", New, true},
		{"Start Addr         End Addr           Size               Offset             Perms File", New, true},
		{"Start Addr         End Addr           Size               Offset             objfile", Old, true},
		{"not a header at all", New, false},
	}
	for _, c := range cases {
		got, ok := DetectHeader(c.line)
		if ok != c.ok {
			t.Fatalf("DetectHeader(%q) ok = %v, want %v", c.line, ok, c.ok)
		}
		if ok && got != c.want {
			t.Fatalf("DetectHeader(%q) = %v, want %v", c.line, got, c.want)
		}
	}
}

func TestParseMappingsNewDialect(t *testing.T) {
	lines := []string{
		"Start Addr         End Addr           Size               Offset             Perms objfile",
		"0x555555554000     0x555555555000     0x1000             0x0                r-xp   /usr/bin/test",
		"not a valid mapping line at all",
		"0x7ffff7ffd000     0x7ffff7ffe000     0x1000             0x0                rw-p   [stack]",
	}
	mappings := ParseMappings(lines, New)
	if len(mappings) != 2 {
		t.Fatalf("len = %d, want 2", len(mappings))
	}
	if mappings[0].StartAddress != 0x555555554000 || mappings[0].Path != "/usr/bin/test" {
		t.Fatalf("mapping[0] = %+v", mappings[0])
	}
	if !mappings[0].IsExec() {
		t.Fatalf("mapping[0] should be exec")
	}
	if !mappings[1].IsStack() {
		t.Fatalf("mapping[1] should be stack")
	}
}

func TestParseMappingsOldDialect(t *testing.T) {
	lines := []string{
		"Start Addr         End Addr           Size               Offset             objfile",
		"0x555555554000     0x555555555000     0x1000             0x0                /usr/bin/test",
	}
	mappings := ParseMappings(lines, Old)
	if len(mappings) != 1 {
		t.Fatalf("len = %d, want 1", len(mappings))
	}
	if mappings[0].Permissions != nil {
		t.Fatalf("old dialect should have no permissions, got %v", *mappings[0].Permissions)
	}
	if mappings[0].Path != "/usr/bin/test" {
		t.Fatalf("path = %q", mappings[0].Path)
	}
}

func TestMappingContains(t *testing.T) {
	m := Mapping{StartAddress: 0x1000, EndAddress: 0x2000}
	if !m.Contains(0x1500) || m.Contains(0x2000) || m.Contains(0xfff) {
		t.Fatalf("Contains boundary check failed")
	}
}
