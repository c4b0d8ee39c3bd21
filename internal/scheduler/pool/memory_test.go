package pool

import "testing"

func TestParseMemoryBytes(t *testing.T) {
	cases := map[string]int64{
		"1Gi":     1 << 30,
		"1G":      1_000_000_000,
		"1Mi":     1 << 20,
		"garbage": 0,
		"":        0,
		"512Ki":   512 * 1024,
		"2M":      2_000_000,
		"100":     100,
	}
	for in, want := range cases {
		if got := ParseMemoryBytes(in); got != want {
			t.Errorf("ParseMemoryBytes(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestParseCPU(t *testing.T) {
	if got := ParseCPU("1"); got != 1 {
		t.Errorf("ParseCPU(1) = %v, want 1", got)
	}
	if got := ParseCPU("0.5"); got != 0.5 {
		t.Errorf("ParseCPU(0.5) = %v, want 0.5", got)
	}
	if got := ParseCPU("nope"); got != 0 {
		t.Errorf("ParseCPU(nope) = %v, want 0", got)
	}
}
