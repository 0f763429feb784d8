package session

import "testing"

func TestParse(t *testing.T) {
	cases := []struct {
		raw   string
		depth int
		last  string
	}{
		{"", 0, ""},
		{"1", 1, "1"},
		{"1*Rwanda", 2, "Rwanda"},
		{"1*Rwanda*Kigali*Nyarugenge", 4, "Nyarugenge"},
		{"2*", 2, ""},
		{"**", 3, ""},
	}
	for _, tc := range cases {
		in := Parse(tc.raw)
		if in.Depth() != tc.depth {
			t.Errorf("Parse(%q).Depth() = %d, want %d", tc.raw, in.Depth(), tc.depth)
		}
		if in.Last() != tc.last {
			t.Errorf("Parse(%q).Last() = %q, want %q", tc.raw, in.Last(), tc.last)
		}
		if in.Empty() != (tc.depth == 0) {
			t.Errorf("Parse(%q).Empty() = %v", tc.raw, in.Empty())
		}
	}
}

func TestInputStepOutOfRange(t *testing.T) {
	in := Parse("1*Rwanda")
	if got := in.Step(5); got != "" {
		t.Fatalf("Step(5) = %q", got)
	}
	if got := in.Step(-1); got != "" {
		t.Fatalf("Step(-1) = %q", got)
	}
}
