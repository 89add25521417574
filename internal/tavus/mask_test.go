package tavus

import (
	"strings"
	"testing"
)

func TestMask(t *testing.T) {
	cases := map[string]string{
		"":             "",
		"a":            "***",
		"abcdef":       "***",
		"abcdefg":      "ab***fg",
		"p760a9e07b91": "p7***91",
	}
	for in, want := range cases {
		if got := Mask(in); got != want {
			t.Errorf("Mask(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMask_NeverRevealsInput(t *testing.T) {
	for n := 1; n <= 64; n++ {
		secret := strings.Repeat("x", n-1) + "Z"
		masked := Mask(secret)
		if strings.Contains(masked, secret) {
			t.Errorf("length %d: masked output %q contains secret", n, masked)
		}
		if !strings.Contains(masked, "***") {
			t.Errorf("length %d: expected *** in %q", n, masked)
		}
		if len(masked) > 7 {
			t.Errorf("length %d: masked output %q leaks length", n, masked)
		}
	}
}

func TestMaskAll(t *testing.T) {
	out := maskAll("persona p760a9e07b91 key abc", "p760a9e07b91", "abc", "")
	if out != "persona p7***91 key ***" {
		t.Errorf("unexpected output %q", out)
	}
}
