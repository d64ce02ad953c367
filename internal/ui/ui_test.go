package ui

import (
	"bytes"
	"strings"
	"testing"
)

func TestPanelAlignsVisibleWidth(t *testing.T) {
	SetTheme("mono")
	defer SetTheme("classic")
	SetColorForcing(true, false)
	defer SetColorForcing(false, false)

	var buf bytes.Buffer
	Panel(&buf, []string{"short", C(fgGreen, "much longer line")})
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("lines: %q", lines)
	}
	if lines[0] != "+"+strings.Repeat("-", len("much longer line")+2)+"+" {
		t.Errorf("top border: %q", lines[0])
	}
	if lines[1] != "| short            |" {
		t.Errorf("padded line: %q", lines[1])
	}
}

func TestProgressBar(t *testing.T) {
	got := ProgressBar(1, 2, 10)
	if !strings.HasPrefix(got, "█████░░░░░") || !strings.HasSuffix(got, " 50%") {
		t.Errorf("ProgressBar: %q", got)
	}
	if got := ProgressBar(0, 0, 1); !strings.HasSuffix(got, "  0%") {
		t.Errorf("empty ProgressBar: %q", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("hello world", 8); got != "hello..." {
		t.Errorf("Truncate: %q", got)
	}
	if got := Truncate("short", 8); got != "short" {
		t.Errorf("Truncate short: %q", got)
	}
}

func TestSetThemeUnknown(t *testing.T) {
	defer SetTheme("classic")
	if SetTheme("sparkly") {
		t.Error("unknown theme reported as known")
	}
	if Current().BoxChecked != "☑" {
		t.Errorf("fallback should be classic, got %+v", Current())
	}
}

func TestOKAndFail(t *testing.T) {
	SetColorForcing(false, true)
	defer SetColorForcing(false, false)
	var buf bytes.Buffer
	OK(&buf, "added")
	Fail(&buf, "nope")
	if buf.String() != "✔ added\n✖ nope\n" {
		t.Errorf("output: %q", buf.String())
	}
}
