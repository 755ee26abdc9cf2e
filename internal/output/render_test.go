package output

import (
	"errors"
	"strings"
	"testing"
	"time"

	"clicker/internal/coords"
	"clicker/internal/diag"
	"clicker/internal/fault"
	"clicker/internal/replay"
	"clicker/internal/store"
)

func TestRenderChecks(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	out := RenderChecks([]diag.Check{
		{Name: "Shell execution", Pass: true, Detail: "commands run", Critical: true},
		{Name: "Target window", Detail: "no window", Remediation: "Open the target application"},
		{Name: "Global input hook", Detail: "access denied", Remediation: "Run as administrator", Critical: true},
	})

	for _, want := range []string{
		"✓ Shell execution (commands run)",
		"⚠ Target window (no window)\n  Action: Open the target application",
		"✗ Global input hook (access denied)\n  Action: Run as administrator",
		"2 of 3 checks need attention.",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderError(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	err := fault.HookBridge("start", "no acknowledgement", "Run as administrator", nil)
	out := RenderError(err)
	if !strings.HasPrefix(out, "Error: ") || !strings.Contains(out, "  Action: Run as administrator") {
		t.Errorf("Unexpected output %q", out)
	}
	if strings.Contains(RenderError(errors.New("plain")), "Action:") {
		t.Error("Plain errors have no Action line")
	}
}

func TestRenderSet(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	g := coords.WindowGeometry{Origin: coords.Point{X: 100, Y: 200}, Width: 800, Height: 600}
	set := coords.CoordinateSet{Label: "default", Entries: []coords.CoordinateEntry{
		{Value: "17", Kind: coords.KindNumber, Relative: coords.RelativePoint{X: 0.5, Y: 0.5}, Method: coords.MethodHotkey},
		{Value: "RED", Kind: coords.KindOuterBet, Relative: coords.RelativePoint{X: 0.25, Y: 0.75}, Method: coords.MethodDetected},
	}}

	out := RenderSet(set, g)
	if !strings.Contains(out, `Set "default": 2 entries`) {
		t.Errorf("Missing title:\n%s", out)
	}
	if !strings.Contains(out, "(500,500)") || !strings.Contains(out, "(300,650)") {
		t.Errorf("Missing absolute targets:\n%s", out)
	}
	if !strings.Contains(out, "DETECTED 1 · HOTKEY 1") {
		t.Errorf("Missing method summary:\n%s", out)
	}

	if strings.Contains(RenderSet(set, coords.WindowGeometry{}), "(500,500)") {
		t.Error("Degenerate geometry must not render absolute points")
	}
	if RenderSet(coords.CoordinateSet{Label: "x"}, g) != "Set \"x\" is empty.\n" {
		t.Error("Unexpected empty-set output")
	}
}

func TestRenderReport(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	out := RenderReport(replay.Report{
		Successes: 4,
		Attempted: 5,
		Elapsed:   3 * time.Second,
		Failures: []replay.ClickFailure{{
			Index:  2,
			Entry:  coords.CoordinateEntry{Value: "9"},
			Target: coords.Point{X: 10, Y: 20},
			Err:    errors.New("blocked"),
		}},
	})
	if !strings.Contains(out, "4/5 succeeded") || !strings.Contains(out, "✗ #3 9 at (10,20): blocked") {
		t.Errorf("Unexpected report:\n%s", out)
	}
	if !strings.Contains(RenderReport(replay.Report{Cancelled: true}), "Replay cancelled") {
		t.Error("Expected cancelled status")
	}
}

func TestRenderLabels(t *testing.T) {
	if RenderLabels(nil) != "No saved sets.\n" {
		t.Error("Unexpected empty output")
	}
	out := RenderLabels([]store.SetSummary{{Label: "default", Entries: 44, SavedAt: time.Now()}})
	if !strings.Contains(out, "default") || !strings.Contains(out, "44") {
		t.Errorf("Unexpected output:\n%s", out)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 8, "short"},
		{"Lightning", 5, "Ligh…"},
		{"ñandú", 5, "ñandú"},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.max); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}
