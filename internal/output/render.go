package output

import (
	"fmt"
	"strings"
	"time"

	"clicker/internal/coords"
	"clicker/internal/diag"
	"clicker/internal/fault"
	"clicker/internal/locator"
	"clicker/internal/replay"
	"clicker/internal/store"
)

// RenderChecks renders the diagnostics checklist.
// Passing checks get ✓, advisory failures ⚠ and critical failures ✗,
// each failure followed by its Action line.
func RenderChecks(checks []diag.Check) string {
	var sb strings.Builder
	sb.WriteString(paint(titleStyle, "Capability diagnostics"))
	sb.WriteString("\n\n")

	failed := 0
	for _, c := range checks {
		switch {
		case c.Pass:
			sb.WriteString(paint(passStyle, "✓ "+c.Name))
		case c.Critical:
			failed++
			sb.WriteString(paint(failStyle, "✗ "+c.Name))
		default:
			failed++
			sb.WriteString(paint(warnStyle, "⚠ "+c.Name))
		}
		if c.Detail != "" {
			sb.WriteString(paint(dimStyle, " ("+c.Detail+")"))
		}
		sb.WriteString("\n")
		if !c.Pass && c.Remediation != "" {
			sb.WriteString("  Action: " + c.Remediation + "\n")
		}
	}

	sb.WriteString("\n")
	if failed == 0 {
		sb.WriteString("All checks passed.\n")
	} else {
		sb.WriteString(fmt.Sprintf("%d of %d checks need attention.\n", failed, len(checks)))
	}
	return sb.String()
}

// RenderError formats an error with its remediation in the Action format
func RenderError(err error) string {
	var sb strings.Builder
	sb.WriteString(paint(failStyle, "Error: "+err.Error()))
	sb.WriteString("\n")
	if r := fault.Remediation(err); r != "" {
		sb.WriteString("  Action: " + r + "\n")
	}
	return sb.String()
}

// RenderGeometry renders a located window
func RenderGeometry(g coords.WindowGeometry) string {
	return fmt.Sprintf("Target window: %s\n  Process: %s\n  Title:   %s\n",
		g.String(), orDash(g.ProcessLabel), orDash(g.Title))
}

// RenderChange renders a recalibration comparison
func RenderChange(prev, cur coords.WindowGeometry, ch locator.Change) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Saved:   %s\nCurrent: %s\n", prev.String(), cur.String()))
	switch {
	case ch.Moved && ch.Resized:
		sb.WriteString(paint(warnStyle, "Window moved and resized; relative coordinates still apply."))
	case ch.Moved:
		sb.WriteString(paint(warnStyle, "Window moved; relative coordinates still apply."))
	case ch.Resized:
		sb.WriteString(paint(warnStyle, "Window resized; relative coordinates still apply."))
	default:
		sb.WriteString(paint(passStyle, "Window unchanged."))
	}
	sb.WriteString("\n")
	return sb.String()
}

// RenderSet renders the entries of a coordinate set at geometry g.
// A degenerate g omits the absolute column.
func RenderSet(set coords.CoordinateSet, g coords.WindowGeometry) string {
	if len(set.Entries) == 0 {
		return fmt.Sprintf("Set %q is empty.\n", set.Label)
	}

	var sb strings.Builder
	sb.WriteString(paint(titleStyle, fmt.Sprintf("Set %q: %d entries", set.Label, len(set.Entries))))
	sb.WriteString("\n")

	sb.WriteString(fmt.Sprintf("%-4s %-8s %-10s %-9s %-17s %-12s\n",
		"#", "Value", "Kind", "Method", "Relative", "Absolute"))
	sb.WriteString(strings.Repeat("─", 64))
	sb.WriteString("\n")

	showAbs := !g.Degenerate()
	for i, e := range set.Entries {
		abs := "-"
		if showAbs {
			abs = coords.ToAbsolute(e.Relative, g).String()
		}
		method := fmt.Sprintf("%-9s", string(e.Method))
		sb.WriteString(fmt.Sprintf("%-4d %-8s %-10s %s %-17s %-12s\n",
			i+1,
			truncate(e.Value, 8),
			string(e.Kind),
			paint(methodStyle(string(e.Method)), method),
			fmt.Sprintf("(%.4f, %.4f)", e.Relative.X, e.Relative.Y),
			abs))
	}

	counts := set.CountByMethod()
	var parts []string
	for _, m := range []coords.Method{coords.MethodDetected, coords.MethodManual, coords.MethodHotkey, coords.MethodImported} {
		if n := counts[m]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s %d", m, n))
		}
	}
	sb.WriteString(paint(dimStyle, strings.Join(parts, " · ")))
	sb.WriteString("\n")
	return sb.String()
}

// RenderLabels renders the stored set summaries
func RenderLabels(sets []store.SetSummary) string {
	if len(sets) == 0 {
		return "No saved sets.\n"
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-24s %-8s %s\n", "Label", "Entries", "Saved"))
	sb.WriteString(strings.Repeat("─", 52))
	sb.WriteString("\n")
	for _, s := range sets {
		sb.WriteString(fmt.Sprintf("%-24s %-8d %s\n", truncate(s.Label, 24), s.Entries, s.SavedAt.Local().Format("2006-01-02 15:04")))
	}
	return sb.String()
}

// RenderVerify renders computed replay targets without clicking
func RenderVerify(targets []replay.Target, g coords.WindowGeometry) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Targets at %s\n", g.String()))
	outside := 0
	for _, t := range targets {
		mark := paint(passStyle, "✓")
		if !t.InWindow {
			mark = paint(failStyle, "✗")
			outside++
		}
		sb.WriteString(fmt.Sprintf("%s %3d %-8s -> %s\n", mark, t.Index+1, truncate(t.Entry.Value, 8), t.Point.String()))
	}
	if outside > 0 {
		sb.WriteString(paint(warnStyle, fmt.Sprintf("%d target(s) fall outside the window", outside)))
		sb.WriteString("\n")
	}
	return sb.String()
}

// RenderReport renders a replay report
func RenderReport(r replay.Report) string {
	var sb strings.Builder
	status := "Replay finished"
	if r.Cancelled {
		status = "Replay cancelled"
	}
	sb.WriteString(paint(titleStyle, status))
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("  Clicks:    %d/%d succeeded\n", r.Successes, r.Attempted))
	sb.WriteString(fmt.Sprintf("  Duration:  %s\n", r.Elapsed.Round(10*time.Millisecond)))
	sb.WriteString(fmt.Sprintf("  Window:    %s\n", r.Geometry.String()))
	for _, f := range r.Failures {
		sb.WriteString(paint(failStyle, fmt.Sprintf("  ✗ #%d %s at %s: %v", f.Index+1, f.Entry.Value, f.Target.String(), f.Err)))
		sb.WriteString("\n")
	}
	return sb.String()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// truncate shortens s to max runes with a trailing ellipsis
func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 1 {
		return string(r[:max])
	}
	return string(r[:max-1]) + "…"
}
