package app

import (
	"fmt"
	"strings"

	"clicker/internal/capture"
	"clicker/internal/engine"
	"clicker/internal/output"
	"clicker/internal/replay"
)

// describeNotice renders an engine notice for the console
func describeNotice(n engine.Notice, hotkeys engine.Hotkeys) string {
	switch n.Kind {
	case engine.NoticePhase:
		switch n.Phase {
		case capture.PhaseArmed:
			return fmt.Sprintf("Armed: press %s to start an entry, %s to quit\n", hotkeys.Start, hotkeys.Cancel)
		case capture.PhaseRecording:
			return fmt.Sprintf("Recording: click the target, then press %s to confirm\n", hotkeys.Stop)
		}
		return ""
	case engine.NoticeConfirmed:
		return fmt.Sprintf("Entry %d confirmed at %s\n", n.Slot+1, n.Point)
	case engine.NoticeResolved:
		return fmt.Sprintf("Entry %d = %s\n", n.Slot+1, n.Value)
	case engine.NoticeClosed:
		msg := fmt.Sprintf("Session closed with %d entries\n", n.Entries)
		if n.Err != nil {
			msg += output.RenderError(n.Err)
		}
		return msg
	case engine.NoticeProgress:
		return describeProgress(n.Progress)
	case engine.NoticeReplayDone:
		if n.Err != nil {
			return output.RenderError(n.Err)
		}
		return output.RenderReport(n.Report)
	}
	return ""
}

func describeProgress(p replay.Progress) string {
	switch p.Kind {
	case replay.ProgressCountdown:
		return fmt.Sprintf("Starting in %d...\n", p.Remaining)
	case replay.ProgressClicked:
		return fmt.Sprintf("Click %d/%d %s at %s\n", p.Index+1, p.Total, p.Entry.Value, p.Target)
	case replay.ProgressFailed:
		return fmt.Sprintf("Click %d/%d %s at %s failed: %v\n", p.Index+1, p.Total, p.Entry.Value, p.Target, p.Err)
	}
	return ""
}

// describeStatus renders the engine status for the status verb
func describeStatus(st engine.Status) string {
	var sb strings.Builder
	if st.Active {
		sb.WriteString(fmt.Sprintf("Session %q: %s (%s mode), %d entries, window %s\n",
			st.Label, st.Phase, st.Mode, st.Entries, st.Geometry))
		sb.WriteString(fmt.Sprintf("  accepted %d, discarded %d, ignored %d, replaced %d, debounced %d\n",
			st.Stats.Accepted, st.Stats.Discarded, st.Stats.Ignored, st.Stats.Replaced, st.Stats.Debounced))
		if st.Hooked {
			sb.WriteString("  hook bridge active\n")
		} else {
			sb.WriteString("  manual entry only\n")
		}
	} else {
		sb.WriteString("No capture session\n")
	}
	if st.Replaying {
		sb.WriteString("Replay running\n")
	}
	return sb.String()
}
