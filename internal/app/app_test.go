package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"clicker/internal/capture"
	"clicker/internal/coords"
	"clicker/internal/engine"
	"clicker/internal/platform"
	"clicker/internal/platform/platformtest"
	"clicker/internal/store"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		line    string
		want    engine.Command
		wantErr error
	}{
		{"record", engine.Command{Kind: engine.KindRecord, Mode: capture.ModeHotkey, Label: "default"}, nil},
		{"record direct table", engine.Command{Kind: engine.KindRecord, Mode: capture.ModeDirect, Label: "table"}, nil},
		{"START", engine.Command{Kind: engine.KindSignal, Signal: capture.SignalStart}, nil},
		{"stop", engine.Command{Kind: engine.KindSignal, Signal: capture.SignalStop}, nil},
		{"cancel", engine.Command{Kind: engine.KindSignal, Signal: capture.SignalCancel}, nil},
		{"mark 10 20", engine.Command{Kind: engine.KindPoint, Point: coords.Point{X: 10, Y: 20}}, nil},
		{"locate", engine.Command{Kind: engine.KindRelocate}, nil},
		{"save", engine.Command{Kind: engine.KindFinish}, nil},
		{"finish other", engine.Command{Kind: engine.KindFinish, Label: "other"}, nil},
		{"replay", engine.Command{Kind: engine.KindReplay, Label: "default"}, nil},
		{"cancel-replay", engine.Command{Kind: engine.KindCancelReplay}, nil},
		{"status", engine.Command{Kind: engine.KindStatus}, nil},
		{"exit", engine.Command{Kind: engine.KindQuit}, nil},
		{"   ", engine.Command{}, errEmptyLine},
		{"?", engine.Command{}, errHelp},
	}
	for _, tt := range tests {
		got, err := parseLine(tt.line, "default")
		if !errors.Is(err, tt.wantErr) {
			t.Errorf("parseLine(%q) error = %v, want %v", tt.line, err, tt.wantErr)
			continue
		}
		if got.Kind != tt.want.Kind || got.Mode != tt.want.Mode || got.Label != tt.want.Label ||
			got.Signal != tt.want.Signal || got.Point != tt.want.Point {
			t.Errorf("parseLine(%q) = %+v, want %+v", tt.line, got, tt.want)
		}
	}
}

func TestParseLineErrors(t *testing.T) {
	for _, line := range []string{"mark 10", "mark a b", "record sideways", "jump"} {
		if _, err := parseLine(line, "default"); err == nil {
			t.Errorf("parseLine(%q) should fail", line)
		}
	}
}

func TestPromptConfirmer(t *testing.T) {
	var out bytes.Buffer
	if !promptConfirmer(strings.NewReader("yes\n"), &out, false)("Remove?") {
		t.Error("Expected yes to confirm")
	}
	if !strings.Contains(out.String(), "Remove? [y/N]") {
		t.Errorf("Unexpected prompt %q", out.String())
	}
	if promptConfirmer(strings.NewReader("\n"), &out, false)("Remove?") {
		t.Error("Expected empty answer to decline")
	}
	if promptConfirmer(strings.NewReader(""), &out, false)("Remove?") {
		t.Error("Expected EOF to decline")
	}
	if !promptConfirmer(strings.NewReader(""), &out, true)("Remove?") {
		t.Error("Expected assumeYes to confirm without input")
	}
}

func TestDescribeNotice(t *testing.T) {
	hk := engine.Hotkeys{Start: "S", Stop: "E", Cancel: "Q"}
	tests := []struct {
		n    engine.Notice
		want string
	}{
		{engine.Notice{Kind: engine.NoticePhase, Phase: capture.PhaseArmed}, "press S to start"},
		{engine.Notice{Kind: engine.NoticePhase, Phase: capture.PhaseRecording}, "press E to confirm"},
		{engine.Notice{Kind: engine.NoticeConfirmed, Slot: 0, Point: coords.Point{X: 5, Y: 6}}, "Entry 1 confirmed at (5,6)"},
		{engine.Notice{Kind: engine.NoticeResolved, Slot: 2, Value: "17"}, "Entry 3 = 17"},
		{engine.Notice{Kind: engine.NoticeClosed, Entries: 4}, "Session closed with 4 entries"},
		{engine.Notice{Kind: engine.NoticeClosed, Entries: 1, Err: errors.New("bridge exited")}, "bridge exited"},
	}
	for _, tt := range tests {
		if got := describeNotice(tt.n, hk); !strings.Contains(got, tt.want) {
			t.Errorf("describeNotice(%+v) = %q, want it to contain %q", tt.n, got, tt.want)
		}
	}
	if got := describeNotice(engine.Notice{Kind: engine.NoticePhase, Phase: capture.PhaseIdle}, hk); got != "" {
		t.Errorf("Expected no text for idle phase, got %q", got)
	}
}

func TestSplitHints(t *testing.T) {
	got := splitHints(" firefox, ,gecko ")
	if len(got) != 2 || got[0] != "firefox" || got[1] != "gecko" {
		t.Errorf("splitHints() = %v", got)
	}
	if splitHints("") != nil {
		t.Error("Expected no hints from empty flag")
	}
}

// setupCLI points the commands at a temp database and a fake firefox window
func setupCLI(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	fake := &platformtest.Fake{WindowList: []platform.WindowInfo{{
		Handle: 1, PID: 42, Process: "firefox", Title: "Mozilla Firefox",
		Visible: true, X: 100, Y: 200, Width: 800, Height: 600,
	}}}
	prevPlatform := newPlatform
	newPlatform = func() platform.Platform { return fake }
	t.Cleanup(func() {
		newPlatform = prevPlatform
		configPath, dbPath, quiet = "", "", false
		showList, exportOut = false, "clicks_fisicos.json"
		purgeMethod, purgeAll, purgeYes = "", false, false
		configForce = false
	})

	dbFile := filepath.Join(dir, "clicker.db")
	st, err := store.Open(dbFile)
	if err != nil {
		t.Fatalf("store.Open() failed: %v", err)
	}
	defer st.Close()

	g := coords.WindowGeometry{Origin: coords.Point{X: 100, Y: 200}, Width: 800, Height: 600}
	now := time.Now()
	set := coords.CoordinateSet{
		Label:    "default",
		Geometry: g,
		SavedAt:  now,
		Entries: []coords.CoordinateEntry{
			coords.NewEntry("17", coords.KindNumber, coords.Point{X: 500, Y: 500}, g, coords.MethodHotkey, now),
			coords.NewEntry("RED", coords.KindOuterBet, coords.Point{X: 300, Y: 400}, g, coords.MethodManual, now),
		},
	}
	if err := st.Save(context.Background(), set, "default"); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	return dir
}

func execute(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	RootCmd.SetOut(&out)
	RootCmd.SetErr(&out)
	RootCmd.SetIn(strings.NewReader(""))
	base := []string{"--quiet", "--config", filepath.Join(dir, "config.json"), "--db", filepath.Join(dir, "clicker.db")}
	RootCmd.SetArgs(append(base, args...))
	err := RootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestShowList(t *testing.T) {
	dir := setupCLI(t)
	out, err := execute(t, dir, "show", "--list")
	if err != nil {
		t.Fatalf("show --list failed: %v", err)
	}
	if !strings.Contains(out, "default") {
		t.Errorf("Expected default set listed, got:\n%s", out)
	}
}

func TestShowSet(t *testing.T) {
	dir := setupCLI(t)
	out, err := execute(t, dir, "show")
	if err != nil {
		t.Fatalf("show failed: %v", err)
	}
	if !strings.Contains(out, "Source: db:default") || !strings.Contains(out, "17") || !strings.Contains(out, "RED") {
		t.Errorf("Unexpected show output:\n%s", out)
	}
}

func TestExportToFile(t *testing.T) {
	dir := setupCLI(t)
	path := filepath.Join(dir, "clicks.json")
	if _, err := execute(t, dir, "export", "-o", path); err != nil {
		t.Fatalf("export failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var f store.ExportFile
	if err := json.Unmarshal(data, &f); err != nil {
		t.Fatalf("Invalid export: %v", err)
	}
	if len(f.Clicks) != 2 {
		t.Fatalf("Expected 2 clicks, got %d", len(f.Clicks))
	}
	if f.Clicks[0].Value != "17" || f.Clicks[0].X != 500 || f.Clicks[0].Y != 500 {
		t.Errorf("Unexpected first click %+v", f.Clicks[0])
	}
}

func TestPurgeManual(t *testing.T) {
	dir := setupCLI(t)
	out, err := execute(t, dir, "purge", "--method", "manual", "--yes")
	if err != nil {
		t.Fatalf("purge failed: %v", err)
	}
	if !strings.Contains(out, "Removed 1 entries") {
		t.Errorf("Unexpected purge output:\n%s", out)
	}

	st, err := store.Open(filepath.Join(dir, "clicker.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()
	set, err := st.Get(context.Background(), "default")
	if err != nil {
		t.Fatal(err)
	}
	if len(set.Entries) != 1 || set.Entries[0].Value != "17" {
		t.Errorf("Expected only the hotkey entry to remain, got %+v", set.Entries)
	}
}

func TestPurgeNeedsOneTarget(t *testing.T) {
	dir := setupCLI(t)
	if _, err := execute(t, dir, "purge"); err == nil {
		t.Error("Expected purge without --method or --all to fail")
	}
}

func TestPurgeDeclined(t *testing.T) {
	dir := setupCLI(t)
	out, err := execute(t, dir, "purge", "--all")
	if err != nil {
		t.Fatalf("purge failed: %v", err)
	}
	if !strings.Contains(out, "Purge cancelled.") {
		t.Errorf("Expected cancellation without a yes, got:\n%s", out)
	}
}

func TestLocateCommand(t *testing.T) {
	dir := setupCLI(t)
	out, err := execute(t, dir, "locate")
	if err != nil {
		t.Fatalf("locate failed: %v", err)
	}
	if !strings.Contains(out, "800") || !strings.Contains(out, "600") {
		t.Errorf("Expected window size in output, got:\n%s", out)
	}
}

func TestConfigSetPersists(t *testing.T) {
	dir := setupCLI(t)
	out, err := execute(t, dir, "config", "set", "replay.max_delay_ms", "2000")
	if err != nil {
		t.Fatalf("config set failed: %v", err)
	}
	if !strings.Contains(out, "Set replay.max_delay_ms = 2000") {
		t.Errorf("Unexpected output:\n%s", out)
	}

	data, err := os.ReadFile(filepath.Join(dir, "config.json"))
	if err != nil {
		t.Fatalf("Expected config file to be written: %v", err)
	}
	var cfg struct {
		Replay struct {
			MaxDelayMs int `json:"max_delay_ms"`
		} `json:"replay"`
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.Replay.MaxDelayMs != 2000 {
		t.Errorf("Expected 2000 in file, got %d", cfg.Replay.MaxDelayMs)
	}
}

func TestConfigSetRejectsInvalid(t *testing.T) {
	dir := setupCLI(t)
	if _, err := execute(t, dir, "config", "set", "replay.max_delay_ms", "10"); err == nil {
		t.Error("Expected a max delay below the min delay to be refused")
	}
	if _, err := os.Stat(filepath.Join(dir, "config.json")); !os.IsNotExist(err) {
		t.Error("Refused change must not write the file")
	}
	if _, err := execute(t, dir, "config", "set", "nope", "1"); err == nil {
		t.Error("Expected unknown key to fail")
	}
}
