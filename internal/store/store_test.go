package store

import (
	"bytes"
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"clicker/internal/coords"
	"clicker/internal/fault"
)

var testGeometry = coords.WindowGeometry{Origin: coords.Point{X: 100, Y: 200}, Width: 800, Height: 600, ProcessLabel: "firefox"}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleSet() coords.CoordinateSet {
	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	return coords.CoordinateSet{
		Label:    "default",
		Geometry: testGeometry,
		SavedAt:  at,
		Entries: []coords.CoordinateEntry{
			coords.NewEntry("17", coords.KindNumber, coords.Point{X: 500, Y: 500}, testGeometry, coords.MethodDetected, at),
			coords.NewEntry("RED", coords.KindOuterBet, coords.Point{X: 100, Y: 200}, testGeometry, coords.MethodManual, at),
			coords.NewEntry("3", coords.KindUnknown, coords.Point{X: 900, Y: 800}, testGeometry, coords.MethodHotkey, at),
			coords.NewEntry("0", coords.KindNumber, coords.Point{X: 333, Y: 444}, testGeometry, coords.MethodHotkey, at),
		},
	}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestSaveGetRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	set := sampleSet()

	if err := s.Save(ctx, set, "default"); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	got, err := s.Get(ctx, "default")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}

	if len(got.Entries) != len(set.Entries) {
		t.Fatalf("Expected %d entries, got %d", len(set.Entries), len(got.Entries))
	}
	for i, e := range got.Entries {
		want := set.Entries[i]
		if e.ID != want.ID || e.Value != want.Value || e.Kind != want.Kind || e.Method != want.Method {
			t.Errorf("Entry %d = %+v, want %+v", i, e, want)
		}
		if !e.Relative.Valid() {
			t.Errorf("Entry %d relative point %+v outside [0,1]", i, e.Relative)
		}
		if e.Relative != want.Relative {
			t.Errorf("Entry %d relative = %+v, want %+v", i, e.Relative, want.Relative)
		}
		if !e.CapturedAt.Equal(want.CapturedAt) {
			t.Errorf("Entry %d captured_at = %v, want %v", i, e.CapturedAt, want.CapturedAt)
		}
	}
	if got.Geometry != testGeometry {
		t.Errorf("Geometry = %+v, want %+v", got.Geometry, testGeometry)
	}

	// Saving again replaces rather than appends
	set.Entries = set.Entries[:1]
	if err := s.Save(ctx, set, "default"); err != nil {
		t.Fatal(err)
	}
	got, _ = s.Get(ctx, "default")
	if len(got.Entries) != 1 {
		t.Errorf("Expected replace semantics, got %d entries", len(got.Entries))
	}
}

func TestSaveRejectsOutOfRange(t *testing.T) {
	s := newTestStore(t)
	set := sampleSet()
	set.Entries[2].Relative = coords.RelativePoint{X: 1.2, Y: 0.5}

	if err := s.Save(context.Background(), set, "bad"); err == nil {
		t.Fatal("Expected Save to reject a relative point outside [0,1]")
	}
	if _, err := s.Get(context.Background(), "bad"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected nothing stored, got %v", err)
	}
}

func TestLabelsAndDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	older := sampleSet()
	older.SavedAt = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s.Save(ctx, older, "old")
	s.Save(ctx, sampleSet(), "new")

	labels, err := s.Labels(ctx)
	if err != nil {
		t.Fatalf("Labels() failed: %v", err)
	}
	if len(labels) != 2 || labels[0].Label != "new" || labels[0].Entries != 4 {
		t.Errorf("Unexpected labels %+v", labels)
	}

	if err := s.Delete(ctx, "old"); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}
	if err := s.Delete(ctx, "old"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound deleting twice, got %v", err)
	}
}

const integratedJSON = `{
  "timestamp": "2024-02-01T10:00:00Z",
  "metodo": "firefox_integrado",
  "dimensiones": {"width": 1280, "height": 720},
  "elementos": [
    {"valor": 17, "tipo": "numero", "metodo": "firefox_integrado",
     "coordenadas": {"relativas": {"x": 0.25, "y": 0.5}, "absolutas": {"x": 320, "y": 360}}},
    {"valor": "RED", "tipo": "apuesta", "metodo": "manual_firefox",
     "coordenadas": {"relativas": {"x": 0.75, "y": 0.9}}}
  ]
}`

const hybridJSON = `{
  "ventana": {"x": 10, "y": 20, "width": 1000, "height": 500},
  "elementos": [
    {"texto": "BLACK", "metodo": "ocr", "coordenadas": {"relativas": {"x": 0.1, "y": 0.2}}},
    {"valor": 5, "metodo": "manual", "coordenadas": {"relativas": {"x": 0.3, "y": 0.4}}}
  ]
}`

const relativeJSON = `{
  "timestamp": "2024-05-01T10:00:00.000Z",
  "ventana": {"x": 0, "y": 0, "width": 800, "height": 600},
  "elementos": [
    {"tipo": "numero", "valor": 1, "metodo": "automatico", "coordenadas": {"relativas": {"x": 0.5, "y": 0.5}, "absolutas": {"x": 400, "y": 300}}},
    {"tipo": "numero", "valor": 2, "metodo": "automatico", "coordenadas": {"relativas": {"x": 1.5, "y": 0.5}, "absolutas": {"x": 1200, "y": 300}}}
  ]
}`

const relativeListJSON = `{
  "ventana": {"x": 0, "y": 0, "width": 800, "height": 600},
  "coordenadas": [{"valor": 1, "x": 0.5, "y": 0.5}, {"valor": 2, "x": 1.5, "y": 0.5}]
}`

func TestLoadPrecedence(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	dir := t.TempDir()

	integrated := writeFile(t, dir, "coordenadas_firefox_integrado.json", integratedJSON)
	hybrid := writeFile(t, dir, "coordenadas_hibridas.json", hybridJSON)
	specs := []string{"db:default", integrated, hybrid}

	// Nothing stored yet: the newest file format wins
	set, from, err := Load(ctx, Sources(specs, s, nil))
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if from != integrated {
		t.Errorf("Expected integrated file to win, got %s", from)
	}
	if len(set.Entries) != 2 || set.Entries[0].Value != "17" || set.Entries[0].Kind != coords.KindNumber {
		t.Errorf("Unexpected integrated entries %+v", set.Entries)
	}
	if set.Entries[1].Method != coords.MethodManual || set.Entries[1].Kind != coords.KindOuterBet {
		t.Errorf("Expected manual outer bet, got %+v", set.Entries[1])
	}

	// A stored set takes precedence over every file
	if err := s.Save(ctx, sampleSet(), "default"); err != nil {
		t.Fatal(err)
	}
	set, from, err = Load(ctx, Sources(specs, s, nil))
	if err != nil {
		t.Fatal(err)
	}
	if from != "db:default" || len(set.Entries) != 4 {
		t.Errorf("Expected db:default with 4 entries, got %s with %d", from, len(set.Entries))
	}
}

func TestLoadCorruptFallsThrough(t *testing.T) {
	dir := t.TempDir()
	corrupt := writeFile(t, dir, "coordenadas_firefox_integrado.json", `{"dimensiones": {"width": 1280,`)
	hybrid := writeFile(t, dir, "coordenadas_hibridas.json", hybridJSON)

	src := FileSource{Path: corrupt, Decoder: Integrated}
	if _, err := src.Load(context.Background()); !errors.Is(err, fault.ErrParse) {
		t.Fatalf("Expected parse fault for corrupt file, got %v", err)
	}

	set, from, err := Load(context.Background(), Sources([]string{corrupt, hybrid}, nil, nil))
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if from != hybrid {
		t.Errorf("Expected fall-through to hybrid, got %s", from)
	}
	if set.Entries[0].Value != "BLACK" || set.Entries[0].Method != coords.MethodDetected {
		t.Errorf("Unexpected hybrid entry %+v", set.Entries[0])
	}
	if set.Entries[1].Value != "5" || set.Entries[1].Kind != coords.KindNumber {
		t.Errorf("Unexpected hybrid entry %+v", set.Entries[1])
	}
}

func TestLoadNoSource(t *testing.T) {
	dir := t.TempDir()
	_, _, err := Load(context.Background(), Sources([]string{"db:default", filepath.Join(dir, "missing.json")}, nil, nil))
	if !errors.Is(err, ErrNoSource) {
		t.Errorf("Expected ErrNoSource, got %v", err)
	}
}

func TestRelativeDecoderDropsOutOfRange(t *testing.T) {
	path := writeFile(t, t.TempDir(), "coordenadas_relativas.json", relativeJSON)
	set, err := FileSource{Path: path, Decoder: DecoderFor(path)}.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if len(set.Entries) != 1 {
		t.Fatalf("Expected the out-of-range point to be dropped, got %d entries", len(set.Entries))
	}
	if set.Entries[0].AbsoluteAtCapture != (coords.Point{X: 400, Y: 300}) {
		t.Errorf("Unexpected absolute %+v", set.Entries[0].AbsoluteAtCapture)
	}
}

func TestRelativeFileThroughChain(t *testing.T) {
	path := writeFile(t, t.TempDir(), "coordenadas_relativas.json", relativeJSON)
	set, from, err := Load(context.Background(), Sources([]string{path}, nil, nil))
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if from != path {
		t.Errorf("Expected %s, got %s", path, from)
	}
	if len(set.Entries) != 1 || set.Entries[0].Value != "1" || set.Entries[0].Kind != coords.KindNumber {
		t.Errorf("Unexpected entries %+v", set.Entries)
	}
	if set.Geometry.Width != 800 || set.Geometry.Height != 600 {
		t.Errorf("Expected ventana geometry, got %s", set.Geometry)
	}
}

func TestRelativeListShape(t *testing.T) {
	path := writeFile(t, t.TempDir(), "coordenadas_relativas.json", relativeListJSON)
	set, err := FileSource{Path: path, Decoder: DecoderFor(path)}.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if len(set.Entries) != 1 || set.Entries[0].Method != coords.MethodImported {
		t.Errorf("Unexpected entries %+v", set.Entries)
	}
}

func TestFlatNeedsGeometry(t *testing.T) {
	path := writeFile(t, t.TempDir(), "clicks_fisicos.json", `[{"x": 500, "y": 500, "numero": 7}, {"x": 5, "y": 5, "numero": 8}]`)

	if _, err := (FileSource{Path: path, Decoder: Flat}).Load(context.Background()); !errors.Is(err, ErrMiss) {
		t.Errorf("Expected miss without geometry, got %v", err)
	}

	geom := func(context.Context) (coords.WindowGeometry, bool) { return testGeometry, true }
	set, err := FileSource{Path: path, Decoder: Flat, Geometry: geom}.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if len(set.Entries) != 1 {
		t.Fatalf("Expected click outside the window to be dropped, got %d", len(set.Entries))
	}
	e := set.Entries[0]
	if e.Relative != (coords.RelativePoint{X: 0.5, Y: 0.5}) || e.Value != "7" || e.Method != coords.MethodImported {
		t.Errorf("Unexpected flat entry %+v", e)
	}
}

func TestPurgeMethodKeepsOthers(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	s.Save(ctx, sampleSet(), "default")

	var asked string
	n, err := s.PurgeMethod(ctx, "default", coords.MethodHotkey, func(summary string) bool {
		asked = summary
		return true
	})
	if err != nil {
		t.Fatalf("PurgeMethod() failed: %v", err)
	}
	if n != 2 {
		t.Errorf("Expected 2 entries removed, got %d", n)
	}
	if !strings.Contains(asked, "2 HOTKEY") {
		t.Errorf("Unexpected confirmation summary %q", asked)
	}

	got, _ := s.Get(ctx, "default")
	if len(got.Entries) != 2 {
		t.Fatalf("Expected 2 remaining entries, got %d", len(got.Entries))
	}
	if got.Entries[0].Value != "17" || got.Entries[1].Value != "RED" || got.Entries[1].Method != coords.MethodManual {
		t.Errorf("Remaining entries changed: %+v", got.Entries)
	}
}

func TestPurgeAbortedLeavesSet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	s.Save(ctx, sampleSet(), "default")

	if _, err := s.PurgeMethod(ctx, "default", coords.MethodManual, func(string) bool { return false }); !errors.Is(err, ErrAborted) {
		t.Errorf("Expected ErrAborted, got %v", err)
	}
	if _, err := s.PurgeAll(ctx, "default", nil); !errors.Is(err, ErrAborted) {
		t.Errorf("Expected ErrAborted without a confirmer, got %v", err)
	}
	got, _ := s.Get(ctx, "default")
	if len(got.Entries) != 4 {
		t.Errorf("Expected set untouched, got %d entries", len(got.Entries))
	}

	n, err := s.PurgeAll(ctx, "default", func(string) bool { return true })
	if err != nil || n != 4 {
		t.Fatalf("PurgeAll() = %d, %v", n, err)
	}
	if _, err := s.Get(ctx, "default"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected set gone after PurgeAll, got %v", err)
	}
}

func TestExportImportsAsFlat(t *testing.T) {
	set := sampleSet()
	current := coords.WindowGeometry{Origin: coords.Point{X: 0, Y: 0}, Width: 1600, Height: 1200}

	var buf bytes.Buffer
	if err := Export(&buf, set, current); err != nil {
		t.Fatalf("Export() failed: %v", err)
	}

	path := writeFile(t, t.TempDir(), "clicks_fisicos.json", buf.String())
	geom := func(context.Context) (coords.WindowGeometry, bool) { return current, true }
	got, err := FileSource{Path: path, Decoder: DecoderFor(path), Geometry: geom}.Load(context.Background())
	if err != nil {
		t.Fatalf("Re-import failed: %v", err)
	}
	if len(got.Entries) != len(set.Entries) {
		t.Fatalf("Expected %d entries, got %d", len(set.Entries), len(got.Entries))
	}
	for i, e := range got.Entries {
		want := set.Entries[i]
		if math.Abs(e.Relative.X-want.Relative.X) > 1.0/1600 || math.Abs(e.Relative.Y-want.Relative.Y) > 1.0/1200 {
			t.Errorf("Entry %d relative %+v drifted from %+v", i, e.Relative, want.Relative)
		}
		if e.Value != want.Value {
			t.Errorf("Entry %d value %q, want %q", i, e.Value, want.Value)
		}
	}
	if got.Entries[1].Kind != coords.KindOuterBet {
		t.Errorf("Expected kind to survive export, got %s", got.Entries[1].Kind)
	}
}

func TestDetectDecoder(t *testing.T) {
	tests := []struct {
		data string
		want string
	}{
		{integratedJSON, "integrated"},
		{hybridJSON, "hybrid"},
		{relativeListJSON, "relative"},
		{`[{"x":1,"y":2}]`, "flat"},
		{`{"clicks":[]}`, "flat"},
		{`{"other":1}`, "unknown"},
	}
	for _, tt := range tests {
		if got := detectDecoder([]byte(tt.data)).Name; got != tt.want {
			t.Errorf("detectDecoder(%.20q) = %s, want %s", tt.data, got, tt.want)
		}
	}
}

func TestSaveLoadedSetUnderNewLabel(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Save(ctx, sampleSet(), "default"); err != nil {
		t.Fatal(err)
	}
	set, err := s.Get(ctx, "default")
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Save(ctx, set, "copy"); err != nil {
		t.Fatalf("Save() under a second label failed: %v", err)
	}
	// Saving again replaces only the copy
	if err := s.Save(ctx, set, "copy"); err != nil {
		t.Fatalf("Second save of copy failed: %v", err)
	}

	for _, label := range []string{"default", "copy"} {
		got, err := s.Get(ctx, label)
		if err != nil {
			t.Fatalf("Get(%s) failed: %v", label, err)
		}
		if len(got.Entries) != len(set.Entries) {
			t.Errorf("Expected %d entries in %s, got %d", len(set.Entries), label, len(got.Entries))
		}
	}
}

func TestForeignKeysOnEveryConnection(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "clicker.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	// No idle connections: every query opens a fresh one
	s.db.SetMaxIdleConns(0)
	for i := 0; i < 3; i++ {
		var on int
		if err := s.db.QueryRow("PRAGMA foreign_keys").Scan(&on); err != nil {
			t.Fatal(err)
		}
		if on != 1 {
			t.Fatalf("Expected foreign keys on connection %d, got %d", i+1, on)
		}
	}

	ctx := context.Background()
	if err := s.Save(ctx, sampleSet(), "default"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.PurgeAll(ctx, "default", func(string) bool { return true }); err != nil {
		t.Fatal(err)
	}
	var orphans int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM entries").Scan(&orphans); err != nil {
		t.Fatal(err)
	}
	if orphans != 0 {
		t.Errorf("Expected cascade to remove entries, %d left", orphans)
	}
}
