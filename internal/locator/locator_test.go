package locator

import (
	"context"
	"errors"
	"testing"
	"time"

	"clicker/internal/coords"
	"clicker/internal/fault"
	"clicker/internal/platform"
	"clicker/internal/platform/platformtest"
)

var query = Query{
	ProcessHints: []string{"firefox"},
	TitleHints:   []string{"lightning roulette"},
	ClassHints:   []string{"MozillaWindowClass"},
}

func window(process, title string, w, h int) platform.WindowInfo {
	return platform.WindowInfo{Process: process, Title: title, Visible: true, X: 10, Y: 20, Width: w, Height: h}
}

func TestLocateByProcess(t *testing.T) {
	fake := &platformtest.Fake{WindowList: []platform.WindowInfo{
		window("chrome", "Lightning Roulette - Chrome", 1200, 800),
		window("firefox", "Mozilla Firefox", 1280, 720),
	}}

	g, err := New(fake, time.Second).Locate(context.Background(), query)
	if err != nil {
		t.Fatalf("Locate() failed: %v", err)
	}
	if g.ProcessLabel != "firefox" || g.Width != 1280 {
		t.Errorf("Expected process match to win over title match, got %+v", g)
	}
}

func TestLocateFallsBackToTitle(t *testing.T) {
	fake := &platformtest.Fake{WindowList: []platform.WindowInfo{
		window("explorer", "Downloads", 800, 600),
		window("chrome", "Lightning Roulette - Chrome", 1200, 800),
	}}

	g, err := New(fake, time.Second).Locate(context.Background(), query)
	if err != nil {
		t.Fatalf("Locate() failed: %v", err)
	}
	if g.ProcessLabel != "chrome" {
		t.Errorf("Expected title match, got %+v", g)
	}
}

func TestLocateFallsBackToClass(t *testing.T) {
	fake := &platformtest.Fake{
		Classes: map[string]platform.WindowInfo{
			"MozillaWindowClass": window("", "", 1024, 768),
		},
	}

	g, err := New(fake, time.Second).Locate(context.Background(), query)
	if err != nil {
		t.Fatalf("Locate() failed: %v", err)
	}
	if g.Width != 1024 || g.Height != 768 {
		t.Errorf("Expected class match geometry, got %+v", g)
	}
}

func TestLocateSkipsUnusableWindows(t *testing.T) {
	minimized := window("firefox", "Firefox", 1280, 720)
	minimized.Minimized = true
	hidden := window("firefox", "Firefox", 1280, 720)
	hidden.Visible = false

	fake := &platformtest.Fake{WindowList: []platform.WindowInfo{
		minimized,
		hidden,
		window("firefox", "Firefox", 100, 720),
		window("firefox", "Firefox", 640, 90),
	}}

	_, err := New(fake, time.Second).Locate(context.Background(), query)
	if !errors.Is(err, fault.ErrTargetNotFound) {
		t.Fatalf("Expected ErrTargetNotFound, got %v", err)
	}
	if !IsNotFound(err) {
		t.Error("Expected IsNotFound to recognise the error")
	}
	if fault.Remediation(err) == "" {
		t.Error("Expected a remediation hint")
	}
}

func TestLocateEnumerationError(t *testing.T) {
	fake := &platformtest.Fake{EnumErr: errors.New("access denied")}
	_, err := New(fake, time.Second).Locate(context.Background(), query)
	if !IsNotFound(err) {
		t.Errorf("Expected enumeration failure to be retryable NotFound, got %v", err)
	}
}

type slowEnumerator struct{}

func (slowEnumerator) Windows(ctx context.Context) ([]platform.WindowInfo, error) {
	time.Sleep(500 * time.Millisecond)
	return nil, nil
}

func (slowEnumerator) WindowByClass(ctx context.Context, class string) (platform.WindowInfo, bool, error) {
	return platform.WindowInfo{}, false, nil
}

func TestLocateTimeout(t *testing.T) {
	start := time.Now()
	_, err := New(slowEnumerator{}, 50*time.Millisecond).Locate(context.Background(), query)
	if !IsNotFound(err) {
		t.Fatalf("Expected timeout to surface as NotFound, got %v", err)
	}
	if time.Since(start) > 400*time.Millisecond {
		t.Errorf("Expected Locate to return at the bound, took %v", time.Since(start))
	}
}

func TestCompare(t *testing.T) {
	prev := coords.WindowGeometry{Origin: coords.Point{X: 0, Y: 0}, Width: 800, Height: 600}

	tests := []struct {
		name string
		cur  coords.WindowGeometry
		want Change
	}{
		{"same", prev, Change{}},
		{"moved", coords.WindowGeometry{Origin: coords.Point{X: 5, Y: 0}, Width: 800, Height: 600}, Change{Moved: true}},
		{"resized", coords.WindowGeometry{Width: 1024, Height: 600}, Change{Resized: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Compare(prev, tt.cur); got != tt.want {
				t.Errorf("Compare() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
