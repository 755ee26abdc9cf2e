package replay

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"
	"time"

	"clicker/internal/coords"
	"clicker/internal/fault"
	"clicker/internal/locator"
	"clicker/internal/platform/platformtest"
)

type fixedLocator struct {
	geom  coords.WindowGeometry
	err   error
	calls int
}

func (l *fixedLocator) Locate(ctx context.Context, q locator.Query) (coords.WindowGeometry, error) {
	l.calls++
	return l.geom, l.err
}

// recordingSleeper records requested pauses and cancels after a number of calls
type recordingSleeper struct {
	slept       []time.Duration
	cancelAfter int
	cancel      context.CancelFunc
}

func (s *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.slept = append(s.slept, d)
	if s.cancel != nil && len(s.slept) == s.cancelAfter {
		s.cancel()
	}
	return ctx.Err()
}

var current = coords.WindowGeometry{Origin: coords.Point{X: 50, Y: 60}, Width: 1000, Height: 800}

func fiveEntries() coords.CoordinateSet {
	set := coords.CoordinateSet{Label: "default"}
	for i, rel := range []coords.RelativePoint{{X: 0.1, Y: 0.1}, {X: 0.2, Y: 0.3}, {X: 0.5, Y: 0.5}, {X: 0.8, Y: 0.9}, {X: 1, Y: 1}} {
		set.Entries = append(set.Entries, coords.CoordinateEntry{
			ID:       string(rune('a' + i)),
			Value:    string(rune('1' + i)),
			Relative: rel,
			Method:   coords.MethodManual,
		})
	}
	return set
}

func TestReplayContinuesAfterFailure(t *testing.T) {
	fake := &platformtest.Fake{
		ClickErr: func(call int, p coords.Point) error {
			if call == 3 {
				return errors.New("SendInput blocked")
			}
			return nil
		},
	}
	sleeper := &recordingSleeper{}
	r := &Replayer{
		Locator:  &fixedLocator{geom: current},
		Clicker:  OSClicker{Platform: fake},
		MinDelay: 500 * time.Millisecond,
		MaxDelay: 1300 * time.Millisecond,
		Sleeper:  sleeper,
		Rand:     rand.New(rand.NewPCG(1, 2)),
	}

	report, err := r.Replay(context.Background(), fiveEntries())
	if err != nil {
		t.Fatalf("Replay() failed: %v", err)
	}
	if report.Successes != 4 || len(report.Failures) != 1 || report.Attempted != 5 {
		t.Fatalf("Expected 4 successes and 1 failure, got %+v", report)
	}
	f := report.Failures[0]
	if f.Index != 2 {
		t.Errorf("Expected the 3rd entry to fail, got index %d", f.Index)
	}
	if !errors.Is(f.Err, fault.ErrReplayClick) {
		t.Errorf("Expected ErrReplayClick, got %v", f.Err)
	}
	if fake.ClickCount() != 5 {
		t.Errorf("Expected 5 clicks issued, got %d", fake.ClickCount())
	}

	// (0.5,0.5) in 1000x800 at (50,60)
	if fake.Clicks[2] != (coords.Point{X: 550, Y: 460}) {
		t.Errorf("Unexpected target %v", fake.Clicks[2])
	}
	if fake.Clicks[4] != (coords.Point{X: 1050, Y: 860}) {
		t.Errorf("Unexpected target %v", fake.Clicks[4])
	}
	if report.Geometry != current {
		t.Errorf("Expected report geometry %v, got %v", current, report.Geometry)
	}
}

func TestReplayDelayBounds(t *testing.T) {
	sleeper := &recordingSleeper{}
	set := coords.CoordinateSet{}
	for i := 0; i < 200; i++ {
		set.Entries = append(set.Entries, coords.CoordinateEntry{Relative: coords.RelativePoint{X: 0.5, Y: 0.5}})
	}
	r := &Replayer{
		Locator:  &fixedLocator{geom: current},
		Clicker:  OSClicker{Platform: &platformtest.Fake{}},
		MinDelay: 500 * time.Millisecond,
		MaxDelay: 1300 * time.Millisecond,
		Sleeper:  sleeper,
		Rand:     rand.New(rand.NewPCG(7, 7)),
	}
	if _, err := r.Replay(context.Background(), set); err != nil {
		t.Fatal(err)
	}
	if len(sleeper.slept) != 199 {
		t.Fatalf("Expected a pause between each pair of clicks, got %d", len(sleeper.slept))
	}
	for _, d := range sleeper.slept {
		if d < 500*time.Millisecond || d > 1300*time.Millisecond {
			t.Errorf("Delay %v outside [500ms, 1300ms]", d)
		}
	}
}

func TestReplayLocateFailureClicksNothing(t *testing.T) {
	fake := &platformtest.Fake{}
	r := &Replayer{
		Locator: &fixedLocator{err: fault.TargetNotFound("locate", "no window", nil)},
		Clicker: OSClicker{Platform: fake},
		Sleeper: &recordingSleeper{},
	}
	_, err := r.Replay(context.Background(), fiveEntries())
	if !errors.Is(err, fault.ErrTargetNotFound) {
		t.Fatalf("Expected ErrTargetNotFound, got %v", err)
	}
	if fake.ClickCount() != 0 {
		t.Errorf("Expected no clicks, got %d", fake.ClickCount())
	}
}

func TestReplayCancellationStopsNewClicks(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fake := &platformtest.Fake{}
	sleeper := &recordingSleeper{cancelAfter: 2, cancel: cancel}
	r := &Replayer{
		Locator:  &fixedLocator{geom: current},
		Clicker:  OSClicker{Platform: fake},
		MinDelay: time.Millisecond,
		MaxDelay: time.Millisecond,
		Sleeper:  sleeper,
	}

	report, err := r.Replay(ctx, fiveEntries())
	if err != nil {
		t.Fatal(err)
	}
	if !report.Cancelled {
		t.Error("Expected report to be marked cancelled")
	}
	if fake.ClickCount() != 2 || report.Attempted != 2 {
		t.Errorf("Expected 2 clicks before cancellation, got %d (attempted %d)", fake.ClickCount(), report.Attempted)
	}
}

type ctxCheckingClicker struct {
	sawCancelled bool
	cancel       context.CancelFunc
}

func (c *ctxCheckingClicker) Click(ctx context.Context, p coords.Point, g coords.WindowGeometry) error {
	c.cancel()
	if ctx.Err() != nil {
		c.sawCancelled = true
	}
	return nil
}

func TestInFlightClickCompletes(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clicker := &ctxCheckingClicker{cancel: cancel}
	r := &Replayer{Locator: &fixedLocator{geom: current}, Clicker: clicker, Sleeper: &recordingSleeper{}}
	report, _ := r.Replay(ctx, fiveEntries())

	if clicker.sawCancelled {
		t.Error("Click context must not be cancelled with the run")
	}
	if report.Successes != 1 || !report.Cancelled {
		t.Errorf("Expected one completed click then cancellation, got %+v", report)
	}
}

func TestCountdown(t *testing.T) {
	sleeper := &recordingSleeper{}
	var countdown []int
	r := &Replayer{
		Locator:   &fixedLocator{geom: current},
		Clicker:   OSClicker{Platform: &platformtest.Fake{}},
		Countdown: 3,
		Sleeper:   sleeper,
		OnProgress: func(p Progress) {
			if p.Kind == ProgressCountdown {
				countdown = append(countdown, p.Remaining)
			}
		},
	}
	set := fiveEntries()
	set.Entries = set.Entries[:1]
	if _, err := r.Replay(context.Background(), set); err != nil {
		t.Fatal(err)
	}
	if len(countdown) != 3 || countdown[0] != 3 || countdown[2] != 1 {
		t.Errorf("Unexpected countdown %v", countdown)
	}
	if len(sleeper.slept) != 3 || sleeper.slept[0] != time.Second {
		t.Errorf("Expected three 1s countdown pauses, got %v", sleeper.slept)
	}
}

func TestVerify(t *testing.T) {
	set := fiveEntries()
	set.Entries = append(set.Entries, coords.CoordinateEntry{Relative: coords.RelativePoint{X: 1.5, Y: 0.5}})

	targets := Verify(set, current)
	if len(targets) != 6 {
		t.Fatalf("Expected 6 targets, got %d", len(targets))
	}
	if targets[0].Point != (coords.Point{X: 150, Y: 140}) || !targets[0].InWindow {
		t.Errorf("Unexpected first target %+v", targets[0])
	}
	if targets[5].InWindow {
		t.Error("Expected out-of-range point to be flagged")
	}
}
