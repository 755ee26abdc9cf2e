// Package replay clicks a coordinate set against the target window as it is
// right now, with randomized pauses between clicks.
package replay

import (
	"context"
	"fmt"
	"log"
	"math/rand/v2"
	"time"

	"clicker/internal/coords"
	"clicker/internal/fault"
	"clicker/internal/locator"
	"clicker/internal/platform"
)

// Locator re-resolves the target window before a run
type Locator interface {
	Locate(ctx context.Context, q locator.Query) (coords.WindowGeometry, error)
}

// Clicker issues one click at an absolute screen point inside g
type Clicker interface {
	Click(ctx context.Context, p coords.Point, g coords.WindowGeometry) error
}

// Sleeper waits for d or until ctx ends
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// OSClicker clicks through the platform's synthetic input
type OSClicker struct {
	Platform platform.Platform
}

// Click moves the pointer to p and clicks
func (c OSClicker) Click(ctx context.Context, p coords.Point, _ coords.WindowGeometry) error {
	return c.Platform.Click(ctx, p)
}

type timerSleeper struct{}

func (timerSleeper) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ClickFailure records one click that could not be issued
type ClickFailure struct {
	Index  int
	Entry  coords.CoordinateEntry
	Target coords.Point
	Err    error
}

func (f ClickFailure) Error() string {
	return fmt.Sprintf("entry %d (%s) at %v: %v", f.Index+1, f.Entry.Value, f.Target, f.Err)
}

func (f ClickFailure) Unwrap() error {
	return f.Err
}

// Report summarizes a run
type Report struct {
	Successes int
	Failures  []ClickFailure
	Attempted int
	Elapsed   time.Duration
	Geometry  coords.WindowGeometry
	Cancelled bool
}

// ProgressKind identifies a progress notification
type ProgressKind int

const (
	ProgressCountdown ProgressKind = iota
	ProgressClicked
	ProgressFailed
)

// Progress is reported as the run advances
type Progress struct {
	Kind      ProgressKind
	Index     int
	Total     int
	Remaining int // countdown seconds left
	Entry     coords.CoordinateEntry
	Target    coords.Point
	Err       error
}

// Replayer replays coordinate sets
type Replayer struct {
	Locator  Locator
	Query    locator.Query
	Clicker  Clicker
	MinDelay time.Duration
	MaxDelay time.Duration
	// Countdown is the number of seconds waited before the first click
	Countdown int

	Sleeper    Sleeper
	Rand       *rand.Rand
	OnProgress func(Progress)
}

// Replay clicks every entry of set in order. A failed click is recorded and
// the run continues. Cancelling ctx stops new clicks; a click already issued
// completes.
func (r *Replayer) Replay(ctx context.Context, set coords.CoordinateSet) (Report, error) {
	start := time.Now()
	var report Report

	g, err := r.Locator.Locate(ctx, r.Query)
	if err != nil {
		return report, err
	}
	if g.Degenerate() {
		return report, fault.TargetNotFound("replay", fmt.Sprintf("window geometry %s is unusable", g), nil)
	}
	report.Geometry = g
	log.Printf("Replay: %d entries against %s", len(set.Entries), g)

	for i := r.Countdown; i > 0; i-- {
		r.progress(Progress{Kind: ProgressCountdown, Remaining: i, Total: len(set.Entries)})
		if err := r.sleeper().Sleep(ctx, time.Second); err != nil {
			report.Cancelled = true
			report.Elapsed = time.Since(start)
			return report, nil
		}
	}

	clickCtx := context.WithoutCancel(ctx)
	for i, e := range set.Entries {
		if ctx.Err() != nil {
			report.Cancelled = true
			break
		}

		target := coords.ToAbsolute(e.Relative, g)
		report.Attempted++
		if err := r.Clicker.Click(clickCtx, target, g); err != nil {
			failure := ClickFailure{
				Index:  i,
				Entry:  e,
				Target: target,
				Err:    fault.ReplayClick("click", fmt.Sprintf("entry %d (%s) at %v", i+1, e.Value, target), err),
			}
			report.Failures = append(report.Failures, failure)
			log.Printf("Replay: Click %d/%d failed: %v", i+1, len(set.Entries), err)
			r.progress(Progress{Kind: ProgressFailed, Index: i, Total: len(set.Entries), Entry: e, Target: target, Err: failure.Err})
		} else {
			report.Successes++
			r.progress(Progress{Kind: ProgressClicked, Index: i, Total: len(set.Entries), Entry: e, Target: target})
		}

		if i == len(set.Entries)-1 {
			break
		}
		if err := r.sleeper().Sleep(ctx, r.delay()); err != nil {
			report.Cancelled = true
			break
		}
	}

	report.Elapsed = time.Since(start)
	log.Printf("Replay: %d/%d clicks succeeded in %v", report.Successes, report.Attempted, report.Elapsed.Round(time.Millisecond))
	return report, nil
}

// delay draws a pause uniformly from [MinDelay, MaxDelay]
func (r *Replayer) delay() time.Duration {
	lo, hi := r.MinDelay, r.MaxDelay
	if hi < lo {
		lo, hi = hi, lo
	}
	if hi == lo {
		return lo
	}
	n := int64(hi-lo) + 1
	if r.Rand != nil {
		return lo + time.Duration(r.Rand.Int64N(n))
	}
	return lo + time.Duration(rand.Int64N(n))
}

func (r *Replayer) sleeper() Sleeper {
	if r.Sleeper == nil {
		return timerSleeper{}
	}
	return r.Sleeper
}

func (r *Replayer) progress(p Progress) {
	if r.OnProgress != nil {
		r.OnProgress(p)
	}
}

// Target is a computed click position
type Target struct {
	Index    int
	Entry    coords.CoordinateEntry
	Point    coords.Point
	InWindow bool
}

// Verify computes where every entry would be clicked at geometry g, without clicking
func Verify(set coords.CoordinateSet, g coords.WindowGeometry) []Target {
	out := make([]Target, 0, len(set.Entries))
	for i, e := range set.Entries {
		p := coords.ToAbsolute(e.Relative, g)
		out = append(out, Target{Index: i, Entry: e, Point: p, InWindow: g.Contains(p)})
	}
	return out
}
