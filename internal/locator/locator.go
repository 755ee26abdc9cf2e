// Package locator finds the target application window on screen.
package locator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"clicker/internal/coords"
	"clicker/internal/fault"
	"clicker/internal/platform"
)

// MinDimension filters minimized and degenerate windows
const MinDimension = 100

// Query lists the hints tried in order: process, title, class
type Query struct {
	ProcessHints []string
	TitleHints   []string
	ClassHints   []string
}

// Enumerator is the read-only part of the platform the locator needs
type Enumerator interface {
	Windows(ctx context.Context) ([]platform.WindowInfo, error)
	WindowByClass(ctx context.Context, class string) (platform.WindowInfo, bool, error)
}

// Locator resolves a Query to the geometry of a live window
type Locator struct {
	windows Enumerator
	timeout time.Duration
}

// New creates a locator; a zero timeout disables the bound
func New(windows Enumerator, timeout time.Duration) *Locator {
	return &Locator{windows: windows, timeout: timeout}
}

type result struct {
	geom     coords.WindowGeometry
	strategy string
	err      error
}

// Locate returns the first usable window matching q.
// Every failure, including an expired bound, is a retryable TargetNotFound.
func (l *Locator) Locate(ctx context.Context, q Query) (coords.WindowGeometry, error) {
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	done := make(chan result, 1)
	go func() {
		geom, strategy, err := l.locate(ctx, q)
		done <- result{geom: geom, strategy: strategy, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return coords.WindowGeometry{}, r.err
		}
		log.Printf("Locator: Found %q (%s) via %s: %v", r.geom.Title, r.geom.ProcessLabel, r.strategy, r.geom)
		return r.geom, nil
	case <-ctx.Done():
		return coords.WindowGeometry{}, fault.TargetNotFound("locate", "window query timed out", ctx.Err())
	}
}

func (l *Locator) locate(ctx context.Context, q Query) (coords.WindowGeometry, string, error) {
	windows, err := l.windows.Windows(ctx)
	if err != nil {
		return coords.WindowGeometry{}, "", fault.TargetNotFound("locate", "window enumeration failed", err)
	}

	for _, w := range windows {
		if usable(w) && platform.MatchesTarget(w.Process, "", q.ProcessHints, nil) {
			return w.Geometry(), "process name", nil
		}
	}

	for _, w := range windows {
		if usable(w) && platform.MatchesTarget("", w.Title, nil, q.TitleHints) {
			return w.Geometry(), "title hint", nil
		}
	}

	for _, class := range q.ClassHints {
		w, ok, err := l.windows.WindowByClass(ctx, class)
		if err != nil {
			log.Printf("Locator: Class lookup %q failed: %v", class, err)
			continue
		}
		if ok && usable(w) {
			return w.Geometry(), "window class " + class, nil
		}
	}

	return coords.WindowGeometry{}, "", fault.TargetNotFound("locate",
		fmt.Sprintf("no visible window larger than %dx%d matches the target hints", MinDimension, MinDimension), nil)
}

func usable(w platform.WindowInfo) bool {
	return w.Visible && !w.Minimized && w.Width > MinDimension && w.Height > MinDimension
}

// IsNotFound reports whether err means the target window is unavailable
func IsNotFound(err error) bool {
	return errors.Is(err, fault.ErrTargetNotFound)
}

// Change describes how the window differs from a previous geometry
type Change struct {
	Moved   bool
	Resized bool
}

// Compare reports position and size changes between two locates
func Compare(prev, cur coords.WindowGeometry) Change {
	return Change{
		Moved:   prev.Origin != cur.Origin,
		Resized: prev.Width != cur.Width || prev.Height != cur.Height,
	}
}
