package detect

import (
	"context"
	"fmt"
	"log"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"

	"clicker/internal/coords"
	"clicker/internal/driver"
)

// MinElements is the number of recognised elements below which the
// simulated layout is used instead
const MinElements = 10

// Selectors are the CSS selectors tried against the page
var Selectors = []string{
	".roulette-number",
	".number-cell",
	".betting-spot",
	".bet-spot",
	"[data-number]",
	".number-spot",
	".numberContainer",
	".betspot",
	".roulette-grid-number",
	".roulette-grid .cell",
	"[class*=\"number\"]",
	"[class*=\"bet\"]",
	"[class*=\"spot\"]",
	".lr-number",
	".lr-bet-spot",
}

// Page is the part of the automation driver detection needs
type Page interface {
	QueryElements(ctx context.Context, selectors []string) ([]driver.Element, error)
	Viewport() (int, int)
}

// Result is the outcome of a detection pass
type Result struct {
	Entries   []coords.CoordinateEntry
	Found     int
	Simulated bool
	Viewport  coords.WindowGeometry
}

// Detect queries the page for betting-grid elements. When fewer than
// MinElements are recognised the simulated layout is returned instead.
func Detect(ctx context.Context, page Page) (Result, error) {
	w, h := page.Viewport()
	if w <= 0 || h <= 0 {
		return Result{}, fmt.Errorf("viewport %dx%d is not usable; open a page first", w, h)
	}
	vp := coords.WindowGeometry{Width: w, Height: h, ProcessLabel: "viewport"}

	elements, err := page.QueryElements(ctx, Selectors)
	if err != nil {
		return Result{}, fmt.Errorf("failed to query page elements: %w", err)
	}

	now := time.Now()
	seen := make(map[string]bool)
	var entries []coords.CoordinateEntry
	for _, el := range elements {
		value, kind := ClassifyValue(el.Text)
		if kind == coords.KindUnknown || seen[value] {
			continue
		}
		cx, cy := el.Center()
		abs := coords.Point{X: int(math.Round(cx)), Y: int(math.Round(cy))}
		if !vp.Contains(abs) {
			continue
		}
		seen[value] = true
		entries = append(entries, coords.NewEntry(value, kind, abs, vp, coords.MethodDetected, now))
	}

	if len(entries) < MinElements {
		log.Printf("Detect: Only %d elements recognised, using simulated layout", len(entries))
		return Result{Entries: Simulated(vp, now), Found: len(entries), Simulated: true, Viewport: vp}, nil
	}
	log.Printf("Detect: Recognised %d elements", len(entries))
	return Result{Entries: entries, Found: len(entries), Viewport: vp}, nil
}

// Set wraps a detection result as a coordinate set captured against the viewport
func Set(res Result, label string) coords.CoordinateSet {
	return coords.CoordinateSet{
		Label:    label,
		Entries:  res.Entries,
		Geometry: res.Viewport,
		SavedAt:  time.Now(),
	}
}

// Reference layout, in pixels of a 1280x720 viewport
const (
	refWidth   = 1280.0
	refHeight  = 720.0
	gridX      = 120.0
	gridY      = 180.0
	cellWidth  = 85.0
	cellHeight = 38.0
)

// Simulated returns the standard table layout expressed relative to vp:
// a 3x12 number grid, the zero cell and the outer bets.
func Simulated(vp coords.WindowGeometry, at time.Time) []coords.CoordinateEntry {
	var out []coords.CoordinateEntry
	add := func(value string, kind coords.Kind, x, y float64) {
		rel := coords.RelativePoint{X: x / refWidth, Y: y / refHeight}
		out = append(out, coords.CoordinateEntry{
			ID:                uuid.New().String(),
			Value:             value,
			Kind:              kind,
			Relative:          rel,
			AbsoluteAtCapture: coords.ToAbsolute(rel, vp),
			Method:            coords.MethodDetected,
			CapturedAt:        at,
		})
	}

	// Top row 3..36, middle 2..35, bottom 1..34
	for col := 0; col < 12; col++ {
		for row := 0; row < 3; row++ {
			n := col*3 + (3 - row)
			x := gridX + float64(col)*cellWidth + (cellWidth-5)/2
			y := gridY + float64(row)*cellHeight + (cellHeight-5)/2
			add(strconv.Itoa(n), coords.KindNumber, x, y)
		}
	}
	add("0", coords.KindNumber, gridX-60+25, gridY+cellHeight+(cellHeight*3-10)/2)

	right := gridX + 12*cellWidth
	below := gridY + 3*cellHeight + 10
	for _, bet := range []struct {
		value string
		x, y  float64
	}{
		{Red, right + 20, gridY},
		{Black, right + 20, gridY + cellHeight},
		{Even, right + 20, gridY + 2*cellHeight},
		{Odd, right + 100, gridY},
		{FirstDoz, gridX + 4*cellWidth - 40, below},
		{SecondDoz, gridX + 8*cellWidth - 40, below},
		{ThirdDoz, gridX + 12*cellWidth - 40, below},
	} {
		add(bet.value, coords.KindOuterBet, bet.x+40, bet.y+17)
	}
	return out
}
