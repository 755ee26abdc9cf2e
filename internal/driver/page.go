package driver

import (
	"context"
	"fmt"
	"strings"

	"clicker/internal/coords"
)

// ViewportPoint maps an absolute screen point inside g onto a viewport of w x h
func ViewportPoint(abs coords.Point, g coords.WindowGeometry, w, h int) (float64, float64, bool) {
	if w <= 0 || h <= 0 {
		return 0, 0, false
	}
	rel, ok := coords.Relativize(abs, g)
	if !ok {
		return 0, 0, false
	}
	return rel.X * float64(w), rel.Y * float64(h), true
}

const probeScript = `(() => {
  const el = document.elementFromPoint(%f, %f);
  if (!el) return "";
  const text = el.getAttribute("data-value") || el.getAttribute("aria-label") || el.innerText || el.textContent || "";
  return text.trim().slice(0, 40);
})()`

// ElementProbe reads the text of the element under a point
type ElementProbe struct {
	Driver *Driver
}

// Probe returns the trimmed text of the element at the viewport position of abs
func (p ElementProbe) Probe(ctx context.Context, abs coords.Point, g coords.WindowGeometry) (string, error) {
	w, h := p.Driver.Viewport()
	x, y, ok := ViewportPoint(abs, g, w, h)
	if !ok {
		return "", nil
	}
	var text string
	if err := p.Driver.Evaluate(ctx, fmt.Sprintf(probeScript, x, y), &text); err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// BrowserClicker clicks inside the automation viewport instead of the OS pointer
type BrowserClicker struct {
	Driver *Driver
}

// Click maps p from window space to the viewport and dispatches a click there
func (c BrowserClicker) Click(ctx context.Context, p coords.Point, g coords.WindowGeometry) error {
	w, h := c.Driver.Viewport()
	x, y, ok := ViewportPoint(p, g, w, h)
	if !ok {
		return fmt.Errorf("point %v lies outside the window %s", p, g)
	}
	return c.Driver.Click(ctx, x, y)
}

// Element is a page element found by QueryElements, in viewport pixels
type Element struct {
	Text   string  `json:"text"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Center returns the element's center
func (e Element) Center() (float64, float64) {
	return e.X + e.Width/2, e.Y + e.Height/2
}

const queryScript = `(() => {
  const seen = new Set();
  const out = [];
  for (const sel of %s) {
    for (const el of document.querySelectorAll(sel)) {
      if (seen.has(el)) continue;
      seen.add(el);
      const r = el.getBoundingClientRect();
      if (r.width < 5 || r.height < 5) continue;
      const text = (el.getAttribute("data-value") || el.getAttribute("aria-label") || el.innerText || "").trim();
      if (!text) continue;
      out.push({text: text.slice(0, 40), x: r.left, y: r.top, width: r.width, height: r.height});
    }
  }
  return out;
})()`

// QueryElements returns visible elements matching any of the CSS selectors
func (d *Driver) QueryElements(ctx context.Context, selectors []string) ([]Element, error) {
	quoted := make([]string, len(selectors))
	for i, s := range selectors {
		quoted[i] = fmt.Sprintf("%q", s)
	}
	var out []Element
	if err := d.Evaluate(ctx, fmt.Sprintf(queryScript, "["+strings.Join(quoted, ",")+"]"), &out); err != nil {
		return nil, err
	}
	return out, nil
}
