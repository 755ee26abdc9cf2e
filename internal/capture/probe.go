package capture

import (
	"context"
	"log"
	"time"

	"clicker/internal/coords"
)

// Prober resolves the text of the element under an absolute screen point.
// An empty string means nothing was found.
type Prober interface {
	Probe(ctx context.Context, abs coords.Point, g coords.WindowGeometry) (string, error)
}

// Classifier maps probed text to an entry value and kind
type Classifier func(text string) (string, coords.Kind)

// NopProber never finds anything; every entry keeps its placeholder value
type NopProber struct{}

// Probe returns no text
func (NopProber) Probe(context.Context, coords.Point, coords.WindowGeometry) (string, error) {
	return "", nil
}

// RunProbe runs p for req, bounded by timeout. It always returns a result;
// failures and timeouts yield an empty value.
func RunProbe(ctx context.Context, p Prober, req ProbeRequest, timeout time.Duration, classify Classifier) ProbeResult {
	res := ProbeResult{Slot: req.Slot, Kind: coords.KindUnknown}
	if p == nil {
		return res
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		text string
		err  error
	}
	done := make(chan outcome, 1)
	go func() {
		text, err := p.Probe(ctx, req.Absolute, req.Geometry)
		done <- outcome{text, err}
	}()

	select {
	case o := <-done:
		if o.err != nil {
			log.Printf("Capture: Probe for entry %d failed: %v", req.Slot+1, o.err)
			return res
		}
		if o.text == "" {
			return res
		}
		if classify == nil {
			res.Value = o.text
			return res
		}
		res.Value, res.Kind = classify(o.text)
		return res
	case <-ctx.Done():
		log.Printf("Capture: Probe for entry %d timed out", req.Slot+1)
		return res
	}
}
