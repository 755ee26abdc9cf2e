package store

import (
	"encoding/json"
	"fmt"
	"io"
	"runtime"
	"time"

	"clicker/internal/coords"
)

// ExportVersion tags files written by Export
const ExportVersion = "2.0"

// ExportedClick is one click in the flat physical-clicks format
type ExportedClick struct {
	ID        string               `json:"id"`
	Type      string               `json:"type"`
	Name      string               `json:"name"`
	Value     string               `json:"value"`
	X         int                  `json:"x"`
	Y         int                  `json:"y"`
	Timestamp int64                `json:"timestamp"`
	Method    coords.Method        `json:"method"`
	Relative  coords.RelativePoint `json:"relative"`
}

// ExportMetadata describes an export
type ExportMetadata struct {
	CreatedAt   time.Time             `json:"created_at"`
	TotalClicks int                   `json:"total_clicks"`
	Label       string                `json:"label"`
	Window      coords.WindowGeometry `json:"window"`
	System      string                `json:"system"`
	Version     string                `json:"version"`
}

// ExportFile is the document written by Export
type ExportFile struct {
	Clicks   []ExportedClick `json:"clicks"`
	Metadata ExportMetadata  `json:"metadata"`
}

// Export writes set as absolute clicks computed at geometry g
func Export(w io.Writer, set coords.CoordinateSet, g coords.WindowGeometry) error {
	if g.Degenerate() {
		return fmt.Errorf("cannot export against degenerate geometry %s", g)
	}

	now := time.Now()
	doc := ExportFile{
		Clicks: make([]ExportedClick, 0, len(set.Entries)),
		Metadata: ExportMetadata{
			CreatedAt:   now,
			TotalClicks: len(set.Entries),
			Label:       set.Label,
			Window:      g,
			System:      runtime.GOOS,
			Version:     ExportVersion,
		},
	}
	for _, e := range set.Entries {
		abs := coords.ToAbsolute(e.Relative, g)
		prefix := "bet"
		if e.Kind == coords.KindNumber {
			prefix = "num"
		}
		doc.Clicks = append(doc.Clicks, ExportedClick{
			ID:        fmt.Sprintf("%s_%s", prefix, e.Value),
			Type:      string(e.Kind),
			Name:      e.Value,
			Value:     e.Value,
			X:         abs.X,
			Y:         abs.Y,
			Timestamp: now.UnixMilli(),
			Method:    e.Method,
			Relative:  e.Relative,
		})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	return nil
}
