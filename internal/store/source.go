package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"clicker/internal/coords"
	"clicker/internal/fault"
)

// ErrMiss is returned by a source that has nothing to offer
var ErrMiss = errors.New("source has no coordinate set")

// ErrNoSource is returned when every source in a chain missed or failed
var ErrNoSource = errors.New("no coordinate source available")

// Source supplies a coordinate set.
// Load returns ErrMiss when absent and a fault.ErrParse error when corrupt.
type Source interface {
	Name() string
	Load(ctx context.Context) (coords.CoordinateSet, error)
}

// Load tries sources in order and returns the first set loaded along with
// the name of the source that supplied it. Sets are never merged.
func Load(ctx context.Context, sources []Source) (coords.CoordinateSet, string, error) {
	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return coords.CoordinateSet{}, "", err
		}
		set, err := src.Load(ctx)
		switch {
		case err == nil:
			log.Printf("Store: Loaded %d entries from %s", len(set.Entries), src.Name())
			return set, src.Name(), nil
		case errors.Is(err, ErrMiss):
			continue
		case errors.Is(err, fault.ErrParse):
			log.Printf("Store: Skipping %s: %v", src.Name(), err)
			continue
		default:
			log.Printf("Store: Skipping %s after error: %v", src.Name(), err)
			continue
		}
	}
	return coords.CoordinateSet{}, "", ErrNoSource
}

// DBSource loads a labelled set from the database
type DBSource struct {
	Store *Store
	Label string
}

func (d DBSource) Name() string { return "db:" + d.Label }

func (d DBSource) Load(ctx context.Context) (coords.CoordinateSet, error) {
	if d.Store == nil {
		return coords.CoordinateSet{}, ErrMiss
	}
	set, err := d.Store.Get(ctx, d.Label)
	if errors.Is(err, ErrNotFound) {
		return coords.CoordinateSet{}, ErrMiss
	}
	if err != nil {
		return coords.CoordinateSet{}, err
	}
	if len(set.Entries) == 0 {
		return coords.CoordinateSet{}, ErrMiss
	}
	return set, nil
}

// GeometryFunc supplies the current window geometry to decoders that need it.
// It reports false when the window cannot be located.
type GeometryFunc func(ctx context.Context) (coords.WindowGeometry, bool)

// FileSource loads a JSON export with a format decoder
type FileSource struct {
	Path     string
	Decoder  Decoder
	Geometry GeometryFunc
}

func (f FileSource) Name() string { return f.Path }

func (f FileSource) Load(ctx context.Context) (coords.CoordinateSet, error) {
	data, err := os.ReadFile(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return coords.CoordinateSet{}, ErrMiss
	}
	if err != nil {
		return coords.CoordinateSet{}, fmt.Errorf("failed to read %s: %w", f.Path, err)
	}

	dec := f.Decoder
	if dec.Decode == nil {
		dec = detectDecoder(data)
	}
	set, err := dec.Decode(ctx, data, f.Geometry)
	if err != nil {
		return coords.CoordinateSet{}, err
	}
	if set.Label == "" {
		set.Label = strings.TrimSuffix(filepath.Base(f.Path), filepath.Ext(f.Path))
	}
	return set, nil
}

// Sources builds a chain from configured specs. "db:<label>" names a stored
// set; anything else is a file path whose decoder is picked by file name,
// falling back to content sniffing.
func Sources(specs []string, st *Store, geom GeometryFunc) []Source {
	out := make([]Source, 0, len(specs))
	for _, spec := range specs {
		if label, ok := strings.CutPrefix(spec, "db:"); ok {
			out = append(out, DBSource{Store: st, Label: label})
			continue
		}
		out = append(out, FileSource{Path: spec, Decoder: DecoderFor(spec), Geometry: geom})
	}
	return out
}
