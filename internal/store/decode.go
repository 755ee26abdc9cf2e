package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"clicker/internal/coords"
	"clicker/internal/fault"
)

// Decoder turns one historical JSON export shape into a coordinate set
type Decoder struct {
	Name   string
	Decode func(ctx context.Context, data []byte, geom GeometryFunc) (coords.CoordinateSet, error)
}

var (
	// Integrated reads exports of the browser-integrated detector
	Integrated = Decoder{Name: "integrated", Decode: decodeIntegrated}

	// Hybrid reads merged automatic + manual exports
	Hybrid = Decoder{Name: "hybrid", Decode: decodeHybrid}

	// Relative reads plain fractional coordinate lists
	Relative = Decoder{Name: "relative", Decode: decodeRelative}

	// Flat reads absolute physical-click recordings; it needs the current geometry
	Flat = Decoder{Name: "flat", Decode: decodeFlat}
)

// Decoders lists every decoder, newest format first
var Decoders = []Decoder{Integrated, Hybrid, Relative, Flat}

// DecoderFor picks a decoder from a well-known export file name.
// Unknown names return the zero Decoder, which sniffs the content.
func DecoderFor(path string) Decoder {
	name := strings.ToLower(filepath.Base(path))
	switch {
	case strings.Contains(name, "integrado"):
		return Integrated
	case strings.Contains(name, "hibridas"), strings.Contains(name, "adaptativas"):
		return Hybrid
	case strings.Contains(name, "relativas"):
		return Relative
	case strings.HasPrefix(name, "clicks_fisicos"):
		return Flat
	}
	return Decoder{}
}

// detectDecoder sniffs the top-level keys of data
func detectDecoder(data []byte) Decoder {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		return Flat
	}
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &keys); err != nil {
		return Decoder{Name: "unknown", Decode: func(context.Context, []byte, GeometryFunc) (coords.CoordinateSet, error) {
			return coords.CoordinateSet{}, fault.Parse("decode", "not a JSON object or array", err)
		}}
	}
	switch {
	case keys["dimensiones"] != nil && keys["elementos"] != nil:
		return Integrated
	case keys["elementos"] != nil:
		return Hybrid
	case keys["coordenadas"] != nil:
		return Relative
	case keys["clicks"] != nil:
		return Flat
	}
	return Decoder{Name: "unknown", Decode: func(context.Context, []byte, GeometryFunc) (coords.CoordinateSet, error) {
		return coords.CoordinateSet{}, fault.Parse("decode", "unrecognised export shape", nil)
	}}
}

type legacyWindow struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

func (w legacyWindow) geometry() coords.WindowGeometry {
	return coords.WindowGeometry{Origin: coords.Point{X: w.X, Y: w.Y}, Width: w.Width, Height: w.Height}
}

type legacyPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type legacyElement struct {
	Valor       json.RawMessage `json:"valor"`
	Texto       string          `json:"texto"`
	Tipo        string          `json:"tipo"`
	Metodo      string          `json:"metodo"`
	Coordenadas struct {
		Relativas *legacyPoint `json:"relativas"`
		Absolutas *legacyPoint `json:"absolutas"`
	} `json:"coordenadas"`
}

type integratedFile struct {
	Timestamp   string `json:"timestamp"`
	Dimensiones *struct {
		Width  int `json:"width"`
		Height int `json:"height"`
	} `json:"dimensiones"`
	Ventana   *legacyWindow   `json:"ventana"`
	Elementos []legacyElement `json:"elementos"`
}

func decodeIntegrated(ctx context.Context, data []byte, _ GeometryFunc) (coords.CoordinateSet, error) {
	var f integratedFile
	if err := json.Unmarshal(data, &f); err != nil {
		return coords.CoordinateSet{}, fault.Parse("decode integrated", "invalid JSON", err)
	}

	var g coords.WindowGeometry
	switch {
	case f.Ventana != nil:
		g = f.Ventana.geometry()
	case f.Dimensiones != nil:
		g = coords.WindowGeometry{Width: f.Dimensiones.Width, Height: f.Dimensiones.Height}
	default:
		return coords.CoordinateSet{}, fault.Parse("decode integrated", "missing dimensiones", nil)
	}
	return buildFromElements("integrated", f.Elementos, g, parseTimestamp(f.Timestamp), coords.MethodDetected)
}

type hybridFile struct {
	Timestamp string          `json:"timestamp"`
	Ventana   *legacyWindow   `json:"ventana"`
	Elementos []legacyElement `json:"elementos"`
}

func decodeHybrid(ctx context.Context, data []byte, _ GeometryFunc) (coords.CoordinateSet, error) {
	var f hybridFile
	if err := json.Unmarshal(data, &f); err != nil {
		return coords.CoordinateSet{}, fault.Parse("decode hybrid", "invalid JSON", err)
	}
	if f.Ventana == nil {
		return coords.CoordinateSet{}, fault.Parse("decode hybrid", "missing ventana", nil)
	}
	return buildFromElements("hybrid", f.Elementos, f.Ventana.geometry(), parseTimestamp(f.Timestamp), coords.MethodImported)
}

func buildFromElements(format string, elems []legacyElement, g coords.WindowGeometry, at time.Time, fallback coords.Method) (coords.CoordinateSet, error) {
	if len(elems) == 0 {
		return coords.CoordinateSet{}, fault.Parse("decode "+format, "no elementos", nil)
	}

	set := coords.CoordinateSet{Geometry: g, SavedAt: at}
	skipped := 0
	for _, el := range elems {
		rel := el.Coordenadas.Relativas
		if rel == nil {
			skipped++
			continue
		}
		e := coords.CoordinateEntry{
			ID:         uuid.New().String(),
			Value:      valueText(el.Valor),
			Relative:   coords.RelativePoint{X: rel.X, Y: rel.Y},
			Method:     legacyMethod(el.Metodo, fallback),
			CapturedAt: at,
		}
		if e.Value == "" {
			e.Value = el.Texto
		}
		e.Kind = legacyKind(el.Tipo, e.Value)
		if abs := el.Coordenadas.Absolutas; abs != nil {
			e.AbsoluteAtCapture = coords.Point{X: int(math.Round(abs.X)), Y: int(math.Round(abs.Y))}
		} else if !g.Degenerate() {
			e.AbsoluteAtCapture = coords.ToAbsolute(e.Relative, g)
		}
		if !e.Relative.Valid() {
			skipped++
			continue
		}
		set.Entries = append(set.Entries, e)
	}
	return finish(format, set, skipped)
}

type relativeFile struct {
	Timestamp string          `json:"timestamp"`
	Ventana   *legacyWindow   `json:"ventana"`
	Elementos []legacyElement `json:"elementos"`
	// Coordenadas is the older flat-list shape of the same file
	Coordenadas []struct {
		Valor json.RawMessage `json:"valor"`
		Tipo  string          `json:"tipo"`
		X     float64         `json:"x"`
		Y     float64         `json:"y"`
	} `json:"coordenadas"`
}

func decodeRelative(ctx context.Context, data []byte, _ GeometryFunc) (coords.CoordinateSet, error) {
	var f relativeFile
	if err := json.Unmarshal(data, &f); err != nil {
		return coords.CoordinateSet{}, fault.Parse("decode relative", "invalid JSON", err)
	}

	at := parseTimestamp(f.Timestamp)
	var g coords.WindowGeometry
	if f.Ventana != nil {
		g = f.Ventana.geometry()
	}
	if len(f.Elementos) > 0 {
		return buildFromElements("relative", f.Elementos, g, at, coords.MethodDetected)
	}
	if len(f.Coordenadas) == 0 {
		return coords.CoordinateSet{}, fault.Parse("decode relative", "no elementos", nil)
	}

	set := coords.CoordinateSet{Geometry: g, SavedAt: at}
	skipped := 0
	for _, c := range f.Coordenadas {
		rel := coords.RelativePoint{X: c.X, Y: c.Y}
		if !rel.Valid() {
			skipped++
			continue
		}
		value := valueText(c.Valor)
		e := coords.CoordinateEntry{
			ID:         uuid.New().String(),
			Value:      value,
			Kind:       legacyKind(c.Tipo, value),
			Relative:   rel,
			Method:     coords.MethodImported,
			CapturedAt: at,
		}
		if !g.Degenerate() {
			e.AbsoluteAtCapture = coords.ToAbsolute(rel, g)
		}
		set.Entries = append(set.Entries, e)
	}
	return finish("relative", set, skipped)
}

type flatClick struct {
	X      float64         `json:"x"`
	Y      float64         `json:"y"`
	Numero json.RawMessage `json:"numero"`
	Valor  json.RawMessage `json:"valor"`
	Value  json.RawMessage `json:"value"`
	Nombre string          `json:"nombre"`
	Name   string          `json:"name"`
	Tipo   string          `json:"tipo"`
	Type   string          `json:"type"`
}

func (c flatClick) value() string {
	for _, raw := range []json.RawMessage{c.Numero, c.Valor, c.Value} {
		if v := valueText(raw); v != "" {
			return v
		}
	}
	if c.Nombre != "" {
		return c.Nombre
	}
	return c.Name
}

func decodeFlat(ctx context.Context, data []byte, geom GeometryFunc) (coords.CoordinateSet, error) {
	var clicks []flatClick
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &clicks); err != nil {
			return coords.CoordinateSet{}, fault.Parse("decode flat", "invalid JSON", err)
		}
	} else {
		var wrapper struct {
			Clicks []flatClick `json:"clicks"`
		}
		if err := json.Unmarshal(trimmed, &wrapper); err != nil {
			return coords.CoordinateSet{}, fault.Parse("decode flat", "invalid JSON", err)
		}
		clicks = wrapper.Clicks
	}
	if len(clicks) == 0 {
		return coords.CoordinateSet{}, fault.Parse("decode flat", "no clicks", nil)
	}

	// Absolute clicks are only meaningful against the window as it is now
	if geom == nil {
		return coords.CoordinateSet{}, ErrMiss
	}
	g, ok := geom(ctx)
	if !ok {
		log.Println("Store: Flat export found but the target window is not available for conversion")
		return coords.CoordinateSet{}, ErrMiss
	}

	now := time.Now()
	set := coords.CoordinateSet{Geometry: g, SavedAt: now}
	skipped := 0
	for _, c := range clicks {
		abs := coords.Point{X: int(math.Round(c.X)), Y: int(math.Round(c.Y))}
		rel, ok := coords.Relativize(abs, g)
		if !ok {
			skipped++
			continue
		}
		value := c.value()
		tipo := c.Tipo
		if tipo == "" {
			tipo = c.Type
		}
		set.Entries = append(set.Entries, coords.CoordinateEntry{
			ID:                uuid.New().String(),
			Value:             value,
			Kind:              legacyKind(tipo, value),
			Relative:          rel,
			AbsoluteAtCapture: abs,
			Method:            coords.MethodImported,
			CapturedAt:        now,
		})
	}
	return finish("flat", set, skipped)
}

func finish(format string, set coords.CoordinateSet, skipped int) (coords.CoordinateSet, error) {
	if skipped > 0 {
		log.Printf("Store: Skipped %d unusable %s entries", skipped, format)
	}
	if len(set.Entries) == 0 {
		return coords.CoordinateSet{}, fault.Parse("decode "+format, "no usable entries", nil)
	}
	return set, nil
}

// valueText renders a JSON string or number as plain text
func valueText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return string(raw)
}

func legacyKind(tipo, value string) coords.Kind {
	switch strings.ToLower(tipo) {
	case "numero", "number":
		return coords.KindNumber
	case "apuesta", "outer_bet", "bet":
		return coords.KindOuterBet
	}
	if n, err := strconv.Atoi(value); err == nil && n >= 0 && n <= 36 {
		return coords.KindNumber
	}
	return coords.KindUnknown
}

func legacyMethod(metodo string, fallback coords.Method) coords.Method {
	if m, err := coords.ParseMethod(metodo); err == nil {
		return m
	}
	m := strings.ToLower(metodo)
	switch {
	case m == "":
		return fallback
	case strings.Contains(m, "manual"):
		return coords.MethodManual
	case strings.Contains(m, "hotkey"):
		return coords.MethodHotkey
	case strings.Contains(m, "integrado"), strings.Contains(m, "ocr"), strings.Contains(m, "auto"):
		return coords.MethodDetected
	}
	return coords.MethodImported
}

func parseTimestamp(s string) time.Time {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	return time.Now()
}

// String names the decoder
func (d Decoder) String() string {
	if d.Name == "" {
		return "auto"
	}
	return fmt.Sprintf("%s decoder", d.Name)
}
