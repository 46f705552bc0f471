// Package markers maintains the live set of markers on the canvas: user
// annotations that can be dragged and exported, and read-only result
// overlays that can be removed in bulk.
package markers

import (
	"fmt"
	"math"
	"sync"

	"github.com/google/uuid"

	"github.com/menta2k/image-annotator/pkg/calibration"
	"github.com/menta2k/image-annotator/pkg/convert"
	"github.com/menta2k/image-annotator/pkg/format"
	"github.com/menta2k/image-annotator/pkg/scene"
	"github.com/menta2k/image-annotator/pkg/types"
)

// Marker is a point annotation. Left/Top is the pixel origin of its bounding
// box; the semantic position is the box center.
type Marker struct {
	ID          string
	Left        float64
	Top         float64
	Width       float64
	Height      float64
	Interactive bool
	Category    types.Category
	Handle      scene.Handle
}

// Center returns the pixel center of the marker
func (m Marker) Center() types.Point {
	return types.Point{X: m.Left + m.Width/2, Y: m.Top + m.Height/2}
}

// Origin returns the pixel origin of the marker
func (m Marker) Origin() types.Point {
	return types.Point{X: m.Left, Y: m.Top}
}

// Metric converts the marker to its metric position at the given scale
func (m Marker) Metric(scale float64) types.Position {
	return convert.ToMetric(m.Left, m.Top, m.Width, m.Height, scale)
}

// contains reports whether p falls inside the marker's circle
func (m Marker) contains(p types.Point) bool {
	c := m.Center()
	r := m.Width / 2
	dx, dy := p.X-c.X, p.Y-c.Y
	return dx*dx+dy*dy <= r*r
}

// Config holds marker appearance for each category
type Config struct {
	User   types.Style
	Result types.Style
}

// DefaultConfig returns the standard user/result styles
func DefaultConfig() Config {
	return Config{User: types.UserStyle, Result: types.ResultStyle}
}

// Store owns the marker collection. It reads the shared scale for every
// metric conversion and mirrors every change into the renderer.
type Store struct {
	mu       sync.Mutex
	config   Config
	scale    *calibration.Scale
	renderer scene.Renderer
	markers  []*Marker
	dragging *Marker
}

// New creates an empty store with default styles
func New(scale *calibration.Scale, renderer scene.Renderer) *Store {
	return NewWithConfig(scale, renderer, DefaultConfig())
}

// NewWithConfig creates an empty store with custom styles
func NewWithConfig(scale *calibration.Scale, renderer scene.Renderer, config Config) *Store {
	return &Store{
		config:   config,
		scale:    scale,
		renderer: renderer,
	}
}

// Add creates an interactive user marker with its origin at the given pixel position
func (s *Store) Add(origin types.Point) Marker {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.place(origin, s.config.User, types.CategoryUser)
}

// Remove deletes a single marker by ID. It reports whether the marker existed.
func (s *Store) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, m := range s.markers {
		if m.ID == id {
			s.renderer.RemoveMarker(m.Handle)
			if s.dragging == m {
				s.dragging = nil
			}
			s.markers = append(s.markers[:i], s.markers[i+1:]...)
			return true
		}
	}
	return false
}

// ClearUserMarkers removes every user marker; result markers are untouched
func (s *Store) ClearUserMarkers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clear(types.CategoryUser)
}

// ClearResultMarkers removes every result marker; user markers are untouched
func (s *Store) ClearResultMarkers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clear(types.CategoryResult)
}

// LoadConfig replaces all user markers with the config's metric positions.
// A position that does not map to a finite pixel origin at the current scale
// rejects the whole config and leaves the store unchanged.
func (s *Store) LoadConfig(cfg types.PersistedConfig) ([]Marker, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	style := s.config.User
	origins, err := s.origins(len(cfg.Positions), func(i int) types.Position { return cfg.Positions[i] }, style)
	if err != nil {
		return nil, err
	}

	s.clear(types.CategoryUser)
	loaded := make([]Marker, 0, len(origins))
	for _, origin := range origins {
		loaded = append(loaded, *s.place(origin, style, types.CategoryUser))
	}
	return loaded, nil
}

// LoadResults adds a non-interactive result marker for each metric point.
// Existing markers of either category are kept. Nothing is added when any
// point does not map to a finite pixel origin.
func (s *Store) LoadResults(points []types.ResultPoint) ([]Marker, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	style := s.config.Result
	origins, err := s.origins(len(points), func(i int) types.Position { return points[i].Position() }, style)
	if err != nil {
		return nil, err
	}

	loaded := make([]Marker, 0, len(origins))
	for _, origin := range origins {
		loaded = append(loaded, *s.place(origin, style, types.CategoryResult))
	}
	return loaded, nil
}

// origins converts n metric positions to pixel origins for markers of style
func (s *Store) origins(n int, at func(int) types.Position, style types.Style) ([]types.Point, error) {
	scale := s.scale.Value()
	size := style.Size()
	out := make([]types.Point, n)
	for i := range out {
		origin := convert.FromMetric(at(i), size, size, scale)
		if !finite(origin.X) || !finite(origin.Y) {
			return nil, fmt.Errorf("%w: position %d is out of range at %g px/m", format.ErrInvalidFileFormat, i, scale)
		}
		out[i] = origin
	}
	return out, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Export converts all user markers to metric positions sorted by ascending x
func (s *Store) Export(meta types.Meta) types.PersistedConfig {
	s.mu.Lock()
	defer s.mu.Unlock()

	scale := s.scale.Value()
	positions := make([]types.Position, 0, len(s.markers))
	for _, m := range s.markers {
		if m.Category != types.CategoryUser {
			continue
		}
		positions = append(positions, m.Metric(scale))
	}
	convert.SortByX(positions)

	return types.PersistedConfig{Positions: positions, Meta: meta}
}

// Markers returns a snapshot of all markers in creation order
func (s *Store) Markers() []Marker {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Marker, len(s.markers))
	for i, m := range s.markers {
		out[i] = *m
	}
	return out
}

// Get returns a marker by ID
func (s *Store) Get(id string) (Marker, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.markers {
		if m.ID == id {
			return *m, true
		}
	}
	return Marker{}, false
}

// Count returns the number of markers in a category
func (s *Store) Count(category types.Category) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, m := range s.markers {
		if m.Category == category {
			n++
		}
	}
	return n
}

// place creates, renders and stores a marker; s.mu must be held
func (s *Store) place(origin types.Point, style types.Style, category types.Category) *Marker {
	size := style.Size()
	m := &Marker{
		ID:          uuid.NewString(),
		Left:        origin.X,
		Top:         origin.Y,
		Width:       size,
		Height:      size,
		Interactive: style.Interactive,
		Category:    category,
	}
	m.Handle = s.renderer.PlaceMarker(m.Left, m.Top, style)
	s.markers = append(s.markers, m)
	return m
}

// clear removes all markers of a category; s.mu must be held
func (s *Store) clear(category types.Category) int {
	kept := s.markers[:0]
	removed := 0
	for _, m := range s.markers {
		if m.Category == category {
			s.renderer.RemoveMarker(m.Handle)
			if s.dragging == m {
				s.dragging = nil
			}
			removed++
			continue
		}
		kept = append(kept, m)
	}
	for i := len(kept); i < len(s.markers); i++ {
		s.markers[i] = nil
	}
	s.markers = kept
	return removed
}
