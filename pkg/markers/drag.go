package markers

import "github.com/menta2k/image-annotator/pkg/types"

// BeginDrag picks up the topmost interactive marker under p. It reports
// whether a marker was picked up.
func (s *Store) BeginDrag(p types.Point) (Marker, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.markers) - 1; i >= 0; i-- {
		m := s.markers[i]
		if m.Interactive && m.contains(p) {
			s.dragging = m
			return *m, true
		}
	}
	return Marker{}, false
}

// DragBy moves the marker being dragged by a pointer delta
func (s *Store) DragBy(dx, dy float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dragging == nil {
		return false
	}
	s.moveBy(s.dragging, dx, dy)
	return true
}

// EndDrag applies the final pointer delta and drops the marker
func (s *Store) EndDrag(dx, dy float64) (Marker, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.dragging
	if m == nil {
		return Marker{}, false
	}
	s.moveBy(m, dx, dy)
	s.dragging = nil
	return *m, true
}

// Dragging returns the marker currently being dragged, if any
func (s *Store) Dragging() (Marker, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dragging == nil {
		return Marker{}, false
	}
	return *s.dragging, true
}

// MoveTo places a marker's origin at an absolute pixel position
func (s *Store) MoveTo(id string, origin types.Point) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.markers {
		if m.ID == id {
			s.moveBy(m, origin.X-m.Left, origin.Y-m.Top)
			return true
		}
	}
	return false
}

// moveBy shifts a marker and updates the renderer; s.mu must be held
func (s *Store) moveBy(m *Marker, dx, dy float64) {
	if dx == 0 && dy == 0 {
		return
	}
	m.Left += dx
	m.Top += dy
	s.renderer.MoveMarker(m.Handle, m.Left, m.Top)
}
