// Package scene defines the boundary between the annotation model and
// whatever displays it: a renderer that draws markers, and the pointer
// events it reports back.
package scene

import (
	"image"

	"github.com/menta2k/image-annotator/pkg/types"
)

// Handle identifies a marker inside a renderer
type Handle string

// Renderer displays the background image and markers.
// Coordinates are canvas-local pixels; x, y is the marker's top-left origin.
type Renderer interface {
	PlaceMarker(x, y float64, style types.Style) Handle
	MoveMarker(h Handle, x, y float64)
	RemoveMarker(h Handle)
	SetBackground(img image.Image)
	ClearBackground()
	SetLabel(text string)
}

// PointerEvent is a raw pointer report in window (client) coordinates.
// MovementX/Y are the deltas since the previous event.
type PointerEvent struct {
	ClientX   float64
	ClientY   float64
	MovementX float64
	MovementY float64
}

// PointerHandler receives pointer events from a renderer or input driver
type PointerHandler interface {
	PointerDown(ev PointerEvent)
	PointerMove(ev PointerEvent)
	PointerUp(ev PointerEvent)
}

// Viewport is the drawable canvas area and its offset inside the window
type Viewport struct {
	Width   int
	Height  int
	OriginX float64
	OriginY float64
}

// NewViewport sizes the canvas below a fixed-height control bar: full window
// width, window height minus the bar.
func NewViewport(windowWidth, windowHeight, controlBarHeight int) Viewport {
	h := windowHeight - controlBarHeight
	if h < 0 {
		h = 0
	}
	return Viewport{
		Width:   windowWidth,
		Height:  h,
		OriginX: 0,
		OriginY: float64(controlBarHeight),
	}
}

// ToCanvas converts a client-space event position to canvas-local pixels
func (v Viewport) ToCanvas(ev PointerEvent) types.Point {
	return types.Point{X: ev.ClientX - v.OriginX, Y: ev.ClientY - v.OriginY}
}

// Contains reports whether a canvas-local point lies inside the viewport
func (v Viewport) Contains(p types.Point) bool {
	return p.X >= 0 && p.Y >= 0 && p.X < float64(v.Width) && p.Y < float64(v.Height)
}

// Meta returns the viewport dimensions for a persisted config
func (v Viewport) Meta() types.Meta {
	return types.Meta{Width: v.Width, Height: v.Height}
}

// Bounds returns the viewport as an image rectangle anchored at 0,0
func (v Viewport) Bounds() image.Rectangle {
	return image.Rect(0, 0, v.Width, v.Height)
}
