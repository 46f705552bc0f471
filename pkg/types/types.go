package types

import "image/color"

// Point is a location in canvas-local pixel space
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Position is a marker center in metric units (meters)
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Meta carries the canvas dimensions the positions were recorded against
type Meta struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// PersistedConfig is the exported/imported configuration document
type PersistedConfig struct {
	Positions []Position `json:"positions" validate:"required"`
	Meta      Meta       `json:"meta"`
}

// ResultPoint is a metric [x, y] pair read from a results file
type ResultPoint [2]float64

// X returns the horizontal component
func (r ResultPoint) X() float64 { return r[0] }

// Y returns the vertical component
func (r ResultPoint) Y() float64 { return r[1] }

// Position converts the pair to a Position
func (r ResultPoint) Position() Position {
	return Position{X: r[0], Y: r[1]}
}

// Category distinguishes user-placed markers from imported result overlays
type Category int

const (
	CategoryUser Category = iota
	CategoryResult
)

// String returns the category name
func (c Category) String() string {
	switch c {
	case CategoryUser:
		return "user"
	case CategoryResult:
		return "result"
	default:
		return "unknown"
	}
}

// Style describes how a marker is drawn
type Style struct {
	Radius      float64
	Color       color.NRGBA
	Alpha       float64 // 0..1, multiplied into Color.A
	Interactive bool
}

// Default marker appearance
var (
	UserStyle = Style{
		Radius:      25,
		Color:       color.NRGBA{255, 0, 0, 255},
		Alpha:       1,
		Interactive: true,
	}
	ResultStyle = Style{
		Radius:      10,
		Color:       color.NRGBA{0, 255, 0, 255},
		Alpha:       0.2,
		Interactive: false,
	}
)

// Size returns the bounding box edge length of a circle of this style
func (s Style) Size() float64 {
	return 2 * s.Radius
}
