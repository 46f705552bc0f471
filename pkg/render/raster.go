// Package render implements an off-screen scene.Renderer that composes the
// background, markers and scale label into an image.
package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/menta2k/image-annotator/pkg/background"
	"github.com/menta2k/image-annotator/pkg/scene"
	"github.com/menta2k/image-annotator/pkg/types"
)

var (
	canvasColor = color.NRGBA{255, 255, 255, 255}
	labelColor  = color.NRGBA{0, 0, 0, 255}
)

type sprite struct {
	x, y  float64
	style types.Style
	order int
}

// Raster is a headless renderer backed by an in-memory canvas
type Raster struct {
	mu         sync.Mutex
	viewport   scene.Viewport
	background *image.NRGBA
	ratio      float64
	sprites    map[scene.Handle]*sprite
	label      string
	seq        int
}

// NewRaster creates a renderer for the given viewport
func NewRaster(vp scene.Viewport) *Raster {
	return &Raster{
		viewport: vp,
		sprites:  make(map[scene.Handle]*sprite),
	}
}

// PlaceMarker adds a circle whose bounding box starts at x, y
func (r *Raster) PlaceMarker(x, y float64, style types.Style) scene.Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	h := scene.Handle(uuid.NewString())
	r.sprites[h] = &sprite{x: x, y: y, style: style, order: r.seq}
	return h
}

// MoveMarker repositions a marker; unknown handles are ignored
func (r *Raster) MoveMarker(h scene.Handle, x, y float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sprites[h]; ok {
		s.x, s.y = x, y
	}
}

// RemoveMarker deletes a marker; unknown handles are ignored
func (r *Raster) RemoveMarker(h scene.Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sprites, h)
}

// SetBackground fits img into the viewport and draws it behind the markers
func (r *Raster) SetBackground(img image.Image) {
	fitted, ratio := background.Fit(img, r.viewport)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.background = fitted
	r.ratio = ratio
}

// ClearBackground removes the background image
func (r *Raster) ClearBackground() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.background = nil
	r.ratio = 0
}

// SetLabel sets the text drawn in the bottom-left corner
func (r *Raster) SetLabel(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.label = text
}

// Label returns the current label text
func (r *Raster) Label() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.label
}

// BackgroundRatio returns the display scale applied to the background, or 0 without one
func (r *Raster) BackgroundRatio() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ratio
}

// MarkerCount returns the number of markers on the canvas
func (r *Raster) MarkerCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sprites)
}

// MarkerOrigin returns the origin of a placed marker
func (r *Raster) MarkerOrigin(h scene.Handle) (types.Point, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sprites[h]
	if !ok {
		return types.Point{}, false
	}
	return types.Point{X: s.x, Y: s.y}, true
}

// Render draws the current scene
func (r *Raster) Render() *image.NRGBA {
	r.mu.Lock()
	defer r.mu.Unlock()

	canvas := imaging.New(r.viewport.Width, r.viewport.Height, canvasColor)
	if r.background != nil {
		canvas = imaging.Paste(canvas, r.background, image.Pt(0, 0))
	}

	sprites := make([]*sprite, 0, len(r.sprites))
	for _, s := range r.sprites {
		sprites = append(sprites, s)
	}
	sort.Slice(sprites, func(i, j int) bool { return sprites[i].order < sprites[j].order })
	for _, s := range sprites {
		radius := s.style.Radius
		fillCircle(canvas, s.x+radius, s.y+radius, radius, s.style.Color, s.style.Alpha)
	}

	if r.label != "" {
		drawLabel(canvas, r.label)
	}
	return canvas
}

// Save renders the scene and writes it with the given format and quality
func (r *Raster) Save(path, format string, quality int, lossless bool) error {
	return SaveImage(r.Render(), path, format, quality, lossless)
}

// SaveImage saves an image to a file with the specified format and quality
func SaveImage(img image.Image, path, format string, quality int, lossless bool) error {
	switch strings.ToLower(format) {
	case "webp":
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		opts := &webp.Options{Lossless: lossless, Quality: float32(quality)}
		return webp.Encode(f, img, opts)
	case "png":
		return imaging.Save(img, path)
	case "jpg", "jpeg":
		return imaging.Save(img, path, imaging.JPEGQuality(quality))
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

// fillCircle blends a filled circle into img
func fillCircle(img *image.NRGBA, cx, cy, radius float64, c color.NRGBA, alpha float64) {
	a := clamp(alpha, 0, 1) * float64(c.A) / 255
	if a <= 0 || radius <= 0 {
		return
	}
	b := img.Bounds()
	x0 := maxInt(int(math.Floor(cx-radius)), b.Min.X)
	y0 := maxInt(int(math.Floor(cy-radius)), b.Min.Y)
	x1 := minInt(int(math.Ceil(cx+radius)), b.Max.X)
	y1 := minInt(int(math.Ceil(cy+radius)), b.Max.Y)
	r2 := radius * radius

	for y := y0; y < y1; y++ {
		dy := float64(y) + 0.5 - cy
		for x := x0; x < x1; x++ {
			dx := float64(x) + 0.5 - cx
			if dx*dx+dy*dy > r2 {
				continue
			}
			i := img.PixOffset(x, y)
			img.Pix[i+0] = blend(img.Pix[i+0], c.R, a)
			img.Pix[i+1] = blend(img.Pix[i+1], c.G, a)
			img.Pix[i+2] = blend(img.Pix[i+2], c.B, a)
			img.Pix[i+3] = 255
		}
	}
}

func drawLabel(img *image.NRGBA, text string) {
	face := basicfont.Face7x13
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(labelColor),
		Face: face,
	}
	width := d.MeasureString(text).Ceil()
	height := face.Height
	bg := image.Rect(0, img.Bounds().Dy()-height-6, width+8, img.Bounds().Dy())
	draw.Draw(img, bg, image.NewUniform(canvasColor), image.Point{}, draw.Src)
	d.Dot = fixed.P(4, img.Bounds().Dy()-4-face.Descent)
	d.DrawString(text)
}

// Helper functions
func blend(dst, src uint8, a float64) uint8 {
	return uint8(math.Round(float64(src)*a + float64(dst)*(1-a)))
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
