package render

import (
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/image-annotator/pkg/scene"
	"github.com/menta2k/image-annotator/pkg/types"
)

// createTestImage creates a solid test image
func createTestImage(width, height int, c color.NRGBA) image.Image {
	return imaging.New(width, height, c)
}

func nrgbaAt(img *image.NRGBA, x, y int) color.NRGBA {
	return img.NRGBAAt(x, y)
}

func TestRender_EmptyCanvas(t *testing.T) {
	r := NewRaster(scene.Viewport{Width: 40, Height: 30})
	img := r.Render()

	assert.Equal(t, image.Rect(0, 0, 40, 30), img.Bounds())
	assert.Equal(t, color.NRGBA{255, 255, 255, 255}, nrgbaAt(img, 20, 15))
}

func TestPlaceMoveRemove(t *testing.T) {
	r := NewRaster(scene.Viewport{Width: 200, Height: 200})
	h := r.PlaceMarker(10, 10, types.UserStyle)
	assert.Equal(t, 1, r.MarkerCount())

	img := r.Render()
	// center of a radius-25 circle at origin 10,10
	assert.Equal(t, color.NRGBA{255, 0, 0, 255}, nrgbaAt(img, 35, 35))
	assert.Equal(t, color.NRGBA{255, 255, 255, 255}, nrgbaAt(img, 150, 150))

	r.MoveMarker(h, 125, 125)
	p, ok := r.MarkerOrigin(h)
	require.True(t, ok)
	assert.Equal(t, types.Point{X: 125, Y: 125}, p)
	img = r.Render()
	assert.Equal(t, color.NRGBA{255, 0, 0, 255}, nrgbaAt(img, 150, 150))
	assert.Equal(t, color.NRGBA{255, 255, 255, 255}, nrgbaAt(img, 35, 35))

	r.RemoveMarker(h)
	assert.Equal(t, 0, r.MarkerCount())
	_, ok = r.MarkerOrigin(h)
	assert.False(t, ok)

	// unknown handles are ignored
	r.MoveMarker(h, 0, 0)
	r.RemoveMarker("missing")
}

func TestResultMarkerIsTranslucent(t *testing.T) {
	r := NewRaster(scene.Viewport{Width: 50, Height: 50})
	r.PlaceMarker(0, 0, types.ResultStyle)
	c := nrgbaAt(r.Render(), 10, 10)

	// 20% green over white
	assert.Equal(t, uint8(204), c.R)
	assert.Equal(t, uint8(255), c.G)
	assert.Equal(t, uint8(204), c.B)
}

func TestSetBackground(t *testing.T) {
	r := NewRaster(scene.Viewport{Width: 100, Height: 50})
	r.SetBackground(createTestImage(400, 100, color.NRGBA{0, 0, 255, 255}))

	// height ratio 0.5 would give 200px width, so width wins: 100/400
	assert.Equal(t, 0.25, r.BackgroundRatio())
	img := r.Render()
	assert.Equal(t, color.NRGBA{0, 0, 255, 255}, nrgbaAt(img, 50, 10))
	assert.Equal(t, color.NRGBA{255, 255, 255, 255}, nrgbaAt(img, 50, 40))

	r.ClearBackground()
	assert.Equal(t, 0.0, r.BackgroundRatio())
	assert.Equal(t, color.NRGBA{255, 255, 255, 255}, nrgbaAt(r.Render(), 50, 10))
}

func TestLabel(t *testing.T) {
	r := NewRaster(scene.Viewport{Width: 120, Height: 40})
	r.SetLabel("2.5 px/m")
	assert.Equal(t, "2.5 px/m", r.Label())

	img := r.Render()
	dark := 0
	for y := 20; y < 40; y++ {
		for x := 0; x < 80; x++ {
			if nrgbaAt(img, x, y).R < 128 {
				dark++
			}
		}
	}
	assert.Greater(t, dark, 0, "label glyphs should be drawn")
}

func TestSave(t *testing.T) {
	r := NewRaster(scene.Viewport{Width: 64, Height: 48})
	r.PlaceMarker(5, 5, types.UserStyle)
	dir := t.TempDir()

	for _, format := range []string{"png", "jpg", "webp"} {
		path := filepath.Join(dir, "preview."+format)
		require.NoError(t, r.Save(path, format, 90, false), format)

		img, err := imaging.Open(path)
		require.NoError(t, err, format)
		assert.Equal(t, image.Rect(0, 0, 64, 48), img.Bounds(), format)
	}

	assert.Error(t, r.Save(filepath.Join(dir, "preview.bmp"), "bmp", 90, false))
}

func TestFillCircle_Clipped(t *testing.T) {
	img := imaging.New(10, 10, color.NRGBA{255, 255, 255, 255})
	fillCircle(img, -5, -5, 8, color.NRGBA{0, 0, 0, 255}, 1)
	assert.Equal(t, color.NRGBA{0, 0, 0, 255}, img.NRGBAAt(0, 0))
	assert.Equal(t, color.NRGBA{255, 255, 255, 255}, img.NRGBAAt(9, 9))
}

func BenchmarkRender(b *testing.B) {
	r := NewRaster(scene.Viewport{Width: 1280, Height: 720})
	r.SetBackground(createTestImage(1920, 1080, color.NRGBA{40, 80, 120, 255}))
	for i := 0; i < 50; i++ {
		r.PlaceMarker(float64(i*20), float64(i*10), types.UserStyle)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		r.Render()
	}
}
