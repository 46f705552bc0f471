package main

import (
	"bufio"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	imageannotator "github.com/menta2k/image-annotator"
	"github.com/menta2k/image-annotator/internal/config"
	"github.com/menta2k/image-annotator/internal/logging"
	"github.com/menta2k/image-annotator/pkg/fileio"
	"github.com/menta2k/image-annotator/pkg/format"
	"github.com/menta2k/image-annotator/pkg/prompt"
	"github.com/menta2k/image-annotator/pkg/render"
	"github.com/menta2k/image-annotator/pkg/scene"
)

func runScript(t *testing.T, script string) (*imageannotator.Annotator, *config.Config, string) {
	t.Helper()
	cfg := config.Default()
	cfg.Output.Dir = t.TempDir()

	vp := scene.NewViewport(cfg.Viewport.WindowWidth, cfg.Viewport.WindowHeight, cfg.Viewport.ControlBarHeight)
	raster := render.NewRaster(vp)
	in := bufio.NewScanner(strings.NewReader(script))
	var out bytes.Buffer
	picker := &argPicker{fallback: fileio.NewLinePickerFromScanner(in, &out)}

	a := imageannotator.New(raster,
		imageannotator.WithViewport(vp),
		imageannotator.WithLogger(logging.Discard()),
		imageannotator.WithSaver(fileio.DirSaver{Dir: cfg.Output.Dir}),
		imageannotator.WithPicker(picker),
		imageannotator.WithPrompter(prompt.NewReaderFromScanner(in, &out)),
	)
	r := newREPL(a, raster, cfg, picker, in, &out)
	require.NoError(t, r.run(context.Background()))
	return a, cfg, out.String()
}

func TestREPL_CalibrateAndSave(t *testing.T) {
	script := strings.Join([]string{
		"calibrate",
		"down 0 40",
		"down 3 44",
		"2",
		"add 175 0",
		"add 25 0",
		"save",
		"quit",
	}, "\n")
	a, cfg, out := runScript(t, script)

	assert.Equal(t, 2.5, a.Scale())
	assert.Contains(t, out, "Distance in meters: ")
	assert.Contains(t, out, "[2.5 px/m] > ")

	data, err := os.ReadFile(filepath.Join(cfg.Output.Dir, "konfig.json"))
	require.NoError(t, err)
	saved, err := format.DecodeConfig(data)
	require.NoError(t, err)
	require.Len(t, saved.Positions, 2)
	assert.Equal(t, 20.0, saved.Positions[0].X)
	assert.Equal(t, 80.0, saved.Positions[1].X)
	assert.Contains(t, out, "wrote ")
}

func TestREPL_InvalidDistanceKeepsScale(t *testing.T) {
	a, _, out := runScript(t, "scale 4\ncalibrate\ndown 0 40\ndown 3 44\nabc\nscale\n")
	assert.Equal(t, 4.0, a.Scale())
	assert.Contains(t, out, "error: invalid scale input")
	assert.Contains(t, out, "4 px/m (idle)")
}

func TestREPL_LoadConfigWithPrompt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "konfig.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"positions":[{"x":1,"y":1}],"meta":{"width":1,"height":1}}`), 0o644))

	a, _, out := runScript(t, "scale 100\nload-config\n"+path+"\nmarkers\n")
	require.Len(t, a.Markers(), 1)
	assert.Contains(t, out, "File (.json): ")
	assert.Contains(t, out, "m=(1.000, 1.000)")
}

func TestREPL_LoadResultsByArgumentAndDelete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.json")
	require.NoError(t, os.WriteFile(path, []byte(`[[1,1],[2,2]]`), 0o644))

	a, _, out := runScript(t, "add\nload-results "+path+"\ndelete-results\n")
	assert.Len(t, a.Markers(), 1)
	assert.Contains(t, out, "deleted 2 result markers")
}

func TestREPL_Drag(t *testing.T) {
	a, _, _ := runScript(t, "add 0 0\ndown 25 65\nmove 10 0\nup 5 5\n")
	ms := a.Markers()
	require.Len(t, ms, 1)
	assert.Equal(t, 15.0, ms[0].Left)
	assert.Equal(t, 5.0, ms[0].Top)
}

func TestREPL_Errors(t *testing.T) {
	_, _, out := runScript(t, "bogus\nadd 1\nremove nope\nscale -1\n")
	assert.Contains(t, out, `unknown command "bogus"`)
	assert.Contains(t, out, "expected 2 numbers, got 1")
	assert.Contains(t, out, "no marker nope")
	assert.Contains(t, out, "error: scale -1: invalid scale input")
}

func TestREPL_Preview(t *testing.T) {
	_, cfg, out := runScript(t, "add 10 10\npreview shot.jpg\n")
	_, err := os.Stat(filepath.Join(cfg.Output.Dir, "shot.jpg"))
	require.NoError(t, err)
	assert.Contains(t, out, "shot.jpg")
}

func TestArgPicker(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.json")
	require.NoError(t, os.WriteFile(path, []byte("[]"), 0o644))

	p := &argPicker{}
	p.Set(path)
	data, err := p.PickFile(context.Background(), ".json")
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))

	// the queued path is used once
	_, err = p.PickFile(context.Background(), ".json")
	assert.ErrorIs(t, err, fileio.ErrCancelled)
}

func TestPreviewFormat(t *testing.T) {
	assert.Equal(t, "webp", previewFormat("x.webp", "png"))
	assert.Equal(t, "png", previewFormat("x", "png"))
	assert.Equal(t, "jpg", previewFormat("x.bmp", "jpg"))
}

func TestREPL_ExportURL(t *testing.T) {
	_, _, out := runScript(t, "export\nexport url\n")
	assert.Contains(t, out, `{"positions":[],"meta":{"width":1280,"height":760}}`)
	assert.Contains(t, out, "data:text/plain;charset=utf-8,%7B%22positions%22%3A%5B%5D")
}

func TestResolveConfigPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	assert.Equal(t, "", resolveConfigPath(""))
	assert.Equal(t, "explicit.json", resolveConfigPath("explicit.json"))

	def := config.GetConfigPath()
	require.NoError(t, config.Default().SaveToFile(def))
	assert.Equal(t, def, resolveConfigPath(""))
	assert.Equal(t, filepath.Join(home, ".config", "image-annotator", "config.json"), def)
}
