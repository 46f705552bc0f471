package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	imageannotator "github.com/menta2k/image-annotator"
	"github.com/menta2k/image-annotator/internal/config"
	"github.com/menta2k/image-annotator/internal/utils"
	"github.com/menta2k/image-annotator/pkg/fileio"
	"github.com/menta2k/image-annotator/pkg/format"
	"github.com/menta2k/image-annotator/pkg/render"
	"github.com/menta2k/image-annotator/pkg/scene"
	"github.com/menta2k/image-annotator/pkg/types"
)

const helpText = `commands:
  add [x y]                 place a marker with its origin at canvas x, y
  remove <id>               delete a marker
  down <x> <y>              pointer down at window x, y
  move <dx> <dy>            pointer move by dx, dy
  up [dx dy]                pointer up with a final delta
  calibrate                 start two-point calibration
  cancel                    cancel calibration
  scale [value]             show or set the scale in px/m
  save                      write the marker config
  export [url]              print the marker config, or its download URL
  load-config [path]        replace markers from a config file
  load-results [path]       overlay a results file
  delete-results            remove result markers
  background [path]         load a background image
  clear-background          remove the background image
  preview [name]            render the scene to an image
  markers                   list markers
  help                      show this text
  quit                      leave`

// argPicker serves a path set by a command argument once, then falls back
// to an interactive picker. Without a fallback, picks are cancelled.
type argPicker struct {
	mu       sync.Mutex
	path     string
	fallback fileio.Picker
}

// Set queues path for the next pick
func (p *argPicker) Set(path string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.path = path
}

func (p *argPicker) PickFile(ctx context.Context, accept string) ([]byte, error) {
	p.mu.Lock()
	path := p.path
	p.path = ""
	p.mu.Unlock()

	if path != "" {
		return fileio.PathPicker(path).PickFile(ctx, accept)
	}
	if p.fallback == nil {
		return nil, fileio.ErrCancelled
	}
	return p.fallback.PickFile(ctx, accept)
}

type repl struct {
	a      *imageannotator.Annotator
	raster *render.Raster
	cfg    *config.Config
	picker *argPicker
	in     *bufio.Scanner
	out    io.Writer
}

func newREPL(a *imageannotator.Annotator, raster *render.Raster, cfg *config.Config, picker *argPicker, in *bufio.Scanner, out io.Writer) *repl {
	return &repl{a: a, raster: raster, cfg: cfg, picker: picker, in: in, out: out}
}

// run reads commands until quit, end of input or ctx is done
func (r *repl) run(ctx context.Context) error {
	fmt.Fprintln(r.out, "image-annotator", imageannotator.GetVersion(), "- type help for commands")
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		fmt.Fprintf(r.out, "[%s] > ", r.a.ScaleLabel())
		if !r.in.Scan() {
			return r.in.Err()
		}
		quit, err := r.exec(ctx, r.in.Text())
		if err != nil {
			fmt.Fprintf(r.out, "error: %v\n", err)
		}
		if quit {
			return nil
		}
	}
}

// exec runs a single command line
func (r *repl) exec(ctx context.Context, line string) (bool, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]

	switch cmd {
	case "quit", "exit", "q":
		return true, nil
	case "help", "?":
		fmt.Fprintln(r.out, helpText)
	case "add":
		origin := types.Point{}
		if len(args) > 0 {
			nums, err := parseFloats(args, 2)
			if err != nil {
				return false, err
			}
			origin = types.Point{X: nums[0], Y: nums[1]}
		}
		m := r.a.AddMarker(origin)
		fmt.Fprintf(r.out, "added %s\n", m.ID)
	case "remove", "rm":
		if len(args) != 1 {
			return false, errors.New("usage: remove <id>")
		}
		if !r.a.RemoveMarker(args[0]) {
			return false, fmt.Errorf("no marker %s", args[0])
		}
	case "down":
		nums, err := parseFloats(args, 2)
		if err != nil {
			return false, err
		}
		return false, r.a.HandlePointerDown(ctx, scene.PointerEvent{ClientX: nums[0], ClientY: nums[1]})
	case "move":
		nums, err := parseFloats(args, 2)
		if err != nil {
			return false, err
		}
		r.a.HandlePointerMove(scene.PointerEvent{MovementX: nums[0], MovementY: nums[1]})
	case "up":
		ev := scene.PointerEvent{}
		if len(args) > 0 {
			nums, err := parseFloats(args, 2)
			if err != nil {
				return false, err
			}
			ev.MovementX, ev.MovementY = nums[0], nums[1]
		}
		r.a.HandlePointerUp(ev)
	case "calibrate":
		if err := r.a.BeginCalibration(); err != nil {
			return false, err
		}
		fmt.Fprintln(r.out, "click two reference points with: down <x> <y>")
	case "cancel":
		r.a.CancelCalibration()
	case "scale":
		if len(args) == 0 {
			fmt.Fprintf(r.out, "%s (%s)\n", r.a.ScaleLabel(), r.a.CalibrationState())
			return false, nil
		}
		nums, err := parseFloats(args, 1)
		if err != nil {
			return false, err
		}
		return false, r.a.SetScale(nums[0])
	case "save":
		if err := r.a.Save(ctx); err != nil {
			return false, err
		}
		r.reportFile(fileio.DirSaver{Dir: r.cfg.Output.Dir}.Path(r.cfg.Output.ConfigFilename))
	case "export":
		data, err := format.EncodeConfig(r.a.Export())
		if err != nil {
			return false, err
		}
		if len(args) > 0 && strings.EqualFold(args[0], "url") {
			fmt.Fprintln(r.out, fileio.DownloadURL(data))
			return false, nil
		}
		fmt.Fprintln(r.out, string(data))
	case "load-config":
		r.queue(args)
		return false, r.a.LoadConfig(ctx)
	case "load-results":
		r.queue(args)
		return false, r.a.LoadResults(ctx)
	case "delete-results":
		fmt.Fprintf(r.out, "deleted %d result markers\n", r.a.DeleteResults())
	case "background", "bg":
		r.queue(args)
		return false, r.a.LoadBackground(ctx)
	case "clear-background":
		r.a.ClearBackground()
	case "preview":
		name := "preview"
		if len(args) > 0 {
			name = args[0]
		}
		path, err := writePreview(r.raster, r.cfg, name)
		if err != nil {
			return false, err
		}
		r.reportFile(path)
	case "markers", "ls":
		scale := r.a.Scale()
		for _, m := range r.a.Markers() {
			c := m.Center()
			p := m.Metric(scale)
			fmt.Fprintf(r.out, "%s %-6s px=(%.1f, %.1f) m=(%.3f, %.3f)\n", m.ID, m.Category, c.X, c.Y, p.X, p.Y)
		}
	default:
		return false, fmt.Errorf("unknown command %q, type help", cmd)
	}
	return false, nil
}

func (r *repl) queue(args []string) {
	if len(args) > 0 {
		r.picker.Set(strings.Join(args, " "))
	}
}

func (r *repl) reportFile(path string) {
	if st, err := os.Stat(path); err == nil {
		fmt.Fprintf(r.out, "wrote %s (%s)\n", path, utils.FormatFileSize(st.Size()))
	}
}

func parseFloats(args []string, n int) ([]float64, error) {
	if len(args) != n {
		return nil, fmt.Errorf("expected %d numbers, got %d", n, len(args))
	}
	out := make([]float64, n)
	for i, a := range args {
		v, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", a)
		}
		out[i] = v
	}
	return out, nil
}
