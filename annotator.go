// Package imageannotator places point markers on a background image, derives
// a pixels-per-meter scale from two reference points, and exports marker
// positions in meters.
//
// Basic usage:
//
//	package main
//
//	import (
//		"context"
//		"log"
//
//		imageannotator "github.com/menta2k/image-annotator"
//		"github.com/menta2k/image-annotator/pkg/fileio"
//		"github.com/menta2k/image-annotator/pkg/prompt"
//		"github.com/menta2k/image-annotator/pkg/render"
//		"github.com/menta2k/image-annotator/pkg/scene"
//		"github.com/menta2k/image-annotator/pkg/types"
//	)
//
//	func main() {
//		vp := scene.NewViewport(1280, 800, 40)
//		a := imageannotator.New(render.NewRaster(vp),
//			imageannotator.WithViewport(vp),
//			imageannotator.WithPrompter(prompt.Fixed(2)),
//			imageannotator.WithSaver(fileio.DirSaver{Dir: "./output"}),
//		)
//
//		// Calibrate: two clicks 5px apart are 2 meters apart
//		if err := a.BeginCalibration(); err != nil {
//			log.Fatal(err)
//		}
//		a.PointerDown(scene.PointerEvent{ClientX: 0, ClientY: 40})
//		a.PointerDown(scene.PointerEvent{ClientX: 3, ClientY: 44})
//		log.Println(a.ScaleLabel()) // 2.5 px/m
//
//		a.AddMarker(types.Point{X: 100, Y: 100})
//		if err := a.Save(context.Background()); err != nil {
//			log.Fatal(err)
//		}
//	}
//
// The package consists of these components:
//
// 1. Calibration (pkg/calibration): shared scale and the two-point state machine
// 2. Markers (pkg/markers): marker collection, drag tracking and metric export
// 3. Convert (pkg/convert): pixel/metric coordinate conversion
// 4. Format (pkg/format): konfig.json and result file codecs
// 5. Render (pkg/render): off-screen renderer that draws the scene to an image
//
// All pointer coordinates are normalized to canvas-local pixels before they
// reach calibration or marker placement.
package imageannotator

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"

	"github.com/menta2k/image-annotator/pkg/background"
	"github.com/menta2k/image-annotator/pkg/calibration"
	"github.com/menta2k/image-annotator/pkg/fileio"
	"github.com/menta2k/image-annotator/pkg/format"
	"github.com/menta2k/image-annotator/pkg/markers"
	"github.com/menta2k/image-annotator/pkg/prompt"
	"github.com/menta2k/image-annotator/pkg/scene"
	"github.com/menta2k/image-annotator/pkg/types"
)

// Version of the image annotator library
const Version = "1.0.0"

// DistancePrompt is the message shown when asking for the reference distance
const DistancePrompt = "Distance in meters"

// Accept patterns passed to the file picker
const (
	AcceptImage = "image/*"
	AcceptJSON  = ".json"
)

var (
	// ErrInvalidScaleInput is returned when a scale or distance is not a positive finite number
	ErrInvalidScaleInput = calibration.ErrInvalidScaleInput
	// ErrInvalidFileFormat is returned when a picked file cannot be decoded
	ErrInvalidFileFormat = format.ErrInvalidFileFormat
	// ErrCalibrationInProgress is returned by BeginCalibration while a run is pending
	ErrCalibrationInProgress = calibration.ErrInProgress
)

// Annotator ties the marker model to a renderer, a file picker, a saver and a prompt
type Annotator struct {
	ctx        context.Context
	renderer   scene.Renderer
	viewport   scene.Viewport
	scale      *calibration.Scale
	calibrator *calibration.Calibrator
	store      *markers.Store
	loader     *background.Loader
	styles     markers.Config

	prompter prompt.Prompter
	picker   fileio.Picker
	saver    fileio.Saver
	filename string
	logger   *slog.Logger
}

// Option configures an Annotator
type Option func(*Annotator)

// WithContext sets the context used by the PointerHandler methods
func WithContext(ctx context.Context) Option {
	return func(a *Annotator) { a.ctx = ctx }
}

// WithPrompter sets the source of the calibration distance
func WithPrompter(p prompt.Prompter) Option {
	return func(a *Annotator) { a.prompter = p }
}

// WithPicker sets the file picker used by the load operations
func WithPicker(p fileio.Picker) Option {
	return func(a *Annotator) { a.picker = p }
}

// WithSaver sets the destination of Save
func WithSaver(s fileio.Saver) Option {
	return func(a *Annotator) { a.saver = s }
}

// WithViewport sets the canvas geometry
func WithViewport(vp scene.Viewport) Option {
	return func(a *Annotator) { a.viewport = vp }
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(a *Annotator) { a.logger = l }
}

// WithMarkerSizes overrides the user and result marker radii
func WithMarkerSizes(userRadius, resultRadius float64) Option {
	return func(a *Annotator) {
		a.styles.User.Radius = userRadius
		a.styles.Result.Radius = resultRadius
	}
}

// WithResultAlpha overrides the opacity of result markers
func WithResultAlpha(alpha float64) Option {
	return func(a *Annotator) { a.styles.Result.Alpha = alpha }
}

// WithFilename sets the name Save writes to
func WithFilename(name string) Option {
	return func(a *Annotator) { a.filename = name }
}

// WithLoader sets the background image loader
func WithLoader(l *background.Loader) Option {
	return func(a *Annotator) { a.loader = l }
}

// New creates an Annotator drawing into renderer. Without a prompter,
// picker or saver every corresponding operation behaves as cancelled.
func New(renderer scene.Renderer, opts ...Option) *Annotator {
	a := &Annotator{
		ctx:      context.Background(),
		renderer: renderer,
		viewport: scene.NewViewport(1280, 800, 40),
		styles:   markers.DefaultConfig(),
		loader:   background.New(),
		prompter: prompt.Func(func(context.Context, string) (float64, error) {
			return 0, prompt.ErrCancelled
		}),
		picker: fileio.PickerFunc(func(context.Context, string) ([]byte, error) {
			return nil, fileio.ErrCancelled
		}),
		saver:    fileio.DirSaver{Dir: "."},
		filename: format.DefaultConfigFilename,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}

	a.scale = calibration.NewScale()
	a.calibrator = calibration.NewCalibrator(a.scale)
	a.store = markers.NewWithConfig(a.scale, renderer, a.styles)
	renderer.SetLabel(a.scale.Label())
	return a
}

// Viewport returns the canvas geometry
func (a *Annotator) Viewport() scene.Viewport {
	return a.viewport
}

// LoadBackground asks for an image and displays it behind the markers.
// Markers are not touched. A cancelled pick is a no-op.
func (a *Annotator) LoadBackground(ctx context.Context) error {
	data, err := a.picker.PickFile(ctx, AcceptImage)
	if err != nil {
		return a.pickError("background", err)
	}
	img, err := a.loader.Decode(data)
	if err != nil {
		a.logger.Warn("Rejected background image", "error", err)
		return fmt.Errorf("%w: %v", ErrInvalidFileFormat, err)
	}
	a.SetBackground(img)
	return nil
}

// SetBackground displays img behind the markers
func (a *Annotator) SetBackground(img image.Image) {
	info := background.GetInfo(img)
	a.renderer.SetBackground(img)
	a.logger.Info("Background loaded",
		"width", info.Width,
		"height", info.Height,
		"ratio", background.FitRatio(info.Width, info.Height, a.viewport))
}

// ClearBackground removes the background image
func (a *Annotator) ClearBackground() {
	a.renderer.ClearBackground()
}

// AddMarker places an interactive user marker with its top-left origin at origin
func (a *Annotator) AddMarker(origin types.Point) markers.Marker {
	m := a.store.Add(origin)
	a.logger.Debug("Marker added", "id", m.ID, "left", m.Left, "top", m.Top)
	return m
}

// RemoveMarker deletes a marker by ID
func (a *Annotator) RemoveMarker(id string) bool {
	ok := a.store.Remove(id)
	if ok {
		a.logger.Debug("Marker removed", "id", id)
	}
	return ok
}

// MoveMarker sets a marker's origin directly
func (a *Annotator) MoveMarker(id string, origin types.Point) bool {
	return a.store.MoveTo(id, origin)
}

// Markers returns a snapshot of every marker in placement order
func (a *Annotator) Markers() []markers.Marker {
	return a.store.Markers()
}

// Marker returns a single marker by ID
func (a *Annotator) Marker(id string) (markers.Marker, bool) {
	return a.store.Get(id)
}

// BeginCalibration arms the two-point capture. The next two pointer-down
// events inside the canvas become the reference points.
func (a *Annotator) BeginCalibration() error {
	if err := a.calibrator.Begin(); err != nil {
		return err
	}
	a.logger.Info("Calibration started")
	return nil
}

// CancelCalibration abandons a pending calibration; the scale is unchanged
func (a *Annotator) CancelCalibration() {
	if a.calibrator.State() == calibration.Idle {
		return
	}
	a.calibrator.Cancel()
	a.logger.Info("Calibration cancelled")
}

// CalibrationState returns the current calibration step
func (a *Annotator) CalibrationState() calibration.State {
	return a.calibrator.State()
}

// WaitCalibration blocks until the pending calibration completes or is cancelled
func (a *Annotator) WaitCalibration(ctx context.Context) (float64, error) {
	return a.calibrator.Wait(ctx)
}

// HandlePointerDown routes a pointer-down to the pending calibration, or
// starts dragging the marker under the pointer. Events outside the canvas
// are ignored. When the event completes the reference points, the distance
// prompt runs before HandlePointerDown returns.
func (a *Annotator) HandlePointerDown(ctx context.Context, ev scene.PointerEvent) error {
	p := a.viewport.ToCanvas(ev)
	if !a.viewport.Contains(p) {
		return nil
	}

	if a.calibrator.Capture(p) {
		a.logger.Debug("Reference point captured", "x", p.X, "y", p.Y)
		if !a.calibrator.Awaiting() {
			return a.finishCalibration(ctx)
		}
		return nil
	}

	if m, ok := a.store.BeginDrag(p); ok {
		a.logger.Debug("Picked up", "id", m.ID)
	}
	return nil
}

// finishCalibration asks for the distance and commits the derived scale.
// Any failure returns the calibrator to Idle.
func (a *Annotator) finishCalibration(ctx context.Context) error {
	distance, err := a.prompter.PromptNumber(ctx, DistancePrompt)
	if err != nil {
		a.calibrator.Cancel()
		switch {
		case errors.Is(err, prompt.ErrCancelled):
			a.logger.Info("Calibration cancelled")
			return nil
		case errors.Is(err, prompt.ErrNotANumber):
			a.logger.Warn("Rejected calibration distance", "error", err)
			return fmt.Errorf("%w: %v", ErrInvalidScaleInput, err)
		default:
			return err
		}
	}

	scale, err := a.calibrator.Submit(distance)
	if err != nil {
		a.calibrator.Cancel()
		a.logger.Warn("Rejected calibration distance", "distance", distance, "error", err)
		return err
	}

	first, second := a.calibrator.ReferencePoints()
	a.renderer.SetLabel(calibration.Label(scale))
	a.logger.Info("Calibration complete",
		"pixel_distance", calibration.PixelDistance(first, second),
		"meters", distance,
		"scale", scale)
	return nil
}

// HandlePointerMove moves the dragged marker by the event's movement delta
func (a *Annotator) HandlePointerMove(ev scene.PointerEvent) {
	a.store.DragBy(ev.MovementX, ev.MovementY)
}

// HandlePointerUp applies the final movement delta and drops the dragged marker
func (a *Annotator) HandlePointerUp(ev scene.PointerEvent) {
	if m, ok := a.store.EndDrag(ev.MovementX, ev.MovementY); ok {
		a.logger.Debug("Moved", "id", m.ID, "left", m.Left, "top", m.Top)
	}
}

// PointerDown implements scene.PointerHandler
func (a *Annotator) PointerDown(ev scene.PointerEvent) {
	if err := a.HandlePointerDown(a.ctx, ev); err != nil {
		a.logger.Error("Pointer down failed", "error", err)
	}
}

// PointerMove implements scene.PointerHandler
func (a *Annotator) PointerMove(ev scene.PointerEvent) {
	a.HandlePointerMove(ev)
}

// PointerUp implements scene.PointerHandler
func (a *Annotator) PointerUp(ev scene.PointerEvent) {
	a.HandlePointerUp(ev)
}

// SetScale overrides the scale directly. Invalid values are rejected and the
// scale is left unchanged.
func (a *Annotator) SetScale(v float64) error {
	if err := a.scale.Set(v); err != nil {
		return err
	}
	a.renderer.SetLabel(a.scale.Label())
	a.logger.Info("Scale set", "scale", v)
	return nil
}

// Scale returns the current pixels-per-meter factor
func (a *Annotator) Scale() float64 {
	return a.scale.Value()
}

// ScaleLabel returns the scale formatted for display
func (a *Annotator) ScaleLabel() string {
	return a.scale.Label()
}

// Export converts the user markers to a persisted config in meters
func (a *Annotator) Export() types.PersistedConfig {
	return a.store.Export(a.viewport.Meta())
}

// Save writes the exported config through the saver
func (a *Annotator) Save(ctx context.Context) error {
	cfg := a.Export()
	data, err := format.EncodeConfig(cfg)
	if err != nil {
		return err
	}
	if err := a.saver.SaveFile(ctx, a.filename, data); err != nil {
		if errors.Is(err, fileio.ErrCancelled) {
			return nil
		}
		return fmt.Errorf("failed to save %s: %w", a.filename, err)
	}
	a.logger.Info("Config saved", "file", a.filename, "positions", len(cfg.Positions))
	return nil
}

// LoadConfig asks for a config file and replaces the user markers with its
// positions. Result markers and the background are kept.
func (a *Annotator) LoadConfig(ctx context.Context) error {
	data, err := a.picker.PickFile(ctx, AcceptJSON)
	if err != nil {
		return a.pickError("config", err)
	}
	cfg, err := decodePicked(data, format.DecodeConfig)
	if err != nil {
		a.logger.Warn("Rejected config file", "error", err)
		return err
	}
	loaded, err := a.store.LoadConfig(cfg)
	if err != nil {
		a.logger.Warn("Rejected config file", "error", err)
		return err
	}
	a.logger.Info("Config loaded", "markers", len(loaded))
	return nil
}

// LoadResults asks for a result file and adds its points as result markers
func (a *Annotator) LoadResults(ctx context.Context) error {
	data, err := a.picker.PickFile(ctx, AcceptJSON)
	if err != nil {
		return a.pickError("results", err)
	}
	points, err := decodePicked(data, format.DecodeResults)
	if err != nil {
		a.logger.Warn("Rejected results file", "error", err)
		return err
	}
	loaded, err := a.store.LoadResults(points)
	if err != nil {
		a.logger.Warn("Rejected results file", "error", err)
		return err
	}
	a.logger.Info("Results loaded", "markers", len(loaded))
	return nil
}

// DeleteResults removes every result marker
func (a *Annotator) DeleteResults() int {
	n := a.store.ClearResultMarkers()
	a.logger.Info("Results deleted", "markers", n)
	return n
}

// ClearMarkers removes every user marker
func (a *Annotator) ClearMarkers() int {
	return a.store.ClearUserMarkers()
}

// GetVersion returns the library version
func GetVersion() string {
	return Version
}

// pickError turns a cancelled pick into a no-op
func (a *Annotator) pickError(what string, err error) error {
	if errors.Is(err, fileio.ErrCancelled) {
		a.logger.Debug("File selection cancelled", "for", what)
		return nil
	}
	if errors.Is(err, fileio.ErrNotAccepted) {
		return fmt.Errorf("%w: %v", ErrInvalidFileFormat, err)
	}
	return fmt.Errorf("failed to read %s file: %w", what, err)
}

func decodePicked[T any](data []byte, decode func([]byte) (T, error)) (T, error) {
	var zero T
	raw, err := fileio.Unwrap(data)
	if err != nil {
		return zero, fmt.Errorf("%w: %v", ErrInvalidFileFormat, err)
	}
	return decode(raw)
}
