package calibration

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/menta2k/image-annotator/pkg/types"
)

// ErrCancelled is returned by Wait when a calibration run is cancelled
var ErrCancelled = errors.New("calibration cancelled")

// ErrInProgress is returned by Begin while a run is already active
var ErrInProgress = errors.New("calibration already in progress")

// ErrUnexpectedState is returned when an operation does not fit the current state
var ErrUnexpectedState = errors.New("unexpected calibration state")

// State is a step of the two-point calibration protocol
type State int

const (
	Idle State = iota
	AwaitingFirstPoint
	AwaitingSecondPoint
	AwaitingDistance
	Complete
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case AwaitingFirstPoint:
		return "awaiting-first-point"
	case AwaitingSecondPoint:
		return "awaiting-second-point"
	case AwaitingDistance:
		return "awaiting-distance"
	case Complete:
		return "complete"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// run tracks one Begin..Complete/Cancel cycle
type run struct {
	done  chan struct{}
	scale float64
	err   error
}

// Calibrator captures two reference points and a real-world distance and
// commits the resulting pixels-per-meter factor to a Scale.
type Calibrator struct {
	mu     sync.Mutex
	scale  *Scale
	state  State
	first  types.Point
	second types.Point
	cur    *run
}

// NewCalibrator creates an idle calibrator that writes into scale
func NewCalibrator(scale *Scale) *Calibrator {
	return &Calibrator{scale: scale}
}

// State returns the current protocol step
func (c *Calibrator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Awaiting reports whether the calibrator wants pointer input
func (c *Calibrator) Awaiting() bool {
	s := c.State()
	return s == AwaitingFirstPoint || s == AwaitingSecondPoint
}

// Begin starts a new run. It is allowed from Idle and Complete.
func (c *Calibrator) Begin() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Idle && c.state != Complete {
		return fmt.Errorf("begin in state %s: %w", c.state, ErrInProgress)
	}
	c.state = AwaitingFirstPoint
	c.first, c.second = types.Point{}, types.Point{}
	c.cur = &run{done: make(chan struct{})}
	return nil
}

// Capture records a canvas-local pointer-down as the next reference point.
// It returns false when the calibrator is not waiting for a point, in which
// case the event belongs to someone else.
func (c *Calibrator) Capture(p types.Point) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.state {
	case AwaitingFirstPoint:
		c.first = p
		c.state = AwaitingSecondPoint
		return true
	case AwaitingSecondPoint:
		c.second = p
		c.state = AwaitingDistance
		return true
	default:
		return false
	}
}

// ReferencePoints returns the captured points of the current run
func (c *Calibrator) ReferencePoints() (types.Point, types.Point) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.first, c.second
}

// Submit supplies the real distance in meters between the two reference
// points. Invalid input returns ErrInvalidScaleInput and leaves both the scale
// and the state untouched, so the caller may retry or cancel.
func (c *Calibrator) Submit(distanceMeters float64) (float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != AwaitingDistance {
		return 0, fmt.Errorf("submit in state %s: %w", c.state, ErrUnexpectedState)
	}
	scale, err := Derive(PixelDistance(c.first, c.second), distanceMeters)
	if err != nil {
		return 0, err
	}
	if err := c.scale.Set(scale); err != nil {
		return 0, err
	}
	c.state = Complete
	c.finish(scale, nil)
	return scale, nil
}

// Cancel abandons the current run and returns to Idle. The scale is not
// touched. Cancelling an idle calibrator is a no-op.
func (c *Calibrator) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Idle {
		return
	}
	c.state = Idle
	c.first, c.second = types.Point{}, types.Point{}
	c.finish(0, ErrCancelled)
}

// Wait blocks until the current run completes or is cancelled, or ctx ends.
// On completion it returns the committed scale.
func (c *Calibrator) Wait(ctx context.Context) (float64, error) {
	c.mu.Lock()
	r := c.cur
	c.mu.Unlock()
	if r == nil {
		return 0, fmt.Errorf("wait without begin: %w", ErrUnexpectedState)
	}
	select {
	case <-r.done:
		return r.scale, r.err
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// finish resolves the current run; c.mu must be held
func (c *Calibrator) finish(scale float64, err error) {
	if c.cur == nil {
		return
	}
	select {
	case <-c.cur.done:
	default:
		c.cur.scale = scale
		c.cur.err = err
		close(c.cur.done)
	}
}
