// Package calibration derives and holds the pixels-per-meter scale used by
// every pixel/metric conversion.
package calibration

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"sync"

	"github.com/menta2k/image-annotator/pkg/types"
)

// ErrInvalidScaleInput is returned when a distance or scale is not a positive finite number
var ErrInvalidScaleInput = errors.New("invalid scale input")

// DefaultScale is the identity scale used until calibration happens
const DefaultScale = 1.0

// Scale is the shared pixels-per-meter factor. The zero value is not usable;
// create one with NewScale.
type Scale struct {
	mu    sync.RWMutex
	value float64
}

// NewScale creates a Scale initialized to DefaultScale
func NewScale() *Scale {
	return &Scale{value: DefaultScale}
}

// Value returns the current pixels-per-meter factor
func (s *Scale) Value() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value
}

// Set overrides the scale. Non-positive, NaN or infinite values are rejected
// and leave the current value unchanged.
func (s *Scale) Set(v float64) error {
	if err := validatePositive(v); err != nil {
		return fmt.Errorf("scale %v: %w", v, err)
	}
	s.mu.Lock()
	s.value = v
	s.mu.Unlock()
	return nil
}

// Label formats the scale for display, rounded to two decimals
func (s *Scale) Label() string {
	return Label(s.Value())
}

// Label formats a scale value as "<value> px/m" rounded to two decimals
func Label(scale float64) string {
	rounded := math.Round(scale*100) / 100
	return strconv.FormatFloat(rounded, 'f', -1, 64) + " px/m"
}

// PixelDistance returns the Euclidean distance between two points
func PixelDistance(a, b types.Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// Derive computes pixelDistance / distanceMeters after validating the input
func Derive(pixelDistance, distanceMeters float64) (float64, error) {
	if err := validatePositive(distanceMeters); err != nil {
		return 0, fmt.Errorf("distance %v: %w", distanceMeters, err)
	}
	scale := pixelDistance / distanceMeters
	if err := validatePositive(scale); err != nil {
		return 0, fmt.Errorf("derived scale %v: %w", scale, err)
	}
	return scale, nil
}

func validatePositive(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return ErrInvalidScaleInput
	}
	return nil
}
