// Package format encodes and decodes the annotation file formats: the
// exported configuration document and the imported results list.
package format

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/menta2k/image-annotator/pkg/types"
)

// DefaultConfigFilename is the name used when exporting a configuration
const DefaultConfigFilename = "konfig.json"

// ErrInvalidFileFormat is returned when a file cannot be parsed into the expected shape
var ErrInvalidFileFormat = errors.New("invalid file format")

var validate = validator.New()

// EncodeConfig serializes a configuration document. Positions are written in
// the order given; sort them before encoding for a canonical file.
func EncodeConfig(cfg types.PersistedConfig) ([]byte, error) {
	if cfg.Positions == nil {
		cfg.Positions = []types.Position{}
	}
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return data, nil
}

// rawConfig mirrors types.PersistedConfig with every coordinate required
type rawConfig struct {
	Positions []json.RawMessage `json:"positions" validate:"required"`
	Meta      types.Meta        `json:"meta"`
}

type rawPosition struct {
	X *float64 `json:"x" validate:"required"`
	Y *float64 `json:"y" validate:"required"`
}

// DecodeConfig parses a configuration document. Every position must carry
// both x and y.
func DecodeConfig(data []byte) (types.PersistedConfig, error) {
	var raw rawConfig
	if err := json.Unmarshal(bytes.TrimPrefix(data, utf8BOM), &raw); err != nil {
		return types.PersistedConfig{}, fmt.Errorf("%w: config: %v", ErrInvalidFileFormat, err)
	}
	if err := validate.Struct(raw); err != nil {
		return types.PersistedConfig{}, fmt.Errorf("%w: config: %v", ErrInvalidFileFormat, err)
	}

	cfg := types.PersistedConfig{
		Positions: make([]types.Position, 0, len(raw.Positions)),
		Meta:      raw.Meta,
	}
	for i, item := range raw.Positions {
		if isNull(item) {
			return types.PersistedConfig{}, fmt.Errorf("%w: positions[%d]: null", ErrInvalidFileFormat, i)
		}
		var p rawPosition
		if err := json.Unmarshal(item, &p); err != nil {
			return types.PersistedConfig{}, fmt.Errorf("%w: positions[%d]: %v", ErrInvalidFileFormat, i, err)
		}
		if err := validate.Struct(p); err != nil {
			return types.PersistedConfig{}, fmt.Errorf("%w: positions[%d]: %v", ErrInvalidFileFormat, i, err)
		}
		cfg.Positions = append(cfg.Positions, types.Position{X: *p.X, Y: *p.Y})
	}
	return cfg, nil
}

// DecodeResults parses a results file: a bare array of [x, y] metric pairs
func DecodeResults(data []byte) ([]types.ResultPoint, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(bytes.TrimPrefix(data, utf8BOM), &raw); err != nil {
		return nil, fmt.Errorf("%w: results: %v", ErrInvalidFileFormat, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: results: expected an array", ErrInvalidFileFormat)
	}

	points := make([]types.ResultPoint, 0, len(raw))
	for i, item := range raw {
		if isNull(item) {
			return nil, fmt.Errorf("%w: results[%d]: null", ErrInvalidFileFormat, i)
		}
		var pair []*float64
		if err := json.Unmarshal(item, &pair); err != nil {
			return nil, fmt.Errorf("%w: results[%d]: %v", ErrInvalidFileFormat, i, err)
		}
		if len(pair) != 2 {
			return nil, fmt.Errorf("%w: results[%d]: expected 2 values, got %d", ErrInvalidFileFormat, i, len(pair))
		}
		if pair[0] == nil || pair[1] == nil {
			return nil, fmt.Errorf("%w: results[%d]: null coordinate", ErrInvalidFileFormat, i)
		}
		points = append(points, types.ResultPoint{*pair[0], *pair[1]})
	}
	return points, nil
}

func isNull(item json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(item), []byte("null"))
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}
