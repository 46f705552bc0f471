// Package fileio provides the file picker and file saver collaborators:
// choosing an input file by accept pattern and writing an exported file.
package fileio

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/menta2k/image-annotator/internal/utils"
)

// ErrCancelled is returned when the user dismisses a file dialog
var ErrCancelled = errors.New("file selection cancelled")

// ErrNotAccepted is returned when a chosen file does not match the accept pattern
var ErrNotAccepted = errors.New("file type not accepted")

// Picker lets the user choose a file matching an accept pattern such as
// ".json" or "image/*".
type Picker interface {
	PickFile(ctx context.Context, accept string) ([]byte, error)
}

// Saver delivers an exported file to the user
type Saver interface {
	SaveFile(ctx context.Context, filename string, content []byte) error
}

// PickerFunc adapts a function to the Picker interface
type PickerFunc func(ctx context.Context, accept string) ([]byte, error)

// PickFile calls f
func (f PickerFunc) PickFile(ctx context.Context, accept string) ([]byte, error) {
	return f(ctx, accept)
}

// PathPicker picks a fixed path. An empty path behaves like a cancelled dialog.
func PathPicker(path string) Picker {
	return PickerFunc(func(ctx context.Context, accept string) ([]byte, error) {
		return readPicked(ctx, path, accept)
	})
}

// LinePicker asks for a path on a line-oriented input. A blank line or end of
// input cancels.
type LinePicker struct {
	scanner *bufio.Scanner
	out     io.Writer
}

// NewLinePicker creates a LinePicker reading from in and prompting on out
func NewLinePicker(in io.Reader, out io.Writer) *LinePicker {
	return &LinePicker{scanner: bufio.NewScanner(in), out: out}
}

// NewLinePickerFromScanner shares an existing scanner, so a command loop and
// the picker consume the same input stream
func NewLinePickerFromScanner(scanner *bufio.Scanner, out io.Writer) *LinePicker {
	return &LinePicker{scanner: scanner, out: out}
}

// PickFile prompts for a path and reads the file
func (p *LinePicker) PickFile(ctx context.Context, accept string) ([]byte, error) {
	if p.out != nil {
		fmt.Fprintf(p.out, "File (%s): ", accept)
	}
	if !p.scanner.Scan() {
		if err := p.scanner.Err(); err != nil {
			return nil, fmt.Errorf("failed to read path: %w", err)
		}
		return nil, ErrCancelled
	}
	return readPicked(ctx, strings.TrimSpace(p.scanner.Text()), accept)
}

// DirSaver writes exported files into a directory
type DirSaver struct {
	Dir string
}

// SaveFile writes content to Dir/filename, creating Dir if needed
func (s DirSaver) SaveFile(ctx context.Context, filename string, content []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	name := utils.SanitizeFilename(filename)
	if name == "" {
		return fmt.Errorf("invalid filename %q", filename)
	}
	if err := utils.EnsureDir(s.Dir); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(s.Dir, name)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// Path returns where SaveFile writes filename
func (s DirSaver) Path(filename string) string {
	return filepath.Join(s.Dir, utils.SanitizeFilename(filename))
}

func readPicked(ctx context.Context, path, accept string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if path == "" {
		return nil, ErrCancelled
	}
	if !utils.MatchesAccept(path, accept) {
		return nil, fmt.Errorf("%w: %s does not match %q", ErrNotAccepted, filepath.Base(path), accept)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}
