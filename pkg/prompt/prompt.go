// Package prompt asks the user for a single numeric value
package prompt

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

var (
	// ErrCancelled is returned when the user dismisses the prompt
	ErrCancelled = errors.New("prompt cancelled")
	// ErrNotANumber is returned when the answer does not parse as a number
	ErrNotANumber = errors.New("not a number")
)

// Prompter requests a number from the user
type Prompter interface {
	PromptNumber(ctx context.Context, message string) (float64, error)
}

// Func adapts a function to the Prompter interface
type Func func(ctx context.Context, message string) (float64, error)

// PromptNumber calls f
func (f Func) PromptNumber(ctx context.Context, message string) (float64, error) {
	return f(ctx, message)
}

// Fixed answers every prompt with v
func Fixed(v float64) Prompter {
	return Func(func(ctx context.Context, message string) (float64, error) {
		return v, ctx.Err()
	})
}

// Reader prompts on a writer and reads answers line by line
type Reader struct {
	scanner *bufio.Scanner
	out     io.Writer
}

// NewReader creates a Reader over in, printing prompts to out
func NewReader(in io.Reader, out io.Writer) *Reader {
	return &Reader{scanner: bufio.NewScanner(in), out: out}
}

// NewReaderFromScanner shares an existing scanner with other line consumers
func NewReaderFromScanner(scanner *bufio.Scanner, out io.Writer) *Reader {
	return &Reader{scanner: scanner, out: out}
}

// PromptNumber prints message and parses the next line. A blank line or end
// of input cancels; anything that is not a number yields ErrNotANumber.
// Range checks are left to the caller.
func (r *Reader) PromptNumber(ctx context.Context, message string) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if r.out != nil {
		fmt.Fprintf(r.out, "%s: ", message)
	}
	if !r.scanner.Scan() {
		if err := r.scanner.Err(); err != nil {
			return 0, fmt.Errorf("failed to read answer: %w", err)
		}
		return 0, ErrCancelled
	}
	return Parse(r.scanner.Text())
}

// Parse converts an answer to a number. A single decimal comma is accepted
// unless exactly three digits follow it, which reads as a thousands
// separator and is rejected as ambiguous.
func Parse(answer string) (float64, error) {
	s := strings.TrimSpace(answer)
	if s == "" {
		return 0, ErrCancelled
	}
	if whole, frac, ok := strings.Cut(s, ","); ok {
		if strings.Contains(s, ".") || strings.Contains(frac, ",") || isGroup(frac) {
			return 0, fmt.Errorf("%w: %q", ErrNotANumber, answer)
		}
		s = whole + "." + frac
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrNotANumber, answer)
	}
	return v, nil
}

// isGroup reports whether s is a run of exactly three digits
func isGroup(s string) bool {
	if len(s) != 3 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
