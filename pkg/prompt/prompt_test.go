package prompt

import (
	"bytes"
	"context"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"2", 2},
		{" 2.5 ", 2.5},
		{"3,75", 3.75},
		{"0,5", 0.5},
		{"1,2345", 1.2345},
		{"-1", -1},
		{"0", 0},
		{"1e3", 1000},
	}
	for _, tt := range tests {
		got, err := Parse(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse("   ")
	assert.ErrorIs(t, err, ErrCancelled)

	for _, in := range []string{"abc", "1.2.3", "2m", "1,000.5", "1,000", "12,500", "1,2,3", "1,5.0"} {
		_, err := Parse(in)
		assert.ErrorIs(t, err, ErrNotANumber, in)
	}
}

func TestParse_SpecialValuesAreLeftToCaller(t *testing.T) {
	v, err := Parse("NaN")
	require.NoError(t, err)
	assert.True(t, math.IsNaN(v))

	v, err = Parse("Inf")
	require.NoError(t, err)
	assert.True(t, math.IsInf(v, 1))
}

func TestReader(t *testing.T) {
	var out bytes.Buffer
	r := NewReader(strings.NewReader("2\nnope\n\n"), &out)

	v, err := r.PromptNumber(context.Background(), "Distance in meters")
	require.NoError(t, err)
	assert.Equal(t, 2.0, v)
	assert.Equal(t, "Distance in meters: ", out.String())

	_, err = r.PromptNumber(context.Background(), "Distance in meters")
	assert.ErrorIs(t, err, ErrNotANumber)

	_, err = r.PromptNumber(context.Background(), "Distance in meters")
	assert.ErrorIs(t, err, ErrCancelled)

	_, err = r.PromptNumber(context.Background(), "Distance in meters")
	assert.ErrorIs(t, err, ErrCancelled, "end of input")
}

func TestReader_ContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewReader(strings.NewReader("1\n"), nil).PromptNumber(ctx, "x")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFixed(t *testing.T) {
	v, err := Fixed(4.2).PromptNumber(context.Background(), "anything")
	require.NoError(t, err)
	assert.Equal(t, 4.2, v)
}
