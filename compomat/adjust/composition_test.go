// Copyright © 2023-2024 Wei Shen <shenwei356@gmail.com>
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package adjust

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/shenwei356/compomat/compomat/matrix"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComposition(t *testing.T) {
	c := NewComposition([]byte("ACDAa#B*"))

	assert.Equal(t, 8, c.Length())
	assert.Equal(t, 5, c.TrueCount())
	assert.Equal(t, 1, c.Unknown())
	assert.Equal(t, 3, c.Count('A'))
	assert.Equal(t, 3, c.Count('a'))
	assert.Equal(t, 1, c.Count('B'))
	assert.Equal(t, 1, c.Count('*'))
	assert.Equal(t, 0, c.Count('#'))

	f, err := c.Frequencies()
	require.NoError(t, err)
	require.Len(t, f, matrix.TrueAA)
	assert.InDelta(t, 0.6, f[0], 1e-12)
	assert.InDelta(t, 0.2, f[matrix.Index('C')], 1e-12)
	assert.InDelta(t, 0.2, f[matrix.Index('D')], 1e-12)
}

func TestEmptyComposition(t *testing.T) {
	for _, s := range []string{"", "XXXXBZ", "----"} {
		c := NewComposition([]byte(s))
		if _, err := c.Frequencies(); !errors.Is(err, ErrEmptyComposition) {
			t.Errorf("%q: ErrEmptyComposition expected, got %v", s, err)
		}

		bg, err := matrix.BackgroundFrequencies("BLOSUM62")
		require.NoError(t, err)
		if _, err = c.WithPseudocounts(bg, 20); !errors.Is(err, ErrEmptyComposition) {
			t.Errorf("%q: ErrEmptyComposition expected, got %v", s, err)
		}
	}
}

func TestPseudocounts(t *testing.T) {
	bg, err := matrix.BackgroundFrequencies("BLOSUM62")
	require.NoError(t, err)

	c := NewComposition([]byte("AAAAAAAAAW"))

	f0, err := c.Frequencies()
	require.NoError(t, err)
	f, err := c.WithPseudocounts(bg, 0)
	require.NoError(t, err)
	assert.InDeltaSlice(t, f0, f, 1e-15)

	f, err = c.WithPseudocounts(bg, 20)
	require.NoError(t, err)
	var sum float64
	for i, v := range f {
		if v <= 0 {
			t.Errorf("frequency of %c should be positive", matrix.Alphabet[i])
		}
		sum += v
	}
	assert.InDelta(t, 1, sum, 1e-12)
	// (9 + 20 * bg_A) / 30
	assert.InDelta(t, (9+20*bg[0])/30, f[0], 1e-12)

	_, err = c.WithPseudocounts(bg[:5], 20)
	assert.Error(t, err)
	_, err = c.WithPseudocounts(bg, -1)
	assert.Error(t, err)
}
