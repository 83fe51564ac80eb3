// Copyright (C) 2021 Markus L. Noga
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package clarity

import (
	"testing"

	"github.com/mlnoga/retouch/internal/pixbuf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Pseudo-random image with all channel values in [64,191], so adjacent pyramid
// levels never differ by more than the biased detail range
func texture(t *testing.T, w, h int) *pixbuf.Buffer {
	b, err := pixbuf.New(w, h)
	require.NoError(t, err)
	state := uint32(12345)
	for i := range b.Pix {
		state = state*1664525 + 1013904223
		b.Pix[i] = uint8(64 + (state>>24)%128)
	}
	for i := 3; i < len(b.Pix); i += pixbuf.Channels {
		b.Pix[i] = 200
	}
	return b
}

func TestDecomposeMultiScale(t *testing.T) {
	b := texture(t, 20, 15)
	levels, err := DecomposeMultiScale(b, 3, 2)
	require.NoError(t, err)
	require.Len(t, levels, 4)
	assert.Same(t, b, levels[0].Image)
	for i, l := range levels {
		assert.Equal(t, i, l.Index)
		if i < 3 {
			require.NotNil(t, l.Detail, "level %d", i)
		} else {
			assert.Nil(t, l.Detail)
		}
	}
	assert.Equal(t, []float64{0, 2, 4, 8}, []float64{levels[0].Radius, levels[1].Radius, levels[2].Radius, levels[3].Radius})

	_, err = DecomposeMultiScale(b, 0, 2)
	assert.Error(t, err)
}

func TestReconstructLossless(t *testing.T) {
	b := texture(t, 24, 18)
	for _, numScales := range []int{1, 2, 3} {
		levels, err := DecomposeMultiScale(b, numScales, 2)
		require.NoError(t, err)
		out, err := ReconstructFromScales(levels, nil)
		require.NoError(t, err)
		assert.True(t, b.Equal(out), "numScales %d", numScales)

		ones := []float64{1, 1, 1}
		out, err = ReconstructFromScales(levels, ones[:numScales])
		require.NoError(t, err)
		assert.True(t, b.Equal(out), "numScales %d with explicit weights", numScales)
	}
}

func TestReconstructErrors(t *testing.T) {
	_, err := ReconstructFromScales(nil, nil)
	assert.Error(t, err)

	b := texture(t, 4, 4)
	levels, err := DecomposeMultiScale(b, 2, 2)
	require.NoError(t, err)
	levels[1].Detail = nil
	_, err = ReconstructFromScales(levels, nil)
	assert.Error(t, err)
}

func TestWeights(t *testing.T) {
	assert.InDeltaSlice(t, []float64{1.8, 1.32}, Weights(1, 2), 1e-12)
	assert.InDeltaSlice(t, []float64{1.4, 1.28, 1.16}, Weights(0.5, 3), 1e-12)
	assert.InDeltaSlice(t, []float64{0.2}, Weights(-1, 1), 1e-12)
	assert.InDeltaSlice(t, []float64{1, 1, 1}, Weights(0, 3), 1e-12)
	assert.Nil(t, Weights(1, 0))
}

func TestCalculateScaleParams(t *testing.T) {
	tcs := []struct {
		Amount int
		Scales int
		Radius float64
	}{{0, 2, 2}, {29, 2, 2}, {-29, 2, 2}, {30, 3, 3}, {-59, 3, 3}, {60, 3, 4}, {100, 3, 4}, {-100, 3, 4}}
	for _, tc := range tcs {
		n, r := CalculateScaleParams(tc.Amount)
		assert.Equal(t, tc.Scales, n, "amount %d", tc.Amount)
		assert.Equal(t, tc.Radius, r, "amount %d", tc.Amount)
	}
}

func TestApplyUniformGrayUnchanged(t *testing.T) {
	b, err := pixbuf.New(4, 4)
	require.NoError(t, err)
	b.Fill(128, 128, 128, 255)
	for _, amount := range []int{0, 35, 100, -100} {
		out, err := Apply(b, amount)
		require.NoError(t, err)
		assert.True(t, b.Equal(out), "amount %d", amount)
		assert.NotSame(t, b, out)
	}
}

func TestApplyEnhancesLocalContrast(t *testing.T) {
	b, err := pixbuf.New(16, 4)
	require.NoError(t, err)
	for y := 0; y < 4; y++ {
		for x := 0; x < 16; x++ {
			v := uint8(90)
			if x >= 8 {
				v = 160
			}
			off := b.Offset(x, y)
			b.Pix[off+0], b.Pix[off+1], b.Pix[off+2], b.Pix[off+3] = v, v, v, 255
		}
	}
	out, err := Apply(b, 80)
	require.NoError(t, err)
	assert.Less(t, out.Pix[out.Offset(7, 1)], uint8(90))
	assert.Greater(t, out.Pix[out.Offset(8, 1)], uint8(160))

	soft, err := Apply(b, -80)
	require.NoError(t, err)
	assert.Greater(t, soft.Pix[soft.Offset(7, 1)], uint8(90))
	assert.Less(t, soft.Pix[soft.Offset(8, 1)], uint8(160))
}
