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

package tone

import (
	"math"
	"testing"

	"github.com/mlnoga/retouch/internal/luminance"
	"github.com/mlnoga/retouch/internal/pixbuf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTonalMask(t *testing.T) {
	assert.InDelta(t, 0.5, TonalMask(0.75, Highlights, HighlightCenter, DefaultFeather), 1e-12)
	assert.InDelta(t, 0.5, TonalMask(0.25, Shadows, ShadowCenter, DefaultFeather), 1e-12)
	assert.Greater(t, TonalMask(1, Highlights, HighlightCenter, DefaultFeather), 0.9)
	assert.Less(t, TonalMask(1, Shadows, ShadowCenter, DefaultFeather), 0.001)
	assert.Less(t, TonalMask(0, Highlights, HighlightCenter, DefaultFeather), 0.001)

	prev := 0.0
	for l := 0.0; l <= 1; l += 0.05 {
		m := TonalMask(l, Highlights, HighlightCenter, DefaultFeather)
		assert.GreaterOrEqual(t, m, prev)
		prev = m
	}

	for _, feather := range []float64{0, -1, 1e-9} {
		m := TonalMask(0.75, Highlights, HighlightCenter, feather)
		assert.False(t, math.IsNaN(m), "feather %v", feather)
		assert.Equal(t, 1.0, TonalMask(0.9, Highlights, HighlightCenter, feather))
	}
}

func TestAdjustmentMultiplierAsymmetry(t *testing.T) {
	// at full mask the darkening multiplier moves half as far as the brightening one
	up := AdjustmentMultiplier(1, 0.4, Highlights, 0.01)
	down := AdjustmentMultiplier(1, -0.4, Highlights, 0.01)
	assert.InDelta(t, 1.4, up, 1e-9)
	assert.InDelta(t, 0.8, down, 1e-9)
	assert.InDelta(t, 1, AdjustmentMultiplier(0, 1, Highlights, DefaultFeather), 0.001)
}

func TestSoftKnee(t *testing.T) {
	tcs := []struct {
		Orig, Adjusted, Want float64
	}{
		{0.5, 0.6, 0.6},
		{0.9, 1.05, 0.95 + 0.1*0.3},
		{0.97, 1.07, 0.97 + 0.1*0.3},
		{1.0, 1.0, 1.0},
		{0.2, 0.01, 0.05 - 0.04*0.3},
		{0.03, 0.0, 0.03 - 0.03*0.3},
		{0.0, 0.02, 0.02},
		{0.98, 0.97, 0.97},
	}
	for _, tc := range tcs {
		assert.InDelta(t, tc.Want, SoftKnee(tc.Orig, tc.Adjusted), 1e-12, "%v -> %v", tc.Orig, tc.Adjusted)
	}
}

func TestAdjustLuminanceHighlightMonotonic(t *testing.T) {
	for lum := HighlightCenter; lum <= 1; lum += 0.01 {
		prev := lum
		for adj := 0.0; adj <= 1.0001; adj += 0.05 {
			got := AdjustLuminance(lum, adj, Highlights, DefaultFeather)
			require.GreaterOrEqual(t, got, prev, "lum %v adj %v", lum, adj)
			require.LessOrEqual(t, got, 1.0)
			prev = got
		}
	}
}

func TestAdjustLuminanceRange(t *testing.T) {
	for _, r := range []Range{Highlights, Shadows} {
		for lum := 0.0; lum <= 1; lum += 0.02 {
			for adj := -1.0; adj <= 1; adj += 0.25 {
				got := AdjustLuminance(lum, adj, r, DefaultFeather)
				require.False(t, math.IsNaN(got))
				require.GreaterOrEqual(t, got, 0.0)
				require.LessOrEqual(t, got, 1.0)
			}
		}
		assert.Equal(t, 0.4, AdjustLuminance(0.4, 0, r, DefaultFeather))
	}
}

func TestShadowsLiftBlackKeepWhite(t *testing.T) {
	b, err := pixbuf.New(2, 2)
	require.NoError(t, err)
	b.Fill(0, 0, 0, 255)
	copy(b.Pix[0:4], []uint8{255, 255, 255, 255})

	out, err := ApplySelectiveToneAdjustment(b, 1, Shadows, DefaultFeather)
	require.NoError(t, err)
	assert.Equal(t, []uint8{255, 255, 255, 255}, out.Pix[0:4])
	for i := 4; i < len(out.Pix); i += pixbuf.Channels {
		before := luminance.Normalized(b.Pix[i], b.Pix[i+1], b.Pix[i+2])
		after := luminance.Normalized(out.Pix[i], out.Pix[i+1], out.Pix[i+2])
		assert.Greater(t, after, before)
		assert.Equal(t, uint8(255), out.Pix[i+3])
	}
}

func grays(t *testing.T) *pixbuf.Buffer {
	b, err := pixbuf.New(256, 1)
	require.NoError(t, err)
	for x := 0; x < 256; x++ {
		off := b.Offset(x, 0)
		b.Pix[off+0], b.Pix[off+1], b.Pix[off+2], b.Pix[off+3] = uint8(x), uint8(x), uint8(x), uint8(255-x)
	}
	return b
}

func TestHighlightsMonotonicOnImage(t *testing.T) {
	b := grays(t)
	prev := b
	for _, adj := range []float64{0.1, 0.3, 0.6, 1} {
		out, err := ApplySelectiveToneAdjustment(b, adj, Highlights, DefaultFeather)
		require.NoError(t, err)
		for x := 0; x < 256; x++ {
			off := out.Offset(x, 0)
			if float64(x)/255 < HighlightCenter {
				continue
			}
			require.GreaterOrEqual(t, out.Pix[off], prev.Pix[off], "x=%d adj=%v", x, adj)
		}
		prev = out
	}
}

func TestDualMatchesSingleRange(t *testing.T) {
	b := grays(t)
	single, err := ApplySelectiveToneAdjustment(b, 0.4, Highlights, DefaultFeather)
	require.NoError(t, err)
	dual, err := ApplyDualSelectiveTone(b, 0.4, 0, DefaultFeather)
	require.NoError(t, err)
	assert.True(t, single.Equal(dual))

	// two sequential passes agree with the combined pass up to intermediate rounding
	combined, err := ApplyDualSelectiveTone(b, 0.3, -0.3, DefaultFeather)
	require.NoError(t, err)
	first, err := ApplySelectiveToneAdjustment(b, 0.3, Highlights, DefaultFeather)
	require.NoError(t, err)
	second, err := ApplySelectiveToneAdjustment(first, -0.3, Shadows, DefaultFeather)
	require.NoError(t, err)
	for i := range combined.Pix {
		require.InDelta(t, int(combined.Pix[i]), int(second.Pix[i]), 1, "index %d", i)
	}
	for i := 3; i < len(b.Pix); i += pixbuf.Channels {
		require.Equal(t, b.Pix[i], combined.Pix[i])
	}
}

func TestSelectiveTonePreservesHue(t *testing.T) {
	b, err := pixbuf.New(1, 1)
	require.NoError(t, err)
	b.Fill(220, 180, 90, 255)
	out, err := ApplySelectiveToneAdjustment(b, -0.8, Highlights, DefaultFeather)
	require.NoError(t, err)
	h0, s0, _ := luminance.RGBToHSL(b.Pix[0], b.Pix[1], b.Pix[2])
	h1, s1, _ := luminance.RGBToHSL(out.Pix[0], out.Pix[1], out.Pix[2])
	assert.InDelta(t, h0, h1, 2)
	assert.InDelta(t, s0, s1, 0.03)
	assert.Less(t, luminance.Normalized(out.Pix[0], out.Pix[1], out.Pix[2]), luminance.Normalized(220, 180, 90))
}

func TestZeroAdjustmentCopies(t *testing.T) {
	b := grays(t)
	out, err := ApplyDualSelectiveTone(b, 0, 0, DefaultFeather)
	require.NoError(t, err)
	assert.True(t, b.Equal(out))
	assert.NotSame(t, b, out)

	_, err = ApplyDualSelectiveTone(&pixbuf.Buffer{Width: 1, Height: 1}, 0.5, 0, DefaultFeather)
	assert.ErrorIs(t, err, pixbuf.ErrLengthMismatch)
}
