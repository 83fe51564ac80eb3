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

package sharpen

import (
	"math"
	"testing"

	"github.com/mlnoga/retouch/internal/blur"
	"github.com/mlnoga/retouch/internal/pixbuf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func edgeImage(t *testing.T, w, h int, dark, bright uint8) *pixbuf.Buffer {
	b, err := pixbuf.New(w, h)
	require.NoError(t, err)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := dark
			if x >= w/2 {
				v = bright
			}
			off := b.Offset(x, y)
			b.Pix[off+0], b.Pix[off+1], b.Pix[off+2], b.Pix[off+3] = v, v, v, 255
		}
	}
	return b
}

func TestParamsFromSlider(t *testing.T) {
	p := ParamsFromSlider(100)
	assert.InDelta(t, 200, p.Amount, 1e-9)
	assert.InDelta(t, 2.5, p.Radius, 1e-9)
	assert.LessOrEqual(t, p.Threshold, 5.0)

	p = ParamsFromSlider(25)
	assert.InDelta(t, 200*math.Pow(0.25, 1.5), p.Amount, 1e-9)
	assert.InDelta(t, 1.375, p.Radius, 1e-9)
	assert.InDelta(t, 2, p.Threshold, 1e-9)

	assert.Equal(t, 0.0, ParamsFromSlider(0).Amount)
	assert.Equal(t, ParamsFromSlider(100), ParamsFromSlider(250))
}

func TestBlurRadiusFromSlider(t *testing.T) {
	assert.Equal(t, 0.0, BlurRadiusFromSlider(10))
	assert.Equal(t, 0.0, BlurRadiusFromSlider(0))
	assert.InDelta(t, 2.5, BlurRadiusFromSlider(-50), 1e-9)
	assert.InDelta(t, 5, BlurRadiusFromSlider(-100), 1e-9)
	assert.InDelta(t, 5, BlurRadiusFromSlider(-400), 1e-9)
}

func TestUnsharpMaskHardEdgeClamps(t *testing.T) {
	b := edgeImage(t, 12, 4, 0, 255)
	out, err := Apply(b, 100)
	require.NoError(t, err)
	// overshoot on both sides of a black/white edge is clamped back into range
	assert.True(t, b.Equal(out))
}

func TestUnsharpMaskOvershoot(t *testing.T) {
	b := edgeImage(t, 12, 4, 40, 200)
	out, err := UnsharpMask(b, ParamsFromSlider(100))
	require.NoError(t, err)
	dark := out.Pix[out.Offset(5, 1)]
	bright := out.Pix[out.Offset(6, 1)]
	assert.Less(t, dark, uint8(40))
	assert.Greater(t, bright, uint8(200))
	// far from the edge the blur difference is zero
	assert.Equal(t, uint8(40), out.Pix[out.Offset(0, 1)])
	assert.Equal(t, uint8(200), out.Pix[out.Offset(11, 1)])
	for i := 3; i < len(out.Pix); i += pixbuf.Channels {
		require.Equal(t, uint8(255), out.Pix[i])
	}
}

func TestUnsharpMaskThresholdGate(t *testing.T) {
	b, err := pixbuf.New(16, 16)
	require.NoError(t, err)
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			off := b.Offset(x, y)
			b.Pix[off+0] = uint8(100 + x)
			b.Pix[off+1] = uint8(60 + (x*y)%9)
			b.Pix[off+2] = uint8(10 * ((x + y) % 3))
			b.Pix[off+3] = 255
		}
	}
	p := Params{Amount: 150, Radius: 2, Threshold: 4}
	blurred, err := blur.GaussianBlur(b, p.Radius, 0)
	require.NoError(t, err)
	out, err := UnsharpMask(b, p)
	require.NoError(t, err)

	gated := 0
	for i := 0; i < len(b.Pix); i += pixbuf.Channels {
		for c := 0; c < 3; c++ {
			if math.Abs(float64(b.Pix[i+c])-float64(blurred.Pix[i+c])) < p.Threshold {
				gated++
				require.Equal(t, b.Pix[i+c], out.Pix[i+c], "index %d", i+c)
			}
		}
	}
	assert.Greater(t, gated, 0)
}

func TestApplyNegativeBlurs(t *testing.T) {
	b := edgeImage(t, 12, 4, 0, 255)
	out, err := Apply(b, -60)
	require.NoError(t, err)
	assert.Greater(t, out.Pix[out.Offset(5, 0)], uint8(0))
	assert.Less(t, out.Pix[out.Offset(6, 0)], uint8(255))

	same, err := Apply(b, 0)
	require.NoError(t, err)
	assert.True(t, b.Equal(same))
}
