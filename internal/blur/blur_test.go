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

package blur

import (
	"math"
	"testing"

	"github.com/mlnoga/retouch/internal/pixbuf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGaussianKernel1D(t *testing.T) {
	epsilon := 1e-9
	for _, tc := range []struct {
		Radius int
		Sigma  float64
	}{{1, 1}, {2, 0.7}, {5, 5.0 / 3}, {20, 6.5}} {
		kernel := GaussianKernel1D(tc.Radius, tc.Sigma)
		require.Len(t, kernel, 2*tc.Radius+1)
		sum := 0.0
		for i, k := range kernel {
			sum += k
			if mirror := kernel[len(kernel)-1-i]; math.Abs(k-mirror) > epsilon {
				t.Errorf("radius=%d k[%d]=%f not symmetric with %f", tc.Radius, i, k, mirror)
			}
			if i > 0 && i <= tc.Radius && k < kernel[i-1] {
				t.Errorf("radius=%d k[%d]=%f not increasing towards center", tc.Radius, i, k)
			}
		}
		assert.InDelta(t, 1, sum, epsilon, "radius %d", tc.Radius)
	}
}

func TestGaussianKernelValues(t *testing.T) {
	kernel := GaussianKernel1D(1, 1)
	e := math.Exp(-0.5)
	want := []float64{e / (1 + 2*e), 1 / (1 + 2*e), e / (1 + 2*e)}
	assert.InDeltaSlice(t, want, kernel, 1e-12)
}

func TestNormalizeRadius(t *testing.T) {
	tcs := []struct {
		In   float64
		Want int
	}{{-3, 0}, {0, 0}, {0.4, 0}, {0.6, 1}, {2.5, 3}, {19.6, 20}, {42, 20}, {math.NaN(), 0}}
	for _, tc := range tcs {
		assert.Equal(t, tc.Want, NormalizeRadius(tc.In), "radius %v", tc.In)
	}
	assert.Equal(t, 1.0, DefaultSigma(0))
	assert.Equal(t, 2.0, DefaultSigma(6))
}

func noisy(t *testing.T, w, h int) *pixbuf.Buffer {
	b, err := pixbuf.New(w, h)
	require.NoError(t, err)
	for i := range b.Pix {
		b.Pix[i] = uint8((i*37 + (i/7)*11) % 256)
	}
	return b
}

func TestGaussianBlurRadiusZeroIsIdentity(t *testing.T) {
	b := noisy(t, 9, 5)
	out, err := GaussianBlur(b, 0, 0)
	require.NoError(t, err)
	assert.True(t, b.Equal(out))
	assert.NotSame(t, b, out)

	out, err = GaussianBlur(b, 0.3, 2)
	require.NoError(t, err)
	assert.True(t, b.Equal(out))
}

func TestGaussianBlurUniformImage(t *testing.T) {
	b, err := pixbuf.New(6, 6)
	require.NoError(t, err)
	b.Fill(17, 128, 240, 99)
	out, err := GaussianBlur(b, 4, 0)
	require.NoError(t, err)
	assert.True(t, b.Equal(out))
}

func TestGaussianBlurPreservesAlphaAndSmooths(t *testing.T) {
	b := noisy(t, 16, 12)
	out, err := GaussianBlur(b, 3, 0)
	require.NoError(t, err)
	for i := 3; i < len(b.Pix); i += pixbuf.Channels {
		require.Equal(t, b.Pix[i], out.Pix[i])
	}
	assert.Less(t, variance(out, 0), variance(b, 0))
}

func TestGaussianBlurInvalidInput(t *testing.T) {
	_, err := GaussianBlur(&pixbuf.Buffer{}, 2, 0)
	assert.ErrorIs(t, err, pixbuf.ErrInvalidDimensions)
}

func TestBoxBlur(t *testing.T) {
	b, err := pixbuf.New(3, 1)
	require.NoError(t, err)
	copy(b.Pix, []uint8{0, 0, 0, 255, 90, 90, 90, 255, 180, 180, 180, 255})
	out, err := BoxBlur(b, 1)
	require.NoError(t, err)
	assert.Equal(t, []uint8{30, 30, 30, 255, 90, 90, 90, 255, 150, 150, 150, 255}, out.Pix)

	same, err := BoxBlur(b, 0)
	require.NoError(t, err)
	assert.True(t, b.Equal(same))

	n := noisy(t, 10, 10)
	out, err = BoxBlur(n, 2)
	require.NoError(t, err)
	assert.Less(t, variance(out, 1), variance(n, 1))
}

func variance(b *pixbuf.Buffer, channel int) float64 {
	sum, sumSq := 0.0, 0.0
	for i := channel; i < len(b.Pix); i += pixbuf.Channels {
		v := float64(b.Pix[i])
		sum += v
		sumSq += v * v
	}
	n := float64(b.Pixels())
	mean := sum / n
	return sumSq/n - mean*mean
}
