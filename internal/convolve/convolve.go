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

package convolve

import (
	"github.com/mlnoga/retouch/internal/pixbuf"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
)

// A 2D convolution kernel with odd dimensions, stored row by row.
// Results are divided by Divisor, then Offset is added
type Kernel struct {
	Weights []float64
	Width   int
	Height  int
	Divisor float64
	Offset  float64
}

// Creates a kernel whose divisor is the sum of the weights, or 1 if that sum is zero
func NewKernel(weights []float64, width, height int) (*Kernel, error) {
	divisor := floats.Sum(weights)
	if divisor == 0 {
		divisor = 1
	}
	return NewKernelWithDivisor(weights, width, height, divisor, 0)
}

// Creates a kernel with explicit divisor and offset
func NewKernelWithDivisor(weights []float64, width, height int, divisor, offset float64) (*Kernel, error) {
	if width <= 0 || height <= 0 || width%2 == 0 || height%2 == 0 {
		return nil, errors.Errorf("kernel dimensions %dx%d must be positive and odd", width, height)
	}
	if len(weights) != width*height {
		return nil, errors.Errorf("kernel %dx%d needs %d weights, have %d", width, height, width*height, len(weights))
	}
	if divisor == 0 {
		divisor = 1
	}
	return &Kernel{
		Weights: append([]float64(nil), weights...),
		Width:   width,
		Height:  height,
		Divisor: divisor,
		Offset:  offset,
	}, nil
}

// Replicates edge pixels for out of bounds coordinates
func clampIndex(size, x int) int {
	if x < 0 {
		return 0
	}
	if x >= size {
		return size - 1
	}
	return x
}

// Convolves the RGB channels of the buffer with the given 2D kernel, returning a new buffer.
// Out of bounds samples are clamped to the nearest edge pixel. Alpha is copied unchanged
func Convolve(b *pixbuf.Buffer, k *Kernel) (*pixbuf.Buffer, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	if k == nil {
		return nil, errors.New("nil kernel")
	}
	out := b.NewLike()
	kx, ky := k.Width/2, k.Height/2
	scale := 1 / k.Divisor
	for y := 0; y < b.Height; y++ {
		for x := 0; x < b.Width; x++ {
			var sumR, sumG, sumB float64
			for j := -ky; j <= ky; j++ {
				yy := clampIndex(b.Height, y+j)
				row := (j + ky) * k.Width
				for i := -kx; i <= kx; i++ {
					w := k.Weights[row+i+kx]
					if w == 0 {
						continue
					}
					off := b.Offset(clampIndex(b.Width, x+i), yy)
					sumR += float64(b.Pix[off+0]) * w
					sumG += float64(b.Pix[off+1]) * w
					sumB += float64(b.Pix[off+2]) * w
				}
			}
			off := b.Offset(x, y)
			out.Pix[off+0] = pixbuf.ClampToUint8(sumR*scale + k.Offset)
			out.Pix[off+1] = pixbuf.ClampToUint8(sumG*scale + k.Offset)
			out.Pix[off+2] = pixbuf.ClampToUint8(sumB*scale + k.Offset)
		}
	}
	return out, nil
}

// Convolves the RGB channels of the buffer with the given 1D kernel, first along the x axis and
// then along the y axis. Equivalent to a 2D convolution with the outer product of the kernel
// with itself. The intermediate result keeps full precision; rounding happens once.
// A kernel of length 1 returns a copy
func SeparableConvolve(b *pixbuf.Buffer, kernel []float64) (*pixbuf.Buffer, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	if len(kernel)%2 == 0 {
		return nil, errors.Errorf("separable kernel length %d must be odd", len(kernel))
	}
	if len(kernel) == 1 {
		return b.Clone(), nil
	}

	width, height := b.Width, b.Height
	planes := make([][]float32, 3)
	for c := range planes {
		planes[c] = make([]float32, width*height)
	}
	tmp := make([]float32, width*height)
	for c, plane := range planes {
		for i := range plane {
			plane[i] = float32(b.Pix[i*pixbuf.Channels+c])
		}
		Convolve1DX(tmp, plane, width, kernel)
		Convolve1DY(plane, tmp, width, kernel)
	}

	out := b.NewLike()
	for c, plane := range planes {
		for i, v := range plane {
			out.Pix[i*pixbuf.Channels+c] = pixbuf.ClampToUint8(float64(v))
		}
	}
	return out, nil
}

// Convolves the 2D plane given by data and width with the kernel along the x axis, storing the result in res
func Convolve1DX(res, data []float32, width int, kernel []float64) {
	height := len(data) / width
	k := len(kernel) / 2
	for y := 0; y < height; y++ {
		row := data[y*width : (y+1)*width]
		for x := 0; x < width; x++ {
			sum := float64(0)
			for i := -k; i <= k; i++ {
				sum += float64(row[clampIndex(width, x+i)]) * kernel[i+k]
			}
			res[y*width+x] = float32(sum)
		}
	}
}

// Convolves the 2D plane given by data and width with the kernel along the y axis, storing the result in res
func Convolve1DY(res, data []float32, width int, kernel []float64) {
	height := len(data) / width
	k := len(kernel) / 2
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			sum := float64(0)
			for i := -k; i <= k; i++ {
				sum += float64(data[clampIndex(height, y+i)*width+x]) * kernel[i+k]
			}
			res[y*width+x] = float32(sum)
		}
	}
}
