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

// Package blur provides Gaussian and box blurs of pixel buffers.
package blur

import (
	"math"

	"github.com/mlnoga/retouch/internal/convolve"
	"github.com/mlnoga/retouch/internal/pixbuf"
	"gonum.org/v1/gonum/floats"
)

// Largest supported blur radius in pixels
const MaxRadius = 20

// Generates a normalized 1D gaussian kernel with 2*radius+1 taps for the given standard deviation
func GaussianKernel1D(radius int, sigma float64) []float64 {
	if radius < 0 {
		radius = 0
	}
	kernel := make([]float64, 2*radius+1)
	if sigma <= 0 {
		kernel[radius] = 1
		return kernel
	}
	twoSigmaSq := 2 * sigma * sigma
	for i := -radius; i <= radius; i++ {
		kernel[i+radius] = math.Exp(-float64(i*i) / twoSigmaSq)
	}
	floats.Scale(1/floats.Sum(kernel), kernel)
	return kernel
}

// Clamps radius into [0,MaxRadius] and rounds to the nearest integer
func NormalizeRadius(radius float64) int {
	if radius != radius || radius <= 0 {
		return 0
	}
	if radius > MaxRadius {
		radius = MaxRadius
	}
	return int(math.Round(radius))
}

// Standard deviation used when none is given: one third of the radius, at least 1
func DefaultSigma(radius int) float64 {
	sigma := float64(radius) / 3
	if sigma == 0 {
		sigma = 1
	}
	return sigma
}

// Applies a separable gaussian blur with the given radius and standard deviation.
// A non-positive sigma selects DefaultSigma. Radius 0 returns an identical copy
func GaussianBlur(b *pixbuf.Buffer, radius, sigma float64) (*pixbuf.Buffer, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	r := NormalizeRadius(radius)
	if r == 0 {
		return b.Clone(), nil
	}
	if sigma <= 0 {
		sigma = DefaultSigma(r)
	}
	return convolve.SeparableConvolve(b, GaussianKernel1D(r, sigma))
}
