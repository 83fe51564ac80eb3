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

// Package filter implements the parametric tone and colour adjustments as a chain of
// per-pixel filter functions, compiled once per render into a fused program.
package filter

import (
	"math"

	"github.com/mlnoga/retouch/internal/luminance"
	"github.com/mlnoga/retouch/internal/params"
)

// Kind of a filter function
type Kind int

const (
	KindMatrix Kind = iota // Affine 3x4 colour matrix
	KindCurve              // Same tone curve on each channel
	KindPixel              // Arbitrary function of the whole pixel
)

// An affine colour transform on normalized RGB, stored row by row.
// Output channel i is M[4i]*r + M[4i+1]*g + M[4i+2]*b + M[4i+3]
type Matrix [12]float64

// The identity transform
var Identity = Matrix{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0}

// Scales each channel by the given gain
func Gains(r, g, b float64) Matrix {
	return Matrix{r, 0, 0, 0, 0, g, 0, 0, 0, 0, b, 0}
}

// Returns the transform applying m first, then n
func (m Matrix) Then(n Matrix) Matrix {
	var out Matrix
	for row := 0; row < 3; row++ {
		for col := 0; col < 4; col++ {
			sum := 0.0
			for k := 0; k < 3; k++ {
				sum += n[row*4+k] * m[k*4+col]
			}
			if col == 3 {
				sum += n[row*4+3]
			}
			out[row*4+col] = sum
		}
	}
	return out
}

// Applies the transform to a pixel
func (m *Matrix) Apply(r, g, b float64) (float64, float64, float64) {
	return m[0]*r + m[1]*g + m[2]*b + m[3],
		m[4]*r + m[5]*g + m[6]*b + m[7],
		m[8]*r + m[9]*g + m[10]*b + m[11]
}

// One parametric adjustment. Only the field matching Kind is used
type Filter struct {
	Name   string
	Kind   Kind
	Matrix Matrix
	Curve  func(v float64) float64
	Pixel  func(r, g, b float64) (float64, float64, float64)
}

// Evaluates the filter on a normalized pixel
func (f *Filter) Eval(r, g, b float64) (float64, float64, float64) {
	switch f.Kind {
	case KindMatrix:
		return f.Matrix.Apply(r, g, b)
	case KindCurve:
		return f.Curve(r), f.Curve(g), f.Curve(b)
	}
	return f.Pixel(r, g, b)
}

// Hermite interpolation between 0 at edge0 and 1 at edge1
func smoothstep(edge0, edge1, x float64) float64 {
	t := (x - edge0) / (edge1 - edge0)
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	return t * t * (3 - 2*t)
}

// Exposure in stops: two stops at slider 100
func Exposure(exposure int) Filter {
	gain := math.Pow(2, 2*float64(exposure)/100)
	return Filter{Name: "exposure", Kind: KindMatrix, Matrix: Gains(gain, gain, gain)}
}

func Brightness(brightness int) Filter {
	gain := 1 + float64(brightness)/100
	return Filter{Name: "brightness", Kind: KindMatrix, Matrix: Gains(gain, gain, gain)}
}

// Contrast around mid grey. Positive values steepen superlinearly, negative values flatten
func Contrast(contrast int) Filter {
	c := float64(contrast) / 100
	k := 1 + 0.75*c
	if c >= 0 {
		k = math.Pow(1+c, 1.5)
	}
	offset := 0.5 * (1 - k)
	return Filter{Name: "contrast", Kind: KindMatrix, Matrix: Matrix{k, 0, 0, offset, 0, k, 0, offset, 0, 0, k, offset}}
}

// Moves the upper half of the tone range
func Whites(whites int) Filter {
	w := float64(whites) / 100
	return Filter{Name: "whites", Kind: KindCurve, Curve: func(v float64) float64 {
		return v + 0.25*w*smoothstep(0.5, 1, v)
	}}
}

// Moves the lower half of the tone range
func Blacks(blacks int) Filter {
	bl := float64(blacks) / 100
	return Filter{Name: "blacks", Kind: KindCurve, Curve: func(v float64) float64 {
		return v + 0.25*bl*(1-smoothstep(0, 0.5, v))
	}}
}

// Warms (positive) or cools (negative) the image via red and blue gains
func Temperature(temperature int) Filter {
	t := float64(temperature) / 100
	return Filter{Name: "temperature", Kind: KindMatrix, Matrix: Gains(1+0.2*t, 1, 1-0.2*t)}
}

// Shifts towards magenta (positive) or green (negative)
func Tint(tint int) Filter {
	t := float64(tint) / 100
	return Filter{Name: "tint", Kind: KindMatrix, Matrix: Gains(1+0.1*t, 1-0.2*t, 1+0.1*t)}
}

// Scales chroma uniformly around the BT.709 luminance axis
func Saturation(saturation int) Filter {
	s := 1 + float64(saturation)/100
	wr, wg, wb := luminance.WeightR, luminance.WeightG, luminance.WeightB
	return Filter{Name: "saturation", Kind: KindMatrix, Matrix: Matrix{
		wr + (1-wr)*s, wg - wg*s, wb - wb*s, 0,
		wr - wr*s, wg + (1-wg)*s, wb - wb*s, 0,
		wr - wr*s, wg - wg*s, wb + (1-wb)*s, 0,
	}}
}

// Scales chroma with more effect on weakly saturated pixels
func Vibrance(vibrance int) Filter {
	v := float64(vibrance) / 100
	return Filter{Name: "vibrance", Kind: KindPixel, Pixel: func(r, g, b float64) (float64, float64, float64) {
		l := luminance.Luminance(r, g, b)
		sat := math.Max(r, math.Max(g, b)) - math.Min(r, math.Min(g, b))
		f := 1 + v*(1-sat)
		return l + (r-l)*f, l + (g-l)*f, l + (b-l)*f
	}}
}

// Lifts blacks and lowers whites for a faded look
func Fade(fade int) Filter {
	f := float64(fade) / 100
	return Filter{Name: "fade", Kind: KindCurve, Curve: func(v float64) float64 {
		return 0.2*f + v*(1-0.3*f)
	}}
}

// An ordered list of filters
type Chain []Filter

// Builds the chain for the parametric parameters, in the fixed order exposure, brightness,
// contrast, whites, blacks, temperature, tint, saturation, vibrance, fade.
// Parameters at zero contribute no filter
func FromParameters(p params.AdjustmentParameters) Chain {
	var c Chain
	add := func(v int, mk func(int) Filter) {
		if v != 0 {
			c = append(c, mk(v))
		}
	}
	add(p.Exposure, Exposure)
	add(p.Brightness, Brightness)
	add(p.Contrast, Contrast)
	add(p.Whites, Whites)
	add(p.Blacks, Blacks)
	add(p.Temperature, Temperature)
	add(p.Tint, Tint)
	add(p.Saturation, Saturation)
	add(p.Vibrance, Vibrance)
	add(p.FadeAmount, Fade)
	return c
}

// Names of the filters in the chain
func (c Chain) Names() []string {
	names := make([]string, len(c))
	for i, f := range c {
		names[i] = f.Name
	}
	return names
}

// Evaluates all filters in sequence on a normalized pixel, without fusion
func (c Chain) Eval(r, g, b float64) (float64, float64, float64) {
	for i := range c {
		r, g, b = c[i].Eval(r, g, b)
	}
	return r, g, b
}
