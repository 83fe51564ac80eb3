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

// Package sharpen implements unsharp mask sharpening and the mapping from the
// sharpness slider to its parameters.
package sharpen

import (
	"math"

	"github.com/mlnoga/retouch/internal/blur"
	"github.com/mlnoga/retouch/internal/pixbuf"
)

const (
	MaxAmount     = 200.0 // Maximum sharpening amount in percent at slider 100
	MinRadius     = 1.0   // Unsharp mask radius at the low end of the slider
	MaxRadius     = 2.5   // Unsharp mask radius at slider 100
	MaxThreshold  = 5.0   // Upper bound for the edge threshold
	MaxBlurRadius = 5.0   // Blur radius at slider -100
)

// Unsharp mask parameters
type Params struct {
	Amount    float64 // Edge gain in percent
	Radius    float64 // Gaussian blur radius in pixels
	Threshold float64 // Minimum absolute edge magnitude per channel, in 0..255 units
}

// Maps a positive sharpness slider value in (0,100] to unsharp mask parameters.
// Amount grows superlinearly so low settings stay subtle
func ParamsFromSlider(slider int) Params {
	s := float64(slider) / 100
	if s <= 0 {
		return Params{Radius: MinRadius}
	}
	if s > 1 {
		s = 1
	}
	return Params{
		Amount:    MaxAmount * math.Pow(s, 1.5),
		Radius:    MinRadius + (MaxRadius-MinRadius)*s,
		Threshold: math.Min(MaxThreshold, 8*s),
	}
}

// Maps a negative sharpness slider value to a gaussian blur radius. Returns 0 for non-negative values
func BlurRadiusFromSlider(slider int) float64 {
	if slider >= 0 {
		return 0
	}
	if slider < -100 {
		slider = -100
	}
	return float64(-slider) / 100 * MaxBlurRadius
}

// Sharpens the buffer with an unsharp mask. Per channel, the difference to a gaussian blurred
// copy is amplified by amount/100 and added back, but only where its magnitude reaches the
// threshold. Channels below the threshold keep their exact original value. Alpha is copied
func UnsharpMask(b *pixbuf.Buffer, p Params) (*pixbuf.Buffer, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	blurred, err := blur.GaussianBlur(b, p.Radius, 0)
	if err != nil {
		return nil, err
	}
	gain := p.Amount / 100
	out := blurred // blurred is a private copy, reuse its storage for the result
	for i := 0; i < len(b.Pix); i += pixbuf.Channels {
		for c := 0; c < 3; c++ {
			orig := float64(b.Pix[i+c])
			edge := orig - float64(blurred.Pix[i+c])
			if math.Abs(edge) >= p.Threshold {
				out.Pix[i+c] = pixbuf.ClampToUint8(orig + edge*gain)
			} else {
				out.Pix[i+c] = b.Pix[i+c]
			}
		}
		out.Pix[i+3] = b.Pix[i+3]
	}
	return out, nil
}

// Applies the sharpness slider: positive values sharpen, negative values blur, zero copies
func Apply(b *pixbuf.Buffer, slider int) (*pixbuf.Buffer, error) {
	switch {
	case slider > 0:
		return UnsharpMask(b, ParamsFromSlider(slider))
	case slider < 0:
		return blur.GaussianBlur(b, BlurRadiusFromSlider(slider), 0)
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return b.Clone(), nil
}
