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

package luminance

import (
	colorful "github.com/lucasb-eyer/go-colorful"
	"github.com/mlnoga/retouch/internal/pixbuf"
)

// ITU-R BT.709 luminance weights
const (
	WeightR = 0.2126
	WeightG = 0.7152
	WeightB = 0.0722
)

// Returns the BT.709 luminance of channel values in [0,255], in the same range
func Luminance(r, g, b float64) float64 {
	return WeightR*r + WeightG*g + WeightB*b
}

// Returns the BT.709 luminance of 8-bit channel values, normalized to [0,1]
func Normalized(r, g, b uint8) float64 {
	return Luminance(float64(r), float64(g), float64(b)) / 255
}

// Converts 8-bit RGB to hue in degrees [0,360), saturation and lightness in [0,1]
func RGBToHSL(r, g, b uint8) (h, s, l float64) {
	c := colorful.Color{R: float64(r) / 255, G: float64(g) / 255, B: float64(b) / 255}
	return c.Hsl()
}

// Converts hue in degrees, saturation and lightness in [0,1] back to rounded 8-bit RGB
func HSLToRGB(h, s, l float64) (r, g, b uint8) {
	c := colorful.Hsl(h, pixbuf.Clamp01(s), pixbuf.Clamp01(l))
	return pixbuf.ClampToUint8(c.R * 255), pixbuf.ClampToUint8(c.G * 255), pixbuf.ClampToUint8(c.B * 255)
}

// Rebuilds a pixel at a new luminance in [0,1], keeping the hue and saturation of the original.
// The HSL lightness moves by the change in luminance, so achromatic pixels land exactly on the
// new luminance and an unchanged luminance reproduces the original pixel
func PreserveColorWithLuminance(r, g, b uint8, newLuminance float64) (uint8, uint8, uint8) {
	if newLuminance != newLuminance {
		return r, g, b
	}
	h, s, l := RGBToHSL(r, g, b)
	delta := newLuminance - Normalized(r, g, b)
	if r == g && g == b {
		// exact for greys, avoids accumulating the weight rounding error
		v := pixbuf.ClampToUint8(255 * newLuminance)
		return v, v, v
	}
	return HSLToRGB(h, s, l+delta)
}
