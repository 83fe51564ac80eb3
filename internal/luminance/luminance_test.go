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
	"math"
	"testing"
)

func TestLuminanceWeights(t *testing.T) {
	if got := Luminance(255, 255, 255); math.Abs(got-255) > 1e-9 {
		t.Errorf("white luminance %f; want 255", got)
	}
	if got := Normalized(255, 0, 0); math.Abs(got-WeightR) > 1e-9 {
		t.Errorf("red luminance %f; want %f", got, WeightR)
	}
	if got := Normalized(0, 0, 0); got != 0 {
		t.Errorf("black luminance %f; want 0", got)
	}
}

func TestHSLRoundTripAchromaticExact(t *testing.T) {
	for v := 0; v < 256; v++ {
		h, s, l := RGBToHSL(uint8(v), uint8(v), uint8(v))
		if s != 0 {
			t.Fatalf("v=%d s=%f; want 0", v, s)
		}
		r, g, b := HSLToRGB(h, s, l)
		if int(r) != v || int(g) != v || int(b) != v {
			t.Fatalf("v=%d round trip (%d,%d,%d)", v, r, g, b)
		}
	}
}

func TestHSLRoundTripWithinOne(t *testing.T) {
	for r := 0; r < 256; r += 15 {
		for g := 0; g < 256; g += 17 {
			for b := 0; b < 256; b += 13 {
				h, s, l := RGBToHSL(uint8(r), uint8(g), uint8(b))
				r2, g2, b2 := HSLToRGB(h, s, l)
				if absDiff(r, int(r2)) > 1 || absDiff(g, int(g2)) > 1 || absDiff(b, int(b2)) > 1 {
					t.Errorf("(%d,%d,%d) -> (%d,%d,%d)", r, g, b, r2, g2, b2)
				}
			}
		}
	}
}

func TestPreserveColorWithLuminanceGray(t *testing.T) {
	for _, v := range []uint8{0, 1, 64, 128, 200, 255} {
		for _, newL := range []float64{0, 0.1, 0.333, 0.5, 0.75, 1} {
			want := uint8(math.Round(255 * newL))
			r, g, b := PreserveColorWithLuminance(v, v, v, newL)
			if r != want || g != want || b != want {
				t.Errorf("v=%d newL=%f -> (%d,%d,%d); want %d", v, newL, r, g, b, want)
			}
		}
	}
}

func TestPreserveColorWithLuminanceUnchanged(t *testing.T) {
	colors := [][3]uint8{{200, 40, 40}, {10, 120, 240}, {255, 255, 0}, {90, 91, 92}}
	for _, c := range colors {
		r, g, b := PreserveColorWithLuminance(c[0], c[1], c[2], Normalized(c[0], c[1], c[2]))
		if absDiff(int(c[0]), int(r)) > 1 || absDiff(int(c[1]), int(g)) > 1 || absDiff(int(c[2]), int(b)) > 1 {
			t.Errorf("%v -> (%d,%d,%d)", c, r, g, b)
		}
	}
}

func TestPreserveColorKeepsHue(t *testing.T) {
	h0, _, _ := RGBToHSL(200, 60, 30)
	r, g, b := PreserveColorWithLuminance(200, 60, 30, Normalized(200, 60, 30)+0.1)
	h1, _, _ := RGBToHSL(r, g, b)
	if math.Abs(h0-h1) > 2 {
		t.Errorf("hue moved from %f to %f", h0, h1)
	}
	if Normalized(r, g, b) <= Normalized(200, 60, 30) {
		t.Errorf("luminance did not increase")
	}
}

func TestPreserveColorNaN(t *testing.T) {
	r, g, b := PreserveColorWithLuminance(10, 20, 30, math.NaN())
	if r != 10 || g != 20 || b != 30 {
		t.Errorf("NaN luminance changed the pixel to (%d,%d,%d)", r, g, b)
	}
}

func absDiff(a, b int) int {
	if a > b {
		return a - b
	}
	return b - a
}
