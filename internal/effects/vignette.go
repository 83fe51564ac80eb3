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

package effects

import (
	"github.com/chewxy/math32"
	"github.com/mlnoga/retouch/internal/pixbuf"
)

const (
	DefaultVignetteSize    = 50
	DefaultVignetteFeather = 50
)

// Darkens the image towards the corners. Amount, size and feather are in [0,100].
// Darkening starts at normalized corner distance 0.9*size/100 and reaches full strength
// after a smooth transition of width 0.05+feather/100
func Vignette(b *pixbuf.Buffer, amount, size, feather int) (*pixbuf.Buffer, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	strength := float32(clampAmount(amount, 0, 100)) / 100
	if strength == 0 {
		return b.Clone(), nil
	}
	start := 0.9 * float32(clampAmount(size, 0, 100)) / 100
	end := start + 0.05 + float32(clampAmount(feather, 0, 100))/100

	cx, cy := float32(b.Width-1)/2, float32(b.Height-1)/2
	maxDist := math32.Sqrt(cx*cx + cy*cy)
	if maxDist == 0 {
		maxDist = 1
	}

	out := b.NewLike()
	for y := 0; y < b.Height; y++ {
		dy := float32(y) - cy
		for x := 0; x < b.Width; x++ {
			dx := float32(x) - cx
			d := math32.Sqrt(dx*dx+dy*dy) / maxDist
			factor := 1 - strength*smoothstep(start, end, d)
			off := b.Offset(x, y)
			for c := 0; c < 3; c++ {
				out.Pix[off+c] = pixbuf.ClampToUint8(float64(float32(b.Pix[off+c]) * factor))
			}
		}
	}
	return out, nil
}

// Hermite interpolation between 0 at edge0 and 1 at edge1
func smoothstep(edge0, edge1, x float32) float32 {
	if edge1 <= edge0 {
		if x < edge0 {
			return 0
		}
		return 1
	}
	t := (x - edge0) / (edge1 - edge0)
	t = math32.Max(0, math32.Min(1, t))
	return t * t * (3 - 2*t)
}
