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
	"github.com/mlnoga/retouch/internal/luminance"
	"github.com/mlnoga/retouch/internal/pixbuf"
	"github.com/valyala/fastrand"
)

const (
	DefaultGrainSize = 25
	MaxGrainStrength = 0.2 // Noise amplitude at amount 100, relative to full scale
)

// Edge length in pixels of one grain cell, from 1 to 4
func GrainCellSize(size int) int {
	return 1 + int(math32.Floor(float32(clampAmount(size, 0, 100))/100*3+0.5))
}

// Adds film grain, i.e. monochrome noise in square cells, weighted towards midtones.
// Amount and size are in [0,100]. The noise pattern is a function of the image dimensions,
// so repeated renders of the same image produce identical output
func Grain(b *pixbuf.Buffer, amount, size int) (*pixbuf.Buffer, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	strength := float32(clampAmount(amount, 0, 100)) / 100 * MaxGrainStrength * 255
	if strength == 0 {
		return b.Clone(), nil
	}
	cell := GrainCellSize(size)
	cellsX, cellsY := (b.Width+cell-1)/cell, (b.Height+cell-1)/cell

	var rng fastrand.RNG
	rng.Seed(grainSeed(b.Width, b.Height))
	noise := make([]float32, cellsX*cellsY)
	for i := range noise {
		// triangular distribution in [-1,1)
		noise[i] = float32(rng.Uint32n(1<<16)+rng.Uint32n(1<<16))/(1<<16) - 1
	}

	out := b.NewLike()
	for y := 0; y < b.Height; y++ {
		row := noise[(y/cell)*cellsX:]
		for x := 0; x < b.Width; x++ {
			off := b.Offset(x, y)
			r, g, bl := b.Pix[off+0], b.Pix[off+1], b.Pix[off+2]
			l := float32(luminance.Normalized(r, g, bl))
			m := 2*l - 1
			delta := row[x/cell] * strength * (1 - 0.5*m*m)
			out.Pix[off+0] = pixbuf.ClampToUint8(float64(float32(r) + delta))
			out.Pix[off+1] = pixbuf.ClampToUint8(float64(float32(g) + delta))
			out.Pix[off+2] = pixbuf.ClampToUint8(float64(float32(bl) + delta))
		}
	}
	return out, nil
}

// Non-zero seed derived from the image dimensions
func grainSeed(width, height int) uint32 {
	return uint32(width)*73856093 ^ uint32(height)*19349663 | 1
}
