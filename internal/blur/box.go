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
	"github.com/mlnoga/retouch/internal/pixbuf"
)

// Applies a box blur of the given radius with two sliding window passes.
// Lower quality than GaussianBlur, intended for quick previews only
func BoxBlur(b *pixbuf.Buffer, radius int) (*pixbuf.Buffer, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	if radius > MaxRadius {
		radius = MaxRadius
	}
	if radius <= 0 {
		return b.Clone(), nil
	}

	width, height := b.Width, b.Height
	plane := make([]float32, width*height)
	tmp := make([]float32, width*height)
	out := b.NewLike()
	for c := 0; c < 3; c++ {
		for i := range plane {
			plane[i] = float32(b.Pix[i*pixbuf.Channels+c])
		}
		boxPass(tmp, plane, width, height, 1, width, radius)
		boxPass(plane, tmp, height, width, width, 1, radius)
		for i, v := range plane {
			out.Pix[i*pixbuf.Channels+c] = pixbuf.ClampToUint8(float64(v))
		}
	}
	return out, nil
}

// Runs a sliding window mean over lines of the given length. Step is the distance between
// neighbouring samples on a line, stride the distance between lines. Edges are replicated
func boxPass(res, data []float32, length, lines, step, stride, radius int) {
	scale := 1 / float32(2*radius+1)
	for l := 0; l < lines; l++ {
		base := l * stride
		at := func(i int) float32 {
			if i < 0 {
				i = 0
			} else if i >= length {
				i = length - 1
			}
			return data[base+i*step]
		}
		sum := float32(0)
		for i := -radius; i <= radius; i++ {
			sum += at(i)
		}
		for i := 0; i < length; i++ {
			res[base+i*step] = sum * scale
			sum += at(i+radius+1) - at(i-radius)
		}
	}
}
