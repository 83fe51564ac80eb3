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

package filter

import (
	"github.com/mlnoga/retouch/internal/pixbuf"
)

// A compiled filter chain. Adjacent matrices are multiplied into one, adjacent curves
// composed into one, and a leading curve is tabulated for all 256 input values
type Program struct {
	lut   *[256]float64 // Leading curve on 8-bit input, or nil
	steps []Filter
}

// Compiles the chain into a program
func (c Chain) Compile() *Program {
	var steps []Filter
	for _, f := range c {
		if n := len(steps); n > 0 && steps[n-1].Kind == f.Kind && f.Kind != KindPixel {
			last := &steps[n-1]
			if f.Kind == KindMatrix {
				last.Matrix = last.Matrix.Then(f.Matrix)
			} else {
				first, second := last.Curve, f.Curve
				last.Curve = func(v float64) float64 { return second(first(v)) }
			}
			last.Name += "+" + f.Name
			continue
		}
		steps = append(steps, f)
	}

	p := &Program{steps: steps}
	if len(steps) > 0 && steps[0].Kind == KindCurve {
		p.lut = new([256]float64)
		for i := range p.lut {
			p.lut[i] = steps[0].Curve(float64(i) / 255)
		}
		p.steps = steps[1:]
	}
	return p
}

// Number of fused steps, including a leading lookup table
func (p *Program) Len() int {
	n := len(p.steps)
	if p.lut != nil {
		n++
	}
	return n
}

// Returns true if the program does nothing
func (p *Program) IsEmpty() bool {
	return p.Len() == 0
}

// Applies the program to each pixel of the buffer, returning a new buffer. Results are
// clamped to [0,255]. Alpha is copied. An empty program returns a copy
func (p *Program) Apply(b *pixbuf.Buffer) (*pixbuf.Buffer, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	if p.IsEmpty() {
		return b.Clone(), nil
	}
	out := b.NewLike()
	for i := 0; i < len(b.Pix); i += pixbuf.Channels {
		var r, g, bl float64
		if p.lut != nil {
			r, g, bl = p.lut[b.Pix[i+0]], p.lut[b.Pix[i+1]], p.lut[b.Pix[i+2]]
		} else {
			r, g, bl = float64(b.Pix[i+0])/255, float64(b.Pix[i+1])/255, float64(b.Pix[i+2])/255
		}
		for s := range p.steps {
			r, g, bl = p.steps[s].Eval(r, g, bl)
		}
		out.Pix[i+0] = pixbuf.ClampToUint8(r * 255)
		out.Pix[i+1] = pixbuf.ClampToUint8(g * 255)
		out.Pix[i+2] = pixbuf.ClampToUint8(bl * 255)
	}
	return out, nil
}
