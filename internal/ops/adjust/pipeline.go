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

// Package adjust provides one operator per adjustment stage, and composes them
// into the rendering pipeline.
package adjust

import (
	"fmt"
	"io"

	"github.com/mlnoga/retouch/internal/ops"
	"github.com/mlnoga/retouch/internal/params"
	"github.com/mlnoga/retouch/internal/pixbuf"
	"github.com/pkg/errors"
)

// Operator types of the pipeline stages, in execution order
var StageOrder = []string{"dehaze", "selectiveTone", "clarity", "sharpen", "vignette", "grain", "parametric"}

// Builds the rendering pipeline for the given parameters. Stages run in the fixed order
// dehaze, selective tone, clarity, sharpen, vignette, grain, parametric. Stages whose
// parameters are neutral are inactive and pass their input through
func NewOpPipeline(p params.AdjustmentParameters) *ops.OpSequence {
	return ops.NewOpSequence(
		NewOpDehaze(p.Dehaze),
		NewOpSelectiveTone(p.Highlights, p.Shadows),
		NewOpClarity(p.Clarity),
		NewOpSharpen(p.Sharpness),
		NewOpVignette(p.VignetteAmount, p.VignetteSize, p.VignetteFeather),
		NewOpGrain(p.GrainAmount, p.GrainSize),
		NewOpParametric(p),
	)
}

// Output of a render
type Result struct {
	Buffer   *pixbuf.Buffer
	Params   params.AdjustmentParameters // Parameters after clamping
	Warnings []params.Warning
}

// Renders the source buffer with the given parameters. Parameters are clamped into their
// documented ranges first, and extreme combinations reported as warnings. The source is
// never modified, and the result is always a distinct buffer of the same dimensions and alpha
func Render(src *pixbuf.Buffer, p params.AdjustmentParameters, c *ops.Context) (*Result, error) {
	if err := src.Validate(); err != nil {
		return nil, err
	}
	if c == nil {
		c = ops.NewContext(io.Discard)
	}
	clamped := p.Clamped()
	warnings := clamped.DetectExtremes()
	for _, w := range warnings {
		fmt.Fprintf(c.Log, "%d: Warning: %s\n", src.ID, w)
	}

	pipeline := NewOpPipeline(clamped)
	outs, err := pipeline.MakePromises([]ops.Promise{ops.PromiseOf(src)}, c)
	if err != nil {
		return nil, err
	}
	if len(outs) != 1 {
		return nil, errors.Errorf("pipeline returned %d outputs", len(outs))
	}
	out, err := outs[0]()
	if err != nil {
		return nil, errors.Wrapf(err, "%d: rendering", src.ID)
	}
	if out == src {
		out = src.Clone()
	}
	return &Result{Buffer: out, Params: clamped, Warnings: warnings}, nil
}

// Applies the pipeline to each input and passes the results on. Takes n inputs, produces n outputs
type OpRender struct {
	ops.OpBase
	Params params.AdjustmentParameters `json:"params"`
}

func init() { ops.SetOperatorFactory(func() ops.Operator { return NewOpRenderDefault() }) } // register the operator for JSON decoding

func NewOpRenderDefault() *OpRender { return NewOpRender(params.Default()) }

func NewOpRender(p params.AdjustmentParameters) *OpRender {
	return &OpRender{
		OpBase: ops.OpBase{Type: "render", Active: true},
		Params: p,
	}
}

func (op *OpRender) MakePromises(ins []ops.Promise, c *ops.Context) (outs []ops.Promise, err error) {
	if len(ins) == 0 {
		return nil, errors.Errorf("%s operator with no inputs", op.Type)
	}
	outs = make([]ops.Promise, len(ins))
	for i, in := range ins {
		theIn := in
		outs[i] = func() (*pixbuf.Buffer, error) {
			b, err := theIn()
			if err != nil {
				return nil, err
			}
			if !op.Active {
				return b, nil
			}
			res, err := Render(b, op.Params, c)
			if err != nil {
				return nil, err
			}
			return res.Buffer, nil
		}
	}
	return outs, nil
}
