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

package adjust

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mlnoga/retouch/internal/clarity"
	"github.com/mlnoga/retouch/internal/effects"
	"github.com/mlnoga/retouch/internal/filter"
	"github.com/mlnoga/retouch/internal/ops"
	"github.com/mlnoga/retouch/internal/params"
	"github.com/mlnoga/retouch/internal/pixbuf"
	"github.com/mlnoga/retouch/internal/sharpen"
	"github.com/mlnoga/retouch/internal/tone"
)

// Removes or adds atmospheric haze
type OpDehaze struct {
	ops.OpUnaryBase
	Amount int `json:"amount"`
}

func init() { ops.SetOperatorFactory(func() ops.Operator { return NewOpDehazeDefault() }) } // register the operator for JSON decoding

func NewOpDehazeDefault() *OpDehaze { return NewOpDehaze(0) }

func NewOpDehaze(amount int) *OpDehaze {
	op := &OpDehaze{
		OpUnaryBase: ops.OpUnaryBase{OpBase: ops.OpBase{Type: "dehaze", Active: amount != 0}},
		Amount:      amount,
	}
	op.OpUnaryBase.Apply = op.Apply // assign class method to superclass abstract method
	return op
}

// Unmarshal the type from JSON with default values for missing entries
func (op *OpDehaze) UnmarshalJSON(data []byte) error {
	type defaults OpDehaze
	def := defaults(*NewOpDehazeDefault())
	err := json.Unmarshal(data, &def)
	if err != nil {
		return err
	}
	*op = OpDehaze(def)
	op.OpUnaryBase.Apply = op.Apply // make method receiver point to op, not def
	return nil
}

func (op *OpDehaze) Apply(b *pixbuf.Buffer, c *ops.Context) (bOut *pixbuf.Buffer, err error) {
	if !op.Active || op.Amount == 0 {
		return b, nil
	}
	fmt.Fprintf(c.Log, "%d: Dehaze with amount %d\n", b.ID, op.Amount)
	return effects.Dehaze(b, op.Amount)
}

// Brightens or darkens highlights and shadows while keeping colours
type OpSelectiveTone struct {
	ops.OpUnaryBase
	Highlights int     `json:"highlights"`
	Shadows    int     `json:"shadows"`
	Feather    float64 `json:"feather"`
}

func init() { ops.SetOperatorFactory(func() ops.Operator { return NewOpSelectiveToneDefault() }) } // register the operator for JSON decoding

func NewOpSelectiveToneDefault() *OpSelectiveTone { return NewOpSelectiveTone(0, 0) }

func NewOpSelectiveTone(highlights, shadows int) *OpSelectiveTone {
	op := &OpSelectiveTone{
		OpUnaryBase: ops.OpUnaryBase{OpBase: ops.OpBase{Type: "selectiveTone", Active: highlights != 0 || shadows != 0}},
		Highlights:  highlights,
		Shadows:     shadows,
		Feather:     tone.DefaultFeather,
	}
	op.OpUnaryBase.Apply = op.Apply // assign class method to superclass abstract method
	return op
}

// Unmarshal the type from JSON with default values for missing entries
func (op *OpSelectiveTone) UnmarshalJSON(data []byte) error {
	type defaults OpSelectiveTone
	def := defaults(*NewOpSelectiveToneDefault())
	err := json.Unmarshal(data, &def)
	if err != nil {
		return err
	}
	*op = OpSelectiveTone(def)
	op.OpUnaryBase.Apply = op.Apply // make method receiver point to op, not def
	return nil
}

func (op *OpSelectiveTone) Apply(b *pixbuf.Buffer, c *ops.Context) (bOut *pixbuf.Buffer, err error) {
	if !op.Active || (op.Highlights == 0 && op.Shadows == 0) {
		return b, nil
	}
	fmt.Fprintf(c.Log, "%d: Selective tone with highlights %d shadows %d feather %.2f\n", b.ID, op.Highlights, op.Shadows, op.Feather)
	return tone.ApplyDualSelectiveTone(b, float64(op.Highlights)/100, float64(op.Shadows)/100, op.Feather)
}

// Enhances or softens local contrast with a multi-scale pyramid
type OpClarity struct {
	ops.OpUnaryBase
	Amount int `json:"amount"`
}

func init() { ops.SetOperatorFactory(func() ops.Operator { return NewOpClarityDefault() }) } // register the operator for JSON decoding

func NewOpClarityDefault() *OpClarity { return NewOpClarity(0) }

func NewOpClarity(amount int) *OpClarity {
	op := &OpClarity{
		OpUnaryBase: ops.OpUnaryBase{OpBase: ops.OpBase{Type: "clarity", Active: amount != 0}},
		Amount:      amount,
	}
	op.OpUnaryBase.Apply = op.Apply // assign class method to superclass abstract method
	return op
}

// Unmarshal the type from JSON with default values for missing entries
func (op *OpClarity) UnmarshalJSON(data []byte) error {
	type defaults OpClarity
	def := defaults(*NewOpClarityDefault())
	err := json.Unmarshal(data, &def)
	if err != nil {
		return err
	}
	*op = OpClarity(def)
	op.OpUnaryBase.Apply = op.Apply // make method receiver point to op, not def
	return nil
}

func (op *OpClarity) Apply(b *pixbuf.Buffer, c *ops.Context) (bOut *pixbuf.Buffer, err error) {
	if !op.Active || op.Amount == 0 {
		return b, nil
	}
	numScales, baseRadius := clarity.CalculateScaleParams(op.Amount)
	fmt.Fprintf(c.Log, "%d: Clarity with amount %d using %d scales from radius %.0f\n", b.ID, op.Amount, numScales, baseRadius)
	return clarity.Apply(b, op.Amount)
}

// Sharpens with an unsharp mask for positive amounts, blurs for negative ones
type OpSharpen struct {
	ops.OpUnaryBase
	Amount int `json:"amount"`
}

func init() { ops.SetOperatorFactory(func() ops.Operator { return NewOpSharpenDefault() }) } // register the operator for JSON decoding

func NewOpSharpenDefault() *OpSharpen { return NewOpSharpen(0) }

func NewOpSharpen(amount int) *OpSharpen {
	op := &OpSharpen{
		OpUnaryBase: ops.OpUnaryBase{OpBase: ops.OpBase{Type: "sharpen", Active: amount != 0}},
		Amount:      amount,
	}
	op.OpUnaryBase.Apply = op.Apply // assign class method to superclass abstract method
	return op
}

// Unmarshal the type from JSON with default values for missing entries
func (op *OpSharpen) UnmarshalJSON(data []byte) error {
	type defaults OpSharpen
	def := defaults(*NewOpSharpenDefault())
	err := json.Unmarshal(data, &def)
	if err != nil {
		return err
	}
	*op = OpSharpen(def)
	op.OpUnaryBase.Apply = op.Apply // make method receiver point to op, not def
	return nil
}

func (op *OpSharpen) Apply(b *pixbuf.Buffer, c *ops.Context) (bOut *pixbuf.Buffer, err error) {
	if !op.Active || op.Amount == 0 {
		return b, nil
	}
	if op.Amount > 0 {
		p := sharpen.ParamsFromSlider(op.Amount)
		fmt.Fprintf(c.Log, "%d: Unsharp mask with amount %.1f%% radius %.2f threshold %.2f\n", b.ID, p.Amount, p.Radius, p.Threshold)
	} else {
		fmt.Fprintf(c.Log, "%d: Softening with gaussian blur of radius %.2f\n", b.ID, sharpen.BlurRadiusFromSlider(op.Amount))
	}
	return sharpen.Apply(b, op.Amount)
}

// Darkens the image towards the corners
type OpVignette struct {
	ops.OpUnaryBase
	Amount  int `json:"amount"`
	Size    int `json:"size"`
	Feather int `json:"feather"`
}

func init() { ops.SetOperatorFactory(func() ops.Operator { return NewOpVignetteDefault() }) } // register the operator for JSON decoding

func NewOpVignetteDefault() *OpVignette {
	return NewOpVignette(0, effects.DefaultVignetteSize, effects.DefaultVignetteFeather)
}

func NewOpVignette(amount, size, feather int) *OpVignette {
	op := &OpVignette{
		OpUnaryBase: ops.OpUnaryBase{OpBase: ops.OpBase{Type: "vignette", Active: amount != 0}},
		Amount:      amount,
		Size:        size,
		Feather:     feather,
	}
	op.OpUnaryBase.Apply = op.Apply // assign class method to superclass abstract method
	return op
}

// Unmarshal the type from JSON with default values for missing entries
func (op *OpVignette) UnmarshalJSON(data []byte) error {
	type defaults OpVignette
	def := defaults(*NewOpVignetteDefault())
	err := json.Unmarshal(data, &def)
	if err != nil {
		return err
	}
	*op = OpVignette(def)
	op.OpUnaryBase.Apply = op.Apply // make method receiver point to op, not def
	return nil
}

func (op *OpVignette) Apply(b *pixbuf.Buffer, c *ops.Context) (bOut *pixbuf.Buffer, err error) {
	if !op.Active || op.Amount == 0 {
		return b, nil
	}
	fmt.Fprintf(c.Log, "%d: Vignette with amount %d size %d feather %d\n", b.ID, op.Amount, op.Size, op.Feather)
	return effects.Vignette(b, op.Amount, op.Size, op.Feather)
}

// Adds film grain
type OpGrain struct {
	ops.OpUnaryBase
	Amount int `json:"amount"`
	Size   int `json:"size"`
}

func init() { ops.SetOperatorFactory(func() ops.Operator { return NewOpGrainDefault() }) } // register the operator for JSON decoding

func NewOpGrainDefault() *OpGrain { return NewOpGrain(0, effects.DefaultGrainSize) }

func NewOpGrain(amount, size int) *OpGrain {
	op := &OpGrain{
		OpUnaryBase: ops.OpUnaryBase{OpBase: ops.OpBase{Type: "grain", Active: amount != 0}},
		Amount:      amount,
		Size:        size,
	}
	op.OpUnaryBase.Apply = op.Apply // assign class method to superclass abstract method
	return op
}

// Unmarshal the type from JSON with default values for missing entries
func (op *OpGrain) UnmarshalJSON(data []byte) error {
	type defaults OpGrain
	def := defaults(*NewOpGrainDefault())
	err := json.Unmarshal(data, &def)
	if err != nil {
		return err
	}
	*op = OpGrain(def)
	op.OpUnaryBase.Apply = op.Apply // make method receiver point to op, not def
	return nil
}

func (op *OpGrain) Apply(b *pixbuf.Buffer, c *ops.Context) (bOut *pixbuf.Buffer, err error) {
	if !op.Active || op.Amount == 0 {
		return b, nil
	}
	fmt.Fprintf(c.Log, "%d: Grain with amount %d cell size %d\n", b.ID, op.Amount, effects.GrainCellSize(op.Size))
	return effects.Grain(b, op.Amount, op.Size)
}

// Applies the global tone and colour adjustments as one compiled filter chain
type OpParametric struct {
	ops.OpUnaryBase
	Exposure    int `json:"exposure"`
	Brightness  int `json:"brightness"`
	Contrast    int `json:"contrast"`
	Whites      int `json:"whites"`
	Blacks      int `json:"blacks"`
	Temperature int `json:"temperature"`
	Tint        int `json:"tint"`
	Saturation  int `json:"saturation"`
	Vibrance    int `json:"vibrance"`
	Fade        int `json:"fade"`
}

func init() { ops.SetOperatorFactory(func() ops.Operator { return NewOpParametricDefault() }) } // register the operator for JSON decoding

func NewOpParametricDefault() *OpParametric { return NewOpParametric(params.AdjustmentParameters{}) }

// Takes the parametric fields from p, ignoring all others
func NewOpParametric(p params.AdjustmentParameters) *OpParametric {
	op := &OpParametric{
		OpUnaryBase: ops.OpUnaryBase{OpBase: ops.OpBase{Type: "parametric"}},
		Exposure:    p.Exposure,
		Brightness:  p.Brightness,
		Contrast:    p.Contrast,
		Whites:      p.Whites,
		Blacks:      p.Blacks,
		Temperature: p.Temperature,
		Tint:        p.Tint,
		Saturation:  p.Saturation,
		Vibrance:    p.Vibrance,
		Fade:        p.FadeAmount,
	}
	op.Active = len(op.Chain()) > 0
	op.OpUnaryBase.Apply = op.Apply // assign class method to superclass abstract method
	return op
}

// Unmarshal the type from JSON with default values for missing entries
func (op *OpParametric) UnmarshalJSON(data []byte) error {
	type defaults OpParametric
	def := defaults(*NewOpParametricDefault())
	err := json.Unmarshal(data, &def)
	if err != nil {
		return err
	}
	*op = OpParametric(def)
	op.OpUnaryBase.Apply = op.Apply // make method receiver point to op, not def
	return nil
}

// Builds the filter chain for the operator's settings
func (op *OpParametric) Chain() filter.Chain {
	return filter.FromParameters(params.AdjustmentParameters{
		Exposure:    op.Exposure,
		Brightness:  op.Brightness,
		Contrast:    op.Contrast,
		Whites:      op.Whites,
		Blacks:      op.Blacks,
		Temperature: op.Temperature,
		Tint:        op.Tint,
		Saturation:  op.Saturation,
		Vibrance:    op.Vibrance,
		FadeAmount:  op.Fade,
	})
}

func (op *OpParametric) Apply(b *pixbuf.Buffer, c *ops.Context) (bOut *pixbuf.Buffer, err error) {
	if !op.Active {
		return b, nil
	}
	chain := op.Chain()
	if len(chain) == 0 {
		return b, nil
	}
	program := chain.Compile()
	fmt.Fprintf(c.Log, "%d: Parametric adjustments %s in %d fused steps\n", b.ID, strings.Join(chain.Names(), ", "), program.Len())
	return program.Apply(b)
}
