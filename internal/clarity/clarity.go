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

// Package clarity enhances local contrast by decomposing an image into a pyramid of
// progressively blurred levels, weighting the detail between adjacent levels, and
// reconstructing the result.
package clarity

import (
	"math"

	"github.com/mlnoga/retouch/internal/blur"
	"github.com/mlnoga/retouch/internal/pixbuf"
	"github.com/pkg/errors"
)

// Bias added to signed detail values so they fit into 8 bits
const DetailBias = 128

// One level of the pyramid. Level 0 is the original image
type ScaleLevel struct {
	Index  int            // Level number, 0 for the original
	Radius float64        // Blur radius used for this level, 0 for the original
	Image  *pixbuf.Buffer // Blurred image at this level
	Detail *pixbuf.Buffer // Biased difference to the next coarser level. Nil for the coarsest level
}

// Decomposes the buffer into numScales+1 levels. Level i>0 is the original blurred with
// radius baseRadius*2^(i-1). Each level except the coarsest gets a detail layer
// 128+finer-coarser, clamped to [0,255]
func DecomposeMultiScale(b *pixbuf.Buffer, numScales int, baseRadius float64) ([]ScaleLevel, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	if numScales < 1 {
		return nil, errors.Errorf("invalid number of scales %d", numScales)
	}
	levels := make([]ScaleLevel, numScales+1)
	levels[0] = ScaleLevel{Index: 0, Image: b}
	for i := 1; i <= numScales; i++ {
		radius := baseRadius * math.Pow(2, float64(i-1))
		blurred, err := blur.GaussianBlur(b, radius, 0)
		if err != nil {
			return nil, err
		}
		levels[i] = ScaleLevel{Index: i, Radius: radius, Image: blurred}
	}
	for i := 0; i < numScales; i++ {
		levels[i].Detail = detailLayer(levels[i].Image, levels[i+1].Image)
	}
	return levels, nil
}

func detailLayer(finer, coarser *pixbuf.Buffer) *pixbuf.Buffer {
	d := finer.NewLike()
	for i := 0; i < len(finer.Pix); i += pixbuf.Channels {
		for c := 0; c < 3; c++ {
			v := DetailBias + int(finer.Pix[i+c]) - int(coarser.Pix[i+c])
			if v < 0 {
				v = 0
			} else if v > 255 {
				v = 255
			}
			d.Pix[i+c] = uint8(v)
		}
	}
	return d
}

// Rebuilds an image from its pyramid, starting from the coarsest level and adding weighted
// detail layers from coarse to fine. Weights are indexed by level, missing weights default to 1.
// Channels are clamped after each addition. With all weights 1, the original image is
// reproduced exactly wherever the detail values did not clamp during decomposition
func ReconstructFromScales(levels []ScaleLevel, weights []float64) (*pixbuf.Buffer, error) {
	if len(levels) == 0 {
		return nil, errors.New("no scale levels")
	}
	coarsest := levels[len(levels)-1].Image
	if err := coarsest.Validate(); err != nil {
		return nil, err
	}
	acc := make([]float64, len(coarsest.Pix))
	for i, v := range coarsest.Pix {
		acc[i] = float64(v)
	}
	for l := len(levels) - 2; l >= 0; l-- {
		d := levels[l].Detail
		if d == nil {
			return nil, errors.Errorf("missing detail layer at level %d", l)
		}
		if len(d.Pix) != len(acc) {
			return nil, errors.Wrapf(pixbuf.ErrLengthMismatch, "detail layer at level %d", l)
		}
		w := 1.0
		if l < len(weights) {
			w = weights[l]
		}
		for i := 0; i < len(acc); i += pixbuf.Channels {
			for c := 0; c < 3; c++ {
				acc[i+c] = clamp255(acc[i+c] + (float64(d.Pix[i+c])-DetailBias)*w)
			}
		}
	}

	out := levels[0].Image.NewLike()
	for i := 0; i < len(acc); i += pixbuf.Channels {
		for c := 0; c < 3; c++ {
			out.Pix[i+c] = pixbuf.ClampToUint8(acc[i+c])
		}
	}
	return out, nil
}

func clamp255(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return v
}

// Weights for the detail layers of a pyramid with numScales blurred levels. Finer layers get
// the full strength s, the coarsest layer 40% of it, scaled by 0.8
func Weights(strength float64, numScales int) []float64 {
	if numScales < 1 {
		return nil
	}
	weights := make([]float64, numScales)
	for i := range weights {
		pos := 0.0
		if numScales > 1 {
			pos = float64(i) / float64(numScales-1)
		}
		weights[i] = 1 + strength*(1-pos*0.6)*0.8
	}
	return weights
}

// Selects pyramid depth and base radius for a clarity amount in [-100,100]
func CalculateScaleParams(amount int) (numScales int, baseRadius float64) {
	a := amount
	if a < 0 {
		a = -a
	}
	switch {
	case a < 30:
		return 2, 2
	case a < 60:
		return 3, 3
	}
	return 3, 4
}

// Applies clarity with the given amount in [-100,100]. Positive values enhance local
// contrast, negative values soften it. Zero returns a copy
func Apply(b *pixbuf.Buffer, amount int) (*pixbuf.Buffer, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	if amount == 0 {
		return b.Clone(), nil
	}
	if amount > 100 {
		amount = 100
	} else if amount < -100 {
		amount = -100
	}
	numScales, baseRadius := CalculateScaleParams(amount)
	levels, err := DecomposeMultiScale(b, numScales, baseRadius)
	if err != nil {
		return nil, err
	}
	return ReconstructFromScales(levels, Weights(float64(amount)/100, numScales))
}
