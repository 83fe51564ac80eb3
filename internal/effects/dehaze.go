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

// Package effects implements the dehaze, vignette and film grain stages.
package effects

import (
	"math"
	"sort"

	"github.com/mlnoga/retouch/internal/blur"
	"github.com/mlnoga/retouch/internal/luminance"
	"github.com/mlnoga/retouch/internal/pixbuf"
	"gonum.org/v1/gonum/stat"
)

const (
	DarkChannelRadius = 7     // Blur radius applied to the dark channel
	AirlightQuantile  = 0.999 // Luminance quantile taken as the airlight estimate
	MinAirlight       = 0.05  // Lower bound for the airlight, normalized
	MinTransmission   = 0.1   // Lower bound for the transmission estimate
	HazeRetention     = 0.95  // Fraction of the estimated haze removed at amount 100
	AddedHazeLevel    = 0.9   // Airlight blended in for negative amounts, normalized
	AddedHazeStrength = 0.6   // Blend factor toward the added haze at amount -100
)

// Removes (positive amount) or adds (negative amount) atmospheric haze. Amount is in [-100,100].
// Removal follows the dark channel prior: the smoothed per-pixel minimum over RGB estimates
// haze density, the brightest luminance quantile estimates the airlight
func Dehaze(b *pixbuf.Buffer, amount int) (*pixbuf.Buffer, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	a := clampAmount(amount, -100, 100) / 100
	if a == 0 {
		return b.Clone(), nil
	}
	if a < 0 {
		return addHaze(b, -a), nil
	}

	dark := b.NewLike()
	lums := make([]float64, b.Pixels())
	for i, j := 0, 0; i < len(b.Pix); i, j = i+pixbuf.Channels, j+1 {
		r, g, bl := b.Pix[i+0], b.Pix[i+1], b.Pix[i+2]
		m := r
		if g < m {
			m = g
		}
		if bl < m {
			m = bl
		}
		dark.Pix[i+0], dark.Pix[i+1], dark.Pix[i+2] = m, m, m
		lums[j] = luminance.Normalized(r, g, bl)
	}
	dark, err := blur.GaussianBlur(dark, DarkChannelRadius, 0)
	if err != nil {
		return nil, err
	}
	sort.Float64s(lums)
	airlight := math.Max(MinAirlight, stat.Quantile(AirlightQuantile, stat.Empirical, lums, nil))

	out := b.NewLike()
	for i := 0; i < len(b.Pix); i += pixbuf.Channels {
		t := 1 - HazeRetention*a*float64(dark.Pix[i])/255/airlight
		if t < MinTransmission {
			t = MinTransmission
		}
		for c := 0; c < 3; c++ {
			v := float64(b.Pix[i+c]) / 255
			out.Pix[i+c] = pixbuf.ClampToUint8(((v-airlight)/t + airlight) * 255)
		}
	}
	return out, nil
}

func addHaze(b *pixbuf.Buffer, a float64) *pixbuf.Buffer {
	blend := AddedHazeStrength * a
	haze := AddedHazeLevel * 255
	out := b.NewLike()
	for i := 0; i < len(b.Pix); i += pixbuf.Channels {
		for c := 0; c < 3; c++ {
			v := float64(b.Pix[i+c])
			out.Pix[i+c] = pixbuf.ClampToUint8(v + (haze-v)*blend)
		}
	}
	return out
}

func clampAmount(amount, min, max int) float64 {
	if amount < min {
		amount = min
	}
	if amount > max {
		amount = max
	}
	return float64(amount)
}
