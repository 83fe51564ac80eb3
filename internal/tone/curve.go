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

// Package tone implements luminance-selective tone curves for highlights and shadows,
// with soft-knee compression near the ends of the range.
package tone

import (
	"math"
)

// Tonal range targeted by a selective adjustment
type Range int

const (
	Highlights Range = iota
	Shadows
)

func (r Range) String() string {
	if r == Shadows {
		return "shadows"
	}
	return "highlights"
}

const (
	HighlightCenter = 0.75 // Luminance at which the highlight mask reaches half strength
	ShadowCenter    = 0.25 // Luminance at which the shadow mask reaches half strength
	DefaultFeather  = 0.5  // Default transition width of the masks
	MinFeather      = 1e-3 // Smallest feather used, to avoid division by zero
	MaskSteepness   = 5.0  // Sigmoid steepness of the masks

	DarkenFactor = 0.5 // Darkening uses half the adjustment, being perceptually stronger

	// Luminance used in place of darker values when scaling, so a shadow lift can raise pure black
	MinLuminance = 0.02

	KneeHigh   = 0.95 // Start of the highlight soft knee
	KneeLow    = 0.05 // Start of the shadow soft knee
	KneeFactor = 0.3  // Fraction of the excess kept beyond the knee
)

// Returns the default center luminance for the tonal range
func (r Range) Center() float64 {
	if r == Shadows {
		return ShadowCenter
	}
	return HighlightCenter
}

// Sigmoid weight in (0,1) of how strongly a pixel with the given luminance belongs to the tonal range
func TonalMask(lum float64, r Range, center, feather float64) float64 {
	if feather < MinFeather {
		feather = MinFeather
	}
	distance := lum - center
	if r == Shadows {
		distance = center - lum
	}
	return 1 / (1 + math.Exp(-MaskSteepness*distance/feather))
}

// Luminance multiplier for an adjustment in [-1,1], blended with 1 by the tonal mask
func AdjustmentMultiplier(lum, adjustment float64, r Range, feather float64) float64 {
	full := 1 + adjustment
	if adjustment < 0 {
		full = 1 + adjustment*DarkenFactor
	}
	mask := TonalMask(lum, r, r.Center(), feather)
	return 1 + (full-1)*mask
}

// Compresses an adjusted luminance that the adjustment pushed beyond the knees. Only the part
// beyond max(orig, KneeHigh) or below min(orig, KneeLow) is scaled by KneeFactor, so values
// already in the extremes are never pulled back
func SoftKnee(orig, adjusted float64) float64 {
	if adjusted > KneeHigh && adjusted > orig {
		base := math.Max(orig, KneeHigh)
		return base + (adjusted-base)*KneeFactor
	}
	if adjusted < KneeLow && adjusted < orig {
		base := math.Min(orig, KneeLow)
		return base - (base-adjusted)*KneeFactor
	}
	return adjusted
}

// Adjusts a normalized luminance value for the given range, including the soft knee.
// The result is clamped to [0,1]
func AdjustLuminance(lum, adjustment float64, r Range, feather float64) float64 {
	if adjustment == 0 {
		return lum
	}
	mult := AdjustmentMultiplier(lum, adjustment, r, feather)
	adjusted := lum + math.Max(lum, MinLuminance)*(mult-1)
	adjusted = SoftKnee(lum, adjusted)
	if adjusted < 0 {
		return 0
	}
	if adjusted > 1 {
		return 1
	}
	return adjusted
}
