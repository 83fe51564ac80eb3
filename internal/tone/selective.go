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

package tone

import (
	"github.com/mlnoga/retouch/internal/luminance"
	"github.com/mlnoga/retouch/internal/pixbuf"
)

// Brightens or darkens one tonal range of the buffer. Adjustment is in [-1,1].
// Each pixel's luminance is adjusted and the pixel rebuilt with its original hue and saturation
func ApplySelectiveToneAdjustment(b *pixbuf.Buffer, adjustment float64, r Range, feather float64) (*pixbuf.Buffer, error) {
	if r == Shadows {
		return ApplyDualSelectiveTone(b, 0, adjustment, feather)
	}
	return ApplyDualSelectiveTone(b, adjustment, 0, feather)
}

// Applies highlight then shadow adjustments to the same luminance value of each pixel,
// followed by a single colour preserving reconstruction. Adjustments are in [-1,1].
// The order is fixed, as the two adjustments do not commute
func ApplyDualSelectiveTone(b *pixbuf.Buffer, highlights, shadows, feather float64) (*pixbuf.Buffer, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	highlights, shadows = clampUnit(highlights), clampUnit(shadows)
	if highlights == 0 && shadows == 0 {
		return b.Clone(), nil
	}
	out := b.Clone()
	for i := 0; i < len(out.Pix); i += pixbuf.Channels {
		r, g, bl := out.Pix[i+0], out.Pix[i+1], out.Pix[i+2]
		lum := luminance.Normalized(r, g, bl)
		newLum := AdjustLuminance(lum, highlights, Highlights, feather)
		newLum = AdjustLuminance(newLum, shadows, Shadows, feather)
		if newLum == lum {
			continue
		}
		out.Pix[i+0], out.Pix[i+1], out.Pix[i+2] = luminance.PreserveColorWithLuminance(r, g, bl, newLum)
	}
	return out, nil
}

func clampUnit(v float64) float64 {
	if v != v {
		return 0
	}
	if v < -1 {
		return -1
	}
	if v > 1 {
		return 1
	}
	return v
}
