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

package params

import (
	"fmt"
	"strings"
)

// Codes of extreme combination warnings
const (
	WarnManyExtremes       = "many-extremes"
	WarnStackedBrightening = "stacked-brightening"
	WarnStackedDarkening   = "stacked-darkening"
	WarnHaloRisk           = "halo-risk"
	WarnColorClipping      = "color-clipping"
	WarnToneCompression    = "tone-compression"
)

const (
	ExtremeMagnitude     = 80 // Magnitude at which a single slider counts as extreme
	ExtremeCount         = 3  // Number of extreme sliders that trigger a warning
	StackedMagnitude     = 60 // Magnitude for stacked exposure and brightness
	HaloMagnitude        = 70 // Magnitude for stacked local contrast
	ClippingMagnitude    = 70 // Magnitude for stacked saturation and vibrance
	CompressionMagnitude = 80 // Magnitude for opposing highlights and shadows
)

// An advisory about a parameter combination likely to produce visible artifacts.
// The render result is still valid
type Warning struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Params  []string `json:"params"`
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %s (%s)", w.Code, w.Message, strings.Join(w.Params, ", "))
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func sameSign(a, b int) bool {
	return (a > 0 && b > 0) || (a < 0 && b < 0)
}

// Flags combinations of parameters that simultaneously reach high magnitudes.
// Parameters are clamped before inspection. Returns nil if nothing is extreme
func (p AdjustmentParameters) DetectExtremes() []Warning {
	p.Clamp()
	var warnings []Warning

	var extremes []string
	for _, f := range Fields {
		if f.IsShape() {
			continue
		}
		if abs(*f.Ptr(&p)) >= ExtremeMagnitude {
			extremes = append(extremes, f.Name)
		}
	}
	if len(extremes) >= ExtremeCount {
		warnings = append(warnings, Warning{
			Code:    WarnManyExtremes,
			Message: fmt.Sprintf("%d parameters at or beyond %d", len(extremes), ExtremeMagnitude),
			Params:  extremes,
		})
	}

	if sameSign(p.Exposure, p.Brightness) && abs(p.Exposure) >= StackedMagnitude && abs(p.Brightness) >= StackedMagnitude {
		code, msg := WarnStackedBrightening, "exposure and brightness both raised strongly, highlights will clip"
		if p.Exposure < 0 {
			code, msg = WarnStackedDarkening, "exposure and brightness both lowered strongly, shadows will clip"
		}
		warnings = append(warnings, Warning{Code: code, Message: msg, Params: []string{"exposure", "brightness"}})
	}

	var local []string
	if p.Contrast >= HaloMagnitude {
		local = append(local, "contrast")
	}
	if p.Clarity >= HaloMagnitude {
		local = append(local, "clarity")
	}
	if p.Sharpness >= HaloMagnitude {
		local = append(local, "sharpness")
	}
	if p.Dehaze >= HaloMagnitude {
		local = append(local, "dehaze")
	}
	if len(local) >= 2 {
		warnings = append(warnings, Warning{
			Code:    WarnHaloRisk,
			Message: "strong local contrast settings combined, expect halos around edges",
			Params:  local,
		})
	}

	if p.Saturation >= ClippingMagnitude && p.Vibrance >= ClippingMagnitude {
		warnings = append(warnings, Warning{
			Code:    WarnColorClipping,
			Message: "saturation and vibrance both raised strongly, colors will clip",
			Params:  []string{"saturation", "vibrance"},
		})
	}

	if p.Highlights <= -CompressionMagnitude && p.Shadows >= CompressionMagnitude {
		warnings = append(warnings, Warning{
			Code:    WarnToneCompression,
			Message: "highlights and shadows pulled together strongly, image will look flat",
			Params:  []string{"highlights", "shadows"},
		})
	}
	return warnings
}
