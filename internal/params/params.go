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

// Package params defines the adjustment parameter record, its documented ranges, and
// detection of extreme parameter combinations.
package params

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// Slider values of one non-destructive adjustment. Bidirectional sliders are in
// [-100,100], amount-only sliders in [0,100]. The zero value is the identity
type AdjustmentParameters struct {
	Brightness int `json:"brightness"`
	Contrast   int `json:"contrast"`
	Exposure   int `json:"exposure"`
	Highlights int `json:"highlights"`
	Shadows    int `json:"shadows"`
	Whites     int `json:"whites"`
	Blacks     int `json:"blacks"`
	Clarity    int `json:"clarity"`
	Sharpness  int `json:"sharpness"`
	Dehaze     int `json:"dehaze"`

	Temperature int `json:"temperature"`
	Tint        int `json:"tint"`
	Saturation  int `json:"saturation"`
	Vibrance    int `json:"vibrance"`

	VignetteAmount  int `json:"vignetteAmount"`
	VignetteSize    int `json:"vignetteSize"`
	VignetteFeather int `json:"vignetteFeather"`
	GrainAmount     int `json:"grainAmount"`
	GrainSize       int `json:"grainSize"`
	FadeAmount      int `json:"fadeAmount"`
}

// Describes one parameter: its JSON name, documented range, and accessor
type Field struct {
	Name string
	Min  int
	Max  int
	Ptr  func(p *AdjustmentParameters) *int
}

// All parameters in declaration order
var Fields = []Field{
	{"brightness", -100, 100, func(p *AdjustmentParameters) *int { return &p.Brightness }},
	{"contrast", -100, 100, func(p *AdjustmentParameters) *int { return &p.Contrast }},
	{"exposure", -100, 100, func(p *AdjustmentParameters) *int { return &p.Exposure }},
	{"highlights", -100, 100, func(p *AdjustmentParameters) *int { return &p.Highlights }},
	{"shadows", -100, 100, func(p *AdjustmentParameters) *int { return &p.Shadows }},
	{"whites", -100, 100, func(p *AdjustmentParameters) *int { return &p.Whites }},
	{"blacks", -100, 100, func(p *AdjustmentParameters) *int { return &p.Blacks }},
	{"clarity", -100, 100, func(p *AdjustmentParameters) *int { return &p.Clarity }},
	{"sharpness", -100, 100, func(p *AdjustmentParameters) *int { return &p.Sharpness }},
	{"dehaze", -100, 100, func(p *AdjustmentParameters) *int { return &p.Dehaze }},
	{"temperature", -100, 100, func(p *AdjustmentParameters) *int { return &p.Temperature }},
	{"tint", -100, 100, func(p *AdjustmentParameters) *int { return &p.Tint }},
	{"saturation", -100, 100, func(p *AdjustmentParameters) *int { return &p.Saturation }},
	{"vibrance", -100, 100, func(p *AdjustmentParameters) *int { return &p.Vibrance }},
	{"vignetteAmount", 0, 100, func(p *AdjustmentParameters) *int { return &p.VignetteAmount }},
	{"vignetteSize", 0, 100, func(p *AdjustmentParameters) *int { return &p.VignetteSize }},
	{"vignetteFeather", 0, 100, func(p *AdjustmentParameters) *int { return &p.VignetteFeather }},
	{"grainAmount", 0, 100, func(p *AdjustmentParameters) *int { return &p.GrainAmount }},
	{"grainSize", 0, 100, func(p *AdjustmentParameters) *int { return &p.GrainSize }},
	{"fadeAmount", 0, 100, func(p *AdjustmentParameters) *int { return &p.FadeAmount }},
}

// Returns true for parameters that shape an effect rather than set its strength
func (f Field) IsShape() bool {
	return f.Name == "vignetteSize" || f.Name == "vignetteFeather" || f.Name == "grainSize"
}

// Returns the parameters of an unedited image: all strengths zero, shapes at their defaults
func Default() AdjustmentParameters {
	return AdjustmentParameters{VignetteSize: 50, VignetteFeather: 50, GrainSize: 25}
}

// Looks up a parameter by its JSON name, ignoring case
func FieldByName(name string) (Field, bool) {
	for _, f := range Fields {
		if strings.EqualFold(f.Name, name) {
			return f, true
		}
	}
	return Field{}, false
}

// Returns a copy with every parameter clamped into its documented range
func (p AdjustmentParameters) Clamped() AdjustmentParameters {
	p.Clamp()
	return p
}

// Clamps every parameter into its documented range, in place
func (p *AdjustmentParameters) Clamp() {
	for _, f := range Fields {
		v := f.Ptr(p)
		if *v < f.Min {
			*v = f.Min
		} else if *v > f.Max {
			*v = f.Max
		}
	}
}

// Returns true if every strength parameter is zero, i.e. rendering is the identity
func (p AdjustmentParameters) IsNeutral() bool {
	for _, f := range Fields {
		if !f.IsShape() && *f.Ptr(&p) != 0 {
			return false
		}
	}
	return true
}

// Returns the names of all non-zero parameters with their values, for log output
func (p AdjustmentParameters) String() string {
	var sb strings.Builder
	for _, f := range Fields {
		if v := *f.Ptr(&p); v != 0 {
			if sb.Len() > 0 {
				sb.WriteString(" ")
			}
			fmt.Fprintf(&sb, "%s=%d", f.Name, v)
		}
	}
	if sb.Len() == 0 {
		return "neutral"
	}
	return sb.String()
}

// Sets a parameter by JSON name
func (p *AdjustmentParameters) Set(name string, value int) error {
	f, ok := FieldByName(name)
	if !ok {
		return errors.Errorf("unknown parameter %q", name)
	}
	*f.Ptr(p) = value
	return nil
}

// Reads parameters from a JSON file. Missing fields keep their defaults, unknown fields are rejected
func LoadFile(fileName string) (AdjustmentParameters, error) {
	p := Default()
	f, err := os.Open(fileName)
	if err != nil {
		return p, err
	}
	defer f.Close()
	dec := json.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		return p, errors.Wrapf(err, "parsing parameters from %s", fileName)
	}
	return p, nil
}
