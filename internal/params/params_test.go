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
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClamped(t *testing.T) {
	p := AdjustmentParameters{Brightness: 250, Contrast: -300, GrainAmount: -5, VignetteSize: 101, Tint: 42}
	c := p.Clamped()
	assert.Equal(t, 100, c.Brightness)
	assert.Equal(t, -100, c.Contrast)
	assert.Equal(t, 0, c.GrainAmount)
	assert.Equal(t, 100, c.VignetteSize)
	assert.Equal(t, 42, c.Tint)
	// the receiver is left untouched
	assert.Equal(t, 250, p.Brightness)
}

func TestFieldsCoverAllParameters(t *testing.T) {
	var p AdjustmentParameters
	for i, f := range Fields {
		require.NoError(t, p.Set(f.Name, i+1))
	}
	raw, err := json.Marshal(p)
	require.NoError(t, err)
	var m map[string]int
	require.NoError(t, json.Unmarshal(raw, &m))
	require.Len(t, m, len(Fields))
	for i, f := range Fields {
		assert.Equal(t, i+1, m[f.Name], f.Name)
	}
	assert.Error(t, p.Set("gamma", 1))
}

func TestIsNeutralAndString(t *testing.T) {
	var p AdjustmentParameters
	assert.True(t, p.IsNeutral())
	assert.Equal(t, "neutral", p.String())
	assert.True(t, Default().IsNeutral())
	assert.Equal(t, "vignetteSize=50 vignetteFeather=50 grainSize=25", Default().String())
	p.Shadows = 30
	p.FadeAmount = 5
	assert.False(t, p.IsNeutral())
	assert.Equal(t, "shadows=30 fadeAmount=5", p.String())
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.json")
	require.NoError(t, os.WriteFile(good, []byte(`{"exposure": 20, "vignetteAmount": 40}`), 0o644))
	p, err := LoadFile(good)
	require.NoError(t, err)
	want := Default()
	want.Exposure, want.VignetteAmount = 20, 40
	assert.Equal(t, want, p)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"gamma": 2}`), 0o644))
	_, err = LoadFile(bad)
	assert.Error(t, err)

	_, err = LoadFile(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

func codes(ws []Warning) []string {
	var cs []string
	for _, w := range ws {
		cs = append(cs, w.Code)
	}
	return cs
}

func TestDetectExtremes(t *testing.T) {
	tcs := []struct {
		Name   string
		Params AdjustmentParameters
		Want   []string
	}{
		{"neutral", AdjustmentParameters{}, nil},
		{"moderate", AdjustmentParameters{Exposure: 50, Contrast: 60, Saturation: 60}, nil},
		{"many", AdjustmentParameters{Tint: 90, Whites: -85, GrainAmount: 100}, []string{WarnManyExtremes}},
		{"shape ignored", AdjustmentParameters{VignetteSize: 100, VignetteFeather: 100, GrainSize: 100}, nil},
		{"brightening", AdjustmentParameters{Exposure: 60, Brightness: 75}, []string{WarnStackedBrightening}},
		{"darkening", AdjustmentParameters{Exposure: -70, Brightness: -60}, []string{WarnStackedDarkening}},
		{"opposing", AdjustmentParameters{Exposure: 70, Brightness: -70}, nil},
		{"halo", AdjustmentParameters{Clarity: 70, Sharpness: 90}, []string{WarnHaloRisk}},
		{"clipping", AdjustmentParameters{Saturation: 80, Vibrance: 75}, []string{WarnColorClipping}},
		{"flat", AdjustmentParameters{Highlights: -90, Shadows: 85}, []string{WarnToneCompression}},
		{"clamped first", AdjustmentParameters{Saturation: 500, Vibrance: 500}, []string{WarnColorClipping}},
		{"everything", AdjustmentParameters{Exposure: 100, Brightness: 100, Contrast: 100, Clarity: 100},
			[]string{WarnManyExtremes, WarnStackedBrightening, WarnHaloRisk}},
	}
	for _, tc := range tcs {
		t.Run(tc.Name, func(t *testing.T) {
			assert.Equal(t, tc.Want, codes(tc.Params.DetectExtremes()))
		})
	}
}

func TestWarningParams(t *testing.T) {
	ws := AdjustmentParameters{Clarity: 100, Dehaze: 100, Contrast: 10}.DetectExtremes()
	require.Len(t, ws, 1)
	assert.Equal(t, []string{"clarity", "dehaze"}, ws[0].Params)
	assert.Contains(t, ws[0].String(), "halo-risk")
}
