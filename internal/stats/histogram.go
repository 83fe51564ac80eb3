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

// Package stats computes histograms and summary statistics of pixel buffers.
package stats

import (
	"math"

	"github.com/mlnoga/retouch/internal/luminance"
	"github.com/mlnoga/retouch/internal/pixbuf"
	"gonum.org/v1/gonum/optimize"
)

// Number of histogram bins, one per 8-bit level
const Bins = 256

// Histogram and summary values of one channel
type ChannelStats struct {
	Min       uint8     `json:"min"`
	Max       uint8     `json:"max"`
	Mean      float64   `json:"mean"`
	Histogram [Bins]int `json:"histogram"`
}

// Statistics of a buffer. Luminance is BT.709, rounded to 8 bits
type Stats struct {
	Width       int          `json:"width"`
	Height      int          `json:"height"`
	Red         ChannelStats `json:"red"`
	Green       ChannelStats `json:"green"`
	Blue        ChannelStats `json:"blue"`
	Luminance   ChannelStats `json:"luminance"`
	ClippedLow  float64      `json:"clippedLow"`  // Fraction of pixels with a channel at 0
	ClippedHigh float64      `json:"clippedHigh"` // Fraction of pixels with a channel at 255
	Mode        float64      `json:"mode"`        // Luminance histogram peak from a gaussian fit
	StdDev      float64      `json:"stdDev"`      // Standard deviation of the gaussian fit
}

// Calculates statistics for the given buffer
func Compute(b *pixbuf.Buffer) (*Stats, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	s := &Stats{Width: b.Width, Height: b.Height}
	var low, high int
	for i := 0; i < len(b.Pix); i += pixbuf.Channels {
		r, g, bl := b.Pix[i+0], b.Pix[i+1], b.Pix[i+2]
		s.Red.Histogram[r]++
		s.Green.Histogram[g]++
		s.Blue.Histogram[bl]++
		s.Luminance.Histogram[pixbuf.ClampToUint8(luminance.Luminance(float64(r), float64(g), float64(bl)))]++
		if r == 0 || g == 0 || bl == 0 {
			low++
		}
		if r == 255 || g == 255 || bl == 255 {
			high++
		}
	}
	n := float64(b.Pixels())
	s.ClippedLow, s.ClippedHigh = float64(low)/n, float64(high)/n
	for _, c := range []*ChannelStats{&s.Red, &s.Green, &s.Blue, &s.Luminance} {
		c.summarize()
	}

	mode, stdDev, err := GetModeStdDevFromHistogram(s.Luminance.Histogram[:])
	if err != nil || !isFinite(mode) || !isFinite(stdDev) {
		// fall back to the raw peak for degenerate histograms
		mode, _ = GetPeak(s.Luminance.Histogram[:])
		stdDev = 0
	}
	s.Mode, s.StdDev = mode, stdDev
	return s, nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Fills in min, max and mean from the histogram
func (c *ChannelStats) summarize() {
	total, sum := 0, 0
	c.Min, c.Max = 255, 0
	for v, count := range c.Histogram {
		if count == 0 {
			continue
		}
		if uint8(v) < c.Min {
			c.Min = uint8(v)
		}
		if uint8(v) > c.Max {
			c.Max = uint8(v)
		}
		total += count
		sum += v * count
	}
	if total > 0 {
		c.Mean = float64(sum) / float64(total)
	} else {
		c.Min = 0
	}
}

// Returns the smallest level at or below which the given fraction p in [0,1] of the values lie
func (c *ChannelStats) Percentile(p float64) uint8 {
	return Percentile(c.Histogram[:], p)
}

// Returns the smallest histogram index at or below which the given fraction p in [0,1] of the values lie
func Percentile(bins []int, p float64) uint8 {
	total := 0
	for _, v := range bins {
		total += v
	}
	if total == 0 {
		return 0
	}
	threshold := p * float64(total)
	acc := 0
	for i, v := range bins {
		acc += v
		if float64(acc) >= threshold && acc > 0 {
			return uint8(i)
		}
	}
	return uint8(len(bins) - 1)
}

// Returns the location and the value of the histogram peak
func GetPeak(bins []int) (x, y float64) {
	maxIndex, maxValue := 0, math.MinInt
	for i, v := range bins {
		if v > maxValue {
			maxIndex, maxValue = i, v
		}
	}
	return float64(maxIndex), float64(maxValue)
}

// Calculates the mode and the standard deviation of the given histogram, by fitting
// a normal distribution with Nelder-Mead
func GetModeStdDevFromHistogram(bins []int) (mode, stdDev float64, err error) {
	// Take an educated initial guess: the maximum value of the histogram
	peak, peakVal := GetPeak(bins)
	sigma0 := 5.0

	// Now minimize the distance between the histogram and a normal distribution
	x0 := []float64{peakVal * sigma0 * math.Sqrt(2*math.Pi), peak, sigma0}
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			alpha, mu, sigma := x[0], x[1], x[2]
			if sigma == 0 {
				return math.Inf(1)
			}
			scaler := alpha / (math.Abs(sigma) * math.Sqrt(2*math.Pi))
			sumSqDiff := 0.0
			for i, y := range bins {
				xmusig := (float64(i) - mu) / sigma
				yPredict := scaler * math.Exp(-0.5*xmusig*xmusig)
				diff := float64(y) - yPredict
				sumSqDiff += diff * diff
			}
			return math.Sqrt(sumSqDiff / float64(len(bins)))
		},
	}
	result, err := optimize.Minimize(problem, x0, nil, &optimize.NelderMead{})
	if err != nil {
		return -1, -1, err
	}
	return result.X[1], math.Abs(result.X[2]), nil
}
