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

package pixbuf

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
)

// Number of channels per pixel: red, green, blue, alpha
const Channels = 4

var (
	ErrInvalidDimensions = errors.New("invalid buffer dimensions")
	ErrLengthMismatch    = errors.New("buffer length does not match dimensions")
)

// An 8-bit RGBA pixel buffer. Channel values are not premultiplied with alpha.
// Pixels are stored row by row, most quickly varying dimension first (i.e. X,Y)
type Buffer struct {
	ID       int    // Sequential ID number, for log output. Counted upwards from 0 for input images
	FileName string // Original file name, if any, for log output

	Width  int     // Width in pixels
	Height int     // Height in pixels
	Pix    []uint8 // Pixel data, Channels bytes per pixel
}

// Creates a zero-initialized buffer of the given dimensions
func New(width, height int) (*Buffer, error) {
	if width <= 0 || height <= 0 {
		return nil, errors.Wrapf(ErrInvalidDimensions, "%dx%d", width, height)
	}
	return &Buffer{
		Width:  width,
		Height: height,
		Pix:    make([]uint8, width*height*Channels),
	}, nil
}

// Creates a buffer wrapping the given pixel data. Data is not copied
func FromPix(width, height int, pix []uint8) (*Buffer, error) {
	b := &Buffer{Width: width, Height: height, Pix: pix}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return b, nil
}

// Checks the structural invariants of the buffer: positive dimensions and matching pixel data length
func (b *Buffer) Validate() error {
	if b == nil {
		return errors.Wrap(ErrInvalidDimensions, "nil buffer")
	}
	if b.Width <= 0 || b.Height <= 0 {
		return errors.Wrapf(ErrInvalidDimensions, "%dx%d", b.Width, b.Height)
	}
	if want := b.Width * b.Height * Channels; len(b.Pix) != want {
		return errors.Wrapf(ErrLengthMismatch, "%dx%d needs %d bytes, have %d", b.Width, b.Height, want, len(b.Pix))
	}
	return nil
}

// Number of pixels in the buffer
func (b *Buffer) Pixels() int { return b.Width * b.Height }

// Offset of the red channel of pixel (x,y) in Pix
func (b *Buffer) Offset(x, y int) int { return (y*b.Width + x) * Channels }

// Returns a deep copy of the buffer, including metadata
func (b *Buffer) Clone() *Buffer {
	return &Buffer{
		ID:       b.ID,
		FileName: b.FileName,
		Width:    b.Width,
		Height:   b.Height,
		Pix:      append([]uint8(nil), b.Pix...),
	}
}

// Returns a buffer of the same dimensions and metadata, with the alpha channel copied and RGB zeroed
func (b *Buffer) NewLike() *Buffer {
	out := &Buffer{
		ID:       b.ID,
		FileName: b.FileName,
		Width:    b.Width,
		Height:   b.Height,
		Pix:      make([]uint8, len(b.Pix)),
	}
	for i := 3; i < len(b.Pix); i += Channels {
		out.Pix[i] = b.Pix[i]
	}
	return out
}

// Returns true if both buffers have identical dimensions and pixel data. Metadata is ignored
func (b *Buffer) Equal(o *Buffer) bool {
	if b.Width != o.Width || b.Height != o.Height || len(b.Pix) != len(o.Pix) {
		return false
	}
	for i, v := range b.Pix {
		if o.Pix[i] != v {
			return false
		}
	}
	return true
}

// Returns a human-readable representation of the dimensions
func (b *Buffer) DimensionsToString() string {
	return fmt.Sprintf("%dx%d", b.Width, b.Height)
}

// Sets all pixels to the given color
func (b *Buffer) Fill(r, g, bl, a uint8) {
	for i := 0; i < len(b.Pix); i += Channels {
		b.Pix[i+0] = r
		b.Pix[i+1] = g
		b.Pix[i+2] = bl
		b.Pix[i+3] = a
	}
}

// Rounds a channel value to the nearest integer in [0,255]. NaN maps to 0
func ClampToUint8(v float64) uint8 {
	if v != v || v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(math.Floor(v + 0.5))
}

// Clamps a value into [0,1]. NaN maps to 0
func Clamp01(v float64) float64 {
	if v != v || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
