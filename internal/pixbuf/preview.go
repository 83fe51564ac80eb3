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
	"image"

	"golang.org/x/image/draw"
)

// Downscales the buffer so its longer edge is at most maxEdge pixels, for interactive previews.
// Returns the buffer itself if it already fits or maxEdge is not positive
func (b *Buffer) Preview(maxEdge int) *Buffer {
	if maxEdge <= 0 || (b.Width <= maxEdge && b.Height <= maxEdge) {
		return b
	}
	w, h := maxEdge, maxEdge
	if b.Width >= b.Height {
		h = (b.Height*maxEdge + b.Width/2) / b.Width
	} else {
		w = (b.Width*maxEdge + b.Height/2) / b.Height
	}
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}

	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Rect, b.ToNRGBA(), image.Rect(0, 0, b.Width, b.Height), draw.Src, nil)
	return &Buffer{
		ID:       b.ID,
		FileName: b.FileName,
		Width:    w,
		Height:   h,
		Pix:      dst.Pix,
	}
}
