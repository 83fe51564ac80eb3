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
	"bufio"
	"image"
	"image/draw"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"strings"

	_ "image/gif"

	"github.com/pkg/errors"
	"golang.org/x/image/tiff"
)

// Output encodings supported by Encode
type Format int

const (
	FormatPNG Format = iota
	FormatJPEG
	FormatTIFF
)

// Selects an output format from a file name suffix
func FormatFromFileName(fileName string) (Format, error) {
	fnLower := strings.ToLower(fileName)
	switch {
	case strings.HasSuffix(fnLower, ".png"):
		return FormatPNG, nil
	case strings.HasSuffix(fnLower, ".jpg") || strings.HasSuffix(fnLower, ".jpeg"):
		return FormatJPEG, nil
	case strings.HasSuffix(fnLower, ".tif") || strings.HasSuffix(fnLower, ".tiff"):
		return FormatTIFF, nil
	}
	return FormatPNG, errors.Errorf("unknown image suffix in %s", fileName)
}

// Selects an output format from a short name like png, jpeg or tiff
func FormatFromName(name string) (Format, error) {
	switch strings.ToLower(name) {
	case "", "png":
		return FormatPNG, nil
	case "jpg", "jpeg":
		return FormatJPEG, nil
	case "tif", "tiff":
		return FormatTIFF, nil
	}
	return FormatPNG, errors.Errorf("unknown image format %q", name)
}

// MIME content type for the format
func (f Format) ContentType() string {
	switch f {
	case FormatJPEG:
		return "image/jpeg"
	case FormatTIFF:
		return "image/tiff"
	}
	return "image/png"
}

// Converts any image into a buffer. The image bounds origin is moved to (0,0)
func FromImage(img image.Image) (*Buffer, error) {
	bounds := img.Bounds()
	b, err := New(bounds.Dx(), bounds.Dy())
	if err != nil {
		return nil, err
	}
	nrgba, ok := img.(*image.NRGBA)
	if !ok || nrgba.Rect.Min != (image.Point{}) || nrgba.Stride != b.Width*Channels {
		nrgba = image.NewNRGBA(image.Rect(0, 0, b.Width, b.Height))
		draw.Draw(nrgba, nrgba.Rect, img, bounds.Min, draw.Src)
	}
	copy(b.Pix, nrgba.Pix)
	return b, nil
}

// Returns an image.NRGBA sharing the pixel data of the buffer
func (b *Buffer) ToNRGBA() *image.NRGBA {
	return &image.NRGBA{
		Pix:    b.Pix,
		Stride: b.Width * Channels,
		Rect:   image.Rect(0, 0, b.Width, b.Height),
	}
}

// Decodes a PNG, JPEG, GIF or TIFF image from the reader
func Decode(r io.Reader) (*Buffer, error) {
	br := bufio.NewReader(r)
	magic, _ := br.Peek(4)
	var img image.Image
	var err error
	if len(magic) == 4 && (string(magic) == "II*\x00" || string(magic) == "MM\x00*") {
		img, err = tiff.Decode(br)
	} else {
		img, _, err = image.Decode(br)
	}
	if err != nil {
		return nil, errors.Wrap(err, "decoding image")
	}
	return FromImage(img)
}

// Reads only the image header and returns its dimensions
func DecodeDimensions(r io.Reader) (width, height int, err error) {
	br := bufio.NewReader(r)
	magic, _ := br.Peek(4)
	var cfg image.Config
	if len(magic) == 4 && (string(magic) == "II*\x00" || string(magic) == "MM\x00*") {
		cfg, err = tiff.DecodeConfig(br)
	} else {
		cfg, _, err = image.DecodeConfig(br)
	}
	if err != nil {
		return 0, 0, errors.Wrap(err, "decoding image header")
	}
	return cfg.Width, cfg.Height, nil
}

// Loads an image from the given file
func NewBufferFromFile(fileName string, id int) (*Buffer, error) {
	f, err := os.Open(fileName)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	b, err := Decode(f)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", fileName)
	}
	b.ID = id
	b.FileName = fileName
	return b, nil
}

// Encodes the buffer in the given format. Quality applies to JPEG only
func (b *Buffer) Encode(w io.Writer, format Format, quality int) error {
	img := b.ToNRGBA()
	switch format {
	case FormatJPEG:
		return jpeg.Encode(w, img, &jpeg.Options{Quality: quality})
	case FormatTIFF:
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate, Predictor: true})
	}
	return png.Encode(w, img)
}

// Writes the buffer to a file, selecting the format by file name suffix
func (b *Buffer) WriteFile(fileName string, quality int) error {
	format, err := FormatFromFileName(fileName)
	if err != nil {
		return err
	}
	file, err := os.Create(fileName)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	if err := b.Encode(writer, format, quality); err != nil {
		return errors.Wrapf(err, "writing %s", fileName)
	}
	return writer.Flush()
}
