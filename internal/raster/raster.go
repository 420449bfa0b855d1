// Package raster holds uncompressed pixel buffers as they travel between
// the PDF engine, the JPEG codec and the Go image encoders.
package raster

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Format is the byte layout of one pixel.
type Format int

const (
	Gray Format = iota + 1
	BGR
	BGRX
	BGRA
)

func (f Format) String() string {
	switch f {
	case Gray:
		return "gray"
	case BGR:
		return "bgr"
	case BGRX:
		return "bgrx"
	case BGRA:
		return "bgra"
	}
	return fmt.Sprintf("format(%d)", int(f))
}

// BytesPerPixel returns the size of one pixel, or 0 for an unknown format.
func (f Format) BytesPerPixel() int {
	switch f {
	case Gray:
		return 1
	case BGR:
		return 3
	case BGRX, BGRA:
		return 4
	}
	return 0
}

// ErrShortBuffer is returned when Pix cannot hold Height rows of Stride bytes.
var ErrShortBuffer = errors.New("pixel buffer shorter than stride * height")

// Raster is a pixel buffer. Row y starts at Pix[y*Stride]; Stride may be
// larger than Width*BytesPerPixel.
type Raster struct {
	Width  int
	Height int
	Stride int
	Format Format
	Pix    []byte
}

// Validate checks that the dimensions describe the buffer.
func (r *Raster) Validate() error {
	bpp := r.Format.BytesPerPixel()
	switch {
	case bpp == 0:
		return fmt.Errorf("unknown pixel format %v", r.Format)
	case r.Width <= 0 || r.Height <= 0:
		return fmt.Errorf("invalid dimensions %dx%d", r.Width, r.Height)
	case r.Stride < r.Width*bpp:
		return fmt.Errorf("stride %d too small for width %d", r.Stride, r.Width)
	case len(r.Pix) < r.Stride*r.Height:
		return ErrShortBuffer
	}
	return nil
}

// Row returns the pixels of row y without padding.
func (r *Raster) Row(y int) []byte {
	off := y * r.Stride
	return r.Pix[off : off+r.Width*r.Format.BytesPerPixel()]
}

// Clone returns a copy that does not share Pix with r.
func (r *Raster) Clone() *Raster {
	c := *r
	c.Pix = append([]byte(nil), r.Pix...)
	return &c
}

// FromImage converts img to tightly packed, non-premultiplied BGRA.
func FromImage(img image.Image) *Raster {
	b := img.Bounds()
	nrgba, ok := img.(*image.NRGBA)
	// Sub-images share Pix with their parent, so its length says whether
	// the buffer is tightly packed.
	if !ok || nrgba.Rect.Min != (image.Point{}) || nrgba.Stride != 4*b.Dx() || len(nrgba.Pix) != 4*b.Dx()*b.Dy() {
		nrgba = image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(nrgba, nrgba.Bounds(), img, b.Min, draw.Src)
	}

	r := &Raster{
		Width:  b.Dx(),
		Height: b.Dy(),
		Stride: 4 * b.Dx(),
		Format: BGRA,
		Pix:    make([]byte, len(nrgba.Pix)),
	}
	for i := 0; i+3 < len(nrgba.Pix); i += 4 {
		r.Pix[i+0] = nrgba.Pix[i+2]
		r.Pix[i+1] = nrgba.Pix[i+1]
		r.Pix[i+2] = nrgba.Pix[i+0]
		r.Pix[i+3] = nrgba.Pix[i+3]
	}
	return r
}

// Image converts r to a Go image. Gray rasters become *image.Gray, all
// others *image.NRGBA; BGR and BGRX pixels are opaque.
func (r *Raster) Image() (image.Image, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	rect := image.Rect(0, 0, r.Width, r.Height)
	if r.Format == Gray {
		g := image.NewGray(rect)
		for y := 0; y < r.Height; y++ {
			copy(g.Pix[y*g.Stride:], r.Row(y))
		}
		return g, nil
	}

	bpp := r.Format.BytesPerPixel()
	out := image.NewNRGBA(rect)
	for y := 0; y < r.Height; y++ {
		src := r.Row(y)
		dst := out.Pix[y*out.Stride:]
		for x := 0; x < r.Width; x++ {
			s, d := src[x*bpp:], dst[x*4:]
			d[0], d[1], d[2], d[3] = s[2], s[1], s[0], 0xff
			if r.Format == BGRA {
				d[3] = s[3]
			}
		}
	}
	return out, nil
}

// Decode reads a raster image file (PNG, JPEG, GIF, BMP, TIFF or WebP).
func Decode(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, nil
}
