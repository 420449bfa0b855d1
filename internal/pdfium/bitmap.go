package pdfium

import (
	"errors"
	"fmt"
	"image"

	"github.com/jsscheller/pdfr/internal/fpdf"
	"github.com/jsscheller/pdfr/internal/raster"
)

// BitmapFormat is the pixel layout of a Bitmap.
type BitmapFormat int

const (
	FormatUnknown BitmapFormat = fpdf.BitmapUnknown
	FormatGray    BitmapFormat = fpdf.BitmapGray
	FormatBGR     BitmapFormat = fpdf.BitmapBGR
	FormatBGRx    BitmapFormat = fpdf.BitmapBGRx
	FormatBGRA    BitmapFormat = fpdf.BitmapBGRA
)

// Raster returns the matching raster format.
func (f BitmapFormat) Raster() (raster.Format, error) {
	switch f {
	case FormatGray:
		return raster.Gray, nil
	case FormatBGR:
		return raster.BGR, nil
	case FormatBGRx:
		return raster.BGRX, nil
	case FormatBGRA:
		return raster.BGRA, nil
	}
	return 0, ErrUnknownFormat
}

// white is opaque white in the engine's 0xAARRGGBB notation.
const white = 0xffffffff

// Bitmap is a pixel buffer owned by the engine.
type Bitmap struct {
	lib    *Library
	handle fpdf.Bitmap
	closed bool
}

// NewBitmap allocates a width x height bitmap.
func (l *Library) NewBitmap(width, height int, format BitmapFormat) (*Bitmap, error) {
	if err := l.ensureOpen(); err != nil {
		return nil, err
	}
	h := l.engine.CreateBitmap(width, height, int(format))
	if h == nil {
		err := l.checkLastError()
		if err == nil {
			err = ErrUnknown
		}
		return nil, fmt.Errorf("create %dx%d bitmap: %w", width, height, err)
	}
	return l.newBitmap(h), nil
}

// NewBitmapFromImage allocates a BGRA bitmap holding img.
func (l *Library) NewBitmapFromImage(img image.Image) (*Bitmap, error) {
	r := raster.FromImage(img)
	b, err := l.NewBitmap(r.Width, r.Height, FormatBGRA)
	if err != nil {
		return nil, err
	}
	buf := b.Buffer()
	if len(r.Pix) != len(buf) || r.Stride != b.Stride() {
		b.Close()
		return nil, ErrBufferSize
	}
	copy(buf, r.Pix)
	return b, nil
}

func (l *Library) newBitmap(h fpdf.Bitmap) *Bitmap {
	b := &Bitmap{lib: l, handle: h}
	l.children.add(b)
	l.trace("bitmap", "create")
	return b
}

func (b *Bitmap) ensureOpen() error {
	if b.closed {
		return ErrClosed
	}
	return nil
}

func (b *Bitmap) mustOpen() {
	if b.closed {
		panic("pdfium: use of closed bitmap")
	}
}

func (b *Bitmap) Width() int {
	b.mustOpen()
	return b.lib.engine.GetBitmapWidth(b.handle)
}

func (b *Bitmap) Height() int {
	b.mustOpen()
	return b.lib.engine.GetBitmapHeight(b.handle)
}

// Stride returns the number of bytes per row.
func (b *Bitmap) Stride() int {
	b.mustOpen()
	return b.lib.engine.GetBitmapStride(b.handle)
}

func (b *Bitmap) Format() BitmapFormat {
	b.mustOpen()
	return BitmapFormat(b.lib.engine.GetBitmapFormat(b.handle))
}

// Buffer returns the Stride*Height bytes backing the bitmap. The slice
// aliases native memory and must not be used after Close.
func (b *Bitmap) Buffer() []byte {
	b.mustOpen()
	return b.lib.engine.GetBitmapBuffer(b.handle)
}

// Raster returns a view of the bitmap sharing its buffer.
func (b *Bitmap) Raster() (*raster.Raster, error) {
	if err := b.ensureOpen(); err != nil {
		return nil, err
	}
	format, err := b.Format().Raster()
	if err != nil {
		return nil, err
	}
	return &raster.Raster{
		Width:  b.Width(),
		Height: b.Height(),
		Stride: b.Stride(),
		Format: format,
		Pix:    b.Buffer(),
	}, nil
}

// RenderPage clears the bitmap to white and renders page into its
// width x height top-left area, rotated by rotation quarter turns.
func (b *Bitmap) RenderPage(page *Page, width, height int, rotation Rotation) error {
	if err := b.ensureOpen(); err != nil {
		return err
	}
	if err := page.ensureOpen(); err != nil {
		return err
	}
	e := b.lib.engine
	e.FillRect(b.handle, 0, 0, b.Width(), b.Height(), white)
	e.RenderPageBitmap(b.handle, page.handle, 0, 0, width, height, int(rotation), 0)
	return nil
}

var errNoJPEGWriter = errors.New("pdfium: no JPEG writer configured")

// WriteJPEG encodes the bitmap to a JPEG file at path.
func (b *Bitmap) WriteJPEG(path string, quality int) error {
	if b.lib.jpeg == nil {
		return errNoJPEGWriter
	}
	r, err := b.Raster()
	if err != nil {
		return err
	}
	return b.lib.jpeg.WriteJPEG(path, r, quality)
}

// Close releases the bitmap.
func (b *Bitmap) Close() {
	if b.closed {
		return
	}
	b.lib.children.remove(b)
	b.release()
}

func (b *Bitmap) release() {
	if b.closed {
		return
	}
	b.closed = true
	b.lib.engine.DestroyBitmap(b.handle)
	b.lib.trace("bitmap", "destroy")
}
