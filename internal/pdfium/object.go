package pdfium

import (
	"fmt"

	"golang.org/x/text/encoding/unicode"
	"seehuhn.de/go/geom/matrix"

	"github.com/jsscheller/pdfr/internal/fpdf"
)

// ObjectType is the kind of a page object.
type ObjectType int

const (
	ObjectUnknown ObjectType = fpdf.PageObjUnknown
	ObjectText    ObjectType = fpdf.PageObjText
	ObjectPath    ObjectType = fpdf.PageObjPath
	ObjectImage   ObjectType = fpdf.PageObjImage
	ObjectShading ObjectType = fpdf.PageObjShading
	ObjectForm    ObjectType = fpdf.PageObjForm
)

func (t ObjectType) String() string {
	switch t {
	case ObjectText:
		return "text"
	case ObjectPath:
		return "path"
	case ObjectImage:
		return "image"
	case ObjectShading:
		return "shading"
	case ObjectForm:
		return "form"
	}
	return "unknown"
}

// Object is a page object. It is either owned by the caller (created and
// not yet added to a page) or borrowed from a page.
type Object struct {
	doc    *Document
	handle fpdf.PageObject
	page   *Page
	owned  bool
	closed bool
}

func (o *Object) ensureOpen() error {
	if o.closed {
		return ErrClosed
	}
	return nil
}

func (o *Object) mustOpen() {
	if o.closed {
		panic("pdfium: use of closed object")
	}
}

// Type returns the kind of the object.
func (o *Object) Type() ObjectType {
	o.mustOpen()
	return ObjectType(o.doc.lib.engine.GetObjectType(o.handle))
}

// Transform applies m after the object's current transformation.
func (o *Object) Transform(m matrix.Matrix) {
	o.mustOpen()
	o.doc.lib.engine.TransformObject(o.handle, m[0], m[1], m[2], m[3], m[4], m[5])
}

// IntoImage converts o to an ImageObject. It consumes o: on success the
// result takes over the handle, otherwise o is closed and nil is
// returned. A borrowed object can be loaded from its page again.
func (o *Object) IntoImage() *ImageObject {
	if o.closed {
		return nil
	}
	if o.Type() != ObjectImage {
		o.Close()
		return nil
	}
	return &ImageObject{Object: o}
}

// Close releases the wrapper. The native object is destroyed only when
// it was never added to a page.
func (o *Object) Close() {
	if o.closed {
		return
	}
	if o.owned {
		o.doc.children.remove(o)
	} else if o.page != nil {
		o.page.borrowed.remove(o)
	}
	o.release()
}

func (o *Object) release() {
	if o.closed {
		return
	}
	o.closed = true
	if o.owned {
		o.doc.lib.engine.DestroyPageObject(o.handle)
		o.doc.lib.trace("object", "destroy")
	}
}

// ImageObject is a page object holding a raster image.
type ImageObject struct {
	*Object
}

// Bitmap renders the image with the page's transformations applied. The
// returned bitmap belongs to the Library.
func (o *ImageObject) Bitmap(doc *Document, page *Page) (*Bitmap, error) {
	if err := o.ensureOpen(); err != nil {
		return nil, err
	}
	if err := doc.ensureOpen(); err != nil {
		return nil, err
	}
	if err := page.ensureOpen(); err != nil {
		return nil, err
	}
	lib := o.doc.lib
	h := lib.engine.GetRenderedBitmap(doc.handle, page.handle, o.handle)
	if h == nil {
		// Undecodable image streams fail without setting an error code.
		err := lib.checkLastError()
		if err == nil {
			err = ErrUnknown
		}
		return nil, fmt.Errorf("render image object: %w", err)
	}
	return lib.newBitmap(h), nil
}

// SetBitmap replaces the image with the pixels of b.
func (o *ImageObject) SetBitmap(b *Bitmap) error {
	if err := o.ensureOpen(); err != nil {
		return err
	}
	if err := b.ensureOpen(); err != nil {
		return err
	}
	if err := o.doc.lib.checkBool(o.doc.lib.engine.SetImageBitmap(o.handle, b.handle)); err != nil {
		return fmt.Errorf("set bitmap: %w", err)
	}
	return nil
}

// TextObject is a page object holding a run of text.
type TextObject struct {
	*Object
}

var utf16le = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// SetText replaces the text. The engine rejects empty strings, so ""
// is set as a single space.
func (o *TextObject) SetText(text string) error {
	if err := o.ensureOpen(); err != nil {
		return err
	}
	if text == "" {
		text = " "
	}
	encoded, err := utf16le.NewEncoder().Bytes([]byte(text))
	if err != nil {
		return fmt.Errorf("encode text: %w", err)
	}
	encoded = append(encoded, 0, 0)
	if err := o.doc.lib.checkBool(o.doc.lib.engine.SetText(o.handle, encoded)); err != nil {
		return fmt.Errorf("set text: %w", err)
	}
	return nil
}

// Font is a font loaded into a Document.
type Font struct {
	doc    *Document
	handle fpdf.Font
	closed bool
}

func (f *Font) ensureOpen() error {
	if f.closed {
		return ErrClosed
	}
	return nil
}

// Close releases the font.
func (f *Font) Close() {
	if f.closed {
		return
	}
	f.doc.children.remove(f)
	f.release()
}

func (f *Font) release() {
	if f.closed {
		return
	}
	f.closed = true
	f.doc.lib.engine.CloseFont(f.handle)
	f.doc.lib.trace("font", "close")
}
