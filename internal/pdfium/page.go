package pdfium

import (
	"fmt"

	"github.com/jsscheller/pdfr/internal/fpdf"
)

// Rotation is the intrinsic clockwise rotation of a page in quarter turns.
type Rotation int

const (
	RotateNone Rotation = iota
	Rotate90
	Rotate180
	Rotate270
)

// Page is an open page of a Document. Objects loaded from it are only
// valid while the page is open.
type Page struct {
	doc      *Document
	handle   fpdf.Page
	borrowed registry
	closed   bool
}

func (p *Page) ensureOpen() error {
	if p.closed {
		return ErrClosed
	}
	return nil
}

func (p *Page) mustOpen() {
	if p.closed {
		panic("pdfium: use of closed page")
	}
}

// Width returns the page width in points.
func (p *Page) Width() float32 {
	p.mustOpen()
	return p.doc.lib.engine.GetPageWidth(p.handle)
}

// Height returns the page height in points.
func (p *Page) Height() float32 {
	p.mustOpen()
	return p.doc.lib.engine.GetPageHeight(p.handle)
}

// Rotation returns the page rotation. Values outside 0..3 are reported
// as RotateNone.
func (p *Page) Rotation() Rotation {
	p.mustOpen()
	r := Rotation(p.doc.lib.engine.GetPageRotation(p.handle))
	if r < RotateNone || r > Rotate270 {
		return RotateNone
	}
	return r
}

// ObjectCount returns the number of objects on the page.
func (p *Page) ObjectCount() int {
	p.mustOpen()
	return p.doc.lib.engine.CountObjects(p.handle)
}

// LoadObject returns the object at the 0-based index pos. The object is
// owned by the page.
func (p *Page) LoadObject(pos int) (*Object, error) {
	if err := p.ensureOpen(); err != nil {
		return nil, err
	}
	if n := p.ObjectCount(); pos < 0 || pos >= n {
		return nil, fmt.Errorf("load object %d of %d: %w", pos, n, ErrRange)
	}
	h := p.doc.lib.engine.GetObject(p.handle, pos)
	if err := p.doc.lib.checkHandle(h == nil, "GetObject"); err != nil {
		return nil, fmt.Errorf("load object %d: %w", pos, err)
	}
	o := &Object{doc: p.doc, handle: h, page: p}
	p.borrowed.add(o)
	return o, nil
}

// AddImageObject moves obj onto the page. The page owns it afterwards.
func (p *Page) AddImageObject(obj *ImageObject) error {
	return p.addObject(obj.Object)
}

// AddTextObject moves obj onto the page. The page owns it afterwards.
func (p *Page) AddTextObject(obj *TextObject) error {
	return p.addObject(obj.Object)
}

func (p *Page) addObject(o *Object) error {
	if err := p.ensureOpen(); err != nil {
		return err
	}
	if err := o.ensureOpen(); err != nil {
		return err
	}
	if !o.owned {
		return ErrInserted
	}
	if o.doc != p.doc {
		return ErrForeignObject
	}
	p.doc.lib.engine.InsertObject(p.handle, o.handle)
	p.doc.children.remove(o)
	o.owned = false
	o.page = p
	p.borrowed.add(o)
	p.doc.lib.trace("object", "insert")
	return nil
}

// GenerateContent regenerates the page content stream. Objects added to
// the page are not saved until it has been called.
func (p *Page) GenerateContent() error {
	if err := p.ensureOpen(); err != nil {
		return err
	}
	if err := p.doc.lib.checkBool(p.doc.lib.engine.GenerateContent(p.handle)); err != nil {
		return fmt.Errorf("generate content: %w", err)
	}
	return nil
}

// Close releases the page. Objects loaded from it become invalid.
func (p *Page) Close() {
	if p.closed {
		return
	}
	p.doc.children.remove(p)
	p.release()
}

func (p *Page) release() {
	if p.closed {
		return
	}
	p.borrowed.releaseAll()
	p.closed = true
	p.doc.lib.engine.ClosePage(p.handle)
	p.doc.lib.trace("page", "close")
}
