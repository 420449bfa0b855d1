package pdfium

import (
	"fmt"
	"io"

	"github.com/jsscheller/pdfr/internal/fpdf"
)

// Document is an open PDF document. It owns the pages, fonts and
// not-yet-inserted objects created from it.
type Document struct {
	lib      *Library
	handle   fpdf.Document
	children registry
	closed   bool
}

// NewDocument creates an empty document.
func (l *Library) NewDocument() (*Document, error) {
	if err := l.ensureOpen(); err != nil {
		return nil, err
	}
	h := l.engine.CreateNewDocument()
	if err := l.checkHandle(h == nil, "CreateNewDocument"); err != nil {
		return nil, fmt.Errorf("create document: %w", err)
	}
	return l.newDocument(h), nil
}

// LoadDocument opens the PDF file at path.
func (l *Library) LoadDocument(path string) (*Document, error) {
	return l.LoadDocumentWithPassword(path, "")
}

// LoadDocumentWithPassword opens an encrypted PDF file. An empty password
// means none.
func (l *Library) LoadDocumentWithPassword(path, password string) (*Document, error) {
	if err := l.ensureOpen(); err != nil {
		return nil, err
	}
	h := l.engine.LoadDocument(path, password)
	if err := l.checkHandle(h == nil, "LoadDocument"); err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return l.newDocument(h), nil
}

func (l *Library) newDocument(h fpdf.Document) *Document {
	d := &Document{lib: l, handle: h}
	l.children.add(d)
	l.trace("document", "open")
	return d
}

func (d *Document) ensureOpen() error {
	if d.closed {
		return ErrClosed
	}
	return nil
}

func (d *Document) mustOpen() {
	if d.closed {
		panic("pdfium: use of closed document")
	}
}

// PageCount returns the number of pages.
func (d *Document) PageCount() int {
	d.mustOpen()
	return d.lib.engine.GetPageCount(d.handle)
}

// LoadPage opens the page at the 0-based index pos.
func (d *Document) LoadPage(pos int) (*Page, error) {
	if err := d.ensureOpen(); err != nil {
		return nil, err
	}
	h := d.lib.engine.LoadPage(d.handle, pos)
	if err := d.lib.checkHandle(h == nil, "LoadPage"); err != nil {
		return nil, fmt.Errorf("load page %d: %w", pos+1, err)
	}
	return d.newPage(h), nil
}

// CreatePage inserts a blank page of the given size in points at the
// 0-based index pos.
func (d *Document) CreatePage(pos int, width, height float64) (*Page, error) {
	if err := d.ensureOpen(); err != nil {
		return nil, err
	}
	h := d.lib.engine.NewPage(d.handle, pos, width, height)
	if err := d.lib.checkHandle(h == nil, "NewPage"); err != nil {
		return nil, fmt.Errorf("create page %d: %w", pos+1, err)
	}
	return d.newPage(h), nil
}

func (d *Document) newPage(h fpdf.Page) *Page {
	p := &Page{doc: d, handle: h}
	d.children.add(p)
	d.lib.trace("page", "open")
	return p
}

// CreateImageObject creates an empty image object. It belongs to the
// caller until it is added to a page.
func (d *Document) CreateImageObject() (*ImageObject, error) {
	if err := d.ensureOpen(); err != nil {
		return nil, err
	}
	h := d.lib.engine.NewImageObject(d.handle)
	if err := d.lib.checkHandle(h == nil, "NewImageObject"); err != nil {
		return nil, fmt.Errorf("create image object: %w", err)
	}
	return &ImageObject{Object: d.newObject(h)}, nil
}

// CreateTextObject creates an empty text object set in font at size
// points. It belongs to the caller until it is added to a page.
func (d *Document) CreateTextObject(font *Font, size float32) (*TextObject, error) {
	if err := d.ensureOpen(); err != nil {
		return nil, err
	}
	if err := font.ensureOpen(); err != nil {
		return nil, err
	}
	h := d.lib.engine.CreateTextObject(d.handle, font.handle, size)
	if err := d.lib.checkHandle(h == nil, "CreateTextObject"); err != nil {
		return nil, fmt.Errorf("create text object: %w", err)
	}
	return &TextObject{Object: d.newObject(h)}, nil
}

func (d *Document) newObject(h fpdf.PageObject) *Object {
	o := &Object{doc: d, handle: h, owned: true}
	d.children.add(o)
	d.lib.trace("object", "create")
	return o
}

// LoadStandardFont loads one of the 14 standard PDF fonts by name, e.g.
// "Helvetica" or "Times-Bold".
func (d *Document) LoadStandardFont(name string) (*Font, error) {
	if err := d.ensureOpen(); err != nil {
		return nil, err
	}
	h := d.lib.engine.LoadStandardFont(d.handle, name)
	if h == nil {
		err := d.lib.checkLastError()
		if err == nil {
			err = ErrUnknown
		}
		return nil, fmt.Errorf("load font %q: %w", name, err)
	}
	f := &Font{doc: d, handle: h}
	d.children.add(f)
	d.lib.trace("font", "load")
	return f, nil
}

// Save writes a full copy of the document to w. Only content committed
// with Page.GenerateContent is written. If w has a Flush() error method
// it is called once the copy is complete.
func (d *Document) Save(w io.Writer) error {
	if err := d.ensureOpen(); err != nil {
		return err
	}
	sink := &sinkWriter{w: w}
	if err := d.lib.checkBool(d.lib.engine.SaveAsCopy(d.handle, sink, 0)); err != nil {
		if sink.err != nil {
			return fmt.Errorf("save: %w: %w", ErrFile, sink.err)
		}
		return fmt.Errorf("save: %w", err)
	}
	if f, ok := w.(interface{ Flush() error }); ok {
		if err := f.Flush(); err != nil {
			return fmt.Errorf("save: %w: %w", ErrFile, err)
		}
	}
	if d.lib.log != nil {
		d.lib.log.Debug().Int64("bytes", sink.n).Msg("document saved")
	}
	return nil
}

// Close releases the document and everything it owns.
func (d *Document) Close() {
	if d.closed {
		return
	}
	d.lib.children.remove(d)
	d.release()
}

func (d *Document) release() {
	if d.closed {
		return
	}
	d.children.releaseAll()
	d.closed = true
	d.lib.engine.CloseDocument(d.handle)
	d.lib.trace("document", "close")
}

// sinkWriter counts bytes passed to the caller's writer and keeps the
// first error, which the engine's boolean result cannot carry.
type sinkWriter struct {
	w   io.Writer
	n   int64
	err error
}

func (s *sinkWriter) Write(p []byte) (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	n, err := s.w.Write(p)
	s.n += int64(n)
	if err == nil && n < len(p) {
		err = io.ErrShortWrite
	}
	if err != nil {
		s.err = err
	}
	return n, err
}
