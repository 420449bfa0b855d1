package pdfium

import (
	"bytes"
	"errors"
	"testing"

	"github.com/jsscheller/pdfr/internal/fpdf"
	"github.com/jsscheller/pdfr/internal/fpdf/fpdftest"
)

func imageDoc(t *testing.T) string {
	return writeDoc(t, fpdftest.File{Pages: []fpdftest.PageSpec{{
		Width:  100,
		Height: 100,
		Objects: []fpdftest.ObjectSpec{
			fpdftest.Image(4, 3, fpdf.BitmapBGR, 0x7f),
			fpdftest.Path(),
			fpdftest.Image(2, 2, fpdf.BitmapGray, 0x10),
		},
	}}})
}

func TestIntoImage(t *testing.T) {
	lib, _ := newLibrary(t)
	doc, err := lib.LoadDocument(imageDoc(t))
	if err != nil {
		t.Fatal(err)
	}
	defer doc.Close()
	page, err := doc.LoadPage(0)
	if err != nil {
		t.Fatal(err)
	}

	if n := page.ObjectCount(); n != 3 {
		t.Fatalf("ObjectCount = %d, want 3", n)
	}

	obj, err := page.LoadObject(0)
	if err != nil {
		t.Fatal(err)
	}
	if obj.Type() != ObjectImage {
		t.Errorf("Type = %v, want image", obj.Type())
	}
	if img := obj.IntoImage(); img == nil {
		t.Error("IntoImage returned nil for an image object")
	}

	path, err := page.LoadObject(1)
	if err != nil {
		t.Fatal(err)
	}
	if img := path.IntoImage(); img != nil {
		t.Error("IntoImage returned an image for a path object")
	}
	expectPanic(t, "Type after failed IntoImage", func() { path.Type() })

	// The native object is untouched and can be loaded again.
	again, err := page.LoadObject(1)
	if err != nil {
		t.Fatal(err)
	}
	if again.Type() != ObjectPath {
		t.Errorf("Type = %v, want path", again.Type())
	}

	if _, err := page.LoadObject(3); !errors.Is(err, ErrRange) {
		t.Errorf("LoadObject(3) = %v, want ErrRange", err)
	}
}

func TestImageObjectBitmap(t *testing.T) {
	lib, _ := newLibrary(t)
	doc, err := lib.LoadDocument(imageDoc(t))
	if err != nil {
		t.Fatal(err)
	}
	defer doc.Close()
	page, err := doc.LoadPage(0)
	if err != nil {
		t.Fatal(err)
	}
	defer page.Close()

	obj, err := page.LoadObject(2)
	if err != nil {
		t.Fatal(err)
	}
	img := obj.IntoImage()
	bmp, err := img.Bitmap(doc, page)
	if err != nil {
		t.Fatalf("Bitmap: %v", err)
	}
	defer bmp.Close()

	r, err := bmp.Raster()
	if err != nil {
		t.Fatalf("Raster: %v", err)
	}
	if r.Width != 2 || r.Height != 2 || r.Format.String() != "gray" {
		t.Errorf("raster = %dx%d %v, want 2x2 gray", r.Width, r.Height, r.Format)
	}
	if r.Pix[0] != 0x10 {
		t.Errorf("Pix[0] = %#x, want 0x10", r.Pix[0])
	}
}

func TestBorrowedObjectsInvalidatedByPageClose(t *testing.T) {
	lib, e := newLibrary(t)
	doc, err := lib.LoadDocument(imageDoc(t))
	if err != nil {
		t.Fatal(err)
	}
	defer doc.Close()
	page, err := doc.LoadPage(0)
	if err != nil {
		t.Fatal(err)
	}
	obj, err := page.LoadObject(0)
	if err != nil {
		t.Fatal(err)
	}

	page.Close()

	expectPanic(t, "Type", func() { obj.Type() })
	if img := obj.IntoImage(); img != nil {
		t.Error("IntoImage on an invalidated object returned a value")
	}
	obj.Close()
	if got := e.Released(fpdftest.Objects); got != 0 {
		t.Errorf("borrowed objects must not be destroyed, released = %d", got)
	}
}

func TestInsertTransfersOwnership(t *testing.T) {
	lib, e := newLibrary(t)
	doc, err := lib.NewDocument()
	if err != nil {
		t.Fatal(err)
	}
	defer doc.Close()
	page, err := doc.CreatePage(0, 50, 50)
	if err != nil {
		t.Fatal(err)
	}
	img, err := doc.CreateImageObject()
	if err != nil {
		t.Fatal(err)
	}
	if err := page.AddImageObject(img); err != nil {
		t.Fatal(err)
	}
	if err := page.AddImageObject(img); !errors.Is(err, ErrInserted) {
		t.Errorf("second AddImageObject = %v, want ErrInserted", err)
	}

	img.Close()
	img.Close()
	if v := e.Violations(); len(v) > 0 {
		t.Errorf("closing an inserted object touched the native handle: %v", v)
	}
	if n := page.ObjectCount(); n != 1 {
		t.Errorf("ObjectCount = %d, want 1", n)
	}

	unused, err := doc.CreateImageObject()
	if err != nil {
		t.Fatal(err)
	}
	unused.Close()
	if err := page.AddImageObject(unused); !errors.Is(err, ErrClosed) {
		t.Errorf("AddImageObject after Close = %v, want ErrClosed", err)
	}
	if got := e.Released(fpdftest.Objects); got != 2 {
		t.Errorf("released objects = %d, want 2", got)
	}
}

func TestInsertForeignObject(t *testing.T) {
	lib, e := newLibrary(t)
	owner, err := lib.NewDocument()
	if err != nil {
		t.Fatal(err)
	}
	defer owner.Close()
	other, err := lib.NewDocument()
	if err != nil {
		t.Fatal(err)
	}
	defer other.Close()

	page, err := other.CreatePage(0, 50, 50)
	if err != nil {
		t.Fatal(err)
	}
	defer page.Close()
	img, err := owner.CreateImageObject()
	if err != nil {
		t.Fatal(err)
	}
	defer img.Close()

	if err := page.AddImageObject(img); !errors.Is(err, ErrForeignObject) {
		t.Errorf("AddImageObject from another document = %v, want ErrForeignObject", err)
	}
	if n := page.ObjectCount(); n != 0 {
		t.Errorf("ObjectCount = %d, want 0", n)
	}
	if v := e.Violations(); len(v) > 0 {
		t.Errorf("handle violations: %v", v)
	}
}

func TestSetTextEmpty(t *testing.T) {
	lib, _ := newLibrary(t)
	doc, err := lib.NewDocument()
	if err != nil {
		t.Fatal(err)
	}
	defer doc.Close()
	page, err := doc.CreatePage(0, 50, 50)
	if err != nil {
		t.Fatal(err)
	}
	font, err := doc.LoadStandardFont("Courier")
	if err != nil {
		t.Fatal(err)
	}
	text, err := doc.CreateTextObject(font, 10)
	if err != nil {
		t.Fatal(err)
	}
	if err := text.SetText(""); err != nil {
		t.Fatalf("SetText: %v", err)
	}
	if err := page.AddTextObject(text); err != nil {
		t.Fatal(err)
	}
	if err := page.GenerateContent(); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := doc.Save(&buf); err != nil {
		t.Fatal(err)
	}
	f, err := fpdftest.Decode(buf.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if got := f.Pages[0].Objects[0].Text; got != " " {
		t.Errorf("text = %q, want a single space", got)
	}
}

func TestLoadStandardFontUnknown(t *testing.T) {
	lib, _ := newLibrary(t)
	doc, err := lib.NewDocument()
	if err != nil {
		t.Fatal(err)
	}
	defer doc.Close()

	if _, err := doc.LoadStandardFont("Comic Sans"); !errors.Is(err, ErrUnknown) {
		t.Errorf("LoadStandardFont = %v, want ErrUnknown", err)
	}

	font, err := doc.LoadStandardFont("Helvetica")
	if err != nil {
		t.Fatal(err)
	}
	font.Close()
	if _, err := doc.CreateTextObject(font, 12); !errors.Is(err, ErrClosed) {
		t.Errorf("CreateTextObject with closed font = %v, want ErrClosed", err)
	}
}
