//go:build cgo

package native

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"seehuhn.de/go/geom/matrix"

	"github.com/jsscheller/pdfr/internal/pdfium"
)

func open(t *testing.T) *pdfium.Library {
	t.Helper()
	engine, err := New()
	if err != nil {
		t.Fatal(err)
	}
	lib, err := pdfium.Init(engine)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(lib.Close)
	return lib
}

func TestSaveAndReload(t *testing.T) {
	lib := open(t)

	doc, err := lib.NewDocument()
	if err != nil {
		t.Fatal(err)
	}
	page, err := doc.CreatePage(0, 612, 792)
	if err != nil {
		t.Fatal(err)
	}
	font, err := doc.LoadStandardFont("Helvetica")
	if err != nil {
		t.Fatal(err)
	}
	text, err := doc.CreateTextObject(font, 24)
	if err != nil {
		t.Fatal(err)
	}
	if err := text.SetText("hello"); err != nil {
		t.Fatal(err)
	}
	text.Transform(matrix.Translate(72, 700))
	if err := page.AddTextObject(text); err != nil {
		t.Fatal(err)
	}
	if err := page.GenerateContent(); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := doc.Save(&buf); err != nil {
		t.Fatalf("Save: %v", err)
	}
	doc.Close()
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")) {
		t.Fatalf("output does not start with a PDF header: %q", buf.Bytes()[:min(16, buf.Len())])
	}

	path := filepath.Join(t.TempDir(), "out.pdf")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	reloaded, err := lib.LoadDocument(path)
	if err != nil {
		t.Fatalf("LoadDocument: %v", err)
	}
	defer reloaded.Close()
	if n := reloaded.PageCount(); n != 1 {
		t.Errorf("PageCount = %d, want 1", n)
	}
	p, err := reloaded.LoadPage(0)
	if err != nil {
		t.Fatal(err)
	}
	if p.ObjectCount() != 1 {
		t.Errorf("ObjectCount = %d, want 1", p.ObjectCount())
	}
}

type brokenWriter struct{}

func (brokenWriter) Write([]byte) (int, error) { return 0, errors.New("broken") }

func TestSaveToFailingWriter(t *testing.T) {
	lib := open(t)
	doc, err := lib.NewDocument()
	if err != nil {
		t.Fatal(err)
	}
	defer doc.Close()
	if _, err := doc.CreatePage(0, 100, 100); err != nil {
		t.Fatal(err)
	}
	if err := doc.Save(brokenWriter{}); !errors.Is(err, pdfium.ErrFile) {
		t.Errorf("Save = %v, want ErrFile", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	lib := open(t)
	_, err := lib.LoadDocument(filepath.Join(t.TempDir(), "missing.pdf"))
	if !errors.Is(err, pdfium.ErrFile) {
		t.Errorf("LoadDocument = %v, want ErrFile", err)
	}
}
