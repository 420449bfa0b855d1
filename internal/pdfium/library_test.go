package pdfium

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/jsscheller/pdfr/internal/fpdf"
	"github.com/jsscheller/pdfr/internal/fpdf/fpdftest"
)

// newLibrary initialises a Library over a fake engine and checks on
// cleanup that every handle was released exactly once.
func newLibrary(t *testing.T, opts ...Option) (*Library, *fpdftest.Engine) {
	t.Helper()
	e := fpdftest.New()
	lib, err := Init(e, opts...)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	t.Cleanup(func() {
		lib.Close()
		for _, k := range []fpdftest.Kind{fpdftest.Documents, fpdftest.Pages, fpdftest.Objects, fpdftest.Fonts, fpdftest.Bitmaps} {
			if n := e.Live(k); n != 0 {
				t.Errorf("%d %s handle(s) leaked", n, k)
			}
		}
		if v := e.Violations(); len(v) > 0 {
			t.Errorf("handle violations: %v", v)
		}
	})
	return lib, e
}

// writeDoc stores a fake document in a temp dir and returns its path.
func writeDoc(t *testing.T, f fpdftest.File) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "in.pdf")
	if err := fpdftest.WriteFile(path, f); err != nil {
		t.Fatal(err)
	}
	return path
}

func expectPanic(t *testing.T, name string, fn func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Errorf("%s: expected panic", name)
		}
	}()
	fn()
}

func TestCodeError(t *testing.T) {
	tests := []struct {
		raw  uint32
		want error
	}{
		{fpdf.ErrSuccess, nil},
		{fpdf.ErrUnknown, ErrUnknown},
		{fpdf.ErrFile, ErrFile},
		{fpdf.ErrFormat, ErrFormat},
		{fpdf.ErrPassword, ErrPassword},
		{fpdf.ErrSecurity, ErrSecurity},
		{fpdf.ErrPage, ErrPage},
		{7, nil},
		{0xdeadbeef, nil},
	}

	for _, tt := range tests {
		if got := codeError(tt.raw); got != tt.want {
			t.Errorf("codeError(%d) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}

func TestErrorCodeIs(t *testing.T) {
	err := errors.Join(errors.New("context"), ErrPassword)
	if !errors.Is(err, ErrPassword) {
		t.Error("expected errors.Is to match ErrPassword")
	}
	if errors.Is(err, ErrFile) {
		t.Error("ErrPassword must not match ErrFile")
	}
	if ErrSecurity.Error() == ErrPage.Error() {
		t.Error("error codes must have distinct messages")
	}
}

func TestCheckBool(t *testing.T) {
	lib, e := newLibrary(t)

	if err := lib.checkBool(true); err != nil {
		t.Errorf("checkBool(true) = %v", err)
	}

	// Nothing recognisable in the last error slot.
	e.SetStaleError(0xdeadbeef)
	doc, err := lib.NewDocument()
	if err != nil {
		t.Fatal(err)
	}
	defer doc.Close()
	if err := lib.checkBool(false); err != ErrUnknown {
		t.Errorf("checkBool(false) = %v, want ErrUnknown", err)
	}

	e.Fail("GenerateContent", fpdf.ErrPage)
	page, err := doc.CreatePage(0, 100, 100)
	if err != nil {
		t.Fatal(err)
	}
	if err := page.GenerateContent(); !errors.Is(err, ErrPage) {
		t.Errorf("GenerateContent = %v, want ErrPage", err)
	}
}

func TestInitSingleLibrary(t *testing.T) {
	e := fpdftest.New()
	lib, err := Init(e)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}

	if _, err := Init(fpdftest.New()); !errors.Is(err, ErrLibraryActive) {
		t.Errorf("second Init = %v, want ErrLibraryActive", err)
	}

	lib.Close()
	lib.Close()
	if e.InitCount() != 1 || e.DestroyCount() != 1 {
		t.Errorf("init/destroy = %d/%d, want 1/1", e.InitCount(), e.DestroyCount())
	}

	if _, err := lib.NewDocument(); !errors.Is(err, ErrClosed) {
		t.Errorf("NewDocument after Close = %v, want ErrClosed", err)
	}

	again, err := Init(e)
	if err != nil {
		t.Fatalf("Init after Close: %v", err)
	}
	again.Close()
}

func TestLibraryCloseReleasesChildren(t *testing.T) {
	e := fpdftest.New()
	lib, err := Init(e)
	if err != nil {
		t.Fatal(err)
	}

	doc, err := lib.NewDocument()
	if err != nil {
		t.Fatal(err)
	}
	page, err := doc.CreatePage(0, 200, 100)
	if err != nil {
		t.Fatal(err)
	}
	font, err := doc.LoadStandardFont("Helvetica")
	if err != nil {
		t.Fatal(err)
	}
	text, err := doc.CreateTextObject(font, 12)
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
	bmp, err := lib.NewBitmap(4, 4, FormatBGRA)
	if err != nil {
		t.Fatal(err)
	}

	lib.Close()

	for _, k := range []fpdftest.Kind{fpdftest.Documents, fpdftest.Pages, fpdftest.Objects, fpdftest.Fonts, fpdftest.Bitmaps} {
		if n := e.Live(k); n != 0 {
			t.Errorf("%d %s handle(s) still live", n, k)
		}
	}
	if v := e.Violations(); len(v) > 0 {
		t.Errorf("violations: %v", v)
	}

	// Wrappers closed by their owner stay closed.
	text.Close()
	bmp.Close()
	page.Close()
	doc.Close()
	if got := e.Released(fpdftest.Objects); got != 2 {
		t.Errorf("released objects = %d, want 2", got)
	}
	if v := e.Violations(); len(v) > 0 {
		t.Errorf("violations after late Close: %v", v)
	}
}

func TestRegistryReleasesNewestFirst(t *testing.T) {
	var order []int
	var r registry
	for i := range 3 {
		r.add(releaseFunc(func() { order = append(order, i) }))
	}
	if r.len() != 3 {
		t.Fatalf("len = %d, want 3", r.len())
	}
	r.releaseAll()
	if r.len() != 0 {
		t.Errorf("len after releaseAll = %d", r.len())
	}
	if len(order) != 3 || order[0] != 2 || order[2] != 0 {
		t.Errorf("release order = %v, want [2 1 0]", order)
	}
}

type releaseCounter struct {
	fn func()
}

func (c *releaseCounter) release() { c.fn() }

func releaseFunc(fn func()) releaser { return &releaseCounter{fn: fn} }
