//go:build cgo

// Package native implements fpdf.Engine on top of libpdfium.
//
// The library is located through pkg-config (pdfium.pc). Prebuilt
// PDFium binaries usually ship without one; point PKG_CONFIG_PATH at a
// hand-written file or set CGO_CFLAGS/CGO_LDFLAGS instead.
package native

/*
#cgo pkg-config: pdfium
#include <stdint.h>
#include <stdlib.h>
#include <fpdfview.h>
#include <fpdf_edit.h>
#include <fpdf_save.h>

int pdfrWriteBlock(uintptr_t handle, void *data, unsigned long size);

// FPDF_FILEWRITE must stay the first member: PDFium only ever sees a
// pointer to it, the thunk casts back to recover the trailing handle.
typedef struct {
	FPDF_FILEWRITE fw;
	uintptr_t handle;
} pdfr_file_write;

static inline int pdfr_write_block_thunk(FPDF_FILEWRITE *self, const void *data, unsigned long size) {
	return pdfrWriteBlock(((pdfr_file_write *)self)->handle, (void *)data, size);
}

static inline void pdfr_file_write_init(pdfr_file_write *w, uintptr_t handle) {
	w->fw.version = 1;
	w->fw.WriteBlock = pdfr_write_block_thunk;
	w->handle = handle;
}
*/
import "C"

import (
	"io"
	"runtime/cgo"
	"unsafe"

	"github.com/jsscheller/pdfr/internal/fpdf"
)

// Engine forwards every call to libpdfium. It carries no state; all
// state lives in the native library.
type Engine struct{}

var _ fpdf.Engine = Engine{}

// New returns the libpdfium engine.
func New() (fpdf.Engine, error) {
	return Engine{}, nil
}

//export pdfrWriteBlock
func pdfrWriteBlock(handle C.uintptr_t, data unsafe.Pointer, size C.ulong) C.int {
	w, ok := cgo.Handle(handle).Value().(io.Writer)
	if !ok {
		return 0
	}
	if size == 0 {
		return 1
	}
	if _, err := w.Write(unsafe.Slice((*byte)(data), int(size))); err != nil {
		return 0
	}
	return 1
}

func (Engine) InitLibrary()    { C.FPDF_InitLibrary() }
func (Engine) DestroyLibrary() { C.FPDF_DestroyLibrary() }

func (Engine) GetLastError() uint32 {
	return uint32(C.FPDF_GetLastError())
}

func (Engine) CreateNewDocument() fpdf.Document {
	return fpdf.Document(unsafe.Pointer(C.FPDF_CreateNewDocument()))
}

func (Engine) LoadDocument(path, password string) fpdf.Document {
	cpath := C.CString(path)
	defer C.free(unsafe.Pointer(cpath))

	var cpassword *C.char
	if password != "" {
		cpassword = C.CString(password)
		defer C.free(unsafe.Pointer(cpassword))
	}
	return fpdf.Document(unsafe.Pointer(C.FPDF_LoadDocument(cpath, cpassword)))
}

func (Engine) CloseDocument(doc fpdf.Document) {
	C.FPDF_CloseDocument(cdoc(doc))
}

func (Engine) GetPageCount(doc fpdf.Document) int {
	return int(C.FPDF_GetPageCount(cdoc(doc)))
}

func (Engine) SaveAsCopy(doc fpdf.Document, w io.Writer, flags uint32) bool {
	h := cgo.NewHandle(w)
	defer h.Delete()

	fw := (*C.pdfr_file_write)(C.malloc(C.size_t(unsafe.Sizeof(C.pdfr_file_write{}))))
	if fw == nil {
		return false
	}
	defer C.free(unsafe.Pointer(fw))
	C.pdfr_file_write_init(fw, C.uintptr_t(h))

	return C.FPDF_SaveAsCopy(cdoc(doc), &fw.fw, C.FPDF_DWORD(flags)) != 0
}

func (Engine) NewPage(doc fpdf.Document, index int, width, height float64) fpdf.Page {
	return fpdf.Page(unsafe.Pointer(C.FPDFPage_New(cdoc(doc), C.int(index), C.double(width), C.double(height))))
}

func (Engine) LoadPage(doc fpdf.Document, index int) fpdf.Page {
	return fpdf.Page(unsafe.Pointer(C.FPDF_LoadPage(cdoc(doc), C.int(index))))
}

func (Engine) ClosePage(page fpdf.Page) {
	C.FPDF_ClosePage(cpage(page))
}

func (Engine) GetPageWidth(page fpdf.Page) float32 {
	return float32(C.FPDF_GetPageWidthF(cpage(page)))
}

func (Engine) GetPageHeight(page fpdf.Page) float32 {
	return float32(C.FPDF_GetPageHeightF(cpage(page)))
}

func (Engine) GetPageRotation(page fpdf.Page) int {
	return int(C.FPDFPage_GetRotation(cpage(page)))
}

func (Engine) CountObjects(page fpdf.Page) int {
	return int(C.FPDFPage_CountObjects(cpage(page)))
}

func (Engine) GetObject(page fpdf.Page, index int) fpdf.PageObject {
	return fpdf.PageObject(unsafe.Pointer(C.FPDFPage_GetObject(cpage(page), C.int(index))))
}

func (Engine) InsertObject(page fpdf.Page, obj fpdf.PageObject) {
	C.FPDFPage_InsertObject(cpage(page), cobj(obj))
}

func (Engine) GenerateContent(page fpdf.Page) bool {
	return C.FPDFPage_GenerateContent(cpage(page)) != 0
}

func (Engine) NewImageObject(doc fpdf.Document) fpdf.PageObject {
	return fpdf.PageObject(unsafe.Pointer(C.FPDFPageObj_NewImageObj(cdoc(doc))))
}

func (Engine) CreateTextObject(doc fpdf.Document, font fpdf.Font, size float32) fpdf.PageObject {
	return fpdf.PageObject(unsafe.Pointer(C.FPDFPageObj_CreateTextObj(cdoc(doc), cfont(font), C.float(size))))
}

func (Engine) DestroyPageObject(obj fpdf.PageObject) {
	C.FPDFPageObj_Destroy(cobj(obj))
}

func (Engine) GetObjectType(obj fpdf.PageObject) int {
	return int(C.FPDFPageObj_GetType(cobj(obj)))
}

func (Engine) TransformObject(obj fpdf.PageObject, a, b, c, d, e, f float64) {
	C.FPDFPageObj_Transform(cobj(obj), C.double(a), C.double(b), C.double(c), C.double(d), C.double(e), C.double(f))
}

func (Engine) GetRenderedBitmap(doc fpdf.Document, page fpdf.Page, obj fpdf.PageObject) fpdf.Bitmap {
	return fpdf.Bitmap(unsafe.Pointer(C.FPDFImageObj_GetRenderedBitmap(cdoc(doc), cpage(page), cobj(obj))))
}

func (Engine) SetImageBitmap(obj fpdf.PageObject, bmp fpdf.Bitmap) bool {
	return C.FPDFImageObj_SetBitmap(nil, 0, cobj(obj), cbitmap(bmp)) != 0
}

func (Engine) SetText(obj fpdf.PageObject, text []byte) bool {
	// Copy into C memory so the string is suitably aligned for FPDF_WCHAR.
	ctext := C.CBytes(text)
	defer C.free(ctext)
	return C.FPDFText_SetText(cobj(obj), C.FPDF_WIDESTRING(ctext)) != 0
}

func (Engine) LoadStandardFont(doc fpdf.Document, name string) fpdf.Font {
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))
	return fpdf.Font(unsafe.Pointer(C.FPDFText_LoadStandardFont(cdoc(doc), cname)))
}

func (Engine) CloseFont(font fpdf.Font) {
	C.FPDFFont_Close(cfont(font))
}

func (Engine) CreateBitmap(width, height, format int) fpdf.Bitmap {
	return fpdf.Bitmap(unsafe.Pointer(C.FPDFBitmap_CreateEx(C.int(width), C.int(height), C.int(format), nil, 0)))
}

func (Engine) DestroyBitmap(bmp fpdf.Bitmap) {
	C.FPDFBitmap_Destroy(cbitmap(bmp))
}

func (Engine) GetBitmapWidth(bmp fpdf.Bitmap) int {
	return int(C.FPDFBitmap_GetWidth(cbitmap(bmp)))
}

func (Engine) GetBitmapHeight(bmp fpdf.Bitmap) int {
	return int(C.FPDFBitmap_GetHeight(cbitmap(bmp)))
}

func (Engine) GetBitmapStride(bmp fpdf.Bitmap) int {
	return int(C.FPDFBitmap_GetStride(cbitmap(bmp)))
}

func (Engine) GetBitmapFormat(bmp fpdf.Bitmap) int {
	return int(C.FPDFBitmap_GetFormat(cbitmap(bmp)))
}

func (e Engine) GetBitmapBuffer(bmp fpdf.Bitmap) []byte {
	ptr := C.FPDFBitmap_GetBuffer(cbitmap(bmp))
	if ptr == nil {
		return nil
	}
	n := e.GetBitmapStride(bmp) * e.GetBitmapHeight(bmp)
	return unsafe.Slice((*byte)(ptr), n)
}

func (Engine) FillRect(bmp fpdf.Bitmap, left, top, width, height int, color uint32) {
	C.FPDFBitmap_FillRect(cbitmap(bmp), C.int(left), C.int(top), C.int(width), C.int(height), C.FPDF_DWORD(color))
}

func (Engine) RenderPageBitmap(bmp fpdf.Bitmap, page fpdf.Page, startX, startY, sizeX, sizeY, rotate, flags int) {
	C.FPDF_RenderPageBitmap(cbitmap(bmp), cpage(page),
		C.int(startX), C.int(startY), C.int(sizeX), C.int(sizeY), C.int(rotate), C.int(flags))
}

func cdoc(h fpdf.Document) C.FPDF_DOCUMENT      { return C.FPDF_DOCUMENT(unsafe.Pointer(h)) }
func cpage(h fpdf.Page) C.FPDF_PAGE             { return C.FPDF_PAGE(unsafe.Pointer(h)) }
func cobj(h fpdf.PageObject) C.FPDF_PAGEOBJECT  { return C.FPDF_PAGEOBJECT(unsafe.Pointer(h)) }
func cfont(h fpdf.Font) C.FPDF_FONT             { return C.FPDF_FONT(unsafe.Pointer(h)) }
func cbitmap(h fpdf.Bitmap) C.FPDF_BITMAP       { return C.FPDF_BITMAP(unsafe.Pointer(h)) }
