// Package fpdf describes the handle-based C API of the PDFium engine as a
// Go interface.
//
// Handles are opaque pointers owned by the engine. They are only valid
// between the call that created them and the matching release call; the
// pdfium package is responsible for enforcing that ordering. Values
// mirror the constants in fpdfview.h, fpdf_edit.h and fpdf_save.h.
package fpdf

import (
	"io"
	"unsafe"
)

// Opaque native handles.
type (
	Document   unsafe.Pointer
	Page       unsafe.Pointer
	PageObject unsafe.Pointer
	Font       unsafe.Pointer
	Bitmap     unsafe.Pointer
)

// Last error codes reported by GetLastError.
const (
	ErrSuccess  uint32 = 0
	ErrUnknown  uint32 = 1
	ErrFile     uint32 = 2
	ErrFormat   uint32 = 3
	ErrPassword uint32 = 4
	ErrSecurity uint32 = 5
	ErrPage     uint32 = 6
)

// Bitmap pixel formats.
const (
	BitmapUnknown = 0
	BitmapGray    = 1
	BitmapBGR     = 2
	BitmapBGRx    = 3
	BitmapBGRA    = 4
)

// Page object types reported by GetObjectType.
const (
	PageObjUnknown = 0
	PageObjText    = 1
	PageObjPath    = 2
	PageObjImage   = 3
	PageObjShading = 4
	PageObjForm    = 5
)

// Engine is the subset of the PDFium API used by pdfr.
//
// Calls that may fail signal the failure through a nil handle or a false
// result; the cause is then available from GetLastError.
type Engine interface {
	InitLibrary()
	DestroyLibrary()
	GetLastError() uint32

	CreateNewDocument() Document
	LoadDocument(path, password string) Document
	CloseDocument(doc Document)
	GetPageCount(doc Document) int
	// SaveAsCopy streams the document to w through the native
	// FPDF_FILEWRITE callback.
	SaveAsCopy(doc Document, w io.Writer, flags uint32) bool

	NewPage(doc Document, index int, width, height float64) Page
	LoadPage(doc Document, index int) Page
	ClosePage(page Page)
	GetPageWidth(page Page) float32
	GetPageHeight(page Page) float32
	GetPageRotation(page Page) int
	CountObjects(page Page) int
	GetObject(page Page, index int) PageObject
	InsertObject(page Page, obj PageObject)
	GenerateContent(page Page) bool

	NewImageObject(doc Document) PageObject
	CreateTextObject(doc Document, font Font, size float32) PageObject
	DestroyPageObject(obj PageObject)
	GetObjectType(obj PageObject) int
	TransformObject(obj PageObject, a, b, c, d, e, f float64)
	GetRenderedBitmap(doc Document, page Page, obj PageObject) Bitmap
	SetImageBitmap(obj PageObject, bmp Bitmap) bool
	// SetText takes a UTF-16LE string including its two byte terminator.
	SetText(obj PageObject, text []byte) bool

	LoadStandardFont(doc Document, name string) Font
	CloseFont(font Font)

	CreateBitmap(width, height, format int) Bitmap
	DestroyBitmap(bmp Bitmap)
	GetBitmapWidth(bmp Bitmap) int
	GetBitmapHeight(bmp Bitmap) int
	GetBitmapStride(bmp Bitmap) int
	GetBitmapFormat(bmp Bitmap) int
	// GetBitmapBuffer returns the stride*height bytes backing the bitmap.
	GetBitmapBuffer(bmp Bitmap) []byte
	FillRect(bmp Bitmap, left, top, width, height int, color uint32)
	RenderPageBitmap(bmp Bitmap, page Page, startX, startY, sizeX, sizeY, rotate, flags int)
}
