// Package fpdftest provides an in-memory fpdf.Engine for tests.
//
// The fake keeps just enough document state to observe what the pdfium
// wrappers do: which handles were created and released, what content a
// page carried when GenerateContent ran, and what reached the sink on
// save. Misuse of a handle (double release, use after release, release
// of an inserted object) is recorded as a violation instead of crashing.
package fpdftest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"unicode/utf16"
	"unsafe"

	"seehuhn.de/go/geom/matrix"

	"github.com/jsscheller/pdfr/internal/fpdf"
)

// Kind identifies a class of native handle.
type Kind int

const (
	Documents Kind = iota
	Pages
	Objects
	Fonts
	Bitmaps
)

func (k Kind) String() string {
	switch k {
	case Documents:
		return "document"
	case Pages:
		return "page"
	case Objects:
		return "object"
	case Fonts:
		return "font"
	case Bitmaps:
		return "bitmap"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

type docState struct {
	pages    []*pageState
	password string
	closed   bool
}

type pageState struct {
	width, height float64
	rotation      int
	live          []*objectState
	committed     []ObjectSpec
}

type pageHandle struct {
	doc    *docState
	state  *pageState
	closed bool
}

type objectState struct {
	spec      ObjectSpec
	doc       *docState
	owner     *pageState
	created   bool
	destroyed bool
}

type fontState struct {
	name   string
	doc    *docState
	closed bool
}

type bitmapState struct {
	width, height int
	format        int
	stride        int
	buf           []byte
	destroyed     bool
}

// Engine is a fake fpdf.Engine. The zero value is not usable; call New.
type Engine struct {
	mu sync.Mutex

	initCount    int
	destroyCount int
	lastErr      uint32
	staleErr     uint32

	failures map[string]uint32
	handles  map[unsafe.Pointer]Kind
	created  map[Kind]int
	released map[Kind]int

	violations  []string
	saveFlags   []uint32
	renders     []Render
	chunkSizes  []int
	renderColor [4]byte
}

// Render records one RenderPageBitmap call.
type Render struct {
	Width, Height int
	Rotate        int
	Flags         int
	PageWidth     float64
	PageHeight    float64
}

var _ fpdf.Engine = (*Engine)(nil)

// New returns an empty fake engine.
func New() *Engine {
	return &Engine{
		failures:    make(map[string]uint32),
		handles:     make(map[unsafe.Pointer]Kind),
		created:     make(map[Kind]int),
		released:    make(map[Kind]int),
		chunkSizes:  []int{1, 7, 64, 4096},
		renderColor: [4]byte{0x20, 0x40, 0x60, 0xff},
	}
}

// Fail makes the next call of the named engine method fail and report
// code through GetLastError. A code of zero makes the call return a nil
// handle while reporting success, which no real engine should do.
func (e *Engine) Fail(method string, code uint32) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failures[method] = code
}

// SetStaleError makes GetLastError return code after successful calls,
// mimicking the undefined value the native library leaves behind.
func (e *Engine) SetStaleError(code uint32) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.staleErr = code
}

// Created reports how many handles of kind k were handed out by
// constructors. Objects borrowed from pages are not counted.
func (e *Engine) Created(k Kind) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.created[k]
}

// Released reports how many handles of kind k were released. Inserting
// an object into a page counts as releasing it.
func (e *Engine) Released(k Kind) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.released[k]
}

// Live reports how many handles of kind k are still outstanding.
func (e *Engine) Live(k Kind) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.created[k] - e.released[k]
}

// Violations returns every handle misuse seen so far.
func (e *Engine) Violations() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.violations...)
}

// InitCount and DestroyCount report library lifecycle calls.
func (e *Engine) InitCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.initCount
}

func (e *Engine) DestroyCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.destroyCount
}

// SaveFlags returns the flags passed to every SaveAsCopy call.
func (e *Engine) SaveFlags() []uint32 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]uint32(nil), e.saveFlags...)
}

// Renders returns every RenderPageBitmap call.
func (e *Engine) Renders() []Render {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Render(nil), e.renders...)
}

func (e *Engine) violate(format string, args ...any) {
	e.violations = append(e.violations, fmt.Sprintf(format, args...))
}

// fail consumes a pending failure for method.
func (e *Engine) fail(method string) bool {
	code, ok := e.failures[method]
	if !ok {
		return false
	}
	delete(e.failures, method)
	e.lastErr = code
	return true
}

func (e *Engine) succeed() {
	e.lastErr = e.staleErr
}

func (e *Engine) track(k Kind, p unsafe.Pointer) {
	e.handles[p] = k
	e.created[k]++
}

func (e *Engine) release(k Kind, p unsafe.Pointer) bool {
	if got, ok := e.handles[p]; !ok || got != k {
		e.violate("release of unknown or already released %s handle", k)
		return false
	}
	delete(e.handles, p)
	e.released[k]++
	return true
}

func (e *Engine) check(k Kind, p unsafe.Pointer, op string) bool {
	if p == nil {
		e.violate("%s: nil %s handle", op, k)
		return false
	}
	if got, ok := e.handles[p]; ok && got == k {
		return true
	}
	if k == Objects {
		// borrowed objects are not tracked
		obj := (*objectState)(p)
		if !obj.destroyed {
			return true
		}
	}
	e.violate("%s: use of released %s handle", op, k)
	return false
}

func (e *Engine) InitLibrary() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.initCount++
}

func (e *Engine) DestroyLibrary() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.destroyCount++
	for _, k := range []Kind{Documents, Bitmaps} {
		if n := e.created[k] - e.released[k]; n > 0 {
			e.violate("library destroyed with %d live %s handle(s)", n, k)
		}
	}
}

func (e *Engine) GetLastError() uint32 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr
}

func (e *Engine) CreateNewDocument() fpdf.Document {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.fail("CreateNewDocument") {
		return nil
	}
	doc := &docState{}
	e.track(Documents, unsafe.Pointer(doc))
	e.succeed()
	return fpdf.Document(unsafe.Pointer(doc))
}

func (e *Engine) LoadDocument(path, password string) fpdf.Document {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.fail("LoadDocument") {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		e.lastErr = fpdf.ErrFile
		return nil
	}
	spec, err := decode(data)
	if err != nil {
		e.lastErr = fpdf.ErrFormat
		return nil
	}
	if spec.Password != "" && spec.Password != password {
		e.lastErr = fpdf.ErrPassword
		return nil
	}
	doc := &docState{password: spec.Password}
	for _, ps := range spec.Pages {
		page := &pageState{width: ps.Width, height: ps.Height, rotation: ps.Rotation}
		for _, o := range ps.Objects {
			page.live = append(page.live, &objectState{spec: o, doc: doc, owner: page})
		}
		page.committed = append([]ObjectSpec(nil), ps.Objects...)
		doc.pages = append(doc.pages, page)
	}
	e.track(Documents, unsafe.Pointer(doc))
	e.succeed()
	return fpdf.Document(unsafe.Pointer(doc))
}

func (e *Engine) CloseDocument(h fpdf.Document) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p := unsafe.Pointer(h)
	if !e.check(Documents, p, "CloseDocument") {
		return
	}
	doc := (*docState)(p)
	for hp, k := range e.handles {
		switch k {
		case Pages:
			if (*pageHandle)(hp).doc == doc {
				e.violate("document closed before its page")
			}
		case Objects:
			if (*objectState)(hp).doc == doc {
				e.violate("document closed before its object")
			}
		case Fonts:
			if (*fontState)(hp).doc == doc {
				e.violate("document closed before its font")
			}
		}
	}
	doc.closed = true
	e.release(Documents, p)
}

func (e *Engine) GetPageCount(h fpdf.Document) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.check(Documents, unsafe.Pointer(h), "GetPageCount") {
		return 0
	}
	return len((*docState)(unsafe.Pointer(h)).pages)
}

func (e *Engine) SaveAsCopy(h fpdf.Document, w io.Writer, flags uint32) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.saveFlags = append(e.saveFlags, flags)
	if !e.check(Documents, unsafe.Pointer(h), "SaveAsCopy") {
		return false
	}
	if e.fail("SaveAsCopy") {
		return false
	}
	doc := (*docState)(unsafe.Pointer(h))
	spec := File{Password: doc.password}
	for _, page := range doc.pages {
		spec.Pages = append(spec.Pages, PageSpec{
			Width:    page.width,
			Height:   page.height,
			Rotation: page.rotation,
			Objects:  append([]ObjectSpec(nil), page.committed...),
		})
	}
	data, err := encode(spec)
	if err != nil {
		e.lastErr = fpdf.ErrUnknown
		return false
	}
	// Emit blocks of varying size, the way the native writer does.
	for i := 0; len(data) > 0; i++ {
		n := min(e.chunkSizes[i%len(e.chunkSizes)], len(data))
		if _, err := w.Write(data[:n]); err != nil {
			e.lastErr = fpdf.ErrFile
			return false
		}
		data = data[n:]
	}
	e.succeed()
	return true
}

func (e *Engine) NewPage(h fpdf.Document, index int, width, height float64) fpdf.Page {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.check(Documents, unsafe.Pointer(h), "NewPage") || e.fail("NewPage") {
		return nil
	}
	doc := (*docState)(unsafe.Pointer(h))
	index = max(0, min(index, len(doc.pages)))
	state := &pageState{width: width, height: height}
	doc.pages = append(doc.pages, nil)
	copy(doc.pages[index+1:], doc.pages[index:])
	doc.pages[index] = state
	page := &pageHandle{doc: doc, state: state}
	e.track(Pages, unsafe.Pointer(page))
	e.succeed()
	return fpdf.Page(unsafe.Pointer(page))
}

func (e *Engine) LoadPage(h fpdf.Document, index int) fpdf.Page {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.check(Documents, unsafe.Pointer(h), "LoadPage") || e.fail("LoadPage") {
		return nil
	}
	doc := (*docState)(unsafe.Pointer(h))
	if index < 0 || index >= len(doc.pages) {
		e.lastErr = fpdf.ErrPage
		return nil
	}
	page := &pageHandle{doc: doc, state: doc.pages[index]}
	e.track(Pages, unsafe.Pointer(page))
	e.succeed()
	return fpdf.Page(unsafe.Pointer(page))
}

func (e *Engine) ClosePage(h fpdf.Page) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p := unsafe.Pointer(h)
	if !e.check(Pages, p, "ClosePage") {
		return
	}
	(*pageHandle)(p).closed = true
	e.release(Pages, p)
}

func (e *Engine) page(h fpdf.Page, op string) *pageHandle {
	if !e.check(Pages, unsafe.Pointer(h), op) {
		return nil
	}
	return (*pageHandle)(unsafe.Pointer(h))
}

func (e *Engine) GetPageWidth(h fpdf.Page) float32 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if page := e.page(h, "GetPageWidth"); page != nil {
		return float32(page.state.width)
	}
	return 0
}

func (e *Engine) GetPageHeight(h fpdf.Page) float32 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if page := e.page(h, "GetPageHeight"); page != nil {
		return float32(page.state.height)
	}
	return 0
}

func (e *Engine) GetPageRotation(h fpdf.Page) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if page := e.page(h, "GetPageRotation"); page != nil {
		return page.state.rotation
	}
	return 0
}

func (e *Engine) CountObjects(h fpdf.Page) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if page := e.page(h, "CountObjects"); page != nil {
		return len(page.state.live)
	}
	return 0
}

func (e *Engine) GetObject(h fpdf.Page, index int) fpdf.PageObject {
	e.mu.Lock()
	defer e.mu.Unlock()
	page := e.page(h, "GetObject")
	if page == nil || index < 0 || index >= len(page.state.live) {
		return nil
	}
	return fpdf.PageObject(unsafe.Pointer(page.state.live[index]))
}

func (e *Engine) InsertObject(h fpdf.Page, oh fpdf.PageObject) {
	e.mu.Lock()
	defer e.mu.Unlock()
	page := e.page(h, "InsertObject")
	if page == nil || !e.check(Objects, unsafe.Pointer(oh), "InsertObject") {
		return
	}
	obj := (*objectState)(unsafe.Pointer(oh))
	if obj.owner != nil {
		e.violate("InsertObject: object already belongs to a page")
		return
	}
	obj.owner = page.state
	page.state.live = append(page.state.live, obj)
	e.release(Objects, unsafe.Pointer(oh))
}

func (e *Engine) GenerateContent(h fpdf.Page) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	page := e.page(h, "GenerateContent")
	if page == nil || e.fail("GenerateContent") {
		return false
	}
	page.state.committed = page.state.committed[:0]
	for _, obj := range page.state.live {
		page.state.committed = append(page.state.committed, obj.spec)
	}
	e.succeed()
	return true
}

func (e *Engine) newObject(h fpdf.Document, spec ObjectSpec) fpdf.PageObject {
	obj := &objectState{spec: spec, doc: (*docState)(unsafe.Pointer(h)), created: true}
	obj.spec.Matrix = matrix.Identity
	e.track(Objects, unsafe.Pointer(obj))
	e.succeed()
	return fpdf.PageObject(unsafe.Pointer(obj))
}

func (e *Engine) NewImageObject(h fpdf.Document) fpdf.PageObject {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.check(Documents, unsafe.Pointer(h), "NewImageObject") || e.fail("NewImageObject") {
		return nil
	}
	return e.newObject(h, ObjectSpec{Type: fpdf.PageObjImage})
}

func (e *Engine) CreateTextObject(h fpdf.Document, fh fpdf.Font, size float32) fpdf.PageObject {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.check(Documents, unsafe.Pointer(h), "CreateTextObject") ||
		!e.check(Fonts, unsafe.Pointer(fh), "CreateTextObject") ||
		e.fail("CreateTextObject") {
		return nil
	}
	font := (*fontState)(unsafe.Pointer(fh))
	return e.newObject(h, ObjectSpec{Type: fpdf.PageObjText, Font: font.name, FontSize: size})
}

func (e *Engine) DestroyPageObject(oh fpdf.PageObject) {
	e.mu.Lock()
	defer e.mu.Unlock()
	obj := (*objectState)(unsafe.Pointer(oh))
	if obj == nil {
		e.violate("DestroyPageObject: nil object handle")
		return
	}
	if obj.owner != nil {
		e.violate("DestroyPageObject: object belongs to a page")
		return
	}
	if e.release(Objects, unsafe.Pointer(oh)) {
		obj.destroyed = true
	}
}

func (e *Engine) GetObjectType(oh fpdf.PageObject) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.check(Objects, unsafe.Pointer(oh), "GetObjectType") {
		return fpdf.PageObjUnknown
	}
	return (*objectState)(unsafe.Pointer(oh)).spec.Type
}

func (e *Engine) TransformObject(oh fpdf.PageObject, a, b, c, d, f0, f1 float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.check(Objects, unsafe.Pointer(oh), "TransformObject") {
		return
	}
	obj := (*objectState)(unsafe.Pointer(oh))
	obj.spec.Matrix = obj.spec.Matrix.Mul(matrix.Matrix{a, b, c, d, f0, f1})
}

func (e *Engine) GetRenderedBitmap(dh fpdf.Document, ph fpdf.Page, oh fpdf.PageObject) fpdf.Bitmap {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.check(Documents, unsafe.Pointer(dh), "GetRenderedBitmap") ||
		e.page(ph, "GetRenderedBitmap") == nil ||
		!e.check(Objects, unsafe.Pointer(oh), "GetRenderedBitmap") {
		return nil
	}
	if e.fail("GetRenderedBitmap") {
		return nil
	}
	obj := (*objectState)(unsafe.Pointer(oh))
	if obj.spec.Type != fpdf.PageObjImage || obj.spec.Image == nil {
		e.lastErr = fpdf.ErrUnknown
		return nil
	}
	img := obj.spec.Image
	bmp := e.newBitmap(img.Width, img.Height, img.Format)
	for i := range bmp.buf {
		bmp.buf[i] = img.Fill
	}
	e.succeed()
	return fpdf.Bitmap(unsafe.Pointer(bmp))
}

func (e *Engine) SetImageBitmap(oh fpdf.PageObject, bh fpdf.Bitmap) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.check(Objects, unsafe.Pointer(oh), "SetImageBitmap") ||
		!e.check(Bitmaps, unsafe.Pointer(bh), "SetImageBitmap") ||
		e.fail("SetImageBitmap") {
		return false
	}
	obj := (*objectState)(unsafe.Pointer(oh))
	if obj.spec.Type != fpdf.PageObjImage {
		e.lastErr = fpdf.ErrUnknown
		return false
	}
	bmp := (*bitmapState)(unsafe.Pointer(bh))
	img := &ImageSpec{Width: bmp.width, Height: bmp.height, Format: bmp.format}
	if len(bmp.buf) > 0 {
		img.Fill = bmp.buf[0]
	}
	obj.spec.Image = img
	e.succeed()
	return true
}

func (e *Engine) SetText(oh fpdf.PageObject, text []byte) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.check(Objects, unsafe.Pointer(oh), "SetText") || e.fail("SetText") {
		return false
	}
	obj := (*objectState)(unsafe.Pointer(oh))
	if obj.spec.Type != fpdf.PageObjText {
		e.lastErr = fpdf.ErrUnknown
		return false
	}
	n := len(text)
	if n < 2 || n%2 != 0 || text[n-1] != 0 || text[n-2] != 0 {
		e.violate("SetText: string is not null-terminated UTF-16")
		return false
	}
	units := make([]uint16, 0, n/2-1)
	for i := 0; i+1 < n-2; i += 2 {
		units = append(units, uint16(text[i])|uint16(text[i+1])<<8)
	}
	if len(units) == 0 {
		e.lastErr = fpdf.ErrUnknown
		return false
	}
	obj.spec.Text = string(utf16.Decode(units))
	e.succeed()
	return true
}

// standardFonts are the base-14 font names the native library knows.
var standardFonts = map[string]bool{
	"Courier": true, "Courier-Bold": true, "Courier-BoldOblique": true, "Courier-Oblique": true,
	"Helvetica": true, "Helvetica-Bold": true, "Helvetica-BoldOblique": true, "Helvetica-Oblique": true,
	"Times-Roman": true, "Times-Bold": true, "Times-BoldItalic": true, "Times-Italic": true,
	"Symbol": true, "ZapfDingbats": true,
}

func (e *Engine) LoadStandardFont(h fpdf.Document, name string) fpdf.Font {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.check(Documents, unsafe.Pointer(h), "LoadStandardFont") || e.fail("LoadStandardFont") {
		return nil
	}
	if !standardFonts[name] {
		e.lastErr = fpdf.ErrUnknown
		return nil
	}
	font := &fontState{name: name, doc: (*docState)(unsafe.Pointer(h))}
	e.track(Fonts, unsafe.Pointer(font))
	e.succeed()
	return fpdf.Font(unsafe.Pointer(font))
}

func (e *Engine) CloseFont(h fpdf.Font) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p := unsafe.Pointer(h)
	if !e.check(Fonts, p, "CloseFont") {
		return
	}
	(*fontState)(p).closed = true
	e.release(Fonts, p)
}

func bytesPerPixel(format int) int {
	switch format {
	case fpdf.BitmapGray:
		return 1
	case fpdf.BitmapBGR:
		return 3
	default:
		return 4
	}
}

func (e *Engine) newBitmap(width, height, format int) *bitmapState {
	// Rows are padded to four bytes like the native allocator does.
	stride := (width*bytesPerPixel(format) + 3) &^ 3
	bmp := &bitmapState{
		width:  width,
		height: height,
		format: format,
		stride: stride,
		buf:    make([]byte, stride*height),
	}
	e.track(Bitmaps, unsafe.Pointer(bmp))
	return bmp
}

func (e *Engine) CreateBitmap(width, height, format int) fpdf.Bitmap {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.fail("CreateBitmap") {
		return nil
	}
	if width <= 0 || height <= 0 {
		e.lastErr = fpdf.ErrUnknown
		return nil
	}
	bmp := e.newBitmap(width, height, format)
	e.succeed()
	return fpdf.Bitmap(unsafe.Pointer(bmp))
}

func (e *Engine) DestroyBitmap(h fpdf.Bitmap) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p := unsafe.Pointer(h)
	if !e.check(Bitmaps, p, "DestroyBitmap") {
		return
	}
	(*bitmapState)(p).destroyed = true
	e.release(Bitmaps, p)
}

func (e *Engine) bitmap(h fpdf.Bitmap, op string) *bitmapState {
	if !e.check(Bitmaps, unsafe.Pointer(h), op) {
		return nil
	}
	return (*bitmapState)(unsafe.Pointer(h))
}

func (e *Engine) GetBitmapWidth(h fpdf.Bitmap) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if bmp := e.bitmap(h, "GetBitmapWidth"); bmp != nil {
		return bmp.width
	}
	return 0
}

func (e *Engine) GetBitmapHeight(h fpdf.Bitmap) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if bmp := e.bitmap(h, "GetBitmapHeight"); bmp != nil {
		return bmp.height
	}
	return 0
}

func (e *Engine) GetBitmapStride(h fpdf.Bitmap) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if bmp := e.bitmap(h, "GetBitmapStride"); bmp != nil {
		return bmp.stride
	}
	return 0
}

func (e *Engine) GetBitmapFormat(h fpdf.Bitmap) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if bmp := e.bitmap(h, "GetBitmapFormat"); bmp != nil {
		return bmp.format
	}
	return fpdf.BitmapUnknown
}

func (e *Engine) GetBitmapBuffer(h fpdf.Bitmap) []byte {
	e.mu.Lock()
	defer e.mu.Unlock()
	if bmp := e.bitmap(h, "GetBitmapBuffer"); bmp != nil {
		return bmp.buf
	}
	return nil
}

func (e *Engine) FillRect(h fpdf.Bitmap, left, top, width, height int, color uint32) {
	e.mu.Lock()
	defer e.mu.Unlock()
	bmp := e.bitmap(h, "FillRect")
	if bmp == nil {
		return
	}
	// color is 0xAARRGGBB; pixels are stored B, G, R, A.
	px := [4]byte{byte(color), byte(color >> 8), byte(color >> 16), byte(color >> 24)}
	if bmp.format == fpdf.BitmapGray {
		px[0] = byte((299*uint32(px[2]) + 587*uint32(px[1]) + 114*uint32(px[0])) / 1000)
	}
	e.paint(bmp, left, top, width, height, px)
}

func (e *Engine) paint(bmp *bitmapState, left, top, width, height int, px [4]byte) {
	bpp := bytesPerPixel(bmp.format)
	for y := max(top, 0); y < min(top+height, bmp.height); y++ {
		row := bmp.buf[y*bmp.stride:]
		for x := max(left, 0); x < min(left+width, bmp.width); x++ {
			copy(row[x*bpp:x*bpp+bpp], px[:bpp])
		}
	}
}

// RenderPageBitmap paints the page area with a solid colour, leaving the
// rest of the bitmap untouched.
func (e *Engine) RenderPageBitmap(bh fpdf.Bitmap, ph fpdf.Page, startX, startY, sizeX, sizeY, rotate, flags int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	bmp := e.bitmap(bh, "RenderPageBitmap")
	page := e.page(ph, "RenderPageBitmap")
	if bmp == nil || page == nil {
		return
	}
	e.renders = append(e.renders, Render{
		Width:      sizeX,
		Height:     sizeY,
		Rotate:     rotate,
		Flags:      flags,
		PageWidth:  page.state.width,
		PageHeight: page.state.height,
	})
	e.paint(bmp, startX, startY, sizeX, sizeY, e.renderColor)
}

// File is the serialised form of a fake document.
type File struct {
	Password string     `json:"password,omitempty"`
	Pages    []PageSpec `json:"pages"`
}

// PageSpec describes one page of a fake document.
type PageSpec struct {
	Width    float64      `json:"width"`
	Height   float64      `json:"height"`
	Rotation int          `json:"rotation,omitempty"`
	Objects  []ObjectSpec `json:"objects,omitempty"`
}

// ObjectSpec describes one page object.
type ObjectSpec struct {
	Type     int           `json:"type"`
	Matrix   matrix.Matrix `json:"matrix"`
	Text     string        `json:"text,omitempty"`
	Font     string        `json:"font,omitempty"`
	FontSize float32       `json:"font_size,omitempty"`
	Image    *ImageSpec    `json:"image,omitempty"`
}

// ImageSpec describes the pixels behind an image object. Every byte of
// the rendered bitmap equals Fill.
type ImageSpec struct {
	Width  int  `json:"width"`
	Height int  `json:"height"`
	Format int  `json:"format"`
	Fill   byte `json:"fill"`
}

// Image returns an image object spec placed at the identity matrix.
func Image(width, height, format int, fill byte) ObjectSpec {
	return ObjectSpec{
		Type:   fpdf.PageObjImage,
		Matrix: matrix.Identity,
		Image:  &ImageSpec{Width: width, Height: height, Format: format, Fill: fill},
	}
}

// Path returns a vector path object spec.
func Path() ObjectSpec {
	return ObjectSpec{Type: fpdf.PageObjPath, Matrix: matrix.Identity}
}

var magic = []byte("%FAKEPDF-1\n")

var errNotFake = errors.New("fpdftest: not a fake document")

func encode(f File) ([]byte, error) {
	data, err := json.Marshal(f)
	if err != nil {
		return nil, err
	}
	return append(append([]byte(nil), magic...), data...), nil
}

func decode(data []byte) (File, error) {
	var f File
	if !bytes.HasPrefix(data, magic) {
		return f, errNotFake
	}
	err := json.Unmarshal(data[len(magic):], &f)
	return f, err
}

// WriteFile stores f at path in the format LoadDocument reads.
func WriteFile(path string, f File) error {
	data, err := encode(f)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadFile parses a document written by SaveAsCopy or WriteFile.
func ReadFile(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, err
	}
	return decode(data)
}

// Decode parses a saved document held in memory.
func Decode(data []byte) (File, error) {
	return decode(data)
}
