// Package pdfium wraps the handle-based PDF engine API in owned Go values.
//
// Every wrapper is created through a live *Library and releases its
// native handle exactly once, either through Close or when its owner is
// closed. Owners release their children first:
//
//	Library -> Document -> Page -> (borrowed) Object
//	        |           -> Object (created, not yet inserted)
//	        |           -> Font
//	        -> Bitmap
//
// The engine is not safe for concurrent use; neither are the wrappers.
package pdfium

import (
	"sync/atomic"

	"github.com/felixgeelhaar/bolt/v3"

	"github.com/jsscheller/pdfr/internal/fpdf"
	"github.com/jsscheller/pdfr/internal/raster"
)

// active guards the process-wide engine state.
var active atomic.Bool

// JPEGWriter encodes a pixel buffer to a JPEG file.
type JPEGWriter interface {
	WriteJPEG(path string, r *raster.Raster, quality int) error
}

// Library is the initialised engine. At most one Library is live at a time.
type Library struct {
	engine   fpdf.Engine
	log      *bolt.Logger
	jpeg     JPEGWriter
	children registry
	closed   bool
}

// Option configures a Library.
type Option func(*Library)

// WithLogger logs handle lifecycle events at trace level.
func WithLogger(log *bolt.Logger) Option {
	return func(l *Library) { l.log = log }
}

// WithJPEGWriter sets the codec used by Bitmap.WriteJPEG.
func WithJPEGWriter(w JPEGWriter) Option {
	return func(l *Library) { l.jpeg = w }
}

// Init initialises engine. It fails with ErrLibraryActive while another
// Library is open.
func Init(engine fpdf.Engine, opts ...Option) (*Library, error) {
	if !active.CompareAndSwap(false, true) {
		return nil, ErrLibraryActive
	}
	l := &Library{engine: engine}
	for _, opt := range opts {
		opt(l)
	}
	engine.InitLibrary()
	l.trace("library", "init")
	return l, nil
}

// Close releases every document and bitmap still open, then tears the
// engine down. Further calls do nothing.
func (l *Library) Close() {
	if l.closed {
		return
	}
	l.children.releaseAll()
	l.closed = true
	l.engine.DestroyLibrary()
	l.trace("library", "destroy")
	active.Store(false)
}

func (l *Library) ensureOpen() error {
	if l.closed {
		return ErrClosed
	}
	return nil
}

func (l *Library) trace(handle, action string) {
	if l.log == nil {
		return
	}
	l.log.Trace().Str("handle", handle).Str("action", action).Msg("pdfium")
}

// releaser is a wrapper its owner can release.
type releaser interface {
	release()
}

// registry tracks the children of an owner in creation order.
type registry struct {
	items []releaser
}

func (r *registry) add(c releaser) {
	r.items = append(r.items, c)
}

func (r *registry) remove(c releaser) {
	for i := len(r.items) - 1; i >= 0; i-- {
		if r.items[i] == c {
			r.items = append(r.items[:i], r.items[i+1:]...)
			return
		}
	}
}

// releaseAll releases children newest first.
func (r *registry) releaseAll() {
	items := r.items
	r.items = nil
	for i := len(items) - 1; i >= 0; i-- {
		items[i].release()
	}
}

func (r *registry) len() int { return len(r.items) }
