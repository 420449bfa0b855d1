// Package jpeg writes pixel buffers to JPEG files with libjpeg-turbo.
//
// Rows are read straight from the buffer using its stride, so rasters
// that alias engine-owned bitmaps are encoded without a copy. Builds
// without cgo get a stub that reports ErrUnavailable.
package jpeg

import (
	"errors"

	"github.com/jsscheller/pdfr/internal/raster"
)

// ErrUnavailable is returned when pdfr was built without cgo.
var ErrUnavailable = errors.New("jpeg: libjpeg-turbo support not compiled in")

// Writer encodes with WriteFile.
type Writer struct{}

func (Writer) WriteJPEG(path string, r *raster.Raster, quality int) error {
	return WriteFile(path, r, quality)
}
