//go:build !cgo

package jpeg

import "github.com/jsscheller/pdfr/internal/raster"

// WriteFile always fails with ErrUnavailable.
func WriteFile(path string, r *raster.Raster, quality int) error {
	return ErrUnavailable
}
