//go:build !cgo

package native

import (
	"errors"

	"github.com/jsscheller/pdfr/internal/fpdf"
)

// ErrUnavailable is returned by New when pdfr was built without cgo.
var ErrUnavailable = errors.New("native: libpdfium support not compiled in")

// New always fails with ErrUnavailable.
func New() (fpdf.Engine, error) {
	return nil, ErrUnavailable
}
