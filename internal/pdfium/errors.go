package pdfium

import (
	"errors"
	"fmt"

	"github.com/jsscheller/pdfr/internal/fpdf"
)

// ErrorCode is a failure reported by the PDF engine through its last
// error slot. Each code is an error value in its own right:
//
//	if errors.Is(err, pdfium.ErrPassword) { ... }
type ErrorCode uint32

const (
	ErrUnknown  = ErrorCode(fpdf.ErrUnknown)
	ErrFile     = ErrorCode(fpdf.ErrFile)
	ErrFormat   = ErrorCode(fpdf.ErrFormat)
	ErrPassword = ErrorCode(fpdf.ErrPassword)
	ErrSecurity = ErrorCode(fpdf.ErrSecurity)
	ErrPage     = ErrorCode(fpdf.ErrPage)
)

func (c ErrorCode) Error() string {
	switch c {
	case ErrUnknown:
		return "pdfium: unknown error"
	case ErrFile:
		return "pdfium: file not found or could not be opened"
	case ErrFormat:
		return "pdfium: file not in PDF format or corrupted"
	case ErrPassword:
		return "pdfium: password required or incorrect password"
	case ErrSecurity:
		return "pdfium: unsupported security scheme"
	case ErrPage:
		return "pdfium: page not found or content error"
	}
	return fmt.Sprintf("pdfium: error code %d", uint32(c))
}

var (
	ErrClosed        = errors.New("pdfium: use of closed handle")
	ErrLibraryActive = errors.New("pdfium: library already initialized")
	ErrBufferSize    = errors.New("pdfium: buffer length does not match stride * height")
	ErrUnknownFormat = errors.New("unknown image format")
	ErrRange         = errors.New("pdfium: index out of range")
	ErrInserted      = errors.New("pdfium: object already belongs to a page")
	ErrForeignObject = errors.New("pdfium: object belongs to another document")
)

// codeError maps a raw last-error value. Success and values outside the
// known set map to nil: the slot is left undefined after calls that
// succeed, so only recognised codes are trusted.
func codeError(raw uint32) error {
	switch c := ErrorCode(raw); c {
	case ErrUnknown, ErrFile, ErrFormat, ErrPassword, ErrSecurity, ErrPage:
		return c
	}
	return nil
}

func (l *Library) checkLastError() error {
	return codeError(l.engine.GetLastError())
}

// checkBool converts a boolean native result. A failure without a
// recognisable code is reported as ErrUnknown.
func (l *Library) checkBool(ok bool) error {
	if ok {
		return nil
	}
	if err := l.checkLastError(); err != nil {
		return err
	}
	return ErrUnknown
}

// checkHandle reports why a constructor returned a nil handle. A nil
// handle without an error code breaks the engine's contract.
func (l *Library) checkHandle(isNil bool, op string) error {
	if !isNil {
		return nil
	}
	if err := l.checkLastError(); err != nil {
		return err
	}
	panic(fmt.Sprintf("pdfium: %s returned a nil handle without an error", op))
}
