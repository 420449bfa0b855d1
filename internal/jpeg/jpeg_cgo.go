//go:build cgo

package jpeg

/*
#cgo pkg-config: libjpeg
#include <stdio.h>
#include <stdlib.h>
#include <string.h>
#include <setjmp.h>
#include <jpeglib.h>

typedef struct {
	struct jpeg_error_mgr pub;
	jmp_buf env;
	char *msg;
} pdfr_jpeg_error;

static void pdfr_jpeg_error_exit(j_common_ptr cinfo) {
	pdfr_jpeg_error *err = (pdfr_jpeg_error *)cinfo->err;
	(*cinfo->err->format_message)(cinfo, err->msg);
	longjmp(err->env, 1);
}

// pdfr_jpeg_write returns 0 on success, -1 if the file cannot be opened,
// -2 if it cannot be closed and 1 on a codec error described in msg.
static int pdfr_jpeg_write(const char *path, const unsigned char *pix,
		int width, int height, int stride, int color_space, int components,
		int quality, char *msg) {
	struct jpeg_compress_struct cinfo;
	pdfr_jpeg_error jerr;
	FILE * volatile file;
	JSAMPROW row;

	file = fopen(path, "wb");
	if (file == NULL) {
		return -1;
	}

	memset(&cinfo, 0, sizeof cinfo);
	cinfo.err = jpeg_std_error(&jerr.pub);
	jerr.pub.error_exit = pdfr_jpeg_error_exit;
	jerr.msg = msg;
	if (setjmp(jerr.env)) {
		jpeg_destroy_compress(&cinfo);
		fclose(file);
		return 1;
	}

	jpeg_create_compress(&cinfo);
	jpeg_stdio_dest(&cinfo, file);
	cinfo.image_width = width;
	cinfo.image_height = height;
	cinfo.input_components = components;
	cinfo.in_color_space = (J_COLOR_SPACE)color_space;
	jpeg_set_defaults(&cinfo);
	cinfo.dct_method = JDCT_ISLOW;
	jpeg_set_quality(&cinfo, quality, TRUE);

	jpeg_start_compress(&cinfo, TRUE);
	while (cinfo.next_scanline < cinfo.image_height) {
		row = (JSAMPROW)(pix + (size_t)cinfo.next_scanline * stride);
		jpeg_write_scanlines(&cinfo, &row, 1);
	}
	jpeg_finish_compress(&cinfo);
	jpeg_destroy_compress(&cinfo);

	if (fclose(file) != 0) {
		return -2;
	}
	return 0;
}
*/
import "C"

import (
	"fmt"
	"os"
	"unsafe"

	"github.com/jsscheller/pdfr/internal/raster"
)

func colorSpace(f raster.Format) (C.int, C.int, error) {
	switch f {
	case raster.Gray:
		return C.JCS_GRAYSCALE, 1, nil
	case raster.BGR:
		return C.JCS_EXT_BGR, 3, nil
	case raster.BGRX:
		return C.JCS_EXT_BGRX, 4, nil
	case raster.BGRA:
		return C.JCS_EXT_BGRA, 4, nil
	}
	return 0, 0, fmt.Errorf("jpeg: unsupported pixel format %v", f)
}

// WriteFile encodes r to a new JPEG file at path. quality ranges from 1
// to 100.
func WriteFile(path string, r *raster.Raster, quality int) error {
	if quality < 1 || quality > 100 {
		return fmt.Errorf("jpeg: quality %d out of range 1..100", quality)
	}
	cs, components, err := colorSpace(r.Format)
	if err != nil {
		return err
	}
	if err := r.Validate(); err != nil {
		return fmt.Errorf("jpeg: %w", err)
	}

	cpath := C.CString(path)
	defer C.free(unsafe.Pointer(cpath))
	msg := make([]C.char, C.JMSG_LENGTH_MAX)

	rc, errno := C.pdfr_jpeg_write(cpath, (*C.uchar)(unsafe.Pointer(&r.Pix[0])),
		C.int(r.Width), C.int(r.Height), C.int(r.Stride), cs, components,
		C.int(quality), &msg[0])
	switch rc {
	case 0:
		return nil
	case -1:
		return &os.PathError{Op: "open", Path: path, Err: errno}
	case -2:
		return &os.PathError{Op: "close", Path: path, Err: errno}
	}
	return fmt.Errorf("jpeg: %s: %s", path, C.GoString(&msg[0]))
}
