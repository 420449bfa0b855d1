package raster

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestFromImageSwapsChannels(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	img.SetNRGBA(0, 0, color.NRGBA{R: 1, G: 2, B: 3, A: 4})
	img.SetNRGBA(1, 0, color.NRGBA{R: 5, G: 6, B: 7, A: 255})

	r := FromImage(img)
	want := &Raster{Width: 2, Height: 1, Stride: 8, Format: BGRA, Pix: []byte{3, 2, 1, 4, 7, 6, 5, 255}}
	if diff := cmp.Diff(want, r); diff != "" {
		t.Errorf("FromImage mismatch (-want +got):\n%s", diff)
	}
}

func TestFromImageOffsetBounds(t *testing.T) {
	img := image.NewGray(image.Rect(3, 4, 6, 6))
	img.SetGray(3, 4, color.Gray{Y: 9})

	r := FromImage(img)
	if r.Width != 3 || r.Height != 2 || r.Stride != 12 {
		t.Fatalf("got %dx%d stride %d, want 3x2 stride 12", r.Width, r.Height, r.Stride)
	}
	if len(r.Pix) != r.Stride*r.Height {
		t.Errorf("len(Pix) = %d, want %d", len(r.Pix), r.Stride*r.Height)
	}
	if got := r.Pix[:4]; !cmp.Equal(got, []byte{9, 9, 9, 255}) {
		t.Errorf("first pixel = %v", got)
	}
}

func TestFromImageSubImage(t *testing.T) {
	parent := image.NewNRGBA(image.Rect(0, 0, 2, 3))
	parent.SetNRGBA(1, 0, color.NRGBA{R: 1, G: 2, B: 3, A: 4})
	parent.SetNRGBA(0, 2, color.NRGBA{R: 9, A: 255})

	r := FromImage(parent.SubImage(image.Rect(0, 0, 2, 1)))
	want := &Raster{Width: 2, Height: 1, Stride: 8, Format: BGRA, Pix: []byte{0, 0, 0, 0, 3, 2, 1, 4}}
	if diff := cmp.Diff(want, r); diff != "" {
		t.Errorf("FromImage mismatch (-want +got):\n%s", diff)
	}
}

func TestImageRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		format Format
		stride int
		pix    []byte
		want   color.Color
	}{
		{"gray", Gray, 4, []byte{10, 20, 0, 0, 30, 40, 0, 0}, color.Gray{Y: 30}},
		{"bgr", BGR, 8, []byte{1, 2, 3, 4, 5, 6, 0, 0, 7, 8, 9, 10, 11, 12, 0, 0}, color.NRGBA{R: 9, G: 8, B: 7, A: 255}},
		{"bgrx", BGRX, 8, []byte{1, 2, 3, 0, 4, 5, 6, 0, 7, 8, 9, 0, 10, 11, 12, 0}, color.NRGBA{R: 9, G: 8, B: 7, A: 255}},
		{"bgra", BGRA, 8, []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}, color.NRGBA{R: 11, G: 10, B: 9, A: 12}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &Raster{Width: 2, Height: 2, Stride: tt.stride, Format: tt.format, Pix: tt.pix}
			img, err := r.Image()
			if err != nil {
				t.Fatalf("Image: %v", err)
			}
			if got := img.At(0, 1); got != tt.want {
				t.Errorf("At(0, 1) = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		r    Raster
		ok   bool
	}{
		{"ok", Raster{Width: 2, Height: 2, Stride: 8, Format: BGRA, Pix: make([]byte, 16)}, true},
		{"padded", Raster{Width: 3, Height: 1, Stride: 12, Format: BGR, Pix: make([]byte, 12)}, true},
		{"unknown format", Raster{Width: 1, Height: 1, Stride: 4, Pix: make([]byte, 4)}, false},
		{"stride too small", Raster{Width: 2, Height: 1, Stride: 4, Format: BGRA, Pix: make([]byte, 8)}, false},
		{"short", Raster{Width: 2, Height: 2, Stride: 8, Format: BGRA, Pix: make([]byte, 15)}, false},
		{"empty", Raster{Format: Gray}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.r.Validate()
			if (err == nil) != tt.ok {
				t.Errorf("Validate() = %v, want ok=%v", err, tt.ok)
			}
		})
	}

	short := Raster{Width: 1, Height: 2, Stride: 4, Format: BGRA, Pix: make([]byte, 4)}
	if err := short.Validate(); !errors.Is(err, ErrShortBuffer) {
		t.Errorf("expected ErrShortBuffer, got %v", err)
	}
}

func TestDecode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, image.NewGray(image.Rect(0, 0, 5, 3))); err != nil {
		t.Fatal(err)
	}
	f.Close()

	img, err := Decode(path)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 5 || b.Dy() != 3 {
		t.Errorf("bounds = %v, want 5x3", b)
	}

	if _, err := Decode(filepath.Join(t.TempDir(), "missing.png")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected ErrNotExist, got %v", err)
	}
}
