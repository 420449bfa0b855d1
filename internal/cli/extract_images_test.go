package cli

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/jsscheller/pdfr/internal/fpdf"
	"github.com/jsscheller/pdfr/internal/fpdf/fpdftest"
	"github.com/jsscheller/pdfr/internal/raster"
)

// imageDoc has five image objects; the first image of page 2 repeats the
// first image of page 1.
func imageDoc(t *testing.T, dir string) string {
	t.Helper()
	return writeDoc(t, dir, fpdftest.File{Pages: []fpdftest.PageSpec{
		{Width: 612, Height: 792, Objects: []fpdftest.ObjectSpec{
			fpdftest.Image(10, 10, fpdf.BitmapBGR, 0x11),
			fpdftest.Path(),
			fpdftest.Image(2, 2, fpdf.BitmapGray, 0x22),
		}},
		{Width: 612, Height: 792},
		{Width: 612, Height: 792, Objects: []fpdftest.ObjectSpec{
			fpdftest.Image(10, 10, fpdf.BitmapBGR, 0x11),
			fpdftest.Image(20, 5, fpdf.BitmapBGRA, 0x33),
			fpdftest.Image(50, 1, fpdf.BitmapBGRx, 0x44),
		}},
	}})
}

func TestExtractImagesFilters(t *testing.T) {
	tests := []struct {
		name  string
		args  []string
		sizes [][2]int
	}{
		{"all", nil, [][2]int{{10, 10}, {2, 2}, {10, 10}, {20, 5}, {50, 1}}},
		{"min width", []string{"--min-width", "10"}, [][2]int{{10, 10}, {10, 10}, {20, 5}, {50, 1}}},
		{"min height", []string{"--min-height", "5"}, [][2]int{{10, 10}, {10, 10}, {20, 5}}},
		{"min area", []string{"--min-area", "60"}, [][2]int{{10, 10}, {10, 10}, {20, 5}}},
		{"dedupe", []string{"--dedupe"}, [][2]int{{10, 10}, {2, 2}, {20, 5}, {50, 1}}},
		{"pages", []string{"--pages", "3"}, [][2]int{{10, 10}, {20, 5}, {50, 1}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ta := newTestApp(t)
			dir := t.TempDir()
			pdf := imageDoc(t, dir)
			out := filepath.Join(dir, "images")

			args := append([]string{"extract-images"}, tt.args...)
			if err := ta.run(append(args, pdf, out)...); err != nil {
				t.Fatalf("extract-images failed: %v", err)
			}

			if len(ta.jpeg.calls) != len(tt.sizes) {
				t.Fatalf("got %d images, want %d", len(ta.jpeg.calls), len(tt.sizes))
			}
			for i, call := range ta.jpeg.calls {
				wantPath := filepath.Join(out, "in_image_"+strconv.Itoa(i+1)+".jpg")
				if call.path != wantPath {
					t.Errorf("image %d written to %s, want %s", i+1, call.path, wantPath)
				}
				if call.width != tt.sizes[i][0] || call.height != tt.sizes[i][1] || call.quality != 92 {
					t.Errorf("image %d = %+v, want %v at quality 92", i+1, call, tt.sizes[i])
				}
			}
		})
	}
}

func TestExtractImagesPNG(t *testing.T) {
	ta := newTestApp(t)
	dir := t.TempDir()
	pdf := imageDoc(t, dir)
	out := filepath.Join(dir, "images")

	if err := ta.run("extract-images", "--format", "png", "--pages", "1", pdf, out); err != nil {
		t.Fatalf("extract-images failed: %v", err)
	}
	if len(ta.jpeg.calls) != 0 {
		t.Errorf("png output used the JPEG writer")
	}

	for _, name := range []string{"in_image_1.png", "in_image_2.png"} {
		path := filepath.Join(out, name)
		if _, err := os.Stat(path); err != nil {
			t.Errorf("missing %s: %v", name, err)
			continue
		}
		if _, err := raster.Decode(path); err != nil {
			t.Errorf("decode %s: %v", name, err)
		}
	}
}

func TestExtractImagesWebP(t *testing.T) {
	ta := newTestApp(t)
	dir := t.TempDir()
	pdf := imageDoc(t, dir)
	out := filepath.Join(dir, "images")

	if err := ta.run("extract-images", "--format", "webp", "--quality", "75", pdf, out); err != nil {
		t.Fatalf("extract-images failed: %v", err)
	}
	entries, err := os.ReadDir(out)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 5 {
		t.Errorf("wrote %d files, want 5", len(entries))
	}
	for _, e := range entries {
		if filepath.Ext(e.Name()) != ".webp" {
			t.Errorf("unexpected file %s", e.Name())
		}
	}
}

func TestExtractImagesNoImages(t *testing.T) {
	ta := newTestApp(t)
	dir := t.TempDir()
	pdf := writeDoc(t, dir, fpdftest.File{Pages: []fpdftest.PageSpec{
		{Width: 612, Height: 792, Objects: []fpdftest.ObjectSpec{fpdftest.Path(), fpdftest.Path()}},
		{Width: 612, Height: 792},
	}})
	out := filepath.Join(dir, "images")

	if err := ta.run("extract-images", pdf, out); err != nil {
		t.Fatalf("extract-images failed: %v", err)
	}
	entries, err := os.ReadDir(out)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 || len(ta.jpeg.calls) != 0 {
		t.Errorf("wrote %d files and %d JPEGs, want none", len(entries), len(ta.jpeg.calls))
	}
}

func TestExtractImagesBitmapFailure(t *testing.T) {
	ta := newTestApp(t)
	dir := t.TempDir()
	pdf := imageDoc(t, dir)
	ta.engine.Fail("GetRenderedBitmap", 0)

	if err := ta.run("extract-images", pdf, filepath.Join(dir, "images")); err == nil {
		t.Error("expected error when an image cannot be decoded")
	}
}

func TestExtractImagesAccepts(t *testing.T) {
	opts := &extractImagesOptions{minWidth: 3, minHeight: 2, minArea: 10}
	tests := []struct {
		w, h int
		want bool
	}{
		{3, 4, true},
		{2, 10, false},
		{10, 1, false},
		{3, 3, false},
		{5, 2, true},
	}
	for _, tt := range tests {
		if got := opts.accepts(tt.w, tt.h); got != tt.want {
			t.Errorf("accepts(%d, %d) = %v, want %v", tt.w, tt.h, got, tt.want)
		}
	}
}
