package toolset

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

func configuration(password string) *model.Configuration {
	conf := model.NewDefaultConfiguration()
	if password != "" {
		conf.UserPW = password
		conf.OwnerPW = password
	}
	return conf
}

// ExtractOriginal writes the embedded image streams of the PDF at filename
// to outDir without re-encoding, named <stem>_image_<n><ext>. Selected
// pages use pdfcpu's page selection syntax; nil means all pages. It
// returns the number of images written.
func ExtractOriginal(filename, outDir, stem string, pages []string, password string, dedupe bool) (written, skipped int, err error) {
	// Extract images to temp directory
	tempDir, err := os.MkdirTemp("", "pdfr-img")
	if err != nil {
		return 0, 0, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(tempDir)

	if err := api.ExtractImagesFile(filename, tempDir, pages, configuration(password)); err != nil {
		return 0, 0, fmt.Errorf("api.ExtractImagesFile: %w", err)
	}
	return moveImages(tempDir, outDir, stem, dedupe)
}

// moveImages moves the image files in srcDir to outDir in name order,
// numbering them from 1.
func moveImages(srcDir, outDir, stem string, dedupe bool) (written, skipped int, err error) {
	files, err := os.ReadDir(srcDir)
	if err != nil {
		return 0, 0, fmt.Errorf("read %s: %w", srcDir, err)
	}

	var dd *Deduper
	if dedupe {
		dd = NewDeduper()
	}
	for _, f := range files {
		if f.IsDir() || !isImageFile(f.Name()) {
			continue
		}

		src := filepath.Join(srcDir, f.Name())
		if dd != nil {
			data, err := os.ReadFile(src)
			if err != nil {
				return written, dd.Skipped, fmt.Errorf("read file data: %w", err)
			}
			if dd.Seen(data) {
				continue
			}
		}

		written++
		ext := strings.ToLower(filepath.Ext(f.Name()))
		dst := filepath.Join(outDir, fmt.Sprintf("%s_image_%d%s", stem, written, ext))
		if err := moveFile(src, dst); err != nil {
			if dd != nil {
				skipped = dd.Skipped
			}
			return written - 1, skipped, err
		}
	}
	if dd != nil {
		skipped = dd.Skipped
	}
	return written, skipped, nil
}

// moveFile renames src to dst, copying when they are on different devices.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("read %s: %w", src, err)
	}
	if err := os.WriteFile(dst, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", dst, err)
	}
	return nil
}

// ValidatePDF checks the file at filename against the PDF standard
// in relaxed mode and returns its page count.
func ValidatePDF(filename string) (int, error) {
	conf := configuration("")
	conf.ValidationMode = model.ValidationRelaxed
	if err := api.ValidateFile(filename, conf); err != nil {
		return 0, fmt.Errorf("validate %s: %w", filename, err)
	}
	n, err := api.PageCountFile(filename)
	if err != nil {
		return 0, fmt.Errorf("page count %s: %w", filename, err)
	}
	return n, nil
}
