package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jsscheller/pdfr/internal/logging"
	"github.com/jsscheller/pdfr/internal/pagerange"
	"github.com/jsscheller/pdfr/internal/pdfium"
	"github.com/jsscheller/pdfr/internal/telemetry"
	"github.com/jsscheller/pdfr/internal/toolset"
)

// extractImagesOptions holds options for the extract-images command.
type extractImagesOptions struct {
	quality   int
	minWidth  int
	minHeight int
	minArea   int
	format    string
	pages     pagerange.Intervals
	dedupe    bool
	password  string
}

// accepts reports whether a width x height image passes the size filters.
func (o *extractImagesOptions) accepts(width, height int) bool {
	return width >= o.minWidth && height >= o.minHeight && width*height >= o.minArea
}

// newExtractImagesCmd creates the extract-images command.
func (a *App) newExtractImagesCmd() *cobra.Command {
	opts := &extractImagesOptions{}

	cmd := &cobra.Command{
		Use:   "extract-images <pdf> <out-dir>",
		Short: "Extract embedded images from a PDF",
		Long: `Extract embedded images to out-dir as <stem>_image_<n>.<ext>, numbered
from 1 in page order.

Images are decoded with their page transformations applied and then
encoded as JPEG, PNG or WebP. The original format writes the embedded
image streams unchanged; the size filters do not apply to it.

Examples:
  # Extract images at least 100 pixels wide, skipping repeats
  pdfr extract-images --min-width 100 --dedupe doc.pdf images/`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runExtractImages(cmd.Context(), opts, args[0], args[1])
		},
	}

	cmd.Flags().IntVar(&opts.quality, "quality", 92, "JPEG or WebP quality (1-100)")
	cmd.Flags().IntVar(&opts.minWidth, "min-width", 1, "Only extract images with a width >= min-width")
	cmd.Flags().IntVar(&opts.minHeight, "min-height", 1, "Only extract images with a height >= min-height")
	cmd.Flags().IntVar(&opts.minArea, "min-area", 1, "Only extract images with an area >= min-area")
	cmd.Flags().StringVar(&opts.format, "format", "jpeg", "Output format (jpeg, png, webp, original)")
	cmd.Flags().Var(&opts.pages, "pages", "Pages to extract from, eg. 1,3-5,8- (default all)")
	cmd.Flags().BoolVar(&opts.dedupe, "dedupe", false, "Skip images identical to one already written")
	cmd.Flags().StringVar(&opts.password, "password", "", "Password for encrypted documents")

	return cmd
}

// runExtractImages executes the extract-images command.
func (a *App) runExtractImages(ctx context.Context, opts *extractImagesOptions, pdf, outDir string) error {
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return err
	}
	if strings.EqualFold(opts.format, "original") {
		return a.extractOriginal(ctx, opts, pdf, outDir)
	}

	return a.withLibrary(ctx, "extract-images", func(ctx context.Context, lib *pdfium.Library) error {
		doc, err := loadDocument(lib, pdf, opts.password)
		if err != nil {
			return err
		}
		defer doc.Close()

		out, err := newImageOutput(opts.format, opts.quality)
		if err != nil {
			return err
		}
		defer out.wait()

		x := &extractor{
			app:  a,
			lib:  lib,
			doc:  doc,
			opts: opts,
			out:  out,
			stem: fileStem(pdf),
			dir:  outDir,
		}
		if opts.dedupe {
			x.dedupe = toolset.NewDeduper()
		}

		count := doc.PageCount()
		pages := opts.pages
		if len(pages) == 0 {
			pages = pagerange.Span(1, count)
		}
		for num := range pages.Pages(count) {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := x.page(ctx, num); err != nil {
				return err
			}
		}
		if err := out.wait(); err != nil {
			return err
		}

		e := a.event(a.log.Info(), logging.Path(pdf), logging.Count("images", x.written))
		if x.dedupe != nil {
			e.Add(logging.Count("duplicates", x.dedupe.Skipped))
		}
		e.Msg("images extracted")
		return nil
	}, attribute.String("pdf", pdf), attribute.String("format", opts.format))
}

// extractor walks page objects and writes the image objects that pass
// the filters.
type extractor struct {
	app     *App
	lib     *pdfium.Library
	doc     *pdfium.Document
	opts    *extractImagesOptions
	out     *imageOutput
	dedupe  *toolset.Deduper
	stem    string
	dir     string
	written int
}

func (x *extractor) page(ctx context.Context, num int) (err error) {
	_, span := x.app.tel.Start(ctx, "extract-images.page", attribute.Int("page", num))
	defer func() { telemetry.End(span, err) }()

	page, err := x.doc.LoadPage(num - 1)
	if err != nil {
		return err
	}
	defer page.Close()

	n := page.ObjectCount()
	for i := 0; i < n; i++ {
		obj, err := page.LoadObject(i)
		if err != nil {
			return err
		}
		img := obj.IntoImage()
		if img == nil {
			continue
		}
		err = x.image(num, page, img)
		img.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

func (x *extractor) image(num int, page *pdfium.Page, img *pdfium.ImageObject) error {
	bmp, err := img.Bitmap(x.doc, page)
	if err != nil {
		return fmt.Errorf("page %d: %w", num, err)
	}
	defer bmp.Close()

	if !x.opts.accepts(bmp.Width(), bmp.Height()) {
		return nil
	}
	if x.dedupe != nil {
		r, err := bmp.Raster()
		if err != nil {
			return err
		}
		if x.dedupe.SeenRaster(r) {
			return nil
		}
	}

	x.written++
	path := filepath.Join(x.dir, fmt.Sprintf("%s_image_%d%s", x.stem, x.written, x.out.ext))
	x.app.event(x.app.log.Debug(), logging.Page(num), logging.Path(path)).Msg("image extracted")
	return x.out.write(bmp, path)
}

// extractOriginal copies embedded image streams through pdfcpu.
func (a *App) extractOriginal(ctx context.Context, opts *extractImagesOptions, pdf, outDir string) (err error) {
	_, span := a.tel.Start(ctx, "extract-images", attribute.String("pdf", pdf), attribute.String("format", "original"))
	defer func() { telemetry.End(span, err) }()

	var selection []string
	for _, iv := range opts.pages {
		selection = append(selection, iv.String())
	}

	written, skipped, err := toolset.ExtractOriginal(pdf, outDir, fileStem(pdf), selection, opts.password, opts.dedupe)
	if err != nil {
		a.event(a.log.Error(), logging.Command("extract-images"), logging.ErrorField(err)).Msg("command failed")
		return err
	}
	a.event(a.log.Info(), logging.Path(pdf), logging.Count("images", written), logging.Count("duplicates", skipped)).Msg("images extracted")
	return nil
}
