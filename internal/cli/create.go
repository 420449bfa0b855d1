package cli

import (
	"context"
	"fmt"
	"math"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jsscheller/pdfr/internal/geometry"
	"github.com/jsscheller/pdfr/internal/logging"
	"github.com/jsscheller/pdfr/internal/pdfium"
	"github.com/jsscheller/pdfr/internal/raster"
)

// createOptions holds options for the create command.
type createOptions struct {
	dpi      int
	images   []string
	validate bool
}

// newCreateCmd creates the create command.
func (a *App) newCreateCmd() *cobra.Command {
	opts := &createOptions{}

	cmd := &cobra.Command{
		Use:   "create <out>",
		Short: "Create a PDF from images",
		Long: `Create a PDF with one page per --image, in the order given. Each page
is sized to its image at --dpi.

Examples:
  pdfr create --dpi 150 --image scan1.png --image scan2.jpg scans.pdf`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runCreate(cmd.Context(), opts, args[0])
		},
	}

	cmd.Flags().IntVar(&opts.dpi, "dpi", 300, "Dots per inch of the images")
	cmd.Flags().StringArrayVar(&opts.images, "image", nil, "Image to add as a page (repeatable)")
	cmd.Flags().BoolVar(&opts.validate, "validate", false, "Validate the written PDF")

	return cmd
}

// pageSize returns the page size in points of a width x height pixel
// image at dpi.
func pageSize(width, height, dpi int) (float64, float64) {
	return math.Round(float64(width) / float64(dpi) * 72), math.Round(float64(height) / float64(dpi) * 72)
}

// runCreate executes the create command.
func (a *App) runCreate(ctx context.Context, opts *createOptions, out string) error {
	if opts.dpi <= 0 {
		return fmt.Errorf("invalid dpi %d", opts.dpi)
	}

	err := a.withLibrary(ctx, "create", func(ctx context.Context, lib *pdfium.Library) error {
		doc, err := lib.NewDocument()
		if err != nil {
			return err
		}
		defer doc.Close()

		for pos, path := range opts.images {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := a.addImagePage(lib, doc, pos, path, opts.dpi); err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
		}

		a.event(a.log.Debug(), logging.Count("pages", len(opts.images))).Msg("pages created")
		return writePDF(doc, out)
	}, attribute.Int("images", len(opts.images)))
	if err != nil {
		return err
	}
	if opts.validate {
		return a.validate(out)
	}
	return nil
}

func (a *App) addImagePage(lib *pdfium.Library, doc *pdfium.Document, pos int, path string, dpi int) error {
	img, err := raster.Decode(path)
	if err != nil {
		return err
	}
	b := img.Bounds()
	width, height := pageSize(b.Dx(), b.Dy(), dpi)

	page, err := doc.CreatePage(pos, width, height)
	if err != nil {
		return err
	}
	defer page.Close()

	bmp, err := lib.NewBitmapFromImage(img)
	if err != nil {
		return err
	}
	defer bmp.Close()

	obj, err := doc.CreateImageObject()
	if err != nil {
		return err
	}
	if err := obj.SetBitmap(bmp); err != nil {
		obj.Close()
		return err
	}
	obj.Transform(geometry.Geometry{Width: width, Height: height}.Matrix())
	if err := page.AddImageObject(obj); err != nil {
		obj.Close()
		return err
	}

	a.event(a.log.Debug(), logging.Page(pos+1), logging.Path(path)).Msg("image page added")
	return page.GenerateContent()
}
