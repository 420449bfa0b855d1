package cli

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jsscheller/pdfr/internal/geometry"
	"github.com/jsscheller/pdfr/internal/logging"
	"github.com/jsscheller/pdfr/internal/pagerange"
	"github.com/jsscheller/pdfr/internal/pdfium"
	"github.com/jsscheller/pdfr/internal/telemetry"
	"github.com/jsscheller/pdfr/internal/toolset"
)

// renderOptions holds options for the render command.
type renderOptions struct {
	rotate   bool
	pages    pagerange.Intervals
	size     geometry.Size
	dpi      int
	quality  int
	format   string
	password string
}

// newRenderCmd creates the render command.
func (a *App) newRenderCmd() *cobra.Command {
	opts := &renderOptions{}

	cmd := &cobra.Command{
		Use:   "render <pdf> <out-dir>",
		Short: "Render PDF pages to images",
		Long: `Render PDF pages to images named <stem>_<page>.<ext> in out-dir.

Page rotation is ignored unless --rotate is given. Without --size the
output resolution follows --dpi.

Examples:
  # Render every page at 300 dpi
  pdfr render doc.pdf out/

  # Render pages 1 and 3 to 5, 800 pixels wide, as PNG
  pdfr render --pages 1,3-5 --size 800x --format png doc.pdf out/`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runRender(cmd.Context(), opts, args[0], args[1])
		},
	}

	cmd.Flags().BoolVar(&opts.rotate, "rotate", false, "Respect page rotation")
	cmd.Flags().Var(&opts.pages, "pages", "Pages to render, eg. 1,3-5,8- (default all)")
	cmd.Flags().Var(&opts.size, "size", "Output size in pixels, eg. 800x600, 800x or x600")
	cmd.Flags().IntVar(&opts.dpi, "dpi", 300, "Dots per inch, used when --size is not given")
	cmd.Flags().IntVar(&opts.quality, "quality", 92, "JPEG or WebP quality (1-100)")
	cmd.Flags().StringVar(&opts.format, "format", "jpeg", "Output format (jpeg, png, webp)")
	cmd.Flags().StringVar(&opts.password, "password", "", "Password for encrypted documents")

	return cmd
}

// renderPlan is the output geometry of one page.
type renderPlan struct {
	width, height       int // rendered area
	bmpWidth, bmpHeight int
	rotation            pdfium.Rotation
}

// planRender computes the bitmap for a page of w x h points with the
// given intrinsic rotation. Unless respectRotation is set, quarter-turned
// pages are rendered upright. The bitmap width is a multiple of 4.
func planRender(w, h float64, rotation pdfium.Rotation, respectRotation bool, size geometry.Size, dpi int) renderPlan {
	var plan renderPlan
	if !respectRotation {
		if rotation == pdfium.Rotate90 || rotation == pdfium.Rotate270 {
			w, h = h, w
		}
		if rotation > 0 {
			plan.rotation = 4 - rotation
		}
	}

	var outW, outH float64
	if size.IsZero() {
		// Page sizes are in points, 72 per inch.
		outW = math.Round(w / 72 * float64(dpi))
		outH = math.Round(outW / w * h)
	} else {
		outW, outH = size.Fit(w, h)
		outW, outH = math.Round(outW), math.Round(outH)
	}
	plan.width, plan.height = int(outW), int(outH)

	bmpW, bmpH := outW, outH
	if rem := math.Mod(outW, 4); rem != 0 {
		bmpW = outW + 4 - rem
		bmpH = math.Round(bmpW * (outH / outW))
	}
	plan.bmpWidth, plan.bmpHeight = int(bmpW), int(bmpH)
	return plan
}

// imageOutput writes bitmaps either as JPEG through the Library or with
// a toolset encoder on the worker pool.
type imageOutput struct {
	ext     string
	quality int
	pool    *toolset.Pool
}

func newImageOutput(format string, quality int) (*imageOutput, error) {
	if quality < 1 || quality > 100 {
		return nil, fmt.Errorf("invalid quality %d: must be between 1 and 100", quality)
	}
	switch strings.ToLower(format) {
	case "jpeg", "jpg":
		return &imageOutput{ext: ".jpg", quality: quality}, nil
	}
	enc, err := toolset.GetEncoder(format, quality)
	if err != nil {
		return nil, err
	}
	return &imageOutput{
		ext:  enc.Extension(),
		pool: toolset.NewPool(enc, toolset.WorkerCount()),
	}, nil
}

// write stores bmp at path. Pool jobs get a copy of the pixels, so bmp
// may be closed as soon as write returns.
func (o *imageOutput) write(bmp *pdfium.Bitmap, path string) error {
	if o.pool == nil {
		return bmp.WriteJPEG(path, o.quality)
	}
	r, err := bmp.Raster()
	if err != nil {
		return err
	}
	if !o.pool.Submit(toolset.Job{Path: path, Raster: r.Clone()}) {
		// The first failure is reported by wait.
		return o.wait()
	}
	return nil
}

// wait blocks until queued images are written. It is safe to call more
// than once.
func (o *imageOutput) wait() error {
	if o.pool == nil {
		return nil
	}
	pool := o.pool
	o.pool = nil
	return pool.Wait()
}

// runRender executes the render command.
func (a *App) runRender(ctx context.Context, opts *renderOptions, pdf, outDir string) error {
	if opts.dpi <= 0 {
		return fmt.Errorf("invalid dpi %d", opts.dpi)
	}

	return a.withLibrary(ctx, "render", func(ctx context.Context, lib *pdfium.Library) error {
		doc, err := loadDocument(lib, pdf, opts.password)
		if err != nil {
			return err
		}
		defer doc.Close()

		if err := os.MkdirAll(outDir, 0755); err != nil {
			return err
		}

		out, err := newImageOutput(opts.format, opts.quality)
		if err != nil {
			return err
		}
		defer out.wait()

		count := doc.PageCount()
		pages := opts.pages
		if len(pages) == 0 {
			pages = pagerange.Span(1, count)
		}

		stem := fileStem(pdf)
		rendered := 0
		for num := range pages.Pages(count) {
			if err := ctx.Err(); err != nil {
				return err
			}
			path := filepath.Join(outDir, fmt.Sprintf("%s_%d%s", stem, num, out.ext))
			if err := a.renderPage(ctx, lib, doc, num, opts, out, path); err != nil {
				return err
			}
			rendered++
		}
		if err := out.wait(); err != nil {
			return err
		}

		a.event(a.log.Info(), logging.Path(pdf), logging.Count("pages", rendered)).Msg("rendered")
		return nil
	}, attribute.String("pdf", pdf))
}

func (a *App) renderPage(ctx context.Context, lib *pdfium.Library, doc *pdfium.Document, num int, opts *renderOptions, out *imageOutput, path string) (err error) {
	_, span := a.tel.Start(ctx, "render.page", attribute.Int("page", num))
	defer func() { telemetry.End(span, err) }()

	page, err := doc.LoadPage(num - 1)
	if err != nil {
		return err
	}
	defer page.Close()

	plan := planRender(float64(page.Width()), float64(page.Height()), page.Rotation(), opts.rotate, opts.size, opts.dpi)
	bmp, err := lib.NewBitmap(plan.bmpWidth, plan.bmpHeight, pdfium.FormatBGR)
	if err != nil {
		return err
	}
	defer bmp.Close()

	if err := bmp.RenderPage(page, plan.width, plan.height, plan.rotation); err != nil {
		return err
	}

	a.event(a.log.Debug(), logging.Page(num), logging.Path(path),
		logging.Count("width", plan.bmpWidth), logging.Count("height", plan.bmpHeight)).Msg("page rendered")
	return out.write(bmp, path)
}
