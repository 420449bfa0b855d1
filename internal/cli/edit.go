package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
	"gopkg.in/yaml.v3"

	"github.com/jsscheller/pdfr/internal/geometry"
	"github.com/jsscheller/pdfr/internal/logging"
	"github.com/jsscheller/pdfr/internal/pdfium"
	"github.com/jsscheller/pdfr/internal/raster"
	"github.com/jsscheller/pdfr/internal/toolset"
)

// AddImageOp places an image file on a page.
type AddImageOp struct {
	Page      int               `json:"page" yaml:"page"`
	Image     string            `json:"image" yaml:"image"`
	Placement geometry.Geometry `json:"placement" yaml:"placement"`
}

// AddTextOp places a run of text in a standard font on a page.
type AddTextOp struct {
	Page      int             `json:"page" yaml:"page"`
	Text      string          `json:"text" yaml:"text"`
	Font      string          `json:"font" yaml:"font"`
	FontSize  float32         `json:"font_size" yaml:"font_size"`
	Placement geometry.Coords `json:"placement" yaml:"placement"`
}

// Op is one edit. Exactly one field is set.
type Op struct {
	AddImage *AddImageOp
	AddText  *AddTextOp
}

var errUnknownOp = errors.New("unknown edit operation")

type opHeader struct {
	Op string `json:"op" yaml:"op"`
}

// UnmarshalJSON decodes {"op": "add_image" | "add_text", ...}.
func (o *Op) UnmarshalJSON(data []byte) error {
	var h opHeader
	if err := json.Unmarshal(data, &h); err != nil {
		return err
	}
	switch h.Op {
	case "add_image":
		o.AddImage = &AddImageOp{}
		return json.Unmarshal(data, o.AddImage)
	case "add_text":
		o.AddText = &AddTextOp{}
		return json.Unmarshal(data, o.AddText)
	}
	return fmt.Errorf("%w %q", errUnknownOp, h.Op)
}

// UnmarshalYAML accepts the same mapping as UnmarshalJSON.
func (o *Op) UnmarshalYAML(node *yaml.Node) error {
	var h opHeader
	if err := node.Decode(&h); err != nil {
		return err
	}
	switch h.Op {
	case "add_image":
		o.AddImage = &AddImageOp{}
		return node.Decode(o.AddImage)
	case "add_text":
		o.AddText = &AddTextOp{}
		return node.Decode(o.AddText)
	}
	return fmt.Errorf("%w %q", errUnknownOp, h.Op)
}

func (o Op) page() int {
	if o.AddImage != nil {
		return o.AddImage.Page
	}
	if o.AddText != nil {
		return o.AddText.Page
	}
	return 0
}

// validate checks what can be checked before the document is opened.
func (o Op) validate() error {
	switch {
	case o.AddImage == nil && o.AddText == nil:
		return errUnknownOp
	case o.page() < 1:
		return fmt.Errorf("invalid page number %d: pages are numbered from 1", o.page())
	case o.AddImage != nil && o.AddImage.Image == "":
		return errors.New("add_image: image path is required")
	case o.AddText != nil && o.AddText.Font == "":
		return errors.New("add_text: font is required")
	case o.AddText != nil && o.AddText.FontSize <= 0:
		return fmt.Errorf("add_text: invalid font size %v", o.AddText.FontSize)
	}
	return nil
}

// ParseOps decodes an edit script. Files ending in .yaml or .yml are
// YAML, everything else JSON. ${VAR} references are expanded from the
// environment before decoding.
func ParseOps(path string) ([]Op, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	expanded := expandEnv(data)

	var ops []Op
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(expanded, &ops)
	default:
		err = json.Unmarshal(expanded, &ops)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	for i, op := range ops {
		if err := op.validate(); err != nil {
			return nil, fmt.Errorf("%s: operation %d: %w", path, i+1, err)
		}
	}
	return ops, nil
}

var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnv replaces ${VAR} with the value of VAR. A bare $ is kept, so
// text such as "$5" survives.
func expandEnv(data []byte) []byte {
	return envRef.ReplaceAllFunc(data, func(ref []byte) []byte {
		return []byte(os.Getenv(string(ref[2 : len(ref)-1])))
	})
}

// editOptions holds options for the edit command.
type editOptions struct {
	validate bool
}

// newEditCmd creates the edit command.
func (a *App) newEditCmd() *cobra.Command {
	opts := &editOptions{}

	cmd := &cobra.Command{
		Use:   "edit <ops> <pdf> <out>",
		Short: "Apply a script of edits to a PDF",
		Long: `Apply a list of edit operations to a PDF and write the result to out.

The script is a JSON or YAML list. Environment variables written as
${VAR} are expanded first.

  - op: add_image
    page: 1
    image: logo.png
    placement: 100x50+36+720
  - op: add_text
    page: 2
    text: Approved
    font: Helvetica-Bold
    font_size: 24
    placement: +72+72

out may be the input file; it is replaced only once the new document is
fully written.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ops, err := ParseOps(args[0])
			if err != nil {
				return err
			}
			return a.edit(cmd.Context(), "edit", ops, args[1], args[2], opts.validate)
		},
	}

	cmd.Flags().BoolVar(&opts.validate, "validate", false, "Validate the written PDF")

	return cmd
}

// editor applies operations to one document, caching pages, decoded
// bitmaps and fonts for the length of the script.
type editor struct {
	lib     *pdfium.Library
	doc     *pdfium.Document
	pages   map[int]*pdfium.Page
	order   []int
	bitmaps map[string]*pdfium.Bitmap
	fonts   map[string]*pdfium.Font
}

func (e *editor) page(num int) (*pdfium.Page, error) {
	if p, ok := e.pages[num]; ok {
		return p, nil
	}
	p, err := e.doc.LoadPage(num - 1)
	if err != nil {
		return nil, err
	}
	e.pages[num] = p
	e.order = append(e.order, num)
	return p, nil
}

func (e *editor) bitmap(path string) (*pdfium.Bitmap, error) {
	if b, ok := e.bitmaps[path]; ok {
		return b, nil
	}
	img, err := raster.Decode(path)
	if err != nil {
		return nil, err
	}
	b, err := e.lib.NewBitmapFromImage(img)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	e.bitmaps[path] = b
	return b, nil
}

func (e *editor) font(name string) (*pdfium.Font, error) {
	if f, ok := e.fonts[name]; ok {
		return f, nil
	}
	f, err := e.doc.LoadStandardFont(name)
	if err != nil {
		return nil, err
	}
	e.fonts[name] = f
	return f, nil
}

func (e *editor) addImage(op *AddImageOp) error {
	page, err := e.page(op.Page)
	if err != nil {
		return err
	}
	bmp, err := e.bitmap(op.Image)
	if err != nil {
		return err
	}
	obj, err := e.doc.CreateImageObject()
	if err != nil {
		return err
	}
	if err := obj.SetBitmap(bmp); err != nil {
		obj.Close()
		return err
	}
	obj.Transform(op.Placement.Matrix())
	if err := page.AddImageObject(obj); err != nil {
		obj.Close()
		return err
	}
	return nil
}

func (e *editor) addText(op *AddTextOp) error {
	page, err := e.page(op.Page)
	if err != nil {
		return err
	}
	font, err := e.font(op.Font)
	if err != nil {
		return err
	}
	obj, err := e.doc.CreateTextObject(font, op.FontSize)
	if err != nil {
		return err
	}
	if err := obj.SetText(op.Text); err != nil {
		obj.Close()
		return err
	}
	obj.Transform(op.Placement.Matrix())
	if err := page.AddTextObject(obj); err != nil {
		obj.Close()
		return err
	}
	return nil
}

// commit regenerates the content stream of every touched page.
func (e *editor) commit() error {
	for _, num := range e.order {
		if err := e.pages[num].GenerateContent(); err != nil {
			return fmt.Errorf("page %d: %w", num, err)
		}
	}
	return nil
}

// edit applies ops to pdf and writes the result to out.
func (a *App) edit(ctx context.Context, command string, ops []Op, pdf, out string, validate bool) error {
	err := a.withLibrary(ctx, command, func(ctx context.Context, lib *pdfium.Library) error {
		doc, err := lib.LoadDocument(pdf)
		if err != nil {
			return err
		}
		defer doc.Close()

		e := &editor{
			lib:     lib,
			doc:     doc,
			pages:   make(map[int]*pdfium.Page),
			bitmaps: make(map[string]*pdfium.Bitmap),
			fonts:   make(map[string]*pdfium.Font),
		}
		defer func() {
			for _, b := range e.bitmaps {
				b.Close()
			}
		}()

		for i, op := range ops {
			if err := ctx.Err(); err != nil {
				return err
			}
			switch {
			case op.AddImage != nil:
				err = e.addImage(op.AddImage)
			case op.AddText != nil:
				err = e.addText(op.AddText)
			default:
				err = errUnknownOp
			}
			if err != nil {
				return fmt.Errorf("operation %d: %w", i+1, err)
			}
		}
		if err := e.commit(); err != nil {
			return err
		}

		a.event(a.log.Debug(), logging.Count("operations", len(ops)), logging.Count("pages", len(e.order))).Msg("edits applied")
		return writePDF(doc, out)
	}, attribute.String("pdf", pdf), attribute.Int("operations", len(ops)))
	if err != nil {
		return err
	}
	if validate {
		return a.validate(out)
	}
	return nil
}

// writePDF saves doc to a temporary file next to out and renames it into
// place, so out is never left half written. doc is closed before the
// rename because it may still be reading from out.
func writePDF(doc *pdfium.Document, out string) (err error) {
	f, err := os.CreateTemp(filepath.Dir(out), ".pdfr-*.pdf")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() {
		if err != nil {
			f.Close()
			os.Remove(tmp)
		}
	}()

	if err = doc.Save(bufio.NewWriter(f)); err != nil {
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	if err = os.Chmod(tmp, 0644); err != nil {
		return err
	}
	doc.Close()
	return os.Rename(tmp, out)
}

// validate runs pdfcpu validation on a written file.
func (a *App) validate(path string) error {
	pages, err := toolset.ValidatePDF(path)
	if err != nil {
		return err
	}
	a.event(a.log.Info(), logging.Path(path), logging.Count("pages", pages)).Msg("validated")
	return nil
}
