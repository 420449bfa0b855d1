package cli

import (
	"github.com/spf13/cobra"

	"github.com/jsscheller/pdfr/internal/geometry"
)

// addImageOptions holds options for the add-image command.
type addImageOptions struct {
	page      int
	placement geometry.Geometry
	validate  bool
}

// newAddImageCmd creates the add-image command.
func (a *App) newAddImageCmd() *cobra.Command {
	opts := &addImageOptions{}

	cmd := &cobra.Command{
		Use:   "add-image <image> <pdf> <out>",
		Short: "Add an image to a page",
		Long: `Add an image to a page of a PDF and write the result to out.

Examples:
  # Stamp a 100x50 point logo near the top left corner of page 1
  pdfr add-image --page 1 --placement 100x50+36+720 logo.png in.pdf out.pdf`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			op := Op{AddImage: &AddImageOp{
				Page:      opts.page,
				Image:     args[0],
				Placement: opts.placement,
			}}
			if err := op.validate(); err != nil {
				return err
			}
			return a.edit(cmd.Context(), "add-image", []Op{op}, args[1], args[2], opts.validate)
		},
	}

	cmd.Flags().IntVar(&opts.page, "page", 0, "Page number to add the image to")
	cmd.Flags().Var(&opts.placement, "placement", "Where to place the image in points, eg. 100x100+50+50")
	cmd.Flags().BoolVar(&opts.validate, "validate", false, "Validate the written PDF")
	_ = cmd.MarkFlagRequired("page")
	_ = cmd.MarkFlagRequired("placement")

	return cmd
}
