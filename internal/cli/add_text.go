package cli

import (
	"github.com/spf13/cobra"

	"github.com/jsscheller/pdfr/internal/geometry"
)

// addTextOptions holds options for the add-text command.
type addTextOptions struct {
	page      int
	font      string
	fontSize  float32
	placement geometry.Coords
	validate  bool
}

// newAddTextCmd creates the add-text command.
func (a *App) newAddTextCmd() *cobra.Command {
	opts := &addTextOptions{}

	cmd := &cobra.Command{
		Use:   "add-text <text> <pdf> <out>",
		Short: "Add text to a page",
		Long: `Add a line of text to a page of a PDF and write the result to out.

Only the 14 standard PDF fonts are available, eg. Helvetica, Times-Roman,
Courier-Bold.

Examples:
  pdfr add-text --page 1 --font Helvetica --font-size 12 --placement +50+50 "Draft" in.pdf out.pdf`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			op := Op{AddText: &AddTextOp{
				Page:      opts.page,
				Text:      args[0],
				Font:      opts.font,
				FontSize:  opts.fontSize,
				Placement: opts.placement,
			}}
			if err := op.validate(); err != nil {
				return err
			}
			return a.edit(cmd.Context(), "add-text", []Op{op}, args[1], args[2], opts.validate)
		},
	}

	cmd.Flags().IntVar(&opts.page, "page", 0, "Page number to add the text to")
	cmd.Flags().StringVar(&opts.font, "font", "", "Standard font name")
	cmd.Flags().Float32Var(&opts.fontSize, "font-size", 0, "Font size in points")
	cmd.Flags().Var(&opts.placement, "placement", "Where to place the text in points, eg. +50+50")
	cmd.Flags().BoolVar(&opts.validate, "validate", false, "Validate the written PDF")
	for _, name := range []string{"page", "font", "font-size", "placement"} {
		_ = cmd.MarkFlagRequired(name)
	}

	return cmd
}
