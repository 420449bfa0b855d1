package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jsscheller/pdfr/internal/pdfium"
)

// pageCountOptions holds options for the page-count command.
type pageCountOptions struct {
	password string
}

// newPageCountCmd creates the page-count command.
func (a *App) newPageCountCmd() *cobra.Command {
	opts := &pageCountOptions{}

	cmd := &cobra.Command{
		Use:   "page-count <pdf>",
		Short: "Print the number of pages in a PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runPageCount(cmd.Context(), opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.password, "password", "", "Password for encrypted documents")

	return cmd
}

// runPageCount prints the page count without a trailing newline.
func (a *App) runPageCount(ctx context.Context, opts *pageCountOptions, pdf string) error {
	return a.withLibrary(ctx, "page-count", func(ctx context.Context, lib *pdfium.Library) error {
		doc, err := loadDocument(lib, pdf, opts.password)
		if err != nil {
			return err
		}
		defer doc.Close()

		_, err = fmt.Fprint(a.stdout, doc.PageCount())
		return err
	}, attribute.String("pdf", pdf))
}
