package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jsscheller/pdfr/internal/cli"
	"github.com/jsscheller/pdfr/internal/fpdf/native"
	"github.com/jsscheller/pdfr/internal/jpeg"
)

func main() {
	app := cli.New(
		cli.WithEngine(native.New),
		cli.WithJPEGWriter(jpeg.Writer{}),
	)
	if err := app.Execute(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
