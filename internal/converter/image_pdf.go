package converter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/go-pdf/fpdf"
)

// ImageToPDF wraps a single JPEG or PNG into a one-page PDF whose page is
// exactly the image's pixel size in points.
type ImageToPDF struct {
	pairMatcher
}

func NewImageToPDF() *ImageToPDF {
	return &ImageToPDF{
		pairMatcher: pairMatcher{sources: newFormatSet("jpg", "jpeg", "png"), targets: newFormatSet("pdf")},
	}
}

func (p *ImageToPDF) Name() string { return "image-pdf" }

func (p *ImageToPDF) Convert(ctx context.Context, job Job) (Result, error) {
	data, err := os.ReadFile(job.InputPath)
	if err != nil {
		return Result{}, Failed("", err)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Result{}, Failed("", fmt.Errorf("reading image header: %w", err))
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return Result{}, Failed("", errors.New("image has no pixels"))
	}
	if err := ctx.Err(); err != nil {
		return Result{}, Failed("", err)
	}

	w, h := float64(cfg.Width), float64(cfg.Height)
	doc := fpdf.NewCustom(&fpdf.InitType{
		UnitStr: "pt",
		Size:    fpdf.SizeType{Wd: w, Ht: h},
	})
	doc.SetMargins(0, 0, 0)
	doc.SetAutoPageBreak(false, 0)
	doc.AddPage()

	// the embedding is chosen by extension, not by sniffing
	opt := fpdf.ImageOptions{ImageType: pdfImageType(job.SourceExt)}
	doc.RegisterImageOptionsReader("page", opt, bytes.NewReader(data))
	doc.ImageOptions("page", 0, 0, w, h, false, opt, 0, "")

	if err := doc.OutputFileAndClose(job.OutputPath); err != nil {
		return Result{}, Failed("", fmt.Errorf("writing pdf: %w", err))
	}
	return Result{Path: job.OutputPath}, nil
}

func pdfImageType(ext string) string {
	if ext == "png" {
		return "PNG"
	}
	return "JPG"
}
