package converter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// PDFToJPG rasterizes a PDF with pdftoppm and returns the first page. The
// other pages are reported as discarded.
type PDFToJPG struct {
	pairMatcher
	runner Runner
	bin    string
	dpi    int
}

func NewPDFToJPG(runner Runner, bin string, dpi int) *PDFToJPG {
	if bin == "" {
		bin = "pdftoppm"
	}
	if dpi <= 0 {
		dpi = 150
	}
	return &PDFToJPG{
		pairMatcher: pairMatcher{sources: newFormatSet("pdf"), targets: newFormatSet("jpg")},
		runner:      runner,
		bin:         bin,
		dpi:         dpi,
	}
}

func (p *PDFToJPG) Name() string { return "pdf-jpg" }

func (p *PDFToJPG) Convert(ctx context.Context, job Job) (Result, error) {
	// pdfcpu is stricter than poppler; only a document it reads as empty is
	// refused up front, anything it cannot parse goes to pdftoppm
	if pages, err := api.PageCountFile(job.InputPath); err == nil && pages == 0 {
		return Result{}, Failed(MsgNoPDFPageJPGs, nil)
	}

	args := []string{"-jpeg", "-r", strconv.Itoa(p.dpi), job.InputPath, job.OutputPrefix}
	runErr := p.runner.Run(ctx, p.bin, args...)

	pagesOut, err := matchPrefix(job.OutputPrefix, ".jpg")
	if err != nil {
		return Result{Discarded: pagesOut}, Failed("", err)
	}
	if runErr != nil {
		return Result{Discarded: pagesOut}, Failed("", fmt.Errorf("pdf to jpg: %w", runErr))
	}
	if len(pagesOut) == 0 {
		return Result{}, Failed(MsgNoPDFPageJPGs, nil)
	}
	return Result{Path: pagesOut[0], Discarded: pagesOut[1:]}, nil
}

// matchPrefix lists files in prefix's directory whose names start with the
// prefix base and end in ext, sorted. pdftoppm zero-pads page numbers, so the
// lexical order is page order.
func matchPrefix(prefix, ext string) ([]string, error) {
	dir, base := filepath.Split(prefix)
	if dir == "" {
		dir = "."
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", dir, err)
	}
	var out []string
	for _, e := range entries {
		name := e.Name()
		if e.Type().IsRegular() && strings.HasPrefix(name, base) && strings.HasSuffix(name, ext) {
			out = append(out, filepath.Join(dir, name))
		}
	}
	sort.Strings(out)
	return out, nil
}
