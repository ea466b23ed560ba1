package converter

import (
	"context"
	"fmt"
)

// DocumentToHTML turns a Word document into an HTML fragment with pandoc.
type DocumentToHTML struct {
	pairMatcher
	runner Runner
	bin    string
}

func NewDocumentToHTML(runner Runner, bin string) *DocumentToHTML {
	if bin == "" {
		bin = "pandoc"
	}
	return &DocumentToHTML{
		pairMatcher: pairMatcher{sources: newFormatSet("docx"), targets: newFormatSet("html")},
		runner:      runner,
		bin:         bin,
	}
}

func (d *DocumentToHTML) Name() string { return "docx-html" }

func (d *DocumentToHTML) Convert(ctx context.Context, job Job) (Result, error) {
	args := []string{
		"--from=docx",
		"--to=html5",
		"--output=" + job.OutputPath,
		job.InputPath,
	}
	if err := d.runner.Run(ctx, d.bin, args...); err != nil {
		return Result{}, Failed("", fmt.Errorf("docx to html: %w", err))
	}
	if err := requireOutput(job.OutputPath); err != nil {
		return Result{}, Failed("", err)
	}
	return Result{Path: job.OutputPath}, nil
}
