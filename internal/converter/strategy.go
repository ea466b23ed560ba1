// Package converter holds the conversion decision table and the strategies
// behind it. Every strategy delegates the actual encoding to a library or an
// external tool; this package only decides which one runs and classifies how
// it failed.
package converter

import (
	"context"
	"fmt"
	"os"
)

// Job is one conversion attempt. OutputPath is reserved for strategies that
// write a single file; OutputPrefix is a run-unique prefix for tools that
// write several.
type Job struct {
	ID           string
	InputPath    string
	SourceExt    string
	TargetFormat string
	OutputPath   string
	OutputPrefix string
}

// Result names the file to hand back and any extra files the strategy
// produced that must be deleted.
type Result struct {
	Path      string
	Discarded []string
}

type Strategy interface {
	Name() string
	Accepts(sourceExt, targetFormat string) bool
	Convert(ctx context.Context, job Job) (Result, error)
}

type formatSet map[string]struct{}

func newFormatSet(formats ...string) formatSet {
	s := make(formatSet, len(formats))
	for _, f := range formats {
		s[f] = struct{}{}
	}
	return s
}

func (s formatSet) has(f string) bool {
	_, ok := s[f]
	return ok
}

// pairMatcher accepts any (source, target) in sources × targets.
type pairMatcher struct {
	sources formatSet
	targets formatSet
}

func (m pairMatcher) Accepts(sourceExt, targetFormat string) bool {
	return m.sources.has(sourceExt) && m.targets.has(targetFormat)
}

// Table is the ordered decision table. Lookup returns the first strategy that
// accepts the pair, so earlier entries win if sets ever overlap.
type Table struct {
	strategies []Strategy
}

func NewTable(strategies ...Strategy) *Table {
	return &Table{strategies: strategies}
}

func (t *Table) Lookup(sourceExt, targetFormat string) (Strategy, error) {
	for _, s := range t.strategies {
		if s.Accepts(sourceExt, targetFormat) {
			return s, nil
		}
	}
	return nil, Unsupported(fmt.Errorf("%q to %q", sourceExt, targetFormat))
}

func (t *Table) Strategies() []Strategy {
	return t.strategies
}

type Options struct {
	Runner      Runner
	PandocBin   string
	FFmpegBin   string
	PdftoppmBin string
	PDFDPI      int
	JPEGQuality int
}

// DefaultTable builds the five production strategies in priority order.
func DefaultTable(opts Options) *Table {
	return NewTable(
		NewDocumentToHTML(opts.Runner, opts.PandocBin),
		NewVideoTranscoder(opts.Runner, opts.FFmpegBin),
		NewImageTranscoder(opts.JPEGQuality),
		NewImageToPDF(),
		NewPDFToJPG(opts.Runner, opts.PdftoppmBin, opts.PDFDPI),
	)
}

// requireOutput fails when a tool exited cleanly without writing path.
func requireOutput(path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("no output written: %w", err)
	}
	return nil
}
