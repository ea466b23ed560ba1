package converter

import (
	"context"
	"fmt"
)

var videoFormats = []string{"mp4", "avi", "mov", "mkv"}

// VideoTranscoder re-encodes between container formats with ffmpeg, which
// picks codecs from the output extension.
type VideoTranscoder struct {
	pairMatcher
	runner Runner
	bin    string
}

func NewVideoTranscoder(runner Runner, bin string) *VideoTranscoder {
	if bin == "" {
		bin = "ffmpeg"
	}
	return &VideoTranscoder{
		pairMatcher: pairMatcher{sources: newFormatSet(videoFormats...), targets: newFormatSet(videoFormats...)},
		runner:      runner,
		bin:         bin,
	}
}

func (v *VideoTranscoder) Name() string { return "video" }

func (v *VideoTranscoder) Convert(ctx context.Context, job Job) (Result, error) {
	args := []string{
		"-hide_banner",
		"-loglevel", "error",
		"-nostdin",
		"-y",
		"-i", job.InputPath,
		job.OutputPath,
	}
	if err := v.runner.Run(ctx, v.bin, args...); err != nil {
		return Result{}, Failed(MsgVideoFailed, fmt.Errorf("%s to %s: %w", job.SourceExt, job.TargetFormat, err))
	}
	if err := requireOutput(job.OutputPath); err != nil {
		return Result{}, Failed(MsgVideoFailed, err)
	}
	return Result{Path: job.OutputPath}, nil
}
