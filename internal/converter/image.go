package converter

import (
	"context"
	"fmt"
	"image"
	"os"

	"github.com/HugoSmits86/nativewebp"
	"github.com/disintegration/imaging"
)

var rasterFormats = []string{"jpg", "jpeg", "png", "webp"}

// ImageTranscoder re-encodes raster images between jpg, png and webp.
type ImageTranscoder struct {
	pairMatcher
	quality int
}

func NewImageTranscoder(jpegQuality int) *ImageTranscoder {
	if jpegQuality <= 0 || jpegQuality > 100 {
		jpegQuality = 90
	}
	return &ImageTranscoder{
		pairMatcher: pairMatcher{sources: newFormatSet(rasterFormats...), targets: newFormatSet(rasterFormats...)},
		quality:     jpegQuality,
	}
}

func (t *ImageTranscoder) Name() string { return "image" }

func (t *ImageTranscoder) Convert(ctx context.Context, job Job) (Result, error) {
	img, err := decodeRaster(job.InputPath, job.SourceExt)
	if err != nil {
		return Result{}, Failed("", fmt.Errorf("decoding %s: %w", job.SourceExt, err))
	}
	if err := ctx.Err(); err != nil {
		return Result{}, Failed("", err)
	}
	if err := t.encode(img, job.TargetFormat, job.OutputPath); err != nil {
		return Result{}, Failed("", fmt.Errorf("encoding %s: %w", job.TargetFormat, err))
	}
	return Result{Path: job.OutputPath}, nil
}

// decodeRaster reads webp through DecodeIgnoreAlphaFlag, which accepts
// lossless files carrying the VP8X alpha flag that x/image/webp rejects.
func decodeRaster(path, ext string) (image.Image, error) {
	if ext != "webp" {
		return imaging.Open(path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return nativewebp.DecodeIgnoreAlphaFlag(f)
}

func (t *ImageTranscoder) encode(img image.Image, format, path string) error {
	switch format {
	case "jpg", "jpeg":
		return imaging.Save(img, path, imaging.JPEGQuality(t.quality))
	case "png":
		return imaging.Save(img, path)
	case "webp":
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		if err := nativewebp.Encode(f, img, nil); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	default:
		return fmt.Errorf("no encoder for %q", format)
	}
}
