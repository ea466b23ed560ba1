package converter

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type call struct {
	name string
	args []string
}

// fakeRunner records invocations. When produce is set it runs in place of
// the tool, typically to write the files the tool would have written.
type fakeRunner struct {
	mu      sync.Mutex
	calls   []call
	err     error
	produce func(args []string)
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) error {
	f.mu.Lock()
	f.calls = append(f.calls, call{name: name, args: args})
	f.mu.Unlock()
	if f.produce != nil {
		f.produce(args)
	}
	return f.err
}

func (f *fakeRunner) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 120, A: 255})
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
}

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
}

func newJob(t *testing.T, src, dst string) Job {
	t.Helper()
	dir := t.TempDir()
	return Job{
		ID:           "job-1",
		InputPath:    filepath.Join(dir, "input."+src),
		SourceExt:    src,
		TargetFormat: dst,
		OutputPath:   filepath.Join(dir, "converted-job-1."+dst),
		OutputPrefix: filepath.Join(dir, "page-job-1"),
	}
}
