package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Workspace owns the two process-wide scratch directories: uploads for
// request inputs and converted for conversion outputs. Every artifact it hands
// out carries a fresh UUID, so concurrent requests never share a path.
type Workspace struct {
	uploadDir string
	outputDir string
}

func NewWorkspace(uploadDir, outputDir string) (*Workspace, error) {
	w := &Workspace{uploadDir: uploadDir, outputDir: outputDir}
	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating upload dir %s: %w", uploadDir, err)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output dir %s: %w", outputDir, err)
	}
	return w, nil
}

func (w *Workspace) UploadDir() string { return w.uploadDir }
func (w *Workspace) OutputDir() string { return w.outputDir }

// NewInput reserves a path for an uploaded file. The original base name is
// kept after the token so tools that sniff extensions still see it.
func (w *Workspace) NewInput(originalName string) (*Artifact, error) {
	if err := os.MkdirAll(w.uploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating upload dir %s: %w", w.uploadDir, err)
	}
	name := uuid.NewString() + "-" + safeBase(originalName)
	return newArtifact(filepath.Join(w.uploadDir, name)), nil
}

// NewOutput reserves converted/converted-<token>.<ext>. The directory is
// recreated on demand in case it was removed while the process ran.
func (w *Workspace) NewOutput(ext string) (*Artifact, error) {
	if err := os.MkdirAll(w.outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output dir %s: %w", w.outputDir, err)
	}
	name := fmt.Sprintf("converted-%s.%s", uuid.NewString(), ext)
	return newArtifact(filepath.Join(w.outputDir, name)), nil
}

// NewPrefix returns a run-unique path prefix inside the output directory for
// tools that write several files, e.g. one image per PDF page.
func (w *Workspace) NewPrefix(kind string) string {
	return filepath.Join(w.outputDir, kind+"-"+uuid.NewString())
}

// Adopt wraps a path produced by a tool so its lifecycle is managed like any
// other artifact.
func (w *Workspace) Adopt(path string) *Artifact {
	return newArtifact(path)
}

func safeBase(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	base = strings.TrimSpace(base)
	if base == "" || base == "." || base == "/" || base == ".." {
		return "upload"
	}
	return base
}

// Artifact is a transient file exclusively owned by one request.
type Artifact struct {
	path string

	once sync.Once
	err  error
}

func newArtifact(path string) *Artifact {
	return &Artifact{path: path}
}

func (a *Artifact) Path() string { return a.path }

// Release unlinks the file. It is safe to call more than once; a file that was
// never written counts as released.
func (a *Artifact) Release() error {
	a.once.Do(func() {
		if err := os.Remove(a.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			a.err = fmt.Errorf("removing %s: %w", a.path, err)
		}
	})
	return a.err
}

func (a *Artifact) Size() (int64, error) {
	fi, err := os.Stat(a.path)
	if err != nil {
		return 0, err
	}
	return fi.Size(), nil
}

// Open opens the artifact for streaming. Closing the returned file also
// releases the artifact.
func (a *Artifact) Open() (*ReleasingFile, error) {
	f, err := os.Open(a.path)
	if err != nil {
		return nil, err
	}
	return &ReleasingFile{File: f, artifact: a}, nil
}

type ReleasingFile struct {
	*os.File
	artifact *Artifact
}

func (f *ReleasingFile) Close() error {
	cerr := f.File.Close()
	rerr := f.artifact.Release()
	return errors.Join(cerr, rerr)
}
