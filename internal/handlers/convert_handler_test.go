package handlers

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/fathima-sithara/convert-service/internal/converter"
	"github.com/fathima-sithara/convert-service/internal/services"
	"github.com/fathima-sithara/convert-service/internal/storage"
	"github.com/go-pdf/fpdf"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// toolStub stands in for pandoc, ffmpeg and pdftoppm.
type toolStub struct {
	err     error
	produce func(name string, args []string)
}

func (s *toolStub) Run(_ context.Context, name string, args ...string) error {
	if s.produce != nil {
		s.produce(name, args)
	}
	return s.err
}

type env struct {
	app   *fiber.App
	ws    *storage.Workspace
	tools *toolStub
}

func newEnv(t *testing.T) *env {
	t.Helper()
	root := t.TempDir()
	ws, err := storage.NewWorkspace(filepath.Join(root, "uploads"), filepath.Join(root, "converted"))
	require.NoError(t, err)

	tools := &toolStub{}
	table := converter.DefaultTable(converter.Options{Runner: tools, JPEGQuality: 90})
	log := zap.NewNop().Sugar()
	svc := services.NewConversionService(ws, table, time.Minute, log)
	h := NewHandler(svc, log)

	app := fiber.New()
	app.Post("/convert", h.Convert)
	app.Get("/healthz", h.Health)
	return &env{app: app, ws: ws, tools: tools}
}

func (e *env) assertClean(t *testing.T) {
	t.Helper()
	for _, dir := range []string{e.ws.UploadDir(), e.ws.OutputDir()} {
		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		assert.Empty(t, entries, "leftover files in %s", dir)
	}
}

func multipartRequest(t *testing.T, filename string, data []byte, target string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if filename != "" {
		fw, err := w.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	if target != "" {
		require.NoError(t, w.WriteField("targetFormat", target))
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/convert", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func send(t *testing.T, app *fiber.App, req *http.Request) (*http.Response, []byte) {
	t.Helper()
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	return resp, body
}

func pngFixture(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 4), G: 90, B: uint8(y * 4), A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func pdfFixture(t *testing.T, pages int) []byte {
	t.Helper()
	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetFont("Helvetica", "", 12)
	for i := 0; i < pages; i++ {
		doc.AddPage()
		doc.Cell(40, 10, "fixture")
	}
	var buf bytes.Buffer
	require.NoError(t, doc.Output(&buf))
	return buf.Bytes()
}

var attachment = regexp.MustCompile(`^attachment; filename="([^"]+)"$`)

func TestConvert_PNGToJPGAndBack(t *testing.T) {
	e := newEnv(t)

	resp, body := send(t, e.app, multipartRequest(t, "photo.png", pngFixture(t, 48, 32), "jpg"))
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(body))
	assert.Equal(t, "image/jpeg", resp.Header.Get("Content-Type"))
	m := attachment.FindStringSubmatch(resp.Header.Get("Content-Disposition"))
	require.NotNil(t, m)
	assert.True(t, strings.HasPrefix(m[1], "converted-"))
	assert.True(t, strings.HasSuffix(m[1], ".jpg"))

	cfg, err := jpeg.DecodeConfig(bytes.NewReader(body))
	require.NoError(t, err)
	assert.Equal(t, 48, cfg.Width)
	assert.Equal(t, 32, cfg.Height)
	e.assertClean(t)

	resp, body = send(t, e.app, multipartRequest(t, "photo.jpg", body, "png"))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	cfg, err = png.DecodeConfig(bytes.NewReader(body))
	require.NoError(t, err)
	assert.Equal(t, 48, cfg.Width)
	assert.Equal(t, 32, cfg.Height)
	e.assertClean(t)
}

func TestConvert_ImageToPDF(t *testing.T) {
	e := newEnv(t)

	resp, body := send(t, e.app, multipartRequest(t, "scan.PNG", pngFixture(t, 120, 80), "PDF"))
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(body))
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(body, []byte("%PDF-")))
	assert.Contains(t, string(body), "/MediaBox [0 0 120.00 80.00]")
	e.assertClean(t)
}

func TestConvert_PDFToJPGReturnsFirstPage(t *testing.T) {
	e := newEnv(t)
	e.tools.produce = func(name string, args []string) {
		if name != "pdftoppm" {
			return
		}
		prefix := args[len(args)-1]
		for _, n := range []string{"3", "1", "2"} {
			require.NoError(t, os.WriteFile(prefix+"-"+n+".jpg", []byte("page "+n), 0o644))
		}
	}

	resp, body := send(t, e.app, multipartRequest(t, "deck.pdf", pdfFixture(t, 3), "jpg"))
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(body))
	assert.Equal(t, "page 1", string(body))
	m := attachment.FindStringSubmatch(resp.Header.Get("Content-Disposition"))
	require.NotNil(t, m)
	assert.True(t, strings.HasPrefix(m[1], "page-"))
	assert.True(t, strings.HasSuffix(m[1], "-1.jpg"))
	e.assertClean(t)
}

func TestConvert_RasterizerProducesNothing(t *testing.T) {
	e := newEnv(t)

	resp, body := send(t, e.app, multipartRequest(t, "deck.pdf", pdfFixture(t, 1), "jpg"))
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "No JPG generated from PDF", string(body))
	e.assertClean(t)
}

func TestConvert_DocxToHTML(t *testing.T) {
	e := newEnv(t)
	e.tools.produce = func(name string, args []string) {
		for _, a := range args {
			if out, ok := strings.CutPrefix(a, "--output="); ok {
				require.NoError(t, os.WriteFile(out, []byte("<p>Hello</p>"), 0o644))
			}
		}
	}

	resp, body := send(t, e.app, multipartRequest(t, "letter.docx", []byte("PK\x03\x04"), "html"))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "<p>Hello</p>", string(body))
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	e.assertClean(t)
}

func TestConvert_VideoFailure(t *testing.T) {
	e := newEnv(t)
	e.tools.err = errors.New("exit status 1")

	resp, body := send(t, e.app, multipartRequest(t, "clip.mp4", []byte("not really a video"), "avi"))
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "Video conversion failed", string(body))
	assert.Equal(t, fiber.MIMETextPlainCharsetUTF8, resp.Header.Get("Content-Type"))
	e.assertClean(t)
}

func TestConvert_CorruptImage(t *testing.T) {
	e := newEnv(t)

	resp, body := send(t, e.app, multipartRequest(t, "broken.png", []byte("nope"), "webp"))
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "Conversion failed", string(body))
	e.assertClean(t)
}

func TestConvert_BadRequests(t *testing.T) {
	e := newEnv(t)
	tests := []struct {
		name string
		req  *http.Request
		body string
	}{
		{"no file", multipartRequest(t, "", nil, "png"), "Missing file or target format"},
		{"no target", multipartRequest(t, "a.png", []byte("x"), ""), "Missing file or target format"},
		{"not multipart", httptest.NewRequest(http.MethodPost, "/convert", strings.NewReader("hi")), "Missing file or target format"},
		{"unsupported pair", multipartRequest(t, "a.webp", []byte("x"), "pdf"), "Unsupported conversion type"},
		{"pdf to png", multipartRequest(t, "a.pdf", []byte("x"), "png"), "Unsupported conversion type"},
		{"no extension", multipartRequest(t, "README", []byte("x"), "html"), "Unsupported conversion type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := send(t, e.app, tt.req)
			assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, tt.body, string(body))
			e.assertClean(t)
		})
	}
}

func TestHealth(t *testing.T) {
	e := newEnv(t)
	resp, body := send(t, e.app, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", string(body))
}
