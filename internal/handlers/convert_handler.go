package handlers

import (
	"github.com/fathima-sithara/convert-service/internal/converter"
	"github.com/fathima-sithara/convert-service/internal/middleware"
	"github.com/fathima-sithara/convert-service/internal/models"
	"github.com/fathima-sithara/convert-service/internal/services"
	"github.com/fathima-sithara/convert-service/internal/utils"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type Handler struct {
	svc *services.ConversionService
	log *zap.SugaredLogger
}

func NewHandler(svc *services.ConversionService, log *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, log: log}
}

// POST /convert (multipart/form-data 'file', 'targetFormat')
func (h *Handler) Convert(c *fiber.Ctx) error {
	req := models.ConversionRequest{
		TargetFormat: c.FormValue("targetFormat"),
		RemoteIP:     c.IP(),
	}
	if uid, ok := c.Locals(middleware.LocalUserID).(string); ok {
		req.UserID = uid
	}
	if fh, err := c.FormFile("file"); err == nil {
		req.File = &models.UploadedFile{
			OriginalName: fh.Filename,
			MimeType:     fh.Header.Get(fiber.HeaderContentType),
			Size:         fh.Size,
			Save:         func(dst string) error { return c.SaveFile(fh, dst) },
		}
	}

	out, err := h.svc.Convert(c.UserContext(), req)
	if err != nil {
		return utils.TextError(c, converter.StatusCode(err), converter.PublicMessage(err))
	}

	// fasthttp closes the stream after the response is written, which
	// deletes the output
	f, err := out.Open()
	if err != nil {
		h.log.Errorw("opening converted output", "id", out.ID, "error", err)
		_ = out.Release()
		return utils.TextError(c, fiber.StatusInternalServerError, converter.MsgFailed)
	}
	c.Attachment(out.FileName)
	return c.SendStream(f, int(out.Size))
}

// GET /healthz
func (h *Handler) Health(c *fiber.Ctx) error {
	return c.SendString("ok")
}
