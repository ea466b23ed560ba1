package services

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"time"

	"github.com/fathima-sithara/convert-service/internal/converter"
	"github.com/fathima-sithara/convert-service/internal/metrics"
	"github.com/fathima-sithara/convert-service/internal/models"
	"github.com/fathima-sithara/convert-service/internal/storage"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Archiver copies a finished output somewhere durable before it is deleted.
type Archiver interface {
	Archive(ctx context.Context, id, localPath, contentType string) (string, error)
}

type HistoryStore interface {
	Insert(ctx context.Context, rec *models.ConversionRecord) error
}

type EventPublisher interface {
	Publish(ctx context.Context, ev models.ConversionEvent) error
}

type ConversionService struct {
	ws      *storage.Workspace
	table   *converter.Table
	timeout time.Duration
	log     *zap.SugaredLogger

	archive     Archiver
	history     HistoryStore
	events      EventPublisher
	sideTimeout time.Duration
}

// DefaultSideChannelTimeout bounds how long archive, events and history may
// hold back a finished response.
const DefaultSideChannelTimeout = 3 * time.Second

type Option func(*ConversionService)

func WithArchiver(a Archiver) Option { return func(s *ConversionService) { s.archive = a } }

func WithHistory(h HistoryStore) Option { return func(s *ConversionService) { s.history = h } }

func WithEvents(e EventPublisher) Option { return func(s *ConversionService) { s.events = e } }

func WithSideChannelTimeout(d time.Duration) Option {
	return func(s *ConversionService) {
		if d > 0 {
			s.sideTimeout = d
		}
	}
}

func NewConversionService(ws *storage.Workspace, table *converter.Table, timeout time.Duration, log *zap.SugaredLogger, opts ...Option) *ConversionService {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	s := &ConversionService{
		ws:          ws,
		table:       table,
		timeout:     timeout,
		log:         log,
		sideTimeout: DefaultSideChannelTimeout,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Output is a finished conversion. The caller owns it and must either stream
// it through Open, whose Close deletes the file, or call Release.
type Output struct {
	ID       string
	FileName string
	Size     int64

	artifact *storage.Artifact
}

func (o *Output) Path() string { return o.artifact.Path() }

func (o *Output) Open() (*storage.ReleasingFile, error) { return o.artifact.Open() }

func (o *Output) Release() error { return o.artifact.Release() }

// Convert runs one request end to end. The uploaded input never outlives the
// call; on success the output is handed to the caller, on failure nothing is
// left on disk. Every returned error is a *converter.Error.
func (s *ConversionService) Convert(ctx context.Context, req models.ConversionRequest) (*Output, error) {
	target := models.NormalizeFormat(req.TargetFormat)
	if req.File == nil || target == "" {
		return nil, converter.MissingInput()
	}

	rec := &models.ConversionRecord{
		ID:           uuid.NewString(),
		OriginalName: req.File.OriginalName,
		MimeType:     req.File.MimeType,
		SourceExt:    req.File.Extension(),
		TargetFormat: target,
		InputSize:    req.File.Size,
		RemoteIP:     req.RemoteIP,
		UserID:       req.UserID,
		CreatedAt:    time.Now().UTC(),
	}

	s.log.Debugw("conversion requested", "id", rec.ID, "name", rec.OriginalName, "mime", rec.MimeType, "size", rec.InputSize, "to", target)

	start := time.Now()
	out, err := s.run(ctx, req.File, rec)
	rec.DurationMS = time.Since(start).Milliseconds()

	strategy := rec.Strategy
	if strategy == "" {
		strategy = "none"
	}
	if err != nil {
		var ce *converter.Error
		if !errors.As(err, &ce) {
			err = converter.Failed("", err)
		}
		rec.Status = models.StatusFailed
		rec.Error = err.Error()
		metrics.Conversions.WithLabelValues(strategy, "failed").Inc()
		s.log.Warnw("conversion failed", "id", rec.ID, "from", rec.SourceExt, "to", target, "strategy", rec.Strategy, "error", err)
		s.finish(ctx, rec, "")
		return nil, err
	}

	rec.Status = models.StatusSucceeded
	rec.OutputSize = out.Size
	metrics.Conversions.WithLabelValues(strategy, "succeeded").Inc()
	s.log.Infow("conversion succeeded", "id", rec.ID, "from", rec.SourceExt, "to", target, "strategy", rec.Strategy, "bytes", out.Size, "ms", rec.DurationMS)
	s.finish(ctx, rec, out.Path())
	return out, nil
}

func (s *ConversionService) run(ctx context.Context, file *models.UploadedFile, rec *models.ConversionRecord) (*Output, error) {
	strategy, err := s.table.Lookup(rec.SourceExt, rec.TargetFormat)
	if err != nil {
		return nil, err
	}
	rec.Strategy = strategy.Name()

	in, err := s.ws.NewInput(file.OriginalName)
	if err != nil {
		return nil, converter.Failed("", err)
	}
	defer s.release(in)

	if err := file.Save(in.Path()); err != nil {
		return nil, converter.Failed("", fmt.Errorf("saving upload: %w", err))
	}
	metrics.UploadBytes.Observe(float64(file.Size))

	reserved, err := s.ws.NewOutput(rec.TargetFormat)
	if err != nil {
		return nil, converter.Failed("", err)
	}

	job := converter.Job{
		ID:           rec.ID,
		InputPath:    in.Path(),
		SourceExt:    rec.SourceExt,
		TargetFormat: rec.TargetFormat,
		OutputPath:   reserved.Path(),
		OutputPrefix: s.ws.NewPrefix("page"),
	}

	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	metrics.InFlight.Inc()
	started := time.Now()
	res, err := strategy.Convert(cctx, job)
	metrics.ConversionDuration.WithLabelValues(strategy.Name()).Observe(time.Since(started).Seconds())
	metrics.InFlight.Dec()

	for _, p := range res.Discarded {
		s.release(s.ws.Adopt(p))
	}
	if err != nil {
		s.release(reserved)
		return nil, err
	}

	final := reserved
	if res.Path != reserved.Path() {
		s.release(reserved)
		final = s.ws.Adopt(res.Path)
	}
	size, err := final.Size()
	if err != nil {
		s.release(final)
		return nil, converter.Failed("", fmt.Errorf("stat output: %w", err))
	}
	return &Output{
		ID:       rec.ID,
		FileName: filepath.Base(final.Path()),
		Size:     size,
		artifact: final,
	}, nil
}

func (s *ConversionService) release(a *storage.Artifact) {
	if err := a.Release(); err != nil {
		s.log.Errorw("artifact cleanup failed", "path", a.Path(), "error", err)
	}
}

// finish feeds the optional side channels. Their failures are logged and
// counted but never change the request outcome. They run detached from the
// request context so a client hang-up does not lose the history row.
func (s *ConversionService) finish(ctx context.Context, rec *models.ConversionRecord, outputPath string) {
	if s.archive == nil && s.history == nil && s.events == nil {
		return
	}
	start := time.Now()
	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.sideTimeout)
	defer cancel()
	defer func() {
		took := time.Since(start)
		if sctx.Err() != nil {
			s.log.Warnw("side channels hit deadline", "id", rec.ID, "took", took, "limit", s.sideTimeout)
			return
		}
		s.log.Debugw("side channels done", "id", rec.ID, "took", took)
	}()

	ev := models.EventFromRecord(rec)
	var archiveKey string

	var g errgroup.Group
	if s.archive != nil && outputPath != "" {
		g.Go(func() error {
			ct := mime.TypeByExtension(filepath.Ext(outputPath))
			if ct == "" {
				ct = "application/octet-stream"
			}
			key, err := s.archive.Archive(sctx, rec.ID, outputPath, ct)
			if err != nil {
				s.sideFailure("archive", rec.ID, err)
				return nil
			}
			archiveKey = key
			return nil
		})
	}
	if s.events != nil {
		g.Go(func() error {
			if err := s.events.Publish(sctx, ev); err != nil {
				s.sideFailure("events", rec.ID, err)
			}
			return nil
		})
	}
	_ = g.Wait()
	rec.ArchiveKey = archiveKey

	// history last so the row carries the archive key
	if s.history != nil {
		if err := s.history.Insert(sctx, rec); err != nil {
			s.sideFailure("history", rec.ID, err)
		}
	}
}

func (s *ConversionService) sideFailure(sink, id string, err error) {
	metrics.SideChannelErrors.WithLabelValues(sink).Inc()
	s.log.Errorw("side channel failed", "sink", sink, "id", id, "error", err)
}
