package models

import (
	"path/filepath"
	"strings"
	"time"
)

// UploadedFile describes the multipart file of a request. Save copies the
// upload to dst; it is supplied by the transport layer.
type UploadedFile struct {
	OriginalName string
	MimeType     string
	Size         int64
	Save         func(dst string) error
}

// Extension returns the lower-cased extension of the original name without
// the leading dot.
func (f *UploadedFile) Extension() string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(f.OriginalName)), ".")
}

type ConversionRequest struct {
	File         *UploadedFile
	TargetFormat string
	RemoteIP     string
	UserID       string
}

// NormalizeFormat trims and lower-cases a requested target format.
func NormalizeFormat(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

type ConversionStatus string

const (
	StatusSucceeded ConversionStatus = "succeeded"
	StatusFailed    ConversionStatus = "failed"
)

type ConversionRecord struct {
	ID           string           `bson:"_id" json:"id"`
	OriginalName string           `bson:"original_name" json:"original_name"`
	MimeType     string           `bson:"mime_type" json:"mime_type"`
	SourceExt    string           `bson:"source_ext" json:"source_ext"`
	TargetFormat string           `bson:"target_format" json:"target_format"`
	Strategy     string           `bson:"strategy,omitempty" json:"strategy,omitempty"`
	Status       ConversionStatus `bson:"status" json:"status"`
	Error        string           `bson:"error,omitempty" json:"error,omitempty"`
	InputSize    int64            `bson:"input_size" json:"input_size"`
	OutputSize   int64            `bson:"output_size,omitempty" json:"output_size,omitempty"`
	ArchiveKey   string           `bson:"archive_key,omitempty" json:"archive_key,omitempty"` // S3 object key
	DurationMS   int64            `bson:"duration_ms" json:"duration_ms"`
	RemoteIP     string           `bson:"remote_ip,omitempty" json:"remote_ip,omitempty"`
	UserID       string           `bson:"user_id,omitempty" json:"user_id,omitempty"`
	CreatedAt    time.Time        `bson:"created_at" json:"created_at"`
}

const (
	EventConversionSucceeded = "conversion.succeeded"
	EventConversionFailed    = "conversion.failed"
)

type ConversionEvent struct {
	Type         string    `json:"type"`
	ID           string    `json:"id"`
	SourceExt    string    `json:"source_ext"`
	TargetFormat string    `json:"target_format"`
	Strategy     string    `json:"strategy,omitempty"`
	Error        string    `json:"error,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// EventFromRecord builds the event published for a finished conversion.
func EventFromRecord(r *ConversionRecord) ConversionEvent {
	typ := EventConversionSucceeded
	if r.Status == StatusFailed {
		typ = EventConversionFailed
	}
	return ConversionEvent{
		Type:         typ,
		ID:           r.ID,
		SourceExt:    r.SourceExt,
		TargetFormat: r.TargetFormat,
		Strategy:     r.Strategy,
		Error:        r.Error,
		OccurredAt:   r.CreatedAt.Add(time.Duration(r.DurationMS) * time.Millisecond),
	}
}
