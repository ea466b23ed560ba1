package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/fathima-sithara/convert-service/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventMessage(t *testing.T) {
	at := time.Date(2024, 5, 2, 9, 30, 0, 0, time.UTC)
	rec := &models.ConversionRecord{
		ID:           "c0ffee",
		SourceExt:    "mp4",
		TargetFormat: "avi",
		Strategy:     "video",
		Status:       models.StatusFailed,
		Error:        "Video conversion failed",
		CreatedAt:    at,
	}
	ev := models.EventFromRecord(rec)

	msg, err := eventMessage(ev)
	require.NoError(t, err)
	assert.Equal(t, "c0ffee", string(msg.Key))
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, "type", msg.Headers[0].Key)
	assert.Equal(t, models.EventConversionFailed, string(msg.Headers[0].Value))

	var body map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &body))
	assert.Equal(t, "conversion.failed", body["type"])
	assert.Equal(t, "c0ffee", body["id"])
	assert.Equal(t, "mp4", body["source_ext"])
	assert.Equal(t, "avi", body["target_format"])
	assert.Equal(t, "video", body["strategy"])
	assert.Equal(t, "Video conversion failed", body["error"])
	assert.True(t, msg.Time.Equal(ev.OccurredAt))
}

func TestEventMessage_SuccessOmitsError(t *testing.T) {
	msg, err := eventMessage(models.ConversionEvent{
		Type:       models.EventConversionSucceeded,
		ID:         "abc",
		OccurredAt: time.Now(),
	})
	require.NoError(t, err)

	var body map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &body))
	assert.NotContains(t, body, "error")
	assert.NotContains(t, body, "strategy")
}

func TestPublish_UnreachableBroker(t *testing.T) {
	p := NewProducer([]string{"127.0.0.1:1"}, "conversion-events")
	defer p.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	err := p.Publish(ctx, models.ConversionEvent{
		Type:       models.EventConversionSucceeded,
		ID:         "abc",
		OccurredAt: time.Now(),
	})
	assert.Error(t, err)
}
