package eventbus

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quintet/api/internal/models"
)

func TestSubject(t *testing.T) {
	assert.Equal(t, "quintet.generation.batch", Subject("quintet.generation", models.ModeBatch))
	assert.Equal(t, "quintet.generation.variant", Subject("quintet.generation", models.ModeVariant))
}

func TestEncodeOmitsCode(t *testing.T) {
	event := models.GenerationEvent{
		ID:           uuid.New(),
		RequestID:    "req-1",
		Mode:         models.ModeVariant,
		VariantIndex: 3,
		Model:        "llama-3.2-1b-preview",
		Status:       models.StatusSucceeded,
		LatencyMs:    1200,
		OccurredAt:   time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	}

	payload, err := encode(event)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(payload, &decoded))
	assert.Equal(t, "variant", decoded["mode"])
	assert.EqualValues(t, 3, decoded["variant_index"])
	assert.NotContains(t, decoded, "code")
	assert.NotContains(t, decoded, "error")
}

func TestNATSPublisherWithoutConnection(t *testing.T) {
	p := NewNATSPublisher(nil, "quintet.generation")
	err := p.PublishGeneration(context.Background(), models.GenerationEvent{Mode: models.ModeBatch})
	assert.ErrorIs(t, err, nats.ErrConnectionClosed)
}
