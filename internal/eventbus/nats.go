package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/quintet/api/internal/models"
)

// Publisher publishes generation events
type Publisher interface {
	PublishGeneration(ctx context.Context, event models.GenerationEvent) error
}

// Connect dials NATS with bounded reconnects and logs connection state changes
func Connect(url string, logger *zap.Logger) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name("quintet-api"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(3),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	return nc, nil
}

// Subject returns the subject a generation event is published on, e.g. "quintet.generation.variant"
func Subject(base string, mode models.GenerationMode) string {
	return base + "." + string(mode)
}

func encode(event models.GenerationEvent) ([]byte, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("encode generation event: %w", err)
	}
	return payload, nil
}

// NATSPublisher publishes on core NATS (fire and forget)
type NATSPublisher struct {
	nc      *nats.Conn
	subject string
}

// NewNATSPublisher creates a core NATS publisher rooted at subject
func NewNATSPublisher(nc *nats.Conn, subject string) *NATSPublisher {
	return &NATSPublisher{nc: nc, subject: subject}
}

// PublishGeneration implements Publisher
func (p *NATSPublisher) PublishGeneration(_ context.Context, event models.GenerationEvent) error {
	if p.nc == nil || p.nc.IsClosed() {
		return nats.ErrConnectionClosed
	}
	payload, err := encode(event)
	if err != nil {
		return err
	}
	return p.nc.Publish(Subject(p.subject, event.Mode), payload)
}

// JetStreamPublisher appends events to a JetStream stream so consumers can replay them
type JetStreamPublisher struct {
	js      nats.JetStreamContext
	stream  string
	subject string
}

// NewJetStreamPublisher ensures the stream exists and returns a publisher for it
func NewJetStreamPublisher(nc *nats.Conn, stream, subject string) (*JetStreamPublisher, error) {
	js, err := nc.JetStream()
	if err != nil {
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	_, err = js.AddStream(&nats.StreamConfig{
		Name:     stream,
		Subjects: []string{subject + ".*"},
	})
	if err != nil && !errors.Is(err, nats.ErrStreamNameAlreadyInUse) {
		return nil, fmt.Errorf("add stream %s: %w", stream, err)
	}

	return &JetStreamPublisher{js: js, stream: stream, subject: subject}, nil
}

// PublishGeneration implements Publisher. The event ID is used as the
// message ID so JetStream de-duplicates retries.
func (p *JetStreamPublisher) PublishGeneration(ctx context.Context, event models.GenerationEvent) error {
	payload, err := encode(event)
	if err != nil {
		return err
	}
	_, err = p.js.Publish(Subject(p.subject, event.Mode), payload,
		nats.Context(ctx),
		nats.MsgId(event.ID.String()),
		nats.ExpectStream(p.stream),
	)
	return err
}
