package generation

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/quintet/api/internal/eventbus"
	"github.com/quintet/api/internal/llm"
	"github.com/quintet/api/internal/metrics"
	"github.com/quintet/api/internal/models"
	"github.com/quintet/api/internal/resilience"
	"github.com/quintet/api/internal/telemetry"
	"github.com/quintet/api/internal/variants"
)

var (
	// ErrNotConfigured means no upstream credential is set; no call is attempted
	ErrNotConfigured = errors.New("GROQ_API_KEY not configured")
	// ErrUpstream wraps any failure of the upstream provider
	ErrUpstream = errors.New("failed to generate code")
	// ErrInvalidVariant is returned for an index outside the registry
	ErrInvalidVariant = errors.New("invalid variant index")
	// ErrEmptyPrompt is returned for a missing or blank prompt
	ErrEmptyPrompt = errors.New("prompt is required")
)

// RunRecorder appends generation metadata to a durable log
type RunRecorder interface {
	InsertGenerationRun(ctx context.Context, run models.GenerationRun) error
}

// Service expands prompts into style variants and calls the upstream provider
type Service struct {
	provider    llm.Provider
	registry    *variants.Registry
	breaker     *resilience.Breaker
	publisher   eventbus.Publisher
	runs        RunRecorder
	model       string
	logger      *zap.Logger
	tracer      trace.Tracer
	now         func() time.Time
	sinkTimeout time.Duration
}

// Option customises a Service
type Option func(*Service)

// WithRegistry overrides variants.Default
func WithRegistry(r *variants.Registry) Option { return func(s *Service) { s.registry = r } }

// WithBreaker guards upstream calls with b
func WithBreaker(b *resilience.Breaker) Option { return func(s *Service) { s.breaker = b } }

// WithPublisher publishes a GenerationEvent after every upstream call
func WithPublisher(p eventbus.Publisher) Option { return func(s *Service) { s.publisher = p } }

// WithRunRecorder records a GenerationRun after every upstream call
func WithRunRecorder(r RunRecorder) Option { return func(s *Service) { s.runs = r } }

// WithModel sets the model name reported in events and metrics
func WithModel(model string) Option { return func(s *Service) { s.model = model } }

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option { return func(s *Service) { s.logger = l } }

// WithClock replaces time.Now for latency measurement
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// NewService creates a generation service. A nil provider makes every
// generation fail with ErrNotConfigured.
func NewService(provider llm.Provider, opts ...Option) *Service {
	s := &Service{
		provider:    provider,
		registry:    variants.Default,
		breaker:     resilience.NewBreaker(5, 2, 30*time.Second),
		model:       llm.DefaultModel,
		logger:      zap.NewNop(),
		tracer:      telemetry.Tracer("github.com/quintet/api/internal/generation"),
		now:         time.Now,
		sinkTimeout: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Registry returns the variant registry prompts are built from
func (s *Service) Registry() *variants.Registry {
	return s.registry
}

// Configured reports whether an upstream provider is available
func (s *Service) Configured() bool {
	return s.provider != nil
}

// Breaker returns the circuit breaker guarding upstream calls
func (s *Service) Breaker() *resilience.Breaker {
	return s.breaker
}

// GenerateAll generates every variant concurrently and returns the documents
// in registry order. The first failure fails the batch and cancels the rest.
func (s *Service) GenerateAll(ctx context.Context, prompt string) ([]string, error) {
	if err := s.precheck(prompt); err != nil {
		return nil, err
	}

	prompts := s.registry.Prompts(prompt)
	codes := make([]string, len(prompts))

	g, gctx := errgroup.WithContext(ctx)
	for i, p := range prompts {
		g.Go(func() error {
			code, err := s.call(gctx, models.ModeBatch, i, p)
			if err != nil {
				return err
			}
			codes[i] = code
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return codes, nil
}

// GenerateVariant makes exactly one upstream call for the variant at index
func (s *Service) GenerateVariant(ctx context.Context, prompt string, index int) (string, error) {
	if err := s.precheck(prompt); err != nil {
		return "", err
	}
	p, err := s.registry.Prompt(prompt, index)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidVariant, err)
	}
	return s.call(ctx, models.ModeVariant, index, p)
}

func (s *Service) precheck(prompt string) error {
	if s.provider == nil {
		return ErrNotConfigured
	}
	if strings.TrimSpace(prompt) == "" {
		return ErrEmptyPrompt
	}
	return nil
}

func (s *Service) call(ctx context.Context, mode models.GenerationMode, index int, prompt string) (string, error) {
	ctx, span := s.tracer.Start(ctx, "generation.call", trace.WithAttributes(
		attribute.String("generation.mode", string(mode)),
		attribute.Int("generation.variant_index", index),
		attribute.String("llm.model", s.model),
	))
	defer span.End()

	start := s.now()
	var code string
	err := s.breaker.Execute(ctx, func(ctx context.Context) error {
		out, err := s.provider.Complete(ctx, prompt)
		if err != nil {
			return err
		}
		code = llm.ExtractDocument(out)
		if code == "" {
			return llm.ErrEmptyResponse
		}
		return nil
	})
	latency := s.now().Sub(start)

	status := models.StatusSucceeded
	switch {
	case err == nil:
	case errors.Is(err, resilience.ErrCircuitOpen):
		status = models.StatusRejected
	case ctx.Err() != nil:
		status = models.StatusCancelled
	default:
		status = models.StatusFailed
	}

	variant := strconv.Itoa(index)
	metrics.GenerationTotal.WithLabelValues(string(mode), variant, string(status)).Inc()
	if status != models.StatusRejected {
		metrics.GenerationDuration.WithLabelValues(string(mode), variant).Observe(latency.Seconds())
	}

	event := models.GenerationEvent{
		ID:           uuid.New(),
		RequestID:    RequestIDFrom(ctx),
		Mode:         mode,
		VariantIndex: index,
		Model:        s.model,
		Status:       status,
		LatencyMs:    latency.Milliseconds(),
		OccurredAt:   start.UTC(),
	}
	if err != nil {
		event.Error = err.Error()
	}
	s.emit(ctx, event)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.Warn("upstream generation failed",
			zap.String("mode", string(mode)),
			zap.Int("variant_index", index),
			zap.String("status", string(status)),
			zap.Duration("latency", latency),
			zap.Error(err),
		)
		if status == models.StatusRejected {
			return "", fmt.Errorf("variant %d: %w", index, err)
		}
		return "", fmt.Errorf("%w: variant %d: %w", ErrUpstream, index, err)
	}

	s.logger.Info("upstream generation succeeded",
		zap.String("mode", string(mode)),
		zap.Int("variant_index", index),
		zap.Duration("latency", latency),
		zap.Int("bytes", len(code)),
	)
	return code, nil
}

// emit hands the event to the configured sinks. Sink failures are logged only.
func (s *Service) emit(ctx context.Context, event models.GenerationEvent) {
	if s.publisher == nil && s.runs == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.sinkTimeout)
	defer cancel()

	if s.publisher != nil {
		if err := s.publisher.PublishGeneration(ctx, event); err != nil {
			metrics.EventsPublishFailures.Inc()
			s.logger.Warn("failed to publish generation event",
				zap.String("event_id", event.ID.String()),
				zap.Error(err),
			)
		}
	}
	if s.runs != nil {
		if err := s.runs.InsertGenerationRun(ctx, models.RunFromEvent(event)); err != nil {
			metrics.EventsPublishFailures.Inc()
			s.logger.Warn("failed to record generation run",
				zap.String("event_id", event.ID.String()),
				zap.Error(err),
			)
		}
	}
}
