package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/quintet/api/internal/variants"
)

var (
	// ErrEmptyPrompt is returned by Submit for a missing or blank prompt
	ErrEmptyPrompt = errors.New("prompt is required")
	// ErrNotReady is returned by Edit until the variant has resolved successfully
	ErrNotReady = errors.New("variant has no generated code yet")
	// ErrInvalidIndex is returned for an index outside the registry
	ErrInvalidIndex = errors.New("variant index out of range")
	// ErrEmptyCode is recorded for a variant whose request succeeded without code
	ErrEmptyCode = errors.New("empty response from server")
)

// VariantState is the client-side view of one variant's generation
type VariantState struct {
	Index          int     `json:"index"`
	Title          string  `json:"title"`
	IsLoading      bool    `json:"isLoading"`
	Code           string  `json:"code,omitempty"`
	EditedCode     string  `json:"editedCode,omitempty"`
	Error          string  `json:"error,omitempty"`
	ElapsedSeconds float64 `json:"elapsedSeconds,omitempty"`
}

// Succeeded reports whether the variant resolved with code
func (v VariantState) Succeeded() bool {
	return !v.IsLoading && v.Error == "" && v.Code != ""
}

// Failed reports whether the variant resolved with an error
func (v VariantState) Failed() bool {
	return !v.IsLoading && v.Error != ""
}

// Update is delivered to the notify callback after every state change.
// Index is -1 when all variants were reset by a submission.
type Update struct {
	Generation uint64
	Index      int
}

// SessionOption customises a Session
type SessionOption func(*Session)

// WithNotify registers a callback invoked, outside the session lock, after every change
func WithNotify(fn func(Update)) SessionOption { return func(s *Session) { s.notify = fn } }

// WithSessionClock replaces time.Now for elapsed-time measurement
func WithSessionClock(now func() time.Time) SessionOption { return func(s *Session) { s.now = now } }

// WithSessionLogger sets the logger
func WithSessionLogger(l *zap.Logger) SessionOption { return func(s *Session) { s.logger = l } }

// WithSessionRegistry overrides variants.Default
func WithSessionRegistry(r *variants.Registry) SessionOption {
	return func(s *Session) { s.registry = r }
}

// Session drives one request per variant and tracks their independent states.
// Each submission gets a new generation number and token; results carrying an
// older token are dropped.
type Session struct {
	gen      Generator
	registry *variants.Registry
	notify   func(Update)
	now      func() time.Time
	logger   *zap.Logger

	mu         sync.Mutex
	states     []VariantState
	selected   int
	prompt     string
	generation uint64
	token      string

	inflight sync.WaitGroup
}

// NewSession creates a session with every variant idle
func NewSession(gen Generator, opts ...SessionOption) *Session {
	s := &Session{
		gen:      gen,
		registry: variants.Default,
		now:      time.Now,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.states = make([]VariantState, s.registry.Len())
	for i, v := range s.registry.All() {
		s.states[i] = VariantState{Index: i, Title: v.Title}
	}
	return s
}

// Submit resets every variant to pending and starts one request per variant.
// It returns once the requests are launched; use Wait or the notify callback
// to observe results.
func (s *Session) Submit(ctx context.Context, prompt string) error {
	if strings.TrimSpace(prompt) == "" {
		return ErrEmptyPrompt
	}

	s.mu.Lock()
	s.generation++
	gen := s.generation
	token := uuid.NewString()
	s.token = token
	s.prompt = prompt
	start := s.now()
	for i := range s.states {
		s.states[i] = VariantState{
			Index:     i,
			Title:     s.states[i].Title,
			IsLoading: true,
		}
	}
	n := len(s.states)
	s.mu.Unlock()

	s.logger.Info("generation submitted",
		zap.Uint64("generation", gen),
		zap.String("token", token),
		zap.Int("variants", n),
	)
	s.emit(Update{Generation: gen, Index: -1})

	for i := 0; i < n; i++ {
		s.inflight.Add(1)
		go s.run(ctx, gen, token, prompt, i, start)
	}
	return nil
}

func (s *Session) run(ctx context.Context, gen uint64, token, prompt string, index int, start time.Time) {
	defer s.inflight.Done()

	code, err := s.gen.GenerateVariant(ctx, prompt, index)
	elapsed := s.now().Sub(start)
	if err == nil && code == "" {
		err = ErrEmptyCode
	}

	s.mu.Lock()
	if s.token != token {
		s.mu.Unlock()
		s.logger.Debug("discarding stale result",
			zap.Uint64("generation", gen),
			zap.Int("variant_index", index),
		)
		return
	}
	st := &s.states[index]
	st.IsLoading = false
	if err != nil {
		st.Error = err.Error()
	} else {
		st.Code = code
		st.EditedCode = code
		st.ElapsedSeconds = elapsed.Seconds()
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Warn("variant failed",
			zap.Int("variant_index", index),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		)
	} else {
		s.logger.Info("variant ready",
			zap.Int("variant_index", index),
			zap.Duration("elapsed", elapsed),
		)
	}
	s.emit(Update{Generation: gen, Index: index})
}

// Wait blocks until every launched request, including superseded ones, has
// settled. It must not race with Submit.
func (s *Session) Wait() {
	s.inflight.Wait()
}

// Snapshot returns a copy of every variant state in registry order
func (s *Session) Snapshot() []VariantState {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]VariantState, len(s.states))
	copy(out, s.states)
	return out
}

// State returns the state of variant i
func (s *Session) State(i int) (VariantState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.states) {
		return VariantState{}, fmt.Errorf("%w: %d", ErrInvalidIndex, i)
	}
	return s.states[i], nil
}

// Select changes the selected variant. It never triggers a request.
func (s *Session) Select(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.states) {
		return fmt.Errorf("%w: %d", ErrInvalidIndex, i)
	}
	s.selected = i
	return nil
}

// Selected returns the selected variant index
func (s *Session) Selected() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

// Edit replaces the local edited source of a successfully generated variant.
// Nothing is sent anywhere and other variants are untouched.
func (s *Session) Edit(i int, code string) error {
	s.mu.Lock()
	if i < 0 || i >= len(s.states) {
		s.mu.Unlock()
		return fmt.Errorf("%w: %d", ErrInvalidIndex, i)
	}
	if !s.states[i].Succeeded() {
		s.mu.Unlock()
		return ErrNotReady
	}
	s.states[i].EditedCode = code
	gen := s.generation
	s.mu.Unlock()

	s.emit(Update{Generation: gen, Index: i})
	return nil
}

// Prompt returns the base prompt of the current submission
func (s *Session) Prompt() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prompt
}

// Generation returns the current submission number, 0 before the first Submit
func (s *Session) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// Pending returns how many variants are still loading
func (s *Session) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, st := range s.states {
		if st.IsLoading {
			n++
		}
	}
	return n
}

func (s *Session) emit(u Update) {
	if s.notify != nil {
		s.notify(u)
	}
}
