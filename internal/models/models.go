package models

import (
	"time"

	"github.com/google/uuid"
)

// GenerationMode distinguishes a five-way batch call from a single-variant call
type GenerationMode string

const (
	ModeBatch   GenerationMode = "batch"
	ModeVariant GenerationMode = "variant"
)

// GenerationStatus is the outcome of one upstream call
type GenerationStatus string

const (
	StatusSucceeded GenerationStatus = "succeeded"
	StatusFailed    GenerationStatus = "failed"
	StatusRejected  GenerationStatus = "rejected" // circuit open, no upstream call made
	StatusCancelled GenerationStatus = "cancelled"
)

// GenerateRequest is the body of POST /api/generate
type GenerateRequest struct {
	Prompt string `json:"prompt" example:"A to-do list app with local storage and dark mode"`
}

// GenerateResponse carries one document per variant, in registry order
type GenerateResponse struct {
	Codes []string `json:"codes"`
}

// GenerateVariantRequest is the body of POST /api/generate/variant
type GenerateVariantRequest struct {
	Prompt       string `json:"prompt" example:"A to-do list app with local storage and dark mode"`
	VariantIndex *int   `json:"variant_index" example:"0"`
}

// GenerateVariantResponse carries the document for a single variant
type GenerateVariantResponse struct {
	VariantIndex int    `json:"variant_index"`
	Title        string `json:"title"`
	Code         string `json:"code"`
}

// VariantInfo describes one registry entry
type VariantInfo struct {
	Index int    `json:"index"`
	Title string `json:"title"`
	Style string `json:"style"`
}

// VariantsResponse is the body of GET /api/variants
type VariantsResponse struct {
	Variants []VariantInfo `json:"variants"`
}

// ErrorResponse is the body of every non-2xx API answer
type ErrorResponse struct {
	Error string `json:"error"`
}

// GenerationEvent is published after every upstream call. It never carries generated code.
type GenerationEvent struct {
	ID           uuid.UUID        `json:"id"`
	RequestID    string           `json:"request_id,omitempty"`
	Mode         GenerationMode   `json:"mode"`
	VariantIndex int              `json:"variant_index"`
	Model        string           `json:"model"`
	Status       GenerationStatus `json:"status"`
	LatencyMs    int64            `json:"latency_ms"`
	Error        string           `json:"error,omitempty"`
	OccurredAt   time.Time        `json:"occurred_at"`
}

// GenerationRun is the generation_runs row recorded for a GenerationEvent
type GenerationRun struct {
	ID           uuid.UUID
	RequestID    string
	Mode         GenerationMode
	VariantIndex int
	Model        string
	Status       GenerationStatus
	LatencyMs    int64
	Error        string
	CreatedAt    time.Time
}

// RunFromEvent converts an event into its run-log row
func RunFromEvent(e GenerationEvent) GenerationRun {
	return GenerationRun{
		ID:           e.ID,
		RequestID:    e.RequestID,
		Mode:         e.Mode,
		VariantIndex: e.VariantIndex,
		Model:        e.Model,
		Status:       e.Status,
		LatencyMs:    e.LatencyMs,
		Error:        e.Error,
		CreatedAt:    e.OccurredAt,
	}
}
