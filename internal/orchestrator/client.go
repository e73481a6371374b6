package orchestrator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/quintet/api/internal/models"
	"github.com/quintet/api/internal/variants"
)

// Generator produces the document for one variant of a prompt
type Generator interface {
	GenerateVariant(ctx context.Context, prompt string, index int) (string, error)
}

// APIError is a non-2xx answer from the generation API
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return e.Message
}

// APIClient talks to the generation API over HTTP
type APIClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewAPIClient creates a client for the API rooted at baseURL.
// A nil httpClient means no client-side timeout, matching the server's long generations.
func NewAPIClient(baseURL string, httpClient *http.Client) *APIClient {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &APIClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// GenerateVariant calls POST /api/generate/variant: one upstream call per variant
func (c *APIClient) GenerateVariant(ctx context.Context, prompt string, index int) (string, error) {
	var resp models.GenerateVariantResponse
	req := models.GenerateVariantRequest{Prompt: prompt, VariantIndex: &index}
	if err := c.do(ctx, http.MethodPost, "/api/generate/variant", req, &resp); err != nil {
		return "", err
	}
	return resp.Code, nil
}

// GenerateBatch calls POST /api/generate and returns every variant in registry order
func (c *APIClient) GenerateBatch(ctx context.Context, prompt string) ([]string, error) {
	var resp models.GenerateResponse
	if err := c.do(ctx, http.MethodPost, "/api/generate", models.GenerateRequest{Prompt: prompt}, &resp); err != nil {
		return nil, err
	}
	return resp.Codes, nil
}

// Variants fetches the server's variant registry
func (c *APIClient) Variants(ctx context.Context) ([]variants.Variant, error) {
	var resp models.VariantsResponse
	if err := c.do(ctx, http.MethodGet, "/api/variants", nil, &resp); err != nil {
		return nil, err
	}
	out := make([]variants.Variant, len(resp.Variants))
	for i, v := range resp.Variants {
		out[i] = variants.Variant{Index: v.Index, Title: v.Title, Style: v.Style}
	}
	return out, nil
}

func (c *APIClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr models.ErrorResponse
		msg := strings.TrimSpace(string(data))
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			msg = apiErr.Error
		}
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// BatchPerIndex generates a variant by requesting the whole batch and keeping
// one slot. Each call costs a full five-way upstream fan-out.
type BatchPerIndex struct {
	Client *APIClient
}

// GenerateVariant implements Generator
func (b BatchPerIndex) GenerateVariant(ctx context.Context, prompt string, index int) (string, error) {
	codes, err := b.Client.GenerateBatch(ctx, prompt)
	if err != nil {
		return "", err
	}
	if index < 0 || index >= len(codes) {
		return "", fmt.Errorf("batch returned %d codes, no slot for variant %d", len(codes), index)
	}
	return codes[index], nil
}

// Strategy names accepted by NewGenerator
const (
	StrategyVariant = "variant"
	StrategyBatch   = "batch"
)

// NewGenerator returns the Generator for a strategy name
func NewGenerator(client *APIClient, strategy string) (Generator, error) {
	switch strategy {
	case "", StrategyVariant:
		return client, nil
	case StrategyBatch:
		return BatchPerIndex{Client: client}, nil
	default:
		return nil, fmt.Errorf("unknown strategy %q (want %q or %q)", strategy, StrategyVariant, StrategyBatch)
	}
}
