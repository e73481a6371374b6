package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/quintet/api/internal/generation"
	"github.com/quintet/api/internal/middleware"
	"github.com/quintet/api/internal/models"
	"github.com/quintet/api/internal/variants"
)

// Generator is the slice of generation.Service the handlers need
type Generator interface {
	GenerateAll(ctx context.Context, prompt string) ([]string, error)
	GenerateVariant(ctx context.Context, prompt string, index int) (string, error)
	Registry() *variants.Registry
	Configured() bool
}

// GenerationHandler handles code generation endpoints
type GenerationHandler struct {
	svc    Generator
	logger *zap.Logger
}

// NewGenerationHandler creates a new generation handler
func NewGenerationHandler(svc Generator, logger *zap.Logger) *GenerationHandler {
	return &GenerationHandler{svc: svc, logger: logger}
}

// Generate godoc
// @Summary Generate all variants
// @Description Expands the prompt into every style variant and generates them concurrently. Fails as a whole if any variant fails.
// @Tags generation
// @Accept json
// @Produce json
// @Param request body models.GenerateRequest true "Base prompt"
// @Success 200 {object} models.GenerateResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 429 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Failure 503 {object} models.ErrorResponse
// @Router /api/generate [post]
func (h *GenerationHandler) Generate(c *gin.Context) {
	if !h.svc.Configured() {
		middleware.RespondGenerationError(c, generation.ErrNotConfigured)
		return
	}

	var req models.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		middleware.BadRequest(c, "prompt is required")
		return
	}

	codes, err := h.svc.GenerateAll(c.Request.Context(), req.Prompt)
	if err != nil {
		h.logger.Error("batch generation failed",
			zap.String("request_id", middleware.GetRequestID(c)),
			zap.Error(err),
		)
		middleware.RespondGenerationError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.GenerateResponse{Codes: codes})
}

// GenerateVariant godoc
// @Summary Generate one variant
// @Description Makes exactly one upstream call for the variant at variant_index.
// @Tags generation
// @Accept json
// @Produce json
// @Param request body models.GenerateVariantRequest true "Base prompt and variant index"
// @Success 200 {object} models.GenerateVariantResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 429 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Failure 503 {object} models.ErrorResponse
// @Router /api/generate/variant [post]
func (h *GenerationHandler) GenerateVariant(c *gin.Context) {
	if !h.svc.Configured() {
		middleware.RespondGenerationError(c, generation.ErrNotConfigured)
		return
	}

	var req models.GenerateVariantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		middleware.BadRequest(c, "prompt is required")
		return
	}
	if req.VariantIndex == nil {
		middleware.BadRequest(c, "variant_index is required")
		return
	}

	index := *req.VariantIndex
	variant, err := h.svc.Registry().Get(index)
	if err != nil {
		middleware.BadRequest(c, "invalid variant index")
		return
	}

	code, err := h.svc.GenerateVariant(c.Request.Context(), req.Prompt, index)
	if err != nil {
		h.logger.Error("variant generation failed",
			zap.String("request_id", middleware.GetRequestID(c)),
			zap.Int("variant_index", index),
			zap.Error(err),
		)
		middleware.RespondGenerationError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.GenerateVariantResponse{
		VariantIndex: index,
		Title:        variant.Title,
		Code:         code,
	})
}

// ListVariants godoc
// @Summary List style variants
// @Tags generation
// @Produce json
// @Success 200 {object} models.VariantsResponse
// @Router /api/variants [get]
func (h *GenerationHandler) ListVariants(c *gin.Context) {
	all := h.svc.Registry().All()
	out := make([]models.VariantInfo, len(all))
	for i, v := range all {
		out[i] = models.VariantInfo{Index: v.Index, Title: v.Title, Style: v.Style}
	}
	c.JSON(http.StatusOK, models.VariantsResponse{Variants: out})
}
