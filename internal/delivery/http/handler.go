package http

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/serpprice/backend/internal/domain"
	"github.com/serpprice/backend/internal/usecase"
)

const serviceVersion = "1.0.0"

// Handler holds dependencies for HTTP handlers
type Handler struct {
	analysisService *usecase.AnalysisService
	defaultStrategy domain.MatchStrategy
}

// NewHandler creates a new HTTP handler. defaultStrategy applies when a
// request names no matching strategy; empty means tokens.
func NewHandler(analysisService *usecase.AnalysisService, defaultStrategy domain.MatchStrategy) *Handler {
	if defaultStrategy == "" {
		defaultStrategy = domain.StrategyTokens
	}
	return &Handler{
		analysisService: analysisService,
		defaultStrategy: defaultStrategy,
	}
}

// AnalysisRequest is the JSON body of POST /api/v1/analysis
type AnalysisRequest struct {
	Products []*domain.ProductRecord `json:"products"`
	Config   domain.AnalysisConfig   `json:"config"`
	Strategy domain.MatchStrategy    `json:"strategy,omitempty"`
}

// CSVAnalysisRequest is the JSON body of POST /api/v1/analysis/csv
type CSVAnalysisRequest struct {
	CSV      string                `json:"csv"`
	Config   domain.AnalysisConfig `json:"config"`
	Strategy domain.MatchStrategy  `json:"strategy,omitempty"`
}

// MatchRequest is the JSON body of POST /api/v1/match
type MatchRequest struct {
	TitleA   string               `json:"title_a"`
	TitleB   string               `json:"title_b"`
	Strategy domain.MatchStrategy `json:"strategy,omitempty"`
}

// SpecsRequest is the JSON body of POST /api/v1/specs
type SpecsRequest struct {
	Title string `json:"title"`
}

// EvictRequest is the JSON body of POST /api/v1/cache/evict
type EvictRequest struct {
	Titles []string `json:"titles"`
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "serpprice-backend",
		"version": serviceVersion,
	})
}

// Analyze handles price analysis over a JSON list of listings
func (h *Handler) Analyze(c *gin.Context) {
	if !h.requireService(c) {
		return
	}

	var req AnalysisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	if err := h.applyStrategy(&req.Config, req.Strategy); err != nil {
		respondError(c, err)
		return
	}

	result, err := h.analysisService.Analyze(c.Request.Context(), req.Products, req.Config)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// AnalyzeCSV handles price analysis over a rank-checker CSV export
func (h *Handler) AnalyzeCSV(c *gin.Context) {
	if !h.requireService(c) {
		return
	}

	var req CSVAnalysisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	if err := h.applyStrategy(&req.Config, req.Strategy); err != nil {
		respondError(c, err)
		return
	}

	result, stats, err := h.analysisService.AnalyzeCSV(c.Request.Context(), strings.NewReader(req.CSV), req.Config)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":       result.ID,
		"enriched": result.Enriched,
		"analysis": result.Analysis,
		"import":   stats,
	})
}

// MatchTitles compares two listing titles
func (h *Handler) MatchTitles(c *gin.Context) {
	if !h.requireService(c) {
		return
	}

	var req MatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	strategy := req.Strategy
	if strategy == "" {
		strategy = h.defaultStrategy
	}

	comparison, err := h.analysisService.CompareTitles(req.TitleA, req.TitleB, strategy)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, comparison)
}

// ExtractSpecs returns the structured specs read from one title
func (h *Handler) ExtractSpecs(c *gin.Context) {
	var req SpecsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		respondError(c, fmt.Errorf("%w: title is required", domain.ErrInvalidRequest))
		return
	}

	specs := usecase.ExtractSpecs(req.Title)
	c.JSON(http.StatusOK, gin.H{
		"title":     req.Title,
		"specs":     specs,
		"tier_key":  specs.TierKey(),
		"exact_key": specs.ExactKey(),
	})
}

// ClearCache drops every memoized enrichment result
func (h *Handler) ClearCache(c *gin.Context) {
	if !h.requireService(c) {
		return
	}

	if err := h.analysisService.ClearCache(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cleared"})
}

// EvictCache drops the memoized enrichment for one title set
func (h *Handler) EvictCache(c *gin.Context) {
	if !h.requireService(c) {
		return
	}

	var req EvictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	if len(req.Titles) == 0 {
		respondError(c, fmt.Errorf("%w: titles are required", domain.ErrInvalidRequest))
		return
	}

	if err := h.analysisService.EvictTitles(c.Request.Context(), req.Titles); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "evicted"})
}

func (h *Handler) requireService(c *gin.Context) bool {
	if h.analysisService == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "analysis service not configured"})
		return false
	}
	return true
}

// applyStrategy resolves the matching strategy of a request: an explicit
// strategy wins, then match_by_specs, then the server default.
func (h *Handler) applyStrategy(cfg *domain.AnalysisConfig, strategy domain.MatchStrategy) error {
	if strategy == "" {
		if cfg.MatchBySpecs {
			return nil
		}
		strategy = h.defaultStrategy
	}

	switch strategy {
	case domain.StrategyTokens:
		cfg.MatchBySpecs = false
	case domain.StrategySpecs:
		cfg.MatchBySpecs = true
	default:
		return fmt.Errorf("%w: unknown strategy %q", domain.ErrInvalidRequest, strategy)
	}
	return nil
}

// respondError maps domain errors to status codes
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidConfig),
		errors.Is(err, domain.ErrInvalidRequest),
		errors.Is(err, domain.ErrEmptyCSV):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		log.Printf("[HTTP] %s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
