package enrichment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/serpprice/backend/internal/domain"
)

const (
	defaultBatchSize       = 15
	defaultRequestsPerHour = 1000
	defaultBurst           = 5
	defaultTimeout         = 60 * time.Second
	maxAttempts            = 3
	baseBackoff            = 500 * time.Millisecond
)

// Config configures the entity-extraction client
type Config struct {
	BaseURL         string
	APIKey          string
	Provider        string
	BatchSize       int
	RequestsPerHour int
	Timeout         time.Duration
}

// Client talks to the entity-extraction service over HTTP JSON
type Client struct {
	httpClient  *http.Client
	apiKey      string
	baseURL     string
	provider    string
	batchSize   int
	rateLimiter *rate.Limiter
	debug       bool
	backoff     func(attempt int) time.Duration
}

// NewClient creates an extraction client with defaults applied
func NewClient(cfg Config) *Client {
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	perHour := cfg.RequestsPerHour
	if perHour <= 0 {
		perHour = defaultRequestsPerHour
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	provider := cfg.Provider
	if provider == "" {
		provider = "http"
	}

	return &Client{
		httpClient:  &http.Client{Timeout: timeout},
		apiKey:      cfg.APIKey,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		provider:    provider,
		batchSize:   batch,
		rateLimiter: rate.NewLimiter(rate.Limit(float64(perHour)/3600), defaultBurst),
		backoff:     exponentialBackoff,
	}
}

// SetDebug toggles per-request logging
func (c *Client) SetDebug(debug bool) {
	c.debug = debug
}

// Provider identifies the extraction backend in cache keys
func (c *Client) Provider() string {
	return c.provider
}

// exponentialBackoff returns 500ms, 1s, 2s for attempts 1, 2, 3
func exponentialBackoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return baseBackoff * time.Duration(1<<(attempt-1))
}

// ExtractFeatures returns one FeatureSet per title, in order. A batch that
// fails after retries contributes empty sets; only cancellation is an error.
func (c *Client) ExtractFeatures(ctx context.Context, titles []string) ([]domain.FeatureSet, error) {
	out := make([]domain.FeatureSet, len(titles))
	failed := 0

	for start := 0; start < len(titles); start += c.batchSize {
		end := min(start+c.batchSize, len(titles))
		batch, err := c.extractBatch(ctx, titles[start:end])
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, fmt.Errorf("%w: %v", domain.ErrEnrichmentFailure, ctxErr)
			}
			log.Printf("[ENRICH] Batch %d-%d failed, leaving features empty: %v", start, end, err)
			failed++
			continue
		}
		copy(out[start:end], batch)
	}

	log.Printf("[ENRICH] Extracted features for %d titles via %s (%d failed batches)", len(titles), c.provider, failed)
	return out, nil
}

// extractBatch posts one batch, retrying transport errors, 429 and 5xx
func (c *Client) extractBatch(ctx context.Context, titles []string) ([]domain.FeatureSet, error) {
	payload, err := json.Marshal(extractRequest{Titles: titles, Fields: requestedFields})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter error: %w", err)
		}

		resp, err := c.doRequest(ctx, payload)
		if err != nil {
			lastErr = err
			if c.debug {
				log.Printf("[ENRICH] Request error (attempt %d): %v", attempt, err)
			}
			if !c.wait(ctx, attempt) {
				return nil, ctx.Err()
			}
			continue
		}

		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			lastErr = fmt.Errorf("%w: status %d", domain.ErrEnrichmentFailure, resp.StatusCode)
			if c.debug {
				log.Printf("[ENRICH] API error (attempt %d) - Status: %d, Body: %s", attempt, resp.StatusCode, string(body))
			}
			if !retryable(resp.StatusCode) {
				return nil, lastErr
			}
			if !c.wait(ctx, attempt) {
				return nil, ctx.Err()
			}
			continue
		}

		var decoded extractResponse
		if err := json.Unmarshal(body, &decoded); err != nil {
			return nil, fmt.Errorf("%w: failed to decode response: %v", domain.ErrEnrichmentFailure, err)
		}
		return mapToFeatureSets(decoded.Items, len(titles)), nil
	}

	return nil, lastErr
}

func (c *Client) doRequest(ctx context.Context, payload []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/extract", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "SerpPrice/1.0")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrEnrichmentFailure, err)
	}
	return resp, nil
}

// wait sleeps for the attempt's backoff; false when ctx ended first
func (c *Client) wait(ctx context.Context, attempt int) bool {
	if attempt >= maxAttempts {
		return true
	}
	timer := time.NewTimer(c.backoff(attempt))
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
}
