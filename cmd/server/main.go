package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/serpprice/backend/config"
	httpDelivery "github.com/serpprice/backend/internal/delivery/http"
	"github.com/serpprice/backend/internal/domain"
	"github.com/serpprice/backend/internal/infrastructure/cache"
	"github.com/serpprice/backend/internal/infrastructure/enrichment"
	"github.com/serpprice/backend/internal/usecase"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Printf("Starting SERP Price Backend v1.0.0")
	log.Printf("Environment: %s", cfg.Server.Environment)
	log.Printf("Port: %s", cfg.Server.Port)
	log.Printf("Cache Type: %s (TTL %s)", cfg.Cache.Type, cfg.Cache.TTL)

	// Initialize infrastructure dependencies
	cacheRepo, closeCache, err := newCache(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize cache: %v", err)
	}
	defer closeCache()

	var enricher domain.EnrichmentClient
	if cfg.Enrichment.Enabled {
		client := enrichment.NewClient(enrichment.Config{
			BaseURL:         cfg.Enrichment.BaseURL,
			APIKey:          cfg.Enrichment.APIKey,
			Provider:        cfg.Enrichment.Provider,
			BatchSize:       cfg.Enrichment.BatchSize,
			RequestsPerHour: cfg.Enrichment.RequestsPerHour,
			Timeout:         cfg.Enrichment.Timeout,
		})

		// Enable debug mode in development environment
		if cfg.Server.Environment == "development" {
			client.SetDebug(true)
			log.Printf("Enrichment client debug mode enabled")
		}
		enricher = client
		log.Printf("Enrichment configured: %s (provider %s, batch %d)",
			cfg.Enrichment.BaseURL, client.Provider(), cfg.Enrichment.BatchSize)
	} else {
		log.Printf("Enrichment disabled, using title extraction only")
	}

	// Initialize usecase layer
	analysisService := usecase.NewAnalysisService(
		cacheRepo,
		enricher,
		usecase.AnalysisServiceConfig{
			CacheTTL:         cfg.Cache.TTL,
			EnableEnrichment: cfg.Enrichment.Enabled,
			Analyzer: usecase.PriceAnalyzerConfig{
				TokenWeights: usecase.TokenWeights{
					Brand:  cfg.Matching.BrandWeight,
					Model:  cfg.Matching.ModelWeight,
					Tokens: cfg.Matching.TokenWeight,
				},
				DistributionBins:   cfg.Matching.DistributionBins,
				EnableDebugLogging: cfg.Matching.EnableDebugLogging,
			},
		},
	)

	log.Printf("Matching: strategy=%s, weights=%.2f/%.2f/%.2f, debug=%v",
		cfg.Matching.Strategy,
		cfg.Matching.BrandWeight,
		cfg.Matching.ModelWeight,
		cfg.Matching.TokenWeight,
		cfg.Matching.EnableDebugLogging)

	// Create HTTP handler with dependencies
	handler := httpDelivery.NewHandler(analysisService, domain.MatchStrategy(cfg.Matching.Strategy))

	// Setup router
	router := httpDelivery.SetupRouter(cfg, handler)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Printf("Server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Printf("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shut down: %v", err)
	}
}

// newCache builds the configured cache and a function releasing it
func newCache(cfg *config.Config) (domain.CacheRepository, func(), error) {
	if cfg.Cache.Type == "redis" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		redisCache, err := cache.NewRedisCache(ctx, cfg.Cache.RedisURL, "")
		if err != nil {
			return nil, nil, err
		}
		return redisCache, func() { _ = redisCache.Close() }, nil
	}

	memoryCache := cache.NewMemoryCacheWithConfig(cache.MemoryCacheConfig{
		MaxEntries: cfg.Cache.MaxEntries,
	})
	return memoryCache, func() { _ = memoryCache.Close() }, nil
}

func init() {
	// Set log flags for better debugging
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.SetOutput(os.Stdout)
}
