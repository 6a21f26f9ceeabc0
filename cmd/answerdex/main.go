package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kailas-cloud/answerdex/internal/config"
	dbRedis "github.com/kailas-cloud/answerdex/internal/db/redis"
	"github.com/kailas-cloud/answerdex/internal/domain"
	logpkg "github.com/kailas-cloud/answerdex/internal/logger"
	"github.com/kailas-cloud/answerdex/internal/metrics"
	guardrepo "github.com/kailas-cloud/answerdex/internal/repository/guard"
	recordrepo "github.com/kailas-cloud/answerdex/internal/repository/record"
	searchrepo "github.com/kailas-cloud/answerdex/internal/repository/search"
	chiTransport "github.com/kailas-cloud/answerdex/internal/transport/chi"
	openaiTransport "github.com/kailas-cloud/answerdex/internal/transport/openai"
	answeruc "github.com/kailas-cloud/answerdex/internal/usecase/answer"
	guarduc "github.com/kailas-cloud/answerdex/internal/usecase/guard"
	healthuc "github.com/kailas-cloud/answerdex/internal/usecase/health"
	indexeruc "github.com/kailas-cloud/answerdex/internal/usecase/indexer"
	retrievaluc "github.com/kailas-cloud/answerdex/internal/usecase/retrieval"
	"github.com/kailas-cloud/answerdex/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting answerdex API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
		zap.Bool("assistant_enabled", cfg.Assistant.Enabled),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register upstream model metrics explicitly (no init())
	metrics.RegisterLLMMetrics()

	// Repositories
	recordRepo := recordrepo.New(store)
	searchRepo := searchrepo.New(store)
	guardStore := guardrepo.New(store)

	if err := recordRepo.EnsureIndex(ctx, recordrepo.IndexParams{
		Dimensions:  cfg.Embedding.Dimensions,
		HNSWM:       cfg.Index.HNSWM,
		EFConstruct: cfg.Index.HNSWEFConstruct,
		LabelWeight: cfg.Index.LabelWeight,
		TextWeight:  cfg.Index.TextWeight,
	}); err != nil {
		logger.Fatal("Failed to ensure search index", zap.Error(err))
	}
	logger.Info("Search index ready", zap.String("index", recordrepo.IndexName))

	// Upstream model clients
	embedder := openaiTransport.NewEmbedder(&openaiTransport.EmbedderConfig{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		User:       cfg.Embedding.User,
		Provider:   cfg.Embedding.Provider,
		Logger:     logger,
	})
	generator := openaiTransport.NewGenerator(&openaiTransport.GeneratorConfig{
		APIKey:              cfg.Answer.APIKey,
		BaseURL:             cfg.Answer.BaseURL,
		Model:               cfg.Answer.Model,
		Temperature:         cfg.Answer.Temperature,
		MaxTokens:           cfg.Answer.MaxTokens,
		Timeout:             time.Duration(cfg.Answer.TimeoutSec) * time.Second,
		User:                cfg.Answer.User,
		Provider:            cfg.Answer.Provider,
		Logger:              logger,
		BreakerMinRequests:  cfg.Answer.Breaker.MinRequests,
		BreakerFailureRatio: cfg.Answer.Breaker.FailureRatio,
		BreakerOpenTimeout:  time.Duration(cfg.Answer.Breaker.OpenTimeoutSec) * time.Second,
	})
	logger.Info("Upstream model clients created",
		zap.String("embedding_model", cfg.Embedding.Model),
		zap.String("answer_model", cfg.Answer.Model),
	)

	// Use case services
	guardSvc := guarduc.New(cfg.Assistant.Enabled, guardStore, logger)
	indexerSvc := indexeruc.New(recordRepo, embedder, logger)
	retrievalSvc := retrievaluc.New(
		searchRepo, recordRepo, embedder, candidateURL,
		retrievalConfig(&cfg.Retrieval), logger,
	)
	answerSvc := answeruc.New(answeruc.Config{
		Enabled:                cfg.Assistant.Enabled,
		ThinEvidenceFactor:     cfg.Answer.ThinEvidenceFactor,
		ThinEvidenceMax:        cfg.Answer.ThinEvidenceMax,
		SemanticOnlyFactor:     cfg.Answer.SemanticOnlyFactor,
		LowConfidenceThreshold: cfg.Answer.LowConfidenceThreshold,
		CostPerAnswerCents:     cfg.Answer.CostPerAnswerCents,
	}, guardSvc, retrievalSvc, generator, logger)
	healthSvc := healthuc.New(store, embedder, generator)

	server := chiTransport.NewServer(answerSvc, indexerSvc, guardSvc, healthSvc, logger)
	limiter := chiTransport.NewTenantRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiTransport.RequestIDMiddleware)
	r.Use(chiTransport.WideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Register(r, limiter.Middleware)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

func retrievalConfig(rc *config.RetrievalConfig) retrievaluc.Config {
	limits := make(map[domain.Category]int, len(rc.LexicalLimits))
	for name, limit := range rc.LexicalLimits {
		if cat, ok := domain.ParseCategory(name); ok {
			limits[cat] = limit
		}
	}
	return retrievaluc.Config{
		LexicalLimits:       limits,
		SemanticPerType:     rc.SemanticPerType,
		AbsoluteFloor:       rc.AbsoluteFloor,
		RelativeFloorOffset: rc.RelativeFloorOffset,
		SnippetMaxChars:     rc.SnippetMaxChars,
	}
}

// candidateURL builds app-relative navigation links. Engagements live under
// their owning contact.
func candidateURL(candidateType, objectID, contactID string) string {
	switch candidateType {
	case "contact":
		return "/contacts/" + objectID
	case "engagement":
		if contactID == "" {
			return ""
		}
		return "/contacts/" + contactID + "/engagements/" + objectID
	case "transaction":
		return "/transactions/" + objectID
	case "professional":
		return "/professionals/" + objectID
	default:
		return ""
	}
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
