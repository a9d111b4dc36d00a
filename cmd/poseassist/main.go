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
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/singamnaresh/Meditaton-exercise-chatbot/internal/config"
	"github.com/singamnaresh/Meditaton-exercise-chatbot/internal/db"
	dbRedis "github.com/singamnaresh/Meditaton-exercise-chatbot/internal/db/redis"
	"github.com/singamnaresh/Meditaton-exercise-chatbot/internal/domain"
	logpkg "github.com/singamnaresh/Meditaton-exercise-chatbot/internal/logger"
	"github.com/singamnaresh/Meditaton-exercise-chatbot/internal/metrics"
	"github.com/singamnaresh/Meditaton-exercise-chatbot/internal/repository/catalog"
	"github.com/singamnaresh/Meditaton-exercise-chatbot/internal/repository/feedback"
	chiTransport "github.com/singamnaresh/Meditaton-exercise-chatbot/internal/transport/chi"
	"github.com/singamnaresh/Meditaton-exercise-chatbot/internal/transport/gemini"
	"github.com/singamnaresh/Meditaton-exercise-chatbot/internal/transport/landmarker"
	"github.com/singamnaresh/Meditaton-exercise-chatbot/internal/transport/openrouter"
	analyzeuc "github.com/singamnaresh/Meditaton-exercise-chatbot/internal/usecase/analyze"
	chatuc "github.com/singamnaresh/Meditaton-exercise-chatbot/internal/usecase/chat"
	healthuc "github.com/singamnaresh/Meditaton-exercise-chatbot/internal/usecase/health"
	"github.com/singamnaresh/Meditaton-exercise-chatbot/internal/version"
)

func main() {
	// Secrets such as API keys arrive through the environment; a local
	// .env file is a development convenience, not a requirement.
	_ = godotenv.Load()

	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting poseassist API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("store_driver", cfg.Store.Driver),
		zap.String("extractor_driver", cfg.Extractor.Driver),
	)

	ctx := context.Background()

	// Optional Redis store: feedback persistence plus landmark vector cache.
	var store db.Store
	if cfg.Store.Driver == "redis" {
		store, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Store.Addrs,
			Password: cfg.Store.Password,
		})
		if err != nil {
			logger.Fatal("Failed to create store", zap.Error(err))
		}
		defer store.Close()

		if err := store.WaitForReady(ctx, time.Duration(cfg.Store.ReadinessTimeout)*time.Second); err != nil {
			logger.Fatal("Store not ready", zap.Error(err))
		}
		logger.Info("Connected to store")
	}

	// Register domain metrics explicitly (no init())
	metrics.RegisterDomainMetrics()

	extractor, closeExtractor := buildExtractor(ctx, cfg, logger)
	defer closeExtractor()

	// Vector cache avoids re-extracting landmarks for reference images
	// that have not changed between restarts.
	var vectorCache *catalog.VectorCache
	if store != nil {
		vectorCache = catalog.NewVectorCache(store, logger)
	}

	poseCatalog := catalog.New(catalog.Config{
		Dir:            cfg.Poses.Dir,
		MaxReferences:  cfg.Poses.MaxReferences,
		ExtractTimeout: time.Duration(cfg.Extractor.TimeoutSec) * time.Second,
	}, extractor, vectorCache, logger)

	if err := poseCatalog.Load(ctx); err != nil {
		// An empty catalog degrades pose analysis but chat still works.
		logger.Warn("Reference catalog unavailable", zap.Error(err))
	} else {
		logger.Info("Reference catalog loaded", zap.Int("poses", poseCatalog.Size()))
	}

	var feedbackStore analyzeuc.FeedbackWriter
	var feedbackReader chatuc.FeedbackReader
	if store != nil {
		redisFeedback := feedback.NewRedisStore(store, time.Duration(cfg.Session.TTLHours)*time.Hour)
		feedbackStore, feedbackReader = redisFeedback, redisFeedback
	} else {
		memFeedback := feedback.NewMemoryStore()
		feedbackStore, feedbackReader = memFeedback, memFeedback
	}

	chatUpstream := openrouter.NewClient(&openrouter.Config{
		APIKey:  cfg.Chat.APIKey,
		BaseURL: cfg.Chat.BaseURL,
		Model:   cfg.Chat.Model,
		Logger:  logger,
	})

	var filter *chatuc.TopicFilter
	if cfg.Chat.TopicFilter.Enabled {
		filter = chatuc.NewTopicFilter(cfg.Chat.TopicFilter.Keywords)
	}

	chatSvc := chatuc.New(chatUpstream, feedbackReader, filter,
		time.Duration(cfg.Chat.TimeoutSec)*time.Second)
	analyzeSvc := analyzeuc.New(extractor, poseCatalog, feedbackStore,
		cfg.Poses.Threshold, time.Duration(cfg.Extractor.TimeoutSec)*time.Second)
	healthSvc := healthuc.New(storePinger(store), extractorChecker(extractor), poseCatalog)

	server := chiTransport.NewServer(chatSvc, analyzeSvc, healthSvc,
		cfg.Poses.Dir, cfg.Poses.PublicPath, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(cors.AllowAll().Handler)
	r.Use(metrics.Middleware())
	r.Use(chiTransport.SessionMiddleware(cfg.Session.CookieName, cfg.Poses.PublicPath))
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// SIGHUP re-reads the reference pose directory without a restart.
	reload := make(chan os.Signal, 1)
	signal.Notify(reload, syscall.SIGHUP)
	go func() {
		for range reload {
			logger.Info("Reloading reference catalog")
			if err := poseCatalog.Reload(context.Background()); err != nil {
				logger.Error("Catalog reload failed", zap.Error(err))
				continue
			}
			logger.Info("Reference catalog reloaded", zap.Int("poses", poseCatalog.Size()))
		}
	}()

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

// buildExtractor picks the landmark extractor backend. The returned
// close function is a no-op for backends without a client to release.
func buildExtractor(ctx context.Context, cfg config.Config, logger *zap.Logger) (domain.Extractor, func()) {
	switch cfg.Extractor.Driver {
	case "gemini":
		ext, err := gemini.NewExtractor(ctx, &gemini.Config{
			APIKey: cfg.Extractor.Gemini.APIKey,
			Model:  cfg.Extractor.Gemini.Model,
			Logger: logger,
		})
		if err != nil {
			logger.Fatal("Failed to create Gemini extractor", zap.Error(err))
		}
		return ext, func() { _ = ext.Close() }
	case "landmarker":
		return landmarker.NewClient(&landmarker.Config{
			BaseURL: cfg.Extractor.Landmarker.BaseURL,
			Logger:  logger,
		}), func() {}
	default:
		logger.Fatal("Unknown extractor driver", zap.String("driver", cfg.Extractor.Driver))
		return nil, nil
	}
}

// storePinger avoids handing a typed-nil interface to the health
// service when no remote store is configured.
func storePinger(store db.Store) healthuc.StorePinger {
	if store == nil {
		return nil
	}
	return store
}

// extractorChecker exposes the extractor's health probe when the
// backend has one.
func extractorChecker(extractor domain.Extractor) healthuc.ExtractorChecker {
	if hc, ok := extractor.(domain.HealthChecker); ok {
		return hc
	}
	return nil
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

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
