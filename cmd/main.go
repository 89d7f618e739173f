// Idea Forge server: turns a product idea into a set of expert artifacts
// through a sequential LLM pipeline, streaming progress over WebSocket.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"idea-forge/internal/ai"
	"idea-forge/internal/cache"
	"idea-forge/internal/config"
	"idea-forge/internal/database"
	"idea-forge/internal/forge"
	"idea-forge/internal/handlers"
	"idea-forge/internal/logging"
	"idea-forge/internal/middleware"
	"idea-forge/internal/session"
	"idea-forge/internal/websocket"
)

func main() {
	if err := godotenv.Load(); err != nil {
		// Fine in production; env comes from the platform there.
		logging.S().Info(".env file not found, using system environment")
	}

	logging.Init()
	defer logging.Sync()
	log := logging.L()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatal("failed to initialize database", zap.Error(err))
	}

	sessionCache := cache.New(cfg.RedisURL, 15*time.Minute)
	defer sessionCache.Close()

	store := session.NewStore(db, sessionCache, nil)
	hub := websocket.NewHub(store)
	store.SetBroadcaster(hub)

	gemini := ai.NewGeminiClient(cfg.GeminiAPIKey)
	engine := forge.NewEngine(gemini, forge.Options{
		FlashModel: cfg.FlashModel,
		ProModel:   cfg.ProModel,
		Retry: ai.RetryConfig{
			MaxAttempts:   cfg.RetryMaxAttempts,
			BaseDelay:     cfg.RetryBaseDelay,
			RateLimitBase: cfg.RetryRateLimitBase,
		},
		Limiter: rate.NewLimiter(rate.Every(cfg.PacingInterval), 1),
	})

	handler := handlers.NewHandler(store, engine, cfg)
	router := setupRouter(cfg, handler, hub)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info("idea-forge server starting", zap.String("port", cfg.Port), zap.String("environment", cfg.Environment))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("forced shutdown", zap.Error(err))
	}
	log.Info("server stopped")
}

func setupRouter(cfg *config.Config, handler *handlers.Handler, hub *websocket.Hub) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(
		middleware.Recovery(),
		middleware.RequestLogger(),
		middleware.Metrics(),
		middleware.CORS(),
	)

	router.GET("/health", handler.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/ws/sessions/:id", hub.HandleWebSocket)

	api := router.Group("/api")
	api.Use(middleware.RateLimit(middleware.NewIPRateLimiter(rate.Limit(10), 30)))
	{
		api.POST("/sessions", handler.CreateSession)
		api.GET("/sessions/:id", handler.GetSession)
		api.POST("/sessions/:id/clarify", handler.Clarify)
		api.POST("/sessions/:id/answers", handler.SubmitAnswers)
		api.POST("/sessions/:id/forge", handler.StartForge)
		api.POST("/sessions/:id/cancel", handler.CancelForge)
		api.POST("/sessions/:id/reset", handler.ResetSession)
		api.POST("/sessions/:id/artifacts/:artifactID/refine", handler.RefineArtifact)
		api.GET("/sessions/:id/export", handler.ExportSession)
	}

	return router
}
