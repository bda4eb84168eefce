package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SpikeIreland/clarence-sub004/backend/config"
	"github.com/SpikeIreland/clarence-sub004/backend/handler"
	"github.com/SpikeIreland/clarence-sub004/backend/middleware"
	"github.com/SpikeIreland/clarence-sub004/backend/pkg/logger"
	"github.com/SpikeIreland/clarence-sub004/backend/service"
	"github.com/SpikeIreland/clarence-sub004/backend/wizard"
	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	cfg, err := config.Load("config.yaml")
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize logger
	logger.Init(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})

	slog.Info("configuration loaded successfully")

	// Initialize services
	var archiver service.UploadArchiver
	if cfg.Minio.Endpoint != "" {
		minioSvc, err := service.NewMinioService(&cfg.Minio)
		if err != nil {
			slog.Error("failed to initialize MINIO service", "error", err)
			os.Exit(1)
		}
		if err := minioSvc.EnsureBucket(context.Background()); err != nil {
			slog.Error("failed to ensure MINIO bucket", "error", err)
			os.Exit(1)
		}
		archiver = minioSvc
	} else {
		slog.Warn("no MINIO endpoint configured, uploads will not be archived")
	}

	workflowClient := service.NewWorkflowClient(&cfg.Workflow)
	uploads := service.NewUploadPipeline(&cfg.Upload, workflowClient, archiver)
	registry := wizard.NewRegistry()

	// Initialize session store with config
	service.InitSessionStore(&cfg.Store)

	// Initialize handlers
	authHandler := handler.NewAuthHandler(cfg)
	sessionHandler := handler.NewSessionHandler(cfg, registry, workflowClient, uploads)
	notifyHandler := handler.NewNotifyHandler(registry)

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New() // Use New() instead of Default() to avoid default middleware

	// Add custom middleware
	router.Use(middleware.RequestID())                 // Request ID for tracing
	router.Use(middleware.Recovery())                  // Panic recovery
	router.Use(middleware.RequestLogger())             // Access logging
	router.Use(corsMiddleware())                       // CORS
	router.Use(middleware.RateLimit(100, time.Minute)) // Rate limiting: 100 requests per minute

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().Format(time.RFC3339),
		})
	})

	// Public routes
	api := router.Group("/api")
	{
		api.POST("/auth/login", authHandler.Login)
	}

	// Protected routes
	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(&cfg.Auth))
	{
		protected.GET("/auth/me", authHandler.GetCurrentUser)

		protected.POST("/wizard/sessions", sessionHandler.Create)
		protected.GET("/wizard/sessions/:id", sessionHandler.Get)
		protected.DELETE("/wizard/sessions/:id", sessionHandler.Delete)
		protected.POST("/wizard/sessions/:id/mediation", sessionHandler.SelectMediation)
		protected.POST("/wizard/sessions/:id/contract-type", sessionHandler.SelectContractType)
		protected.POST("/wizard/sessions/:id/quick-intake", sessionHandler.SubmitQuickIntake)
		protected.POST("/wizard/sessions/:id/source", sessionHandler.SelectSource)
		protected.GET("/wizard/sessions/:id/templates", sessionHandler.Templates)
		protected.POST("/wizard/sessions/:id/template", sessionHandler.SelectTemplate)
		protected.POST("/wizard/sessions/:id/upload", sessionHandler.Upload)
		protected.GET("/wizard/sessions/:id/upload/status", sessionHandler.UploadStatus)
		protected.POST("/wizard/sessions/:id/upload/confirm", sessionHandler.ConfirmUpload)
		protected.POST("/wizard/sessions/:id/confirm", sessionHandler.Confirm)
		protected.POST("/wizard/sessions/:id/transition/continue", sessionHandler.ContinueTransition)
		protected.POST("/wizard/sessions/:id/back", sessionHandler.Back)

		protected.POST("/wizard/sessions/:id/events", notifyHandler.Event)
		protected.GET("/wizard/sessions/:id/notifications", notifyHandler.List)
		protected.POST("/wizard/sessions/:id/notifications/:toastId/dismiss", notifyHandler.Dismiss)
		protected.POST("/wizard/sessions/:id/focus", notifyHandler.Focus)
	}

	// Create server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		slog.Info("server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down server...")

	// Cancel every live wizard timer and poll loop before exiting
	registry.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server exited gracefully")
}

// corsMiddleware handles CORS headers
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "X-Request-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
