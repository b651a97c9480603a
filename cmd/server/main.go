package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Skufu/microbiome-stage/internal/artifacts"
	"github.com/Skufu/microbiome-stage/internal/config"
	"github.com/Skufu/microbiome-stage/internal/logger"
	"github.com/Skufu/microbiome-stage/internal/prediction"
	"github.com/Skufu/microbiome-stage/internal/web"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	gin.SetMode(cfg.GinMode)

	zl, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	bundle, err := artifacts.Load(cfg.Artifacts, cfg.Inference, zl)
	if err != nil {
		zl.Fatal("artifact load failed", zap.Error(err))
	}

	router := setupRouter(bundle, zl)
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second + cfg.Inference.Timeout,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zl.Fatal("server error", zap.Error(err))
		}
	}()

	zl.Info("server listening", zap.String("addr", server.Addr))
	waitForShutdown(server, zl)
}

func setupRouter(bundle *artifacts.Bundle, zl *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(
		web.RequestID(),
		web.Logger(zl),
		gin.Recovery(),
		limitBodySize(1<<20), // 1MB max body
		cors.New(cors.Config{
			AllowOrigins: []string{"*"},
			AllowMethods: []string{"GET", "POST", "OPTIONS"},
			AllowHeaders: []string{"Origin", "Content-Type"},
			MaxAge:       12 * time.Hour,
		}),
	)
	router.SetHTMLTemplate(web.Templates())

	handler := web.NewHandler(prediction.NewService(bundle, zl), zl)
	router.GET("/", handler.Form)
	router.POST("/", handler.Predict)

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/readyz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":   "ok",
			"backend":  bundle.Backend,
			"features": len(bundle.Schema),
		})
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return router
}

func waitForShutdown(server *http.Server, zl *zap.Logger) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	zl.Info("shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		zl.Error("graceful shutdown failed", zap.Error(err))
	}
}

func limitBodySize(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
