package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"entsoe-agent/internal/agent"
	"entsoe-agent/internal/api"
	"entsoe-agent/internal/config"
	"entsoe-agent/internal/entsoe"
	"entsoe-agent/internal/logging"
	"entsoe-agent/internal/market"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfgPath := flag.String("config", os.Getenv("ENTSOE_AGENT_CONFIG"), "Optional YAML config path")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Encoding)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	calc, err := cfg.Calculator()
	if err != nil {
		logger.Fatal("Failed to build window calculator", zap.Error(err))
	}

	client := entsoe.NewClient(cfg.Entsoe.Token, cfg.Entsoe.BaseURL, cfg.Entsoe.Timeout, logger)
	if !client.HasToken() {
		logger.Warn("No platform token configured; data requests will fail with missing_credential",
			zap.Strings("env", entsoe.TokenEnvVars))
	}

	svc := market.NewService(client, calc, logger)
	svc.BaseURL = cfg.Entsoe.BaseURL
	registry := agent.NewRegistry(svc)

	gin.SetMode(cfg.Server.Mode)
	router := api.NewRouter(svc, registry, api.RouterConfig{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		TokenSet:       client.HasToken(),
	}, logger)

	srv := &http.Server{
		Addr:        ":" + cfg.Server.Port,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		// Overview and insight requests issue several upstream calls in sequence.
		WriteTimeout: 10 * cfg.Entsoe.Timeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Starting API server", zap.String("port", cfg.Server.Port), zap.String("timezone", calc.Location().String()))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}
	logger.Info("Server exited properly")
}
