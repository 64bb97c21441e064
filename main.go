package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v2"

	"cardioml/db"
	chttp "cardioml/http"
	"cardioml/logging"
	"cardioml/ml"
	"cardioml/monitoring"
)

type Config struct {
	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`
	Http struct {
		Port           int      `yaml:"port"`
		TimeoutSeconds int      `yaml:"timeout_seconds"`
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"http"`
	Models struct {
		Dir       string `yaml:"dir"`
		CacheSize int    `yaml:"cache_size"`
		Watch     bool   `yaml:"watch"`
	} `yaml:"models"`
	Log logging.Config `yaml:"log"`
}

func main() {
	// 1. Load config
	config, err := loadConfig("config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 2. Initialize logging
	logger, err := logging.New(config.Log)
	if err != nil {
		log.Fatalf("Failed to initialize logging: %v", err)
	}
	defer logger.Sync()

	// 3. Initialize database
	if err := db.InitDB(config.Database.Path); err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	logger.Info("database initialized", zap.String("path", config.Database.Path))

	// 4. Open the model registry
	registry, err := ml.OpenRegistry(config.Models.Dir, config.Models.CacheSize, logger)
	if err != nil {
		logger.Fatal("failed to open model registry", zap.Error(err))
	}
	defer registry.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if config.Models.Watch {
		if err := registry.Watch(ctx); err != nil {
			logger.Warn("model directory watch disabled", zap.Error(err))
		}
	}

	// 5. Start the monitoring hub and metrics
	hub := monitoring.NewHub(logger)
	go hub.Run()
	defer hub.Stop()
	metrics := monitoring.NewMetrics()

	// 6. Wire and start the HTTP server
	chttp.SetModelProvider(registry)
	chttp.SetMetrics(metrics)
	chttp.SetEventHub(hub)
	chttp.SetModelDir(config.Models.Dir)

	server := chttp.NewServer(chttp.ServerConfig{
		Port:           config.Http.Port,
		Timeout:        time.Duration(config.Http.TimeoutSeconds) * time.Second,
		AllowedOrigins: config.Http.AllowedOrigins,
	}, logger)
	go func() {
		if err := server.Start(); err != nil {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()
	hub.Publish(monitoring.EventSystemStatus, map[string]interface{}{
		"status": "started",
		"models": registry.Names(),
	})

	// 7. Handle graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")
	hub.Publish(monitoring.EventSystemStatus, map[string]string{"status": "stopping"})

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Stop(shutdownCtx); err != nil {
		logger.Warn("server forced to shutdown", zap.Error(err))
	}
}

func loadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var config Config
	if err := yaml.NewDecoder(file).Decode(&config); err != nil {
		return nil, err
	}
	return &config, nil
}
