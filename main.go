package main

import (
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"gopkg.in/yaml.v2"

	"heartserve/db"
	qhttp "heartserve/http"
	"heartserve/logging"
	"heartserve/ml"
	"heartserve/monitoring"
)

type Config struct {
	Service struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"service"`
	Http struct {
		Port           int      `yaml:"port"`
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"http"`
	Model struct {
		Path      string `yaml:"path"`
		Watch     bool   `yaml:"watch"`
		CacheSize int    `yaml:"cache_size"`
	} `yaml:"model"`
	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`
	Log struct {
		Level      string `yaml:"level"`
		File       string `yaml:"file"`
		MaxSizeMB  int    `yaml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups"`
	} `yaml:"log"`
	Monitoring struct {
		Metrics   bool `yaml:"metrics"`
		Websocket bool `yaml:"websocket"`
	} `yaml:"monitoring"`
}

func main() {
	config, err := loadConfig("config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(logging.Config{
		Level:      config.Log.Level,
		File:       config.Log.File,
		MaxSizeMB:  config.Log.MaxSizeMB,
		MaxBackups: config.Log.MaxBackups,
	})
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	predictor := ml.NewPredictor()
	if config.Model.CacheSize > 0 {
		cache, err := ml.NewPredictionCache(config.Model.CacheSize)
		if err != nil {
			logger.Fatal("failed to build prediction cache", zap.Error(err))
		}
		predictor.SetCache(cache)
	}

	// A missing artifact is not fatal: /health reports model_loaded=false
	// and /predict fails closed until the watcher picks one up.
	if artifact, err := ml.LoadArtifact(config.Model.Path); err != nil {
		logger.Error("model artifact not loaded", zap.String("path", config.Model.Path), zap.Error(err))
	} else if err := predictor.SetArtifact(artifact); err != nil {
		logger.Error("model artifact rejected", zap.Error(err))
	} else {
		logger.Info("model loaded",
			zap.String("path", config.Model.Path),
			zap.String("version", artifact.Version),
			zap.String("model_type", artifact.ModelType))
	}

	var watcher *ml.ArtifactWatcher
	if config.Model.Watch {
		watcher, err = ml.WatchArtifact(config.Model.Path, predictor, logger)
		if err != nil {
			logger.Warn("artifact watcher disabled", zap.Error(err))
		}
	}

	var store *db.Store
	if config.Database.Path != "" {
		store, err = db.Open(config.Database.Path)
		if err != nil {
			logger.Fatal("failed to open database", zap.Error(err))
		}
		defer store.Close()
		logger.Info("database initialized", zap.String("path", config.Database.Path))
	}

	var metrics *monitoring.PredictionMetrics
	if config.Monitoring.Metrics {
		metrics = monitoring.NewPredictionMetrics()
	}

	var hub *monitoring.Hub
	if config.Monitoring.Websocket {
		hub = monitoring.NewHub(logger)
		go hub.Run()
	}

	handlersCfg := qhttp.Config{
		Service: config.Service.Name,
		Version: config.Service.Version,
		Metrics: metrics,
		Hub:     hub,
		Logger:  logger,
	}
	if store != nil {
		handlersCfg.Store = store
	}
	handlers := qhttp.NewHandlers(predictor, handlersCfg)

	serverCfg := qhttp.DefaultServerConfig()
	if config.Http.Port != 0 {
		serverCfg.Port = config.Http.Port
	}
	if len(config.Http.AllowedOrigins) > 0 {
		serverCfg.AllowedOrigins = config.Http.AllowedOrigins
	}

	server := qhttp.NewServer(serverCfg, handlers, metrics, logger)
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	if err := server.Stop(); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}
	if watcher != nil {
		watcher.Close()
	}
	if hub != nil {
		hub.Stop()
	}
	logger.Info("exiting")
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
