package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v2"

	"pcodrisk/db"
	qhttp "pcodrisk/http"
	"pcodrisk/logging"
	"pcodrisk/ml"
	"pcodrisk/monitoring"
	"pcodrisk/schema"
)

type Config struct {
	Http struct {
		Port           int      `yaml:"port"`
		TimeoutSeconds int      `yaml:"timeout_seconds"`
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"http"`
	Artifacts struct {
		ModelFamily  string `yaml:"model_family"`
		Model        string `yaml:"model"`
		Preprocessor string `yaml:"preprocessor"`
		Schema       string `yaml:"schema"`
		Metrics      string `yaml:"metrics"`
	} `yaml:"artifacts"`
	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`
	Cache struct {
		Size       int `yaml:"size"`
		TTLSeconds int `yaml:"ttl_seconds"`
	} `yaml:"cache"`
	Log logging.Config `yaml:"log"`
}

func main() {
	config, err := loadConfig("config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.Init(config.Log)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// Fitted artifacts load once; any failure is fatal before serving.
	featureSchema, err := schema.Load(config.Artifacts.Schema)
	if err != nil {
		zap.S().Fatalw("schema load failed", "path", config.Artifacts.Schema, "error", err)
	}
	preprocessor, err := ml.LoadPreprocessor(config.Artifacts.Preprocessor)
	if err != nil {
		zap.S().Fatalw("preprocessor load failed", "path", config.Artifacts.Preprocessor, "error", err)
	}
	family := config.Artifacts.ModelFamily
	if family == "" {
		family = "logistic"
	}
	model, err := ml.LoadClassifier(family, config.Artifacts.Model)
	if err != nil {
		zap.S().Fatalw("classifier load failed", "path", config.Artifacts.Model, "error", err)
	}

	pipeline, err := ml.NewPipeline(featureSchema, preprocessor, model,
		config.Cache.Size, time.Duration(config.Cache.TTLSeconds)*time.Second)
	if err != nil {
		zap.S().Fatalw("artifact contract check failed", "error", err)
	}
	zap.S().Infow("artifacts loaded",
		"model_family", family,
		"features", len(featureSchema.FeatureOrder),
		"vector_width", preprocessor.Width(),
	)

	logPredictions := config.Database.Path != ""
	if logPredictions {
		if err := db.InitDB(config.Database.Path); err != nil {
			zap.S().Fatalw("database init failed", "path", config.Database.Path, "error", err)
		}
		defer db.Close()
	}

	metricsStore := monitoring.NewMetricsStore(config.Artifacts.Metrics)
	if err := metricsStore.Watch(); err != nil {
		zap.S().Warnw("metrics watcher unavailable", "error", err)
	}
	defer metricsStore.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := monitoring.NewHub()
	go hub.Run(ctx)

	serverConfig := qhttp.DefaultServerConfig()
	if config.Http.Port > 0 {
		serverConfig.Port = config.Http.Port
	}
	if config.Http.TimeoutSeconds > 0 {
		serverConfig.Timeout = time.Duration(config.Http.TimeoutSeconds) * time.Second
	}
	if len(config.Http.AllowedOrigins) > 0 {
		serverConfig.AllowedOrigins = config.Http.AllowedOrigins
	}

	server := qhttp.NewServer(serverConfig, &qhttp.API{
		Pipeline:       pipeline,
		Metrics:        metricsStore,
		Hub:            hub,
		LogPredictions: logPredictions,
	})
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			zap.S().Fatalw("HTTP server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zap.S().Info("shutting down")

	if err := server.Stop(); err != nil {
		zap.S().Warnw("server forced to shutdown", "error", err)
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
