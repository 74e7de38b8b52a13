package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/viper"

	"github.com/veilhq/veil/internal/chunk"
	"github.com/veilhq/veil/internal/config"
	"github.com/veilhq/veil/internal/consistency"
	"github.com/veilhq/veil/internal/detect"
	"github.com/veilhq/veil/internal/engine"
	"github.com/veilhq/veil/internal/integrity"
	"github.com/veilhq/veil/internal/mask"
	"github.com/veilhq/veil/internal/oracle"
	"github.com/veilhq/veil/internal/rag"
	"github.com/veilhq/veil/internal/storage"
	"github.com/veilhq/veil/internal/validate"
)

const defaultPatternDB = "$HOME/.local/share/veil/patterns.db"

// buildConfig layers viper values over the built-in defaults and validates
// the result.
func buildConfig() (config.Config, error) {
	cfg := config.Default()

	if v := viper.GetString("oracle.provider"); v != "" {
		cfg.Oracle.Provider = v
	}
	if v := viper.GetString("oracle.host"); v != "" {
		cfg.Oracle.Host = v
	}
	if v := viper.GetString("oracle.model"); v != "" {
		cfg.Oracle.Model = v
	}
	if v := viper.GetString("oracle.api_key"); v != "" {
		cfg.Oracle.APIKey = v
	}
	if viper.IsSet("oracle.timeout_seconds") {
		cfg.Oracle.Timeout = time.Duration(viper.GetInt("oracle.timeout_seconds")) * time.Second
	}
	if viper.IsSet("oracle.rate_limit") {
		cfg.Oracle.RateLimit = viper.GetInt("oracle.rate_limit")
	}
	if viper.IsSet("oracle.temperature") {
		cfg.Oracle.Temperature = viper.GetFloat64("oracle.temperature")
	}
	if viper.IsSet("oracle.max_tokens") {
		cfg.Oracle.MaxTokens = viper.GetInt("oracle.max_tokens")
	}

	if viper.IsSet("detection.confidence_floor") {
		cfg.ConfidenceFloor = viper.GetFloat64("detection.confidence_floor")
	}
	if viper.IsSet("detection.band_low") {
		cfg.BandLow = viper.GetFloat64("detection.band_low")
	}
	if viper.IsSet("detection.band_high") {
		cfg.BandHigh = viper.GetFloat64("detection.band_high")
	}

	if viper.IsSet("masking.reveal_suffix") {
		cfg.RevealSuffix = viper.GetInt("masking.reveal_suffix")
	}

	if viper.IsSet("chunking.size") {
		cfg.ChunkSize = viper.GetInt("chunking.size")
	}
	if viper.IsSet("chunking.overlap") {
		cfg.ChunkOverlap = viper.GetInt("chunking.overlap")
	}

	if viper.IsSet("rag.enabled") {
		cfg.RAGEnabled = viper.GetBool("rag.enabled")
	}
	if viper.IsSet("rag.top_k") {
		cfg.TopK = viper.GetInt("rag.top_k")
	}

	cfg.PatternDBPath = viper.GetString("database.path")
	if cfg.PatternDBPath == "" {
		cfg.PatternDBPath = defaultPatternDB
	}
	cfg.PatternDBPath = config.ExpandPath(cfg.PatternDBPath)

	if viper.IsSet("workers") {
		cfg.Workers = viper.GetInt("workers")
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// initPatternStore opens (and migrates) the pattern database.
func initPatternStore(cfg config.Config) (*storage.SQLitePatternStore, error) {
	store, err := storage.NewSQLitePatternStore(cfg.PatternDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open pattern store: %w", err)
	}
	return store, nil
}

// buildEngine wires the full pipeline from configuration. The returned
// cleanup closes the pattern store when one was opened.
func buildEngine(cfg config.Config, logger *slog.Logger) (*engine.Engine, func(), error) {
	client, err := oracle.NewClient(oracle.BackendConfig{
		Provider:    cfg.Oracle.Provider,
		Host:        cfg.Oracle.Host,
		Model:       cfg.Oracle.Model,
		APIKey:      cfg.Oracle.APIKey,
		Timeout:     cfg.Oracle.Timeout,
		Temperature: cfg.Oracle.Temperature,
		MaxTokens:   cfg.Oracle.MaxTokens,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create oracle client: %w", err)
	}

	cleanup := func() {}
	var resolver detect.ContextProvider
	if cfg.RAGEnabled {
		store, err := initPatternStore(cfg)
		if err != nil {
			return nil, nil, err
		}
		cleanup = func() {
			if err := store.Close(); err != nil {
				logger.Warn("failed to close pattern store", "error", err)
			}
		}
		resolver = rag.New(store, cfg.TopK, logger)
	}

	limiter := oracle.NewRateLimiter(cfg.Oracle.RateLimit)
	extractor := detect.NewExtractor(client, limiter, cfg.Retry, logger)
	classifier := detect.NewClassifier(client, validate.New(), resolver, limiter, cfg, logger)
	masker := mask.New(cfg.Reveal)
	cm := consistency.New(masker, logger)
	verifier := integrity.New(logger)
	splitter := chunk.New(cfg.ChunkSize, cfg.ChunkOverlap, logger)

	eng := engine.New(splitter, extractor, classifier, cm, verifier, cfg.Workers, logger)
	return eng, cleanup, nil
}
