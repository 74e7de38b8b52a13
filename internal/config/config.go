// Package config holds the immutable pipeline configuration. A Config is
// built once at startup, validated, and passed down explicitly; no package
// reads global state after that.
package config

import (
	"fmt"
	"time"

	"github.com/veilhq/veil/internal/common"
	"github.com/veilhq/veil/internal/model"
	"github.com/veilhq/veil/internal/service"
)

// Oracle configures the external classification oracle.
type Oracle struct {
	Provider    string
	Host        string
	Model       string
	APIKey      string
	Timeout     time.Duration
	RateLimit   int
	Temperature float64
	MaxTokens   int
}

// Config is the full pipeline configuration surface.
type Config struct {
	Oracle Oracle

	// Confidence policy
	ConfidenceFloor float64
	FloorByType     map[model.PIIType]float64
	BandLow         float64
	BandHigh        float64

	// Masking policy
	RevealSuffix       int
	RevealSuffixByType map[model.PIIType]int

	// Chunking
	ChunkSize    int
	ChunkOverlap int

	// Retrieval
	RAGEnabled    bool
	TopK          int
	PatternDBPath string

	// Concurrency and retries
	Workers int
	Retry   service.RetryOptions
}

// Default returns the configuration used when nothing is overridden.
// Threshold values follow the reference policy: accept at 0.85 and above,
// disambiguate inside [0.5, 0.85).
func Default() Config {
	return Config{
		Oracle: Oracle{
			Provider:    "ollama",
			Host:        "http://localhost:11434",
			Model:       "mistral:7b-instruct",
			Timeout:     60 * time.Second,
			RateLimit:   60,
			Temperature: 0.1,
			MaxTokens:   1024,
		},
		ConfidenceFloor: 0.85,
		BandLow:         0.5,
		BandHigh:        0.85,
		RevealSuffix:    4,
		RevealSuffixByType: map[model.PIIType]int{
			model.TypeRoutingNumber: 0,
			model.TypePhoneNumber:   0,
		},
		ChunkSize:    2000,
		ChunkOverlap: 200,
		RAGEnabled:   true,
		TopK:         5,
		Workers:      4,
		Retry: service.RetryOptions{
			MaxAttempts:  3,
			InitialDelay: time.Second,
			MaxDelay:     30 * time.Second,
			Multiplier:   2.0,
		},
	}
}

// Floor returns the confidence floor for a type, falling back to the global
// floor.
func (c Config) Floor(t model.PIIType) float64 {
	if f, ok := c.FloorByType[t]; ok {
		return f
	}
	return c.ConfidenceFloor
}

// Reveal returns the reveal-suffix length for a numeric identifier type.
func (c Config) Reveal(t model.PIIType) int {
	if !t.NumericIdentifier() {
		return 0
	}
	if n, ok := c.RevealSuffixByType[t]; ok {
		return n
	}
	return c.RevealSuffix
}

// Ambiguous reports whether a confidence value falls inside the
// disambiguation band [BandLow, BandHigh).
func (c Config) Ambiguous(confidence float64) bool {
	return confidence >= c.BandLow && confidence < c.BandHigh
}

// Validate checks the configuration before any document is processed.
// Every violation here is fatal at startup.
func (c Config) Validate() error {
	if c.Oracle.Provider == "" {
		return fmt.Errorf("%w: oracle provider is required", common.ErrMissingConfig)
	}
	if c.ConfidenceFloor < 0 || c.ConfidenceFloor > 1 {
		return fmt.Errorf("%w: confidence floor %f outside [0,1]", common.ErrInvalidConfig, c.ConfidenceFloor)
	}
	for t, f := range c.FloorByType {
		if f < 0 || f > 1 {
			return fmt.Errorf("%w: confidence floor %f for %s outside [0,1]", common.ErrInvalidConfig, f, t)
		}
	}
	if c.BandLow < 0 || c.BandHigh > 1 {
		return fmt.Errorf("%w: ambiguous band [%f, %f) outside [0,1]", common.ErrInvalidConfig, c.BandLow, c.BandHigh)
	}
	if c.BandLow >= c.BandHigh {
		return fmt.Errorf("%w: ambiguous band is inverted: low %f >= high %f", common.ErrInvalidConfig, c.BandLow, c.BandHigh)
	}
	if c.RevealSuffix < 0 {
		return fmt.Errorf("%w: reveal suffix must not be negative", common.ErrInvalidConfig)
	}
	for t, n := range c.RevealSuffixByType {
		if n < 0 {
			return fmt.Errorf("%w: reveal suffix for %s must not be negative", common.ErrInvalidConfig, t)
		}
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk size must be positive", common.ErrInvalidConfig)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("%w: chunk overlap %d must be in [0, chunk size)", common.ErrInvalidConfig, c.ChunkOverlap)
	}
	if c.TopK <= 0 && c.RAGEnabled {
		return fmt.Errorf("%w: top-k must be positive when retrieval is enabled", common.ErrInvalidConfig)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("%w: worker count must be positive", common.ErrInvalidConfig)
	}
	return nil
}
