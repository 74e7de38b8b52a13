package oracle

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrTransient marks failures worth retrying: timeouts, connection errors,
// overloaded-server statuses.
var ErrTransient = errors.New("transient oracle failure")

// BackendConfig holds provider settings for the oracle client.
type BackendConfig struct {
	Provider    string
	Host        string
	Model       string
	APIKey      string
	Timeout     time.Duration
	Temperature float64
	MaxTokens   int
}

// NewClient creates an oracle client for the configured provider.
func NewClient(cfg BackendConfig) (Client, error) {
	var backend generator
	var err error

	switch strings.ToLower(cfg.Provider) {
	case "ollama":
		backend, err = newOllamaBackend(cfg)
	case "openai":
		backend, err = newOpenAIBackend(cfg)
	default:
		return nil, fmt.Errorf("unsupported oracle provider: %s", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create oracle client: %w", err)
	}

	return &client{backend: backend}, nil
}
