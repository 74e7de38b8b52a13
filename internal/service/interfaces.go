// Package service defines the interfaces shared across pipeline components.
package service

import (
	"context"
	"time"

	"github.com/veilhq/veil/internal/model"
)

// PatternStore is the retrieval interface to the similarity-search knowledge
// base consulted by the ambiguity resolver. The underlying engine is an
// external collaborator; this pipeline only reads from it, apart from the
// explicit seeding commands.
type PatternStore interface {
	// Search returns the top-k patterns most similar to the query,
	// highest score first.
	Search(ctx context.Context, query string, topK int) ([]model.ScoredPattern, error)
	// Add inserts a pattern into the knowledge base.
	Add(ctx context.Context, pattern model.RAGPattern) error
	// Count returns the number of stored patterns.
	Count(ctx context.Context) (int, error)
	Close() error
}

// RetryOptions configures retry behavior for external calls.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
