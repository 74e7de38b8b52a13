// Package rag implements retrieval-augmented disambiguation: when a
// candidate's confidence lands in the ambiguous band, similar patterns are
// fetched from the knowledge base and fed back into the second
// classification pass.
package rag

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/veilhq/veil/internal/model"
	"github.com/veilhq/veil/internal/service"
)

// Resolver retrieves similarity context for ambiguous candidates. Retrieval
// failure is never fatal: an empty bundle is returned and the original
// confidence stands.
type Resolver struct {
	store  service.PatternStore
	logger *slog.Logger
	topK   int
}

// New creates a resolver over the given pattern store.
func New(store service.PatternStore, topK int, logger *slog.Logger) *Resolver {
	if topK <= 0 {
		topK = 5
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{store: store, topK: topK, logger: logger}
}

// Resolve builds a retrieval query from the candidate, its structural hint
// and its neighborhood, and returns the top-k similar patterns as a context
// bundle.
func (r *Resolver) Resolve(ctx context.Context, candidate model.CandidateEntity, chunk model.DocumentChunk) (model.ContextBundle, error) {
	query := r.buildQuery(candidate, chunk)
	bundle := model.ContextBundle{Query: query}

	patterns, err := r.store.Search(ctx, query, r.topK)
	if err != nil {
		r.logger.Warn("pattern retrieval failed, continuing without context",
			"candidate", candidate.RawText,
			"error", err)
		return bundle, nil
	}
	if len(patterns) == 0 {
		r.logger.Debug("no similar patterns found", "candidate", candidate.RawText)
		return bundle, nil
	}

	bundle.Patterns = patterns
	r.logger.Debug("retrieved disambiguation context",
		"candidate", candidate.RawText,
		"patterns", len(patterns))
	return bundle, nil
}

// buildQuery combines the candidate text with its surroundings so retrieval
// matches on shape and context, not just the raw value.
func (r *Resolver) buildQuery(candidate model.CandidateEntity, chunk model.DocumentChunk) string {
	neighborhood := neighborhoodText(candidate, chunk, 80)
	parts := []string{candidate.RawText}
	if candidate.TypeGuess != "" {
		parts = append(parts, string(candidate.TypeGuess))
	}
	if chunk.Hint != "" {
		parts = append(parts, string(chunk.Hint))
	}
	if neighborhood != "" {
		parts = append(parts, neighborhood)
	}
	return strings.Join(parts, " ")
}

// neighborhoodText returns up to radius characters around the candidate
// within the chunk window.
func neighborhoodText(candidate model.CandidateEntity, chunk model.DocumentChunk, radius int) string {
	window := chunk.Window()
	local := candidate.Start - chunk.StartOffset + len(chunk.Leading)
	if local < 0 || local >= len(window) {
		return ""
	}
	lo := local - radius
	if lo < 0 {
		lo = 0
	}
	hi := local + (candidate.End - candidate.Start) + radius
	if hi > len(window) {
		hi = len(window)
	}
	return window[lo:hi]
}

// FormatBundle renders a context bundle for inclusion in an oracle prompt.
func FormatBundle(bundle model.ContextBundle) string {
	if bundle.Empty() {
		return ""
	}
	var b strings.Builder
	b.WriteString("Known PII patterns similar to this candidate:\n")
	for _, p := range bundle.Patterns {
		fmt.Fprintf(&b, "- type=%s pattern=%s", p.Type, p.PatternText)
		if p.ExampleText != "" {
			fmt.Fprintf(&b, " example=%s", p.ExampleText)
		}
		b.WriteString("\n")
	}
	return b.String()
}
