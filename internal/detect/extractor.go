// Package detect implements the two-stage PII classification: a broad-recall
// candidate extraction pass followed by a type-specific precision pass.
package detect

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/veilhq/veil/internal/common"
	"github.com/veilhq/veil/internal/model"
	"github.com/veilhq/veil/internal/oracle"
	"github.com/veilhq/veil/internal/service"
)

const extractInstruction = `Analyze the following bank statement text and identify ALL instances of PII
(personally identifiable information).

For each PII instance found provide:
1. The type of PII: person_name, address, account_number, routing_number,
   phone_number, email, organization_name, card_number, ssn, date_of_birth,
   ip_address or url
2. The exact text containing the PII
3. The start and end character positions in the text

Return your findings as JSON:
{
  "entities": [
    {"type": "person_name", "text": "John Doe", "start": 10, "end": 18, "confidence": 0.95}
  ]
}

Err on the side of inclusion: report anything that might be PII. Do NOT
report transaction amounts, balances, dates of transactions, or other
financial figures.`

// Extractor is the stage-1 classifier, optimized for recall over precision.
type Extractor struct {
	client    oracle.Client
	limiter   *oracle.RateLimiter
	logger    *slog.Logger
	retryOpts service.RetryOptions
}

// NewExtractor creates a candidate extractor.
func NewExtractor(client oracle.Client, limiter *oracle.RateLimiter, retryOpts service.RetryOptions, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{client: client, limiter: limiter, retryOpts: retryOpts, logger: logger}
}

// Extract queries the oracle for PII-like spans in the chunk and maps them
// to document-global offsets. Malformed spans are skipped; a fully failed
// call (after retries) returns an error the engine degrades to a recall
// warning.
func (e *Extractor) Extract(ctx context.Context, chunk model.DocumentChunk) ([]model.CandidateEntity, error) {
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit error: %w", err)
		}
	}

	window := chunk.Window()
	req := oracle.Request{Instruction: extractInstruction, Text: window}

	var spans []oracle.Span
	err := common.WithRetry(ctx, func() error {
		s, err := e.client.Detect(ctx, req)
		if err != nil {
			e.logger.Warn("candidate extraction attempt failed",
				"chunk_start", chunk.StartOffset,
				"error", err)
			return &common.RetryableError{Err: err, Retryable: common.IsRetryable(err) || isTransient(err)}
		}
		spans = s
		return nil
	}, e.retryOpts)
	if err != nil {
		return nil, fmt.Errorf("candidate extraction failed: %w", err)
	}

	candidates := make([]model.CandidateEntity, 0, len(spans))
	for _, span := range spans {
		cand, ok := e.mapSpan(span, chunk, window)
		if !ok {
			e.logger.Debug("dropping unmappable candidate span",
				"text", span.Text,
				"type", span.Type)
			continue
		}
		candidates = append(candidates, cand)
	}

	e.logger.Debug("extracted candidates",
		"chunk_start", chunk.StartOffset,
		"spans", len(spans),
		"candidates", len(candidates))
	return candidates, nil
}

// mapSpan turns an oracle span into a document-global candidate. Reported
// offsets are treated as a hint only: the span text is re-located in the
// chunk window, since models routinely miscount positions.
func (e *Extractor) mapSpan(span oracle.Span, chunk model.DocumentChunk, window string) (model.CandidateEntity, bool) {
	typ, ok := model.ParsePIIType(span.Type)
	if !ok || span.Text == "" {
		return model.CandidateEntity{}, false
	}

	local := span.Start
	if local < 0 || local+len(span.Text) > len(window) || window[local:local+len(span.Text)] != span.Text {
		// Hint is wrong; prefer the first occurrence at or after it.
		idx := -1
		if local >= 0 && local < len(window) {
			if rel := strings.Index(window[local:], span.Text); rel >= 0 {
				idx = local + rel
			}
		}
		if idx < 0 {
			idx = strings.Index(window, span.Text)
		}
		if idx < 0 {
			return model.CandidateEntity{}, false
		}
		local = idx
	}

	start := chunk.WindowOffset(local)
	end := start + len(span.Text)
	if !chunk.Owns(start, end) {
		// Found only in the context overlap; the owning chunk reports it.
		return model.CandidateEntity{}, false
	}

	return model.CandidateEntity{
		RawText:   span.Text,
		TypeGuess: typ,
		Start:     start,
		End:       end,
	}, true
}

func isTransient(err error) bool {
	return errors.Is(err, oracle.ErrTransient)
}
