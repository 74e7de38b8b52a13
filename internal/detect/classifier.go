package detect

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/veilhq/veil/internal/common"
	"github.com/veilhq/veil/internal/config"
	"github.com/veilhq/veil/internal/model"
	"github.com/veilhq/veil/internal/oracle"
	"github.com/veilhq/veil/internal/rag"
	"github.com/veilhq/veil/internal/service"
	"github.com/veilhq/veil/internal/validate"
)

// ContextProvider supplies retrieval-augmented context for ambiguous
// candidates. A nil provider disables disambiguation.
type ContextProvider interface {
	Resolve(ctx context.Context, candidate model.CandidateEntity, chunk model.DocumentChunk) (model.ContextBundle, error)
}

// Classifier is the stage-2 precision classifier. It re-evaluates each
// candidate with a type-specific oracle query, validates and canonicalizes
// the text, and applies the confidence policy. Disambiguation is a bounded
// two-pass protocol: at most one resolver call and one re-classification per
// candidate.
type Classifier struct {
	client    oracle.Client
	validator *validate.Validator
	resolver  ContextProvider
	limiter   *oracle.RateLimiter
	logger    *slog.Logger
	cfg       config.Config
	retryOpts service.RetryOptions
}

// NewClassifier creates a type classifier. resolver may be nil.
func NewClassifier(client oracle.Client, validator *validate.Validator, resolver ContextProvider, limiter *oracle.RateLimiter, cfg config.Config, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{
		client:    client,
		validator: validator,
		resolver:  resolver,
		limiter:   limiter,
		logger:    logger,
		cfg:       cfg,
		retryOpts: cfg.Retry,
	}
}

// Classify promotes a candidate to a PIIEntity or returns nil when the
// oracle rejects it, the validator rejects it, or its confidence falls below
// the per-type floor. A nil entity with a nil error is an ordinary
// rejection; an error means the oracle was unreachable and the candidate
// degrades to rejected upstream.
func (c *Classifier) Classify(ctx context.Context, cand model.CandidateEntity, chunk model.DocumentChunk) (*model.PIIEntity, error) {
	// Monetary figures never reach the oracle, let alone the masking
	// engine. This is the hard financial-field exclusion.
	if validate.IsAmount(cand.RawText) {
		c.logger.Debug("rejecting monetary figure proposed as PII",
			"text", cand.RawText,
			"type_guess", cand.TypeGuess)
		return nil, nil
	}

	verdict, err := c.verify(ctx, cand, chunk, "")
	if err != nil {
		return nil, err
	}
	if !verdict.Accept {
		return nil, nil
	}

	res := c.validator.Validate(cand.TypeGuess, cand.RawText)
	if !res.Accepted {
		c.logger.Debug("validator rejected candidate",
			"text", cand.RawText,
			"type", cand.TypeGuess)
		return nil, nil
	}

	confidence := c.confidence(verdict, cand, chunk)

	// Bounded two-pass disambiguation: the second confidence supersedes
	// the first only when retrieval produced context and the oracle
	// answered.
	if c.resolver != nil && c.cfg.Ambiguous(confidence) {
		confidence, err = c.reclassify(ctx, cand, chunk, confidence)
		if err != nil {
			return nil, err
		}
		if confidence < 0 {
			return nil, nil // second pass rejected outright
		}
	}

	floor := c.cfg.Floor(cand.TypeGuess)
	if confidence < floor {
		c.logger.Debug("dropping entity below confidence floor",
			"text", cand.RawText,
			"type", cand.TypeGuess,
			"confidence", confidence,
			"floor", floor)
		return nil, nil
	}

	entity := &model.PIIEntity{
		Text:       cand.RawText,
		Canonical:  res.Canonical,
		Type:       cand.TypeGuess,
		Start:      cand.Start,
		End:        cand.End,
		Confidence: confidence,
	}
	if err := entity.Validate(); err != nil {
		return nil, fmt.Errorf("classified entity invalid: %w", err)
	}
	return entity, nil
}

// reclassify runs the single retrieval-augmented second pass. It returns the
// superseding confidence, the unchanged confidence on an empty bundle, or -1
// when the second verdict rejects the candidate.
func (c *Classifier) reclassify(ctx context.Context, cand model.CandidateEntity, chunk model.DocumentChunk, confidence float64) (float64, error) {
	bundle, err := c.resolver.Resolve(ctx, cand, chunk)
	if err != nil {
		// Resolver failures are degraded-but-correct: keep the first
		// confidence.
		c.logger.Warn("ambiguity resolution failed, keeping original confidence",
			"text", cand.RawText,
			"error", err)
		return confidence, nil
	}
	if bundle.Empty() {
		return confidence, nil
	}

	verdict, err := c.verify(ctx, cand, chunk, rag.FormatBundle(bundle))
	if err != nil {
		return 0, err
	}
	if !verdict.Accept {
		return -1, nil
	}
	return c.confidence(verdict, cand, chunk), nil
}

// verify issues one type-specific oracle query, with retry.
func (c *Classifier) verify(ctx context.Context, cand model.CandidateEntity, chunk model.DocumentChunk, extraContext string) (oracle.Verdict, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return oracle.Verdict{}, fmt.Errorf("rate limit error: %w", err)
		}
	}

	req := oracle.Request{
		Instruction: verifyInstruction(cand.TypeGuess),
		Text:        fmt.Sprintf("Candidate: %q\n\nSurrounding statement text:\n%s", cand.RawText, neighborhood(cand, chunk, 120)),
		Context:     extraContext,
	}

	var verdict oracle.Verdict
	err := common.WithRetry(ctx, func() error {
		v, err := c.client.Verify(ctx, req)
		if err != nil {
			c.logger.Warn("type classification attempt failed",
				"text", cand.RawText,
				"error", err)
			return &common.RetryableError{Err: err, Retryable: common.IsRetryable(err) || isTransient(err)}
		}
		verdict = v
		return nil
	}, c.retryOpts)
	if err != nil {
		return oracle.Verdict{}, fmt.Errorf("type classification failed: %w", err)
	}
	return verdict, nil
}

// confidence returns the oracle's score when present, otherwise the
// corroboration heuristic.
func (c *Classifier) confidence(verdict oracle.Verdict, cand model.CandidateEntity, chunk model.DocumentChunk) float64 {
	if verdict.HasConfidence {
		return verdict.Confidence
	}
	return heuristicConfidence(true, corroboratingSignals(cand, chunk))
}

var typeDescriptions = map[model.PIIType]string{
	model.TypePersonName:    "a person's name",
	model.TypeAddress:       "a postal address",
	model.TypeAccountNumber: "a bank account number",
	model.TypeRoutingNumber: "a bank routing number",
	model.TypePhoneNumber:   "a phone number",
	model.TypeEmail:         "an email address",
	model.TypeOrganization:  "an organization or company name",
	model.TypeCardNumber:    "a credit or debit card number",
	model.TypeSSN:           "a social security number",
	model.TypeDateOfBirth:   "a date of birth",
	model.TypeIPAddress:     "an IP address",
	model.TypeURL:           "a website URL",
}

func verifyInstruction(t model.PIIType) string {
	return fmt.Sprintf(`You are verifying a single PII candidate from a bank statement.

Question: is the candidate below %s that identifies a specific person or
account holder? Transaction amounts, balances and transaction dates are NOT
PII.

Respond with ONLY this JSON:
{"is_pii": true or false, "confidence": 0.0 to 1.0}`, typeDescriptions[t])
}

// neighborhood returns up to radius characters of window text around the
// candidate.
func neighborhood(cand model.CandidateEntity, chunk model.DocumentChunk, radius int) string {
	window := chunk.Window()
	local := cand.Start - chunk.StartOffset + len(chunk.Leading)
	if local < 0 || local >= len(window) {
		return chunk.Text
	}
	lo := local - radius
	if lo < 0 {
		lo = 0
	}
	hi := local + len(cand.RawText) + radius
	if hi > len(window) {
		hi = len(window)
	}
	return window[lo:hi]
}
