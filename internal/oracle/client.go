// Package oracle provides clients for the external text-classification
// service. The oracle boundary is a fixed interface; response parsing is
// isolated behind a strict schema-validation adapter so that malformed or
// partial responses surface as errors instead of runtime surprises.
package oracle

import (
	"context"
)

// Request is one call to the classification oracle. Context carries optional
// additional material (retrieved patterns, neighborhood text) appended to the
// prompt.
type Request struct {
	Instruction string
	Text        string
	Context     string
}

// Span is one approximate PII span reported by the oracle. Offsets are
// relative to the Text field of the request. Confidence is nil when the
// model did not supply a numeric score.
type Span struct {
	Confidence *float64
	Text       string
	Type       string
	Start      int
	End        int
}

// Verdict is the oracle's answer to a type-specific accept/reject query.
type Verdict struct {
	Confidence    float64
	Accept        bool
	HasConfidence bool
}

// Client defines the interface to the classification oracle.
type Client interface {
	// Detect runs a broad-recall span-finding query.
	Detect(ctx context.Context, req Request) ([]Span, error)
	// Verify runs a type-specific accept/reject query for one candidate.
	Verify(ctx context.Context, req Request) (Verdict, error)
}

// generator is the provider-level primitive: send a prompt, get raw text
// back. Detect and Verify are built on top of it uniformly.
type generator interface {
	generate(ctx context.Context, system, prompt string) (string, error)
}

// client adapts a raw text generator into the Client interface.
type client struct {
	backend generator
}

const detectSystem = "You are a specialized PII detection system for bank statements. " +
	"You MUST respond with ONLY a valid JSON object. Do not include any explanatory text, " +
	"markdown formatting, or commentary before or after the JSON."

func (c *client) Detect(ctx context.Context, req Request) ([]Span, error) {
	prompt := req.Instruction
	if req.Context != "" {
		prompt += "\n\nAdditional context for detection:\n" + req.Context
	}
	prompt += "\n\nBank statement text:\n" + req.Text

	raw, err := c.backend.generate(ctx, detectSystem, prompt)
	if err != nil {
		return nil, err
	}
	return ParseSpans(raw)
}

func (c *client) Verify(ctx context.Context, req Request) (Verdict, error) {
	prompt := req.Instruction
	if req.Context != "" {
		prompt += "\n\nAdditional context:\n" + req.Context
	}
	prompt += "\n\nText:\n" + req.Text

	raw, err := c.backend.generate(ctx, detectSystem, prompt)
	if err != nil {
		return Verdict{}, err
	}
	return ParseVerdict(raw)
}
