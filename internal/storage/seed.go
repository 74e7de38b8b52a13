package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/veilhq/veil/internal/model"
)

// defaultPatterns is the starter knowledge base: common shapes of PII as
// they appear in US bank statements.
var defaultPatterns = []model.RAGPattern{
	{
		PatternText: `\b\d{4}[-\s]?\d{4}[-\s]?\d{4}[-\s]?\d{4}\b`,
		Type:        model.TypeAccountNumber,
		ExampleText: "1234-5678-9012-3456",
	},
	{
		PatternText: `\bXXXX[-\s]?XXXX[-\s]?XXXX[-\s]?\d{4}\b`,
		Type:        model.TypeAccountNumber,
		ExampleText: "XXXX-XXXX-XXXX-1234",
	},
	{
		PatternText: `\b\d{9}\b`,
		Type:        model.TypeRoutingNumber,
		ExampleText: "123456789",
	},
	{
		PatternText: `\b[A-Z][a-z]+ [A-Z][a-z]+\b`,
		Type:        model.TypePersonName,
		ExampleText: "John Doe",
	},
	{
		PatternText: `\b\d+ [A-Za-z]+ (?:Street|St|Avenue|Ave|Road|Rd|Boulevard|Blvd|Drive|Dr|Lane|Ln|Way|Court|Ct|Plaza|Plz|Terrace|Ter)\b`,
		Type:        model.TypeAddress,
		ExampleText: "123 Main Street",
	},
	{
		PatternText: `\b\(\d{3}\) \d{3}-\d{4}\b`,
		Type:        model.TypePhoneNumber,
		ExampleText: "(555) 123-4567",
	},
	{
		PatternText: `\b\d{3}-\d{3}-\d{4}\b`,
		Type:        model.TypePhoneNumber,
		ExampleText: "555-123-4567",
	},
	{
		PatternText: `\b[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}\b`,
		Type:        model.TypeEmail,
		ExampleText: "john.doe@example.com",
	},
	{
		PatternText: `\b\d{3}-\d{2}-\d{4}\b`,
		Type:        model.TypeSSN,
		ExampleText: "123-45-6789",
	},
	{
		PatternText: `\b(?:Bank of America|Chase|Wells Fargo|Citibank|PNC Bank|TD Bank|Capital One|US Bank|Truist Bank)\b`,
		Type:        model.TypeOrganization,
		ExampleText: "Bank of America",
	},
}

// Seed initializes the knowledge base with the default pattern set. It is a
// no-op when the store already contains patterns.
func (s *SQLitePatternStore) Seed(ctx context.Context) error {
	count, err := s.Count(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		slog.Info("Knowledge base already initialized", "patterns", count)
		return nil
	}

	for _, p := range defaultPatterns {
		if err := s.Add(ctx, p); err != nil {
			return fmt.Errorf("failed to seed pattern %q: %w", p.PatternText, err)
		}
	}

	slog.Info("Initialized knowledge base", "patterns", len(defaultPatterns))
	return nil
}
