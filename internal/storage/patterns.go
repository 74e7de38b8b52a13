package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/veilhq/veil/internal/common"
	"github.com/veilhq/veil/internal/model"
)

// Add inserts a pattern into the knowledge base. Duplicate (type, pattern)
// pairs are ignored.
func (s *SQLitePatternStore) Add(ctx context.Context, pattern model.RAGPattern) error {
	if strings.TrimSpace(pattern.PatternText) == "" {
		return fmt.Errorf("pattern text cannot be empty")
	}
	if _, ok := model.ParsePIIType(string(pattern.Type)); !ok {
		return fmt.Errorf("unknown pattern type %q", pattern.Type)
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO patterns (pattern_text, type, example_text) VALUES (?, ?, ?)`,
		pattern.PatternText, string(pattern.Type), pattern.ExampleText)
	if err != nil {
		return fmt.Errorf("%w: failed to insert pattern: %v", common.ErrStoreUnavailable, err)
	}
	return nil
}

// Count returns the number of stored patterns.
func (s *SQLitePatternStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM patterns`).Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: failed to count patterns: %v", common.ErrStoreUnavailable, err)
	}
	return n, nil
}

// All returns every stored pattern, ordered by insertion.
func (s *SQLitePatternStore) All(ctx context.Context) ([]model.RAGPattern, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT pattern_text, type, COALESCE(example_text, '') FROM patterns ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query patterns: %v", common.ErrStoreUnavailable, err)
	}
	defer func() { _ = rows.Close() }()

	var patterns []model.RAGPattern
	for rows.Next() {
		var p model.RAGPattern
		var typ string
		if err := rows.Scan(&p.PatternText, &typ, &p.ExampleText); err != nil {
			return nil, fmt.Errorf("failed to scan pattern: %w", err)
		}
		p.Type = model.PIIType(typ)
		patterns = append(patterns, p)
	}
	return patterns, rows.Err()
}

// Search returns the top-k patterns most similar to the query. The corpus is
// small (hundreds of patterns at most), so scoring happens in process over a
// full scan rather than pushing ranking into SQL.
func (s *SQLitePatternStore) Search(ctx context.Context, query string, topK int) ([]model.ScoredPattern, error) {
	if topK <= 0 {
		return nil, nil
	}

	patterns, err := s.All(ctx)
	if err != nil {
		return nil, err
	}

	queryTokens := tokenize(query)
	scored := make([]model.ScoredPattern, 0, len(patterns))
	for _, p := range patterns {
		score := similarity(queryTokens, strings.ToLower(query), p)
		if score <= 0 {
			continue
		}
		scored = append(scored, model.ScoredPattern{RAGPattern: p, Score: score})
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if len(scored) > topK {
		scored = scored[:topK]
	}
	return scored, nil
}

// similarity blends token overlap against the pattern's type, example and
// pattern text with a substring bonus when the example appears verbatim.
func similarity(queryTokens map[string]struct{}, queryLower string, p model.RAGPattern) float64 {
	docTokens := tokenize(string(p.Type) + " " + p.PatternText + " " + p.ExampleText)
	if len(docTokens) == 0 || len(queryTokens) == 0 {
		return 0
	}

	intersection := 0
	for tok := range queryTokens {
		if _, ok := docTokens[tok]; ok {
			intersection++
		}
	}
	union := len(queryTokens) + len(docTokens) - intersection
	score := float64(intersection) / float64(union)

	if p.ExampleText != "" && strings.Contains(queryLower, strings.ToLower(p.ExampleText)) {
		score += 0.5
	}
	if score > 1 {
		score = 1
	}
	return score
}

func tokenize(s string) map[string]struct{} {
	tokens := make(map[string]struct{})
	for _, tok := range strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	}) {
		if len(tok) < 2 {
			continue
		}
		tokens[tok] = struct{}{}
	}
	return tokens
}
