package model

// RAGPattern is one reference entry in the external pattern knowledge base.
// The pipeline only ever reads these.
type RAGPattern struct {
	PatternText string  `json:"pattern_text"`
	Type        PIIType `json:"type"`
	ExampleText string  `json:"example_text"`
}

// ScoredPattern is a retrieval hit: a pattern plus its similarity to the
// query, higher is closer.
type ScoredPattern struct {
	RAGPattern
	Score float64 `json:"score"`
}

// ContextBundle is the additional context the ambiguity resolver feeds back
// into the second classification pass. An empty bundle is the degraded
// fallback when retrieval fails or finds nothing.
type ContextBundle struct {
	Query    string
	Patterns []ScoredPattern
}

// Empty reports whether retrieval produced no usable context.
func (b ContextBundle) Empty() bool {
	return len(b.Patterns) == 0
}
