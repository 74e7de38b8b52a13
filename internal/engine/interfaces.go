package engine

import (
	"context"

	"github.com/veilhq/veil/internal/model"
)

// CandidateSource produces broad-recall candidate spans for one chunk.
type CandidateSource interface {
	Extract(ctx context.Context, chunk model.DocumentChunk) ([]model.CandidateEntity, error)
}

// EntityClassifier confirms or rejects one candidate. A nil entity with a
// nil error means the candidate was cleanly rejected.
type EntityClassifier interface {
	Classify(ctx context.Context, cand model.CandidateEntity, chunk model.DocumentChunk) (*model.PIIEntity, error)
}

// Splitter turns a document into oracle-sized chunks.
type Splitter interface {
	Chunks(doc model.Document) []model.DocumentChunk
}
