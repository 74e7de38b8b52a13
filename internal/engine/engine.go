// Package engine orchestrates the redaction pipeline: chunking, candidate
// extraction, classification, whole-document grouping, masking, and the
// financial-integrity check.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/veilhq/veil/internal/common"
	"github.com/veilhq/veil/internal/consistency"
	"github.com/veilhq/veil/internal/integrity"
	"github.com/veilhq/veil/internal/model"
)

// Engine runs one document through the full pipeline.
type Engine struct {
	splitter    Splitter
	extractor   CandidateSource
	classifier  EntityClassifier
	consistency *consistency.Manager
	verifier    *integrity.Verifier
	logger      *slog.Logger
	progress    func(done, total int)
	workers     int
}

// SetProgress installs a callback invoked after each chunk finishes
// detection. Callbacks arrive from worker goroutines one at a time.
func (e *Engine) SetProgress(fn func(done, total int)) {
	e.progress = fn
}

// New creates an engine. workers bounds concurrent chunk processing.
func New(splitter Splitter, extractor CandidateSource, classifier EntityClassifier,
	cm *consistency.Manager, verifier *integrity.Verifier, workers int, logger *slog.Logger) *Engine {
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		splitter:    splitter,
		extractor:   extractor,
		classifier:  classifier,
		consistency: cm,
		verifier:    verifier,
		logger:      logger,
		workers:     workers,
	}
}

// Redact runs the pipeline end to end. Per-chunk oracle failures degrade
// recall and surface as warnings; the run only fails outright on an empty
// document or cancellation.
func (e *Engine) Redact(ctx context.Context, doc model.Document) (*model.Result, error) {
	doc = normalize(doc)
	if doc.FullText == "" {
		return nil, common.ErrNoBlocks
	}

	runID := uuid.New().String()
	logger := e.logger.With("run_id", runID)

	preFields := e.verifier.Extract(doc.FullText, doc.Blocks)
	chunks := e.splitter.Chunks(doc)
	logger.Info("document chunked", "chunks", len(chunks), "blocks", len(doc.Blocks))

	entities, warnings, err := e.detect(ctx, chunks, logger)
	if err != nil {
		return nil, err
	}

	consistency.SortByOffset(entities)
	entities = dedupe(entities)
	entities, groups := e.consistency.Assign(entities)

	maskedText := applyReplacements(doc.FullText, 0, entities, groups)
	maskedBlocks := make([]model.TextBlock, len(doc.Blocks))
	for i, block := range doc.Blocks {
		masked := block
		masked.Text = applyReplacements(block.Text, block.StartOffset, entities, groups)
		maskedBlocks[i] = masked
	}

	postFields := e.verifier.Extract(maskedText, maskedBlocks)
	records, ok := e.verifier.Verify(preFields, postFields)
	if !ok {
		warnings = append(warnings, "financial integrity check failed: masked output altered monetary figures")
	}

	logger.Info("redaction complete",
		"entities", len(entities),
		"groups", len(groups),
		"integrity_ok", ok,
		"warnings", len(warnings))

	return &model.Result{
		RunID:        runID,
		MaskedText:   maskedText,
		MaskedBlocks: maskedBlocks,
		Entities:     entities,
		Groups:       groups,
		Integrity:    records,
		Warnings:     warnings,
		IntegrityOK:  ok,
	}, nil
}

// detect fans chunks out to a bounded worker pool and collects accepted
// entities. Extraction or classification failures on one chunk are recorded
// as warnings and the remaining chunks still run.
func (e *Engine) detect(ctx context.Context, chunks []model.DocumentChunk, logger *slog.Logger) ([]model.PIIEntity, []string, error) {
	var (
		mu       sync.Mutex
		entities []model.PIIEntity
		warnings []string
		done     int
	)

	work := make(chan model.DocumentChunk)
	var wg sync.WaitGroup

	for w := 0; w < e.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for chunk := range work {
				ents, warns := e.processChunk(ctx, chunk, logger)
				mu.Lock()
				entities = append(entities, ents...)
				warnings = append(warnings, warns...)
				done++
				if e.progress != nil {
					e.progress(done, len(chunks))
				}
				mu.Unlock()
			}
		}()
	}

	var sendErr error
feed:
	for _, chunk := range chunks {
		select {
		case work <- chunk:
		case <-ctx.Done():
			sendErr = ctx.Err()
			break feed
		}
	}
	close(work)
	wg.Wait()

	if sendErr != nil {
		return nil, nil, sendErr
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	return entities, warnings, nil
}

func (e *Engine) processChunk(ctx context.Context, chunk model.DocumentChunk, logger *slog.Logger) ([]model.PIIEntity, []string) {
	candidates, err := e.extractor.Extract(ctx, chunk)
	if err != nil {
		logger.Warn("candidate extraction failed, chunk skipped",
			"chunk_start", chunk.StartOffset,
			"error", err)
		return nil, []string{fmt.Sprintf("chunk at offset %d: extraction failed, recall degraded: %v", chunk.StartOffset, err)}
	}

	var (
		accepted []model.PIIEntity
		warnings []string
	)
	for _, cand := range candidates {
		if err := ctx.Err(); err != nil {
			return accepted, warnings
		}
		entity, err := e.classifier.Classify(ctx, cand, chunk)
		if err != nil {
			logger.Warn("classification failed, candidate dropped",
				"candidate", cand.RawText,
				"error", err)
			warnings = append(warnings, fmt.Sprintf("candidate %q at offset %d: classification failed: %v", cand.RawText, cand.Start, err))
			continue
		}
		if entity != nil {
			accepted = append(accepted, *entity)
		}
	}
	return accepted, warnings
}

// dedupe collapses overlapping entities after the offset sort. On overlap
// the higher-confidence entity survives.
func dedupe(entities []model.PIIEntity) []model.PIIEntity {
	if len(entities) < 2 {
		return entities
	}
	kept := entities[:1]
	for _, e := range entities[1:] {
		last := &kept[len(kept)-1]
		if !e.Overlaps(*last) {
			kept = append(kept, e)
			continue
		}
		if e.Confidence > last.Confidence {
			*last = e
		}
	}
	return kept
}

// normalize fills in the derivable half of a document: blocks from bare full
// text, or full text from blocks.
func normalize(doc model.Document) model.Document {
	if len(doc.Blocks) == 0 && doc.FullText != "" {
		doc.Blocks = []model.TextBlock{{
			Text:      doc.FullText,
			EndOffset: len(doc.FullText),
			Hint:      model.HintBody,
		}}
		return doc
	}
	if doc.FullText == "" && len(doc.Blocks) > 0 {
		end := 0
		for _, b := range doc.Blocks {
			if b.EndOffset > end {
				end = b.EndOffset
			}
		}
		buf := make([]byte, end)
		for i := range buf {
			buf[i] = ' '
		}
		for _, b := range doc.Blocks {
			copy(buf[b.StartOffset:b.EndOffset], b.Text)
		}
		doc.FullText = string(buf)
	}
	return doc
}
