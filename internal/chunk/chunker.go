// Package chunk splits document text into bounded, context-preserving
// segments for classification.
package chunk

import (
	"log/slog"
	"strings"

	"github.com/veilhq/veil/internal/model"
)

// Chunker packs consecutive layout blocks into chunks of at most MaxSize
// characters. A chunk boundary never falls inside an atomic block, so a
// table row is never split away from its amount.
type Chunker struct {
	logger  *slog.Logger
	maxSize int
	overlap int
}

// New creates a chunker. A nil logger falls back to slog.Default.
func New(maxSize, overlap int, logger *slog.Logger) *Chunker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Chunker{maxSize: maxSize, overlap: overlap, logger: logger}
}

// Chunks partitions the document into chunks. Every character of the
// document text from the first block's start to the last block's end,
// separator gaps between blocks included, belongs to exactly one chunk; the
// leading/trailing context fields carry overlap from neighboring chunks
// without owning it. An oversized splittable block is divided at whitespace;
// an oversized atomic block is emitted whole rather than truncated, since
// truncation would silently drop PII.
func (c *Chunker) Chunks(doc model.Document) []model.DocumentChunk {
	if len(doc.Blocks) == 0 {
		return nil
	}

	var chunks []model.DocumentChunk

	cur := model.DocumentChunk{
		StartOffset: doc.Blocks[0].StartOffset,
		EndOffset:   doc.Blocks[0].StartOffset,
		Hint:        doc.Blocks[0].Hint,
	}

	flush := func() {
		if cur.Text != "" {
			chunks = append(chunks, cur)
		}
	}

	for _, block := range doc.Blocks {
		// Separator characters between consecutive blocks join the pending
		// chunk before any flush decision, so coverage stays total even
		// when a size-triggered flush lands on a gap.
		if block.StartOffset > cur.EndOffset && block.StartOffset <= len(doc.FullText) {
			if cur.Text == "" {
				cur.StartOffset = cur.EndOffset
			}
			cur.Text += doc.FullText[cur.EndOffset:block.StartOffset]
			cur.EndOffset = block.StartOffset
		}

		blockLen := len(block.Text)

		if blockLen > c.maxSize {
			flush()
			if block.Atomic() {
				c.logger.Warn("atomic block exceeds max chunk size, emitting oversized chunk",
					"block_start", block.StartOffset,
					"block_len", blockLen,
					"max_size", c.maxSize)
				chunks = append(chunks, model.DocumentChunk{
					Text:        block.Text,
					StartOffset: block.StartOffset,
					EndOffset:   block.EndOffset,
					Hint:        block.Hint,
					Oversized:   true,
				})
			} else {
				chunks = append(chunks, c.split(block)...)
			}
			cur = model.DocumentChunk{
				StartOffset: block.EndOffset,
				EndOffset:   block.EndOffset,
				Hint:        block.Hint,
			}
			continue
		}

		if len(cur.Text)+blockLen > c.maxSize {
			flush()
			cur = model.DocumentChunk{
				StartOffset: block.StartOffset,
				EndOffset:   block.StartOffset,
				Hint:        block.Hint,
			}
		}

		if cur.Text == "" {
			cur.StartOffset = block.StartOffset
			cur.Hint = block.Hint
		}
		cur.Text += block.Text
		cur.EndOffset = block.EndOffset
	}
	flush()

	c.attachContext(chunks)

	c.logger.Debug("document chunked",
		"blocks", len(doc.Blocks),
		"chunks", len(chunks))

	return chunks
}

// split divides a splittable oversized block into pieces of at most maxSize
// characters, cutting after the last whitespace in each piece when one
// exists.
func (c *Chunker) split(block model.TextBlock) []model.DocumentChunk {
	var pieces []model.DocumentChunk
	text := block.Text
	offset := block.StartOffset

	for len(text) > c.maxSize {
		cut := c.maxSize
		if i := strings.LastIndexAny(text[:c.maxSize], " \t\n"); i > 0 {
			cut = i + 1
		}
		pieces = append(pieces, model.DocumentChunk{
			Text:        text[:cut],
			StartOffset: offset,
			EndOffset:   offset + cut,
			Hint:        block.Hint,
		})
		offset += cut
		text = text[cut:]
	}
	if text != "" {
		pieces = append(pieces, model.DocumentChunk{
			Text:        text,
			StartOffset: offset,
			EndOffset:   offset + len(text),
			Hint:        block.Hint,
		})
	}
	return pieces
}

// attachContext copies up to overlap characters from each chunk's neighbors
// into its leading/trailing context.
func (c *Chunker) attachContext(chunks []model.DocumentChunk) {
	if c.overlap <= 0 {
		return
	}
	for i := range chunks {
		if i > 0 {
			prev := chunks[i-1].Text
			if len(prev) > c.overlap {
				prev = prev[len(prev)-c.overlap:]
			}
			chunks[i].Leading = prev
		}
		if i < len(chunks)-1 {
			next := chunks[i+1].Text
			if len(next) > c.overlap {
				next = next[:c.overlap]
			}
			chunks[i].Trailing = next
		}
	}
}
