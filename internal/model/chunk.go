package model

import "encoding/json"

// StructuralHint describes where a text block sits in the document layout.
type StructuralHint string

// Structural hints supplied by the layout collaborator.
const (
	HintHeader    StructuralHint = "header"
	HintFooter    StructuralHint = "footer"
	HintTableCell StructuralHint = "table_cell"
	HintBody      StructuralHint = "body"
)

// TextBlock is one positioned block of statement text as produced by the
// external layout collaborator. BBox is opaque passthrough metadata.
type TextBlock struct {
	Text        string          `json:"text"`
	StartOffset int             `json:"start_offset"`
	EndOffset   int             `json:"end_offset"`
	Hint        StructuralHint  `json:"structural_hint"`
	BBox        json.RawMessage `json:"bbox,omitempty"`
	NoSplit     bool            `json:"no_split,omitempty"`
}

// Atomic reports whether the block must not be split across chunks.
// Table rows are always atomic; splitting one would separate a description
// from its amount and break downstream classification.
func (b TextBlock) Atomic() bool {
	return b.NoSplit || b.Hint == HintTableCell
}

// Document is the full input to one redaction run: raw text plus the layout
// blocks that cover it.
type Document struct {
	FullText string      `json:"full_text"`
	Blocks   []TextBlock `json:"text_blocks"`
}

// DocumentChunk is a bounded segment of document text. It exclusively owns
// the character range [StartOffset, EndOffset) of the original document;
// Leading and Trailing carry surrounding context for classification only and
// are never owned by the chunk.
type DocumentChunk struct {
	Text        string
	Leading     string
	Trailing    string
	StartOffset int
	EndOffset   int
	Hint        StructuralHint
	Oversized   bool
}

// Window returns the text the classification oracle should see: the owned
// text padded with its context overlap.
func (c DocumentChunk) Window() string {
	return c.Leading + c.Text + c.Trailing
}

// WindowOffset converts an offset within Window() to a document-global
// offset.
func (c DocumentChunk) WindowOffset(local int) int {
	return c.StartOffset - len(c.Leading) + local
}

// Owns reports whether the document-global range [start, end) overlaps the
// chunk's owned range. Candidates found purely in the context overlap belong
// to a neighboring chunk and are dropped by the extractor.
func (c DocumentChunk) Owns(start, end int) bool {
	return start < c.EndOffset && end > c.StartOffset
}
