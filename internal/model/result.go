package model

// Result is everything one redaction run produces: the entity ledger, the
// masked document, and the financial-integrity report. This is the sole
// contract the output-rendering collaborator depends on.
type Result struct {
	RunID        string            `json:"run_id"`
	MaskedText   string            `json:"masked_text"`
	MaskedBlocks []TextBlock       `json:"masked_blocks"`
	Entities     []PIIEntity       `json:"entities"`
	Groups       []EntityGroup     `json:"groups"`
	Integrity    []IntegrityRecord `json:"integrity"`
	Warnings     []string          `json:"warnings,omitempty"`
	IntegrityOK  bool              `json:"integrity_ok"`
}
