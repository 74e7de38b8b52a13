package engine

import (
	"strings"

	"github.com/veilhq/veil/internal/model"
)

// applyReplacements rewrites one text region with each group's canonical
// replacement. base is the region's document-global start offset, so the
// same function serves the full text (base 0) and individual blocks.
// Entities must be sorted by offset; applying back to front keeps earlier
// offsets valid as lengths change.
func applyReplacements(text string, base int, entities []model.PIIEntity, groups []model.EntityGroup) string {
	end := base + len(text)

	for i := len(entities) - 1; i >= 0; i-- {
		e := entities[i]
		if e.End <= base || e.Start >= end {
			continue
		}

		lo, hi := e.Start-base, e.End-base
		if lo >= 0 && hi <= len(text) {
			text = text[:lo] + groups[e.GroupID-1].CanonicalReplacement + text[hi:]
			continue
		}

		// Entity straddles the region boundary. Blot out the visible part
		// so no fragment of the original value survives.
		if lo < 0 {
			lo = 0
		}
		if hi > len(text) {
			hi = len(text)
		}
		text = text[:lo] + strings.Repeat("X", hi-lo) + text[hi:]
	}
	return text
}
