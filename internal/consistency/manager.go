// Package consistency groups equivalent entity occurrences and assigns one
// canonical replacement per group, document-wide.
package consistency

import (
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/veilhq/veil/internal/model"
)

// Masker renders the canonical replacement for a group's representative
// text. The masking engine satisfies this.
type Masker interface {
	Mask(t model.PIIType, text string) string
}

// Manager performs the whole-document grouping pass. It runs single-threaded
// after all chunk classification completes.
type Manager struct {
	masker Masker
	logger *slog.Logger
}

// New creates a consistency manager.
func New(masker Masker, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{masker: masker, logger: logger}
}

// Assign groups entities by (type, normalized key), attaches group ids to
// every entity, and generates exactly one canonical replacement per group.
// The key is derived from the entity's validator canonical form when one was
// recorded, otherwise from its raw text.
// Grouping is total: every entity lands in exactly one group. The input
// slice is mutated in place (group ids) and also returned.
func (m *Manager) Assign(entities []model.PIIEntity) ([]model.PIIEntity, []model.EntityGroup) {
	type key struct {
		norm string
		typ  model.PIIType
	}

	groupIndex := make(map[key]int)
	var groups []model.EntityGroup

	for i := range entities {
		text := entities[i].Canonical
		if text == "" {
			text = entities[i].Text
		}
		k := key{typ: entities[i].Type, norm: NormalizeKey(entities[i].Type, text)}
		gi, ok := groupIndex[k]
		if !ok {
			gi = len(groups)
			groupIndex[k] = gi
			groups = append(groups, model.EntityGroup{
				GroupID:       gi + 1,
				Type:          k.typ,
				NormalizedKey: k.norm,
			})
		}
		groups[gi].Members = append(groups[gi].Members, i)
		entities[i].GroupID = groups[gi].GroupID
	}

	for gi := range groups {
		rep := m.representative(entities, groups[gi].Members)
		groups[gi].CanonicalReplacement = m.masker.Mask(groups[gi].Type, entities[rep].Text)
	}

	m.logger.Debug("entities grouped",
		"entities", len(entities),
		"groups", len(groups))
	return entities, groups
}

// representative picks the member whose text the masking rule is applied
// to: highest confidence wins, first document offset breaks ties.
func (m *Manager) representative(entities []model.PIIEntity, members []int) int {
	best := members[0]
	for _, i := range members[1:] {
		switch {
		case entities[i].Confidence > entities[best].Confidence:
			best = i
		case entities[i].Confidence == entities[best].Confidence && entities[i].Start < entities[best].Start:
			best = i
		}
	}
	return best
}

var (
	nonDigitRe   = regexp.MustCompile(`\D`)
	spaceRe      = regexp.MustCompile(`\s+`)
	punctRe      = regexp.MustCompile(`[.,;:'"!?()]`)
	nameTitleRe  = regexp.MustCompile(`(?i)^(mr|mrs|ms|dr|prof)\.?\s+`)
	nameSuffixRe = regexp.MustCompile(`(?i)\s+(jr|sr|phd|md|esq|ii|iii|iv)\.?$`)
)

// NormalizeKey folds an entity's text into its deterministic grouping key.
// Rules differ by type: numeric identifiers compare digits only, names
// compare case-insensitively with titles and suffixes stripped, everything
// else folds case, whitespace and common punctuation.
func NormalizeKey(t model.PIIType, text string) string {
	s := strings.ToLower(strings.TrimSpace(text))

	switch {
	case t.NumericIdentifier():
		return nonDigitRe.ReplaceAllString(s, "")
	case t == model.TypePersonName:
		s = nameTitleRe.ReplaceAllString(s, "")
		s = nameSuffixRe.ReplaceAllString(s, "")
		s = punctRe.ReplaceAllString(s, "")
		return spaceRe.ReplaceAllString(strings.TrimSpace(s), " ")
	case t == model.TypeEmail:
		return s
	default:
		s = punctRe.ReplaceAllString(s, "")
		return spaceRe.ReplaceAllString(strings.TrimSpace(s), " ")
	}
}

// SortByOffset orders entities by document position, used before grouping so
// group ids and tie-breaks are deterministic.
func SortByOffset(entities []model.PIIEntity) {
	sort.SliceStable(entities, func(i, j int) bool {
		if entities[i].Start != entities[j].Start {
			return entities[i].Start < entities[j].Start
		}
		return entities[i].End < entities[j].End
	})
}
