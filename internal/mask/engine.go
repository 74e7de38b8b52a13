// Package mask applies category-specific, format-preserving substitution.
// Masking is a pure, deterministic, idempotent function of (type, text,
// policy): length, punctuation and separator placement survive, identifying
// characters do not.
package mask

import (
	"regexp"
	"strings"

	"github.com/veilhq/veil/internal/model"
)

const filler = 'X'

// RevealPolicy returns how many trailing digits to preserve for a numeric
// identifier type.
type RevealPolicy func(t model.PIIType) int

// Engine renders canonical replacements for entity groups.
type Engine struct {
	reveal RevealPolicy
}

// New creates a masking engine with the given reveal-suffix policy. A nil
// policy reveals nothing.
func New(reveal RevealPolicy) *Engine {
	if reveal == nil {
		reveal = func(model.PIIType) int { return 0 }
	}
	return &Engine{reveal: reveal}
}

// Mask produces the replacement for text of the given type.
func (e *Engine) Mask(t model.PIIType, text string) string {
	switch t {
	case model.TypePersonName:
		return maskWords(text, false)
	case model.TypeOrganization:
		return maskWords(text, true)
	case model.TypeAddress:
		return maskAlnum(text)
	case model.TypeAccountNumber, model.TypeCardNumber, model.TypeSSN,
		model.TypeRoutingNumber, model.TypePhoneNumber:
		return maskDigits(text, e.reveal(t))
	case model.TypeEmail:
		return maskEmail(text)
	case model.TypeDateOfBirth, model.TypeIPAddress:
		return maskDigits(text, 0)
	case model.TypeURL:
		return maskURL(text)
	default:
		return maskAlnum(text)
	}
}

var digitRe = regexp.MustCompile(`\d`)

// maskWords replaces each word with fillers of the same length, preserving
// word boundaries. With keepShort, words of one or two characters ("of",
// "in") pass through so organization names stay readable in layout.
func maskWords(text string, keepShort bool) string {
	words := strings.Split(text, " ")
	for i, w := range words {
		if keepShort && len(w) <= 2 {
			continue
		}
		words[i] = maskAlnum(w)
	}
	return strings.Join(words, " ")
}

// maskAlnum replaces every letter and digit, keeping punctuation and spaces.
func maskAlnum(text string) string {
	out := []rune(text)
	for i, r := range out {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' {
			out[i] = filler
		}
	}
	return string(out)
}

// maskDigits replaces digits with the filler while keeping separators in
// place, preserving the trailing reveal digits for usability. Letters are
// left alone; numeric identifiers carry their identity in digits.
func maskDigits(text string, reveal int) string {
	totalDigits := len(digitRe.FindAllString(text, -1))
	if reveal > totalDigits {
		reveal = totalDigits
	}
	masked := totalDigits - reveal

	out := []rune(text)
	seen := 0
	for i, r := range out {
		if r >= '0' && r <= '9' {
			if seen < masked {
				out[i] = filler
			}
			seen++
		}
	}
	return string(out)
}

// maskEmail masks the user part past its first character and every domain
// label, preserving '@' and dots.
func maskEmail(text string) string {
	at := strings.IndexByte(text, '@')
	if at <= 0 || at == len(text)-1 {
		return maskAlnum(text)
	}
	user, domain := text[:at], text[at+1:]

	maskedUser := string(user[0]) + strings.Repeat(string(filler), len(user)-1)
	if len(user) == 1 {
		maskedUser = string(filler)
	}

	labels := strings.Split(domain, ".")
	for i, l := range labels {
		labels[i] = strings.Repeat(string(filler), len(l))
	}
	return maskedUser + "@" + strings.Join(labels, ".")
}

// maskURL preserves the scheme and the dot/slash structure of the rest.
func maskURL(text string) string {
	rest := text
	scheme := ""
	if i := strings.Index(text, "://"); i >= 0 {
		scheme = text[:i+3]
		rest = text[i+3:]
	}

	out := []rune(rest)
	for i, r := range out {
		if r != '.' && r != '/' && r != ':' && r != '-' {
			out[i] = filler
		}
	}
	return scheme + string(out)
}
