// Package validate applies deterministic, regex and checksum based sanity
// checks per PII category. It is the local backstop against oracle guesses:
// obviously-wrong candidates are rejected here without any external call,
// and accepted text is canonicalized before grouping.
package validate

import (
	"regexp"
	"strings"

	"github.com/veilhq/veil/internal/model"
)

// Result is the outcome of validating one candidate.
type Result struct {
	// Canonical is the normalized form of the text when accepted, and the
	// original text unchanged when rejected.
	Canonical string
	Accepted  bool
}

var (
	emailRe = regexp.MustCompile(`^[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}$`)
	phoneRe = regexp.MustCompile(`^(\+?1[\-.\s]?)?\(?\d{3}\)?[\-.\s]?\d{3}[\-.\s]?\d{4}$`)
	ipRe    = regexp.MustCompile(`^(\d{1,3})\.(\d{1,3})\.(\d{1,3})\.(\d{1,3})$`)
	urlRe   = regexp.MustCompile(`^(https?://|www\.)[A-Za-z0-9\-._~:/?#\[\]@!$&'()*+,;=%]+$`)
	dobRe   = regexp.MustCompile(`^(\d{1,2}[/\-.]\d{1,2}[/\-.]\d{2,4}|(?i:jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?\s+\d{1,2},?\s+\d{4})$`)
	nameRe  = regexp.MustCompile(`^[A-Za-z][A-Za-z.'\-]*(\s+[A-Za-z.'\-]+)*$`)
	addrRe  = regexp.MustCompile(`(?i)\b\d+\s+[A-Za-z0-9.\s]+(street|st|avenue|ave|road|rd|boulevard|blvd|drive|dr|lane|ln|way|court|ct|plaza|plz|terrace|ter|suite|apt|unit|box)\b`)

	// Monetary figures must never be treated as identifiers. Anything
	// shaped like an amount fails numeric-identifier validation outright.
	amountRe = regexp.MustCompile(`^[\-(]?\$?\s?\d{1,3}(,\d{3})*(\.\d{2})?\)?$|^[\-(]?\$?\s?\d+\.\d{2}\)?$`)

	nonDigitRe   = regexp.MustCompile(`\D`)
	multiSpaceRe = regexp.MustCompile(`\s+`)
)

// Validator applies per-type format rules. It is stateless and safe for
// concurrent use.
type Validator struct{}

// New creates a validator.
func New() *Validator {
	return &Validator{}
}

// IsAmount reports whether text looks like a monetary figure.
func IsAmount(text string) bool {
	return amountRe.MatchString(strings.TrimSpace(text))
}

// Validate checks text against the format rules for the given type. It never
// errors; unmatched input yields Accepted=false with the text passed through
// unchanged.
func (v *Validator) Validate(t model.PIIType, text string) Result {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Result{Canonical: text}
	}

	switch t {
	case model.TypeAccountNumber:
		return v.validateAccount(text, trimmed)
	case model.TypeRoutingNumber:
		return v.validateRouting(text, trimmed)
	case model.TypeCardNumber:
		return v.validateCard(text, trimmed)
	case model.TypeSSN:
		return v.validateSSN(text, trimmed)
	case model.TypePhoneNumber:
		return v.validatePhone(text, trimmed)
	case model.TypeEmail:
		if emailRe.MatchString(trimmed) {
			return Result{Accepted: true, Canonical: strings.ToLower(trimmed)}
		}
	case model.TypeIPAddress:
		return v.validateIP(text, trimmed)
	case model.TypeURL:
		if urlRe.MatchString(trimmed) {
			return Result{Accepted: true, Canonical: strings.ToLower(trimmed)}
		}
	case model.TypeDateOfBirth:
		if dobRe.MatchString(trimmed) {
			return Result{Accepted: true, Canonical: collapseSpaces(trimmed)}
		}
	case model.TypePersonName, model.TypeOrganization:
		if nameRe.MatchString(trimmed) && !strings.ContainsAny(trimmed, "0123456789") {
			return Result{Accepted: true, Canonical: collapseSpaces(trimmed)}
		}
	case model.TypeAddress:
		if addrRe.MatchString(trimmed) {
			return Result{Accepted: true, Canonical: collapseSpaces(trimmed)}
		}
	}

	return Result{Canonical: text}
}

func (v *Validator) validateAccount(original, trimmed string) Result {
	if IsAmount(trimmed) {
		return Result{Canonical: original}
	}
	digits := nonDigitRe.ReplaceAllString(trimmed, "")
	if len(digits) < 8 || len(digits) > 17 {
		return Result{Canonical: original}
	}
	if allSameDigit(digits) {
		return Result{Canonical: original}
	}
	return Result{Accepted: true, Canonical: digits}
}

func (v *Validator) validateRouting(original, trimmed string) Result {
	digits := nonDigitRe.ReplaceAllString(trimmed, "")
	if len(digits) != 9 || !abaChecksum(digits) {
		return Result{Canonical: original}
	}
	return Result{Accepted: true, Canonical: digits}
}

func (v *Validator) validateCard(original, trimmed string) Result {
	if IsAmount(trimmed) {
		return Result{Canonical: original}
	}
	digits := nonDigitRe.ReplaceAllString(trimmed, "")
	if len(digits) < 13 || len(digits) > 19 || !luhn(digits) {
		return Result{Canonical: original}
	}
	return Result{Accepted: true, Canonical: digits}
}

func (v *Validator) validateSSN(original, trimmed string) Result {
	digits := nonDigitRe.ReplaceAllString(trimmed, "")
	if len(digits) != 9 {
		return Result{Canonical: original}
	}
	area, group, serial := digits[:3], digits[3:5], digits[5:]
	if area == "000" || area == "666" || area[0] == '9' || group == "00" || serial == "0000" {
		return Result{Canonical: original}
	}
	return Result{Accepted: true, Canonical: digits}
}

func (v *Validator) validatePhone(original, trimmed string) Result {
	if !phoneRe.MatchString(trimmed) {
		return Result{Canonical: original}
	}
	digits := nonDigitRe.ReplaceAllString(trimmed, "")
	if len(digits) == 11 && digits[0] == '1' {
		digits = digits[1:]
	}
	if len(digits) != 10 {
		return Result{Canonical: original}
	}
	return Result{Accepted: true, Canonical: digits}
}

func (v *Validator) validateIP(original, trimmed string) Result {
	m := ipRe.FindStringSubmatch(trimmed)
	if m == nil {
		return Result{Canonical: original}
	}
	for _, octet := range m[1:] {
		if len(octet) > 1 && octet[0] == '0' {
			return Result{Canonical: original}
		}
		n := 0
		for i := 0; i < len(octet); i++ {
			n = n*10 + int(octet[i]-'0')
		}
		if n > 255 {
			return Result{Canonical: original}
		}
	}
	return Result{Accepted: true, Canonical: trimmed}
}

// luhn validates a digit string with the Luhn mod-10 checksum.
func luhn(digits string) bool {
	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		d := int(digits[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

// abaChecksum validates a 9-digit ABA routing number.
func abaChecksum(digits string) bool {
	d := func(i int) int { return int(digits[i] - '0') }
	sum := 3*(d(0)+d(3)+d(6)) + 7*(d(1)+d(4)+d(7)) + (d(2) + d(5) + d(8))
	return sum%10 == 0
}

func allSameDigit(digits string) bool {
	for i := 1; i < len(digits); i++ {
		if digits[i] != digits[0] {
			return false
		}
	}
	return true
}

func collapseSpaces(s string) string {
	return multiSpaceRe.ReplaceAllString(strings.TrimSpace(s), " ")
}
