// Package integrity extracts financial figures before and after masking and
// asserts they are unchanged. Masking must never touch money.
package integrity

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/veilhq/veil/internal/model"
)

// Field is one extracted financial figure, in cents.
type Field struct {
	Name  string
	Cents int64
}

var (
	openingBalanceRe = regexp.MustCompile(`(?i)(?:beginning|opening)\s+balance:?\s*\$?\s*(-?[\d,]+\.\d{2})`)
	closingBalanceRe = regexp.MustCompile(`(?i)(?:ending|closing)\s+balance:?\s*\$?\s*(-?[\d,]+\.\d{2})`)
	amountRe         = regexp.MustCompile(`-?\$\s?[\d,]+\.\d{2}|\(\$?[\d,]+\.\d{2}\)`)

	tableKeywords = []string{"date", "description", "amount", "balance", "transaction"}
)

// Verifier runs the pre/post extraction and comparison. It executes
// single-threaded after all chunk work completes.
type Verifier struct {
	logger *slog.Logger
}

// New creates a verifier.
func New(logger *slog.Logger) *Verifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Verifier{logger: logger}
}

// Extract pulls the opening/closing balances from the full text and every
// monetary amount from table-like blocks, in document order.
func (v *Verifier) Extract(fullText string, blocks []model.TextBlock) []Field {
	var fields []Field

	if m := openingBalanceRe.FindStringSubmatch(fullText); m != nil {
		if c, ok := parseCents(m[1]); ok {
			fields = append(fields, Field{Name: "opening_balance", Cents: c})
		}
	}
	if m := closingBalanceRe.FindStringSubmatch(fullText); m != nil {
		if c, ok := parseCents(m[1]); ok {
			fields = append(fields, Field{Name: "closing_balance", Cents: c})
		}
	}

	row := 0
	for _, block := range blocks {
		if !tableLike(block) {
			continue
		}
		for i, raw := range amountRe.FindAllString(block.Text, -1) {
			c, ok := parseCents(raw)
			if !ok {
				continue
			}
			fields = append(fields, Field{
				Name:  fmt.Sprintf("row_%d_amount_%d", row, i),
				Cents: c,
			})
		}
		row++
	}

	return fields
}

// Verify pairs pre- and post-masking fields positionally and compares them
// exactly. A count mismatch means masking ate or invented a figure; each
// unpaired field is reported as violated.
func (v *Verifier) Verify(pre, post []Field) ([]model.IntegrityRecord, bool) {
	n := len(pre)
	if len(post) > n {
		n = len(post)
	}

	records := make([]model.IntegrityRecord, 0, n)
	ok := true

	for i := 0; i < n; i++ {
		rec := model.IntegrityRecord{}
		switch {
		case i < len(pre) && i < len(post):
			rec.FieldName = pre[i].Name
			rec.PreValue = pre[i].Cents
			rec.PostValue = post[i].Cents
		case i < len(pre):
			rec.FieldName = pre[i].Name
			rec.PreValue = pre[i].Cents
			rec.PostValue = -1
		default:
			rec.FieldName = post[i].Name
			rec.PreValue = -1
			rec.PostValue = post[i].Cents
		}
		if !rec.Intact() {
			ok = false
			v.logger.Warn("financial integrity violated",
				"field", rec.FieldName,
				"pre", rec.PreValue,
				"post", rec.PostValue)
		}
		records = append(records, rec)
	}

	return records, ok
}

// tableLike reports whether a block holds transaction-style rows: either
// flagged as a table cell by layout, or a body block whose text leads with
// transaction table keywords.
func tableLike(block model.TextBlock) bool {
	if block.Hint == model.HintTableCell {
		return true
	}
	head := strings.ToLower(block.Text)
	if len(head) > 120 {
		head = head[:120]
	}
	hits := 0
	for _, kw := range tableKeywords {
		if strings.Contains(head, kw) {
			hits++
		}
	}
	return hits >= 2
}

// parseCents parses a monetary string ("$1,204.55", "(500.00)") into cents.
// Parenthesized amounts are negative by accounting convention.
func parseCents(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	negative := strings.HasPrefix(s, "-")
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}
	s = strings.NewReplacer("$", "", ",", "", " ", "", "-", "").Replace(s)

	dot := strings.IndexByte(s, '.')
	if dot < 0 || len(s)-dot-1 != 2 {
		return 0, false
	}
	whole, frac := s[:dot], s[dot+1:]

	var cents int64
	for i := 0; i < len(whole); i++ {
		if whole[i] < '0' || whole[i] > '9' {
			return 0, false
		}
		cents = cents*10 + int64(whole[i]-'0')
	}
	cents *= 100
	for i := 0; i < len(frac); i++ {
		if frac[i] < '0' || frac[i] > '9' {
			return 0, false
		}
		cents += int64(frac[i]-'0') * pow10(1-i)
	}
	if negative {
		cents = -cents
	}
	return cents, true
}

func pow10(n int) int64 {
	v := int64(1)
	for ; n > 0; n-- {
		v *= 10
	}
	return v
}
