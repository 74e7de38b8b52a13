package oracle

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/veilhq/veil/internal/common"
)

// rawSpan tolerates the field-name drift seen across models. Unknown extra
// fields are ignored; required fields missing leave pointers nil.
type rawSpan struct {
	Confidence *float64 `json:"confidence"`
	Start      *int     `json:"start"`
	End        *int     `json:"end"`
	Text       string   `json:"text"`
	SpanText   string   `json:"span_text"`
	Type       string   `json:"type"`
}

// ParseSpans extracts the entity list from a raw oracle response. Individual
// spans with missing required fields are skipped; only a response with no
// parsable JSON at all is an error.
func ParseSpans(content string) ([]Span, error) {
	obj, ok := extractJSON(content)
	if !ok {
		return nil, fmt.Errorf("%w: no JSON object in response", common.ErrMalformedResponse)
	}

	var payload struct {
		Entities []rawSpan `json:"entities"`
	}
	if err := json.Unmarshal([]byte(obj), &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrMalformedResponse, err)
	}

	spans := make([]Span, 0, len(payload.Entities))
	for _, r := range payload.Entities {
		text := r.Text
		if text == "" {
			text = r.SpanText
		}
		if text == "" || r.Type == "" {
			continue
		}
		s := Span{Text: text, Type: r.Type, Confidence: r.Confidence}
		if r.Start != nil {
			s.Start = *r.Start
		}
		if r.End != nil {
			s.End = *r.End
		} else {
			s.End = s.Start + len(text)
		}
		spans = append(spans, s)
	}
	return spans, nil
}

// ParseVerdict parses a type-specific accept/reject response. JSON is the
// expected shape; a line-oriented ANSWER/CONFIDENCE fallback covers models
// that ignore the formatting instruction.
func ParseVerdict(content string) (Verdict, error) {
	if obj, ok := extractJSON(content); ok {
		var payload struct {
			Confidence *float64 `json:"confidence"`
			IsPII      *bool    `json:"is_pii"`
			Answer     string   `json:"answer"`
		}
		if err := json.Unmarshal([]byte(obj), &payload); err == nil {
			v := Verdict{}
			switch {
			case payload.IsPII != nil:
				v.Accept = *payload.IsPII
			case payload.Answer != "":
				v.Accept = affirmative(payload.Answer)
			default:
				return Verdict{}, fmt.Errorf("%w: verdict missing is_pii", common.ErrMalformedResponse)
			}
			if payload.Confidence != nil {
				v.Confidence = clampUnit(*payload.Confidence)
				v.HasConfidence = true
			}
			return v, nil
		}
	}

	// Line-format fallback
	var v Verdict
	var sawAnswer bool
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "ANSWER:"):
			v.Accept = affirmative(strings.TrimPrefix(line, "ANSWER:"))
			sawAnswer = true
		case strings.HasPrefix(line, "CONFIDENCE:"):
			raw := strings.TrimSpace(strings.TrimPrefix(line, "CONFIDENCE:"))
			if strings.HasSuffix(raw, "%") {
				if pct, err := strconv.ParseFloat(strings.TrimSuffix(raw, "%"), 64); err == nil {
					v.Confidence = clampUnit(pct / 100)
					v.HasConfidence = true
				}
				continue
			}
			if f, err := strconv.ParseFloat(raw, 64); err == nil {
				v.Confidence = clampUnit(f)
				v.HasConfidence = true
			}
		}
	}
	if !sawAnswer {
		return Verdict{}, fmt.Errorf("%w: no verdict in response", common.ErrMalformedResponse)
	}
	return v, nil
}

func affirmative(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "true", "y", "accept":
		return true
	default:
		return false
	}
}

func clampUnit(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

// extractJSON returns the first balanced JSON object in content. Models often
// wrap their JSON in prose or markdown fences despite instructions.
func extractJSON(content string) (string, bool) {
	start := strings.IndexByte(content, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(content); i++ {
		c := content[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return content[start : i+1], true
			}
		}
	}
	return "", false
}
