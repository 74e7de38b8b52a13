package oracle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veilhq/veil/internal/common"
)

func TestParseSpans(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []Span
		wantErr bool
	}{
		{
			name:  "clean json",
			input: `{"entities": [{"text": "John Smith", "type": "person_name", "start": 5, "end": 15}]}`,
			want: []Span{
				{Text: "John Smith", Type: "person_name", Start: 5, End: 15},
			},
		},
		{
			name:  "json wrapped in prose and fences",
			input: "Here are the entities:\n```json\n{\"entities\": [{\"text\": \"123-45-6789\", \"type\": \"ssn\", \"start\": 0, \"end\": 11}]}\n```",
			want: []Span{
				{Text: "123-45-6789", Type: "ssn", Start: 0, End: 11},
			},
		},
		{
			name:  "span_text field variant",
			input: `{"entities": [{"span_text": "john@example.com", "type": "email", "start": 2}]}`,
			want: []Span{
				{Text: "john@example.com", Type: "email", Start: 2, End: 18},
			},
		},
		{
			name:  "missing end derived from text length",
			input: `{"entities": [{"text": "abcd", "type": "person_name", "start": 10}]}`,
			want: []Span{
				{Text: "abcd", Type: "person_name", Start: 10, End: 14},
			},
		},
		{
			name: "spans without text or type are skipped",
			input: `{"entities": [
				{"type": "ssn", "start": 0, "end": 11},
				{"text": "john@example.com", "start": 0, "end": 16},
				{"text": "Jane Doe", "type": "person_name", "start": 20, "end": 28}
			]}`,
			want: []Span{
				{Text: "Jane Doe", Type: "person_name", Start: 20, End: 28},
			},
		},
		{
			name:  "empty entity list",
			input: `{"entities": []}`,
			want:  []Span{},
		},
		{
			name:    "no json at all",
			input:   "I could not find any PII.",
			wantErr: true,
		},
		{
			name:    "unbalanced json",
			input:   `{"entities": [{"text": "x"`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSpans(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, common.ErrMalformedResponse)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseSpansConfidence(t *testing.T) {
	got, err := ParseSpans(`{"entities": [{"text": "x y", "type": "person_name", "start": 0, "end": 3, "confidence": 0.92}]}`)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.NotNil(t, got[0].Confidence)
	assert.InDelta(t, 0.92, *got[0].Confidence, 1e-9)
}

func TestParseVerdict(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		wantAccept  bool
		wantConf    float64
		wantHasConf bool
		wantErr     bool
	}{
		{
			name:        "json accept with confidence",
			input:       `{"is_pii": true, "confidence": 0.9}`,
			wantAccept:  true,
			wantConf:    0.9,
			wantHasConf: true,
		},
		{
			name:       "json reject without confidence",
			input:      `{"is_pii": false}`,
			wantAccept: false,
		},
		{
			name:        "json answer variant",
			input:       `{"answer": "yes", "confidence": 0.75}`,
			wantAccept:  true,
			wantConf:    0.75,
			wantHasConf: true,
		},
		{
			name:        "confidence clamped to unit range",
			input:       `{"is_pii": true, "confidence": 1.7}`,
			wantAccept:  true,
			wantConf:    1.0,
			wantHasConf: true,
		},
		{
			name:        "line format",
			input:       "ANSWER: yes\nCONFIDENCE: 0.8",
			wantAccept:  true,
			wantConf:    0.8,
			wantHasConf: true,
		},
		{
			name:        "line format with percent",
			input:       "ANSWER: no\nCONFIDENCE: 85%",
			wantAccept:  false,
			wantConf:    0.85,
			wantHasConf: true,
		},
		{
			name:       "line format answer only",
			input:      "Some preamble.\nANSWER: yes",
			wantAccept: true,
		},
		{
			name:    "no verdict at all",
			input:   "I am not sure what you mean.",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseVerdict(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, common.ErrMalformedResponse)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantAccept, got.Accept)
			assert.Equal(t, tt.wantHasConf, got.HasConfidence)
			if tt.wantHasConf {
				assert.InDelta(t, tt.wantConf, got.Confidence, 1e-9)
			}
		})
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
		ok    bool
	}{
		{
			name:  "bare object",
			input: `{"a": 1}`,
			want:  `{"a": 1}`,
			ok:    true,
		},
		{
			name:  "object inside prose",
			input: `sure! {"a": {"b": 2}} hope that helps`,
			want:  `{"a": {"b": 2}}`,
			ok:    true,
		},
		{
			name:  "braces inside strings do not confuse the scan",
			input: `{"text": "a } b { c"}`,
			want:  `{"text": "a } b { c"}`,
			ok:    true,
		},
		{
			name:  "escaped quote inside string",
			input: `{"text": "she said \"}\""}`,
			want:  `{"text": "she said \"}\""}`,
			ok:    true,
		},
		{
			name:  "no object",
			input: "nothing here",
			ok:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := extractJSON(tt.input)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}
