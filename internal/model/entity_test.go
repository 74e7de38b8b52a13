package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePIIType(t *testing.T) {
	tests := []struct {
		input string
		want  PIIType
		ok    bool
	}{
		{"person_name", TypePersonName, true},
		{"PERSON_NAME", TypePersonName, true},
		{"Person Name", TypePersonName, true},
		{"account_number", TypeAccountNumber, true},
		{"account", TypeAccountNumber, true},
		{"social_security_number", TypeSSN, true},
		{"Email Address", TypeEmail, true},
		{"credit_card", TypeCardNumber, true},
		{"organization", TypeOrganization, true},
		{"dob", TypeDateOfBirth, true},
		{"transaction_amount", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParsePIIType(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEntityValidate(t *testing.T) {
	valid := PIIEntity{Text: "x", Type: TypeSSN, Start: 0, End: 1, Confidence: 0.9}
	assert.NoError(t, valid.Validate())

	inverted := PIIEntity{Text: "x", Type: TypeSSN, Start: 5, End: 5, Confidence: 0.9}
	assert.Error(t, inverted.Validate())

	outOfRange := PIIEntity{Text: "x", Type: TypeSSN, Start: 0, End: 1, Confidence: 1.5}
	assert.Error(t, outOfRange.Validate())
}

func TestEntityOverlaps(t *testing.T) {
	a := PIIEntity{Start: 0, End: 10}
	b := PIIEntity{Start: 5, End: 15}
	c := PIIEntity{Start: 10, End: 20}

	assert.True(t, a.Overlaps(b))
	assert.True(t, b.Overlaps(a))
	assert.False(t, a.Overlaps(c), "adjacent spans do not overlap")
}

func TestChunkWindow(t *testing.T) {
	chunk := DocumentChunk{
		Leading:     "pre ",
		Text:        "body",
		Trailing:    " post",
		StartOffset: 100,
		EndOffset:   104,
	}

	assert.Equal(t, "pre body post", chunk.Window())
	assert.Equal(t, 100, chunk.WindowOffset(4), "window offset 4 is the first owned character")
	assert.True(t, chunk.Owns(100, 104))
	assert.False(t, chunk.Owns(99, 104))
	assert.False(t, chunk.Owns(100, 105))
}

func TestBlockAtomic(t *testing.T) {
	assert.True(t, TextBlock{Hint: HintTableCell}.Atomic())
	assert.True(t, TextBlock{Hint: HintBody, NoSplit: true}.Atomic())
	assert.False(t, TextBlock{Hint: HintBody}.Atomic())
}
