package mask

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/veilhq/veil/internal/model"
)

func revealFour(t model.PIIType) int {
	if t == model.TypeRoutingNumber {
		return 0
	}
	return 4
}

func TestMask(t *testing.T) {
	tests := []struct {
		name  string
		typ   model.PIIType
		input string
		want  string
	}{
		{
			name:  "account number keeps separators and last four",
			typ:   model.TypeAccountNumber,
			input: "1234-5678-9012-3456",
			want:  "XXXX-XXXX-XXXX-3456",
		},
		{
			name:  "ssn keeps dashes and last four",
			typ:   model.TypeSSN,
			input: "123-45-6789",
			want:  "XXX-XX-6789",
		},
		{
			name:  "routing number reveals nothing",
			typ:   model.TypeRoutingNumber,
			input: "021000021",
			want:  "XXXXXXXXX",
		},
		{
			name:  "card number with spaces",
			typ:   model.TypeCardNumber,
			input: "4111 1111 1111 1111",
			want:  "XXXX XXXX XXXX 1111",
		},
		{
			name:  "person name masks every word",
			typ:   model.TypePersonName,
			input: "John A. Smith",
			want:  "XXXX XX XXXXX",
		},
		{
			name:  "organization keeps short words",
			typ:   model.TypeOrganization,
			input: "Bank of America",
			want:  "XXXX of XXXXXXX",
		},
		{
			name:  "email keeps first character and dots",
			typ:   model.TypeEmail,
			input: "john.doe@example.com",
			want:  "jXXXXXXX@XXXXXXX.XXX",
		},
		{
			name:  "address keeps punctuation",
			typ:   model.TypeAddress,
			input: "123 Main St, Apt 4",
			want:  "XXX XXXX XX, XXX X",
		},
		{
			name:  "date of birth masks all digits",
			typ:   model.TypeDateOfBirth,
			input: "01/15/1980",
			want:  "XX/XX/XXXX",
		},
		{
			name:  "url keeps scheme and structure",
			typ:   model.TypeURL,
			input: "https://example.com/account",
			want:  "https://XXXXXXX.XXX/XXXXXXX",
		},
		{
			name:  "ip address keeps dots",
			typ:   model.TypeIPAddress,
			input: "192.168.1.1",
			want:  "XXX.XXX.X.X",
		},
	}

	e := New(revealFour)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, e.Mask(tt.typ, tt.input))
		})
	}
}

func TestMaskIdempotent(t *testing.T) {
	e := New(revealFour)

	inputs := []struct {
		typ  model.PIIType
		text string
	}{
		{model.TypeAccountNumber, "1234-5678-9012-3456"},
		{model.TypeSSN, "123-45-6789"},
		{model.TypePersonName, "John Smith"},
		{model.TypeEmail, "john@example.com"},
	}

	for _, in := range inputs {
		once := e.Mask(in.typ, in.text)
		twice := e.Mask(in.typ, once)
		assert.Equal(t, once, twice, "masking %q twice must be a no-op", in.text)
	}
}

func TestMaskRevealLongerThanValue(t *testing.T) {
	e := New(func(model.PIIType) int { return 20 })
	// Reveal larger than the digit count degrades to revealing everything
	// rather than panicking.
	assert.Equal(t, "123-45-6789", e.Mask(model.TypeSSN, "123-45-6789"))
}

func TestMaskNilPolicyRevealsNothing(t *testing.T) {
	e := New(nil)
	assert.Equal(t, "XXXX-XXXX-XXXX-XXXX", e.Mask(model.TypeAccountNumber, "1234-5678-9012-3456"))
}
