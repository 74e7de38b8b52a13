package model

import "fmt"

// PIIType is the closed enumeration of entity categories the pipeline
// detects and masks.
type PIIType string

// Supported PII types.
const (
	TypePersonName    PIIType = "person_name"
	TypeAddress       PIIType = "address"
	TypeAccountNumber PIIType = "account_number"
	TypeRoutingNumber PIIType = "routing_number"
	TypePhoneNumber   PIIType = "phone_number"
	TypeEmail         PIIType = "email"
	TypeOrganization  PIIType = "organization_name"
	TypeCardNumber    PIIType = "card_number"
	TypeSSN           PIIType = "ssn"
	TypeDateOfBirth   PIIType = "date_of_birth"
	TypeIPAddress     PIIType = "ip_address"
	TypeURL           PIIType = "url"
)

// AllPIITypes lists every supported type in a stable order.
func AllPIITypes() []PIIType {
	return []PIIType{
		TypePersonName, TypeAddress, TypeAccountNumber, TypeRoutingNumber,
		TypePhoneNumber, TypeEmail, TypeOrganization, TypeCardNumber,
		TypeSSN, TypeDateOfBirth, TypeIPAddress, TypeURL,
	}
}

// ParsePIIType maps an oracle-supplied type string to a PIIType. The oracle
// is prompted with our names but older models answer with upper-cased
// variants, so common aliases are folded in.
func ParsePIIType(s string) (PIIType, bool) {
	switch normalizeTypeName(s) {
	case "person_name", "name", "person":
		return TypePersonName, true
	case "address":
		return TypeAddress, true
	case "account_number", "account":
		return TypeAccountNumber, true
	case "routing_number", "routing":
		return TypeRoutingNumber, true
	case "phone_number", "phone":
		return TypePhoneNumber, true
	case "email", "email_address":
		return TypeEmail, true
	case "organization_name", "organization", "org", "company":
		return TypeOrganization, true
	case "card_number", "credit_card_number", "credit_card", "cc":
		return TypeCardNumber, true
	case "ssn", "social_security_number":
		return TypeSSN, true
	case "date_of_birth", "dob", "birth_date":
		return TypeDateOfBirth, true
	case "ip_address", "ip":
		return TypeIPAddress, true
	case "url", "website":
		return TypeURL, true
	default:
		return "", false
	}
}

func normalizeTypeName(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z':
			out = append(out, c+'a'-'A')
		case c == ' ' || c == '-':
			out = append(out, '_')
		default:
			out = append(out, c)
		}
	}
	return string(out)
}

// NumericIdentifier reports whether the type is a digit-based identifier
// eligible for the reveal-suffix masking policy.
func (t PIIType) NumericIdentifier() bool {
	switch t {
	case TypeAccountNumber, TypeRoutingNumber, TypeCardNumber, TypeSSN, TypePhoneNumber:
		return true
	default:
		return false
	}
}

// CandidateEntity is a stage-1 guess from the candidate extractor. It is
// ephemeral: the type classifier either promotes it to a PIIEntity or drops
// it.
type CandidateEntity struct {
	RawText   string
	TypeGuess PIIType
	Start     int
	End       int
}

// PIIEntity is an accepted entity in document-global coordinates. Canonical
// is the validator's normalized form of Text and feeds grouping; empty means
// Text itself is the grouping input. GroupID is zero until the consistency
// manager assigns the entity to a group.
type PIIEntity struct {
	Text       string  `json:"text"`
	Canonical  string  `json:"canonical,omitempty"`
	Type       PIIType `json:"type"`
	Start      int     `json:"start"`
	End        int     `json:"end"`
	Confidence float64 `json:"confidence"`
	GroupID    int     `json:"group_id"`
}

// Validate checks the entity invariants.
func (e PIIEntity) Validate() error {
	if e.Start >= e.End {
		return fmt.Errorf("entity %q: start %d must be before end %d", e.Text, e.Start, e.End)
	}
	if e.Confidence < 0 || e.Confidence > 1 {
		return fmt.Errorf("entity %q: confidence %f outside [0,1]", e.Text, e.Confidence)
	}
	if _, ok := ParsePIIType(string(e.Type)); !ok {
		return fmt.Errorf("entity %q: unknown type %q", e.Text, e.Type)
	}
	return nil
}

// Overlaps reports whether two entities cover intersecting character ranges.
func (e PIIEntity) Overlaps(other PIIEntity) bool {
	return e.Start < other.End && other.Start < e.End
}

// EntityGroup collects every occurrence of one logical entity. All members
// share a type and a normalized key, and every member is rendered with the
// single CanonicalReplacement.
type EntityGroup struct {
	NormalizedKey        string  `json:"normalized_key"`
	Type                 PIIType `json:"type"`
	CanonicalReplacement string  `json:"canonical_replacement"`
	GroupID              int     `json:"group_id"`
	Members              []int   `json:"members"` // indices into the run's entity slice
}
