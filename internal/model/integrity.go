package model

// IntegrityRecord pairs one financial figure as extracted before and after
// masking. Values are in cents so comparison is exact.
type IntegrityRecord struct {
	FieldName string `json:"field_name"`
	PreValue  int64  `json:"pre_value"`
	PostValue int64  `json:"post_value"`
}

// Intact reports whether the figure survived masking unchanged.
func (r IntegrityRecord) Intact() bool {
	return r.PreValue == r.PostValue
}
