package domain

import "time"

// HeuristicRule defines one metadata anomaly check. The expression is a CEL
// boolean over the extracted metadata field map; when it fires, the rule's
// contribution is added to the layer's risk score and the detail string is
// appended to its findings.
type HeuristicRule struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Version     string `json:"version"`

	// AppliesTo lists the content types the rule runs for. "*" matches all.
	AppliesTo []ContentType `json:"appliesTo"`

	// Expression is a CEL expression returning bool, evaluated against the
	// `meta` field map and `content_type`.
	Expression string `json:"expression"`

	// Contribution is the fixed risk added when the rule fires, in [0,100].
	Contribution float64 `json:"contribution"`

	// Detail is the finding string recorded when the rule fires.
	Detail string `json:"detail"`

	Enabled bool `json:"enabled"`

	CreatedAt time.Time `json:"createdAt,omitempty"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

// Applies reports whether the rule runs for the given content type.
func (r *HeuristicRule) Applies(ct ContentType) bool {
	for _, t := range r.AppliesTo {
		if t == "*" || t == ct {
			return true
		}
	}
	return false
}
