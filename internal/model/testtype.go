package model

// TestType is the canonical, language-agnostic name for a clinical
// measurement. StandardName is unique at the storage layer.
type TestType struct {
	Base
	StandardName string  `db:"standard_name" json:"standard_name"`
	Description  *string `db:"description" json:"description,omitempty"`
	Category     *string `db:"category" json:"category,omitempty"`
}
