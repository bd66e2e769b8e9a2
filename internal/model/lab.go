package model

// Lab is a deduplicated issuing laboratory. Uniqueness is semantic rather
// than exact-string: the resolver may create a duplicate row for a lab it
// failed to recognize, but must never merge two distinct labs.
type Lab struct {
	Base
	Name          string  `db:"name" json:"name"`
	Address       *string `db:"address" json:"address,omitempty"`
	Phone         *string `db:"phone" json:"phone,omitempty"`
	Email         *string `db:"email" json:"email,omitempty"`
	Accreditation *string `db:"accreditation" json:"accreditation,omitempty"`
}
