package model

import (
	"time"

	"github.com/google/uuid"
)

// TestStatus is the clinical status tag assigned by the extraction
// collaborator.
type TestStatus string

const (
	StatusNormal     TestStatus = "NORMAL"
	StatusBorderline TestStatus = "BORDERLINE"
	StatusAbnormal   TestStatus = "ABNORMAL"
)

// TestResult is one observation. It is uniquely identified by the natural
// key (patient, test type, test date, lab); the owning document is
// deliberately not part of the key, so the document of record for a key is
// always the most recently processed one.
type TestResult struct {
	Base
	TestTypeID      uuid.UUID   `db:"test_type_id" json:"test_type_id"`
	PatientID       uuid.UUID   `db:"patient_id" json:"patient_id"`
	DocumentID      uuid.UUID   `db:"document_id" json:"document_id"`
	LabID           uuid.UUID   `db:"lab_id" json:"lab_id"`
	LabTestName     string      `db:"lab_test_name" json:"lab_test_name"`
	Value           *float64    `db:"value" json:"value,omitempty"`
	ValueText       *string     `db:"value_text" json:"value_text,omitempty"`
	ValueNormalized *string     `db:"value_normalized" json:"value_normalized,omitempty"`
	Unit            *string     `db:"unit" json:"unit,omitempty"`
	LowerLimit      *float64    `db:"lower_limit" json:"lower_limit,omitempty"`
	UpperLimit      *float64    `db:"upper_limit" json:"upper_limit,omitempty"`
	TestDate        time.Time   `db:"test_date" json:"test_date"`
	Status          *TestStatus `db:"status" json:"status,omitempty"`
	Interpretation  *string     `db:"interpretation" json:"interpretation,omitempty"`
	Notes           *string     `db:"notes" json:"notes,omitempty"`
	UpdatedAt       time.Time   `db:"updated_at" json:"updated_at"`
}

// NaturalKey identifies one observation independent of any generated id.
type NaturalKey struct {
	PatientID  uuid.UUID
	TestTypeID uuid.UUID
	TestDate   time.Time
	LabID      uuid.UUID
}

func (r *TestResult) NaturalKey() NaturalKey {
	return NaturalKey{
		PatientID:  r.PatientID,
		TestTypeID: r.TestTypeID,
		TestDate:   r.TestDate,
		LabID:      r.LabID,
	}
}

// TimelineEntry is a test result joined with its canonical type, used for
// the per-patient timeline view.
type TimelineEntry struct {
	TestResult
	StandardName string  `db:"standard_name" json:"standard_name"`
	Category     *string `db:"category" json:"category,omitempty"`
}
