package model

import (
	"fmt"
	"strings"
	"time"
)

// Transient shapes returned by the extraction collaborator. They are never
// persisted directly: an ExtractedLab goes through the lab resolver and an
// ExtractedObservation through the test-type resolver before anything is
// written.

// QualitativeValues is the fixed vocabulary for normalized non-numeric
// results.
var QualitativeValues = map[string]struct{}{
	"POSITIVE":     {},
	"NEGATIVE":     {},
	"NORMAL":       {},
	"ABNORMAL":     {},
	"DETECTED":     {},
	"NOT_DETECTED": {},
	"REACTIVE":     {},
	"NON_REACTIVE": {},
	"PRESENT":      {},
	"ABSENT":       {},
	"HIGH":         {},
	"LOW":          {},
	"BORDERLINE":   {},
}

type ExtractedLab struct {
	Name          string  `json:"name"`
	Address       *string `json:"address"`
	Phone         *string `json:"phone"`
	Email         *string `json:"email"`
	Accreditation *string `json:"accreditation"`
}

func (l *ExtractedLab) Validate() error {
	if strings.TrimSpace(l.Name) == "" {
		return fmt.Errorf("extracted lab has no name")
	}
	return nil
}

type ExtractedObservation struct {
	LabTestName       string   `json:"lab_test_name"`
	LabTestCode       *string  `json:"lab_test_code"`
	SuggestedName     string   `json:"suggested_standard_name"`
	Value             *float64 `json:"value"`
	ValueText         *string  `json:"value_text"`
	ValueNormalized   *string  `json:"value_normalized"`
	Unit              *string  `json:"unit"`
	LowerLimit        *float64 `json:"lower_limit"`
	UpperLimit        *float64 `json:"upper_limit"`
	TestDate          string   `json:"test_date"`
	Status            *string  `json:"status"`
	Interpretation    *string  `json:"interpretation"`
	Notes             *string  `json:"documentation"`
	Confidence        float64  `json:"confidence"`
}

func (o *ExtractedObservation) Validate() error {
	if strings.TrimSpace(o.LabTestName) == "" {
		return fmt.Errorf("observation has no lab test name")
	}
	if strings.TrimSpace(o.SuggestedName) == "" {
		return fmt.Errorf("observation %q has no suggested standard name", o.LabTestName)
	}
	if o.Value == nil && o.ValueText == nil {
		return fmt.Errorf("observation %q has neither numeric nor text value", o.LabTestName)
	}
	if o.ValueNormalized != nil {
		if _, ok := QualitativeValues[*o.ValueNormalized]; !ok {
			return fmt.Errorf("observation %q has unknown normalized value %q", o.LabTestName, *o.ValueNormalized)
		}
	}
	if o.Status != nil {
		switch TestStatus(*o.Status) {
		case StatusNormal, StatusBorderline, StatusAbnormal:
		default:
			return fmt.Errorf("observation %q has unknown status %q", o.LabTestName, *o.Status)
		}
	}
	if o.Confidence < 0 || o.Confidence > 1 {
		return fmt.Errorf("observation %q has confidence %v outside [0,1]", o.LabTestName, o.Confidence)
	}
	if _, err := o.ParsedDate(); err != nil {
		return err
	}
	return nil
}

// ParsedDate returns the ISO test date as a time.Time.
func (o *ExtractedObservation) ParsedDate() (time.Time, error) {
	d, err := time.Parse("2006-01-02", o.TestDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("observation %q has bad test date %q: %w", o.LabTestName, o.TestDate, err)
	}
	return d, nil
}
