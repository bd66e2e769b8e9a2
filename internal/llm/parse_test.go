package llm

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLabMatch(t *testing.T) {
	id := uuid.New()

	tests := []struct {
		name string
		text string
		want LabMatch
	}{
		{
			name: "match with id",
			text: `{"match": true, "lab_id": "` + id.String() + `"}`,
			want: LabMatch{Matched: true, LabID: id},
		},
		{
			name: "no match",
			text: `{"match": false}`,
			want: LabMatch{},
		},
		{
			name: "malformed json degrades to no match",
			text: `the lab is probably MedLife`,
			want: LabMatch{},
		},
		{
			name: "match with unparseable id degrades to no match",
			text: `{"match": true, "lab_id": "lab-7"}`,
			want: LabMatch{},
		},
		{
			name: "empty response degrades to no match",
			text: ``,
			want: LabMatch{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLabMatch(tt.text))
		})
	}
}

func TestParseTypeMatch(t *testing.T) {
	tests := []struct {
		name string
		text string
		want TypeMatch
	}{
		{
			name: "match with name",
			text: `{"match": true, "standard_name": "Blood Glucose"}`,
			want: TypeMatch{Matched: true, StandardName: "Blood Glucose"},
		},
		{
			name: "no match keeps returned name",
			text: `{"match": false, "standard_name": "Serum Iron"}`,
			want: TypeMatch{Matched: false, StandardName: "Serum Iron"},
		},
		{
			name: "malformed json falls back to suggested",
			text: `not json at all`,
			want: TypeMatch{Matched: false, StandardName: "Blood Glucose"},
		},
		{
			name: "missing name falls back to suggested",
			text: `{"match": true}`,
			want: TypeMatch{Matched: false, StandardName: "Blood Glucose"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseTypeMatch(tt.text, "Blood Glucose"))
		})
	}
}

func TestParseExtractedLab(t *testing.T) {
	lab, err := parseExtractedLab(`{"name": "MedLife Laboratory", "address": "123 Medical Center Dr"}`)
	require.NoError(t, err)
	assert.Equal(t, "MedLife Laboratory", lab.Name)
	require.NotNil(t, lab.Address)
	assert.Equal(t, "123 Medical Center Dr", *lab.Address)

	// Extraction parse failures are errors, not fallbacks.
	_, err = parseExtractedLab(`I could not find a laboratory`)
	assert.Error(t, err)

	_, err = parseExtractedLab(`{"address": "only an address"}`)
	assert.Error(t, err)
}

func TestParseExtractedObservations(t *testing.T) {
	valid := `[
		{
			"lab_test_name": "Glucoza",
			"suggested_standard_name": "Blood Glucose",
			"value": 95.0,
			"unit": "mg/dL",
			"lower_limit": 70.0,
			"upper_limit": 100.0,
			"test_date": "2024-01-15",
			"status": "NORMAL",
			"confidence": 0.95
		},
		{
			"lab_test_name": "COVID-19 Ag",
			"suggested_standard_name": "SARS-CoV-2 Antigen Test",
			"value_text": "Pozitiv",
			"value_normalized": "POSITIVE",
			"test_date": "2024-01-15",
			"confidence": 0.98
		}
	]`

	observations, err := parseExtractedObservations(valid)
	require.NoError(t, err)
	require.Len(t, observations, 2)
	assert.Equal(t, "Blood Glucose", observations[0].SuggestedName)
	assert.Equal(t, "POSITIVE", *observations[1].ValueNormalized)

	cases := map[string]string{
		"not an array":        `{"lab_test_name": "Glucoza"}`,
		"bad vocabulary":      `[{"lab_test_name": "X", "suggested_standard_name": "X", "value_text": "weird", "value_normalized": "MAYBE", "test_date": "2024-01-15", "confidence": 1.0}]`,
		"bad date":            `[{"lab_test_name": "X", "suggested_standard_name": "X", "value": 1, "test_date": "15/01/2024", "confidence": 1.0}]`,
		"confidence over one": `[{"lab_test_name": "X", "suggested_standard_name": "X", "value": 1, "test_date": "2024-01-15", "confidence": 1.5}]`,
		"no value at all":     `[{"lab_test_name": "X", "suggested_standard_name": "X", "test_date": "2024-01-15", "confidence": 1.0}]`,
	}
	for name, text := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := parseExtractedObservations(text)
			assert.Error(t, err)
		})
	}
}
