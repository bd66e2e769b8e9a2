// Package llm holds the clients for the two external collaborators: the
// vision-capable extraction service and the disambiguation service consulted
// by the entity resolvers.
package llm

import (
	"context"

	"github.com/google/uuid"

	"github.com/labtrail/labtrail/internal/model"
)

// Usage is the token accounting for one collaborator call.
type Usage struct {
	Model        string
	InputTokens  int64
	OutputTokens int64
}

// Extractor turns document bytes into transient extracted shapes. A response
// that cannot be parsed into the expected shape is an error: extraction
// failures are fatal to the pipeline run.
type Extractor interface {
	ExtractLab(ctx context.Context, doc []byte) (*model.ExtractedLab, Usage, error)
	ExtractObservations(ctx context.Context, doc []byte, patient model.PatientContext) ([]model.ExtractedObservation, Usage, error)
}

// LabMatch is the disambiguation verdict for a laboratory. NotMatched is the
// zero value, so every parse-failure path degrades to it.
type LabMatch struct {
	Matched bool
	LabID   uuid.UUID
}

// TypeMatch is the disambiguation verdict for a test type.
type TypeMatch struct {
	Matched      bool
	StandardName string
}

// Disambiguator answers match/no-match questions for both resolvers. A
// malformed response is reported as no match, never as an error; only
// transport failures surface as errors.
type Disambiguator interface {
	MatchLab(ctx context.Context, extracted *model.ExtractedLab, candidates []*model.Lab) (LabMatch, Usage, error)
	MatchTestType(ctx context.Context, literalName, suggestedName string, existing []string) (TypeMatch, Usage, error)
}
