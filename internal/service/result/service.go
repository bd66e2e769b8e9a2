package result

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/labtrail/labtrail/internal/model"
	"github.com/labtrail/labtrail/internal/repository"
)

// Service is the upsert engine for observations. At most one row may exist
// per natural key (patient, test type, test date, lab) at any time; a later
// ingestion touching the same key updates the existing row instead of
// inserting a duplicate. This is how overlapping historical data re-extracted
// from different documents converges.
type Service struct {
	repo repository.TestResultRepository
}

func NewService(repo repository.TestResultRepository) *Service {
	return &Service{repo: repo}
}

// Upsert writes one observation under its natural key and reports whether a
// new row was created. On update, value fields, ranges, interpretation and
// the owning document are overwritten: the document of record for a key is
// always the most recently processed one.
func (s *Service) Upsert(ctx context.Context, result *model.TestResult) (uuid.UUID, bool, error) {
	if err := validate(result); err != nil {
		return uuid.Nil, false, err
	}

	key := result.NaturalKey()

	existing, err := s.repo.GetByNaturalKey(ctx, key)
	switch {
	case err == nil:
		if err := s.overwrite(ctx, existing, result); err != nil {
			return uuid.Nil, false, err
		}
		return existing.ID, false, nil
	case errors.Is(err, repository.ErrNotFound):
		// fall through to insert
	default:
		return uuid.Nil, false, fmt.Errorf("failed to look up natural key: %w", err)
	}

	result.ID = uuid.New()
	err = s.repo.Insert(ctx, result)
	if err == nil {
		return result.ID, true, nil
	}

	// A concurrent writer inserted the same key between our lookup and
	// insert. The storage-level unique constraint signals it; retry as an
	// update rather than surfacing an error.
	if repository.IsUniqueViolation(err) {
		existing, lookupErr := s.repo.GetByNaturalKey(ctx, key)
		if lookupErr != nil {
			return uuid.Nil, false, fmt.Errorf("failed to re-read racing row: %w", lookupErr)
		}
		if err := s.overwrite(ctx, existing, result); err != nil {
			return uuid.Nil, false, err
		}
		return existing.ID, false, nil
	}

	return uuid.Nil, false, err
}

// ListForPatient returns the patient's full timeline, newest first.
func (s *Service) ListForPatient(ctx context.Context, patientID uuid.UUID) ([]*model.TimelineEntry, error) {
	return s.repo.ListForPatient(ctx, patientID)
}

// SeriesForType returns one test type's history for a patient, oldest first.
func (s *Service) SeriesForType(ctx context.Context, patientID, testTypeID uuid.UUID) ([]*model.TestResult, error) {
	return s.repo.SeriesForType(ctx, patientID, testTypeID)
}

func (s *Service) overwrite(ctx context.Context, existing, incoming *model.TestResult) error {
	updated := *incoming
	updated.ID = existing.ID
	updated.CreatedAt = existing.CreatedAt
	if err := s.repo.Update(ctx, &updated); err != nil {
		return fmt.Errorf("failed to update test result: %w", err)
	}
	return nil
}

func validate(result *model.TestResult) error {
	if result.PatientID == uuid.Nil || result.TestTypeID == uuid.Nil ||
		result.LabID == uuid.Nil || result.DocumentID == uuid.Nil {
		return fmt.Errorf("test result is missing a required id")
	}
	if result.TestDate.IsZero() {
		return fmt.Errorf("test result has no test date")
	}
	if result.LabTestName == "" {
		return fmt.Errorf("test result has no lab test name")
	}
	if result.Value == nil && result.ValueText == nil {
		return fmt.Errorf("test result has neither numeric nor text value")
	}
	return nil
}
