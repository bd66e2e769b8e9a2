package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/labtrail/labtrail/internal/model"
)

// ErrNotFound is returned by lookups that matched no row.
var ErrNotFound = errors.New("not found")

type PatientRepository interface {
	Create(ctx context.Context, patient *model.Patient) error
	Get(ctx context.Context, id uuid.UUID) (*model.Patient, error)
	List(ctx context.Context) ([]*model.Patient, error)
}

type LabRepository interface {
	Create(ctx context.Context, lab *model.Lab) error
	Get(ctx context.Context, id uuid.UUID) (*model.Lab, error)
	List(ctx context.Context) ([]*model.Lab, error)
}

type TestTypeRepository interface {
	Create(ctx context.Context, tt *model.TestType) error
	Get(ctx context.Context, id uuid.UUID) (*model.TestType, error)
	GetByName(ctx context.Context, standardName string) (*model.TestType, error)
	List(ctx context.Context) ([]*model.TestType, error)
}

type DocumentRepository interface {
	Create(ctx context.Context, doc *model.Document) error
	Get(ctx context.Context, id uuid.UUID) (*model.Document, error)
	GetByHash(ctx context.Context, contentHash string) (*model.Document, error)
	ListForPatient(ctx context.Context, patientID uuid.UUID) ([]*model.Document, error)
	AssignLab(ctx context.Context, id, labID uuid.UUID) error
	MarkProcessed(ctx context.Context, id uuid.UUID, tokenUsage []byte, cost *float64) error
	ClearProcessed(ctx context.Context, id uuid.UUID) error
}

type TestResultRepository interface {
	GetByNaturalKey(ctx context.Context, key model.NaturalKey) (*model.TestResult, error)
	Insert(ctx context.Context, result *model.TestResult) error
	Update(ctx context.Context, result *model.TestResult) error
	DeleteForDocument(ctx context.Context, documentID uuid.UUID) (int64, error)
	ListForPatient(ctx context.Context, patientID uuid.UUID) ([]*model.TimelineEntry, error)
	SeriesForType(ctx context.Context, patientID, testTypeID uuid.UUID) ([]*model.TestResult, error)
}

// IsUniqueViolation reports whether err is the storage engine rejecting a
// duplicate key, e.g. a racing insert on the test-result natural key.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
