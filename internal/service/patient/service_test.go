package patient

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/labtrail/labtrail/internal/model"
	"github.com/labtrail/labtrail/internal/repository"
	apperrors "github.com/labtrail/labtrail/pkg/errors"
)

type fakePatientRepo struct {
	patients map[uuid.UUID]*model.Patient
}

func newFakePatientRepo() *fakePatientRepo {
	return &fakePatientRepo{patients: map[uuid.UUID]*model.Patient{}}
}

func (f *fakePatientRepo) Create(_ context.Context, p *model.Patient) error {
	f.patients[p.ID] = p
	return nil
}

func (f *fakePatientRepo) Get(_ context.Context, id uuid.UUID) (*model.Patient, error) {
	if p, ok := f.patients[id]; ok {
		return p, nil
	}
	return nil, repository.ErrNotFound
}

func (f *fakePatientRepo) List(_ context.Context) ([]*model.Patient, error) {
	out := make([]*model.Patient, 0, len(f.patients))
	for _, p := range f.patients {
		out = append(out, p)
	}
	return out, nil
}

func TestCreatePatient(t *testing.T) {
	svc := NewService(newFakePatientRepo())

	created, err := svc.CreatePatient(context.Background(), &model.CreatePatientRequest{
		Name:        "Maria Ionescu",
		Sex:         "F",
		DateOfBirth: "1985-06-01",
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, created.ID)
	assert.Equal(t, model.SexFemale, created.Sex)
	assert.Equal(t, 1985, created.DateOfBirth.Year())
}

func TestCreatePatientRejectsBadDate(t *testing.T) {
	svc := NewService(newFakePatientRepo())

	_, err := svc.CreatePatient(context.Background(), &model.CreatePatientRequest{
		Name:        "Maria Ionescu",
		Sex:         "F",
		DateOfBirth: "01/06/1985",
	})
	assert.True(t, apperrors.Is(err, apperrors.ErrBadRequest))
}

func TestCreatePatientRejectsFutureDate(t *testing.T) {
	svc := NewService(newFakePatientRepo())

	future := time.Now().AddDate(1, 0, 0).Format("2006-01-02")
	_, err := svc.CreatePatient(context.Background(), &model.CreatePatientRequest{
		Name:        "Maria Ionescu",
		Sex:         "F",
		DateOfBirth: future,
	})
	assert.True(t, apperrors.Is(err, apperrors.ErrBadRequest))
}

func TestGetPatientNotFound(t *testing.T) {
	svc := NewService(newFakePatientRepo())

	_, err := svc.GetPatient(context.Background(), uuid.New())
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
}
