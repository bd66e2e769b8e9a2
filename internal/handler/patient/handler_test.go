package patient

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/labtrail/labtrail/internal/model"
	"github.com/labtrail/labtrail/internal/repository"
	"github.com/labtrail/labtrail/internal/service/patient"
	"github.com/labtrail/labtrail/internal/service/result"
)

type fakePatientRepo struct {
	patients map[uuid.UUID]*model.Patient
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

type fakeResultRepo struct {
	timeline []*model.TimelineEntry
}

func (f *fakeResultRepo) GetByNaturalKey(_ context.Context, _ model.NaturalKey) (*model.TestResult, error) {
	return nil, repository.ErrNotFound
}

func (f *fakeResultRepo) Insert(_ context.Context, _ *model.TestResult) error  { return nil }
func (f *fakeResultRepo) Update(_ context.Context, _ *model.TestResult) error  { return nil }
func (f *fakeResultRepo) DeleteForDocument(_ context.Context, _ uuid.UUID) (int64, error) {
	return 0, nil
}

func (f *fakeResultRepo) ListForPatient(_ context.Context, _ uuid.UUID) ([]*model.TimelineEntry, error) {
	return f.timeline, nil
}

func (f *fakeResultRepo) SeriesForType(_ context.Context, _, _ uuid.UUID) ([]*model.TestResult, error) {
	return nil, nil
}

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newTestRouter(t *testing.T, patientRepo *fakePatientRepo, resultRepo *fakeResultRepo) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	h := NewHandler(patient.NewService(patientRepo), result.NewService(resultRepo), nil)
	r := gin.New()
	h.RegisterRoutes(r.Group("/api/v1"))
	return r
}

func TestCreatePatientEndpoint(t *testing.T) {
	repo := &fakePatientRepo{patients: map[uuid.UUID]*model.Patient{}}
	r := newTestRouter(t, repo, &fakeResultRepo{})

	body, _ := json.Marshal(gin.H{
		"name":          "Maria Ionescu",
		"sex":           "F",
		"date_of_birth": "1985-06-01",
	})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/patients", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)

	var resp envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "success", resp.Status)

	var created model.Patient
	require.NoError(t, json.Unmarshal(resp.Data, &created))
	assert.NotEqual(t, uuid.Nil, created.ID)
	assert.Len(t, repo.patients, 1)
}

func TestCreatePatientEndpointRejectsMissingFields(t *testing.T) {
	r := newTestRouter(t, &fakePatientRepo{patients: map[uuid.UUID]*model.Patient{}}, &fakeResultRepo{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/patients", bytes.NewReader([]byte(`{"name":"x"}`)))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
}

func TestGetPatientEndpointNotFound(t *testing.T) {
	r := newTestRouter(t, &fakePatientRepo{patients: map[uuid.UUID]*model.Patient{}}, &fakeResultRepo{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/patients/"+uuid.NewString(), nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetPatientEndpointRejectsBadID(t *testing.T) {
	r := newTestRouter(t, &fakePatientRepo{patients: map[uuid.UUID]*model.Patient{}}, &fakeResultRepo{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/patients/not-a-uuid", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListResultsEndpoint(t *testing.T) {
	p := &model.Patient{
		Base:        model.Base{ID: uuid.New()},
		Name:        "Maria Ionescu",
		Sex:         model.SexFemale,
		DateOfBirth: time.Date(1985, 6, 1, 0, 0, 0, 0, time.UTC),
	}
	value := 95.0
	resultRepo := &fakeResultRepo{timeline: []*model.TimelineEntry{
		{
			TestResult: model.TestResult{
				Base:      model.Base{ID: uuid.New()},
				PatientID: p.ID,
				Value:     &value,
				TestDate:  time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
			},
			StandardName: "Blood Glucose",
		},
	}}
	r := newTestRouter(t, &fakePatientRepo{patients: map[uuid.UUID]*model.Patient{p.ID: p}}, resultRepo)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/patients/"+p.ID.String()+"/results", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "success", resp.Status)
	assert.Contains(t, string(resp.Data), "Blood Glucose")
}
