package document

import (
	"bytes"
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/labtrail/labtrail/internal/model"
	"github.com/labtrail/labtrail/internal/repository"
)

type fakeDocRepo struct {
	docs map[uuid.UUID]*model.Document
}

func newFakeDocRepo() *fakeDocRepo {
	return &fakeDocRepo{docs: map[uuid.UUID]*model.Document{}}
}

func (f *fakeDocRepo) Create(_ context.Context, doc *model.Document) error {
	doc.UploadedAt = time.Now()
	copied := *doc
	f.docs[doc.ID] = &copied
	return nil
}

func (f *fakeDocRepo) Get(_ context.Context, id uuid.UUID) (*model.Document, error) {
	if doc, ok := f.docs[id]; ok {
		copied := *doc
		return &copied, nil
	}
	return nil, repository.ErrNotFound
}

func (f *fakeDocRepo) GetByHash(_ context.Context, hash string) (*model.Document, error) {
	for _, doc := range f.docs {
		if doc.ContentHash == hash {
			copied := *doc
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeDocRepo) ListForPatient(_ context.Context, patientID uuid.UUID) ([]*model.Document, error) {
	var out []*model.Document
	for _, doc := range f.docs {
		if doc.PatientID == patientID {
			copied := *doc
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (f *fakeDocRepo) AssignLab(_ context.Context, id, labID uuid.UUID) error {
	doc, ok := f.docs[id]
	if !ok {
		return repository.ErrNotFound
	}
	doc.LabID = &labID
	return nil
}

func (f *fakeDocRepo) MarkProcessed(_ context.Context, id uuid.UUID, tokenUsage []byte, cost *float64) error {
	doc, ok := f.docs[id]
	if !ok {
		return repository.ErrNotFound
	}
	now := time.Now()
	doc.ProcessedAt = &now
	doc.TokenUsage = tokenUsage
	doc.Cost = cost
	return nil
}

func (f *fakeDocRepo) ClearProcessed(_ context.Context, id uuid.UUID) error {
	doc, ok := f.docs[id]
	if !ok {
		return repository.ErrNotFound
	}
	doc.ProcessedAt = nil
	doc.TokenUsage = nil
	doc.Cost = nil
	return nil
}

type fakeResultRepo struct {
	byDocument map[uuid.UUID]int64
	deleted    []uuid.UUID
}

func (f *fakeResultRepo) GetByNaturalKey(_ context.Context, _ model.NaturalKey) (*model.TestResult, error) {
	return nil, repository.ErrNotFound
}
func (f *fakeResultRepo) Insert(_ context.Context, _ *model.TestResult) error { return nil }
func (f *fakeResultRepo) Update(_ context.Context, _ *model.TestResult) error { return nil }

func (f *fakeResultRepo) DeleteForDocument(_ context.Context, documentID uuid.UUID) (int64, error) {
	n := f.byDocument[documentID]
	delete(f.byDocument, documentID)
	f.deleted = append(f.deleted, documentID)
	return n, nil
}

func (f *fakeResultRepo) ListForPatient(_ context.Context, _ uuid.UUID) ([]*model.TimelineEntry, error) {
	return nil, nil
}

func (f *fakeResultRepo) SeriesForType(_ context.Context, _, _ uuid.UUID) ([]*model.TestResult, error) {
	return nil, nil
}

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

func (f *fakePatientRepo) List(_ context.Context) ([]*model.Patient, error) { return nil, nil }

func newTestService(t *testing.T) (*Service, *fakeDocRepo, *fakeResultRepo, uuid.UUID, string) {
	t.Helper()
	dir := t.TempDir()
	docs := newFakeDocRepo()
	results := &fakeResultRepo{byDocument: map[uuid.UUID]int64{}}
	patientID := uuid.New()
	patients := &fakePatientRepo{patients: map[uuid.UUID]*model.Patient{
		patientID: {Base: model.Base{ID: patientID}, Name: "Test Patient", Sex: model.SexFemale},
	}}
	return NewService(docs, results, patients, dir), docs, results, patientID, dir
}

func TestUploadStoresFileAndCreatesDocument(t *testing.T) {
	svc, docs, _, patientID, dir := newTestService(t)

	doc, duplicate, err := svc.Upload(context.Background(), patientID, "report 2024.pdf", bytes.NewReader([]byte("%PDF-1.4 content")))
	require.NoError(t, err)
	assert.False(t, duplicate)
	assert.Len(t, docs.docs, 1)
	assert.NotEmpty(t, doc.ContentHash)
	assert.Nil(t, doc.ProcessedAt)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, doc.ID.String()+"_report_2024.pdf", entries[0].Name())
}

func TestUploadDuplicateReturnsExistingAndDiscardsCopy(t *testing.T) {
	svc, docs, _, patientID, dir := newTestService(t)
	content := []byte("%PDF-1.4 identical bytes")

	first, duplicate, err := svc.Upload(context.Background(), patientID, "a.pdf", bytes.NewReader(content))
	require.NoError(t, err)
	require.False(t, duplicate)

	second, duplicate, err := svc.Upload(context.Background(), patientID, "b.pdf", bytes.NewReader(content))
	require.NoError(t, err)
	assert.True(t, duplicate)
	assert.Equal(t, first.ID, second.ID, "fingerprint lookup must return the original document")
	assert.Len(t, docs.docs, 1)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "the duplicate copy must not be retained")
}

func TestUploadDuplicateSameFilenameKeepsStoredFile(t *testing.T) {
	svc, docs, _, patientID, _ := newTestService(t)
	content := []byte("%PDF-1.4 identical bytes")

	first, duplicate, err := svc.Upload(context.Background(), patientID, "report.pdf", bytes.NewReader(content))
	require.NoError(t, err)
	require.False(t, duplicate)

	second, duplicate, err := svc.Upload(context.Background(), patientID, "report.pdf", bytes.NewReader(content))
	require.NoError(t, err)
	assert.True(t, duplicate)
	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, docs.docs, 1)

	// The original's stored file must survive the discarded duplicate, so
	// the document stays processable.
	stored, err := os.ReadFile(first.FilePath)
	require.NoError(t, err)
	assert.Equal(t, content, stored)
}

func TestUploadDifferentBytesIsNewDocument(t *testing.T) {
	svc, docs, _, patientID, _ := newTestService(t)

	first, duplicate, err := svc.Upload(context.Background(), patientID, "a.pdf", bytes.NewReader([]byte("version one")))
	require.NoError(t, err)
	require.False(t, duplicate)

	// Even a single differing byte is a wholly new document, and reusing
	// the filename must not clobber the first document's stored file.
	second, duplicate, err := svc.Upload(context.Background(), patientID, "a.pdf", bytes.NewReader([]byte("version two")))
	require.NoError(t, err)
	assert.False(t, duplicate)
	assert.Len(t, docs.docs, 2)
	assert.NotEqual(t, first.FilePath, second.FilePath)

	stored, err := os.ReadFile(first.FilePath)
	require.NoError(t, err)
	assert.Equal(t, []byte("version one"), stored)
}

func TestUploadUnknownPatient(t *testing.T) {
	svc, _, _, _, _ := newTestService(t)

	_, _, err := svc.Upload(context.Background(), uuid.New(), "a.pdf", bytes.NewReader([]byte("x")))
	assert.Error(t, err)
}

func TestReprocessPurgesOwnObservationsOnly(t *testing.T) {
	svc, _, results, patientID, _ := newTestService(t)

	doc, _, err := svc.Upload(context.Background(), patientID, "a.pdf", bytes.NewReader([]byte("doc a")))
	require.NoError(t, err)
	other, _, err := svc.Upload(context.Background(), patientID, "b.pdf", bytes.NewReader([]byte("doc b")))
	require.NoError(t, err)

	require.NoError(t, svc.MarkProcessed(context.Background(), doc.ID, model.UsageReport{}, nil))
	results.byDocument[doc.ID] = 3
	results.byDocument[other.ID] = 2

	purged, err := svc.Reprocess(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), purged)
	assert.Equal(t, []uuid.UUID{doc.ID}, results.deleted)
	assert.Equal(t, int64(2), results.byDocument[other.ID], "other documents' observations untouched")

	reloaded, err := svc.Get(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Nil(t, reloaded.ProcessedAt, "document back to unprocessed")
	assert.Nil(t, reloaded.TokenUsage)
}

func TestReprocessKeepsLabLink(t *testing.T) {
	svc, docs, _, patientID, _ := newTestService(t)

	doc, _, err := svc.Upload(context.Background(), patientID, "a.pdf", bytes.NewReader([]byte("doc a")))
	require.NoError(t, err)

	labID := uuid.New()
	require.NoError(t, svc.AssignLab(context.Background(), doc.ID, labID))
	require.NoError(t, svc.MarkProcessed(context.Background(), doc.ID, model.UsageReport{}, nil))

	_, err = svc.Reprocess(context.Background(), doc.ID)
	require.NoError(t, err)

	reloaded := docs.docs[doc.ID]
	require.NotNil(t, reloaded.LabID)
	assert.Equal(t, labID, *reloaded.LabID)
}

func TestReprocessUnknownDocument(t *testing.T) {
	svc, _, _, _, _ := newTestService(t)

	_, err := svc.Reprocess(context.Background(), uuid.New())
	assert.Error(t, err)
}

func TestMarkProcessedRecordsUsage(t *testing.T) {
	svc, docs, _, patientID, _ := newTestService(t)

	doc, _, err := svc.Upload(context.Background(), patientID, "a.pdf", bytes.NewReader([]byte("doc a")))
	require.NoError(t, err)

	usage := model.UsageReport{}
	usage.Add("gemini-2.5-flash", 1000, 400)
	usage.Add("claude-haiku-4-5", 300, 50)
	usage.Add("claude-haiku-4-5", 200, 30)

	cost := 0.0123
	require.NoError(t, svc.MarkProcessed(context.Background(), doc.ID, usage, &cost))

	stored := docs.docs[doc.ID]
	require.NotNil(t, stored.ProcessedAt)
	assert.Contains(t, string(stored.TokenUsage), `"gemini-2.5-flash"`)
	assert.Contains(t, string(stored.TokenUsage), `"input":500`)
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "report_2024.pdf", sanitizeFilename("report 2024.pdf"))
	assert.Equal(t, "evil.pdf", sanitizeFilename("../../evil.pdf"))
	assert.Equal(t, "document.pdf", sanitizeFilename("???"))
}
