package document

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/labtrail/labtrail/internal/model"
	"github.com/labtrail/labtrail/internal/repository"
	apperrors "github.com/labtrail/labtrail/pkg/errors"
	"github.com/labtrail/labtrail/pkg/fingerprint"
)

var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// Service tracks the document lifecycle: uploaded, lab-assigned, processed,
// and back to uploaded on reprocess. Upload performs the content
// deduplication: byte-identical re-uploads return the existing document and
// the new copy is discarded.
type Service struct {
	docs      repository.DocumentRepository
	results   repository.TestResultRepository
	patients  repository.PatientRepository
	uploadDir string
}

func NewService(docs repository.DocumentRepository, results repository.TestResultRepository, patients repository.PatientRepository, uploadDir string) *Service {
	return &Service{
		docs:      docs,
		results:   results,
		patients:  patients,
		uploadDir: uploadDir,
	}
}

// Upload stores the file, fingerprints it and creates a document record.
// When the fingerprint already exists the prior document is returned with
// duplicate=true and the new copy is discarded. The incoming bytes land in a
// temporary file first and are only renamed to a per-document path once the
// upload is known to be new, so a duplicate or colliding filename can never
// touch an existing document's stored file.
func (s *Service) Upload(ctx context.Context, patientID uuid.UUID, filename string, content io.Reader) (*model.Document, bool, error) {
	if _, err := s.patients.Get(ctx, patientID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, false, apperrors.NotFound("patient", err)
		}
		return nil, false, fmt.Errorf("failed to load patient: %w", err)
	}

	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		return nil, false, fmt.Errorf("failed to create upload dir: %w", err)
	}

	tmp, err := os.CreateTemp(s.uploadDir, ".upload-*")
	if err != nil {
		return nil, false, fmt.Errorf("failed to store upload: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := io.Copy(tmp, content); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return nil, false, fmt.Errorf("failed to write upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return nil, false, fmt.Errorf("failed to write upload: %w", err)
	}

	hash, err := fingerprint.File(tmpPath)
	if err != nil {
		os.Remove(tmpPath)
		return nil, false, err
	}

	existing, err := s.docs.GetByHash(ctx, hash)
	if err == nil {
		// Exact duplicate: the original document keeps its stored file.
		if removeErr := os.Remove(tmpPath); removeErr != nil {
			log.Warn().Err(removeErr).Str("path", tmpPath).Msg("failed to remove duplicate upload")
		}
		return existing, true, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		os.Remove(tmpPath)
		return nil, false, fmt.Errorf("failed to check fingerprint: %w", err)
	}

	doc := &model.Document{
		Base:        model.Base{ID: uuid.New()},
		PatientID:   patientID,
		ContentHash: hash,
	}
	path := filepath.Join(s.uploadDir, fmt.Sprintf("%s_%s", doc.ID, sanitizeFilename(filename)))
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return nil, false, fmt.Errorf("failed to store upload: %w", err)
	}
	doc.FilePath = path

	if err := s.docs.Create(ctx, doc); err != nil {
		os.Remove(path)
		return nil, false, fmt.Errorf("failed to create document: %w", err)
	}
	return doc, false, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Document, error) {
	doc, err := s.docs.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NotFound("document", err)
	}
	return doc, err
}

func (s *Service) ListForPatient(ctx context.Context, patientID uuid.UUID) ([]*model.Document, error) {
	return s.docs.ListForPatient(ctx, patientID)
}

func (s *Service) AssignLab(ctx context.Context, id, labID uuid.UUID) error {
	err := s.docs.AssignLab(ctx, id, labID)
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NotFound("document", err)
	}
	return err
}

// MarkProcessed records the run's resource usage and stamps processed_at.
func (s *Service) MarkProcessed(ctx context.Context, id uuid.UUID, usage model.UsageReport, cost *float64) error {
	payload, err := json.Marshal(usage)
	if err != nil {
		return fmt.Errorf("failed to encode usage report: %w", err)
	}
	err = s.docs.MarkProcessed(ctx, id, payload, cost)
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NotFound("document", err)
	}
	return err
}

// Reprocess deletes all observations the document owns and returns it to
// the uploaded state. The document row, its stored file and its lab link are
// kept, so the same file can be run through extraction again.
func (s *Service) Reprocess(ctx context.Context, id uuid.UUID) (int64, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return 0, err
	}

	purged, err := s.results.DeleteForDocument(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("failed to purge observations: %w", err)
	}
	if err := s.docs.ClearProcessed(ctx, id); err != nil {
		return purged, fmt.Errorf("failed to reset document: %w", err)
	}

	log.Info().
		Str("document_id", id.String()).
		Int64("purged", purged).
		Msg("document reset for reprocessing")
	return purged, nil
}

func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	name = unsafeFilenameChars.ReplaceAllString(name, "_")
	name = strings.Trim(name, "._")
	if name == "" {
		name = "document.pdf"
	}
	return name
}
