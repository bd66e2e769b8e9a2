package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/labtrail/labtrail/internal/model"
	"github.com/labtrail/labtrail/internal/repository"
)

type documentRepository struct {
	db *sqlx.DB
}

func NewDocumentRepository(db *sqlx.DB) repository.DocumentRepository {
	return &documentRepository{db: db}
}

func (r *documentRepository) Create(ctx context.Context, doc *model.Document) error {
	query := `
		INSERT INTO documents (id, patient_id, lab_id, file_path, content_hash, uploaded_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	now := time.Now()
	doc.UploadedAt = now
	doc.CreatedAt = now

	_, err := r.db.ExecContext(ctx, query,
		doc.ID,
		doc.PatientID,
		doc.LabID,
		doc.FilePath,
		doc.ContentHash,
		doc.UploadedAt,
		doc.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create document: %w", err)
	}
	return nil
}

func (r *documentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Document, error) {
	query := `SELECT * FROM documents WHERE id = $1`
	var doc model.Document
	err := r.db.GetContext(ctx, &doc, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return &doc, nil
}

func (r *documentRepository) GetByHash(ctx context.Context, contentHash string) (*model.Document, error) {
	query := `SELECT * FROM documents WHERE content_hash = $1`
	var doc model.Document
	err := r.db.GetContext(ctx, &doc, query, contentHash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document by hash: %w", err)
	}
	return &doc, nil
}

func (r *documentRepository) ListForPatient(ctx context.Context, patientID uuid.UUID) ([]*model.Document, error) {
	query := `SELECT * FROM documents WHERE patient_id = $1 ORDER BY uploaded_at DESC`
	var docs []*model.Document
	err := r.db.SelectContext(ctx, &docs, query, patientID)
	return docs, err
}

func (r *documentRepository) AssignLab(ctx context.Context, id, labID uuid.UUID) error {
	query := `UPDATE documents SET lab_id = $1 WHERE id = $2`
	res, err := r.db.ExecContext(ctx, query, labID, id)
	if err != nil {
		return fmt.Errorf("failed to assign lab: %w", err)
	}
	return requireRow(res)
}

func (r *documentRepository) MarkProcessed(ctx context.Context, id uuid.UUID, tokenUsage []byte, cost *float64) error {
	query := `UPDATE documents SET processed_at = $1, token_usage = $2, cost = $3 WHERE id = $4`
	res, err := r.db.ExecContext(ctx, query, time.Now(), tokenUsage, cost, id)
	if err != nil {
		return fmt.Errorf("failed to mark document processed: %w", err)
	}
	return requireRow(res)
}

func (r *documentRepository) ClearProcessed(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE documents SET processed_at = NULL, token_usage = NULL, cost = NULL WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to clear processed state: %w", err)
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}
