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

type testResultRepository struct {
	db *sqlx.DB
}

func NewTestResultRepository(db *sqlx.DB) repository.TestResultRepository {
	return &testResultRepository{db: db}
}

func (r *testResultRepository) GetByNaturalKey(ctx context.Context, key model.NaturalKey) (*model.TestResult, error) {
	query := `
		SELECT * FROM test_results
		WHERE patient_id = $1 AND test_type_id = $2 AND test_date = $3 AND lab_id = $4
	`
	var result model.TestResult
	err := r.db.GetContext(ctx, &result, query, key.PatientID, key.TestTypeID, key.TestDate, key.LabID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get test result by natural key: %w", err)
	}
	return &result, nil
}

func (r *testResultRepository) Insert(ctx context.Context, result *model.TestResult) error {
	query := `
		INSERT INTO test_results (
			id, test_type_id, patient_id, document_id, lab_id, lab_test_name,
			value, value_text, value_normalized, unit, lower_limit, upper_limit,
			test_date, status, interpretation, notes, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18
		)
	`
	now := time.Now()
	result.CreatedAt = now
	result.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, query,
		result.ID,
		result.TestTypeID,
		result.PatientID,
		result.DocumentID,
		result.LabID,
		result.LabTestName,
		result.Value,
		result.ValueText,
		result.ValueNormalized,
		result.Unit,
		result.LowerLimit,
		result.UpperLimit,
		result.TestDate,
		result.Status,
		result.Interpretation,
		result.Notes,
		result.CreatedAt,
		result.UpdatedAt,
	)
	if err != nil {
		// Callers inspect this for a natural-key unique violation, so the
		// driver error must stay unwrapped in the chain.
		return fmt.Errorf("failed to insert test result: %w", err)
	}
	return nil
}

func (r *testResultRepository) Update(ctx context.Context, result *model.TestResult) error {
	query := `
		UPDATE test_results SET
			document_id = $1,
			lab_test_name = $2,
			value = $3,
			value_text = $4,
			value_normalized = $5,
			unit = $6,
			lower_limit = $7,
			upper_limit = $8,
			status = $9,
			interpretation = $10,
			notes = $11,
			updated_at = $12
		WHERE id = $13
	`
	result.UpdatedAt = time.Now()

	res, err := r.db.ExecContext(ctx, query,
		result.DocumentID,
		result.LabTestName,
		result.Value,
		result.ValueText,
		result.ValueNormalized,
		result.Unit,
		result.LowerLimit,
		result.UpperLimit,
		result.Status,
		result.Interpretation,
		result.Notes,
		result.UpdatedAt,
		result.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update test result: %w", err)
	}
	return requireRow(res)
}

func (r *testResultRepository) DeleteForDocument(ctx context.Context, documentID uuid.UUID) (int64, error) {
	query := `DELETE FROM test_results WHERE document_id = $1`
	res, err := r.db.ExecContext(ctx, query, documentID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete results for document: %w", err)
	}
	return res.RowsAffected()
}

func (r *testResultRepository) ListForPatient(ctx context.Context, patientID uuid.UUID) ([]*model.TimelineEntry, error) {
	query := `
		SELECT tr.*, tt.standard_name, tt.category
		FROM test_results tr
		JOIN test_types tt ON tr.test_type_id = tt.id
		WHERE tr.patient_id = $1
		ORDER BY tr.test_date DESC, tt.standard_name
	`
	var entries []*model.TimelineEntry
	err := r.db.SelectContext(ctx, &entries, query, patientID)
	return entries, err
}

func (r *testResultRepository) SeriesForType(ctx context.Context, patientID, testTypeID uuid.UUID) ([]*model.TestResult, error) {
	query := `
		SELECT * FROM test_results
		WHERE patient_id = $1 AND test_type_id = $2
		ORDER BY test_date ASC
	`
	var results []*model.TestResult
	err := r.db.SelectContext(ctx, &results, query, patientID, testTypeID)
	return results, err
}
