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

type testTypeRepository struct {
	db *sqlx.DB
}

func NewTestTypeRepository(db *sqlx.DB) repository.TestTypeRepository {
	return &testTypeRepository{db: db}
}

func (r *testTypeRepository) Create(ctx context.Context, tt *model.TestType) error {
	query := `
		INSERT INTO test_types (id, standard_name, description, category, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	tt.CreatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		tt.ID,
		tt.StandardName,
		tt.Description,
		tt.Category,
		tt.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create test type: %w", err)
	}
	return nil
}

func (r *testTypeRepository) Get(ctx context.Context, id uuid.UUID) (*model.TestType, error) {
	query := `SELECT * FROM test_types WHERE id = $1`
	var tt model.TestType
	err := r.db.GetContext(ctx, &tt, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get test type: %w", err)
	}
	return &tt, nil
}

// GetByName is case-insensitive: it backs the deterministic duplicate guard,
// which must catch "blood glucose" against a stored "Blood Glucose".
func (r *testTypeRepository) GetByName(ctx context.Context, standardName string) (*model.TestType, error) {
	query := `SELECT * FROM test_types WHERE LOWER(standard_name) = LOWER($1)`
	var tt model.TestType
	err := r.db.GetContext(ctx, &tt, query, standardName)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get test type by name: %w", err)
	}
	return &tt, nil
}

func (r *testTypeRepository) List(ctx context.Context) ([]*model.TestType, error) {
	query := `SELECT * FROM test_types ORDER BY standard_name`
	var types []*model.TestType
	err := r.db.SelectContext(ctx, &types, query)
	return types, err
}
