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

type labRepository struct {
	db *sqlx.DB
}

func NewLabRepository(db *sqlx.DB) repository.LabRepository {
	return &labRepository{db: db}
}

func (r *labRepository) Create(ctx context.Context, lab *model.Lab) error {
	query := `
		INSERT INTO labs (id, name, address, phone, email, accreditation, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	lab.CreatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		lab.ID,
		lab.Name,
		lab.Address,
		lab.Phone,
		lab.Email,
		lab.Accreditation,
		lab.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create lab: %w", err)
	}
	return nil
}

func (r *labRepository) Get(ctx context.Context, id uuid.UUID) (*model.Lab, error) {
	query := `SELECT * FROM labs WHERE id = $1`
	var lab model.Lab
	err := r.db.GetContext(ctx, &lab, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get lab: %w", err)
	}
	return &lab, nil
}

func (r *labRepository) List(ctx context.Context) ([]*model.Lab, error) {
	query := `SELECT * FROM labs ORDER BY name`
	var labs []*model.Lab
	err := r.db.SelectContext(ctx, &labs, query)
	return labs, err
}
