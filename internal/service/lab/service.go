package lab

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/labtrail/labtrail/internal/llm"
	"github.com/labtrail/labtrail/internal/model"
	"github.com/labtrail/labtrail/internal/repository"
	apperrors "github.com/labtrail/labtrail/pkg/errors"
)

// Service resolves an extracted laboratory description against the registry
// of previously seen labs. Resolution is total: given a valid extraction it
// always produces a lab, creating one when no confident match exists. The
// failure mode is asymmetric on purpose: a duplicate lab row is acceptable,
// merging two distinct labs is not.
type Service struct {
	repo repository.LabRepository
	dis  llm.Disambiguator
}

func NewService(repo repository.LabRepository, dis llm.Disambiguator) *Service {
	return &Service{repo: repo, dis: dis}
}

// Resolve returns the existing lab the extraction refers to, or a freshly
// created one. The returned usage covers the disambiguation call, if any.
func (s *Service) Resolve(ctx context.Context, extracted *model.ExtractedLab) (*model.Lab, llm.Usage, error) {
	if err := extracted.Validate(); err != nil {
		return nil, llm.Usage{}, fmt.Errorf("invalid extracted lab: %w", err)
	}

	candidates, err := s.repo.List(ctx)
	if err != nil {
		return nil, llm.Usage{}, fmt.Errorf("failed to list labs: %w", err)
	}

	if len(candidates) == 0 {
		lab, err := s.create(ctx, extracted)
		return lab, llm.Usage{}, err
	}

	match, usage, err := s.dis.MatchLab(ctx, extracted, candidates)
	if err != nil {
		// Transport failure aborts the run; only malformed responses
		// degrade to no-match inside the disambiguator.
		return nil, usage, fmt.Errorf("lab disambiguation failed: %w", err)
	}

	if match.Matched {
		// Re-validate against the candidate set fetched above: the id may
		// be stale or hallucinated, and a dangling id is a non-match.
		if lab := findByID(candidates, match.LabID); lab != nil {
			return lab, usage, nil
		}
		log.Warn().
			Str("lab_id", match.LabID.String()).
			Str("extracted_name", extracted.Name).
			Msg("disambiguator matched unknown lab id, creating new lab")
	}

	lab, err := s.create(ctx, extracted)
	return lab, usage, err
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Lab, error) {
	lab, err := s.repo.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NotFound("lab", err)
	}
	return lab, err
}

func (s *Service) List(ctx context.Context) ([]*model.Lab, error) {
	return s.repo.List(ctx)
}

func (s *Service) create(ctx context.Context, extracted *model.ExtractedLab) (*model.Lab, error) {
	lab := &model.Lab{
		Base:          model.Base{ID: uuid.New()},
		Name:          extracted.Name,
		Address:       extracted.Address,
		Phone:         extracted.Phone,
		Email:         extracted.Email,
		Accreditation: extracted.Accreditation,
	}
	if err := s.repo.Create(ctx, lab); err != nil {
		return nil, fmt.Errorf("failed to create lab: %w", err)
	}
	return lab, nil
}

func findByID(labs []*model.Lab, id uuid.UUID) *model.Lab {
	for _, lab := range labs {
		if lab.ID == id {
			return lab
		}
	}
	return nil
}
