package testtype

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog/log"

	"github.com/labtrail/labtrail/internal/llm"
	"github.com/labtrail/labtrail/internal/model"
	"github.com/labtrail/labtrail/internal/repository"
	apperrors "github.com/labtrail/labtrail/pkg/errors"
)

const (
	registryCacheKey = "test_types"
	registryCacheTTL = 30 * time.Second
)

// Service resolves an extracted test name against the registry of canonical
// test types. Two layers guard against duplicates: the semantic matcher
// handles genuinely different phrasings ("Glucoza" vs "Blood Glucose"), and
// a deterministic case-insensitive name check catches the matcher's own
// inconsistency. Resolution is total.
type Service struct {
	repo  repository.TestTypeRepository
	dis   llm.Disambiguator
	cache *gocache.Cache
}

func NewService(repo repository.TestTypeRepository, dis llm.Disambiguator) *Service {
	return &Service{
		repo:  repo,
		dis:   dis,
		cache: gocache.New(registryCacheTTL, time.Minute),
	}
}

// Resolve returns the canonical test type for one extracted observation.
func (s *Service) Resolve(ctx context.Context, extracted *model.ExtractedObservation) (*model.TestType, llm.Usage, error) {
	registry, err := s.listRegistry(ctx)
	if err != nil {
		return nil, llm.Usage{}, fmt.Errorf("failed to list test types: %w", err)
	}

	if len(registry) == 0 {
		tt, err := s.create(ctx, extracted.SuggestedName)
		return tt, llm.Usage{}, err
	}

	names := make([]string, len(registry))
	for i, tt := range registry {
		names[i] = tt.StandardName
	}

	match, usage, err := s.dis.MatchTestType(ctx, extracted.LabTestName, extracted.SuggestedName, names)
	if err != nil {
		return nil, usage, fmt.Errorf("test type disambiguation failed: %w", err)
	}

	if match.Matched {
		if tt := findByName(registry, match.StandardName); tt != nil {
			return tt, usage, nil
		}
		// The matcher reported a name that is not actually in the registry.
		// Fall through to creation, where the safety net gets another look.
		log.Warn().
			Str("standard_name", match.StandardName).
			Str("lab_test_name", extracted.LabTestName).
			Msg("disambiguator matched unknown test type name")
	}

	// Safety net, independent of the matcher's verdict: an exact
	// case-insensitive hit on the chosen name reuses the existing type.
	if tt := findByNameFold(registry, match.StandardName); tt != nil {
		return tt, usage, nil
	}

	// The cached registry can lag behind the store by up to the cache TTL,
	// so check the store itself before creating.
	tt, err := s.repo.GetByName(ctx, match.StandardName)
	if err == nil {
		return tt, usage, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, usage, fmt.Errorf("failed to look up test type by name: %w", err)
	}

	tt, err = s.create(ctx, match.StandardName)
	return tt, usage, err
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.TestType, error) {
	tt, err := s.repo.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NotFound("test type", err)
	}
	return tt, err
}

func (s *Service) List(ctx context.Context) ([]*model.TestType, error) {
	return s.repo.List(ctx)
}

func (s *Service) listRegistry(ctx context.Context) ([]*model.TestType, error) {
	if cached, ok := s.cache.Get(registryCacheKey); ok {
		return cached.([]*model.TestType), nil
	}
	registry, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	s.cache.Set(registryCacheKey, registry, registryCacheTTL)
	return registry, nil
}

func (s *Service) create(ctx context.Context, standardName string) (*model.TestType, error) {
	tt := &model.TestType{
		Base:         model.Base{ID: uuid.New()},
		StandardName: standardName,
	}
	if err := s.repo.Create(ctx, tt); err != nil {
		return nil, fmt.Errorf("failed to create test type: %w", err)
	}
	s.cache.Delete(registryCacheKey)
	return tt, nil
}

func findByName(registry []*model.TestType, name string) *model.TestType {
	for _, tt := range registry {
		if tt.StandardName == name {
			return tt
		}
	}
	return nil
}

func findByNameFold(registry []*model.TestType, name string) *model.TestType {
	for _, tt := range registry {
		if strings.EqualFold(tt.StandardName, name) {
			return tt
		}
	}
	return nil
}
