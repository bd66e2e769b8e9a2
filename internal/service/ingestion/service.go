package ingestion

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/labtrail/labtrail/internal/llm"
	"github.com/labtrail/labtrail/internal/model"
	"github.com/labtrail/labtrail/internal/repository"
	"github.com/labtrail/labtrail/internal/service/document"
	"github.com/labtrail/labtrail/internal/service/lab"
	"github.com/labtrail/labtrail/internal/service/result"
	"github.com/labtrail/labtrail/internal/service/testtype"
	"github.com/labtrail/labtrail/pkg/circuitbreaker"
	apperrors "github.com/labtrail/labtrail/pkg/errors"
	"github.com/labtrail/labtrail/pkg/metrics"
)

// Report summarizes one pipeline run.
type Report struct {
	DocumentID uuid.UUID   `json:"document_id"`
	LabID      uuid.UUID   `json:"lab_id"`
	LabName    string      `json:"lab_name"`
	Extracted  int         `json:"extracted_count"`
	Created    int         `json:"created_count"`
	Updated    int         `json:"updated_count"`
	ResultIDs  []uuid.UUID `json:"result_ids"`
}

// Service runs the per-document pipeline: extract, resolve lab, resolve each
// test type, upsert each observation, record usage, mark processed.
// Processing is synchronous and single-flight per request; callers must
// serialize reprocessing of a given document. A collaborator failure aborts
// the whole run and leaves the document in its prior state; writes already
// committed before the failure are repaired by the upsert on the next run.
type Service struct {
	documents *document.Service
	labs      *lab.Service
	types     *testtype.Service
	results   *result.Service
	patients  repository.PatientRepository
	extractor llm.Extractor

	extractBreaker  *circuitbreaker.CircuitBreaker
	resolverBreaker *circuitbreaker.CircuitBreaker
	metrics         *metrics.Metrics
}

func NewService(
	documents *document.Service,
	labs *lab.Service,
	types *testtype.Service,
	results *result.Service,
	patients repository.PatientRepository,
	extractor llm.Extractor,
	m *metrics.Metrics,
) *Service {
	return &Service{
		documents: documents,
		labs:      labs,
		types:     types,
		results:   results,
		patients:  patients,
		extractor: extractor,
		extractBreaker: circuitbreaker.New(circuitbreaker.Settings{
			Name: "extraction", MaxFailures: 3, Cooldown: time.Minute,
		}),
		resolverBreaker: circuitbreaker.New(circuitbreaker.Settings{
			Name: "disambiguation", MaxFailures: 5, Cooldown: time.Minute,
		}),
		metrics: m,
	}
}

// Process runs the full pipeline for an already uploaded document.
func (s *Service) Process(ctx context.Context, documentID uuid.UUID) (*Report, error) {
	started := time.Now()

	report, err := s.process(ctx, documentID)
	if err != nil {
		if s.metrics != nil {
			s.metrics.DocumentsFailed.Inc()
		}
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.DocumentsProcessed.Inc()
		s.metrics.PipelineDuration.Observe(time.Since(started).Seconds())
	}
	return report, nil
}

func (s *Service) process(ctx context.Context, documentID uuid.UUID) (*Report, error) {
	doc, err := s.documents.Get(ctx, documentID)
	if err != nil {
		return nil, err
	}

	patient, err := s.patients.Get(ctx, doc.PatientID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("patient", err)
		}
		return nil, fmt.Errorf("failed to load patient: %w", err)
	}

	content, err := os.ReadFile(doc.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read stored document: %w", err)
	}

	usage := model.UsageReport{}

	extractedLab, extractedObservations, err := s.extract(ctx, content, patient, usage)
	if err != nil {
		return nil, err
	}

	resolvedLab, labUsage, err := s.resolveLab(ctx, extractedLab)
	s.recordUsage(usage, labUsage)
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.EntitiesResolved.WithLabelValues("lab", "resolved").Inc()
	}

	if err := s.documents.AssignLab(ctx, doc.ID, resolvedLab.ID); err != nil {
		return nil, err
	}

	report := &Report{
		DocumentID: doc.ID,
		LabID:      resolvedLab.ID,
		LabName:    resolvedLab.Name,
		Extracted:  len(extractedObservations),
	}

	for i := range extractedObservations {
		extracted := &extractedObservations[i]

		resolvedType, typeUsage, err := s.resolveType(ctx, extracted)
		s.recordUsage(usage, typeUsage)
		if err != nil {
			return nil, err
		}

		testResult, err := buildResult(extracted, patient.ID, doc.ID, resolvedLab.ID, resolvedType.ID)
		if err != nil {
			return nil, err
		}

		id, created, err := s.results.Upsert(ctx, testResult)
		if err != nil {
			return nil, fmt.Errorf("failed to upsert observation %q: %w", extracted.LabTestName, err)
		}
		report.ResultIDs = append(report.ResultIDs, id)
		if created {
			report.Created++
		} else {
			report.Updated++
		}
		if s.metrics != nil {
			outcome := "updated"
			if created {
				outcome = "created"
			}
			s.metrics.ObservationsUpserted.WithLabelValues(outcome).Inc()
		}
	}

	if err := s.documents.MarkProcessed(ctx, doc.ID, usage, nil); err != nil {
		return nil, err
	}

	log.Info().
		Str("document_id", doc.ID.String()).
		Str("lab", resolvedLab.Name).
		Int("extracted", report.Extracted).
		Int("created", report.Created).
		Int("updated", report.Updated).
		Msg("document processed")

	return report, nil
}

func (s *Service) extract(ctx context.Context, content []byte, patient *model.Patient, usage model.UsageReport) (*model.ExtractedLab, []model.ExtractedObservation, error) {
	patientCtx := model.PatientContext{Sex: patient.Sex, Age: patient.Age(time.Now())}

	var extractedLab *model.ExtractedLab
	var observations []model.ExtractedObservation

	err := s.extractBreaker.Execute(func() error {
		var labUsage, obsUsage llm.Usage
		var err error

		extractedLab, labUsage, err = s.extractor.ExtractLab(ctx, content)
		s.recordUsage(usage, labUsage)
		if err != nil {
			return err
		}

		observations, obsUsage, err = s.extractor.ExtractObservations(ctx, content, patientCtx)
		s.recordUsage(usage, obsUsage)
		return err
	})
	if err != nil {
		if s.metrics != nil {
			s.metrics.CollaboratorErrors.WithLabelValues("extraction").Inc()
		}
		return nil, nil, apperrors.Unavailable("extraction failed", err)
	}
	return extractedLab, observations, nil
}

func (s *Service) resolveLab(ctx context.Context, extracted *model.ExtractedLab) (*model.Lab, llm.Usage, error) {
	var resolved *model.Lab
	var usage llm.Usage

	err := s.resolverBreaker.Execute(func() error {
		var err error
		resolved, usage, err = s.labs.Resolve(ctx, extracted)
		return err
	})
	if err != nil {
		if s.metrics != nil {
			s.metrics.CollaboratorErrors.WithLabelValues("lab_resolution").Inc()
		}
		return nil, usage, apperrors.Unavailable("lab resolution failed", err)
	}
	return resolved, usage, nil
}

func (s *Service) resolveType(ctx context.Context, extracted *model.ExtractedObservation) (*model.TestType, llm.Usage, error) {
	var resolved *model.TestType
	var usage llm.Usage

	err := s.resolverBreaker.Execute(func() error {
		var err error
		resolved, usage, err = s.types.Resolve(ctx, extracted)
		return err
	})
	if err != nil {
		if s.metrics != nil {
			s.metrics.CollaboratorErrors.WithLabelValues("testtype_resolution").Inc()
		}
		return nil, usage, apperrors.Unavailable("test type resolution failed", err)
	}
	return resolved, usage, nil
}

func (s *Service) recordUsage(report model.UsageReport, u llm.Usage) {
	if u.Model == "" {
		return
	}
	report.Add(u.Model, u.InputTokens, u.OutputTokens)
	if s.metrics != nil {
		s.metrics.CollaboratorTokens.WithLabelValues(u.Model, "input").Add(float64(u.InputTokens))
		s.metrics.CollaboratorTokens.WithLabelValues(u.Model, "output").Add(float64(u.OutputTokens))
	}
}

func buildResult(extracted *model.ExtractedObservation, patientID, documentID, labID, testTypeID uuid.UUID) (*model.TestResult, error) {
	testDate, err := extracted.ParsedDate()
	if err != nil {
		return nil, err
	}

	var status *model.TestStatus
	if extracted.Status != nil {
		st := model.TestStatus(*extracted.Status)
		status = &st
	}

	return &model.TestResult{
		TestTypeID:      testTypeID,
		PatientID:       patientID,
		DocumentID:      documentID,
		LabID:           labID,
		LabTestName:     extracted.LabTestName,
		Value:           extracted.Value,
		ValueText:       extracted.ValueText,
		ValueNormalized: extracted.ValueNormalized,
		Unit:            extracted.Unit,
		LowerLimit:      extracted.LowerLimit,
		UpperLimit:      extracted.UpperLimit,
		TestDate:        testDate,
		Status:          status,
		Interpretation:  extracted.Interpretation,
		Notes:           extracted.Notes,
	}, nil
}
