package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/labtrail/labtrail/internal/config"
	documentHandler "github.com/labtrail/labtrail/internal/handler/document"
	healthHandler "github.com/labtrail/labtrail/internal/handler/health"
	labHandler "github.com/labtrail/labtrail/internal/handler/lab"
	patientHandler "github.com/labtrail/labtrail/internal/handler/patient"
	testtypeHandler "github.com/labtrail/labtrail/internal/handler/testtype"
	"github.com/labtrail/labtrail/internal/llm"
	"github.com/labtrail/labtrail/internal/repository/postgres"
	"github.com/labtrail/labtrail/internal/router"
	documentService "github.com/labtrail/labtrail/internal/service/document"
	ingestionService "github.com/labtrail/labtrail/internal/service/ingestion"
	labService "github.com/labtrail/labtrail/internal/service/lab"
	patientService "github.com/labtrail/labtrail/internal/service/patient"
	resultService "github.com/labtrail/labtrail/internal/service/result"
	testtypeService "github.com/labtrail/labtrail/internal/service/testtype"
	"github.com/labtrail/labtrail/pkg/logger"
	"github.com/labtrail/labtrail/pkg/metrics"
)

func main() {
	logger.Setup(nil)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	secrets, err := config.LoadSecrets()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load secrets")
	}

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	// Repositories
	patientRepo := postgres.NewPatientRepository(db)
	labRepo := postgres.NewLabRepository(db)
	testTypeRepo := postgres.NewTestTypeRepository(db)
	documentRepo := postgres.NewDocumentRepository(db)
	resultRepo := postgres.NewTestResultRepository(db)

	// Collaborator clients
	extractor, err := llm.NewGeminiExtractor(context.Background(), secrets.GeminiAPIKey, cfg.Extraction.Model)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize extraction client")
	}
	disambiguator := llm.NewAnthropicDisambiguator(secrets.AnthropicAPIKey, cfg.Disambiguation.Model, cfg.Disambiguation.MaxTokens)

	m := metrics.NewMetrics("labtrail")

	// Services
	patientSvc := patientService.NewService(patientRepo)
	labSvc := labService.NewService(labRepo, disambiguator)
	testTypeSvc := testtypeService.NewService(testTypeRepo, disambiguator)
	resultSvc := resultService.NewService(resultRepo)
	documentSvc := documentService.NewService(documentRepo, resultRepo, patientRepo, cfg.Storage.UploadDir)
	ingestionSvc := ingestionService.NewService(documentSvc, labSvc, testTypeSvc, resultSvc, patientRepo, extractor, m)

	// Handlers
	healthH := healthHandler.NewHandler(db)
	patientH := patientHandler.NewHandler(patientSvc, resultSvc, documentSvc)
	documentH := documentHandler.NewHandler(documentSvc, ingestionSvc, m)
	labH := labHandler.NewHandler(labSvc)
	testTypeH := testtypeHandler.NewHandler(testTypeSvc)

	r := router.NewRouter(router.Config{
		RateLimit:      rate.Limit(cfg.RateLimit.RequestsPerSecond),
		RateBurst:      cfg.RateLimit.Burst,
		MaxRequestSize: cfg.Storage.MaxUploadBytes,
	}, healthH, patientH, documentH, labH, testTypeH)
	r.Setup()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
		WriteTimeout: 2 * time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited properly")
}
