package patient

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/labtrail/labtrail/internal/handler"
	"github.com/labtrail/labtrail/internal/model"
	"github.com/labtrail/labtrail/internal/service/document"
	"github.com/labtrail/labtrail/internal/service/patient"
	"github.com/labtrail/labtrail/internal/service/result"
	apperrors "github.com/labtrail/labtrail/pkg/errors"
)

type Handler struct {
	patients  *patient.Service
	results   *result.Service
	documents *document.Service
}

func NewHandler(patients *patient.Service, results *result.Service, documents *document.Service) *Handler {
	return &Handler{patients: patients, results: results, documents: documents}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	patients := r.Group("/patients")
	{
		patients.POST("", h.CreatePatient)
		patients.GET("", h.ListPatients)
		patients.GET("/:id", h.GetPatient)
		patients.GET("/:id/results", h.ListResults)
		patients.GET("/:id/results/:testTypeID", h.GetResultSeries)
		patients.GET("/:id/documents", h.ListDocuments)
	}
}

func (h *Handler) CreatePatient(c *gin.Context) {
	var req model.CreatePatientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	created, err := h.patients.CreatePatient(c.Request.Context(), &req)
	if err != nil {
		handler.WriteError(c, err)
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(created))
}

func (h *Handler) GetPatient(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	p, err := h.patients.GetPatient(c.Request.Context(), id)
	if err != nil {
		handler.WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(p))
}

func (h *Handler) ListPatients(c *gin.Context) {
	patients, err := h.patients.ListPatients(c.Request.Context())
	if err != nil {
		handler.WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(patients))
}

// ListResults returns the patient's full observation timeline, newest first.
func (h *Handler) ListResults(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if _, err := h.patients.GetPatient(c.Request.Context(), id); err != nil {
		handler.WriteError(c, err)
		return
	}

	timeline, err := h.results.ListForPatient(c.Request.Context(), id)
	if err != nil {
		handler.WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(timeline))
}

// GetResultSeries returns the patient's observations for one test type in
// date order, the shape a trend chart consumes directly.
func (h *Handler) GetResultSeries(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	testTypeID, ok := pathID(c, "testTypeID")
	if !ok {
		return
	}

	if _, err := h.patients.GetPatient(c.Request.Context(), id); err != nil {
		handler.WriteError(c, err)
		return
	}

	series, err := h.results.SeriesForType(c.Request.Context(), id, testTypeID)
	if err != nil {
		handler.WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(series))
}

func (h *Handler) ListDocuments(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if _, err := h.patients.GetPatient(c.Request.Context(), id); err != nil {
		handler.WriteError(c, err)
		return
	}

	docs, err := h.documents.ListForPatient(c.Request.Context(), id)
	if err != nil {
		handler.WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(docs))
}

func pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		handler.WriteError(c, apperrors.BadRequest("invalid "+name, err))
		return uuid.Nil, false
	}
	return id, true
}
