package document

import (
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/labtrail/labtrail/internal/handler"
	"github.com/labtrail/labtrail/internal/service/document"
	"github.com/labtrail/labtrail/internal/service/ingestion"
	apperrors "github.com/labtrail/labtrail/pkg/errors"
	"github.com/labtrail/labtrail/pkg/metrics"
)

type Handler struct {
	documents *document.Service
	pipeline  *ingestion.Service
	metrics   *metrics.Metrics
}

func NewHandler(documents *document.Service, pipeline *ingestion.Service, m *metrics.Metrics) *Handler {
	return &Handler{documents: documents, pipeline: pipeline, metrics: m}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	documents := r.Group("/documents")
	{
		documents.POST("", h.Upload)
		documents.GET("/:id", h.GetDocument)
		documents.POST("/:id/process", h.Process)
		documents.POST("/:id/reprocess", h.Reprocess)
	}
}

type uploadForm struct {
	PatientID string                `form:"patient_id" binding:"required,uuid"`
	File      *multipart.FileHeader `form:"file" binding:"required"`
}

// Upload stores a scanned report for a patient. A byte-identical re-upload
// is answered with the already stored document and HTTP 200 rather than 201.
func (h *Handler) Upload(c *gin.Context) {
	var form uploadForm
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	patientID, err := uuid.Parse(form.PatientID)
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid patient_id"))
		return
	}

	if !strings.EqualFold(filepath.Ext(form.File.Filename), ".pdf") {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("only PDF uploads are accepted"))
		return
	}

	file, err := form.File.Open()
	if err != nil {
		handler.WriteError(c, apperrors.BadRequest("unreadable upload", err))
		return
	}
	defer file.Close()

	doc, duplicate, err := h.documents.Upload(c.Request.Context(), patientID, form.File.Filename, file)
	if err != nil {
		handler.WriteError(c, err)
		return
	}

	if duplicate {
		if h.metrics != nil {
			h.metrics.DuplicateUploads.Inc()
		}
		c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{
			"document":  doc,
			"duplicate": true,
		}))
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(doc))
}

func (h *Handler) GetDocument(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	doc, err := h.documents.Get(c.Request.Context(), id)
	if err != nil {
		handler.WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(doc))
}

// Process runs the extraction pipeline on an uploaded document.
func (h *Handler) Process(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	doc, err := h.documents.Get(c.Request.Context(), id)
	if err != nil {
		handler.WriteError(c, err)
		return
	}
	if doc.ProcessedAt != nil {
		handler.WriteError(c, apperrors.Conflict("document already processed, use reprocess", nil))
		return
	}

	report, err := h.pipeline.Process(c.Request.Context(), id)
	if err != nil {
		handler.WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(report))
}

// Reprocess purges the document's own observations, clears its processed
// state and runs the pipeline again.
func (h *Handler) Reprocess(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if _, err := h.documents.Reprocess(c.Request.Context(), id); err != nil {
		handler.WriteError(c, err)
		return
	}

	report, err := h.pipeline.Process(c.Request.Context(), id)
	if err != nil {
		handler.WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(report))
}

func pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		handler.WriteError(c, apperrors.BadRequest("invalid id", err))
		return uuid.Nil, false
	}
	return id, true
}
