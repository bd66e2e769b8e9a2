package lab

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/labtrail/labtrail/internal/handler"
	"github.com/labtrail/labtrail/internal/service/lab"
	apperrors "github.com/labtrail/labtrail/pkg/errors"
)

type Handler struct {
	labs *lab.Service
}

func NewHandler(labs *lab.Service) *Handler {
	return &Handler{labs: labs}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	labs := r.Group("/labs")
	{
		labs.GET("", h.ListLabs)
		labs.GET("/:id", h.GetLab)
	}
}

func (h *Handler) ListLabs(c *gin.Context) {
	labs, err := h.labs.List(c.Request.Context())
	if err != nil {
		handler.WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(labs))
}

func (h *Handler) GetLab(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		handler.WriteError(c, apperrors.BadRequest("invalid id", err))
		return
	}

	found, err := h.labs.Get(c.Request.Context(), id)
	if err != nil {
		handler.WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(found))
}
