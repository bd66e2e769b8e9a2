package testtype

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/labtrail/labtrail/internal/handler"
	"github.com/labtrail/labtrail/internal/service/testtype"
)

type Handler struct {
	types *testtype.Service
}

func NewHandler(types *testtype.Service) *Handler {
	return &Handler{types: types}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/test-types", h.ListTestTypes)
}

func (h *Handler) ListTestTypes(c *gin.Context) {
	types, err := h.types.List(c.Request.Context())
	if err != nil {
		handler.WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(types))
}
