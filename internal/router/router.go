package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	documentHandler "github.com/labtrail/labtrail/internal/handler/document"
	healthHandler "github.com/labtrail/labtrail/internal/handler/health"
	labHandler "github.com/labtrail/labtrail/internal/handler/lab"
	patientHandler "github.com/labtrail/labtrail/internal/handler/patient"
	testtypeHandler "github.com/labtrail/labtrail/internal/handler/testtype"
	"github.com/labtrail/labtrail/internal/middleware"
)

type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

type Config struct {
	RateLimit      rate.Limit
	RateBurst      int
	MaxRequestSize int64
}

type Router struct {
	engine   *gin.Engine
	config   Config
	health   *healthHandler.Handler
	patients *patientHandler.Handler
	docs     *documentHandler.Handler
	labs     *labHandler.Handler
	types    *testtypeHandler.Handler
}

func NewRouter(
	config Config,
	health *healthHandler.Handler,
	patients *patientHandler.Handler,
	docs *documentHandler.Handler,
	labs *labHandler.Handler,
	types *testtypeHandler.Handler,
) *Router {
	gin.SetMode(gin.ReleaseMode)

	r := &Router{
		engine:   gin.New(),
		config:   config,
		health:   health,
		patients: patients,
		docs:     docs,
		labs:     labs,
		types:    types,
	}

	r.engine.Use(
		middleware.Recovery(),
		middleware.RequestID(),
		middleware.Logger(),
	)

	rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		Rate:  config.RateLimit,
		Burst: config.RateBurst,
	})
	r.engine.Use(rateLimiter.RateLimit())

	return r
}

func (r *Router) Setup() {
	r.engine.GET("/health", r.health.Liveness)
	r.engine.GET("/health/ready", r.health.Readiness)
	r.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.engine.Group("/api/v1")
	api.Use(middleware.SizeLimit(r.config.MaxRequestSize))

	for _, h := range []Handler{r.patients, r.docs, r.labs, r.types} {
		h.RegisterRoutes(api)
	}
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
