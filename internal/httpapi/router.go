package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rickgao/bankrates/internal/metrics"
	"github.com/rickgao/bankrates/internal/source"
)

// Deps are the services the router dispatches to. Responses and Metrics are
// optional.
type Deps struct {
	Rates     RatesReader
	Latest    LatestReader
	Contacts  ContactService
	Sources   []source.Descriptor
	Responses ResponseRecorder
	Health    HealthChecker
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(d Deps) *gin.Engine {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogging(logger))
	if d.Responses != nil {
		r.Use(ResponseLogging(d.Responses))
	}
	if d.Metrics != nil {
		r.Use(d.Metrics.Middleware())
		r.GET("/metrics", gin.WrapH(d.Metrics.Handler()))
	}

	r.GET("/health", func(c *gin.Context) {
		health := d.Health.Check(c.Request.Context())
		c.JSON(health.StatusCode(), health)
	})

	rates := &ratesHandler{rates: d.Rates, latest: d.Latest, sources: d.Sources}
	contacts := &contactHandler{service: d.Contacts}

	v1 := r.Group("/api/v1")
	{
		v1.GET("/rates", rates.list)
		v1.GET("/rates/latest", rates.latestRates)
		v1.GET("/choices", rates.choices)
		v1.GET("/sources", rates.listSources)
		v1.POST("/contact", contacts.submit)
		v1.GET("/contact", contacts.list)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})

	return r
}
