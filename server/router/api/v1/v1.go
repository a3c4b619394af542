package v1

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/hrygo/wingman/internal/profile"
	"github.com/hrygo/wingman/plugin/cache"
	wmiddleware "github.com/hrygo/wingman/server/middleware"
	"github.com/hrygo/wingman/store"
)

// reportTTL bounds how long an aggregated report is served from cache.
const reportTTL = 5 * time.Minute

// APIV1Service serves the results API: the analysis callback, the polling endpoint,
// aggregated reports and stored transcripts.
type APIV1Service struct {
	Profile *profile.Profile
	Store   *store.Store
	// Cache holds aggregated reports keyed report:<session>. Optional.
	Cache cache.Cache

	limiter *wmiddleware.RateLimiter
}

// NewAPIV1Service creates the results API service.
func NewAPIV1Service(profile *profile.Profile, store *store.Store, reports cache.Cache) *APIV1Service {
	return &APIV1Service{
		Profile: profile,
		Store:   store,
		Cache:   reports,
		limiter: wmiddleware.NewRateLimiter(wmiddleware.DefaultRate, wmiddleware.DefaultBurst),
	}
}

// RegisterRoutes registers the API routes with the given Echo instance.
func (s *APIV1Service) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	g := e.Group("/api/v1",
		middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: []string{"*"},
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowHeaders: []string{echo.HeaderContentType, wmiddleware.HeaderAPIKey},
		}),
		s.limiter.Middleware(),
		wmiddleware.APIKey(s.Profile.APIKey),
	)
	g.POST("/sessions/:id/analysis", s.CreateAnalysisSegment)
	g.GET("/sessions/:id/analysis", s.ListAnalysisSegments)
	g.GET("/sessions/:id/analysis/aggregate", s.GetAggregatedReport)
	g.GET("/sessions/:id/transcript", s.GetSessionTranscript)
}

func errorJSON(c echo.Context, code int, msg string) error {
	return c.JSON(code, map[string]string{"error": msg})
}
