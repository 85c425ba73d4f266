package router // package router registers the HTTP routes of the gateway

import (
	"github.com/labstack/echo/v4"                    // routing
	echomw "github.com/labstack/echo/v4/middleware"  // stock echo middleware (body limit)
	"github.com/prometheus/client_golang/prometheus" // registry the scrape endpoint gathers from
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iliyamo/event-rsvp-ledger/internal/handler"    // endpoint implementations
	"github.com/iliyamo/event-rsvp-ledger/internal/middleware" // JWT and role checks for admin routes
	"github.com/iliyamo/event-rsvp-ledger/internal/utils"      // role names
)

// SubmitBodyLimit caps the size of an RSVP body. Larger bodies get a 413.
const SubmitBodyLimit = "64K"

// RegisterRoutes mounts the unauthenticated operational endpoints: the
// health check and the Prometheus scrape endpoint for reg.
func RegisterRoutes(e *echo.Echo, reg prometheus.Gatherer) {
	// liveness check for load balancers
	e.GET("/healthz", handler.Health)
	// scrape endpoint; only serves collectors registered on reg, not the global default
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
}

// RegisterRSVP mounts the submission endpoint behind the rate limiter.
func RegisterRSVP(e *echo.Echo, h *handler.RSVPHandler, limiter echo.MiddlewareFunc) {
	// the limiter runs first so rejected clients never have their body read
	e.POST("/api/submit-rsvp", h.Submit, limiter, echomw.BodyLimit(SubmitBodyLimit))
}

// RegisterPublic mounts the read-only slot summary behind the response cache.
func RegisterPublic(e *echo.Echo, s *handler.SlotsHandler, cache echo.MiddlewareFunc) {
	e.GET("/api/slots", s.List, cache) // cached briefly; a few seconds of staleness is fine for a slot count
}

// RegisterAdmin mounts login and the admin-only page view.
func RegisterAdmin(e *echo.Echo, a *handler.AdminHandler, jwtSecret string) {
	g := e.Group("/api/admin")
	// login is open: it checks the configured password and hands out a token
	g.POST("/login", a.Login)

	// everything else needs a valid token carrying the ADMIN role
	auth := g.Group("", middleware.JWTAuth(jwtSecret), middleware.RequireRole(utils.RoleAdmin))
	auth.GET("/pages/:n/rows", a.PageRows) // raw rows of one page, header excluded
}
