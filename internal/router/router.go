package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/blog-api/internal/handler"
	"github.com/iliyamo/blog-api/internal/metrics"
)

// RegisterRoutes registers the unauthenticated operational endpoints:
// liveness, readiness and the Prometheus scrape target.
func RegisterRoutes(e *echo.Echo, checks map[string]handler.Check, m *metrics.Metrics) {
	e.GET("/healthz", handler.Health)
	e.GET("/readyz", handler.Ready(checks))
	if m != nil {
		e.GET("/metrics", echo.WrapHandler(m.Handler()))
	}
}

// Gate holds the two flavours of the authentication middleware.
type Gate struct {
	// Required rejects requests without a valid bearer token.
	Required echo.MiddlewareFunc
	// Optional attaches an identity when a token is present.
	Optional echo.MiddlewareFunc
}
