package server

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

// RegisterRoutes configures all API routes, middleware, and error handlers
func RegisterRoutes(e *echo.Echo, h *Handlers, cfg ServerConfig) {
	e.HTTPErrorHandler = ErrorJSON()

	e.Use(SetJSONContentType)
	e.Use(SetNoCacheHeaders)

	v1 := e.Group("/v1")
	v1.GET("/health", h.Health)

	api := v1.Group("")
	if cfg.APIKey != "" {
		api.Use(middleware.KeyAuthWithConfig(middleware.KeyAuthConfig{
			KeyLookup: "header:X-API-Key",
			Validator: func(key string, c echo.Context) (bool, error) {
				return key == cfg.APIKey, nil
			},
		}))
	}
	api.POST("/quote", h.Quote)
	api.GET("/curve/price", h.CurvePrice)
	api.GET("/curve/pool", h.CurvePool)

	// launch и swap тратят средства кошелька
	limiter := middleware.RateLimiter(middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(1),
		Burst:     3,
		ExpiresIn: 2 * time.Minute,
	}))
	api.POST("/launch", h.Launch, limiter)
	api.POST("/swap", h.Swap, limiter)

	e.RouteNotFound("/*", func(c echo.Context) error {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "not found", Code: http.StatusNotFound})
	})
}
