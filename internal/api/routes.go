package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "geocommons/docs/swagger"

	"geocommons/internal/routes"
)

func (s *Server) registerRoutes() {
	s.echo.GET("/", func(c echo.Context) error {
		return c.String(http.StatusOK, "GeoCommons API")
	})
	// Health check
	// @Summary Health check
	// @Description Check if the server is running
	// @Accept json
	// @Produce json
	// @Success 200 {object} map[string]string "OK"
	// @Router /health [get]
	s.echo.GET("/health", s.healthCheck)
	s.echo.GET("/swagger/*", echoSwagger.WrapHandler)

	routes.SetupAuthRoutes(s.echo, s.db, s.config)
	routes.SetupApplicationRoutes(s.echo, s.db, s.config)
	routes.SetupTemplateRoutes(s.echo, s.db, s.config)
	routes.SetupFeatureRoutes(s.echo, s.db, s.config)
}
