package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/treefam/treefam-backend/internal/infrastructure/httpserver/helpers"
	"github.com/treefam/treefam-backend/internal/infrastructure/httpserver/response"
)

// getOwnProfile returns the profile of the authenticated user
func (s *Server) getOwnProfile(c echo.Context) error {
	u, err := helpers.GetCurrentUserFromContext(c)
	if err != nil {
		return err
	}

	return response.Success(c, http.StatusOK, u)
}
