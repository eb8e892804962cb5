package api

import (
	"net/http"

	echo "github.com/labstack/echo/v5"
)

// aiSaveHandler handles POST /ai/save. An empty key clears the credential.
func (s *Server) aiSaveHandler(c *echo.Context) error {
	var req AISettingsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	message := s.ai.Save(req.APIKey)
	return c.JSON(http.StatusOK, MessageResponse{Message: message})
}
