package api

import (
	"net/http"
	"strings"

	echo "github.com/labstack/echo/v5"

	"github.com/watchops/incident-console/pkg/slack"
	"github.com/watchops/incident-console/pkg/state"
)

// chatTestHandler handles POST /chat/test.
func (s *Server) chatTestHandler(c *echo.Context) error {
	var req ChatSettingsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	result, err := s.chat.Test(c.Request().Context(), req.Token)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, result)
}

// chatSaveHandler handles POST /chat/save.
func (s *Server) chatSaveHandler(c *echo.Context) error {
	var req ChatSettingsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	channel := strings.TrimSpace(req.Channel)
	if channel == "" {
		channel = slack.DefaultChannel
	}
	message, err := s.chat.Save(state.ChatSettings{
		Token:     strings.TrimSpace(req.Token),
		Channel:   channel,
		Workspace: strings.TrimSpace(req.Workspace),
	})
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: message})
}

// chatDispatchHandler handles POST /chat/dispatch. Re-sends the most recent
// alert digest, optionally to an overridden channel.
func (s *Server) chatDispatchHandler(c *echo.Context) error {
	var req ChatDispatchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	scenario, err := s.alerts.RequireLastAlert()
	if err != nil {
		return mapServiceError(err)
	}
	result, err := s.chat.Dispatch(c.Request().Context(), scenario, strings.TrimSpace(req.Channel), "")
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, result)
}
