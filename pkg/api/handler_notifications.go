package api

import (
	"net/http"

	echo "github.com/labstack/echo/v5"
)

// preferencesHandler handles POST /notifications/preferences.
func (s *Server) preferencesHandler(c *echo.Context) error {
	var req PreferencesRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	prefs := s.store.SetChatPreference(req.Chat)
	return c.JSON(http.StatusOK, prefs)
}

// listRecipientsHandler handles GET /notifications/emails.
func (s *Server) listRecipientsHandler(c *echo.Context) error {
	return c.JSON(http.StatusOK, RecipientsResponse{Emails: s.registry.List()})
}

// addRecipientHandler handles POST /notifications/emails.
func (s *Server) addRecipientHandler(c *echo.Context) error {
	var req RecipientRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	recipient, err := s.registry.Add(req.Email)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, RecipientResponse{Recipient: recipient})
}

// removeRecipientHandler handles DELETE /notifications/emails/:id.
func (s *Server) removeRecipientHandler(c *echo.Context) error {
	removed, err := s.registry.Remove(c.Param("id"))
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, RemovedResponse{Removed: removed.ID})
}

// ackPendingReportHandler handles POST /notifications/pending/:id/ack.
// Acking an unknown or already acked report is a no-op.
func (s *Server) ackPendingReportHandler(c *echo.Context) error {
	reportID := c.Param("id")
	s.store.AckPendingReport(reportID)
	return c.JSON(http.StatusOK, AckResponse{Status: "acknowledged", ReportID: reportID})
}
