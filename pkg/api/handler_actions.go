package api

import (
	"net/http"

	echo "github.com/labstack/echo/v5"
)

// executeActionPlanHandler handles POST /actions/:id/execute. Runs the
// pending plan through the simulator; a simulator failure leaves the plan
// pending so the operator can retry.
func (s *Server) executeActionPlanHandler(c *echo.Context) error {
	execution, err := s.actionSvc.ExecutePending(c.Request().Context(), c.Param("id"))
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, ExecutionResponse{Execution: execution})
}

// deferActionPlanHandler handles POST /actions/:id/defer.
func (s *Server) deferActionPlanHandler(c *echo.Context) error {
	execution, err := s.actionSvc.DeferExecution(c.Param("id"))
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, ExecutionResponse{Execution: execution})
}
