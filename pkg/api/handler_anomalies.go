package api

import (
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/eventpulse/eventpulse/pkg/database"
	"github.com/eventpulse/eventpulse/pkg/model"
)

// listAnomaliesHandler handles GET /api/v1/anomalies.
func (s *Server) listAnomaliesHandler(c *echo.Context) error {
	limit, offset, err := parsePagination(c, 50, 500)
	if err != nil {
		return err
	}

	f := database.AnomalyFilter{
		RuleID:   c.QueryParam("rule_id"),
		Severity: c.QueryParam("severity"),
		Limit:    limit,
		Offset:   offset,
	}
	anomalies, err := s.anomalyRepo.List(c.Request().Context(), f)
	if err != nil {
		return mapRepoError(err)
	}
	return c.JSON(http.StatusOK, anomalyListResponse{
		Data:       anomalies,
		Pagination: model.Pagination{Limit: limit, Offset: offset, Count: len(anomalies)},
	})
}
