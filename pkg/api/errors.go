package api

import (
	"errors"
	"log/slog"
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/eventpulse/eventpulse/pkg/database"
	"github.com/eventpulse/eventpulse/pkg/model"
)

// mapRepoError maps repository/validation sentinel errors to HTTP status
// codes (generalizes the teacher's mapServiceError).
func mapRepoError(err error) *echo.HTTPError {
	var validErr *model.ValidationError
	if errors.As(err, &validErr) {
		return echo.NewHTTPError(http.StatusBadRequest, validErr.Error())
	}
	if errors.Is(err, database.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "resource not found")
	}

	slog.Error("unexpected repository error", "error", err)
	return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
}
