package api

import (
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/eventpulse/eventpulse/pkg/model"
)

func profileFromRequest(req profileRequest) model.StatProfile {
	p := model.StatProfile{Enabled: true, Severity: model.SeverityWarning}
	if req.BucketSeconds != nil {
		p.BucketSeconds = *req.BucketSeconds
	}
	if req.BaselineBuckets != nil {
		p.BaselineBuckets = *req.BaselineBuckets
	}
	if req.ZThreshold != nil {
		p.ZThreshold = *req.ZThreshold
	}
	if req.CooldownSeconds != nil {
		p.CooldownSeconds = *req.CooldownSeconds
	}
	if req.Severity != nil {
		p.Severity = *req.Severity
	}
	if req.Filters != nil {
		p.Filters = *req.Filters
	}
	if req.Enabled != nil {
		p.Enabled = *req.Enabled
	}
	return p
}

// createProfileHandler handles POST /api/v1/stat-profiles.
func (s *Server) createProfileHandler(c *echo.Context) error {
	var req profileRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	profile := profileFromRequest(req)
	if err := profile.Validate(); err != nil {
		return mapRepoError(err)
	}

	created, err := s.profileRepo.Create(c.Request().Context(), profile)
	if err != nil {
		return mapRepoError(err)
	}
	s.ruleNotifier.PublishStatProfile(c.Request().Context(), model.ReasonCreate, created.ID)
	return c.JSON(http.StatusCreated, created)
}

// listProfilesHandler handles GET /api/v1/stat-profiles.
func (s *Server) listProfilesHandler(c *echo.Context) error {
	profiles, err := s.profileRepo.List(c.Request().Context(), false)
	if err != nil {
		return mapRepoError(err)
	}
	return c.JSON(http.StatusOK, profiles)
}

// getProfileHandler handles GET /api/v1/stat-profiles/:id.
func (s *Server) getProfileHandler(c *echo.Context) error {
	profile, err := s.profileRepo.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return mapRepoError(err)
	}
	return c.JSON(http.StatusOK, profile)
}

// putProfileHandler handles PUT /api/v1/stat-profiles/:id (full replace).
func (s *Server) putProfileHandler(c *echo.Context) error {
	var req profileRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	profile := profileFromRequest(req)
	profile.ID = c.Param("id")
	if err := profile.Validate(); err != nil {
		return mapRepoError(err)
	}

	updated, err := s.profileRepo.Update(c.Request().Context(), profile)
	if err != nil {
		return mapRepoError(err)
	}
	s.ruleNotifier.PublishStatProfile(c.Request().Context(), model.ReasonUpdate, updated.ID)
	return c.JSON(http.StatusOK, updated)
}

// patchProfileHandler handles PATCH /api/v1/stat-profiles/:id.
func (s *Server) patchProfileHandler(c *echo.Context) error {
	var req profileRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.BucketSeconds == nil && req.BaselineBuckets == nil && req.ZThreshold == nil &&
		req.CooldownSeconds == nil && req.Severity == nil && req.Filters == nil && req.Enabled == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "patch requires at least one field")
	}

	ctx := c.Request().Context()
	existing, err := s.profileRepo.Get(ctx, c.Param("id"))
	if err != nil {
		return mapRepoError(err)
	}

	if req.BucketSeconds != nil {
		existing.BucketSeconds = *req.BucketSeconds
	}
	if req.BaselineBuckets != nil {
		existing.BaselineBuckets = *req.BaselineBuckets
	}
	if req.ZThreshold != nil {
		existing.ZThreshold = *req.ZThreshold
	}
	if req.CooldownSeconds != nil {
		existing.CooldownSeconds = *req.CooldownSeconds
	}
	if req.Severity != nil {
		existing.Severity = *req.Severity
	}
	if req.Filters != nil {
		existing.Filters = *req.Filters
	}
	if req.Enabled != nil {
		existing.Enabled = *req.Enabled
	}
	if err := existing.Validate(); err != nil {
		return mapRepoError(err)
	}

	updated, err := s.profileRepo.Update(ctx, *existing)
	if err != nil {
		return mapRepoError(err)
	}
	s.ruleNotifier.PublishStatProfile(ctx, model.ReasonPatch, updated.ID)
	return c.JSON(http.StatusOK, updated)
}

// deleteProfileHandler handles DELETE /api/v1/stat-profiles/:id.
func (s *Server) deleteProfileHandler(c *echo.Context) error {
	id := c.Param("id")
	if err := s.profileRepo.Delete(c.Request().Context(), id); err != nil {
		return mapRepoError(err)
	}
	s.ruleNotifier.PublishStatProfile(c.Request().Context(), model.ReasonDelete, id)
	return c.NoContent(http.StatusNoContent)
}
