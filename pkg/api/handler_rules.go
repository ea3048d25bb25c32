package api

import (
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/eventpulse/eventpulse/pkg/model"
)

func ruleFromRequest(req ruleRequest) model.Rule {
	r := model.Rule{Enabled: true}
	if req.Name != nil {
		r.Name = *req.Name
	}
	if req.Enabled != nil {
		r.Enabled = *req.Enabled
	}
	if req.Severity != nil {
		r.Severity = *req.Severity
	}
	if req.WindowSeconds != nil {
		r.WindowSeconds = *req.WindowSeconds
	}
	if req.CooldownSeconds != nil {
		r.CooldownSeconds = *req.CooldownSeconds
	}
	if req.Condition != nil {
		r.Condition = model.Condition{
			Type:     req.Condition.Type,
			Metric:   req.Condition.Metric,
			Filters:  req.Condition.Filters,
			Operator: req.Condition.Operator,
			Value:    req.Condition.Value,
		}
	}
	return r
}

// createRuleHandler handles POST /api/v1/rules.
func (s *Server) createRuleHandler(c *echo.Context) error {
	var req ruleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	rule := ruleFromRequest(req)
	if err := rule.Validate(); err != nil {
		return mapRepoError(err)
	}

	created, err := s.ruleRepo.Create(c.Request().Context(), rule)
	if err != nil {
		return mapRepoError(err)
	}
	s.ruleNotifier.Publish(c.Request().Context(), model.ReasonCreate, created.RuleID)
	return c.JSON(http.StatusCreated, created)
}

// listRulesHandler handles GET /api/v1/rules.
func (s *Server) listRulesHandler(c *echo.Context) error {
	rules, err := s.ruleRepo.List(c.Request().Context(), false)
	if err != nil {
		return mapRepoError(err)
	}
	return c.JSON(http.StatusOK, rules)
}

// getRuleHandler handles GET /api/v1/rules/:id.
func (s *Server) getRuleHandler(c *echo.Context) error {
	rule, err := s.ruleRepo.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return mapRepoError(err)
	}
	return c.JSON(http.StatusOK, rule)
}

// putRuleHandler handles PUT /api/v1/rules/:id (full replace).
func (s *Server) putRuleHandler(c *echo.Context) error {
	var req ruleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	rule := ruleFromRequest(req)
	rule.RuleID = c.Param("id")
	if err := rule.Validate(); err != nil {
		return mapRepoError(err)
	}

	updated, err := s.ruleRepo.Update(c.Request().Context(), rule)
	if err != nil {
		return mapRepoError(err)
	}
	s.ruleNotifier.Publish(c.Request().Context(), model.ReasonUpdate, updated.RuleID)
	return c.JSON(http.StatusOK, updated)
}

// patchRuleHandler handles PATCH /api/v1/rules/:id: at least one field must
// be present, validated by checking every pointer for nil before merging
// onto the persisted rule (§4.15).
func (s *Server) patchRuleHandler(c *echo.Context) error {
	var req ruleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Name == nil && req.Enabled == nil && req.Severity == nil &&
		req.WindowSeconds == nil && req.CooldownSeconds == nil && req.Condition == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "patch requires at least one field")
	}

	ctx := c.Request().Context()
	existing, err := s.ruleRepo.Get(ctx, c.Param("id"))
	if err != nil {
		return mapRepoError(err)
	}

	if req.Name != nil {
		existing.Name = *req.Name
	}
	if req.Enabled != nil {
		existing.Enabled = *req.Enabled
	}
	if req.Severity != nil {
		existing.Severity = *req.Severity
	}
	if req.WindowSeconds != nil {
		existing.WindowSeconds = *req.WindowSeconds
	}
	if req.CooldownSeconds != nil {
		existing.CooldownSeconds = *req.CooldownSeconds
	}
	if req.Condition != nil {
		existing.Condition = model.Condition{
			Type:     req.Condition.Type,
			Metric:   req.Condition.Metric,
			Filters:  req.Condition.Filters,
			Operator: req.Condition.Operator,
			Value:    req.Condition.Value,
		}
	}
	if err := existing.Validate(); err != nil {
		return mapRepoError(err)
	}

	updated, err := s.ruleRepo.Update(ctx, *existing)
	if err != nil {
		return mapRepoError(err)
	}
	s.ruleNotifier.Publish(ctx, model.ReasonPatch, updated.RuleID)
	return c.JSON(http.StatusOK, updated)
}

// deleteRuleHandler handles DELETE /api/v1/rules/:id.
func (s *Server) deleteRuleHandler(c *echo.Context) error {
	id := c.Param("id")
	if err := s.ruleRepo.Delete(c.Request().Context(), id); err != nil {
		return mapRepoError(err)
	}
	s.ruleNotifier.Publish(c.Request().Context(), model.ReasonDelete, id)
	return c.NoContent(http.StatusNoContent)
}
