package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/sensordash/alertd/internal/alerting"
	"github.com/sensordash/alertd/internal/datastore/entities"
	"github.com/sensordash/alertd/internal/datastore/repository"
	"github.com/sensordash/alertd/internal/errors"
	"github.com/sensordash/alertd/internal/logger"
)

func (c *Controller) initAlertRoutes() {
	g := c.Group.Group("/rules")
	g.GET("", c.ListRules)
	g.POST("", c.CreateRule)
	g.GET("/schema", c.GetRuleSchema)
	g.POST("/refresh", c.RefreshRules)
	g.GET("/:id", c.GetRule)
	g.PUT("/:id", c.UpdateRule)
	g.PATCH("/:id/toggle", c.ToggleRule)
	g.DELETE("/:id", c.DeleteRule)
}

// RuleListResponse is the body of GET /rules.
type RuleListResponse struct {
	Rules []entities.AlertRule `json:"rules"`
	Count int                  `json:"count"`
}

// GetRuleSchema describes the sensor types, conditions and severities the
// rule editor offers.
func (c *Controller) GetRuleSchema(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, alerting.GetSchema())
}

// ListRules lists the rules of a device, defaulting to the current one. With
// a local repository all rules are listed; otherwise the cached rules of the
// configured source are returned.
func (c *Controller) ListRules(ctx echo.Context) error {
	deviceID := c.deviceParam(ctx)

	if c.ruleRepo != nil {
		filter := repository.AlertRuleFilter{DeviceID: deviceID}
		if v := ctx.QueryParam("active"); v != "" {
			active := v == QueryValueTrue
			filter.Active = &active
		}
		rules, err := c.ruleRepo.ListRules(ctx.Request().Context(), filter)
		if err != nil {
			return c.HandleError(ctx, err, "Failed to list rules", http.StatusInternalServerError)
		}
		return ctx.JSON(http.StatusOK, RuleListResponse{Rules: rules, Count: len(rules)})
	}

	if deviceID == "" {
		return badRequest(ctx, "device is required")
	}
	rules, err := c.rules.Rules(ctx.Request().Context(), deviceID)
	if err != nil && rules == nil {
		return c.HandleError(ctx, err, "Failed to fetch rules", http.StatusBadGateway)
	}
	return ctx.JSON(http.StatusOK, RuleListResponse{Rules: rules, Count: len(rules)})
}

// GetRule returns one rule from the local repository.
func (c *Controller) GetRule(ctx echo.Context) error {
	if err := c.requireRepo(ctx); err != nil {
		return err
	}
	id, err := parseUintParam(ctx, "id")
	if err != nil {
		return badRequest(ctx, "Invalid rule ID")
	}
	rule, err := c.ruleRepo.GetRule(ctx.Request().Context(), id)
	if err != nil {
		return c.ruleError(ctx, err, "Failed to get rule")
	}
	return ctx.JSON(http.StatusOK, rule)
}

// CreateRule stores a new rule. Omitting is_active creates an inactive rule,
// matching the dashboard's flag encoding.
func (c *Controller) CreateRule(ctx echo.Context) error {
	if err := c.requireRepo(ctx); err != nil {
		return err
	}
	var rule entities.AlertRule
	if err := decodeRule(ctx, &rule); err != nil {
		return err
	}
	rule.ID = 0
	if rule.DeviceID == "" {
		rule.DeviceID = c.engine.CurrentDevice().ID
	}
	if err := rule.Validate(); err != nil {
		return badRequest(ctx, err.Error())
	}

	if err := c.ruleRepo.CreateRule(ctx.Request().Context(), &rule); err != nil {
		return c.ruleError(ctx, err, "Failed to create rule")
	}
	c.rules.Invalidate(rule.DeviceID)
	c.logInfoIfEnabled("alert rule created",
		logger.Uint64("rule_id", uint64(rule.ID)),
		logger.String("device_id", rule.DeviceID),
		logger.String("target", rule.Target()))
	return ctx.JSON(http.StatusCreated, rule)
}

// UpdateRule replaces a rule. The device of the stored rule is kept when the
// body omits it.
func (c *Controller) UpdateRule(ctx echo.Context) error {
	if err := c.requireRepo(ctx); err != nil {
		return err
	}
	id, err := parseUintParam(ctx, "id")
	if err != nil {
		return badRequest(ctx, "Invalid rule ID")
	}
	existing, err := c.ruleRepo.GetRule(ctx.Request().Context(), id)
	if err != nil {
		return c.ruleError(ctx, err, "Failed to load rule")
	}

	var rule entities.AlertRule
	if err := decodeRule(ctx, &rule); err != nil {
		return err
	}
	rule.ID = id
	if rule.DeviceID == "" {
		rule.DeviceID = existing.DeviceID
	}
	if err := rule.Validate(); err != nil {
		return badRequest(ctx, err.Error())
	}

	if err := c.ruleRepo.UpdateRule(ctx.Request().Context(), &rule); err != nil {
		return c.ruleError(ctx, err, "Failed to update rule")
	}
	c.rules.Invalidate(existing.DeviceID)
	if rule.DeviceID != existing.DeviceID {
		c.rules.Invalidate(rule.DeviceID)
	}

	updated, err := c.ruleRepo.GetRule(ctx.Request().Context(), id)
	if err != nil {
		return c.ruleError(ctx, err, "Failed to reload rule")
	}
	return ctx.JSON(http.StatusOK, updated)
}

// ToggleRequest sets the active flag of a rule.
type ToggleRequest struct {
	Active *bool `json:"active"`
}

// ToggleRule activates or deactivates a rule. Without a body the flag is
// flipped.
func (c *Controller) ToggleRule(ctx echo.Context) error {
	if err := c.requireRepo(ctx); err != nil {
		return err
	}
	id, err := parseUintParam(ctx, "id")
	if err != nil {
		return badRequest(ctx, "Invalid rule ID")
	}
	existing, err := c.ruleRepo.GetRule(ctx.Request().Context(), id)
	if err != nil {
		return c.ruleError(ctx, err, "Failed to load rule")
	}

	var req ToggleRequest
	if ctx.Request().ContentLength != 0 {
		if err := ctx.Bind(&req); err != nil {
			return badRequest(ctx, "Invalid request body")
		}
	}
	active := !existing.IsActive
	if req.Active != nil {
		active = *req.Active
	}

	if err := c.ruleRepo.ToggleRule(ctx.Request().Context(), id, active); err != nil {
		return c.ruleError(ctx, err, "Failed to toggle rule")
	}
	c.rules.Invalidate(existing.DeviceID)
	return ctx.JSON(http.StatusOK, map[string]any{"id": id, "is_active": active})
}

// DeleteRule removes a rule.
func (c *Controller) DeleteRule(ctx echo.Context) error {
	if err := c.requireRepo(ctx); err != nil {
		return err
	}
	id, err := parseUintParam(ctx, "id")
	if err != nil {
		return badRequest(ctx, "Invalid rule ID")
	}
	existing, err := c.ruleRepo.GetRule(ctx.Request().Context(), id)
	if err != nil {
		return c.ruleError(ctx, err, "Failed to load rule")
	}
	if err := c.ruleRepo.DeleteRule(ctx.Request().Context(), id); err != nil {
		return c.ruleError(ctx, err, "Failed to delete rule")
	}
	c.rules.Invalidate(existing.DeviceID)
	return ctx.NoContent(http.StatusNoContent)
}

// RefreshRules drops the cached rules of a device and fetches them again.
func (c *Controller) RefreshRules(ctx echo.Context) error {
	deviceID := c.deviceParam(ctx)
	if deviceID == "" {
		return badRequest(ctx, "device is required")
	}
	rules, err := c.rules.Refresh(ctx.Request().Context(), deviceID)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to refresh rules", http.StatusBadGateway)
	}
	return ctx.JSON(http.StatusOK, RuleListResponse{Rules: rules, Count: len(rules)})
}

func (c *Controller) deviceParam(ctx echo.Context) string {
	if d := strings.TrimSpace(ctx.QueryParam("device")); d != "" {
		return d
	}
	return c.engine.CurrentDevice().ID
}

func (c *Controller) requireRepo(ctx echo.Context) error {
	if c.ruleRepo != nil {
		return nil
	}
	return ctx.JSON(http.StatusConflict, map[string]string{
		"error": "Rules are managed by the dashboard API and are read-only here",
	})
}

// decodeRule reads a rule body. The rule's own decoder accepts the loose
// encodings the dashboard uses and reports field errors as validation
// errors, which echo's binder would hide.
func decodeRule(ctx echo.Context, rule *entities.AlertRule) error {
	if err := json.NewDecoder(ctx.Request().Body).Decode(rule); err != nil {
		if errors.CategoryOf(err) == errors.CategoryValidation {
			return badRequest(ctx, err.Error())
		}
		return badRequest(ctx, "Invalid request body")
	}
	return nil
}

func (c *Controller) ruleError(ctx echo.Context, err error, msg string) error {
	if errors.Is(err, repository.ErrAlertRuleNotFound) {
		return notFound(ctx, "Rule not found")
	}
	return c.HandleError(ctx, err, msg, http.StatusInternalServerError)
}
