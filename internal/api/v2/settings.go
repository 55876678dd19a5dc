package api

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/sensordash/alertd/internal/logger"
)

func (c *Controller) initSettingsRoutes() {
	c.Group.GET("/settings", c.GetSettings)
	c.Group.PUT("/settings", c.UpdateSettings)
	c.Group.GET("/device", c.GetDevice)
	c.Group.PUT("/device", c.SetDevice)
	c.Group.GET("/health", c.GetHealth)
}

// SettingsResponse holds the preferences the dashboard exposes to the user.
type SettingsResponse struct {
	AudioEnabled    bool `json:"audioEnabled"`
	AutoHideEnabled bool `json:"autoHideEnabled"`
}

// SettingsUpdate is a partial update; omitted fields keep their value.
type SettingsUpdate struct {
	AudioEnabled    *bool `json:"audioEnabled"`
	AutoHideEnabled *bool `json:"autoHideEnabled"`
}

// GetSettings returns the current preferences.
func (c *Controller) GetSettings(ctx echo.Context) error {
	cfg := c.engine.Config()
	return ctx.JSON(http.StatusOK, SettingsResponse{
		AudioEnabled:    cfg.AudioEnabled,
		AutoHideEnabled: cfg.AutoHideEnabled,
	})
}

// UpdateSettings applies a partial preference update and persists it when a
// persister is configured. The engine keeps the new values even if
// persisting fails.
func (c *Controller) UpdateSettings(ctx echo.Context) error {
	var req SettingsUpdate
	if err := ctx.Bind(&req); err != nil {
		return badRequest(ctx, "Invalid request body")
	}
	if req.AudioEnabled == nil && req.AutoHideEnabled == nil {
		return badRequest(ctx, "No settings provided")
	}

	cfg := c.engine.Config()
	if req.AudioEnabled != nil {
		cfg.AudioEnabled = *req.AudioEnabled
	}
	if req.AutoHideEnabled != nil {
		cfg.AutoHideEnabled = *req.AutoHideEnabled
	}
	c.engine.UpdateConfig(cfg)

	if c.persister != nil {
		if err := c.persister.PersistPreferences(cfg.AudioEnabled, cfg.AutoHideEnabled); err != nil {
			return c.HandleError(ctx, err, "Settings applied but could not be saved", http.StatusInternalServerError)
		}
	}

	return ctx.JSON(http.StatusOK, SettingsResponse{
		AudioEnabled:    cfg.AudioEnabled,
		AutoHideEnabled: cfg.AutoHideEnabled,
	})
}

// DeviceRequest selects the device whose readings are evaluated.
type DeviceRequest struct {
	DeviceID   string `json:"deviceId"`
	DeviceName string `json:"deviceName"`
}

// GetDevice returns the selected device.
func (c *Controller) GetDevice(ctx echo.Context) error {
	d := c.engine.CurrentDevice()
	return ctx.JSON(http.StatusOK, DeviceRequest{DeviceID: d.ID, DeviceName: d.Name})
}

// SetDevice switches the current device. An empty deviceId deselects.
func (c *Controller) SetDevice(ctx echo.Context) error {
	var req DeviceRequest
	if err := ctx.Bind(&req); err != nil {
		return badRequest(ctx, "Invalid request body")
	}
	id := strings.TrimSpace(req.DeviceID)
	c.engine.SetCurrentDevice(id, strings.TrimSpace(req.DeviceName))
	c.logInfoIfEnabled("device selected via api",
		logger.String("device_id", id),
		logger.String("ip", ctx.RealIP()))
	return ctx.JSON(http.StatusOK, c.engine.Status())
}

// GetHealth reports the engine status. It answers 503 while unhealthy so
// the endpoint doubles as a readiness probe.
func (c *Controller) GetHealth(ctx echo.Context) error {
	status := c.engine.Status()
	code := http.StatusOK
	if !status.Healthy {
		code = http.StatusServiceUnavailable
	}
	return ctx.JSON(code, status)
}
