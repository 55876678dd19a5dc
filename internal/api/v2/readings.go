package api

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"github.com/sensordash/alertd/internal/alerting"
	"github.com/sensordash/alertd/internal/logger"
	"github.com/sensordash/alertd/internal/sensor"
)

const (
	defaultReadingsRate  = 5
	defaultReadingsBurst = 20
	readingsLimitExpiry  = 3 * time.Minute
	maxReadingBodyBytes  = 1 << 20
)

func (c *Controller) initReadingRoutes() {
	r := rate.Limit(c.readingsRate)
	if r <= 0 {
		r = defaultReadingsRate
	}
	burst := c.readingsBurst
	if burst <= 0 {
		burst = defaultReadingsBurst
	}

	limiter := middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Skipper: middleware.DefaultSkipper,
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(
			middleware.RateLimiterMemoryStoreConfig{
				Rate:      r,
				Burst:     burst,
				ExpiresIn: readingsLimitExpiry,
			},
		),
		IdentifierExtractor: func(ctx echo.Context) (string, error) {
			return ctx.RealIP(), nil
		},
		ErrorHandler: func(ctx echo.Context, err error) error {
			return ctx.JSON(http.StatusForbidden, map[string]string{"error": "Unable to identify client"})
		},
		DenyHandler: func(ctx echo.Context, identifier string, err error) error {
			return ctx.JSON(http.StatusTooManyRequests, map[string]string{
				"error": "Too many readings, please slow down",
			})
		},
	})

	c.Group.POST("/readings", c.PostReading, limiter)
}

// PostReading accepts one sensor reading in the expanded or compact JSON
// form. With an event bus the reading is queued and 202 is returned;
// otherwise it is evaluated inline and the number of delivered alerts is
// returned.
func (c *Controller) PostReading(ctx echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(ctx.Request().Body, maxReadingBodyBytes))
	if err != nil {
		return badRequest(ctx, "Could not read request body")
	}

	reading, err := sensor.DecodeJSON(body, c.now())
	if err != nil {
		c.metrics.RecordReadingDropped("malformed")
		return ctx.JSON(http.StatusBadRequest, map[string]string{
			"error":   "Malformed reading",
			"message": err.Error(),
		})
	}
	if reading.DeviceID == "" {
		return badRequest(ctx, "Reading has no device id")
	}

	if c.bus != nil {
		if !c.bus.Publish(&alerting.ReadingEvent{Reading: reading, Source: alerting.SourceAPI}) {
			c.metrics.RecordReadingDropped("bus_full")
			return ctx.JSON(http.StatusServiceUnavailable, map[string]string{
				"error": "Reading queue is full, try again later",
			})
		}
		return ctx.JSON(http.StatusAccepted, map[string]any{
			"accepted": true,
			"deviceId": reading.DeviceID,
		})
	}

	// Side channels outlive the request, e.g. the second pulse of a critical alert.
	delivered := c.engine.HandleReading(context.WithoutCancel(ctx.Request().Context()), reading, alerting.SourceAPI)
	if delivered > 0 {
		c.logInfoIfEnabled("reading raised alerts",
			logger.String("device_id", reading.DeviceID),
			logger.Int("delivered", delivered))
	}
	return ctx.JSON(http.StatusOK, map[string]any{
		"deviceId":  reading.DeviceID,
		"delivered": delivered,
	})
}
