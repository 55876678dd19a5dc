package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/sensordash/alertd/internal/logger"
	"github.com/sensordash/alertd/internal/notification"
)

// Stream connection limits.
const (
	maxStreamDuration      = 30 * time.Minute
	defaultStreamHeartbeat = 30 * time.Second
)

const (
	streamEventConnected = "connected"
	streamEventHeartbeat = "heartbeat"
)

// StreamNotifications pushes new notifications and toasts to the client as
// server-sent events until it disconnects. A heartbeat keeps idle proxies
// from closing the connection.
func (c *Controller) StreamNotifications(ctx echo.Context) error {
	if c.events == nil {
		return ctx.JSON(http.StatusServiceUnavailable, map[string]string{
			"error": "Notification stream not available",
		})
	}

	reqCtx, cancel := context.WithTimeout(ctx.Request().Context(), maxStreamDuration)
	defer cancel()

	events, unsubscribe := c.events.Subscribe()
	defer unsubscribe()
	defer c.metrics.StreamConnected()()

	clientID := uuid.NewString()
	setSSEHeaders(ctx)
	if err := c.sendSSEMessage(ctx, streamEventConnected, map[string]string{
		"clientId": clientID,
		"message":  "Connected to notification stream",
	}); err != nil {
		c.logStreamError("failed to send connected event", err, clientID)
		return nil
	}

	c.logDebugIfEnabled("notification stream client connected",
		logger.String("client_id", clientID),
		logger.String("ip", ctx.RealIP()))
	defer c.logDebugIfEnabled("notification stream client disconnected",
		logger.String("client_id", clientID))

	ticker := time.NewTicker(c.streamHeartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-reqCtx.Done():
			return nil

		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if err := c.sendStreamEvent(ctx, ev); err != nil {
				c.logStreamError("failed to send stream event", err, clientID)
				return nil
			}

		case now := <-ticker.C:
			if err := c.sendSSEMessage(ctx, streamEventHeartbeat, map[string]string{
				"timestamp": now.UTC().Format(time.RFC3339),
			}); err != nil {
				c.logStreamError("heartbeat failed", err, clientID)
				return nil
			}
		}
	}
}

func (c *Controller) sendStreamEvent(ctx echo.Context, ev notification.Event) error {
	switch ev.Type {
	case notification.EventNotification:
		return c.sendSSEMessage(ctx, string(ev.Type), ev.Notification)
	case notification.EventToast:
		return c.sendSSEMessage(ctx, string(ev.Type), ev.Toast)
	default:
		return nil
	}
}

func setSSEHeaders(ctx echo.Context) {
	h := ctx.Response().Header()
	h.Set(echo.HeaderContentType, "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	ctx.Response().WriteHeader(http.StatusOK)
	ctx.Response().Flush()
}

// sendSSEMessage writes one event frame and flushes it.
func (c *Controller) sendSSEMessage(ctx echo.Context, event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(ctx.Response(), "event: %s\ndata: %s\n\n", event, payload); err != nil {
		return err
	}
	ctx.Response().Flush()
	c.metrics.RecordStreamMessage(event)
	return nil
}

func (c *Controller) logStreamError(msg string, err error, clientID string) {
	c.logDebugIfEnabled(msg,
		logger.String("client_id", clientID),
		logger.Error(err))
}
