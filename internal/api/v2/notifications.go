package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/sensordash/alertd/internal/errors"
	"github.com/sensordash/alertd/internal/notification"
)

const maxNotificationLimit = notification.DefaultCapacity

// initNotificationRoutes registers the notification log endpoints.
func (c *Controller) initNotificationRoutes() {
	g := c.Group.Group("/notifications")
	g.GET("", c.GetNotifications)
	g.DELETE("", c.ClearNotifications)
	g.GET("/unread/count", c.GetUnreadCount)
	g.PUT("/read-all", c.MarkAllNotificationsRead)
	g.POST("/test", c.CreateTestNotification)
	g.GET("/stream", c.StreamNotifications)
	g.GET("/:id", c.GetNotification)
	g.PUT("/:id/read", c.MarkNotificationRead)
	g.DELETE("/:id", c.DeleteNotification)
}

// NotificationListResponse is the body of GET /notifications.
type NotificationListResponse struct {
	Notifications []notification.Notification `json:"notifications"`
	Count         int                         `json:"count"`
	UnreadCount   int                         `json:"unreadCount"`
}

// GetNotifications lists the log, newest first. Query parameters: unread=true
// keeps unread entries, type filters by kind, limit caps the result.
func (c *Controller) GetNotifications(ctx echo.Context) error {
	list := c.store.List()

	unreadOnly := ctx.QueryParam("unread") == QueryValueTrue
	kind := notification.Kind(ctx.QueryParam("type"))
	if kind != "" && !kind.Valid() {
		return badRequest(ctx, "Invalid notification type")
	}

	limit := maxNotificationLimit
	if raw := ctx.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return badRequest(ctx, "Invalid limit")
		}
		limit = min(n, maxNotificationLimit)
	}

	out := make([]notification.Notification, 0, min(len(list), limit))
	for i := range list {
		if len(out) == limit {
			break
		}
		if unreadOnly && list[i].IsRead {
			continue
		}
		if kind != "" && list[i].Kind != kind {
			continue
		}
		out = append(out, list[i])
	}

	return ctx.JSON(http.StatusOK, NotificationListResponse{
		Notifications: out,
		Count:         len(out),
		UnreadCount:   c.store.UnreadCount(),
	})
}

// GetNotification returns one notification.
func (c *Controller) GetNotification(ctx echo.Context) error {
	n, err := c.store.Get(ctx.Param("id"))
	if err != nil {
		return c.notificationError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, n)
}

// MarkNotificationRead marks one notification read.
func (c *Controller) MarkNotificationRead(ctx echo.Context) error {
	if err := c.store.MarkRead(ctx.Param("id")); err != nil {
		return c.notificationError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, map[string]any{
		"message":     "Notification marked as read",
		"unreadCount": c.store.UnreadCount(),
	})
}

// MarkAllNotificationsRead marks every notification read.
func (c *Controller) MarkAllNotificationsRead(ctx echo.Context) error {
	updated := c.store.MarkAllRead()
	return ctx.JSON(http.StatusOK, map[string]any{
		"updated":     updated,
		"unreadCount": 0,
	})
}

// DeleteNotification removes one notification from the log.
func (c *Controller) DeleteNotification(ctx echo.Context) error {
	if err := c.store.Remove(ctx.Param("id")); err != nil {
		return c.notificationError(ctx, err)
	}
	return ctx.NoContent(http.StatusNoContent)
}

// ClearNotifications empties the log and removes every toast.
func (c *Controller) ClearNotifications(ctx echo.Context) error {
	c.engine.ClearNotifications()
	return ctx.NoContent(http.StatusNoContent)
}

// GetUnreadCount returns the number of unread notifications.
func (c *Controller) GetUnreadCount(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, map[string]int{"unreadCount": c.store.UnreadCount()})
}

// CreateTestNotification posts an info notification through every delivery
// channel so push and OS targets can be checked.
func (c *Controller) CreateTestNotification(ctx echo.Context) error {
	n, err := c.engine.Notify(notification.KindInfo, "Test notification",
		"If you can read this, alert delivery is working.")
	if err != nil {
		return c.HandleError(ctx, err, "Failed to create test notification", http.StatusInternalServerError)
	}
	return ctx.JSON(http.StatusCreated, n)
}

func (c *Controller) notificationError(ctx echo.Context, err error) error {
	if errors.Is(err, notification.ErrNotificationNotFound) {
		return notFound(ctx, "Notification not found")
	}
	return c.HandleError(ctx, err, "Notification request failed", http.StatusInternalServerError)
}
