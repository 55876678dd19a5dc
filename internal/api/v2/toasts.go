package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sensordash/alertd/internal/errors"
	"github.com/sensordash/alertd/internal/notification"
)

func (c *Controller) initToastRoutes() {
	g := c.Group.Group("/toasts")
	g.GET("", c.GetToasts)
	g.DELETE("", c.DismissAllToasts)
	g.DELETE("/:id", c.DismissToast)
}

// ToastListResponse is the body of GET /toasts.
type ToastListResponse struct {
	Toasts        []notification.Toast `json:"toasts"`
	CanDismissAll bool                 `json:"canDismissAll"`
}

// GetToasts returns the visible and removing toasts, newest first.
func (c *Controller) GetToasts(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, ToastListResponse{
		Toasts:        c.toasts.Active(),
		CanDismissAll: c.toasts.CanDismissAll(),
	})
}

// DismissToast starts removal of one visible toast.
func (c *Controller) DismissToast(ctx echo.Context) error {
	if err := c.toasts.Dismiss(ctx.Param("id"), c.now()); err != nil {
		if errors.Is(err, notification.ErrToastNotFound) {
			return notFound(ctx, "Toast not found or not visible")
		}
		return c.HandleError(ctx, err, "Failed to dismiss toast", http.StatusInternalServerError)
	}
	return ctx.NoContent(http.StatusNoContent)
}

// DismissAllToasts dismisses every visible toast. Bulk dismissal is only
// offered once MinBulkDismiss toasts are visible.
func (c *Controller) DismissAllToasts(ctx echo.Context) error {
	if !c.toasts.CanDismissAll() {
		return ctx.JSON(http.StatusConflict, map[string]any{
			"error":   "Bulk dismissal needs at least 3 visible toasts",
			"visible": c.toasts.VisibleCount(),
		})
	}
	n := c.toasts.DismissAll(c.now())
	return ctx.JSON(http.StatusOK, map[string]int{"dismissed": n})
}
