// Package api implements the v2 JSON API the dashboard renders alerts,
// toasts and engine settings from.
package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sensordash/alertd/internal/alerting"
	"github.com/sensordash/alertd/internal/datastore/repository"
	"github.com/sensordash/alertd/internal/logger"
	"github.com/sensordash/alertd/internal/notification"
	"github.com/sensordash/alertd/internal/observability/metrics"
)

// QueryValueTrue is the query parameter value treated as boolean true.
const QueryValueTrue = "true"

// SettingsPersister stores the user-facing engine preferences.
type SettingsPersister interface {
	PersistPreferences(audioEnabled, autoHideEnabled bool) error
}

// Dependencies are the components the controller serves. RuleRepo,
// Persister, Bus, Events and Metrics are optional.
type Dependencies struct {
	Engine    *alerting.Engine
	Store     *notification.Store
	Toasts    *notification.ToastManager
	Events    *notification.Broadcaster
	Rules     *alerting.RuleStore
	RuleRepo  repository.AlertRuleRepository
	Bus       *alerting.ReadingEventBus
	Metrics   *metrics.AlertMetrics
	Persister SettingsPersister

	// ReadingsRate and ReadingsBurst limit POST /readings per client IP.
	ReadingsRate  float64
	ReadingsBurst int

	// StreamHeartbeat is the idle interval of the notification stream.
	StreamHeartbeat time.Duration

	Logger logger.Logger
}

// Controller handles the /api/v2 routes.
type Controller struct {
	Group *echo.Group

	engine    *alerting.Engine
	store     *notification.Store
	toasts    *notification.ToastManager
	events    *notification.Broadcaster
	rules     *alerting.RuleStore
	ruleRepo  repository.AlertRuleRepository
	bus       *alerting.ReadingEventBus
	metrics   *metrics.AlertMetrics
	persister SettingsPersister

	readingsRate    float64
	readingsBurst   int
	streamHeartbeat time.Duration

	log logger.Logger
	now func() time.Time
}

// New registers the v2 routes on e.
func New(e *echo.Echo, deps Dependencies) *Controller {
	log := deps.Logger
	if log == nil {
		log = logger.NewNop()
	}
	c := &Controller{
		Group:           e.Group("/api/v2"),
		engine:          deps.Engine,
		store:           deps.Store,
		toasts:          deps.Toasts,
		events:          deps.Events,
		rules:           deps.Rules,
		ruleRepo:        deps.RuleRepo,
		bus:             deps.Bus,
		metrics:         deps.Metrics,
		persister:       deps.Persister,
		readingsRate:    deps.ReadingsRate,
		readingsBurst:   deps.ReadingsBurst,
		streamHeartbeat: deps.StreamHeartbeat,
		log:             log.Module("api"),
		now:             time.Now,
	}
	if c.streamHeartbeat <= 0 {
		c.streamHeartbeat = defaultStreamHeartbeat
	}
	c.initRoutes()
	return c
}

func (c *Controller) initRoutes() {
	c.initNotificationRoutes()
	c.initToastRoutes()
	c.initSettingsRoutes()
	c.initReadingRoutes()
	c.initAlertRoutes()
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// HandleError logs err and writes it with a user-facing message.
func (c *Controller) HandleError(ctx echo.Context, err error, message string, code int) error {
	if code >= http.StatusInternalServerError {
		c.logErrorIfEnabled(message,
			logger.Error(err),
			logger.String("path", ctx.Request().URL.Path),
			logger.Int("status", code))
	}
	return ctx.JSON(code, ErrorResponse{Error: err.Error(), Message: message, Code: code})
}

func (c *Controller) logErrorIfEnabled(msg string, fields ...logger.Field) {
	if c.log != nil {
		c.log.Error(msg, fields...)
	}
}

func (c *Controller) logDebugIfEnabled(msg string, fields ...logger.Field) {
	if c.log != nil {
		c.log.Debug(msg, fields...)
	}
}

func (c *Controller) logInfoIfEnabled(msg string, fields ...logger.Field) {
	if c.log != nil {
		c.log.Info(msg, fields...)
	}
}

func parseUintParam(ctx echo.Context, name string) (uint, error) {
	v, err := strconv.ParseUint(ctx.Param(name), 10, 64)
	if err != nil {
		return 0, err
	}
	return uint(v), nil
}

func badRequest(ctx echo.Context, msg string) error {
	return ctx.JSON(http.StatusBadRequest, map[string]string{"error": msg})
}

func notFound(ctx echo.Context, msg string) error {
	return ctx.JSON(http.StatusNotFound, map[string]string{"error": msg})
}
