package alerting

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sensordash/alertd/internal/datastore/entities"
	"github.com/sensordash/alertd/internal/errors"
	"github.com/sensordash/alertd/internal/logger"
	"github.com/sensordash/alertd/internal/notification"
	"github.com/sensordash/alertd/internal/observability/metrics"
	"github.com/sensordash/alertd/internal/sensor"
	"github.com/sensordash/alertd/internal/sidechannel"
)

// Fetch sources, used in logs and metrics.
const (
	fetchRules    = "rules"
	fetchReadings = "readings"
)

// Reasons a reading was not evaluated.
const (
	dropNoDevice    = "no_device"
	dropOtherDevice = "other_device"
)

// ReadingSource provides the latest reading of a device. A nil reading with
// a nil error means the device has not reported anything yet.
type ReadingSource interface {
	GetLatestReading(ctx context.Context, deviceID string) (*sensor.Reading, error)
}

// Device is the device whose readings the engine evaluates.
type Device struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// DisplayName returns the name, or the id when no name is known.
func (d Device) DisplayName() string {
	if d.Name != "" {
		return d.Name
	}
	return d.ID
}

// Status breaks down the health signal.
type Status struct {
	Healthy              bool   `json:"healthy"`
	Device               Device `json:"device"`
	DeviceSelected       bool   `json:"deviceSelected"`
	LastFetchOK          bool   `json:"lastFetchOk"`
	UnacknowledgedErrors bool   `json:"unacknowledgedErrors"`
	UnreadCount          int    `json:"unreadCount"`
	ActiveToasts         int    `json:"activeToasts"`
}

// Engine evaluates readings of the current device against its rules and
// delivers each violation that passes the cooldown gate.
type Engine struct {
	rules    *RuleStore
	readings ReadingSource
	store    *notification.Store
	toasts   *notification.ToastManager
	side     *sidechannel.Dispatcher
	metrics  *metrics.AlertMetrics
	cooldown *CooldownGate
	log      logger.Logger
	now      func() time.Time

	cfgMu sync.RWMutex
	cfg   EngineConfig

	// device and generation change together under deviceMu. An evaluation
	// captures both before fetching and is dropped if either moved.
	deviceMu   sync.RWMutex
	device     Device
	generation uint64

	// evalMu serializes evaluate-gate-deliver passes.
	evalMu sync.Mutex

	fetchFailed atomic.Bool
	fetchedOnce atomic.Bool

	lifeMu  sync.RWMutex
	lifeCtx context.Context

	wake chan struct{}
}

// NewEngine creates an engine. A nil dispatcher or metrics disables side
// channels or instrumentation.
func NewEngine(
	cfg EngineConfig,
	rules *RuleStore,
	readings ReadingSource,
	store *notification.Store,
	toasts *notification.ToastManager,
	side *sidechannel.Dispatcher,
	m *metrics.AlertMetrics,
	log logger.Logger,
) *Engine {
	cfg = cfg.withDefaults()
	e := &Engine{
		rules:    rules,
		readings: readings,
		store:    store,
		toasts:   toasts,
		side:     side,
		metrics:  m,
		cooldown: NewCooldownGate(cfg.CooldownWindow),
		log:      log.Module("alerting"),
		now:      time.Now,
		cfg:      cfg,
		lifeCtx:  context.Background(),
		wake:     make(chan struct{}, 1),
	}
	if side != nil {
		side.SetAudioEnabled(cfg.AudioEnabled)
	}
	return e
}

// Config returns the current settings.
func (e *Engine) Config() EngineConfig {
	e.cfgMu.RLock()
	defer e.cfgMu.RUnlock()
	return e.cfg
}

// UpdateConfig replaces the settings as a whole. The notification capacity
// and toast removal delay are fixed at construction and ignored here.
func (e *Engine) UpdateConfig(cfg EngineConfig) {
	cfg = cfg.withDefaults()

	e.cfgMu.Lock()
	e.cfg = cfg
	e.cfgMu.Unlock()

	e.cooldown.SetWindow(cfg.CooldownWindow)
	if e.side != nil {
		e.side.SetAudioEnabled(cfg.AudioEnabled)
	}
	e.log.Info("engine settings updated",
		logger.Bool("audio_enabled", cfg.AudioEnabled),
		logger.Bool("auto_hide_enabled", cfg.AutoHideEnabled),
		logger.Duration("poll_interval", cfg.PollInterval),
		logger.Duration("cooldown_window", cfg.CooldownWindow))
	e.signal()
}

// SetCurrentDevice switches the engine to another device. Cooldowns and
// toasts are cleared, the notification log is kept, and evaluations still
// running for the previous device are discarded. Selecting the current
// device again only updates its name. An empty id deselects.
func (e *Engine) SetCurrentDevice(id, name string) {
	// Wait for a running pass so nothing it delivers survives the switch.
	e.evalMu.Lock()
	defer e.evalMu.Unlock()

	e.deviceMu.Lock()
	if id == e.device.ID {
		e.device.Name = name
		e.deviceMu.Unlock()
		e.log.Debug("current device reselected",
			logger.String("device_id", id),
			logger.String("device_name", name))
		return
	}
	e.device = Device{ID: id, Name: name}
	e.generation++
	gen := e.generation
	e.deviceMu.Unlock()

	e.cooldown.Reset()
	e.toasts.Clear()
	e.fetchFailed.Store(false)
	e.fetchedOnce.Store(false)

	e.log.Info("current device changed",
		logger.String("device_id", id),
		logger.String("device_name", name),
		logger.Uint64("generation", gen))
	e.signal()
}

// CurrentDevice returns the selected device.
func (e *Engine) CurrentDevice() Device {
	d, _ := e.current()
	return d
}

func (e *Engine) current() (Device, uint64) {
	e.deviceMu.RLock()
	defer e.deviceMu.RUnlock()
	return e.device, e.generation
}

func (e *Engine) isCurrent(gen uint64, deviceID string) bool {
	d, g := e.current()
	return g == gen && d.ID == deviceID
}

// Poll fetches the rules and the latest reading of the current device and
// evaluates them. A missing reading is not an error. Fetch errors degrade
// the health signal and are returned; the previous rule snapshot is still
// used when only the rule fetch failed.
func (e *Engine) Poll(ctx context.Context) error {
	dev, gen := e.current()
	if dev.ID == "" {
		return nil
	}

	rules, rulesErr := e.rules.Rules(ctx, dev.ID)
	if rulesErr != nil {
		e.recordFetchFailure(fetchRules, dev, gen, rulesErr)
		if rules == nil {
			return rulesErr
		}
	}

	reading, err := e.readings.GetLatestReading(ctx, dev.ID)
	if err != nil {
		e.recordFetchFailure(fetchReadings, dev, gen, err)
		return err
	}
	if rulesErr == nil {
		e.recordFetchSuccess(dev, gen)
	}
	if reading == nil {
		return rulesErr
	}
	if reading.DeviceID == "" {
		reading.DeviceID = dev.ID
	}

	e.metrics.RecordReading(SourcePoll)
	e.evaluate(ctx, gen, dev, reading, rules)
	return rulesErr
}

// HandleReading evaluates a reading that arrived outside the polling loop.
// Readings for any device other than the current one are ignored.
func (e *Engine) HandleReading(ctx context.Context, reading *sensor.Reading, source string) int {
	if reading == nil {
		return 0
	}
	e.metrics.RecordReading(source)

	dev, gen := e.current()
	switch {
	case dev.ID == "":
		e.metrics.RecordReadingDropped(dropNoDevice)
		return 0
	case reading.DeviceID != dev.ID:
		e.metrics.RecordReadingDropped(dropOtherDevice)
		e.log.Debug("reading for another device ignored",
			logger.String("device_id", reading.DeviceID),
			logger.String("current_device", dev.ID),
			logger.String("source", source))
		return 0
	}

	rules, err := e.rules.Rules(ctx, dev.ID)
	if err != nil {
		e.recordFetchFailure(fetchRules, dev, gen, err)
		if rules == nil {
			return 0
		}
	}
	return e.evaluate(ctx, gen, dev, reading, rules)
}

// SubscribeTo evaluates every reading published on bus.
func (e *Engine) SubscribeTo(bus *ReadingEventBus) {
	bus.Subscribe(func(event *ReadingEvent) {
		e.HandleReading(e.lifeContext(), event.Reading, event.Source)
	})
}

// evaluate runs one evaluate-gate-deliver pass and returns the number of
// alerts delivered.
func (e *Engine) evaluate(ctx context.Context, gen uint64, dev Device, reading *sensor.Reading, rules []entities.AlertRule) int {
	e.evalMu.Lock()
	defer e.evalMu.Unlock()

	if !e.isCurrent(gen, reading.DeviceID) {
		e.metrics.RecordStaleDropped()
		e.log.Debug("stale evaluation dropped",
			logger.String("device_id", reading.DeviceID),
			logger.Uint64("generation", gen))
		return 0
	}

	start := time.Now()
	violations := Evaluate(reading, rules)
	e.metrics.RecordEvaluation(time.Since(start).Seconds())

	now := e.now()
	cfg := e.Config()
	delivered := 0
	for i := range violations {
		v := &violations[i]
		e.metrics.RecordViolation(v.Severity.String())

		key := KeyFor(dev.ID, &v.Rule)
		if !e.cooldown.Allow(key, now) {
			e.metrics.RecordSuppressed()
			e.log.Debug("alert suppressed by cooldown",
				logger.String("key", key.String()))
			continue
		}
		e.deliverViolation(ctx, dev, v, now, cfg)
		delivered++
	}
	return delivered
}

// Notify adds an informational notification, for example a system error,
// to the log and the toast queue.
func (e *Engine) Notify(kind notification.Kind, title, message string) (*notification.Notification, error) {
	if !kind.Valid() {
		return nil, errors.Newf("unknown notification kind %q", kind).
			Component("alerting").
			Category(errors.CategoryValidation).
			Context("kind", string(kind)).
			Build()
	}
	if title == "" {
		return nil, errors.NewStd("notification title is required")
	}

	e.evalMu.Lock()
	defer e.evalMu.Unlock()
	return e.deliver(e.lifeContext(), infoContent(kind, title, message, e.CurrentDevice()), e.now(), e.Config()), nil
}

func infoContent(kind notification.Kind, title, message string, dev Device) notification.Content {
	return notification.Content{
		Title:      title,
		Message:    message,
		Kind:       kind,
		Severity:   severityForKind(kind),
		DeviceName: dev.DisplayName(),
	}
}

// ClearNotifications empties the notification log and removes every toast,
// critical ones included.
func (e *Engine) ClearNotifications() {
	e.evalMu.Lock()
	defer e.evalMu.Unlock()

	e.store.ClearAll()
	e.toasts.Clear()
	e.log.Info("notifications cleared")
}

// Healthy reports whether a device is selected, the last fetch succeeded and
// no warning or error notification is unread.
func (e *Engine) Healthy() bool {
	return e.Status().Healthy
}

// Status returns the parts of the health signal.
func (e *Engine) Status() Status {
	dev := e.CurrentDevice()
	s := Status{
		Device:               dev,
		DeviceSelected:       dev.ID != "",
		LastFetchOK:          !e.fetchFailed.Load(),
		UnacknowledgedErrors: e.store.HasUnacknowledged(unhealthyKinds...),
		UnreadCount:          e.store.UnreadCount(),
		ActiveToasts:         len(e.toasts.Active()),
	}
	s.Healthy = s.DeviceSelected && s.LastFetchOK && !s.UnacknowledgedErrors
	return s
}

// Run polls the current device every PollInterval until ctx is cancelled.
// A device switch or settings change triggers an immediate poll.
func (e *Engine) Run(ctx context.Context) error {
	e.lifeMu.Lock()
	e.lifeCtx = ctx
	e.lifeMu.Unlock()

	interval := e.Config().PollInterval
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	e.pollLogged(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			e.pollLogged(ctx)
		case <-e.wake:
			if next := e.Config().PollInterval; next != interval {
				interval = next
				ticker.Reset(interval)
			}
			e.pollLogged(ctx)
		}
	}
}

func (e *Engine) pollLogged(ctx context.Context) {
	if err := e.Poll(ctx); err != nil && ctx.Err() == nil {
		e.log.Warn("poll failed", logger.Error(err))
	}
}

func (e *Engine) signal() {
	select {
	case e.wake <- struct{}{}:
	default:
	}
}

func (e *Engine) lifeContext() context.Context {
	e.lifeMu.RLock()
	defer e.lifeMu.RUnlock()
	return e.lifeCtx
}

func (e *Engine) recordFetchSuccess(dev Device, gen uint64) {
	e.evalMu.Lock()
	defer e.evalMu.Unlock()

	if !e.isCurrent(gen, dev.ID) {
		return
	}
	e.fetchedOnce.Store(true)
	if e.fetchFailed.Swap(false) {
		e.log.Info("collaborator reachable again", logger.String("device_id", dev.ID))
	}
}

// recordFetchFailure degrades health. The first failure after a success
// also posts a system error notification. Failures of a fetch that started
// before the last device switch are ignored.
func (e *Engine) recordFetchFailure(source string, dev Device, gen uint64, err error) {
	e.metrics.RecordFetchFailure(source)
	if errors.Is(err, context.Canceled) {
		return
	}

	e.evalMu.Lock()
	defer e.evalMu.Unlock()

	if !e.isCurrent(gen, dev.ID) {
		e.log.Debug("stale fetch failure dropped",
			logger.String("source", source),
			logger.String("device_id", dev.ID),
			logger.Uint64("generation", gen))
		return
	}
	wasFailing := e.fetchFailed.Swap(true)
	e.log.Warn("fetch failed",
		logger.String("source", source),
		logger.String("device_id", dev.ID),
		logger.Error(err))
	if wasFailing || !e.fetchedOnce.Load() {
		return
	}
	content := infoContent(notification.KindSystemError, "Connection problem",
		"Could not fetch "+source+" for "+dev.DisplayName(), dev)
	e.deliver(e.lifeContext(), content, e.now(), e.Config())
}
