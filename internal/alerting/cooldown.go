package alerting

import (
	"strconv"
	"sync"
	"time"

	"github.com/sensordash/alertd/internal/datastore/entities"
)

// DefaultCooldownWindow is the minimum time between two alerts for the same
// device, rule and condition.
const DefaultCooldownWindow = 5 * time.Minute

// CooldownKey identifies what a cooldown applies to.
type CooldownKey struct {
	DeviceID  string
	Target    string
	Condition string
}

// KeyFor builds the cooldown key of a rule on a device. Rules that have not
// been stored yet (ID 0) are keyed by their sensor type.
func KeyFor(deviceID string, rule *entities.AlertRule) CooldownKey {
	target := rule.SensorType
	if rule.ID != 0 {
		target = strconv.FormatUint(uint64(rule.ID), 10)
	}
	return CooldownKey{DeviceID: deviceID, Target: target, Condition: rule.ConditionType}
}

func (k CooldownKey) String() string {
	return k.DeviceID + "_" + k.Target + "_" + k.Condition
}

// CooldownGate suppresses repeated alerts for the same key within a window.
type CooldownGate struct {
	mu        sync.Mutex
	window    time.Duration
	lastFired map[CooldownKey]time.Time
}

// NewCooldownGate creates a gate. A non-positive window uses the default.
func NewCooldownGate(window time.Duration) *CooldownGate {
	if window <= 0 {
		window = DefaultCooldownWindow
	}
	return &CooldownGate{
		window:    window,
		lastFired: make(map[CooldownKey]time.Time),
	}
}

// Allow reports whether key may fire at now and, if so, records now as its
// last firing time. The check and the update happen atomically.
func (g *CooldownGate) Allow(key CooldownKey, now time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if last, ok := g.lastFired[key]; ok && now.Sub(last) < g.window {
		return false
	}
	g.lastFired[key] = now
	return true
}

// SetWindow changes the window for future checks.
func (g *CooldownGate) SetWindow(window time.Duration) {
	if window <= 0 {
		window = DefaultCooldownWindow
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.window = window
}

// Window returns the current window.
func (g *CooldownGate) Window() time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.window
}

// Reset forgets every key.
func (g *CooldownGate) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	clear(g.lastFired)
}

// ResetDevice forgets the keys of one device.
func (g *CooldownGate) ResetDevice(deviceID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for key := range g.lastFired {
		if key.DeviceID == deviceID {
			delete(g.lastFired, key)
		}
	}
}

// Len returns the number of tracked keys.
func (g *CooldownGate) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.lastFired)
}
