package notification

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/sensordash/alertd/internal/errors"
)

// Toast timing defaults.
const (
	DefaultToastDuration     = 8 * time.Second
	DefaultToastRemovalDelay = 300 * time.Millisecond
	DefaultToastTickInterval = 50 * time.Millisecond

	// MinBulkDismiss is the number of visible toasts at which bulk dismissal
	// becomes available.
	MinBulkDismiss = 3
)

// ErrToastNotFound is returned when dismissing a toast that is not visible.
var ErrToastNotFound = errors.NewStd("toast not found")

// ToastState is the lifecycle stage of a toast.
type ToastState int

const (
	ToastPending ToastState = iota
	ToastVisible
	ToastRemoving
)

func (s ToastState) String() string {
	switch s {
	case ToastPending:
		return "pending"
	case ToastVisible:
		return "visible"
	case ToastRemoving:
		return "removing"
	default:
		return "removed"
	}
}

func (s ToastState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *ToastState) UnmarshalText(b []byte) error {
	for _, candidate := range []ToastState{ToastPending, ToastVisible, ToastRemoving} {
		if candidate.String() == string(b) {
			*s = candidate
			return nil
		}
	}
	return errors.Newf("unknown toast state %q", string(b)).
		Component("notification").
		Category(errors.CategoryValidation).
		Build()
}

// Toast is an ephemeral, auto-expiring rendering of an alert.
type Toast struct {
	ID string `json:"id"`
	Content
	Timestamp time.Time `json:"timestamp"`
	AutoHide  bool      `json:"autoHide"`
	// DurationMs is the visible time before auto hide; zero never hides.
	DurationMs int64      `json:"durationMs"`
	State      ToastState `json:"state"`

	visibleAt  time.Time
	removingAt time.Time
}

// ToastManager owns the toast collection and its lifecycle:
// pending, visible, removing, removed.
type ToastManager struct {
	mu           sync.Mutex
	toasts       []*Toast // insertion order
	removalDelay time.Duration
	events       *Broadcaster
}

// NewToastManager creates a manager that purges dismissed toasts after
// removalDelay.
func NewToastManager(removalDelay time.Duration) *ToastManager {
	if removalDelay < 0 {
		removalDelay = DefaultToastRemovalDelay
	}
	return &ToastManager{removalDelay: removalDelay}
}

// PublishTo streams every enqueued toast to b.
func (m *ToastManager) PublishTo(b *Broadcaster) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = b
}

// Enqueue adds a toast in the pending state.
func (m *ToastManager) Enqueue(t Toast) {
	t.State = ToastPending
	t.visibleAt = time.Time{}
	t.removingAt = time.Time{}

	m.mu.Lock()
	m.toasts = append(m.toasts, &t)
	events := m.events
	m.mu.Unlock()

	published := t
	events.Publish(Event{Type: EventToast, Toast: &published})
}

// Tick advances every toast by one step relative to now.
func (m *ToastManager) Tick(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.toasts[:0]
	for _, t := range m.toasts {
		switch t.State {
		case ToastPending:
			t.State = ToastVisible
			t.visibleAt = now
		case ToastVisible:
			if t.AutoHide && t.DurationMs > 0 &&
				now.Sub(t.visibleAt) >= time.Duration(t.DurationMs)*time.Millisecond {
				t.State = ToastRemoving
				t.removingAt = now
			}
		case ToastRemoving:
			if now.Sub(t.removingAt) >= m.removalDelay {
				continue
			}
		}
		kept = append(kept, t)
	}
	clear(m.toasts[len(kept):])
	m.toasts = kept
}

// Dismiss starts removal of a visible toast.
func (m *ToastManager) Dismiss(id string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, t := range m.toasts {
		if t.ID == id && t.State == ToastVisible {
			t.State = ToastRemoving
			t.removingAt = now
			return nil
		}
	}
	return ErrToastNotFound
}

// CanDismissAll reports whether bulk dismissal is available.
func (m *ToastManager) CanDismissAll() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.countLocked(ToastVisible) >= MinBulkDismiss
}

// DismissAll starts removal of every visible toast in one step and returns
// how many were affected. Below MinBulkDismiss visible toasts it does nothing.
func (m *ToastManager) DismissAll(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.countLocked(ToastVisible) < MinBulkDismiss {
		return 0
	}
	n := 0
	for _, t := range m.toasts {
		if t.State == ToastVisible {
			t.State = ToastRemoving
			t.removingAt = now
			n++
		}
	}
	return n
}

// Clear purges all toasts regardless of state.
func (m *ToastManager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.toasts = nil
}

// Active returns the visible and removing toasts, newest first.
func (m *ToastManager) Active() []Toast {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Toast, 0, len(m.toasts))
	for _, t := range slices.Backward(m.toasts) {
		if t.State == ToastVisible || t.State == ToastRemoving {
			out = append(out, *t)
		}
	}
	return out
}

// VisibleCount returns the number of toasts currently shown.
func (m *ToastManager) VisibleCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.countLocked(ToastVisible)
}

// Len returns the number of toasts in any state.
func (m *ToastManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.toasts)
}

// Run calls Tick every interval until ctx is cancelled.
func (m *ToastManager) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultToastTickInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			m.Tick(now)
		}
	}
}

func (m *ToastManager) countLocked(state ToastState) int {
	n := 0
	for _, t := range m.toasts {
		if t.State == state {
			n++
		}
	}
	return n
}

// NewToast creates a pending toast sharing id and content with a notification.
func NewToast(id string, content Content, now time.Time, autoHide bool, duration time.Duration) Toast {
	return Toast{
		ID:         id,
		Content:    content,
		Timestamp:  now,
		AutoHide:   autoHide,
		DurationMs: duration.Milliseconds(),
	}
}
