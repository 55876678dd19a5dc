package notification

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testToast(id string, sev Severity, autoHide bool, duration time.Duration) Toast {
	return NewToast(id, Content{Title: id, Kind: KindSensorAlert, Severity: sev}, baseTime, autoHide, duration)
}

func TestToast_AutoHideLifecycle(t *testing.T) {
	t.Parallel()
	m := NewToastManager(DefaultToastRemovalDelay)
	m.Enqueue(testToast("t1", SeverityHigh, true, 8*time.Second))

	assert.Empty(t, m.Active(), "pending toasts are not rendered")

	m.Tick(baseTime)
	active := m.Active()
	require.Len(t, active, 1)
	assert.Equal(t, ToastVisible, active[0].State)

	m.Tick(baseTime.Add(7999 * time.Millisecond))
	assert.Equal(t, ToastVisible, m.Active()[0].State)

	m.Tick(baseTime.Add(8 * time.Second))
	assert.Equal(t, ToastRemoving, m.Active()[0].State)

	m.Tick(baseTime.Add(8*time.Second + 299*time.Millisecond))
	assert.Equal(t, 1, m.Len())

	m.Tick(baseTime.Add(8*time.Second + 300*time.Millisecond))
	assert.Equal(t, 0, m.Len())
}

func TestToast_CriticalNeverAutoHides(t *testing.T) {
	t.Parallel()
	m := NewToastManager(DefaultToastRemovalDelay)
	m.Enqueue(testToast("crit", SeverityCritical, false, 0))

	m.Tick(baseTime)
	m.Tick(baseTime.Add(time.Hour))
	active := m.Active()
	require.Len(t, active, 1)
	assert.Equal(t, ToastVisible, active[0].State)

	require.NoError(t, m.Dismiss("crit", baseTime.Add(time.Hour)))
	m.Tick(baseTime.Add(time.Hour + time.Second))
	assert.Equal(t, 0, m.Len())
}

func TestToast_ZeroDurationWithAutoHideStays(t *testing.T) {
	t.Parallel()
	m := NewToastManager(DefaultToastRemovalDelay)
	m.Enqueue(testToast("z", SeverityLow, true, 0))

	m.Tick(baseTime)
	m.Tick(baseTime.Add(time.Minute))
	assert.Equal(t, 1, m.VisibleCount())
}

func TestToast_DismissRequiresVisible(t *testing.T) {
	t.Parallel()
	m := NewToastManager(DefaultToastRemovalDelay)
	m.Enqueue(testToast("p", SeverityHigh, true, time.Second))

	require.ErrorIs(t, m.Dismiss("p", baseTime), ErrToastNotFound, "pending toast")
	require.ErrorIs(t, m.Dismiss("missing", baseTime), ErrToastNotFound)

	m.Tick(baseTime)
	require.NoError(t, m.Dismiss("p", baseTime))
	require.ErrorIs(t, m.Dismiss("p", baseTime), ErrToastNotFound, "already removing")
}

func TestToast_DismissAllThreshold(t *testing.T) {
	t.Parallel()
	m := NewToastManager(DefaultToastRemovalDelay)
	m.Enqueue(testToast("a", SeverityHigh, true, 8*time.Second))
	m.Enqueue(testToast("b", SeverityHigh, true, 8*time.Second))
	m.Tick(baseTime)

	assert.False(t, m.CanDismissAll())
	assert.Equal(t, 0, m.DismissAll(baseTime))
	assert.Equal(t, 2, m.VisibleCount())

	m.Enqueue(testToast("c", SeverityCritical, false, 0))
	m.Tick(baseTime.Add(time.Second))
	assert.True(t, m.CanDismissAll())
	assert.Equal(t, 3, m.DismissAll(baseTime.Add(time.Second)))
	assert.Equal(t, 0, m.VisibleCount())

	for _, toast := range m.Active() {
		assert.Equal(t, ToastRemoving, toast.State)
	}
}

func TestToast_ActiveNewestFirstAndClear(t *testing.T) {
	t.Parallel()
	m := NewToastManager(DefaultToastRemovalDelay)
	m.Enqueue(testToast("first", SeverityHigh, true, 8*time.Second))
	m.Enqueue(testToast("second", SeverityHigh, true, 8*time.Second))
	m.Tick(baseTime)

	active := m.Active()
	require.Len(t, active, 2)
	assert.Equal(t, "second", active[0].ID)
	assert.Equal(t, "first", active[1].ID)

	m.Clear()
	assert.Empty(t, m.Active())
	assert.Equal(t, 0, m.Len())
}

func TestToast_RunTicksUntilCancelled(t *testing.T) {
	t.Parallel()
	m := NewToastManager(10 * time.Millisecond)
	m.Enqueue(NewToast("r", Content{Kind: KindInfo}, time.Now(), true, 30*time.Millisecond))

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan struct{})
	go func() {
		m.Run(ctx, 5*time.Millisecond)
		close(done)
	}()

	require.Eventually(t, func() bool { return m.Len() == 0 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	<-done
}

func TestToastState_JSON(t *testing.T) {
	t.Parallel()
	b, err := ToastRemoving.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "removing", string(b))
}

func TestToastState_UnmarshalText(t *testing.T) {
	t.Parallel()
	var s ToastState
	require.NoError(t, s.UnmarshalText([]byte("visible")))
	assert.Equal(t, ToastVisible, s)
	assert.Error(t, s.UnmarshalText([]byte("gone")))
}
