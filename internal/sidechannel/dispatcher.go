package sidechannel

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sensordash/alertd/internal/errors"
	"github.com/sensordash/alertd/internal/logger"
	"github.com/sensordash/alertd/internal/notification"
	"github.com/sensordash/alertd/internal/observability/metrics"
)

const (
	channelAudio = "audio"
	channelOS    = "os"
)

// Dispatcher fires the side effects of a delivered notification. Work runs
// on background goroutines; Wait blocks until all of it has finished.
type Dispatcher struct {
	player       Player
	notifier     OSNotifier
	audioEnabled atomic.Bool
	pulseDelay   time.Duration
	metrics      *metrics.AlertMetrics
	log          logger.Logger
	wg           sync.WaitGroup
}

// NewDispatcher creates a dispatcher. A nil player or notifier disables
// that channel.
func NewDispatcher(player Player, notifier OSNotifier, audioEnabled bool, m *metrics.AlertMetrics, log logger.Logger) *Dispatcher {
	d := &Dispatcher{
		player:     player,
		notifier:   notifier,
		pulseDelay: SecondPulseDelay,
		metrics:    m,
		log:        log.Module("sidechannel"),
	}
	d.audioEnabled.Store(audioEnabled)
	return d
}

// SetAudioEnabled toggles sound for subsequent dispatches.
func (d *Dispatcher) SetAudioEnabled(enabled bool) {
	d.audioEnabled.Store(enabled)
}

// AudioEnabled reports the current sound setting.
func (d *Dispatcher) AudioEnabled() bool {
	return d.audioEnabled.Load()
}

// Dispatch plays the severity tone for sensor alerts when sound is enabled
// and sends the OS notification when permitted. Critical alerts get a
// second tone after SecondPulseDelay unless ctx is cancelled first.
func (d *Dispatcher) Dispatch(ctx context.Context, n notification.Notification) {
	if d.player != nil && d.AudioEnabled() && n.Kind == notification.KindSensorAlert {
		sig := SignalFor(n.Severity)
		pulses := Pulses(n.Severity)
		d.wg.Go(func() {
			for i := range pulses {
				if i > 0 {
					timer := time.NewTimer(d.pulseDelay)
					select {
					case <-ctx.Done():
						timer.Stop()
						return
					case <-timer.C:
					}
				}
				d.safeCall(channelAudio, n.ID, func() error {
					return d.player.PlaySignal(ctx, sig)
				})
			}
		})
	}

	if d.notifier != nil && d.notifier.Permitted() {
		d.wg.Go(func() {
			d.safeCall(channelOS, n.ID, func() error {
				return d.notifier.Send(ctx, &n)
			})
		})
	}
}

// Wait blocks until every dispatched side effect has completed.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// safeCall runs fn and turns both errors and panics into a log line and a
// failure count.
func (d *Dispatcher) safeCall(channel, id string, fn func() error) {
	var err error
	defer func() {
		if r := recover(); r != nil {
			err = errors.Newf("panic in %s side channel: %v", channel, r).
				Component("sidechannel").
				Category(categoryFor(channel)).
				Context("notification_id", id).
				Build()
		}
		if err != nil {
			d.log.Warn("side channel delivery failed",
				logger.String("channel", channel),
				logger.String("notification_id", id),
				logger.Error(err))
		}
		d.metrics.RecordSideChannel(channel, err)
	}()

	if callErr := fn(); callErr != nil {
		err = fmt.Errorf("%s side channel: %w", channel, callErr)
	}
}

func categoryFor(channel string) errors.ErrorCategory {
	if channel == channelAudio {
		return errors.CategoryAudio
	}
	return errors.CategoryNotification
}
