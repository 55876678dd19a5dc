package sidechannel

import (
	"context"

	"github.com/sensordash/alertd/internal/myaudio"
	"github.com/sensordash/alertd/internal/notification"
)

// Player plays a single audio signal.
type Player interface {
	PlaySignal(ctx context.Context, sig AudioSignal) error
}

// OSNotifier shows a notification outside the dashboard. Permitted reports
// whether the user allowed it; Send is only called when it did.
type OSNotifier interface {
	Permitted() bool
	Send(ctx context.Context, n *notification.Notification) error
}

// pcmSink is satisfied by *myaudio.Player.
type pcmSink interface {
	Play(samples []float32) error
	SampleRate() int
}

// SpeakerPlayer renders signals and queues them on the audio device.
type SpeakerPlayer struct {
	sink pcmSink
}

// NewSpeakerPlayer wraps an opened audio device.
func NewSpeakerPlayer(p *myaudio.Player) *SpeakerPlayer {
	return &SpeakerPlayer{sink: p}
}

func (s *SpeakerPlayer) PlaySignal(ctx context.Context, sig AudioSignal) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.sink.Play(sig.Render(s.sink.SampleRate()))
}
