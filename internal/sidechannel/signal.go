// Package sidechannel delivers the audible and OS level side effects of a
// notification. Failures here never reach the caller.
package sidechannel

import (
	"time"

	"github.com/sensordash/alertd/internal/myaudio"
	"github.com/sensordash/alertd/internal/notification"
)

// Envelope timing shared by every severity.
const (
	AttackMs   = 100
	DurationMs = 500

	// SecondPulseDelay separates the two pulses of a critical alert.
	SecondPulseDelay = 700 * time.Millisecond
)

// AudioSignal describes one tone: a sine at FrequencyHz that ramps linearly
// to PeakGain over AttackMs and back to silence at DurationMs.
type AudioSignal struct {
	FrequencyHz float64 `json:"frequencyHz"`
	PeakGain    float64 `json:"peakGain"`
	AttackMs    int     `json:"attackMs"`
	DurationMs  int     `json:"durationMs"`
}

// SignalFor maps a severity to its tone. Higher severities are higher
// pitched and louder.
func SignalFor(sev notification.Severity) AudioSignal {
	sig := AudioSignal{AttackMs: AttackMs, DurationMs: DurationMs}
	switch sev {
	case notification.SeverityLow:
		sig.FrequencyHz, sig.PeakGain = 440, 0.1
	case notification.SeverityMedium:
		sig.FrequencyHz, sig.PeakGain = 554, 0.2
	case notification.SeverityHigh:
		sig.FrequencyHz, sig.PeakGain = 659, 0.3
	case notification.SeverityCritical:
		sig.FrequencyHz, sig.PeakGain = 880, 0.4
	default:
		sig.FrequencyHz, sig.PeakGain = 440, 0.1
	}
	return sig
}

// Pulses returns how many times the signal is played for a severity.
func Pulses(sev notification.Severity) int {
	if sev == notification.SeverityCritical {
		return 2
	}
	return 1
}

// Render synthesizes the signal as PCM samples.
func (s AudioSignal) Render(sampleRate int) []float32 {
	return myaudio.Render(
		s.FrequencyHz,
		s.PeakGain,
		time.Duration(s.AttackMs)*time.Millisecond,
		time.Duration(s.DurationMs)*time.Millisecond,
		sampleRate,
	)
}

// RenderSequence renders every pulse of a severity with the gap between
// them, as heard on the speaker.
func RenderSequence(sev notification.Severity, sampleRate int) []float32 {
	sig := SignalFor(sev)
	out := sig.Render(sampleRate)
	for range Pulses(sev) - 1 {
		gap := SecondPulseDelay - time.Duration(sig.DurationMs)*time.Millisecond
		out = append(out, myaudio.Silence(gap, sampleRate)...)
		out = append(out, sig.Render(sampleRate)...)
	}
	return out
}
