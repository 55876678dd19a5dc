// Package myaudio renders alert tones and plays them on the default output
// device.
package myaudio

import (
	"math"
	"time"
)

// DefaultSampleRate is used when no sample rate is configured.
const DefaultSampleRate = 48000

// Render synthesizes a mono sine tone. The envelope rises linearly from
// silence to peakGain over attack and falls linearly back to silence at
// total. Samples are in the range [-1, 1].
func Render(freqHz, peakGain float64, attack, total time.Duration, sampleRate int) []float32 {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	if total <= 0 {
		return nil
	}
	attack = min(max(attack, 0), total)

	n := int(math.Round(total.Seconds() * float64(sampleRate)))
	attackSamples := attack.Seconds() * float64(sampleRate)
	decaySamples := float64(n) - attackSamples

	out := make([]float32, n)
	step := 2 * math.Pi * freqHz / float64(sampleRate)
	for i := range out {
		pos := float64(i)
		var env float64
		switch {
		case pos < attackSamples:
			env = peakGain * pos / attackSamples
		case decaySamples > 0:
			env = peakGain * (1 - (pos-attackSamples)/decaySamples)
		}
		out[i] = float32(env * math.Sin(step*pos))
	}
	return out
}

// Silence returns d worth of zero samples.
func Silence(d time.Duration, sampleRate int) []float32 {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	if d <= 0 {
		return nil
	}
	return make([]float32, int(math.Round(d.Seconds()*float64(sampleRate))))
}
