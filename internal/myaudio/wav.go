package myaudio

import (
	"io"
	"math"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/sensordash/alertd/internal/errors"
)

const wavBitDepth = 16

// WriteWAV encodes mono samples as a 16-bit PCM WAV file.
func WriteWAV(w io.WriteSeeker, samples []float32, sampleRate int) error {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}

	enc := wav.NewEncoder(w, sampleRate, wavBitDepth, 1, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           make([]int, len(samples)),
		SourceBitDepth: wavBitDepth,
	}
	for i, s := range samples {
		clamped := max(-1, min(1, float64(s)))
		buf.Data[i] = int(math.Round(clamped * math.MaxInt16))
	}

	if err := enc.Write(buf); err != nil {
		return errors.Newf("failed to encode wav: %w", err).
			Component("myaudio").
			Category(errors.CategoryAudio).
			Build()
	}
	if err := enc.Close(); err != nil {
		return errors.Newf("failed to finalize wav: %w", err).
			Component("myaudio").
			Category(errors.CategoryAudio).
			Build()
	}
	return nil
}

// ReadWAV decodes a mono 16-bit PCM WAV file into samples and its sample rate.
func ReadWAV(r io.ReadSeeker) ([]float32, int, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, 0, errors.Newf("not a valid wav file").
			Component("myaudio").
			Category(errors.CategoryValidation).
			Build()
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, errors.Newf("failed to decode wav: %w", err).
			Component("myaudio").
			Category(errors.CategoryAudio).
			Build()
	}

	out := make([]float32, len(buf.Data))
	for i, v := range buf.Data {
		out[i] = float32(float64(v) / math.MaxInt16)
	}
	return out, int(dec.SampleRate), nil
}
