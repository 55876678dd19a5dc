package myaudio

import (
	"encoding/binary"
	"math"
	"sync"
	"time"

	"github.com/gen2brain/malgo"
	"github.com/smallnest/ringbuffer"

	"github.com/sensordash/alertd/internal/errors"
	"github.com/sensordash/alertd/internal/logger"
)

const (
	bytesPerSample = 4
	// bufferedAudio is how much queued audio the playback buffer holds.
	bufferedAudio = 4 * time.Second
)

// Player streams float32 mono samples to the default playback device.
// Samples are queued in a ring buffer that the device callback drains;
// the device plays silence while the buffer is empty.
type Player struct {
	mu         sync.Mutex
	ctx        *malgo.AllocatedContext
	device     *malgo.Device
	buf        *ringbuffer.RingBuffer
	sampleRate int
	log        logger.Logger
	closed     bool
}

// NewPlayer opens the default playback device.
func NewPlayer(sampleRate int, log logger.Logger) (*Player, error) {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	log = log.Module("audio")

	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(msg string) {
		log.Debug("malgo", logger.String("message", msg))
	})
	if err != nil {
		return nil, errors.Newf("failed to initialize audio context: %w", err).
			Component("myaudio").
			Category(errors.CategoryAudio).
			Build()
	}

	p := &Player{
		ctx:        mctx,
		buf:        ringbuffer.New(int(bufferedAudio.Seconds()*float64(sampleRate)) * bytesPerSample),
		sampleRate: sampleRate,
		log:        log,
	}

	cfg := malgo.DefaultDeviceConfig(malgo.Playback)
	cfg.Playback.Format = malgo.FormatF32
	cfg.Playback.Channels = 1
	cfg.SampleRate = uint32(sampleRate) //nolint:gosec // G115: sample rate validated positive

	device, err := malgo.InitDevice(mctx.Context, cfg, malgo.DeviceCallbacks{
		Data: func(out, _ []byte, _ uint32) {
			fillOutput(p.buf, out)
		},
	})
	if err != nil {
		_ = mctx.Uninit()
		mctx.Free()
		return nil, errors.Newf("failed to open playback device: %w", err).
			Component("myaudio").
			Category(errors.CategoryAudio).
			Context("sample_rate", sampleRate).
			Build()
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		_ = mctx.Uninit()
		mctx.Free()
		return nil, errors.Newf("failed to start playback device: %w", err).
			Component("myaudio").
			Category(errors.CategoryAudio).
			Build()
	}
	p.device = device

	log.Info("playback device started", logger.Int("sample_rate", sampleRate))
	return p, nil
}

// SampleRate returns the device sample rate.
func (p *Player) SampleRate() int { return p.sampleRate }

// Play queues samples for playback and returns without waiting for them to
// be heard. It fails when the queue cannot hold the samples.
func (p *Player) Play(samples []float32) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return errors.Newf("audio player is closed").
			Component("myaudio").
			Category(errors.CategoryAudio).
			Build()
	}
	data := encodeSamples(samples)
	if free := p.buf.Free(); free < len(data) {
		return errors.Newf("playback queue full: %d bytes free, %d needed", free, len(data)).
			Component("myaudio").
			Category(errors.CategoryAudio).
			Build()
	}
	if _, err := p.buf.Write(data); err != nil {
		return errors.Newf("failed to queue %d samples: %w", len(samples), err).
			Component("myaudio").
			Category(errors.CategoryAudio).
			Build()
	}
	return nil
}

// Close stops the device and releases the audio context.
func (p *Player) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	if p.device != nil {
		p.device.Uninit()
	}
	err := p.ctx.Uninit()
	p.ctx.Free()
	return err
}

// fillOutput copies queued audio into the device buffer and pads the rest
// with silence.
func fillOutput(buf *ringbuffer.RingBuffer, out []byte) {
	// Only whole samples are read so the stream never loses alignment.
	want := len(out) - len(out)%bytesPerSample
	n, _ := buf.Read(out[:want])
	clear(out[n:])
}

func encodeSamples(samples []float32) []byte {
	b := make([]byte, len(samples)*bytesPerSample)
	for i, s := range samples {
		binary.LittleEndian.PutUint32(b[i*bytesPerSample:], math.Float32bits(s))
	}
	return b
}
