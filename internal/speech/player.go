package speech

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/hammamikhairi/moodspeak/internal/domain"
	"github.com/hammamikhairi/moodspeak/internal/logger"
)

// ErrPlaybackStopped is returned by Play when Stop interrupted the clip.
var ErrPlaybackStopped = errors.New("playback stopped")

// Compile-time interface check.
var _ domain.AudioOutput = (*Player)(nil)

// Player plays synthesized clips through the system audio device via oto.
// Only one clip plays at a time.
type Player struct {
	ctx      *oto.Context
	log      *logger.Logger
	format   string
	rate     int
	channels int

	mu     sync.Mutex
	active *clip // currently playing, nil when idle
}

// clip is one Play call in flight.
type clip struct {
	player   *oto.Player
	stopped  chan struct{}
	stopOnce sync.Once
}

func (c *clip) stop() {
	c.stopOnce.Do(func() {
		close(c.stopped)
		c.player.Pause()
	})
}

// notifyReader closes eof once the wrapped reader is drained, so the
// watcher knows oto has taken the last sample.
type notifyReader struct {
	r    io.Reader
	eof  chan struct{}
	once sync.Once
}

func (n *notifyReader) Read(p []byte) (int, error) {
	k, err := n.r.Read(p)
	if err == io.EOF {
		n.once.Do(func() { close(n.eof) })
	}
	return k, err
}

// NewPlayer initializes the audio device. format is the container the
// synthesizer was asked for and only orders decode attempts. Returns an
// error if the device is unavailable.
func NewPlayer(log *logger.Logger, format string, rate, channels int) (*Player, error) {
	if rate <= 0 {
		rate = DefaultSampleRate
	}
	if channels <= 0 {
		channels = DefaultChannelCount
	}
	op := &oto.NewContextOptions{
		SampleRate:   rate,
		ChannelCount: channels,
		Format:       oto.FormatSignedInt16LE,
	}

	ctx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return nil, &domain.PlaybackError{Err: err}
	}
	<-readyChan

	log.Debug("audio player initialized (rate=%d, channels=%d)", rate, channels)
	return &Player{ctx: ctx, log: log, format: format, rate: rate, channels: channels}, nil
}

// Play decodes the clip and blocks until it finishes, Stop is called, or
// ctx is done. Decode failures come back as *domain.PlaybackError.
func (p *Player) Play(ctx context.Context, audio []byte) error {
	pcm, err := Decode(audio, p.format, p.rate, p.channels)
	if err != nil {
		return err
	}

	src := &notifyReader{r: bytes.NewReader(pcm.Data), eof: make(chan struct{})}
	c := &clip{player: p.ctx.NewPlayer(src), stopped: make(chan struct{})}

	p.mu.Lock()
	if p.active != nil {
		p.active.stop()
	}
	p.active = c
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		if p.active == c {
			p.active = nil
		}
		p.mu.Unlock()
	}()

	c.player.Play()
	p.log.Debug("audio player: playing %.2fs of PCM", pcm.Duration())

	done := make(chan struct{})
	go func() {
		defer close(done)
		select {
		case <-src.eof:
		case <-c.stopped:
			return
		}
		// oto exposes no completion callback; poll until the buffer drains.
		for c.player.IsPlaying() {
			select {
			case <-c.stopped:
				return
			case <-time.After(pollInterval):
			}
		}
	}()

	select {
	case <-done:
	case <-ctx.Done():
		c.stop()
		<-done
	}

	closeErr := c.player.Close()

	select {
	case <-c.stopped:
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrPlaybackStopped
	default:
	}
	if closeErr != nil {
		return &domain.PlaybackError{Err: closeErr}
	}
	return nil
}

// Stop interrupts the currently playing clip, if any. Safe to call
// concurrently and when nothing is playing.
func (p *Player) Stop() {
	p.mu.Lock()
	active := p.active
	p.mu.Unlock()

	if active != nil {
		active.stop()
		p.log.Debug("audio player: interrupted")
	}
}
