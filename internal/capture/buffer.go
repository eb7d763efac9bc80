// Package capture records short-lived situational context for an alert:
// a rolling window of ambient audio, one photo and a location fix. Every
// failure degrades to an absent field.
package capture

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/RevCBH/guardian/internal/alert"
)

// Defaults
const (
	DefaultBufferSeconds = 30
	DefaultSegment       = time.Second
	DefaultSettleDelay   = 500 * time.Millisecond
	DefaultLocateTimeout = 10 * time.Second
)

// Config holds capture configuration
type Config struct {
	BufferSeconds int
	Segment       time.Duration
	SettleDelay   time.Duration
	LocateTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.BufferSeconds <= 0 {
		c.BufferSeconds = DefaultBufferSeconds
	}
	if c.Segment <= 0 {
		c.Segment = DefaultSegment
	}
	if c.SettleDelay < 0 {
		c.SettleDelay = 0
	}
	if c.LocateTimeout <= 0 {
		c.LocateTimeout = DefaultLocateTimeout
	}
	return c
}

// Dependencies bundles the devices. Any of them may be nil, in which case
// the matching field is never captured.
type Dependencies struct {
	Microphone Microphone
	Camera     Camera
	Locator    Locator
	Logger     *zap.Logger
}

// Request says which fields the user consented to capture.
type Request struct {
	Location bool
	Audio    bool
	Photo    bool
}

// Result holds what was captured. Nil fields were not.
type Result struct {
	Location *alert.Location
	Audio    *alert.Media
	Photo    *alert.Media
}

// Buffer owns the microphone and camera for the lifetime of the process.
type Buffer struct {
	cfg    Config
	mic    Microphone
	cam    Camera
	loc    Locator
	logger *zap.Logger

	ring *Ring

	mu     sync.Mutex
	stream io.ReadCloser
	format AudioFormat
	done   chan struct{}

	camMu sync.Mutex
}

// New creates a capture buffer.
func New(cfg Config, deps Dependencies) *Buffer {
	cfg = cfg.withDefaults()

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	segments := int(time.Duration(cfg.BufferSeconds) * time.Second / cfg.Segment)
	return &Buffer{
		cfg:    cfg,
		mic:    deps.Microphone,
		cam:    deps.Camera,
		loc:    deps.Locator,
		logger: logger.Named("capture"),
		ring:   NewRing(segments),
	}
}

// StartAudio begins recording into the ring. Starting while already
// recording is a no-op. A refused microphone returns ErrPermissionDenied.
func (b *Buffer) StartAudio(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.mic == nil {
		return ErrUnavailable
	}
	if b.stream != nil {
		select {
		case <-b.done:
			// Recorder exited on its own; restart it.
			b.stream.Close()
			b.stream, b.done = nil, nil
		default:
			return nil
		}
	}

	stream, format, err := b.mic.Open(ctx)
	if err != nil {
		b.logger.Info("microphone unavailable", zap.Error(err))
		return err
	}

	frameBytes := max(format.FrameBytes(), 1)
	segBytes := int(int64(format.BytesPerSecond()) * int64(b.cfg.Segment) / int64(time.Second))
	segBytes -= segBytes % frameBytes
	if segBytes <= 0 {
		stream.Close()
		return errors.New("microphone reported an empty audio format")
	}

	b.ring.Reset()
	b.stream = stream
	b.format = format
	b.done = make(chan struct{})
	go b.record(stream, segBytes, frameBytes, b.done)

	b.logger.Debug("audio capture started",
		zap.Int("segment_bytes", segBytes),
		zap.Int("segments", b.ring.Cap()))
	return nil
}

func (b *Buffer) record(stream io.Reader, segBytes, frameBytes int, done chan struct{}) {
	defer close(done)
	for {
		seg := make([]byte, segBytes)
		n, err := io.ReadFull(stream, seg)
		// A short final read may end mid-frame.
		n -= n % frameBytes
		if n > 0 {
			b.ring.Push(seg[:n])
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.ErrClosedPipe) {
				b.logger.Debug("audio stream ended", zap.Error(err))
			}
			return
		}
	}
}

// Recording reports whether the microphone is open and streaming.
func (b *Buffer) Recording() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stream == nil {
		return false
	}
	select {
	case <-b.done:
		return false
	default:
		return true
	}
}

// StopAudio stops recording, releases the microphone and discards the
// buffered audio. Safe to call repeatedly.
func (b *Buffer) StopAudio() {
	b.mu.Lock()
	stream, done := b.stream, b.done
	b.stream, b.done = nil, nil
	b.mu.Unlock()

	if stream == nil {
		return
	}
	if err := stream.Close(); err != nil {
		b.logger.Debug("closing microphone", zap.Error(err))
	}
	<-done
	b.ring.Reset()
	b.logger.Debug("audio capture stopped")
}

// BufferedAudio returns the last buffered seconds as one WAV clip, or nil
// when nothing was recorded. Recording continues.
func (b *Buffer) BufferedAudio() *alert.Media {
	segs := b.ring.Segments()
	if len(segs) == 0 {
		return nil
	}

	b.mu.Lock()
	format := b.format
	b.mu.Unlock()

	pcm := bytes.Join(segs, nil)
	if len(pcm) == 0 {
		return nil
	}
	return &alert.Media{Data: encodeWAV(pcm, format), MimeType: "audio/wav"}
}

// CapturePhoto opens the camera, waits for it to settle and grabs one
// frame. The camera is released on every path; failures return nil.
func (b *Buffer) CapturePhoto(ctx context.Context) *alert.Media {
	if b.cam == nil {
		return nil
	}

	b.camMu.Lock()
	defer b.camMu.Unlock()

	session, err := b.cam.Open(ctx)
	if err != nil {
		b.logger.Info("camera unavailable", zap.Error(err))
		return nil
	}
	defer func() {
		if err := session.Close(); err != nil {
			b.logger.Debug("closing camera", zap.Error(err))
		}
	}()

	if b.cfg.SettleDelay > 0 {
		timer := time.NewTimer(b.cfg.SettleDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}

	photo, err := session.Grab(ctx)
	if err != nil {
		b.logger.Info("photo capture failed", zap.Error(err))
		return nil
	}
	return photo
}

// Locate resolves the position within the configured timeout.
func (b *Buffer) Locate(ctx context.Context) *alert.Location {
	loc, err := LocateWithTimeout(ctx, b.loc, b.cfg.LocateTimeout)
	if err != nil {
		b.logger.Info("location unavailable", zap.Error(err))
	}
	return loc
}

// CaptureAll collects the consented fields. Location and photo run
// concurrently; partial results are valid.
func (b *Buffer) CaptureAll(ctx context.Context, req Request) Result {
	var (
		res Result
		wg  sync.WaitGroup
	)

	if req.Audio {
		res.Audio = b.BufferedAudio()
	}
	if req.Location {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res.Location = b.Locate(ctx)
		}()
	}
	if req.Photo {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res.Photo = b.CapturePhoto(ctx)
		}()
	}
	wg.Wait()

	return res
}
