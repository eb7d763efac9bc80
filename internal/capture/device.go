package capture

import (
	"context"
	"errors"
	"io"

	"github.com/RevCBH/guardian/internal/alert"
)

var (
	// ErrPermissionDenied means the user or the OS refused device access.
	ErrPermissionDenied = errors.New("capture permission denied")

	// ErrUnavailable means the device does not exist or could not start.
	ErrUnavailable = errors.New("capture device unavailable")
)

// AudioFormat describes raw PCM produced by a microphone.
type AudioFormat struct {
	SampleRate    int `yaml:"sample_rate"`
	Channels      int `yaml:"channels"`
	BitsPerSample int `yaml:"bits_per_sample"`
}

// DefaultAudioFormat is 16 kHz mono 16-bit PCM.
var DefaultAudioFormat = AudioFormat{SampleRate: 16000, Channels: 1, BitsPerSample: 16}

// BytesPerSecond returns the PCM byte rate.
func (f AudioFormat) BytesPerSecond() int {
	return f.SampleRate * f.Channels * f.BitsPerSample / 8
}

// FrameBytes returns the size of one sample across all channels.
func (f AudioFormat) FrameBytes() int {
	return f.Channels * f.BitsPerSample / 8
}

// Microphone opens a live PCM stream. Closing the stream releases the
// device.
type Microphone interface {
	Open(ctx context.Context) (io.ReadCloser, AudioFormat, error)
}

// CameraSession is an open camera. Close must be called on every path.
type CameraSession interface {
	Grab(ctx context.Context) (*alert.Media, error)
	Close() error
}

// Camera opens a still camera, preferring the rear-facing one where the
// device has a choice.
type Camera interface {
	Open(ctx context.Context) (CameraSession, error)
}

// Locator resolves the device position.
type Locator interface {
	Locate(ctx context.Context) (*alert.Location, error)
}
