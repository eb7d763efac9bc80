package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/RevCBH/guardian/internal/alert"
)

// ExecMicrophone records by running a command that writes raw PCM to
// stdout, e.g. `arecord -q -t raw -f S16_LE -r 16000 -c 1`.
type ExecMicrophone struct {
	Command []string
	Format  AudioFormat
}

// Open implements Microphone.
func (m *ExecMicrophone) Open(ctx context.Context) (io.ReadCloser, AudioFormat, error) {
	if len(m.Command) == 0 {
		return nil, AudioFormat{}, ErrUnavailable
	}
	if err := ctx.Err(); err != nil {
		return nil, AudioFormat{}, err
	}

	format := m.Format
	if format.BytesPerSecond() == 0 {
		format = DefaultAudioFormat
	}

	// The recorder outlives ctx; Close stops it.
	cmd := exec.Command(m.Command[0], m.Command[1:]...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, AudioFormat{}, fmt.Errorf("recorder stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, AudioFormat{}, startError("recorder", err)
	}

	return &execStream{cmd: cmd, stdout: stdout}, format, nil
}

type execStream struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	once   sync.Once
	err    error
}

func (s *execStream) Read(p []byte) (int, error) {
	return s.stdout.Read(p)
}

func (s *execStream) Close() error {
	s.once.Do(func() {
		if s.cmd.Process != nil {
			s.cmd.Process.Kill()
		}
		s.stdout.Close()
		err := s.cmd.Wait()
		var exitErr *exec.ExitError
		if err != nil && !errors.As(err, &exitErr) {
			s.err = err
		}
	})
	return s.err
}

// ExecCamera runs a command that writes one image to stdout, e.g.
// `fswebcam -q -d /dev/video1 --jpeg 80 -`. The command starts on Open so
// the sensor settles before Grab reads the frame. The command picks the
// device; point it at the rear camera where there is one.
type ExecCamera struct {
	Command []string
}

// Open implements Camera.
func (c *ExecCamera) Open(ctx context.Context) (CameraSession, error) {
	if len(c.Command) == 0 {
		return nil, ErrUnavailable
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cmd := exec.Command(c.Command[0], c.Command[1:]...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("camera stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, startError("camera", err)
	}
	return &execCameraSession{cmd: cmd, stdout: stdout}, nil
}

type execCameraSession struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	once   sync.Once
	err    error
}

type frame struct {
	data []byte
	err  error
}

func (s *execCameraSession) Grab(ctx context.Context) (*alert.Media, error) {
	read := make(chan frame, 1)
	go func() {
		data, err := io.ReadAll(s.stdout)
		read <- frame{data: data, err: err}
	}()

	var f frame
	select {
	case f = <-read:
	case <-ctx.Done():
		s.Close()
		return nil, ctx.Err()
	}
	if f.err != nil {
		return nil, fmt.Errorf("camera output: %w", f.err)
	}
	if err := s.wait(); err != nil {
		return nil, fmt.Errorf("camera command: %w", err)
	}
	if len(f.data) == 0 {
		return nil, errors.New("camera produced no image")
	}

	mimeType := http.DetectContentType(f.data)
	if !strings.HasPrefix(mimeType, "image/") {
		return nil, fmt.Errorf("camera produced %s, want an image", mimeType)
	}
	return &alert.Media{Data: f.data, MimeType: mimeType}, nil
}

func (s *execCameraSession) wait() error {
	s.once.Do(func() { s.err = s.cmd.Wait() })
	return s.err
}

// Close stops the camera command if it is still running.
func (s *execCameraSession) Close() error {
	if s.cmd.ProcessState == nil && s.cmd.Process != nil {
		s.cmd.Process.Kill()
	}
	err := s.wait()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return nil
	}
	return err
}

// CommandLocator runs a command that prints "lat,lng" or a map link.
type CommandLocator struct {
	Command []string
}

// Locate implements Locator.
func (l *CommandLocator) Locate(ctx context.Context) (*alert.Location, error) {
	if len(l.Command) == 0 {
		return nil, ErrUnavailable
	}
	out, err := exec.CommandContext(ctx, l.Command[0], l.Command[1:]...).Output()
	if err != nil {
		return nil, fmt.Errorf("locator command: %w", err)
	}
	loc, err := alert.ParseLocation(string(out))
	if err != nil {
		return nil, err
	}
	if loc == nil {
		return nil, ErrUnavailable
	}
	return loc, nil
}

func startError(what string, err error) error {
	if errors.Is(err, os.ErrPermission) {
		return fmt.Errorf("%w: %s: %v", ErrPermissionDenied, what, err)
	}
	return fmt.Errorf("%w: %s: %v", ErrUnavailable, what, err)
}
