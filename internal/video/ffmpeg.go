package video

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"
)

// SafeCommand wraps exec.Cmd with a buffer catching stderr, so a capture process
// that dies still leaves its reason behind.
type SafeCommand struct {
	*exec.Cmd
	Stderr *bytes.Buffer
}

// NewSafeCommand prepares name with args without starting it.
func NewSafeCommand(name string, args ...string) *SafeCommand {
	cmd := exec.Command(name, args...)
	stderr := &bytes.Buffer{}
	cmd.Stderr = stderr
	return &SafeCommand{Cmd: cmd, Stderr: stderr}
}

// FFmpegSource captures a local camera through ffmpeg, which writes an MJPEG
// stream to stdout.
type FFmpegSource struct {
	Binary  string // default "ffmpeg"
	Format  string // input format; default v4l2, avfoundation or dshow by OS
	Device  string // default DefaultDevice()
	Profile Profile
	// Timeout bounds the wait for the first frame.
	Timeout time.Duration

	mu  sync.Mutex
	cmd *SafeCommand
	buf *frameBuffer
}

// DefaultDevice names the first camera on this OS.
func DefaultDevice() string {
	switch runtime.GOOS {
	case "darwin":
		return "0"
	case "windows":
		return "video=0"
	default:
		return "/dev/video0"
	}
}

func defaultFormat() string {
	switch runtime.GOOS {
	case "darwin":
		return "avfoundation"
	case "windows":
		return "dshow"
	default:
		return "v4l2"
	}
}

// Args returns the ffmpeg command line for the source.
func (s *FFmpegSource) Args() []string {
	format := s.Format
	if format == "" {
		format = defaultFormat()
	}
	device := s.Device
	if device == "" {
		device = DefaultDevice()
	}
	p := s.Profile
	if p.Width == 0 || p.Height == 0 || p.FPS == 0 {
		p = DefaultProfile()
	}
	return []string{
		"-hide_banner", "-loglevel", "error",
		"-f", format,
		"-video_size", fmt.Sprintf("%dx%d", p.Width, p.Height),
		"-framerate", strconv.Itoa(p.FPS),
		"-i", device,
		"-f", "image2pipe", "-vcodec", "mjpeg", "-",
	}
}

// Open starts ffmpeg and waits for the first frame.
func (s *FFmpegSource) Open(ctx context.Context) error {
	bin := s.Binary
	if bin == "" {
		bin = "ffmpeg"
	}
	if _, err := exec.LookPath(bin); err != nil {
		return fmt.Errorf("%s not found: %w", bin, err)
	}

	cmd := NewSafeCommand(bin, s.Args()...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting %s: %w", bin, err)
	}

	buf := newFrameBuffer()
	s.mu.Lock()
	s.cmd, s.buf = cmd, buf
	s.mu.Unlock()
	go buf.consume(stdout)

	timeout := s.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-buf.first:
		return nil
	case <-buf.done:
		s.Close()
		if msg := strings.TrimSpace(cmd.Stderr.String()); msg != "" {
			return fmt.Errorf("camera %s: %s", s.deviceName(), msg)
		}
		return fmt.Errorf("camera %s: capture exited before the first frame", s.deviceName())
	case <-timer.C:
		s.Close()
		return fmt.Errorf("camera %s: no frame within %s", s.deviceName(), timeout)
	case <-ctx.Done():
		s.Close()
		return ctx.Err()
	}
}

func (s *FFmpegSource) deviceName() string {
	if s.Device == "" {
		return DefaultDevice()
	}
	return s.Device
}

func (s *FFmpegSource) Frame(ctx context.Context) (image.Image, error) {
	s.mu.Lock()
	buf := s.buf
	s.mu.Unlock()
	if buf == nil {
		return nil, ErrNoFrame
	}
	return buf.image()
}

func (s *FFmpegSource) Frames() int {
	s.mu.Lock()
	buf := s.buf
	s.mu.Unlock()
	if buf == nil {
		return 0
	}
	return buf.count()
}

// Close kills ffmpeg and reaps it.
func (s *FFmpegSource) Close() error {
	s.mu.Lock()
	cmd := s.cmd
	s.cmd = nil
	s.mu.Unlock()
	if cmd == nil || cmd.Process == nil {
		return nil
	}
	_ = cmd.Process.Kill()
	_ = cmd.Wait()
	return nil
}
