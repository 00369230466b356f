// Package video acquires frames for a session, either from the service's own
// camera stream or from a camera on this machine.
package video

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"
)

// Mode selects where frames come from.
type Mode string

const (
	// ModeServer shows the service's /video_feed; the service analyses its own camera.
	ModeServer Mode = "server"
	// ModeClient captures locally and pushes frames to /predict_emotion.
	ModeClient Mode = "client"
)

// ParseMode validates a mode name. Matching is case-insensitive.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeServer:
		return ModeServer, nil
	case ModeClient:
		return ModeClient, nil
	}
	return "", fmt.Errorf("invalid video mode %q: want %q or %q", s, ModeServer, ModeClient)
}

func (m Mode) String() string { return string(m) }

// ErrNoFrame is returned by Frame before any frame has arrived.
var ErrNoFrame = errors.New("no frame available yet")

// Feed is an acquired video source. Release must be called exactly once.
type Feed interface {
	Mode() Mode
	// Frame returns the most recent frame.
	Frame(ctx context.Context) (image.Image, error)
	// Frames is the number of frames seen since acquisition.
	Frames() int
	Release() error
}

// Profile is the capture profile for client mode.
type Profile struct {
	Width   int `json:"width" yaml:"width"`
	Height  int `json:"height" yaml:"height"`
	FPS     int `json:"fps" yaml:"fps"`
	Quality int `json:"quality" yaml:"quality"` // JPEG quality, 1-100
}

// DefaultProfile is 640x480 at 15 fps, JPEG quality 85.
func DefaultProfile() Profile {
	return Profile{Width: 640, Height: 480, FPS: 15, Quality: 85}
}

// Encoder returns the frame encoder matching p.
func (p Profile) Encoder() Encoder {
	return Encoder{Width: p.Width, Height: p.Height, Quality: p.Quality}
}
