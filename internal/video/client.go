package video

import (
	"context"
	"image"
	"sync"
)

// Source is a local camera backend for client mode.
type Source interface {
	Open(ctx context.Context) error
	Frame(ctx context.Context) (image.Image, error)
	Frames() int
	Close() error
}

// ClientFeed is a Feed over a local Source.
type ClientFeed struct {
	src       Source
	closeOnce sync.Once
	closeErr  error
}

// OpenClientFeed opens src. Any failure means the camera is unavailable.
func OpenClientFeed(ctx context.Context, src Source) (*ClientFeed, error) {
	if err := src.Open(ctx); err != nil {
		return nil, err
	}
	return &ClientFeed{src: src}, nil
}

func (f *ClientFeed) Mode() Mode { return ModeClient }

func (f *ClientFeed) Frame(ctx context.Context) (image.Image, error) { return f.src.Frame(ctx) }

func (f *ClientFeed) Frames() int { return f.src.Frames() }

// Release stops the camera. Safe to call more than once.
func (f *ClientFeed) Release() error {
	f.closeOnce.Do(func() { f.closeErr = f.src.Close() })
	return f.closeErr
}
