package video

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"sync"
	"time"
)

// DefaultFallback is how long OpenServerFeed waits for the first frame before
// treating the stream as acquired anyway.
const DefaultFallback = time.Second

// StreamOpener opens the server's MJPEG stream.
type StreamOpener func(ctx context.Context) (io.ReadCloser, error)

// ServerFeed follows the service's /video_feed stream.
type ServerFeed struct {
	body   io.ReadCloser
	cancel context.CancelFunc
	buf    *frameBuffer

	releaseOnce sync.Once
}

// OpenServerFeed opens the stream and waits until the first frame arrives or
// fallback elapses, whichever comes first. A failed request, or a stream that ends
// before either, is an error. The stream itself outlives ctx; Release ends it.
func OpenServerFeed(ctx context.Context, open StreamOpener, fallback time.Duration) (*ServerFeed, error) {
	streamCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	body, err := open(streamCtx)
	if err != nil {
		cancel()
		return nil, err
	}

	f := &ServerFeed{body: body, cancel: cancel, buf: newFrameBuffer()}
	go f.buf.consume(body)

	timer := time.NewTimer(fallback)
	defer timer.Stop()

	select {
	case <-f.buf.first:
		return f, nil
	case <-timer.C:
		return f, nil
	case <-f.buf.done:
		err := f.buf.streamErr()
		f.Release()
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("video stream ended before the first frame")
		}
		return nil, fmt.Errorf("video stream: %w", err)
	case <-ctx.Done():
		f.Release()
		return nil, ctx.Err()
	}
}

func (f *ServerFeed) Mode() Mode { return ModeServer }

func (f *ServerFeed) Frame(ctx context.Context) (image.Image, error) {
	return f.buf.image()
}

func (f *ServerFeed) Frames() int { return f.buf.count() }

// Err reports why the stream stopped, or nil while it is still flowing.
func (f *ServerFeed) Err() error {
	select {
	case <-f.buf.done:
		return f.buf.streamErr()
	default:
		return nil
	}
}

// Release closes the stream. Safe to call more than once.
func (f *ServerFeed) Release() error {
	var err error
	f.releaseOnce.Do(func() {
		f.cancel()
		err = f.body.Close()
	})
	return err
}
