package video

import (
	"bufio"
	"bytes"
	"fmt"
	"image"
	"io"
	"sync"

	_ "image/jpeg" // frame decoder
	_ "image/png"
)

var (
	jpegSOI = []byte{0xFF, 0xD8} // start of image
	jpegEOI = []byte{0xFF, 0xD9} // end of image
)

// SplitJpeg is a bufio.SplitFunc that yields whole JPEG images from an MJPEG byte
// stream, skipping anything between them (multipart boundaries and headers).
func SplitJpeg(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	start := bytes.Index(data, jpegSOI)
	if start == -1 {
		if atEOF {
			return len(data), nil, nil
		}
		// Keep the last byte: it may be the first half of a marker.
		if len(data) > 1 {
			return len(data) - 1, nil, nil
		}
		return 0, nil, nil
	}
	end := bytes.Index(data[start+2:], jpegEOI)
	if end == -1 {
		if atEOF {
			return len(data), nil, nil
		}
		return start, nil, nil
	}
	end += start + 2
	return end + 2, data[start : end+2], nil
}

// maxFrameSize bounds a single buffered JPEG.
const maxFrameSize = 8 << 20

// frameBuffer consumes an MJPEG stream and keeps the latest frame.
type frameBuffer struct {
	mu     sync.Mutex
	latest []byte
	frames int
	err    error

	first     chan struct{} // closed on the first frame
	done      chan struct{} // closed when the stream ends
	firstOnce sync.Once
}

func newFrameBuffer() *frameBuffer {
	return &frameBuffer{first: make(chan struct{}), done: make(chan struct{})}
}

// consume reads r until it ends. It is run in its own goroutine.
func (b *frameBuffer) consume(r io.Reader) {
	defer close(b.done)

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64<<10), maxFrameSize)
	sc.Split(SplitJpeg)
	for sc.Scan() {
		frame := append([]byte(nil), sc.Bytes()...)
		b.mu.Lock()
		b.latest = frame
		b.frames++
		b.mu.Unlock()
		b.firstOnce.Do(func() { close(b.first) })
	}

	b.mu.Lock()
	b.err = sc.Err()
	if b.err == nil {
		b.err = io.EOF
	}
	b.mu.Unlock()
}

func (b *frameBuffer) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.frames
}

// streamErr is the reason the stream ended, or nil while it is running.
func (b *frameBuffer) streamErr() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.err
}

func (b *frameBuffer) image() (image.Image, error) {
	b.mu.Lock()
	data := b.latest
	b.mu.Unlock()
	if data == nil {
		return nil, ErrNoFrame
	}
	return decode(data)
}

func decode(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding frame: %w", err)
	}
	return img, nil
}
