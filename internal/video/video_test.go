package video

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func mjpegStream(frames ...[]byte) []byte {
	var buf bytes.Buffer
	for _, f := range frames {
		buf.WriteString("--frame\r\nContent-Type: image/jpeg\r\n\r\n")
		buf.Write(f)
		buf.WriteString("\r\n")
	}
	return buf.Bytes()
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("Server")
	require.NoError(t, err)
	assert.Equal(t, ModeServer, m)

	m, err = ParseMode(" client ")
	require.NoError(t, err)
	assert.Equal(t, ModeClient, m)

	_, err = ParseMode("webcam")
	assert.Error(t, err)
}

func TestSplitJpegMultipart(t *testing.T) {
	a, b := testJPEG(t, 8, 8), testJPEG(t, 16, 16)
	sc := bufio.NewScanner(bytes.NewReader(mjpegStream(a, b)))
	sc.Split(SplitJpeg)

	var got [][]byte
	for sc.Scan() {
		got = append(got, append([]byte(nil), sc.Bytes()...))
	}
	require.NoError(t, sc.Err())
	require.Len(t, got, 2)
	assert.Equal(t, a, got[0])
	assert.Equal(t, b, got[1])
}

func TestSplitJpegSmallReads(t *testing.T) {
	a := testJPEG(t, 8, 8)
	// One byte at a time forces the splitter to keep partial markers.
	r := iotestOneByte{r: bytes.NewReader(mjpegStream(a))}
	sc := bufio.NewScanner(r)
	sc.Split(SplitJpeg)

	require.True(t, sc.Scan())
	assert.Equal(t, a, sc.Bytes())
	assert.False(t, sc.Scan())
}

type iotestOneByte struct{ r io.Reader }

func (o iotestOneByte) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	return o.r.Read(p[:1])
}

func TestSplitJpegGarbageOnly(t *testing.T) {
	sc := bufio.NewScanner(strings.NewReader("--frame\r\nno image here\r\n"))
	sc.Split(SplitJpeg)
	assert.False(t, sc.Scan())
	assert.NoError(t, sc.Err())
}

func TestOpenServerFeedFirstFrame(t *testing.T) {
	frame := testJPEG(t, 32, 24)
	pr, pw := io.Pipe()
	go func() {
		pw.Write(mjpegStream(frame))
		// keep the stream open like a live feed
	}()

	feed, err := OpenServerFeed(context.Background(), func(context.Context) (io.ReadCloser, error) {
		return pr, nil
	}, time.Minute)
	require.NoError(t, err)
	defer feed.Release()

	assert.Equal(t, ModeServer, feed.Mode())
	assert.Equal(t, 1, feed.Frames())
	img, err := feed.Frame(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 32, img.Bounds().Dx())
	assert.NoError(t, feed.Err())
}

func TestOpenServerFeedFallback(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()

	start := time.Now()
	feed, err := OpenServerFeed(context.Background(), func(context.Context) (io.ReadCloser, error) {
		return pr, nil
	}, 50*time.Millisecond)
	require.NoError(t, err, "a silent stream is acquired after the fallback")
	defer feed.Release()

	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
	_, err = feed.Frame(context.Background())
	assert.ErrorIs(t, err, ErrNoFrame)
}

func TestOpenServerFeedStreamError(t *testing.T) {
	pr, pw := io.Pipe()
	pw.CloseWithError(io.ErrUnexpectedEOF)

	_, err := OpenServerFeed(context.Background(), func(context.Context) (io.ReadCloser, error) {
		return pr, nil
	}, time.Minute)
	require.Error(t, err)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestOpenServerFeedOpenError(t *testing.T) {
	boom := io.ErrClosedPipe
	_, err := OpenServerFeed(context.Background(), func(context.Context) (io.ReadCloser, error) {
		return nil, boom
	}, time.Minute)
	assert.ErrorIs(t, err, boom)
}

func TestOpenServerFeedCancelled(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := OpenServerFeed(ctx, func(context.Context) (io.ReadCloser, error) {
		return pr, nil
	}, time.Minute)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestServerFeedReleaseIdempotent(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	feed, err := OpenServerFeed(context.Background(), func(context.Context) (io.ReadCloser, error) {
		return pr, nil
	}, time.Millisecond)
	require.NoError(t, err)

	assert.NoError(t, feed.Release())
	assert.NoError(t, feed.Release())
}

func TestEncoderDataURI(t *testing.T) {
	src, err := jpeg.Decode(bytes.NewReader(testJPEG(t, 1280, 720)))
	require.NoError(t, err)

	enc := DefaultProfile().Encoder()
	uri, err := enc.DataURI(src)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(uri, DataURIPrefix))

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(uri, DataURIPrefix))
	require.NoError(t, err)
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, 640, cfg.Width)
	assert.Equal(t, 480, cfg.Height)
}

func TestEncoderRejectsNil(t *testing.T) {
	_, err := DefaultProfile().Encoder().Encode(nil)
	assert.ErrorIs(t, err, ErrNoFrame)

	_, err = Encoder{Width: 0, Height: 480}.Encode(image.NewRGBA(image.Rect(0, 0, 1, 1)))
	assert.Error(t, err)
}

func TestFileSource(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "still.jpg")
	require.NoError(t, os.WriteFile(path, testJPEG(t, 20, 10), 0o644))

	feed, err := OpenClientFeed(context.Background(), &FileSource{Path: path})
	require.NoError(t, err)
	defer feed.Release()

	assert.Equal(t, ModeClient, feed.Mode())
	img, err := feed.Frame(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 20, img.Bounds().Dx())
	assert.Equal(t, 1, feed.Frames())
}

func TestFileSourceMissing(t *testing.T) {
	_, err := OpenClientFeed(context.Background(), &FileSource{Path: filepath.Join(t.TempDir(), "nope.jpg")})
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestDirSourceNewestWins(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "a.jpg")
	require.NoError(t, os.WriteFile(old, testJPEG(t, 10, 10), 0o644))
	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(old, past, past))

	src := &DirSource{Dir: dir}
	require.NoError(t, src.Open(context.Background()))
	defer src.Close()

	img, err := src.Frame(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 10, img.Bounds().Dx())

	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.jpg"), testJPEG(t, 30, 30), 0o644))
	assert.Eventually(t, func() bool {
		img, err := src.Frame(context.Background())
		return err == nil && img.Bounds().Dx() == 30
	}, 2*time.Second, 10*time.Millisecond)
	assert.GreaterOrEqual(t, src.Frames(), 2)
}

func TestDirSourceEmptyAndMissing(t *testing.T) {
	src := &DirSource{Dir: t.TempDir()}
	require.NoError(t, src.Open(context.Background()))
	defer src.Close()
	_, err := src.Frame(context.Background())
	assert.ErrorIs(t, err, ErrNoFrame)

	missing := &DirSource{Dir: filepath.Join(t.TempDir(), "gone")}
	assert.Error(t, missing.Open(context.Background()))
}

func TestFFmpegArgs(t *testing.T) {
	src := &FFmpegSource{Format: "v4l2", Device: "/dev/video2", Profile: DefaultProfile()}
	got := strings.Join(src.Args(), " ")
	assert.Contains(t, got, "-f v4l2")
	assert.Contains(t, got, "-video_size 640x480")
	assert.Contains(t, got, "-framerate 15")
	assert.Contains(t, got, "-i /dev/video2")
	assert.True(t, strings.HasSuffix(got, "-f image2pipe -vcodec mjpeg -"))
}

func TestFFmpegMissingBinary(t *testing.T) {
	src := &FFmpegSource{Binary: "definitely-not-ffmpeg-binary"}
	err := src.Open(context.Background())
	assert.Error(t, err)
	assert.NoError(t, src.Close())
}
