package video

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/fakeyudi/moodwatch/internal/logger"
)

// DirSource treats a directory as a camera: the newest image written into it is
// the current frame. Useful with tools that dump snapshots to disk.
type DirSource struct {
	Dir string

	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	latest   string
	frames   int
	lastGood image.Image
}

func isImage(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg", ".png":
		return true
	}
	return false
}

// Open starts watching Dir. Images already present seed the current frame.
func (s *DirSource) Open(ctx context.Context) error {
	info, err := os.Stat(s.Dir)
	if err != nil {
		return fmt.Errorf("frame directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("frame directory: %s is not a directory", s.Dir)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(s.Dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watching %s: %w", s.Dir, err)
	}

	s.mu.Lock()
	s.watcher = watcher
	s.latest = newestImage(s.Dir)
	if s.latest != "" {
		s.frames = 1
	}
	s.mu.Unlock()

	go s.watch(watcher)
	return nil
}

func newestImage(dir string) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	var (
		newest string
		mod    time.Time
	)
	for _, e := range entries {
		if e.IsDir() || !isImage(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if newest == "" || info.ModTime().After(mod) {
			newest, mod = filepath.Join(dir, e.Name()), info.ModTime()
		}
	}
	return newest
}

func (s *DirSource) watch(w *fsnotify.Watcher) {
	for {
		select {
		case event, ok := <-w.Events:
			if !ok {
				return
			}
			if (event.Has(fsnotify.Write) || event.Has(fsnotify.Create)) && isImage(event.Name) {
				s.mu.Lock()
				if s.latest != event.Name || event.Has(fsnotify.Create) {
					s.frames++
				}
				s.latest = event.Name
				s.mu.Unlock()
			}
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			logger.Warn("frame directory watch error", "dir", s.Dir, "err", err)
		}
	}
}

// Frame decodes the newest image. A file caught mid-write yields the previous frame.
func (s *DirSource) Frame(ctx context.Context) (image.Image, error) {
	s.mu.Lock()
	path := s.latest
	s.mu.Unlock()
	if path == "" {
		return nil, ErrNoFrame
	}

	data, err := os.ReadFile(path)
	if err == nil {
		var img image.Image
		if img, err = decode(data); err == nil {
			s.mu.Lock()
			s.lastGood = img
			s.mu.Unlock()
			return img, nil
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastGood != nil {
		return s.lastGood, nil
	}
	return nil, err
}

func (s *DirSource) Frames() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}

func (s *DirSource) Close() error {
	s.mu.Lock()
	w := s.watcher
	s.watcher = nil
	s.mu.Unlock()
	if w == nil {
		return nil
	}
	return w.Close()
}
