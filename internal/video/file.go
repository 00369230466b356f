package video

import (
	"context"
	"fmt"
	"image"
	"os"
)

// FileSource serves one still image as every frame.
type FileSource struct {
	Path string
	img  image.Image
}

func (s *FileSource) Open(ctx context.Context) error {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return fmt.Errorf("image file: %w", err)
	}
	img, err := decode(data)
	if err != nil {
		return fmt.Errorf("image file %s: %w", s.Path, err)
	}
	s.img = img
	return nil
}

func (s *FileSource) Frame(ctx context.Context) (image.Image, error) {
	if s.img == nil {
		return nil, ErrNoFrame
	}
	return s.img, nil
}

func (s *FileSource) Frames() int {
	if s.img == nil {
		return 0
	}
	return 1
}

func (s *FileSource) Close() error { return nil }

// LoadImage decodes a JPEG or PNG file.
func LoadImage(path string) (image.Image, error) {
	src := &FileSource{Path: path}
	if err := src.Open(context.Background()); err != nil {
		return nil, err
	}
	return src.img, nil
}
