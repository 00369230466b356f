package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/fakeyudi/moodwatch/internal/api"
	"github.com/fakeyudi/moodwatch/internal/config"
	"github.com/fakeyudi/moodwatch/internal/video"
)

// resolveMode picks the video mode for a new session. pinned reports whether
// the refresh profile or --video decided it; otherwise the config default is
// returned and an interactive caller may ask.
func resolveMode(rp config.RefreshProfile) (mode video.Mode, pinned bool, err error) {
	if rp.VideoMode != "" {
		fixed, err := video.ParseMode(rp.VideoMode)
		if err != nil {
			return "", false, fmt.Errorf("refresh profile %q: %w", cfg.Profile, err)
		}
		if videoFlag != "" {
			want, err := video.ParseMode(videoFlag)
			if err != nil {
				return "", false, err
			}
			if want != fixed {
				return "", false, fmt.Errorf("refresh profile %q fixes the video mode to %s; use --profile interactive to choose", cfg.Profile, fixed)
			}
		}
		return fixed, true, nil
	}
	if videoFlag != "" {
		m, err := video.ParseMode(videoFlag)
		return m, true, err
	}
	m, err := video.ParseMode(cfg.VideoMode)
	if err != nil {
		return video.ModeServer, false, nil
	}
	return m, false, nil
}

func captureProfile() video.Profile {
	return video.Profile{
		Width:   cfg.Capture.Width,
		Height:  cfg.Capture.Height,
		FPS:     cfg.Capture.FPS,
		Quality: cfg.Capture.Quality,
	}
}

// localSource builds the configured client-mode camera.
func localSource() (video.Source, error) {
	switch cfg.Source.Kind {
	case "", "ffmpeg":
		return &video.FFmpegSource{
			Binary:  cfg.Source.Binary,
			Format:  cfg.Source.Format,
			Device:  cfg.Source.Device,
			Profile: captureProfile(),
		}, nil
	case "dir":
		if cfg.Source.Path == "" {
			return nil, fmt.Errorf("source kind dir needs source.path")
		}
		return &video.DirSource{Dir: cfg.Source.Path}, nil
	case "file":
		if cfg.Source.Path == "" {
			return nil, fmt.Errorf("source kind file needs source.path")
		}
		return &video.FileSource{Path: cfg.Source.Path}, nil
	}
	return nil, fmt.Errorf("unknown video source kind %q (want ffmpeg, dir or file)", cfg.Source.Kind)
}

// acquirer returns the controller's video acquisition for client.
func acquirer(client *api.Client) func(ctx context.Context, mode video.Mode) (video.Feed, error) {
	return func(ctx context.Context, mode video.Mode) (video.Feed, error) {
		if mode == video.ModeServer {
			feed, err := video.OpenServerFeed(ctx, client.VideoFeed, cfg.FeedFallback.Std())
			if err != nil {
				return nil, err
			}
			return feed, nil
		}
		src, err := localSource()
		if err != nil {
			return nil, err
		}
		feed, err := video.OpenClientFeed(ctx, src)
		if err != nil {
			return nil, err
		}
		return feed, nil
	}
}

// withSpinner runs fn while an indeterminate spinner is drawn on w.
func withSpinner(w io.Writer, desc string, fn func() error) error {
	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(desc),
		progressbar.OptionSetWriter(w),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionClearOnFinish(),
	)
	done := make(chan error, 1)
	go func() { done <- fn() }()

	tick := time.NewTicker(100 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case err := <-done:
			_ = bar.Finish()
			return err
		case <-tick.C:
			_ = bar.Add(1)
		}
	}
}
