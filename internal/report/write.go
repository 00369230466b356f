package report

import (
	"fmt"
	"os"
	"path/filepath"
)

// Write renders r in format into dir as moodwatch-<stop time>-<id prefix>.md
// (or .json) and returns the file path.
func Write(r *Report, dir, format string) (string, error) {
	renderer, ext := ForFormat(format)
	data, err := renderer.Render(r)
	if err != nil {
		return "", fmt.Errorf("render report: %w", err)
	}
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create report directory: %w", err)
	}
	id := r.Session.ID
	if len(id) > 8 {
		id = id[:8]
	}
	name := fmt.Sprintf("moodwatch-%s-%s%s", r.Session.StopTime.Format("20060102-150405"), id, ext)
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return path, nil
}
