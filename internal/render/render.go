// Package render turns an emotion summary into display lines.
package render

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fakeyudi/moodwatch/internal/api"
)

// Placeholder is shown whenever no session is active.
const Placeholder = "No active session"

// NoFaces is the single body line for a summary without faces.
const NoFaces = "No faces detected"

// Lines renders s: a total-count header, then one "label: count" line per
// emotion sorted by label, or NoFaces when total_faces is zero.
func Lines(s api.Summary) []string {
	lines := []string{fmt.Sprintf("Detected Faces: %d", s.TotalFaces)}
	if s.TotalFaces <= 0 {
		return append(lines, NoFaces)
	}
	for _, label := range Labels(s) {
		lines = append(lines, fmt.Sprintf("%s: %d", label, s.Emotions[label]))
	}
	return lines
}

// Text joins Lines with newlines.
func Text(s api.Summary) string {
	return strings.Join(Lines(s), "\n")
}

// Labels returns the emotion labels of s in display order.
func Labels(s api.Summary) []string {
	labels := make([]string, 0, len(s.Emotions))
	for label := range s.Emotions {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}
