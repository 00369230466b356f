package report

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/fakeyudi/moodwatch/internal/render"
)

const (
	versionSentinel = "<!-- moodwatch-report-version: 1 -->"
	dataPrefix      = "<!-- moodwatch-data: "
	dataSuffix      = " -->"
)

// Renderer serializes a Report to bytes.
type Renderer interface {
	Render(r *Report) ([]byte, error)
}

// JSONRenderer renders a Report as indented JSON.
type JSONRenderer struct{}

func (JSONRenderer) Render(r *Report) ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// MarkdownRenderer renders a Report as human-readable Markdown with an
// embedded base64 JSON payload for lossless round-trip parsing.
type MarkdownRenderer struct{}

func (MarkdownRenderer) Render(r *Report) ([]byte, error) {
	jsonBytes, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("marshal report: %w", err)
	}

	var sb strings.Builder
	sb.WriteString(versionSentinel + "\n")
	fmt.Fprintf(&sb, "%s%s%s\n\n", dataPrefix, base64.StdEncoding.EncodeToString(jsonBytes), dataSuffix)

	fmt.Fprintf(&sb, "# Emotion session: %s\n\n", r.Session.StopTime.Format("2006-01-02 15:04:05 MST"))

	sb.WriteString("## Summary\n\n")
	fmt.Fprintf(&sb, "- Session: %s\n", r.Session.ID)
	fmt.Fprintf(&sb, "- Server: %s\n", r.Session.Server)
	fmt.Fprintf(&sb, "- Video mode: %s\n", r.Session.VideoMode)
	if r.Session.Profile != "" {
		fmt.Fprintf(&sb, "- Refresh profile: %s\n", r.Session.Profile)
	}
	fmt.Fprintf(&sb, "- Duration: %s\n", r.Session.Duration)
	if r.Session.Author != "" {
		fmt.Fprintf(&sb, "- Author: %s\n", r.Session.Author)
	}
	sb.WriteString("\n")

	sb.WriteString("## Emotions\n\n")
	fmt.Fprintf(&sb, "- Refresh cycles: %d (%d failed, %d discarded)\n", r.Stats.Cycles, r.Stats.Failed, r.Stats.Discarded)
	fmt.Fprintf(&sb, "- Peak faces: %d\n", r.Stats.PeakFaces)
	if r.Stats.MostCommon != "" {
		fmt.Fprintf(&sb, "- Most common emotion: %s (%d)\n", r.Stats.MostCommon, r.Stats.MostCommonCount)
	}
	sb.WriteString("\n")
	if len(r.Stats.Emotions) == 0 {
		sb.WriteString("_No emotions recorded._\n")
	} else {
		sb.WriteString("| Emotion | Total |\n")
		sb.WriteString("|---------|-------|\n")
		labels := make([]string, 0, len(r.Stats.Emotions))
		for l := range r.Stats.Emotions {
			labels = append(labels, l)
		}
		sort.Strings(labels)
		for _, l := range labels {
			fmt.Fprintf(&sb, "| %s | %d |\n", l, r.Stats.Emotions[l])
		}
	}
	sb.WriteString("\n")

	sb.WriteString("## Annotations\n\n")
	if len(r.Annotations) == 0 {
		sb.WriteString("_No annotations._\n")
	} else {
		for _, a := range r.Annotations {
			kind := "note"
			if a.IsSummary {
				kind = "summary"
			}
			fmt.Fprintf(&sb, "- [%s] (%s) %s\n", a.Timestamp.Format("2006-01-02 15:04:05"), kind, a.Message)
		}
	}
	sb.WriteString("\n")

	sb.WriteString("## Last Summary\n\n")
	if r.Last == nil {
		sb.WriteString("_No summary received._\n")
	} else {
		sb.WriteString("```\n")
		sb.WriteString(render.Text(*r.Last))
		sb.WriteString("\n```\n")
	}
	sb.WriteString("\n")

	return []byte(sb.String()), nil
}

// ForFormat returns the renderer and file extension for format.
// Anything other than "json" is Markdown.
func ForFormat(format string) (Renderer, string) {
	if format == "json" {
		return JSONRenderer{}, ".json"
	}
	return MarkdownRenderer{}, ".md"
}
