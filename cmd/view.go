package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/moodwatch/internal/render"
	"github.com/fakeyudi/moodwatch/internal/report"
	"github.com/fakeyudi/moodwatch/internal/tui"
)

var viewCmd = &cobra.Command{
	Use:   "view <file>",
	Short: "View a session report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]

		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return fmt.Errorf("file not found: %s", path)
			}
			return err
		}

		var parser report.Parser
		switch strings.ToLower(filepath.Ext(path)) {
		case ".json":
			parser = report.JSONParser{}
		case ".md", ".markdown":
			parser = report.MarkdownParser{}
		}

		var r *report.Report
		if parser != nil {
			r, err = parser.Parse(data)
		} else {
			r, err = report.Parse(data)
		}
		if err != nil {
			return err
		}

		if plainFlag {
			printReport(cmd.OutOrStdout(), r)
			return nil
		}
		return tui.RunViewer(r, path)
	},
}

// printReport writes a plain-text rendition of r.
func printReport(w io.Writer, r *report.Report) {
	fmt.Fprintln(w, "## Summary")
	fmt.Fprintf(w, "  Session:   %s\n", r.Session.ID)
	fmt.Fprintf(w, "  Server:    %s\n", r.Session.Server)
	fmt.Fprintf(w, "  Video:     %s\n", r.Session.VideoMode)
	if r.Session.Profile != "" {
		fmt.Fprintf(w, "  Profile:   %s\n", r.Session.Profile)
	}
	fmt.Fprintf(w, "  Started:   %s\n", r.Session.StartTime.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(w, "  Stopped:   %s\n", r.Session.StopTime.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(w, "  Duration:  %s\n", r.Session.Duration)
	if r.Session.Author != "" {
		fmt.Fprintf(w, "  Author:    %s\n", r.Session.Author)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "## Emotions")
	fmt.Fprintf(w, "  Cycles:    %d (%d failed, %d discarded)\n", r.Stats.Cycles, r.Stats.Failed, r.Stats.Discarded)
	fmt.Fprintf(w, "  Peak faces: %d\n", r.Stats.PeakFaces)
	if len(r.Stats.Emotions) == 0 {
		fmt.Fprintln(w, "  (none)")
	} else {
		labels := make([]string, 0, len(r.Stats.Emotions))
		for l := range r.Stats.Emotions {
			labels = append(labels, l)
		}
		sort.Strings(labels)
		for _, l := range labels {
			fmt.Fprintf(w, "  %s: %d\n", l, r.Stats.Emotions[l])
		}
		if r.Stats.MostCommon != "" {
			fmt.Fprintf(w, "  Most common: %s (%d)\n", r.Stats.MostCommon, r.Stats.MostCommonCount)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "## Annotations")
	if len(r.Annotations) == 0 {
		fmt.Fprintln(w, "  (none)")
	} else {
		for _, a := range r.Annotations {
			kind := "note"
			if a.IsSummary {
				kind = "summary"
			}
			fmt.Fprintf(w, "  [%s] (%s) %s\n", a.Timestamp.Format("2006-01-02 15:04:05"), kind, a.Message)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "## Last Summary")
	if r.Last == nil {
		fmt.Fprintln(w, "  (none)")
	} else {
		for _, line := range render.Lines(*r.Last) {
			fmt.Fprintf(w, "  %s\n", line)
		}
	}
}

func init() {
	rootCmd.AddCommand(viewCmd)
}
