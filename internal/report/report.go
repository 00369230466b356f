// Package report turns a finished session into a shareable document.
package report

import (
	"time"

	"github.com/fakeyudi/moodwatch/internal/api"
	"github.com/fakeyudi/moodwatch/internal/session"
)

// Report is the complete, renderable record of one session.
type Report struct {
	Session     Meta                 `json:"session"`
	Annotations []session.Annotation `json:"annotations"`
	Stats       Stats                `json:"stats"`
	Last        *api.Summary         `json:"last_summary,omitempty"`
}

// Meta holds summary metadata about the session.
type Meta struct {
	ID        string    `json:"id"`
	Server    string    `json:"server"`
	VideoMode string    `json:"video_mode"`
	Profile   string    `json:"profile"`
	StartTime time.Time `json:"start_time"`
	StopTime  time.Time `json:"stop_time"`
	Duration  string    `json:"duration"` // human-readable, e.g. "12m30s"
	Author    string    `json:"author,omitempty"`
}

// Stats are the refresh-cycle aggregates at stop time.
type Stats struct {
	Cycles          int            `json:"cycles"`
	Failed          int            `json:"failed_cycles"`
	Discarded       int            `json:"discarded_results"`
	PeakFaces       int            `json:"peak_faces"`
	Emotions        map[string]int `json:"emotion_totals"`
	MostCommon      string         `json:"most_common,omitempty"`
	MostCommonCount int            `json:"most_common_count,omitempty"`
}

// Build assembles a report from the session record and its final stats.
// The record's StopTime must be set.
func Build(rec *session.Record, st session.Stats, author string) *Report {
	stop := time.Now()
	if rec.StopTime != nil {
		stop = *rec.StopTime
	}
	r := &Report{
		Session: Meta{
			ID:        rec.ID,
			Server:    rec.Server,
			VideoMode: rec.VideoMode,
			Profile:   rec.Profile,
			StartTime: rec.StartTime,
			StopTime:  stop,
			Duration:  stop.Sub(rec.StartTime).Round(time.Second).String(),
			Author:    author,
		},
		Annotations: rec.Annotations,
		Stats: Stats{
			Cycles:    st.Cycles,
			Failed:    st.Failed,
			Discarded: st.Discarded,
			PeakFaces: st.PeakFaces,
			Emotions:  st.Emotions,
		},
		Last: st.Last,
	}
	if r.Annotations == nil {
		r.Annotations = []session.Annotation{}
	}
	if r.Stats.Emotions == nil {
		r.Stats.Emotions = map[string]int{}
	}
	if label, n, ok := st.MostCommon(); ok {
		r.Stats.MostCommon, r.Stats.MostCommonCount = label, n
	}
	return r
}
