package session

import "time"

// Record is the on-disk trace of the current session, so that
// status, note and stop work from later processes.
type Record struct {
	ID          string       `json:"id"`
	StartTime   time.Time    `json:"start_time"`
	StopTime    *time.Time   `json:"stop_time,omitempty"`
	Server      string       `json:"server"`
	VideoMode   string       `json:"video_mode"`
	Profile     string       `json:"profile"`
	Annotations []Annotation `json:"annotations"`
	// PID of the live watcher owning the session, 0 for a one-shot start.
	PID int `json:"pid,omitempty"`
}

// Annotation is a user-provided note attached to a session.
type Annotation struct {
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
	IsSummary bool      `json:"is_summary"` // true when added via stop -m
}
