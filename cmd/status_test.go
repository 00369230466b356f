package cmd

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"pgregory.net/rapid"

	"github.com/fakeyudi/moodwatch/internal/session"
)

// Feature: moodwatch, Property 9: Status reports the record accurately
func TestStatusReportsRecord(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		m := rapid.IntRange(0, 20).Draw(rt, "annotations")
		mode := rapid.SampledFrom([]string{"server", "client"}).Draw(rt, "mode")
		pid := rapid.IntRange(0, 1<<20).Draw(rt, "pid")

		resetCmdState(t)
		store, err := session.NewStore()
		if err != nil {
			rt.Fatalf("NewStore: %v", err)
		}

		annotations := make([]session.Annotation, m)
		for i := range annotations {
			annotations[i] = session.Annotation{
				Timestamp: time.Now(),
				Message:   fmt.Sprintf("annotation %d", i),
			}
		}
		rec := &session.Record{
			ID:          "test-id",
			StartTime:   time.Now(),
			Server:      "http://emotions.local",
			VideoMode:   mode,
			Profile:     "interactive",
			Annotations: annotations,
			PID:         pid,
		}
		if err := store.Save(rec); err != nil {
			rt.Fatalf("Save: %v", err)
		}

		out, err := executeCommand(rootCmd, "status")
		if err != nil {
			rt.Fatalf("status command error: %v", err)
		}

		want := []string{
			"Session: test-id",
			"Server: http://emotions.local",
			"Video mode: " + mode,
			"Profile: interactive",
			fmt.Sprintf("Annotations: %d", m),
		}
		for _, w := range want {
			if !strings.Contains(out, w) {
				rt.Errorf("expected output to contain %q, got:\n%s", w, out)
			}
		}
		hasPID := strings.Contains(out, fmt.Sprintf("Watcher pid: %d", pid))
		if hasPID != (pid != 0) {
			rt.Errorf("watcher pid line wrong for pid %d:\n%s", pid, out)
		}
	})
}

func TestStatusNoSession(t *testing.T) {
	resetCmdState(t)

	out, err := executeCommand(rootCmd, "status")
	if err != nil {
		t.Fatalf("status without a session should not fail: %v", err)
	}
	if !strings.Contains(out, "no active session") {
		t.Errorf("unexpected output: %q", out)
	}
}
