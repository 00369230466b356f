package cmd

import (
	"strings"
	"testing"
	"time"

	"github.com/fakeyudi/moodwatch/internal/session"
)

// TestAnnotationPersistence verifies that notes are appended to the record in
// order and survive across command invocations.
func TestAnnotationPersistence(t *testing.T) {
	resetCmdState(t)

	store, err := session.NewStore()
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if err := store.Save(&session.Record{
		ID:          "test-id",
		StartTime:   time.Now(),
		VideoMode:   "server",
		Annotations: []session.Annotation{},
	}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	notes := []string{"first reaction", "laughter at slide 3", "quiet"}
	for _, n := range notes {
		out, err := executeCommand(rootCmd, "note", n)
		if err != nil {
			t.Fatalf("note %q: %v", n, err)
		}
		if !strings.Contains(out, "Note added.") {
			t.Errorf("unexpected output: %q", out)
		}
	}

	rec, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(rec.Annotations) != len(notes) {
		t.Fatalf("got %d annotations, want %d", len(rec.Annotations), len(notes))
	}
	for i, a := range rec.Annotations {
		if a.Message != notes[i] || a.IsSummary {
			t.Errorf("annotation %d = %+v", i, a)
		}
		if a.Timestamp.IsZero() {
			t.Errorf("annotation %d has no timestamp", i)
		}
	}
}

func TestNoteWithoutSession(t *testing.T) {
	resetCmdState(t)

	_, err := executeCommand(rootCmd, "note", "hello")
	if err == nil || !strings.Contains(err.Error(), "no active session") {
		t.Fatalf("expected no active session, got %v", err)
	}
}
