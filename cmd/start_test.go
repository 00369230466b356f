package cmd

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/moodwatch/internal/profile"
	"github.com/fakeyudi/moodwatch/internal/session"
)

// executeCommand runs a cobra command with the given args and captures combined output.
func executeCommand(root *cobra.Command, args ...string) (output string, err error) {
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	_, err = root.ExecuteC()
	return buf.String(), err
}

// resetCmdState points every state directory at a temp dir and clears the
// flag variables left over from earlier runs. It returns the data home.
func resetCmdState(t *testing.T) string {
	t.Helper()
	data := t.TempDir()
	t.Setenv("XDG_DATA_HOME", data)
	t.Setenv("HOME", t.TempDir())
	t.Setenv("MOODWATCH_SERVER", "")
	t.Setenv("MOODWATCH_PROFILE", "")
	// An existing profile keeps the first-run wizard away when tests run on a terminal.
	if err := profile.Save(&profile.Profile{Name: "Test Runner"}); err != nil {
		t.Fatalf("saving profile: %v", err)
	}

	serverFlag, profileFlag, videoFlag, metricsAddrFlag = "", "", "", ""
	verboseFlag, plainFlag = false, false
	stopMessage, stopFormat, stopForce = "", "", false
	startCheckFeed, passwordStdin = false, false
	summaryJSON, predictJSON = false, false
	watchFor = 0
	rootCmd.SetIn(strings.NewReader(""))
	return data
}

// service is a stand-in for the emotion web app. Everything but /login needs
// the session cookie.
type service struct {
	*httptest.Server
	starts atomic.Int32
	stops  atomic.Int32
}

func fakeService(t *testing.T) *service {
	t.Helper()
	s := &service{}
	mux := http.NewServeMux()

	authed := func(h http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if ck, err := r.Cookie("session"); err != nil || ck.Value != "ok" {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"success": false, "message": "Not logged in"}`))
				return
			}
			h(w, r)
		}
	}

	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		if r.PostForm.Get("username") == "ada" && r.PostForm.Get("password") == "secret" {
			http.SetCookie(w, &http.Cookie{Name: "session", Value: "ok", Path: "/"})
			http.Redirect(w, r, "/", http.StatusFound)
			return
		}
		http.Redirect(w, r, "/login", http.StatusFound)
	})
	mux.HandleFunc("/logout", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/login", http.StatusFound)
	})
	mux.HandleFunc("/start_session", authed(func(w http.ResponseWriter, r *http.Request) {
		s.starts.Add(1)
		w.Write([]byte(`{"success": true}`))
	}))
	mux.HandleFunc("/stop_session", authed(func(w http.ResponseWriter, r *http.Request) {
		s.stops.Add(1)
		w.Write([]byte(`{"success": true}`))
	}))
	mux.HandleFunc("/get_emotion_summary", authed(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"total_faces": 2, "emotions": {"happy": 1, "neutral": 1}}`))
	}))
	mux.HandleFunc("/predict_emotion", authed(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"total_faces": 1, "emotions": {"surprise": 1}}`))
	}))
	mux.HandleFunc("/video_feed", authed(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
		w.Write([]byte("--frame\r\nContent-Type: image/jpeg\r\n\r\n\xff\xd8\xff\xd9\r\n"))
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		<-r.Context().Done()
	}))

	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

// login runs the login command against srv.
func login(t *testing.T, srv *service) {
	t.Helper()
	rootCmd.SetIn(strings.NewReader("secret\n"))
	out, err := executeCommand(rootCmd, "--server", srv.URL, "login", "ada", "--password-stdin")
	if err != nil {
		t.Fatalf("login: %v\n%s", err, out)
	}
	passwordStdin = false
}

// TestDoubleStartError verifies that running "start" when a session is already
// active returns an error containing "session already in progress".
func TestDoubleStartError(t *testing.T) {
	resetCmdState(t)

	store, err := session.NewStore()
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	existing := &session.Record{
		ID:          "test-id",
		StartTime:   time.Now(),
		Server:      "http://127.0.0.1:5000",
		VideoMode:   "server",
		Annotations: []session.Annotation{},
	}
	if err := store.Save(existing); err != nil {
		t.Fatalf("Save: %v", err)
	}

	out, err := executeCommand(rootCmd, "start")
	if err == nil {
		t.Fatal("expected an error from double-start, got nil")
	}
	combined := out + err.Error()
	if !strings.Contains(combined, "session already in progress") {
		t.Errorf("expected error to contain %q, got: %q", "session already in progress", combined)
	}
}

func TestStartRequiresLogin(t *testing.T) {
	resetCmdState(t)
	srv := fakeService(t)

	_, err := executeCommand(rootCmd, "--server", srv.URL, "start")
	if err == nil {
		t.Fatal("expected start to fail without login")
	}
	if !strings.Contains(err.Error(), "moodwatch login") {
		t.Errorf("error should point at login, got: %v", err)
	}

	store, _ := session.NewStore()
	if _, err := store.Load(); err != session.ErrNoSession {
		t.Errorf("no record should be saved after a failed start, got %v", err)
	}
}

func TestStartSavesRecord(t *testing.T) {
	resetCmdState(t)
	srv := fakeService(t)
	login(t, srv)

	out, err := executeCommand(rootCmd, "--server", srv.URL, "start")
	if err != nil {
		t.Fatalf("start: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Session started.") {
		t.Errorf("unexpected output: %q", out)
	}
	if srv.starts.Load() != 1 {
		t.Errorf("start_session hit %d times", srv.starts.Load())
	}

	store, _ := session.NewStore()
	rec, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if rec.Server != srv.URL || rec.VideoMode != "server" || rec.Profile != "classic" || rec.PID != 0 {
		t.Errorf("record = %+v", rec)
	}
}

func TestStartRejectsClientVideo(t *testing.T) {
	resetCmdState(t)

	_, err := executeCommand(rootCmd, "--profile", "interactive", "--video", "client", "start")
	if err == nil || !strings.Contains(err.Error(), "watch --video client") {
		t.Fatalf("expected a pointer to watch, got %v", err)
	}
}

func TestStartVideoConflictsWithProfile(t *testing.T) {
	resetCmdState(t)

	_, err := executeCommand(rootCmd, "--video", "client", "start")
	if err == nil || !strings.Contains(err.Error(), "fixes the video mode") {
		t.Fatalf("expected a conflict with the classic profile, got %v", err)
	}
}
