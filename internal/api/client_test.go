package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeService mimics the Flask app: every endpoint but /login requires the session cookie.
func fakeService(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	loggedIn := func(r *http.Request) bool {
		ck, err := r.Cookie("session")
		return err == nil && ck.Value == "ok"
	}
	deny := func(w http.ResponseWriter) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"success": false, "message": "Not logged in"}`))
	}

	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			w.Header().Set("Content-Type", "text/html")
			w.Write([]byte("<html>login</html>"))
			return
		}
		assert.NoError(t, r.ParseForm())
		if r.PostForm.Get("username") == "ada" && r.PostForm.Get("password") == "secret" {
			http.SetCookie(w, &http.Cookie{Name: "session", Value: "ok", Path: "/"})
			http.Redirect(w, r, "/", http.StatusFound)
			return
		}
		http.Redirect(w, r, "/login", http.StatusFound)
	})
	mux.HandleFunc("/logout", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "session", Value: "", Path: "/", MaxAge: -1})
		http.Redirect(w, r, "/login", http.StatusFound)
	})
	mux.HandleFunc("/start_session", func(w http.ResponseWriter, r *http.Request) {
		if !loggedIn(r) {
			deny(w)
			return
		}
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{}`, string(body))
		w.Write([]byte(`{"success": true}`))
	})
	mux.HandleFunc("/stop_session", func(w http.ResponseWriter, r *http.Request) {
		if !loggedIn(r) {
			deny(w)
			return
		}
		w.Write([]byte(`{"success": true}`))
	})
	mux.HandleFunc("/get_emotion_summary", func(w http.ResponseWriter, r *http.Request) {
		if !loggedIn(r) {
			deny(w)
			return
		}
		w.Write([]byte(`{"total_faces": 2, "emotions": {"happy": 1, "neutral": 1}}`))
	})
	mux.HandleFunc("/predict_emotion", func(w http.ResponseWriter, r *http.Request) {
		if !loggedIn(r) {
			deny(w)
			return
		}
		var req PredictRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if !strings.HasPrefix(req.Image, "data:image/jpeg;base64,") {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error": "Invalid image"}`))
			return
		}
		w.Write([]byte(`{"total_faces": 1, "emotions": {"sad": 1}}`))
	})
	mux.HandleFunc("/video_feed", func(w http.ResponseWriter, r *http.Request) {
		if !loggedIn(r) {
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}
		assert.NotEmpty(t, r.URL.Query().Get("t"))
		w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
		w.Write([]byte("--frame\r\nContent-Type: image/jpeg\r\n\r\n\xff\xd8\xff\xd9\r\n"))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html>login</html>"))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func loggedInClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	c, err := New(srv.URL)
	require.NoError(t, err)
	require.NoError(t, c.Login(context.Background(), "ada", "secret"))
	return c
}

func TestNewRejectsBadURL(t *testing.T) {
	_, err := New("ftp://example.com")
	assert.Error(t, err)

	_, err = New("://nope")
	assert.Error(t, err)
}

func TestLogin(t *testing.T) {
	srv := fakeService(t)

	c, err := New(srv.URL)
	require.NoError(t, err)

	err = c.Login(context.Background(), "ada", "wrong")
	assert.ErrorIs(t, err, ErrLoginFailed)
	assert.Empty(t, c.Cookies())

	require.NoError(t, c.Login(context.Background(), "ada", "secret"))
	require.Len(t, c.Cookies(), 1)
	assert.Equal(t, "session", c.Cookies()[0].Name)
}

func TestEndpointsRequireLogin(t *testing.T) {
	srv := fakeService(t)
	c, err := New(srv.URL)
	require.NoError(t, err)

	_, err = c.Summary(context.Background())
	require.Error(t, err)
	assert.True(t, IsUnauthorized(err))

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "Not logged in", se.Message)
	assert.Equal(t, "/get_emotion_summary", se.Path)

	_, err = c.VideoFeed(context.Background())
	assert.True(t, IsUnauthorized(err), "login page served instead of stream: %v", err)
}

func TestSessionLifecycle(t *testing.T) {
	srv := fakeService(t)
	c := loggedInClient(t, srv)
	ctx := context.Background()

	start, err := c.StartSession(ctx)
	require.NoError(t, err)
	assert.True(t, start.Success)

	sum, err := c.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, sum.TotalFaces)
	assert.Equal(t, map[string]int{"happy": 1, "neutral": 1}, sum.Emotions)

	assert.NoError(t, c.StopSession(ctx))
}

func TestStartSessionServiceMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"success": false, "message": "Failed to start session"}`))
	}))
	t.Cleanup(srv.Close)

	c, err := New(srv.URL)
	require.NoError(t, err)

	_, err = c.StartSession(context.Background())
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusInternalServerError, se.Code)
	assert.Equal(t, "Failed to start session", se.Message)
	assert.Contains(t, se.Error(), "Failed to start session")
}

func TestStartSessionApplicationFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success": false, "message": "camera busy"}`))
	}))
	t.Cleanup(srv.Close)

	c, err := New(srv.URL)
	require.NoError(t, err)

	resp, err := c.StartSession(context.Background())
	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.Equal(t, "camera busy", resp.Message)
}

func TestPredict(t *testing.T) {
	srv := fakeService(t)
	c := loggedInClient(t, srv)

	sum, err := c.Predict(context.Background(), "data:image/jpeg;base64,/9j/")
	require.NoError(t, err)
	assert.Equal(t, 1, sum.TotalFaces)

	_, err = c.Predict(context.Background(), "not-a-uri")
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadRequest, se.Code)
}

func TestVideoFeedCacheBuster(t *testing.T) {
	var gotT string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotT = r.URL.Query().Get("t")
		w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	}))
	t.Cleanup(srv.Close)

	fixed := time.UnixMilli(1_700_000_000_123)
	c, err := New(srv.URL, WithClock(func() time.Time { return fixed }))
	require.NoError(t, err)

	body, err := c.VideoFeed(context.Background())
	require.NoError(t, err)
	body.Close()
	assert.Equal(t, "1700000000123", gotT)
}

func TestCookiesRestore(t *testing.T) {
	srv := fakeService(t)
	first := loggedInClient(t, srv)
	saved := first.Cookies()

	second, err := New(srv.URL)
	require.NoError(t, err)
	second.SetCookies(saved)

	_, err = second.Summary(context.Background())
	assert.NoError(t, err)
}

func TestLogout(t *testing.T) {
	srv := fakeService(t)
	c := loggedInClient(t, srv)

	require.NoError(t, c.Logout(context.Background()))
	_, err := c.Summary(context.Background())
	assert.True(t, IsUnauthorized(err))
}
