// Package api is the HTTP client for the emotion-detection service.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/fakeyudi/moodwatch/internal/metrics"
)

// Client makes calls to the emotion service. It keeps the login cookie in a jar
// shared by the request and stream clients.
type Client struct {
	base   *url.URL
	jar    *cookiejar.Jar
	http   *http.Client // bounded requests
	stream *http.Client // /video_feed, no overall timeout
	login  *http.Client // does not follow redirects
	now    func() time.Time
}

// Option customises a Client.
type Option func(*Client)

// WithTimeout sets the timeout for non-streaming requests.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithClock overrides the clock used for the /video_feed cache buster.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// New creates a client for the service at baseURL (e.g. "http://127.0.0.1:5000").
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid server URL %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid server URL %q: scheme must be http or https", baseURL)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	c := &Client{
		base:   u,
		jar:    jar,
		http:   &http.Client{Timeout: 10 * time.Second, Jar: jar},
		stream: &http.Client{Jar: jar},
		login: &http.Client{
			Timeout: 10 * time.Second,
			Jar:     jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		now: time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the service root.
func (c *Client) BaseURL() string { return c.base.String() }

// Cookies returns the cookies the jar holds for the service.
func (c *Client) Cookies() []*http.Cookie {
	return c.jar.Cookies(c.rootURL())
}

// SetCookies restores previously saved cookies into the jar.
func (c *Client) SetCookies(cookies []*http.Cookie) {
	for _, ck := range cookies {
		if ck.Path == "" {
			ck.Path = "/"
		}
	}
	c.jar.SetCookies(c.rootURL(), cookies)
}

func (c *Client) rootURL() *url.URL {
	u := *c.base
	u.Path = "/"
	return &u
}

func (c *Client) endpoint(path string) string {
	return c.base.String() + path
}

// Login posts the credentials form. The service answers with a redirect: back to
// /login on failure, to the index page on success.
func (c *Client) Login(ctx context.Context, username, password string) error {
	form := url.Values{"username": {username}, "password": {password}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/login"), strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	start := time.Now()
	resp, err := c.login.Do(req)
	metrics.ObserveRequest("login", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("POST /login: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode >= 300 && resp.StatusCode < 400:
		loc, err := resp.Location()
		if err != nil {
			return fmt.Errorf("POST /login: %w", err)
		}
		if strings.HasSuffix(strings.TrimRight(loc.Path, "/"), "/login") {
			return ErrLoginFailed
		}
		return nil
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		// Login page rendered again without a redirect.
		return ErrLoginFailed
	default:
		return &StatusError{Method: http.MethodPost, Path: "/login", Code: resp.StatusCode}
	}
}

// Logout clears the server-side login session.
func (c *Client) Logout(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("/logout"), nil)
	if err != nil {
		return err
	}
	start := time.Now()
	resp, err := c.login.Do(req)
	metrics.ObserveRequest("logout", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("GET /logout: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= 400 {
		return &StatusError{Method: http.MethodGet, Path: "/logout", Code: resp.StatusCode}
	}
	return nil
}

// StartSession sends POST /start_session with an empty JSON object.
// A 2xx with success=false is returned as a response, not an error.
func (c *Client) StartSession(ctx context.Context) (*StartResponse, error) {
	var out StartResponse
	if err := c.do(ctx, http.MethodPost, "/start_session", struct{}{}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// StopSession sends POST /stop_session. Any 2xx is success.
func (c *Client) StopSession(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/stop_session", nil, nil)
}

// Summary fetches GET /get_emotion_summary.
func (c *Client) Summary(ctx context.Context) (*Summary, error) {
	var out Summary
	if err := c.do(ctx, http.MethodGet, "/get_emotion_summary", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Predict posts a data-URI encoded frame to /predict_emotion.
func (c *Client) Predict(ctx context.Context, dataURI string) (*Summary, error) {
	var out Summary
	if err := c.do(ctx, http.MethodPost, "/predict_emotion", PredictRequest{Image: dataURI}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// VideoFeed opens the server's MJPEG stream. The caller owns the returned body.
func (c *Client) VideoFeed(ctx context.Context) (io.ReadCloser, error) {
	path := "/video_feed?t=" + strconv.FormatInt(c.now().UnixMilli(), 10)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(path), nil)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	resp, err := c.stream.Do(req)
	if err != nil {
		metrics.ObserveRequest("video_feed", time.Since(start), err)
		return nil, fmt.Errorf("GET /video_feed: %w", err)
	}
	if resp.StatusCode >= 300 {
		defer resp.Body.Close()
		serr := statusError(http.MethodGet, "/video_feed", resp)
		metrics.ObserveRequest("video_feed", time.Since(start), serr)
		return nil, serr
	}
	// A redirect to /login ends up here as a 200 HTML page.
	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "multipart/") && !strings.HasPrefix(ct, "image/") {
		resp.Body.Close()
		serr := &StatusError{Method: http.MethodGet, Path: "/video_feed", Code: http.StatusUnauthorized, Message: "Not logged in"}
		metrics.ObserveRequest("video_feed", time.Since(start), serr)
		return nil, serr
	}
	metrics.ObserveRequest("video_feed", time.Since(start), nil)
	return resp.Body, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path), r)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	endpoint := strings.TrimPrefix(path, "/")
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.ObserveRequest(endpoint, time.Since(start), err)
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		serr := statusError(method, path, resp)
		metrics.ObserveRequest(endpoint, time.Since(start), serr)
		return serr
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			err = fmt.Errorf("%s %s: decoding response: %w", method, path, err)
			metrics.ObserveRequest(endpoint, time.Since(start), err)
			return err
		}
	}
	metrics.ObserveRequest(endpoint, time.Since(start), nil)
	return nil
}

// statusError builds a StatusError, lifting the service's "message" field when present.
func statusError(method, path string, resp *http.Response) *StatusError {
	se := &StatusError{Method: method, Path: path, Code: resp.StatusCode}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var eb errorBody
	if json.Unmarshal(data, &eb) == nil {
		se.Message = eb.Message
	}
	return se
}
