package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
)

// CookieStore keeps the service's login cookie between commands.
type CookieStore struct {
	path string
}

type savedCookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type cookieFile struct {
	Server  string        `json:"server"`
	Cookies []savedCookie `json:"cookies"`
}

// NewCookieStore returns a store at $XDG_DATA_HOME/moodwatch/cookies.json.
func NewCookieStore() (*CookieStore, error) {
	dir, err := EnsureDataDir()
	if err != nil {
		return nil, err
	}
	return &CookieStore{path: filepath.Join(dir, "cookies.json")}, nil
}

// Save replaces the stored cookies with those for server. The file is private to the user.
func (s *CookieStore) Save(server string, cookies []*http.Cookie) error {
	f := cookieFile{Server: server, Cookies: make([]savedCookie, 0, len(cookies))}
	for _, c := range cookies {
		f.Cookies = append(f.Cookies, savedCookie{Name: c.Name, Value: c.Value})
	}
	data, err := json.Marshal(f)
	if err != nil {
		return err
	}
	if err := writeAtomic(s.path, data, 0o600); err != nil {
		return fmt.Errorf("saving login cookies: %w", err)
	}
	return nil
}

// Load returns the cookies saved for server. Cookies saved for a different
// server, or no file at all, yield nil.
func (s *CookieStore) Load(server string) ([]*http.Cookie, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading login cookies: %w", err)
	}
	var f cookieFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing login cookies: %w", err)
	}
	if f.Server != server {
		return nil, nil
	}
	out := make([]*http.Cookie, 0, len(f.Cookies))
	for _, c := range f.Cookies {
		out = append(out, &http.Cookie{Name: c.Name, Value: c.Value, Path: "/"})
	}
	return out, nil
}

// Clear forgets any saved cookies.
func (s *CookieStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("clearing login cookies: %w", err)
	}
	return nil
}
