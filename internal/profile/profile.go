// Package profile manages the user's persistent moodwatch profile.
// The profile is stored at ~/.config/moodwatch/profile.json and is created
// once via the interactive setup flow, then referenced on every command.
package profile

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Profile holds user-level preferences set during first-run setup.
type Profile struct {
	Name           string `json:"name"`            // author shown in reports
	Server         string `json:"server"`          // service root URL
	Username       string `json:"username"`        // default login name
	RefreshProfile string `json:"refresh_profile"` // "classic" | "interactive" | custom
	VideoMode      string `json:"video_mode"`      // "server" | "client"
	ReportFormat   string `json:"report_format"`   // "markdown" | "json"
	ReportDir      string `json:"report_dir"`      // where stop writes reports; empty: data dir
}

// profilePath returns the path to the profile file.
func profilePath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "profile.json"), nil
}

// ConfigDir returns the moodwatch config directory.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "moodwatch"), nil
}

// Exists reports whether a profile file is present on disk.
func Exists() bool {
	p, err := profilePath()
	if err != nil {
		return false
	}
	_, err = os.Stat(p)
	return err == nil
}

// Load reads the profile from disk. Returns an error if the file is missing or malformed.
func Load() (*Profile, error) {
	p, err := profilePath()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("profile not found, run 'moodwatch setup' to configure: %w", err)
	}
	var prof Profile
	if err := json.Unmarshal(data, &prof); err != nil {
		return nil, fmt.Errorf("malformed profile at %s: %w", p, err)
	}
	return &prof, nil
}

// Save writes the profile to disk, creating the config directory if needed.
func Save(prof *Profile) error {
	p, err := profilePath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(prof, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(p, data, 0o644)
}

// RunSetup runs the interactive setup wizard on in/out and returns the resulting
// profile. If existing is non-nil, it is used as the default for each prompt (edit mode).
// profiles lists the refresh profile names offered.
func RunSetup(existing *Profile, profiles []string, in io.Reader, out io.Writer) (*Profile, error) {
	r := bufio.NewReader(in)

	ask := func(prompt, defaultVal string) (string, error) {
		if defaultVal != "" {
			fmt.Fprintf(out, "%s [%s]: ", prompt, defaultVal)
		} else {
			fmt.Fprintf(out, "%s: ", prompt)
		}
		line, err := r.ReadString('\n')
		if err != nil && !(err == io.EOF && line != "") {
			return "", err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			return defaultVal, nil
		}
		return line, nil
	}

	// choose asks until the answer is one of options.
	choose := func(prompt, defaultVal string, options []string) (string, error) {
		for {
			ans, err := ask(fmt.Sprintf("%s (%s)", prompt, strings.Join(options, "/")), defaultVal)
			if err != nil {
				return "", err
			}
			ans = strings.ToLower(ans)
			for _, o := range options {
				if ans == o {
					return ans, nil
				}
			}
			fmt.Fprintf(out, "  please answer one of: %s\n", strings.Join(options, ", "))
		}
	}

	prof := &Profile{
		Server:         "http://127.0.0.1:5000",
		RefreshProfile: "classic",
		VideoMode:      "server",
		ReportFormat:   "markdown",
	}
	if existing != nil {
		*prof = *existing
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "  ┌─────────────────────────────────┐")
	fmt.Fprintln(out, "  │   moodwatch: first-time setup   │")
	fmt.Fprintln(out, "  └─────────────────────────────────┘")
	fmt.Fprintln(out)

	var err error

	prof.Name, err = ask("  Your name (shown in reports)", prof.Name)
	if err != nil {
		return nil, err
	}

	prof.Server, err = ask("  Emotion service URL", prof.Server)
	if err != nil {
		return nil, err
	}
	prof.Server = strings.TrimRight(prof.Server, "/")

	prof.Username, err = ask("  Service username", prof.Username)
	if err != nil {
		return nil, err
	}

	prof.RefreshProfile, err = choose("  Refresh profile", prof.RefreshProfile, profiles)
	if err != nil {
		return nil, err
	}

	prof.VideoMode, err = choose("  Default video mode", prof.VideoMode, []string{"server", "client"})
	if err != nil {
		return nil, err
	}

	prof.ReportFormat, err = choose("  Report format", prof.ReportFormat, []string{"markdown", "json"})
	if err != nil {
		return nil, err
	}

	prof.ReportDir, err = ask("  Report directory (empty for the data directory)", prof.ReportDir)
	if err != nil {
		return nil, err
	}

	fmt.Fprintln(out)
	return prof, nil
}
