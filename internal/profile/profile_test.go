package profile

import (
	"bytes"
	"strings"
	"testing"
)

var names = []string{"classic", "interactive"}

func TestRunSetupDefaults(t *testing.T) {
	var out bytes.Buffer
	prof, err := RunSetup(nil, names, strings.NewReader("Ada\n\nada\n\n\n\n\n"), &out)
	if err != nil {
		t.Fatalf("RunSetup: %v", err)
	}
	want := Profile{
		Name:           "Ada",
		Server:         "http://127.0.0.1:5000",
		Username:       "ada",
		RefreshProfile: "classic",
		VideoMode:      "server",
		ReportFormat:   "markdown",
	}
	if *prof != want {
		t.Errorf("got %+v, want %+v", *prof, want)
	}
	if !strings.Contains(out.String(), "first-time setup") {
		t.Errorf("banner missing from output: %q", out.String())
	}
}

func TestRunSetupRepromptsInvalidChoice(t *testing.T) {
	input := "Ada\nhttp://cam.local:5000/\nada\nturbo\ninteractive\nclient\njson\n/tmp/reports\n"
	var out bytes.Buffer
	prof, err := RunSetup(nil, names, strings.NewReader(input), &out)
	if err != nil {
		t.Fatalf("RunSetup: %v", err)
	}
	if prof.Server != "http://cam.local:5000" {
		t.Errorf("Server = %q", prof.Server)
	}
	if prof.RefreshProfile != "interactive" || prof.VideoMode != "client" || prof.ReportFormat != "json" {
		t.Errorf("choices = %+v", prof)
	}
	if prof.ReportDir != "/tmp/reports" {
		t.Errorf("ReportDir = %q", prof.ReportDir)
	}
	if !strings.Contains(out.String(), "please answer one of: classic, interactive") {
		t.Errorf("expected reprompt, got %q", out.String())
	}
}

func TestRunSetupEditKeepsExisting(t *testing.T) {
	existing := &Profile{Name: "Grace", Server: "http://h:1", Username: "g", RefreshProfile: "interactive",
		VideoMode: "client", ReportFormat: "json", ReportDir: "out"}
	prof, err := RunSetup(existing, names, strings.NewReader(strings.Repeat("\n", 7)), &bytes.Buffer{})
	if err != nil {
		t.Fatal(err)
	}
	if *prof != *existing {
		t.Errorf("got %+v, want %+v", *prof, *existing)
	}
}

func TestRunSetupEOF(t *testing.T) {
	if _, err := RunSetup(nil, names, strings.NewReader("Ada\n"), &bytes.Buffer{}); err == nil {
		t.Error("expected error on truncated input")
	}
}

func TestSaveLoad(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	if Exists() {
		t.Fatal("profile exists in empty home")
	}
	if _, err := Load(); err == nil {
		t.Fatal("expected error loading missing profile")
	}
	prof := &Profile{Name: "Ada", Server: "http://x", RefreshProfile: "classic"}
	if err := Save(prof); err != nil {
		t.Fatal(err)
	}
	if !Exists() {
		t.Fatal("Exists false after Save")
	}
	got, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if *got != *prof {
		t.Errorf("got %+v", *got)
	}
}
