package internal

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeValid(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	if got := cfg.App.HTTP.Throttle().String(); got != "2s" {
		t.Errorf("throttle = %s, want 2s", got)
	}
	if !strings.HasSuffix(cfg.Metadata.Path, "notes.model") {
		t.Errorf("metadata path = %q", cfg.Metadata.Path)
	}
}

func TestNotesConfig_Validation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     NotesConfig
		wantErr bool
	}{
		{"ok", NotesConfig{Dir: "n", Pattern: "**/*.txt", Fallback: "s.txt"}, false},
		{"no dir", NotesConfig{Pattern: "*.txt", Fallback: "s.txt"}, true},
		{"bad pattern", NotesConfig{Dir: "n", Pattern: "[", Fallback: "s.txt"}, true},
		{"no fallback", NotesConfig{Dir: "n", Pattern: "*.txt"}, true},
		{"fallback escapes dir", NotesConfig{Dir: "n", Pattern: "*.txt", Fallback: "../s.txt"}, true},
		{"absolute fallback outside", NotesConfig{Dir: "n", Pattern: "*.txt", Fallback: "/elsewhere/s.txt"}, true},
		{"absolute fallback allowed", NotesConfig{Dir: "n", Pattern: "*.txt", Fallback: "/elsewhere/s.txt", AllowOutside: true}, false},
		{"nested fallback", NotesConfig{Dir: "n", Pattern: "*.txt", Fallback: "sub/s.txt"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNotesConfig_FallbackPath(t *testing.T) {
	rel := NotesConfig{Dir: "notes", Fallback: "sample.txt"}
	if got := rel.FallbackPath(); got != filepath.Join("notes", "sample.txt") {
		t.Errorf("relative fallback = %q", got)
	}
	abs := NotesConfig{Dir: "notes", Fallback: filepath.Join(t.TempDir(), "x.txt")}
	if got := abs.FallbackPath(); got != abs.Fallback {
		t.Errorf("absolute fallback = %q", got)
	}
}

func TestHTTPConfig_EventThrottle(t *testing.T) {
	for _, v := range []string{"", "500ms", "0s"} {
		c := HTTPConfig{Port: 80, EventThrottle: v}
		if err := c.Validate(); err != nil {
			t.Errorf("%q: %v", v, err)
		}
	}
	for _, v := range []string{"soon", "-1s"} {
		c := HTTPConfig{Port: 80, EventThrottle: v}
		if err := c.Validate(); err == nil {
			t.Errorf("%q: expected error", v)
		}
	}
}
