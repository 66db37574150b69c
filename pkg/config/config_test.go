package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

type sample struct {
	Name  string `yaml:"name" toml:"name"`
	Port  int    `yaml:"port" toml:"port"`
	Extra string `yaml:"extra" toml:"extra"`
}

func (s *sample) Validate() error {
	if s.Port <= 0 {
		return errors.New("port required")
	}
	return nil
}

func write(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoad_YAML(t *testing.T) {
	t.Setenv("QUIRE_TEST_NAME", "from-env")
	p := write(t, "c.yaml", "name: ${QUIRE_TEST_NAME}\nport: 9000\n")

	cfg := sample{Extra: "default"}
	if err := Load(p, &cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Name != "from-env" || cfg.Port != 9000 {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Extra != "default" {
		t.Errorf("default overwritten: %q", cfg.Extra)
	}
}

func TestLoad_TOML(t *testing.T) {
	p := write(t, "c.toml", "name = \"toml\"\nport = 7000\n")

	var cfg sample
	if err := Load(p, &cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Name != "toml" || cfg.Port != 7000 {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoad_ValidationFails(t *testing.T) {
	p := write(t, "c.yaml", "name: x\n")

	var cfg sample
	if err := Load(p, &cfg); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestLoad_BadSyntax(t *testing.T) {
	p := write(t, "c.toml", "name = \n")

	var cfg sample
	if err := Load(p, &cfg); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadOptional_Missing(t *testing.T) {
	cfg := sample{Port: 1}
	if err := LoadOptional(filepath.Join(t.TempDir(), "nope.yaml"), &cfg); err != nil {
		t.Fatalf("LoadOptional: %v", err)
	}
	if cfg.Port != 1 {
		t.Errorf("cfg changed: %+v", cfg)
	}

	if err := LoadOptional(filepath.Join(t.TempDir(), "nope.yaml"), &sample{}); err == nil {
		t.Error("expected validation error on defaults")
	}
}
