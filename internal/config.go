package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App      ApplicationConfig `yaml:"app" toml:"app"`
	Notes    NotesConfig       `yaml:"notes" toml:"notes"`
	Metadata MetadataConfig    `yaml:"metadata" toml:"metadata"`
	SQLite   SQLiteConfig      `yaml:"sqlite" toml:"sqlite"`
	Auth     AuthConfig        `yaml:"auth" toml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Notes.Validate(); err != nil {
		return err
	}
	if err := c.Metadata.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level" toml:"log_level"`
	HTTP     HTTPConfig `yaml:"http" toml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port" toml:"port"`
	// EventThrottle bounds how often index.updated is pushed to SSE clients,
	// as a Go duration string.
	EventThrottle string `yaml:"event_throttle" toml:"event_throttle"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&c.EventThrottle, validation.By(validDuration)),
	)
}

// Throttle returns EventThrottle parsed, or zero when unset.
func (c *HTTPConfig) Throttle() time.Duration {
	d, _ := time.ParseDuration(c.EventThrottle)
	return d
}

func validDuration(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	if d < 0 {
		return fmt.Errorf("must not be negative")
	}
	return nil
}

// NotesConfig describes where note files live.
//
// Fallback is opened when neither an explicit nor a remembered file exists;
// a relative Fallback is resolved against Dir. AllowOutside lets absolute
// paths outside Dir be opened.
type NotesConfig struct {
	Dir          string `yaml:"dir" toml:"dir"`
	Pattern      string `yaml:"pattern" toml:"pattern"`
	Fallback     string `yaml:"fallback" toml:"fallback"`
	AllowOutside bool   `yaml:"allow_outside" toml:"allow_outside"`
}

// Validate validates the notes configuration.
func (c *NotesConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Dir, validation.Required),
		validation.Field(&c.Pattern, validation.Required, validation.By(validPattern)),
		validation.Field(&c.Fallback, validation.Required, validation.By(c.fallbackInside)),
	)
}

func (c *NotesConfig) fallbackInside(any) error {
	if c.AllowOutside {
		return nil
	}
	dir, err := filepath.Abs(c.Dir)
	if err != nil {
		return err
	}
	fb, err := filepath.Abs(c.FallbackPath())
	if err != nil {
		return err
	}
	rel, err := filepath.Rel(dir, fb)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return errors.New("must be inside notes dir unless allow_outside is set")
	}
	return nil
}

// FallbackPath returns the absolute-or-Dir-relative fallback file path.
func (c *NotesConfig) FallbackPath() string {
	if filepath.IsAbs(c.Fallback) {
		return c.Fallback
	}
	return filepath.Join(c.Dir, c.Fallback)
}

func validPattern(value any) error {
	p, _ := value.(string)
	if !doublestar.ValidatePattern(p) {
		return fmt.Errorf("invalid glob pattern %q", p)
	}
	return nil
}

// MetadataConfig locates the persisted last-file record.
type MetadataConfig struct {
	Path string `yaml:"path" toml:"path"`
}

// Validate validates the metadata configuration.
func (c *MetadataConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path" toml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local use.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode" toml:"mode"`
	Token string `yaml:"token" toml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// DefaultMetadataPath is $XDG_CONFIG_HOME/quire/notes.model, or the
// working directory when no user config directory is known.
func DefaultMetadataPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "notes.model"
	}
	return filepath.Join(dir, "quire", "notes.model")
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port:          8080,
				EventThrottle: "2s",
			},
		},
		Notes: NotesConfig{
			Dir:      "./notes",
			Pattern:  "**/*.txt",
			Fallback: "sample.txt",
		},
		Metadata: MetadataConfig{
			Path: DefaultMetadataPath(),
		},
		SQLite: SQLiteConfig{
			Path: "./quire.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
