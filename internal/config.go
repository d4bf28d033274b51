package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/syncembed/internal/embed"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App    ApplicationConfig `yaml:"app"`
	Vault  VaultConfig       `yaml:"vault"`
	SQLite SQLiteConfig      `yaml:"sqlite"`
	Auth   AuthConfig        `yaml:"auth"`
	Embed  EmbedConfig       `yaml:"embed"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Vault.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	return c.Embed.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// VaultConfig holds the path to the Markdown vault directory.
type VaultConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the vault configuration.
func (c *VaultConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
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
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	// Normalise empty mode to "disabled" for backward compatibility.
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

// Debounce bounds for embed write-back.
const (
	MinDebounce = 500 * time.Millisecond
	MaxDebounce = 750 * time.Millisecond
)

// EmbedConfig holds embedded window behavior.
type EmbedConfig struct {
	Debounce            time.Duration `yaml:"debounce"`
	AdvisoryInterval    time.Duration `yaml:"advisory_interval"`
	ShowHeaderHints     bool          `yaml:"show_header_hints"`
	CommandInterception bool          `yaml:"command_interception"`
	EmbedHeight         string        `yaml:"embed_height"`
	MaxEmbedHeight      string        `yaml:"max_embed_height"`
	LazyLoad            bool          `yaml:"lazy_load"`
}

// Validate validates the embed configuration.
func (c *EmbedConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Debounce, validation.By(func(any) error {
			if c.Debounce < MinDebounce || c.Debounce > MaxDebounce {
				return errors.New("must be between 500ms and 750ms")
			}
			return nil
		})),
		validation.Field(&c.AdvisoryInterval, validation.Min(time.Duration(0))),
		validation.Field(&c.EmbedHeight, validation.Required),
		validation.Field(&c.MaxEmbedHeight, validation.Required),
	)
}

// Settings converts the configuration into window settings.
func (c *EmbedConfig) Settings() embed.Settings {
	return embed.Settings{
		Debounce:            c.Debounce,
		AdvisoryInterval:    c.AdvisoryInterval,
		ShowHeaderHints:     c.ShowHeaderHints,
		CommandInterception: c.CommandInterception,
		EmbedHeight:         c.EmbedHeight,
		MaxEmbedHeight:      c.MaxEmbedHeight,
	}
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Vault: VaultConfig{
			Path: "./vault",
		},
		SQLite: SQLiteConfig{
			Path: "./syncembed.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Embed: defaultEmbedConfig(),
	}
}

func defaultEmbedConfig() EmbedConfig {
	d := embed.DefaultSettings()
	return EmbedConfig{
		Debounce:            d.Debounce,
		AdvisoryInterval:    d.AdvisoryInterval,
		ShowHeaderHints:     d.ShowHeaderHints,
		CommandInterception: d.CommandInterception,
		EmbedHeight:         d.EmbedHeight,
		MaxEmbedHeight:      d.MaxEmbedHeight,
	}
}
