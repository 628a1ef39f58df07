package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/topwebdesignco/advanced-schema-manager/internal/auth"
	"github.com/topwebdesignco/advanced-schema-manager/internal/content"
)

// Auth modes.
const (
	AuthModeDisabled = auth.ModeDisabled
	AuthModeToken    = auth.ModeToken
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Site    SiteConfig        `yaml:"site"`
	SQLite  SQLiteConfig      `yaml:"sqlite"`
	Auth    AuthConfig        `yaml:"auth"`
	Schemas SchemasConfig     `yaml:"schemas"`
	Metrics MetricsConfig     `yaml:"metrics"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Site.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
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

// SiteConfig describes the content directory and how its items are addressed.
type SiteConfig struct {
	Path      string `yaml:"path"`
	BaseURL   string `yaml:"base_url"`
	Name      string `yaml:"name"`
	HomeLabel string `yaml:"home_label"`
	FrontPage string `yaml:"front_page"`
	PostsPage string `yaml:"posts_page"`
	// Watch reloads content when files change.
	Watch bool `yaml:"watch"`
	// Types maps a content type to its archive label.
	Types map[string]string `yaml:"types"`
	// Terms maps a category slug to its display name.
	Terms map[string]string `yaml:"terms"`
}

// Validate validates the site configuration.
func (c *SiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.BaseURL, validation.Required, is.URL),
	)
}

// ContentOptions converts the section for the content library.
func (c *SiteConfig) ContentOptions() content.Options {
	return content.Options{
		Name:      c.Name,
		BaseURL:   c.BaseURL,
		HomeLabel: c.HomeLabel,
		FrontPage: c.FrontPage,
		PostsPage: c.PostsPage,
		Types:     c.Types,
		Terms:     c.Terms,
	}
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
// Mode controls how the edit_content capability is granted:
//   - "disabled" (default): every request has it, suitable for local dev.
//   - "token": requests carrying "Authorization: Bearer <Token>" have it.
//
// NonceSecret signs the per-action request tokens. When empty a random secret
// is generated at startup, so tokens do not survive a restart.
type AuthConfig struct {
	Mode        string        `yaml:"mode"`
	Token       string        `yaml:"token"`
	NonceSecret string        `yaml:"nonce_secret"`
	NonceTTL    time.Duration `yaml:"nonce_ttl"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if c.NonceTTL == 0 {
		c.NonceTTL = auth.DefaultNonceTTL
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
		validation.Field(&c.NonceSecret, validation.Length(16, 0)),
		validation.Field(&c.NonceTTL, validation.Min(time.Minute)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when bearer tokens are enforced.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// SchemasConfig tunes schema record validation.
type SchemasConfig struct {
	// StrictJSON rejects documents that are not well-formed JSON on save.
	StrictJSON bool `yaml:"strict_json"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
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
		Site: SiteConfig{
			Path:      "./site",
			BaseURL:   "http://localhost:8080",
			HomeLabel: "Home",
			Watch:     true,
		},
		SQLite: SQLiteConfig{
			Path: "./asm.db",
		},
		Auth: AuthConfig{
			Mode:     AuthModeDisabled,
			NonceTTL: auth.DefaultNonceTTL,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}
