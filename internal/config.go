package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/ansuz/internal/enrich"
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
	Model  ModelConfig       `yaml:"model"`
	Search SearchConfig      `yaml:"search"`
	Enrich EnrichConfig      `yaml:"enrich"`
	Auth   AuthConfig        `yaml:"auth"`
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
	if err := c.Model.Validate(); err != nil {
		return err
	}
	if err := c.Search.Validate(); err != nil {
		return err
	}
	if err := c.Enrich.Validate(); err != nil {
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

// HTTPConfig holds HTTP server configuration for serve mode.
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

// SQLiteConfig holds the metadata database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// ModelConfig holds the language-model collaborator configuration.
type ModelConfig struct {
	BaseURL string        `yaml:"base_url"`
	Name    string        `yaml:"name"`
	Timeout time.Duration `yaml:"timeout"`
}

// Validate validates the model configuration. An empty Name disables the
// model; every call site then takes its deterministic fallback.
func (c *ModelConfig) Validate() error {
	if c.Name == "" {
		return nil
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.BaseURL, validation.Required),
		validation.Field(&c.Timeout, validation.Required, validation.Min(time.Second)),
	)
}

// Enabled reports whether a model is configured.
func (c *ModelConfig) Enabled() bool {
	return c.Name != ""
}

// SearchConfig holds retrieval tuning.
type SearchConfig struct {
	MaxResults    int `yaml:"max_results"`
	PreviewLength int `yaml:"preview_length"`
}

// Validate validates the search configuration.
func (c *SearchConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.MaxResults, validation.Required, validation.Min(1)),
		validation.Field(&c.PreviewLength, validation.Required, validation.Min(1)),
	)
}

// EnrichConfig holds enrichment pipeline defaults.
type EnrichConfig struct {
	Workers   int              `yaml:"workers"`
	TagPolicy enrich.TagPolicy `yaml:"tag_policy"`
}

// Validate validates the enrichment configuration.
func (c *EnrichConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Workers, validation.Required, validation.Min(1)),
	); err != nil {
		return err
	}
	switch c.TagPolicy {
	case enrich.TagReplace, enrich.TagAppend, enrich.TagKeep:
		return nil
	}
	return fmt.Errorf("enrich: unknown tag_policy %q", c.TagPolicy)
}

// AuthConfig holds authentication configuration for serve mode.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local use.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	// An unset mode means auth is disabled.
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
			Path: "./ansuz.db",
		},
		Model: ModelConfig{
			BaseURL: "http://localhost:11434",
			Timeout: 120 * time.Second,
		},
		Search: SearchConfig{
			MaxResults:    100,
			PreviewLength: 1000,
		},
		Enrich: EnrichConfig{
			Workers:   16,
			TagPolicy: enrich.TagReplace,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
