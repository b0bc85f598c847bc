package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config models planner.yml. Secrets never live in the file; they come from
// the environment (see ApplyEnv).
type Config struct {
	Server      Server      `yaml:"server"`
	Database    Database    `yaml:"database"`
	Suggestions Suggestions `yaml:"suggestions"`
	Log         Log         `yaml:"log"`
	Webhooks    []Webhook   `yaml:"webhooks"`
}

type Server struct {
	Addr            string   `yaml:"addr"`
	BasePath        string   `yaml:"base_path"`
	ReadTimeout     Duration `yaml:"read_timeout"`
	WriteTimeout    Duration `yaml:"write_timeout"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
	// DevLogin enables POST /auth/dev/login. Local use only.
	DevLogin               bool   `yaml:"dev_login"`
	AllowLegacyActorHeader bool   `yaml:"allow_legacy_actor_header"`
	JWTSecret              string `yaml:"-"`
}

type Database struct {
	Driver    string `yaml:"driver"`
	URL       string `yaml:"url"`
	AuthToken string `yaml:"-"`
}

type Suggestions struct {
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
	MaxCount int    `yaml:"max_count"`
	APIKey   string `yaml:"-"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type Webhook struct {
	ID             string   `yaml:"id"`
	URL            string   `yaml:"url"`
	Events         []string `yaml:"events"`
	Secret         string   `yaml:"secret"`
	TimeoutSeconds int      `yaml:"timeout_seconds"`
	Enabled        bool     `yaml:"enabled"`
}

// Duration is a wrapper around time.Duration that supports YAML string parsing.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

// Env var names for secrets and overrides.
const (
	EnvJWTSecret       = "PLANNER_JWT_SECRET"
	EnvOpenAIKey       = "PLANNER_OPENAI_API_KEY"
	EnvDBAuthToken     = "PLANNER_DB_AUTH_TOKEN"
	EnvDBURL           = "PLANNER_DB_URL"
	EnvLogLevel        = "PLANNER_LOG_LEVEL"
	EnvSuggestProvider = "PLANNER_SUGGESTIONS_PROVIDER"
)

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: Server{
			Addr:            "127.0.0.1:8080",
			BasePath:        "/v0",
			ReadTimeout:     Duration(30 * time.Second),
			WriteTimeout:    Duration(30 * time.Second),
			ShutdownTimeout: Duration(10 * time.Second),
		},
		Database: Database{
			Driver: "sqlite",
		},
		Suggestions: Suggestions{
			Provider: "static",
			Model:    "gpt-4o-mini",
			MaxCount: 10,
		},
		Log: Log{
			Level:  "info",
			Format: "text",
		},
	}
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("config.server.addr is required")
	}
	if c.Server.BasePath != "" && !strings.HasPrefix(c.Server.BasePath, "/") {
		return fmt.Errorf("config.server.base_path must start with '/'")
	}
	switch c.Database.Driver {
	case "sqlite":
	case "libsql":
		if c.Database.URL == "" {
			return fmt.Errorf("config.database.url is required for libsql")
		}
	default:
		return fmt.Errorf("config.database.driver must be 'sqlite' or 'libsql'")
	}
	switch c.Suggestions.Provider {
	case "static", "openai":
	default:
		return fmt.Errorf("config.suggestions.provider must be 'static' or 'openai'")
	}
	if c.Suggestions.MaxCount <= 0 {
		return fmt.Errorf("config.suggestions.max_count must be > 0")
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config.log.level must be one of debug, info, warn, error")
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("config.log.format must be 'text' or 'json'")
	}
	seen := map[string]bool{}
	for i, h := range c.Webhooks {
		if h.URL == "" {
			return fmt.Errorf("config.webhooks[%d].url is required", i)
		}
		if h.ID != "" {
			if seen[h.ID] {
				return fmt.Errorf("config.webhooks[%d].id %s is duplicated", i, h.ID)
			}
			seen[h.ID] = true
		}
		if h.TimeoutSeconds < 0 {
			return fmt.Errorf("config.webhooks[%d].timeout_seconds must be >= 0", i)
		}
	}
	return nil
}

// ApplyEnv overlays secrets and overrides from the environment.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvJWTSecret); v != "" {
		c.Server.JWTSecret = v
	}
	if v := os.Getenv(EnvOpenAIKey); v != "" {
		c.Suggestions.APIKey = v
	}
	if v := os.Getenv(EnvDBAuthToken); v != "" {
		c.Database.AuthToken = v
	}
	if v := os.Getenv(EnvDBURL); v != "" {
		c.Database.Driver = "libsql"
		c.Database.URL = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv(EnvSuggestProvider); v != "" {
		c.Suggestions.Provider = v
	}
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "planner.yml")
}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; create one with planner config init", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// LoadOptional falls back to defaults if the config file does not exist.
// Environment overrides are applied in both cases.
func LoadOptional(workspace string) (*Config, error) {
	data, err := os.ReadFile(Path(workspace))
	if err != nil {
		if os.IsNotExist(err) {
			cfg := Default()
			cfg.ApplyEnv()
			return cfg, cfg.Validate()
		}
		return nil, err
	}
	return FromYAML(data)
}

// FromYAML parses config on top of defaults, applies env and validates.
func FromYAML(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

// GenerateDefault returns default config YAML.
func GenerateDefault() string {
	return defaultTemplate
}

const defaultTemplate = `server:
  addr: 127.0.0.1:8080
  base_path: /v0
  read_timeout: 30s
  write_timeout: 30s
  shutdown_timeout: 10s
  dev_login: false
  allow_legacy_actor_header: false

database:
  # sqlite keeps the board in .planner/planner.db; libsql talks to a hosted table.
  driver: sqlite
  url: ""

suggestions:
  provider: static
  model: gpt-4o-mini
  max_count: 10

log:
  level: info
  format: text

webhooks: []
`
