package shared

import (
	_ "embed"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
)

//go:embed config.example.toml
var exampleConf []byte

// MinSessionSecretLength is the minimum length of the cookie signing secret.
const MinSessionSecretLength = 32

const (
	AuthModeAPI = "api" // unauthenticated requests get 401 JSON
	AuthModeWeb = "web" // unauthenticated requests are redirected to /login

	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Config represents the application configuration loaded from a TOML file and overridden by environment variables.
type Config struct {
	Credentials     CredentialsConfig     `toml:"credentials"`
	Completion      CompletionConfig      `toml:"completion"`
	Database        DatabaseConfig        `toml:"database"`
	Server          ServerConfig          `toml:"server"`
	Recommendations RecommendationsConfig `toml:"recommendations"`
	Log             LogConfig             `toml:"log"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify   SpotifyConfig `toml:"spotify"`
	OpenAI    APIKeyConfig  `toml:"openai"`
	Anthropic APIKeyConfig  `toml:"anthropic"`
}

// SpotifyConfig contains Spotify API credentials and endpoints.
//
// The URL fields default to the public Spotify endpoints and exist so tests and proxies can point elsewhere.
type SpotifyConfig struct {
	ClientID     string   `toml:"client_id" env:"SPOTIFY_CLIENT_ID"`
	ClientSecret string   `toml:"client_secret" env:"SPOTIFY_CLIENT_SECRET"`
	RedirectURI  string   `toml:"redirect_uri" env:"SPOTIFY_REDIRECT_URI"`
	Scopes       []string `toml:"scopes" env:"SPOTIFY_SCOPES" envSeparator:" "`
	AuthURL      string   `toml:"auth_url"`
	TokenURL     string   `toml:"token_url"`
	APIBaseURL   string   `toml:"api_base_url"`
}

// APIKeyConfig holds a completion provider key. Each provider reads its own variable.
type APIKeyConfig struct {
	APIKey  string `toml:"api_key"`
	BaseURL string `toml:"base_url"`
}

// CompletionConfig selects and tunes the completion provider.
type CompletionConfig struct {
	Provider     string `toml:"provider" env:"COMPLETION_PROVIDER"`
	Model        string `toml:"model" env:"COMPLETION_MODEL"`
	MaxTokens    int    `toml:"max_tokens" env:"COMPLETION_MAX_TOKENS"`
	SystemPrompt string `toml:"system_prompt" env:"COMPLETION_SYSTEM_PROMPT"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path" env:"DATABASE_PATH"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host           string        `toml:"host" env:"HOST"`
	Port           int           `toml:"port" env:"PORT"`
	FrontendURL    string        `toml:"frontend_url" env:"FRONTEND_URL"`
	AllowedOrigins []string      `toml:"allowed_origins" env:"ALLOWED_ORIGINS" envSeparator:","`
	StaticDir      string        `toml:"static_dir" env:"STATIC_DIR"`
	SessionSecret  string        `toml:"session_secret" env:"SESSION_SECRET"`
	SessionTTL     time.Duration `toml:"session_ttl" env:"SESSION_TTL"`
	CrossSite      bool          `toml:"cross_site" env:"CROSS_SITE"`
	AuthMode       string        `toml:"auth_mode" env:"AUTH_MODE"`
	LoginRateLimit float64       `toml:"login_rate_limit"`
}

// RecommendationsConfig tunes the recommendation reply.
type RecommendationsConfig struct {
	TopLimit int `toml:"top_limit"`
	Limit    int `toml:"limit"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level string `toml:"level" env:"CHATIFY_LOG_LEVEL"`
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// APIKey returns the key of the configured completion provider.
func (c *Config) APIKey() string {
	switch c.Completion.Provider {
	case ProviderAnthropic:
		return c.Credentials.Anthropic.APIKey
	default:
		return c.Credentials.OpenAI.APIKey
	}
}

// LoadConfig reads and parses a TOML configuration file from the specified path, starting from the defaults
// and then applying environment overrides.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := ApplyEnv(config); err != nil {
		return nil, err
	}
	return config, nil
}

// LoadConfigOrDefault loads the config at path when it exists and falls back to defaults plus environment otherwise.
func LoadConfigOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); err == nil {
		return LoadConfig(path)
	}

	config := DefaultConfig()
	if err := ApplyEnv(config); err != nil {
		return nil, err
	}
	return config, nil
}

// ApplyEnv overrides config fields from their tagged environment variables.
//
// The provider keys are read separately so OPENAI_API_KEY and ANTHROPIC_API_KEY never collide.
func ApplyEnv(config *Config) error {
	if err := env.Parse(config); err != nil {
		return fmt.Errorf("%w: parse env: %v", ErrInvalidConfig, err)
	}

	keys := struct {
		OpenAI    string `env:"OPENAI_API_KEY"`
		Anthropic string `env:"ANTHROPIC_API_KEY"`
	}{}
	if err := env.Parse(&keys); err != nil {
		return fmt.Errorf("%w: parse env: %v", ErrInvalidConfig, err)
	}
	if keys.OpenAI != "" {
		config.Credentials.OpenAI.APIKey = keys.OpenAI
	}
	if keys.Anthropic != "" {
		config.Credentials.Anthropic.APIKey = keys.Anthropic
	}
	return nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate checks that the configuration can run the server.
func (c *Config) Validate() error {
	spotify := c.Credentials.Spotify
	if isPlaceholder(spotify.ClientID) || isPlaceholder(spotify.ClientSecret) {
		return fmt.Errorf("%w: spotify client_id and client_secret must be set", ErrMissingCredentials)
	}
	if spotify.RedirectURI == "" {
		return fmt.Errorf("%w: spotify redirect_uri must be set", ErrInvalidConfig)
	}

	if !slices.Contains([]string{ProviderOpenAI, ProviderAnthropic}, c.Completion.Provider) {
		return fmt.Errorf("%w: unknown completion provider %q", ErrInvalidConfig, c.Completion.Provider)
	}
	if isPlaceholder(c.APIKey()) {
		return fmt.Errorf("%w: api key for %s must be set", ErrMissingCredentials, c.Completion.Provider)
	}

	if strings.HasPrefix(c.Server.SessionSecret, "change-me") {
		return fmt.Errorf("%w: session_secret still holds the example value", ErrInvalidConfig)
	}
	if len(c.Server.SessionSecret) < MinSessionSecretLength {
		return fmt.Errorf("%w: session_secret must be at least %d bytes", ErrInvalidConfig, MinSessionSecretLength)
	}
	if c.Server.AuthMode != AuthModeAPI && c.Server.AuthMode != AuthModeWeb {
		return fmt.Errorf("%w: auth_mode must be %q or %q", ErrInvalidConfig, AuthModeAPI, AuthModeWeb)
	}
	if c.Server.FrontendURL == "" {
		return fmt.Errorf("%w: frontend_url must be set", ErrInvalidConfig)
	}
	return nil
}

func isPlaceholder(v string) bool {
	return v == "" || strings.HasPrefix(v, "your_")
}
