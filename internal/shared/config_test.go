package shared

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func validConfig() *Config {
	config := DefaultConfig()
	config.Credentials.Spotify.ClientID = "client"
	config.Credentials.Spotify.ClientSecret = "secret"
	config.Credentials.OpenAI.APIKey = "sk-test"
	config.Server.SessionSecret = "6f1c2e8a9b7d4c3e5f0a1b2c3d4e5f6a"
	return config
}

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Database.Path != "./chatify.db" {
			t.Errorf("expected database path ./chatify.db, got %s", config.Database.Path)
		}
		if config.Server.Port != 3000 {
			t.Errorf("expected server port 3000, got %d", config.Server.Port)
		}
		if config.Server.SessionTTL != 24*time.Hour {
			t.Errorf("expected session ttl 24h, got %v", config.Server.SessionTTL)
		}
		if config.Server.AuthMode != AuthModeAPI {
			t.Errorf("expected auth mode api, got %s", config.Server.AuthMode)
		}
		if config.Completion.Model != "gpt-3.5-turbo" {
			t.Errorf("expected model gpt-3.5-turbo, got %s", config.Completion.Model)
		}
		if len(config.Credentials.Spotify.Scopes) != 3 {
			t.Errorf("expected 3 spotify scopes, got %v", config.Credentials.Spotify.Scopes)
		}
		if config.Recommendations.Limit != 5 {
			t.Errorf("expected recommendation limit 5, got %d", config.Recommendations.Limit)
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		if config.Database.Path != DefaultConfig().Database.Path {
			t.Errorf("created config database path doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		testConfig := `[database]
path = "/custom/path.db"

[server]
port = 8080
auth_mode = "web"
session_ttl = "2h"

[credentials.spotify]
client_id = "test_client_id"
client_secret = "test_secret"
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Database.Path != "/custom/path.db" {
			t.Errorf("expected database path /custom/path.db, got %s", config.Database.Path)
		}
		if config.Server.Port != 8080 {
			t.Errorf("expected server port 8080, got %d", config.Server.Port)
		}
		if config.Server.AuthMode != AuthModeWeb {
			t.Errorf("expected auth mode web, got %s", config.Server.AuthMode)
		}
		if config.Server.SessionTTL != 2*time.Hour {
			t.Errorf("expected session ttl 2h, got %v", config.Server.SessionTTL)
		}
		if config.Credentials.Spotify.ClientID != "test_client_id" {
			t.Errorf("expected spotify client_id test_client_id, got %s", config.Credentials.Spotify.ClientID)
		}
		if config.Credentials.Spotify.TokenURL != "https://accounts.spotify.com/api/token" {
			t.Errorf("unset fields should keep defaults, got token url %q", config.Credentials.Spotify.TokenURL)
		}
	})

	t.Run("LoadConfig Missing File", func(t *testing.T) {
		if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
			t.Error("expected error for missing file")
		}
	})

	t.Run("Environment Overrides", func(t *testing.T) {
		t.Setenv("SPOTIFY_CLIENT_ID", "env_client")
		t.Setenv("OPENAI_API_KEY", "sk-env")
		t.Setenv("ANTHROPIC_API_KEY", "ak-env")
		t.Setenv("PORT", "9090")
		t.Setenv("ALLOWED_ORIGINS", "https://a.example,https://b.example")
		t.Setenv("CROSS_SITE", "true")

		config, err := LoadConfigOrDefault(filepath.Join(t.TempDir(), "missing.toml"))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if config.Credentials.Spotify.ClientID != "env_client" {
			t.Errorf("expected env client id, got %s", config.Credentials.Spotify.ClientID)
		}
		if config.Credentials.OpenAI.APIKey != "sk-env" {
			t.Errorf("expected openai key from env, got %s", config.Credentials.OpenAI.APIKey)
		}
		if config.Credentials.Anthropic.APIKey != "ak-env" {
			t.Errorf("expected anthropic key from env, got %s", config.Credentials.Anthropic.APIKey)
		}
		if config.Server.Port != 9090 {
			t.Errorf("expected port 9090, got %d", config.Server.Port)
		}
		if len(config.Server.AllowedOrigins) != 2 || config.Server.AllowedOrigins[1] != "https://b.example" {
			t.Errorf("unexpected allowed origins %v", config.Server.AllowedOrigins)
		}
		if !config.Server.CrossSite {
			t.Error("expected cross_site to be enabled")
		}
		if config.Database.Path != "./chatify.db" {
			t.Errorf("unset env should keep default database path, got %s", config.Database.Path)
		}
	})
}

func TestConfigValidate(t *testing.T) {
	tc := []struct {
		name    string
		mutate  func(c *Config)
		wantErr error
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{
			name:    "placeholder client id",
			mutate:  func(c *Config) { c.Credentials.Spotify.ClientID = "your_spotify_client_id" },
			wantErr: ErrMissingCredentials,
		},
		{
			name:    "missing redirect uri",
			mutate:  func(c *Config) { c.Credentials.Spotify.RedirectURI = "" },
			wantErr: ErrInvalidConfig,
		},
		{
			name:    "unknown provider",
			mutate:  func(c *Config) { c.Completion.Provider = "parrot" },
			wantErr: ErrInvalidConfig,
		},
		{
			name:    "anthropic without key",
			mutate:  func(c *Config) { c.Completion.Provider = ProviderAnthropic },
			wantErr: ErrMissingCredentials,
		},
		{
			name:    "short session secret",
			mutate:  func(c *Config) { c.Server.SessionSecret = "short" },
			wantErr: ErrInvalidConfig,
		},
		{
			name:    "example session secret",
			mutate:  func(c *Config) { c.Server.SessionSecret = DefaultConfig().Server.SessionSecret },
			wantErr: ErrInvalidConfig,
		},
		{
			name:    "unknown auth mode",
			mutate:  func(c *Config) { c.Server.AuthMode = "both" },
			wantErr: ErrInvalidConfig,
		},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			config := validConfig()
			tt.mutate(config)

			err := config.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("expected no error, got %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}
