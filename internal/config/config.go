package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Config holds the application configuration
type Config struct {
	// GitHub
	GitHubToken         string `yaml:"github_token" env:"GITHUB_TOKEN"`
	GitHubTokenSecretID string `yaml:"github_token_secret_id" env:"GITHUB_TOKEN_SECRET_ID"`
	GitHubAPIURL        string `yaml:"github_api_url" env:"GITHUB_API_URL"`

	// Throttling
	SearchPageDelay time.Duration `yaml:"search_page_delay" env:"SEARCH_PAGE_DELAY" env-default:"1s"`
	PRFetchDelay    time.Duration `yaml:"pr_fetch_delay" env:"PR_FETCH_DELAY" env-default:"500ms"`

	// Storage
	StorageType string `yaml:"storage_type" env:"STORAGE_TYPE" env-default:"sqlite"` // "sqlite" or "postgres"
	SQLitePath  string `yaml:"sqlite_path" env:"SQLITE_PATH" env-default:"./metrics.db"`
	PostgresURL string `yaml:"postgres_url" env:"POSTGRES_URL"`

	// API Server
	APIPort string `yaml:"api_port" env:"API_PORT" env-default:"8080"`
	APIHost string `yaml:"api_host" env:"API_HOST" env-default:"localhost"`

	// CLI
	APIEndpoint string `yaml:"api_endpoint" env:"API_ENDPOINT" env-default:"http://localhost:8080"`

	// Env selects the log format: "local" or "prod"
	Env string `yaml:"env" env:"APP_ENV" env-default:"local"`
}

// Load loads the configuration from an optional YAML file (CONFIG_PATH) and the environment.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	return load(os.Getenv("CONFIG_PATH"))
}

// LoadFile loads the configuration from the given YAML file, with environment overrides.
func LoadFile(path string) (*Config, error) {
	_ = godotenv.Load()
	return load(path)
}

func load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		return &cfg, nil
	}
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}
	return &cfg, nil
}

// Validate validates the storage configuration
func (c *Config) Validate() error {
	if c.StorageType != "sqlite" && c.StorageType != "postgres" {
		return &ConfigError{Field: "STORAGE_TYPE", Message: "must be 'sqlite' or 'postgres'"}
	}
	if c.StorageType == "postgres" && c.PostgresURL == "" {
		return &ConfigError{Field: "POSTGRES_URL", Message: "PostgreSQL URL is required when STORAGE_TYPE is 'postgres'"}
	}
	return nil
}

// ValidateGitHub checks that a GitHub credential is available for syncing.
func (c *Config) ValidateGitHub() error {
	if c.GitHubToken == "" {
		return &ConfigError{Field: "GITHUB_TOKEN", Message: "GitHub token not configured. Please set GITHUB_TOKEN environment variable."}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Field + ": " + e.Message
}
