package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/swissdoc/apply-agent/internal/apperrors"
	"github.com/swissdoc/apply-agent/internal/store"
)

// Config holds application configuration
type Config struct {
	GoogleCloudProject    string `json:"google_cloud_project"`
	GoogleCloudLocation   string `json:"google_cloud_location"`
	GoogleCredentialsPath string `json:"google_credentials_path"`
	GmailCredentialsPath  string `json:"gmail_credentials_path"`
	GmailTokenPath        string `json:"gmail_token_path"`
	CatalogPath           string `json:"catalog_path"`
	FirestoreCollection   string `json:"firestore_collection"`
	ListenAddr            string `json:"listen_addr"`
}

// DefaultConfig returns a new config with default values
func DefaultConfig() *Config {
	return &Config{
		GoogleCloudLocation:  "us-central1",
		GmailCredentialsPath: "credentials.json",
		GmailTokenPath:       "token.json",
		CatalogPath:          "jobs.csv",
		FirestoreCollection:  store.DefaultCollection,
		ListenAddr:           ":8080",
	}
}

// GetConfigPath returns the path to the configuration file
// On Windows: %APPDATA%/ApplyAgent/config.json
// On Unix: ~/.config/ApplyAgent/config.json
func GetConfigPath() (string, error) {
	var configDir string

	if os.Getenv("APPDATA") != "" {
		// Windows
		configDir = filepath.Join(os.Getenv("APPDATA"), "ApplyAgent")
	} else {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get user home directory: %w", err)
		}
		configDir = filepath.Join(homeDir, ".config", "ApplyAgent")
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return filepath.Join(configDir, "config.json"), nil
}

// Load loads configuration from the default config path, then lets
// environment variables override file values.
func Load() (*Config, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, err
	}

	cfg, err := LoadFrom(configPath)
	if err != nil {
		return nil, err
	}
	cfg.applyEnvOverrides()
	return cfg, nil
}

// LoadFrom loads configuration from a specific path
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// Save saves the configuration to the default config path
func (c *Config) Save() error {
	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}

	return c.SaveTo(configPath)
}

// SaveTo saves the configuration to a specific path
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid. Failures are
// configuration errors: not retryable, fix the setup first.
func (c *Config) Validate() error {
	if c.GoogleCloudProject == "" {
		return apperrors.NewConfiguration("google_cloud_project is required")
	}
	if c.GoogleCloudLocation == "" {
		return apperrors.NewConfiguration("google_cloud_location is required")
	}
	if c.CatalogPath == "" {
		return apperrors.NewConfiguration("catalog_path is required")
	}

	if _, err := os.Stat(c.GmailCredentialsPath); err != nil {
		return apperrors.NewConfiguration(fmt.Sprintf("gmail credentials file not found: %v", err))
	}
	if c.GoogleCredentialsPath != "" {
		if _, err := os.Stat(c.GoogleCredentialsPath); err != nil {
			return apperrors.NewConfiguration(fmt.Sprintf("google credentials file not found: %v", err))
		}
	}

	return nil
}

// ApplyToEnv applies configuration values to environment variables
func (c *Config) ApplyToEnv() {
	if c.GoogleCloudProject != "" {
		os.Setenv("GOOGLE_CLOUD_PROJECT", c.GoogleCloudProject)
	}
	if c.GoogleCloudLocation != "" {
		os.Setenv("GOOGLE_CLOUD_LOCATION", c.GoogleCloudLocation)
	}
	if c.GoogleCredentialsPath != "" {
		os.Setenv("GOOGLE_APPLICATION_CREDENTIALS", c.GoogleCredentialsPath)
	}
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("GOOGLE_CLOUD_PROJECT"); v != "" {
		c.GoogleCloudProject = v
	}
	if v := os.Getenv("GOOGLE_CLOUD_LOCATION"); v != "" {
		c.GoogleCloudLocation = v
	}
	if v := os.Getenv("CATALOG_PATH"); v != "" {
		c.CatalogPath = v
	}
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		c.ListenAddr = v
	}
	if v := os.Getenv("FIRESTORE_COLLECTION"); v != "" {
		c.FirestoreCollection = v
	}
}
