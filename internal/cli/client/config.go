package client

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// GlobalConfig is the per-user client configuration stored in config.json.
type GlobalConfig struct {
	APIURL   string `json:"api_url"`
	APIToken string `json:"api_token,omitempty"`
}

var (
	getConfigDirFunc  = defaultGetConfigDir
	getConfigPathFunc = defaultGetConfigPath
)

func defaultGetConfigDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(configDir, "financelm"), nil
}

func defaultGetConfigPath() (string, error) {
	configDir, err := getConfigDirFunc()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.json"), nil
}

// GetConfigDir returns the platform-specific configuration directory
func GetConfigDir() (string, error) {
	return getConfigDirFunc()
}

// GetConfigPath returns the full path to the config.json file
func GetConfigPath() (string, error) {
	return getConfigPathFunc()
}

// LoadGlobalConfig reads config.json. A missing file yields a nil config and
// no error.
func LoadGlobalConfig() (*GlobalConfig, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(configPath)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config GlobalConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &config, nil
}

// SaveGlobalConfig writes the config to config.json with 0600 permissions
func SaveGlobalConfig(config *GlobalConfig) error {
	if config == nil {
		return fmt.Errorf("config cannot be nil")
	}

	configDir, err := GetConfigDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// DeleteGlobalConfig removes the config.json file
func DeleteGlobalConfig() error {
	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}

	if err := os.Remove(configPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete config file: %w", err)
	}
	return nil
}

// CredentialSource names where the API URL came from.
type CredentialSource string

const (
	SourceFlag         CredentialSource = "flag"
	SourceEnv          CredentialSource = "env"
	SourceGlobalConfig CredentialSource = "global_config"
	SourceDefault      CredentialSource = "default"
)

// Credentials are the resolved connection settings.
type Credentials struct {
	APIURL   string
	APIToken string
	Source   CredentialSource
}

// ResolveCredentials applies the cascade flag, environment, global config,
// default. The token is looked up independently of the URL and may stay
// empty when the server runs without authentication.
func ResolveCredentials(flagURL, flagToken string) (Credentials, error) {
	creds := Credentials{APIURL: flagURL, APIToken: flagToken, Source: SourceFlag}

	if creds.APIURL == "" {
		creds.APIURL = os.Getenv(envAPIURL)
		creds.Source = SourceEnv
	}
	if creds.APIToken == "" {
		creds.APIToken = os.Getenv(envAPIToken)
	}

	if creds.APIURL == "" || creds.APIToken == "" {
		global, err := LoadGlobalConfig()
		if err != nil {
			return Credentials{}, err
		}
		if global != nil {
			if creds.APIURL == "" && global.APIURL != "" {
				creds.APIURL = global.APIURL
				creds.Source = SourceGlobalConfig
			}
			if creds.APIToken == "" {
				creds.APIToken = global.APIToken
			}
		}
	}

	if creds.APIURL == "" {
		creds.APIURL = defaultAPIURL
		creds.Source = SourceDefault
	}
	return creds, nil
}
