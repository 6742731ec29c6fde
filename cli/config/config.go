package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Host          string `yaml:"host"`
		HTTPPort      int    `yaml:"http_port"`
		WebSocketPort int    `yaml:"websocket_port"`
	} `yaml:"server"`
	User struct {
		Username string `yaml:"username"`
		Token    string `yaml:"token"`
	} `yaml:"user"`
	Sync struct {
		QuietIntervalMS int `yaml:"quiet_interval_ms"`
	} `yaml:"sync"`
	Export struct {
		Format string `yaml:"format"`
	} `yaml:"export"`
	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

var GlobalConfig *Config

func GetConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".anitrack"), nil
}

func GetConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.yaml"), nil
}

func Load() (*Config, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	GlobalConfig = &config
	return &config, nil
}

func Save(config *Config) error {
	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	GlobalConfig = config
	return nil
}

func Init() error {
	configDir, err := GetConfigDir()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	exportsDir := filepath.Join(configDir, "exports")
	if err := os.MkdirAll(exportsDir, 0755); err != nil {
		return fmt.Errorf("failed to create exports directory: %w", err)
	}

	config := &Config{}
	config.Server.Host = "localhost"
	config.Server.HTTPPort = 8080
	config.Server.WebSocketPort = 8080
	config.User.Username = ""
	config.User.Token = ""
	config.Sync.QuietIntervalMS = 1500
	config.Export.Format = "csv"
	config.Logging.Level = "info"

	return Save(config)
}

func UpdateUserToken(username, token string) error {
	config, err := Load()
	if err != nil {
		return err
	}

	config.User.Username = username
	config.User.Token = token

	return Save(config)
}

func ClearUserToken() error {
	config, err := Load()
	if err != nil {
		return err
	}

	config.User.Username = ""
	config.User.Token = ""

	return Save(config)
}

func GetServerURL() (string, error) {
	config, err := Load()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("http://%s:%d", config.Server.Host, config.Server.HTTPPort), nil
}

func GetFeedURL() (string, error) {
	config, err := Load()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("ws://%s:%d/ws", config.Server.Host, config.Server.WebSocketPort), nil
}

func GetAuthToken() (string, error) {
	config, err := Load()
	if err != nil {
		return "", err
	}
	if config.User.Token == "" {
		return "", fmt.Errorf("not logged in")
	}
	return config.User.Token, nil
}
