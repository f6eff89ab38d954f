package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"meshgate/internal/gateway"
	"meshgate/pkg/logging"
)

const (
	userConfigDir  = ".config/meshgate"
	configFileName = "config.yaml"
)

// GetDefaultConfigPathOrPanic returns the per-user config directory.
func GetDefaultConfigPathOrPanic() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		panic(fmt.Errorf("could not determine user config directory: %w", err))
	}
	return filepath.Join(homeDir, userConfigDir)
}

// GetDefaultConfig returns the built-in defaults.
func GetDefaultConfig() Config {
	return Config{
		Gateway: GatewayConfig{
			Host:               "localhost",
			Port:               8090,
			Transport:          string(gateway.TransportStreamableHTTP),
			CallTimeoutSeconds: 120,
			ResourceScheme:     gateway.DefaultResourceScheme,
			Thresholds:         gateway.DefaultThresholds(),
			ArtifactStore:      ArtifactStoreMemory,
		},
	}
}

// LoadConfig loads config.yaml from the given directory, falling back to
// defaults when the file does not exist.
func LoadConfig(configPath string) (Config, error) {
	configFilePath := filepath.Join(configPath, configFileName)
	config := GetDefaultConfig()

	data, err := os.ReadFile(configFilePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logging.Info("ConfigLoader", "No config.yaml found at %s, using defaults", configFilePath)
			return config, nil
		}
		logging.Info("ConfigLoader", "Error loading config.yaml from %s: %s", configFilePath, err)
		return Config{}, err
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("error loading config from %s: %w", configFilePath, err)
	}

	if err := validate(config); err != nil {
		return Config{}, err
	}
	logging.Info("ConfigLoader", "Loaded configuration from %s", configFilePath)
	return config, nil
}

func validate(config Config) error {
	switch config.Gateway.Transport {
	case string(gateway.TransportStreamableHTTP), string(gateway.TransportSSE), string(gateway.TransportStdio), "":
	default:
		return fmt.Errorf("unknown transport %q", config.Gateway.Transport)
	}

	switch config.Gateway.ArtifactStore {
	case ArtifactStoreMemory, "":
	case ArtifactStoreSQLite:
		if config.Gateway.ArtifactDBPath == "" {
			return fmt.Errorf("artifactStore sqlite requires artifactDBPath")
		}
	default:
		return fmt.Errorf("unknown artifact store %q", config.Gateway.ArtifactStore)
	}
	return nil
}
