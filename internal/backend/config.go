package backend

import (
	"errors"
	"fmt"

	"finances/internal/amqp"
	"finances/internal/config"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, errors.New("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	return Config{
		Type:         backendType,
		SQLiteDBPath: appConfig.SQLiteDBPath,
		SeedDir:      appConfig.SeedDir,
	}, nil
}

// AMQPConfigFromAppConfig returns the broker settings; URL is empty when messaging is disabled.
func AMQPConfigFromAppConfig(appConfig *config.Config) amqp.Config {
	return amqp.Config{
		URL:         appConfig.AMQPURL,
		Exchange:    appConfig.AMQPExchange,
		ImportQueue: appConfig.AMQPImportQueue,
		EventsQueue: appConfig.AMQPEventsQueue,
	}
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}
	if c.Type == SQLiteBackend && c.SQLiteDBPath == "" {
		return errors.New("SQLite database path is required for sqlite backend")
	}
	return nil
}

// GetBackendTypeStrings returns all valid backend type strings
func GetBackendTypeStrings() []string {
	return []string{SQLiteBackend.String(), MemoryBackend.String()}
}
