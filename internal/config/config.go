package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv    string
	Port      string
	LogLevel  string
	LogFormat string

	TopologyPath string

	MQTTHost     string
	MQTTPort     int
	MQTTUsername string
	MQTTPassword string

	TSDBType     string
	TSDBHost     string
	TSDBPort     int
	TSDBDatabase string
	TSDBToken    string
}

func Load() (*Config, error) {
	// A missing .env file is fine; real environment variables win anyway.
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:    getEnv("APP_ENV", "development"),
		Port:      getEnv("PORT", "8080"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		TopologyPath: getEnv("TOPOLOGY_PATH", "config.yml"),

		MQTTHost:     getEnv("MQTT_HOST", "localhost"),
		MQTTUsername: getEnv("MQTT_USERNAME", ""),
		MQTTPassword: getEnv("MQTT_PASSWORD", ""),

		TSDBType:     getEnv("TSDB_TYPE", ""),
		TSDBHost:     getEnv("TSDB_HOST", ""),
		TSDBDatabase: getEnv("TSDB_DATABASE", ""),
		TSDBToken:    getEnv("TSDB_TOKEN", ""),
	}

	var err error
	if cfg.MQTTPort, err = getEnvInt("MQTT_PORT", 1883); err != nil {
		return nil, err
	}
	if cfg.TSDBPort, err = getEnvInt("TSDB_PORT", 8181); err != nil {
		return nil, err
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number: %w", key, err)
	}
	return n, nil
}
