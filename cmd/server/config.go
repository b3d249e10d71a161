package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the server settings loaded from config.yaml, with
// environment variables taking precedence.
type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	NATS struct {
		URL string `yaml:"url"`
	} `yaml:"nats"`
	CORS struct {
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"cors"`
}

func loadConfig(path string) (*Config, error) {
	config := &Config{}
	config.Server.Port = "8080"
	config.NATS.URL = "nats://localhost:4222"
	config.CORS.AllowedOrigins = []string{"*"}

	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if port := os.Getenv("PORT"); port != "" {
		config.Server.Port = port
	}
	if url := os.Getenv("NATS_URL"); url != "" {
		config.NATS.URL = url
	}
	return config, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
