package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all parameters of the order service.
type Config struct {
	HTTP     HTTPConfig
	Database DatabaseConfig
	RabbitMQ RabbitMQConfig
	Product  ProductConfig
}

type HTTPConfig struct {
	Port int
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
}

// RabbitMQConfig is optional: an empty host disables event publishing.
type RabbitMQConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	VHost    string
}

// ProductConfig points at the Product service that owns inventory.
type ProductConfig struct {
	URL            string
	TimeoutSeconds int
}

// Load reads a two-level YAML config file, the flat section/key layout the
// café deployments use. Environment variables override file values.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	cfg := defaults()
	scanner := bufio.NewScanner(file)

	var section string
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if strings.HasSuffix(line, ":") && !strings.Contains(line, " ") {
			section = strings.TrimSuffix(line, ":")
			continue
		}

		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.Trim(strings.TrimSpace(parts[1]), `"'`)

		if err := cfg.set(section, key, value); err != nil {
			return nil, fmt.Errorf("config %s.%s: %w", section, key, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg.applyEnv()

	if cfg.Database.Host == "" {
		return nil, fmt.Errorf("invalid config: database host is required")
	}
	if cfg.Product.URL == "" {
		return nil, fmt.Errorf("invalid config: product_service url is required")
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		HTTP:     HTTPConfig{Port: 8083},
		Database: DatabaseConfig{Port: 5432},
		RabbitMQ: RabbitMQConfig{Port: 5672, VHost: "/"},
		Product:  ProductConfig{TimeoutSeconds: 5},
	}
}

func (c *Config) set(section, key, value string) error {
	switch section {
	case "http":
		if key == "port" {
			return setInt(&c.HTTP.Port, value)
		}
	case "database":
		switch key {
		case "host":
			c.Database.Host = value
		case "port":
			return setInt(&c.Database.Port, value)
		case "user":
			c.Database.User = value
		case "password":
			c.Database.Password = value
		case "database":
			c.Database.Database = value
		}
	case "rabbitmq":
		switch key {
		case "host":
			c.RabbitMQ.Host = value
		case "port":
			return setInt(&c.RabbitMQ.Port, value)
		case "user":
			c.RabbitMQ.User = value
		case "password":
			c.RabbitMQ.Password = value
		case "vhost":
			c.RabbitMQ.VHost = value
		}
	case "product_service":
		switch key {
		case "url":
			c.Product.URL = value
		case "timeout_seconds":
			return setInt(&c.Product.TimeoutSeconds, value)
		}
	}
	return nil
}

// applyEnv lets container deployments override the file without editing it.
func (c *Config) applyEnv() {
	if v := os.Getenv("DB_HOST"); v != "" {
		c.Database.Host = v
	}
	if v := os.Getenv("DB_PORT"); v != "" {
		_ = setInt(&c.Database.Port, v)
	}
	if v := os.Getenv("DB_USER"); v != "" {
		c.Database.User = v
	}
	if v := os.Getenv("DB_PASSWORD"); v != "" {
		c.Database.Password = v
	}
	if v := os.Getenv("DB_NAME"); v != "" {
		c.Database.Database = v
	}
	if v := os.Getenv("RABBITMQ_HOST"); v != "" {
		c.RabbitMQ.Host = v
	}
	if v := os.Getenv("PRODUCT_SERVICE_URL"); v != "" {
		c.Product.URL = v
	}
}

func setInt(dst *int, value string) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid integer %q: %w", value, err)
	}
	*dst = n
	return nil
}

// DatabaseURL returns a PostgreSQL connection URL.
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.Database.User, c.Database.Password, c.Database.Host, c.Database.Port, c.Database.Database)
}

// EventsEnabled reports whether a broker is configured at all.
func (c *Config) EventsEnabled() bool { return c.RabbitMQ.Host != "" }

// FindConfig looks for the config file in the conventional locations.
func FindConfig() (string, error) {
	candidates := []string{"config.yaml", "deploy/config.example.yaml"}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("no config.yaml found")
}
