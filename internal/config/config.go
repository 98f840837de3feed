package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"tap_amazon_ads/internal/client"
)

type Config struct {
	ClientID       string           `yaml:"client_id" validate:"required"`
	ClientSecret   string           `yaml:"client_secret" validate:"required"`
	RefreshToken   string           `yaml:"refresh_token" validate:"required"`
	UserAgent      string           `yaml:"user_agent"`
	Profiles       ProfileID        `yaml:"profiles"`
	RequestTimeout Seconds          `yaml:"request_timeout" validate:"gte=0"`
	Retry          RetryConfig      `yaml:"retry"`
	StateStore     StateStoreConfig `yaml:"state_store"`
	Database       DatabaseConfig   `yaml:"database"`
	RabbitMQ       RabbitMQConfig   `yaml:"rabbitmq"`
	Sync           SyncConfig       `yaml:",inline"`
	MetricsAddr    string           `yaml:"metrics_addr"`
	LogLevel       string           `yaml:"log_level" validate:"omitempty,oneof=debug info warn error"`
}

type SyncConfig struct {
	StartDate string        `yaml:"start_date" validate:"required,timestamp"`
	Interval  time.Duration `yaml:"interval" validate:"gte=0"`
}

type RetryConfig struct {
	MaxAttempts    int           `yaml:"max_attempts" validate:"gte=1"`
	InitialBackoff time.Duration `yaml:"initial_backoff" validate:"gt=0"`
}

type StateStoreConfig struct {
	Type string `yaml:"type" validate:"omitempty,oneof=file postgres"`
	Path string `yaml:"path" validate:"required_if=Type file"`
}

// RabbitMQConfig leaves publishing disabled while URL is empty.
type RabbitMQConfig struct {
	URL        string `yaml:"url" validate:"omitempty,url"`
	Exchange   string `yaml:"exchange"`
	RoutingKey string `yaml:"routing_key"`
	QueueName  string `yaml:"queue_name"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// ProfileID accepts the profile as either a YAML string or number.
type ProfileID string

func (p *ProfileID) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("profiles: expected a scalar, got %s", node.ShortTag())
	}
	*p = ProfileID(strings.TrimSpace(node.Value))
	return nil
}

// Seconds is a duration written as a number of seconds. Strings holding a
// number are accepted, as are zero and empty values which mean the default.
type Seconds time.Duration

func (s *Seconds) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("request_timeout: expected a number, got %s", node.ShortTag())
	}
	raw := strings.TrimSpace(node.Value)
	if raw == "" || node.ShortTag() == "!!null" {
		*s = 0
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("request_timeout: %q is not a number of seconds", raw)
	}
	*s = Seconds(time.Duration(v * float64(time.Second)))
	return nil
}

func (s Seconds) Duration() time.Duration {
	return time.Duration(s)
}

func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse expands ${VAR} references, decodes and validates data. JSON
// config files decode unchanged since JSON is valid YAML.
func Parse(data []byte) (*Config, error) {
	expanded := expandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.setDefaults()

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnv replaces ${VAR} with the variable's value. Bare $ signs and
// references to unset variables stay as written, so secrets containing $
// survive.
func expandEnv(s string) string {
	return envRef.ReplaceAllStringFunc(s, func(ref string) string {
		if v, ok := os.LookupEnv(ref[2 : len(ref)-1]); ok {
			return v
		}
		return ref
	})
}

func (c *Config) setDefaults() {
	if c.UserAgent == "" {
		c.UserAgent = "tap-amazon-ads"
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = Seconds(client.DefaultTimeout)
	}
	if c.Retry.MaxAttempts == 0 {
		c.Retry.MaxAttempts = client.DefaultMaxAttempts
	}
	if c.Retry.InitialBackoff == 0 {
		c.Retry.InitialBackoff = client.DefaultInitialBackoff
	}
	if c.StateStore.Type == "" && c.StateStore.Path != "" {
		c.StateStore.Type = "file"
	}
	if c.RabbitMQ.URL != "" {
		if c.RabbitMQ.Exchange == "" {
			c.RabbitMQ.Exchange = "tap_amazon_ads"
		}
		if c.RabbitMQ.RoutingKey == "" {
			c.RabbitMQ.RoutingKey = "records"
		}
		if c.RabbitMQ.QueueName == "" {
			c.RabbitMQ.QueueName = "amazon_ads_records"
		}
	}
	if c.Database.Port == 0 {
		c.Database.Port = 5432
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// ClientConfig maps the file settings onto the API client.
func (c *Config) ClientConfig() client.Config {
	return client.Config{
		ClientID:       c.ClientID,
		ClientSecret:   c.ClientSecret,
		RefreshToken:   c.RefreshToken,
		UserAgent:      c.UserAgent,
		ProfileID:      string(c.Profiles),
		Timeout:        c.RequestTimeout.Duration(),
		MaxAttempts:    c.Retry.MaxAttempts,
		InitialBackoff: c.Retry.InitialBackoff,
	}
}
