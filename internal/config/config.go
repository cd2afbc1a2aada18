package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/bryanwahyu/brandvisor/internal/domain/providers"
)

type Config struct {
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`

	Database struct {
		Driver   string `yaml:"driver"` // mysql | postgres
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
		SSLMode  string `yaml:"sslmode,omitempty"`
	} `yaml:"database"`

	Minio struct {
		Endpoint   string `yaml:"endpoint"`
		AccessKey  string `yaml:"accessKey"`
		SecretKey  string `yaml:"secretKey"`
		BucketName string `yaml:"bucketName"`
		Region     string `yaml:"region"`
		UseSSL     bool   `yaml:"useSSL"`
	} `yaml:"minio"`

	Audit struct {
		TimeoutSeconds int `yaml:"timeoutSeconds"`
		StaggerMS      int `yaml:"staggerMS"`
		TopN           int `yaml:"topN"`
	} `yaml:"audit"`

	// Providers is the immutable provider catalog. It is read once here and
	// injected into the audit service; nothing mutates it afterwards.
	Providers []providers.Config `yaml:"providers"`

	// APIKeys maps tenant -> key for the auth middleware; empty disables auth.
	APIKeys map[string]string `yaml:"apiKeys,omitempty"`
}

// Load baca file config.yaml
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "mysql"
	}
	if cfg.Audit.TimeoutSeconds <= 0 {
		cfg.Audit.TimeoutSeconds = 120
	}
	if cfg.Audit.StaggerMS <= 0 {
		cfg.Audit.StaggerMS = 2200
	}
	if cfg.Audit.TopN <= 0 {
		cfg.Audit.TopN = 10
	}
	return &cfg, nil
}

// EnabledProviders filters the catalog down to the entries that may be used.
func (c *Config) EnabledProviders() []providers.Config {
	out := make([]providers.Config, 0, len(c.Providers))
	for _, p := range c.Providers {
		if p.Enabled {
			out = append(out, p)
		}
	}
	return out
}

// Helper untuk build DSN MySQL
func (c *Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
	)
}

// Helper untuk build DSN Postgres
func (c *Config) PostgresDSN() string {
	ssl := c.Database.SSLMode
	if ssl == "" {
		ssl = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		ssl,
	)
}
