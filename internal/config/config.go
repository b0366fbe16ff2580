package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"demobook/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig           `yaml:"app"`
	Server     ServerConfig        `yaml:"server"`
	Database   DatabaseConfig      `yaml:"database"`
	Auth       AuthConfig          `yaml:"auth"`
	Mail       MailConfig          `yaml:"mail"`
	Backup     BackupConfig        `yaml:"backup"`
	Redis      RedisConfig         `yaml:"redis"`
	Monitoring MonitoringConfig    `yaml:"monitoring"`
	Logging    LoggingConfig       `yaml:"logging"`
	Users      []models.Credential `yaml:"users"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type AuthConfig struct {
	SessionSecret     string  `yaml:"session_secret"`
	SessionTTLMinutes int     `yaml:"session_ttl_minutes"`
	LoginRPS          float64 `yaml:"login_rps"`
	LoginBurst        int     `yaml:"login_burst"`
}

type MailConfig struct {
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	UseTLS    bool   `yaml:"use_tls"`
	Username  string `yaml:"username"`
	Password  string `yaml:"password"`
	Sender    string `yaml:"sender"`
	Recipient string `yaml:"recipient"`
}

// Enabled reports whether enough coordinates are present to send mail.
// Missing configuration disables notification silently, never fatally.
func (m MailConfig) Enabled() bool {
	return m.Host != "" && m.Sender != "" && m.Recipient != ""
}

type BackupConfig struct {
	APIBaseURL      string `yaml:"api_base_url"`
	Repository      string `yaml:"repository"`
	Path            string `yaml:"path"`
	Branch          string `yaml:"branch"`
	Token           string `yaml:"token"`
	DebounceSeconds int    `yaml:"debounce_seconds"`
}

// Enabled reports whether the remote mirror is configured. Absence of any
// coordinate disables backup entirely, never fatally.
func (b BackupConfig) Enabled() bool {
	return b.Repository != "" && b.Path != "" && b.Token != ""
}

// Debounce returns the minimum interval between two remote pushes.
func (b BackupConfig) Debounce() time.Duration {
	return time.Duration(b.DebounceSeconds) * time.Second
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

func Load(configPath string) (*Config, error) {
	// .env is optional; values from it feed the ${VAR} expansion below.
	_ = godotenv.Load(".env")

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyEnvOverrides()
	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// applyEnvOverrides applies the enumerated environment overrides on top of
// whatever the YAML file resolved to.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("SESSION_SECRET"); v != "" {
		c.Auth.SessionSecret = v
	}
	if v := os.Getenv("NOTIFY_RECIPIENT"); v != "" {
		c.Mail.Recipient = v
	}
	if v := os.Getenv("MAIL_PASSWORD"); v != "" {
		c.Mail.Password = v
	}
	if v := os.Getenv("BACKUP_TOKEN"); v != "" {
		c.Backup.Token = v
	}
}

func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}

	if len(c.Users) == 0 {
		return errors.New("at least one user credential is required")
	}

	return ValidateUsers(c.Users)
}

func ValidateUsers(users []models.Credential) error {
	seen := make(map[string]bool)
	for _, u := range users {
		if u.Username == "" {
			return errors.New("user with empty username")
		}
		if seen[u.Username] {
			return fmt.Errorf("duplicate username: %s", u.Username)
		}
		seen[u.Username] = true

		if u.Role != models.RoleAdmin && u.Role != models.RoleUser {
			return fmt.Errorf("user '%s' has unknown role '%s'", u.Username, u.Role)
		}
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}

	if c.Auth.SessionTTLMinutes == 0 {
		c.Auth.SessionTTLMinutes = 60
	}
	if c.Auth.LoginRPS == 0 {
		c.Auth.LoginRPS = 1
	}
	if c.Auth.LoginBurst == 0 {
		c.Auth.LoginBurst = 5
	}

	if c.Mail.Port == 0 {
		c.Mail.Port = 587
	}

	if c.Backup.APIBaseURL == "" {
		c.Backup.APIBaseURL = "https://api.github.com"
	}
	if c.Backup.Branch == "" {
		c.Backup.Branch = "main"
	}
	if c.Backup.DebounceSeconds == 0 {
		c.Backup.DebounceSeconds = 10
	}
}

// UserTable builds the immutable credential lookup injected at startup.
func (c *Config) UserTable() map[string]models.Credential {
	table := make(map[string]models.Credential, len(c.Users))
	for _, u := range c.Users {
		table[u.Username] = u
	}
	return table
}
