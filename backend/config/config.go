package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Workflow WorkflowConfig `yaml:"workflow"`
	Minio    MinioConfig    `yaml:"minio"`
	Auth     AuthConfig     `yaml:"auth"`
	Store    StoreConfig    `yaml:"store"`
	Upload   UploadConfig   `yaml:"upload"`
	Wizard   WizardConfig   `yaml:"wizard"`
	Notify   NotifyConfig   `yaml:"notify"`
	Users    []User         `yaml:"users"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// WorkflowConfig points at the remote workflow service that performs
// document parsing, template retrieval and session creation.
type WorkflowConfig struct {
	BaseURL        string `yaml:"base_url"`
	APIToken       string `yaml:"api_token"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type MinioConfig struct {
	Endpoint   string `yaml:"endpoint"`
	AccessKey  string `yaml:"access_key"`
	SecretKey  string `yaml:"secret_key"`
	Bucket     string `yaml:"bucket"`
	UseSSL     bool   `yaml:"use_ssl"`
	ExpireDays int    `yaml:"expire_days"`
}

type AuthConfig struct {
	JWTSecret        string `yaml:"jwt_secret"`
	TokenExpireHours int    `yaml:"token_expire_hours"`
}

type StoreConfig struct {
	MaxSessions int `yaml:"max_sessions"`
}

// UploadConfig carries the document intake policy. The extracted-text floor
// and the polling ceiling are policy knobs, not domain constants, so they
// live in configuration rather than in code.
type UploadConfig struct {
	MaxSizeBytes        int64 `yaml:"max_size_bytes"`
	MinExtractedChars   int   `yaml:"min_extracted_chars"`
	PollIntervalSeconds int   `yaml:"poll_interval_seconds"`
	PollMaxAttempts     int   `yaml:"poll_max_attempts"`
}

type WizardConfig struct {
	WelcomeDelayMillis int `yaml:"welcome_delay_millis"`
}

type NotifyConfig struct {
	ToastTTLSeconds int `yaml:"toast_ttl_seconds"`
}

type User struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Party    string `yaml:"party"` // customer or provider
}

var GlobalConfig *Config

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Set defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Workflow.TimeoutSeconds == 0 {
		cfg.Workflow.TimeoutSeconds = 60
	}
	if cfg.Minio.ExpireDays == 0 {
		cfg.Minio.ExpireDays = 7
	}
	if cfg.Auth.TokenExpireHours == 0 {
		cfg.Auth.TokenExpireHours = 24
	}
	if cfg.Store.MaxSessions == 0 {
		cfg.Store.MaxSessions = 100
	}
	if cfg.Upload.MaxSizeBytes == 0 {
		cfg.Upload.MaxSizeBytes = 10 << 20 // 10 MiB
	}
	if cfg.Upload.MinExtractedChars == 0 {
		cfg.Upload.MinExtractedChars = 100
	}
	if cfg.Upload.PollIntervalSeconds == 0 {
		cfg.Upload.PollIntervalSeconds = 5
	}
	if cfg.Upload.PollMaxAttempts == 0 {
		cfg.Upload.PollMaxAttempts = 60
	}
	if cfg.Wizard.WelcomeDelayMillis == 0 {
		cfg.Wizard.WelcomeDelayMillis = 1500
	}
	if cfg.Notify.ToastTTLSeconds == 0 {
		cfg.Notify.ToastTTLSeconds = 5
	}

	GlobalConfig = &cfg
	return &cfg, nil
}

// FindUser finds a user by username
func (c *Config) FindUser(username string) *User {
	for i := range c.Users {
		if c.Users[i].Username == username {
			return &c.Users[i]
		}
	}
	return nil
}

// PollInterval returns the upload poll interval as a duration.
func (c *UploadConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

// ToastTTL returns the toast display duration.
func (c *NotifyConfig) ToastTTL() time.Duration {
	return time.Duration(c.ToastTTLSeconds) * time.Second
}

// WelcomeDelay returns the automatic welcome-step advance delay.
func (c *WizardConfig) WelcomeDelay() time.Duration {
	return time.Duration(c.WelcomeDelayMillis) * time.Millisecond
}
