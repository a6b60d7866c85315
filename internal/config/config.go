package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment override, e.g.
// CMDEXEC_EXECUTOR_MAX_CONCURRENT
const EnvPrefix = "CMDEXEC"

// Config represents the complete cmdexec configuration
type Config struct {
	Executor ExecutorConfig `mapstructure:"executor" yaml:"executor"`
	Auth     AuthConfig     `mapstructure:"auth" yaml:"auth"`
	Logging  LoggingConfig  `mapstructure:"logging" yaml:"logging"`
}

// ExecutorConfig bounds async execution
type ExecutorConfig struct {
	MaxConcurrent int           `mapstructure:"max_concurrent" yaml:"max_concurrent"`
	PollInterval  time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	TaskTimeout   time.Duration `mapstructure:"task_timeout" yaml:"task_timeout"` // 0 = only the hard ceiling
}

// AuthConfig configures the authentication gate
type AuthConfig struct {
	Protected      []string `mapstructure:"protected" yaml:"protected"`
	Option         string   `mapstructure:"option" yaml:"option"`
	EnvVar         string   `mapstructure:"env" yaml:"env"`
	CredentialFile string   `mapstructure:"credential_file" yaml:"credential_file"`
	Keys           []string `mapstructure:"keys" yaml:"keys"` // bcrypt hashes; empty accepts any credential
}

// LoggingConfig configures the structured logger
type LoggingConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
	JSON  bool   `mapstructure:"json" yaml:"json"`
	File  string `mapstructure:"file" yaml:"file"`
}

// DefaultDir returns $HOME/.cmdexec, or .cmdexec if the home directory is unknown
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".cmdexec"
	}
	return filepath.Join(home, ".cmdexec")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("executor.max_concurrent", 10)
	v.SetDefault("executor.poll_interval", 10*time.Millisecond)
	v.SetDefault("executor.task_timeout", time.Duration(0))

	v.SetDefault("auth.protected", []string{"secret", "exec"})
	v.SetDefault("auth.option", "auth-token")
	v.SetDefault("auth.env", "CMDEXEC_AUTH_TOKEN")
	v.SetDefault("auth.credential_file", filepath.Join(DefaultDir(), "credentials"))
	v.SetDefault("auth.keys", []string{})

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.json", false)
	v.SetDefault("logging.file", "")
}

// Load reads configuration from path, or from $HOME/.cmdexec/config.yaml when
// path is empty. A missing default file is not an error; a missing explicit
// file is. Environment variables override file values.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(DefaultDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration for values the executor cannot use
func (c *Config) Validate() error {
	if c.Executor.MaxConcurrent < 1 {
		return fmt.Errorf("executor.max_concurrent must be at least 1, got %d", c.Executor.MaxConcurrent)
	}
	if c.Executor.PollInterval <= 0 {
		return fmt.Errorf("executor.poll_interval must be positive, got %s", c.Executor.PollInterval)
	}
	if c.Executor.TaskTimeout < 0 {
		return fmt.Errorf("executor.task_timeout must not be negative, got %s", c.Executor.TaskTimeout)
	}
	if c.Auth.Option == "" {
		return fmt.Errorf("auth.option must not be empty")
	}
	return nil
}

// YAML renders the configuration for display
func (c *Config) YAML() ([]byte, error) {
	view := struct {
		Executor struct {
			MaxConcurrent int    `yaml:"max_concurrent"`
			PollInterval  string `yaml:"poll_interval"`
			TaskTimeout   string `yaml:"task_timeout"`
		} `yaml:"executor"`
		Auth    AuthConfig    `yaml:"auth"`
		Logging LoggingConfig `yaml:"logging"`
	}{Auth: c.Auth, Logging: c.Logging}

	view.Executor.MaxConcurrent = c.Executor.MaxConcurrent
	view.Executor.PollInterval = c.Executor.PollInterval.String()
	view.Executor.TaskTimeout = c.Executor.TaskTimeout.String()

	data, err := yaml.Marshal(view)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return data, nil
}
