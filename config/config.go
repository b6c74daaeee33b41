// Package config loads the YAML configuration for trust-pool assembly and
// logging, and wires the configured sources into truststore providers.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/georgepadayatti/gopki/truststore"
)

// Common errors
var (
	ErrConfigurationError   = errors.New("configuration error")
	ErrMissingRequiredField = errors.New("missing required field")
)

// ConfigError represents a configuration error with field context.
type ConfigError struct {
	Field   string
	Message string
	Err     error
}

func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("config error in '%s': %s", e.Field, e.Message)
	}
	return fmt.Sprintf("config error: %s", e.Message)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a new ConfigError.
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{Field: field, Message: message}
}

// KeystoreConfig points at a PKCS#12 trust-store file.
type KeystoreConfig struct {
	// Path is the keystore file location.
	Path string `yaml:"path" json:"path"`

	// Passphrase decrypts the keystore.
	Passphrase string `yaml:"passphrase" json:"passphrase,omitempty"`
}

// Validate validates the keystore configuration.
func (c *KeystoreConfig) Validate() error {
	if c.Path == "" {
		return NewConfigError("path", "keystore path is required")
	}
	return nil
}

// TrustConfig describes where trust anchors come from.
type TrustConfig struct {
	// Directories are filesystem trees scanned for .der/.cer/.crt/.pem files.
	Directories []string `yaml:"directories" json:"directories,omitempty"`

	// ParentSearchDepth bounds the ancestor probe for directories that do
	// not resolve from the working directory.
	ParentSearchDepth int `yaml:"parent-search-depth" json:"parent_search_depth,omitempty"`

	// Keystore is an optional PKCS#12 trust store.
	Keystore *KeystoreConfig `yaml:"keystore" json:"keystore,omitempty"`

	// TrustList is an optional path to an XML trusted list.
	TrustList string `yaml:"trust-list" json:"trust_list,omitempty"`
}

// Validate validates the trust configuration.
func (c *TrustConfig) Validate() error {
	if c.Keystore != nil {
		if err := c.Keystore.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Providers builds the truststore providers for the configured keystore
// and trusted-list sources.
func (c *TrustConfig) Providers() []truststore.Provider {
	var providers []truststore.Provider
	if c.Keystore != nil {
		providers = append(providers, truststore.NewKeystoreProvider(c.Keystore.Path, c.Keystore.Passphrase))
	}
	if c.TrustList != "" {
		providers = append(providers, truststore.NewTrustListProvider(c.TrustList))
	}
	return providers
}

// NewLoader builds a pool loader from the trust configuration.
func (c *TrustConfig) NewLoader(logger *logrus.Logger) *truststore.Loader {
	return &truststore.Loader{
		Dirs:           c.Directories,
		MaxParentDepth: c.ParentSearchDepth,
		Providers:      c.Providers(),
		Logger:         logger,
	}
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the log level (debug, info, warn, error).
	Level string `yaml:"level" json:"level,omitempty"`

	// Format is the log format (text, json).
	Format string `yaml:"format" json:"format,omitempty"`
}

// SetDefaults sets default values for logging configuration.
func (c *LoggingConfig) SetDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = "text"
	}
}

// NewLogger builds a logrus logger from the logging configuration.
func (c *LoggingConfig) NewLogger() *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(c.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if c.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return logger
}

// AppConfig contains the complete application configuration.
type AppConfig struct {
	// Trust contains trust-pool configuration.
	Trust *TrustConfig `yaml:"trust" json:"trust,omitempty"`

	// Logging contains logging configuration.
	Logging *LoggingConfig `yaml:"logging" json:"logging,omitempty"`
}

// LoadConfig loads the application configuration from a YAML file.
func LoadConfig(filename string) (*AppConfig, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig parses configuration from YAML data.
func ParseConfig(data []byte) (*AppConfig, error) {
	var config AppConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if config.Trust == nil {
		config.Trust = &TrustConfig{}
	}
	if err := config.Trust.Validate(); err != nil {
		return nil, err
	}

	if config.Logging == nil {
		config.Logging = &LoggingConfig{}
	}
	config.Logging.SetDefaults()

	return &config, nil
}
