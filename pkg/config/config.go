/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/ssargent/bencodec/pkg/bencode"
)

// Config represents the bencodec configuration
type Config struct {
	DataDir  string   `yaml:"data_dir"`
	Port     int      `yaml:"port"`
	Bind     string   `yaml:"bind"`
	Security Security `yaml:"security"`
	Server   Server   `yaml:"server"`
	Codec    Codec    `yaml:"codec"`
	Logging  Logging  `yaml:"logging"`
}

// Security contains security-related configuration
type Security struct {
	APIKey string `yaml:"api_key"`
}

// Server contains HTTP service limits
type Server struct {
	MaxBodyBytes int64 `yaml:"max_body_bytes"`
}

// Codec contains decoder policies applied to untrusted input
type Codec struct {
	IntBits            int    `yaml:"int_bits"`
	DuplicateKeys      string `yaml:"duplicate_keys"`
	RejectLeadingZeros bool   `yaml:"reject_leading_zeros"`
	RejectNegativeZero bool   `yaml:"reject_negative_zero"`
	RejectUnsortedKeys bool   `yaml:"reject_unsorted_keys"`
	MaxDepth           int    `yaml:"max_depth"`
	MaxStringLength    int64  `yaml:"max_string_length"`
}

// Logging contains logging configuration
type Logging struct {
	Level   string `yaml:"level"`
	Format  string `yaml:"format"`
	NoColor bool   `yaml:"no_color"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		DataDir: "./data",
		Port:    8080,
		Bind:    "127.0.0.1",
		Security: Security{
			APIKey: "auto",
		},
		Server: Server{
			MaxBodyBytes: 8 * 1024 * 1024,
		},
		Codec: Codec{
			IntBits:       64,
			DuplicateKeys: "overwrite",
			MaxDepth:      512,
		},
		Logging: Logging{
			Level:  "info",
			Format: "console",
		},
	}
}

// Validate checks that the configuration values are usable
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	switch c.Codec.IntBits {
	case 8, 16, 32, 64:
	default:
		return fmt.Errorf("invalid codec.int_bits: %d (want 8, 16, 32 or 64)", c.Codec.IntBits)
	}
	if _, err := bencode.ParseDuplicatePolicy(c.Codec.DuplicateKeys); err != nil {
		return fmt.Errorf("invalid codec.duplicate_keys: %w", err)
	}
	if c.Codec.MaxDepth < 0 {
		return fmt.Errorf("invalid codec.max_depth: %d", c.Codec.MaxDepth)
	}
	if c.Codec.MaxStringLength < 0 {
		return fmt.Errorf("invalid codec.max_string_length: %d", c.Codec.MaxStringLength)
	}
	if c.Server.MaxBodyBytes < 0 {
		return fmt.Errorf("invalid server.max_body_bytes: %d", c.Server.MaxBodyBytes)
	}
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("invalid logging.format: %q", c.Logging.Format)
	}
	return nil
}

// DecoderOptions converts the codec section into decoder options
func (c *Config) DecoderOptions() []bencode.Option {
	policy, err := bencode.ParseDuplicatePolicy(c.Codec.DuplicateKeys)
	if err != nil {
		policy = bencode.DuplicateOverwrite
	}
	return []bencode.Option{
		bencode.WithIntBits(c.Codec.IntBits),
		bencode.WithDuplicateKeys(policy),
		bencode.WithRejectLeadingZeros(c.Codec.RejectLeadingZeros),
		bencode.WithRejectNegativeZero(c.Codec.RejectNegativeZero),
		bencode.WithRejectUnsortedKeys(c.Codec.RejectUnsortedKeys),
		bencode.WithMaxDepth(c.Codec.MaxDepth),
		bencode.WithMaxStringLength(c.Codec.MaxStringLength),
	}
}

// LoadConfig loads configuration from the specified path
func LoadConfig(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", configPath)
	}

	// Validate path to prevent directory traversal
	if !filepath.IsAbs(configPath) {
		absPath, err := filepath.Abs(configPath)
		if err != nil {
			return nil, fmt.Errorf("invalid config path: %w", err)
		}
		configPath = absPath
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Fields missing from the file keep their defaults
	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
	}

	return config, nil
}

// SaveConfig saves the configuration to the specified path with secure permissions
func SaveConfig(config *Config, configPath string) error {
	// Ensure config directory exists
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Write with secure permissions (0600)
	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GenerateSecureKey generates a cryptographically secure random key
func GenerateSecureKey(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate secure key: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

// BootstrapConfig creates a new configuration with a generated API key and saves it
func BootstrapConfig(configPath string, dataDir string) (*Config, error) {
	config := DefaultConfig()
	if dataDir != "" {
		config.DataDir = dataDir
	}

	apiKey, err := GenerateSecureKey(32) // 256 bits
	if err != nil {
		return nil, fmt.Errorf("failed to generate API key: %w", err)
	}
	config.Security.APIKey = apiKey

	if err := SaveConfig(config, configPath); err != nil {
		return nil, fmt.Errorf("failed to save bootstrap config: %w", err)
	}

	return config, nil
}

// GetDefaultConfigPath returns the default configuration path for the current platform
func GetDefaultConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./bencodec.yaml"
	}

	// For Linux/macOS, use ~/.config/bencodec/config.yaml
	configDir := filepath.Join(homeDir, ".config", "bencodec")
	return filepath.Join(configDir, "config.yaml")
}

// ConfigExists checks if a configuration file exists
func ConfigExists(configPath string) bool {
	_, err := os.Stat(configPath)
	return !os.IsNotExist(err)
}
