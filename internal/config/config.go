// Package config handles configuration management using Viper
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Bridge    BridgeConfig    `mapstructure:"bridge"`
	Transport TransportConfig `mapstructure:"transport"`
	Input     InputConfig     `mapstructure:"input"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// BridgeConfig controls display bridge behaviour
type BridgeConfig struct {
	DisplayLimit            int    `mapstructure:"display_limit"`
	RefreshIntervalMs       int    `mapstructure:"refresh_interval_ms"`
	HiddenRefreshIntervalMs int    `mapstructure:"hidden_refresh_interval_ms"`
	SubsegmentTimeoutMs     int    `mapstructure:"subsegment_timeout_ms"`
	InstanceName            string `mapstructure:"instance_name"`
	Accelerated             bool   `mapstructure:"accelerated"`
}

// TransportConfig locates the compositor connection
type TransportConfig struct {
	ConnPath  string `mapstructure:"connpath"`   // Unix socket of the compositor
	BufferDir string `mapstructure:"buffer_dir"` // Where mapped buffer files live
}

// InputConfig selects the input injection backend
type InputConfig struct {
	Backend    string `mapstructure:"backend"` // "uinput" or "log"
	UinputPath string `mapstructure:"uinput_path"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level string `mapstructure:"level"` // Overrides VMSHM_LOG_LEVEL when set
}

// RefreshInterval is the display refresh cadence while visible
func (b BridgeConfig) RefreshInterval() time.Duration {
	return time.Duration(b.RefreshIntervalMs) * time.Millisecond
}

// HiddenRefreshInterval is the display refresh cadence while invisible
func (b BridgeConfig) HiddenRefreshInterval() time.Duration {
	return time.Duration(b.HiddenRefreshIntervalMs) * time.Millisecond
}

// SubsegmentTimeout bounds each subsegment negotiation
func (b BridgeConfig) SubsegmentTimeout() time.Duration {
	return time.Duration(b.SubsegmentTimeoutMs) * time.Millisecond
}

var (
	// DefaultConfig provides sensible defaults
	DefaultConfig = Config{
		Bridge: BridgeConfig{
			DisplayLimit:            4,
			RefreshIntervalMs:       30,
			HiddenRefreshIntervalMs: 500,
			SubsegmentTimeoutMs:     250,
			InstanceName:            "",
			Accelerated:             false,
		},
		Transport: TransportConfig{
			ConnPath:  "",
			BufferDir: "/dev/shm",
		},
		Input: InputConfig{
			Backend:    "uinput",
			UinputPath: "/dev/uinput",
		},
		Logging: LoggingConfig{
			Level: "",
		},
	}

	// Global config instance
	cfg *Config

	// Override config path if set
	configPathOverride string
)

// SetConfigPath allows overriding the config path
func SetConfigPath(path string) {
	configPathOverride = path
}

// Init initializes the configuration system
func Init() error {
	viper.SetConfigName("vmshm")
	viper.SetConfigType("toml")

	pending := false
	if configPathOverride != "" {
		viper.SetConfigFile(configPathOverride)
		// an explicit file that does not exist yet is created by Save
		_, err := os.Stat(configPathOverride)
		pending = os.IsNotExist(err)
	} else {
		viper.AddConfigPath("/etc/vmshm")
		if home := os.Getenv("HOME"); home != "" {
			viper.AddConfigPath(filepath.Join(home, ".config", "vmshm"))
		}
		viper.AddConfigPath(".")
	}

	viper.SetEnvPrefix("VMSHM")
	_ = viper.BindEnv("transport.connpath", "VMSHM_CONNPATH")

	setDefaults()

	if !pending {
		if err := viper.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return fmt.Errorf("error reading config file: %w", err)
			}
			// Config file not found, use defaults
		}
	}

	return load()
}

// Reload re-reads the values viper currently holds, e.g. after a watched
// config file changed
func Reload() error {
	return load()
}

func load() error {
	c := &Config{}
	if err := viper.Unmarshal(c); err != nil {
		return fmt.Errorf("unable to unmarshal config: %w", err)
	}
	if c.Bridge.InstanceName == "" {
		c.Bridge.InstanceName = instanceName()
	}
	if c.Bridge.DisplayLimit < 1 {
		c.Bridge.DisplayLimit = DefaultConfig.Bridge.DisplayLimit
	}
	cfg = c
	return nil
}

func setDefaults() {
	viper.SetDefault("bridge.display_limit", DefaultConfig.Bridge.DisplayLimit)
	viper.SetDefault("bridge.refresh_interval_ms", DefaultConfig.Bridge.RefreshIntervalMs)
	viper.SetDefault("bridge.hidden_refresh_interval_ms", DefaultConfig.Bridge.HiddenRefreshIntervalMs)
	viper.SetDefault("bridge.subsegment_timeout_ms", DefaultConfig.Bridge.SubsegmentTimeoutMs)
	viper.SetDefault("bridge.instance_name", DefaultConfig.Bridge.InstanceName)
	viper.SetDefault("bridge.accelerated", DefaultConfig.Bridge.Accelerated)

	viper.SetDefault("transport.connpath", DefaultConfig.Transport.ConnPath)
	viper.SetDefault("transport.buffer_dir", DefaultConfig.Transport.BufferDir)

	viper.SetDefault("input.backend", DefaultConfig.Input.Backend)
	viper.SetDefault("input.uinput_path", DefaultConfig.Input.UinputPath)

	viper.SetDefault("logging.level", DefaultConfig.Logging.Level)
}

// Get returns the current configuration
func Get() *Config {
	if cfg == nil {
		// Return defaults if not initialized
		return &DefaultConfig
	}
	return cfg
}

// Set sets the current configuration (for testing)
func Set(c *Config) {
	cfg = c
}

// Save writes the current settings to GetConfigPath
func Save() error {
	configPath := GetConfigPath()

	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		if os.IsPermission(err) && strings.HasPrefix(configPath, "/etc/") {
			return fmt.Errorf("failed to create config directory %s: permission denied. Try running with sudo", dir)
		}
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := viper.WriteConfigAs(configPath); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// GetConfigPath returns the path to the config file
func GetConfigPath() string {
	if configPathOverride != "" {
		return configPathOverride
	}

	if viper.ConfigFileUsed() != "" {
		return viper.ConfigFileUsed()
	}

	// root runs use the system config
	if os.Getuid() == 0 {
		return "/etc/vmshm/vmshm.toml"
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "/etc/vmshm/vmshm.toml"
	}

	return filepath.Join(home, ".config", "vmshm", "vmshm.toml")
}

// ConfigFileUsed returns the path of the loaded config file, if any
func ConfigFileUsed() string {
	return viper.ConfigFileUsed()
}

// generated names persist for the life of the process
var generatedName string

func instanceName() string {
	if generatedName == "" {
		generatedName = "vm-" + uuid.NewString()[:8]
	}
	return generatedName
}
