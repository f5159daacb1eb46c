package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/blackwell-systems/camwatch/internal/logging"
	"github.com/spf13/viper"
)

// Config is the resolved camwatch configuration.
type Config struct {
	DataDir           string        `mapstructure:"data_dir"`
	Database          string        `mapstructure:"database"`
	SelfPackage       string        `mapstructure:"self_package"`
	DebounceWindow    time.Duration `mapstructure:"debounce_window"`
	PerDeviceDebounce bool          `mapstructure:"per_device_debounce"`
	LookbackWindow    time.Duration `mapstructure:"lookback_window"`
	QueryTimeout      time.Duration `mapstructure:"query_timeout"`
	OpsLog            string        `mapstructure:"ops_log"`
	LogSize           int           `mapstructure:"log_size"`

	Devices       DevicesConfig       `mapstructure:"devices"`
	Focus         FocusConfig         `mapstructure:"focus"`
	Notifications NotificationsConfig `mapstructure:"notifications"`
	Unlock        UnlockConfig        `mapstructure:"unlock"`
	Logging       LoggingConfig       `mapstructure:"logging"`

	// ConfigFile is the file that was read, empty when running on defaults.
	ConfigFile string `mapstructure:"-"`
}

// DevicesConfig selects the camera nodes to watch.
type DevicesConfig struct {
	Glob         string        `mapstructure:"glob"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

// FocusConfig controls foreground application sampling.
type FocusConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Command   string        `mapstructure:"command"`
	Interval  time.Duration `mapstructure:"interval"`
	Retention time.Duration `mapstructure:"retention"`
}

// NotificationsConfig controls desktop notifications.
type NotificationsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	AppName string `mapstructure:"app_name"`
}

// UnlockConfig controls the screen-unlock re-attribution trigger.
type UnlockConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// LoggingConfig mirrors logging.Config in string form.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DefaultDataDir returns ~/.camwatch.
func DefaultDataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(home, ".camwatch"), nil
}

func setDefaults(v *viper.Viper, dataDir string) {
	v.SetDefault("data_dir", dataDir)
	v.SetDefault("database", "")
	v.SetDefault("self_package", "camwatch")
	v.SetDefault("debounce_window", time.Second)
	v.SetDefault("per_device_debounce", false)
	v.SetDefault("lookback_window", 5*time.Second)
	v.SetDefault("query_timeout", 2*time.Second)
	v.SetDefault("ops_log", "")
	v.SetDefault("log_size", 1000)

	v.SetDefault("devices.glob", "/dev/video*")
	v.SetDefault("devices.poll_interval", 2*time.Second)

	v.SetDefault("focus.enabled", true)
	v.SetDefault("focus.command", "xdotool getactivewindow getwindowpid")
	v.SetDefault("focus.interval", time.Second)
	v.SetDefault("focus.retention", 10*time.Minute)

	v.SetDefault("notifications.enabled", true)
	v.SetDefault("notifications.app_name", "camwatch")

	v.SetDefault("unlock.enabled", true)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}

// Load reads configuration from path, or from config.toml in Dir() when
// path is empty. A missing default file is not an error; a missing explicit
// file is. CAMWATCH_* environment variables override file values.
func Load(path string) (*Config, error) {
	v := viper.New()

	dataDir, err := DefaultDataDir()
	if err != nil {
		return nil, err
	}
	setDefaults(v, dataDir)

	v.SetConfigType("toml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		if dir, err := Dir(); err == nil {
			v.AddConfigPath(dir)
		}
	}

	v.SetEnvPrefix("CAMWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.BindEnv("logging.level", "CAMWATCH_LOG_LEVEL"); err != nil {
		return nil, fmt.Errorf("failed to bind CAMWATCH_LOG_LEVEL: %w", err)
	}
	if err := v.BindEnv("logging.format", "CAMWATCH_LOG_FORMAT"); err != nil {
		return nil, fmt.Errorf("failed to bind CAMWATCH_LOG_FORMAT: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.ConfigFile = v.ConfigFileUsed()
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func (c *Config) normalize() {
	if c.Database == "" {
		c.Database = filepath.Join(c.DataDir, "camwatch.db")
	}
	if c.OpsLog == "" {
		c.OpsLog = filepath.Join(c.DataDir, "ops.log")
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	var errs []error
	if c.DataDir == "" {
		errs = append(errs, errors.New("data_dir must not be empty"))
	}
	if c.DebounceWindow <= 0 {
		errs = append(errs, fmt.Errorf("debounce_window must be positive (got %s)", c.DebounceWindow))
	}
	if c.LookbackWindow <= 0 {
		errs = append(errs, fmt.Errorf("lookback_window must be positive (got %s)", c.LookbackWindow))
	}
	if c.QueryTimeout <= 0 {
		errs = append(errs, fmt.Errorf("query_timeout must be positive (got %s)", c.QueryTimeout))
	}
	if c.LogSize < 0 {
		errs = append(errs, fmt.Errorf("log_size must not be negative (got %d)", c.LogSize))
	}
	if c.Devices.Glob == "" {
		errs = append(errs, errors.New("devices.glob must not be empty"))
	} else if _, err := filepath.Match(c.Devices.Glob, ""); err != nil {
		errs = append(errs, fmt.Errorf("devices.glob %q is invalid: %w", c.Devices.Glob, err))
	}
	if c.Devices.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("devices.poll_interval must be positive (got %s)", c.Devices.PollInterval))
	}
	if c.Focus.Enabled {
		if strings.TrimSpace(c.Focus.Command) == "" {
			errs = append(errs, errors.New("focus.command must not be empty when focus.enabled is set"))
		}
		if c.Focus.Interval <= 0 {
			errs = append(errs, fmt.Errorf("focus.interval must be positive (got %s)", c.Focus.Interval))
		}
		if c.Focus.Retention < c.LookbackWindow {
			errs = append(errs, fmt.Errorf("focus.retention (%s) must cover lookback_window (%s)", c.Focus.Retention, c.LookbackWindow))
		}
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, fmt.Errorf("logging.level: %w", err))
	}
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format must be console or json (got %q)", c.Logging.Format))
	}
	return errors.Join(errs...)
}

// EnsureDataDir creates the data directory.
func (c *Config) EnsureDataDir() error {
	if err := os.MkdirAll(c.DataDir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	return nil
}

// PIDFile returns the default daemon PID file path.
func (c *Config) PIDFile() string {
	return filepath.Join(c.DataDir, "watch.pid")
}

// LogFile returns the default daemon log file path.
func (c *Config) LogFile() string {
	return filepath.Join(c.DataDir, "watch.log")
}
