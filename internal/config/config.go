// Package config loads the server configuration from defaults, an optional
// YAML file, a .env file and PORTFOLIO_-prefixed environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/spf13/viper"

	"github.com/Zachkp/zach-portfolio/internal/countup"
	"github.com/Zachkp/zach-portfolio/internal/greeting"
	"github.com/Zachkp/zach-portfolio/internal/visibility"
)

// EnvPrefix prefixes every environment override, e.g. PORTFOLIO_SERVER_PORT.
const EnvPrefix = "PORTFOLIO"

// Config is the full server configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Admin      AdminConfig      `mapstructure:"admin"`
	Preloader  PreloaderConfig  `mapstructure:"preloader"`
	CountUp    CountUpConfig    `mapstructure:"countup"`
	Visibility VisibilityConfig `mapstructure:"visibility"`
	Session    SessionConfig    `mapstructure:"session"`
	Logging    LoggingConfig    `mapstructure:"logging"`

	// ContentPath points at a YAML file overriding the built-in page content.
	ContentPath string `mapstructure:"content_path"`
}

// ServerConfig holds HTTP settings.
type ServerConfig struct {
	Port int `mapstructure:"port"`

	// Mode is the gin mode: debug, release or test.
	Mode string `mapstructure:"mode"`

	// StaticDir is served under /static. Empty disables it.
	StaticDir string `mapstructure:"static_dir"`
}

// DatabaseConfig locates the sqlite file.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// AdminConfig holds the admin login.
type AdminConfig struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// PreloaderConfig times the greeting screen.
type PreloaderConfig struct {
	StepInterval time.Duration `mapstructure:"step_interval"`
	// TotalDuration of zero derives the hide time from the greeting count.
	TotalDuration time.Duration `mapstructure:"total_duration"`
	FadeOut       time.Duration `mapstructure:"fade_out"`
	Tail          time.Duration `mapstructure:"tail"`
}

// CountUpConfig times the age animation.
type CountUpConfig struct {
	Duration      time.Duration `mapstructure:"duration"`
	FrameInterval time.Duration `mapstructure:"frame_interval"`
}

// VisibilityConfig selects the region that starts the count-up.
type VisibilityConfig struct {
	Threshold float64 `mapstructure:"threshold"`
	Region    string  `mapstructure:"region"`
}

// SessionConfig bounds page sessions.
type SessionConfig struct {
	TTL           time.Duration `mapstructure:"ttl"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
	EventBuffer   int           `mapstructure:"event_buffer"`
}

// LoggingConfig selects log level and format.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Greeting returns the sequencer configuration for the given entries.
func (p PreloaderConfig) Greeting(entries []greeting.Entry) greeting.Config {
	return greeting.Config{
		Entries:       entries,
		StepInterval:  p.StepInterval,
		TotalDuration: p.TotalDuration,
		FadeOut:       p.FadeOut,
		Tail:          p.Tail,
	}
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.static_dir", "static")
	v.SetDefault("database.path", "portfolio.db")
	v.SetDefault("admin.username", "admin")
	v.SetDefault("admin.password", "")
	v.SetDefault("preloader.step_interval", greeting.DefaultStepInterval)
	v.SetDefault("preloader.total_duration", time.Duration(0))
	v.SetDefault("preloader.fade_out", greeting.DefaultFadeOut)
	v.SetDefault("preloader.tail", greeting.DefaultTail)
	v.SetDefault("countup.duration", time.Second)
	v.SetDefault("countup.frame_interval", countup.DefaultFrameInterval)
	v.SetDefault("visibility.threshold", visibility.DefaultThreshold)
	v.SetDefault("visibility.region", "about")
	v.SetDefault("session.ttl", 30*time.Minute)
	v.SetDefault("session.sweep_interval", time.Minute)
	v.SetDefault("session.event_buffer", 256)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("content_path", "")
}

// Load builds the configuration. path may be empty, in which case
// ./portfolio.yaml is used when present.
func Load(path string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Bare variables the server has always honoured.
	_ = v.BindEnv("server.port", EnvPrefix+"_SERVER_PORT", "PORT")
	_ = v.BindEnv("admin.username", EnvPrefix+"_ADMIN_USERNAME", "ADMIN_USERNAME")
	_ = v.BindEnv("admin.password", EnvPrefix+"_ADMIN_PASSWORD", "ADMIN_PASSWORD")
	_ = v.BindEnv("server.mode", EnvPrefix+"_SERVER_MODE", "GIN_MODE")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("portfolio")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid config")

// Validate rejects values no component can run with.
func (c *Config) Validate() error {
	switch {
	case c.Server.Port <= 0 || c.Server.Port > 65535:
		return fmt.Errorf("%w: server.port %d out of range", ErrInvalid, c.Server.Port)
	case c.Preloader.StepInterval < 0:
		return fmt.Errorf("%w: preloader.step_interval must not be negative", ErrInvalid)
	case c.Preloader.FadeOut < 0:
		return fmt.Errorf("%w: preloader.fade_out must not be negative", ErrInvalid)
	case c.CountUp.Duration <= 0:
		return fmt.Errorf("%w: countup.duration must be positive", ErrInvalid)
	case c.CountUp.FrameInterval <= 0:
		return fmt.Errorf("%w: countup.frame_interval must be positive", ErrInvalid)
	case c.Visibility.Threshold <= 0 || c.Visibility.Threshold > 1:
		return fmt.Errorf("%w: visibility.threshold must be in (0,1]", ErrInvalid)
	case c.Session.TTL <= 0:
		return fmt.Errorf("%w: session.ttl must be positive", ErrInvalid)
	case c.Session.EventBuffer <= 0:
		return fmt.Errorf("%w: session.event_buffer must be positive", ErrInvalid)
	}
	return nil
}
