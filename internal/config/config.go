package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// current holds the application configuration. It is swapped whole when the
// config file changes, so readers never see a half-applied reload.
var current atomic.Pointer[Config]

var (
	hooksMu sync.Mutex
	hooks   []func(*Config)
)

// Current returns the active configuration, or nil before Init or Set.
func Current() *Config {
	return current.Load()
}

// Set replaces the active configuration without running reload hooks.
func Set(c *Config) {
	current.Store(c)
}

// OnReload registers fn to run after a changed config file has been applied.
func OnReload(fn func(*Config)) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	hooks = append(hooks, fn)
}

// Config struct is the top-level configuration structure.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	API         APIConfig         `mapstructure:"api"`
	Tracker     TrackerConfig     `mapstructure:"tracker"`
	Calibration CalibrationConfig `mapstructure:"calibration"`
	Session     SessionConfig     `mapstructure:"session"`
	Results     ResultsConfig     `mapstructure:"results"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

// ServerConfig holds settings for the participant-facing HTTP server.
type ServerConfig struct {
	Port          string `mapstructure:"port"`
	SessionSecret string `mapstructure:"session_secret"`
	SecureCookies bool   `mapstructure:"secure_cookies"`
}

// APIConfig points at the external research server that stores samples and task logs.
type APIConfig struct {
	BaseURL string `mapstructure:"base_url"`
	// Timeout of zero means uploads and fetches never time out.
	Timeout time.Duration `mapstructure:"timeout"`
}

// TrackerConfig is handed to the in-page eye tracker through Configure.
type TrackerConfig struct {
	Regression             string `mapstructure:"regression"`
	Backend                string `mapstructure:"backend"`
	SaveDataAcrossSessions bool   `mapstructure:"save_data_across_sessions"`
	TimeZone               string `mapstructure:"time_zone"`
	ScriptURL              string `mapstructure:"script_url"`
}

// CalibrationConfig locates the optional calibration layout file.
type CalibrationConfig struct {
	LayoutFile string `mapstructure:"layout_file"`
}

// SessionConfig controls how long idle participant sessions are kept.
type SessionConfig struct {
	IdleTimeout   time.Duration `mapstructure:"idle_timeout"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

// ResultsConfig holds settings for the results route and its exports.
type ResultsConfig struct {
	Route          string `mapstructure:"route"`
	MaxVideoFrames int    `mapstructure:"max_video_frames"`
	FrameDelayMs   int    `mapstructure:"frame_delay_ms"`
	AssetsHost     string `mapstructure:"assets_host"`
}

// LoggingConfig holds settings for the logger.
type LoggingConfig struct {
	Directory  string `mapstructure:"directory"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// setDefaults sets the default values for the configuration.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "5050")
	v.SetDefault("server.session_secret", "change-me-in-production")
	v.SetDefault("server.secure_cookies", false)

	// Research server defaults
	v.SetDefault("api.base_url", "http://localhost:8000")
	v.SetDefault("api.timeout", 0)

	// Tracker defaults
	v.SetDefault("tracker.regression", "ridge")
	v.SetDefault("tracker.backend", "TFFacemesh")
	v.SetDefault("tracker.save_data_across_sessions", true)
	v.SetDefault("tracker.time_zone", "America/Argentina/Buenos_Aires")
	v.SetDefault("tracker.script_url", "https://webgazer.cs.brown.edu/webgazer.js")

	v.SetDefault("calibration.layout_file", "")

	v.SetDefault("session.idle_timeout", 2*time.Hour)
	v.SetDefault("session.sweep_interval", time.Minute)

	// Results defaults
	v.SetDefault("results.route", "/results")
	v.SetDefault("results.max_video_frames", 300)
	v.SetDefault("results.frame_delay_ms", 40)
	v.SetDefault("results.assets_host", "https://cdn.jsdelivr.net/npm/echarts@5.5.0/dist/")

	// Logging defaults
	v.SetDefault("logging.directory", "logs")
	v.SetDefault("logging.max_size", 10)   // 10 MB
	v.SetDefault("logging.max_backups", 3) // Keep 3 backups
	v.SetDefault("logging.max_age", 7)     // 7 days
	v.SetDefault("logging.compress", true) // Compress old logs
}

// Defaults returns a Config populated only with default values.
func Defaults() *Config {
	v := viper.New()
	setDefaults(v)
	var c Config
	// Defaults are all scalar, so decoding cannot fail.
	_ = v.Unmarshal(&c)
	return &c
}

// Init initializes the configuration with Viper.
func Init(projectRoot string, log *zap.Logger) error {
	v := viper.New()

	setDefaults(v)

	v.AddConfigPath(filepath.Join(projectRoot, "config"))
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// e.g. GAZE_API_BASE_URL
	v.SetEnvPrefix("GAZE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// It's okay if the file doesn't exist; defaults and env vars will be used.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	var conf Config
	if err := v.Unmarshal(&conf); err != nil {
		return fmt.Errorf("unable to decode config into struct: %w", err)
	}
	if err := conf.Validate(); err != nil {
		return err
	}
	Set(&conf)

	// A reload reaches the results page settings and the export limits, which
	// are read per request. The server, routes and sessions keep the values
	// they started with until restart.
	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		log.Info("Configuration file changed, reloading.", zap.String("file", e.Name))
		var next Config
		if err := v.Unmarshal(&next); err != nil {
			log.Error("Error reloading configuration", zap.Error(err))
			return
		}
		apply(&next, log)
	})

	log.Info("Configuration loaded successfully",
		zap.String("api_base_url", conf.API.BaseURL),
		zap.String("results_route", conf.Results.Route),
	)
	return nil
}

// apply validates a reloaded configuration, swaps it in and runs the hooks.
// An invalid file leaves the previous configuration active.
func apply(next *Config, log *zap.Logger) bool {
	if err := next.Validate(); err != nil {
		log.Error("Rejected reloaded configuration", zap.Error(err))
		return false
	}
	if prev := Current(); prev != nil && prev.Results.Route != next.Results.Route {
		log.Warn("results.route changed; the new route takes effect after a restart",
			zap.String("active", prev.Results.Route), zap.String("configured", next.Results.Route))
	}
	Set(next)

	hooksMu.Lock()
	fns := append(([]func(*Config))(nil), hooks...)
	hooksMu.Unlock()
	for _, fn := range fns {
		fn(next)
	}
	return true
}

// Validate checks the values that would otherwise fail late at request time.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url must be set")
	}
	if !strings.HasPrefix(c.Results.Route, "/") {
		return fmt.Errorf("results.route must be an absolute path, got %q", c.Results.Route)
	}
	if _, err := time.LoadLocation(c.Tracker.TimeZone); err != nil {
		return fmt.Errorf("tracker.time_zone: %w", err)
	}
	if c.Session.SweepInterval <= 0 || c.Session.IdleTimeout <= 0 {
		return fmt.Errorf("session.sweep_interval and session.idle_timeout must be positive")
	}
	if c.Results.MaxVideoFrames <= 0 {
		return fmt.Errorf("results.max_video_frames must be positive")
	}
	return nil
}
