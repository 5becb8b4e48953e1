// Package config provides Viper-based configuration loading for the TAC
// importer.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ImportConfig holds the reconciliation and command settings.
type ImportConfig struct {
	// CommandPrefix is the word after "!" that addresses this importer.
	CommandPrefix string `mapstructure:"command_prefix"`
	// Speaker is the name replies are sent as.
	Speaker string `mapstructure:"speaker"`
	// WhisperTo is the recipient of every reply.
	WhisperTo string `mapstructure:"whisper_to"`
	// SceneMode is "reconcile" (repopulate existing pages) or "recreate".
	SceneMode string `mapstructure:"scene_mode"`
	// SourceCanvasSize is the TAC canvas edge length in source units.
	SourceCanvasSize float64 `mapstructure:"source_canvas_size"`
	// CellPixels is the pixel width of one destination grid cell.
	CellPixels float64 `mapstructure:"cell_pixels"`
	// PageSize is the destination page edge length in grid cells.
	PageSize float64 `mapstructure:"page_size"`
	// LightRadiusRatio converts destination pixels into light-radius units.
	LightRadiusRatio float64 `mapstructure:"light_radius_ratio"`
	// LightMarkerImage is the image used for light-source marker graphics;
	// empty selects a transparent pixel.
	LightMarkerImage string `mapstructure:"light_marker_image"`
}

// StoreConfig selects the world-model backend.
type StoreConfig struct {
	// Driver is "memory" or "postgres".
	Driver string `mapstructure:"driver"`
	// SnapshotPath is the YAML file the memory driver loads and saves; empty
	// keeps the world in memory only.
	SnapshotPath string `mapstructure:"snapshot_path"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// DSN returns the PostgreSQL connection string.
//
// Precondition: Host, Port, User, and Name must be non-empty.
// Postcondition: Returns a valid PostgreSQL DSN string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// TelnetConfig holds the chat transport listener settings.
type TelnetConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	// ReadTimeout is the per-read timeout for chat connections.
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	// WriteTimeout is the per-write timeout for chat connections.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// Addr returns the "host:port" listen address.
func (t TelnetConfig) Addr() string {
	return fmt.Sprintf("%s:%d", t.Host, t.Port)
}

// HealthConfig holds the gRPC health endpoint settings.
type HealthConfig struct {
	GRPCHost string `mapstructure:"grpc_host"`
	GRPCPort int    `mapstructure:"grpc_port"`
	// CheckInterval is how often the store is probed.
	CheckInterval time.Duration `mapstructure:"check_interval"`
}

// Addr returns the "host:port" gRPC address.
func (h HealthConfig) Addr() string {
	return fmt.Sprintf("%s:%d", h.GRPCHost, h.GRPCPort)
}

// ScriptingConfig holds Lua import-hook settings.
type ScriptingConfig struct {
	// HookDir is a directory of *.lua hook scripts; empty disables hooks.
	HookDir string `mapstructure:"hook_dir"`
	// InstructionLimit caps Lua opcodes per hook call; 0 uses the default.
	InstructionLimit int `mapstructure:"instruction_limit"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// Config is the top-level application configuration.
type Config struct {
	Import    ImportConfig    `mapstructure:"import"`
	Store     StoreConfig     `mapstructure:"store"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Telnet    TelnetConfig    `mapstructure:"telnet"`
	Health    HealthConfig    `mapstructure:"health"`
	Scripting ScriptingConfig `mapstructure:"scripting"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// Validate checks all configuration invariants. The database section is only
// checked when the postgres store driver is selected.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	if err := validateImport(c.Import); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateStore(c.Store); err != nil {
		errs = append(errs, err.Error())
	}
	if c.Store.Driver == "postgres" {
		if err := validateDatabase(c.Database); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if err := validateTelnet(c.Telnet); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateHealth(c.Health); err != nil {
		errs = append(errs, err.Error())
	}
	if c.Scripting.InstructionLimit < 0 {
		errs = append(errs, fmt.Sprintf("scripting.instruction_limit must be >= 0, got %d", c.Scripting.InstructionLimit))
	}
	if err := validateLogging(c.Logging); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateImport(i ImportConfig) error {
	var errs []string
	if i.CommandPrefix == "" || strings.ContainsAny(i.CommandPrefix, " \t!") {
		errs = append(errs, fmt.Sprintf("import.command_prefix must be a single word without '!', got %q", i.CommandPrefix))
	}
	if i.Speaker == "" {
		errs = append(errs, "import.speaker must not be empty")
	}
	if i.WhisperTo == "" {
		errs = append(errs, "import.whisper_to must not be empty")
	}
	validModes := map[string]bool{"reconcile": true, "recreate": true}
	if !validModes[i.SceneMode] {
		errs = append(errs, fmt.Sprintf("import.scene_mode must be one of [reconcile, recreate], got %q", i.SceneMode))
	}
	positives := []struct {
		key string
		val float64
	}{
		{"source_canvas_size", i.SourceCanvasSize},
		{"cell_pixels", i.CellPixels},
		{"page_size", i.PageSize},
		{"light_radius_ratio", i.LightRadiusRatio},
	}
	for _, p := range positives {
		if p.val <= 0 {
			errs = append(errs, fmt.Sprintf("import.%s must be > 0, got %v", p.key, p.val))
		}
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func validateStore(s StoreConfig) error {
	validDrivers := map[string]bool{"memory": true, "postgres": true}
	if !validDrivers[s.Driver] {
		return fmt.Errorf("store.driver must be one of [memory, postgres], got %q", s.Driver)
	}
	return nil
}

func validateDatabase(d DatabaseConfig) error {
	var errs []string
	if d.Host == "" {
		errs = append(errs, "database.host must not be empty")
	}
	if d.Port < 1 || d.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", d.Port))
	}
	if d.User == "" {
		errs = append(errs, "database.user must not be empty")
	}
	if d.Name == "" {
		errs = append(errs, "database.name must not be empty")
	}
	validSSL := map[string]bool{"disable": true, "require": true, "verify-ca": true, "verify-full": true}
	if !validSSL[d.SSLMode] {
		errs = append(errs, fmt.Sprintf("database.sslmode must be one of [disable, require, verify-ca, verify-full], got %q", d.SSLMode))
	}
	if d.MaxConns < 1 {
		errs = append(errs, fmt.Sprintf("database.max_conns must be >= 1, got %d", d.MaxConns))
	}
	if d.MinConns < 0 {
		errs = append(errs, fmt.Sprintf("database.min_conns must be >= 0, got %d", d.MinConns))
	}
	if d.MinConns > d.MaxConns {
		errs = append(errs, "database.min_conns must not exceed database.max_conns")
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func validateTelnet(t TelnetConfig) error {
	var errs []string
	if t.Port < 0 || t.Port > 65535 {
		errs = append(errs, fmt.Sprintf("telnet.port must be 0-65535, got %d", t.Port))
	}
	if t.ReadTimeout < 0 {
		errs = append(errs, "telnet.read_timeout must not be negative")
	}
	if t.WriteTimeout < 0 {
		errs = append(errs, "telnet.write_timeout must not be negative")
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func validateHealth(h HealthConfig) error {
	var errs []string
	if h.GRPCHost == "" {
		errs = append(errs, "health.grpc_host must not be empty")
	}
	if h.GRPCPort < 0 || h.GRPCPort > 65535 {
		errs = append(errs, fmt.Sprintf("health.grpc_port must be 0-65535, got %d", h.GRPCPort))
	}
	if h.CheckInterval <= 0 {
		errs = append(errs, "health.check_interval must be positive")
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

// Load reads configuration from the given file path, applies environment
// variable overrides, and validates the result. An empty path uses defaults
// and environment variables only.
//
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := viper.New()

	// Environment variable overrides with TAC_ prefix
	v.SetEnvPrefix("TAC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
	}

	return LoadFromViper(v)
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("import.command_prefix", "tac")
	v.SetDefault("import.speaker", "tac")
	v.SetDefault("import.whisper_to", "gm")
	v.SetDefault("import.scene_mode", "reconcile")
	v.SetDefault("import.source_canvas_size", 1536.0)
	v.SetDefault("import.cell_pixels", 70.0)
	v.SetDefault("import.page_size", 21.94)
	v.SetDefault("import.light_radius_ratio", 14.0)
	v.SetDefault("import.light_marker_image", "")

	v.SetDefault("store.driver", "memory")
	v.SetDefault("store.snapshot_path", "")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "tac")
	v.SetDefault("database.password", "tac")
	v.SetDefault("database.name", "tac")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", "1h")

	v.SetDefault("telnet.host", "0.0.0.0")
	v.SetDefault("telnet.port", 4100)
	v.SetDefault("telnet.read_timeout", "30m")
	v.SetDefault("telnet.write_timeout", "30s")

	v.SetDefault("health.grpc_host", "127.0.0.1")
	v.SetDefault("health.grpc_port", 50151)
	v.SetDefault("health.check_interval", "30s")

	v.SetDefault("scripting.hook_dir", "")
	v.SetDefault("scripting.instruction_limit", 0)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}
