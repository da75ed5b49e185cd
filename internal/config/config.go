package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aaricantto/GraphFS/internal/exclude"
	"github.com/aaricantto/GraphFS/internal/types"
	"github.com/aaricantto/GraphFS/internal/utils"
)

// Environment variables read by ApplyEnv
const (
	EnvAppData  = "GRAPHFS_APPDATA"
	EnvLog      = "GRAPHFS_LOG"
	EnvRoot     = "GRAPHFS_ROOT"
	EnvExcludes = "GRAPHFS_EXCLUDES"
)

// dbFileName is the store file inside the app data directory
const dbFileName = "graphfs.duckdb"

// DefaultExcludes are applied to listings and watches unless overridden
var DefaultExcludes = []string{".git", "node_modules", "__pycache__", ".DS_Store"}

// DefaultConfig returns a default configuration
func DefaultConfig() types.Config {
	return types.Config{
		API: types.APIConfig{
			Host: "localhost",
			Port: 8087,
		},
		Watch: types.WatchConfig{
			RenameWindow:      types.Duration(250 * time.Millisecond),
			EventBuffer:       1024,
			IdentityCacheSize: 65536,
		},
		Store: types.StoreConfig{
			AppDataDir: DefaultAppDataDir(),
		},
		Logging: types.LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		DefaultExcludes: append([]string(nil), DefaultExcludes...),
	}
}

// DefaultAppDataDir returns the per-user data directory for GraphFS
func DefaultAppDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "GraphFS")
	}
	return filepath.Join(os.TempDir(), "GraphFS")
}

// Load returns the defaults when configPath is empty and the file's
// contents otherwise. Environment overrides are applied in both cases.
func Load(configPath string) (*types.Config, error) {
	var cfg *types.Config
	if configPath == "" {
		def := DefaultConfig()
		cfg = &def
	} else {
		var err error
		if cfg, err = LoadFromFile(configPath); err != nil {
			return nil, err
		}
	}
	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromFile loads configuration from a JSON file. Fields missing from
// the file keep their default values.
func LoadFromFile(configPath string) (*types.Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := finish(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyEnv overlays the GRAPHFS_* environment variables onto cfg
func ApplyEnv(cfg *types.Config) error {
	if v := os.Getenv(EnvAppData); v != "" {
		cfg.Store.AppDataDir = v
		cfg.Store.DBPath = ""
	}
	if v := os.Getenv(EnvLog); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv(EnvRoot); v != "" {
		cfg.StartupRoot = v
	}
	if v, ok := os.LookupEnv(EnvExcludes); ok {
		cfg.DefaultExcludes = exclude.Parse(v)
	}
	return finish(cfg)
}

// finish validates cfg and resolves derived paths
func finish(cfg *types.Config) error {
	if err := Validate(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	if cfg.Store.AppDataDir == "" {
		cfg.Store.AppDataDir = DefaultAppDataDir()
	}
	cfg.Store.AppDataDir = utils.Expand(cfg.Store.AppDataDir)
	if cfg.Store.DBPath == "" {
		cfg.Store.DBPath = filepath.Join(cfg.Store.AppDataDir, dbFileName)
	}
	if !filepath.IsAbs(cfg.Store.DBPath) {
		absPath, err := filepath.Abs(cfg.Store.DBPath)
		if err != nil {
			return fmt.Errorf("failed to resolve DB path: %w", err)
		}
		cfg.Store.DBPath = absPath
	}
	if cfg.StartupRoot != "" {
		cfg.StartupRoot = utils.Expand(cfg.StartupRoot)
	}
	cfg.DefaultExcludes = exclude.Clean(cfg.DefaultExcludes)
	return nil
}

// Validate checks that the configuration parameters are valid
func Validate(cfg *types.Config) error {
	if cfg == nil {
		return fmt.Errorf("config cannot be nil")
	}

	if cfg.API.Port < 1 || cfg.API.Port > 65535 {
		return fmt.Errorf("API port must be between 1 and 65535, got %d", cfg.API.Port)
	}

	if cfg.Watch.RenameWindow < 0 {
		return fmt.Errorf("rename_window must be non-negative, got %s", cfg.Watch.RenameWindow.Std())
	}
	if cfg.Watch.RenameWindow.Std() > 10*time.Second {
		return fmt.Errorf("rename_window must be at most 10s, got %s", cfg.Watch.RenameWindow.Std())
	}
	if cfg.Watch.EventBuffer < 0 {
		return fmt.Errorf("event_buffer must be non-negative, got %d", cfg.Watch.EventBuffer)
	}
	if cfg.Watch.IdentityCacheSize < 0 {
		return fmt.Errorf("identity_cache_size must be non-negative, got %d", cfg.Watch.IdentityCacheSize)
	}

	switch cfg.Logging.Format {
	case "", "json", "console":
	default:
		return fmt.Errorf("logging format must be json or console, got %q", cfg.Logging.Format)
	}

	return nil
}

// SaveToFile saves configuration to a JSON file
func SaveToFile(cfg *types.Config, configPath string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config to JSON: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
