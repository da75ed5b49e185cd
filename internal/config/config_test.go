package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aaricantto/GraphFS/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{EnvAppData, EnvLog, EnvRoot, EnvExcludes} {
		if v, ok := os.LookupEnv(k); ok {
			os.Unsetenv(k)
			t.Cleanup(func() { os.Setenv(k, v) })
		}
	}
}

func TestLoadFromFile(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		missing     bool
		expectError string
		validate    func(*testing.T, *types.Config)
	}{
		{
			name: "full config",
			body: `{
				"api": {"host": "0.0.0.0", "port": 9000},
				"watch": {"rename_window": "400ms", "event_buffer": 16, "identity_cache_size": 100},
				"store": {"app_data_dir": "/var/lib/graphfs"},
				"logging": {"level": "debug", "format": "json"},
				"default_excludes": [" .git ", "", "dist"]
			}`,
			validate: func(t *testing.T, cfg *types.Config) {
				assert.Equal(t, "0.0.0.0", cfg.API.Host)
				assert.Equal(t, 9000, cfg.API.Port)
				assert.Equal(t, 400*time.Millisecond, cfg.Watch.RenameWindow.Std())
				assert.Equal(t, 16, cfg.Watch.EventBuffer)
				assert.Equal(t, filepath.Join("/var/lib/graphfs", "graphfs.duckdb"), cfg.Store.DBPath)
				assert.Equal(t, "json", cfg.Logging.Format)
				assert.Equal(t, []string{".git", "dist"}, cfg.DefaultExcludes)
			},
		},
		{
			name: "partial config keeps defaults",
			body: `{"api": {"port": 9100}}`,
			validate: func(t *testing.T, cfg *types.Config) {
				def := DefaultConfig()
				assert.Equal(t, def.API.Host, cfg.API.Host)
				assert.Equal(t, 9100, cfg.API.Port)
				assert.Equal(t, def.Watch.RenameWindow, cfg.Watch.RenameWindow)
				assert.Equal(t, DefaultExcludes, cfg.DefaultExcludes)
				assert.True(t, filepath.IsAbs(cfg.Store.DBPath))
			},
		},
		{
			name: "relative db path is made absolute",
			body: `{"store": {"db_path": "state/graphfs.duckdb"}}`,
			validate: func(t *testing.T, cfg *types.Config) {
				assert.True(t, filepath.IsAbs(cfg.Store.DBPath))
				assert.Equal(t, "graphfs.duckdb", filepath.Base(cfg.Store.DBPath))
			},
		},
		{name: "missing file", missing: true, expectError: "config file not found"},
		{name: "invalid JSON", body: `{"api": `, expectError: "failed to parse config JSON"},
		{name: "bad duration", body: `{"watch": {"rename_window": "soon"}}`, expectError: "failed to parse config JSON"},
		{name: "bad port", body: `{"api": {"port": 70000}}`, expectError: "API port"},
		{name: "window too long", body: `{"watch": {"rename_window": "1m"}}`, expectError: "rename_window"},
		{name: "bad log format", body: `{"logging": {"format": "xml"}}`, expectError: "logging format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "nope.json")
			if !tt.missing {
				path = writeConfig(t, tt.body)
			}
			cfg, err := LoadFromFile(path)
			if tt.expectError != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectError)
				return
			}
			require.NoError(t, err)
			tt.validate(t, cfg)
		})
	}
}

func TestValidate(t *testing.T) {
	assert.Error(t, Validate(nil))

	cfg := DefaultConfig()
	assert.NoError(t, Validate(&cfg))

	cfg.Watch.EventBuffer = -1
	assert.ErrorContains(t, Validate(&cfg), "event_buffer")

	cfg = DefaultConfig()
	cfg.Watch.RenameWindow = types.Duration(-time.Second)
	assert.ErrorContains(t, Validate(&cfg), "rename_window")
}

func TestApplyEnv(t *testing.T) {
	clearEnv(t)
	appData := t.TempDir()
	t.Setenv(EnvAppData, appData)
	t.Setenv(EnvLog, "debug")
	t.Setenv(EnvRoot, "~/projects")
	t.Setenv(EnvExcludes, "target, .venv ,,")

	cfg, err := Load("")
	require.NoError(t, err)

	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, appData, cfg.Store.AppDataDir)
	assert.Equal(t, filepath.Join(appData, "graphfs.duckdb"), cfg.Store.DBPath)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, filepath.Join(home, "projects"), cfg.StartupRoot)
	assert.Equal(t, []string{"target", ".venv"}, cfg.DefaultExcludes)
}

func TestApplyEnvEmptyExcludes(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvAppData, t.TempDir())
	t.Setenv(EnvExcludes, "")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Empty(t, cfg.DefaultExcludes, "an empty variable disables the defaults")
}

func TestSaveAndReload(t *testing.T) {
	clearEnv(t)
	cfg := DefaultConfig()
	cfg.API.Port = 9999
	cfg.Watch.RenameWindow = types.Duration(75 * time.Millisecond)
	cfg.Store.AppDataDir = t.TempDir()

	path := filepath.Join(t.TempDir(), "saved.json")
	require.NoError(t, SaveToFile(&cfg, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"rename_window": "75ms"`)

	loaded, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, 9999, loaded.API.Port)
	assert.Equal(t, cfg.Watch.RenameWindow, loaded.Watch.RenameWindow)
	assert.Equal(t, cfg.Store.AppDataDir, loaded.Store.AppDataDir)
}
