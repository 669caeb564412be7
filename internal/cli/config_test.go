package cli

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hush/internal/hush"
)

func env(vars map[string]string) func(string) string {
	return func(key string) string { return vars[key] }
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(afero.NewMemMapFs(), "", env(map[string]string{"HOME": "/home/user"}))
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
	assert.Equal(t, hush.DefaultMaxCallDepth, cfg.MaxCallDepth)
}

func TestLoadConfigSearchPath(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/xdg/hush", 0o755))
	require.NoError(t, fs.MkdirAll("/home/user/.config/hush", 0o755))
	require.NoError(t, afero.WriteFile(fs, "/xdg/hush/config.yaml", []byte("color: never\n"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/home/user/.config/hush/config.yaml", []byte("color: always\n"), 0o644))

	cfg, err := LoadConfig(fs, "", env(map[string]string{"XDG_CONFIG_HOME": "/xdg", "HOME": "/home/user"}))
	require.NoError(t, err)
	assert.Equal(t, "never", cfg.Color)

	cfg, err = LoadConfig(fs, "", env(map[string]string{"HOME": "/home/user"}))
	require.NoError(t, err)
	assert.Equal(t, "always", cfg.Color)
}

func TestLoadConfigOverridesDefaults(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/etc/hush.yaml", []byte(`
max_call_depth: 64
history_file: /tmp/history
debug: true
`), 0o644))

	cfg, err := LoadConfig(fs, "/etc/hush.yaml", env(nil))
	require.NoError(t, err)
	assert.Equal(t, &Config{MaxCallDepth: 64, Color: "auto", HistoryFile: "/tmp/history", Debug: true}, cfg)
}

func TestLoadConfigEmptyFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/empty.yaml", nil, 0o644))

	cfg, err := LoadConfig(fs, "/empty.yaml", env(nil))
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
}

func TestLoadConfigErrors(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/unknown.yaml", []byte("colour: never\n"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/color.yaml", []byte("color: sometimes\n"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/depth.yaml", []byte("max_call_depth: 0\n"), 0o644))

	tests := []struct {
		name     string
		explicit string
		vars     map[string]string
		message  string
	}{
		{"unknown key", "/unknown.yaml", nil, "field colour not found"},
		{"invalid color", "/color.yaml", nil, `color must be auto, always or never, got "sometimes"`},
		{"invalid depth", "/depth.yaml", nil, "max_call_depth must be positive, got 0"},
		{"explicit file must exist", "/missing.yaml", nil, "failed to read config"},
		{"environment file must exist", "", map[string]string{"HUSH_CONFIG": "/missing.yaml"}, "failed to read config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(fs, tt.explicit, env(tt.vars))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestExpandHome(t *testing.T) {
	getenv := env(map[string]string{"HOME": "/home/user"})
	assert.Equal(t, "/home/user/.hush_history", expandHome("~/.hush_history", getenv))
	assert.Equal(t, "/home/user", expandHome("~", getenv))
	assert.Equal(t, "/tmp/~history", expandHome("/tmp/~history", getenv))
	assert.Equal(t, "~/x", expandHome("~/x", env(nil)))
}
