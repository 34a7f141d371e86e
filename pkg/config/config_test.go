package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	// Create a temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	configContent := `
logging:
  level: "debug"
  format: "json"
  timestamps: false

output:
  dir: "generated/host_vars"

shared:
  enabled: false
  scope: "block"

roles_path: "roles:vendor/roles"
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	require.NoError(t, err)

	tests := []struct {
		name        string
		configPaths []string
		envVars     map[string]string
		want        *Config
		wantErr     bool
	}{
		{
			name:        "default config",
			configPaths: []string{},
			want: &Config{
				Logging: LoggingConfig{
					Level:      "info",
					Format:     "plain",
					Timestamps: true,
				},
				Output: OutputConfig{
					Dir: "host_vars",
				},
				Shared: SharedConfig{
					Enabled: true,
					Scope:   SharedScopeGlobal,
				},
				RolesPath: "roles",
			},
		},
		{
			name:        "config from file",
			configPaths: []string{configPath},
			want: &Config{
				Logging: LoggingConfig{
					Level:      "debug",
					Format:     "json",
					Timestamps: false,
				},
				Output: OutputConfig{
					Dir: "generated/host_vars",
				},
				Shared: SharedConfig{
					Enabled: false,
					Scope:   SharedScopeBlock,
				},
				RolesPath: "roles:vendor/roles",
			},
		},
		{
			name:        "config from env vars",
			configPaths: []string{},
			envVars: map[string]string{
				"CONFGEN_LOGGING_LEVEL": "warn",
				"CONFGEN_OUTPUT_DIR":    "out",
				"CONFGEN_ROLES_PATH":    "custom_roles",
			},
			want: &Config{
				Logging: LoggingConfig{
					Level:      "warn",
					Format:     "plain",
					Timestamps: true,
				},
				Output: OutputConfig{
					Dir: "out",
				},
				Shared: SharedConfig{
					Enabled: true,
					Scope:   SharedScopeGlobal,
				},
				RolesPath: "custom_roles",
			},
		},
		{
			name:        "invalid config file",
			configPaths: []string{"nonexistent.yaml"},
			wantErr:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Set environment variables
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			got, err := Load(tt.configPaths...)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadRejectsUnknownSharedScope(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	err := os.WriteFile(configPath, []byte("shared:\n  scope: per_host\n"), 0644)
	require.NoError(t, err)

	_, err = Load(configPath)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "shared.scope")
}
