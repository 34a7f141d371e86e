package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Shared scope policies. Global removes a shared role from every host's
// config; block only removes it from the hosts targeted by the marking play.
const (
	SharedScopeGlobal = "global"
	SharedScopeBlock  = "block"
)

// Config holds all configuration settings
type Config struct {
	Logging   LoggingConfig `mapstructure:"logging"`
	Output    OutputConfig  `mapstructure:"output"`
	Shared    SharedConfig  `mapstructure:"shared"`
	RolesPath string        `mapstructure:"roles_path"`
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Timestamps bool   `mapstructure:"timestamps"`
}

// OutputConfig holds artifact output configuration
type OutputConfig struct {
	// Dir is resolved relative to the project root when not absolute.
	Dir string `mapstructure:"dir"`
}

// SharedConfig controls shared-bucket handling
type SharedConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Scope   string `mapstructure:"scope"`
}

// Load loads configuration from files and environment variables
func Load(configPaths ...string) (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Read config files
	for _, path := range configPaths {
		v.SetConfigFile(path)
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	}

	// Environment variables
	v.SetEnvPrefix("CONFGEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if config.Shared.Scope != SharedScopeGlobal && config.Shared.Scope != SharedScopeBlock {
		return nil, fmt.Errorf("invalid shared.scope %q: must be %q or %q",
			config.Shared.Scope, SharedScopeGlobal, SharedScopeBlock)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "plain")
	v.SetDefault("logging.timestamps", true)

	// Output defaults
	v.SetDefault("output.dir", "host_vars")

	// Shared bucket defaults
	v.SetDefault("shared.enabled", true)
	v.SetDefault("shared.scope", SharedScopeGlobal)

	// Role lookup default. Colon-delimited, like ANSIBLE_ROLES_PATH.
	v.SetDefault("roles_path", "roles")
}
