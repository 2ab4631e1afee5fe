package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

const (
	configName = "harvestboost"
	configType = "toml"
	envPrefix  = "HARVESTBOOST"
)

// Load reads configuration into a fresh Config. An explicit path must exist;
// without one the working directory is searched and a missing file means
// defaults. The result is always normalized.
func Load(v *viper.Viper, path string) (*Config, error) {
	if v == nil {
		v = viper.New()
	}

	v.SetConfigType(configType)
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(configName)
		v.AddConfigPath(".")
		v.AddConfigPath("data")
	}

	v.SetEnvPrefix(envPrefix)
	// Secrets and deployment paths come from the environment.
	for key, env := range map[string]string{
		"server.admin-key": envPrefix + "_ADMIN_KEY",
		"server.port":      envPrefix + "_PORT",
		"database.path":    envPrefix + "_DB",
	} {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", env, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		slog.Info("no config file found, using defaults")
	} else {
		slog.Info("config loaded", "path", v.ConfigFileUsed())
	}

	cfg := Default()
	// A configured level table replaces the stock one; unlisted levels are 1.0.
	if v.IsSet("boosts.levels") {
		cfg.Boosts.Levels = nil
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	cfg.Normalize()
	return cfg, nil
}

// WriteDefault writes the default configuration as TOML to path. It refuses
// to overwrite an existing file unless force is set.
func WriteDefault(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists", path)
		}
	}
	data, err := Encode(Default())
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Encode renders cfg as TOML.
func Encode(cfg *Config) ([]byte, error) {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return data, nil
}
