package config

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/viper"

	"github.com/matzehuels/panelmap/pkg/errors"
)

// FileName is the configuration file name looked up in each search path.
const FileName = "config.toml"

// EnvPrefix prefixes every environment override.
const EnvPrefix = "PANELMAP"

// Loaded is a loaded configuration and the file it came from.
type Loaded struct {
	*Config

	// File is the config file that was read, or "" when none was found.
	File string
}

// Load reads the configuration. An explicit path must exist; otherwise the
// user config directory and the working directory are searched and a missing
// file means defaults plus environment overrides.
func Load(path string) (*Loaded, error) {
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "config file %s", path)
		}
	}
	v, err := newViper(path)
	if err != nil {
		return nil, err
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		switch {
		case stderrors.As(err, &notFound):
		default:
			return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "read config %s (must be valid TOML)", v.ConfigFileUsed())
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "parse config %s", v.ConfigFileUsed())
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &Loaded{Config: cfg, File: v.ConfigFileUsed()}, nil
}

func newViper(path string) (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigType("toml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(strings.TrimSuffix(FileName, ".toml"))
		if dir, err := Dir(); err == nil {
			v.AddConfigPath(dir)
		}
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := setDefaults(v, Default()); err != nil {
		return nil, err
	}
	return v, nil
}

// setDefaults registers every key of cfg with viper. Unmarshal only sees
// environment overrides for keys viper knows about.
func setDefaults(v *viper.Viper, cfg *Config) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("encode defaults: %w", err)
	}
	var tree map[string]any
	if _, err := toml.Decode(buf.String(), &tree); err != nil {
		return fmt.Errorf("decode defaults: %w", err)
	}
	setFlat(v, "", tree)

	// keys omitted from the encoded defaults when empty
	for _, k := range []string{"cache.dir", "cache.redis_password", "history.path"} {
		v.SetDefault(k, "")
	}
	return nil
}

func setFlat(v *viper.Viper, prefix string, m map[string]any) {
	for k, val := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if sub, ok := val.(map[string]any); ok {
			setFlat(v, key, sub)
			continue
		}
		v.SetDefault(key, val)
	}
}
