package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// envPrefix namespaces the environment variables, e.g. ANKORA_DB__PATH.
// A double underscore separates nesting levels so keys like repos_dir
// keep their single underscores.
const envPrefix = "ANKORA_"

// Config is the full runtime configuration, merged from file, environment,
// and flags, in rising order of precedence.
type Config struct {
	Server struct {
		Addr string `koanf:"addr" validate:"required"`
	} `koanf:"server"`

	DB struct {
		Path string `koanf:"path" validate:"required"`
	} `koanf:"db"`

	Sync struct {
		User     string `koanf:"user" validate:"required"`
		ReposDir string `koanf:"repos_dir" validate:"required"`
	} `koanf:"sync"`

	SRS struct {
		MinEase        float64 `koanf:"min_ease" validate:"gt=1"`
		MaxEase        float64 `koanf:"max_ease" validate:"gtfield=MinEase"`
		LapseThreshold int     `koanf:"lapse_threshold" validate:"min=1,max=5"`
		SecondInterval int     `koanf:"second_interval" validate:"min=1"`
		GraduationDays int     `koanf:"graduation_days" validate:"min=1"`
		FuzzFactor     float64 `koanf:"fuzz_factor" validate:"gte=0,lte=0.5"`
		MaxInterval    int     `koanf:"max_interval" validate:"min=1"`
	} `koanf:"srs"`
}

// Default returns the built-in configuration.
func Default() Config {
	var cfg Config
	cfg.Server.Addr = ":8080"
	cfg.DB.Path = "ankora.db"
	cfg.Sync.User = "local"
	cfg.Sync.ReposDir = "repos"
	cfg.SRS.MinEase = 1.3
	cfg.SRS.MaxEase = 4.0
	cfg.SRS.LapseThreshold = 3
	cfg.SRS.SecondInterval = 6
	cfg.SRS.GraduationDays = 21
	cfg.SRS.FuzzFactor = 0.25
	cfg.SRS.MaxInterval = 365
	return cfg
}

// Load merges the config file (if present), ANKORA_* environment
// variables, and command-line flags over the defaults, then validates
// the result. Flag names double as config keys, e.g. --db.path.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.ProviderWithValue(envPrefix, ".", func(key, value string) (string, interface{}) {
		key = strings.ToLower(strings.TrimPrefix(key, envPrefix))
		return strings.ReplaceAll(key, "__", "."), value
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment config: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return nil, fmt.Errorf("failed to load flag config: %w", err)
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}
