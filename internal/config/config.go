package config

import (
	"fmt"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
)

const configPathEnvVar = "CONFIG_PATH"

type Config interface {
	EnvConfig
	CorsConfig
	TokenConfig
	CacheConfig
	RentalConfig
	SecurityConfig
	StorageConfig
	BootstrapConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type mainConfig struct {
	EnvVars   `yaml:"env"`
	Cors      `yaml:"cors"`
	Tokens    `yaml:"tokens"`
	Cache     `yaml:"cache"`
	Rentals   `yaml:"rentals"`
	Security  `yaml:"security"`
	Storage   `yaml:"storage"`
	Bootstrap `yaml:"bootstrap"`
}

// Load reads the configuration from the yaml file at path (or CONFIG_PATH when path is empty)
// and overlays environment variables. With no file at all, only the environment is read.
func Load(path string) (Config, error) {
	var cfg mainConfig

	if path == "" {
		path = os.Getenv(configPathEnvVar)
	}

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("[config.Load] config file %q: %w", path, err)
		}
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("[config.Load] read %q: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("[config.Load] read env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("[config.Load] %w", err)
	}
	return cfg, nil
}

func (c mainConfig) validate() error {
	if c.Tokens.AccessTokenTTL <= 0 || c.Tokens.RefreshTokenTTL <= 0 {
		return fmt.Errorf("token lifetimes must be positive")
	}
	if c.Cache.SlidingTTL <= 0 || c.Cache.AbsoluteTTL < c.Cache.SlidingTTL {
		return fmt.Errorf("cache sliding ttl must be positive and not exceed the absolute ttl")
	}
	if c.Rentals.Cap <= 0 {
		return fmt.Errorf("rental cap must be positive")
	}
	return nil
}
