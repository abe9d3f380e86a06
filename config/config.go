package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server struct {
		Port            string        `mapstructure:"port"`
		RequestTimeout  time.Duration `mapstructure:"request_timeout"`
		ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	} `mapstructure:"server"`
	Database struct {
		Driver      string `mapstructure:"driver"`
		Host        string `mapstructure:"host"`
		Port        string `mapstructure:"port"`
		User        string `mapstructure:"user"`
		Password    string `mapstructure:"password"`
		Name        string `mapstructure:"name"`
		SSLMode     string `mapstructure:"sslmode"`
		AutoMigrate bool   `mapstructure:"auto_migrate"`
	} `mapstructure:"database"`
	Redis struct {
		Host      string `mapstructure:"host"`
		Port      string `mapstructure:"port"`
		Password  string `mapstructure:"password"`
		DB        int    `mapstructure:"db"`
		KeyPrefix string `mapstructure:"key_prefix"`
	} `mapstructure:"redis"`
	Storage struct {
		Backend string `mapstructure:"backend"`
	} `mapstructure:"storage"`
	JWT struct {
		AccessSecret  string        `mapstructure:"access_secret"`
		RefreshSecret string        `mapstructure:"refresh_secret"`
		AccessTTL     time.Duration `mapstructure:"access_ttl"`
		RefreshTTL    time.Duration `mapstructure:"refresh_ttl"`
		Issuer        string        `mapstructure:"issuer"`
	} `mapstructure:"jwt"`
	Hash struct {
		Algorithm   string `mapstructure:"algorithm"`
		Memory      uint32 `mapstructure:"memory"`
		Time        uint32 `mapstructure:"time"`
		Parallelism uint8  `mapstructure:"parallelism"`
		SaltLength  uint32 `mapstructure:"salt_length"`
		KeyLength   uint32 `mapstructure:"key_length"`
		BcryptCost  int    `mapstructure:"bcrypt_cost"`
	} `mapstructure:"hash"`
	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"log"`
}

const (
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendMemory   = "memory"

	HashArgon2id = "argon2id"
	HashBcrypt   = "bcrypt"
)

var AppConfig Config

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.request_timeout", 10*time.Second)
	v.SetDefault("server.shutdown_timeout", 5*time.Second)

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", "6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key_prefix", "auth:")

	v.SetDefault("storage.backend", BackendPostgres)

	v.SetDefault("jwt.access_ttl", 15*time.Minute)
	v.SetDefault("jwt.refresh_ttl", 7*24*time.Hour)
	v.SetDefault("jwt.issuer", "")

	v.SetDefault("hash.algorithm", HashArgon2id)
	v.SetDefault("hash.memory", 64*1024)
	v.SetDefault("hash.time", 3)
	v.SetDefault("hash.parallelism", 2)
	v.SetDefault("hash.salt_length", 16)
	v.SetDefault("hash.key_length", 32)
	v.SetDefault("hash.bcrypt_cost", 12)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// LoadConfig reads config.yml from path (if present), overlays the environment,
// validates the result and stores it in AppConfig.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yml")

	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("jwt.access_secret", "JWT_AT_SECRET"); err != nil {
		return nil, err
	}
	if err := v.BindEnv("jwt.refresh_secret", "JWT_RT_SECRET"); err != nil {
		return nil, err
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	AppConfig = cfg
	return &cfg, nil
}

// Validate checks the invariants the service relies on at startup.
func (c *Config) Validate() error {
	if c.JWT.AccessSecret == "" || c.JWT.RefreshSecret == "" {
		return errors.New("jwt.access_secret (JWT_AT_SECRET) and jwt.refresh_secret (JWT_RT_SECRET) are required")
	}
	if c.JWT.AccessSecret == c.JWT.RefreshSecret {
		return errors.New("access and refresh token secrets must differ")
	}
	if c.JWT.AccessTTL <= 0 || c.JWT.RefreshTTL <= 0 {
		return errors.New("token TTLs must be positive")
	}
	if c.JWT.AccessTTL >= c.JWT.RefreshTTL {
		return errors.New("access token TTL must be shorter than refresh token TTL")
	}

	switch c.Storage.Backend {
	case BackendPostgres:
		if c.Database.Driver != "postgres" && c.Database.Driver != "pgx" {
			return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
		}
	case BackendRedis, BackendMemory:
	default:
		return fmt.Errorf("unsupported storage backend %q", c.Storage.Backend)
	}

	switch c.Hash.Algorithm {
	case HashArgon2id, HashBcrypt:
	default:
		return fmt.Errorf("unsupported hash algorithm %q", c.Hash.Algorithm)
	}
	return nil
}
