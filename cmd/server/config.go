package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	storageDriverMemory   = "memory"
	storageDriverPostgres = "postgres"
)

type Config struct {
	App struct {
		Env string `mapstructure:"env"`
	} `mapstructure:"app"`
	Server struct {
		Host            string        `mapstructure:"host"`
		Port            int           `mapstructure:"port"`
		ReadTimeout     time.Duration `mapstructure:"read_timeout"`
		WriteTimeout    time.Duration `mapstructure:"write_timeout"`
		ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	} `mapstructure:"server"`
	Storage struct {
		Driver string `mapstructure:"driver"`
	} `mapstructure:"storage"`
	Database struct {
		URL         string        `mapstructure:"url"`
		MaxConns    int           `mapstructure:"max_conns"`
		PingTimeout time.Duration `mapstructure:"ping_timeout"`
	} `mapstructure:"database"`
	Log struct {
		Level    string `mapstructure:"level"`
		Encoding string `mapstructure:"encoding"`
	} `mapstructure:"log"`
	Auth struct {
		JWTPublicKey      string `mapstructure:"jwt_public_key"`
		JWTPublicKeyFile  string `mapstructure:"jwt_public_key_file"`
		JWTPrivateKey     string `mapstructure:"jwt_private_key"`
		JWTPrivateKeyFile string `mapstructure:"jwt_private_key_file"`
	} `mapstructure:"auth"`
	Security struct {
		InternalToken     string `mapstructure:"internal_token"`
		InternalTokenFile string `mapstructure:"internal_token_file"`
	} `mapstructure:"security"`
	CORS struct {
		AllowOrigins []string `mapstructure:"allow_origins"`
	} `mapstructure:"cors"`
	Payment struct {
		TestMode bool `mapstructure:"test_mode"`
	} `mapstructure:"payment"`
	Scheduler struct {
		PremiumSweep      string `mapstructure:"premium_sweep"`
		PassExpiryWarning string `mapstructure:"pass_expiry_warning"`
	} `mapstructure:"scheduler"`
	RateLimit struct {
		RevealPerSecond float64 `mapstructure:"reveal_per_second"`
		RevealBurst     int     `mapstructure:"reveal_burst"`
	} `mapstructure:"ratelimit"`
	Listing struct {
		PageSize int `mapstructure:"page_size"`
	} `mapstructure:"listing"`
}

func loadConfig() (Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("LOGIMATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("database.url", "LOGIMATCH_DATABASE_URL", "DATABASE_URL")

	v.SetDefault("app.env", "development")
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("storage.driver", storageDriverMemory)
	v.SetDefault("database.url", "")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.ping_timeout", "3s")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "json")
	v.SetDefault("auth.jwt_public_key", "")
	v.SetDefault("auth.jwt_public_key_file", "")
	v.SetDefault("auth.jwt_private_key", "")
	v.SetDefault("auth.jwt_private_key_file", "")
	v.SetDefault("security.internal_token", "")
	v.SetDefault("security.internal_token_file", "")
	v.SetDefault("cors.allow_origins", []string{"http://localhost:5173"})
	v.SetDefault("payment.test_mode", true)
	v.SetDefault("scheduler.premium_sweep", "0 */5 * * * *")
	v.SetDefault("scheduler.pass_expiry_warning", "0 0 9 * * *")
	v.SetDefault("ratelimit.reveal_per_second", 2)
	v.SetDefault("ratelimit.reveal_burst", 10)
	v.SetDefault("listing.page_size", 20)

	if err := v.ReadInConfig(); err != nil {
		var notFoundErr viper.ConfigFileNotFoundError
		if !errors.As(err, &notFoundErr) {
			return Config{}, fmt.Errorf("read config file failed: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config failed: %w", err)
	}

	if strings.TrimSpace(cfg.Security.InternalToken) == "" && strings.TrimSpace(cfg.Security.InternalTokenFile) != "" {
		// #nosec G304 -- path is provided by operator config.
		raw, err := os.ReadFile(strings.TrimSpace(cfg.Security.InternalTokenFile))
		if err != nil {
			return Config{}, fmt.Errorf("read security.internal_token_file failed: %w", err)
		}
		cfg.Security.InternalToken = strings.TrimSpace(string(raw))
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validateConfig(cfg Config) error {
	switch strings.ToLower(strings.TrimSpace(cfg.Storage.Driver)) {
	case storageDriverMemory:
	case storageDriverPostgres:
		if cfg.Database.URL == "" {
			return errors.New("database.url is required for the postgres storage driver")
		}
		if cfg.Database.MaxConns <= 0 {
			return errors.New("database.max_conns must be greater than 0")
		}
		if cfg.Database.PingTimeout <= 0 {
			return errors.New("database.ping_timeout must be greater than 0")
		}
	default:
		return fmt.Errorf("unsupported storage.driver %q", cfg.Storage.Driver)
	}

	if len(cfg.CORS.AllowOrigins) == 0 {
		return errors.New("cors.allow_origins must not be empty")
	}
	for _, origin := range cfg.CORS.AllowOrigins {
		if strings.TrimSpace(origin) == "*" {
			return errors.New("cors.allow_origins must not contain wildcard *")
		}
	}

	if cfg.Listing.PageSize <= 0 {
		return errors.New("listing.page_size must be greater than 0")
	}
	return nil
}
