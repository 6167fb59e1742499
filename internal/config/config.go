package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

const (
	StorageMySQL  = "mysql"
	StorageMemory = "memory"

	SettlementNoop  = "noop"
	SettlementKafka = "kafka"
)

type Config struct {
	HTTPPort        string        `mapstructure:"HTTP_PORT"`
	GRPCPort        string        `mapstructure:"GRPC_PORT"`
	StorageDriver   string        `mapstructure:"STORAGE_DRIVER"`
	MySQLDSN        string        `mapstructure:"MYSQL_DSN"`
	MigrateOnStart  bool          `mapstructure:"MIGRATE_ON_START"`
	RedisAddr       string        `mapstructure:"REDIS_ADDR"`
	CheckoutLockTTL time.Duration `mapstructure:"CHECKOUT_LOCK_TTL"`
	CheckoutTimeout time.Duration `mapstructure:"CHECKOUT_TIMEOUT"`

	SettlementDriver     string   `mapstructure:"SETTLEMENT_DRIVER"`
	KafkaBrokers         []string `mapstructure:"KAFKA_BROKERS"`
	KafkaSettlementTopic string   `mapstructure:"KAFKA_SETTLEMENT_TOPIC"`
	SettlementWorkers    int      `mapstructure:"SETTLEMENT_WORKERS"`
	SettlementQueueSize  int      `mapstructure:"SETTLEMENT_QUEUE_SIZE"`

	LogLevel string `mapstructure:"LOG_LEVEL"`

	v *viper.Viper
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("HTTP_PORT", "8080")
	v.SetDefault("GRPC_PORT", "50051")
	v.SetDefault("STORAGE_DRIVER", StorageMySQL)
	v.SetDefault("MYSQL_DSN", "root:root@tcp(localhost:3306)/basket_checkout?parseTime=true")
	v.SetDefault("MIGRATE_ON_START", true)
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("CHECKOUT_LOCK_TTL", 10*time.Second)
	v.SetDefault("CHECKOUT_TIMEOUT", 5*time.Second)
	v.SetDefault("SETTLEMENT_DRIVER", SettlementNoop)
	v.SetDefault("KAFKA_BROKERS", []string{})
	v.SetDefault("KAFKA_SETTLEMENT_TOPIC", "basket-checkouts")
	v.SetDefault("SETTLEMENT_WORKERS", 4)
	v.SetDefault("SETTLEMENT_QUEUE_SIZE", 1000)
	v.SetDefault("LOG_LEVEL", "info")
}

// Load reads defaults, then the file named by CONFIG_FILE if any, then the
// environment, later sources winning.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if file := os.Getenv("CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", file, err)
		}
	}

	cfg := &Config{v: v}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.KafkaBrokers = splitList(cfg.KafkaBrokers)
	return cfg, nil
}

// splitList also accepts a single comma separated entry.
func splitList(in []string) []string {
	var out []string
	for _, s := range in {
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func (c *Config) Validate() error {
	var errs []error
	switch c.StorageDriver {
	case StorageMySQL:
		if c.MySQLDSN == "" {
			errs = append(errs, errors.New("MYSQL_DSN is required for the mysql storage driver"))
		}
	case StorageMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver))
	}

	switch c.SettlementDriver {
	case SettlementKafka:
		if len(c.KafkaBrokers) == 0 {
			errs = append(errs, errors.New("KAFKA_BROKERS is required for the kafka settlement driver"))
		}
		if c.KafkaSettlementTopic == "" {
			errs = append(errs, errors.New("KAFKA_SETTLEMENT_TOPIC is required for the kafka settlement driver"))
		}
	case SettlementNoop:
	default:
		errs = append(errs, fmt.Errorf("unknown SETTLEMENT_DRIVER %q", c.SettlementDriver))
	}

	if c.SettlementWorkers <= 0 {
		errs = append(errs, errors.New("SETTLEMENT_WORKERS must be positive"))
	}
	if c.SettlementQueueSize <= 0 {
		errs = append(errs, errors.New("SETTLEMENT_QUEUE_SIZE must be positive"))
	}
	if c.CheckoutLockTTL <= 0 {
		errs = append(errs, errors.New("CHECKOUT_LOCK_TTL must be positive"))
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("LOG_LEVEL: %w", err))
	}
	return errors.Join(errs...)
}

// Level is the configured log level, info when unset or invalid.
func (c *Config) Level() zerolog.Level {
	return parseLevel(c.LogLevel)
}

func parseLevel(s string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

// WatchLogLevel reapplies LOG_LEVEL whenever the config file changes. It is a
// no-op when no config file was loaded.
func (c *Config) WatchLogLevel(logger zerolog.Logger) {
	if c.v == nil || c.v.ConfigFileUsed() == "" {
		return
	}
	c.v.OnConfigChange(func(e fsnotify.Event) {
		lvl := parseLevel(c.v.GetString("LOG_LEVEL"))
		if lvl == zerolog.GlobalLevel() {
			return
		}
		zerolog.SetGlobalLevel(lvl)
		logger.Info().Str("file", e.Name).Str("level", lvl.String()).Msg("log level changed")
	})
	c.v.WatchConfig()
}
