package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, "50051", cfg.GRPCPort)
	assert.Equal(t, StorageMySQL, cfg.StorageDriver)
	assert.True(t, cfg.MigrateOnStart)
	assert.Equal(t, 10*time.Second, cfg.CheckoutLockTTL)
	assert.Equal(t, 5*time.Second, cfg.CheckoutTimeout)
	assert.Equal(t, SettlementNoop, cfg.SettlementDriver)
	assert.Equal(t, "basket-checkouts", cfg.KafkaSettlementTopic)
	assert.Equal(t, 4, cfg.SettlementWorkers)
	assert.Equal(t, 1000, cfg.SettlementQueueSize)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Equal(t, zerolog.InfoLevel, cfg.Level())
	assert.NoError(t, cfg.Validate())
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("CHECKOUT_LOCK_TTL", "3s")
	t.Setenv("SETTLEMENT_DRIVER", "kafka")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("SETTLEMENT_WORKERS", "8")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StorageMemory, cfg.StorageDriver)
	assert.Equal(t, 3*time.Second, cfg.CheckoutLockTTL)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 8, cfg.SettlementWorkers)
	assert.Equal(t, zerolog.DebugLevel, cfg.Level())
	assert.NoError(t, cfg.Validate())
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("HTTP_PORT: \"9090\"\nGRPC_PORT: \"6000\"\n"), 0o600))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("GRPC_PORT", "7000")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.HTTPPort)
	assert.Equal(t, "7000", cfg.GRPCPort)
}

func TestLoad_MissingFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "nope.yaml"))

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			StorageDriver:        StorageMemory,
			SettlementDriver:     SettlementNoop,
			KafkaSettlementTopic: "t",
			SettlementWorkers:    1,
			SettlementQueueSize:  1,
			CheckoutLockTTL:      time.Second,
			LogLevel:             "info",
		}
	}

	cases := map[string]func(*Config){
		"unknown storage":    func(c *Config) { c.StorageDriver = "sqlite" },
		"mysql without dsn":  func(c *Config) { c.StorageDriver = StorageMySQL },
		"unknown settlement": func(c *Config) { c.SettlementDriver = "paypal" },
		"kafka no brokers":   func(c *Config) { c.SettlementDriver = SettlementKafka },
		"zero workers":       func(c *Config) { c.SettlementWorkers = 0 },
		"zero queue":         func(c *Config) { c.SettlementQueueSize = 0 },
		"zero lock ttl":      func(c *Config) { c.CheckoutLockTTL = 0 },
		"bad log level":      func(c *Config) { c.LogLevel = "loud" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := valid()
			mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	cfg := valid()
	assert.NoError(t, cfg.Validate())
}

func TestWatchLogLevel(t *testing.T) {
	prev := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(prev) })
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("LOG_LEVEL: info\n"), 0o600))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("LOG_LEVEL", "")

	cfg, err := Load()
	require.NoError(t, err)
	cfg.WatchLogLevel(zerolog.Nop())

	require.NoError(t, os.WriteFile(path, []byte("LOG_LEVEL: warn\n"), 0o600))
	require.Eventually(t, func() bool {
		return zerolog.GlobalLevel() == zerolog.WarnLevel
	}, 5*time.Second, 20*time.Millisecond)
}
