package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"rwaledger/pkg/domain"
	pstrings "rwaledger/pkg/platform/strings"
)

// FileEnv names the optional YAML file read before environment overrides.
const FileEnv = "RWALEDGER_CONFIG"

// Config is the full process configuration.
type Config struct {
	Server   Server         `yaml:"server"`
	Log      Log            `yaml:"log"`
	Ledger   Ledger         `yaml:"ledger"`
	Relay    Relay          `yaml:"relay"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// Server captures ops HTTP server configuration.
type Server struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Ledger holds deployment parameters. Deployer receives every role.
type Ledger struct {
	Deployer  string        `yaml:"deployer"`
	Genesis   []string      `yaml:"genesis"`
	TxTimeout time.Duration `yaml:"tx_timeout"`
}

type Relay struct {
	BatchSize    int           `yaml:"batch_size"`
	PollInterval time.Duration `yaml:"poll_interval"`
	Backoff      time.Duration `yaml:"backoff"`
	MaxBackoff   time.Duration `yaml:"max_backoff"`
	Compact      bool          `yaml:"compact"`
}

// RedisConfig configures the Redis stream sink. An empty URL disables it.
type RedisConfig struct {
	URL          string        `yaml:"url"`
	Stream       string        `yaml:"stream"`
	PoolSize     int           `yaml:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// KafkaConfig configures the Kafka sink. No brokers disables it.
type KafkaConfig struct {
	Brokers           []string `yaml:"brokers"`
	Topic             string   `yaml:"topic"`
	Partitions        int32    `yaml:"partitions"`
	ReplicationFactor int16    `yaml:"replication_factor"`
}

// PostgresConfig configures the outbox sink. An empty DSN disables it.
type PostgresConfig struct {
	DSN          string `yaml:"dsn"`
	MaxOpenConns int    `yaml:"max_open_conns"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Server: Server{Addr: ":8080", ShutdownTimeout: 10 * time.Second},
		Log:    Log{Level: "info", Format: "json"},
		Ledger: Ledger{TxTimeout: 5 * time.Second},
		Relay: Relay{
			BatchSize:    100,
			PollInterval: time.Second,
			Backoff:      200 * time.Millisecond,
			MaxBackoff:   30 * time.Second,
		},
		Redis: RedisConfig{
			Stream:       "rwaledger:events",
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Kafka:    KafkaConfig{Topic: "rwaledger.events", Partitions: 3, ReplicationFactor: 1},
		Postgres: PostgresConfig{MaxOpenConns: 5},
	}
}

// Load reads a YAML file over the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// FromEnv builds the config from the optional YAML file named by
// RWALEDGER_CONFIG, then applies environment overrides so main stays lean.
func FromEnv() (Config, error) {
	cfg := Default()
	if path := os.Getenv(FileEnv); path != "" {
		loaded, err := Load(path)
		if err != nil {
			return Config{}, err
		}
		cfg = loaded
	}
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	setString(&cfg.Server.Addr, "RWALEDGER_OPS_ADDR")
	setString(&cfg.Log.Level, "RWALEDGER_LOG_LEVEL")
	setString(&cfg.Log.Format, "RWALEDGER_LOG_FORMAT")
	setString(&cfg.Ledger.Deployer, "RWALEDGER_DEPLOYER")
	if v := os.Getenv("RWALEDGER_GENESIS"); v != "" {
		cfg.Ledger.Genesis = pstrings.SplitList(v)
	}
	setString(&cfg.Redis.URL, "REDIS_URL")
	setString(&cfg.Redis.Stream, "REDIS_STREAM")
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = pstrings.SplitList(v)
	}
	setString(&cfg.Kafka.Topic, "KAFKA_TOPIC")
	setString(&cfg.Postgres.DSN, "DATABASE_URL")

	if err := setDuration(&cfg.Ledger.TxTimeout, "RWALEDGER_TX_TIMEOUT"); err != nil {
		return err
	}
	if err := setDuration(&cfg.Relay.PollInterval, "RELAY_POLL_INTERVAL"); err != nil {
		return err
	}
	if v := os.Getenv("RELAY_BATCH_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("RELAY_BATCH_SIZE: %w", err)
		}
		cfg.Relay.BatchSize = n
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}

// Validate checks values that have no usable default.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Ledger.Deployer) == "" {
		errs = append(errs, errors.New("ledger.deployer is required"))
	}
	if c.Ledger.TxTimeout <= 0 {
		errs = append(errs, errors.New("ledger.tx_timeout must be positive"))
	}
	if c.Relay.BatchSize <= 0 {
		errs = append(errs, errors.New("relay.batch_size must be positive"))
	}
	if c.Kafka.Enabled() && c.Kafka.Topic == "" {
		errs = append(errs, errors.New("kafka.topic is required when brokers are set"))
	}
	if c.Redis.Enabled() && c.Redis.Stream == "" {
		errs = append(errs, errors.New("redis.stream is required when url is set"))
	}
	return errors.Join(errs...)
}

// Accounts parses the deployer and the de-duplicated genesis list.
func (l Ledger) Accounts() (domain.Address, []domain.Address, error) {
	deployer, err := domain.ParseAddress(strings.TrimSpace(l.Deployer))
	if err != nil {
		return domain.ZeroAddress, nil, fmt.Errorf("ledger.deployer: %w", err)
	}
	raw := pstrings.DedupeAndTrimLower(l.Genesis)
	genesis := make([]domain.Address, 0, len(raw))
	for _, s := range raw {
		a, err := domain.ParseAddress(s)
		if err != nil {
			return domain.ZeroAddress, nil, fmt.Errorf("ledger.genesis %q: %w", s, err)
		}
		genesis = append(genesis, a)
	}
	return deployer, genesis, nil
}

func (r RedisConfig) Enabled() bool    { return r.URL != "" }
func (k KafkaConfig) Enabled() bool    { return len(k.Brokers) > 0 }
func (p PostgresConfig) Enabled() bool { return p.DSN != "" }
