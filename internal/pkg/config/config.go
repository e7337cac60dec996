package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Log        LogConfig        `yaml:"log"`
	Postgres   PostgresConfig   `yaml:"postgres"`
	Redis      RedisConfig      `yaml:"redis"`
	Kafka      KafkaConfig      `yaml:"kafka"`
	Telegram   TelegramConfig   `yaml:"telegram"`
	Health     HealthConfig     `yaml:"health"`
	Scheduler  SchedulerConfig  `yaml:"scheduler"`
	Correlator CorrelatorConfig `yaml:"correlator"`
	History    HistoryConfig    `yaml:"history"`
	Heartbeat  HeartbeatConfig  `yaml:"heartbeat"`
	Adapters   AdaptersConfig   `yaml:"adapters"`
}

type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
	File   string `yaml:"file"`   // optional log file tee
}

type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

type RedisConfig struct {
	Addr          string        `yaml:"addr"` // empty disables redis entirely
	Password      string        `yaml:"password"`
	DB            int           `yaml:"db"`
	EventsChannel string        `yaml:"events_channel"`
	CacheTTL      time.Duration `yaml:"cache_ttl"`
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers"` // empty disables the odds feed
	Topic   string   `yaml:"topic"`
}

type TelegramConfig struct {
	BotToken string `yaml:"bot_token"` // empty disables alerts
	ChatID   int64  `yaml:"chat_id"`
}

type HealthConfig struct {
	Port              int           `yaml:"port"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
}

type SchedulerConfig struct {
	Interval       time.Duration `yaml:"interval"`
	AdapterTimeout time.Duration `yaml:"adapter_timeout"`
	BackoffCeiling time.Duration `yaml:"backoff_ceiling"`
}

type CorrelatorConfig struct {
	// MinBookmakers is the publication gate: events with fewer distinct
	// bookmaker entries are kept but not returned by current-events reads.
	MinBookmakers int           `yaml:"min_bookmakers"`
	TimeTolerance time.Duration `yaml:"time_tolerance"`
	StaleAfter    time.Duration `yaml:"stale_after"`
	// ExcludedTournaments are lowercased substrings marking synthetic
	// competitions (simulated reality leagues etc.) dropped before matching.
	ExcludedTournaments []string `yaml:"excluded_tournaments"`
}

type HistoryConfig struct {
	MarginInterval time.Duration `yaml:"margin_interval"`
}

type HeartbeatConfig struct {
	Source              string        `yaml:"source"` // live source code, empty disables the tracker
	Interval            time.Duration `yaml:"interval"`
	StaleAfter          time.Duration `yaml:"stale_after"`
	SuspensionThreshold int           `yaml:"suspension_threshold"`
	LowRecordThreshold  int           `yaml:"low_record_threshold"`
	ProviderPrefixes    []string      `yaml:"provider_prefixes"`
	SampleCap           int           `yaml:"sample_cap"`
	RetainFor           time.Duration `yaml:"retain_for"`
}

type AdaptersConfig struct {
	Enabled    []string      `yaml:"enabled"` // empty = all registered
	UserAgent  string        `yaml:"user_agent"`
	Timeout    time.Duration `yaml:"timeout"`
	ArchiveDir string        `yaml:"archive_dir"` // empty disables snapshot archiving
	ScriptsDir string        `yaml:"scripts_dir"` // empty disables script adapters
	Betpawa    BetpawaConfig `yaml:"betpawa"`
	Betika     BetikaConfig  `yaml:"betika"`
	Sporty     SportyConfig  `yaml:"sporty"`
}

type BetpawaConfig struct {
	BaseURL  string        `yaml:"base_url"`
	PageSize int           `yaml:"page_size"`
	MaxPages int           `yaml:"max_pages"`
	Timeout  time.Duration `yaml:"timeout"`
}

type BetikaConfig struct {
	BaseURL  string        `yaml:"base_url"`
	PageSize int           `yaml:"page_size"`
	MaxPages int           `yaml:"max_pages"`
	Timeout  time.Duration `yaml:"timeout"`
}

type SportyConfig struct {
	BaseURL  string        `yaml:"base_url"`
	PageSize int           `yaml:"page_size"`
	MaxPages int           `yaml:"max_pages"`
	Timeout  time.Duration `yaml:"timeout"`
}

func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.applyDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Redis.EventsChannel == "" {
		c.Redis.EventsChannel = "engine:events"
	}
	if c.Redis.CacheTTL <= 0 {
		c.Redis.CacheTTL = time.Hour
	}
	if c.Kafka.Topic == "" {
		c.Kafka.Topic = "odds-updates"
	}
	if c.Health.Port == 0 {
		c.Health.Port = 8080
	}
	if c.Health.ReadHeaderTimeout <= 0 {
		c.Health.ReadHeaderTimeout = 10 * time.Second
	}
	if c.Scheduler.Interval <= 0 {
		c.Scheduler.Interval = 15 * time.Minute
	}
	if c.Scheduler.AdapterTimeout <= 0 {
		c.Scheduler.AdapterTimeout = 2 * time.Minute
	}
	if c.Scheduler.BackoffCeiling <= 0 {
		c.Scheduler.BackoffCeiling = 30 * time.Minute
	}
	if c.Correlator.MinBookmakers <= 0 {
		c.Correlator.MinBookmakers = 3
	}
	if c.Correlator.TimeTolerance <= 0 {
		c.Correlator.TimeTolerance = 30 * time.Minute
	}
	if c.Correlator.StaleAfter <= 0 {
		c.Correlator.StaleAfter = 3 * time.Hour
	}
	if len(c.Correlator.ExcludedTournaments) == 0 {
		c.Correlator.ExcludedTournaments = []string{"simulated reality", "srl", "esoccer"}
	}
	if c.History.MarginInterval <= 0 {
		c.History.MarginInterval = time.Hour
	}
	if c.Heartbeat.Interval <= 0 {
		c.Heartbeat.Interval = 10 * time.Second
	}
	if c.Heartbeat.StaleAfter <= 0 {
		c.Heartbeat.StaleAfter = 3 * time.Hour
	}
	if c.Heartbeat.SuspensionThreshold <= 0 {
		c.Heartbeat.SuspensionThreshold = 10
	}
	if c.Heartbeat.LowRecordThreshold <= 0 {
		c.Heartbeat.LowRecordThreshold = 3
	}
	if len(c.Heartbeat.ProviderPrefixes) == 0 {
		c.Heartbeat.ProviderPrefixes = []string{"sr:"}
	}
	if c.Heartbeat.SampleCap <= 0 {
		c.Heartbeat.SampleCap = 4320 // 12h of samples at the 10s default
	}
	if c.Heartbeat.RetainFor <= 0 {
		c.Heartbeat.RetainFor = 24 * time.Hour
	}
	if c.Adapters.Timeout <= 0 {
		c.Adapters.Timeout = 30 * time.Second
	}
	if c.Adapters.UserAgent == "" {
		c.Adapters.UserAgent = "oddspulse/1.0 (+https://github.com/oddspulse/oddspulse)"
	}
}

func (c *Config) Validate() error {
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	if c.Health.Port < 0 || c.Health.Port > 65535 {
		return fmt.Errorf("health.port out of range: %d", c.Health.Port)
	}
	if c.Scheduler.BackoffCeiling < c.Scheduler.Interval {
		return fmt.Errorf("scheduler.backoff_ceiling %v must not be below scheduler.interval %v",
			c.Scheduler.BackoffCeiling, c.Scheduler.Interval)
	}
	if len(c.Kafka.Brokers) > 0 && c.Kafka.Topic == "" {
		return fmt.Errorf("kafka.topic is required when kafka.brokers is set")
	}
	return nil
}
