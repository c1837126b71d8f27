package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/duynguyen020304/pz-manager-sub001/internal/models"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	NATS     NATSConfig     `mapstructure:"nats"`
	Watcher  WatcherConfig  `mapstructure:"watcher"`
	Stream   StreamConfig   `mapstructure:"stream"`
	Monitor  MonitorConfig  `mapstructure:"monitor"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	SSLMode  string `mapstructure:"sslmode"`
}

// ConnString builds the pgx connection string.
func (d DatabaseConfig) ConnString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Database, d.SSLMode)
}

type NATSConfig struct {
	// URL enables the stream mirror when non-empty.
	URL           string        `mapstructure:"url"`
	Name          string        `mapstructure:"name"`
	MaxReconnects int           `mapstructure:"max_reconnects"`
	ReconnectWait time.Duration `mapstructure:"reconnect_wait"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

type WatcherConfig struct {
	LogDir            string        `mapstructure:"log_dir"`
	BackupLogDir      string        `mapstructure:"backup_log_dir"`
	Servers           []string      `mapstructure:"servers"`
	Debounce          time.Duration `mapstructure:"debounce"`
	MinIngestInterval time.Duration `mapstructure:"min_ingest_interval"`
	ReappearPoll      time.Duration `mapstructure:"reappear_poll"`
	ReappearTimeout   time.Duration `mapstructure:"reappear_timeout"`
}

type StreamConfig struct {
	BufferSize int `mapstructure:"buffer_size"`
}

type MonitorConfig struct {
	Enabled                bool                   `mapstructure:"enabled"`
	PollingIntervalSeconds int                    `mapstructure:"polling_interval_seconds"`
	RetentionDays          int                    `mapstructure:"retention_days"`
	CPU                    models.MetricThreshold `mapstructure:"cpu"`
	Memory                 models.MetricThreshold `mapstructure:"memory"`
	Swap                   models.MetricThreshold `mapstructure:"swap"`
	Network                models.MetricThreshold `mapstructure:"network"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func Load(configPath string) (*Config, error) {
	v := viper.New()

	def := models.DefaultMonitorConfig()

	// Set defaults
	v.SetDefault("server.port", 8090)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.database", "pzlogs")
	v.SetDefault("database.user", "pzlogs")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("nats.name", "pzlogd")
	v.SetDefault("nats.max_reconnects", -1)
	v.SetDefault("nats.reconnect_wait", "2s")
	v.SetDefault("nats.timeout", "5s")
	v.SetDefault("watcher.log_dir", "/var/log/zomboid/Logs")
	v.SetDefault("watcher.backup_log_dir", "/var/log/pz-manager")
	v.SetDefault("watcher.debounce", "1s")
	v.SetDefault("watcher.min_ingest_interval", "2s")
	v.SetDefault("watcher.reappear_poll", "500ms")
	v.SetDefault("watcher.reappear_timeout", "60s")
	v.SetDefault("stream.buffer_size", 500)
	v.SetDefault("monitor.enabled", def.Enabled)
	v.SetDefault("monitor.polling_interval_seconds", def.PollingIntervalSeconds)
	v.SetDefault("monitor.retention_days", def.RetentionDays)
	v.SetDefault("monitor.cpu.spike_threshold_percent", def.CPU.SpikeThresholdPercent)
	v.SetDefault("monitor.cpu.sustained_seconds", def.CPU.SustainedSeconds)
	v.SetDefault("monitor.cpu.critical_threshold", def.CPU.CriticalThreshold)
	v.SetDefault("monitor.memory.spike_threshold_percent", def.Memory.SpikeThresholdPercent)
	v.SetDefault("monitor.memory.sustained_seconds", def.Memory.SustainedSeconds)
	v.SetDefault("monitor.memory.critical_threshold", def.Memory.CriticalThreshold)
	v.SetDefault("monitor.swap.spike_threshold_percent", def.Swap.SpikeThresholdPercent)
	v.SetDefault("monitor.swap.sustained_seconds", def.Swap.SustainedSeconds)
	v.SetDefault("monitor.swap.critical_threshold", def.Swap.CriticalThreshold)
	v.SetDefault("monitor.network.spike_threshold_percent", def.Network.SpikeThresholdPercent)
	v.SetDefault("monitor.network.sustained_seconds", def.Network.SustainedSeconds)
	v.SetDefault("monitor.network.critical_threshold", def.Network.CriticalThreshold)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Read config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/pzlogd")
	}

	// Environment variables override (PZLOG_SERVER_PORT, etc.)
	v.SetEnvPrefix("PZLOG")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found; use defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// MonitorDefaults converts the file-level monitor section into the runtime
// config used when no row exists in storage yet.
func (c *Config) MonitorDefaults() models.MonitorConfig {
	return models.MonitorConfig{
		Enabled:                c.Monitor.Enabled,
		PollingIntervalSeconds: c.Monitor.PollingIntervalSeconds,
		RetentionDays:          c.Monitor.RetentionDays,
		CPU:                    c.Monitor.CPU,
		Memory:                 c.Monitor.Memory,
		Swap:                   c.Monitor.Swap,
		Network:                c.Monitor.Network,
	}
}
