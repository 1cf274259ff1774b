// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	SolverBus SolverBusConfig `mapstructure:"solver_bus"`
	Oracle    OracleConfig    `mapstructure:"oracle"`
	Monitor   MonitorConfig   `mapstructure:"monitor"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
}

// SolverBusConfig holds solver bus endpoints and connection tuning.
type SolverBusConfig struct {
	RPCURL          string        `mapstructure:"rpc_url"`
	WebSocketURL    string        `mapstructure:"websocket_url"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	InitialBackoff  time.Duration `mapstructure:"initial_backoff"`
	MaxBackoff      time.Duration `mapstructure:"max_backoff"`
	MaxReconnects   int           `mapstructure:"max_reconnects"`
	QuotesPerMinute int           `mapstructure:"quotes_per_minute"`
	DispatchWorkers int           `mapstructure:"dispatch_workers"`
	DispatchBuffer  int           `mapstructure:"dispatch_buffer"`
	MinDeadline     time.Duration `mapstructure:"min_deadline"`
	MinValidity     time.Duration `mapstructure:"min_validity"`
	Topics          []string      `mapstructure:"topics"`
	SigningKey      string        `mapstructure:"signing_key"`
}

// OracleConfig holds price oracle settings.
type OracleConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	BreakerMaxFail uint32        `mapstructure:"breaker_max_failures"`
	BreakerCooloff time.Duration `mapstructure:"breaker_cooloff"`
}

// MonitorConfig holds limit-order monitor settings.
type MonitorConfig struct {
	DefaultCheckInterval time.Duration `mapstructure:"default_check_interval"`
	ExecutingGrace       time.Duration `mapstructure:"executing_grace"`
	StatusPollInterval   time.Duration `mapstructure:"status_poll_interval"`
	StatusWaitTimeout    time.Duration `mapstructure:"status_wait_timeout"`
}

// TelemetryConfig holds observability configuration.
type TelemetryConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	ServiceName    string `mapstructure:"service_name"`
	OTLPEndpoint   string `mapstructure:"otlp_endpoint"`
	PrometheusPort int    `mapstructure:"prometheus_port"`
	HealthPort     int    `mapstructure:"health_port"`
}

// Load loads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables
	v.SetEnvPrefix("INTENTS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindEnvVars(v)
	setDefaults(v)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, use env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func bindEnvVars(v *viper.Viper) {
	// App
	v.BindEnv("app.name", "INTENTS_APP_NAME", "SERVICE_NAME")
	v.BindEnv("app.environment", "INTENTS_ENVIRONMENT", "ENVIRONMENT")
	v.BindEnv("app.log_level", "INTENTS_LOG_LEVEL", "LOG_LEVEL")

	// Solver bus
	v.BindEnv("solver_bus.rpc_url", "INTENTS_BUS_RPC_URL", "SOLVER_BUS_RPC_URL")
	v.BindEnv("solver_bus.websocket_url", "INTENTS_BUS_WS_URL", "SOLVER_BUS_WS_URL")
	v.BindEnv("solver_bus.signing_key", "INTENTS_SIGNING_KEY", "SIGNING_KEY")

	// Oracle
	v.BindEnv("oracle.base_url", "INTENTS_ORACLE_URL", "PRICE_ORACLE_URL")

	// Telemetry
	v.BindEnv("telemetry.enabled", "INTENTS_OTEL_ENABLED", "OTEL_ENABLED")
	v.BindEnv("telemetry.service_name", "INTENTS_OTEL_SERVICE_NAME", "OTEL_SERVICE_NAME")
	v.BindEnv("telemetry.otlp_endpoint", "INTENTS_OTEL_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "intents-agent")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	// Solver bus defaults
	v.SetDefault("solver_bus.request_timeout", "10s")
	v.SetDefault("solver_bus.initial_backoff", "1s")
	v.SetDefault("solver_bus.max_backoff", "30s")
	v.SetDefault("solver_bus.max_reconnects", 0) // infinite
	v.SetDefault("solver_bus.quotes_per_minute", 120)
	v.SetDefault("solver_bus.dispatch_workers", 8)
	v.SetDefault("solver_bus.dispatch_buffer", 256)
	v.SetDefault("solver_bus.min_deadline", "60s")
	v.SetDefault("solver_bus.min_validity", "15s")
	// Both push streams: intent status updates and incoming quote requests.
	v.SetDefault("solver_bus.topics", []string{"quote_status", "quote"})

	// Oracle defaults
	v.SetDefault("oracle.request_timeout", "5s")
	v.SetDefault("oracle.breaker_max_failures", 5)
	v.SetDefault("oracle.breaker_cooloff", "30s")

	// Monitor defaults
	v.SetDefault("monitor.default_check_interval", "10s")
	v.SetDefault("monitor.executing_grace", "2m")
	v.SetDefault("monitor.status_poll_interval", "2s")
	v.SetDefault("monitor.status_wait_timeout", "1m")

	// Telemetry defaults
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "intents-agent")
	v.SetDefault("telemetry.prometheus_port", 9090)
	v.SetDefault("telemetry.health_port", 8081)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.SolverBus.RPCURL == "" {
		return fmt.Errorf("solver_bus.rpc_url is required")
	}
	if c.SolverBus.WebSocketURL == "" {
		return fmt.Errorf("solver_bus.websocket_url is required")
	}
	if c.Oracle.BaseURL == "" {
		return fmt.Errorf("oracle.base_url is required")
	}
	if c.Monitor.DefaultCheckInterval <= 0 {
		return fmt.Errorf("monitor.default_check_interval must be positive")
	}
	if c.SolverBus.DispatchWorkers <= 0 {
		return fmt.Errorf("solver_bus.dispatch_workers must be positive")
	}
	return nil
}
