package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Helpdesk HelpdeskConfig `mapstructure:"helpdesk"`
	Report   ReportConfig   `mapstructure:"report"`
}

type ServerConfig struct {
	Port int        `mapstructure:"port"`
	Mode string     `mapstructure:"mode"`
	CORS CORSConfig `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
	AllowAllOrigins bool     `mapstructure:"allow_all_origins"`
}

// HelpdeskConfig configures the outbound helpdesk API client.
type HelpdeskConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	Token             string        `mapstructure:"token"`
	DefaultTimeout    time.Duration `mapstructure:"default_timeout"`
	MinTimeout        time.Duration `mapstructure:"min_timeout"`
	MaxTimeout        time.Duration `mapstructure:"max_timeout"`
	SafetyMargin      time.Duration `mapstructure:"safety_margin"`
	MaxAttempts       int           `mapstructure:"max_attempts"`
	BackoffBase       time.Duration `mapstructure:"backoff_base"`
	SlowCallThreshold time.Duration `mapstructure:"slow_call_threshold"`
}

// ReportConfig configures the step scheduler and job registry.
type ReportConfig struct {
	StepBudget       time.Duration `mapstructure:"step_budget"`
	StepSafetyMargin time.Duration `mapstructure:"step_safety_margin"`
	MinCallWindow    time.Duration `mapstructure:"min_call_window"`
	PageSize         int           `mapstructure:"page_size"`
	ContactBatchSize int           `mapstructure:"contact_batch_size"`
	DirectoryTTL     time.Duration `mapstructure:"directory_ttl"`
	ContactTTL       time.Duration `mapstructure:"contact_ttl"`
	JobTTL           time.Duration `mapstructure:"job_ttl"`
	MaxTimeoutStreak int           `mapstructure:"max_timeout_streak"`
	MaxPageSize      int           `mapstructure:"max_page_size"`
}

func Load(configPath string) (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.cors.allow_all_origins", true)
	v.SetDefault("server.cors.allowed_origins", []string{})

	v.SetDefault("helpdesk.base_url", "https://api.intercom.io")
	v.SetDefault("helpdesk.default_timeout", "10s")
	v.SetDefault("helpdesk.min_timeout", "2s")
	v.SetDefault("helpdesk.max_timeout", "15s")
	v.SetDefault("helpdesk.safety_margin", "1250ms")
	v.SetDefault("helpdesk.max_attempts", 3)
	v.SetDefault("helpdesk.backoff_base", "1s")
	v.SetDefault("helpdesk.slow_call_threshold", "5s")

	v.SetDefault("report.step_budget", "20s")
	v.SetDefault("report.step_safety_margin", "1250ms")
	v.SetDefault("report.min_call_window", "3s")
	v.SetDefault("report.page_size", 50)
	v.SetDefault("report.contact_batch_size", 25)
	v.SetDefault("report.directory_ttl", "10m")
	v.SetDefault("report.contact_ttl", "1h")
	v.SetDefault("report.job_ttl", "10m")
	v.SetDefault("report.max_timeout_streak", 3)
	v.SetDefault("report.max_page_size", 200)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Bind environment variables explicitly for sensitive data
	v.BindEnv("helpdesk.base_url", "HELPDESK_BASE_URL")
	v.BindEnv("helpdesk.token", "HELPDESK_TOKEN")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}
