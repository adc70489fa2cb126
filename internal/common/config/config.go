// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig          `mapstructure:"app"`
	Database      DatabaseConfig     `mapstructure:"database"`
	Crawler       CrawlerConfig      `mapstructure:"crawler"`
	RateLimit     RateLimitConfig    `mapstructure:"rate_limit"`
	AI            AIConfig           `mapstructure:"ai"`
	Quality       QualityConfig      `mapstructure:"quality"`
	Notifications NotificationConfig `mapstructure:"notifications"`
	Logging       LoggingConfig      `mapstructure:"logging"`
	Metrics       MetricsConfig      `mapstructure:"metrics"`
}

// --- Core App/Infrastructure Config ---

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string.
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	JobsIndex string   `mapstructure:"jobs_index"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// --- Crawl Configuration ---

// SourceConfig describes one crawled listing site plus the search tuples the
// scheduler fans out over.
type SourceConfig struct {
	Name       string   `mapstructure:"name"`
	BaseURL    string   `mapstructure:"base_url"`
	Format     string   `mapstructure:"format"` // "html" or "json"
	Keywords   []string `mapstructure:"keywords"`
	Locations  []string `mapstructure:"locations"`
	Country    string   `mapstructure:"country"`
	Category   string   `mapstructure:"category"`
}

type CrawlerConfig struct {
	Sources             []SourceConfig `mapstructure:"sources"`
	PageSize            int            `mapstructure:"page_size"`
	MaxPages            int            `mapstructure:"max_pages"`
	FreshnessWindowDays int            `mapstructure:"freshness_window_days"`
	ExtractConcurrency  int            `mapstructure:"extract_concurrency"`
	BatchDelayMs        int            `mapstructure:"batch_delay_ms"`
	NavigationTimeoutMs int            `mapstructure:"navigation_timeout_ms"`
	MaxConsecutiveFails int            `mapstructure:"max_consecutive_fails"`
	CronSpec            string         `mapstructure:"cron_spec"`
}

// --- Rate Limit Configuration ---

type RateLimitConfig struct {
	MaxRequestsPerMinute int     `mapstructure:"max_requests_per_minute"`
	MaxRequestsPerHour   int     `mapstructure:"max_requests_per_hour"`
	BaseDelayMs          int     `mapstructure:"base_delay_ms"`
	MaxDelayMs           int     `mapstructure:"max_delay_ms"`
	BackoffMultiplier    float64 `mapstructure:"backoff_multiplier"`
}

// --- AI Enrichment Configuration ---

type ProviderConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
}

type AIConfig struct {
	// ProviderOrder is the caller-configured preference order; configured
	// providers not listed here are appended as fallbacks.
	ProviderOrder []string                  `mapstructure:"provider_order"`
	TimeoutMs     int                       `mapstructure:"timeout_ms"`
	Providers     map[string]ProviderConfig `mapstructure:"providers"`
}

// --- Quality Policy ---

// QualityBonuses are the deterministic additions to the AI quality score.
// Values are policy, not contract; defaults match the historical constants.
type QualityBonuses struct {
	TitleLength  float64 `mapstructure:"title_length"`
	KnownCompany float64 `mapstructure:"known_company"`
	CityPresent  float64 `mapstructure:"city_present"`
	SourceDomain float64 `mapstructure:"source_domain"`
	RemoteFlag   float64 `mapstructure:"remote_flag"`
}

type QualityConfig struct {
	Threshold     float64        `mapstructure:"threshold"`
	Bonuses       QualityBonuses `mapstructure:"bonuses"`
	SourceDomains []string       `mapstructure:"source_domains"`
}

// --- Notifications ---

type NotificationConfig struct {
	AWS struct {
		Region string `mapstructure:"region"`
		SNS    struct {
			Enabled  bool   `mapstructure:"enabled"`
			TopicARN string `mapstructure:"topic_arn"`
		} `mapstructure:"sns"`
		SES struct {
			Enabled   bool   `mapstructure:"enabled"`
			FromEmail string `mapstructure:"from_email"`
			ToEmail   string `mapstructure:"to_email"`
		} `mapstructure:"ses"`
	} `mapstructure:"aws"`
}

// --- Logging / Metrics ---

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Address string `mapstructure:"address"`
}
