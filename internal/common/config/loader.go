// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load reads configs/config.yaml, overlays config.<env>.yaml, expands ${VAR}
// placeholders and applies environment overrides before validating.
func Load() (*Config, error) {
	loadEnvFile()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath("../../configs")
	viper.AddConfigPath(".")

	// Enable ENV override like OPENAI_API_KEY.
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	viper.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = viper.MergeInConfig() // ignore error if not found

	expandEnvVars(viper.GetViper())

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// loadEnvFile probes the usual locations so the binary works from the repo
// root, cmd/ directories and test packages alike.
func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
		"../../../.env",
	}

	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// findProjectRoot walks up directories looking for go.mod.
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

// expandEnvVars resolves ${VAR} placeholders in string config values.
func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		val := v.Get(key)

		if strVal, ok := val.(string); ok {
			if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
				expanded := os.ExpandEnv(strVal)
				if expanded != strVal && expanded != "" {
					v.Set(key, expanded)
				}
			}
		}
	}
}

// overrideEmptyConfig applies direct environment fallbacks for credentials
// that are commonly supplied outside the YAML files.
func overrideEmptyConfig(cfg *Config) {
	if cfg.AI.Providers == nil {
		cfg.AI.Providers = map[string]ProviderConfig{}
	}

	applyProviderEnv(cfg, "openai", "OPENAI_API_KEY")
	applyProviderEnv(cfg, "gemini", "GEMINI_API_KEY")

	if cfg.Database.Postgres.Password == "" {
		if val := os.Getenv("POSTGRES_PASSWORD"); val != "" {
			cfg.Database.Postgres.Password = val
		}
	}
	if cfg.Database.Redis.Password == "" {
		if val := os.Getenv("REDIS_PASSWORD"); val != "" {
			cfg.Database.Redis.Password = val
		}
	}
	if cfg.Database.Elasticsearch.Password == "" {
		if val := os.Getenv("ELASTICSEARCH_PASSWORD"); val != "" {
			cfg.Database.Elasticsearch.Password = val
		}
	}
}

func applyProviderEnv(cfg *Config, name, envKey string) {
	p := cfg.AI.Providers[name]
	if p.APIKey == "" {
		if val := os.Getenv(envKey); val != "" {
			p.APIKey = val
			cfg.AI.Providers[name] = p
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "job-ingest-pipeline"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "console"
	}

	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 10
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}
	if cfg.Database.Elasticsearch.JobsIndex == "" {
		cfg.Database.Elasticsearch.JobsIndex = "jobs"
	}

	if cfg.Crawler.PageSize == 0 {
		cfg.Crawler.PageSize = 25
	}
	if cfg.Crawler.MaxPages == 0 {
		cfg.Crawler.MaxPages = 4
	}
	if cfg.Crawler.FreshnessWindowDays == 0 {
		cfg.Crawler.FreshnessWindowDays = 7
	}
	if cfg.Crawler.ExtractConcurrency == 0 {
		cfg.Crawler.ExtractConcurrency = 2
	}
	if cfg.Crawler.BatchDelayMs == 0 {
		cfg.Crawler.BatchDelayMs = 3000
	}
	if cfg.Crawler.NavigationTimeoutMs == 0 {
		cfg.Crawler.NavigationTimeoutMs = 30000
	}
	if cfg.Crawler.MaxConsecutiveFails == 0 {
		cfg.Crawler.MaxConsecutiveFails = 3
	}
	if cfg.Crawler.CronSpec == "" {
		cfg.Crawler.CronSpec = "@every 6h"
	}

	if cfg.RateLimit.MaxRequestsPerMinute == 0 {
		cfg.RateLimit.MaxRequestsPerMinute = 10
	}
	if cfg.RateLimit.MaxRequestsPerHour == 0 {
		cfg.RateLimit.MaxRequestsPerHour = 200
	}
	if cfg.RateLimit.BaseDelayMs == 0 {
		cfg.RateLimit.BaseDelayMs = 2000
	}
	if cfg.RateLimit.MaxDelayMs == 0 {
		cfg.RateLimit.MaxDelayMs = 300000
	}
	if cfg.RateLimit.BackoffMultiplier == 0 {
		cfg.RateLimit.BackoffMultiplier = 2.0
	}

	if cfg.AI.TimeoutMs == 0 {
		cfg.AI.TimeoutMs = 20000
	}

	if cfg.Quality.Threshold == 0 {
		cfg.Quality.Threshold = 0.5
	}
	if cfg.Quality.Bonuses == (QualityBonuses{}) {
		cfg.Quality.Bonuses = QualityBonuses{
			TitleLength:  0.1,
			KnownCompany: 0.1,
			CityPresent:  0.05,
			SourceDomain: 0.1,
			RemoteFlag:   0.05,
		}
	}

	if cfg.Metrics.Address == "" {
		cfg.Metrics.Address = ":9102"
	}
}

func validateConfig(cfg *Config) error {
	if cfg.RateLimit.MaxRequestsPerMinute <= 0 {
		return fmt.Errorf("rate_limit.max_requests_per_minute must be positive")
	}
	if cfg.RateLimit.MaxRequestsPerHour < cfg.RateLimit.MaxRequestsPerMinute {
		return fmt.Errorf("rate_limit.max_requests_per_hour must be >= max_requests_per_minute")
	}
	if cfg.Quality.Threshold < 0 || cfg.Quality.Threshold > 1 {
		return fmt.Errorf("quality.threshold must be within [0,1]")
	}
	for i, src := range cfg.Crawler.Sources {
		if src.Name == "" {
			return fmt.Errorf("crawler.sources[%d].name is required", i)
		}
		if src.BaseURL == "" {
			return fmt.Errorf("crawler.sources[%d].base_url is required", i)
		}
	}
	return nil
}
