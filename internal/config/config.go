package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// PathEnvVar names the optional YAML file layered between defaults and the environment.
const PathEnvVar = "CONFIG_PATH"

// Config captures all runtime configuration. Keys match the lower-cased environment
// variable names, so DB_URL and a YAML `db_url:` entry set the same field.
type Config struct {
	Port               string   `koanf:"port"`
	AuthJWTSecret      string   `koanf:"auth_jwt_secret"`
	DBURL              string   `koanf:"db_url"`
	DatasetURL         string   `koanf:"dataset_url"`
	DatasetAPIKey      string   `koanf:"dataset_api_key"`
	DatasetTimeoutSecs int      `koanf:"dataset_timeout_secs"`
	ReadTimeoutSecs    int      `koanf:"server_read_timeout"`
	WriteTimeoutSecs   int      `koanf:"server_write_timeout"`
	IdleTimeoutSecs    int      `koanf:"server_idle_timeout"`
	DBMaxConns         int      `koanf:"db_max_conns"`
	DBMinConns         int      `koanf:"db_min_conns"`
	DBMaxIdleSecs      int      `koanf:"db_max_conn_idle_secs"`
	DBMaxLifeSecs      int      `koanf:"db_max_conn_lifetime_secs"`
	DBConnTimeoutSecs  int      `koanf:"db_conn_timeout_secs"`
	DBStatementCache   int      `koanf:"db_statement_cache_capacity"`
	LogLevel           string   `koanf:"log_level"`
	LogFormat          string   `koanf:"log_format"`
	CORSOrigins        []string `koanf:"cors_origins"`
	RateLimitPerMinute int      `koanf:"rate_limit_per_minute"`
	AnalyticsCache     bool     `koanf:"analytics_cache"`
	KernelWidth        float64  `koanf:"analytics_kernel_width"`
	KernelScale        float64  `koanf:"analytics_kernel_scale"`
	ChangefeedBuffer   int      `koanf:"changefeed_buffer"`
	MinioEndpoint      string   `koanf:"minio_endpoint"`
	MinioAccessKey     string   `koanf:"minio_access_key"`
	MinioSecretKey     string   `koanf:"minio_secret_key"`
	MinioBucket        string   `koanf:"minio_bucket"`
	MinioUseSSL        bool     `koanf:"minio_use_ssl"`
	MinioPublicURL     string   `koanf:"minio_public_url"`
}

func defaults() Config {
	return Config{
		Port:               "8080",
		DatasetTimeoutSecs: 5,
		ReadTimeoutSecs:    15,
		WriteTimeoutSecs:   15,
		IdleTimeoutSecs:    60,
		DBMaxConns:         20,
		DBMinConns:         2,
		DBMaxIdleSecs:      300,
		DBMaxLifeSecs:      3600,
		DBConnTimeoutSecs:  10,
		DBStatementCache:   256,
		LogLevel:           "info",
		LogFormat:          "json",
		CORSOrigins:        []string{"*"},
		RateLimitPerMinute: 60,
		AnalyticsCache:     true,
		KernelWidth:        4,
		KernelScale:        2.5,
		ChangefeedBuffer:   64,
		MinioBucket:        "movie-posters",
		MinioUseSSL:        true,
	}
}

// Load reads configuration from defaults, an optional YAML file and environment variables
// (in increasing priority), then validates it.
func Load() (Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaults(), "koanf"), nil); err != nil {
		return Config{}, fmt.Errorf("load defaults: %w", err)
	}

	if path := os.Getenv(PathEnvVar); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	// Empty variables are ignored so they fall back to lower layers.
	envProvider := env.ProviderWithValue("", ".", func(key, value string) (string, interface{}) {
		if value == "" {
			return "", nil
		}
		key = strings.ToLower(key)
		if key == "cors_origins" {
			return key, splitList(value)
		}
		return key, value
	})
	if err := k.Load(envProvider, nil); err != nil {
		return Config{}, fmt.Errorf("load environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("decode configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks required settings and numeric bounds.
func (cfg Config) Validate() error {
	if cfg.AuthJWTSecret == "" {
		return fmt.Errorf("AUTH_JWT_SECRET is required")
	}
	if cfg.DBURL == "" {
		return fmt.Errorf("DB_URL is required")
	}
	if cfg.DatasetURL != "" && cfg.DatasetAPIKey == "" {
		return fmt.Errorf("DATASET_API_KEY is required when DATASET_URL is set")
	}
	if cfg.DatasetTimeoutSecs <= 0 {
		return fmt.Errorf("DATASET_TIMEOUT_SECS must be positive")
	}
	if cfg.DBMaxConns <= 0 {
		return fmt.Errorf("DB_MAX_CONNS must be positive")
	}
	if cfg.DBMinConns < 0 {
		return fmt.Errorf("DB_MIN_CONNS must be non-negative")
	}
	if cfg.DBMaxConns > 0 && cfg.DBMinConns > cfg.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS cannot exceed DB_MAX_CONNS")
	}
	if cfg.DBStatementCache < 0 {
		return fmt.Errorf("DB_STATEMENT_CACHE_CAPACITY must be non-negative")
	}
	if cfg.RateLimitPerMinute < 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be non-negative")
	}
	if cfg.KernelWidth <= 0 {
		return fmt.Errorf("ANALYTICS_KERNEL_WIDTH must be positive")
	}
	if cfg.KernelScale <= 0 {
		return fmt.Errorf("ANALYTICS_KERNEL_SCALE must be positive")
	}
	if cfg.ChangefeedBuffer < 0 {
		return fmt.Errorf("CHANGEFEED_BUFFER must be non-negative")
	}
	if cfg.MinioEndpoint != "" && (cfg.MinioAccessKey == "" || cfg.MinioSecretKey == "") {
		return fmt.Errorf("MINIO_ACCESS_KEY and MINIO_SECRET_KEY are required when MINIO_ENDPOINT is set")
	}
	return nil
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
