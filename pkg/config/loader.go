// Package config provides configuration loading and validation utilities.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	validator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const defaultConfigDir = "./configs"

// Load reads configuration from ./configs/<APP_ENV>.yaml and environment variables.
func Load() (*Config, *viper.Viper, error) {
	return LoadFrom(defaultConfigDir)
}

// LoadFrom reads <dir>/<APP_ENV>.yaml, applies env overrides and defaults, validates it and returns the resulting Config.
func LoadFrom(dir string) (*Config, *viper.Viper, error) {
	if err := godotenv.Load(".env.local", ".env"); err != nil {
		// env files are optional
		_ = err
	}

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(filepath.Join(dir, fmt.Sprintf("%s.yaml", env)))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, nil, fmt.Errorf("read config: %w", err)
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, nil, err
	}
	cfg.AppEnv = env

	return cfg, v, nil
}

// Watch re-decodes the configuration whenever the file changes and hands valid results to onChange.
func Watch(v *viper.Viper, onChange func(*Config)) {
	if v == nil || onChange == nil {
		return
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		if e.Op&(fsnotify.Write|fsnotify.Create) == 0 {
			return
		}

		cfg, err := decode(v)
		if err != nil {
			return
		}
		cfg.AppEnv = v.GetString("app_env")
		onChange(cfg)
	})
	v.WatchConfig()
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	if err := cfg.checkDependencies(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
	v.SetDefault("logger.file", "")
	v.SetDefault("logger.max_size_mb", 50)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age_days", 14)

	v.SetDefault("bot.token", "")
	v.SetDefault("bot.mode", "polling")
	v.SetDefault("bot.timeout", 10*time.Second)
	v.SetDefault("bot.webhook_url", "")
	v.SetDefault("bot.listen", ":8443")

	v.SetDefault("sheets.credentials_file", "credentials.json")
	v.SetDefault("sheets.url", "")
	v.SetDefault("sheets.catalog_sheet", "")
	v.SetDefault("sheets.catalog_sheet_index", 0)
	v.SetDefault("sheets.leads_sheet", "")
	v.SetDefault("sheets.leads_sheet_index", 1)
	v.SetDefault("sheets.request_timeout_ms", 15000)

	v.SetDefault("catalog.source", "sheets")
	v.SetDefault("catalog.csv_path", "")
	v.SetDefault("catalog.columns.direction", "Направление")
	v.SetDefault("catalog.columns.course_type", "Тип курса")
	v.SetDefault("catalog.columns.course_name", "Название курса")
	v.SetDefault("catalog.columns.course_link", "Ссылка на курс")
	v.SetDefault("catalog.labels.free", "Бесплатные")
	v.SetDefault("catalog.labels.paid", "Платные")

	v.SetDefault("form.language", "ru")
	v.SetDefault("form.max_course_options", 5)

	v.SetDefault("session.idle_ttl", time.Duration(0))
	v.SetDefault("session.sweep_interval", 10*time.Minute)

	v.SetDefault("leads.sink", "sheets")
	v.SetDefault("leads.policy", "best_effort")
	v.SetDefault("leads.timeout", 10*time.Second)
	v.SetDefault("leads.retry.max_retries", 3)
	v.SetDefault("leads.retry.initial_backoff", 200*time.Millisecond)
	v.SetDefault("leads.retry.max_backoff", 5*time.Second)
	v.SetDefault("leads.queue.name", "leads")
	v.SetDefault("leads.queue.max_retry", 10)
	v.SetDefault("leads.queue.concurrency", 2)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 2)
	v.SetDefault("redis.pool_timeout", 4*time.Second)
	v.SetDefault("redis.idle_timeout", 5*time.Minute)
	v.SetDefault("redis.max_retries", 3)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 5)
	v.SetDefault("database.migrations_dir", "")

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.per_user.limit", 30)
	v.SetDefault("rate_limit.per_user.window", "1m")

	v.SetDefault("sentry.enabled", false)
	v.SetDefault("sentry.dsn", "")
	v.SetDefault("sentry.environment", "")
	v.SetDefault("sentry.sample_rate", 1.0)

	v.SetDefault("server.enabled", true)
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
}
