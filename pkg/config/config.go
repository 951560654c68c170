package config

import (
	"fmt"
	"time"
)

// Config holds runtime configuration for the course intake bot.
type Config struct {
	AppEnv    string          `mapstructure:"app_env"`
	Logger    LoggerConfig    `mapstructure:"logger"`
	Bot       BotConfig       `mapstructure:"bot" validate:"required"`
	Sheets    SheetsConfig    `mapstructure:"sheets"`
	Catalog   CatalogConfig   `mapstructure:"catalog" validate:"required"`
	Form      FormConfig      `mapstructure:"form" validate:"required"`
	Session   SessionConfig   `mapstructure:"session"`
	Leads     LeadsConfig     `mapstructure:"leads" validate:"required"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Database  DatabaseConfig  `mapstructure:"database"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Sentry    SentryConfig    `mapstructure:"sentry"`
	Server    ServerConfig    `mapstructure:"server"`
}

type LoggerConfig struct {
	Level      string `mapstructure:"level" validate:"omitempty,oneof=debug info warn error"`
	Format     string `mapstructure:"format" validate:"omitempty,oneof=json text"`
	// File enables size-based rotation when set; stdout is used otherwise.
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

type BotConfig struct {
	Token      string        `mapstructure:"token" validate:"required"`
	Mode       string        `mapstructure:"mode" validate:"oneof=polling webhook"`
	Timeout    time.Duration `mapstructure:"timeout"`
	WebhookURL string        `mapstructure:"webhook_url" validate:"required_if=Mode webhook"`
	Listen     string        `mapstructure:"listen"`
}

type SheetsConfig struct {
	CredentialsFile  string `mapstructure:"credentials_file"`
	// URL accepts a full spreadsheet link or a bare spreadsheet id.
	URL              string `mapstructure:"url"`
	CatalogSheet     string `mapstructure:"catalog_sheet"`
	CatalogSheetIdx  int    `mapstructure:"catalog_sheet_index" validate:"gte=0"`
	LeadsSheet       string `mapstructure:"leads_sheet"`
	LeadsSheetIdx    int    `mapstructure:"leads_sheet_index" validate:"gte=0"`
	RequestTimeoutMS int    `mapstructure:"request_timeout_ms"`
}

// RequestTimeout returns the per-call deadline for spreadsheet requests.
func (c SheetsConfig) RequestTimeout() time.Duration {
	if c.RequestTimeoutMS <= 0 {
		return 15 * time.Second
	}
	return time.Duration(c.RequestTimeoutMS) * time.Millisecond
}

type CatalogConfig struct {
	Source  string         `mapstructure:"source" validate:"oneof=sheets csv"`
	CSVPath string         `mapstructure:"csv_path" validate:"required_if=Source csv"`
	Columns ColumnsConfig  `mapstructure:"columns"`
	Labels  CourseTypeConf `mapstructure:"labels"`
}

type ColumnsConfig struct {
	Direction  string `mapstructure:"direction" validate:"required"`
	CourseType string `mapstructure:"course_type" validate:"required"`
	CourseName string `mapstructure:"course_name" validate:"required"`
	CourseLink string `mapstructure:"course_link" validate:"required"`
}

type CourseTypeConf struct {
	Free string `mapstructure:"free" validate:"required"`
	Paid string `mapstructure:"paid" validate:"required,nefield=Free"`
}

type FormConfig struct {
	Language         string `mapstructure:"language" validate:"omitempty,oneof=ru en"`
	MaxCourseOptions int    `mapstructure:"max_course_options" validate:"gte=1"`
}

type SessionConfig struct {
	// IdleTTL of zero keeps abandoned sessions for the process lifetime.
	IdleTTL       time.Duration `mapstructure:"idle_ttl"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

type LeadsConfig struct {
	Sink    string        `mapstructure:"sink" validate:"oneof=sheets postgres"`
	Policy  string        `mapstructure:"policy" validate:"oneof=best_effort retry queue"`
	Timeout time.Duration `mapstructure:"timeout"`
	Retry   RetryConfig   `mapstructure:"retry"`
	Queue   QueueConfig   `mapstructure:"queue"`
}

type RetryConfig struct {
	MaxRetries     int           `mapstructure:"max_retries" validate:"gte=0"`
	InitialBackoff time.Duration `mapstructure:"initial_backoff"`
	MaxBackoff     time.Duration `mapstructure:"max_backoff"`
}

type QueueConfig struct {
	Name        string `mapstructure:"name"`
	MaxRetry    int    `mapstructure:"max_retry" validate:"gte=0"`
	Concurrency int    `mapstructure:"concurrency" validate:"gte=0"`
}

type RedisConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Addr         string        `mapstructure:"addr" validate:"required_if=Enabled true"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	PoolTimeout  time.Duration `mapstructure:"pool_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	MaxRetries   int           `mapstructure:"max_retries"`
}

type DatabaseConfig struct {
	Host          string `mapstructure:"host"`
	Port          string `mapstructure:"port"`
	User          string `mapstructure:"user"`
	Password      string `mapstructure:"password"`
	Name          string `mapstructure:"name"`
	SSLMode       string `mapstructure:"sslmode"`
	// MaxOpenConns of zero leaves the database/sql default.
	MaxOpenConns  int    `mapstructure:"max_open_conns" validate:"gte=0"`
	// MigrationsDir overrides the migrations embedded in the binary.
	MigrationsDir string `mapstructure:"migrations_dir"`
}

// DSN returns the PostgreSQL connection string based on config values.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host,
		c.Port,
		c.User,
		c.Password,
		c.Name,
		c.SSLMode,
	)
}

type RateLimitConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	PerUser   RateLimitRule `mapstructure:"per_user"`
	Whitelist []int64       `mapstructure:"whitelist"`
}

type RateLimitRule struct {
	Limit  int    `mapstructure:"limit" validate:"gte=0"`
	Window string `mapstructure:"window"`
}

type SentryConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	DSN         string  `mapstructure:"dsn" validate:"required_if=Enabled true"`
	Environment string  `mapstructure:"environment"`
	SampleRate  float64 `mapstructure:"sample_rate" validate:"gte=0,lte=1"`
}

type ServerConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// checkDependencies validates settings that span several sections.
func (c *Config) checkDependencies() error {
	usesSheets := c.Catalog.Source == "sheets" || c.Leads.Sink == "sheets"
	if usesSheets && c.Sheets.URL == "" {
		return fmt.Errorf("sheets.url is required when catalog.source or leads.sink is sheets")
	}

	if c.Leads.Sink == "postgres" && (c.Database.User == "" || c.Database.Name == "") {
		return fmt.Errorf("database.user and database.name are required for the postgres lead sink")
	}

	if c.Leads.Policy == "queue" && !c.Redis.Enabled {
		return fmt.Errorf("leads.policy=queue requires redis.enabled")
	}

	return nil
}
