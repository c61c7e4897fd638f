package common

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Owner    string         `yaml:"owner"`
	Database DatabaseConfig `yaml:"database"`
	Server   ServerConfig   `yaml:"server"`
	OCR      OCRConfig      `yaml:"ocr"`
	Ingest   IngestConfig   `yaml:"ingest"`
	Notify   NotifyConfig   `yaml:"notify"`
	Search   SearchConfig   `yaml:"search"`
}

// DatabaseConfig holds database-related configuration.
// An empty DSN selects the embedded SQLite database at SQLitePath.
type DatabaseConfig struct {
	DSN              string        `yaml:"dsn"`
	SQLitePath       string        `yaml:"sqlite_path"`
	MaxConns         int32         `yaml:"max_conns"`
	MinConns         int32         `yaml:"min_conns"`
	MaxConnLifetime  time.Duration `yaml:"max_conn_lifetime"`
	MaxConnIdleTime  time.Duration `yaml:"max_conn_idle_time"`
	DialTimeout      time.Duration `yaml:"dial_timeout"`
	StatementTimeout time.Duration `yaml:"statement_timeout"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	GRPCAddr    string   `yaml:"grpc_addr"`
	HTTPAddr    string   `yaml:"http_addr"`
	CORSOrigins []string `yaml:"cors_origins"`
}

// OCRConfig holds OCR-related configuration
type OCRConfig struct {
	HeicConverter string        `yaml:"heic_converter"`
	TessdataDir   string        `yaml:"tessdata_dir"`
	Language      string        `yaml:"language"`
	MaxFileBytes  int64         `yaml:"max_file_bytes"`
	Timeout       time.Duration `yaml:"timeout"`
	CacheTTL      time.Duration `yaml:"cache_ttl"`
	RatePerSecond float64       `yaml:"rate_per_second"`
	Burst         int           `yaml:"burst"`
}

// IngestConfig controls the label folder watcher and batch scans.
type IngestConfig struct {
	WatchDir  string `yaml:"watch_dir"`
	Workers   int    `yaml:"workers"`
	QueueSize int    `yaml:"queue_size"`
}

// NotifyConfig holds the e-mail digest settings.
type NotifyConfig struct {
	SMTPHost string `yaml:"smtp_host"`
	SMTPPort int    `yaml:"smtp_port"`
	From     string `yaml:"from"`
	Password string `yaml:"password"`
	To       string `yaml:"to"`
	At       string `yaml:"at"`
}

// SearchConfig enables the Meilisearch index when URL is set.
type SearchConfig struct {
	URL    string `yaml:"url"`
	APIKey string `yaml:"api_key"`
	Index  string `yaml:"index"`
}

// envKeys maps viper keys to the environment variables that feed them.
var envKeys = map[string]string{
	"owner":                       "EXPIRY_OWNER",
	"database.dsn":                "DB_URL",
	"database.sqlite_path":        "SQLITE_PATH",
	"database.max_conns":          "DB_MAX_CONNS",
	"database.min_conns":          "DB_MIN_CONNS",
	"database.max_conn_lifetime":  "DB_MAX_CONN_LIFETIME",
	"database.max_conn_idle_time": "DB_MAX_CONN_IDLE_TIME",
	"database.dial_timeout":       "DB_DIAL_TIMEOUT",
	"database.statement_timeout":  "DB_STATEMENT_TIMEOUT",
	"server.grpc_addr":            "GRPC_ADDR",
	"server.http_addr":            "HTTP_ADDR",
	"server.cors_origins":         "CORS_ORIGINS",
	"ocr.heic_converter":          "HEIC_CONVERTER",
	"ocr.tessdata_dir":            "TESSDATA_PREFIX",
	"ocr.language":                "OCR_LANG",
	"ocr.max_file_bytes":          "OCR_MAX_FILE_BYTES",
	"ocr.timeout":                 "OCR_TIMEOUT",
	"ocr.cache_ttl":               "OCR_CACHE_TTL",
	"ocr.rate_per_second":         "OCR_RATE",
	"ocr.burst":                   "OCR_BURST",
	"ingest.watch_dir":            "INGEST_DIR",
	"ingest.workers":              "INGEST_WORKERS",
	"ingest.queue_size":           "INGEST_QUEUE_SIZE",
	"notify.smtp_host":            "SMTP_HOST",
	"notify.smtp_port":            "SMTP_PORT",
	"notify.from":                 "EMAIL_ADDRESS",
	"notify.password":             "EMAIL_PASSWORD",
	"notify.to":                   "TO_EMAIL",
	"notify.at":                   "NOTIFY_AT",
	"search.url":                  "MEILI_URL",
	"search.api_key":              "MEILI_API_KEY",
	"search.index":                "MEILI_INDEX",
}

// SetDefaults registers defaults and environment bindings on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("owner", "")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.sqlite_path", "./expiry.db")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.max_conn_lifetime", 30*time.Minute)
	v.SetDefault("database.max_conn_idle_time", 5*time.Minute)
	v.SetDefault("database.dial_timeout", 3*time.Second)
	v.SetDefault("database.statement_timeout", time.Duration(0))
	v.SetDefault("server.grpc_addr", ":8080")
	v.SetDefault("server.http_addr", ":8081")
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("ocr.heic_converter", "magick")
	v.SetDefault("ocr.tessdata_dir", "")
	v.SetDefault("ocr.language", "eng")
	v.SetDefault("ocr.max_file_bytes", int64(50<<20))
	v.SetDefault("ocr.timeout", 60*time.Second)
	v.SetDefault("ocr.cache_ttl", 24*time.Hour)
	v.SetDefault("ocr.rate_per_second", 2.0)
	v.SetDefault("ocr.burst", 1)
	v.SetDefault("ingest.watch_dir", "")
	v.SetDefault("ingest.workers", 4)
	v.SetDefault("ingest.queue_size", 64)
	v.SetDefault("notify.smtp_host", "")
	v.SetDefault("notify.smtp_port", 587)
	v.SetDefault("notify.from", "")
	v.SetDefault("notify.password", "")
	v.SetDefault("notify.to", "")
	v.SetDefault("notify.at", "09:00")
	v.SetDefault("search.url", "")
	v.SetDefault("search.api_key", "")
	v.SetDefault("search.index", "products")

	for key, env := range envKeys {
		_ = v.BindEnv(key, env)
	}
}

// LoadConfig loads configuration from defaults and environment variables
func LoadConfig() *Config {
	v := viper.New()
	SetDefaults(v)
	return ConfigFrom(v)
}

// ConfigFrom builds a Config from an already populated viper instance
// (defaults, config file, env and bound flags).
func ConfigFrom(v *viper.Viper) *Config {
	return &Config{
		Owner: v.GetString("owner"),
		Database: DatabaseConfig{
			DSN:              v.GetString("database.dsn"),
			SQLitePath:       v.GetString("database.sqlite_path"),
			MaxConns:         v.GetInt32("database.max_conns"),
			MinConns:         v.GetInt32("database.min_conns"),
			MaxConnLifetime:  v.GetDuration("database.max_conn_lifetime"),
			MaxConnIdleTime:  v.GetDuration("database.max_conn_idle_time"),
			DialTimeout:      v.GetDuration("database.dial_timeout"),
			StatementTimeout: v.GetDuration("database.statement_timeout"),
		},
		Server: ServerConfig{
			GRPCAddr:    v.GetString("server.grpc_addr"),
			HTTPAddr:    v.GetString("server.http_addr"),
			CORSOrigins: splitList(v.GetStringSlice("server.cors_origins")),
		},
		OCR: OCRConfig{
			HeicConverter: v.GetString("ocr.heic_converter"),
			TessdataDir:   v.GetString("ocr.tessdata_dir"),
			Language:      v.GetString("ocr.language"),
			MaxFileBytes:  v.GetInt64("ocr.max_file_bytes"),
			Timeout:       v.GetDuration("ocr.timeout"),
			CacheTTL:      v.GetDuration("ocr.cache_ttl"),
			RatePerSecond: v.GetFloat64("ocr.rate_per_second"),
			Burst:         v.GetInt("ocr.burst"),
		},
		Ingest: IngestConfig{
			WatchDir:  v.GetString("ingest.watch_dir"),
			Workers:   v.GetInt("ingest.workers"),
			QueueSize: v.GetInt("ingest.queue_size"),
		},
		Notify: NotifyConfig{
			SMTPHost: v.GetString("notify.smtp_host"),
			SMTPPort: v.GetInt("notify.smtp_port"),
			From:     v.GetString("notify.from"),
			Password: v.GetString("notify.password"),
			To:       v.GetString("notify.to"),
			At:       v.GetString("notify.at"),
		},
		Search: SearchConfig{
			URL:    v.GetString("search.url"),
			APIKey: v.GetString("search.api_key"),
			Index:  v.GetString("search.index"),
		},
	}
}

// CORS_ORIGINS arrives from the environment as one comma separated string.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.Database.DSN == "" && c.Database.SQLitePath == "" {
		return NewAppError("CONFIG_ERROR", "DB_URL or SQLITE_PATH is required", ErrInvalidInput)
	}
	if c.Server.GRPCAddr == "" {
		return NewAppError("CONFIG_ERROR", "GRPC_ADDR is required", ErrInvalidInput)
	}
	if c.OCR.MaxFileBytes <= 0 {
		return NewAppError("CONFIG_ERROR", "OCR_MAX_FILE_BYTES must be positive", ErrInvalidInput)
	}
	if c.OCR.RatePerSecond < 0 {
		return NewAppError("CONFIG_ERROR", "OCR_RATE must not be negative", ErrInvalidInput)
	}
	if _, err := c.Notify.DailyAt(); err != nil {
		return NewAppError("CONFIG_ERROR", "NOTIFY_AT must be HH:MM", err)
	}
	if c.Notify.SMTPHost != "" && (c.Notify.SMTPPort <= 0 || c.Notify.From == "") {
		return NewAppError("CONFIG_ERROR", "SMTP_PORT and EMAIL_ADDRESS are required with SMTP_HOST", ErrInvalidInput)
	}
	v := NewValidator().
		Field("EMAIL_ADDRESS", c.Notify.From, Email).
		Field("TO_EMAIL", c.Notify.To, Email)
	if err := v.Error(); err != nil {
		return NewAppError("CONFIG_ERROR", v.ErrorMessage(), err)
	}
	return nil
}

// DailyAt parses At as an offset from midnight.
func (n NotifyConfig) DailyAt() (time.Duration, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(n.At))
	if err != nil {
		return 0, fmt.Errorf("parse notify time %q: %w", n.At, err)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

// Redacted returns a copy safe to print.
func (c Config) Redacted() Config {
	if c.Notify.Password != "" {
		c.Notify.Password = "****"
	}
	if c.Search.APIKey != "" {
		c.Search.APIKey = "****"
	}
	if c.Database.DSN != "" {
		c.Database.DSN = redactDSN(c.Database.DSN)
	}
	return c
}

func redactDSN(dsn string) string {
	at := strings.LastIndex(dsn, "@")
	scheme := strings.Index(dsn, "://")
	if at < 0 || scheme < 0 || at < scheme {
		return dsn
	}
	userinfo := dsn[scheme+3 : at]
	if colon := strings.Index(userinfo, ":"); colon >= 0 {
		userinfo = userinfo[:colon] + ":****"
	}
	return dsn[:scheme+3] + userinfo + dsn[at:]
}
