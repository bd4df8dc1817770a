package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/frostdev-ops/eventstats-backend-go/internal/core/layout"
)

// EnvPrefix namespaces automatic environment overrides, e.g.
// EVENTSTATS_REPORT_DEFAULT_WIDTH_PX
const EnvPrefix = "EVENTSTATS"

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Mongo      MongoConfig      `mapstructure:"mongo"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	WebSocket  WebSocketConfig  `mapstructure:"websocket"`
	Report     ReportConfig     `mapstructure:"report"`
	Security   SecurityConfig   `mapstructure:"security"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
	Breaker    BreakerConfig    `mapstructure:"breaker"`
}

type ServerConfig struct {
	Port int    `mapstructure:"port"`
	Host string `mapstructure:"host"`
	Mode string `mapstructure:"mode"`
}

// Database drivers
const (
	DriverSQLite = "sqlite"
	DriverMongo  = "mongo"
)

type DatabaseConfig struct {
	Driver         string          `mapstructure:"driver"`
	Path           string          `mapstructure:"path"`
	MaxConnections int             `mapstructure:"max_connections"`
	Migration      MigrationConfig `mapstructure:"migration"`
}

type MigrationConfig struct {
	AutoMigrate bool `mapstructure:"auto_migrate"`
}

type MongoConfig struct {
	URI      string        `mapstructure:"uri"`
	Database string        `mapstructure:"database"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

// CacheConfig controls chart result memoization
type CacheConfig struct {
	TTL           time.Duration `mapstructure:"ttl"`
	PruneSchedule string        `mapstructure:"prune_schedule"`
}

type AuthConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	JWTSecret string `mapstructure:"jwt_secret"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type WebSocketConfig struct {
	PingInterval int `mapstructure:"ping_interval"`
	PongTimeout  int `mapstructure:"pong_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
	// DebounceMs is the quiet window for viewport_resized re-solves
	DebounceMs int `mapstructure:"debounce_ms"`
}

// Debounce returns the resize quiet window as a duration
func (w WebSocketConfig) Debounce() time.Duration {
	return time.Duration(w.DebounceMs) * time.Millisecond
}

// ReportConfig holds the layout engine constants
type ReportConfig struct {
	DefaultWidthPx  float64            `mapstructure:"default_width_px"`
	SanitizeContent bool               `mapstructure:"sanitize_content"`
	Solver          layout.Options     `mapstructure:"solver"`
	Breakpoints     layout.Breakpoints `mapstructure:"breakpoints"`
}

type SecurityConfig struct {
	EnableCORS     bool                    `mapstructure:"enable_cors"`
	AllowedOrigins []string                `mapstructure:"allowed_origins"`
	RateLimiting   SecurityRateLimitConfig `mapstructure:"rate_limiting"`
}

// SecurityRateLimitConfig contains rate limiting configuration
type SecurityRateLimitConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	RequestsPerMinute int  `mapstructure:"requests_per_minute"`
	BurstSize         int  `mapstructure:"burst_size"`
}

type MonitoringConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	MetricsPrefix string `mapstructure:"metrics_prefix"`
}

// BreakerConfig tunes the circuit breaker around repository reads
type BreakerConfig struct {
	MaxRequests uint32        `mapstructure:"max_requests"`
	Interval    time.Duration `mapstructure:"interval"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxFailures uint32        `mapstructure:"max_failures"`
}

// Load reads config.yaml from ./configs or the working directory
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile reads the given config file, or searches the default locations
// when path is empty. A missing file is not an error; defaults and the
// environment still apply.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Conventional names used by deployment tooling
	_ = v.BindEnv("auth.jwt_secret", "EVENTSTATS_AUTH_JWT_SECRET", "JWT_SECRET")
	_ = v.BindEnv("server.port", "EVENTSTATS_SERVER_PORT", "PORT")
	_ = v.BindEnv("database.path", "EVENTSTATS_DATABASE_PATH", "DATABASE_PATH")
	_ = v.BindEnv("mongo.uri", "EVENTSTATS_MONGO_URI", "MONGO_URI")
	_ = v.BindEnv("redis.addr", "EVENTSTATS_REDIS_ADDR", "REDIS_ADDR")
	_ = v.BindEnv("logging.level", "EVENTSTATS_LOGGING_LEVEL", "LOG_LEVEL")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks the configuration and reports every problem at once
func (c *Config) Validate() error {
	var errors []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errors = append(errors, "server.port must be between 1 and 65535")
	}
	if c.Server.Host == "" {
		errors = append(errors, "server.host is required")
	}

	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.Path == "" {
			errors = append(errors, "database.path is required for the sqlite driver")
		}
	case DriverMongo:
		if c.Mongo.URI == "" {
			errors = append(errors, "mongo.uri is required for the mongo driver")
		}
		if c.Mongo.Database == "" {
			errors = append(errors, "mongo.database is required for the mongo driver")
		}
	default:
		errors = append(errors, fmt.Sprintf("database.driver must be %q or %q", DriverSQLite, DriverMongo))
	}

	if c.Redis.Enabled && c.Redis.Addr == "" {
		errors = append(errors, "redis.addr is required when redis is enabled")
	}
	if c.Cache.TTL < 0 {
		errors = append(errors, "cache.ttl must not be negative")
	}

	if c.Auth.Enabled && (c.Auth.JWTSecret == "" || c.Auth.JWTSecret == "your-secret-key-here") {
		errors = append(errors, "auth.jwt_secret must be set to a secure value when enabled")
	}

	if c.WebSocket.DebounceMs <= 0 {
		errors = append(errors, "websocket.debounce_ms must be greater than 0")
	}

	if c.Report.DefaultWidthPx <= 0 {
		errors = append(errors, "report.default_width_px must be greater than 0")
	}
	if c.Report.Solver.MinBodyHeightPx < 0 || c.Report.Solver.CellPaddingPx < 0 {
		errors = append(errors, "report.solver sizes must not be negative")
	}
	if c.Report.Breakpoints.MobilePx > c.Report.Breakpoints.TabletPx {
		errors = append(errors, "report.breakpoints.mobile_px must not exceed tablet_px")
	}

	if c.Security.RateLimiting.Enabled && c.Security.RateLimiting.RequestsPerMinute <= 0 {
		errors = append(errors, "security.rate_limiting.requests_per_minute must be greater than 0 when enabled")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 3001)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.mode", "development")

	v.SetDefault("database.driver", DriverSQLite)
	v.SetDefault("database.path", "./data/eventstats.db")
	v.SetDefault("database.max_connections", 25)
	v.SetDefault("database.migration.auto_migrate", true)

	v.SetDefault("mongo.uri", "")
	v.SetDefault("mongo.database", "eventstats")
	v.SetDefault("mongo.timeout", "10s")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)

	v.SetDefault("cache.ttl", "10m")
	v.SetDefault("cache.prune_schedule", "@every 1m")

	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.jwt_secret", "")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("websocket.ping_interval", 30)
	v.SetDefault("websocket.pong_timeout", 60)
	v.SetDefault("websocket.write_timeout", 10)
	v.SetDefault("websocket.debounce_ms", 100)

	solver := layout.DefaultOptions()
	bp := layout.DefaultBreakpoints()
	v.SetDefault("report.default_width_px", 1200)
	v.SetDefault("report.sanitize_content", true)
	v.SetDefault("report.solver.cell_padding_px", solver.CellPaddingPx)
	v.SetDefault("report.solver.min_body_height_px", solver.MinBodyHeightPx)
	v.SetDefault("report.solver.title_reservation_px", solver.TitleReservationPx)
	v.SetDefault("report.solver.subtitle_reservation_px", solver.SubtitleReservationPx)
	v.SetDefault("report.breakpoints.tablet_px", bp.TabletPx)
	v.SetDefault("report.breakpoints.mobile_px", bp.MobilePx)
	v.SetDefault("report.breakpoints.min_cell_px", bp.MinCellPx)

	v.SetDefault("security.enable_cors", true)
	v.SetDefault("security.allowed_origins", []string{"*"})
	v.SetDefault("security.rate_limiting.enabled", true)
	v.SetDefault("security.rate_limiting.requests_per_minute", 600)
	v.SetDefault("security.rate_limiting.burst_size", 50)

	v.SetDefault("monitoring.enabled", true)
	v.SetDefault("monitoring.metrics_prefix", "eventstats")

	v.SetDefault("breaker.max_requests", 1)
	v.SetDefault("breaker.interval", "60s")
	v.SetDefault("breaker.timeout", "30s")
	v.SetDefault("breaker.max_failures", 5)
}
