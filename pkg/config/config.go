package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/vaidhya/pos-api/pkg/logger"
)

// Config holds all configuration for the application
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Session    SessionConfig    `mapstructure:"session"`
	Security   SecurityConfig   `mapstructure:"security"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
	Log        logger.Config    `mapstructure:"log"`
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Host            string   `mapstructure:"host"`
	Port            int      `mapstructure:"port"`
	ReadTimeout     int      `mapstructure:"read_timeout"`
	WriteTimeout    int      `mapstructure:"write_timeout"`
	IdleTimeout     int      `mapstructure:"idle_timeout"`
	ShutdownTimeout int      `mapstructure:"shutdown_timeout"`
	CORSOrigins     []string `mapstructure:"cors_origins"`
}

// Addr returns host:port for http.Server
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig holds database configuration. Connection parameters are
// filled from the database file named by ConfigFile.
type DatabaseConfig struct {
	ConfigFile      string `mapstructure:"config_file"`
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Name            string `mapstructure:"name"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"ssl_mode"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime int    `mapstructure:"conn_max_idle_time"`
	ConnectTimeout  int    `mapstructure:"connect_timeout"`
	AutoMigrate     bool   `mapstructure:"auto_migrate"`
}

// SessionConfig controls session validity and token signing
type SessionConfig struct {
	Required    bool          `mapstructure:"required"`
	MaxAge      time.Duration `mapstructure:"max_age"`
	TokenSecret string        `mapstructure:"token_secret"`
	Issuer      string        `mapstructure:"issuer"`
}

// SecurityConfig holds password hashing settings
type SecurityConfig struct {
	BcryptCost int `mapstructure:"bcrypt_cost"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled         bool `mapstructure:"enabled"`
	RequestsPerMin  int  `mapstructure:"requests_per_min"`
	BurstSize       int  `mapstructure:"burst_size"`
	CleanupInterval int  `mapstructure:"cleanup_interval"`
	// TrustProxy keys clients by the first X-Forwarded-For hop. Enable only
	// behind a proxy that overwrites the header.
	TrustProxy bool `mapstructure:"trust_proxy"`
}

// MonitoringConfig holds monitoring configuration
type MonitoringConfig struct {
	Enabled         bool    `mapstructure:"enabled"`
	MetricsPath     string  `mapstructure:"metrics_path"`
	HealthPath      string  `mapstructure:"health_path"`
	TracingEnabled  bool    `mapstructure:"tracing_enabled"`
	TracingExporter string  `mapstructure:"tracing_exporter"`
	SamplingRate    float64 `mapstructure:"sampling_rate"`
	ServiceName     string  `mapstructure:"service_name"`
}

// Load loads configuration from .env, config.yaml, environment variables and
// the database file. A missing or unreadable database file is an error.
func Load() (*Config, error) {
	return LoadFrom(".", "./config", "/etc/vaidhya")
}

// LoadFrom is Load with explicit config.yaml search paths
func LoadFrom(paths ...string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := loadDatabaseFile(&config.Database); err != nil {
		return nil, err
	}

	overrideWithEnv(&config)

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.read_timeout", 30)
	v.SetDefault("server.write_timeout", 30)
	v.SetDefault("server.idle_timeout", 120)
	v.SetDefault("server.shutdown_timeout", 15)
	v.SetDefault("server.cors_origins", []string{"*"})

	v.SetDefault("database.config_file", "Vaidhya_db.txt")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 300)
	v.SetDefault("database.conn_max_idle_time", 10)
	v.SetDefault("database.connect_timeout", 5)
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("session.required", false)
	v.SetDefault("session.max_age", "0s")
	v.SetDefault("session.token_secret", "")
	v.SetDefault("session.issuer", "vaidhya-pos")

	v.SetDefault("security.bcrypt_cost", 10)

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests_per_min", 300)
	v.SetDefault("rate_limit.burst_size", 50)
	v.SetDefault("rate_limit.cleanup_interval", 60)
	v.SetDefault("rate_limit.trust_proxy", false)

	v.SetDefault("monitoring.enabled", true)
	v.SetDefault("monitoring.metrics_path", "/metrics")
	v.SetDefault("monitoring.health_path", "/health")
	v.SetDefault("monitoring.tracing_enabled", false)
	v.SetDefault("monitoring.tracing_exporter", "stdout")
	v.SetDefault("monitoring.sampling_rate", 1.0)
	v.SetDefault("monitoring.service_name", "pos-service")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.dir", "logs")
	v.SetDefault("log.max_age_days", 15)
}

// loadDatabaseFile reads the node-postgres style pool file:
// {"user", "host", "database", "password", "port", "max", "idleTimeoutMillis",
// "connectionTimeoutMillis", "ssl"}.
func loadDatabaseFile(db *DatabaseConfig) error {
	if db.ConfigFile == "" {
		return errors.New("database.config_file is required")
	}

	dv := viper.New()
	dv.SetConfigFile(db.ConfigFile)
	dv.SetConfigType("json")
	if err := dv.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read database file %s: %w", db.ConfigFile, err)
	}

	setString := func(key string, dst *string) {
		if dv.IsSet(key) {
			*dst = dv.GetString(key)
		}
	}
	setString("host", &db.Host)
	setString("database", &db.Name)
	setString("user", &db.User)
	setString("password", &db.Password)
	if dv.IsSet("port") {
		db.Port = dv.GetInt("port")
	}
	if dv.IsSet("max") {
		db.MaxOpenConns = dv.GetInt("max")
	}
	if dv.IsSet("idleTimeoutMillis") {
		db.ConnMaxIdleTime = int((time.Duration(dv.GetInt("idleTimeoutMillis")) * time.Millisecond).Seconds())
	}
	if dv.IsSet("connectionTimeoutMillis") {
		db.ConnectTimeout = int((time.Duration(dv.GetInt("connectionTimeoutMillis")) * time.Millisecond).Seconds())
	}
	if dv.IsSet("ssl") && dv.GetBool("ssl") {
		db.SSLMode = "require"
	}

	return nil
}

func overrideWithEnv(config *Config) {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if password := os.Getenv("PGPASSWORD"); password != "" {
		config.Database.Password = password
	}

	if secret := os.Getenv("SESSION_TOKEN_SECRET"); secret != "" {
		config.Session.TokenSecret = secret
	}

	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		config.Log.Level = logLevel
	}
}

func validate(config *Config) error {
	if config.Database.Host == "" {
		return errors.New("database host is required")
	}

	if config.Database.Name == "" {
		return errors.New("database name is required")
	}

	if config.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("invalid database pool size: %d", config.Database.MaxOpenConns)
	}

	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	if config.Security.BcryptCost < 4 || config.Security.BcryptCost > 31 {
		return fmt.Errorf("invalid bcrypt cost: %d", config.Security.BcryptCost)
	}

	if config.Session.MaxAge < 0 {
		return fmt.Errorf("invalid session max age: %s", config.Session.MaxAge)
	}

	return nil
}
