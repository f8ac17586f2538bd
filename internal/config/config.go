// AngelaMos | 2026
// config.go

package config

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	App       AppConfig       `koanf:"app"`
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Redis     RedisConfig     `koanf:"redis"`
	JWT       JWTConfig       `koanf:"jwt"`
	Password  PasswordConfig  `koanf:"password"`
	Admission AdmissionConfig `koanf:"admission"`
	Cookie    CookieConfig    `koanf:"cookie"`
	CORS      CORSConfig      `koanf:"cors"`
	Log       LogConfig       `koanf:"log"`
	Otel      OtelConfig      `koanf:"otel"`
}

type AppConfig struct {
	Name        string `koanf:"name"`
	Version     string `koanf:"version"`
	Environment string `koanf:"environment"`
}

type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	// TrustedProxies lists the addresses or CIDRs whose forwarding headers
	// are believed. Empty means the socket peer is always the client.
	TrustedProxies []string `koanf:"trusted_proxies"`
}

type DatabaseConfig struct {
	URL             string        `koanf:"url"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time"`
	RunMigrations   bool          `koanf:"run_migrations"`
}

type RedisConfig struct {
	URL          string `koanf:"url"`
	PoolSize     int    `koanf:"pool_size"`
	MinIdleConns int    `koanf:"min_idle_conns"`
}

type JWTConfig struct {
	PrivateKeyPath    string        `koanf:"private_key_path"`
	PublicKeyPath     string        `koanf:"public_key_path"`
	GenerateKeys      bool          `koanf:"generate_keys"`
	AccessTokenExpire time.Duration `koanf:"access_token_expire"`
	Issuer            string        `koanf:"issuer"`
	Audience          string        `koanf:"audience"`
}

// PasswordConfig selects the hashing algorithm for new password hashes.
// Existing hashes are always verified with the algorithm that produced them.
type PasswordConfig struct {
	Algorithm  string `koanf:"algorithm"`
	BcryptCost int    `koanf:"bcrypt_cost"`
}

type AdmissionConfig struct {
	Mode          string                `koanf:"mode"`
	FailurePolicy string                `koanf:"failure_policy"`
	LocalFallback bool                  `koanf:"local_fallback"`
	Tiers         map[string]TierConfig `koanf:"tiers"`
}

type TierConfig struct {
	Limit   int           `koanf:"limit"`
	Window  time.Duration `koanf:"window"`
	Message string        `koanf:"message"`
}

type CookieConfig struct {
	Name   string        `koanf:"name"`
	MaxAge time.Duration `koanf:"max_age"`
}

type CORSConfig struct {
	AllowedOrigins   []string `koanf:"allowed_origins"`
	AllowedMethods   []string `koanf:"allowed_methods"`
	AllowedHeaders   []string `koanf:"allowed_headers"`
	AllowCredentials bool     `koanf:"allow_credentials"`
	MaxAge           int      `koanf:"max_age"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type OtelConfig struct {
	Endpoint    string  `koanf:"endpoint"`
	ServiceName string  `koanf:"service_name"`
	Enabled     bool    `koanf:"enabled"`
	Insecure    bool    `koanf:"insecure"`
	SampleRate  float64 `koanf:"sample_rate"`
}

var (
	cfg  *Config
	once sync.Once
)

func Load(configPath string) (*Config, error) {
	var loadErr error

	once.Do(func() {
		cfg, loadErr = load(configPath)
	})

	if loadErr != nil {
		return nil, loadErr
	}

	return cfg, nil
}

func Get() *Config {
	if cfg == nil {
		panic("config not loaded: call Load() first")
	}
	return cfg
}

func load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := loadDefaults(k); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	if err := k.Load(env.ProviderWithValue("", ".", envValue), nil); err != nil {
		return nil, fmt.Errorf("load env vars: %w", err)
	}

	c := &Config{}
	if err := k.Unmarshal("", c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validate(c); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return c, nil
}

func loadDefaults(k *koanf.Koanf) error {
	defaults := map[string]any{
		"app.name":        "Acquisitions API",
		"app.version":     "1.0.0",
		"app.environment": "development",

		"server.host":             "0.0.0.0",
		"server.port":             3000,
		"server.read_timeout":     "30s",
		"server.write_timeout":    "30s",
		"server.idle_timeout":     "120s",
		"server.shutdown_timeout": "15s",
		"server.trusted_proxies":  []string{},

		"database.max_open_conns":     25,
		"database.max_idle_conns":     5,
		"database.conn_max_lifetime":  "1h",
		"database.conn_max_idle_time": "30m",
		"database.run_migrations":     true,

		"redis.pool_size":      10,
		"redis.min_idle_conns": 5,

		"jwt.access_token_expire": "15h",
		"jwt.issuer":              "acquisitions-api",
		"jwt.audience":            "acquisitions-api",
		"jwt.private_key_path":    "keys/private.pem",
		"jwt.public_key_path":     "keys/public.pem",
		"jwt.generate_keys":       false,

		"password.algorithm":   "argon2id",
		"password.bcrypt_cost": 10,

		"admission.mode":           "live",
		"admission.failure_policy": "error",
		"admission.local_fallback": true,

		"admission.tiers.admin.limit":  20,
		"admission.tiers.admin.window": "1m",
		"admission.tiers.admin.message": "Admin request limit exceeded " +
			"(20 per minute). Slow down please.",
		"admission.tiers.user.limit":  10,
		"admission.tiers.user.window": "1m",
		"admission.tiers.user.message": "User request limit exceeded " +
			"(10 per minute). Slow down please.",
		"admission.tiers.guest.limit":  5,
		"admission.tiers.guest.window": "1m",
		"admission.tiers.guest.message": "Guest request limit exceeded " +
			"(5 per minute). Slow down please.",

		"cookie.name":    "token",
		"cookie.max_age": "15h",

		"cors.allowed_origins": []string{"http://localhost:5173"},
		"cors.allowed_methods": []string{
			"GET",
			"POST",
			"PUT",
			"DELETE",
			"OPTIONS",
		},
		"cors.allowed_headers": []string{
			"Accept",
			"Authorization",
			"Content-Type",
			"X-Request-ID",
		},
		"cors.allow_credentials": true,
		"cors.max_age":           300,

		"log.level":  "info",
		"log.format": "json",

		"otel.enabled":      false,
		"otel.insecure":     true,
		"otel.sample_rate":  0.1,
		"otel.service_name": "acquisitions-api",
	}

	for key, value := range defaults {
		if err := k.Set(key, value); err != nil {
			return fmt.Errorf("set default %s: %w", key, err)
		}
	}

	return nil
}

var envKeyMap = map[string]string{
	"DATABASE_URL":                "database.url",
	"DATABASE_RUN_MIGRATIONS":     "database.run_migrations",
	"REDIS_URL":                   "redis.url",
	"ENVIRONMENT":                 "app.environment",
	"NODE_ENV":                    "app.environment",
	"HOST":                        "server.host",
	"PORT":                        "server.port",
	"TRUSTED_PROXIES":             "server.trusted_proxies",
	"LOG_LEVEL":                   "log.level",
	"LOG_FORMAT":                  "log.format",
	"JWT_PRIVATE_KEY_PATH":        "jwt.private_key_path",
	"JWT_PUBLIC_KEY_PATH":         "jwt.public_key_path",
	"JWT_GENERATE_KEYS":           "jwt.generate_keys",
	"JWT_ACCESS_TOKEN_EXPIRE":     "jwt.access_token_expire",
	"JWT_ISSUER":                  "jwt.issuer",
	"JWT_AUDIENCE":                "jwt.audience",
	"PASSWORD_ALGORITHM":          "password.algorithm",
	"PASSWORD_BCRYPT_COST":        "password.bcrypt_cost",
	"ADMISSION_MODE":              "admission.mode",
	"ADMISSION_FAILURE_POLICY":    "admission.failure_policy",
	"ADMISSION_LOCAL_FALLBACK":    "admission.local_fallback",
	"RATE_LIMIT_ADMIN":            "admission.tiers.admin.limit",
	"RATE_LIMIT_USER":             "admission.tiers.user.limit",
	"RATE_LIMIT_GUEST":            "admission.tiers.guest.limit",
	"COOKIE_NAME":                 "cookie.name",
	"COOKIE_MAX_AGE":              "cookie.max_age",
	"OTEL_ENDPOINT":               "otel.endpoint",
	"OTEL_EXPORTER_OTLP_ENDPOINT": "otel.endpoint",
	"OTEL_SERVICE_NAME":           "otel.service_name",
	"OTEL_ENABLED":                "otel.enabled",
	"OTEL_INSECURE":               "otel.insecure",
	"OTEL_SAMPLE_RATE":            "otel.sample_rate",
}

// envListKeys are comma separated in the environment.
var envListKeys = map[string]bool{
	"server.trusted_proxies": true,
}

func envValue(key, value string) (string, any) {
	mapped, ok := envKeyMap[key]
	if !ok {
		return "", nil
	}
	if envListKeys[mapped] {
		items := []string{}
		for _, item := range strings.Split(value, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		return mapped, items
	}
	return mapped, value
}

func validate(c *Config) error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if c.JWT.PrivateKeyPath == "" {
		return fmt.Errorf("JWT_PRIVATE_KEY_PATH is required")
	}

	if c.JWT.PublicKeyPath == "" {
		return fmt.Errorf("JWT_PUBLIC_KEY_PATH is required")
	}

	if c.JWT.AccessTokenExpire <= 0 {
		return fmt.Errorf("jwt.access_token_expire must be positive")
	}

	switch c.Password.Algorithm {
	case "argon2id", "bcrypt":
	default:
		return fmt.Errorf(
			"password.algorithm must be argon2id or bcrypt, got %q",
			c.Password.Algorithm,
		)
	}

	switch c.Admission.Mode {
	case "live", "dry_run":
	default:
		return fmt.Errorf(
			"admission.mode must be live or dry_run, got %q",
			c.Admission.Mode,
		)
	}

	switch c.Admission.FailurePolicy {
	case "error", "open", "closed":
	default:
		return fmt.Errorf(
			"admission.failure_policy must be error, open or closed, got %q",
			c.Admission.FailurePolicy,
		)
	}

	for _, role := range []string{"admin", "user", "guest"} {
		tier, ok := c.Admission.Tiers[role]
		if !ok {
			return fmt.Errorf("admission.tiers.%s is required", role)
		}
		if tier.Limit <= 0 || tier.Window <= 0 {
			return fmt.Errorf(
				"admission.tiers.%s needs a positive limit and window",
				role,
			)
		}
	}

	if c.CORS.AllowCredentials {
		for _, origin := range c.CORS.AllowedOrigins {
			if origin == "*" {
				return fmt.Errorf(
					"CORS wildcard '*' cannot be used with AllowCredentials",
				)
			}
		}
	}

	if c.App.Environment == "production" {
		if c.Otel.Enabled && c.Otel.Insecure {
			return fmt.Errorf("OTEL_INSECURE must be false in production")
		}
		if c.JWT.GenerateKeys {
			return fmt.Errorf("JWT_GENERATE_KEYS must be false in production")
		}
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server.read_timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server.write_timeout must be positive")
	}

	return nil
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
