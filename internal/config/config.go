package config

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPath is where Load looks for the config file
const DefaultPath = "config/config.yml"

// Environments
const (
	EnvProduction  = "production"
	EnvDevelopment = "development"
)

type AppConfig struct {
	Name    string `yaml:"name" env:"NAME"`
	Env     string `yaml:"env" env:"ENV"`
	Port    int    `yaml:"port" env:"PORT"`
	GinMode string `yaml:"gin_mode" env:"GIN_MODE"`
}

type LogConfig struct {
	Level   string `yaml:"level" env:"LEVEL"`
	Format  string `yaml:"format" env:"FORMAT"`
	DBLevel string `yaml:"db_level" env:"DB_LEVEL"`
}

type DatabaseConfig struct {
	DSN string `yaml:"dsn" env:"DSN"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr" env:"ADDR"`
	Password string `yaml:"password" env:"PASSWORD"`
	DB       int    `yaml:"db" env:"DB"`
}

type JWTConfig struct {
	Secret    string `yaml:"secret" env:"SECRET"`
	Issuer    string `yaml:"issuer" env:"ISSUER"`
	TTL       string `yaml:"ttl" env:"TTL"`
	CookieTTL string `yaml:"cookie_ttl" env:"COOKIE_TTL"`
}

type SessionConfig struct {
	TTL string `yaml:"ttl" env:"TTL"`
}

type OTPConfig struct {
	TTL    string `yaml:"ttl" env:"TTL"`
	Length int    `yaml:"length" env:"LENGTH"`
}

type PasswordConfig struct {
	BcryptCost int `yaml:"bcrypt_cost" env:"BCRYPT_COST"`
}

type SMTPConfig struct {
	Host     string `yaml:"host" env:"HOST"`
	Port     int    `yaml:"port" env:"PORT"`
	Username string `yaml:"username" env:"USERNAME"`
	Password string `yaml:"password" env:"PASSWORD"`
	From     string `yaml:"from" env:"FROM"`
	Timeout  string `yaml:"timeout" env:"TIMEOUT"`
}

type CookieConfig struct {
	SameSite string `yaml:"same_site" env:"SAME_SITE"`
}

type CompensationConfig struct {
	MaxRetries int    `yaml:"max_retries" env:"MAX_RETRIES"`
	Backoff    string `yaml:"backoff" env:"BACKOFF"`
}

// ConfigFile mirrors config.yml; environment variables override it
type ConfigFile struct {
	App          AppConfig          `yaml:"app" envPrefix:"APP_"`
	Log          LogConfig          `yaml:"log" envPrefix:"LOG_"`
	Database     DatabaseConfig     `yaml:"database" envPrefix:"DATABASE_"`
	Redis        RedisConfig        `yaml:"redis" envPrefix:"REDIS_"`
	JWT          JWTConfig          `yaml:"jwt" envPrefix:"JWT_"`
	Session      SessionConfig      `yaml:"session" envPrefix:"SESSION_"`
	OTP          OTPConfig          `yaml:"otp" envPrefix:"OTP_"`
	Password     PasswordConfig     `yaml:"password" envPrefix:"PASSWORD_"`
	SMTP         SMTPConfig         `yaml:"smtp" envPrefix:"SMTP_"`
	Cookie       CookieConfig       `yaml:"cookie" envPrefix:"COOKIE_"`
	Compensation CompensationConfig `yaml:"compensation" envPrefix:"COMPENSATION_"`
}

// Config is the resolved process configuration, constructed once at start
// and passed to every component that needs it.
type Config struct {
	ServiceName string
	Env         string
	Port        string
	GinMode     string

	LogLevel   string
	LogFormat  string
	DBLogLevel string

	DSN           string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	JWTSecret      string
	JWTIssuer      string
	TokenTTL       time.Duration
	TokenCookieTTL time.Duration
	SessionTTL     time.Duration

	OTPTTL     time.Duration
	OTPLength  int
	BcryptCost int

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
	SMTPTimeout  time.Duration

	CookieSameSite string

	CompensationRetries int
	CompensationBackoff time.Duration
}

// Defaults returns the config file values used when a key is absent
func Defaults() ConfigFile {
	return ConfigFile{
		App:          AppConfig{Name: "accountsvc", Env: EnvDevelopment, Port: 8080, GinMode: "release"},
		Log:          LogConfig{Level: "info", Format: "json", DBLevel: "silent"},
		Redis:        RedisConfig{Addr: "localhost:6379"},
		JWT:          JWTConfig{Issuer: "accountsvc", TTL: "24h", CookieTTL: "24h"},
		Session:      SessionConfig{TTL: "24h"},
		OTP:          OTPConfig{TTL: "10m", Length: 6},
		SMTP:         SMTPConfig{Port: 587, Timeout: "10s", From: "noreply@localhost"},
		Compensation: CompensationConfig{MaxRetries: 3, Backoff: "50ms"},
	}
}

// Load reads path (missing file allowed), a .env file if present, and
// environment overrides, then validates the result.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	file := Defaults()
	if err := loadConfigFile(path, &file); err != nil {
		return nil, err
	}

	if err := env.Parse(&file); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	cfg, err := file.resolve()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadConfigFile(path string, into *ConfigFile) error {
	bytes, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("could not read config file at %s: %w", path, err)
	}

	if err := yaml.Unmarshal(bytes, into); err != nil {
		return fmt.Errorf("could not parse config yaml: %w", err)
	}
	return nil
}

func (f ConfigFile) resolve() (*Config, error) {
	durations := []struct {
		name  string
		value string
		into  *time.Duration
	}{
		{"jwt ttl", f.JWT.TTL, new(time.Duration)},
		{"jwt cookie ttl", f.JWT.CookieTTL, new(time.Duration)},
		{"session ttl", f.Session.TTL, new(time.Duration)},
		{"otp ttl", f.OTP.TTL, new(time.Duration)},
		{"smtp timeout", f.SMTP.Timeout, new(time.Duration)},
		{"compensation backoff", f.Compensation.Backoff, new(time.Duration)},
	}
	for _, d := range durations {
		parsed, err := time.ParseDuration(d.value)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", d.name, err)
		}
		*d.into = parsed
	}

	return &Config{
		ServiceName:         f.App.Name,
		Env:                 strings.ToLower(f.App.Env),
		Port:                fmt.Sprintf("%d", f.App.Port),
		GinMode:             f.App.GinMode,
		LogLevel:            f.Log.Level,
		LogFormat:           f.Log.Format,
		DBLogLevel:          f.Log.DBLevel,
		DSN:                 f.Database.DSN,
		RedisAddr:           f.Redis.Addr,
		RedisPassword:       f.Redis.Password,
		RedisDB:             f.Redis.DB,
		JWTSecret:           f.JWT.Secret,
		JWTIssuer:           f.JWT.Issuer,
		TokenTTL:            *durations[0].into,
		TokenCookieTTL:      *durations[1].into,
		SessionTTL:          *durations[2].into,
		OTPTTL:              *durations[3].into,
		OTPLength:           f.OTP.Length,
		BcryptCost:          f.Password.BcryptCost,
		SMTPHost:            f.SMTP.Host,
		SMTPPort:            f.SMTP.Port,
		SMTPUsername:        f.SMTP.Username,
		SMTPPassword:        f.SMTP.Password,
		SMTPFrom:            f.SMTP.From,
		SMTPTimeout:         *durations[4].into,
		CookieSameSite:      strings.ToLower(f.Cookie.SameSite),
		CompensationRetries: f.Compensation.MaxRetries,
		CompensationBackoff: *durations[5].into,
	}, nil
}

// Validate checks required settings and ranges
func (c *Config) Validate() error {
	var errs []error
	if c.DSN == "" {
		errs = append(errs, errors.New("database dsn is required"))
	}
	if c.RedisAddr == "" {
		errs = append(errs, errors.New("redis addr is required"))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("jwt secret is required"))
	}
	if c.IsProduction() && len(c.JWTSecret) < 32 {
		errs = append(errs, errors.New("jwt secret must be at least 32 bytes in production"))
	}
	for name, d := range map[string]time.Duration{
		"jwt ttl":        c.TokenTTL,
		"jwt cookie ttl": c.TokenCookieTTL,
		"session ttl":    c.SessionTTL,
		"otp ttl":        c.OTPTTL,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", name))
		}
	}
	if c.SMTPHost != "" && (c.SMTPPort <= 0 || c.SMTPPort > 65535) {
		errs = append(errs, errors.New("smtp port must be between 1 and 65535"))
	}
	switch c.CookieSameSite {
	case "", "lax", "strict", "none":
	default:
		errs = append(errs, fmt.Errorf("unsupported cookie same_site %q", c.CookieSameSite))
	}
	if c.CompensationRetries < 0 {
		errs = append(errs, errors.New("compensation max_retries must not be negative"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// IsProduction reports whether the service runs in production
func (c *Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// CookiePolicy holds the attributes applied to every auth cookie
type CookiePolicy struct {
	Secure   bool
	SameSite http.SameSite
}

// CookiePolicy derives cookie attributes from the environment: secure and
// strict in production, lax otherwise, unless same_site is set explicitly.
// SameSite=None always forces Secure.
func (c *Config) CookiePolicy() CookiePolicy {
	policy := CookiePolicy{Secure: c.IsProduction(), SameSite: http.SameSiteLaxMode}
	if c.IsProduction() {
		policy.SameSite = http.SameSiteStrictMode
	}

	switch c.CookieSameSite {
	case "lax":
		policy.SameSite = http.SameSiteLaxMode
	case "strict":
		policy.SameSite = http.SameSiteStrictMode
	case "none":
		policy.SameSite = http.SameSiteNoneMode
		policy.Secure = true
	}
	return policy
}
