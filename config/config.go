package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

const (
	// MinJWTSecretLength is the minimum required length for the token secret in production
	MinJWTSecretLength = 32
)

var (
	errInsecureSecret = errors.New("JWT_SECRET is set to an insecure default value")
	errShortSecret    = fmt.Errorf("JWT_SECRET must be at least %d characters in production", MinJWTSecretLength)
)

type Config struct {
	ServerPort  string `mapstructure:"server_port"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
	// Database
	DBDriver    string `mapstructure:"db_driver"`
	DBPath      string `mapstructure:"db_path"`
	DatabaseURL string `mapstructure:"database_url"`
	// Access tokens
	JWTSecret string `mapstructure:"jwt_secret"`
	// Attachments
	UploadDir string `mapstructure:"upload_dir"`
	// Cloudflare R2 Storage
	R2AccountID       string `mapstructure:"r2_account_id"`
	R2AccessKeyID     string `mapstructure:"r2_access_key_id"`
	R2SecretAccessKey string `mapstructure:"r2_secret_access_key"`
	R2BucketName      string `mapstructure:"r2_bucket_name"`
	// Case locks
	RedisURL    string        `mapstructure:"redis_url"`
	CaseLockTTL time.Duration `mapstructure:"case_lock_ttl"`
	// Branch directory
	BranchesFile string `mapstructure:"branches_file"`
	// PDF export, headless Chrome binary (empty uses the chromedp lookup)
	ChromePath string `mapstructure:"chrome_path"`
	// Email (Resend)
	ResendAPIKey  string `mapstructure:"resend_api_key"`
	EmailFrom     string `mapstructure:"email_from"`
	EmailFromName string `mapstructure:"email_from_name"`
	EmailTestMode bool   `mapstructure:"email_test_mode"` // When true, emails are logged instead of sent
	// Other
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

var defaults = map[string]interface{}{
	"server_port":          "8080",
	"environment":          "development",
	"log_level":            "info",
	"db_driver":            "sqlite",
	"db_path":              "db/docket.db",
	"database_url":         "",
	"jwt_secret":           "",
	"upload_dir":           "static/uploads",
	"r2_account_id":        "",
	"r2_access_key_id":     "",
	"r2_secret_access_key": "",
	"r2_bucket_name":       "",
	"redis_url":            "",
	"case_lock_ttl":        "10s",
	"branches_file":        "config/branches.yaml",
	"chrome_path":          "",
	"resend_api_key":       "",
	"email_from":           "noreply@writdocket.local",
	"email_from_name":      "Writ Docket",
	"email_test_mode":      true, // Default true for safety
	"allowed_origins":      "*",
}

// Load reads .env (when present) and the process environment into a Config.
func Load() *Config {
	// Load .env file (ignore error if not present - use system env vars)
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found, using system environment variables")
	}

	cfg, err := FromViper(viper.New())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if err := ValidateJWTSecret(cfg.JWTSecret, cfg.Environment); err != nil {
		log.Fatal().Err(err).Msg("Invalid JWT_SECRET")
	}
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = "dev-insecure-secret"
		log.Warn().Msg("JWT_SECRET not set, using an insecure development secret")
	}

	return cfg
}

// FromViper binds every known key to its environment variable and unmarshals
// the result. Split out from Load so tests can drive it with their own env.
func FromViper(v *viper.Viper) (*Config, error) {
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Comma separated in the environment
	if len(cfg.AllowedOrigins) == 1 && strings.Contains(cfg.AllowedOrigins[0], ",") {
		cfg.AllowedOrigins = strings.Split(cfg.AllowedOrigins[0], ",")
	}
	for i := range cfg.AllowedOrigins {
		cfg.AllowedOrigins[i] = strings.TrimSpace(cfg.AllowedOrigins[i])
	}
	cfg.DBDriver = strings.ToLower(cfg.DBDriver)

	return &cfg, nil
}

// IsProduction reports whether the service runs with production settings.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// ValidateJWTSecret rejects short or well known secrets in production.
func ValidateJWTSecret(secret string, environment string) error {
	insecureDefaults := []string{
		"change-me",
		"secret",
		"development",
		"test",
		"",
	}

	for _, insecure := range insecureDefaults {
		if strings.EqualFold(secret, insecure) {
			if environment == "production" {
				return errInsecureSecret
			}
			return nil
		}
	}

	if environment == "production" && len(secret) < MinJWTSecretLength {
		return errShortSecret
	}

	return nil
}

// SetupLogger configures the global zerolog logger for the environment.
func SetupLogger(cfg *Config) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	if !cfg.IsProduction() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}
