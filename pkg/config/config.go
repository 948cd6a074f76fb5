package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Port     string `yaml:"port" validate:"required,numeric"`
	Env      string `yaml:"env" validate:"oneof=development production test"`
	LogLevel string `yaml:"log_level"`

	SupabaseURL       string        `yaml:"supabase_url" validate:"required,url"`
	SupabaseAnonKey   string        `yaml:"supabase_anon_key" validate:"required"`
	SupabaseJWTSecret string        `yaml:"supabase_jwt_secret"`
	RequestTimeout    time.Duration `yaml:"request_timeout" validate:"gt=0"`

	// RealtimeMode selects the change source: the realtime websocket or
	// periodic polling.
	RealtimeMode string        `yaml:"realtime_mode" validate:"oneof=websocket poll"`
	PollInterval time.Duration `yaml:"poll_interval" validate:"required_if=RealtimeMode poll"`

	LocalStore    string `yaml:"local_store" validate:"oneof=file memory redis mongo postgres"`
	StatePath     string `yaml:"state_path" validate:"required_if=LocalStore file"`
	RedisURL      string `yaml:"redis_url" validate:"required_if=LocalStore redis"`
	MongoURI      string `yaml:"mongo_uri" validate:"required_if=LocalStore mongo"`
	MongoDatabase string `yaml:"mongo_database"`
	PostgresUrl   string `yaml:"postgres_url" validate:"required_if=LocalStore postgres"`

	StorageDriver           string `yaml:"storage_driver" validate:"oneof=supabase s3 firebase none"`
	S3Bucket                string `yaml:"s3_bucket" validate:"required_if=StorageDriver s3"`
	S3Region                string `yaml:"s3_region"`
	S3Endpoint              string `yaml:"s3_endpoint"`
	FirebaseCredentialsPath string `yaml:"firebase_credentials_path" validate:"required_if=StorageDriver firebase"`
	FirebaseBucket          string `yaml:"firebase_bucket" validate:"required_if=StorageDriver firebase"`

	RateLimitRPS   float64 `yaml:"rate_limit_rps" validate:"gte=0"`
	RateLimitBurst int     `yaml:"rate_limit_burst" validate:"gte=0"`
	MetricsEnabled bool    `yaml:"metrics_enabled"`
}

func defaults() *Config {
	return &Config{
		Port:           "8080",
		Env:            "development",
		LogLevel:       "info",
		RequestTimeout: 30 * time.Second,
		RealtimeMode:   "websocket",
		PollInterval:   5 * time.Second,
		LocalStore:     "file",
		StatePath:      "./data/local_state.json",
		MongoDatabase:  "onlyme",
		StorageDriver:  "supabase",
		S3Region:       "us-east-1",
		RateLimitRPS:   20,
		RateLimitBurst: 40,
		MetricsEnabled: true,
	}
}

// Load reads configuration from defaults, the optional YAML file named by
// CONFIG_FILE, and the environment, in increasing priority. A .env file is
// loaded into the environment first when present.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found, assuming environment variables are set.")
	}

	cfg := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.Env = getEnv("ENV", cfg.Env)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)

	cfg.SupabaseURL = getEnv("SUPABASE_URL", cfg.SupabaseURL)
	cfg.SupabaseAnonKey = getEnv("SUPABASE_ANON_KEY", cfg.SupabaseAnonKey)
	cfg.SupabaseJWTSecret = getEnv("SUPABASE_JWT_SECRET", cfg.SupabaseJWTSecret)
	cfg.RequestTimeout = getEnvDuration("REQUEST_TIMEOUT", cfg.RequestTimeout)

	cfg.RealtimeMode = getEnv("REALTIME_MODE", cfg.RealtimeMode)
	cfg.PollInterval = getEnvDuration("POLL_INTERVAL", cfg.PollInterval)

	cfg.LocalStore = getEnv("LOCAL_STORE", cfg.LocalStore)
	cfg.StatePath = getEnv("STATE_PATH", cfg.StatePath)
	cfg.RedisURL = getEnv("REDIS_URL", cfg.RedisURL)
	cfg.MongoURI = getEnv("MONGO_URI", cfg.MongoURI)
	cfg.MongoDatabase = getEnv("MONGO_DATABASE", cfg.MongoDatabase)
	cfg.PostgresUrl = getEnv("POSTGRES_URL", cfg.PostgresUrl)

	cfg.StorageDriver = getEnv("STORAGE_DRIVER", cfg.StorageDriver)
	cfg.S3Bucket = getEnv("S3_BUCKET", cfg.S3Bucket)
	cfg.S3Region = getEnv("S3_REGION", cfg.S3Region)
	cfg.S3Endpoint = getEnv("S3_ENDPOINT", cfg.S3Endpoint)
	cfg.FirebaseCredentialsPath = getEnv("FIREBASE_CREDENTIALS_PATH", cfg.FirebaseCredentialsPath)
	cfg.FirebaseBucket = getEnv("FIREBASE_BUCKET", cfg.FirebaseBucket)

	cfg.RateLimitRPS = getEnvFloat("RATE_LIMIT_RPS", cfg.RateLimitRPS)
	cfg.RateLimitBurst = getEnvInt("RATE_LIMIT_BURST", cfg.RateLimitBurst)
	cfg.MetricsEnabled = getEnvBool("METRICS_ENABLED", cfg.MetricsEnabled)

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// IsDevelopment reports whether the service runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
		log.Warn().Str("key", key).Str("value", value).Msg("ignoring invalid integer")
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
		log.Warn().Str("key", key).Str("value", value).Msg("ignoring invalid number")
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
		log.Warn().Str("key", key).Str("value", value).Msg("ignoring invalid boolean")
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		log.Warn().Str("key", key).Str("value", value).Msg("ignoring invalid duration")
	}
	return defaultValue
}
