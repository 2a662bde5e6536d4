package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Port        string   `yaml:"port"`
	CORSOrigins []string `yaml:"corsOrigins"`

	DatabaseURL    string        `yaml:"databaseUrl"`
	DBMaxOpenConns int           `yaml:"dbMaxOpenConns"`
	DBMaxIdleConns int           `yaml:"dbMaxIdleConns"`
	DBLogLevel     string        `yaml:"dbLogLevel"`
	RedisURL       string        `yaml:"redisUrl"`
	JWTSecret      string        `yaml:"jwtSecret"`
	TokenTTL       time.Duration `yaml:"tokenTtl"`
	BcryptCost     int           `yaml:"bcryptCost"`

	ClassifierURL     string        `yaml:"classifierUrl"`
	ClassifierAPIKey  string        `yaml:"classifierApiKey"`
	ClassifierTimeout time.Duration `yaml:"classifierTimeout"`

	StorageDriver  string      `yaml:"storageDriver"`
	UploadDir      string      `yaml:"uploadDir"`
	MaxUploadBytes int64       `yaml:"maxUploadBytes"`
	Minio          MinioConfig `yaml:"minio"`

	ReportXP         int           `yaml:"reportXp"`
	ReportRateLimit  int64         `yaml:"reportRateLimit"`
	ReportRateWindow time.Duration `yaml:"reportRateWindow"`
	LeaderboardTTL   time.Duration `yaml:"leaderboardTtl"`
}

type MinioConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"useSsl"`
	PublicURL string `yaml:"publicUrl"`
}

func defaults() *Config {
	return &Config{
		Port:              "5000",
		CORSOrigins:       []string{"*"},
		DBMaxOpenConns:    10,
		DBMaxIdleConns:    5,
		DBLogLevel:        "warn",
		JWTSecret:         "your-secret-key-change-in-production",
		TokenTTL:          7 * 24 * time.Hour,
		BcryptCost:        10,
		ClassifierURL:     "https://serverless.roboflow.com/trash-detection-ujrn0/1",
		ClassifierTimeout: 30 * time.Second,
		StorageDriver:     "local",
		UploadDir:         "uploads",
		MaxUploadBytes:    10 * 1024 * 1024,
		Minio:             MinioConfig{Bucket: "clearcity"},
		ReportXP:          10,
		ReportRateLimit:   20,
		ReportRateWindow:  time.Hour,
		LeaderboardTTL:    30 * time.Second,
	}
}

// Load builds the configuration from defaults, an optional YAML file named by
// CONFIG_FILE, and finally the environment (including a .env file if present).
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using defaults/environment variables")
	}

	cfg := defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(path, cfg); err != nil {
			log.Printf("Warning: failed to load config file %s: %v", path, err)
		}
	}
	applyEnv(cfg)
	return cfg
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to unmarshal yaml: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.Port = getEnv("PORT", cfg.Port)
	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		cfg.CORSOrigins = splitList(origins)
	}

	cfg.DatabaseURL = getEnv("DATABASE_URL", cfg.DatabaseURL)
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = databaseURLFromParts()
	}
	cfg.DBMaxOpenConns = getEnvInt("DB_MAX_OPEN_CONNS", cfg.DBMaxOpenConns)
	cfg.DBMaxIdleConns = getEnvInt("DB_MAX_IDLE_CONNS", cfg.DBMaxIdleConns)
	cfg.DBLogLevel = getEnv("DB_LOG_LEVEL", cfg.DBLogLevel)
	cfg.RedisURL = getEnv("REDIS_URL", cfg.RedisURL)
	cfg.JWTSecret = getEnv("JWT_SECRET", cfg.JWTSecret)
	cfg.TokenTTL = getEnvDuration("TOKEN_TTL", cfg.TokenTTL)
	cfg.BcryptCost = getEnvInt("BCRYPT_COST", cfg.BcryptCost)

	cfg.ClassifierURL = getEnv("CLASSIFIER_URL", cfg.ClassifierURL)
	cfg.ClassifierAPIKey = getEnv("CLASSIFIER_API_KEY", cfg.ClassifierAPIKey)
	cfg.ClassifierTimeout = getEnvDuration("CLASSIFIER_TIMEOUT", cfg.ClassifierTimeout)

	cfg.StorageDriver = strings.ToLower(getEnv("STORAGE_DRIVER", cfg.StorageDriver))
	cfg.UploadDir = getEnv("UPLOAD_DIR", cfg.UploadDir)
	cfg.MaxUploadBytes = getEnvInt64("MAX_UPLOAD_BYTES", cfg.MaxUploadBytes)
	cfg.Minio.Endpoint = getEnv("MINIO_ENDPOINT", cfg.Minio.Endpoint)
	cfg.Minio.AccessKey = getEnv("MINIO_ACCESS_KEY", cfg.Minio.AccessKey)
	cfg.Minio.SecretKey = getEnv("MINIO_SECRET_KEY", cfg.Minio.SecretKey)
	cfg.Minio.Bucket = getEnv("MINIO_BUCKET", cfg.Minio.Bucket)
	cfg.Minio.UseSSL = getEnvBool("MINIO_USE_SSL", cfg.Minio.UseSSL)
	cfg.Minio.PublicURL = getEnv("MINIO_PUBLIC_URL", cfg.Minio.PublicURL)

	cfg.ReportXP = getEnvInt("REPORT_XP", cfg.ReportXP)
	cfg.ReportRateLimit = getEnvInt64("REPORT_RATE_LIMIT", cfg.ReportRateLimit)
	cfg.ReportRateWindow = getEnvDuration("REPORT_RATE_WINDOW", cfg.ReportRateWindow)
	cfg.LeaderboardTTL = getEnvDuration("LEADERBOARD_TTL", cfg.LeaderboardTTL)
}

// databaseURLFromParts assembles a DSN from the individual DB_* variables.
func databaseURLFromParts() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		getEnv("DB_USER", "postgres"),
		os.Getenv("DB_PASSWORD"),
		getEnv("DB_HOST", "localhost"),
		getEnv("DB_PORT", "5432"),
		getEnv("DB_NAME", "clearcity"),
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
		log.Printf("Warning: invalid integer for %s: %q", key, v)
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
		log.Printf("Warning: invalid integer for %s: %q", key, v)
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		log.Printf("Warning: invalid duration for %s: %q", key, v)
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
