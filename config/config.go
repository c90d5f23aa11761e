package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr string
	GinMode  string

	JWTSecret    string
	ServiceToken string

	DBDriver   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPass     string
	DBName     string
	SQLitePath string

	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	StorageDriver string
	MinioHost     string
	MinioPort     string
	MinioUsername string
	MinioPassword string
	MinioUseSSL   bool
	BucketName    string

	RabbitMQURL      string
	RabbitMQPrefetch int
	NotifyAsync      bool
	NotifyRate       float64
	NotifyBurst      int
	NotifyWorkers    int

	ShareCacheTTL     time.Duration
	SweepInterval     time.Duration
	SweepLockTTL      time.Duration
	ViewerRate        float64
	ViewerBurst       int
	MaxMultipartBytes int64
	MaxShareUploadMB  int

	LogLevel      string
	LogFile       string
	LogMaxSize    int
	LogMaxAge     int
	LogMaxBackups int
}

var AppConfig Config

// getEnv returns the environment value or a default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func getEnvBool(key string, defaultValue bool) bool {
	value := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	if value == "" {
		return defaultValue
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return defaultValue
	}
}

func getEnvInt64(key string, defaultValue int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return defaultValue
	}
	return parsed
}

// InitConfig loads configuration from the environment, reading .env first when present.
func InitConfig() {
	_ = godotenv.Load()

	rabbitURL := getEnv("RABBITMQ_URL", "")
	if rabbitURL == "" {
		rabbitURL = fmt.Sprintf(
			"amqp://%s:%s@%s:%s/%s",
			url.PathEscape(getEnv("RABBITMQ_USER", "guest")),
			url.PathEscape(getEnv("RABBITMQ_PASSWORD", "guest")),
			getEnv("RABBITMQ_HOST", "localhost"),
			getEnv("RABBITMQ_PORT", "5672"),
			url.PathEscape(getEnv("RABBITMQ_VHOST", "/")),
		)
	}
	AppConfig = Config{
		HTTPAddr:          getEnv("HTTP_ADDR", ":8000"),
		GinMode:           getEnv("GIN_MODE", "release"),
		JWTSecret:         getEnv("JWT_SECRET", ""),
		ServiceToken:      getEnv("SERVICE_TOKEN", ""),
		DBDriver:          strings.ToLower(getEnv("DB_DRIVER", "mysql")),
		DBHost:            getEnv("DB_HOST", "localhost"),
		DBPort:            getEnv("DB_PORT", "3306"),
		DBUser:            getEnv("DB_USER", "root"),
		DBPass:            getEnv("DB_PASS", "root"),
		DBName:            getEnv("DB_NAME", "posevault"),
		SQLitePath:        getEnv("SQLITE_PATH", "posevault.db"),
		RedisHost:         getEnv("REDIS_HOST", ""),
		RedisPort:         getEnv("REDIS_PORT", "6379"),
		RedisPassword:     getEnv("REDIS_PASSWORD", ""),
		RedisDB:           getEnvInt("REDIS_DB", 0),
		StorageDriver:     strings.ToLower(getEnv("STORAGE_DRIVER", "minio")),
		MinioHost:         getEnv("MINIO_HOST", "localhost"),
		MinioPort:         getEnv("MINIO_PORT", "9000"),
		MinioUsername:     getEnv("MINIO_USERNAME", "minioadmin"),
		MinioPassword:     getEnv("MINIO_PASSWORD", "minioadmin"),
		MinioUseSSL:       getEnvBool("MINIO_USE_SSL", false),
		BucketName:        getEnv("BUCKET_NAME", "posevault"),
		RabbitMQURL:       rabbitURL,
		RabbitMQPrefetch:  getEnvInt("RABBITMQ_PREFETCH", 8),
		NotifyAsync:       getEnvBool("NOTIFY_ASYNC", false),
		NotifyRate:        getEnvFloat("NOTIFY_RATE", 20),
		NotifyBurst:       getEnvInt("NOTIFY_BURST", 40),
		NotifyWorkers:     getEnvInt("NOTIFY_WORKERS", 4),
		ShareCacheTTL:     getEnvDuration("SHARE_CACHE_TTL", 30*time.Second),
		SweepInterval:     getEnvDuration("SWEEP_INTERVAL", time.Hour),
		SweepLockTTL:      getEnvDuration("SWEEP_LOCK_TTL", 10*time.Minute),
		ViewerRate:        getEnvFloat("VIEWER_RATE", 5),
		ViewerBurst:       getEnvInt("VIEWER_BURST", 20),
		MaxMultipartBytes: getEnvInt64("MAX_MULTIPART_BYTES", 64<<20),
		MaxShareUploadMB:  getEnvInt("MAX_SHARE_UPLOAD_MB", 100),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogFile:           getEnv("LOG_FILE", ""),
		LogMaxSize:        getEnvInt("LOG_MAX_SIZE", 100),
		LogMaxAge:         getEnvInt("LOG_MAX_AGE", 14),
		LogMaxBackups:     getEnvInt("LOG_MAX_BACKUPS", 5),
	}
}
