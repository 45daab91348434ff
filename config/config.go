package config

import (
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config stores the application configuration.
type Config struct {
	ListenAddr string
	JWTSecret  string
	JWTExpiry  time.Duration

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Redis配置
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// 存储后端: "minio" 使用对象存储, "local" 使用本地磁盘音乐库
	StorageBackend string
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioRegion    string
	MinioUseSSL    bool

	LocalLibraryDir string // local 后端的音乐库根目录

	SignedURLTTL  time.Duration // 签名URL有效期
	DraftTTL      time.Duration // 上传草稿在Redis中的保留时间
	MaxDraftBytes int64         // 超过此大小的草稿音频不做持久化
	EnableSignup  bool
	LogPath       string
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt gets an environment variable as int or returns a default value.
func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

// Load loads configuration from environment variables (via .env file) or defaults.
func Load() *Config {
	// godotenv.Load() will not override existing env vars.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found or error loading .env, relying on existing environment variables and defaults.")
	}

	return &Config{
		ListenAddr: getEnv("LISTEN_ADDR", ":8080"),
		JWTSecret:  getEnv("JWT_SECRET", "jzonefm-dev-secret"),
		JWTExpiry:  time.Duration(getEnvInt("JWT_EXPIRY_HOURS", 72)) * time.Hour,

		DBHost:     getEnv("DB_HOST", "127.0.0.1"),
		DBPort:     getEnv("DB_PORT", "3306"),
		DBUser:     getEnv("DB_USER", "root"),
		DBPassword: os.Getenv("DB_PASSWORD"), // 密码不设硬编码默认值
		DBName:     getEnv("DB_NAME", "jzonefm"),

		RedisHost:     getEnv("REDIS_HOST", "127.0.0.1"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		StorageBackend: getEnv("STORAGE_BACKEND", "local"),
		MinioEndpoint:  getEnv("MINIO_ENDPOINT", ""),
		MinioAccessKey: getEnv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey: getEnv("MINIO_SECRET_KEY", ""),
		MinioBucket:    getEnv("MINIO_BUCKET", "jzonefm"),
		MinioRegion:    getEnv("MINIO_REGION", "us-east-1"),
		MinioUseSSL:    getEnvBool("MINIO_USE_SSL", false),

		LocalLibraryDir: getEnv("LOCAL_LIBRARY_DIR", filepath.Join("data", "library")),

		SignedURLTTL:  time.Duration(getEnvInt("SIGNED_URL_TTL_SECONDS", 3600)) * time.Second,
		DraftTTL:      time.Duration(getEnvInt("DRAFT_TTL_HOURS", 72)) * time.Hour,
		MaxDraftBytes: int64(getEnvInt("MAX_DRAFT_MB", 25)) << 20,
		EnableSignup:  getEnvBool("ENABLE_SIGNUP", true),
		LogPath:       getEnv("LOG_PATH", filepath.Join("logs", "jzonefm.log")),
	}
}
