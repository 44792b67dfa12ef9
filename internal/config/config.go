package config

import (
	"os"
	"strconv"
	"time"

	"rewards_backend/internal/logger"

	"github.com/joho/godotenv"
)

type Config struct {
	AppPort     string
	DatabaseURL string
	JWTSecret   string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	LogLevel string
	LogJSON  bool

	// Каталог наград: локальная папка или базовый URL
	CatalogDir string
	CatalogURL string

	// Ассеты аватара
	AvatarAssetDir   string
	AvatarAssetURL   string
	AssetLoadTimeout time.Duration

	RarityFile string
	BundleSize int

	AutoMigrate   bool
	AllowedOrigin string

	// Rate limit для /api/v1
	APIRateLimit  int
	APIRateWindow int
}

// Загрузка конфига из env
func Load() *Config {
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		logger.Fatal("DATABASE_URL is not set")
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		logger.Fatal("JWT_SECRET is not set")
	}

	cfg := fromEnv()
	cfg.DatabaseURL = dbURL
	cfg.JWTSecret = jwtSecret
	return cfg
}

// fromEnv reads every optional key; Load adds the required ones.
func fromEnv() *Config {
	catalogDir := os.Getenv("CATALOG_DIR")
	catalogURL := os.Getenv("CATALOG_URL")
	if catalogDir == "" && catalogURL == "" {
		catalogDir = "./rewards"
	}

	assetDir := os.Getenv("AVATAR_ASSET_DIR")
	assetURL := os.Getenv("AVATAR_ASSET_URL")
	if assetDir == "" && assetURL == "" {
		assetDir = "./assets/avatar"
	}

	return &Config{
		AppPort:          getenv("APP_PORT", "8080"),
		RedisAddr:        getenv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:    os.Getenv("REDIS_PASSWORD"),
		RedisDB:          intEnv("REDIS_DB", 0, 0),
		LogLevel:         getenv("LOG_LEVEL", "info"),
		LogJSON:          os.Getenv("LOG_JSON") == "true",
		CatalogDir:       catalogDir,
		CatalogURL:       catalogURL,
		AvatarAssetDir:   assetDir,
		AvatarAssetURL:   assetURL,
		AssetLoadTimeout: time.Duration(intEnv("ASSET_LOAD_TIMEOUT_MS", 3000, 1)) * time.Millisecond,
		RarityFile:       os.Getenv("RARITY_FILE"),
		BundleSize:       intEnv("BUNDLE_SIZE", 3, 1), // 3 награды в сундуке
		AutoMigrate:      os.Getenv("AUTO_MIGRATE") == "true",
		AllowedOrigin:    os.Getenv("ALLOWED_ORIGIN"),
		APIRateLimit:     intEnv("API_RATE_LIMIT", 120, 1),
		APIRateWindow:    intEnv("API_RATE_WINDOW_SECONDS", 60, 1),
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// intEnv returns def when the key is unset, malformed or below min.
func intEnv(key string, def, min int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < min {
		logger.Warn("ignoring invalid config value", "key", key, "value", v)
		return def
	}
	return n
}
