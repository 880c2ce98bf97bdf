package config

import (
	"os"
	"strconv"
	"time"

	"task_manager/internal/logger"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

// Store drivers accepted in STORE_DRIVER.
const (
	StorePostgres = "postgres"
	StoreMongo    = "mongo"
	StoreMemory   = "memory"
)

type Config struct {
	AppPort       string
	JWTSecret     string
	JWTTTL        time.Duration
	StoreDriver   string
	DatabaseURL   string
	MongoURI      string
	MongoDatabase string
	BcryptCost    int
	AllowedOrigin string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	APIRateLimit   int
	APIRateWindow  time.Duration
	AuthRateLimit  int
	AuthRateWindow time.Duration
	WSRateLimit    int
	WSRateWindow   time.Duration

	LogLevel string
	LogJSON  bool
}

// Load reads .env (if present) and the environment. Missing required
// values terminate the process.
func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		AppPort:        getenv("APP_PORT", "5000"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		JWTTTL:         time.Duration(getInt("JWT_TTL_HOURS", 30*24)) * time.Hour,
		StoreDriver:    getenv("STORE_DRIVER", StorePostgres),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		MongoURI:       os.Getenv("MONGO_URI"),
		MongoDatabase:  getenv("MONGO_DATABASE", "task_manager"),
		BcryptCost:     getInt("BCRYPT_COST", bcrypt.DefaultCost),
		AllowedOrigin:  getenv("ALLOWED_ORIGIN", "http://localhost:5173"),
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		RedisDB:        getInt("REDIS_DB", 0),
		APIRateLimit:   getInt("API_RATE_LIMIT", 120),
		APIRateWindow:  time.Duration(getInt("API_RATE_WINDOW_SECONDS", 60)) * time.Second,
		AuthRateLimit:  getInt("AUTH_RATE_LIMIT", 10),
		AuthRateWindow: time.Duration(getInt("AUTH_RATE_WINDOW_SECONDS", 60)) * time.Second,
		WSRateLimit:    getInt("WS_RATE_LIMIT", 30),
		WSRateWindow:   time.Duration(getInt("WS_RATE_WINDOW_SECONDS", 60)) * time.Second,
		LogLevel:       getenv("LOG_LEVEL", "info"),
		LogJSON:        os.Getenv("LOG_FORMAT") == "json",
	}

	if cfg.JWTSecret == "" {
		logger.Fatal("JWT_SECRET is not set")
	}

	switch cfg.StoreDriver {
	case StorePostgres:
		if cfg.DatabaseURL == "" {
			logger.Fatal("DATABASE_URL is not set")
		}
	case StoreMongo:
		if cfg.MongoURI == "" {
			logger.Fatal("MONGO_URI is not set")
		}
	case StoreMemory:
		logger.Warn("using in-memory store, data is lost on restart")
	default:
		logger.Fatal("unknown STORE_DRIVER", "driver", cfg.StoreDriver)
	}

	if cfg.BcryptCost < bcrypt.MinCost || cfg.BcryptCost > bcrypt.MaxCost {
		cfg.BcryptCost = bcrypt.DefaultCost
	}

	return cfg
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// getInt returns the positive integer in key, or def.
func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return def
}
