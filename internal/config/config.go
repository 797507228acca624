package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port string

	DBDriver   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPath     string

	EventBus      string
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
	RedisChannel  string
	NATSURL       string
	NATSSubject   string

	NearbyMode           string
	SessionMaxAge        time.Duration
	SessionSweepInterval time.Duration

	LogLevel  string
	LogFormat string
}

func LoadConfig() (*Config, error) {
	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}
	maxAge, err := time.ParseDuration(getEnv("SESSION_MAX_AGE", "24h"))
	if err != nil {
		return nil, fmt.Errorf("invalid SESSION_MAX_AGE: %w", err)
	}
	sweep, err := time.ParseDuration(getEnv("SESSION_SWEEP_INTERVAL", "10m"))
	if err != nil {
		return nil, fmt.Errorf("invalid SESSION_SWEEP_INTERVAL: %w", err)
	}

	cfg := &Config{
		Port:                 getEnv("PORT", "8000"),
		DBDriver:             getEnv("DB_DRIVER", "postgres"),
		DBHost:               getEnv("DB_HOST", "localhost"),
		DBPort:               getEnv("DB_PORT", "5432"),
		DBUser:               getEnv("DB_USER", "postgres"),
		DBPassword:           getEnv("DB_PASSWORD", "postgres"),
		DBName:               getEnv("DB_NAME", "postgres"),
		DBPath:               getEnv("DB_PATH", "ipnote.db"),
		EventBus:             getEnv("EVENT_BUS", "local"),
		RedisHost:            getEnv("REDIS_HOST", "localhost"),
		RedisPort:            getEnv("REDIS_PORT", "6379"),
		RedisPassword:        getEnv("REDIS_PASSWORD", ""),
		RedisDB:              redisDB,
		RedisChannel:         getEnv("REDIS_CHANNEL", "ipnote:events"),
		NATSURL:              getEnv("NATS_URL", "nats://127.0.0.1:4222"),
		NATSSubject:          getEnv("NATS_SUBJECT", "ipnote.events"),
		NearbyMode:           getEnv("NEARBY_MODE", "traffic"),
		SessionMaxAge:        maxAge,
		SessionSweepInterval: sweep,
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		LogFormat:            getEnv("LOG_FORMAT", "text"),
	}

	switch cfg.DBDriver {
	case "postgres", "sqlite3":
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}
	switch cfg.EventBus {
	case "local", "redis", "nats":
	default:
		return nil, fmt.Errorf("unsupported EVENT_BUS %q", cfg.EventBus)
	}
	switch cfg.NearbyMode {
	case "traffic", "session":
	default:
		return nil, fmt.Errorf("unsupported NEARBY_MODE %q", cfg.NearbyMode)
	}
	return cfg, nil
}

func (c *Config) PostgresDSN() string {
	return "host=" + c.DBHost +
		" port=" + c.DBPort +
		" user=" + c.DBUser +
		" password=" + c.DBPassword +
		" dbname=" + c.DBName +
		" sslmode=disable"
}

func (c *Config) RedisAddr() string {
	return c.RedisHost + ":" + c.RedisPort
}

func getEnv(key string, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}
